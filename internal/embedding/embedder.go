// Package embedding provides dense text embeddings for the embedding similarity measure.
// The real embedder runs a local GGUF model through yzma and is only compiled with
// -tags llamacpp; other builds get a stub that reports itself unavailable.
package embedding

import (
	"context"
	"errors"
	"sync"
)

// ErrNotCompiled is returned by the stub embedder.
var ErrNotCompiled = errors.New("local embeddings not available: build with -tags llamacpp")

// Embedder turns text into a vector.
type Embedder interface {
	// Available is a cheap check that the embedder can be used, without loading anything.
	Available() bool

	Embed(ctx context.Context, text string) ([]float32, error)

	Close() error
}

// LocalConfig configures the local embedder.
type LocalConfig struct {
	// LibPath is the directory containing yzma shared libraries (.so/.dylib).
	// Falls back to YZMA_LIB env var at runtime.
	LibPath string

	// ModelPath is the path to the GGUF embedding model.
	ModelPath string

	// GPULayers is the number of layers to offload to GPU (0 = CPU only).
	GPULayers int

	// ContextSize is the context window size in tokens.
	ContextSize int
}

// Cache memoizes embeddings by text. Words recur constantly during one run,
// so each distinct word is embedded once.
type Cache struct {
	mu      sync.RWMutex
	vectors map[string][]float32
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{vectors: make(map[string][]float32)}
}

// Get embeds text with e, or returns the cached vector.
func (c *Cache) Get(ctx context.Context, e Embedder, text string) ([]float32, error) {
	c.mu.RLock()
	vec, ok := c.vectors[text]
	c.mu.RUnlock()
	if ok {
		return vec, nil
	}

	vec, err := e.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.vectors[text] = vec
	c.mu.Unlock()
	return vec, nil
}

// Len returns the number of cached vectors.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.vectors)
}
