//go:build !llamacpp

package embedding

import "context"

// LocalEmbedder is the stub used when the llamacpp build tag is not set.
// It reports Available()=false so the embedding measure is left out.
type LocalEmbedder struct {
	modelPath string
}

// NewLocalEmbedder creates a stub embedder.
func NewLocalEmbedder(cfg LocalConfig) *LocalEmbedder {
	return &LocalEmbedder{modelPath: cfg.ModelPath}
}

// Available always returns false in stub builds.
func (e *LocalEmbedder) Available() bool {
	return false
}

// Embed always fails in stub builds.
func (e *LocalEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	return nil, ErrNotCompiled
}

// Close is a no-op for the stub.
func (e *LocalEmbedder) Close() error {
	return nil
}
