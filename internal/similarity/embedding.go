package similarity

import (
	"context"
	"fmt"

	"github.com/nvandessel/tracelink/internal/constants"
	"github.com/nvandessel/tracelink/internal/embedding"
)

// Embedding compares the cosine similarity of word embeddings from a local model.
type Embedding struct {
	embedder  embedding.Embedder
	cache     *embedding.Cache
	threshold float64
}

// NewEmbedding creates the measure. The embedder stays owned by the caller.
func NewEmbedding(e embedding.Embedder, threshold float64) *Embedding {
	return &Embedding{embedder: e, cache: embedding.NewCache(), threshold: threshold}
}

// Name implements Measure.
func (*Embedding) Name() string { return constants.MeasureEmbedding }

// POSPairs implements Measure.
func (*Embedding) POSPairs() []POSPair { return nil }

// Compare implements Measure. Embedding failures are reported as ErrUnavailable.
func (m *Embedding) Compare(ctx context.Context, a, b Term) (Verdict, error) {
	va, err := m.cache.Get(ctx, m.embedder, a.Text)
	if err != nil {
		return unknown(), fmt.Errorf("%w: embedding %q: %v", ErrUnavailable, a.Text, err)
	}
	vb, err := m.cache.Get(ctx, m.embedder, b.Text)
	if err != nil {
		return unknown(), fmt.Errorf("%w: embedding %q: %v", ErrUnavailable, b.Text, err)
	}
	return threshold(embedding.CosineSimilarity(va, vb), m.threshold), nil
}
