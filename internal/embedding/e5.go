package embedding

import (
	"context"
	"math"

	"github.com/tmc/langchaingo/embeddings"
)

const (
	queryPrefix   = "query: "
	passagePrefix = "passage: "
)

// E5 wraps an embedder serving an E5 family model. Queries and passages get
// their role prefix and every vector is scaled to unit length.
type E5 struct {
	next embeddings.Embedder
}

func NewE5(next embeddings.Embedder) *E5 {
	return &E5{next: next}
}

func (e *E5) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	v, err := e.next.EmbedQuery(ctx, queryPrefix+text)
	if err != nil {
		return nil, err
	}
	return Normalize(v), nil
}

func (e *E5) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	prefixed := make([]string, len(texts))
	for i, t := range texts {
		prefixed[i] = passagePrefix + t
	}
	vs, err := e.next.EmbedDocuments(ctx, prefixed)
	if err != nil {
		return nil, err
	}
	for i := range vs {
		vs[i] = Normalize(vs[i])
	}
	return vs, nil
}

// Normalize returns v scaled to unit L2 norm. A zero vector is returned unchanged.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	norm := float32(math.Sqrt(sum))
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = x / norm
	}
	return out
}
