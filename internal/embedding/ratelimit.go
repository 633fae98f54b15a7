package embedding

import (
	"context"

	"github.com/tmc/langchaingo/embeddings"
	"golang.org/x/time/rate"
)

// RateLimited spaces out calls to a hosted embedding API. One batch costs one token.
type RateLimited struct {
	next    embeddings.Embedder
	limiter *rate.Limiter
}

func NewRateLimited(next embeddings.Embedder, requestsPerSecond float64) *RateLimited {
	burst := max(int(requestsPerSecond), 1)
	return &RateLimited{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), burst),
	}
}

func (r *RateLimited) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return r.next.EmbedQuery(ctx, text)
}

func (r *RateLimited) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return r.next.EmbedDocuments(ctx, texts)
}
