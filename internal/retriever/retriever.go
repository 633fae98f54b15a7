package retriever

import (
	"context"
	"math"
	"strings"

	"hr-rag/internal/models"
)

// DefaultLambda weighs relevance against diversity equally
const DefaultLambda = 0.5

// Index is the part of the indexer the retriever needs
type Index interface {
	EmbedQuery(ctx context.Context, query string) ([]float32, error)
	Search(ctx context.Context, embedding []float32, n int, corpus models.Corpus) ([]models.Hit, error)
}

// Retriever runs maximal marginal relevance over an over-fetched candidate pool.
type Retriever struct {
	index  Index
	lambda float64
}

func New(index Index) *Retriever {
	return &Retriever{index: index, lambda: DefaultLambda}
}

// WithLambda returns a copy using a different relevance weight in [0,1]
func (r *Retriever) WithLambda(lambda float64) *Retriever {
	return &Retriever{index: r.index, lambda: min(max(lambda, 0), 1)}
}

// FetchSize is the candidate pool size for k results
func FetchSize(k int) int {
	return max(k*3, 8)
}

// Search returns up to k diverse hits for query. A non-empty corpus restricts
// the candidate pool itself, so the filter never shrinks a full result set.
func (r *Retriever) Search(ctx context.Context, query string, k int, corpus models.Corpus) ([]models.Hit, error) {
	if strings.TrimSpace(query) == "" {
		return nil, models.ErrEmptyQuery
	}
	if k <= 0 {
		return nil, nil
	}

	emb, err := r.index.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	candidates, err := r.index.Search(ctx, emb, FetchSize(k), corpus)
	if err != nil {
		return nil, err
	}
	return MMR(emb, candidates, k, r.lambda), nil
}

// MMR picks k hits, each maximising lambda*sim(query) - (1-lambda)*max sim(selected).
func MMR(query []float32, candidates []models.Hit, k int, lambda float64) []models.Hit {
	if k <= 0 || len(candidates) == 0 {
		return nil
	}
	k = min(k, len(candidates))

	relevance := make([]float64, len(candidates))
	for i, c := range candidates {
		relevance[i] = similarity(query, c)
	}

	selected := make([]int, 0, k)
	used := make([]bool, len(candidates))
	for len(selected) < k {
		best, bestScore := -1, math.Inf(-1)
		for i, c := range candidates {
			if used[i] {
				continue
			}
			redundancy := 0.0
			if len(selected) > 0 {
				redundancy = math.Inf(-1)
				for _, j := range selected {
					redundancy = max(redundancy, cosine(c.Embedding, candidates[j].Embedding))
				}
			}
			score := lambda*relevance[i] - (1-lambda)*redundancy
			if score > bestScore {
				best, bestScore = i, score
			}
		}
		used[best] = true
		selected = append(selected, best)
	}

	out := make([]models.Hit, len(selected))
	for i, idx := range selected {
		out[i] = candidates[idx]
	}
	return out
}

// similarity prefers the stored vector and falls back to the store's score
func similarity(query []float32, h models.Hit) float64 {
	if len(h.Embedding) == 0 {
		return float64(h.Similarity)
	}
	return cosine(query, h.Embedding)
}

func cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
