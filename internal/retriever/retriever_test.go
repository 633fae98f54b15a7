package retriever

import (
	"context"
	"testing"

	"hr-rag/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIndex struct {
	hits       []models.Hit
	lastN      int
	lastCorpus models.Corpus
}

func (f *fakeIndex) EmbedQuery(context.Context, string) ([]float32, error) {
	return []float32{1, 0}, nil
}

func (f *fakeIndex) Search(_ context.Context, _ []float32, n int, corpus models.Corpus) ([]models.Hit, error) {
	f.lastN = n
	f.lastCorpus = corpus
	var out []models.Hit
	for _, h := range f.hits {
		if corpus == "" || h.Chunk.Corpus == corpus {
			out = append(out, h)
		}
	}
	return out[:min(n, len(out))], nil
}

func hit(id string, corpus models.Corpus, vec ...float32) models.Hit {
	return models.Hit{ID: id, Chunk: models.Chunk{DocTitle: id, Corpus: corpus}, Embedding: vec}
}

func TestFetchSize(t *testing.T) {
	assert.Equal(t, 8, FetchSize(1))
	assert.Equal(t, 8, FetchSize(2))
	assert.Equal(t, 15, FetchSize(5))
}

func TestMMR_PrefersDiversity(t *testing.T) {
	query := []float32{1, 0}
	candidates := []models.Hit{
		hit("a", models.CorpusHR, 1, 0.1),
		hit("a-copy", models.CorpusHR, 1, 0.12),
		hit("b", models.CorpusHR, 1, -0.6),
	}

	got := MMR(query, candidates, 2, 0.5)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "b", got[1].ID)

	// pure relevance keeps the near duplicate
	got = MMR(query, candidates, 2, 1)
	assert.Equal(t, []string{"a", "a-copy"}, []string{got[0].ID, got[1].ID})
}

func TestMMR_Bounds(t *testing.T) {
	assert.Nil(t, MMR([]float32{1}, nil, 3, 0.5))
	assert.Nil(t, MMR([]float32{1}, []models.Hit{hit("a", models.CorpusHR, 1)}, 0, 0.5))
	assert.Len(t, MMR([]float32{1}, []models.Hit{hit("a", models.CorpusHR, 1)}, 5, 0.5), 1)
}

func TestMMR_FallsBackToStoreScore(t *testing.T) {
	candidates := []models.Hit{
		{ID: "low", Similarity: 0.1},
		{ID: "high", Similarity: 0.9},
	}
	got := MMR([]float32{1, 0}, candidates, 1, 0.5)
	require.Len(t, got, 1)
	assert.Equal(t, "high", got[0].ID)
}

func TestSearch_FilterIsPassedToIndex(t *testing.T) {
	idx := &fakeIndex{hits: []models.Hit{
		hit("h1", models.CorpusHR, 1, 0),
		hit("j1", models.CorpusJisr, 1, 0),
		hit("h2", models.CorpusHR, 0, 1),
		hit("j2", models.CorpusJisr, 0.5, 0.5),
	}}
	r := New(idx)

	got, err := r.Search(context.Background(), "سؤال", 2, models.CorpusJisr)
	require.NoError(t, err)
	assert.Equal(t, 8, idx.lastN)
	assert.Equal(t, models.CorpusJisr, idx.lastCorpus)
	require.Len(t, got, 2)
	for _, h := range got {
		assert.Equal(t, models.CorpusJisr, h.Chunk.Corpus)
	}
}

func TestSearch_EmptyQueryAndK(t *testing.T) {
	r := New(&fakeIndex{})

	_, err := r.Search(context.Background(), "  ", 3, "")
	assert.ErrorIs(t, err, models.ErrEmptyQuery)

	got, err := r.Search(context.Background(), "q", 0, "")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestWithLambdaClamps(t *testing.T) {
	r := New(&fakeIndex{})
	assert.Equal(t, 1.0, r.WithLambda(3).lambda)
	assert.Equal(t, 0.0, r.WithLambda(-1).lambda)
	assert.Equal(t, DefaultLambda, r.lambda)
}
