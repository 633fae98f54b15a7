package index

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"

	"hr-rag/internal/helper"
	"hr-rag/internal/metrics"
	"hr-rag/internal/models"
)

// VectorStore is one persistent collection of embedded chunks.
// An empty corpus in Query means no filter; a non-empty one must be applied
// by the store before ranking.
type VectorStore interface {
	Name() string
	Collection() string
	Add(ctx context.Context, records []models.Record) error
	Query(ctx context.Context, embedding []float32, n int, corpus models.Corpus) ([]models.Hit, error)
	Count(ctx context.Context) (int, error)
	// Reset drops the collection and recreates it empty.
	Reset(ctx context.Context) error
	Close() error
}

// Indexer owns the vector store and the embedder. Writes and resets are
// exclusive, searches share the lock.
type Indexer struct {
	mu       sync.RWMutex
	store    VectorStore
	embedder embeddings.Embedder
	ready    bool
}

func New(store VectorStore, embedder embeddings.Embedder) *Indexer {
	return &Indexer{store: store, embedder: embedder, ready: true}
}

// Ready reports whether the store can be used
func (ix *Indexer) Ready() bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.ready
}

// Add embeds the chunks in order and appends them to the store under fresh ids.
// It never deduplicates, so adding the same chunks twice stores them twice.
func (ix *Indexer) Add(ctx context.Context, chunks []models.Chunk) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	if !ix.ready {
		return 0, models.ErrIndexUnavailable
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := ix.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embedding %d chunks: %w", len(chunks), err)
	}
	if len(vectors) != len(chunks) {
		return 0, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
	}

	records := make([]models.Record, len(chunks))
	for i, c := range chunks {
		id, err := helper.GenerateUUID()
		if err != nil {
			return 0, err
		}
		records[i] = models.Record{
			ID:        id,
			Chunk:     c,
			Embedding: vectors[i],
		}
	}

	start := time.Now()
	err = ix.store.Add(ctx, records)
	metrics.CaptureExecutionMetrics(metrics.VectorUpsert, time.Since(start))
	if err != nil {
		return 0, fmt.Errorf("writing to %s: %w", ix.store.Name(), err)
	}
	log.Debug().Int("records", len(records)).Str("backend", ix.store.Name()).Msg("indexed chunks")
	return len(records), nil
}

// Reset empties the collection. If the store cannot recreate it the indexer
// stays unavailable until a later Reset succeeds.
func (ix *Indexer) Reset(ctx context.Context) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if err := ix.store.Reset(ctx); err != nil {
		ix.ready = false
		log.Error().Err(err).Str("backend", ix.store.Name()).Msg("failed to reset collection")
		return fmt.Errorf("reset %s: %w", ix.store.Name(), err)
	}
	ix.ready = true
	log.Info().Str("collection", ix.store.Collection()).Msg("collection reset")
	return nil
}

func (ix *Indexer) Stats(ctx context.Context) (models.IndexStats, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	stats := models.IndexStats{
		CollectionName: ix.store.Collection(),
		Backend:        ix.store.Name(),
	}
	if !ix.ready {
		return stats, models.ErrIndexUnavailable
	}
	n, err := ix.store.Count(ctx)
	if err != nil {
		return stats, err
	}
	stats.TotalDocuments = n
	return stats, nil
}

// EmbedQuery encodes a search query with the query role of the active embedder.
func (ix *Indexer) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	return ix.embedder.EmbedQuery(ctx, query)
}

// Search returns up to n nearest records, restricted to corpus when it is set.
func (ix *Indexer) Search(ctx context.Context, embedding []float32, n int, corpus models.Corpus) ([]models.Hit, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if !ix.ready {
		return nil, models.ErrIndexUnavailable
	}
	if n <= 0 {
		return nil, nil
	}

	start := time.Now()
	hits, err := ix.store.Query(ctx, embedding, n, corpus)
	metrics.CaptureExecutionMetrics(metrics.VectorSearch, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", ix.store.Name(), err)
	}
	return hits, nil
}

func (ix *Indexer) Close() error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.ready = false
	return ix.store.Close()
}
