package chromemdb

import (
	"context"
	"fmt"
	"runtime"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"

	"hr-rag/internal/models"
)

const backendName = "chromem"

// VectorDBManager encapsulates the chromem-go database operations for one collection
type VectorDBManager struct {
	db             *chromem.DB
	collection     *chromem.Collection
	collectionName string
	dbPath         string
	compress       bool
}

// NewVectorDBManager opens (or creates) the collection. An empty dbPath keeps everything in memory.
func NewVectorDBManager(dbPath, collectionName string, compress bool) (*VectorDBManager, error) {
	var db *chromem.DB
	var err error
	if dbPath == "" {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(dbPath, compress)
		if err != nil {
			return nil, fmt.Errorf("failed to create database: %v", err)
		}
	}

	m := &VectorDBManager{
		db:             db,
		collectionName: collectionName,
		dbPath:         dbPath,
		compress:       compress,
	}
	if err := m.openCollection(); err != nil {
		return nil, err
	}
	return m, nil
}

// embeddings are always computed by the indexer, so no embedding func is registered
func (m *VectorDBManager) openCollection() error {
	c, err := m.db.GetOrCreateCollection(m.collectionName, nil, nil)
	if err != nil {
		return fmt.Errorf("failed to create/get collection: %v", err)
	}
	m.collection = c
	return nil
}

// open returns the collection, reopening it when a reset could not recreate it
func (m *VectorDBManager) open() (*chromem.Collection, error) {
	if m.collection == nil {
		if err := m.openCollection(); err != nil {
			return nil, fmt.Errorf("%w: %v", models.ErrIndexUnavailable, err)
		}
	}
	return m.collection, nil
}

func (m *VectorDBManager) Name() string       { return backendName }
func (m *VectorDBManager) Collection() string { return m.collectionName }

// Add writes the records with their chunk metadata
func (m *VectorDBManager) Add(ctx context.Context, records []models.Record) error {
	docs := make([]chromem.Document, len(records))
	for i, r := range records {
		docs[i] = chromem.Document{
			ID:        r.ID,
			Content:   r.Chunk.Text,
			Metadata:  r.Chunk.Metadata(),
			Embedding: r.Embedding,
		}
	}
	c, err := m.open()
	if err != nil {
		return err
	}
	if err := c.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("failed to add documents: %v", err)
	}
	return nil
}

// Query runs a similarity search. The corpus filter is a metadata where clause,
// evaluated before ranking.
func (m *VectorDBManager) Query(ctx context.Context, embedding []float32, n int, corpus models.Corpus) ([]models.Hit, error) {
	c, err := m.open()
	if err != nil {
		return nil, err
	}
	count := c.Count()
	if count == 0 || n <= 0 {
		return nil, nil
	}

	opts := chromem.QueryOptions{
		QueryEmbedding: embedding,
		NResults:       min(n, count),
	}
	if corpus != "" {
		opts.Where = map[string]string{models.MetaCorpus: string(corpus)}
	}

	results, err := c.QueryWithOptions(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query by similarity: %v", err)
	}

	hits := make([]models.Hit, len(results))
	for i, r := range results {
		hits[i] = models.Hit{
			ID:         r.ID,
			Chunk:      models.ChunkFromMetadata(r.Content, r.Metadata),
			Embedding:  r.Embedding,
			Similarity: r.Similarity,
		}
	}
	return hits, nil
}

func (m *VectorDBManager) Count(_ context.Context) (int, error) {
	c, err := m.open()
	if err != nil {
		return 0, err
	}
	return c.Count(), nil
}

// Reset deletes the collection directory and recreates an empty collection at the same path.
// The dropped collection is never served again; a failed recreation is retried on next use.
func (m *VectorDBManager) Reset(_ context.Context) error {
	if err := m.db.DeleteCollection(m.collectionName); err != nil {
		return fmt.Errorf("failed to drop collection: %v", err)
	}
	m.collection = nil
	return m.openCollection()
}

// chromem persists on every write
func (m *VectorDBManager) Close() error {
	return nil
}

// Export writes a snapshot of the collection to filePath, encrypted when a 32 byte key is given
func (m *VectorDBManager) Export(filePath, encryptionKey string) error {
	log.Debug().Str("collection", m.collectionName).Str("file", filePath).Bool("compress", m.compress).Msg("exporting collection")
	if err := m.db.ExportToFile(filePath, m.compress, encryptionKey, m.collectionName); err != nil {
		return fmt.Errorf("failed to export database: %v", err)
	}
	return nil
}

// Import replaces the collection with the one stored in a snapshot file
func (m *VectorDBManager) Import(filePath, encryptionKey string) error {
	if err := m.db.ImportFromFile(filePath, encryptionKey, m.collectionName); err != nil {
		return fmt.Errorf("failed to import database: %v", err)
	}
	m.collection = m.db.GetCollection(m.collectionName, nil)
	if m.collection == nil {
		return fmt.Errorf("snapshot %s has no collection %q", filePath, m.collectionName)
	}
	return nil
}
