package qdrantdb

import (
	"context"
	"fmt"

	"github.com/qdrant/go-client/qdrant"
	"github.com/rs/zerolog/log"

	"hr-rag/internal/models"
)

const backendName = "qdrant"

// Store keeps the collection in Qdrant. The vector size is fixed on first write,
// so the collection is created lazily.
type Store struct {
	client     *qdrant.Client
	collection string
}

func NewStore(host string, port int, collection string) (*Store, error) {
	client, err := qdrant.NewClient(&qdrant.Config{Host: host, Port: port})
	if err != nil {
		return nil, fmt.Errorf("connecting to qdrant: %w", err)
	}
	return &Store{client: client, collection: collection}, nil
}

func (s *Store) Name() string       { return backendName }
func (s *Store) Collection() string { return s.collection }

func (s *Store) ensureCollection(ctx context.Context, size int) error {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	log.Info().Str("collection", s.collection).Int("size", size).Msg("creating qdrant collection")
	return s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(size),
			Distance: qdrant.Distance_Cosine,
		}),
	})
}

func (s *Store) Add(ctx context.Context, records []models.Record) error {
	if len(records) == 0 {
		return nil
	}
	if err := s.ensureCollection(ctx, len(records[0].Embedding)); err != nil {
		return err
	}

	points := make([]*qdrant.PointStruct, len(records))
	for i, r := range records {
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewID(r.ID),
			Vectors: qdrant.NewVectors(r.Embedding...),
			Payload: qdrant.NewValueMap(payload(r.Chunk)),
		}
	}
	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Points:         points,
		Wait:           qdrant.PtrOf(true),
	})
	return err
}

func payload(c models.Chunk) map[string]any {
	return map[string]any{
		"text":              c.Text,
		models.MetaDocTitle: c.DocTitle,
		models.MetaChunk:    c.ChunkIndex,
		models.MetaCorpus:   string(c.Corpus),
		models.MetaSource:   c.SourcePath,
	}
}

// searchRequest carries the corpus condition as a payload filter, applied by qdrant during the search
func (s *Store) searchRequest(embedding []float32, n int, corpus models.Corpus) *qdrant.QueryPoints {
	req := &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(embedding...),
		Limit:          qdrant.PtrOf(uint64(n)),
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(true),
	}
	if corpus != "" {
		req.Filter = &qdrant.Filter{
			Must: []*qdrant.Condition{qdrant.NewMatch(models.MetaCorpus, string(corpus))},
		}
	}
	return req
}

func (s *Store) Query(ctx context.Context, embedding []float32, n int, corpus models.Corpus) ([]models.Hit, error) {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}

	points, err := s.client.Query(ctx, s.searchRequest(embedding, n, corpus))
	if err != nil {
		return nil, err
	}

	hits := make([]models.Hit, len(points))
	for i, p := range points {
		hits[i] = models.Hit{
			ID:         p.GetId().GetUuid(),
			Chunk:      chunkFromPayload(p.GetPayload()),
			Embedding:  p.GetVectors().GetVector().GetData(),
			Similarity: p.GetScore(),
		}
	}
	return hits, nil
}

func chunkFromPayload(p map[string]*qdrant.Value) models.Chunk {
	return models.Chunk{
		Text:       p["text"].GetStringValue(),
		DocTitle:   p[models.MetaDocTitle].GetStringValue(),
		SourcePath: p[models.MetaSource].GetStringValue(),
		Corpus:     models.ParseCorpus(p[models.MetaCorpus].GetStringValue()),
		ChunkIndex: int(p[models.MetaChunk].GetIntegerValue()),
	}
}

func (s *Store) Count(ctx context.Context) (int, error) {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil || !exists {
		return 0, err
	}
	n, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: s.collection,
		Exact:          qdrant.PtrOf(true),
	})
	return int(n), err
}

// Reset deletes the collection; the next Add recreates it
func (s *Store) Reset(ctx context.Context) error {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}
	return s.client.DeleteCollection(ctx, s.collection)
}

func (s *Store) Close() error {
	return s.client.Close()
}
