package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"hr-rag/internal/config"
	"hr-rag/internal/metrics"
	"hr-rag/internal/models"
	"hr-rag/internal/parser"
)

// SourceAll ingests every configured corpus
const SourceAll = "all"

// Ingest loads, normalizes, chunks and indexes the documents of source, which
// is "all" or the key of one configured corpus.
func (r *RAG) Ingest(ctx context.Context, source string) (models.IngestStats, error) {
	if source == "" {
		source = SourceAll
	}
	corpora, err := r.corporaFor(source)
	if err != nil {
		return models.IngestStats{}, err
	}

	stats := models.IngestStats{
		Source: source,
		ByCorpus: map[models.Corpus]int{
			models.CorpusHR:      0,
			models.CorpusJisr:    0,
			models.CorpusUnknown: 0,
		},
	}

	var chunks []models.Chunk
	for _, cc := range corpora {
		corpus := models.ParseCorpus(cc.Name)
		docs, err := r.load(ctx, cc.Root, corpus)
		if err != nil {
			return models.IngestStats{}, fmt.Errorf("loading %s: %w", cc.Root, err)
		}
		log.Info().Str("corpus", cc.Name).Str("root", cc.Root).Int("files", len(docs)).Msg("Loaded documents")
		stats.Files += len(docs)

		for _, doc := range docs {
			pieces := parser.ChunkText(parser.Normalize(doc.Text), r.cfg.RAG.ChunkTokens, r.cfg.RAG.ChunkOverlap)
			for i, piece := range pieces {
				piece = strings.TrimSpace(piece)
				if piece == "" {
					continue
				}
				chunks = append(chunks, models.Chunk{
					Text:       piece,
					DocTitle:   doc.DocTitle,
					SourcePath: doc.SourcePath,
					Corpus:     doc.Corpus,
					ChunkIndex: i,
				})
				stats.ByCorpus[doc.Corpus]++
			}
		}
	}

	if len(chunks) == 0 {
		return stats, nil
	}

	n, err := r.index.Add(ctx, chunks)
	if err != nil {
		return models.IngestStats{}, fmt.Errorf("indexing %d chunks: %w", len(chunks), err)
	}
	stats.Ingested = n
	for corpus, count := range stats.ByCorpus {
		metrics.AddIngestedChunks(string(corpus), count)
	}

	log.Info().Str("source", source).Int("files", stats.Files).Int("ingested", n).Msg("Ingestion finished")
	return stats, nil
}

func (r *RAG) corporaFor(source string) ([]config.CorpusConfig, error) {
	if source == SourceAll {
		return r.cfg.Corpora, nil
	}
	cc, ok := r.cfg.CorpusFor(source)
	if !ok {
		return nil, fmt.Errorf("%w: %q", models.ErrUnknownSource, source)
	}
	return []config.CorpusConfig{cc}, nil
}
