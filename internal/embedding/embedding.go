package embedding

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"hr-rag/internal/config"
	"hr-rag/internal/metrics"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

const embedBatchSize = 64

// NewEmbedder builds the embedder for the configured provider. E5 models get their
// role prefixes and unit normalisation, and every call is rate limited and timed.
func NewEmbedder(ctx context.Context, cfg *config.EmbedConfig) (embeddings.Embedder, error) {
	log.Debug().Interface("config", map[string]string{
		"provider":        cfg.Provider,
		"base_url":        cfg.BaseURL,
		"embedding_model": cfg.Model,
	}).Msg("Loaded embedding config")

	var (
		base embeddings.Embedder
		err  error
	)
	switch cfg.Provider {
	case "openai":
		base, err = newOpenAIEmbedder(cfg)
	case "ollama":
		base, err = newOllamaEmbedder(cfg)
	case "genai":
		base, err = NewGenAIEmbedder(ctx, cfg.Key, cfg.Model, cfg.Dimensions)
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("creating %s embedder: %w", cfg.Provider, err)
	}

	if IsE5(cfg) {
		base = NewE5(base)
	}
	if cfg.RequestsPerSecond > 0 {
		base = NewRateLimited(base, cfg.RequestsPerSecond)
	}
	return &timed{next: base}, nil
}

// IsE5 reports whether the model needs "query: " / "passage: " prefixes
func IsE5(cfg *config.EmbedConfig) bool {
	return cfg.E5 || strings.Contains(strings.ToLower(cfg.Model), "e5")
}

func newOpenAIEmbedder(cfg *config.EmbedConfig) (embeddings.Embedder, error) {
	opts := []openai.Option{
		openai.WithToken(strings.TrimPrefix(cfg.Key, "Bearer ")),
		openai.WithEmbeddingModel(cfg.Model),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, err
	}
	return embeddings.NewEmbedder(llm, embeddings.WithBatchSize(embedBatchSize))
}

func newOllamaEmbedder(cfg *config.EmbedConfig) (embeddings.Embedder, error) {
	opts := []ollama.Option{ollama.WithModel(cfg.Model)}
	if cfg.BaseURL != "" {
		opts = append(opts, ollama.WithServerURL(cfg.BaseURL))
	}
	llm, err := ollama.New(opts...)
	if err != nil {
		return nil, err
	}
	return embeddings.NewEmbedder(llm, embeddings.WithBatchSize(embedBatchSize))
}

// timed records embedding latency
type timed struct {
	next embeddings.Embedder
}

func (t *timed) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics(metrics.Embed, time.Since(start)) }()
	return t.next.EmbedDocuments(ctx, texts)
}

func (t *timed) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics(metrics.Embed, time.Since(start)) }()
	return t.next.EmbedQuery(ctx, text)
}
