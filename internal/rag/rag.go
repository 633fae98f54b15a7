package rag

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"hr-rag/internal/agent"
	"hr-rag/internal/citation"
	"hr-rag/internal/config"
	"hr-rag/internal/metrics"
	"hr-rag/internal/models"
	"hr-rag/internal/session"
	"hr-rag/internal/tools"
)

const (
	fallbackBlocks    = 3
	fallbackTextChars = 400
)

// Index is the indexer surface used by chat and ingestion
type Index interface {
	Ready() bool
	Add(ctx context.Context, chunks []models.Chunk) (int, error)
	Reset(ctx context.Context) error
	Stats(ctx context.Context) (models.IndexStats, error)
}

// Searcher is the diversity-aware retriever
type Searcher interface {
	Search(ctx context.Context, query string, k int, corpus models.Corpus) ([]models.Hit, error)
}

// Answerer is the tool-calling orchestrator
type Answerer interface {
	Run(ctx context.Context, question string, history []models.Turn) (agent.Result, error)
}

// Loader discovers the documents of one corpus root
type Loader func(ctx context.Context, root string, corpus models.Corpus) ([]models.Document, error)

type RAG struct {
	cfg       *config.Config
	index     Index
	retriever Searcher
	agent     Answerer
	sessions  session.Store
	load      Loader
}

// NewRAG wires the chat and ingestion entry points. A nil answerer puts chat in
// the degraded retrieval-only mode.
func NewRAG(cfg *config.Config, index Index, retriever Searcher, answerer Answerer, sessions session.Store, load Loader) *RAG {
	return &RAG{
		cfg:       cfg,
		index:     index,
		retriever: retriever,
		agent:     answerer,
		sessions:  sessions,
		load:      load,
	}
}

// AgentAvailable reports whether chat runs the tool-calling orchestrator
func (r *RAG) AgentAvailable() bool {
	return r.agent != nil
}

// Chat answers one message of a session.
func (r *RAG) Chat(ctx context.Context, message, sessionID string, topK int) (models.Answer, error) {
	start := time.Now()
	msg := strings.TrimSpace(message)

	if msg == "" {
		metrics.CaptureChatMetrics(metrics.PathEmpty, time.Since(start))
		return answer(models.EmptyMessageAnswer, nil), nil
	}
	if IsSmallTalk(msg) {
		metrics.CaptureChatMetrics(metrics.PathSmallTalk, time.Since(start))
		return answer(models.GreetingAnswer, nil), nil
	}
	if sessionID == "" {
		sessionID = session.DefaultID
	}
	if topK <= 0 {
		topK = r.cfg.RAG.TopK
	}
	if !r.index.Ready() {
		log.Warn().Str("session", sessionID).Msg("vector index unavailable")
		metrics.CaptureChatMetrics(metrics.PathUnavailable, time.Since(start))
		return answer(models.NoSourcesAnswer, nil), nil
	}

	log.Info().Str("session", sessionID).Str("message", truncateRunes(msg, 120)).Msg("user message")

	if r.agent == nil {
		res, err := r.fallback(ctx, msg, topK)
		metrics.CaptureChatMetrics(metrics.PathFallback, time.Since(start))
		return res, err
	}

	history, err := r.sessions.Get(ctx, sessionID)
	if err != nil {
		return models.Answer{}, err
	}
	result, err := r.agent.Run(ctx, msg, history)
	if err != nil {
		return models.Answer{}, err
	}

	err = r.sessions.Append(ctx, sessionID,
		models.Turn{Role: models.RoleUser, Content: msg},
		models.Turn{Role: models.RoleAssistant, Content: result.Answer},
	)
	if err != nil {
		log.Error().Err(err).Str("session", sessionID).Msg("saving history")
	}

	log.Debug().
		Str("session", sessionID).
		Int("tool_calls", len(result.ToolCalls)).
		Int("rounds", result.Rounds).
		Bool("forced", result.ForcedStop).
		Msg("agent answered")
	metrics.CaptureChatMetrics(metrics.PathAgent, time.Since(start))
	return answer(result.Answer, result.Citations), nil
}

// fallback summarises the top unfiltered hits without a language model.
func (r *RAG) fallback(ctx context.Context, msg string, topK int) (models.Answer, error) {
	log.Info().Msg("Agent unavailable; using simple retriever fallback")

	hits, err := r.retriever.Search(ctx, msg, topK, "")
	if err != nil {
		if errors.Is(err, models.ErrIndexUnavailable) {
			return answer(models.NoSourcesAnswer, nil), nil
		}
		return models.Answer{}, err
	}
	if len(hits) == 0 {
		return answer(models.NoSourcesAnswer, nil), nil
	}

	blocks := make([]string, 0, fallbackBlocks)
	cites := make([]models.Citation, len(hits))
	for i, h := range hits {
		c := h.Chunk
		if c.DocTitle == "" {
			c.DocTitle = models.UnknownDocTitle
		}
		cites[i] = c.Citation()
		if i < fallbackBlocks {
			blocks = append(blocks, "- "+tools.Header(c)+"\n"+truncateRunes(c.Text, fallbackTextChars))
		}
	}

	text := models.FallbackAnswerPrefix + "\n\n" + strings.Join(blocks, models.ContextSeparator)
	return answer(text, citation.Dedup(cites)), nil
}

// Reset clears the vector index
func (r *RAG) Reset(ctx context.Context) error {
	return r.index.Reset(ctx)
}

func (r *RAG) Stats(ctx context.Context) (models.IndexStats, error) {
	return r.index.Stats(ctx)
}

func answer(text string, cites []models.Citation) models.Answer {
	if cites == nil {
		cites = []models.Citation{}
	}
	return models.Answer{Answer: text, Citations: cites}
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
