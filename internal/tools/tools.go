package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"

	"hr-rag/internal/citation"
	"hr-rag/internal/models"
)

// Searcher is the retrieval the tools delegate to
type Searcher interface {
	Search(ctx context.Context, query string, k int, corpus models.Corpus) ([]models.Hit, error)
}

// Evidence is the payload one tool call hands back to the model.
type Evidence struct {
	Context   string            `json:"context"`
	Citations []models.Citation `json:"citations"`
}

// JSON serialises the payload the way the model receives it
func (e Evidence) JSON() string {
	if e.Citations == nil {
		e.Citations = []models.Citation{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(e); err != nil {
		return `{"context":"","citations":[]}`
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

// Args are the arguments of both search tools. TopK stays raw so that strings
// and floats from the model can be coerced instead of rejected.
type Args struct {
	Query string          `json:"query"`
	TopK  json.RawMessage `json:"top_k,omitempty"`
}

// Tool is one corpus-bound search operation
type Tool struct {
	Name        string
	Description string
	Corpus      models.Corpus
}

var parameters = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"query": map[string]any{
			"type":        "string",
			"description": "نص السؤال.",
		},
		"top_k": map[string]any{
			"type":        "integer",
			"description": "عدد النتائج المراد استرجاعها (اختياري).",
		},
	},
	"required": []string{"query"},
}

// Set holds the corpus search tools sharing one retriever.
type Set struct {
	searcher        Searcher
	defaultTopK     int
	maxContextChars int
	tools           []Tool
}

func NewSet(searcher Searcher, defaultTopK, maxContextChars int) *Set {
	return &Set{
		searcher:        searcher,
		defaultTopK:     defaultTopK,
		maxContextChars: maxContextChars,
		tools: []Tool{
			{Name: models.ToolHRSearch, Description: models.HRSearchDescription, Corpus: models.CorpusHR},
			{Name: models.ToolJisrSearch, Description: models.JisrSearchDescription, Corpus: models.CorpusJisr},
		},
	}
}

func (s *Set) Tools() []Tool {
	return s.tools
}

func (s *Set) Lookup(name string) (Tool, bool) {
	for _, t := range s.tools {
		if t.Name == name {
			return t, true
		}
	}
	return Tool{}, false
}

// Definitions describes the tools for a tool-calling model
func (s *Set) Definitions() []llms.Tool {
	defs := make([]llms.Tool, len(s.tools))
	for i, t := range s.tools {
		defs[i] = llms.Tool{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  parameters,
			},
		}
	}
	return defs
}

// Call runs the named tool with JSON-encoded arguments.
func (s *Set) Call(ctx context.Context, name, arguments string) (Evidence, error) {
	t, ok := s.Lookup(name)
	if !ok {
		return Evidence{}, fmt.Errorf("%w: %s", models.ErrUnknownTool, name)
	}
	args, err := ParseArgs(arguments)
	if err != nil {
		return Evidence{}, err
	}
	return s.Search(ctx, t.Corpus, args.Query, CoerceTopK(args.TopK, s.defaultTopK))
}

// ParseArgs decodes tool arguments, requiring a non-empty query
func ParseArgs(arguments string) (Args, error) {
	var args Args
	if err := json.Unmarshal([]byte(arguments), &args); err != nil {
		return Args{}, fmt.Errorf("%w: %v", models.ErrInvalidToolArguments, err)
	}
	if strings.TrimSpace(args.Query) == "" {
		return Args{}, fmt.Errorf("%w: query is required", models.ErrInvalidToolArguments)
	}
	return args, nil
}

// Search retrieves from one corpus and packs the hits. An unavailable index or
// an empty query is reported as empty evidence.
func (s *Set) Search(ctx context.Context, corpus models.Corpus, query string, topK int) (Evidence, error) {
	if topK <= 0 {
		topK = s.defaultTopK
	}
	hits, err := s.searcher.Search(ctx, query, topK, corpus)
	if err != nil {
		if errors.Is(err, models.ErrIndexUnavailable) || errors.Is(err, models.ErrEmptyQuery) {
			log.Warn().Err(err).Str("corpus", string(corpus)).Msg("search returned no evidence")
			return Evidence{Citations: []models.Citation{}}, nil
		}
		return Evidence{}, fmt.Errorf("searching %s: %w", corpus, err)
	}
	log.Debug().Str("corpus", string(corpus)).Int("k", topK).Int("hits", len(hits)).Msg("corpus search")
	return Pack(hits, s.maxContextChars), nil
}

// Pack joins hits into one context, head-truncated to maxChars runes, with
// deduplicated citations.
func Pack(hits []models.Hit, maxChars int) Evidence {
	if len(hits) == 0 {
		return Evidence{Citations: []models.Citation{}}
	}

	blocks := make([]string, len(hits))
	cites := make([]models.Citation, len(hits))
	for i, h := range hits {
		c := h.Chunk
		if c.DocTitle == "" {
			c.DocTitle = models.UnknownDocTitle
		}
		blocks[i] = Header(c) + "\n" + c.Text
		cites[i] = c.Citation()
	}

	return Evidence{
		Context:   truncate(strings.Join(blocks, models.ContextSeparator), maxChars),
		Citations: citation.Dedup(cites),
	}
}

// Header labels one context block
func Header(c models.Chunk) string {
	return fmt.Sprintf("[%s :: #%d]", c.DocTitle, c.ChunkIndex)
}

func truncate(s string, maxChars int) string {
	if maxChars <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= maxChars {
		return s
	}
	return string(r[:maxChars])
}

// CoerceTopK accepts a JSON number or numeric string. Absent, non-numeric and
// non-positive values fall back to def; positive fractions are truncated but never below 1.
func CoerceTopK(raw json.RawMessage, def int) int {
	v := strings.TrimSpace(string(raw))
	if v == "" || v == "null" {
		return def
	}
	if unquoted, err := strconv.Unquote(v); err == nil {
		v = strings.TrimSpace(unquoted)
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return def
	}
	if n <= 0 {
		return def
	}
	return max(1, int(n))
}
