package llmservice

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"hr-rag/internal/config"
	"hr-rag/internal/metrics"
	"hr-rag/internal/models"
)

// NewModel builds the tool-calling chat model. Missing credentials make the agent unavailable.
func NewModel(llmConfig *config.LLMConfig) (llms.Model, error) {
	log.Debug().Str("provider", llmConfig.Provider).Str("model", llmConfig.Model).Msg("Creating chat model")

	switch llmConfig.Provider {
	case "openai":
		key := strings.TrimSpace(strings.TrimPrefix(llmConfig.Key, "Bearer "))
		if key == "" {
			return nil, fmt.Errorf("%w: llm api key is missing", models.ErrAgentUnavailable)
		}
		opts := []openai.Option{
			openai.WithToken(key),
			openai.WithModel(llmConfig.Model),
		}
		if llmConfig.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(llmConfig.BaseURL))
		}
		llm, err := openai.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", models.ErrAgentUnavailable, err)
		}
		return llm, nil
	case "ollama":
		opts := []ollama.Option{ollama.WithModel(llmConfig.Model)}
		if llmConfig.BaseURL != "" {
			opts = append(opts, ollama.WithServerURL(llmConfig.BaseURL))
		}
		llm, err := ollama.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", models.ErrAgentUnavailable, err)
		}
		return llm, nil
	default:
		return nil, fmt.Errorf("%w: unsupported llm provider %q", models.ErrAgentUnavailable, llmConfig.Provider)
	}
}

// GenerateContent calls the model, passing tools only when there are any.
func GenerateContent(ctx context.Context, llm llms.Model, temperature float64, tools []llms.Tool, messages []llms.MessageContent) (*llms.ContentResponse, error) {
	opts := []llms.CallOption{llms.WithTemperature(temperature)}
	if len(tools) > 0 {
		opts = append(opts, llms.WithTools(tools))
	}

	start := time.Now()
	resp, err := llm.GenerateContent(ctx, messages, opts...)
	metrics.CaptureExecutionMetrics(metrics.LLM, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("generating content: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("generating content: empty response")
	}
	return resp, nil
}
