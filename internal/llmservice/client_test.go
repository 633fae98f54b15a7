package llmservice

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"hr-rag/internal/config"
	"hr-rag/internal/models"
)

type recordingModel struct {
	resp *llms.ContentResponse
	err  error
	opts llms.CallOptions
}

func (m *recordingModel) GenerateContent(_ context.Context, _ []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	m.opts = llms.CallOptions{}
	for _, o := range options {
		o(&m.opts)
	}
	return m.resp, m.err
}

func (m *recordingModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

func TestNewModel(t *testing.T) {
	tests := []struct {
		name        string
		cfg         config.LLMConfig
		unavailable bool
	}{
		{"openai", config.LLMConfig{Provider: "openai", Key: "sk-test", Model: "gpt-4o-mini"}, false},
		{"openai bearer prefix", config.LLMConfig{Provider: "openai", Key: "Bearer sk-test", BaseURL: "https://openrouter.ai/api/v1"}, false},
		{"openai missing key", config.LLMConfig{Provider: "openai"}, true},
		{"openai bare bearer", config.LLMConfig{Provider: "openai", Key: "Bearer "}, true},
		{"ollama", config.LLMConfig{Provider: "ollama", Model: "qwen2.5", BaseURL: "http://localhost:11434"}, false},
		{"unknown provider", config.LLMConfig{Provider: "gemini-chat"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			llm, err := NewModel(&tt.cfg)
			if tt.unavailable {
				assert.ErrorIs(t, err, models.ErrAgentUnavailable)
				assert.Nil(t, llm)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, llm)
		})
	}
}

func TestGenerateContent_ToolsOnlyWhenPresent(t *testing.T) {
	m := &recordingModel{resp: &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: "ok"}}}}

	_, err := GenerateContent(context.Background(), m, 0.2, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, m.opts.Tools)
	assert.InDelta(t, 0.2, m.opts.Temperature, 1e-9)

	defs := []llms.Tool{{Type: "function", Function: &llms.FunctionDefinition{Name: models.ToolHRSearch}}}
	resp, err := GenerateContent(context.Background(), m, 0.2, defs, nil)
	require.NoError(t, err)
	assert.Len(t, m.opts.Tools, 1)
	assert.Equal(t, "ok", resp.Choices[0].Content)
}

func TestGenerateContent_Errors(t *testing.T) {
	boom := errors.New("rate limited")
	_, err := GenerateContent(context.Background(), &recordingModel{err: boom}, 0, nil, nil)
	assert.ErrorIs(t, err, boom)

	_, err = GenerateContent(context.Background(), &recordingModel{resp: &llms.ContentResponse{}}, 0, nil, nil)
	assert.ErrorContains(t, err, "empty response")
}
