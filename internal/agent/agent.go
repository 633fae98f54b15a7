package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"

	"hr-rag/internal/citation"
	"hr-rag/internal/llmservice"
	"hr-rag/internal/models"
	"hr-rag/internal/tools"
)

// DefaultMaxRounds bounds the tool-selection rounds of one exchange
const DefaultMaxRounds = 4

var thinkRe = regexp.MustCompile(models.ThinkTag)

// ToolRunner executes the corpus search tools the model may call
type ToolRunner interface {
	Definitions() []llms.Tool
	Call(ctx context.Context, name, arguments string) (tools.Evidence, error)
}

// ToolCall is one tool invocation requested by the model.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Result is the outcome of one exchange. Text carries the answer followed by the
// citations block, Answer is the same text without the block.
type Result struct {
	Text       string
	Answer     string
	Citations  []models.Citation
	ToolCalls  []ToolCall
	Rounds     int
	ForcedStop bool
}

// Agent runs the bounded tool-calling loop.
type Agent struct {
	llm         llms.Model
	tools       ToolRunner
	maxRounds   int
	temperature float64
}

func New(llm llms.Model, runner ToolRunner, maxRounds int, temperature float64) *Agent {
	if maxRounds <= 0 {
		maxRounds = DefaultMaxRounds
	}
	return &Agent{llm: llm, tools: runner, maxRounds: maxRounds, temperature: temperature}
}

// exchange is the state of one Run
type exchange struct {
	messages  []llms.MessageContent
	calls     []ToolCall
	citations []models.Citation
}

// Run answers question from tool evidence only. An answer is accepted only after
// at least one successful tool call. When the round bound is reached the answer
// is composed from whatever evidence was gathered.
func (a *Agent) Run(ctx context.Context, question string, history []models.Turn) (Result, error) {
	ex := &exchange{messages: buildMessages(question, history)}
	defs := a.tools.Definitions()

	for round := 1; round <= a.maxRounds; round++ {
		resp, err := llmservice.GenerateContent(ctx, a.llm, a.temperature, defs, ex.messages)
		if err != nil {
			return Result{}, err
		}
		choice := resp.Choices[0]

		requested := toolCalls(choice.ToolCalls)
		if len(requested) == 0 {
			if len(ex.calls) == 0 {
				log.Warn().Int("round", round).Msg("model answered without calling a tool")
				if strings.TrimSpace(choice.Content) != "" {
					ex.messages = append(ex.messages, llms.TextParts(llms.ChatMessageTypeAI, choice.Content))
				}
				ex.messages = append(ex.messages, llms.TextParts(llms.ChatMessageTypeHuman, models.ToolRequiredReminder))
				continue
			}
			return ex.result(choice.Content, round, false), nil
		}

		if err := a.execute(ctx, ex, requested); err != nil {
			return Result{}, err
		}
	}

	log.Info().Int("rounds", a.maxRounds).Int("tool_calls", len(ex.calls)).Msg("round bound reached, composing answer")
	return a.compose(ctx, ex, question)
}

// execute runs the requested calls in order and records their responses.
// Unknown tools and malformed arguments are answered with an error payload so
// the model can retry.
func (a *Agent) execute(ctx context.Context, ex *exchange, requested []ToolCall) error {
	parts := make([]llms.ContentPart, len(requested))
	for i, tc := range requested {
		parts[i] = llms.ToolCall{
			ID:           tc.ID,
			Type:         "function",
			FunctionCall: &llms.FunctionCall{Name: tc.Name, Arguments: tc.Arguments},
		}
	}
	ex.messages = append(ex.messages, llms.MessageContent{Role: llms.ChatMessageTypeAI, Parts: parts})

	for _, tc := range requested {
		content, err := a.call(ctx, ex, tc)
		if err != nil {
			return err
		}
		ex.messages = append(ex.messages, llms.MessageContent{
			Role: llms.ChatMessageTypeTool,
			Parts: []llms.ContentPart{llms.ToolCallResponse{
				ToolCallID: tc.ID,
				Name:       tc.Name,
				Content:    content,
			}},
		})
	}
	return nil
}

func (a *Agent) call(ctx context.Context, ex *exchange, tc ToolCall) (string, error) {
	ev, err := a.tools.Call(ctx, tc.Name, tc.Arguments)
	if err != nil {
		if errors.Is(err, models.ErrUnknownTool) || errors.Is(err, models.ErrInvalidToolArguments) {
			log.Warn().Err(err).Str("tool", tc.Name).Str("arguments", tc.Arguments).Msg("rejected tool call")
			return errorPayload(err), nil
		}
		return "", fmt.Errorf("calling %s: %w", tc.Name, err)
	}
	log.Debug().Str("tool", tc.Name).Int("citations", len(ev.Citations)).Msg("tool call")
	ex.calls = append(ex.calls, tc)
	ex.citations = append(ex.citations, ev.Citations...)
	return ev.JSON(), nil
}

// compose forces the final answer. With no evidence yet, both corpora are
// searched with the question first.
func (a *Agent) compose(ctx context.Context, ex *exchange, question string) (Result, error) {
	if len(ex.calls) == 0 {
		args, err := json.Marshal(tools.Args{Query: question})
		if err != nil {
			return Result{}, err
		}
		forced := []ToolCall{
			{ID: "forced-" + models.ToolHRSearch, Name: models.ToolHRSearch, Arguments: string(args)},
			{ID: "forced-" + models.ToolJisrSearch, Name: models.ToolJisrSearch, Arguments: string(args)},
		}
		if err := a.execute(ctx, ex, forced); err != nil {
			return Result{}, err
		}
	}

	ex.messages = append(ex.messages, llms.TextParts(llms.ChatMessageTypeHuman, models.ForceAnswerInstruction))
	resp, err := llmservice.GenerateContent(ctx, a.llm, a.temperature, nil, ex.messages)
	if err != nil {
		return Result{}, err
	}
	return ex.result(resp.Choices[0].Content, a.maxRounds, true), nil
}

// result keeps only citations that came back from tools and appends them as
// the canonical block.
func (ex *exchange) result(text string, rounds int, forced bool) Result {
	answer, _ := citation.Extract(thinkRe.ReplaceAllString(text, ""))
	if answer == "" {
		answer = models.NoSourcesAnswer
	}
	cites := citation.Dedup(ex.citations)
	return Result{
		Text:       answer + "\n\n" + citation.Format(cites),
		Answer:     answer,
		Citations:  cites,
		ToolCalls:  ex.calls,
		Rounds:     rounds,
		ForcedStop: forced,
	}
}

func buildMessages(question string, history []models.Turn) []llms.MessageContent {
	messages := make([]llms.MessageContent, 0, len(history)+2)
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, models.AgentSystemPrompt))
	for _, turn := range history {
		role := llms.ChatMessageTypeHuman
		if turn.Role == models.RoleAssistant {
			role = llms.ChatMessageTypeAI
		}
		messages = append(messages, llms.TextParts(role, turn.Content))
	}
	return append(messages, llms.TextParts(llms.ChatMessageTypeHuman, question))
}

func toolCalls(calls []llms.ToolCall) []ToolCall {
	out := make([]ToolCall, 0, len(calls))
	for i, c := range calls {
		if c.FunctionCall == nil {
			continue
		}
		id := c.ID
		if id == "" {
			id = fmt.Sprintf("call_%d", i)
		}
		out = append(out, ToolCall{ID: id, Name: c.FunctionCall.Name, Arguments: c.FunctionCall.Arguments})
	}
	return out
}

func errorPayload(err error) string {
	data, _ := json.Marshal(map[string]string{"error": err.Error()})
	return string(data)
}
