// Package agent drives the shared browser with an LLM until a task is done.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"cadmcp/internal/browser"
	"cadmcp/pkg/apperr"
	"cadmcp/pkg/logg"
	"cadmcp/pkg/tracing"
)

const (
	agentName   = "BrowserAgent"
	agentTracer = "agent.react"

	maxObservation  = 20000
	defaultMaxSteps = 50

	systemPrompt = `You are an autonomous browser agent. You control a real web browser through the provided tools.
Think step by step. Inspect the page with list_elements before clicking, prefer precise CSS selectors,
and verify the result of each action. When the task is complete, answer with a detailed final report
and call no more tools.`
)

var ErrMaxSteps = errors.New("max iterations exceeded")

// ChatCompleter is the part of *openai.Client the agent uses.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// StepFunc is told about every executed browser action.
type StepFunc func(ctx context.Context)

type Config struct {
	Model       string
	MaxSteps    int
	Temperature float32
}

type Agent struct {
	llm     ChatCompleter
	session *browser.Session
	cfg     Config

	defs  []openai.Tool
	tools map[string]tool

	logger *zap.Logger
	tracer trace.Tracer
}

// NewOpenAIClient builds a client for any OpenAI-compatible endpoint.
func NewOpenAIClient(apiKey, baseURL string) *openai.Client {
	conf := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		conf.BaseURL = baseURL
	}
	return openai.NewClientWithConfig(conf)
}

func New(llm ChatCompleter, session *browser.Session, cfg Config, logger *zap.Logger) *Agent {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxSteps <= 0 {
		cfg.MaxSteps = defaultMaxSteps
	}

	a := &Agent{
		llm:     llm,
		session: session,
		cfg:     cfg,
		tools:   make(map[string]tool),
		logger:  logger.With(zap.String(logg.Layer, agentName)),
		tracer:  otel.Tracer(agentTracer),
	}
	for _, t := range browserTools() {
		a.defs = append(a.defs, t.openAI())
		a.tools[t.name] = t
	}
	return a
}

// Run works on task until the model replies without tool calls, and
// returns that reply.
func (a *Agent) Run(ctx context.Context, task string, onStep StepFunc) (result string, err error) {
	const op = "Run"
	logger := a.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, a.tracer, logger, op, attribute.String("model", a.cfg.Model))
	defer func() {
		step.End(err)
	}()

	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
		{Role: openai.ChatMessageRoleUser, Content: task},
	}

	for iteration := 1; iteration <= a.cfg.MaxSteps; iteration++ {
		resp, err := a.llm.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:       a.cfg.Model,
			Messages:    messages,
			Tools:       a.defs,
			ToolChoice:  "auto",
			Temperature: a.cfg.Temperature,
		})
		if err != nil {
			return "", apperr.Wrap(op, apperr.CodeAIError, err, map[string]any{
				apperr.MetaReason: "completion_failed",
				apperr.MetaStage:  apperr.StageAI,
			})
		}
		if len(resp.Choices) == 0 {
			return "", apperr.WrapErrorWithReason(op, apperr.CodeAIError, "empty_completion")
		}

		msg := resp.Choices[0].Message
		messages = append(messages, msg)

		if len(msg.ToolCalls) == 0 {
			logger.Info("Task finished", zap.Int("iterations", iteration))
			return msg.Content, nil
		}

		for _, tc := range msg.ToolCalls {
			obs := a.execute(ctx, tc)
			if onStep != nil {
				onStep(ctx)
			}
			messages = append(messages, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				ToolCallID: tc.ID,
				Name:       tc.Function.Name,
				Content:    truncate(obs, maxObservation),
			})
		}
	}

	return "", apperr.Wrap(op, apperr.CodeMaxIterations,
		fmt.Errorf("%w (%d)", ErrMaxSteps, a.cfg.MaxSteps),
		map[string]any{apperr.MetaStage: apperr.StageAI})
}

// execute runs one tool call and renders its outcome as an observation.
// Failures are reported to the model, not returned.
func (a *Agent) execute(ctx context.Context, tc openai.ToolCall) string {
	name := tc.Function.Name
	logger := a.logger.With(zap.String(logg.Tool, name))

	t, ok := a.tools[name]
	if !ok {
		logger.Warn("Unknown tool requested")
		return fmt.Sprintf("Error: unknown tool '%s'", name)
	}

	args := json.RawMessage(tc.Function.Arguments)
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}

	var obs string
	err := a.session.Do(ctx, true, func(ctx context.Context, c browser.Client) error {
		var err error
		obs, err = t.call(ctx, c, args)
		return err
	})
	if err != nil {
		logger.Debug("Tool failed", zap.Error(err))
		return "Error: " + err.Error()
	}
	return obs
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "\n... (truncated)"
}
