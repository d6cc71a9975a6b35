package ai

import (
	"context"
	"log/slog"
	"strings"

	"github.com/myrjola/sheerluck-engine/internal/errors"
	"github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrUpstreamUnavailable means the text generation backend could not produce a completion. It is transient from the
// caller's point of view and is never retried by the engine itself.
var ErrUpstreamUnavailable = errors.NewSentinel("text generation backend unavailable")

const (
	MaxTokens    = 4096
	DefaultModel = "gpt-4o-mini"
)

// Request purposes used by the engine.
const (
	PurposeScenario = "scenario"
	PurposePersona  = "persona"
	PurposeNotes    = "notes"
)

// Request is a single chat completion request.
type Request struct {
	// Purpose names the caller, e.g. "scenario" or "persona". It is used for tracing and logging only.
	Purpose     string
	Messages    []openai.ChatCompletionMessage
	Temperature float32
	// JSON asks the backend to answer with a JSON object.
	JSON bool
}

// Completer produces the assistant reply for a chat completion request.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

type Config struct {
	APIKey  string
	BaseURL string
	Model   string
}

type Client struct {
	client *openai.Client
	model  string
	logger *slog.Logger
	tracer trace.Tracer
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	return &Client{
		client: openai.NewClientWithConfig(clientConfig),
		model:  model,
		logger: logger.With(slog.String("source", "ai.Client")),
		tracer: otel.Tracer("github.com/myrjola/sheerluck-engine/internal/ai"),
	}
}

// Complete runs a synchronous chat completion and returns the content of the first choice.
func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	ctx, span := c.tracer.Start(ctx, "ai.Complete", trace.WithAttributes(
		attribute.String("ai.purpose", req.Purpose),
		attribute.String("ai.model", c.model),
		attribute.Int("ai.messages", len(req.Messages)),
		attribute.Bool("ai.json", req.JSON),
	))
	defer span.End()

	request := openai.ChatCompletionRequest{ //nolint:exhaustruct // this is better for readability
		Model:       c.model,
		MaxTokens:   MaxTokens,
		Messages:    req.Messages,
		Temperature: req.Temperature,
	}
	if req.JSON {
		request.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	completion, err := c.client.CreateChatCompletion(ctx, request)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "create chat completion")
		return "", errors.Wrap(errors.Join(ErrUpstreamUnavailable, err), "create chat completion",
			slog.String("purpose", req.Purpose))
	}
	if len(completion.Choices) == 0 {
		span.SetStatus(codes.Error, "no choices")
		return "", errors.Wrap(ErrUpstreamUnavailable, "completion without choices",
			slog.String("purpose", req.Purpose))
	}

	span.SetAttributes(
		attribute.Int("ai.prompt_tokens", completion.Usage.PromptTokens),
		attribute.Int("ai.completion_tokens", completion.Usage.CompletionTokens),
	)
	c.logger.LogAttrs(ctx, slog.LevelDebug, "chat completion finished",
		slog.String("purpose", req.Purpose),
		slog.Int("prompt_tokens", completion.Usage.PromptTokens),
		slog.Int("completion_tokens", completion.Usage.CompletionTokens))

	return strings.TrimSpace(completion.Choices[0].Message.Content), nil
}

// System is a shorthand for a system message.
func System(content string) openai.ChatCompletionMessage {
	return openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: content}
}

// User is a shorthand for a user message.
func User(content string) openai.ChatCompletionMessage {
	return openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: content}
}

// Assistant is a shorthand for an assistant message.
func Assistant(content string) openai.ChatCompletionMessage {
	return openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content}
}
