package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/teemow/slotbot/internal/instrumentation"
	"github.com/teemow/slotbot/internal/logging"
)

const (
	// DefaultBaseURL is Gemini's OpenAI-compatible endpoint.
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"

	// DefaultModel is the model used when none is configured.
	DefaultModel = "gemini-2.5-flash"

	// DefaultTemperature is the sampling temperature used when none is configured.
	DefaultTemperature = 0.7
)

// ErrEmptyResponse is returned when the backend answers without any choices.
var ErrEmptyResponse = errors.New("empty response from LLM")

// Request is a single-turn completion request.
type Request struct {
	// System is an optional system instruction.
	System string

	// Prompt is the user turn.
	Prompt string

	// JSON asks the backend for a JSON object response.
	JSON bool

	// Schema, when set, constrains the response to the given JSON schema.
	Schema     *jsonschema.Definition
	SchemaName string

	// Temperature overrides the client temperature when non-nil.
	Temperature *float32
}

// Completer sends a prompt to a language model and returns its text reply.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Config holds the connection settings for the chat completions backend.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	Timeout     time.Duration // zero leaves the deadline to the caller's context
}

// Client is a Completer backed by go-openai.
type Client struct {
	client      *openai.Client
	model       string
	temperature float32
	timeout     time.Duration
	metrics     *instrumentation.Metrics
	logger      *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithMetrics records LLM requests on m.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithLogger sets the logger for request diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a new Client. Empty BaseURL and Model fall back to the
// Gemini defaults.
func NewClient(cfg Config, opts ...Option) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = strings.TrimSuffix(baseURL, "/")

	c := &Client{
		client:      openai.NewClientWithConfig(clientConfig),
		model:       model,
		temperature: cfg.Temperature,
		timeout:     cfg.Timeout,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.model
}

// Complete sends req to the backend and returns the content of the first choice.
func (c *Client) Complete(ctx context.Context, req Request) (_ string, err error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	ctx, span := instrumentation.StartLLMSpan(ctx, c.model)
	defer span.End()

	start := time.Now()
	defer func() {
		status := instrumentation.StatusSuccess
		if err != nil {
			status = instrumentation.StatusError
			instrumentation.SetSpanError(span, err)
		}
		c.metrics.RecordLLMRequest(ctx, c.model, status, time.Since(start))
	}()

	resp, err := c.client.CreateChatCompletion(ctx, c.buildRequest(req))
	if err != nil {
		return "", fmt.Errorf("LLM request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}

	content := resp.Choices[0].Message.Content
	c.logger.Debug("LLM completion finished",
		slog.String("model", c.model),
		slog.Int64("latency_ms", time.Since(start).Milliseconds()),
		slog.Int("tokens", resp.Usage.TotalTokens),
		logging.Message(content))

	return content, nil
}

func (c *Client) buildRequest(req Request) openai.ChatCompletionRequest {
	temperature := c.temperature
	if req.Temperature != nil {
		temperature = *req.Temperature
	}

	var messages []openai.ChatCompletionMessage
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Prompt,
	})

	out := openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: temperature,
		Messages:    messages,
	}

	switch {
	case req.Schema != nil:
		name := req.SchemaName
		if name == "" {
			name = "response"
		}
		out.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   name,
				Strict: true,
				Schema: req.Schema,
			},
		}
	case req.JSON:
		out.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	return out
}

// StripCodeFence removes a surrounding markdown code fence, with or without a
// json tag. Text without a fence is returned trimmed.
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimLeft(s, "`")
	if len(s) >= 4 && strings.EqualFold(s[:4], "json") {
		s = s[4:]
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
