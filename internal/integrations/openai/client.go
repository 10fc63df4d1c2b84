// Package openai adapts the OpenAI chat completions API to the relay's
// chat request shape.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	sdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"rental-assistant/internal/domain"
)

const DefaultModel = "gpt-4o-mini"

// Client is a chat-only wrapper over the OpenAI SDK.
type Client struct {
	sdk   sdk.Client
	model string
}

type config struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

type Option func(*config)

func WithBaseURL(baseURL string) Option {
	return func(c *config) {
		c.baseURL = strings.TrimSpace(baseURL)
	}
}

func WithModel(model string) Option {
	return func(c *config) {
		if model = strings.TrimSpace(model); model != "" {
			c.model = model
		}
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *config) {
		c.httpClient = httpClient
	}
}

// NewClient builds a client with SDK retries disabled; a failed call fails
// the request.
func NewClient(apiKey string, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("openai: api key must not be empty")
	}
	cfg := config{
		model:      DefaultModel,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
		option.WithHTTPClient(cfg.httpClient),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	return &Client{sdk: sdk.NewClient(reqOpts...), model: cfg.model}, nil
}

func (c *Client) Model() string {
	return c.model
}

func (c *Client) Chat(ctx context.Context, req domain.ChatRequest) (string, error) {
	completion, err := c.sdk.Chat.Completions.New(ctx, sdk.ChatCompletionNewParams{
		Model:    sdk.ChatModel(c.model),
		Messages: buildMessages(req),
	})
	if err != nil {
		var apiErr *sdk.Error
		if errors.As(err, &apiErr) {
			return "", &HTTPStatusError{StatusCode: apiErr.StatusCode, Message: apiErr.Message, Err: err}
		}
		return "", fmt.Errorf("openai: chat completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", errors.New("openai: no choices in response")
	}
	return completion.Choices[0].Message.Content, nil
}

func buildMessages(req domain.ChatRequest) []sdk.ChatCompletionMessageParamUnion {
	msgs := make([]sdk.ChatCompletionMessageParamUnion, 0, len(req.History)+2)
	if req.SystemInstruction != "" {
		msgs = append(msgs, sdk.SystemMessage(req.SystemInstruction))
	}
	for _, turn := range req.History {
		text := turnText(turn)
		if turn.Role == string(domain.RoleModel) || turn.Role == string(domain.RoleAssistant) {
			msgs = append(msgs, sdk.AssistantMessage(text))
			continue
		}
		msgs = append(msgs, sdk.UserMessage(text))
	}
	return append(msgs, sdk.UserMessage(req.Message))
}

func turnText(turn domain.ChatTurn) string {
	parts := make([]string, 0, len(turn.Parts))
	for _, p := range turn.Parts {
		parts = append(parts, p.Text)
	}
	return strings.Join(parts, "")
}

// HTTPStatusError captures non-2xx responses reported by the SDK.
type HTTPStatusError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("openai: unexpected status %d: %v", e.StatusCode, e.Err)
}

func (e *HTTPStatusError) Unwrap() error {
	return e.Err
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// ProviderMessage is the API's own error text, without the request URL.
func (e *HTTPStatusError) ProviderMessage() string {
	if e.Message != "" {
		return e.Message
	}
	return http.StatusText(e.StatusCode)
}
