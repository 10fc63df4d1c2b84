// Package gemini is a focused client for the Gemini generateContent API.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"rental-assistant/internal/domain"
)

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	DefaultModel   = "gemini-1.5-flash"
)

// harmCategories are disabled outright; replies get no extra moderation.
var harmCategories = []string{
	"HARM_CATEGORY_HARASSMENT",
	"HARM_CATEGORY_HATE_SPEECH",
	"HARM_CATEGORY_SEXUALLY_EXPLICIT",
	"HARM_CATEGORY_DANGEROUS_CONTENT",
}

const blockNone = "BLOCK_NONE"

type generateRequest struct {
	Contents          []domain.ChatTurn `json:"contents"`
	SystemInstruction *content          `json:"systemInstruction,omitempty"`
	SafetySettings    []safetySetting   `json:"safetySettings"`
}

type content struct {
	Role  string            `json:"role,omitempty"`
	Parts []domain.ChatPart `json:"parts"`
}

type safetySetting struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

type errorEnvelope struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// HTTPStatusError captures non-2xx responses with the provider's message.
type HTTPStatusError struct {
	StatusCode int
	URL        string
	Message    string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("gemini: status %d from %s: %s", e.StatusCode, e.URL, e.Message)
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

// BlockedError reports a prompt rejected by the safety filter.
type BlockedError struct {
	Reason string
}

func (e *BlockedError) Error() string {
	return "gemini: prompt blocked: " + e.Reason
}

func (e *BlockedError) ProviderMessage() string {
	return "prompt blocked: " + e.Reason
}

// Client calls models/{model}:generateContent with a fixed API key.
type Client struct {
	baseURL    string
	model      string
	apiKey     string
	httpClient *http.Client
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if baseURL = strings.TrimSpace(baseURL); baseURL != "" {
			c.baseURL = baseURL
		}
	}
}

func WithModel(model string) Option {
	return func(c *Client) {
		if model = strings.TrimSpace(model); model != "" {
			c.model = model
		}
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func NewClient(apiKey string, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini: api key must not be empty")
	}
	c := &Client{
		baseURL:    DefaultBaseURL,
		model:      DefaultModel,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) Model() string {
	return c.model
}

func generateURL(baseURL, model string) string {
	return strings.TrimRight(baseURL, "/") + "/models/" + model + ":generateContent"
}

// Chat sends the history plus the new message and returns the reply text.
func (c *Client) Chat(ctx context.Context, req domain.ChatRequest) (string, error) {
	body, err := json.Marshal(buildRequest(req))
	if err != nil {
		return "", fmt.Errorf("gemini: marshal request: %w", err)
	}

	url := generateURL(c.baseURL, c.model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("gemini: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	// Header rather than query parameter keeps the key out of access logs.
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	raw, err := c.doJSONRequest(httpReq, url)
	if err != nil {
		return "", err
	}

	var payload generateResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		return "", fmt.Errorf("gemini: decode response: %w", err)
	}
	if len(payload.Candidates) == 0 {
		if payload.PromptFeedback != nil && payload.PromptFeedback.BlockReason != "" {
			return "", &BlockedError{Reason: payload.PromptFeedback.BlockReason}
		}
		return "", errors.New("gemini: no candidates in response")
	}

	var sb strings.Builder
	for _, part := range payload.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("gemini: empty candidate (finish reason %q)", payload.Candidates[0].FinishReason)
	}
	return sb.String(), nil
}

func buildRequest(req domain.ChatRequest) generateRequest {
	contents := make([]domain.ChatTurn, 0, len(req.History)+1)
	contents = append(contents, req.History...)
	contents = append(contents, domain.ChatTurn{
		Role:  string(domain.RoleUser),
		Parts: []domain.ChatPart{{Text: req.Message}},
	})

	out := generateRequest{
		Contents:       contents,
		SafetySettings: make([]safetySetting, 0, len(harmCategories)),
	}
	if req.SystemInstruction != "" {
		out.SystemInstruction = &content{Parts: []domain.ChatPart{{Text: req.SystemInstruction}}}
	}
	for _, cat := range harmCategories {
		out.SafetySettings = append(out.SafetySettings, safetySetting{Category: cat, Threshold: blockNone})
	}
	return out
}

func (c *Client) doJSONRequest(req *http.Request, url string) ([]byte, error) {
	httpClient := c.httpClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	res, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gemini: request failed: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return nil, &HTTPStatusError{
			StatusCode: res.StatusCode,
			URL:        url,
			Message:    errorMessage(buf),
		}
	}

	buf, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("gemini: read response body: %w", err)
	}
	return buf, nil
}

// errorMessage prefers the structured API message over the raw body.
func errorMessage(body []byte) string {
	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err == nil && env.Error.Message != "" {
		return env.Error.Message
	}
	return strings.TrimSpace(string(body))
}
