// Package genai is the client for the text generation service used to
// analyze source documents, write reports, and classify edit instructions.
package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"
)

const (
	defaultBaseURL    = "https://api.anthropic.com"
	defaultMaxTokens  = 4096
	defaultMaxRetries = 5
	anthropicVersion  = "2023-06-01"
)

// ErrEmptyResponse is returned when a completion carries no text.
var ErrEmptyResponse = errors.New("empty response from generation service")

// Request is a plain completion request.
type Request struct {
	System    string
	Prompt    string
	MaxTokens int
}

// ToolDefinition describes one tool the model may call.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

// ToolCall is one tool invocation returned by the model.
type ToolCall struct {
	ID    string         `json:"id"`
	Name  string         `json:"name"`
	Input map[string]any `json:"input"`
}

// ToolRequest is a completion request that offers tools.
type ToolRequest struct {
	System    string
	Prompt    string
	Tools     []ToolDefinition
	MaxTokens int
}

// ToolResponse carries the free text and the tool calls of one reply.
type ToolResponse struct {
	Text       string     `json:"text"`
	ToolCalls  []ToolCall `json:"tool_calls"`
	StopReason string     `json:"stop_reason"`
}

// Options configures a Client.
type Options struct {
	APIKey     string
	Model      string
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
	MaxTokens  int
	Logger     *slog.Logger
}

// Client calls the Anthropic Messages API.
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	maxRetries int
	maxTokens  int
	httpClient *http.Client
	log        *slog.Logger
	backoff    func(attempt int) time.Duration

	Stats *LLMStats
}

// NewClient builds a client. Zero options fall back to defaults.
func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 180 * time.Second
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = defaultMaxRetries
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = defaultMaxTokens
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Client{
		apiKey:     opts.APIKey,
		model:      opts.Model,
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		maxRetries: opts.MaxRetries,
		maxTokens:  opts.MaxTokens,
		httpClient: &http.Client{Timeout: opts.Timeout},
		log:        opts.Logger,
		backoff:    Backoff,
		Stats:      NewLLMStats(time.Hour),
	}
}

// Model returns the configured model name.
func (c *Client) Model() string { return c.model }

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system,omitempty"`
	Messages  []anthropicMessage `json:"messages"`
	Tools     []ToolDefinition   `json:"tools,omitempty"`
}

type anthropicResponse struct {
	Content []struct {
		Type  string          `json:"type"`
		Text  string          `json:"text"`
		ID    string          `json:"id"`
		Name  string          `json:"name"`
		Input json.RawMessage `json:"input"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Error      *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Generate returns the concatenated text blocks of a completion.
func (c *Client) Generate(ctx context.Context, req Request) (string, error) {
	body := anthropicRequest{
		Model:     c.model,
		MaxTokens: c.tokens(req.MaxTokens),
		System:    req.System,
		Messages:  []anthropicMessage{{Role: "user", Content: req.Prompt}},
	}
	resp, err := c.call(ctx, "generate", body)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", ErrEmptyResponse
	}
	return sb.String(), nil
}

// Classify sends a tool-enabled request and returns text and tool calls.
func (c *Client) Classify(ctx context.Context, req ToolRequest) (*ToolResponse, error) {
	body := anthropicRequest{
		Model:     c.model,
		MaxTokens: c.tokens(req.MaxTokens),
		System:    req.System,
		Messages:  []anthropicMessage{{Role: "user", Content: req.Prompt}},
		Tools:     req.Tools,
	}
	resp, err := c.call(ctx, "classify", body)
	if err != nil {
		return nil, err
	}

	out := &ToolResponse{StopReason: resp.StopReason}
	var text strings.Builder
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			text.WriteString(block.Text)
		case "tool_use":
			call := ToolCall{ID: block.ID, Name: block.Name, Input: map[string]any{}}
			if len(block.Input) > 0 {
				if err := json.Unmarshal(block.Input, &call.Input); err != nil {
					return nil, fmt.Errorf("decode tool input for %s: %w", block.Name, err)
				}
			}
			out.ToolCalls = append(out.ToolCalls, call)
		}
	}
	out.Text = text.String()
	return out, nil
}

func (c *Client) tokens(n int) int {
	if n > 0 {
		return n
	}
	return c.maxTokens
}

// call performs the request with retries on transient failures.
func (c *Client) call(ctx context.Context, op string, body anthropicRequest) (*anthropicResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	var lastErr error
	for attempt := range c.maxRetries {
		start := time.Now()
		resp, err := c.do(ctx, payload)
		if err == nil {
			c.Stats.Record(op, time.Since(start), nil)
			return resp, nil
		}
		c.Stats.Record(op, time.Since(start), err)
		lastErr = err
		if !IsRetryable(err) || attempt == c.maxRetries-1 {
			break
		}
		wait := c.backoff(attempt)
		c.log.Warn("retryable generation error", "op", op, "attempt", attempt+1, "wait_ms", wait.Milliseconds(), "error", err)
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, lastErr
}

func (c *Client) do(ctx context.Context, payload []byte) (*anthropicResponse, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() && ctx.Err() == nil {
			return nil, &RetryableError{Message: err.Error()}
		}
		return nil, fmt.Errorf("generation api: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, &RetryableError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("generation api status %d: %s", resp.StatusCode, Truncate(string(respBody), 300))
	}

	var apiResp anthropicResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if apiResp.Error != nil {
		if apiResp.Error.Type == "overloaded_error" {
			return nil, &RetryableError{StatusCode: 529, Message: apiResp.Error.Message}
		}
		return nil, fmt.Errorf("generation error: %s: %s", apiResp.Error.Type, apiResp.Error.Message)
	}
	return &apiResp, nil
}

// Close releases idle connections.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}
