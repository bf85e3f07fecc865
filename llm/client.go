package llm

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

	"github.com/BaSui01/warmflow/internal/tlsutil"
	"github.com/BaSui01/warmflow/types"
	"go.uber.org/zap"
)

// Known provider identifiers. Any OpenAI-compatible endpoint works; these
// two get sensible base-URL and model defaults.
const (
	ProviderOpenAI = "openai"
	ProviderGroq   = "groq"
)

// Role constants for chat messages.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Config holds the client configuration.
type Config struct {
	// Provider selects the inference backend: "openai" or "groq".
	Provider string

	// APIKey authenticates against the provider.
	APIKey string

	// BaseURL overrides the provider's default API endpoint.
	BaseURL string

	// Model is the chat model to request. Defaults per provider.
	Model string

	// Timeout is the HTTP client timeout. Defaults to 30s if zero.
	Timeout time.Duration

	// MaxTokens caps the completion length. Zero lets the provider decide.
	MaxTokens int

	// Temperature controls sampling. Zero means the provider default.
	Temperature float64
}

func (c *Config) applyDefaults() {
	if c.Provider == "" {
		c.Provider = ProviderOpenAI
	}
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
	if c.BaseURL == "" {
		switch c.Provider {
		case ProviderGroq:
			c.BaseURL = "https://api.groq.com/openai"
		default:
			c.BaseURL = "https://api.openai.com"
		}
	}
	if c.Model == "" {
		switch c.Provider {
		case ProviderGroq:
			c.Model = "llama-3.3-70b-versatile"
		default:
			c.Model = "gpt-4o-mini"
		}
	}
}

// Client calls the chat completions endpoint of an OpenAI-compatible API.
// It is stateless and safe for concurrent use.
type Client struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger
}

// NewClient creates a completion client.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	cfg.applyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		cfg:    cfg,
		client: tlsutil.SecureHTTPClient(cfg.Timeout),
		logger: logger.With(zap.String("component", "llm_client"), zap.String("provider", cfg.Provider)),
	}
}

// Provider returns the configured backend name.
func (c *Client) Provider() string { return c.cfg.Provider }

// Model returns the configured model.
func (c *Client) Model() string { return c.cfg.Model }

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// Completion sends the messages and returns the first choice's content.
func (c *Client) Completion(ctx context.Context, messages []Message) (string, error) {
	if len(messages) == 0 {
		return "", types.NewError(types.ErrInvalidRequest, "completion requires at least one message").
			WithOperation("llm.Completion")
	}
	if c.cfg.APIKey == "" {
		return "", types.NewError(types.ErrPermanent, "LLM API key not configured").
			WithOperation("llm.Completion")
	}

	body := chatRequest{
		Model:       c.cfg.Model,
		Messages:    messages,
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", types.NewError(types.ErrInternalError, "failed to marshal completion request").
			WithCause(err).
			WithOperation("llm.Completion")
	}

	url := strings.TrimRight(c.cfg.BaseURL, "/") + "/v1/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", types.NewError(types.ErrInternalError, "failed to build completion request").
			WithCause(err).
			WithOperation("llm.Completion")
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.client.Do(httpReq)
	if err != nil {
		code := types.ErrTransient
		if errors.Is(err, context.DeadlineExceeded) {
			code = types.ErrUpstreamTimeout
		}
		return "", types.NewError(code, "completion request failed").
			WithCause(err).
			WithRetryable(true).
			WithHTTPStatus(http.StatusBadGateway).
			WithOperation("llm.Completion")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", mapHTTPError(resp.StatusCode, readErrorMessage(resp.Body))
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", types.NewError(types.ErrUpstreamError, "failed to decode completion response").
			WithCause(err).
			WithRetryable(true).
			WithHTTPStatus(http.StatusBadGateway).
			WithOperation("llm.Completion")
	}
	if len(out.Choices) == 0 {
		return "", types.NewError(types.ErrUpstreamError, "completion returned no choices").
			WithHTTPStatus(http.StatusBadGateway).
			WithOperation("llm.Completion")
	}

	c.logger.Debug("completion finished",
		zap.String("model", out.Model),
		zap.Int("prompt_tokens", out.Usage.PromptTokens),
		zap.Int("completion_tokens", out.Usage.CompletionTokens),
		zap.Duration("latency", time.Since(start)),
	)
	return out.Choices[0].Message.Content, nil
}

// HealthCheck probes the models endpoint and reports reachability.
func (c *Client) HealthCheck(ctx context.Context) error {
	url := strings.TrimRight(c.cfg.BaseURL, "/") + "/v1/models"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return types.NewError(types.ErrInternalError, "failed to build health check request").
			WithCause(err).
			WithOperation("llm.HealthCheck")
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return types.NewError(types.ErrTransient, "LLM provider unreachable").
			WithCause(err).
			WithRetryable(true).
			WithOperation("llm.HealthCheck")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return mapHTTPError(resp.StatusCode, readErrorMessage(resp.Body))
	}
	return nil
}

// mapHTTPError translates provider status codes into the error taxonomy.
// 429 and 5xx are retryable; everything else in 4xx is a caller problem.
func mapHTTPError(status int, msg string) *types.Error {
	switch {
	case status == http.StatusTooManyRequests || status >= 500:
		return types.NewError(types.ErrTransient,
			fmt.Sprintf("LLM provider error: status=%d msg=%s", status, msg)).
			WithRetryable(true).
			WithHTTPStatus(http.StatusBadGateway).
			WithOperation("llm.Completion")
	case status == http.StatusRequestTimeout:
		return types.NewError(types.ErrUpstreamTimeout,
			fmt.Sprintf("LLM provider timeout: msg=%s", msg)).
			WithRetryable(true).
			WithHTTPStatus(http.StatusBadGateway).
			WithOperation("llm.Completion")
	default:
		return types.NewError(types.ErrPermanent,
			fmt.Sprintf("LLM provider rejected request: status=%d msg=%s", status, msg)).
			WithHTTPStatus(http.StatusBadGateway).
			WithOperation("llm.Completion")
	}
}

// readErrorMessage extracts a human-readable message from an error body.
func readErrorMessage(r io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil {
		return ""
	}
	var parsed struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &parsed); err == nil && parsed.Error.Message != "" {
		return parsed.Error.Message
	}
	return strings.TrimSpace(string(raw))
}
