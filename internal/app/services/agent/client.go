// Package agent implements the AI commentary gateway: a stateless relay that
// forwards a conversation to an OpenAI-compatible chat completion API and
// returns the generated text.
package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tradon-app/tradon/internal/app/domain/chat"
	"github.com/tradon-app/tradon/pkg/logger"
)

// Completer produces one completion for a conversation.
type Completer interface {
	Complete(ctx context.Context, messages []chat.Message) (string, error)
}

// CompleterFunc adapts a function to the Completer interface.
type CompleterFunc func(ctx context.Context, messages []chat.Message) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, messages []chat.Message) (string, error) {
	if f == nil {
		return "", nil
	}
	return f(ctx, messages)
}

// UpstreamError describes a failed upstream completion call with whatever
// diagnostics were available. Secrets never land in it.
type UpstreamError struct {
	Message    string
	Status     int
	StatusText string
	Body       string
}

func (e *UpstreamError) Error() string { return e.Message }

// ClientConfig configures the upstream completion client.
type ClientConfig struct {
	BaseURL   string
	APIKey    string
	Model     string
	MaxTokens int
	// Referer and Title are forwarded as the HTTP-Referer and X-Title
	// attribution headers some completion routers expect.
	Referer string
	Title   string
}

// Client calls an OpenAI-compatible /chat/completions endpoint.
type Client struct {
	http *http.Client
	cfg  ClientConfig
	log  *logger.Logger
}

var _ Completer = (*Client)(nil)

// NewClient constructs the upstream client.
func NewClient(httpClient *http.Client, cfg ClientConfig, log *logger.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("agent base URL is required")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("agent model is required")
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 500
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if log == nil {
		log = logger.NewDefault("agent-client")
	}
	return &Client{http: httpClient, cfg: cfg, log: log}, nil
}

type completionRequest struct {
	Model     string         `json:"model"`
	Messages  []chat.Message `json:"messages"`
	MaxTokens int            `json:"max_tokens"`
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete relays the conversation verbatim and returns the first choice's
// content.
func (c *Client) Complete(ctx context.Context, messages []chat.Message) (string, error) {
	payload, err := json.Marshal(completionRequest{
		Model:     c.cfg.Model,
		Messages:  messages,
		MaxTokens: c.cfg.MaxTokens,
	})
	if err != nil {
		return "", &UpstreamError{Message: err.Error()}
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", &UpstreamError{Message: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}
	if c.cfg.Referer != "" {
		req.Header.Set("HTTP-Referer", c.cfg.Referer)
	}
	if c.cfg.Title != "" {
		req.Header.Set("X-Title", c.cfg.Title)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", &UpstreamError{Message: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &UpstreamError{Message: err.Error()}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.log.WithField("status", resp.Status).Warn("completion upstream returned error")
		return "", &UpstreamError{
			Message:    fmt.Sprintf("completion API returned %s", resp.Status),
			Status:     resp.StatusCode,
			StatusText: http.StatusText(resp.StatusCode),
			Body:       truncate(string(body), 2048),
		}
	}

	var completion completionResponse
	if err := json.Unmarshal(body, &completion); err != nil {
		return "", &UpstreamError{
			Message:    "completion API returned malformed payload",
			Status:     resp.StatusCode,
			StatusText: http.StatusText(resp.StatusCode),
			Body:       truncate(string(body), 2048),
		}
	}
	if len(completion.Choices) == 0 {
		return "", &UpstreamError{
			Message:    "completion API returned no choices",
			Status:     resp.StatusCode,
			StatusText: http.StatusText(resp.StatusCode),
		}
	}
	return completion.Choices[0].Message.Content, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
