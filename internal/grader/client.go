// Package grader wraps the external AI grading service. The upstream is
// untrusted: possibly slow, possibly down, possibly returning garbage. Every
// call carries a bounded timeout and the resilient wrapper contains the
// blast radius.
package grader

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/teoneo-site/teoneo-courses/internal/domain"
)

// Client sends a grading prompt to the AI service and returns its raw reply.
type Client interface {
	Send(ctx context.Context, prompt string) (string, error)
}

// HTTPClient implements Client against a chat-completions style API.
type HTTPClient struct {
	baseURL    string
	token      string
	model      string
	httpClient *http.Client
}

// HTTPConfig holds configuration for the grading service client.
type HTTPConfig struct {
	BaseURL string
	Token   string
	Model   string
	Timeout time.Duration // per-call bound; the async worker must never hang
}

// NewHTTPClient creates a grading service client.
func NewHTTPClient(cfg HTTPConfig) *HTTPClient {
	if cfg.Model == "" {
		cfg.Model = "GigaChat"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &HTTPClient{
		baseURL:    cfg.BaseURL,
		token:      cfg.Token,
		model:      cfg.Model,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Send posts the grading prompt as a single user message and returns the
// assistant's reply text.
func (c *HTTPClient) Send(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:    c.model,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrGraderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("%w: API error (status %d): %s", domain.ErrGraderUnavailable, resp.StatusCode, string(bodyBytes))
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty choices", domain.ErrMalformedVerdict)
	}

	return chatResp.Choices[0].Message.Content, nil
}

// Ensure HTTPClient implements Client
var _ Client = (*HTTPClient)(nil)
