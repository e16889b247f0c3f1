// Package generate drafts FIR text through an OpenAI-compatible chat completions API.
package generate

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
)

const (
	defaultBaseURL          = "https://api.openai.com/v1"
	defaultModel            = "gpt-4o-mini"
	defaultTimeout          = 60 * time.Second
	defaultMaxResponseBytes = 1 << 20
)

// ErrEmptyDraft reports a completion that carried no text.
var ErrEmptyDraft = errors.New("generator returned an empty draft")

type Config struct {
	BaseURL          string
	Model            string
	APIKey           string
	Timeout          time.Duration
	MaxResponseBytes int64
}

// Client calls /chat/completions once per Generate; it never retries.
type Client struct {
	baseURL          string
	model            string
	apiKey           string
	maxResponseBytes int64
	http             *http.Client
	now              func() time.Time
}

func New(cfg Config) *Client {
	c := &Client{
		baseURL:          strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		model:            strings.TrimSpace(cfg.Model),
		apiKey:           cfg.APIKey,
		maxResponseBytes: cfg.MaxResponseBytes,
		now:              time.Now,
	}
	if c.baseURL == "" {
		c.baseURL = defaultBaseURL
	}
	if c.model == "" {
		c.model = defaultModel
	}
	if c.maxResponseBytes <= 0 {
		c.maxResponseBytes = defaultMaxResponseBytes
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	c.http = &http.Client{Timeout: timeout}
	return c
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Generate turns the narrative into a formatted FIR draft.
func (c *Client) Generate(ctx context.Context, narrative string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: buildUserPrompt(narrative, c.now())},
		},
		Temperature: 0.2,
	})
	if err != nil {
		return "", fmt.Errorf("marshal completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("call generator: %w", err)
	}
	defer resp.Body.Close()

	payload, err := c.readLimited(resp.Body)
	if err != nil {
		return "", err
	}

	if resp.StatusCode >= 400 {
		var apiErr errorResponse
		if json.Unmarshal(payload, &apiErr) == nil && apiErr.Error.Message != "" {
			return "", fmt.Errorf("generator status %d: %s", resp.StatusCode, apiErr.Error.Message)
		}
		return "", fmt.Errorf("generator status %d", resp.StatusCode)
	}

	var completion chatResponse
	if err := json.Unmarshal(payload, &completion); err != nil {
		return "", fmt.Errorf("decode completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", ErrEmptyDraft
	}

	draft := strings.TrimSpace(completion.Choices[0].Message.Content)
	if draft == "" {
		return "", ErrEmptyDraft
	}
	if completion.Choices[0].FinishReason == "length" {
		return "", errors.New("generator truncated the draft")
	}
	return draft, nil
}

// Ping lists models to confirm the endpoint answers and accepts the key.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/models", nil)
	if err != nil {
		return fmt.Errorf("create models request: %w", err)
	}
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("call generator: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, c.maxResponseBytes))

	if resp.StatusCode >= 400 {
		return fmt.Errorf("generator status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) authorize(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

func (c *Client) readLimited(body io.Reader) ([]byte, error) {
	payload, err := io.ReadAll(io.LimitReader(body, c.maxResponseBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read generator response: %w", err)
	}
	if int64(len(payload)) > c.maxResponseBytes {
		return nil, fmt.Errorf("generator response exceeded %d bytes", c.maxResponseBytes)
	}
	return payload, nil
}
