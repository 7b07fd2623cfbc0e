// Package ollama is a minimal client for a local Ollama server's
// /api/generate endpoint. Both model-backed engines share it.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// DefaultBaseURL is where a local Ollama server listens.
const DefaultBaseURL = "http://localhost:11434"

// DefaultModel is used when no model is configured.
const DefaultModel = "llama3.2"

// DefaultRetryDelay is the wait before the first retry; later retries wait
// proportionally longer.
const DefaultRetryDelay = 500 * time.Millisecond

// Client sends non-streaming generate requests to one model.
type Client struct {
	model   string
	baseURL string
	client  *http.Client

	maxAttempts int
	retryDelay  time.Duration
}

// StatusError is a non-200 response from the server.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("ollama returned status %d", e.Code)
}

// temporary reports whether a retry may succeed.
func (e *StatusError) temporary() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// NewClient returns a client for model at baseURL. Empty values fall back
// to the defaults; a zero timeout means 120s.
func NewClient(baseURL, model string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if model == "" {
		model = DefaultModel
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		model:       model,
		baseURL:     strings.TrimRight(baseURL, "/"),
		client:      &http.Client{Timeout: timeout},
		maxAttempts: 1,
		retryDelay:  DefaultRetryDelay,
	}
}

// WithRetry makes Generate try up to maxAttempts times in total, waiting
// delay, 2*delay, ... between attempts. Only transport failures, 429 and
// 5xx responses are retried. maxAttempts < 1 means 1.
func (c *Client) WithRetry(maxAttempts int, delay time.Duration) *Client {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if delay < 0 {
		delay = 0
	}
	c.maxAttempts = maxAttempts
	c.retryDelay = delay
	return c
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.model
}

// Generate sends prompt and returns the raw model response.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if attempt > 1 {
			timer := time.NewTimer(time.Duration(attempt-1) * c.retryDelay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return "", fmt.Errorf("%w (last error: %v)", ctx.Err(), lastErr)
			case <-timer.C:
			}
		}

		out, err := c.generate(ctx, prompt)
		if err == nil {
			return out, nil
		}
		lastErr = err
		if !retryable(ctx, err) {
			break
		}
	}
	if c.maxAttempts > 1 {
		return "", fmt.Errorf("generate failed after %d attempts: %w", c.maxAttempts, lastErr)
	}
	return "", lastErr
}

func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.temporary()
	}
	var decodeErr *decodeError
	return !errors.As(err, &decodeErr)
}

type decodeError struct{ err error }

func (e *decodeError) Error() string { return "failed to decode generate response: " + e.err.Error() }

func (e *decodeError) Unwrap() error { return e.err }

func (c *Client) generate(ctx context.Context, prompt string) (string, error) {
	jsonData, err := json.Marshal(generateRequest{
		Model:  c.model,
		Prompt: prompt,
		Stream: false,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal generate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("generate request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &StatusError{Code: resp.StatusCode}
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", &decodeError{err: err}
	}
	return out.Response, nil
}

// IsAvailable checks that the server answers /api/tags.
func (c *Client) IsAvailable(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return fmt.Errorf("failed to create tags request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("ollama not available: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &StatusError{Code: resp.StatusCode}
	}
	return nil
}
