// Package contentapi provides an HTTP client for the SelfAI content backend.
package contentapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/selfai-labs/selfai/internal/port/generator"
	"github.com/selfai-labs/selfai/internal/resilience"
)

// actionCodes maps action kinds to the numeric enum the backend expects.
var actionCodes = map[generator.Kind]int{
	generator.KindPost:      1,
	generator.KindReply:     2,
	generator.KindQuote:     3,
	generator.KindLike:      4,
	generator.KindSummarize: 5,
	generator.KindAnalysis:  6,
}

// interactRequest is the wire format of POST /interact.
type interactRequest struct {
	TokenID    int64  `json:"token_id"`
	UserFID    int64  `json:"user_fid"`
	ActionType int    `json:"action_type"`
	Context    string `json:"context,omitempty"`
}

// interactResponse is the wire format of the backend's reply.
type interactResponse struct {
	Success       bool   `json:"success"`
	Content       string `json:"content"`
	NeedsApproval bool   `json:"needs_approval"`
	Message       string `json:"message"`
}

// Client talks to the SelfAI content generation backend.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	breaker    *resilience.Breaker
}

var _ generator.Generator = (*Client)(nil)

// NewClient creates a content backend client with a bounded request timeout.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// SetBreaker attaches a circuit breaker to all outgoing HTTP calls.
func (c *Client) SetBreaker(b *resilience.Breaker) {
	c.breaker = b
}

// Generate requests draft content for an agent. Any transport error, non-2xx
// status, or empty content field is returned as an error; the caller recovers
// it into fallback content.
func (c *Client) Generate(ctx context.Context, req generator.Request) (string, error) {
	code, ok := actionCodes[req.Kind]
	if !ok {
		return "", fmt.Errorf("unknown action kind %q", req.Kind)
	}

	body, err := json.Marshal(interactRequest{
		TokenID:    req.AgentID,
		UserFID:    req.UserID,
		ActionType: code,
		Context:    req.Context,
	})
	if err != nil {
		return "", fmt.Errorf("marshal interact request: %w", err)
	}

	data, err := c.doRequest(ctx, http.MethodPost, "/interact", body)
	if err != nil {
		return "", fmt.Errorf("interact: %w", err)
	}

	var resp interactResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", fmt.Errorf("unmarshal interact response: %w", err)
	}
	if resp.Content == "" {
		return "", fmt.Errorf("backend returned no content: %s", resp.Message)
	}
	return resp.Content, nil
}

// Health checks if the content backend is reachable.
func (c *Client) Health(ctx context.Context) (bool, error) {
	_, err := c.doRequest(ctx, http.MethodGet, "/", nil)
	return err == nil, err
}

func (c *Client) doRequest(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var result []byte
	call := func() error {
		var bodyReader io.Reader
		if body != nil {
			bodyReader = bytes.NewReader(body)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}

		req.Header.Set("Content-Type", "application/json")
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("http request: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}

		if resp.StatusCode >= 400 {
			return fmt.Errorf("content API error %d: %s", resp.StatusCode, string(data))
		}

		result = data
		return nil
	}

	if c.breaker != nil {
		if err := c.breaker.Execute(call); err != nil {
			return nil, err
		}
		return result, nil
	}

	if err := call(); err != nil {
		return nil, err
	}
	return result, nil
}
