// internal/common/http/client.go
package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// StatusError is returned when a collaborator answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

// Client is a thin JSON client for REST collaborators.
type Client struct {
	httpClient *http.Client
	baseURL    string
	headers    map[string]string
}

func NewClient(timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		headers:    map[string]string{},
	}
}

// NewServiceClient binds the client to a base URL. A non-empty apiKey is sent
// as a bearer token.
func NewServiceClient(baseURL, apiKey string, timeout time.Duration) *Client {
	c := NewClient(timeout)
	c.baseURL = strings.TrimRight(baseURL, "/")
	if apiKey != "" {
		c.headers["Authorization"] = "Bearer " + apiKey
	}
	return c
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) Do(req *http.Request) (*http.Response, error) {
	for k, v := range c.headers {
		if req.Header.Get(k) == "" {
			req.Header.Set(k, v)
		}
	}
	return c.httpClient.Do(req)
}

func (c *Client) DoWithContext(ctx context.Context, req *http.Request) (*http.Response, error) {
	return c.Do(req.WithContext(ctx))
}

// GetJSON issues a GET against path and decodes the response into out.
func (c *Client) GetJSON(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return c.send(req, out)
}

// PostJSON encodes body, posts it to path and decodes the response into out.
// out may be nil when the response body is not needed.
func (c *Client) PostJSON(ctx context.Context, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return c.send(req, out)
}

// PostRaw posts an already encoded body with the given content type.
func (c *Client) PostRaw(ctx context.Context, path, contentType string, body io.Reader, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	return c.send(req, out)
}

func (c *Client) send(req *http.Request, out interface{}) error {
	resp, err := c.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
