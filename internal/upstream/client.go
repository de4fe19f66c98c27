// Package upstream fetches JSON/CSV documents from root servers.
package upstream

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Error surfaces a non-200 response from a root server (spec §4.1).
type Error struct {
	Status int
	URL    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("upstream error: %s returned status %d", e.URL, e.Status)
}

// Client fetches documents from root servers with a fixed user-agent and
// a single attempt: no retries at this layer (spec §4.1, §5).
type Client struct {
	httpClient *http.Client
	userAgent  string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying http.Client (used by tests to
// inject a transport double).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New builds a Client with the given request timeout and user-agent.
func New(timeout time.Duration, userAgent string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: timeout},
		userAgent:  userAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch retrieves the bytes at url. Any status other than 200 fails with
// *Error; the caller (the import orchestrator) decides how to treat it.
func (c *Client) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, &Error{Status: resp.StatusCode, URL: url}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body of %s: %w", url, err)
	}
	return body, nil
}
