package poller

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const maxResponseBodySize = 1 << 20 // 1MB

// connection pooling limits; the poller talks to a single host on a short
// interval, so keep the pool small and reuse connections aggressively
const (
	defaultMaxIdleConns    = 10
	defaultMaxConnsPerHost = 4
	defaultIdleConnTimeout = 60 * time.Second
)

// Response holds the result of a single status fetch made by [Client].
type Response struct {
	// Body contains the HTTP response body, limited to 1MB.
	Body []byte

	// StatusCode is the HTTP status code. Zero if the request failed before
	// a response arrived.
	StatusCode int

	// Error contains any transport error that occurred during the request.
	// nil indicates the request completed (though StatusCode may still
	// indicate a failure).
	Error error
}

// Client is an HTTP client wrapper for polling the status endpoint.
//
// Timeouts are applied per-request via context, and response bodies are
// limited to 1MB. Errors are captured in the returned [Response] rather than
// returned separately, which keeps the fetch cycle's handling uniform.
type Client struct {
	httpClient *http.Client
	timeout    time.Duration
}

// NewClient creates a polling [Client] with the given per-request timeout.
func NewClient(timeout time.Duration) *Client {
	return &Client{
		timeout: timeout,
		httpClient: &http.Client{
			// no global timeout - per-request timeouts via context
			Transport: &http.Transport{
				MaxIdleConns:    defaultMaxIdleConns,
				MaxConnsPerHost: defaultMaxConnsPerHost,
				IdleConnTimeout: defaultIdleConnTimeout,
			},
		},
	}
}

// Fetch performs a GET against url and returns a structured [Response].
func (c *Client) Fetch(ctx context.Context, url string) Response {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Response{Error: fmt.Errorf("failed to create request: %w", err)}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Response{Error: fmt.Errorf("request failed: %w", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if err != nil {
		return Response{
			StatusCode: resp.StatusCode,
			Error:      fmt.Errorf("failed to read response body: %w", err),
		}
	}

	return Response{
		Body:       body,
		StatusCode: resp.StatusCode,
	}
}

// Close closes all idle connections in the client's connection pool.
// Safe to call multiple times; the client remains usable afterwards.
func (c *Client) Close() {
	if c == nil || c.httpClient == nil {
		return
	}
	if transport, ok := c.httpClient.Transport.(*http.Transport); ok {
		transport.CloseIdleConnections()
	}
}
