// Package execution talks to the external code execution sandbox over HTTP.
package execution

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

// DefaultTimeout bounds a single sandbox run end to end.
const DefaultTimeout = 15 * time.Second

// ErrSandboxUnavailable indicates the sandbox endpoint could not be reached
// or returned a server-side failure.
var ErrSandboxUnavailable = errors.New("execution: sandbox unavailable")

// RunRequest is the payload submitted to the sandbox.
type RunRequest struct {
	Language string `json:"language"`
	Code     string `json:"code"`
	Stdin    string `json:"stdin,omitempty"`
}

// RunResult is the sandbox's verdict for one run.
type RunResult struct {
	Output   string `json:"output"`
	Error    string `json:"error,omitempty"`
	ExitCode int    `json:"exit_code"`
}

// Client submits code to the sandbox service and returns its output.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// Option customises the sandbox client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client (test helper).
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithTimeout overrides the per-run timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// NewClient constructs a sandbox client for the given endpoint.
func NewClient(endpoint string, opts ...Option) (*Client, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, errors.New("execution: endpoint is required")
	}

	client := &Client{
		endpoint:   strings.TrimRight(endpoint, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

// Run submits the code and blocks for the sandbox verdict. Non-zero exit codes
// are reported through the result, not as a Go error; errors mean the sandbox
// itself failed.
func (c *Client) Run(ctx context.Context, req RunRequest) (*RunResult, error) {
	if c == nil {
		return nil, errors.New("execution: client not initialised")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("execution: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/execute", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("execution: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSandboxUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("execution: read response: %w", err)
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("%w: status %d", ErrSandboxUnavailable, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("execution: sandbox rejected request: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var result RunResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("execution: decode response: %w", err)
	}
	return &result, nil
}
