// Package sandbox is a client for the hosted container-provisioning service.
// A sandbox is a remote container exposing a shell execution API; project
// code lives and runs inside it.
package sandbox

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/hatchlabs/devbox-middleware/internal/metrics"
	"github.com/hatchlabs/devbox-middleware/pkg/config"
)

// ErrUnavailable marks failures to reach the provider at all (network error
// or 5xx). Handlers map it to 503.
var ErrUnavailable = errors.New("sandbox provider unavailable")

// ErrNotFound is returned when the provider reports an unknown sandbox ID.
var ErrNotFound = errors.New("sandbox not found")

// Client talks to the sandbox provider's REST API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a sandbox client from the application config.
func NewClient(cfg *config.SandboxConfig, apiKey string, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("sandbox config is nil")
	}
	if _, err := url.Parse(cfg.APIURL); err != nil {
		return nil, fmt.Errorf("invalid sandbox api url: %w", err)
	}

	c := &Client{
		baseURL:    cfg.APIURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Create provisions a new sandbox and returns it once the provider accepts
// the request (the sandbox may still be starting).
func (c *Client) Create(ctx context.Context, req CreateRequest) (*Sandbox, error) {
	var sb Sandbox
	if err := c.do(ctx, "create", http.MethodPost, "/sandboxes", req, &sb); err != nil {
		return nil, err
	}
	return &sb, nil
}

// Get fetches a sandbox by ID.
func (c *Client) Get(ctx context.Context, id string) (*Sandbox, error) {
	var sb Sandbox
	if err := c.do(ctx, "get", http.MethodGet, "/sandboxes/"+url.PathEscape(id), nil, &sb); err != nil {
		return nil, err
	}
	return &sb, nil
}

// List returns all sandboxes visible to the API key.
func (c *Client) List(ctx context.Context) ([]Sandbox, error) {
	var sbs []Sandbox
	if err := c.do(ctx, "list", http.MethodGet, "/sandboxes", nil, &sbs); err != nil {
		return nil, err
	}
	return sbs, nil
}

// Start starts a stopped sandbox.
func (c *Client) Start(ctx context.Context, id string) error {
	return c.do(ctx, "start", http.MethodPost, "/sandboxes/"+url.PathEscape(id)+"/start", nil, nil)
}

// Stop stops a running sandbox.
func (c *Client) Stop(ctx context.Context, id string) error {
	return c.do(ctx, "stop", http.MethodPost, "/sandboxes/"+url.PathEscape(id)+"/stop", nil, nil)
}

// Delete removes a sandbox.
func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, "delete", http.MethodDelete, "/sandboxes/"+url.PathEscape(id), nil, nil)
}

// Exec runs a shell command inside the sandbox and returns its output.
func (c *Client) Exec(ctx context.Context, id string, req ExecRequest) (*ExecResult, error) {
	var result ExecResult
	if err := c.do(ctx, "exec", http.MethodPost, "/sandboxes/"+url.PathEscape(id)+"/exec", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, body, out any) (err error) {
	defer func() {
		status := "ok"
		if err != nil {
			status = "error"
		}
		metrics.SandboxOperationsTotal.WithLabelValues(op, status).Inc()
	}()

	var reqBody io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: provider returned status %d", ErrUnavailable, resp.StatusCode)
	case resp.StatusCode >= 400:
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return fmt.Errorf("provider returned status %d: %s", resp.StatusCode, bytes.TrimSpace(raw))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
