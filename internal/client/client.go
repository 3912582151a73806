// Package client talks to the breakout backend over JSON request/response calls.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/newthinker/breakwatch/internal/core"
	"github.com/newthinker/breakwatch/internal/metrics"
	"go.uber.org/zap"
)

const (
	defaultBaseURL = "http://localhost:8000/api/v1"
	defaultTimeout = 10 * time.Second
)

// Client is the data access client for the breakout backend.
// It never retries and never serves cached responses.
type Client struct {
	client  *http.Client
	baseURL string
	logger  *zap.Logger
	metrics *metrics.Registry
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.client = hc }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithMetrics records request outcomes in reg.
func WithMetrics(reg *metrics.Registry) Option {
	return func(c *Client) { c.metrics = reg }
}

// New creates a client for the backend rooted at baseURL.
func New(baseURL string, timeout time.Duration, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	c := &Client{
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the backend root the client was built with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Breakouts lists active breakouts, scoped to one exchange when exchange is non-empty.
func (c *Client) Breakouts(ctx context.Context, exchange string) ([]core.Breakout, error) {
	path := "/breakouts"
	if exchange != "" {
		params := url.Values{}
		params.Set("exchange", exchange)
		path += "?" + params.Encode()
	}

	resp, err := c.do(ctx, "breakouts", http.MethodGet, path, nil)
	if err != nil {
		return nil, core.WrapError(core.ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		return nil, core.WrapError(core.ErrFetchFailed, fmt.Errorf("unexpected status: %d", resp.StatusCode))
	}

	var breakouts []core.Breakout
	if err := json.NewDecoder(resp.Body).Decode(&breakouts); err != nil {
		return nil, core.WrapError(core.ErrFetchFailed, fmt.Errorf("decoding response: %w", err))
	}
	if breakouts == nil {
		breakouts = []core.Breakout{}
	}

	return breakouts, nil
}

// Status fetches the backend's system status.
func (c *Client) Status(ctx context.Context) (*core.SystemStatus, error) {
	resp, err := c.do(ctx, "status", http.MethodGet, "/system/status", nil)
	if err != nil {
		return nil, core.WrapError(core.ErrStatusFailed, err)
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		return nil, core.WrapError(core.ErrStatusFailed, fmt.Errorf("unexpected status: %d", resp.StatusCode))
	}

	var status core.SystemStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, core.WrapError(core.ErrStatusFailed, fmt.Errorf("decoding response: %w", err))
	}
	if status.MarketState == "" {
		status.MarketState = core.MarketUnknown
	}

	return &status, nil
}

type dismissRequest struct {
	Symbol   string `json:"symbol"`
	Exchange string `json:"exchange"`
}

// Dismiss hides a breakout on the backend. Callers update local state only on nil error.
func (c *Client) Dismiss(ctx context.Context, symbol, exchange string) error {
	if err := c.post(ctx, "dismiss", "/dismiss", dismissRequest{Symbol: symbol, Exchange: exchange}); err != nil {
		return core.WrapError(core.ErrDismissFailed, err)
	}
	return nil
}

// Restore removes a breakout from the backend's dismissal list.
func (c *Client) Restore(ctx context.Context, symbol, exchange string) error {
	if err := c.post(ctx, "restore", "/restore", dismissRequest{Symbol: symbol, Exchange: exchange}); err != nil {
		return core.WrapError(core.ErrRestoreFailed, err)
	}
	return nil
}

// Dismissed lists dismissed "<exchange>:<symbol>" identifiers.
// Backend and decode failures degrade to an empty list with a nil error.
func (c *Client) Dismissed(ctx context.Context) ([]string, error) {
	resp, err := c.do(ctx, "dismissed", http.MethodGet, "/dismissed", nil)
	if err != nil {
		c.logger.Warn("dismissed list unavailable", zap.Error(err))
		return []string{}, nil
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		c.logger.Warn("dismissed list unavailable", zap.Int("status", resp.StatusCode))
		return []string{}, nil
	}

	var ids []string
	if err := json.NewDecoder(resp.Body).Decode(&ids); err != nil {
		c.logger.Warn("dismissed list undecodable", zap.Error(err))
		return []string{}, nil
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

func (c *Client) post(ctx context.Context, endpoint, path string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	resp, err := c.do(ctx, endpoint, http.MethodPost, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) do(ctx context.Context, endpoint, method, path string, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-store")
	req.Header.Set("Pragma", "no-cache")
	req.Header.Set(metrics.RequestIDHeader, requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	elapsed := time.Since(start)

	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	if c.metrics != nil {
		c.metrics.RecordBackendRequest(endpoint, status, elapsed.Seconds())
	}
	c.logger.Debug("backend request",
		zap.String("request_id", requestID),
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", status),
		zap.Duration("elapsed", elapsed),
	)

	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return resp, nil
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}
