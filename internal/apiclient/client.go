// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package apiclient implements the HTTP request layer for the FinOps
// analytics backend.
//
// Every logical call goes through Client.Request, which applies default
// headers and bearer auth, enforces a per-attempt deadline, retries
// retryable failures with exponential backoff, and converges every failure
// path onto the single *APIError shape. Callers never see a raw transport
// error.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/techcorp/finops-go/internal/config"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	// maxResponseSize caps response bodies to prevent memory exhaustion.
	maxResponseSize = 10 * 1024 * 1024 // 10MB

	// userAgent identifies the SDK to the backend.
	userAgent = "finops-go/1.0"
)

// sharedTransport pools connections across all clients.
// PERFORMANCE: Connection pooling reduces TCP handshake overhead.
var sharedTransport = &http.Transport{
	MaxIdleConns:        100,
	MaxIdleConnsPerHost: 10,
	IdleConnTimeout:     90 * time.Second,
	TLSHandshakeTimeout: 10 * time.Second,
}

// =============================================================================
// CLIENT
// =============================================================================

// Client executes requests against the analytics backend.
type Client struct {
	cfg        config.Config
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *log.Logger

	// sleep waits between attempts; replaced in tests to observe backoff.
	sleep func(ctx context.Context, d time.Duration) error
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient substitutes the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRateLimit throttles outgoing attempts to r requests per second with
// the given burst. Zero r disables throttling.
func WithRateLimit(r rate.Limit, burst int) Option {
	return func(c *Client) {
		if r > 0 {
			c.limiter = rate.NewLimiter(r, burst)
		}
	}
}

// WithLogger redirects diagnostic output.
func WithLogger(l *log.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a Client from the given configuration.
func New(cfg config.Config, opts ...Option) *Client {
	c := &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Transport: sharedTransport,
			// Per-attempt deadlines come from request contexts, not the
			// client, so overrides can exceed the configured default.
		},
		logger: log.Default(),
		sleep: func(ctx context.Context, d time.Duration) error {
			t := time.NewTimer(d)
			defer t.Stop()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-t.C:
				return nil
			}
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// =============================================================================
// REQUEST OPTIONS
// =============================================================================

// RequestOptions configures a single logical call. The zero value is a GET
// with configured defaults.
type RequestOptions struct {
	// Method defaults to GET.
	Method string

	// Headers are merged over the computed defaults; caller keys win.
	Headers map[string]string

	// Body is sent as-is when it is a string or []byte, otherwise it is
	// JSON marshaled. Nil means no body.
	Body any

	// Timeout overrides the configured per-attempt deadline when > 0.
	Timeout time.Duration

	// Retries overrides the configured retry budget when non-nil.
	// Zero means a single attempt with no retries.
	Retries *int
}

// =============================================================================
// REQUEST EXECUTION
// =============================================================================

// Request executes a call against endpoint (a fully qualified URL) and
// returns the raw response body. Attempts are strictly sequential: attempt
// n+1 never starts before attempt n's outcome and its backoff delay have
// both resolved. On failure the returned error is always a *APIError with
// RetryAttempts set to the retry budget that applied.
func (c *Client) Request(ctx context.Context, endpoint string, opts RequestOptions) ([]byte, error) {
	method := strings.ToUpper(opts.Method)
	if method == "" {
		method = http.MethodGet
	}

	retries := c.cfg.MaxRetries
	if opts.Retries != nil {
		retries = *opts.Retries
	}
	if retries < 0 {
		retries = 0
	}

	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, &APIError{
			Kind:          KindValidation,
			Message:       "endpoint must not be empty",
			Endpoint:      endpoint,
			Method:        method,
			RetryAttempts: retries,
		}
	}

	timeout := c.cfg.Timeout()
	if opts.Timeout > 0 {
		timeout = opts.Timeout
	}

	body, apiErr := encodeBody(opts.Body, endpoint, method, retries)
	if apiErr != nil {
		return nil, apiErr
	}

	headers := c.defaultHeaders(body != nil)
	for k, v := range opts.Headers {
		headers[k] = v
	}

	var lastErr *APIError
	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			// Exponential backoff, no jitter: delay after attempt n is
			// baseDelay * 2^n.
			delay := c.cfg.RetryDelay() * (1 << (attempt - 1))
			if err := c.sleep(ctx, delay); err != nil {
				break // context ended during backoff; surface the last error
			}
		}

		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				break
			}
		}

		c.logf("API request: %s %s (attempt %d/%d)", method, endpoint, attempt+1, retries+1)

		data, err := c.do(ctx, method, endpoint, headers, body, timeout, retries)
		if err == nil {
			return data, nil
		}

		lastErr = err
		c.logf("API attempt failed: %s %s: %s", method, endpoint, err.Message)

		if !err.retryable() {
			break
		}
	}

	if lastErr == nil {
		// Context ended before the first attempt completed.
		lastErr = &APIError{
			Kind:          KindNetwork,
			Message:       networkErrorMessage,
			Endpoint:      endpoint,
			Method:        method,
			RetryAttempts: retries,
		}
	}
	lastErr.RetryAttempts = retries
	return nil, lastErr
}

// do performs a single attempt under its own deadline.
func (c *Client) do(ctx context.Context, method, endpoint string, headers map[string]string, body []byte, timeout time.Duration, retries int) ([]byte, *APIError) {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(attemptCtx, method, endpoint, reader)
	if err != nil {
		return nil, &APIError{
			Kind:          KindValidation,
			Message:       fmt.Sprintf("failed to build request: %v", err),
			Endpoint:      endpoint,
			Method:        method,
			RetryAttempts: retries,
		}
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		// Deadline on the attempt context is a timeout; anything else on
		// the wire is a network failure.
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, &APIError{
				Kind:          KindTimeout,
				Message:       fmt.Sprintf("Request timed out after %dms", timeout.Milliseconds()),
				Status:        StatusTimeout,
				Endpoint:      endpoint,
				Method:        method,
				RetryAttempts: retries,
			}
		}
		return nil, &APIError{
			Kind:          KindNetwork,
			Message:       networkErrorMessage,
			Endpoint:      endpoint,
			Method:        method,
			RetryAttempts: retries,
		}
	}
	defer resp.Body.Close()

	c.logf("API response: %d %s (%v)", resp.StatusCode, http.StatusText(resp.StatusCode), duration)

	data, readErr := readResponse(resp)
	if readErr != nil {
		return nil, &APIError{
			Kind:          KindNetwork,
			Message:       networkErrorMessage,
			Endpoint:      endpoint,
			Method:        method,
			RetryAttempts: retries,
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{
			Kind:          KindHTTP,
			Message:       extractErrorMessage(data, resp.StatusCode, http.StatusText(resp.StatusCode)),
			Status:        resp.StatusCode,
			Endpoint:      endpoint,
			Method:        method,
			RetryAttempts: retries,
		}
	}

	return data, nil
}

// =============================================================================
// HELPERS
// =============================================================================

// encodeBody turns the caller's body into wire bytes. Strings and byte
// slices pass through verbatim; everything else is JSON marshaled.
func encodeBody(body any, endpoint, method string, retries int) ([]byte, *APIError) {
	switch v := body.(type) {
	case nil:
		return nil, nil
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, &APIError{
				Kind:          KindValidation,
				Message:       fmt.Sprintf("failed to serialize request body: %v", err),
				Endpoint:      endpoint,
				Method:        method,
				RetryAttempts: retries,
			}
		}
		return data, nil
	}
}

// defaultHeaders computes the headers every request starts from.
func (c *Client) defaultHeaders(hasBody bool) map[string]string {
	headers := map[string]string{
		"Accept":     "application/json",
		"User-Agent": userAgent,
	}
	if hasBody {
		headers["Content-Type"] = "application/json"
	}
	if c.cfg.APIKey != "" {
		headers["Authorization"] = "Bearer " + c.cfg.APIKey
	}
	return headers
}

// readResponse reads the body with a size limit.
// SECURITY: Response size limit prevents memory exhaustion.
func readResponse(resp *http.Response) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) == maxResponseSize {
		return nil, fmt.Errorf("response exceeded maximum size of %d bytes", maxResponseSize)
	}
	return data, nil
}

// logf writes a diagnostic line when debug is enabled.
func (c *Client) logf(format string, args ...any) {
	if c.cfg.Debug {
		c.logger.Printf(format, args...)
	}
}
