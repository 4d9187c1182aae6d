// Package fetch retrieves listing and detail pages over HTTP with
// rate-limit-aware retries. Only rate limiting triggers a retry; every
// other failure is reported immediately so a broken source cannot stall
// a whole collection run.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"
)

// Policy defines how rate-limit retries are handled.
type Policy struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	BackoffFactor  float64
}

// DefaultPolicy returns the default backoff schedule: 5s, 10s, 20s.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:     3,
		InitialBackoff: 5 * time.Second,
		MaxBackoff:     60 * time.Second,
		BackoffFactor:  2.0,
	}
}

// RateLimitError indicates the remote host asked us to slow down.
type RateLimitError struct {
	URL        string
	StatusCode int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited fetching %s (status %d)", e.URL, e.StatusCode)
}

// IsRateLimit reports whether err is a rate-limit rejection.
func IsRateLimit(err error) bool {
	var rl *RateLimitError
	return errors.As(err, &rl)
}

// Result is the outcome of fetching a single URL. Size is the decoded body
// length in bytes; it is reported even for failed fetches so callers can log
// truncated responses.
type Result struct {
	URL  string
	Body string
	Size int
	Err  error
}

// Success reports whether the fetch produced a usable body.
func (r Result) Success() bool {
	return r.Err == nil
}

// Client fetches pages with retry-on-rate-limit semantics. The sleep hook
// exists so tests can observe backoff without waiting.
type Client struct {
	http    *http.Client
	policy  Policy
	logger  *slog.Logger
	sleep   func(ctx context.Context, d time.Duration) error
	onRetry func()
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithPolicy overrides the retry policy.
func WithPolicy(p Policy) Option {
	return func(c *Client) { c.policy = p }
}

// WithSleep overrides the backoff sleep function.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Client) { c.sleep = fn }
}

// WithRetryHook registers a callback invoked once per retry.
func WithRetryHook(fn func()) Option {
	return func(c *Client) { c.onRetry = fn }
}

// New constructs a Client with the default policy.
func New(logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		http:   &http.Client{Timeout: 30 * time.Second},
		policy: DefaultPolicy(),
		logger: logger,
		sleep:  sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get fetches url, retrying with exponential backoff when the host rate
// limits us. Non-rate-limit failures return immediately.
func (c *Client) Get(ctx context.Context, url string) Result {
	var lastErr error

	for attempt := 0; attempt <= c.policy.MaxRetries; attempt++ {
		body, size, err := c.fetchOnce(ctx, url)
		if err == nil {
			return Result{URL: url, Body: body, Size: size}
		}

		lastErr = err

		if !IsRateLimit(err) {
			return Result{URL: url, Size: size, Err: err}
		}

		if attempt == c.policy.MaxRetries {
			break
		}

		backoff := c.backoff(attempt)
		c.logger.Warn("rate limited, backing off",
			"url", url,
			"attempt", attempt+1,
			"backoff", backoff.String(),
		)
		if c.onRetry != nil {
			c.onRetry()
		}

		if err := c.sleep(ctx, backoff); err != nil {
			return Result{URL: url, Err: fmt.Errorf("fetch cancelled: %w", err)}
		}
	}

	return Result{URL: url, Err: fmt.Errorf("max retries exceeded (%d): %w", c.policy.MaxRetries, lastErr)}
}

func (c *Client) fetchOnce(ctx context.Context, url string) (string, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "eventdash/1.0")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", 0, fmt.Errorf("read body of %s: %w", url, err)
	}
	body := string(raw)

	if rateLimited(resp.StatusCode, body) {
		return "", len(body), &RateLimitError{URL: url, StatusCode: resp.StatusCode}
	}

	if resp.StatusCode != http.StatusOK {
		return "", len(body), fmt.Errorf("fetch %s: unexpected status %d", url, resp.StatusCode)
	}

	return body, len(body), nil
}

// Some hosts return 200 with a rate-limit interstitial instead of a 429, so
// the body text is checked as well.
func rateLimited(status int, body string) bool {
	if status == http.StatusTooManyRequests {
		return true
	}
	return strings.Contains(strings.ToLower(body), "rate limit exceeded")
}

func (c *Client) backoff(attempt int) time.Duration {
	d := float64(c.policy.InitialBackoff) * math.Pow(c.policy.BackoffFactor, float64(attempt))
	if d > float64(c.policy.MaxBackoff) {
		d = float64(c.policy.MaxBackoff)
	}
	return time.Duration(d)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
