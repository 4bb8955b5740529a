package apiclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

// DefaultMaxAttempts is how many times a request is tried before giving up
const DefaultMaxAttempts = 3

// Config holds transport settings shared by the outbound API clients
type Config struct {
	// Name tags log lines, e.g. "VISION"
	Name              string
	Timeout           time.Duration
	RequestsPerMinute int
	Burst             int
	MaxAttempts       int
}

// Client is a rate limited JSON-over-HTTP transport with retries
type Client struct {
	name        string
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	maxAttempts int
	debug       bool
	sleep       func(context.Context, time.Duration) error
}

// Response is a fully read HTTP response
type Response struct {
	StatusCode int
	Body       []byte
}

// StatusError is returned when the remote API answers with a non-2xx status
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.StatusCode, e.Body)
}

// New creates a transport from the given configuration
func New(config Config) *Client {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	perMinute := config.RequestsPerMinute
	if perMinute <= 0 {
		perMinute = 60
	}
	burst := config.Burst
	if burst <= 0 {
		burst = 5
	}
	attempts := config.MaxAttempts
	if attempts <= 0 {
		attempts = DefaultMaxAttempts
	}

	return &Client{
		name:        config.Name,
		httpClient:  &http.Client{Timeout: timeout},
		rateLimiter: rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), burst),
		maxAttempts: attempts,
		sleep:       sleepContext,
	}
}

// SetDebug enables or disables request/response logging
func (c *Client) SetDebug(debug bool) {
	c.debug = debug
}

// PostJSON sends body to endpoint with the given headers. Transport errors, 429
// and 5xx responses are retried with exponential backoff; other non-2xx
// responses return a *StatusError immediately.
func (c *Client) PostJSON(ctx context.Context, endpoint string, headers map[string]string, body []byte) (*Response, error) {
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}

		resp, err := c.do(ctx, endpoint, headers, body)
		if err != nil {
			log.Printf("[%s] Request error (attempt %d): %v", c.name, attempt, err)
			lastErr = err
		} else if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			if c.debug {
				log.Printf("[%s] Response %d (%d bytes)", c.name, resp.StatusCode, len(resp.Body))
			}
			return resp, nil
		} else {
			statusErr := &StatusError{StatusCode: resp.StatusCode, Body: truncate(string(resp.Body), 512)}
			log.Printf("[%s] API error (attempt %d): %v", c.name, attempt, statusErr)
			if !retryable(resp.StatusCode) {
				return nil, statusErr
			}
			lastErr = statusErr
		}

		if attempt < c.maxAttempts {
			if err := c.sleep(ctx, exponentialBackoff(attempt)); err != nil {
				return nil, err
			}
		}
	}

	log.Printf("[%s] All %d attempts failed", c.name, c.maxAttempts)
	return nil, lastErr
}

func (c *Client) do(ctx context.Context, endpoint string, headers map[string]string, body []byte) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "SmartRation/1.0")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	if c.debug {
		log.Printf("[%s] POST %s%s (%d bytes)", c.name, req.URL.Host, req.URL.Path, len(body))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// query strings may carry credentials; keep them out of error text
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			urlErr.URL = req.URL.Scheme + "://" + req.URL.Host + req.URL.Path
		}
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return &Response{StatusCode: resp.StatusCode, Body: data}, nil
}

func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

// exponentialBackoff returns 500ms, 1s, 2s, ... for attempts 1, 2, 3, ...
func exponentialBackoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return time.Duration(500*(1<<(attempt-1))) * time.Millisecond
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
