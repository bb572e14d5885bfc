// Package rest is the shared JSON transport for both provider clients. It
// owns the retry/backoff policy: throttled requests are retried with an
// exponentially doubling delay, honoring a server Retry-After hint when one
// is present, up to a bounded attempt budget.
package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// APIError is a non-200 response (or an exhausted retry budget). Callers
// match it with errors.As and branch on RateLimited.
type APIError struct {
	Status      int
	URL         string
	Body        string
	RateLimited bool
	RetryAfter  time.Duration
}

func (e *APIError) Error() string {
	return fmt.Sprintf("http %d %s: %s", e.Status, e.URL, e.Body)
}

func newAPIError(resp *http.Response, body []byte) *APIError {
	e := &APIError{
		Status:      resp.StatusCode,
		URL:         resp.Request.URL.String(),
		Body:        strings.TrimSpace(string(body)),
		RateLimited: resp.StatusCode == http.StatusTooManyRequests,
	}
	if ra := resp.Header.Get("Retry-After"); ra != "" {
		if secs, err := strconv.Atoi(ra); err == nil && secs > 0 {
			e.RetryAfter = time.Duration(secs) * time.Second
		}
	}
	return e
}

type Client struct {
	http        *http.Client
	log         *zap.Logger
	maxAttempts int
	baseDelay   time.Duration

	// sleep is swappable in tests so backoff runs without wall-clock waits.
	sleep func(ctx context.Context, d time.Duration) error
}

func NewClient(log *zap.Logger, timeout time.Duration, maxAttempts int, baseDelay time.Duration) *Client {
	if maxAttempts <= 0 {
		maxAttempts = 6
	}
	if baseDelay <= 0 {
		baseDelay = time.Second
	}
	return &Client{
		http:        &http.Client{Timeout: timeout},
		log:         log,
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
		sleep:       sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// DoJSON performs the request produced by build, decoding a 200 body into v.
// build is a factory because request bodies cannot be replayed across
// retries. Only throttling is retried; any other failure surfaces
// immediately as an *APIError or transport error.
func (c *Client) DoJSON(ctx context.Context, build func() (*http.Request, error), v any) error {
	var last error
	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		if attempt > 0 {
			delay := c.baseDelay << (attempt - 1)
			var ae *APIError
			if errors.As(last, &ae) && ae.RetryAfter > 0 {
				delay = ae.RetryAfter
			}
			c.log.Warn("throttled, backing off",
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
			)
			if err := c.sleep(ctx, delay); err != nil {
				return err
			}
		}

		req, err := build()
		if err != nil {
			return err
		}
		resp, err := c.http.Do(req.WithContext(ctx))
		if err != nil {
			return err
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return err
		}

		if resp.StatusCode == http.StatusOK {
			return json.Unmarshal(body, v)
		}
		ae := newAPIError(resp, body)
		if !ae.RateLimited {
			return ae
		}
		last = ae
	}
	return last
}

// GetJSON is DoJSON for a plain GET with optional headers.
func (c *Client) GetJSON(ctx context.Context, url string, header http.Header, v any) error {
	return c.DoJSON(ctx, func() (*http.Request, error) {
		req, err := http.NewRequest(http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		for k, vals := range header {
			for _, hv := range vals {
				req.Header.Add(k, hv)
			}
		}
		return req, nil
	}, v)
}
