// Package overpass is a small client for the Overpass API interpreter endpoint,
// specialised for fetching speed-camera nodes inside a bounding box.
package overpass

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/osm-cameras/internal/resilience"
)

const (
	// DefaultURL is the public interpreter endpoint.
	DefaultURL = "https://lz4.overpass-api.de/api/interpreter"
	// DefaultQueryTimeout is the server-side [timeout:] of each query.
	DefaultQueryTimeout = 180 * time.Second
	// DefaultHeadroom is added to the query timeout to get the HTTP timeout.
	DefaultHeadroom = 30 * time.Second
	// DefaultUserAgent identifies the client to the public service.
	DefaultUserAgent = "osm-cameras/1.0"
	// DefaultRatePerSec spaces requests to the shared endpoint.
	DefaultRatePerSec = 1.0
)

// ErrNoData is matched (errors.Is) by the error Fetch returns after every
// attempt for a box has failed. Callers skip the box and continue.
var ErrNoData = eris.New("overpass: no data")

// FetchError reports a box that exhausted its retries.
type FetchError struct {
	BBox     BBox
	Attempts int
	Err      error
}

func (e *FetchError) Error() string {
	return "overpass: no data for bbox " + e.BBox.String() + ": " + e.Err.Error()
}

func (e *FetchError) Unwrap() error { return e.Err }

// Is matches ErrNoData.
func (e *FetchError) Is(target error) bool { return target == ErrNoData }

// Options configures the client.
//
// RatePerSec 0 selects DefaultRatePerSec; a negative rate disables limiting.
type Options struct {
	URL          string
	QueryTimeout time.Duration
	Headroom     time.Duration
	UserAgent    string
	RatePerSec   float64
	Retry        resilience.RetryConfig
	HTTPClient   *http.Client
}

// Client fetches camera nodes from the Overpass API.
type Client struct {
	httpClient *http.Client
	opts       Options
	limiter    *AdaptiveLimiter
}

// NewClient creates a Client, filling unset options with defaults. The HTTP
// timeout is QueryTimeout + Headroom so the server times out first.
func NewClient(opts Options) *Client {
	if opts.URL == "" {
		opts.URL = DefaultURL
	}
	if opts.QueryTimeout <= 0 {
		opts.QueryTimeout = DefaultQueryTimeout
	}
	if opts.Headroom <= 0 {
		opts.Headroom = DefaultHeadroom
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.RatePerSec == 0 {
		opts.RatePerSec = DefaultRatePerSec
	}
	if opts.Retry.MaxAttempts <= 0 {
		opts.Retry.MaxAttempts = resilience.DefaultRetryConfig().MaxAttempts
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: opts.QueryTimeout + opts.Headroom,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}

	return &Client{
		httpClient: httpClient,
		opts:       opts,
		limiter:    NewAdaptiveLimiter(rate.Limit(opts.RatePerSec), 1),
	}
}

// Timeout returns the HTTP timeout applied to each request.
func (c *Client) Timeout() time.Duration {
	return c.httpClient.Timeout
}

// Fetch runs the camera query for box. Rate limiting (429) and server errors
// grow the backoff; any other failure is retried at the current backoff. When
// every attempt fails the returned error matches ErrNoData.
func (c *Client) Fetch(ctx context.Context, box BBox) (*Response, error) {
	query := BuildQuery(box, c.opts.QueryTimeout)
	log := zap.L().With(zap.String("component", "overpass"), zap.String("bbox", box.String()))

	cfg := c.opts.Retry
	cfg.Classify = Classify
	cfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		log.Warn("fetch failed, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("backoff", delay),
			zap.Error(err),
		)
	}

	attempts := 0
	resp, err := resilience.DoVal(ctx, cfg, func(ctx context.Context) (*Response, error) {
		attempts++
		log.Info("fetching bbox",
			zap.Int("attempt", attempts),
			zap.Int("max_attempts", cfg.MaxAttempts),
		)
		return c.do(ctx, query)
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, eris.Wrap(err, "overpass: fetch cancelled")
		}
		log.Error("giving up on bbox", zap.Int("attempts", attempts), zap.Error(err))
		return nil, &FetchError{BBox: box, Attempts: attempts, Err: err}
	}

	if resp.Remark != "" {
		log.Warn("overpass remark", zap.String("remark", resp.Remark))
	}
	return resp, nil
}

// Classify maps a failed attempt to a retry action: 429 and 5xx back off,
// cancellation aborts, everything else is retried at the current delay.
func Classify(err error) resilience.Action {
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		return resilience.Abort
	case resilience.IsRateLimitOrServerError(err):
		return resilience.Backoff
	default:
		return resilience.Retry
	}
}

func (c *Client) do(ctx context.Context, query string) (*Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "overpass: rate limiter wait")
	}

	reqURL := c.opts.URL + "?" + url.Values{"data": {query}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "overpass: build request")
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "overpass: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		drain(resp.Body)
		c.limiter.OnRateLimit()
		return nil, resilience.NewTransientError(eris.New("overpass: rate limited (429)"), resp.StatusCode)
	case resilience.IsTransientHTTPStatus(resp.StatusCode) || resp.StatusCode >= 500:
		drain(resp.Body)
		return nil, resilience.NewTransientError(eris.Errorf("overpass: transient status %d", resp.StatusCode), resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		drain(resp.Body)
		return nil, eris.Errorf("overpass: unexpected status %d", resp.StatusCode)
	}

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, eris.Wrap(err, "overpass: decode response")
	}
	c.limiter.OnSuccess()
	return &out, nil
}

func drain(r io.Reader) {
	_, _ = io.Copy(io.Discard, io.LimitReader(r, 64<<10))
}
