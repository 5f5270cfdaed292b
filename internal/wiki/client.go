package wiki

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ppiankov/wikipub/internal/metrics"
	"github.com/ppiankov/wikipub/internal/model"
	"github.com/ppiankov/wikipub/internal/util"
)

const defaultAttempts = 3

// fetchSleepFunc is replaced in tests to skip backoff delays
var fetchSleepFunc = time.Sleep

// Client talks to MediaWiki action APIs. It keeps session cookies, so one
// client is shared by everything that needs a login.
type Client struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
	attempts   int
	maxLag     int
	limiter    *Limiter
	metrics    *metrics.Metrics
	log        zerolog.Logger
}

// NewClient creates an API client from the HTTP configuration
func NewClient(cfg model.HTTPConfig, limiter *Limiter, m *metrics.Metrics, log zerolog.Logger) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = util.NewProxyFunc(cfg.HTTPProxy, cfg.HTTPSProxy, cfg.NoProxy)

	attempts := cfg.MaxRetries
	if attempts <= 0 {
		attempts = defaultAttempts
	}
	maxBytes := cfg.MaxBodyBytes
	if maxBytes <= 0 {
		maxBytes = 8_000_000
	}

	return &Client{
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Jar:       jar,
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("stopped after 3 redirects")
				}
				return nil
			},
		},
		userAgent: cfg.UserAgent,
		maxBytes:  maxBytes,
		attempts:  attempts,
		maxLag:    cfg.MaxLag,
		limiter:   limiter,
		metrics:   m,
		log:       log,
	}, nil
}

// Get performs a read request and decodes the JSON response into out
func (c *Client) Get(ctx context.Context, api string, params url.Values, out any) error {
	return c.doWithRetry(ctx, http.MethodGet, api, params, out)
}

// Post performs a write request and decodes the JSON response into out
func (c *Client) Post(ctx context.Context, api string, params url.Values, out any) error {
	return c.doWithRetry(ctx, http.MethodPost, api, params, out)
}

// doWithRetry retries transient failures with exponential backoff. Maxlag
// errors wait for the server's Retry-After instead.
func (c *Client) doWithRetry(ctx context.Context, method, api string, params url.Values, out any) error {
	var lastErr error
	for attempt := 0; attempt < c.attempts; attempt++ {
		if attempt > 0 {
			c.metrics.Retry()
			delay := backoff(attempt, lastErr)
			c.log.Debug().Err(lastErr).Int("attempt", attempt+1).Dur("delay", delay).
				Str("action", params.Get("action")).Msg("retrying API request")
			fetchSleepFunc(delay)
			if err := ctx.Err(); err != nil {
				return err
			}
		}

		err := c.do(ctx, method, api, params, out)
		if err == nil {
			return nil
		}
		lastErr = err
		if !isRetryableFetchError(err) {
			return err
		}
	}
	return lastErr
}

func backoff(attempt int, err error) time.Duration {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.RetryAfter > 0 {
		return apiErr.RetryAfter
	}
	return time.Duration(1<<(attempt-1)) * time.Second
}

func (c *Client) do(ctx context.Context, method, api string, params url.Values, out any) error {
	if err := c.limiter.Wait(ctx, api); err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}

	query := url.Values{}
	for k, v := range params {
		query[k] = v
	}
	query.Set("format", "json")
	query.Set("formatversion", "2")
	if c.maxLag > 0 {
		query.Set("maxlag", strconv.Itoa(c.maxLag))
	}

	var (
		req *http.Request
		err error
	)
	if method == http.MethodPost {
		req, err = http.NewRequestWithContext(ctx, method, api, strings.NewReader(query.Encode()))
		if err == nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	} else {
		req, err = http.NewRequestWithContext(ctx, method, api+"?"+query.Encode(), nil)
	}
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.Request(api, 0)
		return fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	c.metrics.Request(api, resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Code: resp.StatusCode, Status: resp.Status}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}

	var envelope struct {
		Error *APIError `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if envelope.Error != nil {
		if envelope.Error.Code == "maxlag" {
			if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil {
				envelope.Error.RetryAfter = time.Duration(secs) * time.Second
			}
		}
		return envelope.Error
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// StatusError is a non-2xx HTTP response
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status: %d %s", e.Code, e.Status)
}

// APIError is the error object of a MediaWiki API response
type APIError struct {
	Code       string        `json:"code"`
	Info       string        `json:"info"`
	RetryAfter time.Duration `json:"-"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %s: %s", e.Code, e.Info)
}

// Is maps missing-entity errors onto model.ErrItemNotFound
func (e *APIError) Is(target error) bool {
	if target != model.ErrItemNotFound {
		return false
	}
	switch e.Code {
	case "no-such-entity", "no-such-entity-link", "missingtitle":
		return true
	}
	return false
}

// isRetryableFetchError reports whether a request may succeed when repeated
func isRetryableFetchError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code == http.StatusTooManyRequests || statusErr.Code >= 500
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case "maxlag", "ratelimited", "readonly", "internal_api_error_DBQueryError":
			return true
		}
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	msg := err.Error()
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection reset") ||
		(strings.HasPrefix(msg, "fetch:") && strings.Contains(msg, "EOF"))
}
