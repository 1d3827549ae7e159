// Package fetch is the network substrate behind the ajax and vars verbs.
// GET responses are cached and identical concurrent GETs share one request.
// Relative and file:// locations are read from the page's base directory.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/phillarmonic/dotpipe/internal/cache"
)

// MaxBodySize caps the bytes read from one response
const MaxBodySize = 10 << 20

// Request describes one fetch
type Request struct {
	Method string
	URL    string
	Body   string
}

// Cache is the response store consulted for GET requests
type Cache interface {
	Get(key string) ([]byte, bool, error)
	Set(key string, content []byte, ttl time.Duration) error
}

// StatusError reports a non-2xx response
type StatusError struct {
	Method string
	URL    string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.URL, e.Status, http.StatusText(e.Status))
}

// Client performs requests for one page
type Client struct {
	httpClient *http.Client
	base       string
	cache      Cache
	ttl        time.Duration
	retry      *RetryConfig
	userAgent  string
	auth       map[string]Auth
	logger     *slog.Logger
	group      singleflight.Group
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the per-request timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithBase sets the location relative URLs resolve against: a directory
// or an http(s) URL.
func WithBase(base string) Option {
	return func(c *Client) {
		c.base = base
	}
}

// WithCache enables response caching for GET requests
func WithCache(store Cache, ttl time.Duration) Option {
	return func(c *Client) {
		c.cache = store
		c.ttl = ttl
	}
}

// WithRetry configures retries; nil disables them
func WithRetry(cfg *RetryConfig) Option {
	return func(c *Client) {
		c.retry = cfg
	}
}

// WithUserAgent sets the User-Agent header
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithLogger sets the diagnostic logger
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates a Client
func New(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		retry:      DefaultRetry(),
		userAgent:  "dotpipe/dev",
		logger:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Do performs req and returns the response body as text
func (c *Client) Do(ctx context.Context, req Request) (string, error) {
	method := strings.ToUpper(req.Method)
	if method == "" {
		method = http.MethodGet
	}

	loc, err := c.resolve(req.URL)
	if err != nil {
		return "", err
	}

	if loc.Scheme == "file" {
		if method != http.MethodGet {
			return "", fmt.Errorf("%s not supported for local file %s", method, loc.Path)
		}
		return readFile(loc.Path)
	}

	if method != http.MethodGet {
		body, err := c.send(ctx, method, loc.String(), req.Body)
		return string(body), err
	}

	key := cache.GenerateKey("fetch", method, loc.String())
	if c.cache != nil {
		if content, hit, err := c.cache.Get(key); err != nil {
			c.logger.Warn("cache read failed", "url", loc.String(), "error", err)
		} else if hit {
			c.logger.Debug("cache hit", "url", loc.String())
			return string(content), nil
		}
	}

	v, err, shared := c.group.Do(key, func() (any, error) {
		body, err := c.send(ctx, method, loc.String(), "")
		if err != nil {
			return nil, err
		}
		if c.cache != nil {
			if err := c.cache.Set(key, body, c.ttl); err != nil {
				c.logger.Warn("cache write failed", "url", loc.String(), "error", err)
			}
		}
		return body, nil
	})
	if err != nil {
		return "", err
	}
	if shared {
		c.logger.Debug("shared in-flight request", "url", loc.String())
	}
	return string(v.([]byte)), nil
}

// resolve turns a raw location into an absolute URL
func (c *Client) resolve(raw string) (*url.URL, error) {
	ref, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid url %q: %w", raw, err)
	}
	switch ref.Scheme {
	case "http", "https":
		return ref, nil
	case "file":
		return ref, nil
	case "":
	default:
		return nil, fmt.Errorf("unsupported scheme %q", ref.Scheme)
	}

	if strings.HasPrefix(c.base, "http://") || strings.HasPrefix(c.base, "https://") {
		base, err := url.Parse(c.base)
		if err != nil {
			return nil, fmt.Errorf("invalid base %q: %w", c.base, err)
		}
		return base.ResolveReference(ref), nil
	}

	path := filepath.FromSlash(ref.Path)
	if !filepath.IsAbs(path) || c.base != "" {
		path = filepath.Join(c.base, path)
	}
	return &url.URL{Scheme: "file", Path: path}, nil
}

// send performs a network request with retries
func (c *Client) send(ctx context.Context, method, target, body string) ([]byte, error) {
	attempts := 1
	if c.retry != nil && c.retry.MaxAttempts > 1 && method == http.MethodGet {
		attempts = c.retry.MaxAttempts
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			delay := c.retry.Backoff.NextDelay(attempt - 1)
			c.logger.Debug("retrying request", "url", target, "attempt", attempt+1, "delay", delay)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		resp, err := c.roundTrip(ctx, method, target, body)
		if c.retry != nil && attempt < attempts-1 && c.retry.RetryIf(resp, err) {
			if resp != nil {
				_ = resp.Body.Close()
				lastErr = &StatusError{Method: method, URL: target, Status: resp.StatusCode}
			} else {
				lastErr = err
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", method, target, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, &StatusError{Method: method, URL: target, Status: resp.StatusCode}
		}
		data, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodySize))
		if err != nil {
			return nil, fmt.Errorf("failed to read response: %w", err)
		}
		return data, nil
	}
	return nil, lastErr
}

func (c *Client) roundTrip(ctx context.Context, method, target, body string) (*http.Response, error) {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)
	c.authorize(req)
	if body != "" {
		if strings.HasPrefix(strings.TrimSpace(body), "{") {
			req.Header.Set("Content-Type", "application/json")
		} else {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	}
	return c.httpClient.Do(req)
}

func readFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}
