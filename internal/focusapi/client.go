// Package focusapi fetches raw activity payloads from the focus tracker backend.
package focusapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/focusnest/gamification-service/shared/telemetry"
)

// DefaultBaseURL is the tracker backend's address on the local network.
const DefaultBaseURL = "http://team9.local:8000"

const maxBodyBytes = 8 << 20

// ErrInvalidBaseURL is returned when the configured base URL is not an absolute http(s) URL.
var ErrInvalidBaseURL = errors.New("invalid backend base url")

// HTTPError is a non-2xx backend response.
type HTTPError struct {
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	body := strings.TrimSpace(e.Body)
	if body == "" {
		body = "No body"
	}
	if len(body) > 256 {
		body = body[:256] + "..."
	}
	return fmt.Sprintf("backend HTTP %d: %s", e.Status, body)
}

// BaseURLSource supplies the backend base URL for each request. It is
// consulted per call so a settings change takes effect immediately.
type BaseURLSource interface {
	BaseURL(ctx context.Context) (string, error)
}

// StaticBaseURL is a BaseURLSource that never changes.
type StaticBaseURL string

func (s StaticBaseURL) BaseURL(context.Context) (string, error) { return string(s), nil }

// Client issues requests against the backend. Concurrent GETs for the same
// URL share one round trip.
type Client struct {
	httpClient *http.Client
	base       BaseURLSource
	metrics    *telemetry.Metrics
	group      singleflight.Group
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithMetrics records fetch outcomes.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// NewClient creates a backend client. A non-positive timeout defaults to 10s.
func NewClient(base BaseURLSource, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if base == nil {
		base = StaticBaseURL(DefaultBaseURL)
	}
	c := &Client{
		httpClient: &http.Client{Timeout: timeout},
		base:       base,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchStatus returns the raw /status/{username} payload.
func (c *Client) FetchStatus(ctx context.Context, username string) ([]byte, error) {
	return c.get(ctx, "status_user", "/status/"+url.PathEscape(username))
}

// FetchAll returns the raw /status payload listing every user.
func (c *Client) FetchAll(ctx context.Context) ([]byte, error) {
	return c.get(ctx, "status_all", "/status")
}

// FetchUsers returns the raw /users payload.
func (c *Client) FetchUsers(ctx context.Context) ([]byte, error) {
	return c.get(ctx, "users", "/users")
}

// FetchRank returns the raw /rank payload.
func (c *Client) FetchRank(ctx context.Context) ([]byte, error) {
	return c.get(ctx, "rank", "/rank")
}

// FetchButtonStatus returns the raw /button/status payload of the tracker device.
func (c *Client) FetchButtonStatus(ctx context.Context) ([]byte, error) {
	return c.get(ctx, "button_status", "/button/status")
}

// ToggleButton flips the tracker device on or off. It is never shared
// between callers.
func (c *Client) ToggleButton(ctx context.Context) ([]byte, error) {
	target, err := c.resolve(ctx, "/button/toggle")
	if err != nil {
		return nil, err
	}
	body, err := c.do(ctx, http.MethodPost, target)
	c.metrics.ObserveFetch("button_toggle", err)
	return body, err
}

func (c *Client) resolve(ctx context.Context, path string) (string, error) {
	base, err := c.base.BaseURL(ctx)
	if err != nil {
		return "", fmt.Errorf("resolve base url: %w", err)
	}
	return JoinURL(base, path)
}

func (c *Client) get(ctx context.Context, endpoint, path string) ([]byte, error) {
	target, err := c.resolve(ctx, path)
	if err != nil {
		return nil, err
	}

	// The shared round trip must not die with whichever caller started it.
	ch := c.group.DoChan(target, func() (any, error) {
		return c.do(context.WithoutCancel(ctx), http.MethodGet, target)
	})

	select {
	case <-ctx.Done():
		c.metrics.ObserveFetch(endpoint, ctx.Err())
		return nil, ctx.Err()
	case res := <-ch:
		c.metrics.ObserveFetch(endpoint, res.Err)
		if res.Err != nil {
			return nil, res.Err
		}
		body := res.Val.([]byte)
		return append([]byte(nil), body...), nil
	}
}

func (c *Client) do(ctx context.Context, method, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", strings.ToLower(method), target, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", target, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPError{Status: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}

// JoinURL combines base and path with exactly one slash between them.
func JoinURL(base, path string) (string, error) {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	u, err := url.Parse(base)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidBaseURL, base)
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return base + path, nil
}
