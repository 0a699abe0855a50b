// Package client provides the pooled portal HTTP client with retry logic
// and error classification.
package client

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/prajeetp/bhbatch/pkg/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for portal request operations.
var (
	portalRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_requests_total",
		Help: "Total portal requests by endpoint and status",
	}, []string{"endpoint", "status"})

	portalRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "portal_request_duration_seconds",
		Help:    "Portal request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	}, []string{"endpoint"})

	portalErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_errors_total",
		Help: "Total portal errors by class",
	}, []string{"class"})
)

// Response is the outcome of a single request attempt that reached the
// portal. StatusCode 0 never appears here; transport failures surface as
// errors instead so callers can tell "never got a response" from "got an
// error status".
type Response struct {
	StatusCode int
	Body       string
}

// OK reports whether the status is in the success range (200-399). The
// portal answers form posts with redirects, so 3xx counts as success.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 400
}

// Config holds the client configuration.
type Config struct {
	// DefaultTimeout applies when a call passes timeout 0.
	DefaultTimeout time.Duration

	// MaxIdleConns bounds the pooled keep-alive connections. All workers
	// share this one client, so the pool should cover the batch concurrency.
	MaxIdleConns int
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig() Config {
	return Config{
		DefaultTimeout: 30 * time.Second,
		MaxIdleConns:   20,
	}
}

// Client is the pooled portal client. One Client is built per session and
// shared by all batch workers; it is safe for concurrent use. After Dispose
// every call fails fast with ErrClientDisposed.
type Client struct {
	sess       *session.Context
	httpClient *http.Client
	config     Config
	logger     zerolog.Logger
	disposed   atomic.Bool
}

// New builds a pooled client from the session context. The underlying
// transport is created once: cookie jar seeded from the stored auth state,
// TLS policy from the session, keep-alive connections reused across calls.
func New(sess *session.Context, cfg Config) (*Client, error) {
	if sess == nil {
		return nil, fmt.Errorf("session context is required")
	}
	if cfg.DefaultTimeout <= 0 {
		cfg.DefaultTimeout = 30 * time.Second
	}
	if cfg.MaxIdleConns <= 0 {
		cfg.MaxIdleConns = 20
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	base, err := url.Parse(sess.BaseURL())
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}
	jar.SetCookies(base, sess.Cookies())

	transport := &http.Transport{
		MaxIdleConns:        cfg.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.MaxIdleConns,
		IdleConnTimeout:     90 * time.Second,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: !sess.VerifyTLS(),
		},
	}

	logger := log.With().Str("component", "portal-client").Logger()

	return &Client{
		sess: sess,
		httpClient: &http.Client{
			Transport: transport,
			Jar:       jar,
		},
		config: cfg,
		logger: logger,
	}, nil
}

// Get performs a GET against a relative portal path with query parameters.
// timeout 0 uses the configured default.
func (c *Client) Get(ctx context.Context, path string, params url.Values, timeout time.Duration) (*Response, error) {
	return c.do(ctx, http.MethodGet, path, params, nil, timeout)
}

// Post performs a form-encoded POST against a relative portal path. params
// go into the query string (the portal keys record updates off a query-side
// id), form into the body.
func (c *Client) Post(ctx context.Context, path string, params, form url.Values, timeout time.Duration) (*Response, error) {
	return c.do(ctx, http.MethodPost, path, params, form, timeout)
}

func (c *Client) do(ctx context.Context, method, path string, params, form url.Values, timeout time.Duration) (*Response, error) {
	if c.disposed.Load() {
		return nil, ErrClientDisposed
	}
	if timeout <= 0 {
		timeout = c.config.DefaultTimeout
	}

	target := c.sess.Resolve(path)
	if len(params) > 0 {
		target.RawQuery = params.Encode()
	}
	endpoint := target.Path

	start := time.Now()
	defer func() {
		portalRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	}()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if user, pass, ok := c.sess.BasicAuth(); ok {
		req.SetBasicAuth(user, pass)
	}

	c.logger.Debug().
		Str("endpoint", endpoint).
		Str("method", method).
		Dur("timeout", timeout).
		Msg("Executing portal request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Never got a response: DNS, TLS, connection reset, attempt timeout.
		portalErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		portalRequestsTotal.WithLabelValues(endpoint, "network_error").Inc()
		c.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("Portal request failed at transport level")
		return nil, &PortalError{Class: ErrorClassNetwork, Message: "transport failure", Err: err}
	}
	defer resp.Body.Close()

	text, err := io.ReadAll(resp.Body)
	if err != nil {
		portalErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		portalRequestsTotal.WithLabelValues(endpoint, "network_error").Inc()
		return nil, &PortalError{Class: ErrorClassNetwork, Message: "read response body", Err: err}
	}

	portalRequestsTotal.WithLabelValues(endpoint, fmt.Sprintf("%d", resp.StatusCode)).Inc()
	if resp.StatusCode >= 400 {
		portalErrorsTotal.WithLabelValues(string(ClassifyStatus(resp.StatusCode))).Inc()
		c.logger.Warn().
			Str("endpoint", endpoint).
			Int("status", resp.StatusCode).
			Msg("Portal request returned error status")
	}

	return &Response{StatusCode: resp.StatusCode, Body: string(text)}, nil
}

// Dispose releases the pooled connections. Further calls fail fast with
// ErrClientDisposed rather than silently reconnecting.
func (c *Client) Dispose() {
	if c.disposed.Swap(true) {
		return
	}
	if t, ok := c.httpClient.Transport.(*http.Transport); ok {
		t.CloseIdleConnections()
	}
	c.logger.Debug().Msg("Portal client disposed")
}

// Disposed reports whether Dispose has been called.
func (c *Client) Disposed() bool {
	return c.disposed.Load()
}

// Session returns the session context this client was built from.
func (c *Client) Session() *session.Context {
	return c.sess
}

// SetHTTPClient swaps the underlying HTTP client (for testing).
func (c *Client) SetHTTPClient(hc *http.Client) {
	c.httpClient = hc
}
