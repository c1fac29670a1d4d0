// Package rest implements the crud capability contracts against HTTP resources.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/peluware/freddy/pkg/crud"
	"github.com/peluware/freddy/pkg/observability/logger"
	"github.com/peluware/freddy/pkg/observability/metrics"
	"github.com/peluware/freddy/pkg/observability/tracing"
	"github.com/peluware/freddy/pkg/problem"
	"github.com/peluware/freddy/pkg/resilience"
)

const maxBodyBytes = 4 << 20

// Config configures a Client.
type Config struct {
	BaseURL string
	// Timeout bounds each attempt; zero disables the per-call deadline
	Timeout time.Duration
	// Retry is the number of extra attempts for GET requests that failed at
	// the transport or with a 5xx status
	Retry int
	// RateLimit is the sustained requests per second; zero means unlimited
	RateLimit float64
	Burst     int
	// MaxFailures consecutive transport/5xx failures open a resource's breaker
	MaxFailures  int
	ResetTimeout time.Duration
	// UserAgent is sent with every request when set
	UserAgent string
}

// DefaultConfig returns the client defaults.
func DefaultConfig() Config {
	return Config{
		Timeout:      10 * time.Second,
		Retry:        1,
		MaxFailures:  5,
		ResetTimeout: 30 * time.Second,
	}
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger used for request and failure logging.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		c.log = logger.OrNop(l)
	}
}

// WithHTTPClient replaces the tuned default http.Client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.http = h
	}
}

// Client performs requests against one API base URL. Each resource path gets
// its own circuit breaker.
type Client struct {
	base    *url.URL
	cfg     Config
	http    *http.Client
	log     logger.Logger
	parser  *problem.Parser
	limiter *rate.Limiter

	mu       sync.Mutex
	breakers map[string]*resilience.CircuitBreaker
}

// NewClient creates a Client for cfg.BaseURL.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("rest: base URL is required")
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("rest: invalid base URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("rest: unsupported scheme %q", base.Scheme)
	}
	if cfg.Retry < 0 {
		cfg.Retry = 0
	}

	c := &Client{
		base:     base,
		cfg:      cfg,
		http:     NewHTTPClient(),
		log:      logger.Nop(),
		breakers: make(map[string]*resilience.CircuitBreaker),
	}
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	for _, opt := range opts {
		opt(c)
	}
	c.parser = problem.NewParser(c.log)
	return c, nil
}

// NewHTTPClient returns an http.Client with a pooled transport. Deadlines are
// applied per call through the request context.
func NewHTTPClient() *http.Client {
	tr := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          20,
		MaxConnsPerHost:       20,
		IdleConnTimeout:       30 * time.Second,
		ForceAttemptHTTP2:     true,
		ExpectContinueTimeout: 1 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
	}
	return &http.Client{Transport: tr}
}

// Parser returns the error parser bound to the client's logger.
func (c *Client) Parser() *problem.Parser {
	return c.parser
}

// RequestOptions customizes one outgoing request.
type RequestOptions struct {
	Header http.Header
	Query  url.Values
}

// RequestConfig resolves per-request options from the operation kind, e.g. to
// attach an authorization header only to writes.
type RequestConfig func(ctx context.Context, op crud.Operation) (RequestOptions, error)

type request struct {
	resource string
	op       crud.Operation
	method   string
	path     string
	query    url.Values
	body     any
	config   RequestConfig
}

// do runs req with retries for idempotent reads and returns the raw body.
// Failures are *problem.HTTPError or *problem.TransportError, except body
// encoding errors which are returned as is.
func (c *Client) do(ctx context.Context, req request) (json.RawMessage, error) {
	attempts := 1
	if req.method == http.MethodGet {
		attempts += c.cfg.Retry
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		raw, err := c.doOnce(ctx, req)
		if err == nil {
			return raw, nil
		}
		lastErr = err
		if i == attempts-1 || !retryable(err) {
			break
		}
		select {
		case <-time.After(time.Duration(150*(i+1)) * time.Millisecond):
		case <-ctx.Done():
			return nil, &problem.TransportError{Method: req.method, URL: req.path, Err: ctx.Err()}
		}
	}
	return nil, lastErr
}

func (c *Client) doOnce(ctx context.Context, req request) (json.RawMessage, error) {
	var opts RequestOptions
	if req.config != nil {
		var err error
		if opts, err = req.config(ctx, req.op); err != nil {
			return nil, fmt.Errorf("request config for %s: %w", req.op, err)
		}
	}
	target := c.resolve(req.path, req.query, opts.Query)

	var payload []byte
	if req.body != nil {
		var err error
		if payload, err = json.Marshal(req.body); err != nil {
			return nil, fmt.Errorf("encode %s body: %w", req.op, err)
		}
	}

	ctx, span := tracing.StartRemoteSpan(ctx, req.resource, string(req.op),
		tracing.WithHTTPMethod(req.method), tracing.WithHTTPURL(target))
	defer span.End()

	log := c.log.WithContext(ctx).With("resource", req.resource, "operation", string(req.op))

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			terr := &problem.TransportError{Method: req.method, URL: target, Err: err}
			tracing.RecordError(span, terr)
			return nil, terr
		}
	}

	var raw json.RawMessage
	err := c.breaker(req.resource).Execute(func() error {
		var callErr error
		raw, callErr = resilience.Call(ctx, c.cfg.Timeout, func(ctx context.Context) (json.RawMessage, error) {
			return c.roundTrip(ctx, req, target, payload, opts.Header, span)
		})
		return callErr
	})
	if err != nil {
		if errors.Is(err, resilience.ErrCircuitBreakerOpen) || errors.Is(err, resilience.ErrTimeout) ||
			errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			var terr *problem.TransportError
			if !errors.As(err, &terr) {
				err = &problem.TransportError{Method: req.method, URL: target, Err: err}
			}
		}
		tracing.RecordError(span, err)
		log.Warn("remote request failed", "method", req.method, "url", target, "error", err)
		return nil, err
	}

	tracing.RecordSuccess(span)
	log.Debug("remote request", "method", req.method, "url", target)
	return raw, nil
}

func (c *Client) roundTrip(ctx context.Context, req request, target string, payload []byte, header http.Header, span trace.Span) (json.RawMessage, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.method, target, body)
	if err != nil {
		return nil, &problem.TransportError{Method: req.method, URL: target, Err: err}
	}
	for k, vs := range header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	httpReq.Header.Set("Accept", "application/json")
	if c.cfg.UserAgent != "" {
		httpReq.Header.Set("User-Agent", c.cfg.UserAgent)
	}
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	tracing.InjectHeaders(ctx, httpReq.Header)

	metrics.IncrementInFlight()
	start := time.Now()
	resp, err := c.http.Do(httpReq)
	metrics.DecrementInFlight()
	if err != nil {
		metrics.RecordRemoteRequest(req.resource, string(req.op), metrics.StatusTransportError, time.Since(start))
		return nil, &problem.TransportError{Method: req.method, URL: target, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	metrics.RecordRemoteRequest(req.resource, string(req.op), resp.StatusCode, time.Since(start))
	tracing.SetHTTPStatus(span, resp.StatusCode)
	if err != nil {
		return nil, &problem.TransportError{Method: req.method, URL: target, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &problem.HTTPError{Method: req.method, URL: target, StatusCode: resp.StatusCode, Body: data}
	}
	return json.RawMessage(data), nil
}

func (c *Client) resolve(path string, query, extra url.Values) string {
	u := *c.base
	u.Path = strings.TrimRight(c.base.Path, "/") + path
	merged := url.Values{}
	for k, vs := range query {
		merged[k] = append(merged[k], vs...)
	}
	for k, vs := range extra {
		merged[k] = append(merged[k], vs...)
	}
	u.RawQuery = merged.Encode()
	return u.String()
}

func (c *Client) breaker(resource string) *resilience.CircuitBreaker {
	c.mu.Lock()
	defer c.mu.Unlock()

	if cb, ok := c.breakers[resource]; ok {
		return cb
	}
	maxFailures := c.cfg.MaxFailures
	if maxFailures <= 0 {
		maxFailures = DefaultConfig().MaxFailures
	}
	cb := resilience.NewCircuitBreaker(maxFailures, c.cfg.ResetTimeout,
		resilience.WithFailurePredicate(countsAgainstBreaker),
		resilience.WithStateListener(func(from, to resilience.State) {
			metrics.RecordCircuitTransition(resource, to.String())
			c.log.Warn("circuit breaker transition", "resource", resource, "from", from.String(), "to", to.String())
		}),
	)
	c.breakers[resource] = cb
	return cb
}

// countsAgainstBreaker is true for failures that indicate an unhealthy
// upstream: no response at all, a timeout, or a 5xx status.
func countsAgainstBreaker(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var httpErr *problem.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode >= http.StatusInternalServerError
	}
	return true
}

func retryable(err error) bool {
	if errors.Is(err, resilience.ErrCircuitBreakerOpen) || errors.Is(err, context.Canceled) {
		return false
	}
	var httpErr *problem.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode >= http.StatusInternalServerError
	}
	var terr *problem.TransportError
	return errors.As(err, &terr)
}
