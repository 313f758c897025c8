package http

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"apitester/internal/model"
)

const (
	// MaxResponseSize limits response body to 50MB to prevent memory exhaustion
	MaxResponseSize = 50 * 1024 * 1024

	// Default timeout for HTTP requests
	DefaultTimeout = 30 * time.Second

	// DefaultMaxIdleConns is the maximum number of idle connections in the pool
	DefaultMaxIdleConns = 100
	// DefaultIdleConnTimeout is how long idle connections stay in the pool
	DefaultIdleConnTimeout = 90 * time.Second
)

// result is what a transport hands back before normalization
type result struct {
	status     int
	statusText string
	headers    map[string]string
	data       model.Payload
}

type transport interface {
	roundTrip(ctx context.Context, call *Call) (*result, error)
}

// Client dispatches composed requests, either directly or through a relay,
// and normalizes whatever comes back into a model.Response
type Client struct {
	httpClient *http.Client
	timeout    time.Duration
	relayURL   string
	log        zerolog.Logger
	loading    atomic.Bool
}

type ClientOption func(*Client)

// NewClient creates a new HTTP client
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		timeout: DefaultTimeout,
		log:     zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient == nil {
		c.httpClient = &http.Client{
			Transport: &http.Transport{
				Proxy:           http.ProxyFromEnvironment,
				MaxIdleConns:    DefaultMaxIdleConns,
				IdleConnTimeout: DefaultIdleConnTimeout,
			},
			Timeout: c.timeout,
		}
	}

	return c
}

// WithTimeout sets the per-call timeout
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithRelay routes every call through the relay at relayURL
func WithRelay(relayURL string) ClientOption {
	return func(c *Client) {
		c.relayURL = relayURL
	}
}

// WithHTTPClient replaces the underlying http.Client
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func WithLogger(l zerolog.Logger) ClientOption {
	return func(c *Client) {
		c.log = l
	}
}

// Loading reports whether a call is in flight
func (c *Client) Loading() bool {
	return c.loading.Load()
}

// ViaRelay reports whether calls go through the relay
func (c *Client) ViaRelay() bool {
	return c.relayURL != ""
}

func (c *Client) transport() transport {
	if c.relayURL != "" {
		return &relayTransport{client: c.httpClient, endpoint: c.relayURL}
	}
	return &directTransport{client: c.httpClient, log: c.log}
}

// Do executes a request and returns either the normalized response or a
// user-facing error, never both. Non-2xx statuses are responses, not errors.
func (c *Client) Do(ctx context.Context, req *model.Request) (*model.Response, error) {
	call := BuildCall(req, c.timeout)

	if call.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, call.Timeout)
		defer cancel()
	}

	c.log.Debug().
		Str("method", call.Method).
		Str("url", call.URL).
		Bool("relay", c.ViaRelay()).
		Msg("dispatching request")

	c.loading.Store(true)
	start := time.Now()
	res, err := c.transport().roundTrip(ctx, call)
	elapsed := time.Since(start)
	c.loading.Store(false)

	if err != nil {
		c.log.Debug().Err(err).Str("url", call.URL).Msg("request failed")
		return nil, describeError(err)
	}

	ms := elapsed.Milliseconds()
	if ms < 0 {
		ms = 0
	}

	return &model.Response{
		Status:       res.status,
		StatusText:   res.statusText,
		Headers:      res.headers,
		Data:         res.data,
		ResponseTime: ms,
		Size:         res.data.EstimateSize(),
		Timestamp:    time.Now(),
	}, nil
}

type directTransport struct {
	client *http.Client
	log    zerolog.Logger
}

func (t *directTransport) roundTrip(ctx context.Context, call *Call) (*result, error) {
	target, err := call.TargetURL()
	if err != nil {
		return nil, err
	}

	var bodyReader io.Reader
	if call.Body != nil {
		bodyReader = bytes.NewReader(call.Body.Bytes())
	}

	req, err := http.NewRequestWithContext(ctx, call.Method, target, bodyReader)
	if err != nil {
		return nil, err
	}

	for key, value := range call.Headers {
		if http.CanonicalHeaderKey(key) == "Host" {
			req.Host = value
			continue
		}
		req.Header.Set(key, value)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	// Read response body with size limit to prevent memory exhaustion
	respBody, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		// the server did answer; keep whatever arrived
		t.log.Warn().Err(err).Str("url", target).Msg("response body read incomplete")
	}

	if int64(len(respBody)) > MaxResponseSize {
		respBody = respBody[:MaxResponseSize]
		t.log.Warn().Str("url", target).Msg("response body truncated (exceeded 50MB limit)")
	}

	return &result{
		status:     resp.StatusCode,
		statusText: StatusText(resp),
		headers:    FlattenHeaders(resp.Header),
		data:       model.ParsePayload(respBody),
	}, nil
}
