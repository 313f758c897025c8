// Package relay performs HTTP calls on behalf of clients that cannot make
// them directly, and reports the downstream result as data.
package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	httpclient "apitester/internal/http"
	"apitester/internal/model"
)

// ErrMissingTarget is returned when the url or method is absent
var ErrMissingTarget = errors.New("URL and method are required")

// Relay forwards one request per call. It keeps no state between calls.
type Relay struct {
	client *http.Client
	log    zerolog.Logger
}

// Option is a functional option for Relay
type Option func(*Relay)

// WithTimeout bounds each downstream call. Zero means no explicit bound.
func WithTimeout(d time.Duration) Option {
	return func(r *Relay) {
		r.client.Timeout = d
	}
}

// WithHTTPClient replaces the downstream client
func WithHTTPClient(c *http.Client) Option {
	return func(r *Relay) {
		r.client = c
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(r *Relay) {
		r.log = l
	}
}

// New creates a relay
func New(opts ...Option) *Relay {
	r := &Relay{
		client: &http.Client{},
		log:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Send performs the described call. Every downstream status is a result;
// only failures to complete the call are errors, and those carry a stack.
func (r *Relay) Send(ctx context.Context, req *model.RelayRequest) (*model.RelayResult, error) {
	if req == nil || req.URL == "" || req.Method == "" {
		return nil, ErrMissingTarget
	}

	body, contentType, err := encodeBody(req.Body)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, strings.ToUpper(req.Method), req.URL, body)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	for key, value := range req.Headers {
		if value == nil {
			continue
		}
		httpReq.Header.Set(key, headerValue(value))
	}
	if contentType != "" && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", contentType)
	}

	start := time.Now()
	resp, err := r.client.Do(httpReq)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read response body")
	}
	elapsed := time.Since(start)

	r.log.Debug().
		Str("method", httpReq.Method).
		Str("url", req.URL).
		Int("status", resp.StatusCode).
		Dur("elapsed", elapsed).
		Msg("relayed request")

	return &model.RelayResult{
		Status:     resp.StatusCode,
		StatusText: httpclient.StatusText(resp),
		Headers:    httpclient.FlattenHeaders(resp.Header),
		Data:       model.ParsePayload(data),
		Time:       fmt.Sprintf("%dms", elapsed.Milliseconds()),
	}, nil
}

// NewFailure renders a call failure in the relay's error shape
func NewFailure(err error) model.RelayFailure {
	msg := err.Error()
	if msg == "" {
		msg = "Request failed"
	}
	return model.RelayFailure{
		Error:   true,
		Message: msg,
		Stack:   fmt.Sprintf("%+v", err),
	}
}

// headerValue renders a decoded JSON header value. Numbers keep their plain
// decimal form and arrays are joined with ", ".
func headerValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case json.Number:
		return val.String()
	case []interface{}:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			if item == nil {
				continue
			}
			parts = append(parts, headerValue(item))
		}
		return strings.Join(parts, ", ")
	case map[string]interface{}:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(data)
	default:
		return fmt.Sprint(val)
	}
}

// encodeBody turns the JSON body value into wire bytes. A JSON string is
// sent as its text; any other value is sent as JSON.
func encodeBody(raw json.RawMessage) (io.Reader, string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, "", nil
	}

	if trimmed[0] == '"' {
		var text string
		if err := json.Unmarshal(trimmed, &text); err != nil {
			return nil, "", errors.Wrap(err, "decode body")
		}
		return strings.NewReader(text), "", nil
	}

	return bytes.NewReader(trimmed), "application/json", nil
}
