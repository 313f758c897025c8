// Package composer turns drafts into validated requests and submits them.
package composer

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"apitester/internal/model"
)

// Dispatcher performs a request. It returns a response or an error, not both.
type Dispatcher interface {
	Do(ctx context.Context, req *model.Request) (*model.Response, error)
}

// Recorder receives every submitted request with its outcome
type Recorder interface {
	AddToHistory(entry model.HistoryEntry) error
}

// Composer validates drafts, snapshots them into requests and sends them
type Composer struct {
	dispatcher Dispatcher
	recorder   Recorder
	now        func() time.Time
	newID      func() string
	log        zerolog.Logger
}

type Option func(*Composer)

// WithRecorder records each sent request, typically into session history
func WithRecorder(r Recorder) Option {
	return func(c *Composer) {
		c.recorder = r
	}
}

// WithClock overrides the time source used for timestamps
func WithClock(now func() time.Time) Option {
	return func(c *Composer) {
		c.now = now
	}
}

// WithIDGenerator overrides how new request IDs are made
func WithIDGenerator(newID func() string) Option {
	return func(c *Composer) {
		c.newID = newID
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *Composer) {
		c.log = l
	}
}

// New creates a composer that sends through d
func New(d Dispatcher, opts ...Option) *Composer {
	c := &Composer{
		dispatcher: d,
		now:        time.Now,
		newID:      uuid.NewString,
		log:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Build validates the draft and snapshots it into a request. Disabled or
// keyless rows are dropped; the body is attached only when it is raw and
// non-empty.
func (c *Composer) Build(d *Draft) (*model.Request, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}

	method, _ := model.ParseMethod(string(d.Method))
	now := c.now()

	req := &model.Request{
		Name:      strings.TrimSpace(d.Name),
		Method:    method,
		URL:       strings.TrimSpace(d.URL),
		Headers:   activeRows(d.Headers),
		Params:    activeRows(d.Params),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if d.BodyType == model.BodyRaw && d.BodyContent != "" {
		req.Body = &model.Body{Type: model.BodyRaw, Raw: d.BodyContent}
	}

	if d.Auth != nil {
		a := *d.Auth
		req.Auth = &a
	}

	if d.Initial != nil && d.Initial.ID != "" {
		req.ID = d.Initial.ID
		if !d.Initial.CreatedAt.IsZero() {
			req.CreatedAt = d.Initial.CreatedAt
		}
	} else {
		req.ID = c.newID()
	}

	return req, nil
}

// Submit builds the draft and dispatches it exactly once. A validation
// failure sends nothing and leaves the draft untouched. Otherwise the draft
// is reset whatever the outcome, and the request is returned alongside
// either its response or the dispatch error.
func (c *Composer) Submit(ctx context.Context, d *Draft) (*model.Request, *model.Response, error) {
	req, err := c.Build(d)
	if err != nil {
		return nil, nil, err
	}

	resp, err := c.Send(ctx, req)
	d.Reset()
	return req, resp, err
}

// Send dispatches an already built request and records the outcome
func (c *Composer) Send(ctx context.Context, req *model.Request) (*model.Response, error) {
	resp, err := c.dispatcher.Do(ctx, req)

	if c.recorder != nil {
		entry := model.HistoryEntry{
			Request:   *req,
			Response:  resp,
			Timestamp: c.now(),
		}
		if recErr := c.recorder.AddToHistory(entry); recErr != nil {
			c.log.Warn().Err(recErr).Str("request", req.ID).Msg("failed to record history")
		}
	}

	return resp, err
}

func activeRows(rows []model.KeyValue) []model.KeyValue {
	out := []model.KeyValue{}
	for _, kv := range rows {
		if kv.Active() {
			out = append(out, kv)
		}
	}
	return out
}
