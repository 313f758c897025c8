package model

import (
	"strings"
	"time"
)

// Method is an HTTP method accepted by the composer
type Method string

const (
	MethodGet     Method = "GET"
	MethodPost    Method = "POST"
	MethodPut     Method = "PUT"
	MethodDelete  Method = "DELETE"
	MethodPatch   Method = "PATCH"
	MethodHead    Method = "HEAD"
	MethodOptions Method = "OPTIONS"
)

// Methods lists every supported method in display order
var Methods = []Method{
	MethodGet, MethodPost, MethodPut, MethodDelete,
	MethodPatch, MethodHead, MethodOptions,
}

// ParseMethod normalizes s and reports whether it is a supported method
func ParseMethod(s string) (Method, bool) {
	m := Method(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range Methods {
		if m == known {
			return m, true
		}
	}
	return m, false
}

// KeyValue is a header or query parameter row.
// Rows are kept even when disabled or keyless; only active rows are sent.
type KeyValue struct {
	Key         string `json:"key" yaml:"key"`
	Value       string `json:"value" yaml:"value"`
	Enabled     bool   `json:"enabled" yaml:"enabled"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// Active reports whether the row takes part in the outgoing call
func (kv KeyValue) Active() bool {
	return kv.Key != "" && kv.Enabled
}

// ActiveMap flattens the active rows into a map. Later rows win on duplicate keys.
func ActiveMap(rows []KeyValue) map[string]string {
	result := make(map[string]string)
	for _, kv := range rows {
		if kv.Active() {
			result[kv.Key] = kv.Value
		}
	}
	return result
}

// BodyType tags the kind of request body
type BodyType string

const (
	BodyNone       BodyType = "none"
	BodyFormData   BodyType = "form-data"
	BodyURLEncoded BodyType = "x-www-form-urlencoded"
	BodyRaw        BodyType = "raw"
	BodyBinary     BodyType = "binary"
)

// Body is the request body. Only raw bodies are dispatched.
type Body struct {
	Type       BodyType   `json:"type" yaml:"type"`
	Raw        string     `json:"raw,omitempty" yaml:"raw,omitempty"`
	FormData   []KeyValue `json:"formData,omitempty" yaml:"formData,omitempty"`
	URLEncoded []KeyValue `json:"urlEncoded,omitempty" yaml:"urlEncoded,omitempty"`
}

// AuthType tags the auth descriptor
type AuthType string

const (
	AuthNone   AuthType = "none"
	AuthBearer AuthType = "bearer"
	AuthBasic  AuthType = "basic"
	AuthAPIKey AuthType = "api-key"
)

// Auth describes request authentication. It is carried with the request but
// the dispatcher does not apply it.
type Auth struct {
	Type     AuthType `json:"type" yaml:"type"`
	Token    string   `json:"token,omitempty" yaml:"token,omitempty"`
	Username string   `json:"username,omitempty" yaml:"username,omitempty"`
	Password string   `json:"password,omitempty" yaml:"password,omitempty"`
	Key      string   `json:"key,omitempty" yaml:"key,omitempty"`
	Value    string   `json:"value,omitempty" yaml:"value,omitempty"`
}

// Request represents a composed HTTP request
type Request struct {
	ID        string     `json:"id" yaml:"id"`
	Name      string     `json:"name" yaml:"name"`
	Method    Method     `json:"method" yaml:"method"`
	URL       string     `json:"url" yaml:"url"`
	Headers   []KeyValue `json:"headers" yaml:"headers"`
	Params    []KeyValue `json:"params,omitempty" yaml:"params,omitempty"`
	Body      *Body      `json:"body,omitempty" yaml:"body,omitempty"`
	Auth      *Auth      `json:"auth,omitempty" yaml:"auth,omitempty"`
	CreatedAt time.Time  `json:"createdAt" yaml:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt" yaml:"updatedAt"`
}

// RawBody returns the raw body text, or "" when there is nothing to send
func (r *Request) RawBody() string {
	if r.Body == nil || r.Body.Type != BodyRaw {
		return ""
	}
	return r.Body.Raw
}

// Clone returns a deep copy of the request
func (r *Request) Clone() *Request {
	c := *r
	c.Headers = append([]KeyValue(nil), r.Headers...)
	c.Params = append([]KeyValue(nil), r.Params...)
	if r.Body != nil {
		b := *r.Body
		b.FormData = append([]KeyValue(nil), r.Body.FormData...)
		b.URLEncoded = append([]KeyValue(nil), r.Body.URLEncoded...)
		c.Body = &b
	}
	if r.Auth != nil {
		a := *r.Auth
		c.Auth = &a
	}
	return &c
}
