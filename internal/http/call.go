package http

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"apitester/internal/model"
)

// Call is the transport-level form of a composed request
type Call struct {
	Method  string
	URL     string
	Headers map[string]string
	Query   map[string]string
	Body    *model.Payload
	Timeout time.Duration
}

// BuildCall converts a request into a call. Disabled and keyless rows are
// dropped, and a raw body is sent as compact JSON when it parses and
// verbatim when it does not.
func BuildCall(req *model.Request, timeout time.Duration) *Call {
	call := &Call{
		Method:  strings.ToUpper(string(req.Method)),
		URL:     req.URL,
		Headers: model.ActiveMap(req.Headers),
		Query:   model.ActiveMap(req.Params),
		Timeout: timeout,
	}

	if raw := req.RawBody(); raw != "" {
		body := model.ParsePayload([]byte(raw))
		call.Body = &body

		if !call.HasHeader("Content-Type") {
			call.Headers["Content-Type"] = "application/json"
		}
	}

	return call
}

// HasHeader reports whether a header is set, ignoring case
func (c *Call) HasHeader(name string) bool {
	for k := range c.Headers {
		if strings.EqualFold(k, name) {
			return true
		}
	}
	return false
}

// TargetURL returns the URL with the call's query parameters appended to
// any query the URL already carries
func (c *Call) TargetURL() (string, error) {
	if len(c.Query) == 0 {
		return c.URL, nil
	}

	u, err := url.Parse(c.URL)
	if err != nil {
		return "", err
	}

	extra := url.Values{}
	for k, v := range c.Query {
		extra.Add(k, v)
	}

	if u.RawQuery == "" {
		u.RawQuery = extra.Encode()
	} else {
		u.RawQuery = u.RawQuery + "&" + extra.Encode()
	}
	return u.String(), nil
}

// FlattenHeaders converts response headers into a single-valued map with
// lower-case keys. Repeated values are joined with ", ".
func FlattenHeaders(h http.Header) map[string]string {
	result := make(map[string]string, len(h))
	for key, values := range h {
		result[strings.ToLower(key)] = strings.Join(values, ", ")
	}
	return result
}

// StatusText extracts the reason phrase from a response
func StatusText(resp *http.Response) string {
	text := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if text == "" {
		text = http.StatusText(resp.StatusCode)
	}
	return text
}
