package http

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apitester/internal/model"
)

func TestBuildCall_NoBody(t *testing.T) {
	req := &model.Request{Method: "get", URL: "https://example.com"}

	call := BuildCall(req, time.Second)

	assert.Equal(t, "GET", call.Method)
	assert.Nil(t, call.Body)
	assert.Empty(t, call.Headers)
	assert.Equal(t, time.Second, call.Timeout)
}

func TestBuildCall_KeepsExplicitContentType(t *testing.T) {
	req := &model.Request{
		Method:  model.MethodPost,
		URL:     "https://example.com",
		Headers: []model.KeyValue{{Key: "CONTENT-TYPE", Value: "application/xml", Enabled: true}},
		Body:    &model.Body{Type: model.BodyRaw, Raw: "<a/>"},
	}

	call := BuildCall(req, 0)

	assert.Equal(t, map[string]string{"CONTENT-TYPE": "application/xml"}, call.Headers)
	require.NotNil(t, call.Body)
	assert.Equal(t, "<a/>", call.Body.Text)
}

func TestBuildCall_DisabledContentTypeStillDefaults(t *testing.T) {
	req := &model.Request{
		Method:  model.MethodPost,
		URL:     "https://example.com",
		Headers: []model.KeyValue{{Key: "Content-Type", Value: "text/plain", Enabled: false}},
		Body:    &model.Body{Type: model.BodyRaw, Raw: `[1, 2]`},
	}

	call := BuildCall(req, 0)

	assert.Equal(t, "application/json", call.Headers["Content-Type"])
	require.NotNil(t, call.Body)
	assert.Equal(t, `[1,2]`, string(call.Body.JSON))
}

func TestBuildCall_NonRawBodyIsIgnored(t *testing.T) {
	req := &model.Request{
		Method: model.MethodPost,
		URL:    "https://example.com",
		Body:   &model.Body{Type: model.BodyFormData, Raw: "ignored"},
	}

	assert.Nil(t, BuildCall(req, 0).Body)
}

func TestCall_TargetURL(t *testing.T) {
	tests := []struct {
		name  string
		url   string
		query map[string]string
		want  string
	}{
		{"no query", "https://example.com/a", nil, "https://example.com/a"},
		{"new query", "https://example.com/a", map[string]string{"q": "go lang"}, "https://example.com/a?q=go+lang"},
		{"merged query", "https://example.com/a?x=1", map[string]string{"y": "2"}, "https://example.com/a?x=1&y=2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			call := &Call{URL: tt.url, Query: tt.query}
			got, err := call.TargetURL()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStatusText(t *testing.T) {
	assert.Equal(t, "Not Found", StatusText(&http.Response{StatusCode: 404, Status: "404 Not Found"}))
	assert.Equal(t, "Teapot Time", StatusText(&http.Response{StatusCode: 418, Status: "418 Teapot Time"}))
	assert.Equal(t, "Created", StatusText(&http.Response{StatusCode: 201, Status: "201"}))
}

func TestFlattenHeaders(t *testing.T) {
	h := http.Header{}
	h.Add("Set-Cookie", "a=1")
	h.Add("Set-Cookie", "b=2")
	h.Set("X-Request-Id", "abc")

	assert.Equal(t, map[string]string{
		"set-cookie":   "a=1, b=2",
		"x-request-id": "abc",
	}, FlattenHeaders(h))
}
