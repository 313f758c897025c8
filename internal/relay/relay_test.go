package relay

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apitester/internal/model"
)

func TestRelay_MissingTarget(t *testing.T) {
	r := New()

	for _, req := range []*model.RelayRequest{
		nil,
		{Method: "GET"},
		{URL: "https://example.com"},
	} {
		res, err := r.Send(context.Background(), req)
		assert.Nil(t, res)
		assert.ErrorIs(t, err, ErrMissingTarget)
		assert.Equal(t, "URL and method are required", err.Error())
	}
}

func TestRelay_ForwardsRequest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "/users", r.URL.Path)
		assert.Equal(t, "abc", r.Header.Get("X-Token"))
		assert.Equal(t, "3", r.Header.Get("X-Count"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"name":"John"}`, string(body))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id": 1}`))
	}))
	defer server.Close()

	res, err := New().Send(context.Background(), &model.RelayRequest{
		URL:     server.URL + "/users",
		Method:  "post",
		Headers: map[string]interface{}{"X-Token": "abc", "X-Count": 3, "X-Nil": nil},
		Body:    json.RawMessage(`{"name": "John"}`),
	})

	require.NoError(t, err)
	assert.Equal(t, 201, res.Status)
	assert.Equal(t, "Created", res.StatusText)
	assert.Equal(t, "application/json", res.Headers["content-type"])
	assert.JSONEq(t, `{"id":1}`, res.Data.String())
	assert.Regexp(t, regexp.MustCompile(`^\d+ms$`), res.Time)
}

func TestRelay_TimeCoversTheCall(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	res, err := New().Send(context.Background(), &model.RelayRequest{URL: server.URL, Method: "GET"})
	require.NoError(t, err)

	ms, err := strconv.Atoi(strings.TrimSuffix(res.Time, "ms"))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, ms, 100)
}

func TestRelay_HeaderValues(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1000000", r.Header.Get("X-Count"))
		assert.Equal(t, "1.5", r.Header.Get("X-Ratio"))
		assert.Equal(t, "true", r.Header.Get("X-Flag"))
		assert.Equal(t, "gzip, br", r.Header.Get("Accept-Encoding"))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	var req model.RelayRequest
	require.NoError(t, json.Unmarshal([]byte(`{
		"url": "`+server.URL+`",
		"method": "GET",
		"headers": {"X-Count": 1000000, "X-Ratio": 1.5, "X-Flag": true, "Accept-Encoding": ["gzip", "br"]}
	}`), &req))

	res, err := New().Send(context.Background(), &req)

	require.NoError(t, err)
	assert.Equal(t, 204, res.Status)
}

func TestRelay_DownstreamErrorStatusIsResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("no such page"))
	}))
	defer server.Close()

	res, err := New().Send(context.Background(), &model.RelayRequest{URL: server.URL, Method: "GET"})

	require.NoError(t, err)
	assert.Equal(t, 404, res.Status)
	assert.Equal(t, "no such page", res.Data.Text)
}

func TestRelay_StringBodyIsSentAsText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, "a=1&b=2", string(body))
		assert.Empty(t, r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	_, err := New().Send(context.Background(), &model.RelayRequest{
		URL:    server.URL,
		Method: "PUT",
		Body:   json.RawMessage(`"a=1&b=2"`),
	})
	require.NoError(t, err)
}

func TestRelay_NullBodySendsNothing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.Empty(t, body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	_, err := New().Send(context.Background(), &model.RelayRequest{
		URL:    server.URL,
		Method: "DELETE",
		Body:   json.RawMessage(`null`),
	})
	require.NoError(t, err)
}

func TestRelay_CallFailureCarriesStack(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := New().Send(context.Background(), &model.RelayRequest{URL: url, Method: "GET"})
	require.Error(t, err)

	failure := NewFailure(err)
	assert.True(t, failure.Error)
	assert.Contains(t, failure.Message, "connection refused")
	assert.Contains(t, failure.Stack, "relay.(*Relay).Send")
}

func TestNewFailure_EmptyMessage(t *testing.T) {
	failure := NewFailure(emptyError{})
	assert.Equal(t, "Request failed", failure.Message)
}

type emptyError struct{}

func (emptyError) Error() string { return "" }
