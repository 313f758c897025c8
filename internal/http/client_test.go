package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apitester/internal/model"
)

func newRequest(method model.Method, url string) *model.Request {
	return &model.Request{ID: "req-1", Name: "test", Method: method, URL: url}
}

func TestClient_Get(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "GET", r.Method)
		assert.Equal(t, "/test", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"message": "hello"}`))
	}))
	defer server.Close()

	client := NewClient()
	resp, err := client.Do(context.Background(), newRequest(model.MethodGet, server.URL+"/test"))

	require.NoError(t, err)
	assert.Equal(t, 200, resp.Status)
	assert.Equal(t, "OK", resp.StatusText)
	assert.Equal(t, "application/json", resp.Header("Content-Type"))
	assert.Equal(t, "application/json", resp.Headers["content-type"])
	assert.True(t, resp.Data.IsJSON())
	assert.JSONEq(t, `{"message":"hello"}`, resp.Data.String())
	assert.GreaterOrEqual(t, resp.ResponseTime, int64(0))
	assert.False(t, resp.Timestamp.IsZero())
}

func TestClient_ResponseTimeCoversTheCall(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	resp, err := NewClient().Do(context.Background(), newRequest(model.MethodGet, server.URL))

	require.NoError(t, err)
	assert.GreaterOrEqual(t, resp.ResponseTime, int64(100))
	assert.Less(t, resp.ResponseTime, int64(5000))
}

func TestClient_NonSuccessStatusIsResponse(t *testing.T) {
	for _, status := range []int{http.StatusNotFound, http.StatusInternalServerError} {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error":"nope"}`))
		}))

		resp, err := NewClient().Do(context.Background(), newRequest(model.MethodGet, server.URL))
		server.Close()

		require.NoError(t, err)
		assert.Equal(t, status, resp.Status)
		assert.JSONEq(t, `{"error":"nope"}`, resp.Data.String())
	}
}

func TestClient_TextBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("plain hello"))
	}))
	defer server.Close()

	resp, err := NewClient().Do(context.Background(), newRequest(model.MethodGet, server.URL))

	require.NoError(t, err)
	assert.False(t, resp.Data.IsJSON())
	assert.Equal(t, "plain hello", resp.Data.Text)
	// "plain hello" stringifies to 13 UTF-16 units with its quotes
	assert.Equal(t, 26, resp.Size)
}

func TestClient_EmptyBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	resp, err := NewClient().Do(context.Background(), newRequest(model.MethodDelete, server.URL))

	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.Status)
	assert.True(t, resp.Data.IsZero())
}

func TestClient_OnlyEnabledRowsAreSent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "a", r.Header.Get("X-On"))
		assert.Empty(t, r.Header.Get("X-Off"))
		assert.Equal(t, "1", r.URL.Query().Get("page"))
		assert.Equal(t, "keep", r.URL.Query().Get("existing"))
		assert.False(t, r.URL.Query().Has("draft"))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	req := newRequest(model.MethodGet, server.URL+"?existing=keep")
	req.Headers = []model.KeyValue{
		{Key: "X-On", Value: "a", Enabled: true},
		{Key: "X-Off", Value: "b", Enabled: false},
		{Key: "", Value: "orphan", Enabled: true},
	}
	req.Params = []model.KeyValue{
		{Key: "page", Value: "1", Enabled: true},
		{Key: "draft", Value: "true", Enabled: false},
	}

	_, err := NewClient().Do(context.Background(), req)
	require.NoError(t, err)
}

func TestClient_JSONBodyIsCompactedWithDefaultContentType(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, `{"name":"test"}`, string(body))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id": 123}`))
	}))
	defer server.Close()

	req := newRequest(model.MethodPost, server.URL)
	req.Body = &model.Body{Type: model.BodyRaw, Raw: "{\n  \"name\": \"test\"\n}"}

	resp, err := NewClient().Do(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, 201, resp.Status)
}

func TestClient_InvalidJSONBodyIsSentVerbatim(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, "name=test", string(body))
		assert.Equal(t, "text/plain", r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	req := newRequest(model.MethodPost, server.URL)
	req.Headers = []model.KeyValue{{Key: "content-type", Value: "text/plain", Enabled: true}}
	req.Body = &model.Body{Type: model.BodyRaw, Raw: "name=test"}

	_, err := NewClient().Do(context.Background(), req)
	require.NoError(t, err)
}

func TestClient_ConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := NewClient()
	resp, err := client.Do(context.Background(), newRequest(model.MethodGet, url))

	assert.Nil(t, resp)
	assert.ErrorIs(t, err, ErrNoResponse)
	assert.Equal(t, "No response received from server. Please check the URL and try again.", err.Error())
	assert.False(t, client.Loading())
}

func TestClient_WithTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(WithTimeout(50 * time.Millisecond))
	_, err := client.Do(context.Background(), newRequest(model.MethodGet, server.URL))

	assert.ErrorIs(t, err, ErrNoResponse)
}

func TestClient_UnsupportedSchemeKeepsItsMessage(t *testing.T) {
	_, err := NewClient().Do(context.Background(), newRequest(model.MethodGet, "ftp://example.com/file"))

	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoResponse)
	assert.Contains(t, err.Error(), "unsupported protocol scheme")
}

func TestClient_LoadingDuringCall(t *testing.T) {
	client := NewClient()
	seen := make(chan bool, 1)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen <- client.Loading()
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	assert.False(t, client.Loading())
	_, err := client.Do(context.Background(), newRequest(model.MethodGet, server.URL))
	require.NoError(t, err)

	assert.True(t, <-seen)
	assert.False(t, client.Loading())
}

func TestClient_MultiValueHeadersAreJoined(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("X-Multi", "a")
		w.Header().Add("X-Multi", "b")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	resp, err := NewClient().Do(context.Background(), newRequest(model.MethodGet, server.URL))

	require.NoError(t, err)
	assert.Equal(t, "a, b", resp.Headers["x-multi"])
}

func TestClient_ViaRelay(t *testing.T) {
	relay := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)

		var in model.RelayRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, "PUT", in.Method)
		assert.Equal(t, "https://api.example.com/users/1?v=2", in.URL)
		assert.Equal(t, "application/json", in.Headers["Content-Type"])
		assert.JSONEq(t, `{"name":"x"}`, string(in.Body))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":404,"statusText":"Not Found","headers":{"x-id":"7"},"data":{"error":"missing"},"time":"12ms"}`))
	}))
	defer relay.Close()

	req := newRequest(model.MethodPut, "https://api.example.com/users/1")
	req.Params = []model.KeyValue{{Key: "v", Value: "2", Enabled: true}}
	req.Body = &model.Body{Type: model.BodyRaw, Raw: `{"name": "x"}`}

	client := NewClient(WithRelay(relay.URL))
	resp, err := client.Do(context.Background(), req)

	require.NoError(t, err)
	assert.True(t, client.ViaRelay())
	assert.Equal(t, 404, resp.Status)
	assert.Equal(t, "Not Found", resp.StatusText)
	assert.Equal(t, "7", resp.Headers["x-id"])
	assert.JSONEq(t, `{"error":"missing"}`, resp.Data.String())
}

func TestClient_RelayErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{"missing target", http.StatusBadRequest, `{"error":"URL and method are required"}`, "URL and method are required"},
		{"call failure", http.StatusInternalServerError, `{"error":true,"message":"dial tcp: no such host","stack":"..."}`, "dial tcp: no such host"},
		{"no message", http.StatusBadGateway, `<html></html>`, "relay returned 502 Bad Gateway"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			relay := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer relay.Close()

			resp, err := NewClient(WithRelay(relay.URL)).Do(context.Background(), newRequest(model.MethodGet, "https://example.com"))

			assert.Nil(t, resp)
			require.Error(t, err)
			assert.Equal(t, tt.wantErr, err.Error())
		})
	}
}

func TestClient_RelayUnreachable(t *testing.T) {
	relay := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := relay.URL
	relay.Close()

	_, err := NewClient(WithRelay(url)).Do(context.Background(), newRequest(model.MethodGet, "https://example.com"))

	assert.ErrorIs(t, err, ErrNoResponse)
}
