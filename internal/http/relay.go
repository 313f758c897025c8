package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/tidwall/gjson"

	"apitester/internal/model"
)

// relayTransport sends the call to a relay server, which performs it and
// reports the downstream result as JSON
type relayTransport struct {
	client   *http.Client
	endpoint string
}

func (t *relayTransport) roundTrip(ctx context.Context, call *Call) (*result, error) {
	target, err := call.TargetURL()
	if err != nil {
		return nil, err
	}

	relayReq := model.RelayRequest{
		URL:    target,
		Method: call.Method,
	}
	if len(call.Headers) > 0 {
		relayReq.Headers = make(map[string]interface{}, len(call.Headers))
		for k, v := range call.Headers {
			relayReq.Headers[k] = v
		}
	}
	if call.Body != nil {
		encoded, err := call.Body.MarshalJSON()
		if err != nil {
			return nil, err
		}
		relayReq.Body = encoded
	}

	payload, err := json.Marshal(relayReq)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, relayError(resp.Status, body)
	}

	var out model.RelayResult
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("invalid relay response: %w", err)
	}

	return &result{
		status:     out.Status,
		statusText: out.StatusText,
		headers:    out.Headers,
		data:       out.Data,
	}, nil
}

// relayError pulls the message out of a relay error body. The relay answers
// with {error: "..."} or {error: true, message: "..."}.
func relayError(status string, body []byte) error {
	if msg := gjson.GetBytes(body, "message"); msg.Type == gjson.String && msg.Str != "" {
		return errors.New(msg.Str)
	}
	if msg := gjson.GetBytes(body, "error"); msg.Type == gjson.String && msg.Str != "" {
		return errors.New(msg.Str)
	}
	return fmt.Errorf("relay returned %s", status)
}
