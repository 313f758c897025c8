package model

import "encoding/json"

// RelayRequest is the body accepted by the relay's send endpoint
type RelayRequest struct {
	URL     string                 `json:"url"`
	Method  string                 `json:"method"`
	Headers map[string]interface{} `json:"headers,omitempty"`
	Body    json.RawMessage        `json:"body,omitempty"`
}

// RelayResult is the relay's reply when the downstream call completed,
// whatever its status code
type RelayResult struct {
	Status     int               `json:"status"`
	StatusText string            `json:"statusText"`
	Headers    map[string]string `json:"headers"`
	Data       Payload           `json:"data"`
	Time       string            `json:"time"`
}

// RelayFailure is the relay's reply when the downstream call itself failed
type RelayFailure struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
	Stack   string `json:"stack"`
}
