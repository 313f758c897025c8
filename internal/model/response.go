package model

import (
	"strings"
	"time"
)

// Response represents a normalized HTTP response
type Response struct {
	Status       int               `json:"status" yaml:"status"`
	StatusText   string            `json:"statusText" yaml:"statusText"`
	Headers      map[string]string `json:"headers" yaml:"headers"`
	Data         Payload           `json:"data" yaml:"data"`
	ResponseTime int64             `json:"responseTime" yaml:"responseTime"` // milliseconds
	Size         int               `json:"size" yaml:"size"`                 // estimate, see Payload.EstimateSize
	Timestamp    time.Time         `json:"timestamp" yaml:"timestamp"`
}

// Header looks up a response header case-insensitively
func (r *Response) Header(key string) string {
	for k, v := range r.Headers {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return ""
}

// Class returns the status bucket of the response
func (r *Response) Class() StatusClass {
	return ClassifyStatus(r.Status)
}
