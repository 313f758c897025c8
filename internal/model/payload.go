package model

import (
	"bytes"
	"encoding/json"
	"unicode/utf16"
)

// Payload is an opaque body value. It holds either a JSON document or plain
// text; no schema is assumed for either.
type Payload struct {
	JSON json.RawMessage
	Text string
}

// JSONPayload wraps an already valid JSON document
func JSONPayload(raw []byte) Payload {
	return Payload{JSON: json.RawMessage(raw)}
}

// TextPayload wraps plain text
func TextPayload(s string) Payload {
	return Payload{Text: s}
}

// ParsePayload keeps data as a compacted JSON document when it parses,
// and as verbatim text otherwise.
func ParsePayload(data []byte) Payload {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && json.Valid(trimmed) {
		var buf bytes.Buffer
		if err := json.Compact(&buf, trimmed); err == nil {
			return JSONPayload(buf.Bytes())
		}
	}
	return TextPayload(string(data))
}

// IsJSON reports whether the payload holds a JSON document
func (p Payload) IsJSON() bool {
	return p.JSON != nil
}

// IsZero reports whether the payload holds nothing at all
func (p Payload) IsZero() bool {
	return p.JSON == nil && p.Text == ""
}

// Bytes returns the bytes to put on the wire
func (p Payload) Bytes() []byte {
	if p.IsJSON() {
		return []byte(p.JSON)
	}
	return []byte(p.Text)
}

// String returns the payload as display text
func (p Payload) String() string {
	return string(p.Bytes())
}

// Stringify renders the payload as a single JSON value: the compact document
// itself, or the text as a JSON string literal.
func (p Payload) Stringify() string {
	if p.IsJSON() {
		var buf bytes.Buffer
		if err := json.Compact(&buf, p.JSON); err == nil {
			return buf.String()
		}
		return string(p.JSON)
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(p.Text)
	return string(bytes.TrimSuffix(buf.Bytes(), []byte("\n")))
}

// EstimateSize approximates the payload size as two bytes per UTF-16 code
// unit of its stringified form. It is a rough figure, not the wire size.
func (p Payload) EstimateSize() int {
	return 2 * len(utf16.Encode([]rune(p.Stringify())))
}

// MarshalJSON emits the JSON document as-is, or the text as a JSON string
func (p Payload) MarshalJSON() ([]byte, error) {
	if p.IsJSON() {
		return p.JSON, nil
	}
	return json.Marshal(p.Text)
}

// UnmarshalJSON treats a JSON string as text and anything else as a document
func (p *Payload) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*p = TextPayload(s)
		return nil
	}
	*p = JSONPayload(append([]byte(nil), trimmed...))
	return nil
}

// MarshalYAML stores the payload as its display text
func (p Payload) MarshalYAML() (interface{}, error) {
	return p.String(), nil
}

// UnmarshalYAML reads display text back through ParsePayload
func (p *Payload) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	*p = ParsePayload([]byte(s))
	return nil
}
