package composer

import (
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/tidwall/sjson"

	"apitester/internal/model"
)

// DefaultName is the name a fresh draft starts with
const DefaultName = "New Request"

// Draft is the editable, not yet validated form of a request
type Draft struct {
	Name        string
	Method      model.Method
	URL         string
	Params      []model.KeyValue
	Headers     []model.KeyValue
	BodyType    model.BodyType
	BodyContent string
	Auth        *model.Auth

	// Initial is the request being edited, if any. Its ID and CreatedAt
	// carry over to the submitted request.
	Initial *model.Request
}

// NewDraft returns an empty draft
func NewDraft() *Draft {
	d := &Draft{}
	d.Reset()
	return d
}

// DraftFrom opens an existing request for editing
func DraftFrom(req *model.Request) *Draft {
	d := &Draft{
		Name:     req.Name,
		Method:   req.Method,
		URL:      req.URL,
		Params:   append([]model.KeyValue(nil), req.Params...),
		Headers:  append([]model.KeyValue(nil), req.Headers...),
		BodyType: model.BodyNone,
		Initial:  req.Clone(),
	}
	if req.Body != nil && req.Body.Type == model.BodyRaw {
		d.BodyType = model.BodyRaw
		d.BodyContent = req.Body.Raw
	}
	if req.Auth != nil {
		a := *req.Auth
		d.Auth = &a
	}
	return d
}

// Reset clears the draft back to a new, unnamed GET request
func (d *Draft) Reset() {
	*d = Draft{
		Name:     DefaultName,
		Method:   model.MethodGet,
		BodyType: model.BodyNone,
	}
}

// AddHeader appends a header row
func (d *Draft) AddHeader(key, value string, enabled bool) {
	d.Headers = append(d.Headers, model.KeyValue{Key: key, Value: value, Enabled: enabled})
}

// AddParam appends a query parameter row
func (d *Draft) AddParam(key, value string, enabled bool) {
	d.Params = append(d.Params, model.KeyValue{Key: key, Value: value, Enabled: enabled})
}

// SetBody sets a raw body
func (d *Draft) SetBody(raw string) {
	d.BodyType = model.BodyRaw
	d.BodyContent = raw
}

// SetBodyField sets one field of a JSON body by path, e.g. "user.name".
// value is inserted as JSON when it parses as JSON and as a string otherwise.
func (d *Draft) SetBodyField(path, value string) error {
	body := d.BodyContent
	if d.BodyType != model.BodyRaw {
		body = ""
	}

	var (
		updated string
		err     error
	)
	if isJSONValue(value) {
		updated, err = sjson.SetRaw(body, path, value)
	} else {
		updated, err = sjson.Set(body, path, value)
	}
	if err != nil {
		return fmt.Errorf("cannot set %q: %w", path, err)
	}

	d.SetBody(updated)
	return nil
}

var placeholderPattern = regexp.MustCompile(`\{\{\s*([^{}\s]+)\s*\}\}`)

// Expand replaces {{name}} placeholders in the URL, row values and body.
// Unknown names are left as they are.
func (d *Draft) Expand(vars map[string]string) {
	if len(vars) == 0 {
		return
	}

	replace := func(s string) string {
		return placeholderPattern.ReplaceAllStringFunc(s, func(match string) string {
			name := placeholderPattern.FindStringSubmatch(match)[1]
			if value, ok := vars[name]; ok {
				return value
			}
			return match
		})
	}

	d.URL = replace(d.URL)
	for i := range d.Headers {
		d.Headers[i].Value = replace(d.Headers[i].Value)
	}
	for i := range d.Params {
		d.Params[i].Value = replace(d.Params[i].Value)
	}
	d.BodyContent = replace(d.BodyContent)
}

// ValidationError reports field-level problems with a draft
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return strings.Join(parts, "; ")
}

// Validate checks the name and URL. It returns a *ValidationError or nil.
func (d *Draft) Validate() error {
	fields := make(map[string]string)

	if strings.TrimSpace(d.Name) == "" {
		fields["name"] = "Request name is required"
	}

	if strings.TrimSpace(d.URL) == "" {
		fields["url"] = "URL is required"
	} else if !isValidURL(d.URL) {
		fields["url"] = "Please enter a valid URL"
	}

	if _, ok := model.ParseMethod(string(d.Method)); !ok {
		fields["method"] = fmt.Sprintf("Unsupported method %q", d.Method)
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// isValidURL accepts well-formed absolute URLs of any scheme
func isValidURL(s string) bool {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil || u.Scheme == "" {
		return false
	}
	return u.Host != "" || u.Opaque != "" || u.Path != ""
}

func isJSONValue(s string) bool {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return false
	}
	return model.ParsePayload([]byte(trimmed)).IsJSON()
}
