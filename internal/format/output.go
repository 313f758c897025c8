package format

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"unicode"

	"github.com/fatih/color"
	"github.com/tidwall/gjson"

	"apitester/internal/model"
)

var out io.Writer = os.Stdout

// SetOutput redirects everything this package prints
func SetOutput(w io.Writer) {
	out = w
}

// SetColor turns colored output on or off
func SetColor(enabled bool) {
	color.NoColor = !enabled
}

// ColorEnabled reports whether output is currently colored
func ColorEnabled() bool {
	return !color.NoColor
}

// sanitizeOutput removes or escapes potentially dangerous control characters
// that could manipulate terminal display or execute commands
func sanitizeOutput(s string) string {
	var result strings.Builder
	result.Grow(len(s))

	for _, r := range s {
		switch {
		case r == '\n' || r == '\r' || r == '\t':
			result.WriteRune(r)
		case r == '\x1b':
			// ESC starts ANSI sequences
			result.WriteString("\\x1b")
		case unicode.IsControl(r) && r < 0x20:
			result.WriteString(fmt.Sprintf("\\x%02x", r))
		case r == 0x7F:
			result.WriteString("\\x7f")
		default:
			result.WriteRune(r)
		}
	}

	return result.String()
}

var (
	infoColor      = color.New(color.FgWhite, color.Bold)
	successColor   = color.New(color.FgGreen, color.Bold)
	redirectColor  = color.New(color.FgYellow, color.Bold)
	clientErrColor = color.New(color.FgRed, color.Bold)
	serverErrColor = color.New(color.FgRed, color.Bold, color.BgWhite)
	headerKeyColor = color.New(color.FgCyan)
	methodColor    = color.New(color.FgMagenta, color.Bold)
	urlColor       = color.New(color.FgBlue)
	dimColor       = color.New(color.Faint)
)

// ResponseOptions controls how much of a response is printed
type ResponseOptions struct {
	ShowHeaders bool
	// Filter is a gjson path applied to JSON bodies, e.g. "data.items.#.id"
	Filter string
}

// PrintResponse prints a formatted HTTP response
func PrintResponse(resp *model.Response, opts ResponseOptions) {
	statusColor(resp.Status).Fprintf(out, "%d %s\n", resp.Status, sanitizeOutput(resp.StatusText))
	dimColor.Fprintf(out, "  Time: %s  Size: %s\n\n", FormatDuration(resp.ResponseTime), FormatSize(resp.Size))

	if opts.ShowHeaders {
		printHeaders(resp.Headers)
	}

	printPayload(resp.Data, opts.Filter)
}

func statusColor(code int) *color.Color {
	switch model.ClassifyStatus(code) {
	case model.StatusInfo:
		return infoColor
	case model.StatusSuccess:
		return successColor
	case model.StatusRedirect:
		return redirectColor
	case model.StatusClientError:
		return clientErrColor
	default:
		return serverErrColor
	}
}

func printHeaders(headers map[string]string) {
	if len(headers) == 0 {
		return
	}

	fmt.Fprintln(out, "Headers:")

	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		headerKeyColor.Fprintf(out, "  %s: ", sanitizeOutput(key))
		fmt.Fprintln(out, sanitizeOutput(headers[key]))
	}
	fmt.Fprintln(out)
}

func printRows(title string, rows []model.KeyValue) {
	if len(rows) == 0 {
		return
	}

	fmt.Fprintf(out, "%s:\n", title)
	for _, kv := range rows {
		headerKeyColor.Fprintf(out, "  %s: ", sanitizeOutput(kv.Key))
		fmt.Fprint(out, sanitizeOutput(kv.Value))
		if !kv.Enabled {
			dimColor.Fprint(out, " (disabled)")
		}
		fmt.Fprintln(out)
	}
	fmt.Fprintln(out)
}

func printPayload(p model.Payload, filter string) {
	if p.IsZero() {
		dimColor.Fprintln(out, "(empty body)")
		return
	}

	if filter != "" {
		if !p.IsJSON() {
			dimColor.Fprintln(out, "(filter ignored: body is not JSON)")
		} else {
			result := gjson.GetBytes(p.JSON, filter)
			if !result.Exists() {
				dimColor.Fprintf(out, "(no match for %q)\n", filter)
				return
			}
			fmt.Fprintln(out, sanitizeOutput(prettyJSON(result.Raw)))
			return
		}
	}

	fmt.Fprintln(out, sanitizeOutput(prettyJSON(p.String())))
}

func prettyJSON(s string) string {
	var buf bytes.Buffer
	err := json.Indent(&buf, []byte(s), "", "  ")
	if err != nil {
		return s
	}
	return buf.String()
}

// FormatSize renders a byte count as B, KB or MB
func FormatSize(size int) string {
	switch {
	case size < 1024:
		return fmt.Sprintf("%d B", size)
	case size < 1024*1024:
		return fmt.Sprintf("%.1f KB", float64(size)/1024)
	default:
		return fmt.Sprintf("%.1f MB", float64(size)/(1024*1024))
	}
}

// FormatDuration renders milliseconds as "850ms" or "1.25s"
func FormatDuration(ms int64) string {
	if ms < 1000 {
		return fmt.Sprintf("%dms", ms)
	}
	return fmt.Sprintf("%.2fs", float64(ms)/1000)
}

// PrintRequest prints a one-line request summary
func PrintRequest(req *model.Request) {
	methodColor.Fprintf(out, "%s ", req.Method)
	urlColor.Fprintln(out, sanitizeOutput(req.URL))
}

// PrintRequestDetail prints a request's name, rows and body
func PrintRequestDetail(req *model.Request) {
	fmt.Fprintln(out, "Request:")
	fmt.Fprintln(out, strings.Repeat("-", 40))
	PrintRequest(req)
	dimColor.Fprintf(out, "Name: %s\n", sanitizeOutput(req.Name))
	dimColor.Fprintf(out, "ID: %s\n\n", req.ID)

	printRows("Params", req.Params)
	printRows("Headers", req.Headers)

	if body := req.RawBody(); body != "" {
		fmt.Fprintln(out, "Body:")
		fmt.Fprintln(out, sanitizeOutput(prettyJSON(body)))
		fmt.Fprintln(out)
	}
}

// PrintHistoryList prints history entries in a compact format, newest first
func PrintHistoryList(entries []model.HistoryEntry, limit int) {
	if len(entries) == 0 {
		dimColor.Fprintln(out, "No requests in history")
		return
	}

	count := len(entries)
	if limit > 0 && limit < count {
		count = limit
	}

	for i := 0; i < count; i++ {
		entry := entries[i]
		dimColor.Fprintf(out, "[%d] %s ", i+1, entry.ID)
		methodColor.Fprintf(out, "%-7s ", entry.Request.Method)

		url := entry.Request.URL
		if len(url) > 60 {
			url = url[:57] + "..."
		}
		urlColor.Fprintf(out, "%-60s ", sanitizeOutput(url))

		if entry.Response != nil {
			statusColor(entry.Response.Status).Fprintf(out, "%d ", entry.Response.Status)
			dimColor.Fprintf(out, "(%s)", FormatDuration(entry.Response.ResponseTime))
		} else {
			clientErrColor.Fprint(out, "no response")
		}
		fmt.Fprintln(out)
	}

	if limit > 0 && len(entries) > limit {
		dimColor.Fprintf(out, "\n... and %d more requests\n", len(entries)-limit)
	}
}

// PrintHistoryDetail prints a history entry's request and response
func PrintHistoryDetail(entry *model.HistoryEntry) {
	PrintRequestDetail(&entry.Request)
	dimColor.Fprintf(out, "Sent: %s\n", entry.Timestamp.Format("2006-01-02 15:04:05"))

	if entry.Response == nil {
		clientErrColor.Fprintln(out, "No response received")
		return
	}

	fmt.Fprintln(out, "\nResponse:")
	fmt.Fprintln(out, strings.Repeat("-", 40))
	PrintResponse(entry.Response, ResponseOptions{ShowHeaders: true})
}

// PrintCollectionList prints collections with their request counts
func PrintCollectionList(collections []model.Collection) {
	if len(collections) == 0 {
		dimColor.Fprintln(out, "No collections found")
		return
	}

	fmt.Fprintln(out, "Collections:")
	for i := range collections {
		col := &collections[i]
		headerKeyColor.Fprintf(out, "  %s ", sanitizeOutput(col.Name))
		dimColor.Fprintf(out, "(%d requests, %d folders)\n", len(col.AllRequests()), len(col.Folders))
	}
}

// PrintCollectionTree prints a collection with its folders and requests
func PrintCollectionTree(col *model.Collection) {
	headerKeyColor.Fprintf(out, "Collection: %s\n", sanitizeOutput(col.Name))
	if col.Description != "" {
		dimColor.Fprintln(out, sanitizeOutput(col.Description))
	}
	fmt.Fprintln(out, strings.Repeat("-", 40))

	if len(col.Requests) == 0 && len(col.Folders) == 0 {
		dimColor.Fprintf(out, "Collection '%s' is empty\n", sanitizeOutput(col.Name))
		return
	}

	n := 0
	printTree(col.Requests, col.Folders, 0, &n)
}

func printTree(requests []model.Request, folders []model.Folder, depth int, n *int) {
	indent := strings.Repeat("  ", depth)

	for _, req := range requests {
		*n++
		dimColor.Fprintf(out, "%s[%d] ", indent, *n)
		if req.Name != "" {
			fmt.Fprintf(out, "%s: ", sanitizeOutput(req.Name))
		}
		methodColor.Fprintf(out, "%s ", req.Method)
		urlColor.Fprintln(out, sanitizeOutput(req.URL))
	}

	for _, f := range folders {
		headerKeyColor.Fprintf(out, "%s%s/\n", indent, sanitizeOutput(f.Name))
		printTree(f.Requests, f.Folders, depth+1, n)
	}
}

// PrintVariables prints session variables sorted by name
func PrintVariables(vars map[string]string) {
	if len(vars) == 0 {
		dimColor.Fprintln(out, "No variables set")
		return
	}

	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(out, "Variables:")
	for _, name := range names {
		PrintVariable(name, vars[name])
	}
}

// PrintVariable prints a single variable
func PrintVariable(name, value string) {
	headerKeyColor.Fprintf(out, "  %s ", sanitizeOutput(name))
	dimColor.Fprint(out, "= ")
	fmt.Fprintln(out, sanitizeOutput(value))
}

// PrintFieldErrors prints validation messages keyed by field
func PrintFieldErrors(fields map[string]string) {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		clientErrColor.Fprintf(out, "✗ %s: ", k)
		fmt.Fprintln(out, sanitizeOutput(fields[k]))
	}
}

// PrintSuccess prints a success message
func PrintSuccess(msg string) {
	successColor.Fprintf(out, "✓ %s\n", msg)
}

// PrintError prints an error message
func PrintError(msg string) {
	clientErrColor.Fprintf(out, "✗ %s\n", sanitizeOutput(msg))
}

// PrintInfo prints a dimmed informational line
func PrintInfo(msg string) {
	dimColor.Fprintln(out, msg)
}
