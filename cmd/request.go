package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"apitester/internal/composer"
	"apitester/internal/format"
	"apitester/internal/model"
	"apitester/internal/storage"
)

var requestMethods = model.Methods

// requestFlags are the flags shared by every method command
type requestFlags struct {
	name       string
	headers    []string
	params     []string
	data       string
	sets       []string
	filter     string
	relay      bool
	relayURL   string
	noHistory  bool
	collection string
	folder     string
}

func newRequestCmd(app *App, method model.Method) *cobra.Command {
	flags := &requestFlags{}
	lower := strings.ToLower(string(method))

	cmd := &cobra.Command{
		Use:   lower + " <url>",
		Short: fmt.Sprintf("Send a %s request", method),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRequest(cmd, app, method, args[0], flags)
		},
	}
	addRequestFlags(cmd, flags)
	return cmd
}

func addRequestFlags(cmd *cobra.Command, f *requestFlags) {
	cmd.Flags().StringVarP(&f.name, "name", "n", "", "Request name")
	cmd.Flags().StringArrayVarP(&f.headers, "header", "H", []string{}, `Add header "Key: Value" (prefix with # to disable)`)
	cmd.Flags().StringArrayVarP(&f.params, "query", "q", []string{}, "Add query parameter key=value (prefix with # to disable)")
	cmd.Flags().StringVarP(&f.data, "data", "d", "", "Request body (JSON string or @filename)")
	cmd.Flags().StringArrayVar(&f.sets, "set", []string{}, "Set a JSON body field, e.g. --set user.name=John")
	cmd.Flags().StringVar(&f.filter, "filter", "", "Show only part of a JSON response (gjson path)")
	cmd.Flags().BoolVar(&f.relay, "relay", false, "Send through the relay server")
	cmd.Flags().StringVar(&f.relayURL, "relay-url", "", "Relay endpoint (default from config)")
	cmd.Flags().BoolVar(&f.noHistory, "no-history", false, "Don't save to history")
	cmd.Flags().StringVarP(&f.collection, "collection", "c", "", "Save to collection")
	cmd.Flags().StringVar(&f.folder, "folder", "", "Folder path inside the collection, e.g. users/admin")
}

func runRequest(cmd *cobra.Command, app *App, method model.Method, url string, f *requestFlags) error {
	verbose, _ := cmd.Flags().GetBool("verbose")

	draft, err := buildDraft(method, url, f)
	if err != nil {
		return err
	}

	vars, err := app.store.Variables()
	if err != nil {
		return err
	}
	draft.Expand(vars)

	comp := app.composer(dispatchOptions{relay: f.relay, relayURL: f.relayURL, noHistory: f.noHistory})
	req, resp, err := comp.Submit(cmd.Context(), draft)
	if req == nil {
		return err
	}

	if f.collection != "" {
		if saveErr := saveToCollection(app.store, f.collection, f.folder, *req); saveErr != nil {
			format.PrintError(fmt.Sprintf("Failed to save to collection: %v", saveErr))
		} else {
			format.PrintSuccess(fmt.Sprintf("Saved to collection '%s'", f.collection))
		}
	}

	if err != nil {
		return err
	}

	format.PrintResponse(resp, format.ResponseOptions{ShowHeaders: verbose, Filter: f.filter})
	return nil
}

// saveToCollection adds req to the named collection, creating the collection
// when the session does not have it yet
func saveToCollection(store *storage.SessionStore, collection, folder string, req model.Request) error {
	err := store.AddRequest(collection, folder, req)
	if !errors.Is(err, storage.ErrNotFound) {
		return err
	}
	if _, err := store.CreateCollection(collection, ""); err != nil {
		return err
	}
	return store.AddRequest(collection, folder, req)
}

// buildDraft turns command-line input into a draft
func buildDraft(method model.Method, url string, f *requestFlags) (*composer.Draft, error) {
	draft := composer.NewDraft()
	draft.Method = method
	draft.URL = url
	if f.name != "" {
		draft.Name = f.name
	}

	for _, h := range f.headers {
		key, value, enabled, err := parseRow(h, ":")
		if err != nil {
			return nil, fmt.Errorf("invalid header %q: %w", h, err)
		}
		draft.AddHeader(key, value, enabled)
	}

	for _, q := range f.params {
		key, value, enabled, err := parseRow(q, "=")
		if err != nil {
			return nil, fmt.Errorf("invalid query parameter %q: %w", q, err)
		}
		draft.AddParam(key, value, enabled)
	}

	body := f.data
	if strings.HasPrefix(body, "@") {
		content, err := readBodyFromFile(strings.TrimPrefix(body, "@"))
		if err != nil {
			return nil, fmt.Errorf("failed to read file: %w", err)
		}
		body = content
	}
	if body != "" {
		draft.SetBody(body)
	}

	for _, s := range f.sets {
		path, value, ok := strings.Cut(s, "=")
		if !ok || strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("invalid --set %q: expected path=value", s)
		}
		if err := draft.SetBodyField(strings.TrimSpace(path), value); err != nil {
			return nil, err
		}
	}

	return draft, nil
}

// parseRow splits "key<sep>value". A leading # keeps the row but disables it.
func parseRow(s, sep string) (key, value string, enabled bool, err error) {
	enabled = true
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "#") {
		enabled = false
		s = strings.TrimSpace(strings.TrimPrefix(s, "#"))
	}

	k, v, ok := strings.Cut(s, sep)
	if !ok {
		return "", "", false, fmt.Errorf("expected key%svalue", sep)
	}
	return strings.TrimSpace(k), strings.TrimSpace(v), enabled, nil
}

// readBodyFromFile reads file content with path validation to prevent directory traversal
func readBodyFromFile(filename string) (string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}

	absPath, err := filepath.Abs(filename)
	if err != nil {
		return "", fmt.Errorf("invalid file path: %w", err)
	}
	cleanPath := filepath.Clean(absPath)

	if !withinDir(cleanPath, wd) {
		return "", fmt.Errorf("access denied: file must be within current directory")
	}

	// Symlinks must resolve inside the working directory too
	realPath, err := filepath.EvalSymlinks(cleanPath)
	if err != nil {
		if !os.IsNotExist(err) {
			return "", fmt.Errorf("failed to resolve path: %w", err)
		}
		realPath = cleanPath
	} else if !withinDir(realPath, wd) {
		return "", fmt.Errorf("access denied: symlink target must be within current directory")
	}

	content, err := os.ReadFile(realPath)
	if err != nil {
		return "", err
	}
	return string(content), nil
}

func withinDir(path, dir string) bool {
	return path == dir || strings.HasPrefix(path, dir+string(filepath.Separator))
}
