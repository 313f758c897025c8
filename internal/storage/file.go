package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"apitester/internal/model"
)

const (
	// Secure file permissions - owner read/write only
	secureFileMode = 0600 // -rw-------
	secureDirMode  = 0700 // drwx------
)

// sensitiveHeaders are redacted when a collection is written to disk
var sensitiveHeaders = map[string]bool{
	"authorization":        true,
	"proxy-authorization":  true,
	"cookie":               true,
	"set-cookie":           true,
	"x-api-key":            true,
	"api-key":              true,
	"x-auth-token":         true,
	"x-csrf-token":         true,
	"x-xsrf-token":         true,
	"x-access-token":       true,
	"x-refresh-token":      true,
	"x-session-token":      true,
	"x-amz-security-token": true,
}

// Redacted is the placeholder written in place of a sensitive header value
const Redacted = "[REDACTED]"

// WriteCollectionFile exports a collection. Files ending in .json are
// written as JSON, anything else as YAML. Sensitive header values and auth
// secrets are replaced unless keepSecrets is set.
func WriteCollectionFile(path string, col *model.Collection, keepSecrets bool) error {
	out := *col
	if !keepSecrets {
		out = redactCollection(col)
	}

	var (
		data []byte
		err  error
	)
	if isJSONFile(path) {
		data, err = json.MarshalIndent(out, "", "  ")
	} else {
		data, err = yaml.Marshal(out)
	}
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, secureDirMode); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, secureFileMode)
}

// ReadCollectionFile loads a collection previously written by
// WriteCollectionFile
func ReadCollectionFile(path string) (*model.Collection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	col := &model.Collection{}
	if isJSONFile(path) {
		err = json.Unmarshal(data, col)
	} else {
		err = yaml.Unmarshal(data, col)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return col, nil
}

func isJSONFile(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".json")
}

func redactCollection(col *model.Collection) model.Collection {
	out := *col
	out.Requests = redactRequests(col.Requests)
	out.Folders = redactFolders(col.Folders)
	return out
}

func redactFolders(folders []model.Folder) []model.Folder {
	out := make([]model.Folder, len(folders))
	for i, f := range folders {
		out[i] = f
		out[i].Requests = redactRequests(f.Requests)
		out[i].Folders = redactFolders(f.Folders)
	}
	return out
}

func redactRequests(requests []model.Request) []model.Request {
	out := make([]model.Request, len(requests))
	for i := range requests {
		req := requests[i].Clone()
		for j, h := range req.Headers {
			if sensitiveHeaders[strings.ToLower(h.Key)] {
				req.Headers[j].Value = Redacted
			}
		}
		if req.Auth != nil {
			if req.Auth.Token != "" {
				req.Auth.Token = Redacted
			}
			if req.Auth.Password != "" {
				req.Auth.Password = Redacted
			}
			if req.Auth.Value != "" {
				req.Auth.Value = Redacted
			}
		}
		out[i] = *req
	}
	return out
}
