package model

import "time"

// HistoryEntry pairs a sent request with its response, if one arrived
type HistoryEntry struct {
	ID        string    `json:"id"`
	Request   Request   `json:"request"`
	Response  *Response `json:"response,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Folder is a nested grouping inside a collection
type Folder struct {
	ID          string    `json:"id" yaml:"id"`
	Name        string    `json:"name" yaml:"name"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	Requests    []Request `json:"requests" yaml:"requests"`
	Folders     []Folder  `json:"folders" yaml:"folders"`
}

// Collection represents a named group of saved requests
type Collection struct {
	ID          string    `json:"id" yaml:"id"`
	Name        string    `json:"name" yaml:"name"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	Requests    []Request `json:"requests" yaml:"requests"`
	Folders     []Folder  `json:"folders" yaml:"folders"`
	CreatedAt   time.Time `json:"createdAt" yaml:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt" yaml:"updatedAt"`
}

// AllRequests walks the collection depth-first: own requests, then each folder
func (c *Collection) AllRequests() []Request {
	out := append([]Request(nil), c.Requests...)
	for i := range c.Folders {
		out = append(out, c.Folders[i].allRequests()...)
	}
	return out
}

func (f *Folder) allRequests() []Request {
	out := append([]Request(nil), f.Requests...)
	for i := range f.Folders {
		out = append(out, f.Folders[i].allRequests()...)
	}
	return out
}

// Variable is a session environment variable
type Variable struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}
