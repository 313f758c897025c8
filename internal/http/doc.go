// Package http dispatches composed requests and normalizes their results.
//
// A Client sends a model.Request either straight to its target or through a
// relay server, and turns the outcome into exactly one of:
//   - a model.Response, for any status code including 4xx and 5xx
//   - ErrNoResponse, when the target could not be reached
//   - the underlying error, for anything else
package http
