package http

import (
	"context"
	"errors"
	"io"
	"net"
	"net/url"
	"syscall"
)

// ErrNoResponse is returned when the request went out but nothing came back
var ErrNoResponse = errors.New("No response received from server. Please check the URL and try again.")

// describeError maps a transport failure onto the error shown to the user.
// Connectivity failures collapse into ErrNoResponse; anything else keeps its
// own message.
func describeError(err error) error {
	if isNoResponse(err) {
		return ErrNoResponse
	}
	return err
}

func isNoResponse(err error) bool {
	// *url.Error satisfies net.Error itself, so look at what it wraps
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		err = urlErr.Err
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, io.EOF),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.ECONNRESET):
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}
