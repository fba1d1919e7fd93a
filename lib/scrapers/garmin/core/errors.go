package core

import (
	"errors"
	"fmt"
)

var (
	// ErrTransport is a request that failed on the wire or came back with a
	// non-2xx status.
	ErrTransport = errors.New("transport error")
	// ErrAuth means the login handshake could not establish a session.
	ErrAuth = errors.New("authentication error")
	// ErrParse is a required payload that could not be understood.
	ErrParse = errors.New("parse error")
	// ErrFetch is a required per-activity resource that could not be fetched.
	ErrFetch = errors.New("fetch error")
	// ErrIO is a local file that could not be read or written.
	ErrIO = errors.New("io error")
)

// StatusError is returned for responses outside the 2xx range, the body of
// such responses is never parsed.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("bad return code (%d) for: %s %s", e.StatusCode, e.Method, e.URL)
}

func (e *StatusError) Is(target error) bool {
	return target == ErrTransport
}
