package notion

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the Notion client.
// TransportError and RemoteError wrap one of these so callers can use
// errors.Is without inspecting the concrete type.
var (
	// ErrTransport is the root of all network-level failures.
	ErrTransport = errors.New("notion transport error")

	// ErrRemote is the root of all failures reported by the remote side:
	// non-success status codes and bodies that cannot be decoded.
	ErrRemote = errors.New("notion remote error")

	// ErrMalformedResponse is returned when a list response has no results member
	// or is not valid JSON.
	ErrMalformedResponse = errors.New("malformed response body")

	// ErrInvalidPageSize is returned when a page size outside 1..MaxPageSize is requested.
	ErrInvalidPageSize = errors.New("invalid page size: must be between 1 and 100")

	// ErrEmptyID is returned when a collection or page id is empty.
	ErrEmptyID = errors.New("empty notion id")
)

// TransportError describes a request that never produced an HTTP response.
type TransportError struct {
	// Op is a short description of the request ("GET /v1/blocks/x/children").
	Op string

	// Err is the underlying network error.
	Err error
}

// Error implements error.
func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrTransport, e.Op, e.Err)
}

// Unwrap allows errors.Is(err, ErrTransport) and access to the network error.
func (e *TransportError) Unwrap() []error {
	return []error{ErrTransport, e.Err}
}

// RemoteError describes a response the client could not use.
type RemoteError struct {
	// Op is a short description of the request.
	Op string

	// StatusCode is the HTTP status, 0 when the body was malformed on a 2xx.
	StatusCode int

	// Code is the Notion error code (e.g. "object_not_found", "rate_limited").
	Code string

	// Message is the Notion error message or a decoding error description.
	Message string

	// Err is an optional underlying error such as ErrMalformedResponse.
	Err error
}

// Error implements error.
func (e *RemoteError) Error() string {
	msg := fmt.Sprintf("%s: %s", ErrRemote, e.Op)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(": status %d", e.StatusCode)
	}
	if e.Code != "" {
		msg += " (" + e.Code + ")"
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

// Unwrap allows errors.Is(err, ErrRemote) and errors.Is(err, ErrMalformedResponse).
func (e *RemoteError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrRemote, e.Err}
	}
	return []error{ErrRemote}
}
