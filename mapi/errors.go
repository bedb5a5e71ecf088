package mapi

import "fmt"

// ErrMapi is a sentinel for use with errors.Is to check whether any error
// in a chain is an *Error.
var ErrMapi = &Error{}

// ErrorKind classifies a decode failure.
type ErrorKind string

const (
	// KindCommunication indicates the stream closed or errored
	// unexpectedly: a transport read failure, a clean end-of-stream in
	// the middle of a unit, or an end-of-session unit from the server.
	KindCommunication ErrorKind = "CommunicationFailure"
	// KindProtocol indicates malformed frame shape: a non-numeric unit
	// header, an unrecognized tag, or a missing delimiter before a clean
	// stream end.
	KindProtocol ErrorKind = "ProtocolError"
	// KindServer indicates an explicit error unit (negative status); the
	// message carries the server's diagnostic text.
	KindServer ErrorKind = "ServerError"
	// KindParse indicates a payload field could not be tokenized within
	// the declared column and row counts.
	KindParse ErrorKind = "ParseError"
)

// Error represents a failure while decoding a server response.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Is supports errors.Is by matching any *Error target.
func (e *Error) Is(target error) bool {
	_, ok := target.(*Error)
	return ok
}

func errorf(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}
