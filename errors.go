package kvgate

import "errors"

// ErrRequestTimeout is returned when a call does not complete within
// the client's request timeout. The in-flight operation is abandoned
// locally but not cancelled at the store, so a timed-out call means
// "outcome unknown", not "did not happen". The client stays fully
// usable afterwards.
var ErrRequestTimeout = errors.New("kvgate: request timed out")

// ErrClosed is returned when an operation is attempted on a closed
// connection.
var ErrClosed = errors.New("kvgate: connection closed")

// TypeError is a reply-coercion failure: the wire reply could not be
// reinterpreted as the semantic type the command calls for.
type TypeError struct {
	Message string
	Err     error
}

func (e *TypeError) Error() string {
	if e.Err != nil {
		return "kvgate: " + e.Message + ": " + e.Err.Error()
	}
	return "kvgate: " + e.Message
}

func (e *TypeError) Unwrap() error {
	return e.Err
}

// ConnectionErrorKind identifies which construction path failed.
type ConnectionErrorKind uint8

const (
	ConnectionErrorStandalone ConnectionErrorKind = iota
	ConnectionErrorCluster
	ConnectionErrorTimeout
)

// ConnectionError is the unified construction failure: either topology
// path failing, or the overall construction deadline expiring. The
// deadline case supersedes any partial failure.
type ConnectionError struct {
	Kind ConnectionErrorKind
	Err  error
}

func (e *ConnectionError) Error() string {
	switch e.Kind {
	case ConnectionErrorStandalone:
		return "kvgate: standalone connection failed: " + e.Err.Error()
	case ConnectionErrorCluster:
		return "kvgate: cluster connection failed: " + e.Err.Error()
	case ConnectionErrorTimeout:
		return "kvgate: connection attempt timed out"
	}
	return "kvgate: connection failed"
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}
