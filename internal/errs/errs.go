// Package errs defines the error kinds shared across beacon's core
// components, so callers can branch on failure category without
// string-matching messages.
package errs

import "errors"

// Kind classifies a beacon error for callers that need to branch on it
// (e.g. the publisher distinguishing retriable from fatal failures).
type Kind int

const (
	// KindIO covers file open/read/write/lock failures, including
	// "overlapping lock" and "file not lockable".
	KindIO Kind = iota
	// KindParse covers settings file content that failed to parse.
	KindParse
	// KindNetwork covers connection-establishment and stream I/O failures.
	KindNetwork
	// KindServer covers non-2xx HTTP responses.
	KindServer
	// KindState covers programmer errors such as log() after close().
	KindState
	// KindConfig covers malformed host-supplied configuration (e.g. a URL).
	KindConfig
)

func (k Kind) String() string {
	switch k {
	case KindIO:
		return "io"
	case KindParse:
		return "parse"
	case KindNetwork:
		return "network"
	case KindServer:
		return "server"
	case KindState:
		return "state"
	case KindConfig:
		return "config"
	default:
		return "unknown"
	}
}

// Error is a beacon error tagged with a Kind, wrapping an underlying cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Kind.String() + ": " + e.Msg + ": " + e.Err.Error()
	}
	return e.Kind.String() + ": " + e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an *Error of the given kind.
func New(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// IsKind reports whether err (or anything it wraps) is a beacon *Error
// of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
