// Package corerr defines the closed set of error kinds propagated by the
// core's operations (spec.md §7). None of these are panics; every fallible
// operation returns one of these, typically wrapped with golang.org/x/xerrors
// to preserve a call-frame chain for logging.
package corerr

import (
	"golang.org/x/xerrors"
)

// Kind classifies an error returned by a core operation.
type Kind int

const (
	// UnknownDocument means no open snapshot exists for a uri that was required.
	UnknownDocument Kind = iota + 1
	// InvalidRange means positions do not resolve in the snapshot.
	InvalidRange
	// InvalidName means a rename new-name failed compound-name parsing.
	InvalidName
	// DaemonError wraps an error returned by the analysis daemon.
	DaemonError
	// DocumentModified means a long-running task raced a newer edit.
	DocumentModified
	// WorkspaceNotOpen means a request arrived for a uri whose workspace is unknown.
	WorkspaceNotOpen
	// Internal means an invariant was violated.
	Internal
)

func (k Kind) String() string {
	switch k {
	case UnknownDocument:
		return "unknown-document"
	case InvalidRange:
		return "invalid-range"
	case InvalidName:
		return "invalid-name"
	case DaemonError:
		return "daemon-error"
	case DocumentModified:
		return "document-modified"
	case WorkspaceNotOpen:
		return "workspace-not-open"
	case Internal:
		return "internal"
	default:
		return "unknown-kind"
	}
}

// DaemonSubkind further classifies a DaemonError.
type DaemonSubkind int

const (
	DaemonCancelled DaemonSubkind = iota + 1
	DaemonFailed
	DaemonInvalidRequest
	DaemonMissingSymbol
	DaemonInterrupted
)

func (s DaemonSubkind) String() string {
	switch s {
	case DaemonCancelled:
		return "cancelled"
	case DaemonFailed:
		return "failed"
	case DaemonInvalidRequest:
		return "invalid-request"
	case DaemonMissingSymbol:
		return "missing-symbol"
	case DaemonInterrupted:
		return "interrupted"
	default:
		return "unknown-subkind"
	}
}

// Error is the concrete error type returned by core operations.
type Error struct {
	Kind    Kind
	Sub     DaemonSubkind // only meaningful when Kind == DaemonError
	Message string
	Wrapped error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Kind == DaemonError && e.Sub != 0 {
		msg += "(" + e.Sub.String() + ")"
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Wrapped != nil {
		msg += ": " + e.Wrapped.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Wrapped }

// New constructs an *Error of the given kind with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: xerrors.Errorf(format, args...).Error()}
}

// Wrap constructs an *Error of the given kind that wraps err, preserving
// err's frame via xerrors so %+v printing retains the causal chain.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	if len(args) == 0 && format == "" {
		return &Error{Kind: kind, Wrapped: err}
	}
	wrapped := xerrors.Errorf(format+": %w", append(args, err)...)
	return &Error{Kind: kind, Wrapped: wrapped}
}

// Daemon constructs a DaemonError with the given subkind.
func Daemon(sub DaemonSubkind, err error) *Error {
	return &Error{Kind: DaemonError, Sub: sub, Wrapped: err}
}

// Is reports whether err is a corerr *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if xerrors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// IsDaemonSub reports whether err is a DaemonError of the given subkind.
func IsDaemonSub(err error, sub DaemonSubkind) bool {
	var e *Error
	if xerrors.As(err, &e) {
		return e.Kind == DaemonError && e.Sub == sub
	}
	return false
}
