// Package dberr defines the shared error taxonomy surfaced by every
// backend adapter. Driver-specific failures are mapped onto one Kind and
// keep the raw backend error attached so callers can render actionable
// diagnostics without backend-specific knowledge.
package dberr

import (
	"errors"
	"fmt"
)

// Kind classifies a backend failure.
type Kind int

const (
	KindUnknown Kind = iota
	KindAuthentication
	KindNetwork
	KindUnsupportedVersion
	KindSyntax
	KindPermission
	KindConstraintViolation
	KindTimeout
	KindCancelled
	KindConnectionLost
	KindPageEvicted
	KindNotConnected
	KindBusy
	KindInternal
)

var kindNames = map[Kind]string{
	KindUnknown:             "unknown",
	KindAuthentication:      "authentication",
	KindNetwork:             "network",
	KindUnsupportedVersion:  "unsupported version",
	KindSyntax:              "syntax",
	KindPermission:          "permission",
	KindConstraintViolation: "constraint violation",
	KindTimeout:             "timeout",
	KindCancelled:           "cancelled",
	KindConnectionLost:      "connection lost",
	KindPageEvicted:         "page evicted",
	KindNotConnected:        "not connected",
	KindBusy:                "busy",
	KindInternal:            "internal",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is the normalized error surfaced to callers. Backend names the
// originating engine and Raw keeps the unmodified driver error.
type Error struct {
	Kind    Kind
	Backend string
	Message string
	Raw     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Raw != nil {
		msg = e.Raw.Error()
	}
	if e.Backend != "" {
		return fmt.Sprintf("%s: %s: %s", e.Backend, e.Kind, msg)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *Error) Unwrap() error { return e.Raw }

// New builds an error with no underlying driver error.
func New(kind Kind, backend, message string) *Error {
	return &Error{Kind: kind, Backend: backend, Message: message}
}

// Newf is New with formatting.
func Newf(kind Kind, backend, format string, args ...any) *Error {
	return &Error{Kind: kind, Backend: backend, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a driver error. The driver message is preserved verbatim
// through Raw; Message may add normalized context.
func Wrap(kind Kind, backend string, raw error) *Error {
	return &Error{Kind: kind, Backend: backend, Raw: raw}
}

// WrapMsg is Wrap with an additional normalized message.
func WrapMsg(kind Kind, backend, message string, raw error) *Error {
	return &Error{Kind: kind, Backend: backend, Message: message, Raw: raw}
}

// KindOf extracts the taxonomy kind from any error. Errors outside the
// taxonomy report KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// AsError returns the taxonomy error inside err, if any.
func AsError(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}
