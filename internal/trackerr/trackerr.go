// Package trackerr defines the structured error kinds the track editor
// surfaces to its adapter. The adapter maps kinds to HTTP status codes;
// the core only cares about the kind and a short human-readable message.
package trackerr

import (
	"errors"
	"fmt"
)

// Kind classifies an editor error.
type Kind int

const (
	// KindInternal is an invariant breach or unexpected codec error.
	KindInternal Kind = iota
	// KindUnsupportedFormat means the filename suffix is not recognised.
	KindUnsupportedFormat
	// KindInvalidFormat means a codec could not parse required structure.
	KindInvalidFormat
	// KindNotFound means the session id has no live session.
	KindNotFound
	// KindInvalidArgument is a precondition violation on structurally
	// valid inputs (timestamp ordering, empty trim, bad stuck ranges).
	KindInvalidArgument
	// KindOutOfRange means a segment or point index is outside the
	// current track's bounds.
	KindOutOfRange
	// KindUnsupportedExportFormat means export was requested in a format
	// with no encoder.
	KindUnsupportedExportFormat
)

// String returns the wire name of the kind.
func (k Kind) String() string {
	switch k {
	case KindUnsupportedFormat:
		return "unsupported_format"
	case KindInvalidFormat:
		return "invalid_format"
	case KindNotFound:
		return "not_found"
	case KindInvalidArgument:
		return "invalid_argument"
	case KindOutOfRange:
		return "out_of_range"
	case KindUnsupportedExportFormat:
		return "unsupported_export_format"
	default:
		return "internal"
	}
}

// Error carries a kind and a message.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

// New builds an Error of the given kind with a formatted message.
func New(kind Kind, format string, args ...interface{}) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// KindOf extracts the kind from err. Errors that are not (and do not
// wrap) an *Error are classified as internal.
func KindOf(err error) Kind {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
