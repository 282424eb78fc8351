package radiance

import (
	"errors"
	"fmt"
)

// ErrorKind identifies the category of a decoding failure.
type ErrorKind int

const (
	// KindMissingFiletype is reported when the dimension line is reached without a
	// RADIANCE or RGBE filetype declaration.
	KindMissingFiletype ErrorKind = iota
	// KindInvalidDimension is reported for non-positive, oversized or inconsistent extents.
	KindInvalidDimension
	// KindScanlineMarker is reported when a new-scheme lead-in pixel declares a wrong length.
	KindScanlineMarker
	// KindTruncated is reported when input ends before the picture is complete.
	KindTruncated
	// KindMalformedHeader is reported for header lines that match no known pattern.
	KindMalformedHeader
	// KindCorruptScanline is reported when run-length data does not fit the scanline.
	KindCorruptScanline
	// KindIncomplete is reported when the picture is requested before decoding finished.
	KindIncomplete
)

// String returns the string representation of the error kind.
func (k ErrorKind) String() string {
	switch k {
	case KindMissingFiletype:
		return "missing filetype"
	case KindInvalidDimension:
		return "invalid dimension"
	case KindScanlineMarker:
		return "scanline marker"
	case KindTruncated:
		return "truncated"
	case KindMalformedHeader:
		return "malformed header"
	case KindCorruptScanline:
		return "corrupt scanline"
	case KindIncomplete:
		return "incomplete"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is matching by kind.
var (
	ErrMissingFiletype  = &DecodeError{Kind: KindMissingFiletype}
	ErrInvalidDimension = &DecodeError{Kind: KindInvalidDimension}
	ErrScanlineMarker   = &DecodeError{Kind: KindScanlineMarker}
	ErrTruncated        = &DecodeError{Kind: KindTruncated}
	ErrMalformedHeader  = &DecodeError{Kind: KindMalformedHeader}
	ErrCorruptScanline  = &DecodeError{Kind: KindCorruptScanline}
	ErrNotFinished      = &DecodeError{Kind: KindIncomplete}
)

// ErrClosed is returned by Write after Close.
var ErrClosed = errors.New("radiance: write after close")

// DecodeError describes a fatal decoding failure.
type DecodeError struct {
	Op      string
	Kind    ErrorKind
	Message string
	Err     error
}

// Error returns the formatted error message.
func (e *DecodeError) Error() string {
	msg := "radiance " + e.Kind.String()
	if e.Op != "" {
		msg += ": " + e.Op
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Is matches errors of the same kind; a target with an Op also has to match it.
func (e *DecodeError) Is(target error) bool {
	var t *DecodeError
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind && (t.Op == "" || t.Op == e.Op)
}

// IsKind reports whether err is a DecodeError of one of the given kinds,
// or of any kind when none are given.
func IsKind(err error, kinds ...ErrorKind) bool {
	var de *DecodeError
	if !errors.As(err, &de) {
		return false
	}
	if len(kinds) == 0 {
		return true
	}
	for _, k := range kinds {
		if de.Kind == k {
			return true
		}
	}
	return false
}

// KindOf extracts the kind of a DecodeError, or -1 for other errors.
func KindOf(err error) ErrorKind {
	var de *DecodeError
	if errors.As(err, &de) {
		return de.Kind
	}
	return ErrorKind(-1)
}

func newError(op string, kind ErrorKind, format string, args ...any) *DecodeError {
	return &DecodeError{Op: op, Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func wrapError(op string, kind ErrorKind, message string, err error) *DecodeError {
	return &DecodeError{Op: op, Kind: kind, Message: message, Err: err}
}
