// Package errs defines the error kinds shared by the scoreboard core and the
// helpers used to attach an operation name and detail to them.
//
// Every error produced by the core wraps exactly one kind, so callers map
// errors to protocol responses with errors.Is against the sentinels below.
package errs

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel kinds.
var (
	ErrInvalidTimeframe        = errors.New("invalid timeframe")
	ErrInvalidLimit            = errors.New("invalid limit")
	ErrMissingField            = errors.New("missing field")
	ErrInvalidSpuriousSelector = errors.New("invalid spurious selector")
	ErrInvalidDate             = errors.New("invalid date")
	ErrConflictingArguments    = errors.New("conflicting arguments")
	ErrRecordNotFound          = errors.New("record not found")
	ErrStorageUnavailable      = errors.New("storage unavailable")
	ErrAlreadyExists           = errors.New("already exists")
	ErrInvalidArgument         = errors.New("invalid argument")
)

var kinds = []error{
	ErrInvalidTimeframe,
	ErrInvalidLimit,
	ErrMissingField,
	ErrInvalidSpuriousSelector,
	ErrInvalidDate,
	ErrConflictingArguments,
	ErrRecordNotFound,
	ErrStorageUnavailable,
	ErrAlreadyExists,
	ErrInvalidArgument,
}

// Error is a kinded error carrying the failing operation and a human-readable detail.
type Error struct {
	Op     string
	Kind   error
	Detail string
	Err    error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.Error())
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes both the kind and the underlying cause to errors.Is/As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// NewKind returns an error of the given kind without further detail.
func NewKind(op string, kind error) error {
	return &Error{Op: op, Kind: kind}
}

// Newf returns an error of the given kind with a formatted detail.
func Newf(op string, kind error, format string, args ...any) error {
	return &Error{Op: op, Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// WrapKind attaches kind to a lower-level cause.
func WrapKind(op string, kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Kind: kind, Err: err}
}

// Wrap prefixes err with op. Kinded errors keep their kind and detail; any
// other error is reported as storage unavailable.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return &Error{Op: op, Kind: e.Kind, Detail: e.Detail, Err: e.Err}
	}
	return &Error{Op: op, Kind: ErrStorageUnavailable, Err: err}
}

// MissingField reports a required field absent from the input.
func MissingField(op, field string) error {
	return &Error{Op: op, Kind: ErrMissingField, Detail: field}
}

// KindOf returns the sentinel kind wrapped by err, or nil when err carries none.
func KindOf(err error) error {
	if err == nil {
		return nil
	}
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

// Detail returns the detail string of a kinded error, or "" when absent.
func Detail(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Detail
	}
	return ""
}

// Code returns a snake_case token for the kind of err, "internal_error" when unknown.
func Code(err error) string {
	switch KindOf(err) {
	case ErrInvalidTimeframe:
		return "invalid_timeframe"
	case ErrInvalidLimit:
		return "invalid_limit"
	case ErrMissingField:
		return "missing_field"
	case ErrInvalidSpuriousSelector:
		return "invalid_spurious_selector"
	case ErrInvalidDate:
		return "invalid_date"
	case ErrConflictingArguments:
		return "conflicting_arguments"
	case ErrRecordNotFound:
		return "record_not_found"
	case ErrStorageUnavailable:
		return "storage_unavailable"
	case ErrAlreadyExists:
		return "already_exists"
	case ErrInvalidArgument:
		return "invalid_argument"
	default:
		return "internal_error"
	}
}
