package errors

import (
	"errors"
	"strings"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalid      = errors.New("invalid")
	ErrConflict     = errors.New("conflict")
	ErrTooMany      = errors.New("too many requests")
	ErrStorage      = errors.New("storage")
	ErrInternal     = errors.New("internal")
)

// Error carries the kind of failure together with the offending field so the
// boundary layer can pick a status without re-deriving the reason.
type Error struct {
	Kind   error
	Field  string
	Reason string
	Err    error
}

func (e *Error) Error() string {
	parts := make([]string, 0, 3)
	if e.Kind != nil {
		parts = append(parts, e.Kind.Error())
	}
	if e.Field != "" {
		parts = append(parts, e.Field)
	}
	if e.Reason != "" {
		parts = append(parts, e.Reason)
	}
	msg := strings.Join(parts, ": ")
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func Validation(field, reason string) error {
	return &Error{Kind: ErrInvalid, Field: field, Reason: reason}
}

func Conflict(field, reason string) error {
	return &Error{Kind: ErrConflict, Field: field, Reason: reason}
}

func NotFound(field, reason string) error {
	return &Error{Kind: ErrNotFound, Field: field, Reason: reason}
}

func Storage(err error) error {
	return &Error{Kind: ErrStorage, Err: err}
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

func IsInvalid(err error) bool {
	return errors.Is(err, ErrInvalid)
}

// FieldOf returns the offending field recorded on err, if any.
func FieldOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Field
	}
	return ""
}

// ReasonOf returns the human readable reason recorded on err, if any.
func ReasonOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	return ""
}
