// Package domainerrors carries stable failure codes from services to the
// transport edge. Handlers map codes to HTTP statuses; nothing below the
// handler layer knows about HTTP.
package domainerrors

import "errors"

type Code string

const (
	CodeBadRequest         Code = "bad_request"
	CodeValidation         Code = "validation_failed"
	CodeInvariantViolation Code = "invariant_violation"
	CodeUnauthorized       Code = "unauthorized"
	CodeForbidden          Code = "forbidden"
	CodeNotFound           Code = "not_found"
	CodeConflict           Code = "conflict"
	CodeTimeout            Code = "timeout"
	CodeInternal           Code = "internal_error"

	// CodeProvider marks a generation backend that failed or returned unusable output.
	CodeProvider Code = "provider_failure"
	// CodePersistence marks a ledger, registry or tenant write that did not land.
	CodePersistence Code = "persistence_failure"
)

// Error is a coded failure. Message is safe to show callers; Err is the
// underlying cause and stays in logs.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error with the same code, so package-level values such as
// models.ErrNotInstalled work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && e.Code == t.Code
}

func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// Wrap attaches msg and code to err. A code already present in err's chain
// wins over code; use New to reclassify.
func Wrap(err error, code Code, msg string) error {
	if existing, ok := asError(err); ok {
		code = existing.Code
	}
	return &Error{Code: code, Message: msg, Err: err}
}

func HasCode(err error, code Code) bool {
	e, ok := asError(err)
	return ok && e.Code == code
}

// CodeOf returns the first code in err's chain, or CodeInternal.
func CodeOf(err error) Code {
	if e, ok := asError(err); ok {
		return e.Code
	}
	return CodeInternal
}

func asError(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}
