package core

import (
	"errors"
	"fmt"
)

// Kind sentinels. Every pipeline error matches exactly one with errors.Is.
var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")
	ErrForbidden  = errors.New("forbidden")
	ErrRender     = errors.New("render failed")
	ErrPackaging  = errors.New("packaging failed")
	ErrRepository = errors.New("repository error")
)

// Specific conditions, wrapped inside an *Error of the matching kind.
var (
	ErrEmptyColumnSet  = errors.New("no recognized columns selected")
	ErrNoValidRecords  = errors.New("no valid student records")
	ErrStudentNotFound = errors.New("student not found")
	ErrNoDocuments     = errors.New("no student document could be rendered")
	ErrTooManyRenders  = errors.New("too many concurrent renders, please try again later")
)

// Error is a pipeline failure with enough context to build a structured
// response without exposing internals.
type Error struct {
	Kind    error  // one of the kind sentinels
	Op      string // operation that failed, e.g. "aggregate"
	Message string // human-readable message
	Detail  string // optional extra context safe to show callers
	Err     error  // underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *Error) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching against both the kind and the cause.
func (e *Error) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

func newError(kind error, op, message string, err error) *Error {
	return &Error{Kind: kind, Op: op, Message: message, Err: err}
}

// ValidationError reports a malformed request.
func ValidationError(op, message string, err error) *Error {
	return newError(ErrValidation, op, message, err)
}

// NotFoundError reports that there is nothing to build a report from.
func NotFoundError(op, message string, err error) *Error {
	return newError(ErrNotFound, op, message, err)
}

// ForbiddenError reports that the caller may not see a requested student.
func ForbiddenError(op, message string, err error) *Error {
	return newError(ErrForbidden, op, message, err)
}

// RenderError reports a render engine failure.
func RenderError(op, message string, err error) *Error {
	return newError(ErrRender, op, message, err)
}

// PackagingError reports a failure writing the output stream.
func PackagingError(op, message string, err error) *Error {
	return newError(ErrPackaging, op, message, err)
}

// RepositoryError reports a data-access failure.
func RepositoryError(op, message string, err error) *Error {
	return newError(ErrRepository, op, message, err)
}

// WithDetail attaches caller-visible detail and returns e.
func (e *Error) WithDetail(format string, args ...any) *Error {
	e.Detail = fmt.Sprintf(format, args...)
	return e
}

// KindName returns the wire name of err's kind: validation, not_found,
// authorization, render, packaging, repository, or internal.
func KindName(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrForbidden):
		return "authorization"
	case errors.Is(err, ErrRender):
		return "render"
	case errors.Is(err, ErrPackaging):
		return "packaging"
	case errors.Is(err, ErrRepository):
		return "repository"
	default:
		return "internal"
	}
}

// DetailOf returns the Detail of the outermost *Error in err's chain.
func DetailOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Detail
	}
	return ""
}
