package core

import "github.com/pkg/errors"

var (
	ErrForbidden = NewForbiddenError("permission denied")
)

// NotFoundError reports a missing record, or one the caller may not know about.
type NotFoundError struct {
	Kind string // tactic, user...
}

func NewNotFoundError(kind string) error {
	return &NotFoundError{Kind: kind}
}

func (err NotFoundError) Error() string {
	return err.Kind + " not found"
}

// ForbiddenError reports an action the caller may not perform on a visible record,
// like editing someone else's tactic or drawing on a read-only canvas.
type ForbiddenError struct {
	Reason string
}

func NewForbiddenError(reason string) error {
	return &ForbiddenError{Reason: reason}
}

func (err ForbiddenError) Error() string {
	return err.Reason
}

func IsNotFound(err error) bool {
	_, ok := errors.Cause(err).(*NotFoundError)
	return ok
}

func IsForbidden(err error) bool {
	_, ok := errors.Cause(err).(*ForbiddenError)
	return ok
}

// FieldError is used to indicate an error with a specific field of a tactic, a coach account or an editor message.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		if len(err.Fields) > 0 {
			return err.Fields[0].Field + ": " + err.Fields[0].Error
		}
		return ""
	}
	return err.Err.Error()
}

// Shutdown errors stop the API once reported (see the HTTP error handler).
type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
