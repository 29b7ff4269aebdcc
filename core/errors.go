package core

import "github.com/pkg/errors"

// FieldError ties a validation failure to the request field that caused it,
// mirroring the per-field error maps the API returns.
type FieldError struct {
	Field string
	Error string
}

// ValidationError carries either a general error or a set of field errors;
// the HTTP error handler renders Fields as a `{"field": "message"}` map.
type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

// NewFieldError builds the common single-field case.
func NewFieldError(field, msg string) error {
	return &ValidationError{Fields: []FieldError{{Field: field, Error: msg}}}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

type shutdown struct {
	message string
}

// NewShutdownError flags an integrity issue that the server cannot recover
// from; the HTTP error handler triggers a graceful shutdown on it.
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
