package ckd

import (
	"errors"
	"fmt"
)

var errMissingField = errors.New("missing required field")

// ValidationError is a client-correctable problem with one input field.
type ValidationError struct {
	Field  string
	reason error
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.reason.Error())
}

func (e ValidationError) Unwrap() error {
	return e.reason
}

// MissingField reports an absent required field.
func MissingField(field string) error {
	return ValidationError{Field: field, reason: errMissingField}
}

// InvalidField reports a field outside its accepted encoding.
func InvalidField(field, reason string) error {
	return ValidationError{Field: field, reason: errors.New(reason)}
}

func IsValidationError(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}

// IsMissingField reports whether err is a ValidationError for an absent field.
func IsMissingField(err error) bool {
	return errors.Is(err, errMissingField)
}

// InferenceError means the classifier could not be loaded or produced no
// usable output.
type InferenceError struct {
	Err error
}

func (e InferenceError) Error() string {
	return fmt.Sprintf("inference failed: %v", e.Err)
}

func (e InferenceError) Unwrap() error {
	return e.Err
}

func IsInferenceError(err error) bool {
	var ie InferenceError
	return errors.As(err, &ie)
}
