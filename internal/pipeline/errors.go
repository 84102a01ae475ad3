package pipeline

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a stage failure.
type ErrorKind string

const (
	KindExtraction      ErrorKind = "extraction"
	KindTransformation  ErrorKind = "transformation"
	KindLoad            ErrorKind = "load"
	KindExternalService ErrorKind = "external_service"
)

// Error is a stage error carrying its kind and the original cause. Stage code
// wraps low-level parser and filesystem errors in one of these rather than
// letting them propagate unchanged.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind ErrorKind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// ExtractionError marks a document that could not be parsed as a PDF or has
// no pages.
func ExtractionError(message string, err error) *Error {
	return newError(KindExtraction, message, err)
}

// TransformationError is reserved for non-degradable transformation faults.
func TransformationError(message string, err error) *Error {
	return newError(KindTransformation, message, err)
}

// LoadError marks an unwritable destination.
func LoadError(message string, err error) *Error {
	return newError(KindLoad, message, err)
}

// ExternalServiceError marks an exhausted language-model call. It degrades
// enrichment instead of failing the run.
func ExternalServiceError(message string, err error) *Error {
	return newError(KindExternalService, message, err)
}

// KindOf returns the kind of err if it is (or wraps) a stage error.
func KindOf(err error) (ErrorKind, bool) {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind, true
	}
	return "", false
}
