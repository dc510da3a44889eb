// Package errdefs defines the error taxonomy shared by the ledger, the tool
// registry, the retry wrapper and the remote backends.
package errdefs

import (
	"errors"
	"fmt"
	"strconv"
)

// ValidationError reports malformed tool arguments or a violated ledger
// constraint (for example an unknown transaction kind).
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	msg := e.Message
	if e.Field != "" {
		msg = e.Field + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Invalid is a shorthand for building a ValidationError.
func Invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// StoreError reports a ledger connectivity or IO failure.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return "store " + e.Op + ": " + e.Err.Error()
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// ExternalServiceError reports a remote call that returned a non-2xx status.
type ExternalServiceError struct {
	Service string
	Status  int
	Body    string
	Err     error
}

func (e *ExternalServiceError) Error() string {
	msg := e.Service + " returned status " + strconv.Itoa(e.Status)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ExternalServiceError) Unwrap() error {
	return e.Err
}

// StatusCode returns the HTTP status reported by the remote service.
func (e *ExternalServiceError) StatusCode() int {
	return e.Status
}

// ExhaustedRetryError is returned once every attempt allowed by a retry
// policy has failed. Err is the failure of the last attempt.
type ExhaustedRetryError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedRetryError) Error() string {
	return fmt.Sprintf("retries exhausted after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ExhaustedRetryError) Unwrap() error {
	return e.Err
}

// StatusCode extracts the remote status code carried by err, if any.
func StatusCode(err error) (int, bool) {
	var sc interface{ StatusCode() int }
	if errors.As(err, &sc) {
		return sc.StatusCode(), true
	}
	return 0, false
}

// IsValidation reports whether err is or wraps a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsStore reports whether err is or wraps a StoreError.
func IsStore(err error) bool {
	var s *StoreError
	return errors.As(err, &s)
}
