package common

import (
	"errors"
	"fmt"
)

// ServiceError is a structured failure returned by a downstream service.
// Code and Message are propagated to the caller unchanged.
type ServiceError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	// Status is the HTTP status the downstream service answered with.
	Status int   `json:"-"`
	Cause  error `json:"-"`
}

func (e *ServiceError) Error() string {
	if e.Message == "" {
		return e.Code
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ServiceError) Unwrap() error { return e.Cause }

// SizeMismatchError reports that the object store stored a different number
// of bytes than the caller announced.
type SizeMismatchError struct {
	Expected int64
	Actual   int64
}

func (e *SizeMismatchError) Error() string {
	return fmt.Sprintf("failed to upload file, file size mismatch, expected: %d, actual: %d", e.Expected, e.Actual)
}

func (e *SizeMismatchError) Unwrap() error { return ErrSizeMismatch }

// Internalf wraps ErrInternal with a formatted context message.
func Internalf(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrInternal)
}

// Validationf wraps ErrValidation with a formatted context message.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrValidation)
}

// AsServiceError is a shorthand for errors.As on *ServiceError.
func AsServiceError(err error) (*ServiceError, bool) {
	var se *ServiceError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}
