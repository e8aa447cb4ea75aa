// Package common defines shared constants and sentinel errors used across
// the gateway. Callers should use errors.Is / errors.As to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Caller input is malformed; mapped to 400 by the HTTP layer.
	ErrValidation = errors.New("validation error")

	// A downstream call failed without a structured body, or something
	// unexpected happened inside the gateway.
	ErrInternal = errors.New("internal error")

	ErrUnauthorized = errors.New("unauthorized")

	// Capability verification failures.
	ErrTokenInvalid = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	// Upload verification failed; SizeMismatchError wraps it.
	ErrSizeMismatch = errors.New("file size mismatch")

	// Archive hierarchy errors.
	ErrUnresolvedHierarchy = errors.New("unresolved hierarchy")
	ErrHierarchyTooDeep    = errors.New("hierarchy too deep")
)
