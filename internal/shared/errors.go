package shared

import "errors"

// Cross-cutting sentinel errors. Domain packages define their own sentinels
// for domain-specific failures; these cover the cases every layer shares.
var (
	// ErrNotFound indicates the requested resource does not exist.
	ErrNotFound = errors.New("shared: not found")
	// ErrInvalidCredentials covers every authentication failure, including
	// deactivated accounts, so responses leak nothing about the cause.
	ErrInvalidCredentials = errors.New("shared: invalid credentials")
	// ErrCSRFTokenMissing indicates a mutating request without a token.
	ErrCSRFTokenMissing = errors.New("shared: csrf token missing")
	// ErrCSRFTokenMismatch indicates a token that does not match the session.
	ErrCSRFTokenMismatch = errors.New("shared: csrf token mismatch")
)
