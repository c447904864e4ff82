package authz

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnauthenticated indicates no valid identity could be resolved from
	// the request.
	ErrUnauthenticated = errors.New("authz: unauthenticated")
	// ErrForbidden indicates an authenticated actor lacks every required
	// capability.
	ErrForbidden = errors.New("authz: forbidden")
	// ErrUnknownUser indicates a policy write referenced a user that does
	// not exist.
	ErrUnknownUser = errors.New("authz: unknown user")
	// ErrUnknownRole indicates a role value outside the fixed enumeration.
	ErrUnknownRole = errors.New("authz: unknown role")
)

// KeyValidationError reports every capability key in a policy write that is
// not part of the registry. The write is rejected in full.
type KeyValidationError struct {
	Keys []string
}

func (e *KeyValidationError) Error() string {
	return fmt.Sprintf("authz: unknown capability keys: %s", strings.Join(e.Keys, ", "))
}

// DenialError carries the capability set that would have satisfied a failed
// authorization check, so responses can explain the denial.
type DenialError struct {
	Required []CapabilityKey
}

func (e *DenialError) Error() string {
	keys := make([]string, len(e.Required))
	for i, key := range e.Required {
		keys[i] = string(key)
	}
	return fmt.Sprintf("authz: requires one of: %s", strings.Join(keys, ", "))
}

// Unwrap lets errors.Is(err, ErrForbidden) match a DenialError.
func (e *DenialError) Unwrap() error {
	return ErrForbidden
}
