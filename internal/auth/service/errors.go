package service

import (
	"errors"
	"fmt"

	"github.com/aussiebroadwan/shopauth/pkg/jwtx"
)

var (
	ErrValidation         = errors.New("validation failed")
	ErrDuplicateUser      = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountDeactivated = errors.New("account deactivated")
	ErrUserNotFound       = errors.New("user not found")

	ErrTokenMissing      = errors.New("token missing")
	ErrTokenMalformed    = errors.New("token malformed")
	ErrTokenExpired      = errors.New("token expired")
	ErrTokenKindMismatch = errors.New("token kind mismatch")
	ErrTokenRevoked      = errors.New("token revoked")
	ErrTokenInvalid      = errors.New("token invalid")

	ErrUnauthenticated = errors.New("authentication required")
	ErrForbidden       = errors.New("insufficient permissions")

	// ErrDependency wraps unexpected failures of the user directory, the
	// revocation store or the token codec. The wrapped detail is for logs only.
	ErrDependency = errors.New("dependency failure")
)

// ValidationError carries a client-safe description of rejected input.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return "validation failed: " + e.Reason }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func dependency(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrDependency, op, err)
}

// tokenError maps codec failures onto the service taxonomy.
func tokenError(err error) error {
	switch {
	case errors.Is(err, jwtx.ErrExpired):
		return ErrTokenExpired
	case errors.Is(err, jwtx.ErrKindMismatch):
		return ErrTokenKindMismatch
	case errors.Is(err, jwtx.ErrConfig):
		return dependency("token codec", err)
	default:
		return ErrTokenMalformed
	}
}

func isDependency(err error) bool { return errors.Is(err, ErrDependency) }
