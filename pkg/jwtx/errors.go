package jwtx

import "errors"

var (
	// ErrConfig is returned when no signing secret is configured for a token
	// kind. Issuance and verification for that kind are disabled.
	ErrConfig = errors.New("jwtx: signing secret not configured")

	ErrMalformed      = errors.New("jwtx: malformed token")
	ErrExpired        = errors.New("jwtx: token expired")
	ErrKindMismatch   = errors.New("jwtx: token kind mismatch")
	ErrMissingSubject = errors.New("jwtx: missing subject")
)
