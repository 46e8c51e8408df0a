package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/shopauth/internal/auth/service"
	"github.com/aussiebroadwan/shopauth/pkg/authsdk"
	"github.com/aussiebroadwan/shopauth/pkg/slogx"
)

// apiError maps a service error onto its client representation. Unknown
// errors become a dependency failure.
func apiError(err error) *authsdk.APIError {
	switch {
	case errors.Is(err, service.ErrValidation):
		var verr *service.ValidationError
		if errors.As(err, &verr) {
			return authsdk.ErrValidationFailed.WithDetails(verr.Reason)
		}
		return authsdk.ErrValidationFailed
	case errors.Is(err, service.ErrDuplicateUser):
		return authsdk.ErrUserExists
	case errors.Is(err, service.ErrInvalidCredentials):
		return authsdk.ErrInvalidCredentials
	case errors.Is(err, service.ErrAccountDeactivated):
		return authsdk.ErrAccountDeactivated
	case errors.Is(err, service.ErrTokenMissing):
		return authsdk.ErrTokenMissing
	case errors.Is(err, service.ErrTokenExpired):
		return authsdk.ErrTokenExpired
	case errors.Is(err, service.ErrTokenRevoked):
		return authsdk.ErrTokenRevoked
	case errors.Is(err, service.ErrTokenMalformed),
		errors.Is(err, service.ErrTokenKindMismatch),
		errors.Is(err, service.ErrTokenInvalid):
		return authsdk.ErrTokenInvalid
	case errors.Is(err, service.ErrUserNotFound):
		return authsdk.ErrUserNotFound
	case errors.Is(err, service.ErrUnauthenticated):
		return authsdk.ErrAuthRequired
	case errors.Is(err, service.ErrForbidden):
		return authsdk.ErrInsufficientPermissions
	default:
		return authsdk.ErrDependency
	}
}

// writeServiceError renders err. Server side failures are logged with their
// full chain; the client only sees the generic message.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	apiErr := apiError(err)
	if apiErr.StatusCode >= http.StatusInternalServerError {
		slogx.FromContext(r.Context()).Error("request failed", "error", err)
	}
	apiErr.WriteError(w)
}
