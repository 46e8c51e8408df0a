package authsdk

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/aussiebroadwan/shopauth/pkg/httpx"
)

// ============================================================================
// Error Codes
// ============================================================================

const (
	ErrorCodeValidationFailed        = "VALIDATION_FAILED"
	ErrorCodeUserExists              = "USER_EXISTS"
	ErrorCodeInvalidCredentials      = "INVALID_CREDENTIALS"
	ErrorCodeAccountDeactivated      = "ACCOUNT_DEACTIVATED"
	ErrorCodeTokenMissing            = "TOKEN_MISSING"
	ErrorCodeTokenInvalid            = "TOKEN_INVALID"
	ErrorCodeTokenExpired            = "TOKEN_EXPIRED"
	ErrorCodeTokenRevoked            = "TOKEN_REVOKED"
	ErrorCodeUserNotFound            = "USER_NOT_FOUND"
	ErrorCodeAuthRequired            = "AUTH_REQUIRED"
	ErrorCodeInsufficientPermissions = "INSUFFICIENT_PERMISSIONS"
	ErrorCodeDependencyError         = "DEPENDENCY_ERROR"
	ErrorCodeRateLimited             = "RATE_LIMITED"
	ErrorCodeNotFound                = "NOT_FOUND"
	ErrorCodeServerError             = "SERVER_ERROR"
)

// ============================================================================
// APIError
// ============================================================================

// APIError is the failure body of every endpoint. The server writes it with
// WriteError and the SDK returns it from failed calls.
type APIError struct {
	// StatusCode is the HTTP status code for this error
	StatusCode int `json:"-"`

	// Code is the stable machine readable code (e.g. "TOKEN_EXPIRED")
	Code string `json:"code"`

	// Message is a human readable description, safe to show to clients
	Message string `json:"error"`

	// Details optionally explains a validation failure
	Details string `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches another APIError with the same code, so callers can write
// errors.Is(err, authsdk.ErrTokenExpired).
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	return ok && t.Code == e.Code
}

// WithDetails returns a copy of e carrying details.
func (e *APIError) WithDetails(details string) *APIError {
	c := *e
	c.Details = details
	return &c
}

// WriteError writes e as a {success:false, error, code} JSON body.
func (e *APIError) WriteError(w http.ResponseWriter) {
	httpx.NoCache(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.StatusCode)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Success: false,
		Error:   e.Message,
		Code:    e.Code,
		Details: e.Details,
	})
}

// ============================================================================
// Predefined Errors
// ============================================================================

var (
	ErrValidationFailed = &APIError{
		StatusCode: http.StatusBadRequest,
		Code:       ErrorCodeValidationFailed,
		Message:    "Validation failed",
	}

	ErrInvalidJSON = &APIError{
		StatusCode: http.StatusBadRequest,
		Code:       ErrorCodeValidationFailed,
		Message:    "Invalid JSON body",
	}

	ErrUserExists = &APIError{
		StatusCode: http.StatusConflict,
		Code:       ErrorCodeUserExists,
		Message:    "User already exists with this email",
	}

	// ErrInvalidCredentials covers both unknown emails and wrong passwords.
	ErrInvalidCredentials = &APIError{
		StatusCode: http.StatusUnauthorized,
		Code:       ErrorCodeInvalidCredentials,
		Message:    "Invalid email or password",
	}

	ErrAccountDeactivated = &APIError{
		StatusCode: http.StatusForbidden,
		Code:       ErrorCodeAccountDeactivated,
		Message:    "Account is deactivated",
	}

	ErrTokenMissing = &APIError{
		StatusCode: http.StatusUnauthorized,
		Code:       ErrorCodeTokenMissing,
		Message:    "No token provided",
	}

	ErrTokenInvalid = &APIError{
		StatusCode: http.StatusUnauthorized,
		Code:       ErrorCodeTokenInvalid,
		Message:    "Invalid token",
	}

	ErrTokenExpired = &APIError{
		StatusCode: http.StatusUnauthorized,
		Code:       ErrorCodeTokenExpired,
		Message:    "Token has expired",
	}

	ErrTokenRevoked = &APIError{
		StatusCode: http.StatusUnauthorized,
		Code:       ErrorCodeTokenRevoked,
		Message:    "Token has been revoked",
	}

	ErrUserNotFound = &APIError{
		StatusCode: http.StatusNotFound,
		Code:       ErrorCodeUserNotFound,
		Message:    "User not found",
	}

	ErrAuthRequired = &APIError{
		StatusCode: http.StatusUnauthorized,
		Code:       ErrorCodeAuthRequired,
		Message:    "Authentication required",
	}

	ErrInsufficientPermissions = &APIError{
		StatusCode: http.StatusForbidden,
		Code:       ErrorCodeInsufficientPermissions,
		Message:    "Access denied",
	}

	// ErrDependency hides the detail of a failing database or store.
	ErrDependency = &APIError{
		StatusCode: http.StatusInternalServerError,
		Code:       ErrorCodeDependencyError,
		Message:    "Service temporarily unavailable",
	}

	ErrRateLimited = &APIError{
		StatusCode: http.StatusTooManyRequests,
		Code:       ErrorCodeRateLimited,
		Message:    "Too many requests, please try again later",
	}
)

// ============================================================================
// Error Parsing Helpers
// ============================================================================

// parseErrorResponse turns a non-2xx response into an *APIError.
func parseErrorResponse(resp *http.Response, body []byte) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Code != "" {
		return &APIError{
			StatusCode: resp.StatusCode,
			Code:       errResp.Code,
			Message:    errResp.Error,
			Details:    errResp.Details,
		}
	}

	return &APIError{
		StatusCode: resp.StatusCode,
		Code:       ErrorCodeServerError,
		Message:    fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
	}
}
