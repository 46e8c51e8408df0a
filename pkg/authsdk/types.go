package authsdk

import "time"

// ============================================================================
// Envelopes
// ============================================================================

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details string `json:"details,omitempty"`
}

// MessageResponse is returned by endpoints that carry no data.
type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// ============================================================================
// Users and Tokens
// ============================================================================

// User is the public view of an account.
type User struct {
	UID       string     `json:"uid"`
	Email     string     `json:"email"`
	Name      string     `json:"name"`
	Role      string     `json:"role"`
	IsActive  bool       `json:"isActive"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
	LastLogin *time.Time `json:"lastLogin,omitempty"`
}

// Tokens is an access/refresh token pair.
type Tokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`

	// ExpiresIn is the access token lifetime in seconds
	ExpiresIn int    `json:"expiresIn"`
	TokenType string `json:"tokenType"`
}

// AuthData is the payload of register and login.
type AuthData struct {
	User   User   `json:"user"`
	Tokens Tokens `json:"tokens"`
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	Success bool     `json:"success"`
	Message string   `json:"message,omitempty"`
	Data    AuthData `json:"data"`
}

// RefreshData is the payload of refresh.
type RefreshData struct {
	Tokens Tokens `json:"tokens"`
}

// RefreshResponse is returned by refresh.
type RefreshResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    RefreshData `json:"data"`
}

// UserData wraps a single user.
type UserData struct {
	User User `json:"user"`
}

// UserResponse is returned by profile and the admin status endpoint.
type UserResponse struct {
	Success bool     `json:"success"`
	Message string   `json:"message,omitempty"`
	Data    UserData `json:"data"`
}

// ============================================================================
// Requests
// ============================================================================

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Role     string `json:"role,omitempty"` // customer (default) or admin
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RefreshRequest is the body of both refresh and logout.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type SetUserStatusRequest struct {
	IsActive *bool `json:"isActive"`
}

// ============================================================================
// Health
// ============================================================================

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime"`
	Version string        `json:"version"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks reports each dependency as "ok", "disabled" or "error: ...".
type HealthChecks struct {
	Database         string `json:"database"`
	Revocations      string `json:"revocations"`
	TokenCodec       string `json:"tokenCodec"`
	IdentityProvider string `json:"identityProvider"`
}
