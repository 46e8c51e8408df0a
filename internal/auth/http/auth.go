package http

import (
	"net/http"

	"github.com/aussiebroadwan/shopauth/internal/auth/service"
	"github.com/aussiebroadwan/shopauth/pkg/authsdk"
	"github.com/aussiebroadwan/shopauth/pkg/httpx"
	"github.com/aussiebroadwan/shopauth/pkg/slogx"
)

// AuthHandler serves the account and token endpoints.
type AuthHandler struct {
	AuthService *service.AuthService
}

// HandleRegister godoc
//
//	@Summary		Register
//	@Description	Creates a customer (or admin) account and signs it in. The response carries a fresh token pair.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.RegisterRequest	true	"email, password, name, optional role"
//	@Success		201		{object}	authsdk.AuthResponse	"user, tokens"
//	@Failure		400		{object}	authsdk.ErrorResponse	"VALIDATION_FAILED"
//	@Failure		409		{object}	authsdk.ErrorResponse	"USER_EXISTS"
//	@Failure		429		{object}	authsdk.ErrorResponse	"RATE_LIMITED"
//	@Failure		500		{object}	authsdk.ErrorResponse	"DEPENDENCY_ERROR"
//	@Router			/api/jwt-auth/register [post].
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req authsdk.RegisterRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		authsdk.ErrInvalidJSON.WriteError(w)
		return
	}

	user, pair, err := h.AuthService.Register(r.Context(), service.RegisterInput{
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.Name,
		Role:        req.Role,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, authsdk.AuthResponse{
		Success: true,
		Message: "User registered successfully",
		Data:    authsdk.AuthData{User: userView(user, false), Tokens: tokensView(pair)},
	})
}

// HandleLogin godoc
//
//	@Summary		Login
//	@Description	Exchanges email and password for a token pair. Any refresh token issued earlier stops working.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.LoginRequest	true	"email, password"
//	@Success		200		{object}	authsdk.AuthResponse	"user, tokens"
//	@Failure		400		{object}	authsdk.ErrorResponse	"VALIDATION_FAILED"
//	@Failure		401		{object}	authsdk.ErrorResponse	"INVALID_CREDENTIALS"
//	@Failure		403		{object}	authsdk.ErrorResponse	"ACCOUNT_DEACTIVATED"
//	@Failure		429		{object}	authsdk.ErrorResponse	"RATE_LIMITED"
//	@Failure		500		{object}	authsdk.ErrorResponse	"DEPENDENCY_ERROR"
//	@Router			/api/jwt-auth/login [post].
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req authsdk.LoginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		authsdk.ErrInvalidJSON.WriteError(w)
		return
	}

	user, pair, err := h.AuthService.Login(r.Context(), service.LoginInput{Email: req.Email, Password: req.Password})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.AuthResponse{
		Success: true,
		Message: "Login successful",
		Data:    authsdk.AuthData{User: userView(user, false), Tokens: tokensView(pair)},
	})
}

// HandleRefresh godoc
//
//	@Summary		Refresh
//	@Description	Rotates a refresh token. The presented token can never be used again.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.RefreshRequest	true	"refreshToken"
//	@Success		200		{object}	authsdk.RefreshResponse	"tokens"
//	@Failure		400		{object}	authsdk.ErrorResponse	"VALIDATION_FAILED"
//	@Failure		401		{object}	authsdk.ErrorResponse	"TOKEN_EXPIRED, TOKEN_INVALID, TOKEN_REVOKED"
//	@Failure		403		{object}	authsdk.ErrorResponse	"ACCOUNT_DEACTIVATED"
//	@Failure		404		{object}	authsdk.ErrorResponse	"USER_NOT_FOUND"
//	@Failure		429		{object}	authsdk.ErrorResponse	"RATE_LIMITED"
//	@Failure		500		{object}	authsdk.ErrorResponse	"DEPENDENCY_ERROR"
//	@Router			/api/jwt-auth/refresh [post].
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	var req authsdk.RefreshRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		authsdk.ErrInvalidJSON.WriteError(w)
		return
	}

	pair, err := h.AuthService.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.RefreshResponse{
		Success: true,
		Message: "Tokens refreshed successfully",
		Data:    authsdk.RefreshData{Tokens: tokensView(pair)},
	})
}

// HandleLogout godoc
//
//	@Summary		Logout
//	@Description	Revokes the given refresh token. Always succeeds, even for unknown or expired tokens.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.RefreshRequest	false	"refreshToken"
//	@Success		200		{object}	authsdk.MessageResponse
//	@Failure		429		{object}	authsdk.ErrorResponse	"RATE_LIMITED"
//	@Router			/api/jwt-auth/logout [post].
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	var req authsdk.RefreshRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		slogx.FromContext(r.Context()).Warn("logout with unreadable body", "error", err)
	}

	h.AuthService.Logout(r.Context(), req.RefreshToken)

	httpx.WriteJSON(w, http.StatusOK, authsdk.MessageResponse{Success: true, Message: "Logout successful"})
}

// HandleLogoutAll godoc
//
//	@Summary		Logout everywhere
//	@Description	Revokes every refresh token of the caller. Access tokens stay valid until they expire.
//	@Tags			Auth
//	@Produce		json
//	@Success		200	{object}	authsdk.MessageResponse
//	@Failure		401	{object}	authsdk.ErrorResponse	"TOKEN_MISSING, TOKEN_INVALID, TOKEN_EXPIRED"
//	@Failure		429	{object}	authsdk.ErrorResponse	"RATE_LIMITED"
//	@Failure		500	{object}	authsdk.ErrorResponse	"DEPENDENCY_ERROR"
//	@Security		BearerAuth
//	@Router			/api/jwt-auth/logout-all [post].
func (h *AuthHandler) HandleLogoutAll(w http.ResponseWriter, r *http.Request) {
	id := IdentityFromContext(r.Context())
	if id == nil {
		authsdk.ErrAuthRequired.WriteError(w)
		return
	}

	if err := h.AuthService.LogoutAll(r.Context(), id.UserID); err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.MessageResponse{Success: true, Message: "Logout from all devices successful"})
}

// HandleProfile godoc
//
//	@Summary		Profile
//	@Description	Returns the caller's account, including creation and last login times.
//	@Tags			Auth
//	@Produce		json
//	@Success		200	{object}	authsdk.UserResponse	"user"
//	@Failure		401	{object}	authsdk.ErrorResponse	"TOKEN_MISSING, TOKEN_INVALID, TOKEN_EXPIRED"
//	@Failure		403	{object}	authsdk.ErrorResponse	"ACCOUNT_DEACTIVATED"
//	@Failure		404	{object}	authsdk.ErrorResponse	"USER_NOT_FOUND"
//	@Failure		429	{object}	authsdk.ErrorResponse	"RATE_LIMITED"
//	@Security		BearerAuth
//	@Router			/api/jwt-auth/profile [get].
func (h *AuthHandler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	id := IdentityFromContext(r.Context())
	if id == nil {
		authsdk.ErrAuthRequired.WriteError(w)
		return
	}

	user, err := h.AuthService.GetProfile(r.Context(), id.UserID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.UserResponse{
		Success: true,
		Data:    authsdk.UserData{User: userView(user, true)},
	})
}
