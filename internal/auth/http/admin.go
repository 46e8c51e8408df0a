package http

import (
	"net/http"

	"github.com/aussiebroadwan/shopauth/internal/auth/service"
	"github.com/aussiebroadwan/shopauth/pkg/authsdk"
	"github.com/aussiebroadwan/shopauth/pkg/httpx"
	"github.com/aussiebroadwan/shopauth/pkg/idx"
)

type AdminHandler struct {
	AuthService *service.AuthService
}

// HandleSetUserStatus godoc
//
//	@Summary		Activate or deactivate a user
//	@Description	Admin only. Deactivating a user also revokes their refresh token.
//	@Tags			Admin
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string							true	"User id"
//	@Param			request	body		authsdk.SetUserStatusRequest	true	"isActive"
//	@Success		200		{object}	authsdk.UserResponse			"user"
//	@Failure		400		{object}	authsdk.ErrorResponse			"VALIDATION_FAILED"
//	@Failure		401		{object}	authsdk.ErrorResponse			"TOKEN_MISSING, TOKEN_INVALID"
//	@Failure		403		{object}	authsdk.ErrorResponse			"INSUFFICIENT_PERMISSIONS"
//	@Failure		404		{object}	authsdk.ErrorResponse			"USER_NOT_FOUND"
//	@Failure		429		{object}	authsdk.ErrorResponse			"RATE_LIMITED"
//	@Security		BearerAuth
//	@Router			/api/jwt-auth/admin/users/{id}/status [patch].
func (h *AdminHandler) HandleSetUserStatus(w http.ResponseWriter, r *http.Request) {
	userID, err := idx.Parse(r.PathValue("id"))
	if err != nil {
		authsdk.ErrValidationFailed.WithDetails("id: must be a valid user id.").WriteError(w)
		return
	}

	var req authsdk.SetUserStatusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		authsdk.ErrInvalidJSON.WriteError(w)
		return
	}
	if req.IsActive == nil {
		authsdk.ErrValidationFailed.WithDetails("isActive: cannot be blank.").WriteError(w)
		return
	}

	user, err := h.AuthService.SetUserActive(r.Context(), userID.String(), *req.IsActive)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	msg := "User deactivated"
	if user.IsActive {
		msg = "User activated"
	}
	httpx.WriteJSON(w, http.StatusOK, authsdk.UserResponse{
		Success: true,
		Message: msg,
		Data:    authsdk.UserData{User: userView(user, true)},
	})
}
