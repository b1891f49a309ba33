package handler

import (
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
	"github.com/store/backend/internal/application/identity"
	"github.com/store/backend/internal/domain/shared"
	"github.com/store/backend/internal/interfaces/http/middleware"
)

// AuthHandler handles authentication and account endpoints
type AuthHandler struct {
	BaseHandler
	authService *identity.AuthService
	loginGuards []gin.HandlerFunc
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *identity.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// GuardLogin runs mw before every authenticate request, e.g. a stricter
// rate limit.
func (h *AuthHandler) GuardLogin(mw ...gin.HandlerFunc) *AuthHandler {
	h.loginGuards = append(h.loginGuards, mw...)
	return h
}

// RegisterRoutes mounts the account endpoints on the /api group
func (h *AuthHandler) RegisterRoutes(api *gin.RouterGroup) {
	api.POST("/authenticate", append(slices.Clip(h.loginGuards), h.Authenticate)...)
	api.POST("/logout", h.Logout)
	api.GET("/account", h.Account)
	api.POST("/account/change-password", h.ChangePassword)
}

// Authenticate exchanges credentials for a JWT
//
//	@ID				authenticate
//	@Summary		Log in
//	@Tags			account
//	@Accept			json
//	@Produce		json
//	@Param			request	body		identity.AuthenticateInput	true	"Credentials"
//	@Success		200		{object}	identity.TokenResponse
//	@Failure		400		{object}	dto.ErrorResponse
//	@Failure		401		{object}	dto.ErrorResponse
//	@Failure		429		{object}	dto.ErrorResponse
//	@Router			/api/authenticate [post]
func (h *AuthHandler) Authenticate(c *gin.Context) {
	var req identity.AuthenticateInput
	if !h.bindJSON(c, &req) {
		return
	}

	token, err := h.authService.Authenticate(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, token)
}

// Account returns the current user
//
//	@ID				getAccount
//	@Summary		Current account
//	@Tags			account
//	@Produce		json
//	@Success		200	{object}	identity.AccountResponse
//	@Failure		401	{object}	dto.ErrorResponse
//	@Security		BearerAuth
//	@Router			/api/account [get]
func (h *AuthHandler) Account(c *gin.Context) {
	login := middleware.GetJWTLogin(c)
	if login == "" {
		h.HandleError(c, shared.ErrUnauthorized)
		return
	}

	user, err := h.authService.Account(c.Request.Context(), login)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, identity.ToAccountResponse(user))
}

// ChangePassword replaces the password of the current user and returns a
// fresh token; older tokens stop working.
//
//	@ID				changePassword
//	@Summary		Change password
//	@Tags			account
//	@Accept			json
//	@Produce		json
//	@Param			request	body		identity.ChangePasswordInput	true	"Current and new password"
//	@Success		200		{object}	identity.TokenResponse
//	@Failure		400		{object}	dto.ErrorResponse	"Incorrect password or invalid new password"
//	@Failure		401		{object}	dto.ErrorResponse
//	@Security		BearerAuth
//	@Router			/api/account/change-password [post]
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	claims := middleware.GetJWTClaims(c)
	if claims == nil {
		h.HandleError(c, shared.ErrUnauthorized)
		return
	}

	var req identity.ChangePasswordInput
	if !h.bindJSON(c, &req) {
		return
	}

	token, err := h.authService.ChangePassword(c.Request.Context(), claims, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, token)
}

// Logout revokes the presented token
//
//	@ID				logout
//	@Summary		Log out
//	@Tags			account
//	@Success		204
//	@Failure		401	{object}	dto.ErrorResponse
//	@Security		BearerAuth
//	@Router			/api/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	claims := middleware.GetJWTClaims(c)
	if claims == nil {
		h.HandleError(c, shared.ErrUnauthorized)
		return
	}

	if err := h.authService.Logout(c.Request.Context(), claims); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
