package handler

import (
	"marketplace-backend/internal/adapter/http/dto"
	"marketplace-backend/internal/adapter/http/middleware"
	"marketplace-backend/internal/core/ports"
	"marketplace-backend/pkg/apperror"
	"marketplace-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

// AuthHandler handles token issuance and account endpoints.
type AuthHandler struct {
	authSvc ports.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authSvc ports.AuthService) *AuthHandler {
	return &AuthHandler{authSvc: authSvc}
}

// Token handles POST /token. The body may be JSON or an OAuth2 password form.
func (h *AuthHandler) Token(c *gin.Context) {
	var req dto.TokenRequest
	if err := c.ShouldBind(&req); err != nil {
		fail(c, dto.BindError(err))
		return
	}

	pair, err := h.authSvc.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		fail(c, err)
		return
	}

	response.OK(c, dto.NewTokenResponse(pair))
}

// Refresh handles POST /token/refresh.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req dto.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, dto.BindError(err))
		return
	}

	pair, err := h.authSvc.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		fail(c, err)
		return
	}

	response.OK(c, dto.NewTokenResponse(pair))
}

// Register handles POST /users. The caller is optional; the service decides
// whether anonymous registration is open.
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := dto.DecodeStrict(c.Request.Body, &req); err != nil {
		fail(c, err)
		return
	}
	in, err := req.ToDomain()
	if err != nil {
		fail(c, apperror.Validation(err.Error()))
		return
	}

	caller, _ := middleware.CurrentUser(c)
	user, err := h.authSvc.Register(c.Request.Context(), caller, in)
	if err != nil {
		fail(c, err)
		return
	}

	response.Created(c, dto.NewUserResponse(user))
}

// Me handles GET /users/me.
func (h *AuthHandler) Me(c *gin.Context) {
	user, ok := actor(c)
	if !ok {
		return
	}
	response.OK(c, dto.NewUserResponse(user))
}

// ChangePassword handles PUT /users/:id/change_password.
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	user, ok := actor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req dto.ChangePasswordRequest
	if err := dto.DecodeStrict(c.Request.Body, &req); err != nil {
		fail(c, err)
		return
	}

	if err := h.authSvc.ChangePassword(c.Request.Context(), user, id, req.CurrentPassword, req.NewPassword); err != nil {
		fail(c, err)
		return
	}

	response.NoContent(c)
}
