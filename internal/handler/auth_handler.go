package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GTDGit/gtd_backoffice/internal/middleware"
	"github.com/GTDGit/gtd_backoffice/internal/models"
	"github.com/GTDGit/gtd_backoffice/internal/service"
	"github.com/GTDGit/gtd_backoffice/internal/utils"
)

// AdminAuth is the session surface the auth endpoints need.
type AdminAuth interface {
	Login(ctx context.Context, email, password string) (*service.LoginResult, error)
	Logout(ctx context.Context, token string) error
	ChangePassword(ctx context.Context, adminID int, current, next string) error
	Me(ctx context.Context, adminID int) (*models.AdminUser, error)
}

type AuthHandler struct {
	authService AdminAuth
}

func NewAuthHandler(authService AdminAuth) *AuthHandler {
	return &AuthHandler{authService: authService}
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// loginResponse carries token and user at the top level as well as in data,
// so clients reading either shape keep working.
type loginResponse struct {
	utils.Response
	Token string            `json:"token"`
	User  *models.AdminUser `json:"user"`
}

// Login handles POST /admin/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindAndValidate(c, &req) {
		return
	}

	result, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, loginResponse{
		Response: utils.SuccessEnvelope(c, http.StatusOK, "Login successful", result),
		Token:    result.Token,
		User:     result.User,
	})
}

// Logout handles POST /admin/logout. It succeeds whether or not the token is known.
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.authService.Logout(c.Request.Context(), middleware.BearerToken(c)); err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, http.StatusOK, "Logged out successfully", nil)
}

// CheckAuth handles GET /admin/check-auth behind the optional auth middleware.
func (h *AuthHandler) CheckAuth(c *gin.Context) {
	admin := middleware.GetAdmin(c)
	utils.Success(c, http.StatusOK, "Authentication status", gin.H{
		"authenticated": admin != nil,
		"user":          admin,
	})
}

// Me handles GET /admin/me
func (h *AuthHandler) Me(c *gin.Context) {
	user, err := h.authService.Me(c.Request.Context(), middleware.GetAdmin(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, http.StatusOK, "Profile retrieved", user)
}

// ChangePassword handles PUT /admin/password
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req service.ChangePasswordRequest
	if !bindAndValidate(c, &req) {
		return
	}

	admin := middleware.GetAdmin(c)
	if err := h.authService.ChangePassword(c.Request.Context(), admin.ID, req.CurrentPassword, req.NewPassword); err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, http.StatusOK, "Password updated successfully", nil)
}
