package controllers

import (
	"net/http"

	"github.com/dutyfinder/dutyfinder-api/middleware"
	"github.com/dutyfinder/dutyfinder-api/services"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// LoginRequest represents the login form
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AuthController issues and describes access tokens
type AuthController struct {
	auth  *services.AuthService
	admin *services.AdminService
	log   *zap.Logger
}

// NewAuthController creates the controller
func NewAuthController(svc *services.Services, log *zap.Logger) *AuthController {
	return &AuthController{auth: svc.Auth, admin: svc.Admin, log: log}
}

// Login handles POST /api/v1/auth/login
func (ctl *AuthController) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := ctl.auth.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		respondServiceError(c, ctl.log, err)
		return
	}
	respondOK(c, http.StatusOK, result)
}

// Me handles GET /api/v1/auth/me
func (ctl *AuthController) Me(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}
	user, err := ctl.admin.GetUser(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, ctl.log, err)
		return
	}
	respondOK(c, http.StatusOK, user)
}
