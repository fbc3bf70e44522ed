package auth

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/heraldbot/backend/config"
	"github.com/heraldbot/backend/pkg/response"
	"github.com/heraldbot/backend/pkg/utils"
)

// RoleAdmin is the only role issued by the administrative API.
const RoleAdmin = "admin"

// LoginRequest is the body for POST /auth/login.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// TokenResponse is the auth response with JWT.
type TokenResponse struct {
	Token string `json:"token"`
}

// Handler handles auth HTTP endpoints.
type Handler struct {
	admin  config.AdminConfig
	jwt    *JWTService
	logger *zap.Logger
}

// NewHandler creates an auth handler.
func NewHandler(admin config.AdminConfig, jwt *JWTService, logger *zap.Logger) *Handler {
	return &Handler{admin: admin, jwt: jwt, logger: logger}
}

// Login handles POST /auth/login.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	if h.admin.PasswordHash == "" {
		response.ServiceUnavailable(c, "admin login is disabled")
		return
	}
	if req.Username != h.admin.Username || !utils.CheckPassword(req.Password, h.admin.PasswordHash) {
		response.Unauthorized(c, "invalid username or password")
		return
	}

	token, err := h.jwt.Generate(req.Username, RoleAdmin)
	if err != nil {
		h.logger.Error("generate token", zap.Error(err))
		response.Internal(c, "failed to generate token")
		return
	}
	response.OK(c, TokenResponse{Token: token})
}
