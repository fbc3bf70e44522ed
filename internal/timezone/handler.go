package timezone

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/heraldbot/backend/pkg/response"
	"github.com/heraldbot/backend/pkg/timeparse"
)

// Store is the persistence surface the handler needs.
type Store interface {
	Set(ctx context.Context, userID int64, timezone string) error
	Get(ctx context.Context, userID int64) (string, error)
}

// Handler handles timezone HTTP endpoints.
type Handler struct {
	store  Store
	logger *zap.Logger
}

// NewHandler creates a timezone handler.
func NewHandler(store Store, logger *zap.Logger) *Handler {
	return &Handler{store: store, logger: logger}
}

// SetRequest is the body for PUT /users/:id/timezone.
type SetRequest struct {
	Timezone string `json:"timezone" binding:"required"`
}

// Set handles PUT /users/:id/timezone.
func (h *Handler) Set(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return
	}
	var req SetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if !timeparse.ValidTimezone(req.Timezone) {
		response.BadRequest(c, "invalid timezone, use an IANA name like Europe/Amsterdam")
		return
	}
	if err := h.store.Set(c.Request.Context(), userID, req.Timezone); err != nil {
		h.logger.Error("set timezone", zap.Int64("user_id", userID), zap.Error(err))
		response.Internal(c, "failed to store timezone")
		return
	}
	response.OK(c, gin.H{"user_id": userID, "timezone": req.Timezone})
}

// Get handles GET /users/:id/timezone.
func (h *Handler) Get(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return
	}
	tz, err := h.store.Get(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("get timezone", zap.Int64("user_id", userID), zap.Error(err))
		response.Internal(c, "failed to load timezone")
		return
	}
	response.OK(c, gin.H{"user_id": userID, "timezone": tz})
}
