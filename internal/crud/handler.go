// Package crud exposes the administrative HTTP API for event lifecycle
// management and runs the daily prune of ended events.
package crud

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/heraldbot/backend/internal/discord"
	"github.com/heraldbot/backend/internal/models"
	"github.com/heraldbot/backend/pkg/bus"
	"github.com/heraldbot/backend/pkg/response"
	"github.com/heraldbot/backend/pkg/timeparse"
)

const (
	MaxEventDurationMinutes     = 300
	DefaultEventDurationMinutes = 60
	DefaultReminderMinutes      = 30
	MaxEventNameLength          = 25
)

// Store is the persistence surface the handler needs.
type Store interface {
	GetEvent(ctx context.Context, channelID int64) (*models.Event, error)
	StoreEvent(ctx context.Context, event *models.Event) error
	DeleteEvent(ctx context.Context, channelID int64) error
	Registrations(ctx context.Context, channelID int64) ([]models.Registration, error)
}

// Timezones resolves a user's preferred timezone.
type Timezones interface {
	Get(ctx context.Context, userID int64) (string, error)
}

// Publisher emits lifecycle notices onto the bus.
type Publisher interface {
	Publish(ctx context.Context, kind bus.Kind, payload any) error
}

// Covers removes a deleted event's stored cover image.
type Covers interface {
	DeleteCover(ctx context.Context, channelID int64) error
}

// Handler handles event HTTP endpoints.
type Handler struct {
	store     Store
	timezones Timezones
	gateway   discord.Gateway
	covers    Covers
	publisher Publisher
	logger    *zap.Logger
}

// NewHandler creates an event CRUD handler.
func NewHandler(store Store, timezones Timezones, gateway discord.Gateway, covers Covers, publisher Publisher, logger *zap.Logger) *Handler {
	return &Handler{
		store:     store,
		timezones: timezones,
		gateway:   gateway,
		covers:    covers,
		publisher: publisher,
		logger:    logger,
	}
}

// CreateRequest is the body for POST /events.
type CreateRequest struct {
	ChannelID       int64  `json:"channel_id" binding:"required"`
	GuildID         int64  `json:"guild_id" binding:"required"`
	OrganiserID     int64  `json:"organiser_id" binding:"required"`
	Name            string `json:"name" binding:"required"`
	Description     string `json:"description"`
	EventType       string `json:"event_type"`
	Start           string `json:"start" binding:"required"`
	DurationMinutes *int   `json:"duration_minutes"`
	ReminderMinutes *int   `json:"reminder_minutes"`
	Image           []byte `json:"image,omitempty"`
}

// EditRequest is the body for PATCH /events/:id. All fields besides the
// acting organiser are optional; absent fields keep their stored value.
type EditRequest struct {
	OrganiserID     int64   `json:"organiser_id" binding:"required"`
	Name            *string `json:"name"`
	Description     *string `json:"description"`
	Start           *string `json:"start"`
	DurationMinutes *int    `json:"duration_minutes"`
	ReminderMinutes *int    `json:"reminder_minutes"`
	Image           []byte  `json:"image,omitempty"`
}

// AnnounceRequest is the body for POST /events/:id/announce.
type AnnounceRequest struct {
	OrganiserID int64  `json:"organiser_id" binding:"required"`
	Message     string `json:"message" binding:"required"`
}

// Create handles POST /events.
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if msg := validateInputs(&req.Name, &req.Start, req.DurationMinutes, req.ReminderMinutes, req.Image); msg != "" {
		response.BadRequest(c, msg)
		return
	}

	eventType := models.EventTypeFF14
	if req.EventType != "" {
		eventType = models.EventType(req.EventType)
		if _, ok := models.Views[eventType]; !ok {
			response.BadRequest(c, "invalid event type")
			return
		}
	}

	ctx := c.Request.Context()
	existing, err := h.store.GetEvent(ctx, req.ChannelID)
	if err != nil {
		h.logger.Error("get event", zap.Int64("channel_id", req.ChannelID), zap.Error(err))
		response.Internal(c, "failed to check channel")
		return
	}
	if existing != nil {
		response.Conflict(c, "channel already hosts an event")
		return
	}

	tz, err := h.timezones.Get(ctx, req.OrganiserID)
	if err != nil {
		h.logger.Warn("get timezone", zap.Int64("user_id", req.OrganiserID), zap.Error(err))
		tz = "UTC"
	}
	utcStart, err := timeparse.UTCStart(req.Start, tz, time.Now())
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	duration := DefaultEventDurationMinutes
	if req.DurationMinutes != nil {
		duration = *req.DurationMinutes
	}
	reminder := DefaultReminderMinutes
	if req.ReminderMinutes != nil {
		reminder = *req.ReminderMinutes
	}

	event := models.Event{
		ChannelID:   req.ChannelID,
		GuildID:     req.GuildID,
		OrganiserID: req.OrganiserID,
		Name:        req.Name,
		Description: req.Description,
		EventType:   eventType,
		UTCStart:    utcStart,
		UTCEnd:      utcStart.Add(time.Duration(duration) * time.Minute),
		ReminderAt:  utcStart.Add(-time.Duration(reminder) * time.Minute),
	}

	// The record is authoritative; it goes to the store before anything is
	// announced, so a dropped notice cannot lose the event.
	if err := h.store.StoreEvent(ctx, &event); err != nil {
		h.logger.Error("store event", zap.Int64("channel_id", event.ChannelID), zap.Error(err))
		response.Internal(c, "failed to store event")
		return
	}
	if err := h.publisher.Publish(ctx, bus.KindEventCreated, bus.EventNotice{Event: event, Image: req.Image}); err != nil {
		h.logger.Warn("publish event created", zap.Int64("channel_id", event.ChannelID), zap.Error(err))
	}
	h.logger.Info("event created",
		zap.String("name", event.Name), zap.Int64("channel_id", event.ChannelID))
	response.Created(c, event)
}

// Get handles GET /events/:id.
func (h *Handler) Get(c *gin.Context) {
	channelID, ok := channelParam(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	event, err := h.store.GetEvent(ctx, channelID)
	if err != nil {
		h.logger.Error("get event", zap.Int64("channel_id", channelID), zap.Error(err))
		response.Internal(c, "failed to load event")
		return
	}
	if event == nil {
		response.NotFound(c, "no event for this channel")
		return
	}
	registrations, err := h.store.Registrations(ctx, channelID)
	if err != nil {
		h.logger.Error("list registrations", zap.Int64("channel_id", channelID), zap.Error(err))
		response.Internal(c, "failed to load registrations")
		return
	}
	response.OK(c, gin.H{"event": event, "registrations": registrations})
}

// Edit handles PATCH /events/:id.
func (h *Handler) Edit(c *gin.Context) {
	channelID, ok := channelParam(c)
	if !ok {
		return
	}
	var req EditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if msg := validateInputs(req.Name, req.Start, req.DurationMinutes, req.ReminderMinutes, req.Image); msg != "" {
		response.BadRequest(c, msg)
		return
	}

	ctx := c.Request.Context()
	event, err := h.store.GetEvent(ctx, channelID)
	if err != nil {
		h.logger.Error("get event", zap.Int64("channel_id", channelID), zap.Error(err))
		response.Internal(c, "failed to load event")
		return
	}
	if event == nil {
		response.NotFound(c, "no event for this channel")
		return
	}
	if req.OrganiserID != event.OrganiserID {
		response.Forbidden(c, "only the event organiser may update this event")
		return
	}

	if req.Name != nil {
		event.Name = *req.Name
	}
	if req.Description != nil {
		event.Description = *req.Description
	}
	duration := event.DurationMinutes()
	if req.DurationMinutes != nil {
		duration = float64(*req.DurationMinutes)
	}
	if req.Start != nil {
		// A moved start keeps the reminder at the same distance before it.
		reminderGap := event.UTCStart.Sub(event.ReminderAt)
		tz, err := h.timezones.Get(ctx, req.OrganiserID)
		if err != nil {
			tz = "UTC"
		}
		utcStart, err := timeparse.UTCStart(*req.Start, tz, time.Now())
		if err != nil {
			response.BadRequest(c, err.Error())
			return
		}
		event.UTCStart = utcStart
		event.ReminderAt = utcStart.Add(-reminderGap)
	}
	if req.ReminderMinutes != nil {
		event.ReminderAt = event.UTCStart.Add(-time.Duration(*req.ReminderMinutes) * time.Minute)
	}
	event.UTCEnd = event.UTCStart.Add(time.Duration(duration) * time.Minute)

	if err := h.store.StoreEvent(ctx, event); err != nil {
		h.logger.Error("store event", zap.Int64("channel_id", channelID), zap.Error(err))
		response.Internal(c, "failed to store event")
		return
	}
	if err := h.publisher.Publish(ctx, bus.KindEventAltered, bus.EventNotice{Event: *event, Image: req.Image}); err != nil {
		h.logger.Warn("publish event altered", zap.Int64("channel_id", channelID), zap.Error(err))
	}
	h.logger.Info("event edited",
		zap.Int64("user_id", req.OrganiserID), zap.String("name", event.Name))
	response.OK(c, event)
}

// Delete handles DELETE /events/:id. The backing channel and the native
// scheduled event are removed along with the stored row.
func (h *Handler) Delete(c *gin.Context) {
	channelID, ok := channelParam(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	event, err := h.store.GetEvent(ctx, channelID)
	if err != nil {
		h.logger.Error("get event", zap.Int64("channel_id", channelID), zap.Error(err))
		response.Internal(c, "failed to load event")
		return
	}
	if event == nil {
		response.NotFound(c, "no event for this channel")
		return
	}
	if err := h.store.DeleteEvent(ctx, channelID); err != nil {
		h.logger.Error("delete event", zap.Int64("channel_id", channelID), zap.Error(err))
		response.Internal(c, "failed to delete event")
		return
	}
	cleanGuild(ctx, h.gateway, h.covers, event, h.logger)
	response.NoContent(c)
}

// Announce handles POST /events/:id/announce. The message is resent to the
// event channel with a mention for every registered user.
func (h *Handler) Announce(c *gin.Context) {
	channelID, ok := channelParam(c)
	if !ok {
		return
	}
	var req AnnounceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	ctx := c.Request.Context()
	event, err := h.store.GetEvent(ctx, channelID)
	if err != nil {
		h.logger.Error("get event", zap.Int64("channel_id", channelID), zap.Error(err))
		response.Internal(c, "failed to load event")
		return
	}
	if event == nil {
		response.NotFound(c, "could not find event associated with this channel")
		return
	}
	if req.OrganiserID != event.OrganiserID {
		response.Forbidden(c, "only the event organiser may make announcements")
		return
	}

	registrations, err := h.store.Registrations(ctx, channelID)
	if err != nil {
		h.logger.Error("list registrations", zap.Int64("channel_id", channelID), zap.Error(err))
		response.Internal(c, "failed to load registrations")
		return
	}

	message := AnnouncementMessage(event.OrganiserID, req.Message, registrations)
	if _, err := h.gateway.SendMessage(ctx, channelID, message, nil); err != nil {
		h.logger.Error("send announcement", zap.Int64("channel_id", channelID), zap.Error(err))
		response.Internal(c, "failed to send announcement")
		return
	}
	response.OK(c, gin.H{"announced": true})
}

// AnnouncementMessage formats an organiser announcement with a mention for
// every registered user except the organiser.
func AnnouncementMessage(organiserID int64, message string, registrations []models.Registration) string {
	out := fmt.Sprintf("**Message by <@%d> to all registrated people:**\n%s\n", organiserID, message)
	for _, reg := range registrations {
		if reg.UserID != organiserID {
			out += fmt.Sprintf("<@%d>", reg.UserID)
		}
	}
	return out
}

// validateInputs checks the shared create/edit constraints. Nil fields are
// absent and skipped. It returns an empty string when everything is valid.
func validateInputs(name, start *string, duration, reminder *int, image []byte) string {
	if name != nil && len(*name) > MaxEventNameLength {
		return fmt.Sprintf("the event name must be %d characters or fewer", MaxEventNameLength)
	}
	if start != nil && !timeparse.Valid(*start) {
		return "invalid time format, use (DD-MM[-YYYY] HH:MM)"
	}
	if duration != nil && (*duration > MaxEventDurationMinutes || *duration < 1) {
		return fmt.Sprintf("invalid duration, must be between 1 and %d minutes", MaxEventDurationMinutes)
	}
	if reminder != nil && *reminder < 0 {
		return "reminder must be a positive number"
	}
	if len(image) > 0 && !isImage(image) {
		return "invalid attachment type, only images are accepted"
	}
	return ""
}

func isImage(data []byte) bool {
	contentType := http.DetectContentType(data)
	return len(contentType) >= 6 && contentType[:6] == "image/"
}

func channelParam(c *gin.Context) (int64, bool) {
	channelID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid channel id")
		return 0, false
	}
	return channelID, true
}
