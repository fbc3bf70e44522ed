package realtime

import (
	"context"

	"go.uber.org/zap"

	"github.com/heraldbot/backend/internal/models"
	"github.com/heraldbot/backend/pkg/bus"
)

// FeedStore is the persistence surface the feed needs.
type FeedStore interface {
	Registrations(ctx context.Context, channelID int64) ([]models.Registration, error)
}

// RosterUpdate is the payload broadcast to roster feed clients.
type RosterUpdate struct {
	Event         models.Event          `json:"event"`
	Registrations []models.Registration `json:"registrations"`
}

// Feed pushes a roster snapshot to connected clients whenever an event is
// altered.
type Feed struct {
	hub    *Hub
	store  FeedStore
	logger *zap.Logger
}

// NewFeed creates a roster feed.
func NewFeed(hub *Hub, store FeedStore, logger *zap.Logger) *Feed {
	return &Feed{hub: hub, store: store, logger: logger}
}

// OnEventAltered broadcasts the current roster for the altered event.
func (f *Feed) OnEventAltered(ctx context.Context, notice bus.EventNotice) {
	channelID := notice.Event.ChannelID
	if f.hub.AudienceCount(channelID) == 0 {
		return
	}
	registrations, err := f.store.Registrations(ctx, channelID)
	if err != nil {
		f.logger.Warn("could not list registrations for roster feed",
			zap.Int64("channel_id", channelID), zap.Error(err))
		return
	}
	f.hub.Broadcast(channelID, "roster", RosterUpdate{
		Event:         notice.Event,
		Registrations: registrations,
	})
}
