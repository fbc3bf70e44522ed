package crud

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/heraldbot/backend/internal/discord"
	"github.com/heraldbot/backend/internal/models"
)

// PruneStore is the persistence surface the pruner needs.
type PruneStore interface {
	ListPastEvents(ctx context.Context, now time.Time) ([]models.Event, error)
	DeleteEvent(ctx context.Context, channelID int64) error
}

// Pruner removes events that have ended, together with their channel and
// native scheduled event. It runs once a day at midnight UTC.
type Pruner struct {
	store   PruneStore
	gateway discord.Gateway
	covers  Covers
	logger  *zap.Logger
}

// NewPruner creates an event pruner.
func NewPruner(store PruneStore, gateway discord.Gateway, covers Covers, logger *zap.Logger) *Pruner {
	return &Pruner{store: store, gateway: gateway, covers: covers, logger: logger}
}

// Run blocks until ctx is cancelled, pruning at every midnight UTC.
func (p *Pruner) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(untilMidnight(time.Now().UTC())):
			p.Prune(ctx)
		}
	}
}

// Prune deletes all ended events and cleans up their guild resources.
func (p *Pruner) Prune(ctx context.Context) {
	p.logger.Info("pruning events")
	past, err := p.store.ListPastEvents(ctx, time.Now().UTC())
	if err != nil {
		p.logger.Error("list past events", zap.Error(err))
		return
	}
	for _, event := range past {
		if err := p.store.DeleteEvent(ctx, event.ChannelID); err != nil {
			p.logger.Error("delete event", zap.Int64("channel_id", event.ChannelID), zap.Error(err))
			continue
		}
		cleanGuild(ctx, p.gateway, p.covers, &event, p.logger)
	}
	p.logger.Info("done pruning events", zap.Int("pruned", len(past)))
}

// cleanGuild removes the guild resources backing an event. Failures are
// logged and skipped so one missing resource does not block the rest.
func cleanGuild(ctx context.Context, gateway discord.Gateway, covers Covers, event *models.Event, logger *zap.Logger) {
	if err := gateway.DeleteChannel(ctx, event.ChannelID); err != nil {
		logger.Warn("delete channel", zap.Int64("channel_id", event.ChannelID), zap.Error(err))
	}
	if event.ScheduledEventID != 0 {
		if err := gateway.DeleteScheduledEvent(ctx, event.GuildID, event.ScheduledEventID); err != nil {
			logger.Warn("delete scheduled event",
				zap.Int64("scheduled_event_id", event.ScheduledEventID), zap.Error(err))
		}
	}
	if err := covers.DeleteCover(ctx, event.ChannelID); err != nil {
		logger.Warn("delete cover image", zap.Int64("channel_id", event.ChannelID), zap.Error(err))
	}
}

func untilMidnight(now time.Time) time.Duration {
	next := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
	return next.Sub(now)
}
