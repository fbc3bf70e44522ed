// Package mirror keeps an event's three representations aligned: the stored
// record, the two-message chat rendering, and the platform-native scheduled
// event. Every handler short-circuits on a missing precondition with a
// warning log; nothing here is fatal and nothing is retried.
package mirror

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/heraldbot/backend/internal/discord"
	"github.com/heraldbot/backend/internal/models"
	"github.com/heraldbot/backend/internal/render"
	"github.com/heraldbot/backend/pkg/bus"
)

const threadName = "Discussion"

// Store is the slice of the event store the coordinator needs.
type Store interface {
	GetEvent(ctx context.Context, channelID int64) (*models.Event, error)
	StoreEvent(ctx context.Context, event *models.Event) error
	Register(ctx context.Context, channelID int64, reg models.Registration) error
	Unregister(ctx context.Context, channelID, userID int64) error
	Registrations(ctx context.Context, channelID int64) ([]models.Registration, error)
	IsAssociatedWithEvent(ctx context.Context, scheduledEventID int64) (bool, error)
}

// CoverStore persists per-channel cover images and supplies the fallback
// cover for events created without one.
type CoverStore interface {
	Default(ctx context.Context) ([]byte, error)
	PutCover(ctx context.Context, channelID int64, contentType string, data []byte) (string, error)
	GetCover(ctx context.Context, channelID int64) ([]byte, error)
}

// Publisher lets the coordinator notify listeners after committing native
// scheduled-event registrations.
type Publisher interface {
	Publish(ctx context.Context, kind bus.Kind, payload any) error
}

// Coordinator reacts to event lifecycle notifications.
type Coordinator struct {
	store     Store
	gateway   discord.Gateway
	covers    CoverStore
	publisher Publisher
	logger    *zap.Logger
}

// NewCoordinator creates a sync coordinator.
func NewCoordinator(store Store, gateway discord.Gateway, covers CoverStore, publisher Publisher, logger *zap.Logger) *Coordinator {
	return &Coordinator{
		store:     store,
		gateway:   gateway,
		covers:    covers,
		publisher: publisher,
		logger:    logger,
	}
}

// OnEventCreated mirrors a freshly created event: it creates the native
// scheduled event (unless one is already linked), posts the header and body
// messages, records their IDs, and opens a discussion thread under the body.
func (c *Coordinator) OnEventCreated(ctx context.Context, notice bus.EventNotice) {
	event := notice.Event

	guild, err := c.gateway.Guild(ctx, event.GuildID)
	if err != nil {
		c.logger.Warn("could not fetch guild", zap.Int64("guild_id", event.GuildID), zap.Error(err))
		return
	}

	image := notice.Image
	if image != nil {
		c.persistCover(ctx, event.ChannelID, image)
	} else {
		image = c.coverFor(ctx, event.ChannelID)
	}

	// Idempotent guard against double-creation of the native mirror.
	if event.ScheduledEventID == 0 {
		scheduled, err := c.gateway.CreateScheduledEvent(ctx, guild.ID, discord.ScheduledEventParams{
			Name:        event.Name,
			Description: event.Description,
			Location:    FormatLocation(event.ChannelID),
			Start:       event.UTCStart,
			End:         event.UTCEnd,
			Image:       image,
		})
		if err != nil {
			c.logger.Warn("could not create scheduled event",
				zap.Int64("channel_id", event.ChannelID), zap.Error(err))
		} else {
			event.ScheduledEventID = scheduled.ID
			// The linkage must survive whatever happens to the message
			// posts below; an unstored linkage orphans the native event.
			if err := c.store.StoreEvent(ctx, &event); err != nil {
				c.logger.Warn("could not store event", zap.Int64("channel_id", event.ChannelID), zap.Error(err))
			}
		}
	}

	channel, err := c.gateway.Channel(ctx, event.ChannelID)
	if err != nil {
		c.logger.Warn("could not fetch channel", zap.Int64("channel_id", event.ChannelID), zap.Error(err))
		return
	}

	renderer, err := c.rendererFor(ctx, guild.ID)
	if err != nil {
		c.logger.Warn("could not resolve event role", zap.Int64("guild_id", guild.ID), zap.Error(err))
		return
	}

	header, err := c.gateway.SendMessage(ctx, channel.ID, renderer.Header(&event), image)
	if err != nil {
		c.logger.Warn("could not send header message", zap.Int64("channel_id", channel.ID), zap.Error(err))
		return
	}
	body, err := c.gateway.SendMessage(ctx, channel.ID, renderer.Body(&event, nil), nil)
	if err != nil {
		c.logger.Warn("could not send body message", zap.Int64("channel_id", channel.ID), zap.Error(err))
		return
	}

	event.HeaderMessageID = header.ID
	event.BodyMessageID = body.ID
	if err := c.store.StoreEvent(ctx, &event); err != nil {
		c.logger.Warn("could not store event", zap.Int64("channel_id", event.ChannelID), zap.Error(err))
	}

	if err := c.gateway.CreateThread(ctx, channel.ID, body.ID, threadName); err != nil {
		c.logger.Warn("could not create discussion thread", zap.Int64("channel_id", channel.ID), zap.Error(err))
	}
}

// OnEventAlteredMirror pushes an altered event's fields to its native
// scheduled event. Without a linkage this is a no-op; when either the guild
// or the scheduled event cannot be fetched the update is aborted whole.
func (c *Coordinator) OnEventAlteredMirror(ctx context.Context, notice bus.EventNotice) {
	event := notice.Event
	if event.ScheduledEventID == 0 {
		return
	}

	guild, err := c.gateway.Guild(ctx, event.GuildID)
	if err != nil {
		c.logger.Warn("could not fetch guild", zap.Int64("guild_id", event.GuildID), zap.Error(err))
		return
	}
	scheduled, err := c.gateway.ScheduledEvent(ctx, guild.ID, event.ScheduledEventID)
	if err != nil {
		c.logger.Warn("could not fetch scheduled event",
			zap.Int64("scheduled_event_id", event.ScheduledEventID),
			zap.Int64("guild_id", guild.ID), zap.Error(err))
		return
	}

	image := scheduled.CoverImage
	if notice.Image != nil {
		image = notice.Image
		c.persistCover(ctx, event.ChannelID, image)
	}

	err = c.gateway.EditScheduledEvent(ctx, guild.ID, event.ScheduledEventID, discord.ScheduledEventParams{
		Name:        event.Name,
		Description: event.Description,
		Location:    FormatLocation(event.ChannelID),
		Start:       event.UTCStart,
		End:         event.UTCEnd,
		Image:       image,
	})
	if err != nil {
		c.logger.Warn("could not edit scheduled event",
			zap.Int64("scheduled_event_id", event.ScheduledEventID), zap.Error(err))
	}
}

// OnEventAlteredMessages re-renders the header and body messages for an
// altered event. Events carry their message IDs since creation; for older
// events the first two channel messages are used, and when that positional
// invariant does not hold the edit is silently skipped.
func (c *Coordinator) OnEventAlteredMessages(ctx context.Context, notice bus.EventNotice) {
	event := notice.Event

	channel, err := c.gateway.Channel(ctx, event.ChannelID)
	if err != nil {
		c.logger.Warn("could not fetch channel", zap.Int64("channel_id", event.ChannelID), zap.Error(err))
		return
	}

	headerID, bodyID := event.HeaderMessageID, event.BodyMessageID
	if headerID == 0 || bodyID == 0 {
		messages, err := c.gateway.ChannelMessages(ctx, channel.ID, 2)
		if err != nil || len(messages) != 2 {
			return
		}
		headerID, bodyID = messages[0].ID, messages[1].ID
	}

	renderer, err := c.rendererFor(ctx, event.GuildID)
	if err != nil {
		c.logger.Warn("could not resolve event role", zap.Int64("guild_id", event.GuildID), zap.Error(err))
		return
	}
	registrations, err := c.store.Registrations(ctx, event.ChannelID)
	if err != nil {
		c.logger.Warn("could not list registrations", zap.Int64("channel_id", event.ChannelID), zap.Error(err))
		return
	}

	if err := c.gateway.EditMessage(ctx, channel.ID, headerID, renderer.Header(&event), notice.Image); err != nil {
		c.logger.Warn("could not edit header message", zap.Int64("message_id", headerID), zap.Error(err))
		return
	}
	if err := c.gateway.EditMessage(ctx, channel.ID, bodyID, renderer.Body(&event, registrations), nil); err != nil {
		c.logger.Warn("could not edit body message", zap.Int64("message_id", bodyID), zap.Error(err))
	}
}

// OnScheduledEventUserAdd commits an Attending registration for a user who
// joined through the native scheduled event, and announces the join in the
// event channel. Native joins carry no job selection.
func (c *Coordinator) OnScheduledEventUserAdd(ctx context.Context, notice bus.ScheduledEventUserNotice) {
	channelID, ok := c.trackedChannel(ctx, notice)
	if !ok {
		return
	}

	name := c.displayName(ctx, notice)
	if _, err := c.gateway.SendMessage(ctx, channelID,
		fmt.Sprintf("%s Registered through the Scheduled Event link", name), nil); err != nil {
		c.logger.Warn("could not announce join", zap.Int64("channel_id", channelID), zap.Error(err))
	}

	reg := models.Registration{UserID: notice.UserID, Status: models.StatusAttending}
	if err := c.store.Register(ctx, channelID, reg); err != nil {
		c.logger.Warn("could not commit registration", zap.Int64("channel_id", channelID), zap.Error(err))
		return
	}
	c.publishAltered(ctx, channelID)
}

// OnScheduledEventUserRemove retracts the registration of a user who left
// through the native scheduled event, announcing the leave.
func (c *Coordinator) OnScheduledEventUserRemove(ctx context.Context, notice bus.ScheduledEventUserNotice) {
	channelID, ok := c.trackedChannel(ctx, notice)
	if !ok {
		return
	}

	name := c.displayName(ctx, notice)
	if _, err := c.gateway.SendMessage(ctx, channelID,
		fmt.Sprintf("%s Unregistered through the Scheduled Event link", name), nil); err != nil {
		c.logger.Warn("could not announce leave", zap.Int64("channel_id", channelID), zap.Error(err))
	}

	if err := c.store.Unregister(ctx, channelID, notice.UserID); err != nil {
		c.logger.Warn("could not retract registration", zap.Int64("channel_id", channelID), zap.Error(err))
		return
	}
	c.publishAltered(ctx, channelID)
}

// trackedChannel resolves a user add/remove notice to the origin channel of
// a tracked event, or reports that the notice should be ignored.
func (c *Coordinator) trackedChannel(ctx context.Context, notice bus.ScheduledEventUserNotice) (int64, bool) {
	associated, err := c.store.IsAssociatedWithEvent(ctx, notice.ScheduledEventID)
	if err != nil {
		c.logger.Warn("could not check scheduled event association",
			zap.Int64("scheduled_event_id", notice.ScheduledEventID), zap.Error(err))
		return 0, false
	}
	if !associated {
		return 0, false
	}

	channelID, err := ParseLocation(notice.Location)
	if err != nil {
		c.logger.Warn("could not parse scheduled event location",
			zap.String("location", notice.Location), zap.Error(err))
		return 0, false
	}
	if _, err := c.gateway.Channel(ctx, channelID); err != nil {
		c.logger.Warn("could not fetch channel", zap.Int64("channel_id", channelID), zap.Error(err))
		return 0, false
	}
	return channelID, true
}

// displayName prefers the member's guild display name, falling back to the
// platform-level username carried on the notice.
func (c *Coordinator) displayName(ctx context.Context, notice bus.ScheduledEventUserNotice) string {
	member, err := c.gateway.Member(ctx, notice.GuildID, notice.UserID)
	if err != nil || member == nil {
		return notice.Username
	}
	return member.DisplayName
}

func (c *Coordinator) publishAltered(ctx context.Context, channelID int64) {
	event, err := c.store.GetEvent(ctx, channelID)
	if err != nil || event == nil {
		return
	}
	if err := c.publisher.Publish(ctx, bus.KindEventAltered, bus.EventNotice{Event: *event}); err != nil {
		c.logger.Warn("publish event altered", zap.Int64("channel_id", channelID), zap.Error(err))
	}
}

// persistCover writes a freshly supplied cover image to the cover store so
// later re-renders and restarts can reuse it.
func (c *Coordinator) persistCover(ctx context.Context, channelID int64, image []byte) {
	contentType := http.DetectContentType(image)
	if _, err := c.covers.PutCover(ctx, channelID, contentType, image); err != nil {
		c.logger.Warn("could not store cover image", zap.Int64("channel_id", channelID), zap.Error(err))
	}
}

// coverFor returns the channel's stored cover, falling back to the default.
func (c *Coordinator) coverFor(ctx context.Context, channelID int64) []byte {
	if image, err := c.covers.GetCover(ctx, channelID); err == nil && image != nil {
		return image
	}
	image, err := c.covers.Default(ctx)
	if err != nil {
		c.logger.Warn("could not load default cover image", zap.Error(err))
		return nil
	}
	return image
}

func (c *Coordinator) rendererFor(ctx context.Context, guildID int64) (*render.Renderer, error) {
	roleID, err := c.gateway.EventRoleID(ctx, guildID)
	if err != nil {
		return nil, err
	}
	return render.New(roleID), nil
}
