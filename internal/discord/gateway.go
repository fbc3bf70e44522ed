// Package discord exposes the narrow slice of the chat platform the bot
// needs: resource lookups with cache-then-network fallback, message send and
// edit, thread creation and the native scheduled-event mirror. The core
// never imports an SDK; it programs against Gateway.
package discord

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// ErrNotFound marks a resource the platform does not know (or no longer
// knows). Handlers treat it the same as a transient fetch failure: log and
// abort the one invocation.
var ErrNotFound = errors.New("discord: resource not found")

// Guild is a community server.
type Guild struct {
	ID    int64
	Name  string
	Roles []Role
}

// Role is a guild role.
type Role struct {
	ID   int64
	Name string
}

// Channel is a text channel.
type Channel struct {
	ID      int64
	GuildID int64
	Name    string
}

// Member is a user's guild-scoped identity.
type Member struct {
	UserID      int64
	DisplayName string
}

// Message is a posted chat message.
type Message struct {
	ID        int64
	ChannelID int64
	Content   string
}

// ScheduledEvent is the platform's native calendar entry.
type ScheduledEvent struct {
	ID          int64
	GuildID     int64
	Name        string
	Description string
	Location    string
	Start       time.Time
	End         time.Time
	CoverImage  []byte
}

// ScheduledEventParams are the mutable fields of a scheduled event.
type ScheduledEventParams struct {
	Name        string
	Description string
	Location    string
	Start       time.Time
	End         time.Time
	Image       []byte
}

// Gateway is the platform surface the bot consumes. Lookup methods return
// ErrNotFound for missing resources; callers abort their handler on any
// error without retrying.
type Gateway interface {
	Guild(ctx context.Context, id int64) (*Guild, error)
	Channel(ctx context.Context, id int64) (*Channel, error)
	Member(ctx context.Context, guildID, userID int64) (*Member, error)

	ScheduledEvent(ctx context.Context, guildID, id int64) (*ScheduledEvent, error)
	CreateScheduledEvent(ctx context.Context, guildID int64, params ScheduledEventParams) (*ScheduledEvent, error)
	EditScheduledEvent(ctx context.Context, guildID, id int64, params ScheduledEventParams) error
	DeleteScheduledEvent(ctx context.Context, guildID, id int64) error

	SendMessage(ctx context.Context, channelID int64, content string, image []byte) (*Message, error)
	EditMessage(ctx context.Context, channelID, messageID int64, content string, image []byte) error
	ChannelMessages(ctx context.Context, channelID int64, limit int) ([]Message, error)
	CreateThread(ctx context.Context, channelID, messageID int64, name string) error
	DeleteChannel(ctx context.Context, channelID int64) error

	EventRoleID(ctx context.Context, guildID int64) (int64, error)
}

// FetchByID grabs a resource by ID: first from cache, then from the API.
// Not-found and transient API errors are swallowed into nil so callers can
// short-circuit on a missing resource without branching on error kinds.
func FetchByID[T any](ctx context.Context, id int64,
	fromCache func(int64) *T,
	fromAPI func(context.Context, int64) (*T, error),
	logger *zap.Logger) *T {
	if cached := fromCache(id); cached != nil {
		return cached
	}
	resource, err := fromAPI(ctx, id)
	if err != nil {
		logger.Warn("fetch by id failed", zap.Int64("id", id), zap.Error(err))
		return nil
	}
	return resource
}
