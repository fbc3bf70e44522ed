package bus

import "github.com/heraldbot/backend/internal/models"

// EventNotice carries an event through EventCreated and EventAltered
// notifications, with an optional cover image attached.
type EventNotice struct {
	Event models.Event `json:"event"`
	Image []byte       `json:"image,omitempty"`
}

// ScheduledEventUserNotice carries a user add/remove on a native scheduled
// event. Location is the native event's location string, which embeds the
// origin channel reference.
type ScheduledEventUserNotice struct {
	ScheduledEventID int64  `json:"scheduled_event_id"`
	GuildID          int64  `json:"guild_id"`
	Location         string `json:"location"`
	UserID           int64  `json:"user_id"`
	Username         string `json:"username"`
}
