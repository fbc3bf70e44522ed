package models

import "time"

// EventType determines which emoji represents an event and which jobs its
// registrations may carry. The value doubles as the emoji name of the type.
type EventType string

const (
	EventTypeGeneric     EventType = "Event"
	EventTypeFF14        EventType = "FinalFantasyXIV"
	EventTypeFashionShow EventType = "FashionShow"
	EventTypeCampfire    EventType = "CampfireEvent"
)

// EventTypes lists all event types.
var EventTypes = []EventType{EventTypeGeneric, EventTypeFF14, EventTypeFashionShow, EventTypeCampfire}

// Valid reports whether t is a known event type.
func (t EventType) Valid() bool {
	for _, known := range EventTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Event is a community activity tracked per channel. The channel ID is the
// primary key; one event exists per channel at a time.
type Event struct {
	ChannelID   int64     `json:"channel_id"`
	GuildID     int64     `json:"guild_id"`
	OrganiserID int64     `json:"organiser_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	EventType   EventType `json:"event_type"`
	UTCStart    time.Time `json:"utc_start"`
	UTCEnd      time.Time `json:"utc_end"`
	ReminderAt  time.Time `json:"reminder_at"`

	// ScheduledEventID links the event to its native scheduled-event mirror.
	// Zero means not yet mirrored.
	ScheduledEventID int64 `json:"scheduled_event_id,omitempty"`

	// HeaderMessageID and BodyMessageID identify the two rendered messages.
	// Zero for events created before the IDs were recorded; edits then fall
	// back to positional lookup.
	HeaderMessageID int64 `json:"header_message_id,omitempty"`
	BodyMessageID   int64 `json:"body_message_id,omitempty"`
}

// DurationMinutes returns the event duration in minutes.
func (e *Event) DurationMinutes() float64 {
	return e.UTCEnd.Sub(e.UTCStart).Minutes()
}

// EventTypeView is the immutable action-set descriptor for one event type:
// the statuses a user can pick and, for job events, the selectable jobs.
// Built once at startup and shared read-only across all events of the type.
type EventTypeView struct {
	Type     EventType
	Statuses []Status
	Jobs     []Job
}

// Views maps every event type to its action-set descriptor.
var Views = buildViews()

func buildViews() map[EventType]EventTypeView {
	jobs := map[EventType][]Job{
		EventTypeFF14:        FF14Jobs,
		EventTypeFashionShow: FashionShowJobs,
		EventTypeCampfire:    CampfireJobs,
	}
	views := make(map[EventType]EventTypeView, len(EventTypes))
	for _, t := range EventTypes {
		views[t] = EventTypeView{Type: t, Statuses: Statuses, Jobs: jobs[t]}
	}
	return views
}

// JobValidFor reports whether job is selectable for the given event type.
func JobValidFor(t EventType, job Job) bool {
	for _, j := range Views[t].Jobs {
		if j == job {
			return true
		}
	}
	return false
}
