// Package events persists events and their registrations. The store is the
// source of truth for registrations; events hold a read view for rendering.
package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/heraldbot/backend/internal/models"
)

// Repository handles event and registration persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an events repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// StoreEvent inserts or overwrites the event for its channel.
func (r *Repository) StoreEvent(ctx context.Context, event *models.Event) error {
	const q = `INSERT INTO events (channel_id, guild_id, organiser_id, name, description, event_type,
			utc_start, utc_end, reminder_at, scheduled_event_id, header_message_id, body_message_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (channel_id) DO UPDATE SET
			guild_id = EXCLUDED.guild_id,
			organiser_id = EXCLUDED.organiser_id,
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			event_type = EXCLUDED.event_type,
			utc_start = EXCLUDED.utc_start,
			utc_end = EXCLUDED.utc_end,
			reminder_at = EXCLUDED.reminder_at,
			scheduled_event_id = EXCLUDED.scheduled_event_id,
			header_message_id = EXCLUDED.header_message_id,
			body_message_id = EXCLUDED.body_message_id,
			updated_at = NOW()`
	_, err := r.pool.Exec(ctx, q,
		event.ChannelID, event.GuildID, event.OrganiserID, event.Name, event.Description,
		event.EventType, event.UTCStart, event.UTCEnd, event.ReminderAt,
		nullableID(event.ScheduledEventID), nullableID(event.HeaderMessageID), nullableID(event.BodyMessageID))
	if err != nil {
		return fmt.Errorf("store event: %w", err)
	}
	return nil
}

// GetEvent returns the event for a channel, or nil when none exists.
func (r *Repository) GetEvent(ctx context.Context, channelID int64) (*models.Event, error) {
	const q = `SELECT channel_id, guild_id, organiser_id, name, description, event_type,
			utc_start, utc_end, reminder_at, scheduled_event_id, header_message_id, body_message_id
		FROM events WHERE channel_id = $1`
	var (
		event                         models.Event
		scheduledID, headerID, bodyID *int64
	)
	err := r.pool.QueryRow(ctx, q, channelID).Scan(
		&event.ChannelID, &event.GuildID, &event.OrganiserID, &event.Name, &event.Description,
		&event.EventType, &event.UTCStart, &event.UTCEnd, &event.ReminderAt,
		&scheduledID, &headerID, &bodyID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	event.ScheduledEventID = deref(scheduledID)
	event.HeaderMessageID = deref(headerID)
	event.BodyMessageID = deref(bodyID)
	return &event, nil
}

// DeleteEvent removes an event and, via cascade, its registrations.
func (r *Repository) DeleteEvent(ctx context.Context, channelID int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM events WHERE channel_id = $1`, channelID)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	return nil
}

// Register commits a registration for a channel, overwriting any prior
// registration by the same user. The original created_at is kept so the
// roster preserves first-registration order.
func (r *Repository) Register(ctx context.Context, channelID int64, reg models.Registration) error {
	const q = `INSERT INTO registrations (channel_id, user_id, status, job)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (channel_id, user_id) DO UPDATE SET
			status = EXCLUDED.status, job = EXCLUDED.job, updated_at = NOW()`
	var job *string
	if reg.Job != nil {
		s := string(*reg.Job)
		job = &s
	}
	_, err := r.pool.Exec(ctx, q, channelID, reg.UserID, string(reg.Status), job)
	if err != nil {
		return fmt.Errorf("register: %w", err)
	}
	return nil
}

// Unregister removes a user's registration. Removing a registration that
// does not exist is a no-op.
func (r *Repository) Unregister(ctx context.Context, channelID, userID int64) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM registrations WHERE channel_id = $1 AND user_id = $2`, channelID, userID)
	if err != nil {
		return fmt.Errorf("unregister: %w", err)
	}
	return nil
}

// Registrations returns a channel's registrations in insertion order.
func (r *Repository) Registrations(ctx context.Context, channelID int64) ([]models.Registration, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT user_id, status, job FROM registrations WHERE channel_id = $1 ORDER BY created_at, user_id`,
		channelID)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	defer rows.Close()

	var list []models.Registration
	for rows.Next() {
		var (
			reg models.Registration
			job *string
		)
		if err := rows.Scan(&reg.UserID, &reg.Status, &job); err != nil {
			return nil, err
		}
		if job != nil {
			j := models.Job(*job)
			reg.Job = &j
		}
		list = append(list, reg)
	}
	return list, rows.Err()
}

// IsAssociatedWithEvent reports whether a native scheduled event is linked
// to a tracked event.
func (r *Repository) IsAssociatedWithEvent(ctx context.Context, scheduledEventID int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM events WHERE scheduled_event_id = $1)`, scheduledEventID).
		Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("is associated: %w", err)
	}
	return exists, nil
}

// ListDueReminders returns events whose reminder window has opened, whose
// start is still ahead, and which have not been reminded yet.
func (r *Repository) ListDueReminders(ctx context.Context, now time.Time) ([]models.Event, error) {
	const q = `SELECT channel_id, guild_id, organiser_id, name, description, event_type,
			utc_start, utc_end, reminder_at, scheduled_event_id, header_message_id, body_message_id
		FROM events
		WHERE reminder_at <= $1 AND utc_start > $1 AND reminded_at IS NULL`
	return r.queryEvents(ctx, q, now)
}

// MarkReminded records that a reminder went out for a channel's event.
func (r *Repository) MarkReminded(ctx context.Context, channelID int64) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE events SET reminded_at = NOW() WHERE channel_id = $1`, channelID)
	if err != nil {
		return fmt.Errorf("mark reminded: %w", err)
	}
	return nil
}

// ListPastEvents returns events that have ended by now.
func (r *Repository) ListPastEvents(ctx context.Context, now time.Time) ([]models.Event, error) {
	const q = `SELECT channel_id, guild_id, organiser_id, name, description, event_type,
			utc_start, utc_end, reminder_at, scheduled_event_id, header_message_id, body_message_id
		FROM events WHERE utc_end <= $1`
	return r.queryEvents(ctx, q, now)
}

func (r *Repository) queryEvents(ctx context.Context, q string, args ...any) ([]models.Event, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var list []models.Event
	for rows.Next() {
		var (
			event                         models.Event
			scheduledID, headerID, bodyID *int64
		)
		if err := rows.Scan(
			&event.ChannelID, &event.GuildID, &event.OrganiserID, &event.Name, &event.Description,
			&event.EventType, &event.UTCStart, &event.UTCEnd, &event.ReminderAt,
			&scheduledID, &headerID, &bodyID); err != nil {
			return nil, err
		}
		event.ScheduledEventID = deref(scheduledID)
		event.HeaderMessageID = deref(headerID)
		event.BodyMessageID = deref(bodyID)
		list = append(list, event)
	}
	return list, rows.Err()
}

func nullableID(id int64) *int64 {
	if id == 0 {
		return nil
	}
	return &id
}

func deref(id *int64) int64 {
	if id == nil {
		return 0
	}
	return *id
}
