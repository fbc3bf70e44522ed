package timezone

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DefaultTimezone is assumed for users who never set one.
const DefaultTimezone = "UTC"

// Repository persists per-user timezone preferences.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a timezone repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Set stores the timezone for a user, replacing any previous value.
func (r *Repository) Set(ctx context.Context, userID int64, timezone string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO user_timezones (user_id, timezone)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET
			timezone = EXCLUDED.timezone,
			updated_at = NOW()`,
		userID, timezone)
	if err != nil {
		return fmt.Errorf("set timezone: %w", err)
	}
	return nil
}

// Get returns the user's timezone, or DefaultTimezone when none is stored.
func (r *Repository) Get(ctx context.Context, userID int64) (string, error) {
	var tz string
	err := r.pool.QueryRow(ctx,
		`SELECT timezone FROM user_timezones WHERE user_id = $1`, userID).Scan(&tz)
	if errors.Is(err, pgx.ErrNoRows) {
		return DefaultTimezone, nil
	}
	if err != nil {
		return "", fmt.Errorf("get timezone: %w", err)
	}
	return tz, nil
}
