// Package reminder sends start-of-event reminders to registered users. A
// scanner enqueues due reminders and a processor delivers them.
package reminder

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/heraldbot/backend/internal/models"
	"github.com/heraldbot/backend/pkg/queue"
)

// ScanInterval is how often the scanner checks for due reminders.
const ScanInterval = time.Minute

// ScanStore is the persistence surface the scanner needs.
type ScanStore interface {
	ListDueReminders(ctx context.Context, now time.Time) ([]models.Event, error)
	MarkReminded(ctx context.Context, channelID int64) error
}

// Enqueuer hands reminder jobs to the queue.
type Enqueuer interface {
	EnqueueReminder(ctx context.Context, payload queue.ReminderPayload) error
}

// Scanner periodically enqueues reminders whose window has opened. Marking
// an event reminded before enqueueing keeps a crashed enqueue from
// repeating every scan; delivery retries are the queue's job.
type Scanner struct {
	store  ScanStore
	queue  Enqueuer
	logger *zap.Logger
}

// NewScanner creates a reminder scanner.
func NewScanner(store ScanStore, queue Enqueuer, logger *zap.Logger) *Scanner {
	return &Scanner{store: store, queue: queue, logger: logger}
}

// Run blocks until ctx is cancelled, scanning every ScanInterval.
func (s *Scanner) Run(ctx context.Context) {
	ticker := time.NewTicker(ScanInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("reminder scanner stopping")
			return
		case <-ticker.C:
			s.Scan(ctx)
		}
	}
}

// Scan enqueues all currently due reminders.
func (s *Scanner) Scan(ctx context.Context) {
	due, err := s.store.ListDueReminders(ctx, time.Now().UTC())
	if err != nil {
		s.logger.Error("list due reminders", zap.Error(err))
		return
	}
	for _, event := range due {
		if err := s.store.MarkReminded(ctx, event.ChannelID); err != nil {
			s.logger.Error("mark reminded", zap.Int64("channel_id", event.ChannelID), zap.Error(err))
			continue
		}
		if err := s.queue.EnqueueReminder(ctx, queue.ReminderPayload{ChannelID: event.ChannelID}); err != nil {
			s.logger.Error("enqueue reminder", zap.Int64("channel_id", event.ChannelID), zap.Error(err))
		}
	}
}
