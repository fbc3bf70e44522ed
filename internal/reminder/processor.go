package reminder

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/heraldbot/backend/internal/discord"
	"github.com/heraldbot/backend/internal/models"
	"github.com/heraldbot/backend/pkg/queue"
)

// Store is the persistence surface the processor needs.
type Store interface {
	GetEvent(ctx context.Context, channelID int64) (*models.Event, error)
	Registrations(ctx context.Context, channelID int64) ([]models.Registration, error)
}

// Processor delivers reminder jobs to event channels.
type Processor struct {
	store   Store
	gateway discord.Gateway
	queue   *queue.Queue
	logger  *zap.Logger
}

// NewProcessor creates a reminder processor.
func NewProcessor(store Store, gateway discord.Gateway, q *queue.Queue, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{store: store, gateway: gateway, queue: q, logger: logger}
}

// Process executes one reminder delivery job.
func (p *Processor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeReminder {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.ReminderPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	event, err := p.store.GetEvent(ctx, payload.ChannelID)
	if err != nil {
		return fmt.Errorf("get event: %w", err)
	}
	if event == nil {
		// Deleted before the reminder went out. Nothing to do.
		p.logger.Info("reminder for removed event skipped", zap.Int64("channel_id", payload.ChannelID))
		return nil
	}

	registrations, err := p.store.Registrations(ctx, payload.ChannelID)
	if err != nil {
		return fmt.Errorf("list registrations: %w", err)
	}

	message := Message(event, registrations)
	if _, err := p.gateway.SendMessage(ctx, event.ChannelID, message, nil); err != nil {
		return fmt.Errorf("send reminder: %w", err)
	}
	p.logger.Info("sent reminder", zap.String("name", event.Name), zap.Int64("channel_id", event.ChannelID))
	return nil
}

// Message formats a reminder with a mention for every registered user
// except the organiser.
func Message(event *models.Event, registrations []models.Registration) string {
	out := fmt.Sprintf("%s by <@%d> will start <t:%d:R>\n",
		event.Name, event.OrganiserID, event.UTCStart.Unix())
	for _, reg := range registrations {
		if reg.UserID != event.OrganiserID {
			out += fmt.Sprintf("<@%d>", reg.UserID)
		}
	}
	return out
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *Processor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("reminder worker stopping")
			return
		default:
		}

		job, err := p.queue.Dequeue(ctx)
		if err != nil {
			p.logger.Warn("dequeue error", zap.Error(err))
			time.Sleep(queue.RetryBackoff)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Error(err))
			if reErr := p.queue.Retry(ctx, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			time.Sleep(queue.RetryBackoff)
			continue
		}
	}
}
