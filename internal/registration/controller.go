// Package registration drives the interactive registration state machine:
// users accumulate a pending (status, job) selection and commit it by
// joining, or retract an existing registration by leaving.
package registration

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/heraldbot/backend/internal/models"
	"github.com/heraldbot/backend/internal/pending"
	"github.com/heraldbot/backend/pkg/bus"
)

// ValidationError is a user-correctable input problem. It is surfaced to the
// requester and never logged as a failure.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Store is the slice of the event store the controller mutates.
type Store interface {
	GetEvent(ctx context.Context, channelID int64) (*models.Event, error)
	Register(ctx context.Context, channelID int64, reg models.Registration) error
	Unregister(ctx context.Context, channelID, userID int64) error
}

// Publisher publishes notifications after a commit or retraction.
type Publisher interface {
	Publish(ctx context.Context, kind bus.Kind, payload any) error
}

// Controller holds no durable state; all effects go to the store and the
// notification bus.
type Controller struct {
	selections *pending.Cache
	store      Store
	publisher  Publisher
	logger     *zap.Logger
}

// NewController creates an interaction controller.
func NewController(selections *pending.Cache, store Store, publisher Publisher, logger *zap.Logger) *Controller {
	return &Controller{
		selections: selections,
		store:      store,
		publisher:  publisher,
		logger:     logger,
	}
}

// ChooseStatus buffers a status selection. Nothing is committed.
func (c *Controller) ChooseStatus(userID, channelID int64, status models.Status) error {
	if !status.Valid() {
		return &ValidationError{Message: fmt.Sprintf("unknown attendance status %q", status)}
	}
	c.selections.SetStatus(userID, channelID, status)
	return nil
}

// ChooseJob buffers a job selection. Nothing is committed.
func (c *Controller) ChooseJob(userID, channelID int64, job models.Job) error {
	c.selections.SetJob(userID, channelID, job)
	return nil
}

// Join commits the pending selection as a registration, overwriting any
// prior registration for the user, and notifies listeners that the event
// changed. A join without a chosen status, or with a buffered job the event
// type does not offer, fails validation and mutates nothing.
func (c *Controller) Join(ctx context.Context, userID, channelID int64) error {
	selection := c.selections.Get(userID, channelID)
	if selection.Status == nil {
		return &ValidationError{
			Message: "Could not find your attendance status, please change your selection and join again",
		}
	}

	event, err := c.store.GetEvent(ctx, channelID)
	if err != nil {
		return fmt.Errorf("load event: %w", err)
	}
	if event == nil {
		c.logger.Warn("join for channel with no event",
			zap.Int64("user_id", userID), zap.Int64("channel_id", channelID))
		return fmt.Errorf("no event in channel %d", channelID)
	}

	if selection.Job != nil && !models.JobValidFor(event.EventType, *selection.Job) {
		return &ValidationError{
			Message: fmt.Sprintf("%s is not a selectable job for this event", *selection.Job),
		}
	}

	reg := models.Registration{UserID: userID, Status: *selection.Status, Job: selection.Job}
	if err := c.store.Register(ctx, channelID, reg); err != nil {
		return fmt.Errorf("commit registration: %w", err)
	}

	if err := c.publisher.Publish(ctx, bus.KindEventAltered, bus.EventNotice{Event: *event}); err != nil {
		c.logger.Warn("publish event altered", zap.Int64("channel_id", channelID), zap.Error(err))
	}
	return nil
}

// Leave retracts the user's registration. Leaving without being registered
// is a no-op, not an error; the pending selection is left untouched.
func (c *Controller) Leave(ctx context.Context, userID, channelID int64) error {
	if err := c.store.Unregister(ctx, channelID, userID); err != nil {
		return fmt.Errorf("retract registration: %w", err)
	}

	event, err := c.store.GetEvent(ctx, channelID)
	if err != nil || event == nil {
		return nil
	}
	if err := c.publisher.Publish(ctx, bus.KindEventAltered, bus.EventNotice{Event: *event}); err != nil {
		c.logger.Warn("publish event altered", zap.Int64("channel_id", channelID), zap.Error(err))
	}
	return nil
}
