// Package bus is the redis-backed notification bus connecting the event
// lifecycle to its renderers and mirrors. Publishers fire and forget;
// subscribers run each notification to completion and swallow their own
// failures.
package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Kind identifies a notification type.
type Kind string

const (
	KindEventCreated             Kind = "event.created"
	KindEventAltered             Kind = "event.altered"
	KindScheduledEventUserAdd    Kind = "scheduled_event.user_add"
	KindScheduledEventUserRemove Kind = "scheduled_event.user_remove"
)

const (
	channelPrefix  = "herald:"
	publishTimeout = 5 * time.Second
)

// envelope is the message published to Redis.
type envelope struct {
	Kind Kind            `json:"kind"`
	Data json.RawMessage `json:"data"`
	At   int64           `json:"at"`
}

// NewClient creates a Redis client and verifies connectivity.
func NewClient(ctx context.Context, addr, password string, db int, logger *zap.Logger) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	logger.Info("Redis client connected", zap.String("addr", addr))
	return rdb, nil
}

// Bus publishes and subscribes to notifications over Redis pub/sub.
type Bus struct {
	client *redis.Client
	logger *zap.Logger
}

// New creates a notification bus on an existing Redis client.
func New(client *redis.Client, logger *zap.Logger) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus{client: client, logger: logger}
}

// Publish sends a notification of the given kind. The payload is marshalled
// to JSON. Delivery is at-most-once; handlers must tolerate missed messages.
func (b *Bus) Publish(ctx context.Context, kind Kind, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	body, err := json.Marshal(envelope{Kind: kind, Data: data, At: time.Now().Unix()})
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	return b.client.Publish(ctx, channelPrefix+string(kind), body).Err()
}

// Subscribe invokes handler for every notification of the given kind until
// the returned cancel function is called. Malformed messages are dropped.
func (b *Bus) Subscribe(kind Kind, handler func(payload []byte)) (cancel func(), err error) {
	ctx, cancelCtx := context.WithCancel(context.Background())
	pubsub := b.client.Subscribe(ctx, channelPrefix+string(kind))
	if _, err := pubsub.Receive(ctx); err != nil {
		cancelCtx()
		return nil, fmt.Errorf("subscribe %s: %w", kind, err)
	}
	ch := pubsub.Channel()
	go func() {
		defer pubsub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var env envelope
				if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
					b.logger.Warn("dropping malformed notification",
						zap.String("kind", string(kind)), zap.Error(err))
					continue
				}
				handler(env.Data)
			}
		}
	}()
	return func() { cancelCtx() }, nil
}
