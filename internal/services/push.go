package services

import (
	"context"
	"encoding/json"
	"time"

	redislib "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mapcrew/backend/domain"
	"github.com/mapcrew/backend/internal/services/outbox"
	"github.com/mapcrew/backend/usecase"
)

// RealtimePublisher pushes task+review snapshots to connected clients over a
// Redis pub/sub channel. Delivery is fire-and-forget: a failed publish lands
// in the outbox for the dispatcher to retry.
type RealtimePublisher struct {
	client  *redislib.Client
	store   *outbox.Store
	channel string
	logger  *zap.Logger
}

func NewRealtimePublisher(client *redislib.Client, store *outbox.Store, channel string, logger *zap.Logger) *RealtimePublisher {
	if channel == "" {
		channel = "review:events"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RealtimePublisher{
		client:  client,
		store:   store,
		channel: channel,
		logger:  logger,
	}
}

type realtimeEnvelope struct {
	Kind string       `json:"kind"`
	Task *domain.Task `json:"task"`
	At   time.Time    `json:"at"`
}

func (p *RealtimePublisher) SendMessage(ctx context.Context, kind string, task *domain.Task) error {
	payload, err := json.Marshal(realtimeEnvelope{Kind: kind, Task: task, At: time.Now()})
	if err != nil {
		return err
	}

	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		p.logger.Warn("realtime publish failed, buffering", zap.String("kind", kind), zap.Error(err))
		return p.store.Enqueue(outbox.Item{
			Channel: outbox.ChannelRealtime,
			Kind:    kind,
			Payload: payload,
		})
	}
	return nil
}

var _ usecase.Realtime = (*RealtimePublisher)(nil)
