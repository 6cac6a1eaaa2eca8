package services

import (
	"context"
	"fmt"
	"time"

	redislib "github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mapcrew/backend/internal/services/outbox"
)

// ConnectionHealth abstracts the connection monitor functionality.
type ConnectionHealth interface {
	IsOnline() bool
}

// DispatcherConfig controls how frequently the outbox is drained.
type DispatcherConfig struct {
	Interval   time.Duration
	BatchSize  int
	MaxRetries int
	Channel    string
	QueueNotif string
	QueueScore string
}

// OutboxDispatcher redelivers buffered side effects once Redis is reachable
// again. The primary operations that produced them have long since
// committed; this loop only owes best effort.
type OutboxDispatcher struct {
	store   *outbox.Store
	monitor ConnectionHealth
	client  *redislib.Client
	logger  *zap.Logger
	cron    *cron.Cron
	cfg     DispatcherConfig
}

func NewOutboxDispatcher(store *outbox.Store, monitor ConnectionHealth, client *redislib.Client, logger *zap.Logger, cfg DispatcherConfig) *OutboxDispatcher {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.Channel == "" {
		cfg.Channel = "review:events"
	}
	if cfg.QueueNotif == "" {
		cfg.QueueNotif = "review:notifications"
	}
	if cfg.QueueScore == "" {
		cfg.QueueScore = "review:score_updates"
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	d := &OutboxDispatcher{
		store:   store,
		monitor: monitor,
		client:  client,
		logger:  logger,
		cfg:     cfg,
		cron:    cron.New(cron.WithSeconds()),
	}

	schedule := fmt.Sprintf("@every %ds", int(cfg.Interval.Seconds()))
	_, _ = d.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Interval)
		defer cancel()
		if err := d.Drain(ctx); err != nil {
			d.logger.Error("outbox drain failed", zap.Error(err))
		}
	})

	return d
}

// Start launches the cron scheduler.
func (d *OutboxDispatcher) Start() {
	if d == nil || d.cron == nil {
		return
	}
	d.cron.Start()
	d.logger.Info("outbox dispatcher started")
}

// Stop gracefully stops the scheduler.
func (d *OutboxDispatcher) Stop(ctx context.Context) {
	if d == nil || d.cron == nil {
		return
	}
	stopCtx := d.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}
	d.logger.Info("outbox dispatcher stopped")
}

// Drain redelivers pending items synchronously.
func (d *OutboxDispatcher) Drain(ctx context.Context) error {
	if d == nil || d.store == nil {
		return nil
	}
	if d.monitor != nil && !d.monitor.IsOnline() {
		d.logger.Debug("skipping outbox drain (offline)")
		return nil
	}

	items, err := d.store.GetBatch(d.cfg.BatchSize)
	if err != nil {
		return err
	}

	for _, item := range items {
		if err := d.deliver(ctx, item); err != nil {
			d.logger.Error("failed to deliver outbox item",
				zap.String("item_id", item.ID),
				zap.String("channel", item.Channel),
				zap.Error(err))

			item.Retries++
			if item.Retries >= d.cfg.MaxRetries {
				d.logger.Warn("dropping outbox item (max retries reached)", zap.String("item_id", item.ID))
				_ = d.store.Remove(item)
				continue
			}

			if err := d.store.Remove(item); err != nil {
				d.logger.Warn("failed to remove outbox item", zap.Error(err))
			}
			if err := d.store.Requeue(item); err != nil {
				d.logger.Error("failed to requeue outbox item", zap.Error(err))
			}
			continue
		}

		if err := d.store.Remove(item); err != nil {
			d.logger.Warn("failed to purge delivered outbox item", zap.Error(err))
		}
	}
	return nil
}

// Size returns the number of pending items.
func (d *OutboxDispatcher) Size() int {
	if d == nil || d.store == nil {
		return 0
	}
	size, err := d.store.Size()
	if err != nil {
		return 0
	}
	return size
}

func (d *OutboxDispatcher) deliver(ctx context.Context, item outbox.Item) error {
	if ctx == nil {
		ctx = context.Background()
	}

	switch item.Channel {
	case outbox.ChannelRealtime:
		return d.client.Publish(ctx, d.cfg.Channel, []byte(item.Payload)).Err()
	case outbox.ChannelNotification:
		return d.client.LPush(ctx, d.cfg.QueueNotif, []byte(item.Payload)).Err()
	case outbox.ChannelScore:
		return d.client.LPush(ctx, d.cfg.QueueScore, []byte(item.Payload)).Err()
	default:
		d.logger.Warn("unknown outbox channel, dropping", zap.String("channel", item.Channel))
		return nil
	}
}
