package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// StaleReleaser is the sweep surface of the lock and claim services.
type StaleReleaser interface {
	ReleaseStale(ctx context.Context, ttl time.Duration) (int64, error)
}

// ClaimReleaser is the sweep surface of the review claim protocol.
type ClaimReleaser interface {
	ReleaseStaleClaims(ctx context.Context, ttl time.Duration) (int64, error)
}

// SweeperConfig carries the two independent staleness windows. The lock TTL
// is short because an abandoned lock wedges editing; the claim TTL is long
// because a claim only parks a queue slot.
type SweeperConfig struct {
	Interval time.Duration
	LockTTL  time.Duration
	ClaimTTL time.Duration
}

// Sweeper periodically clears stale locks and review claims by age alone.
// Holder liveness is deliberately ignored: availability of the queue wins
// over strict mutual-exclusion liveness.
type Sweeper struct {
	locks  StaleReleaser
	claims ClaimReleaser
	logger *zap.Logger
	cron   *cron.Cron
	cfg    SweeperConfig
}

func NewSweeper(locks StaleReleaser, claims ClaimReleaser, logger *zap.Logger, cfg SweeperConfig) *Sweeper {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = time.Hour
	}
	if cfg.ClaimTTL <= 0 {
		cfg.ClaimTTL = 12 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Sweeper{
		locks:  locks,
		claims: claims,
		logger: logger,
		cfg:    cfg,
		cron:   cron.New(cron.WithSeconds()),
	}

	schedule := fmt.Sprintf("@every %ds", int(cfg.Interval.Seconds()))
	_, _ = s.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Interval)
		defer cancel()
		s.Sweep(ctx)
	})

	return s
}

// Sweep runs both releases once. Failures are logged; the next tick retries.
func (s *Sweeper) Sweep(ctx context.Context) {
	if s.locks != nil {
		if count, err := s.locks.ReleaseStale(ctx, s.cfg.LockTTL); err != nil {
			s.logger.Error("stale lock sweep failed", zap.Error(err))
		} else if count > 0 {
			s.logger.Info("lock sweep completed", zap.Int64("released", count))
		}
	}
	if s.claims != nil {
		if count, err := s.claims.ReleaseStaleClaims(ctx, s.cfg.ClaimTTL); err != nil {
			s.logger.Error("stale claim sweep failed", zap.Error(err))
		} else if count > 0 {
			s.logger.Info("claim sweep completed", zap.Int64("released", count))
		}
	}
}

// Start launches the cron scheduler.
func (s *Sweeper) Start() {
	if s == nil || s.cron == nil {
		return
	}
	s.cron.Start()
	s.logger.Info("staleness sweeper started",
		zap.Duration("lock_ttl", s.cfg.LockTTL),
		zap.Duration("claim_ttl", s.cfg.ClaimTTL))
}

// Stop gracefully stops the scheduler.
func (s *Sweeper) Stop(ctx context.Context) {
	if s == nil || s.cron == nil {
		return
	}
	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}
	s.logger.Info("staleness sweeper stopped")
}
