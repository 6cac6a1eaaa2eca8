package lock

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/mapcrew/backend/domain"
	"github.com/mapcrew/backend/repository"
)

// Service grants and releases exclusive item locks. Acquisition never
// blocks: a held lock fails immediately and the caller decides whether to
// surface the conflict or retry.
type Service struct {
	locks  repository.LockRepository
	logger *zap.Logger
}

func New(locks repository.LockRepository, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		locks:  locks,
		logger: logger,
	}
}

// Lock takes the lock for user, succeeding when the item is unlocked or
// already held by the same user.
func (s *Service) Lock(ctx context.Context, user domain.User, itemType string, itemID int64) error {
	acquired, err := s.locks.Acquire(ctx, user.ID, itemType, itemID)
	if err != nil {
		return err
	}
	if !acquired {
		return domain.ErrLockedByOther
	}
	return nil
}

// Unlock releases the lock. Releasing an unlocked item is a no-op success;
// a lock held by a different user fails unless the caller is a superuser.
func (s *Service) Unlock(ctx context.Context, user domain.User, itemType string, itemID int64) error {
	holder, err := s.locks.Release(ctx, user.ID, itemType, itemID)
	if err != nil {
		return err
	}
	if holder == nil {
		return nil
	}
	if !user.Superuser {
		return domain.ErrNotLockHolder
	}

	if _, err := s.locks.Release(ctx, *holder, itemType, itemID); err != nil {
		return err
	}
	s.logger.Info("lock force-released",
		zap.String("item_type", itemType),
		zap.Int64("item_id", itemID),
		zap.Int64("holder", *holder),
		zap.Int64("by", user.ID))
	return nil
}

// ReleaseStale removes every lock older than ttl, regardless of whether the
// holder is still active. Availability wins over strict exclusivity here:
// the review queue must not wedge on an abandoned lock.
func (s *Service) ReleaseStale(ctx context.Context, ttl time.Duration) (int64, error) {
	count, err := s.locks.DeleteOlderThan(ctx, time.Now().Add(-ttl))
	if err != nil {
		return 0, err
	}
	if count > 0 {
		s.logger.Info("stale locks released", zap.Int64("count", count))
	}
	return count, nil
}
