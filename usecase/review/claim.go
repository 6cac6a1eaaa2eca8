package review

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/mapcrew/backend/domain"
	"github.com/mapcrew/backend/usecase"
)

// StartReview claims a task (and its bundle, when the task is a bundle
// primary) for the reviewer. A user holds at most one active claim
// system-wide: the repository clears any previous claim in the same
// transaction that grants the new one. Lock acquisition is best-effort; a
// lost lock race is logged, not surfaced.
func (s *Service) StartReview(ctx context.Context, user domain.User, taskID int64) (*domain.Task, error) {
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.Review.ClaimedByOther(user.ID) {
		return nil, domain.ErrClaimedByOther
	}

	ids, err := s.effectiveTaskIDs(ctx, task)
	if err != nil {
		return nil, err
	}

	claimed, err := s.tasks.StartReviewClaim(ctx, user.ID, ids, s.now())
	if err != nil {
		return nil, err
	}
	if len(claimed) < len(ids) {
		// Tasks claimed by someone else between resolve and update are
		// skipped, not failed.
		s.logger.Debug("claim skipped contested tasks",
			zap.Int("requested", len(ids)),
			zap.Int("claimed", len(claimed)))
	}

	for _, id := range claimed {
		id := id
		s.effects.Run(ctx, "lock.acquire", func(ctx context.Context) error {
			return s.locks.Lock(ctx, user, domain.ItemTypeTask, id)
		})
	}
	s.invalidate(ctx, ids...)

	refreshed, err := s.refresh(ctx, task.ID)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, usecase.MessageReviewClaimed, refreshed)
	return refreshed, nil
}

// CancelReview releases the caller's claim on one task.
func (s *Service) CancelReview(ctx context.Context, user domain.User, taskID int64) (*domain.Task, error) {
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.Review.ClaimedBy == nil || *task.Review.ClaimedBy != user.ID {
		return nil, domain.ErrNotClaimant
	}

	cleared, err := s.tasks.ClearClaim(ctx, user.ID, task.ID)
	if err != nil {
		return nil, err
	}
	if !cleared {
		// The claim moved between read and update.
		return nil, domain.ErrConflictingClaim
	}

	s.effects.Run(ctx, "lock.release", func(ctx context.Context) error {
		return s.locks.Unlock(ctx, user, domain.ItemTypeTask, task.ID)
	})
	s.invalidate(ctx, task.ID)

	refreshed, err := s.refresh(ctx, task.ID)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, usecase.MessageReviewUpdate, refreshed)
	return refreshed, nil
}

// ReleaseStaleClaims clears claims older than ttl. It runs from the periodic
// sweep and is routine maintenance, not an error path.
func (s *Service) ReleaseStaleClaims(ctx context.Context, ttl time.Duration) (int64, error) {
	count, err := s.tasks.ReleaseStaleClaims(ctx, s.now().Add(-ttl))
	if err != nil {
		return 0, err
	}
	if count > 0 {
		s.logger.Info("stale review claims released", zap.Int64("count", count))
	}
	return count, nil
}
