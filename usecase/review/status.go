package review

import (
	"context"
	"time"

	"github.com/mapcrew/backend/domain"
	"github.com/mapcrew/backend/repository"
	"github.com/mapcrew/backend/usecase"
)

// StatusResult reports the outcome of a status transition. RowsChanged zero
// is reachable only through the Unnecessary no-op path; every other zero-row
// update surfaces as a conflict error instead.
type StatusResult struct {
	Task        *domain.Task
	RowsChanged int64
}

// SetStatus drives the review state machine. The whole transition is one
// conditional UPDATE gated on the resource lock, so a concurrent reviewer
// observes either full application or a clean ErrLockedByOther. Side effects
// and scoring run only after the row is committed and never undo it.
func (s *Service) SetStatus(ctx context.Context, user domain.User, taskID int64, newStatus domain.ReviewStatus, actionID, comment string) (*StatusResult, error) {
	if !newStatus.Valid() {
		return nil, domain.ErrInvalidPayload
	}
	if !newStatus.SelfServe() && !user.CanReview() {
		return nil, domain.ErrNotAuthorized
	}

	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if newStatus == domain.ReviewUnnecessary {
		if err := s.perms.HasWriteAccess(ctx, user, domain.ItemTypeChallenge, task.ChallengeID); err != nil {
			return nil, err
		}
		if task.Review.Status == nil || *task.Review.Status != domain.ReviewRequested {
			// Withdrawing a review that already happened is a no-op, not an
			// error.
			return &StatusResult{Task: task, RowsChanged: 0}, nil
		}
	}

	tr := domain.Transition{From: task.Review.Status, To: newStatus}
	isDisputed := tr.IsDispute()
	needsReReview := tr.NeedsReReview()
	claimedAt := task.Review.ClaimedAt

	ids, err := s.effectiveTaskIDs(ctx, task)
	if err != nil {
		return nil, err
	}

	rows, refreshed, err := s.tasks.ApplyReviewUpdate(ctx, repository.ReviewUpdate{
		TaskIDs:           ids,
		NewStatus:         newStatus,
		User:              user.ID,
		NeedsReReview:     needsReReview,
		OnlyFromRequested: newStatus == domain.ReviewUnnecessary,
		ReviewedAt:        s.now(),
	})
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		if newStatus == domain.ReviewUnnecessary {
			return &StatusResult{Task: task, RowsChanged: 0}, nil
		}
		return nil, domain.ErrLockedByOther
	}
	if refreshed == nil {
		refreshed = task
	}

	for _, id := range ids {
		id := id
		s.effects.Run(ctx, "lock.release", func(ctx context.Context) error {
			return s.locks.Unlock(ctx, user, domain.ItemTypeTask, id)
		})
	}
	s.invalidate(ctx, ids...)

	if comment != "" && s.comments != nil {
		s.effects.Run(ctx, "comment.create", func(ctx context.Context) error {
			return s.comments.Create(ctx, user, task.ID, comment, actionID)
		})
	}

	// History and notification follow the bundle primary; children moved in
	// the same update but do not get their own audit rows.
	if !task.IsBundleChild() {
		s.effects.Run(ctx, "history.append", func(ctx context.Context) error {
			return s.history.Append(ctx, &domain.ReviewHistoryEntry{
				TaskID:          task.ID,
				RequestedBy:     refreshed.Review.RequestedBy,
				ReviewedBy:      refreshed.Review.ReviewedBy,
				Status:          newStatus,
				ReviewedAt:      s.now(),
				ReviewStartedAt: refreshed.Review.ReviewStartedAt,
			})
		})

		if !isDisputed && newStatus != domain.ReviewUnnecessary {
			s.notifyCounterpart(ctx, user, refreshed, newStatus, needsReReview, comment)
		}
	}
	s.publish(ctx, usecase.MessageReviewUpdate, refreshed)

	if newStatus != domain.ReviewUnnecessary {
		s.applyScoring(ctx, user, task, refreshed, newStatus, needsReReview, isDisputed, claimedAt)
	}

	return &StatusResult{Task: refreshed, RowsChanged: rows}, nil
}

// notifyCounterpart tells the other side of the review about the transition:
// the reviewer when the task went back to Requested, the mapper when a
// terminal status landed.
func (s *Service) notifyCounterpart(ctx context.Context, actor domain.User, task *domain.Task, status domain.ReviewStatus, needsReReview bool, comment string) {
	if s.notifier == nil {
		return
	}
	var recipient *int64
	if needsReReview {
		recipient = task.Review.ReviewedBy
	} else {
		recipient = task.Review.RequestedBy
	}
	if recipient == nil || *recipient == actor.ID {
		return
	}
	to := *recipient
	s.effects.Run(ctx, "notification.review", func(ctx context.Context) error {
		return s.notifier.CreateReviewNotification(ctx, actor, to, status, task, comment)
	})
}

// applyScoring decides which user-metrics calls a transition earns. A
// terminal review credits the requester and (time-weighted) the reviewer; a
// dispute re-credits both sides as disputed and rolls back the requester's
// previously booked rejection. A plain re-request earns nothing.
func (s *Service) applyScoring(ctx context.Context, user domain.User, before, after *domain.Task, status domain.ReviewStatus, needsReReview, isDisputed bool, claimedAt *time.Time) {
	if s.metrics == nil {
		return
	}

	var startMs int64
	if claimedAt != nil {
		startMs = claimedAt.UnixMilli()
	}

	switch {
	case !needsReReview:
		if after.Review.RequestedBy != nil {
			requester := *after.Review.RequestedBy
			s.effects.Run(ctx, "metrics.requester", func(ctx context.Context) error {
				return s.metrics.UpdateUserScore(ctx, usecase.ScoreUpdate{
					UserID:       requester,
					TaskStatus:   after.Status,
					ReviewStatus: status,
				})
			})
		}
		s.effects.Run(ctx, "metrics.reviewer", func(ctx context.Context) error {
			return s.metrics.UpdateUserScore(ctx, usecase.ScoreUpdate{
				UserID:        user.ID,
				TaskStatus:    after.Status,
				ReviewStatus:  status,
				AsReviewer:    true,
				ReviewStartMs: startMs,
			})
		})
	case isDisputed:
		if before.Review.ReviewedBy != nil {
			reviewer := *before.Review.ReviewedBy
			s.effects.Run(ctx, "metrics.reviewer_disputed", func(ctx context.Context) error {
				return s.metrics.UpdateUserScore(ctx, usecase.ScoreUpdate{
					UserID:       reviewer,
					TaskStatus:   after.Status,
					ReviewStatus: domain.ReviewDisputed,
					AsReviewer:   true,
				})
			})
		}
		s.effects.Run(ctx, "metrics.requester_disputed", func(ctx context.Context) error {
			return s.metrics.UpdateUserScore(ctx, usecase.ScoreUpdate{
				UserID:       user.ID,
				TaskStatus:   after.Status,
				ReviewStatus: domain.ReviewDisputed,
				IsRevision:   true,
			})
		})
	}
}
