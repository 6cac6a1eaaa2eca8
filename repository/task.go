package repository

import (
	"context"
	"time"

	"github.com/mapcrew/backend/domain"
)

// ReviewUpdate is the single conditional statement that moves a task (or a
// bundle's worth of tasks) to a new review status. The WHERE clause requires
// the resource lock on each task to be held by User or unset; the affected
// row count is the concurrency outcome.
type ReviewUpdate struct {
	TaskIDs   []int64
	NewStatus domain.ReviewStatus
	User      int64
	// NeedsReReview attributes the update to review_requested_by instead of
	// reviewed_by.
	NeedsReReview bool
	// OnlyFromRequested restricts the update to rows still in Requested
	// (the Unnecessary one-way rule).
	OnlyFromRequested bool
	ReviewedAt        time.Time
}

// TaskRepository covers the task-row mutations of the review engine. Task
// creation and geometry belong to the task CRUD service.
type TaskRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Task, error)
	GetByIDs(ctx context.Context, ids []int64) ([]domain.Task, error)

	// StartReviewClaim transactionally clears every claim currently held by
	// userID and then claims each task in taskIDs that is still unclaimed.
	// Tasks claimed by someone else in the meantime are skipped, not failed.
	// Returns the ids actually claimed.
	StartReviewClaim(ctx context.Context, userID int64, taskIDs []int64, at time.Time) ([]int64, error)

	// ClearClaim removes the claim on one task if userID is the claimant.
	// Returns false when zero rows changed (claim already taken over).
	ClearClaim(ctx context.Context, userID, taskID int64) (bool, error)

	// ReleaseStaleClaims clears every claim older than cutoff and returns
	// the number of rows affected.
	ReleaseStaleClaims(ctx context.Context, cutoff time.Time) (int64, error)

	// ApplyReviewUpdate executes the conditional status update across every
	// task in TaskIDs, all-or-nothing: when the lock gate or the status
	// precondition holds back any row, the whole update rolls back and zero
	// rows are reported. On success it returns the row count and the
	// refreshed first task.
	ApplyReviewUpdate(ctx context.Context, upd ReviewUpdate) (int64, *domain.Task, error)
}

// ReviewHistoryRepository is the append-only audit log of completed review
// transitions.
type ReviewHistoryRepository interface {
	Append(ctx context.Context, entry *domain.ReviewHistoryEntry) error
	ListByTask(ctx context.Context, taskID int64) ([]domain.ReviewHistoryEntry, error)
}

// ChallengeRepository exposes the challenge slice needed for authorization
// and queue visibility.
type ChallengeRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Challenge, error)
}
