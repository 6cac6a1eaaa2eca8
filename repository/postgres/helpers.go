package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/mapcrew/backend/domain"
)

// taskColumns is the canonical select list for task rows. Queue queries that
// wrap it in a CTE rely on the bare column names surviving.
const taskColumns = `t.id, t.challenge_id, t.name, t.status, t.priority, t.mapped_by,
	t.bundle_id, t.is_bundle_primary, t.suggested_fix,
	t.review_status, t.review_requested_by, t.reviewed_by, t.reviewed_at,
	t.review_started_at, t.review_claimed_by, t.review_claimed_at,
	t.created_at, t.updated_at`

func scanTask(row interface {
	Scan(dest ...interface{}) error
}) (*domain.Task, error) {
	var task domain.Task
	var reviewStatus *int

	if err := row.Scan(
		&task.ID,
		&task.ChallengeID,
		&task.Name,
		&task.Status,
		&task.Priority,
		&task.MappedBy,
		&task.BundleID,
		&task.IsBundlePrimary,
		&task.SuggestedFix,
		&reviewStatus,
		&task.Review.RequestedBy,
		&task.Review.ReviewedBy,
		&task.Review.ReviewedAt,
		&task.Review.ReviewStartedAt,
		&task.Review.ClaimedBy,
		&task.Review.ClaimedAt,
		&task.CreatedAt,
		&task.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTaskNotFound
		}
		return nil, err
	}

	if reviewStatus != nil {
		status := domain.ReviewStatus(*reviewStatus)
		task.Review.Status = &status
	}

	return &task, nil
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > 100 {
		return 100
	}
	return limit
}
