package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mapcrew/backend/domain"
	"github.com/mapcrew/backend/repository"
)

type historyRepository struct {
	pool *pgxpool.Pool
}

// NewReviewHistoryRepository returns a Postgres-backed implementation of
// ReviewHistoryRepository. Rows are insert-only.
func NewReviewHistoryRepository(pool *pgxpool.Pool) repository.ReviewHistoryRepository {
	return &historyRepository{pool: pool}
}

func (r *historyRepository) Append(ctx context.Context, entry *domain.ReviewHistoryEntry) error {
	if entry == nil {
		return domain.ErrInvalidPayload
	}
	const query = `
	INSERT INTO task_review_history (task_id, requested_by, reviewed_by, review_status, reviewed_at, review_started_at)
	VALUES ($1, $2, $3, $4, $5, $6)
	RETURNING id
	`
	return r.pool.QueryRow(ctx, query,
		entry.TaskID,
		entry.RequestedBy,
		entry.ReviewedBy,
		int(entry.Status),
		entry.ReviewedAt,
		entry.ReviewStartedAt,
	).Scan(&entry.ID)
}

func (r *historyRepository) ListByTask(ctx context.Context, taskID int64) ([]domain.ReviewHistoryEntry, error) {
	const query = `
	SELECT id, task_id, requested_by, reviewed_by, review_status, reviewed_at, review_started_at
	FROM task_review_history
	WHERE task_id = $1
	ORDER BY reviewed_at DESC, id DESC
	`
	rows, err := r.pool.Query(ctx, query, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.ReviewHistoryEntry
	for rows.Next() {
		var entry domain.ReviewHistoryEntry
		var status int
		if err := rows.Scan(
			&entry.ID,
			&entry.TaskID,
			&entry.RequestedBy,
			&entry.ReviewedBy,
			&status,
			&entry.ReviewedAt,
			&entry.ReviewStartedAt,
		); err != nil {
			return nil, err
		}
		entry.Status = domain.ReviewStatus(status)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
