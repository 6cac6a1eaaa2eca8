package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mapcrew/backend/domain"
	"github.com/mapcrew/backend/repository"
)

type taskRepository struct {
	pool *pgxpool.Pool
}

// NewTaskRepository returns a Postgres-backed implementation of TaskRepository.
func NewTaskRepository(pool *pgxpool.Pool) repository.TaskRepository {
	return &taskRepository{pool: pool}
}

func (r *taskRepository) GetByID(ctx context.Context, id int64) (*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks t WHERE t.id = $1`
	row := r.pool.QueryRow(ctx, query, id)
	return scanTask(row)
}

func (r *taskRepository) GetByIDs(ctx context.Context, ids []int64) ([]domain.Task, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `SELECT ` + taskColumns + ` FROM tasks t WHERE t.id = ANY($1) ORDER BY t.id`
	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []domain.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}
	return tasks, rows.Err()
}

// StartReviewClaim enforces the one-claim-per-user invariant inside one
// transaction: the user's previous claims are cleared before the new set is
// claimed, and each claim is conditional on the row still being unclaimed.
func (r *taskRepository) StartReviewClaim(ctx context.Context, userID int64, taskIDs []int64, at time.Time) ([]int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	const clear = `
	UPDATE tasks
	SET review_claimed_by = NULL, review_claimed_at = NULL
	WHERE review_claimed_by = $1
	`
	if _, err := tx.Exec(ctx, clear, userID); err != nil {
		return nil, err
	}

	const claim = `
	UPDATE tasks
	SET review_claimed_by = $1, review_claimed_at = $2
	WHERE id = ANY($3) AND review_claimed_by IS NULL
	RETURNING id
	`
	rows, err := tx.Query(ctx, claim, userID, at, taskIDs)
	if err != nil {
		return nil, err
	}

	var claimed []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		claimed = append(claimed, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return claimed, nil
}

func (r *taskRepository) ClearClaim(ctx context.Context, userID, taskID int64) (bool, error) {
	const query = `
	UPDATE tasks
	SET review_claimed_by = NULL, review_claimed_at = NULL
	WHERE id = $1 AND review_claimed_by = $2
	`
	tag, err := r.pool.Exec(ctx, query, taskID, userID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *taskRepository) ReleaseStaleClaims(ctx context.Context, cutoff time.Time) (int64, error) {
	const query = `
	UPDATE tasks
	SET review_claimed_by = NULL, review_claimed_at = NULL
	WHERE review_claimed_at < $1
	`
	tag, err := r.pool.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// ApplyReviewUpdate is the optimistic-concurrency core of the state machine:
// one UPDATE whose WHERE clause carries the lock gate and, for the
// Unnecessary transition, the from-Requested precondition. The transition is
// all-or-nothing across TaskIDs: a gate holding back any single row rolls the
// whole transaction back and zero rows are reported.
func (r *taskRepository) ApplyReviewUpdate(ctx context.Context, upd repository.ReviewUpdate) (int64, *domain.Task, error) {
	if len(upd.TaskIDs) == 0 {
		return 0, nil, nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, nil, err
	}
	defer tx.Rollback(ctx)

	const query = `
	UPDATE tasks t SET
		review_status = $1,
		reviewed_at = $2,
		review_started_at = COALESCE(t.review_claimed_at, t.review_started_at),
		review_claimed_by = NULL,
		review_claimed_at = NULL,
		reviewed_by = CASE WHEN $3 THEN t.reviewed_by ELSE $4 END,
		review_requested_by = CASE WHEN $3 THEN $4 ELSE t.review_requested_by END,
		updated_at = NOW()
	WHERE t.id = ANY($5)
	  AND NOT EXISTS (
		SELECT 1 FROM locked_items l
		WHERE l.item_type = $6 AND l.item_id = t.id AND l.user_id <> $4
	  )
	  AND ($7 = FALSE OR t.review_status = $8)
	RETURNING t.id
	`
	rows, err := tx.Query(ctx, query,
		int(upd.NewStatus),
		upd.ReviewedAt,
		upd.NeedsReReview,
		upd.User,
		upd.TaskIDs,
		domain.ItemTypeTask,
		upd.OnlyFromRequested,
		int(domain.ReviewRequested),
	)
	if err != nil {
		return 0, nil, err
	}

	var updated int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, nil, err
		}
		updated++
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, nil, err
	}

	if updated < int64(len(upd.TaskIDs)) {
		// A lock or status precondition held at least one row back; the
		// deferred rollback discards the rest.
		return 0, nil, nil
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, nil, err
	}

	refreshed, err := r.GetByID(ctx, upd.TaskIDs[0])
	if err != nil {
		return updated, nil, err
	}
	return updated, refreshed, nil
}
