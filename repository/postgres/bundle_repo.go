package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mapcrew/backend/domain"
	"github.com/mapcrew/backend/repository"
)

type bundleRepository struct {
	pool *pgxpool.Pool
}

// NewBundleRepository returns a Postgres-backed implementation of BundleRepository.
func NewBundleRepository(pool *pgxpool.Pool) repository.BundleRepository {
	return &bundleRepository{pool: pool}
}

// Create runs the whole construction in one transaction: bundle row,
// membership rows, bundle fields on each member and the member locks. Any
// member that is already bundled, a suggested fix, from another challenge or
// locked by someone else aborts the transaction, so no partial bundle ever
// survives.
func (r *bundleRepository) Create(ctx context.Context, bundle *domain.TaskBundle) (*domain.TaskBundle, error) {
	if bundle == nil || len(bundle.TaskIDs) == 0 {
		return nil, domain.ErrEmptyBundle
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	const insertBundle = `
	INSERT INTO bundles (owner_id, name, primary_task_id)
	VALUES ($1, $2, $3)
	RETURNING id, created_at
	`
	if err := tx.QueryRow(ctx, insertBundle, bundle.OwnerID, bundle.Name, bundle.PrimaryTaskID).
		Scan(&bundle.ID, &bundle.CreatedAt); err != nil {
		return nil, err
	}

	const stamp = `
	UPDATE tasks t
	SET bundle_id = $1,
		is_bundle_primary = (t.id = $2)
	WHERE t.id = ANY($3)
	  AND t.bundle_id IS NULL
	  AND t.suggested_fix = FALSE
	  AND t.challenge_id = (SELECT challenge_id FROM tasks WHERE id = $4)
	RETURNING t.id
	`
	var primaryID int64
	if bundle.PrimaryTaskID != nil {
		primaryID = *bundle.PrimaryTaskID
	} else {
		primaryID = bundle.TaskIDs[0]
	}
	rows, err := tx.Query(ctx, stamp, bundle.ID, primaryID, bundle.TaskIDs, bundle.TaskIDs[0])
	if err != nil {
		return nil, err
	}
	stamped := 0
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		stamped++
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if stamped != len(bundle.TaskIDs) {
		return nil, domain.ErrInvalidBundleMember
	}

	const membership = `
	INSERT INTO task_bundles (bundle_id, task_id)
	SELECT $1, unnest($2::bigint[])
	`
	if _, err := tx.Exec(ctx, membership, bundle.ID, bundle.TaskIDs); err != nil {
		return nil, err
	}

	// Lock every member for the owner inside the same transaction; a member
	// locked by another user aborts creation.
	const lock = `
	INSERT INTO locked_items (item_type, item_id, user_id, locked_at)
	SELECT $1, unnest($2::bigint[]), $3, NOW()
	ON CONFLICT (item_type, item_id)
	DO UPDATE SET locked_at = NOW()
	WHERE locked_items.user_id = EXCLUDED.user_id
	`
	tag, err := tx.Exec(ctx, lock, domain.ItemTypeTask, bundle.TaskIDs, bundle.OwnerID)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() != int64(len(bundle.TaskIDs)) {
		return nil, domain.ErrLockedByOther
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return r.GetByID(ctx, bundle.ID)
}

func (r *bundleRepository) GetByID(ctx context.Context, id int64) (*domain.TaskBundle, error) {
	const query = `
	SELECT id, owner_id, name, primary_task_id, created_at
	FROM bundles
	WHERE id = $1
	`
	var bundle domain.TaskBundle
	err := r.pool.QueryRow(ctx, query, id).
		Scan(&bundle.ID, &bundle.OwnerID, &bundle.Name, &bundle.PrimaryTaskID, &bundle.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrBundleNotFound
		}
		return nil, err
	}

	members := `
	SELECT ` + taskColumns + `
	FROM tasks t
	JOIN task_bundles tb ON tb.task_id = t.id
	WHERE tb.bundle_id = $1
	ORDER BY t.id
	`
	rows, err := r.pool.Query(ctx, members, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		bundle.Tasks = append(bundle.Tasks, *task)
		bundle.TaskIDs = append(bundle.TaskIDs, task.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &bundle, nil
}

func (r *bundleRepository) RemoveMembers(ctx context.Context, bundleID int64, taskIDs []int64) ([]int64, error) {
	if len(taskIDs) == 0 {
		return nil, nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	// A bundle primary can never be individually unbundled.
	const clear = `
	UPDATE tasks
	SET bundle_id = NULL, is_bundle_primary = NULL
	WHERE id = ANY($1)
	  AND bundle_id = $2
	  AND is_bundle_primary IS NOT TRUE
	RETURNING id
	`
	rows, err := tx.Query(ctx, clear, taskIDs, bundleID)
	if err != nil {
		return nil, err
	}
	var removed []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		removed = append(removed, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(removed) > 0 {
		const drop = `DELETE FROM task_bundles WHERE bundle_id = $1 AND task_id = ANY($2)`
		if _, err := tx.Exec(ctx, drop, bundleID, removed); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return removed, nil
}

func (r *bundleRepository) Delete(ctx context.Context, bundleID int64) ([]int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	const members = `SELECT task_id FROM task_bundles WHERE bundle_id = $1`
	rows, err := tx.Query(ctx, members, bundleID)
	if err != nil {
		return nil, err
	}
	var memberIDs []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		memberIDs = append(memberIDs, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	const clear = `
	UPDATE tasks SET bundle_id = NULL, is_bundle_primary = NULL WHERE bundle_id = $1
	`
	if _, err := tx.Exec(ctx, clear, bundleID); err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM task_bundles WHERE bundle_id = $1`, bundleID); err != nil {
		return nil, err
	}

	tag, err := tx.Exec(ctx, `DELETE FROM bundles WHERE id = $1`, bundleID)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, domain.ErrBundleNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return memberIDs, nil
}
