package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mapcrew/backend/domain"
	"github.com/mapcrew/backend/repository"
)

type lockRepository struct {
	pool *pgxpool.Pool
}

// NewLockRepository returns a Postgres-backed implementation of LockRepository.
func NewLockRepository(pool *pgxpool.Pool) repository.LockRepository {
	return &lockRepository{pool: pool}
}

// Acquire is a single upsert: a fresh lock inserts, a re-entrant acquire
// refreshes the timestamp, and a lock held by someone else leaves zero rows
// affected. No statement ever waits.
func (r *lockRepository) Acquire(ctx context.Context, userID int64, itemType string, itemID int64) (bool, error) {
	const query = `
	INSERT INTO locked_items (item_type, item_id, user_id, locked_at)
	VALUES ($1, $2, $3, NOW())
	ON CONFLICT (item_type, item_id)
	DO UPDATE SET locked_at = NOW()
	WHERE locked_items.user_id = EXCLUDED.user_id
	`
	tag, err := r.pool.Exec(ctx, query, itemType, itemID, userID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *lockRepository) Release(ctx context.Context, userID int64, itemType string, itemID int64) (*int64, error) {
	const del = `
	DELETE FROM locked_items
	WHERE item_type = $1 AND item_id = $2 AND user_id = $3
	`
	tag, err := r.pool.Exec(ctx, del, itemType, itemID, userID)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() > 0 {
		return nil, nil
	}

	lock, err := r.Holder(ctx, itemType, itemID)
	if err != nil {
		return nil, err
	}
	if lock == nil {
		return nil, nil
	}
	return &lock.UserID, nil
}

func (r *lockRepository) Holder(ctx context.Context, itemType string, itemID int64) (*domain.ResourceLock, error) {
	const query = `
	SELECT item_type, item_id, user_id, locked_at
	FROM locked_items
	WHERE item_type = $1 AND item_id = $2
	`
	var lock domain.ResourceLock
	err := r.pool.QueryRow(ctx, query, itemType, itemID).
		Scan(&lock.ItemType, &lock.ItemID, &lock.UserID, &lock.LockedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &lock, nil
}

// DeleteOlderThan is the staleness sweep: age is the only criterion, holder
// activity is deliberately not consulted.
func (r *lockRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	const query = `DELETE FROM locked_items WHERE locked_at < $1`
	tag, err := r.pool.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
