package repository

import (
	"context"
	"time"

	"github.com/mapcrew/backend/domain"
)

// LockRepository persists exclusive item locks. Acquire and Release are
// single conditional statements; neither ever blocks.
type LockRepository interface {
	// Acquire takes or refreshes the lock. Returns false when the lock is
	// held by a different user.
	Acquire(ctx context.Context, userID int64, itemType string, itemID int64) (bool, error)

	// Release drops the lock when held by userID. Returns the current
	// holder (nil when the item ended up unlocked, whether or not a row was
	// deleted).
	Release(ctx context.Context, userID int64, itemType string, itemID int64) (*int64, error)

	// Holder returns the current lock row, or nil when unlocked.
	Holder(ctx context.Context, itemType string, itemID int64) (*domain.ResourceLock, error)

	// DeleteOlderThan removes every lock acquired before cutoff, regardless
	// of holder activity, and returns the count.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
