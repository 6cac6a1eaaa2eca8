package domain

import "time"

// ResourceLock is an exclusive, TTL-less hold on a single item. At most one
// holder exists per (item type, item id); the row is removed on explicit
// unlock or by the staleness sweep.
type ResourceLock struct {
	ItemType string    `json:"item_type"`
	ItemID   int64     `json:"item_id"`
	UserID   int64     `json:"user_id"`
	LockedAt time.Time `json:"locked_at"`
}
