package repository

import (
	"context"

	"github.com/mapcrew/backend/domain"
)

// TaskCache is an explicit cache-aside store for task snapshots. Mutating
// code invalidates after its transaction commits; readers repopulate on miss.
// A cache failure is never allowed to fail the surrounding operation.
type TaskCache interface {
	Get(ctx context.Context, id int64) (*domain.Task, error)
	Put(ctx context.Context, task *domain.Task) error
	Invalidate(ctx context.Context, ids ...int64) error
}
