package repository

import (
	"context"

	"github.com/mapcrew/backend/domain"
)

// BundleRepository persists task bundles. Create, RemoveMembers and Delete
// each run inside one transaction so membership mutations are all-or-nothing;
// best-effort lock cleanup around them stays with the usecase layer.
type BundleRepository interface {
	// Create inserts the bundle row and memberships, stamps bundle_id and
	// is_bundle_primary on every member, and takes the resource lock on each
	// member for ownerID inside the same transaction. A member locked by
	// another user aborts the whole transaction with domain.ErrLockedByOther.
	Create(ctx context.Context, bundle *domain.TaskBundle) (*domain.TaskBundle, error)

	GetByID(ctx context.Context, id int64) (*domain.TaskBundle, error)

	// RemoveMembers clears bundle fields and membership rows for the given
	// non-primary members. Primary members are left untouched.
	RemoveMembers(ctx context.Context, bundleID int64, taskIDs []int64) ([]int64, error)

	// Delete clears bundle fields on every member and removes the bundle
	// row. Returns the member ids for lock cleanup by the caller.
	Delete(ctx context.Context, bundleID int64) ([]int64, error)
}
