package bundle

import (
	"context"

	"go.uber.org/zap"

	"github.com/mapcrew/backend/domain"
	"github.com/mapcrew/backend/repository"
	"github.com/mapcrew/backend/usecase"
	"github.com/mapcrew/backend/usecase/review"
)

// Service groups tasks into atomically-reviewed bundles. Membership
// mutations are transactional in the repository; lock cleanup around them is
// best-effort.
type Service struct {
	bundles repository.BundleRepository
	tasks   repository.TaskRepository
	cache   repository.TaskCache
	locks   review.Locker
	perms   usecase.Permissions
	effects *usecase.Effects
	logger  *zap.Logger
}

type Deps struct {
	Bundles repository.BundleRepository
	Tasks   repository.TaskRepository
	Cache   repository.TaskCache
	Locks   review.Locker
	Perms   usecase.Permissions
	Logger  *zap.Logger
}

func New(d Deps) *Service {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	return &Service{
		bundles: d.Bundles,
		tasks:   d.Tasks,
		cache:   d.Cache,
		locks:   d.Locks,
		perms:   d.Perms,
		effects: usecase.NewEffects(d.Logger),
		logger:  d.Logger,
	}
}

// Create validates the candidate set and constructs the bundle. Every member
// must share the first member's challenge, be unbundled and not a suggested
// fix; the repository re-checks those conditions inside its transaction, so
// a race between validation and insert aborts cleanly with no bundle row or
// lock left behind.
func (s *Service) Create(ctx context.Context, user domain.User, name string, taskIDs []int64, primaryTaskID *int64) (*domain.TaskBundle, error) {
	if len(taskIDs) == 0 {
		return nil, domain.ErrEmptyBundle
	}

	tasks, err := s.tasks.GetByIDs(ctx, taskIDs)
	if err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		return nil, domain.ErrEmptyBundle
	}
	if len(tasks) != len(taskIDs) {
		return nil, domain.ErrTaskNotFound
	}

	challengeID := tasks[0].ChallengeID
	for _, task := range tasks {
		if task.SuggestedFix || task.IsBundled() || task.ChallengeID != challengeID {
			return nil, domain.ErrInvalidBundleMember
		}
	}

	primary := taskIDs[0]
	if primaryTaskID != nil {
		primary = *primaryTaskID
	}

	created, err := s.bundles.Create(ctx, &domain.TaskBundle{
		OwnerID:       user.ID,
		Name:          name,
		TaskIDs:       taskIDs,
		PrimaryTaskID: &primary,
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, taskIDs...)
	return created, nil
}

// Get returns the bundle with current member snapshots. Read access on the
// owning challenge is the only gate.
func (s *Service) Get(ctx context.Context, user domain.User, bundleID int64) (*domain.TaskBundle, error) {
	bundle, err := s.bundles.GetByID(ctx, bundleID)
	if err != nil {
		return nil, err
	}
	if len(bundle.Tasks) > 0 {
		if err := s.perms.HasReadAccess(ctx, user, domain.ItemTypeChallenge, bundle.Tasks[0].ChallengeID); err != nil {
			return nil, err
		}
	}
	return bundle, nil
}

// Unbundle removes the named non-primary members. The primary can never
// leave its bundle this way.
func (s *Service) Unbundle(ctx context.Context, user domain.User, bundleID int64, taskIDs []int64) (*domain.TaskBundle, error) {
	bundle, err := s.bundles.GetByID(ctx, bundleID)
	if err != nil {
		return nil, err
	}
	if bundle.OwnerID != user.ID && !user.Superuser {
		return nil, domain.ErrNotAuthorized
	}

	removed, err := s.bundles.RemoveMembers(ctx, bundleID, taskIDs)
	if err != nil {
		return nil, err
	}

	for _, id := range removed {
		id := id
		s.effects.Run(ctx, "lock.release", func(ctx context.Context) error {
			return s.locks.Unlock(ctx, user, domain.ItemTypeTask, id)
		})
	}
	s.invalidate(ctx, removed...)

	return s.bundles.GetByID(ctx, bundleID)
}

// Delete dissolves the bundle entirely. Every member's bundle fields are
// cleared and every member except primaryTaskID is unlocked; the primary
// stays locked and claimed so the caller can finish its review.
func (s *Service) Delete(ctx context.Context, user domain.User, bundleID, primaryTaskID int64) error {
	bundle, err := s.bundles.GetByID(ctx, bundleID)
	if err != nil {
		return err
	}
	if bundle.OwnerID != user.ID && !user.Superuser {
		if len(bundle.Tasks) == 0 {
			return domain.ErrNotAuthorized
		}
		if err := s.perms.HasWriteAccess(ctx, user, domain.ItemTypeChallenge, bundle.Tasks[0].ChallengeID); err != nil {
			return err
		}
	}

	memberIDs, err := s.bundles.Delete(ctx, bundleID)
	if err != nil {
		return err
	}

	for _, id := range memberIDs {
		if id == primaryTaskID {
			continue
		}
		id := id
		s.effects.Run(ctx, "lock.release", func(ctx context.Context) error {
			return s.locks.Unlock(ctx, user, domain.ItemTypeTask, id)
		})
	}
	s.invalidate(ctx, memberIDs...)
	return nil
}

func (s *Service) invalidate(ctx context.Context, ids ...int64) {
	if s.cache == nil || len(ids) == 0 {
		return
	}
	s.effects.Run(ctx, "cache.invalidate", func(ctx context.Context) error {
		return s.cache.Invalidate(ctx, ids...)
	})
}
