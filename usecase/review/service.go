package review

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/mapcrew/backend/domain"
	"github.com/mapcrew/backend/repository"
	"github.com/mapcrew/backend/usecase"
)

// Locker is the slice of the resource-lock service the review engine needs.
type Locker interface {
	Lock(ctx context.Context, user domain.User, itemType string, itemID int64) error
	Unlock(ctx context.Context, user domain.User, itemType string, itemID int64) error
}

// Deps wires the review service. Cache, comments, notifier, metrics and
// realtime may be nil; the service degrades to skipping those effects.
type Deps struct {
	Tasks      repository.TaskRepository
	Bundles    repository.BundleRepository
	Queue      repository.ReviewQueueRepository
	History    repository.ReviewHistoryRepository
	Challenges repository.ChallengeRepository
	Cache      repository.TaskCache
	Locks      Locker
	Perms      usecase.Permissions
	Metrics    usecase.UserMetrics
	Notifier   usecase.Notifier
	Comments   usecase.Commenter
	Realtime   usecase.Realtime
	Logger     *zap.Logger
}

// Service implements the review claim protocol, the review state machine and
// the next-task selector over a shared relational store. All coordination is
// conditional SQL; the service itself holds no mutable state.
type Service struct {
	tasks      repository.TaskRepository
	bundles    repository.BundleRepository
	queue      repository.ReviewQueueRepository
	history    repository.ReviewHistoryRepository
	challenges repository.ChallengeRepository
	cache      repository.TaskCache
	locks      Locker
	perms      usecase.Permissions
	metrics    usecase.UserMetrics
	notifier   usecase.Notifier
	comments   usecase.Commenter
	realtime   usecase.Realtime
	effects    *usecase.Effects
	logger     *zap.Logger
	now        func() time.Time
}

func New(d Deps) *Service {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	return &Service{
		tasks:      d.Tasks,
		bundles:    d.Bundles,
		queue:      d.Queue,
		history:    d.History,
		challenges: d.Challenges,
		cache:      d.Cache,
		locks:      d.Locks,
		perms:      d.Perms,
		metrics:    d.Metrics,
		notifier:   d.Notifier,
		comments:   d.Comments,
		realtime:   d.Realtime,
		effects:    usecase.NewEffects(d.Logger),
		logger:     d.Logger,
		now:        time.Now,
	}
}

// GetTask returns a task snapshot, reading through the cache; a miss or a
// cache error falls back to the store. Conflict decisions never use this
// path, a snapshot may trail the store by one invalidation.
func (s *Service) GetTask(ctx context.Context, id int64) (*domain.Task, error) {
	if s.cache != nil {
		if task, err := s.cache.Get(ctx, id); err == nil && task != nil {
			return task, nil
		}
	}
	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.effects.Run(ctx, "cache.put", func(ctx context.Context) error {
			return s.cache.Put(ctx, task)
		})
	}
	return task, nil
}

// refresh re-reads a task from the store and writes the snapshot through to
// the cache.
func (s *Service) refresh(ctx context.Context, id int64) (*domain.Task, error) {
	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.effects.Run(ctx, "cache.put", func(ctx context.Context) error {
			return s.cache.Put(ctx, task)
		})
	}
	return task, nil
}

func (s *Service) invalidate(ctx context.Context, ids ...int64) {
	if s.cache == nil || len(ids) == 0 {
		return
	}
	s.effects.Run(ctx, "cache.invalidate", func(ctx context.Context) error {
		return s.cache.Invalidate(ctx, ids...)
	})
}

// effectiveTaskIDs resolves the set of task ids a claim/status operation
// touches: a bundle primary fans out to every member, anything else is just
// the task itself.
func (s *Service) effectiveTaskIDs(ctx context.Context, task *domain.Task) ([]int64, error) {
	if !task.IsPrimary() || task.BundleID == nil {
		return []int64{task.ID}, nil
	}
	bundle, err := s.bundles.GetByID(ctx, *task.BundleID)
	if err != nil {
		return nil, err
	}
	// The addressed primary stays first; callers rely on that for the
	// refreshed snapshot and history attribution.
	ids := []int64{task.ID}
	for _, id := range bundle.TaskIDs {
		if id != task.ID {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (s *Service) publish(ctx context.Context, kind string, task *domain.Task) {
	if s.realtime == nil || task == nil {
		return
	}
	s.effects.Run(ctx, "realtime.send", func(ctx context.Context) error {
		return s.realtime.SendMessage(ctx, kind, task)
	})
}
