package review

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mapcrew/backend/domain"
	"github.com/mapcrew/backend/repository"
	"github.com/mapcrew/backend/usecase"
)

// In-memory fakes that honor the conditional-update contracts of the real
// repositories: zero affected rows on a lost race, clear-then-claim in one
// step, lock gate on status updates.

type fakeTasks struct {
	mu     sync.Mutex
	tasks  map[int64]*domain.Task
	locked map[int64]int64 // task id -> lock holder

	applyCalls []repository.ReviewUpdate
}

func newFakeTasks(tasks ...*domain.Task) *fakeTasks {
	f := &fakeTasks{
		tasks:  make(map[int64]*domain.Task),
		locked: make(map[int64]int64),
	}
	for _, t := range tasks {
		f.tasks[t.ID] = t
	}
	return f
}

func (f *fakeTasks) GetByID(ctx context.Context, id int64) (*domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	task, ok := f.tasks[id]
	if !ok {
		return nil, domain.ErrTaskNotFound
	}
	copied := *task
	return &copied, nil
}

func (f *fakeTasks) GetByIDs(ctx context.Context, ids []int64) ([]domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Task
	for _, id := range ids {
		if task, ok := f.tasks[id]; ok {
			out = append(out, *task)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeTasks) StartReviewClaim(ctx context.Context, userID int64, taskIDs []int64, at time.Time) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, task := range f.tasks {
		if task.Review.ClaimedBy != nil && *task.Review.ClaimedBy == userID {
			task.Review.ClaimedBy = nil
			task.Review.ClaimedAt = nil
		}
	}
	var claimed []int64
	for _, id := range taskIDs {
		task, ok := f.tasks[id]
		if !ok || task.Review.ClaimedBy != nil {
			continue
		}
		uid, ts := userID, at
		task.Review.ClaimedBy = &uid
		task.Review.ClaimedAt = &ts
		claimed = append(claimed, id)
	}
	return claimed, nil
}

func (f *fakeTasks) ClearClaim(ctx context.Context, userID, taskID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	task, ok := f.tasks[taskID]
	if !ok || task.Review.ClaimedBy == nil || *task.Review.ClaimedBy != userID {
		return false, nil
	}
	task.Review.ClaimedBy = nil
	task.Review.ClaimedAt = nil
	return true, nil
}

func (f *fakeTasks) ReleaseStaleClaims(ctx context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var count int64
	for _, task := range f.tasks {
		if task.Review.ClaimedAt != nil && task.Review.ClaimedAt.Before(cutoff) {
			task.Review.ClaimedBy = nil
			task.Review.ClaimedAt = nil
			count++
		}
	}
	return count, nil
}

func (f *fakeTasks) ApplyReviewUpdate(ctx context.Context, upd repository.ReviewUpdate) (int64, *domain.Task, error) {
	f.mu.Lock()
	f.applyCalls = append(f.applyCalls, upd)

	// All-or-nothing across TaskIDs, like the transactional UPDATE: one
	// ineligible row holds back every row.
	for _, id := range upd.TaskIDs {
		task, ok := f.tasks[id]
		if !ok {
			f.mu.Unlock()
			return 0, nil, nil
		}
		if holder, locked := f.locked[id]; locked && holder != upd.User {
			f.mu.Unlock()
			return 0, nil, nil
		}
		if upd.OnlyFromRequested && (task.Review.Status == nil || *task.Review.Status != domain.ReviewRequested) {
			f.mu.Unlock()
			return 0, nil, nil
		}
	}

	var rows int64
	for _, id := range upd.TaskIDs {
		task := f.tasks[id]
		status := upd.NewStatus
		ts := upd.ReviewedAt
		task.Review.Status = &status
		task.Review.ReviewedAt = &ts
		if task.Review.ClaimedAt != nil {
			started := *task.Review.ClaimedAt
			task.Review.ReviewStartedAt = &started
		}
		task.Review.ClaimedBy = nil
		task.Review.ClaimedAt = nil
		uid := upd.User
		if upd.NeedsReReview {
			task.Review.RequestedBy = &uid
		} else {
			task.Review.ReviewedBy = &uid
		}
		rows++
	}
	f.mu.Unlock()

	if rows == 0 {
		return 0, nil, nil
	}
	refreshed, err := f.GetByID(ctx, upd.TaskIDs[0])
	if err != nil {
		return rows, nil, err
	}
	return rows, refreshed, nil
}

func (f *fakeTasks) lock(taskID, userID int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.locked[taskID] = userID
}

type fakeBundles struct {
	bundles map[int64]*domain.TaskBundle
}

func (f *fakeBundles) Create(ctx context.Context, bundle *domain.TaskBundle) (*domain.TaskBundle, error) {
	return bundle, nil
}

func (f *fakeBundles) GetByID(ctx context.Context, id int64) (*domain.TaskBundle, error) {
	bundle, ok := f.bundles[id]
	if !ok {
		return nil, domain.ErrBundleNotFound
	}
	return bundle, nil
}

func (f *fakeBundles) RemoveMembers(ctx context.Context, bundleID int64, taskIDs []int64) ([]int64, error) {
	return taskIDs, nil
}

func (f *fakeBundles) Delete(ctx context.Context, bundleID int64) ([]int64, error) {
	bundle, ok := f.bundles[bundleID]
	if !ok {
		return nil, domain.ErrBundleNotFound
	}
	return bundle.TaskIDs, nil
}

type fakeCache struct {
	mu    sync.Mutex
	items map[int64]*domain.Task
	puts  int
}

func newFakeCache() *fakeCache {
	return &fakeCache{items: make(map[int64]*domain.Task)}
}

func (f *fakeCache) Get(ctx context.Context, id int64) (*domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	task, ok := f.items[id]
	if !ok {
		return nil, nil
	}
	copied := *task
	return &copied, nil
}

func (f *fakeCache) Put(ctx context.Context, task *domain.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *task
	f.items[task.ID] = &copied
	f.puts++
	return nil
}

func (f *fakeCache) Invalidate(ctx context.Context, ids ...int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range ids {
		delete(f.items, id)
	}
	return nil
}

type lockCall struct {
	userID int64
	itemID int64
}

type fakeLocker struct {
	mu      sync.Mutex
	lockErr error
	locks   []lockCall
	unlocks []lockCall
}

func (f *fakeLocker) Lock(ctx context.Context, user domain.User, itemType string, itemID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lockErr != nil {
		return f.lockErr
	}
	f.locks = append(f.locks, lockCall{userID: user.ID, itemID: itemID})
	return nil
}

func (f *fakeLocker) Unlock(ctx context.Context, user domain.User, itemType string, itemID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unlocks = append(f.unlocks, lockCall{userID: user.ID, itemID: itemID})
	return nil
}

type fakeHistory struct {
	entries []domain.ReviewHistoryEntry
}

func (f *fakeHistory) Append(ctx context.Context, entry *domain.ReviewHistoryEntry) error {
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeHistory) ListByTask(ctx context.Context, taskID int64) ([]domain.ReviewHistoryEntry, error) {
	var out []domain.ReviewHistoryEntry
	for _, e := range f.entries {
		if e.TaskID == taskID {
			out = append(out, e)
		}
	}
	return out, nil
}

type fakePerms struct {
	readErr  error
	writeErr error
}

func (f *fakePerms) HasReadAccess(ctx context.Context, user domain.User, itemType string, itemID int64) error {
	return f.readErr
}

func (f *fakePerms) HasWriteAccess(ctx context.Context, user domain.User, itemType string, itemID int64) error {
	return f.writeErr
}

type fakeMetrics struct {
	mu      sync.Mutex
	updates []usecase.ScoreUpdate
}

func (f *fakeMetrics) UpdateUserScore(ctx context.Context, upd usecase.ScoreUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, upd)
	return nil
}

type notification struct {
	actorID     int64
	recipientID int64
	status      domain.ReviewStatus
}

type fakeNotifier struct {
	sent []notification
}

func (f *fakeNotifier) CreateReviewNotification(ctx context.Context, actor domain.User, recipientID int64, status domain.ReviewStatus, task *domain.Task, comment string) error {
	f.sent = append(f.sent, notification{actorID: actor.ID, recipientID: recipientID, status: status})
	return nil
}

type fakeComments struct {
	created []string
}

func (f *fakeComments) Create(ctx context.Context, user domain.User, taskID int64, text string, actionID string) error {
	f.created = append(f.created, text)
	return nil
}

type fakeRealtime struct {
	mu       sync.Mutex
	messages []string
}

func (f *fakeRealtime) SendMessage(ctx context.Context, kind string, task *domain.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, kind)
	return nil
}

type fakeQueue struct {
	next     *domain.Task
	rows     []repository.QueueRow
	counts   []repository.StatusCount
	lastSeen int64
	queries  []repository.QueueQuery
}

func (f *fakeQueue) Next(ctx context.Context, q repository.QueueQuery, lastTaskID int64) (*domain.Task, error) {
	f.queries = append(f.queries, q)
	f.lastSeen = lastTaskID
	return f.next, nil
}

func (f *fakeQueue) ListRequested(ctx context.Context, q repository.QueueQuery) ([]repository.QueueRow, error) {
	f.queries = append(f.queries, q)
	return f.rows, nil
}

func (f *fakeQueue) ListReviewed(ctx context.Context, q repository.QueueQuery) ([]repository.QueueRow, error) {
	f.queries = append(f.queries, q)
	return f.rows, nil
}

func (f *fakeQueue) CountByStatus(ctx context.Context, q repository.QueueQuery) ([]repository.StatusCount, error) {
	f.queries = append(f.queries, q)
	return f.counts, nil
}

type fixture struct {
	svc      *Service
	tasks    *fakeTasks
	bundles  *fakeBundles
	queue    *fakeQueue
	history  *fakeHistory
	cache    *fakeCache
	locker   *fakeLocker
	perms    *fakePerms
	metrics  *fakeMetrics
	notifier *fakeNotifier
	comments *fakeComments
	realtime *fakeRealtime
	now      time.Time
}

func newFixture(tasks ...*domain.Task) *fixture {
	f := &fixture{
		tasks:    newFakeTasks(tasks...),
		bundles:  &fakeBundles{bundles: make(map[int64]*domain.TaskBundle)},
		queue:    &fakeQueue{},
		history:  &fakeHistory{},
		cache:    newFakeCache(),
		locker:   &fakeLocker{},
		perms:    &fakePerms{},
		metrics:  &fakeMetrics{},
		notifier: &fakeNotifier{},
		comments: &fakeComments{},
		realtime: &fakeRealtime{},
		now:      time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	f.svc = New(Deps{
		Tasks:    f.tasks,
		Bundles:  f.bundles,
		Queue:    f.queue,
		History:  f.history,
		Cache:    f.cache,
		Locks:    f.locker,
		Perms:    f.perms,
		Metrics:  f.metrics,
		Notifier: f.notifier,
		Comments: f.comments,
		Realtime: f.realtime,
	})
	f.svc.now = func() time.Time { return f.now }
	return f
}

func reviewer(id int64) domain.User {
	return domain.User{ID: id, Name: "reviewer", Reviewer: true}
}

func mapper(id int64) domain.User {
	return domain.User{ID: id, Name: "mapper"}
}

func statusPtr(s domain.ReviewStatus) *domain.ReviewStatus { return &s }

func int64Ptr(v int64) *int64 { return &v }

func boolPtr(v bool) *bool { return &v }

func timePtr(t time.Time) *time.Time { return &t }

func requestedTask(id, challengeID, requestedBy int64) *domain.Task {
	return &domain.Task{
		ID:          id,
		ChallengeID: challengeID,
		Name:        "task",
		Status:      domain.TaskStatusFixed,
		Review: domain.ReviewFields{
			Status:      statusPtr(domain.ReviewRequested),
			RequestedBy: int64Ptr(requestedBy),
		},
	}
}
