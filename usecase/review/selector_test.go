package review

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mapcrew/backend/domain"
	"github.com/mapcrew/backend/repository"
)

func TestNextTask_RequiresReviewer(t *testing.T) {
	f := newFixture()

	_, err := f.svc.NextTask(context.Background(), mapper(100), SearchOptions{}, 0)
	assert.ErrorIs(t, err, domain.ErrNotReviewer)
}

func TestNextTask_PassesCursor(t *testing.T) {
	f := newFixture()
	f.queue.next = requestedTask(7, 10, 100)

	task, err := f.svc.NextTask(context.Background(), reviewer(200), SearchOptions{IncludeDisputed: true}, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(7), task.ID)
	assert.Equal(t, int64(3), f.queue.lastSeen)

	require.Len(t, f.queue.queries, 1)
	assert.True(t, f.queue.queries[0].IncludeDisputed)
	assert.Equal(t, int64(200), f.queue.queries[0].User.ID)
}

func TestNextTask_EmptyQueue(t *testing.T) {
	f := newFixture()

	task, err := f.svc.NextTask(context.Background(), reviewer(200), SearchOptions{}, 0)
	require.NoError(t, err)
	assert.Nil(t, task)
}

func TestListRequested_RequiresReviewer(t *testing.T) {
	f := newFixture()

	_, err := f.svc.ListRequested(context.Background(), mapper(100), SearchOptions{})
	assert.ErrorIs(t, err, domain.ErrNotReviewer)
}

func TestListRequested_ForwardsOptions(t *testing.T) {
	f := newFixture()
	f.queue.rows = []repository.QueueRow{{Task: *requestedTask(1, 10, 100), RowNum: 1}}

	rows, err := f.svc.ListRequested(context.Background(), reviewer(200), SearchOptions{
		ExcludeOtherReviewers: true,
		SortKey:               "priority",
		SortDir:               "DESC",
		Limit:                 25,
		Offset:                50,
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)

	q := f.queue.queries[0]
	assert.True(t, q.ExcludeOtherReviewers)
	assert.Equal(t, "priority", q.SortKey)
	assert.Equal(t, 25, q.Limit)
	assert.Equal(t, 50, q.Offset)
}

func TestMetrics_SuperuserAllowed(t *testing.T) {
	f := newFixture()
	f.queue.counts = []repository.StatusCount{{Status: domain.ReviewRequested, Count: 3}}

	counts, err := f.svc.Metrics(context.Background(), domain.User{ID: 1, Superuser: true}, SearchOptions{})
	require.NoError(t, err)
	require.Len(t, counts, 1)
	assert.Equal(t, int64(3), counts[0].Count)
}

// rankedQueue reproduces the ranked-view contract of the Postgres queue: rows
// carry a dense rank under the query ordering, Next skips as many rows as the
// rank of lastTaskID, and an id that left the view resumes from the top.
type rankedQueue struct {
	tasks []domain.Task // in view order
}

func (q *rankedQueue) rankOf(taskID int64) int {
	for i, task := range q.tasks {
		if task.ID == taskID {
			return i + 1
		}
	}
	return 0
}

func (q *rankedQueue) Next(ctx context.Context, query repository.QueueQuery, lastTaskID int64) (*domain.Task, error) {
	offset := q.rankOf(lastTaskID)
	if offset >= len(q.tasks) {
		return nil, nil
	}
	copied := q.tasks[offset]
	return &copied, nil
}

func (q *rankedQueue) ListRequested(ctx context.Context, query repository.QueueQuery) ([]repository.QueueRow, error) {
	rows := make([]repository.QueueRow, 0, len(q.tasks))
	for i, task := range q.tasks {
		rows = append(rows, repository.QueueRow{Task: task, RowNum: int64(i + 1)})
	}
	return rows, nil
}

func (q *rankedQueue) ListReviewed(ctx context.Context, query repository.QueueQuery) ([]repository.QueueRow, error) {
	return nil, nil
}

func (q *rankedQueue) CountByStatus(ctx context.Context, query repository.QueueQuery) ([]repository.StatusCount, error) {
	return []repository.StatusCount{{Status: domain.ReviewRequested, Count: int64(len(q.tasks))}}, nil
}

func newRankedFixture(taskIDs ...int64) (*fixture, *rankedQueue) {
	f := newFixture()
	rq := &rankedQueue{}
	for _, id := range taskIDs {
		rq.tasks = append(rq.tasks, *requestedTask(id, 10, 100))
	}
	f.svc.queue = rq
	return f, rq
}

func TestNextTask_WalksTheRankedView(t *testing.T) {
	f, _ := newRankedFixture(10, 20, 30)
	ctx := context.Background()
	user := reviewer(200)

	first, err := f.svc.NextTask(ctx, user, SearchOptions{}, 0)
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, int64(10), first.ID)

	second, err := f.svc.NextTask(ctx, user, SearchOptions{}, first.ID)
	require.NoError(t, err)
	require.NotNil(t, second)
	assert.Equal(t, int64(20), second.ID)

	third, err := f.svc.NextTask(ctx, user, SearchOptions{}, second.ID)
	require.NoError(t, err)
	require.NotNil(t, third)
	assert.Equal(t, int64(30), third.ID)

	done, err := f.svc.NextTask(ctx, user, SearchOptions{}, third.ID)
	require.NoError(t, err)
	assert.Nil(t, done, "cursor past the last rank exhausts the view")
}

func TestNextTask_VanishedCursorRestartsFromTop(t *testing.T) {
	f, rq := newRankedFixture(10, 20, 30)
	ctx := context.Background()
	user := reviewer(200)

	// The cursor task leaves the view (claimed or reviewed elsewhere).
	rq.tasks = rq.tasks[:1]

	task, err := f.svc.NextTask(ctx, user, SearchOptions{}, 20)
	require.NoError(t, err)
	require.NotNil(t, task)
	assert.Equal(t, int64(10), task.ID, "an unknown rank resumes from the top")
}

func TestNextTask_UnknownCursorStartsFromTop(t *testing.T) {
	f, _ := newRankedFixture(10, 20)

	task, err := f.svc.NextTask(context.Background(), reviewer(200), SearchOptions{}, 999)
	require.NoError(t, err)
	require.NotNil(t, task)
	assert.Equal(t, int64(10), task.ID)
}

func TestGetTask_ReadsThroughCache(t *testing.T) {
	f := newFixture(requestedTask(1, 10, 100))

	got, err := f.svc.GetTask(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.ID)
	assert.Equal(t, 1, f.cache.puts, "miss populates the cache")

	f.tasks.tasks[1].Name = "renamed in store"
	again, err := f.svc.GetTask(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "task", again.Name, "snapshot served from cache until invalidation")
}

func TestGetTask_NotFound(t *testing.T) {
	f := newFixture()

	_, err := f.svc.GetTask(context.Background(), 99)
	assert.ErrorIs(t, err, domain.ErrTaskNotFound)
}

func TestTaskHistory(t *testing.T) {
	f := newFixture()
	f.history.entries = []domain.ReviewHistoryEntry{
		{TaskID: 1, Status: domain.ReviewApproved},
		{TaskID: 2, Status: domain.ReviewRejected},
	}

	entries, err := f.svc.TaskHistory(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.ReviewApproved, entries[0].Status)
}
