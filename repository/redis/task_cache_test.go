package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redislib "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mapcrew/backend/domain"
)

func newTestCache(t *testing.T) (*miniredis.Miniredis, *taskCache) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redislib.NewClient(&redislib.Options{Addr: srv.Addr()})
	t.Cleanup(func() { client.Close() })
	return srv, NewTaskCache(client, time.Minute).(*taskCache)
}

func TestTaskCache_PutGet(t *testing.T) {
	_, cache := newTestCache(t)
	ctx := context.Background()

	status := domain.ReviewRequested
	task := &domain.Task{
		ID:          42,
		ChallengeID: 10,
		Name:        "survey crossing",
		Review:      domain.ReviewFields{Status: &status},
	}
	require.NoError(t, cache.Put(ctx, task))

	got, err := cache.Get(ctx, 42)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(42), got.ID)
	assert.Equal(t, "survey crossing", got.Name)
	require.NotNil(t, got.Review.Status)
	assert.Equal(t, domain.ReviewRequested, *got.Review.Status)
}

func TestTaskCache_MissReturnsNil(t *testing.T) {
	_, cache := newTestCache(t)

	got, err := cache.Get(context.Background(), 999)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestTaskCache_PutRejectsInvalid(t *testing.T) {
	_, cache := newTestCache(t)

	assert.Error(t, cache.Put(context.Background(), nil))
	assert.Error(t, cache.Put(context.Background(), &domain.Task{}))
}

func TestTaskCache_Invalidate(t *testing.T) {
	_, cache := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Put(ctx, &domain.Task{ID: 1}))
	require.NoError(t, cache.Put(ctx, &domain.Task{ID: 2}))
	require.NoError(t, cache.Invalidate(ctx, 1, 2))

	for _, id := range []int64{1, 2} {
		got, err := cache.Get(ctx, id)
		require.NoError(t, err)
		assert.Nil(t, got)
	}
}

func TestTaskCache_InvalidateEmptyIsNoop(t *testing.T) {
	_, cache := newTestCache(t)
	assert.NoError(t, cache.Invalidate(context.Background()))
}

func TestTaskCache_EntriesExpire(t *testing.T) {
	srv, cache := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Put(ctx, &domain.Task{ID: 7}))
	srv.FastForward(2 * time.Minute)

	got, err := cache.Get(ctx, 7)
	require.NoError(t, err)
	assert.Nil(t, got)
}
