package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redislib "github.com/redis/go-redis/v9"

	"github.com/mapcrew/backend/domain"
	"github.com/mapcrew/backend/repository"
)

type taskCache struct {
	client *redislib.Client
	prefix string
	ttl    time.Duration
}

// NewTaskCache creates a Redis-backed cache-aside store for task snapshots.
// Misses return (nil, nil); callers fall through to Postgres and Put the
// result back.
func NewTaskCache(client *redislib.Client, ttl time.Duration) repository.TaskCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &taskCache{
		client: client,
		prefix: "task:",
		ttl:    ttl,
	}
}

func (c *taskCache) Get(ctx context.Context, id int64) (*domain.Task, error) {
	result, err := c.client.Get(ctx, c.key(id)).Result()
	if err != nil {
		if err == redislib.Nil {
			return nil, nil
		}
		return nil, err
	}

	var task domain.Task
	if err := json.Unmarshal([]byte(result), &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (c *taskCache) Put(ctx context.Context, task *domain.Task) error {
	if task == nil || task.ID == 0 {
		return domain.ErrInvalidPayload
	}
	payload, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(task.ID), payload, c.ttl).Err()
}

func (c *taskCache) Invalidate(ctx context.Context, ids ...int64) error {
	if len(ids) == 0 {
		return nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = c.key(id)
	}
	return c.client.Del(ctx, keys...).Err()
}

func (c *taskCache) key(id int64) string {
	return fmt.Sprintf("%s%d", c.prefix, id)
}
