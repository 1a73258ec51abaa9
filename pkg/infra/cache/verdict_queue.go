package cache

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
)

// VerdictQueue is a Redis list of verdict ids waiting for the feedback
// aggregator. Ids are pushed on the left and popped from the right.
type VerdictQueue interface {
	Push(ctx context.Context, id string) error
	// Pop waits up to timeout and returns "" when nothing arrived.
	Pop(ctx context.Context, timeout time.Duration) (string, error)
	Len(ctx context.Context) (int64, error)
}

type redisVerdictQueue struct {
	cache Client
	key   string
}

func NewVerdictQueue(cache Client, key string) VerdictQueue {
	return &redisVerdictQueue{cache: cache, key: key}
}

func (q *redisVerdictQueue) Push(ctx context.Context, id string) error {
	return q.cache.RedisClient().LPush(ctx, q.key, id).Err()
}

func (q *redisVerdictQueue) Pop(ctx context.Context, timeout time.Duration) (string, error) {
	res, err := q.cache.RedisClient().BRPop(ctx, timeout, q.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if len(res) != 2 {
		return "", nil
	}
	return res[1], nil
}

func (q *redisVerdictQueue) Len(ctx context.Context) (int64, error) {
	return q.cache.RedisClient().LLen(ctx, q.key).Result()
}
