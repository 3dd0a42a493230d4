package repository

import (
	"context"
	"fmt"
	reservationserrors "roomslots/internal/reservations/errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisLockPrefix = "roomslots:"

// releaseScript deletes the key only when it still holds the caller's token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type redisSlotLockRepository struct {
	client *redis.Client
}

func NewRedisSlotLockRepository(client *redis.Client) SlotLockRepository {
	return &redisSlotLockRepository{client: client}
}

func (r *redisSlotLockRepository) Acquire(ctx context.Context, key string, token string, ttl time.Duration) error {
	ok, err := r.client.SetNX(ctx, redisLockPrefix+key, token, ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to acquire slot lock: %w", err)
	}
	if !ok {
		return reservationserrors.ErrLockHeld
	}
	return nil
}

func (r *redisSlotLockRepository) Release(ctx context.Context, key string, token string) error {
	if err := releaseScript.Run(ctx, r.client, []string{redisLockPrefix + key}, token).Err(); err != nil && err != redis.Nil {
		return fmt.Errorf("failed to release slot lock: %w", err)
	}
	return nil
}
