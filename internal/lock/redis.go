package lock

import (
	"context"
	"time"

	"distromart-be/internal/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// releaseScript deletes the key only when it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis is a lock shared by every server instance pointed at the same Redis.
type Redis struct {
	client redis.UniversalClient
	ttl    time.Duration
	wait   time.Duration
	retry  time.Duration
	prefix string
}

func NewRedis(client redis.UniversalClient, ttl, wait time.Duration) *Redis {
	return &Redis{
		client: client,
		ttl:    ttl,
		wait:   wait,
		retry:  20 * time.Millisecond,
		prefix: "lock:",
	}
}

func (r *Redis) Acquire(ctx context.Context, key string) (func(), error) {
	token := uuid.NewString()
	fullKey := r.prefix + key
	deadline := time.Now().Add(r.wait)

	for {
		ok, err := r.client.SetNX(ctx, fullKey, token, r.ttl).Result()
		if err != nil {
			return nil, Conflict(key, err)
		}
		if ok {
			return func() {
				// the caller's ctx may already be cancelled
				relCtx, cancel := context.WithTimeout(context.Background(), time.Second)
				defer cancel()
				if err := releaseScript.Run(relCtx, r.client, []string{fullKey}, token).Err(); err != nil {
					logger.FromCtx(ctx).Warn("failed to release lock",
						zap.String("key", fullKey),
						zap.Error(err),
					)
				}
			}, nil
		}

		if time.Now().After(deadline) {
			return nil, Conflict(key, ErrNotAcquired)
		}

		select {
		case <-ctx.Done():
			return nil, Conflict(key, ctx.Err())
		case <-time.After(r.retry):
		}
	}
}
