package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/redis/rueidis"
	"go.uber.org/zap"
)

const redisKeyPrefix = "ficehub:lock:"

// releaseScript deletes the key only if it still holds our token, so an expired lock
// taken over by another holder is never released by us.
var releaseScript = rueidis.NewLuaScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis is a Locker shared by every process talking to the same Redis. Locks expire after
// ttl so a crashed holder cannot wedge a key forever.
type Redis struct {
	client rueidis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewRedis(client rueidis.Client, ttl time.Duration, logger *zap.Logger) *Redis {
	return &Redis{
		client: client,
		ttl:    ttl,
		logger: logger.Named("redis_lock"),
	}
}

func (r *Redis) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := redisKeyPrefix + key
	token := uuid.NewString()

	b := backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(5*time.Millisecond),
		backoff.WithMaxInterval(200*time.Millisecond),
		backoff.WithMaxElapsedTime(0), // bounded by ctx
	)

	err := backoff.Retry(func() error {
		err := r.client.Do(ctx, r.client.B().Set().Key(redisKey).Value(token).
			Nx().PxMilliseconds(r.ttl.Milliseconds()).Build()).Error()
		if rueidis.IsRedisNil(err) {
			return ErrNotAcquired
		}
		if err != nil {
			return backoff.Permanent(err)
		}
		return nil
	}, backoff.WithContext(b, ctx))
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrNotAcquired, key, ctx.Err())
		}
		return nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}

	return func() {
		// release must outlive a cancelled request context
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		if err := releaseScript.Exec(releaseCtx, r.client, []string{redisKey}, []string{token}).Error(); err != nil {
			r.logger.Warn("Failed to release lock", zap.String("key", key), zap.Error(err))
		}
	}, nil
}
