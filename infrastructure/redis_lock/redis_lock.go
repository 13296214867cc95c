package redis_lock

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"saga-orchestrator/utils/helpers"
)

// releaseScript deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// Locker is a per key lock shared by every orchestrator process. A lock expires after
// ttl so a crashed holder cannot block a saga forever.
type Locker struct {
	client *redis.Client
	ttl    time.Duration
	poll   time.Duration
	logger *zap.Logger
}

func NewLocker(client *redis.Client, ttl time.Duration, logger *zap.Logger) *Locker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Locker{client: client, ttl: ttl, poll: 20 * time.Millisecond, logger: logger}
}

func NewClient(ctx context.Context, address, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: address, Password: password, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, errors.Wrap(err, "redis ping")
	}
	return client, nil
}

// Lock waits until key is free or ctx is done.
func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	token := helpers.GetUUId()
	key = "lock:" + key
	ticker := time.NewTicker(l.poll)
	defer ticker.Stop()
	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, errors.Wrapf(err, "redis lock %s", key)
		}
		if ok {
			return func() {
				if err := releaseScript.Run(context.Background(), l.client, []string{key}, token).Err(); err != nil {
					l.logger.Warn("redis_unlock_failed", zap.String("key", key), zap.Error(err))
				}
			}, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
