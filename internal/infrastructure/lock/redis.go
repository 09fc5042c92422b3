package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// unlockScript deletes the key only if it still holds our token
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// RedisLocker takes SETNX locks with a TTL, for deployments where workers
// do not share one PostgreSQL database.
type RedisLocker struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
	logger    *zap.Logger
}

// NewRedisLocker creates a RedisLocker. The TTL bounds how long a crashed
// worker keeps a record locked.
func NewRedisLocker(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisLocker {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &RedisLocker{
		client:    client,
		keyPrefix: "prestashop:lock:",
		ttl:       ttl,
		logger:    logger,
	}
}

// TryLock implements Locker
func (l *RedisLocker) TryLock(ctx context.Context, _ *gorm.DB, name string) (Release, error) {
	key := l.keyName(name)
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("lock: redis setnx %q: %w", name, err)
	}
	if !ok {
		return nil, ErrNotAcquired
	}

	return func() {
		// the import context may be canceled already
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := unlockScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
			l.logger.Warn("Failed to release redis lock", zap.String("key", key), zap.Error(err))
		}
	}, nil
}

func (l *RedisLocker) keyName(name string) string {
	return fmt.Sprintf("%s%d", l.keyPrefix, Key(name))
}
