package locks

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultLockTTL bounds how long a crashed holder can keep a lock.
const DefaultLockTTL = 30 * time.Second

const lockKeyPrefix = "filesmanager:lock:"

// releaseScript deletes the lock only if this instance still owns it
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`)

// RedisManager implements distributed locking with SET NX and an owner token
type RedisManager struct {
	client  *redis.Client
	logger  *zap.Logger
	ttl     time.Duration
	ownerID string
}

// NewRedisManager creates a new Redis-based lock manager
func NewRedisManager(redisAddr, redisPassword string, db int, ttl time.Duration, logger *zap.Logger) (*RedisManager, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         redisAddr,
		Password:     redisPassword,
		DB:           db,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisManagerFromClient(client, ttl, logger), nil
}

// NewRedisManagerFromClient builds a manager on an existing client.
func NewRedisManagerFromClient(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisManager {
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	return &RedisManager{
		client:  client,
		logger:  logger,
		ttl:     ttl,
		ownerID: uuid.NewString(),
	}
}

// Acquire attempts to acquire a distributed lock for the given key
func (m *RedisManager) Acquire(ctx context.Context, key string) (bool, error) {
	acquired, err := m.client.SetNX(ctx, lockKeyPrefix+key, m.ownerID, m.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock for key %s: %w", key, err)
	}

	if acquired {
		m.logger.Debug("Lock acquired", zap.String("key", key), zap.Duration("ttl", m.ttl))
	} else {
		m.logger.Debug("Lock already held", zap.String("key", key))
	}
	return acquired, nil
}

// Release releases a previously acquired lock for the given key
func (m *RedisManager) Release(ctx context.Context, key string) error {
	deleted, err := releaseScript.Run(ctx, m.client, []string{lockKeyPrefix + key}, m.ownerID).Int64()
	if err != nil {
		return fmt.Errorf("failed to release lock for key %s: %w", key, err)
	}

	if deleted == 0 {
		m.logger.Debug("Lock not owned or already released", zap.String("key", key))
	}
	return nil
}

// Close closes the Redis client connection
func (m *RedisManager) Close() error {
	return m.client.Close()
}
