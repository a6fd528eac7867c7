package database

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// ErrLockNotAcquired is returned when every retry found the lock held.
var ErrLockNotAcquired = errors.New("failed to acquire lock after retries")

type RedisConfig struct {
	URL          string
	PoolSize     int
	DialTimeout  time.Duration
	MinIdleConns int
	ReadTimeout  time.Duration
	MaxRetries   int
}

// NewRedisClient creates a Redis client with the provided configuration
func NewRedisClient(ctx context.Context, config RedisConfig) (*redis.Client, error) {
	if config.URL == "" {
		return nil, errors.New("REDIS_URL environment variable is not set")
	}
	opt, err := redis.ParseURL(config.URL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse Redis URL")
	}

	opt.PoolSize = config.PoolSize
	opt.MinIdleConns = config.MinIdleConns
	opt.DialTimeout = config.DialTimeout
	opt.ReadTimeout = config.ReadTimeout
	opt.MaxRetries = config.MaxRetries

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, errors.Wrap(err, "failed to ping Redis server")
	}

	log.WithFields(log.Fields{
		"pool_size":      config.PoolSize,
		"min_idle_conns": config.MinIdleConns,
		"dial_timeout":   config.DialTimeout.String(),
		"read_timeout":   config.ReadTimeout.String(),
		"max_retries":    config.MaxRetries,
	}).Info("Redis client initialized")
	return client, nil
}

// LockConfig controls how hard Acquire tries before giving up.
type LockConfig struct {
	Retries    int
	RetryDelay time.Duration
	TTL        time.Duration
}

// Locker hands out short-lived distributed locks backed by SETNX.
type Locker struct {
	client *redis.Client
	config LockConfig
}

func NewLocker(client *redis.Client, config LockConfig) *Locker {
	if config.Retries <= 0 {
		config.Retries = 1
	}
	if config.TTL <= 0 {
		config.TTL = 10 * time.Second
	}
	return &Locker{client: client, config: config}
}

// Lock is a held lock. Release is safe to call once.
type Lock struct {
	locker *Locker
	key    string
	value  string
}

// Acquire takes key, retrying with a fixed delay. The returned lock must be
// released by the caller. A nil Locker hands out no-op locks.
func (l *Locker) Acquire(ctx context.Context, key string) (*Lock, error) {
	if l == nil {
		return &Lock{}, nil
	}
	value := uuid.New().String()

	var locked bool
	var err error
	for i := 0; i < l.config.Retries; i++ {
		locked, err = l.NewLock(ctx, key, value, l.config.TTL)
		if err == nil && locked {
			return &Lock{locker: l, key: key, value: value}, nil
		}
		if i < l.config.Retries-1 {
			select {
			case <-ctx.Done():
				return nil, errors.Wrapf(ctx.Err(), "waiting for lock %s", key)
			case <-time.After(l.config.RetryDelay):
			}
		}
	}
	if err != nil {
		return nil, errors.Wrapf(err, "lock %s", key)
	}
	return nil, errors.Wrapf(ErrLockNotAcquired, "lock %s", key)
}

// Release drops the lock and logs when it was already lost.
func (lk *Lock) Release(ctx context.Context) {
	if lk.locker == nil {
		return
	}
	if err := lk.locker.ReleaseLock(ctx, lk.key, lk.value); err != nil {
		log.WithError(err).WithField("key", lk.key).Warn("Failed to release lock")
	}
}

// NewLock acquires a distributed lock using Redis
func (l *Locker) NewLock(ctx context.Context, key string, value string, ttl time.Duration) (bool, error) {
	if l.client == nil {
		return false, errors.New("Redis client is not initialized")
	}
	return l.client.SetNX(ctx, key, value, ttl).Result()
}

const releaseLockScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end
`

var releaseScript = redis.NewScript(releaseLockScript)

// ReleaseLock releases a distributed lock using Redis with Lua scripting
func (l *Locker) ReleaseLock(ctx context.Context, key string, value string) error {
	if l.client == nil {
		return errors.New("Redis client is not initialized")
	}
	result, err := releaseScript.Run(ctx, l.client, []string{key}, value).Result()
	if err != nil {
		return errors.Wrap(err, "failed to release lock")
	}
	if n, ok := result.(int64); !ok || n == 0 {
		return errors.New("lock release failed: not the lock owner")
	}
	return nil
}

// PatientLockKey is the per-patient write lock.
func PatientLockKey(patientID uint) string {
	return fmt.Sprintf("patient_lock:%d", patientID)
}

// MonitorRedisPool logs the connection pool statistics for monitoring
func MonitorRedisPool(client *redis.Client) {
	stats := client.PoolStats()
	log.WithFields(log.Fields{
		"total": stats.TotalConns,
		"idle":  stats.IdleConns,
		"stale": stats.StaleConns,
	}).Debug("Redis pool stats")
}
