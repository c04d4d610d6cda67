package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/farehunter/config"
	"github.com/Domenick1991/farehunter/internal/domain"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrLockTimeout = errors.New("lock not acquired")

const lockRetryInterval = 25 * time.Millisecond

// releaseScript deletes the lock only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

type RedisCache struct {
	client  *redis.Client
	runTTL  time.Duration
	lockTTL time.Duration
}

func NewRedisCache(cfg config.RedisConfig, runTTL, lockTTL time.Duration) *RedisCache {
	return &RedisCache{
		client:  redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
		runTTL:  runTTL,
		lockTTL: lockTTL,
	}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

// GetRun returns nil, nil on a cache miss.
func (c *RedisCache) GetRun(ctx context.Context, id uuid.UUID) (*domain.Run, error) {
	data, err := c.client.Get(ctx, runKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var run domain.Run
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

// SetRun caches terminal runs only; a run still in progress keeps changing.
func (c *RedisCache) SetRun(ctx context.Context, run *domain.Run) error {
	if !run.Status.IsTerminal() {
		return nil
	}
	payload, err := json.Marshal(run)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, runKey(run.ID), payload, c.runTTL).Err()
}

// Lock takes a cross-process lock on key, polling until ctx is done. The lock
// expires on its own after lockTTL if the holder dies.
func (c *RedisCache) Lock(ctx context.Context, key string) (func(), error) {
	token := uuid.NewString()
	lockKey := ledgerLockKey(key)

	ticker := time.NewTicker(lockRetryInterval)
	defer ticker.Stop()
	for {
		ok, err := c.client.SetNX(ctx, lockKey, token, c.lockTTL).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if ok {
			return func() {
				_ = releaseScript.Run(context.WithoutCancel(ctx), c.client, []string{lockKey}, token).Err()
			}, nil
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s: %w", ErrLockTimeout, key, ctx.Err())
		case <-ticker.C:
		}
	}
}

func runKey(id uuid.UUID) string {
	return "cache:run:" + id.String()
}

func ledgerLockKey(key string) string {
	return "lock:best_price:" + key
}
