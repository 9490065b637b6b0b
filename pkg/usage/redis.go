package usage

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

// redisPingTimeout bounds the connection check in NewRedisStore.
const redisPingTimeout = 5 * time.Second

// RedisStore keeps usage counters in redis, one hash per user. HIncrBy makes
// adds atomic across replicas of the service.
type RedisStore struct {
	client *redis.Client
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore connects to the redis at url (redis://host:port/db) and
// verifies the connection with a bounded ping.
func NewRedisStore(url string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return &RedisStore{client: client}, nil
}

// NewRedisStoreWithClient wraps an existing client. The caller keeps
// ownership of the client's lifecycle.
func NewRedisStoreWithClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func usageKey(userID string) string {
	return "usage:" + userID
}

// Add increments a hash field and returns the new total.
func (s *RedisStore) Add(ctx context.Context, userID, resource string, delta int64) (int64, error) {
	total, err := s.client.HIncrBy(ctx, usageKey(userID), resource, delta).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to add usage: %w", err)
	}
	return total, nil
}

// Snapshot returns every counter for a user.
func (s *RedisStore) Snapshot(ctx context.Context, userID string) (map[string]int64, error) {
	values, err := s.client.HGetAll(ctx, usageKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to query usage: %w", err)
	}
	counters := make(map[string]int64, len(values))
	for resource, raw := range values {
		amount, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("failed to parse usage counter %s: %w", resource, err)
		}
		counters[resource] = amount
	}
	return counters, nil
}

// Client exposes the underlying redis client for health checks.
func (s *RedisStore) Client() *redis.Client {
	return s.client
}

// Close closes the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
