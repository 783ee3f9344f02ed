package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"TrendSentinel/internal/model"
)

// RedisSnapshotStore shares realtime snapshots between processes.
type RedisSnapshotStore struct {
	client redis.Cmdable
	prefix string
}

// NewRedisSnapshotStore wraps an existing client.
func NewRedisSnapshotStore(client redis.Cmdable) *RedisSnapshotStore {
	return &RedisSnapshotStore{client: client, prefix: "trendsentinel:snapshot:"}
}

// DialRedis connects and pings the server.
func DialRedis(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return client, nil
}

func (s *RedisSnapshotStore) key(segment string) string {
	return s.prefix + segment
}

// Get returns nil without error when nothing is stored.
func (s *RedisSnapshotStore) Get(ctx context.Context, segment string) (*model.Snapshot, error) {
	raw, err := s.client.Get(ctx, s.key(segment)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var snap model.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &snap, nil
}

func (s *RedisSnapshotStore) Set(ctx context.Context, snap *model.Snapshot, ttl time.Duration) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return s.client.Set(ctx, s.key(snap.Segment), raw, ttl).Err()
}
