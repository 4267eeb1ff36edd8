// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// RedisStore shares leases and the journal between several daemons that
// drive the same household.
type RedisStore struct {
	client *redis.Client
	prefix string
}

var acquireScript = redis.NewScript(`
local cur = redis.call('GET', KEYS[1])
if cur == false or cur == ARGV[1] then
  redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[2])
  return {1, ARGV[1], tonumber(ARGV[2])}
end
return {0, cur, redis.call('PTTL', KEYS[1])}
`)

var releaseScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
  return redis.call('DEL', KEYS[1])
end
return 0
`)

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})
	s := NewRedisStoreFromClient(client, cfg.KeyPrefix)
	if err := s.Ping(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	return s, nil
}

// NewRedisStoreFromClient wraps an existing client.
func NewRedisStoreFromClient(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "sonox"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) leaseKey(key string) string { return s.prefix + ":lease:" + key }
func (s *RedisStore) pendingKey() string         { return s.prefix + ":pending" }

func (s *RedisStore) TryAcquireLease(ctx context.Context, key, owner string, ttl time.Duration) (Lease, bool, error) {
	if err := validateLease(key, owner, ttl); err != nil {
		return nil, false, err
	}
	res, err := acquireScript.Run(ctx, s.client, []string{s.leaseKey(key)}, owner, ttl.Milliseconds()).Slice()
	if err != nil {
		return nil, false, fmt.Errorf("acquire lease %q: %w", key, err)
	}
	if len(res) != 3 {
		return nil, false, fmt.Errorf("acquire lease %q: unexpected reply %v", key, res)
	}
	granted, _ := res[0].(int64)
	holder, _ := res[1].(string)
	remaining, _ := res[2].(int64)
	l := &lease{key: key, owner: holder, exp: time.Now().Add(time.Duration(remaining) * time.Millisecond)}
	return l, granted == 1, nil
}

func (s *RedisStore) ReleaseLease(ctx context.Context, key, owner string) error {
	if err := releaseScript.Run(ctx, s.client, []string{s.leaseKey(key)}, owner).Err(); err != nil && err != redis.Nil {
		return fmt.Errorf("release lease %q: %w", key, err)
	}
	return nil
}

func (s *RedisStore) PutPending(ctx context.Context, p PendingRestore) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return s.client.HSet(ctx, s.pendingKey(), p.RunID, data).Err()
}

func (s *RedisStore) DeletePending(ctx context.Context, runID string) error {
	return s.client.HDel(ctx, s.pendingKey(), runID).Err()
}

func (s *RedisStore) ListPending(ctx context.Context) ([]PendingRestore, error) {
	all, err := s.client.HGetAll(ctx, s.pendingKey()).Result()
	if err != nil {
		return nil, err
	}
	out := make([]PendingRestore, 0, len(all))
	for runID, raw := range all {
		var p PendingRestore
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			return nil, fmt.Errorf("decode pending restore %q: %w", runID, err)
		}
		out = append(out, p)
	}
	sortPending(out)
	return out, nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

var _ Store = (*RedisStore)(nil)
