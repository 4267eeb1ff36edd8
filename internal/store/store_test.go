// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package store

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type backend struct {
	name    string
	open    func(t *testing.T) Store
	advance func(d time.Duration)
}

func backends(t *testing.T) []backend {
	mem := NewMemoryStore()
	var memOffset time.Duration
	mem.now = func() time.Time { return time.Now().Add(memOffset) }

	mr := miniredis.RunT(t)

	return []backend{
		{
			name:    "memory",
			open:    func(*testing.T) Store { return mem },
			advance: func(d time.Duration) { memOffset += d },
		},
		{
			name: "sqlite",
			open: func(t *testing.T) Store {
				s, err := NewSqliteStore(filepath.Join(t.TempDir(), "runs.db"))
				require.NoError(t, err)
				t.Cleanup(func() { _ = s.Close() })
				return s
			},
		},
		{
			name: "redis",
			open: func(t *testing.T) Store {
				client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
				s := NewRedisStoreFromClient(client, "test")
				t.Cleanup(func() { _ = s.Close() })
				return s
			},
			advance: mr.FastForward,
		},
	}
}

func TestStore_LeaseContention(t *testing.T) {
	for _, b := range backends(t) {
		t.Run(b.name, func(t *testing.T) {
			s := b.open(t)
			ctx := context.Background()

			l, ok, err := s.TryAcquireLease(ctx, "node:A", "run-1", time.Minute)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, "run-1", l.Owner())

			l, ok, err = s.TryAcquireLease(ctx, "node:A", "run-2", time.Minute)
			require.NoError(t, err)
			assert.False(t, ok)
			assert.Equal(t, "run-1", l.Owner(), "conflict reports the holder")

			_, ok, err = s.TryAcquireLease(ctx, "node:A", "run-1", time.Minute)
			require.NoError(t, err)
			assert.True(t, ok, "owner re-entry renews")

			require.NoError(t, s.ReleaseLease(ctx, "node:A", "run-2"))
			_, ok, err = s.TryAcquireLease(ctx, "node:A", "run-2", time.Minute)
			require.NoError(t, err)
			assert.False(t, ok, "release by a non-owner is ignored")

			require.NoError(t, s.ReleaseLease(ctx, "node:A", "run-1"))
			_, ok, err = s.TryAcquireLease(ctx, "node:A", "run-2", time.Minute)
			require.NoError(t, err)
			assert.True(t, ok)
		})
	}
}

func TestStore_LeaseExpiry(t *testing.T) {
	for _, b := range backends(t) {
		if b.advance == nil {
			continue
		}
		t.Run(b.name, func(t *testing.T) {
			s := b.open(t)
			ctx := context.Background()

			_, ok, err := s.TryAcquireLease(ctx, "node:B", "run-1", 50*time.Millisecond)
			require.NoError(t, err)
			require.True(t, ok)

			b.advance(time.Second)

			_, ok, err = s.TryAcquireLease(ctx, "node:B", "run-2", time.Minute)
			require.NoError(t, err)
			assert.True(t, ok, "expired lease is taken over")
		})
	}
}

func TestStore_ConcurrentAcquireSingleWinner(t *testing.T) {
	for _, b := range backends(t) {
		t.Run(b.name, func(t *testing.T) {
			s := b.open(t)
			ctx := context.Background()

			var wg sync.WaitGroup
			var mu sync.Mutex
			winners := 0
			for i := 0; i < 8; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					_, ok, err := s.TryAcquireLease(ctx, "node:C", "run-"+string(rune('a'+i)), time.Minute)
					if err != nil {
						return
					}
					if ok {
						mu.Lock()
						winners++
						mu.Unlock()
					}
				}(i)
			}
			wg.Wait()
			assert.Equal(t, 1, winners)
		})
	}
}

func TestStore_PendingJournal(t *testing.T) {
	for _, b := range backends(t) {
		t.Run(b.name, func(t *testing.T) {
			s := b.open(t)
			ctx := context.Background()
			base := time.UnixMilli(time.Now().UnixMilli())

			require.NoError(t, s.PutPending(ctx, PendingRestore{RunID: "r2", Policy: "all", CreatedAt: base.Add(time.Second), Payload: []byte(`[2]`)}))
			require.NoError(t, s.PutPending(ctx, PendingRestore{RunID: "r1", Policy: "available", CreatedAt: base, Payload: []byte(`[1]`)}))

			ps, err := s.ListPending(ctx)
			require.NoError(t, err)
			require.Len(t, ps, 2)
			assert.Equal(t, "r1", ps[0].RunID)
			assert.Equal(t, "available", ps[0].Policy)
			assert.JSONEq(t, `[1]`, string(ps[0].Payload))
			assert.True(t, ps[0].CreatedAt.Equal(base))

			require.NoError(t, s.DeletePending(ctx, "r1"))
			ps, err = s.ListPending(ctx)
			require.NoError(t, err)
			require.Len(t, ps, 1)
			assert.Equal(t, "r2", ps[0].RunID)

			require.NoError(t, s.Ping(ctx))
		})
	}
}

func TestStore_InvalidLeaseRequest(t *testing.T) {
	s := NewMemoryStore()
	_, _, err := s.TryAcquireLease(context.Background(), "", "owner", time.Second)
	require.ErrorIs(t, err, ErrInvalidLease)
	_, _, err = s.TryAcquireLease(context.Background(), "k", "owner", 0)
	require.ErrorIs(t, err, ErrInvalidLease)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, Config{Backend: "memory"})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(ctx, Config{Backend: "sqlite", DataDir: filepath.Join(t.TempDir(), "data")})
	require.NoError(t, err)
	require.NoError(t, s.Ping(ctx))
	require.NoError(t, s.Close())

	mr := miniredis.RunT(t)
	s, err = Open(ctx, Config{Backend: "redis", Redis: RedisConfig{Addr: mr.Addr()}})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = Open(ctx, Config{Backend: "etcd"})
	require.ErrorIs(t, err, ErrUnknownBackend)
}
