// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendSqlite = "sqlite"
	BackendRedis  = "redis"
)

// Config selects and configures a backend.
type Config struct {
	Backend string
	// DataDir holds the SQLite file for the sqlite backend.
	DataDir string
	Redis   RedisConfig
}

// Open returns an instrumented store for cfg.Backend.
func Open(ctx context.Context, cfg Config) (Store, error) {
	backend := strings.ToLower(strings.TrimSpace(cfg.Backend))
	var (
		s   Store
		err error
	)
	switch backend {
	case "", BackendMemory:
		backend = BackendMemory
		s = NewMemoryStore()
	case BackendSqlite:
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("sqlite backend requires a data dir")
		}
		if err := os.MkdirAll(cfg.DataDir, 0o750); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		s, err = NewSqliteStore(filepath.Join(cfg.DataDir, "runs.db"))
	case BackendRedis:
		s, err = NewRedisStore(ctx, cfg.Redis)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
	if err != nil {
		return nil, err
	}
	return NewInstrumentedStore(s, backend), nil
}
