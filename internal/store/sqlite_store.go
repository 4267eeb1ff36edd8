// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ManuGH/sonox/internal/persistence/sqlite"
)

const schemaVersion = 1

// SqliteStore persists leases and the journal in a local SQLite file.
type SqliteStore struct {
	DB *sql.DB
}

// NewSqliteStore opens (and migrates) the run store at dbPath.
func NewSqliteStore(dbPath string) (*SqliteStore, error) {
	db, err := sqlite.Open(dbPath, sqlite.DefaultConfig())
	if err != nil {
		return nil, err
	}
	s := &SqliteStore{DB: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run store: migration failed: %w", err)
	}
	return s, nil
}

func (s *SqliteStore) migrate() error {
	current, err := sqlite.UserVersion(s.DB)
	if err != nil {
		return err
	}
	if current >= schemaVersion {
		return nil
	}

	tx, err := s.DB.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	schema := `
	CREATE TABLE IF NOT EXISTS leases (
		key TEXT PRIMARY KEY,
		owner TEXT NOT NULL,
		expires_at_ms INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS pending_restores (
		run_id TEXT PRIMARY KEY,
		policy TEXT NOT NULL,
		created_at_ms INTEGER NOT NULL,
		payload BLOB NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_pending_created ON pending_restores(created_at_ms);
	`
	if _, err := tx.Exec(schema); err != nil {
		return err
	}
	if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SqliteStore) TryAcquireLease(ctx context.Context, key, owner string, ttl time.Duration) (Lease, bool, error) {
	if err := validateLease(key, owner, ttl); err != nil {
		return nil, false, err
	}
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, err
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now()
	expiresAt := now.Add(ttl).UnixMilli()

	var currentOwner string
	var currentExpires int64
	err = tx.QueryRowContext(ctx, "SELECT owner, expires_at_ms FROM leases WHERE key = ?", key).Scan(&currentOwner, &currentExpires)
	switch {
	case err == nil:
		if currentExpires > now.UnixMilli() && currentOwner != owner {
			return &lease{key: key, owner: currentOwner, exp: time.UnixMilli(currentExpires)}, false, nil
		}
	case !errors.Is(err, sql.ErrNoRows):
		return nil, false, err
	}

	if _, err := tx.ExecContext(ctx, "INSERT OR REPLACE INTO leases (key, owner, expires_at_ms) VALUES (?, ?, ?)", key, owner, expiresAt); err != nil {
		return nil, false, err
	}
	if err := tx.Commit(); err != nil {
		return nil, false, err
	}
	return &lease{key: key, owner: owner, exp: time.UnixMilli(expiresAt)}, true, nil
}

func (s *SqliteStore) ReleaseLease(ctx context.Context, key, owner string) error {
	_, err := s.DB.ExecContext(ctx, "DELETE FROM leases WHERE key = ? AND owner = ?", key, owner)
	return err
}

func (s *SqliteStore) PutPending(ctx context.Context, p PendingRestore) error {
	_, err := s.DB.ExecContext(ctx,
		"INSERT OR REPLACE INTO pending_restores (run_id, policy, created_at_ms, payload) VALUES (?, ?, ?, ?)",
		p.RunID, p.Policy, p.CreatedAt.UnixMilli(), p.Payload)
	return err
}

func (s *SqliteStore) DeletePending(ctx context.Context, runID string) error {
	_, err := s.DB.ExecContext(ctx, "DELETE FROM pending_restores WHERE run_id = ?", runID)
	return err
}

func (s *SqliteStore) ListPending(ctx context.Context) ([]PendingRestore, error) {
	rows, err := s.DB.QueryContext(ctx, "SELECT run_id, policy, created_at_ms, payload FROM pending_restores ORDER BY created_at_ms, run_id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PendingRestore
	for rows.Next() {
		var p PendingRestore
		var created int64
		if err := rows.Scan(&p.RunID, &p.Policy, &created, &p.Payload); err != nil {
			return nil, err
		}
		p.CreatedAt = time.UnixMilli(created)
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *SqliteStore) Ping(ctx context.Context) error {
	if err := s.DB.PingContext(ctx); err != nil {
		return err
	}
	return sqlite.Verify(ctx, s.DB, "quick")
}

func (s *SqliteStore) Close() error {
	return s.DB.Close()
}

var _ Store = (*SqliteStore)(nil)
