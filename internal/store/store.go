// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package store persists announcement run state: single-writer leases that
// keep overlapping runs off the same nodes, and the pending-restore journal
// that lets an interrupted run be restored after a restart.
package store

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound       = errors.New("store: not found")
	ErrInvalidLease   = errors.New("store: invalid lease request")
	ErrUnknownBackend = errors.New("store: unknown backend")
)

// Lease is a single-writer lock on a key.
type Lease interface {
	Key() string
	Owner() string
	ExpiresAt() time.Time
}

// PendingRestore is a journaled restore plan for a run that mutated the
// topology and has not finished restoring yet.
type PendingRestore struct {
	RunID     string    `json:"runId"`
	Policy    string    `json:"policy"`
	CreatedAt time.Time `json:"createdAt"`
	// Payload is the encoded snapshot list, opaque to the store.
	Payload []byte `json:"payload"`
}

// Store is implemented by every backend.
type Store interface {
	// TryAcquireLease grants key to owner for ttl. Re-acquiring a lease the
	// owner already holds renews it. ok is false when another owner holds
	// an unexpired lease.
	TryAcquireLease(ctx context.Context, key, owner string, ttl time.Duration) (l Lease, ok bool, err error)
	ReleaseLease(ctx context.Context, key, owner string) error

	PutPending(ctx context.Context, p PendingRestore) error
	DeletePending(ctx context.Context, runID string) error
	ListPending(ctx context.Context) ([]PendingRestore, error)

	Ping(ctx context.Context) error
	Close() error
}

func validateLease(key, owner string, ttl time.Duration) error {
	if key == "" || owner == "" || ttl <= 0 {
		return ErrInvalidLease
	}
	return nil
}

type lease struct {
	key   string
	owner string
	exp   time.Time
}

func (l *lease) Key() string          { return l.key }
func (l *lease) Owner() string        { return l.owner }
func (l *lease) ExpiresAt() time.Time { return l.exp }
