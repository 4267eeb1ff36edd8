// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package store

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps leases and the journal in process memory. Not durable.
type MemoryStore struct {
	mu      sync.Mutex
	leases  map[string]leaseState
	pending map[string]PendingRestore
	now     func() time.Time
}

type leaseState struct {
	owner string
	exp   time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		leases:  make(map[string]leaseState),
		pending: make(map[string]PendingRestore),
		now:     time.Now,
	}
}

func (m *MemoryStore) TryAcquireLease(_ context.Context, key, owner string, ttl time.Duration) (Lease, bool, error) {
	if err := validateLease(key, owner, ttl); err != nil {
		return nil, false, err
	}
	now := m.now()
	deadline := now.Add(ttl)

	m.mu.Lock()
	defer m.mu.Unlock()
	if ls, ok := m.leases[key]; ok && now.Before(ls.exp) && ls.owner != owner {
		return &lease{key: key, owner: ls.owner, exp: ls.exp}, false, nil
	}
	m.leases[key] = leaseState{owner: owner, exp: deadline}
	return &lease{key: key, owner: owner, exp: deadline}, true, nil
}

func (m *MemoryStore) ReleaseLease(_ context.Context, key, owner string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if st, ok := m.leases[key]; ok && st.owner == owner {
		delete(m.leases, key)
	}
	return nil
}

func (m *MemoryStore) PutPending(_ context.Context, p PendingRestore) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.Payload = append([]byte(nil), p.Payload...)
	m.pending[p.RunID] = p
	return nil
}

func (m *MemoryStore) DeletePending(_ context.Context, runID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pending, runID)
	return nil
}

func (m *MemoryStore) ListPending(_ context.Context) ([]PendingRestore, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]PendingRestore, 0, len(m.pending))
	for _, p := range m.pending {
		out = append(out, p)
	}
	sortPending(out)
	return out, nil
}

func (m *MemoryStore) Ping(context.Context) error { return nil }

func (m *MemoryStore) Close() error { return nil }

func sortPending(ps []PendingRestore) {
	sort.Slice(ps, func(i, j int) bool {
		if ps[i].CreatedAt.Equal(ps[j].CreatedAt) {
			return ps[i].RunID < ps[j].RunID
		}
		return ps[i].CreatedAt.Before(ps[j].CreatedAt)
	})
}

var _ Store = (*MemoryStore)(nil)
