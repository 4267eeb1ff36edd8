// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package store

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	storeOps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sonox_store_ops_total",
			Help: "Total run store operations",
		},
		[]string{"backend", "op", "result"},
	)
	storeLat = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sonox_store_op_seconds",
			Help:    "Run store operation latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend", "op"},
	)
)

// instrumentedStore wraps any Store to capture metrics.
type instrumentedStore struct {
	inner   Store
	backend string
}

// NewInstrumentedStore records per-operation counters and latency for inner.
func NewInstrumentedStore(inner Store, backend string) Store {
	return &instrumentedStore{inner: inner, backend: backend}
}

func (i *instrumentedStore) observe(op string, start time.Time, err error) {
	res := "success"
	if err != nil {
		res = "error"
	}
	storeOps.WithLabelValues(i.backend, op, res).Inc()
	storeLat.WithLabelValues(i.backend, op).Observe(time.Since(start).Seconds())
}

func (i *instrumentedStore) TryAcquireLease(ctx context.Context, key, owner string, ttl time.Duration) (l Lease, ok bool, err error) {
	start := time.Now()
	defer func() {
		op := "acquire_lease"
		if err == nil && !ok {
			op = "acquire_lease_conflict"
		}
		i.observe(op, start, err)
	}()
	return i.inner.TryAcquireLease(ctx, key, owner, ttl)
}

func (i *instrumentedStore) ReleaseLease(ctx context.Context, key, owner string) (err error) {
	start := time.Now()
	defer func() { i.observe("release_lease", start, err) }()
	return i.inner.ReleaseLease(ctx, key, owner)
}

func (i *instrumentedStore) PutPending(ctx context.Context, p PendingRestore) (err error) {
	start := time.Now()
	defer func() { i.observe("put_pending", start, err) }()
	return i.inner.PutPending(ctx, p)
}

func (i *instrumentedStore) DeletePending(ctx context.Context, runID string) (err error) {
	start := time.Now()
	defer func() { i.observe("delete_pending", start, err) }()
	return i.inner.DeletePending(ctx, runID)
}

func (i *instrumentedStore) ListPending(ctx context.Context) (ps []PendingRestore, err error) {
	start := time.Now()
	defer func() { i.observe("list_pending", start, err) }()
	return i.inner.ListPending(ctx)
}

func (i *instrumentedStore) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { i.observe("ping", start, err) }()
	return i.inner.Ping(ctx)
}

func (i *instrumentedStore) Close() error {
	return i.inner.Close()
}
