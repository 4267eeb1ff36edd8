// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package bridge drives nodes through the HTTP discovery bridge and turns
// its webhook into bus events.
package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/ManuGH/sonox/internal/bus"
	"github.com/ManuGH/sonox/internal/log"
	"github.com/ManuGH/sonox/internal/metrics"
	"github.com/ManuGH/sonox/internal/platform/httpx"
	"github.com/ManuGH/sonox/internal/resilience"
	"github.com/ManuGH/sonox/internal/telemetry"
	"github.com/ManuGH/sonox/internal/zone"
)

const maxErrorBody = 512

// Config tunes the bridge client.
type Config struct {
	BaseURL          string
	Timeout          time.Duration
	Retries          int
	Backoff          time.Duration
	MaxBackoff       time.Duration
	RequestsPerSec   float64
	Burst            int
	BreakerThreshold int
	BreakerReset     time.Duration
}

// Client is a zone.System backed by the discovery bridge.
type Client struct {
	base       string
	http       *http.Client
	bus        bus.Bus
	limiter    *rate.Limiter
	breaker    *resilience.CircuitBreaker
	retries    int
	backoff    time.Duration
	maxBackoff time.Duration
	zones      singleflight.Group
	zonesLimit time.Duration
	tracer     trace.Tracer
}

var _ zone.System = (*Client)(nil)

// New returns a client for cfg.BaseURL. Events are delivered through b,
// which the webhook handler publishes to.
func New(cfg Config, b bus.Bus) *Client {
	limit := rate.Inf
	if cfg.RequestsPerSec > 0 {
		limit = rate.Limit(cfg.RequestsPerSec)
	}
	burst := max(cfg.Burst, 1)
	c := &Client{
		base: strings.TrimRight(cfg.BaseURL, "/"),
		http: httpx.NewClient(cfg.Timeout, httpx.WithSpanNamer(func(_ string, r *http.Request) string {
			return "bridge " + r.Method
		})),
		bus:     b,
		limiter: rate.NewLimiter(limit, burst),
		breaker: resilience.NewCircuitBreaker("bridge", cfg.BreakerThreshold, cfg.BreakerReset,
			resilience.WithFailureFilter(func(err error) bool { return errors.Is(err, zone.ErrUnreachable) })),
		retries:    max(cfg.Retries, 0),
		backoff:    cfg.Backoff,
		maxBackoff: cfg.MaxBackoff,
		tracer:     telemetry.Tracer("github.com/ManuGH/sonox/internal/bridge"),
	}
	// a shared zones query may run every attempt plus the waits between them
	per := cfg.Timeout
	if per <= 0 {
		per = c.http.Timeout
	}
	if per <= 0 {
		per = 30 * time.Second
	}
	c.zonesLimit = per*time.Duration(c.retries+1) + c.maxBackoff*time.Duration(c.retries)
	return c
}

// Ping checks that the bridge answers the zones query.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.Groups(ctx)
	return err
}

type zoneJSON struct {
	UUID        string          `json:"uuid"`
	Coordinator zone.NodeInfo   `json:"coordinator"`
	Members     []zone.NodeInfo `json:"members"`
}

// Groups fetches the current topology. Concurrent callers share one
// request, which is detached from any single caller's cancellation and
// bounded by the bridge timeout; each caller still returns as soon as its
// own ctx ends.
func (c *Client) Groups(ctx context.Context) ([]zone.Group, error) {
	ch := c.zones.DoChan("zones", func() (any, error) {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.zonesLimit)
		defer cancel()
		var zones []zoneJSON
		if err := c.do(sctx, "zones", "", http.MethodGet, "/zones", nil, &zones, true); err != nil {
			return nil, err
		}
		return toGroups(zones), nil
	})
	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return nil, res.Err
	}
	groups := res.Val.([]zone.Group)
	out := make([]zone.Group, len(groups))
	copy(out, groups)
	return out, nil
}

// toGroups puts the coordinator first in every member list.
func toGroups(zones []zoneJSON) []zone.Group {
	out := make([]zone.Group, 0, len(zones))
	for _, z := range zones {
		g := zone.Group{ID: z.UUID, Coordinator: z.Coordinator}
		if g.ID == "" {
			g.ID = z.Coordinator.ID
		}
		g.Members = append(g.Members, z.Coordinator)
		for _, m := range z.Members {
			if m.ID != z.Coordinator.ID {
				g.Members = append(g.Members, m)
			}
		}
		out = append(out, g)
	}
	return out
}

// Nodes lists every node in topology order.
func (c *Client) Nodes(ctx context.Context) ([]zone.NodeInfo, error) {
	groups, err := c.Groups(ctx)
	if err != nil {
		return nil, err
	}
	return zone.NodesOf(groups), nil
}

// Node returns a command handle for room.
func (c *Client) Node(ctx context.Context, room string) (zone.Node, error) {
	groups, err := c.Groups(ctx)
	if err != nil {
		return nil, err
	}
	info, ok := zone.FindRoom(groups, room)
	if !ok {
		return nil, &Error{Sentinel: zone.ErrNotFound, Operation: "lookup", Room: room}
	}
	return &node{c: c, info: info}, nil
}

// Subscribe delivers webhook events for topic.
func (c *Client) Subscribe(ctx context.Context, topic string) (bus.Subscriber, error) {
	return c.bus.Subscribe(ctx, topic)
}

func (c *Client) do(ctx context.Context, op, room, method, path string, body, out any, idempotent bool) error {
	ctx, span := c.tracer.Start(ctx, "bridge."+op, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	attempts := 1
	if idempotent {
		attempts += c.retries
	}
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		span.SetAttributes(telemetry.BridgeAttributes(op, room, attempt)...)
		if attempt > 1 {
			metrics.IncBridgeRetry(op)
			if werr := sleepCtx(ctx, c.backoffFor(attempt-1)); werr != nil {
				err = werr
				break
			}
		}
		err = c.breaker.Execute(func() error {
			return c.once(ctx, op, room, method, path, body, out)
		})
		if err == nil || !retryable(err) {
			break
		}
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if errors.Is(err, resilience.ErrCircuitOpen) {
			err = &Error{Sentinel: zone.ErrUnreachable, Operation: op, Room: room, Err: err}
		}
	}
	return err
}

func retryable(err error) bool {
	return errors.Is(err, zone.ErrUnreachable) &&
		!errors.Is(err, resilience.ErrCircuitOpen) &&
		!errors.Is(err, context.Canceled) &&
		!errors.Is(err, context.DeadlineExceeded)
}

// backoffFor returns the jittered delay before retry n (1-based): half the
// exponential step plus a random share of the other half.
func (c *Client) backoffFor(n int) time.Duration {
	if c.backoff <= 0 {
		return 0
	}
	d := c.backoff << (n - 1)
	if c.maxBackoff > 0 && (d > c.maxBackoff || d <= 0) {
		d = c.maxBackoff
	}
	half := d / 2
	if half <= 0 {
		return d
	}
	return half + rand.N(half)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (c *Client) once(ctx context.Context, op, room, method, path string, body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s body: %w", op, err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return fmt.Errorf("build %s request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if rid := log.RequestIDFromContext(ctx); rid != "" {
		req.Header.Set("X-Request-ID", rid)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.ObserveBridgeRequest(op, "error", time.Since(start).Seconds())
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return &Error{Sentinel: zone.ErrUnreachable, Operation: op, Room: room, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()
	metrics.ObserveBridgeRequest(op, strconv.Itoa(resp.StatusCode), time.Since(start).Seconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &Error{
			Sentinel:  sentinelForStatus(resp.StatusCode),
			Operation: op,
			Room:      room,
			Status:    resp.StatusCode,
			Body:      strings.TrimSpace(string(snippet)),
		}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{Sentinel: ErrBadResponse, Operation: op, Room: room, Status: resp.StatusCode, Err: err}
	}
	return nil
}

func playerPath(room, command string) string {
	return "/players/" + url.PathEscape(room) + "/" + command
}
