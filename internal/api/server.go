// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package api exposes announcement actions, run control, bridge events and
// clip files over HTTP.
package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ManuGH/sonox/internal/action"
	"github.com/ManuGH/sonox/internal/announce"
	mw "github.com/ManuGH/sonox/internal/api/middleware"
	"github.com/ManuGH/sonox/internal/bus"
	"github.com/ManuGH/sonox/internal/health"
)

// Invoker runs named actions.
type Invoker interface {
	Invoke(ctx context.Context, name, room string, values []string) (announce.Result, error)
}

// RunControl lists and aborts in-flight runs.
type RunControl interface {
	Active() []announce.RunInfo
	Abort(runID string) bool
}

// EventSource delivers zone events for the websocket stream.
type EventSource interface {
	Subscribe(ctx context.Context, topic string) (bus.Subscriber, error)
}

// Deps are the collaborators of the HTTP surface. Webhook, Clips and Events
// are optional; their routes are only mounted when set.
type Deps struct {
	Actions   Invoker
	Runs      RunControl
	Events    EventSource
	Webhook   http.Handler
	Clips     http.Handler
	Health    *health.Manager
	RateLimit int
	// TracingService names server spans; empty disables tracing.
	TracingService string
}

// Server builds the HTTP handler tree.
type Server struct {
	deps Deps
}

// New returns a server for d.
func New(d Deps) *Server {
	return &Server{deps: d}
}

// Handler returns the routed handler with the middleware stack applied.
func (s *Server) Handler() http.Handler {
	r := mw.NewRouter(mw.StackConfig{
		EnableMetrics:  true,
		EnableLogging:  true,
		TracingService: s.deps.TracingService,
	})

	if s.deps.Health != nil {
		r.Get("/healthz", s.deps.Health.ServeHealth)
		r.Get("/readyz", s.deps.Health.ServeReady)
	}
	r.Handle("/metrics", promhttp.Handler())

	if s.deps.Clips != nil {
		r.Handle("/clips/*", http.StripPrefix("/clips/", s.deps.Clips))
	}
	if s.deps.Webhook != nil {
		r.Post("/events", s.deps.Webhook.ServeHTTP)
	}
	if s.deps.Events != nil {
		r.Get("/events/ws", s.handleEventStream)
	}

	r.Get("/announcements", s.handleActiveRuns)
	r.Delete("/announcements/{runID}", s.handleAbort)

	r.Group(func(r chi.Router) {
		r.Use(mw.ActionRateLimit(s.deps.RateLimit))
		r.Get("/presetplay/{preset}/{source}", s.handlePresetPlay)
		r.Get("/presetplay/{preset}/{source}/{type}", s.handlePresetPlay)
		r.Get("/{room}/{action}/{clip}", s.handleAction)
		r.Get("/{room}/{action}/{clip}/{volume}", s.handleAction)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeNotFound(w, "no route for "+r.URL.Path)
	})
	return r
}

var _ Invoker = (*action.Registry)(nil)
var _ RunControl = (*announce.Announcer)(nil)
