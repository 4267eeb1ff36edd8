// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package action maps named room actions (clipall, clipavailable,
// presetplay) onto announcement runs and preset playback.
package action

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/ManuGH/sonox/internal/announce"
	"github.com/ManuGH/sonox/internal/clip"
	"github.com/ManuGH/sonox/internal/log"
	"github.com/ManuGH/sonox/internal/metrics"
	"github.com/ManuGH/sonox/internal/preset"
	"github.com/ManuGH/sonox/internal/zone"
)

// ErrUnknownAction is returned for names not in the registry.
var ErrUnknownAction = errors.New("unknown action")

// Action runs a named action. room is the room the request addressed and
// values are the remaining path segments.
type Action func(ctx context.Context, room string, values []string) (announce.Result, error)

// ClipResolver turns a clip name into a playable clip.
type ClipResolver interface {
	Resolve(ctx context.Context, name string) (clip.Clip, error)
}

// Deps are the collaborators actions run against.
type Deps struct {
	System    zone.System
	Announcer *announce.Announcer
	Clips     ClipResolver
	// Presets is required for presetplay.
	Presets       *preset.Holder
	DefaultVolume int
	// Licensed enables presetplay.
	Licensed bool
}

// Registry holds the registered actions.
type Registry struct {
	deps          Deps
	defaultVolume atomic.Int64
	actions       map[string]Action
}

// DefaultVolume is used when a request carries no valid volume.
const DefaultVolume = 40

// NewRegistry registers the clip actions and, when licensed, presetplay.
func NewRegistry(d Deps) *Registry {
	r := &Registry{deps: d, actions: make(map[string]Action)}
	r.SetDefaultVolume(d.DefaultVolume)
	r.Register("clipall", r.clipAction(announce.PolicyAll))
	r.Register("clipavailable", r.clipAction(announce.PolicyAvailable))
	if d.Licensed && d.Presets != nil {
		r.Register("presetplay", r.presetPlay)
	} else {
		logger := log.WithComponent("action")
		logger.Info().Str(log.FieldEvent, "action.presetplay_disabled").Msg("presetplay requires a license key")
	}
	return r
}

// Register adds or replaces an action.
func (r *Registry) Register(name string, a Action) {
	r.actions[name] = a
}

// SetDefaultVolume changes the fallback volume; values outside 0-100 reset
// it to DefaultVolume.
func (r *Registry) SetDefaultVolume(v int) {
	if v <= 0 || v > 100 {
		v = DefaultVolume
	}
	r.defaultVolume.Store(int64(v))
}

// Names lists the registered actions, sorted.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.actions))
	for name := range r.actions {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.actions[name]
	return ok
}

// Invoke runs the named action and records its result.
func (r *Registry) Invoke(ctx context.Context, name, room string, values []string) (announce.Result, error) {
	a, ok := r.actions[name]
	if !ok {
		return announce.Result{}, fmt.Errorf("%w: %s", ErrUnknownAction, name)
	}
	logger := log.WithComponentFromContext(ctx, "action")
	start := time.Now()
	res, err := a(ctx, room, values)
	kind := ErrorKind(err)
	metrics.RecordAction(name, kind)

	evt := logger.Info()
	if err != nil {
		evt = logger.Warn().Err(err).Str("kind", kind)
	}
	evt.Str(log.FieldEvent, "action.done").
		Str("action", name).
		Str(log.FieldRoom, room).
		Str(log.FieldRunID, res.RunID).
		Dur("took", time.Since(start)).
		Msg(res.Message)
	return res, err
}

// volumeFrom returns values[i] when it is a plain non-negative integer,
// capped at 100, and the default otherwise.
func (r *Registry) volumeFrom(values []string, i int) int {
	def := int(r.defaultVolume.Load())
	if i >= len(values) {
		return def
	}
	s := values[i]
	if s == "" {
		return def
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return def
		}
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return min(v, 100)
}

func (r *Registry) clipAction(policy announce.Policy) Action {
	return func(ctx context.Context, room string, values []string) (announce.Result, error) {
		if len(values) == 0 || values[0] == "" {
			return announce.Result{}, fmt.Errorf("%w: clip name is required", announce.ErrInvalidRequest)
		}
		c, err := r.deps.Clips.Resolve(ctx, values[0])
		if err != nil {
			return announce.Result{}, err
		}
		return r.deps.Announcer.Announce(ctx, announce.Request{
			Policy:           policy,
			SourceURI:        c.URI,
			Volume:           r.volumeFrom(values, 1),
			ExpectedDuration: c.Duration,
			Requester:        room,
		})
	}
}

// ErrorKind maps action errors to short labels; announcement errors keep
// their own labels.
func ErrorKind(err error) string {
	var perr *preset.PresetParseError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnknownAction):
		return "unknown_action"
	case errors.Is(err, clip.ErrInvalidClip):
		return "invalid_clip"
	case errors.Is(err, clip.ErrProbe):
		return "clip_probe"
	case errors.As(err, &perr):
		return "preset_parse"
	case errors.Is(err, preset.ErrPresetNotFound):
		return "preset_not_found"
	case errors.Is(err, zone.ErrNotFound):
		return "not_found"
	}
	return announce.ErrorKind(err)
}
