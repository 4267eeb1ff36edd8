// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package action

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/ManuGH/sonox/internal/announce"
	"github.com/ManuGH/sonox/internal/log"
	"github.com/ManuGH/sonox/internal/preset"
	"github.com/ManuGH/sonox/internal/zone"
)

// Source types accepted by presetplay.
const (
	SourceFavorite = "fav"
	SourcePlaylist = "plist"
)

// presetPlay applies a preset's grouping and volumes, then starts a
// favorite or playlist on its coordinator. values are preset, source and
// an optional source type.
func (r *Registry) presetPlay(ctx context.Context, _ string, values []string) (announce.Result, error) {
	if len(values) < 2 || strings.TrimSpace(values[0]) == "" || strings.TrimSpace(values[1]) == "" {
		return announce.Result{}, fmt.Errorf("%w: preset and source are required", announce.ErrInvalidRequest)
	}
	source := values[1]
	kind := SourceFavorite
	if len(values) > 2 && values[2] != "" {
		kind = strings.ToLower(values[2])
	}
	if kind != SourceFavorite && kind != SourcePlaylist {
		return announce.Result{}, fmt.Errorf("%w: source type %q (want fav or plist)", announce.ErrInvalidRequest, values[2])
	}

	p, err := r.deps.Presets.Parse(values[0])
	if err != nil {
		return announce.Result{}, err
	}

	runID := uuid.NewString()
	ctx = log.ContextWithRunID(ctx, runID)
	logger := log.WithComponentFromContext(ctx, "action.presetplay")

	groups, err := r.deps.System.Groups(ctx)
	if err != nil {
		return announce.Result{}, fmt.Errorf("read topology: %w", err)
	}
	coordRoom := p.Coordinator()
	if _, ok := zone.FindRoom(groups, coordRoom); !ok {
		return announce.Result{}, fmt.Errorf("preset coordinator %s: %w", coordRoom, zone.ErrNotFound)
	}

	if p.PauseOthers {
		r.pauseOthers(ctx, groups, p)
	}

	rep := r.deps.Announcer.Restorer().Restore(ctx, []announce.Snapshot{p.ToSnapshot(groups)})

	res := announce.Result{
		RunID:       runID,
		Coordinator: coordRoom,
		Targets:     p.Rooms(),
		Restore:     rep,
	}

	coord, err := r.deps.System.Node(ctx, coordRoom)
	if err != nil {
		return res, fmt.Errorf("preset coordinator %s: %w", coordRoom, err)
	}
	if kind == SourcePlaylist {
		err = coord.PlayPlaylist(ctx, source)
	} else {
		err = coord.PlayFavorite(ctx, source)
	}
	if err != nil {
		logger.Error().Err(err).
			Str(log.FieldRoom, coordRoom).
			Str("source", source).
			Str("type", kind).
			Msg("preset source failed")
		return res, fmt.Errorf("play %s %q on %s: %w", kind, source, coordRoom, err)
	}
	if err := coord.Play(ctx); err != nil {
		return res, fmt.Errorf("play on %s: %w", coordRoom, err)
	}

	res.Success = true
	res.Message = fmt.Sprintf("preset applied, playing %q.", source)
	if !rep.OK() {
		res.Message = fmt.Sprintf("preset partially applied (%d failed steps), playing %q.", len(rep.Failures), source)
	}
	return res, nil
}

// pauseOthers pauses every playing group that shares no room with p.
func (r *Registry) pauseOthers(ctx context.Context, groups []zone.Group, p preset.Preset) {
	logger := log.WithComponentFromContext(ctx, "action.presetplay")
	inPreset := func(g zone.Group) bool {
		for _, room := range p.Rooms() {
			for _, m := range g.Members {
				if strings.EqualFold(m.RoomName, room) {
					return true
				}
			}
		}
		return false
	}
	for _, g := range groups {
		if !g.AnyPlaying() || inPreset(g) {
			continue
		}
		n, err := r.deps.System.Node(ctx, g.Coordinator.RoomName)
		if err == nil {
			err = n.Pause(ctx)
		}
		if err != nil {
			logger.Warn().Err(err).Str(log.FieldRoom, g.Coordinator.RoomName).Msg("cannot pause other group")
		}
	}
}
