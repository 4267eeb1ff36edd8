// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package announce

import (
	"context"
	"errors"
	"fmt"

	"github.com/ManuGH/sonox/internal/log"
	"github.com/ManuGH/sonox/internal/metrics"
	"github.com/ManuGH/sonox/internal/zone"
)

// Player starts an announcement on an already grouped set of targets.
type Player struct {
	sys zone.System
}

// NewPlayer returns a Player driving sys.
func NewPlayer(sys zone.System) *Player {
	return &Player{sys: sys}
}

// Start points the coordinator at the announcement source, sets the
// announcement volume on every target and starts playback. Every step is
// attempted; the returned error joins the individual failures.
func (p *Player) Start(ctx context.Context, coordinatorRoom string, req Request, targets []string) error {
	logger := log.WithComponentFromContext(ctx, "announce.player")
	var errs []error

	coord, err := p.sys.Node(ctx, coordinatorRoom)
	if err != nil {
		metrics.RecordSetupFailure("source")
		return fmt.Errorf("coordinator %q: %w", coordinatorRoom, err)
	}

	if err := coord.SetRepeat(ctx, zone.RepeatNone); err != nil {
		logger.Warn().Err(err).Str(log.FieldEvent, "announce.repeat_failed").Str(log.FieldRoom, coordinatorRoom).Msg("could not disable repeat")
	}
	if err := coord.SetSourceURI(ctx, req.SourceURI, req.SourceMetadata); err != nil {
		metrics.RecordSetupFailure("source")
		logger.Error().Err(err).Str(log.FieldEvent, "announce.source_failed").Str(log.FieldRoom, coordinatorRoom).Str(log.FieldURI, req.SourceURI).Msg("could not set announcement source")
		errs = append(errs, fmt.Errorf("source %q: %w", coordinatorRoom, err))
	}

	for _, room := range targets {
		n, err := p.sys.Node(ctx, room)
		if err == nil {
			err = n.SetVolume(ctx, req.Volume)
		}
		if err != nil {
			metrics.RecordSetupFailure("volume")
			logger.Warn().Err(err).Str(log.FieldEvent, "announce.volume_failed").Str(log.FieldRoom, room).Int(log.FieldVolume, req.Volume).Msg("could not set announcement volume")
			errs = append(errs, fmt.Errorf("volume %q: %w", room, err))
		}
	}

	if err := coord.Play(ctx); err != nil {
		metrics.RecordSetupFailure("play")
		logger.Error().Err(err).Str(log.FieldEvent, "announce.play_failed").Str(log.FieldRoom, coordinatorRoom).Msg("could not start announcement playback")
		errs = append(errs, fmt.Errorf("play %q: %w", coordinatorRoom, err))
	}
	return errors.Join(errs...)
}
