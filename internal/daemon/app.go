// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/sonox/internal/config"
	"github.com/ManuGH/sonox/internal/log"
)

// App owns the long-lived runtime lifecycle (watchers, reload wiring,
// republishers, pending-restore replay) and delegates server management to
// Manager.
type App struct {
	rt           *Runtime
	reloadSignal os.Signal
}

// NewApp creates a new App orchestrator.
func NewApp(rt *Runtime) *App {
	return &App{rt: rt, reloadSignal: syscall.SIGHUP}
}

// Run starts all owned background subsystems and blocks until ctx is
// cancelled or a fatal error occurs.
func (a *App) Run(ctx context.Context) error {
	if a.rt == nil || a.rt.Manager == nil {
		return ErrMissingManager
	}
	logger := a.rt.Logger
	holder := a.rt.Holder
	cfg := holder.Get()

	g, ctx := errgroup.WithContext(ctx)

	// Config watcher is best-effort: startup should not fail if watcher cannot be started.
	if err := holder.StartWatcher(ctx); err != nil {
		logger.Warn().Err(err).Str(log.FieldEvent, "config.watcher_start_failed").Msg("failed to start config watcher")
	}
	defer holder.Stop()

	applyCh := make(chan config.AppConfig, 1)
	holder.RegisterListener(applyCh)
	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case next := <-applyCh:
				a.rt.Actions.SetDefaultVolume(next.Announce.DefaultVolume)
			}
		}
	})

	if a.reloadSignal != nil {
		g.Go(func() error {
			hupChan := make(chan os.Signal, 1)
			signal.Notify(hupChan, a.reloadSignal)
			defer signal.Stop(hupChan)

			for {
				select {
				case <-ctx.Done():
					return nil
				case <-hupChan:
					logger.Info().
						Str(log.FieldEvent, "config.reload_signal").
						Str("signal", a.reloadSignal.String()).
						Msg("received reload signal, reloading config")
					if err := holder.Reload(context.WithoutCancel(ctx)); err != nil {
						logger.Warn().Err(err).Str(log.FieldEvent, "config.reload_failed").Msg("config reload failed")
					}
					if err := a.rt.Presets.Reload(); err != nil {
						logger.Warn().Err(err).Str(log.FieldEvent, "preset.reload_failed").Msg("preset reload failed")
					}
				}
			}
		})
	}

	if cfg.Presets.Watch {
		g.Go(func() error {
			if err := a.rt.Presets.Watch(ctx); err != nil {
				logger.Warn().Err(err).Str(log.FieldEvent, "preset.watch_failed").Msg("preset watcher stopped")
			}
			return nil
		})
	}

	if a.rt.Republisher != nil {
		g.Go(func() error {
			if err := a.rt.Republisher.Run(ctx); err != nil {
				logger.Error().Err(err).Str(log.FieldEvent, "mqtt.failed").Msg("mqtt republisher stopped")
			}
			return nil
		})
	}

	if a.rt.Syncer != nil {
		g.Go(func() error {
			if err := a.rt.Syncer.Run(ctx); err != nil {
				logger.Error().Err(err).Str(log.FieldEvent, "textsync.failed").Msg("text input sync stopped")
			}
			return nil
		})
	}

	if cfg.Announce.ReplayPending {
		g.Go(func() error {
			n, err := a.rt.Announcer.RestorePending(ctx)
			if err != nil {
				logger.Warn().Err(err).Str(log.FieldEvent, "restore.replay_failed").Msg("pending restore replay failed")
				return nil
			}
			if n > 0 {
				logger.Info().Int("runs", n).Str(log.FieldEvent, "restore.replayed").Msg("restored pending runs")
			}
			return nil
		})
	}

	// Main server lifecycle.
	g.Go(func() error {
		err := a.rt.Manager.Start(ctx)
		if err != nil {
			_ = a.rt.Manager.Shutdown(context.Background())
		}
		return err
	})

	return g.Wait()
}
