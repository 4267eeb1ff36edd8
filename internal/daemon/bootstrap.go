// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/sonox/internal/action"
	"github.com/ManuGH/sonox/internal/announce"
	"github.com/ManuGH/sonox/internal/api"
	"github.com/ManuGH/sonox/internal/bridge"
	"github.com/ManuGH/sonox/internal/bus"
	"github.com/ManuGH/sonox/internal/clip"
	"github.com/ManuGH/sonox/internal/config"
	"github.com/ManuGH/sonox/internal/health"
	"github.com/ManuGH/sonox/internal/log"
	"github.com/ManuGH/sonox/internal/mqtt"
	"github.com/ManuGH/sonox/internal/preset"
	"github.com/ManuGH/sonox/internal/store"
	"github.com/ManuGH/sonox/internal/telemetry"
	"github.com/ManuGH/sonox/internal/textsync"
	"github.com/ManuGH/sonox/internal/zone"
	"github.com/ManuGH/sonox/internal/zone/memsys"
)

const serviceName = "sonox"

// Runtime is the wired service graph.
type Runtime struct {
	Logger    zerolog.Logger
	Holder    *config.ConfigHolder
	System    zone.System
	Store     store.Store
	Announcer *announce.Announcer
	Actions   *action.Registry
	Presets   *preset.Holder
	Health    *health.Manager
	Manager   Manager

	// Republisher and Syncer are nil when disabled.
	Republisher *mqtt.Republisher
	Syncer      *textsync.Syncer

	closers []namedHook
}

// Close releases what Build opened, for one-shot commands that never start
// the manager.
func (rt *Runtime) Close(ctx context.Context) error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i].hook(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", rt.closers[i].name, err))
		}
	}
	rt.closers = nil
	return errors.Join(errs...)
}

// demoRooms seeds the simulator when no bridge is configured.
func demoRooms(sim *memsys.System) {
	sim.AddGroup(
		memsys.Room{ID: "RINCON_LIVING", Name: "Living Room", Volume: 25, State: zone.StatePlaying,
			URI: "x-rincon-mp3radio://radio.example/stream", Track: zone.Track{StationName: "Demo Radio"}},
		memsys.Room{ID: "RINCON_DINING", Name: "Dining Room", Volume: 20},
	)
	sim.AddGroup(memsys.Room{ID: "RINCON_KITCHEN", Name: "Kitchen", Volume: 30, State: zone.StateStopped})
	sim.AddGroup(memsys.Room{ID: "RINCON_OFFICE", Name: "Office", Volume: 15, State: zone.StatePaused})
}

// Build wires every component for the configuration currently held by
// holder. Resources opened here are released by the manager's shutdown hooks.
func Build(ctx context.Context, holder *config.ConfigHolder) (*Runtime, error) {
	cfg := holder.Get()
	logger := log.WithComponent("daemon")

	if err := health.PerformStartupChecks(ctx, cfg); err != nil {
		return nil, fmt.Errorf("startup checks: %w", err)
	}

	var hooks []namedHook
	closeAll := func() {
		for i := len(hooks) - 1; i >= 0; i-- {
			_ = hooks[i].hook(context.WithoutCancel(ctx))
		}
	}

	tp, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    serviceName,
		ServiceVersion: cfg.Version,
		Environment:    cfg.Telemetry.Environment,
		ExporterType:   cfg.Telemetry.Exporter,
		Endpoint:       cfg.Telemetry.Endpoint,
		SamplingRate:   cfg.Telemetry.SamplingRate,
		Insecure:       cfg.Telemetry.Insecure,
	})
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}
	hooks = append(hooks, namedHook{"telemetry", tp.Shutdown})

	st, err := store.Open(ctx, store.Config{
		Backend: cfg.Store.Backend,
		DataDir: cfg.DataDir,
		Redis: store.RedisConfig{
			Addr:      cfg.Store.Redis.Addr,
			Password:  cfg.Store.Redis.Password,
			DB:        cfg.Store.Redis.DB,
			KeyPrefix: cfg.Store.Redis.KeyPrefix,
		},
	})
	if err != nil {
		closeAll()
		return nil, fmt.Errorf("open store: %w", err)
	}
	hooks = append(hooks, namedHook{"store", func(context.Context) error { return st.Close() }})

	hm := health.NewManager(cfg.Version)
	hm.RegisterChecker(health.NewPingChecker("store", st.Ping))

	events := bus.NewMemoryBus()
	var (
		sys     zone.System
		webhook *bridge.Webhook
	)
	if cfg.Bridge.Simulate {
		sim := memsys.New(events, memsys.WithAutoStop(5*time.Second))
		demoRooms(sim)
		sys = sim
		hooks = append(hooks, namedHook{"simulator", func(context.Context) error { return sim.Close() }})
		logger.Warn().Str(log.FieldEvent, "bridge.simulated").Msg("running against the in-process simulator")
	} else {
		client := bridge.New(bridge.Config{
			BaseURL:          cfg.Bridge.BaseURL,
			Timeout:          cfg.Bridge.Timeout,
			Retries:          cfg.Bridge.Retries,
			Backoff:          cfg.Bridge.Backoff,
			MaxBackoff:       cfg.Bridge.MaxBackoff,
			RequestsPerSec:   cfg.Bridge.RequestsPerSec,
			Burst:            cfg.Bridge.Burst,
			BreakerThreshold: cfg.Bridge.BreakerThreshold,
			BreakerReset:     cfg.Bridge.BreakerReset,
		}, events)
		webhook = bridge.NewWebhook(events)
		sys = client
		hm.RegisterChecker(health.NewPingChecker("bridge", client.Ping))
	}

	ann := announce.New(sys, st, announce.Config{
		RestorePadding:     cfg.Announce.RestorePadding,
		ConvergenceTimeout: cfg.Announce.ConvergenceTimeout,
		LockWaitTimeout:    cfg.Announce.LockWaitTimeout,
		RestoreTimeout:     cfg.Announce.RestoreTimeout,
	})

	clips := clip.NewLibrary(cfg.Clips.Dir, cfg.HTTP.PublicBaseURL,
		clip.NewFFprobe(cfg.Clips.FFprobePath, cfg.Clips.ProbeTimeout))

	if err := os.MkdirAll(cfg.Presets.Dir, 0o750); err != nil {
		closeAll()
		return nil, fmt.Errorf("create presets dir: %w", err)
	}
	presets, err := preset.NewHolder(cfg.Presets.Dir)
	if err != nil {
		closeAll()
		return nil, fmt.Errorf("load presets: %w", err)
	}

	registry := action.NewRegistry(action.Deps{
		System:        sys,
		Announcer:     ann,
		Clips:         clips,
		Presets:       presets,
		DefaultVolume: cfg.Announce.DefaultVolume,
		Licensed:      cfg.License.Licensed(),
	})

	rt := &Runtime{
		Logger:    logger,
		Holder:    holder,
		System:    sys,
		Store:     st,
		Announcer: ann,
		Actions:   registry,
		Presets:   presets,
		Health:    hm,
	}

	if cfg.MQTT.Enabled {
		mcfg := mqtt.Config{
			Broker:      cfg.MQTT.Broker,
			Username:    cfg.MQTT.Username,
			Password:    cfg.MQTT.Password,
			ClientID:    cfg.MQTT.ClientID,
			TopicPrefix: cfg.MQTT.TopicPrefix,
			RetryDelay:  cfg.MQTT.RetryDelay,
			MaxRetries:  cfg.MQTT.MaxRetries,
		}
		mc, err := mqtt.Dial(mcfg)
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("mqtt: %w", err)
		}
		hooks = append(hooks, namedHook{"mqtt", func(context.Context) error { mc.Close(); return nil }})
		rt.Republisher = mqtt.NewRepublisher(mc, sys, mcfg)
	}

	if cfg.TextSync.Enabled {
		if cfg.License.Licensed() {
			rt.Syncer = textsync.New(textsync.Config{
				Host:    cfg.TextSync.Host,
				Port:    cfg.TextSync.Port,
				UseSSL:  cfg.TextSync.UseSSL,
				User:    cfg.TextSync.User,
				Pass:    cfg.TextSync.Pass,
				Timeout: cfg.TextSync.Timeout,
			}, sys)
		} else {
			logger.Info().Str(log.FieldEvent, "textsync.disabled").Msg("text input sync requires a license key")
		}
	}

	apiDeps := api.Deps{
		Actions:   registry,
		Runs:      ann,
		Events:    sys,
		Clips:     clips.Handler(),
		Health:    hm,
		RateLimit: cfg.HTTP.RateLimit,
	}
	if webhook != nil {
		apiDeps.Webhook = webhook
	}
	if cfg.Telemetry.Enabled {
		apiDeps.TracingService = serviceName
	}

	mgr, err := NewManager(ServerConfig{
		ListenAddr:        cfg.HTTP.ListenAddr,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		ShutdownTimeout:   cfg.HTTP.ShutdownTimeout,
	}, Deps{
		Logger:     logger,
		APIHandler: api.New(apiDeps).Handler(),
	})
	if err != nil {
		closeAll()
		return nil, err
	}
	for _, h := range hooks {
		mgr.RegisterShutdownHook(h.name, h.hook)
	}
	rt.Manager = mgr
	rt.closers = hooks
	return rt, nil
}
