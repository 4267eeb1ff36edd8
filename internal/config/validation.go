// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"strings"
	"time"

	"github.com/ManuGH/sonox/internal/validate"
)

// Validate checks a fully merged configuration. Directories that do not
// exist yet are created.
func Validate(cfg AppConfig) error {
	v := validate.New()

	v.Directory("dataDir", cfg.DataDir, false)
	v.OneOf("logLevel", strings.ToLower(cfg.LogLevel), []string{"trace", "debug", "info", "warn", "error"})

	v.NotEmpty("http.listenAddr", cfg.HTTP.ListenAddr)
	if cfg.HTTP.PublicBaseURL != "" {
		v.BaseURL("http.publicBaseUrl", cfg.HTTP.PublicBaseURL)
	}
	v.NonNegative("http.rateLimit", cfg.HTTP.RateLimit)
	v.Duration("http.shutdownTimeout", cfg.HTTP.ShutdownTimeout, 0)

	if !cfg.Bridge.Simulate {
		v.BaseURL("bridge.baseUrl", cfg.Bridge.BaseURL)
	}
	v.Duration("bridge.timeout", cfg.Bridge.Timeout, 100*time.Millisecond)
	v.Range("bridge.retries", cfg.Bridge.Retries, 0, 10)
	v.Duration("bridge.backoff", cfg.Bridge.Backoff, 0)
	if cfg.Bridge.MaxBackoff < cfg.Bridge.Backoff {
		v.AddError("bridge.maxBackoff", "must not be lower than bridge.backoff", cfg.Bridge.MaxBackoff)
	}
	if cfg.Bridge.RequestsPerSec < 0 {
		v.AddError("bridge.requestsPerSec", "value cannot be negative", cfg.Bridge.RequestsPerSec)
	}
	v.Positive("bridge.breakerThreshold", cfg.Bridge.BreakerThreshold)

	v.Range("announce.defaultVolume", cfg.Announce.DefaultVolume, 0, 100)
	v.Duration("announce.restorePadding", cfg.Announce.RestorePadding, 0)
	v.Duration("announce.convergenceTimeout", cfg.Announce.ConvergenceTimeout, 0)
	v.Duration("announce.lockWaitTimeout", cfg.Announce.LockWaitTimeout, 0)
	v.Duration("announce.restoreTimeout", cfg.Announce.RestoreTimeout, time.Second)

	v.Directory("clips.dir", cfg.Clips.Dir, false)
	v.NotEmpty("clips.ffprobe", cfg.Clips.FFprobePath)
	v.Duration("clips.probeTimeout", cfg.Clips.ProbeTimeout, 100*time.Millisecond)
	v.Directory("presets.dir", cfg.Presets.Dir, false)

	v.OneOf("store.backend", cfg.Store.Backend, []string{"memory", "sqlite", "redis"})
	if cfg.Store.Backend == "redis" {
		v.NotEmpty("store.redis.addr", cfg.Store.Redis.Addr)
		v.Range("store.redis.db", cfg.Store.Redis.DB, 0, 15)
	}

	if cfg.MQTT.Enabled {
		v.Broker("mqtt.broker", cfg.MQTT.Broker)
		v.NotEmpty("mqtt.clientId", cfg.MQTT.ClientID)
		v.NotEmpty("mqtt.topicPrefix", cfg.MQTT.TopicPrefix)
		v.NonNegative("mqtt.maxRetries", cfg.MQTT.MaxRetries)
	}

	if cfg.TextSync.Enabled {
		v.Host("textInputSync.host", cfg.TextSync.Host)
		v.Port("textInputSync.port", cfg.TextSync.Port)
		v.Duration("textInputSync.timeout", cfg.TextSync.Timeout, 100*time.Millisecond)
	}

	if cfg.Telemetry.Enabled {
		v.OneOf("telemetry.exporter", cfg.Telemetry.Exporter, []string{"grpc", "http"})
		v.NotEmpty("telemetry.endpoint", cfg.Telemetry.Endpoint)
		v.FloatRange("telemetry.samplingRate", cfg.Telemetry.SamplingRate, 0, 1)
	}

	return v.Err()
}
