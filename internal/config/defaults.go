// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import "time"

// Defaults returns the configuration used when neither file nor
// environment set a value.
func Defaults() AppConfig {
	return AppConfig{
		DataDir:  "/var/lib/sonox",
		LogLevel: "info",
		HTTP: HTTPConfig{
			ListenAddr:      ":8090",
			RateLimit:       60,
			ShutdownTimeout: 10 * time.Second,
		},
		Bridge: BridgeConfig{
			BaseURL:          "http://localhost:5005",
			Timeout:          5 * time.Second,
			Retries:          2,
			Backoff:          200 * time.Millisecond,
			MaxBackoff:       2 * time.Second,
			RequestsPerSec:   20,
			Burst:            10,
			BreakerThreshold: 5,
			BreakerReset:     30 * time.Second,
		},
		Announce: AnnounceConfig{
			DefaultVolume:      40,
			RestorePadding:     2 * time.Second,
			ConvergenceTimeout: 5 * time.Second,
			LockWaitTimeout:    30 * time.Second,
			RestoreTimeout:     60 * time.Second,
			ReplayPending:      true,
		},
		Clips: ClipsConfig{
			Dir:          "clips",
			FFprobePath:  "ffprobe",
			ProbeTimeout: 10 * time.Second,
		},
		Presets: PresetsConfig{
			Dir:   "presets",
			Watch: true,
		},
		Store: StoreConfig{
			Backend: "sqlite",
			Redis:   RedisConfig{KeyPrefix: "sonox"},
		},
		MQTT: MQTTConfig{
			ClientID:    "sonox",
			TopicPrefix: "sonox",
			RetryDelay:  5 * time.Second,
			MaxRetries:  12,
		},
		TextSync: TextSyncConfig{
			Port:    80,
			Timeout: 3 * time.Second,
		},
		Telemetry: TelemetryConfig{
			Exporter:     "grpc",
			Endpoint:     "localhost:4317",
			SamplingRate: 1.0,
			Environment:  "production",
		},
	}
}
