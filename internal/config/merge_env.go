// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import "time"

// Wrapper methods for mechanical connection tracking

func (l *Loader) envString(key, defaultVal string) string {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseString(key, defaultVal)
}

func (l *Loader) envBool(key string, defaultVal bool) bool {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseBool(key, defaultVal)
}

func (l *Loader) envInt(key string, defaultVal int) int {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseInt(key, defaultVal)
}

func (l *Loader) envFloat(key string, defaultVal float64) float64 {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseFloat(key, defaultVal)
}

func (l *Loader) envDuration(key string, defaultVal time.Duration) time.Duration {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseDuration(key, defaultVal)
}

// mergeEnvConfig overrides cfg with SONOX_* variables.
func (l *Loader) mergeEnvConfig(cfg *AppConfig) {
	cfg.DataDir = l.envString("SONOX_DATA", cfg.DataDir)
	cfg.LogLevel = l.envString("SONOX_LOG_LEVEL", cfg.LogLevel)
	cfg.LogFile = l.envString("SONOX_LOG_FILE", cfg.LogFile)

	cfg.HTTP.ListenAddr = l.envString("SONOX_LISTEN", cfg.HTTP.ListenAddr)
	cfg.HTTP.PublicBaseURL = l.envString("SONOX_PUBLIC_URL", cfg.HTTP.PublicBaseURL)
	cfg.HTTP.RateLimit = l.envInt("SONOX_RATE_LIMIT", cfg.HTTP.RateLimit)
	cfg.HTTP.ShutdownTimeout = l.envDuration("SONOX_SHUTDOWN_TIMEOUT", cfg.HTTP.ShutdownTimeout)

	cfg.Bridge.BaseURL = l.envString("SONOX_BRIDGE_URL", cfg.Bridge.BaseURL)
	cfg.Bridge.Simulate = l.envBool("SONOX_SIMULATE", cfg.Bridge.Simulate)
	cfg.Bridge.Timeout = l.envDuration("SONOX_BRIDGE_TIMEOUT", cfg.Bridge.Timeout)
	cfg.Bridge.Retries = l.envInt("SONOX_BRIDGE_RETRIES", cfg.Bridge.Retries)
	cfg.Bridge.Backoff = l.envDuration("SONOX_BRIDGE_BACKOFF", cfg.Bridge.Backoff)
	cfg.Bridge.MaxBackoff = l.envDuration("SONOX_BRIDGE_MAX_BACKOFF", cfg.Bridge.MaxBackoff)
	cfg.Bridge.RequestsPerSec = l.envFloat("SONOX_BRIDGE_RPS", cfg.Bridge.RequestsPerSec)
	cfg.Bridge.Burst = l.envInt("SONOX_BRIDGE_BURST", cfg.Bridge.Burst)
	cfg.Bridge.BreakerThreshold = l.envInt("SONOX_BRIDGE_BREAKER_THRESHOLD", cfg.Bridge.BreakerThreshold)
	cfg.Bridge.BreakerReset = l.envDuration("SONOX_BRIDGE_BREAKER_RESET", cfg.Bridge.BreakerReset)

	cfg.Announce.DefaultVolume = l.envInt("SONOX_ANNOUNCE_VOLUME", cfg.Announce.DefaultVolume)
	cfg.Announce.RestorePadding = l.envDuration("SONOX_RESTORE_PADDING", cfg.Announce.RestorePadding)
	cfg.Announce.ConvergenceTimeout = l.envDuration("SONOX_CONVERGENCE_TIMEOUT", cfg.Announce.ConvergenceTimeout)
	cfg.Announce.LockWaitTimeout = l.envDuration("SONOX_LOCK_WAIT", cfg.Announce.LockWaitTimeout)
	cfg.Announce.RestoreTimeout = l.envDuration("SONOX_RESTORE_TIMEOUT", cfg.Announce.RestoreTimeout)
	cfg.Announce.ReplayPending = l.envBool("SONOX_REPLAY_PENDING", cfg.Announce.ReplayPending)

	cfg.Clips.Dir = l.envString("SONOX_CLIPS_DIR", cfg.Clips.Dir)
	cfg.Clips.FFprobePath = l.envString("SONOX_FFPROBE", cfg.Clips.FFprobePath)
	cfg.Clips.ProbeTimeout = l.envDuration("SONOX_PROBE_TIMEOUT", cfg.Clips.ProbeTimeout)

	cfg.Presets.Dir = l.envString("SONOX_PRESETS_DIR", cfg.Presets.Dir)
	cfg.Presets.Watch = l.envBool("SONOX_PRESETS_WATCH", cfg.Presets.Watch)

	cfg.Store.Backend = l.envString("SONOX_STORE", cfg.Store.Backend)
	cfg.Store.Redis.Addr = l.envString("SONOX_REDIS_ADDR", cfg.Store.Redis.Addr)
	cfg.Store.Redis.Password = l.envString("SONOX_REDIS_PASSWORD", cfg.Store.Redis.Password)
	cfg.Store.Redis.DB = l.envInt("SONOX_REDIS_DB", cfg.Store.Redis.DB)
	cfg.Store.Redis.KeyPrefix = l.envString("SONOX_REDIS_PREFIX", cfg.Store.Redis.KeyPrefix)

	cfg.MQTT.Enabled = l.envBool("SONOX_MQTT_ENABLED", cfg.MQTT.Enabled)
	cfg.MQTT.Broker = l.envString("SONOX_MQTT_BROKER", cfg.MQTT.Broker)
	cfg.MQTT.Username = l.envString("SONOX_MQTT_USERNAME", cfg.MQTT.Username)
	cfg.MQTT.Password = l.envString("SONOX_MQTT_PASSWORD", cfg.MQTT.Password)
	cfg.MQTT.ClientID = l.envString("SONOX_MQTT_CLIENT_ID", cfg.MQTT.ClientID)
	cfg.MQTT.TopicPrefix = l.envString("SONOX_MQTT_PREFIX", cfg.MQTT.TopicPrefix)
	cfg.MQTT.RetryDelay = l.envDuration("SONOX_MQTT_RETRY_DELAY", cfg.MQTT.RetryDelay)
	cfg.MQTT.MaxRetries = l.envInt("SONOX_MQTT_MAX_RETRIES", cfg.MQTT.MaxRetries)

	cfg.TextSync.Enabled = l.envBool("SONOX_TEXTSYNC_ENABLED", cfg.TextSync.Enabled)
	cfg.TextSync.Host = l.envString("SONOX_TEXTSYNC_HOST", cfg.TextSync.Host)
	cfg.TextSync.Port = l.envInt("SONOX_TEXTSYNC_PORT", cfg.TextSync.Port)
	cfg.TextSync.UseSSL = l.envBool("SONOX_TEXTSYNC_SSL", cfg.TextSync.UseSSL)
	cfg.TextSync.User = l.envString("SONOX_TEXTSYNC_USER", cfg.TextSync.User)
	cfg.TextSync.Pass = l.envString("SONOX_TEXTSYNC_PASS", cfg.TextSync.Pass)
	cfg.TextSync.Timeout = l.envDuration("SONOX_TEXTSYNC_TIMEOUT", cfg.TextSync.Timeout)

	cfg.License.Key = l.envString("SONOX_LICENSE_KEY", cfg.License.Key)

	cfg.Telemetry.Enabled = l.envBool("SONOX_TELEMETRY_ENABLED", cfg.Telemetry.Enabled)
	cfg.Telemetry.Exporter = l.envString("SONOX_TELEMETRY_EXPORTER", cfg.Telemetry.Exporter)
	cfg.Telemetry.Endpoint = l.envString("SONOX_TELEMETRY_ENDPOINT", cfg.Telemetry.Endpoint)
	cfg.Telemetry.SamplingRate = l.envFloat("SONOX_TELEMETRY_SAMPLING", cfg.Telemetry.SamplingRate)
	cfg.Telemetry.Insecure = l.envBool("SONOX_TELEMETRY_INSECURE", cfg.Telemetry.Insecure)
	cfg.Telemetry.Environment = l.envString("SONOX_ENV", cfg.Telemetry.Environment)
}
