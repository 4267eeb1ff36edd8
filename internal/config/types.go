// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import "time"

// AppConfig is the complete, validated runtime configuration.
type AppConfig struct {
	Version string `yaml:"-"`

	DataDir  string `yaml:"dataDir"`
	LogLevel string `yaml:"logLevel"`
	// LogFile enables a rotated log file next to stdout.
	LogFile string `yaml:"logFile"`

	HTTP      HTTPConfig      `yaml:"http"`
	Bridge    BridgeConfig    `yaml:"bridge"`
	Announce  AnnounceConfig  `yaml:"announce"`
	Clips     ClipsConfig     `yaml:"clips"`
	Presets   PresetsConfig   `yaml:"presets"`
	Store     StoreConfig     `yaml:"store"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	TextSync  TextSyncConfig  `yaml:"textInputSync"`
	License   LicenseConfig   `yaml:"license"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

type HTTPConfig struct {
	ListenAddr string `yaml:"listenAddr"`
	// PublicBaseURL is how nodes reach this service; clip URIs are built on it.
	PublicBaseURL string `yaml:"publicBaseUrl"`
	// RateLimit is the number of action requests allowed per client and minute.
	RateLimit       int           `yaml:"rateLimit"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

type BridgeConfig struct {
	// BaseURL of the discovery bridge. Empty with Simulate set runs the
	// in-process simulator instead.
	BaseURL  string `yaml:"baseUrl"`
	Simulate bool   `yaml:"simulate"`

	Timeout          time.Duration `yaml:"timeout"`
	Retries          int           `yaml:"retries"`
	Backoff          time.Duration `yaml:"backoff"`
	MaxBackoff       time.Duration `yaml:"maxBackoff"`
	RequestsPerSec   float64       `yaml:"requestsPerSecond"`
	Burst            int           `yaml:"burst"`
	BreakerThreshold int           `yaml:"breakerThreshold"`
	BreakerReset     time.Duration `yaml:"breakerReset"`
}

type AnnounceConfig struct {
	DefaultVolume      int           `yaml:"defaultVolume"`
	RestorePadding     time.Duration `yaml:"restorePadding"`
	ConvergenceTimeout time.Duration `yaml:"convergenceTimeout"`
	LockWaitTimeout    time.Duration `yaml:"lockWaitTimeout"`
	RestoreTimeout     time.Duration `yaml:"restoreTimeout"`
	// ReplayPending restores journaled runs on startup.
	ReplayPending bool `yaml:"replayPending"`
}

type ClipsConfig struct {
	Dir          string        `yaml:"dir"`
	FFprobePath  string        `yaml:"ffprobe"`
	ProbeTimeout time.Duration `yaml:"probeTimeout"`
}

type PresetsConfig struct {
	Dir   string `yaml:"dir"`
	Watch bool   `yaml:"watch"`
}

type StoreConfig struct {
	// Backend is memory, sqlite or redis.
	Backend string      `yaml:"backend"`
	Redis   RedisConfig `yaml:"redis"`
}

type RedisConfig struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"keyPrefix"`
}

type MQTTConfig struct {
	Enabled     bool          `yaml:"enabled"`
	Broker      string        `yaml:"broker"`
	Username    string        `yaml:"username"`
	Password    string        `yaml:"password"`
	ClientID    string        `yaml:"clientId"`
	TopicPrefix string        `yaml:"topicPrefix"`
	RetryDelay  time.Duration `yaml:"retryDelay"`
	MaxRetries  int           `yaml:"maxRetries"`
}

type TextSyncConfig struct {
	Enabled bool          `yaml:"enabled"`
	Host    string        `yaml:"host"`
	Port    int           `yaml:"port"`
	UseSSL  bool          `yaml:"useSsl"`
	User    string        `yaml:"user"`
	Pass    string        `yaml:"pass"`
	Timeout time.Duration `yaml:"timeout"`
}

type LicenseConfig struct {
	Key string `yaml:"key"`
}

// Licensed reports whether licensed features (presetplay, text input
// sync) are enabled.
func (l LicenseConfig) Licensed() bool { return l.Key != "" }

type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Exporter     string  `yaml:"exporter"`
	Endpoint     string  `yaml:"endpoint"`
	SamplingRate float64 `yaml:"samplingRate"`
	Insecure     bool    `yaml:"insecure"`
	Environment  string  `yaml:"environment"`
}
