// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ManuGH/sonox/internal/log"
)

// Loader handles configuration loading with precedence
type Loader struct {
	configPath string
	dotEnvPath string
	version    string
	// ConsumedEnvKeys records every SONOX_* key the loader looked at.
	ConsumedEnvKeys map[string]struct{}
}

// NewLoader creates a loader for configPath. An empty path means defaults
// and environment only.
func NewLoader(configPath, version string) *Loader {
	return &Loader{
		configPath:      configPath,
		version:         version,
		ConsumedEnvKeys: make(map[string]struct{}),
	}
}

// WithDotEnv makes Load read path into the environment first. A missing
// file is not an error.
func (l *Loader) WithDotEnv(path string) *Loader {
	l.dotEnvPath = path
	return l
}

// Load loads configuration with precedence: ENV > File > Defaults.
// Order is: defaults, strict file parse, .env, environment, validate.
func (l *Loader) Load() (AppConfig, error) {
	cfg := Defaults()

	if l.configPath != "" {
		if err := l.loadFile(l.configPath, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}

	if l.dotEnvPath != "" {
		if err := godotenv.Load(l.dotEnvPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("load env file: %w", err)
		}
	}

	l.mergeEnvConfig(&cfg)

	if abs, err := filepath.Abs(cfg.DataDir); err == nil {
		cfg.DataDir = abs
	}
	cfg.Clips.Dir = l.underDataDir(cfg.DataDir, cfg.Clips.Dir)
	cfg.Presets.Dir = l.underDataDir(cfg.DataDir, cfg.Presets.Dir)
	cfg.HTTP.PublicBaseURL = strings.TrimSuffix(cfg.HTTP.PublicBaseURL, "/")
	cfg.Version = l.version

	if err := Validate(cfg); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func (l *Loader) underDataDir(dataDir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dataDir, p)
}

// loadFile decodes a YAML file over cfg with STRICT parsing.
// Unknown fields cause a fatal error to prevent misconfiguration.
func (l *Loader) loadFile(path string, cfg *AppConfig) error {
	path = filepath.Clean(path)
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("unsupported config format: %s (only YAML supported)", ext)
	}

	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}
	return decodeStrict(data, cfg)
}

func decodeStrict(data []byte, cfg *AppConfig) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		if strings.Contains(err.Error(), "field") && strings.Contains(err.Error(), "not found") {
			return fmt.Errorf("strict config parse error: %w: %w", ErrUnknownConfigField, err)
		}
		return fmt.Errorf("strict config parse error: %w", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return ErrMultipleDocuments
	}

	logger := log.WithComponent("config")
	logger.Debug().Str("event", "config.file_loaded").Msg("configuration file parsed")
	return nil
}

// String renders the configuration with secrets masked.
func (c AppConfig) String() string {
	masked := c
	masked.Store.Redis.Password = mask(masked.Store.Redis.Password)
	masked.MQTT.Password = mask(masked.MQTT.Password)
	masked.TextSync.Pass = mask(masked.TextSync.Pass)
	masked.License.Key = mask(masked.License.Key)
	out, err := yaml.Marshal(masked)
	if err != nil {
		return fmt.Sprintf("config: %v", err)
	}
	return string(out)
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	return "***"
}
