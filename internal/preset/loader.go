// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package preset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ManuGH/sonox/internal/log"
)

// Decode parses preset file content. ext selects JSON or YAML.
func Decode(source string, data []byte, ext string) (Preset, error) {
	var p Preset
	switch strings.ToLower(ext) {
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&p); err != nil {
			return Preset{}, &PresetParseError{Source: source, Err: err}
		}
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&p); err != nil {
			return Preset{}, &PresetParseError{Source: source, Err: err}
		}
	default:
		return Preset{}, &PresetParseError{Source: source, Err: fmt.Errorf("unsupported extension %q", ext)}
	}
	if err := p.validate(); err != nil {
		return Preset{}, &PresetParseError{Source: source, Err: err}
	}
	return p, nil
}

func isPresetFile(name string) bool {
	if strings.HasPrefix(name, ".") {
		return false
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json", ".yaml", ".yml":
		return true
	}
	return false
}

// LoadDir reads every preset file in dir, keyed by base name without
// extension. Broken files are logged and skipped.
func LoadDir(dir string) (map[string]Preset, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read presets dir: %w", err)
	}
	logger := log.WithComponent("preset")
	out := make(map[string]Preset, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() || !isPresetFile(e.Name()) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		// #nosec G304 -- path is a directory entry of the configured presets dir
		data, err := os.ReadFile(path)
		if err != nil {
			logger.Warn().Err(err).Str("file", e.Name()).Msg("cannot read preset")
			continue
		}
		ext := filepath.Ext(e.Name())
		p, err := Decode(e.Name(), data, ext)
		if err != nil {
			logger.Warn().Err(err).Str(log.FieldEvent, "preset.invalid").Str("file", e.Name()).Msg("skipping invalid preset")
			continue
		}
		name := strings.TrimSuffix(e.Name(), ext)
		if _, dup := out[name]; dup {
			logger.Warn().Str("preset", name).Msg("duplicate preset name, keeping first")
			continue
		}
		out[name] = p
	}
	return out, nil
}
