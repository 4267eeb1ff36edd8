// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package preset

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/ManuGH/sonox/internal/log"
)

const watchDebounce = 300 * time.Millisecond

// Holder keeps the loaded presets and swaps them on reload.
type Holder struct {
	dir      string
	logger   zerolog.Logger
	debounce time.Duration

	mu      sync.RWMutex
	presets map[string]Preset
}

// NewHolder loads dir once.
func NewHolder(dir string) (*Holder, error) {
	h := &Holder{
		dir:      dir,
		logger:   log.WithComponent("preset"),
		debounce: watchDebounce,
	}
	if err := h.Reload(); err != nil {
		return nil, err
	}
	return h, nil
}

// Dir returns the presets directory.
func (h *Holder) Dir() string { return h.dir }

// Reload reads the directory again and replaces the loaded set.
func (h *Holder) Reload() error {
	presets, err := LoadDir(h.dir)
	if err != nil {
		return err
	}
	h.mu.Lock()
	h.presets = presets
	h.mu.Unlock()
	h.logger.Info().
		Str(log.FieldEvent, "preset.loaded").
		Int("count", len(presets)).
		Msg("presets loaded")
	return nil
}

// Get returns a loaded preset by name.
func (h *Holder) Get(name string) (Preset, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	p, ok := h.presets[name]
	return p, ok
}

// Names lists loaded preset names, sorted.
func (h *Holder) Names() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]string, 0, len(h.presets))
	for name := range h.presets {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Parse resolves value as inline JSON when it starts with '{' and as a
// preset name otherwise.
func (h *Holder) Parse(value string) (Preset, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return Preset{}, &PresetParseError{Source: "request", Err: fmt.Errorf("preset is required")}
	}
	if strings.HasPrefix(value, "{") {
		var p Preset
		if err := json.Unmarshal([]byte(value), &p); err != nil {
			return Preset{}, &PresetParseError{Source: "inline", Err: err}
		}
		if err := p.validate(); err != nil {
			return Preset{}, &PresetParseError{Source: "inline", Err: err}
		}
		return p, nil
	}
	p, ok := h.Get(value)
	if !ok {
		return Preset{}, fmt.Errorf("%w: %s", ErrPresetNotFound, value)
	}
	return p, nil
}

// Watch reloads on changes to the presets directory until ctx ends.
func (h *Holder) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()
	if err := watcher.Add(h.dir); err != nil {
		return fmt.Errorf("watch presets dir: %w", err)
	}
	h.logger.Info().
		Str(log.FieldEvent, "preset.watch_started").
		Str("path", h.dir).
		Msg("watching presets directory")

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !isPresetFile(filepath.Base(event.Name)) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(h.debounce, func() {
				if err := h.Reload(); err != nil {
					h.logger.Error().Err(err).Str(log.FieldEvent, "preset.reload_failed").Msg("preset reload failed")
				}
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			h.logger.Error().Err(err).Str(log.FieldEvent, "preset.watch_error").Msg("preset watcher error")
		}
	}
}
