// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package preset

import (
	"encoding/json"
	"fmt"

	"github.com/google/renameio/v2"

	"github.com/ManuGH/sonox/internal/log"
	"github.com/ManuGH/sonox/internal/platform/paths"
)

// Save writes p as <dir>/<name>.json. The file is replaced atomically so a
// watching Holder never reads a partial preset.
func Save(dir, name string, p Preset) (string, error) {
	if err := p.validate(); err != nil {
		return "", &PresetParseError{Source: name, Err: err}
	}
	path, err := paths.Resolve(dir, name+".json", true)
	if err != nil {
		return "", fmt.Errorf("preset name %q: %w", name, err)
	}
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode preset: %w", err)
	}

	pending, err := renameio.NewPendingFile(path)
	if err != nil {
		return "", fmt.Errorf("create pending preset file: %w", err)
	}
	defer func() {
		if err := pending.Cleanup(); err != nil {
			logger := log.WithComponent("preset")
			logger.Debug().Err(err).Msg("cleanup pending preset file")
		}
	}()
	if _, err := pending.Write(append(data, '\n')); err != nil {
		return "", fmt.Errorf("write preset data: %w", err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return "", fmt.Errorf("atomically replace preset file: %w", err)
	}
	return path, nil
}
