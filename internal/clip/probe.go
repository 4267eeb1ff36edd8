// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package clip

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"time"

	"github.com/ManuGH/sonox/internal/log"
)

const maxStderr = 4096

// FFprobe reads durations with the ffprobe binary.
type FFprobe struct {
	// Bin is the ffprobe executable, looked up in PATH when relative.
	Bin     string
	Timeout time.Duration
}

// NewFFprobe returns a prober using bin.
func NewFFprobe(bin string, timeout time.Duration) *FFprobe {
	if bin == "" {
		bin = "ffprobe"
	}
	return &FFprobe{Bin: bin, Timeout: timeout}
}

type probeData struct {
	Format struct {
		FormatName string `json:"format_name"`
		Duration   string `json:"duration"`
	} `json:"format"`
}

// Duration runs ffprobe on path and returns format.duration.
func (p *FFprobe) Duration(ctx context.Context, path string) (time.Duration, error) {
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	// #nosec G204 -- binary comes from operator config; path was confined to the clips dir
	cmd := exec.CommandContext(ctx, p.Bin, "-v", "error", "-print_format", "json", "-show_format", path)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	d, parseErr := ParseDuration(out)
	if parseErr == nil {
		if err != nil {
			logger := log.WithComponentFromContext(ctx, "clip")
			logger.Warn().Err(err).Str("path", path).Str("stderr", truncate(stderr.String())).
				Msg("ffprobe non-zero exit but duration accepted")
		}
		return d, nil
	}
	if err != nil {
		return 0, fmt.Errorf("ffprobe failed: %w (stderr: %s)", err, truncate(stderr.String()))
	}
	return 0, parseErr
}

// ParseDuration extracts format.duration from ffprobe JSON output.
func ParseDuration(out []byte) (time.Duration, error) {
	if len(bytes.TrimSpace(out)) == 0 {
		return 0, errors.New("ffprobe returned no output")
	}
	var data probeData
	if err := json.Unmarshal(out, &data); err != nil {
		return 0, fmt.Errorf("json decode: %w", err)
	}
	if data.Format.Duration == "" {
		return 0, errors.New("ffprobe output has no duration")
	}
	secs, err := strconv.ParseFloat(data.Format.Duration, 64)
	if err != nil || secs <= 0 {
		return 0, fmt.Errorf("invalid duration %q", data.Format.Duration)
	}
	return time.Duration(secs * float64(time.Second)), nil
}

func truncate(s string) string {
	if len(s) > maxStderr {
		return s[:maxStderr] + "..."
	}
	return s
}
