// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package health

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ManuGH/sonox/internal/config"
	"github.com/ManuGH/sonox/internal/log"
)

// PerformStartupChecks validates the environment before the server starts.
func PerformStartupChecks(_ context.Context, cfg config.AppConfig) error {
	logger := log.WithComponent("startup-check")
	logger.Info().Msg("running pre-flight startup checks")

	if err := checkWritableDir(logger, cfg.DataDir); err != nil {
		return fmt.Errorf("data directory check failed: %w", err)
	}
	if err := checkListenAddr(logger, cfg.HTTP.ListenAddr); err != nil {
		return err
	}
	checkClips(logger, cfg.Clips)

	if strings.EqualFold(cfg.Store.Backend, "memory") {
		logger.Warn().Msg("in-memory store: pending restores are lost on restart")
	}
	if cfg.Bridge.Simulate {
		logger.Warn().Msg("running against the built-in simulator, no real nodes are driven")
	}

	logger.Info().Msg("all startup checks passed")
	return nil
}

func checkWritableDir(logger zerolog.Logger, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("directory does not exist: %s", path)
		}
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", path)
	}

	testFile := filepath.Join(path, ".write_test")
	if err := os.WriteFile(testFile, []byte("ok"), 0600); err != nil {
		return fmt.Errorf("directory is not writable: %s (error: %v)", path, err)
	}
	_ = os.Remove(testFile)

	logger.Info().Str("path", path).Msg("data directory is writable")
	return nil
}

func checkListenAddr(logger zerolog.Logger, addr string) error {
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid listen address %q: %w", addr, err)
	}
	portNum, err := strconv.Atoi(port)
	if err != nil || portNum < 0 || portNum > 65535 {
		return fmt.Errorf("invalid listen port %q in %q", port, addr)
	}
	logger.Info().Str("addr", addr).Msg("listen address is valid")
	return nil
}

// checkClips only warns: announcements fail per request when clips or
// ffprobe are missing, the rest of the service keeps working.
func checkClips(logger zerolog.Logger, cfg config.ClipsConfig) {
	if info, err := os.Stat(cfg.Dir); err != nil || !info.IsDir() {
		logger.Warn().Str("dir", cfg.Dir).Msg("clips directory is missing")
	}
	bin := strings.TrimSpace(cfg.FFprobePath)
	if bin == "" {
		bin = "ffprobe"
	}
	if _, err := exec.LookPath(bin); err != nil {
		logger.Warn().Err(err).Str("ffprobe", bin).Msg("ffprobe not found, clip durations cannot be probed")
	}
}
