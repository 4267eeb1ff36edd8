// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ManuGH/sonox/internal/config"
	"github.com/ManuGH/sonox/internal/daemon"
	sxlog "github.com/ManuGH/sonox/internal/log"
	"github.com/ManuGH/sonox/internal/version"
)

type globalFlags struct {
	configPath string
	envFile    string
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}
	root := &cobra.Command{
		Use:           "sonoxd",
		Short:         "Announcement and restore orchestration for multi-room players",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), flags)
		},
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "path to config file (YAML)")
	root.PersistentFlags().StringVar(&flags.envFile, "env-file", ".env", "optional dotenv file read before the environment")

	root.AddCommand(
		newServeCmd(flags),
		newAnnounceCmd(flags),
		newRestoreCmd(flags),
		newPresetCmd(flags),
		newHealthcheckCmd(),
		newVersionCmd(),
	)
	return root
}

// resolveConfigPath prefers --config and falls back to
// ${SONOX_DATA}/config.yaml when that file exists.
func resolveConfigPath(explicit string) string {
	if p := strings.TrimSpace(explicit); p != "" {
		return p
	}
	dataDir := strings.TrimSpace(config.ParseString("SONOX_DATA", ""))
	if dataDir == "" {
		return ""
	}
	auto := filepath.Join(dataDir, "config.yaml")
	if _, err := os.Stat(auto); err == nil {
		return auto
	}
	return ""
}

// loadRuntime loads the configuration, configures logging and wires the
// service graph.
func loadRuntime(ctx context.Context, flags *globalFlags) (*daemon.Runtime, error) {
	sxlog.Configure(sxlog.Config{Level: "info", Service: "sonox", Version: version.Version})

	path := resolveConfigPath(flags.configPath)
	loader := config.NewLoader(path, version.Version).WithDotEnv(flags.envFile)
	cfg, err := loader.Load()
	if err != nil {
		return nil, err
	}

	logCfg := sxlog.Config{Level: cfg.LogLevel, Service: "sonox", Version: cfg.Version}
	if cfg.LogFile != "" {
		logCfg.File = &sxlog.FileConfig{Path: cfg.LogFile}
	}
	sxlog.Configure(logCfg)

	logger := sxlog.WithComponent("daemon")
	source := "env+defaults"
	if path != "" {
		source = "file"
	}
	logger.Info().
		Str(sxlog.FieldEvent, "config.loaded").
		Str("source", source).
		Str("path", path).
		Msg("configuration loaded")

	return daemon.Build(ctx, config.NewConfigHolder(cfg, loader, path))
}
