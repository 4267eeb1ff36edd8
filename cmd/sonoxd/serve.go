// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/ManuGH/sonox/internal/daemon"
	sxlog "github.com/ManuGH/sonox/internal/log"
	"github.com/ManuGH/sonox/internal/version"
)

func newServeCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP service (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), flags)
		},
	}
}

func runServe(ctx context.Context, flags *globalFlags) error {
	rt, err := loadRuntime(ctx, flags)
	if err != nil {
		return err
	}
	defer func() { _ = sxlog.Close() }()

	rt.Logger.Info().
		Str(sxlog.FieldEvent, "daemon.starting").
		Str("version", version.String()).
		Msg("starting sonox")

	if err := daemon.NewApp(rt).Run(ctx); err != nil {
		rt.Logger.Error().Err(err).Str(sxlog.FieldEvent, "daemon.failed").Msg("daemon stopped with error")
		return err
	}
	rt.Logger.Info().Str(sxlog.FieldEvent, "daemon.stopped").Msg("server exited gracefully")
	return nil
}
