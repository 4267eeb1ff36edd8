// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ManuGH/sonox/internal/preset"
	"github.com/ManuGH/sonox/internal/zone"
)

func newPresetCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preset",
		Short: "Manage playback presets",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List loaded presets",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				rt, err := loadRuntime(cmd.Context(), flags)
				if err != nil {
					return err
				}
				defer func() { _ = rt.Close(context.WithoutCancel(cmd.Context())) }()
				for _, name := range rt.Presets.Names() {
					fmt.Fprintln(cmd.OutOrStdout(), name)
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "capture <name> <room>",
			Short: "Save the current group of room as a preset",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				rt, err := loadRuntime(cmd.Context(), flags)
				if err != nil {
					return err
				}
				defer func() { _ = rt.Close(context.WithoutCancel(cmd.Context())) }()

				groups, err := rt.System.Groups(cmd.Context())
				if err != nil {
					return err
				}
				node, ok := zone.FindRoom(groups, args[1])
				if !ok {
					return fmt.Errorf("%w: room %q", zone.ErrNotFound, args[1])
				}
				g, ok := zone.GroupOf(groups, node.ID)
				if !ok {
					return fmt.Errorf("%w: group of %q", zone.ErrNotFound, args[1])
				}
				path, err := preset.Save(rt.Presets.Dir(), args[0], preset.Capture(g))
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), path)
				return nil
			},
		},
	)
	return cmd
}
