// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ManuGH/sonox/internal/announce"
)

func newAnnounceCmd(flags *globalFlags) *cobra.Command {
	var (
		policy string
		volume int
	)
	cmd := &cobra.Command{
		Use:   "announce <room> <clip>",
		Short: "Play a clip once and restore the previous state",
		Long: `Runs a single announcement without starting the HTTP service.

Against a real bridge no webhook is received in this mode, so completion is
detected by the clip duration alone.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var action string
			switch announce.Policy(policy) {
			case announce.PolicyAll:
				action = "clipall"
			case announce.PolicyAvailable:
				action = "clipavailable"
			default:
				return fmt.Errorf("unknown policy %q (all or available)", policy)
			}
			values := []string{args[1]}
			if volume >= 0 {
				values = append(values, strconv.Itoa(volume))
			}

			rt, err := loadRuntime(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer func() { _ = rt.Close(context.WithoutCancel(cmd.Context())) }()

			res, invokeErr := rt.Actions.Invoke(cmd.Context(), action, args[0], values)
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if invokeErr != nil {
				return invokeErr
			}
			if err := enc.Encode(res); err != nil {
				return err
			}
			if !res.Success {
				return fmt.Errorf("announcement %s did not fully succeed: %s", res.RunID, res.Message)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&policy, "policy", string(announce.PolicyAll), "target policy: all or available")
	cmd.Flags().IntVar(&volume, "volume", -1, "announcement volume 0-100 (default from config)")
	return cmd
}

func newRestoreCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "restore",
		Short: "Replay restores journaled by interrupted runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := loadRuntime(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer func() { _ = rt.Close(context.WithoutCancel(cmd.Context())) }()

			n, err := rt.Announcer.RestorePending(cmd.Context())
			fmt.Fprintf(cmd.OutOrStdout(), "restored %d pending run(s)\n", n)
			return err
		},
	}
}
