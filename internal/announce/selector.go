// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package announce

import (
	"context"
	"fmt"
	"strings"

	"github.com/ManuGH/sonox/internal/zone"
)

// Policy decides which nodes an announcement may interrupt.
type Policy string

const (
	// PolicyAll targets every group with no PLAYING member, regrouped into one.
	PolicyAll Policy = "all"
	// PolicyAvailable targets every idle node individually.
	PolicyAvailable Policy = "available"
)

// ParsePolicy accepts the policy names used in config and on the CLI.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "all", "clipall":
		return PolicyAll, nil
	case "available", "clipavailable":
		return PolicyAvailable, nil
	default:
		return "", fmt.Errorf("%w: unknown policy %q", ErrInvalidRequest, s)
	}
}

// Selection is the outcome of target selection for one run.
type Selection struct {
	Policy Policy
	// Coordinator is the node the announcement plays from.
	Coordinator zone.NodeInfo
	// Targets holds every node that will carry the announcement,
	// coordinator first.
	Targets []zone.NodeInfo
	// Snapshots restores the targets once the announcement ends.
	Snapshots []Snapshot
}

// TargetIDs returns the node IDs of the selection in target order.
func (s Selection) TargetIDs() []string {
	out := make([]string, 0, len(s.Targets))
	for _, n := range s.Targets {
		out = append(out, n.ID)
	}
	return out
}

// TargetRooms returns the room names of the selection in target order.
func (s Selection) TargetRooms() []string {
	out := make([]string, 0, len(s.Targets))
	for _, n := range s.Targets {
		out = append(out, n.RoomName)
	}
	return out
}

// Select reads the live topology once and applies policy to it.
func Select(ctx context.Context, sys zone.System, policy Policy) (Selection, error) {
	groups, err := sys.Groups(ctx)
	if err != nil {
		return Selection{}, fmt.Errorf("read topology: %w", err)
	}
	return SelectFrom(groups, policy)
}

// SelectFrom applies policy to an already fetched topology.
func SelectFrom(groups []zone.Group, policy Policy) (Selection, error) {
	sel := Selection{Policy: policy}
	switch policy {
	case PolicyAll:
		sel.Snapshots = CaptureGroups(groups)
		if len(sel.Snapshots) == 0 {
			return Selection{}, &NoEligibleTargetsError{Policy: policy}
		}
		var largest zone.Group
		for _, g := range groups {
			if g.AnyPlaying() {
				continue
			}
			if len(g.Members) > len(largest.Members) {
				largest = g
			}
		}
		sel.Coordinator = largest.Coordinator
		sel.Targets = append(sel.Targets, largest.Coordinator)
		for _, g := range groups {
			if g.AnyPlaying() {
				continue
			}
			for _, m := range g.Members {
				if m.ID != largest.Coordinator.ID {
					sel.Targets = append(sel.Targets, m)
				}
			}
		}
	case PolicyAvailable:
		nodes := zone.NodesOf(groups)
		sel.Snapshots = CaptureNodes(nodes)
		if len(sel.Snapshots) == 0 {
			return Selection{}, &NoEligibleTargetsError{Policy: policy}
		}
		for _, n := range nodes {
			if !n.IsPlaying() {
				sel.Targets = append(sel.Targets, n)
			}
		}
		sel.Coordinator = sel.Targets[0]
	default:
		return Selection{}, fmt.Errorf("%w: unknown policy %q", ErrInvalidRequest, policy)
	}
	return sel, nil
}
