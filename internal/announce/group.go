// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package announce

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ManuGH/sonox/internal/zone"
)

// Reconfigurator moves nodes between groups. Both operations are idempotent
// and issue no command when the node is already where it should be.
type Reconfigurator struct {
	sys zone.System
}

// NewReconfigurator returns a Reconfigurator driving sys.
func NewReconfigurator(sys zone.System) *Reconfigurator {
	return &Reconfigurator{sys: sys}
}

func (r *Reconfigurator) lookup(ctx context.Context, room string) (zone.Node, error) {
	n, err := r.sys.Node(ctx, room)
	if err != nil {
		if errors.Is(err, zone.ErrNotFound) {
			return nil, &TargetNotFoundError{Room: room, Err: err}
		}
		return nil, &GroupOperationError{Op: "lookup", Room: room, Err: err}
	}
	return n, nil
}

// Isolate makes room the only member of its own group.
func (r *Reconfigurator) Isolate(ctx context.Context, room string) error {
	n, err := r.lookup(ctx, room)
	if err != nil {
		return err
	}
	groups, err := r.sys.Groups(ctx)
	if err != nil {
		return &GroupOperationError{Op: "isolate", Room: room, Err: fmt.Errorf("read topology: %w", err)}
	}
	id := n.Info().ID
	if g, ok := zone.GroupOf(groups, id); ok && g.Standalone() && g.Coordinator.ID == id {
		return nil
	}
	if err := n.BecomeStandaloneCoordinator(ctx); err != nil {
		return &GroupOperationError{Op: "isolate", Room: room, Err: err}
	}
	return nil
}

// Attach joins room to the group coordinated by coordinatorRoom.
func (r *Reconfigurator) Attach(ctx context.Context, room, coordinatorRoom string) error {
	if strings.EqualFold(room, coordinatorRoom) {
		return nil
	}
	n, err := r.lookup(ctx, room)
	if err != nil {
		return err
	}
	coord, err := r.lookup(ctx, coordinatorRoom)
	if err != nil {
		return err
	}
	groups, err := r.sys.Groups(ctx)
	if err != nil {
		return &GroupOperationError{Op: "attach", Room: room, Coordinator: coordinatorRoom, Err: fmt.Errorf("read topology: %w", err)}
	}
	nodeID := n.Info().ID
	coordID := coord.Info().ID
	if g, ok := zone.GroupOf(groups, coordID); ok && g.Coordinator.ID == coordID && g.Contains(nodeID) {
		return nil
	}
	if err := n.SetSourceURI(ctx, zone.GroupURI(coordID), ""); err != nil {
		return &GroupOperationError{Op: "attach", Room: room, Coordinator: coordinatorRoom, Err: err}
	}
	return nil
}
