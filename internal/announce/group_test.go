// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package announce

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/sonox/internal/bus"
	"github.com/ManuGH/sonox/internal/zone"
	"github.com/ManuGH/sonox/internal/zone/memsys"
)

func newGroupFixture(t *testing.T) *memsys.System {
	t.Helper()
	sys := memsys.New(bus.NewMemoryBus())
	seedScenarioA(sys)
	t.Cleanup(func() { _ = sys.Close() })
	return sys
}

func TestIsolateStandaloneIsNoOp(t *testing.T) {
	sys := newGroupFixture(t)
	r := NewReconfigurator(sys)

	require.NoError(t, r.Isolate(context.Background(), "Kitchen"))
	require.NoError(t, r.Isolate(context.Background(), "kitchen"))
	assert.Empty(t, sys.Calls())
}

func TestIsolateCoordinatorHandsOffMembers(t *testing.T) {
	sys := newGroupFixture(t)
	r := NewReconfigurator(sys)

	require.NoError(t, r.Isolate(context.Background(), "Living"))
	assert.Equal(t, []string{"Living"}, layout(t, sys)["Living"])
	assert.Equal(t, []string{"Dining"}, layout(t, sys)["Dining"])
}

func TestAttachIsIdempotent(t *testing.T) {
	sys := newGroupFixture(t)
	r := NewReconfigurator(sys)
	ctx := context.Background()

	require.NoError(t, r.Attach(ctx, "Dining", "Living"))
	require.NoError(t, r.Attach(ctx, "Living", "Living"))
	assert.Empty(t, sys.Calls())

	require.NoError(t, r.Attach(ctx, "Kitchen", "Living"))
	require.NoError(t, r.Attach(ctx, "Kitchen", "Living"))
	assert.Len(t, sys.Calls(), 1)
	assert.Equal(t, []string{"Dining", "Kitchen", "Living"}, layout(t, sys)["Living"])
}

func TestReconfiguratorErrors(t *testing.T) {
	sys := newGroupFixture(t)
	r := NewReconfigurator(sys)
	ctx := context.Background()

	err := r.Isolate(ctx, "Attic")
	var notFound *TargetNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "Attic", notFound.Room)
	assert.ErrorIs(t, err, zone.ErrNotFound)

	sys.SetFault("Kitchen", zone.ErrUnreachable)
	err = r.Attach(ctx, "Kitchen", "Living")
	var groupErr *GroupOperationError
	require.ErrorAs(t, err, &groupErr)
	assert.Equal(t, "attach", groupErr.Op)
	assert.Equal(t, "Living", groupErr.Coordinator)
	assert.ErrorIs(t, err, ErrGroupOperation)
	assert.ErrorIs(t, err, zone.ErrUnreachable)
	assert.Equal(t, "group_operation", ErrorKind(err))
}
