// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package announce

import (
	"context"
	"fmt"
	"sort"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ManuGH/sonox/internal/bus"
	"github.com/ManuGH/sonox/internal/store"
	"github.com/ManuGH/sonox/internal/zone"
	"github.com/ManuGH/sonox/internal/zone/memsys"
)

const clipURI = "http://192.168.1.10:5005/clips/doorbell.mp3"

func testConfig() Config {
	return Config{
		RestorePadding:     150 * time.Millisecond,
		ConvergenceTimeout: 200 * time.Millisecond,
		LockWaitTimeout:    50 * time.Millisecond,
		LockRetryInterval:  10 * time.Millisecond,
		RestoreTimeout:     2 * time.Second,
		LeaseSlack:         time.Second,
	}
}

type fixture struct {
	sys   *memsys.System
	store *store.MemoryStore
	ann   *Announcer
}

func newFixture(t *testing.T, opts ...memsys.Option) *fixture {
	t.Helper()
	sys := memsys.New(bus.NewMemoryBus(), opts...)
	st := store.NewMemoryStore()
	var seq atomic.Int64
	ann := New(sys, st, testConfig(), WithIDGenerator(func() string {
		return fmt.Sprintf("run-%d", seq.Add(1))
	}))
	t.Cleanup(func() { _ = sys.Close() })
	return &fixture{sys: sys, store: st, ann: ann}
}

// seedScenarioA builds Office playing, Living+Dining idle, Kitchen idle.
func seedScenarioA(sys *memsys.System) {
	sys.AddGroup(memsys.Room{ID: "A", Name: "Office", Volume: 22, State: zone.StatePlaying, URI: "x-sonosapi-stream:s1234"})
	sys.AddGroup(
		memsys.Room{ID: "B", Name: "Living", Volume: 30, State: zone.StatePaused, URI: "x-rincon-queue:B#0", TrackNo: 3, Elapsed: 42, Repeat: zone.RepeatAll},
		memsys.Room{ID: "C", Name: "Dining", Volume: 35},
	)
	sys.AddGroup(memsys.Room{ID: "D", Name: "Kitchen", Volume: 18, URI: "x-rincon-queue:D#0"})
}

func layout(t *testing.T, sys zone.System) map[string][]string {
	t.Helper()
	groups, err := sys.Groups(context.Background())
	require.NoError(t, err)
	out := make(map[string][]string)
	for _, g := range groups {
		var rooms []string
		for _, m := range g.Members {
			rooms = append(rooms, m.RoomName)
		}
		sort.Strings(rooms)
		out[g.Coordinator.RoomName] = rooms
	}
	return out
}

func nodeInfo(t *testing.T, sys zone.System, room string) zone.NodeInfo {
	t.Helper()
	n, err := sys.Node(context.Background(), room)
	require.NoError(t, err)
	return n.Info()
}

func callsFor(sys *memsys.System, room string) []memsys.Call {
	var out []memsys.Call
	for _, c := range sys.Calls() {
		if c.Room == room {
			out = append(out, c)
		}
	}
	return out
}
