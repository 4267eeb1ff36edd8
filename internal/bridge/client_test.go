// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package bridge

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/sonox/internal/bus"
	"github.com/ManuGH/sonox/internal/resilience"
	"github.com/ManuGH/sonox/internal/zone"
)

const zonesJSON = `[
  {
    "uuid": "RINCON_B",
    "coordinator": {"uuid": "RINCON_B", "roomName": "Living Room", "avTransportUri": "x-rincon-queue:RINCON_B#0",
      "state": {"volume": 30, "playbackState": "PAUSED_PLAYBACK", "trackNo": 3, "elapsedTime": 42, "playMode": {"repeat": "all"}}},
    "members": [
      {"uuid": "RINCON_C", "roomName": "Dining", "avTransportUri": "x-rincon:RINCON_B", "state": {"volume": 35}},
      {"uuid": "RINCON_B", "roomName": "Living Room", "state": {"volume": 30}}
    ]
  },
  {
    "uuid": "RINCON_A",
    "coordinator": {"uuid": "RINCON_A", "roomName": "Office", "state": {"volume": 22, "playbackState": "PLAYING"}},
    "members": [{"uuid": "RINCON_A", "roomName": "Office", "state": {"volume": 22, "playbackState": "PLAYING"}}]
  }
]`

type recorded struct {
	Method string
	Path   string
	Body   string
}

type fakeBridge struct {
	mu       sync.Mutex
	requests []recorded
	zones    func(n int) (int, string)
	command  func(path string) int
	zoneHits atomic.Int32
}

func (f *fakeBridge) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.requests = append(f.requests, recorded{Method: r.Method, Path: r.URL.Path, Body: string(body)})
	f.mu.Unlock()

	if r.URL.Path == "/zones" {
		n := int(f.zoneHits.Add(1))
		status, payload := http.StatusOK, zonesJSON
		if f.zones != nil {
			status, payload = f.zones(n)
		}
		w.WriteHeader(status)
		_, _ = io.WriteString(w, payload)
		return
	}
	status := http.StatusOK
	if f.command != nil {
		status = f.command(r.URL.Path)
	}
	w.WriteHeader(status)
	_, _ = io.WriteString(w, `{"status":"success"}`)
}

func (f *fakeBridge) commands() []recorded {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []recorded
	for _, r := range f.requests {
		if r.Path != "/zones" {
			out = append(out, r)
		}
	}
	return out
}

func newClient(t *testing.T, f *fakeBridge, mut func(*Config)) *Client {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	cfg := Config{
		BaseURL:          srv.URL,
		Timeout:          2 * time.Second,
		Retries:          2,
		Backoff:          time.Millisecond,
		MaxBackoff:       5 * time.Millisecond,
		BreakerThreshold: 5,
		BreakerReset:     time.Minute,
	}
	if mut != nil {
		mut(&cfg)
	}
	return New(cfg, bus.NewMemoryBus())
}

func TestGroupsDecodesCoordinatorFirst(t *testing.T) {
	c := newClient(t, &fakeBridge{}, nil)

	groups, err := c.Groups(context.Background())
	require.NoError(t, err)
	require.Len(t, groups, 2)

	living := groups[0]
	assert.Equal(t, "RINCON_B", living.ID)
	require.Len(t, living.Members, 2)
	assert.Equal(t, "Living Room", living.Members[0].RoomName)
	assert.Equal(t, "Dining", living.Members[1].RoomName)
	assert.Equal(t, zone.RepeatAll, living.Coordinator.State.PlayMode.Repeat)
	assert.Equal(t, 42, living.Coordinator.State.ElapsedTime)
	assert.True(t, groups[1].AnyPlaying())

	nodes, err := c.Nodes(context.Background())
	require.NoError(t, err)
	assert.Len(t, nodes, 3)
}

func TestGroupsCoalescesConcurrentCalls(t *testing.T) {
	release := make(chan struct{})
	f := &fakeBridge{}
	f.zones = func(int) (int, string) {
		<-release
		return http.StatusOK, zonesJSON
	}
	c := newClient(t, f, nil)

	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Groups(context.Background())
			assert.NoError(t, err)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	assert.Equal(t, int32(1), f.zoneHits.Load())
}

func TestGroupsSharedCallSurvivesFirstCallerCancel(t *testing.T) {
	release := make(chan struct{})
	f := &fakeBridge{}
	f.zones = func(int) (int, string) {
		<-release
		return http.StatusOK, zonesJSON
	}
	c := newClient(t, f, nil)

	ctx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := c.Groups(ctx)
		firstErr <- err
	}()
	require.Eventually(t, func() bool { return f.zoneHits.Load() == 1 }, time.Second, 5*time.Millisecond)

	type result struct {
		groups []zone.Group
		err    error
	}
	second := make(chan result, 1)
	go func() {
		groups, err := c.Groups(context.Background())
		second <- result{groups, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancel()
	select {
	case err := <-firstErr:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("cancelled caller did not return")
	}

	close(release)
	res := <-second
	require.NoError(t, res.err)
	assert.NotEmpty(t, res.groups)
	assert.Equal(t, int32(1), f.zoneHits.Load())
}

func TestGroupsRetriesUnavailableBridge(t *testing.T) {
	f := &fakeBridge{}
	f.zones = func(n int) (int, string) {
		if n < 3 {
			return http.StatusServiceUnavailable, "warming up"
		}
		return http.StatusOK, zonesJSON
	}
	c := newClient(t, f, nil)

	_, err := c.Groups(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(3), f.zoneHits.Load())
}

func TestGroupsBadResponse(t *testing.T) {
	f := &fakeBridge{zones: func(int) (int, string) { return http.StatusOK, "{not json" }}
	c := newClient(t, f, nil)

	_, err := c.Groups(context.Background())
	assert.ErrorIs(t, err, ErrBadResponse)
	assert.Equal(t, int32(1), f.zoneHits.Load(), "decode errors are not retried")
}

func TestBreakerOpensAfterFailures(t *testing.T) {
	f := &fakeBridge{zones: func(int) (int, string) { return http.StatusBadGateway, "down" }}
	c := newClient(t, f, func(cfg *Config) {
		cfg.Retries = 0
		cfg.BreakerThreshold = 2
	})
	ctx := context.Background()

	for range 2 {
		_, err := c.Groups(ctx)
		assert.ErrorIs(t, err, zone.ErrUnreachable)
	}
	_, err := c.Groups(ctx)
	assert.ErrorIs(t, err, zone.ErrUnreachable)
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	assert.Equal(t, int32(2), f.zoneHits.Load())
}

func TestNodeCommands(t *testing.T) {
	f := &fakeBridge{}
	c := newClient(t, f, nil)
	ctx := context.Background()

	n, err := c.Node(ctx, "living room")
	require.NoError(t, err)
	assert.Equal(t, "RINCON_B", n.Info().ID)

	require.NoError(t, n.SetVolume(ctx, 30))
	require.NoError(t, n.SetSourceURI(ctx, "x-rincon:RINCON_A", ""))
	require.NoError(t, n.Seek(ctx, 3, 42))
	require.NoError(t, n.PlayFavorite(ctx, "Radio Paradise"))
	require.NoError(t, n.Play(ctx))

	got := f.commands()
	require.Len(t, got, 5)
	assert.Equal(t, recorded{Method: http.MethodPost, Path: "/players/Living Room/volume", Body: `{"level":30}`}, got[0])
	assert.Equal(t, `{"uri":"x-rincon:RINCON_A"}`, got[1].Body)
	assert.Equal(t, `{"trackNo":3,"elapsedTime":42}`, got[2].Body)
	assert.Equal(t, `{"name":"Radio Paradise"}`, got[3].Body)
	assert.Equal(t, "/players/Living Room/play", got[4].Path)
	assert.Equal(t, `{}`, got[4].Body)
}

func TestNodeLookupAndStatusMapping(t *testing.T) {
	f := &fakeBridge{}
	f.command = func(path string) int {
		switch path {
		case "/players/Dining/volume":
			return http.StatusNotFound
		case "/players/Dining/play":
			return http.StatusInternalServerError
		}
		return http.StatusBadRequest
	}
	c := newClient(t, f, nil)
	ctx := context.Background()

	_, err := c.Node(ctx, "Garage")
	assert.ErrorIs(t, err, zone.ErrNotFound)

	n, err := c.Node(ctx, "Dining")
	require.NoError(t, err)
	assert.ErrorIs(t, n.SetVolume(ctx, 10), zone.ErrNotFound)
	assert.ErrorIs(t, n.Play(ctx), zone.ErrUnreachable)
	assert.ErrorIs(t, n.Pause(ctx), ErrBadRequest)
	assert.Len(t, f.commands(), 3, "commands are never retried")

	var berr *Error
	require.ErrorAs(t, n.Pause(ctx), &berr)
	assert.Equal(t, "Dining", berr.Room)
	assert.Equal(t, http.StatusBadRequest, berr.Status)
}

func TestWebhookPublishesEvents(t *testing.T) {
	b := bus.NewMemoryBus()
	sub, err := b.Subscribe(context.Background(), zone.TopicTransport)
	require.NoError(t, err)
	defer sub.Close()

	srv := httptest.NewServer(NewWebhook(b))
	defer srv.Close()
	client := srv.Client()

	post := func(body string) int {
		resp, err := client.Post(srv.URL, "application/json", stringsReader(body))
		require.NoError(t, err)
		_ = resp.Body.Close()
		return resp.StatusCode
	}

	assert.Equal(t, http.StatusNoContent, post(`{"type":"transport-state","data":{"uuid":"RINCON_B","roomName":"Living Room","state":{"playbackState":"STOPPED"}}}`))
	select {
	case msg := <-sub.C():
		evt, ok := msg.(zone.TransportEvent)
		require.True(t, ok)
		assert.Equal(t, "RINCON_B", evt.NodeID)
		assert.Equal(t, zone.StateStopped, evt.State.PlaybackState)
	case <-time.After(time.Second):
		t.Fatal("no event published")
	}

	assert.Equal(t, http.StatusNoContent, post(`{"type":"mute-change","data":{}}`))
	assert.Equal(t, http.StatusBadRequest, post(`not json`))
	assert.Equal(t, http.StatusBadRequest, post(`{"type":"volume-change","data":"x"}`))
}

func TestDecodeTopology(t *testing.T) {
	msg, err := Decode(Event{Type: zone.TopicTopology, Data: json.RawMessage(zonesJSON)})
	require.NoError(t, err)
	evt, ok := msg.(zone.TopologyEvent)
	require.True(t, ok)
	assert.Len(t, evt.Groups, 2)
}

func stringsReader(s string) io.Reader {
	return strings.NewReader(s)
}
