// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/sonox/internal/action"
	"github.com/ManuGH/sonox/internal/announce"
	"github.com/ManuGH/sonox/internal/bridge"
	"github.com/ManuGH/sonox/internal/bus"
	"github.com/ManuGH/sonox/internal/clip"
	"github.com/ManuGH/sonox/internal/health"
	"github.com/ManuGH/sonox/internal/preset"
	"github.com/ManuGH/sonox/internal/zone"
)

type call struct {
	Name   string
	Room   string
	Values []string
}

type stubInvoker struct {
	mu    sync.Mutex
	calls []call
	res   announce.Result
	err   error
}

func (s *stubInvoker) Invoke(_ context.Context, name, room string, values []string) (announce.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, call{Name: name, Room: room, Values: values})
	return s.res, s.err
}

func (s *stubInvoker) last() call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[len(s.calls)-1]
}

type stubRuns struct {
	runs    []announce.RunInfo
	aborted []string
}

func (s *stubRuns) Active() []announce.RunInfo { return s.runs }

func (s *stubRuns) Abort(id string) bool {
	for _, r := range s.runs {
		if r.ID == id {
			s.aborted = append(s.aborted, id)
			return true
		}
	}
	return false
}

func newTestServer(t *testing.T, inv *stubInvoker, runs *stubRuns, b *bus.MemoryBus) *httptest.Server {
	t.Helper()
	clipsDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(clipsDir, "bell.mp3"), []byte("ID3"), 0o600))
	lib := clip.NewLibrary(clipsDir, "http://sonox.local:8090", nil)

	h := health.NewManager("test")
	h.RegisterChecker(health.NewPingChecker("bridge", func(context.Context) error { return nil }))

	srv := New(Deps{
		Actions:   inv,
		Runs:      runs,
		Events:    b,
		Webhook:   bridge.NewWebhook(b),
		Clips:     lib.Handler(),
		Health:    h,
		RateLimit: 0,
	})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func get(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func TestActionRoutes(t *testing.T) {
	inv := &stubInvoker{res: announce.Result{RunID: "run-1", Success: true, Message: "announced on 2 rooms"}}
	ts := newTestServer(t, inv, &stubRuns{}, bus.NewMemoryBus())

	resp, body := get(t, ts.URL+"/Living%20Room/clipall/door%20bell.mp3/35")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, call{Name: "clipall", Room: "Living Room", Values: []string{"door bell.mp3", "35"}}, inv.last())

	var res announce.Result
	require.NoError(t, json.Unmarshal(body, &res))
	assert.Equal(t, "run-1", res.RunID)
	assert.True(t, res.Success)

	resp, _ = get(t, ts.URL+"/Office/clipavailable/bell.mp3")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, call{Name: "clipavailable", Room: "Office", Values: []string{"bell.mp3"}}, inv.last())

	resp, _ = get(t, ts.URL+"/presetplay/evening/Radio%20Paradise/plist")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, call{Name: "presetplay", Values: []string{"evening", "Radio Paradise", "plist"}}, inv.last())

	resp, _ = get(t, ts.URL+"/presetplay/evening/Radio%20Paradise")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"evening", "Radio Paradise"}, inv.last().Values)
}

func TestActionErrorMapping(t *testing.T) {
	tests := []struct {
		err    error
		status int
		kind   string
	}{
		{&announce.NoEligibleTargetsError{Policy: announce.PolicyAvailable}, http.StatusConflict, "no_eligible_targets"},
		{announce.ErrTargetsBusy, http.StatusLocked, "targets_busy"},
		{fmt.Errorf("%w: nope", action.ErrUnknownAction), http.StatusNotFound, "unknown_action"},
		{fmt.Errorf("room: %w", zone.ErrNotFound), http.StatusNotFound, "not_found"},
		{fmt.Errorf("%w: ../x", clip.ErrInvalidClip), http.StatusBadRequest, "invalid_clip"},
		{&preset.PresetParseError{Source: "inline", Err: io.ErrUnexpectedEOF}, http.StatusBadRequest, "preset_parse"},
		{fmt.Errorf("%w: volume", announce.ErrInvalidRequest), http.StatusBadRequest, "invalid_request"},
		{io.ErrClosedPipe, http.StatusInternalServerError, "internal"},
	}
	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			ts := newTestServer(t, &stubInvoker{err: tt.err}, &stubRuns{}, bus.NewMemoryBus())
			resp, body := get(t, ts.URL+"/Office/clipall/bell.mp3")
			assert.Equal(t, tt.status, resp.StatusCode)

			var er ErrorResponse
			require.NoError(t, json.Unmarshal(body, &er))
			assert.False(t, er.Success)
			assert.Equal(t, tt.kind, er.Error)
			assert.NotEmpty(t, er.Message)
		})
	}
}

func TestRunControl(t *testing.T) {
	runs := &stubRuns{runs: []announce.RunInfo{{ID: "run-7", Policy: announce.PolicyAll, Coordinator: "Office", Phase: "waiting"}}}
	ts := newTestServer(t, &stubInvoker{}, runs, bus.NewMemoryBus())

	resp, body := get(t, ts.URL+"/announcements")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"runId":"run-7"`)

	del := func(id string) int {
		req, err := http.NewRequest(http.MethodDelete, ts.URL+"/announcements/"+id, nil)
		require.NoError(t, err)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		_ = resp.Body.Close()
		return resp.StatusCode
	}
	assert.Equal(t, http.StatusAccepted, del("run-7"))
	assert.Equal(t, http.StatusNotFound, del("run-8"))
	assert.Equal(t, []string{"run-7"}, runs.aborted)
}

func TestWebhookClipsAndProbes(t *testing.T) {
	b := bus.NewMemoryBus()
	sub, err := b.Subscribe(context.Background(), zone.TopicVolume)
	require.NoError(t, err)
	defer sub.Close()
	ts := newTestServer(t, &stubInvoker{}, &stubRuns{}, b)

	resp, err := http.Post(ts.URL+"/events", "application/json",
		strings.NewReader(`{"type":"volume-change","data":{"roomName":"Office","previousVolume":3,"newVolume":9}}`))
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	select {
	case msg := <-sub.C():
		assert.Equal(t, 9, msg.(zone.VolumeEvent).New)
	case <-time.After(time.Second):
		t.Fatal("webhook event not published")
	}

	resp, body := get(t, ts.URL+"/clips/bell.mp3")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ID3", string(body))

	resp, _ = get(t, ts.URL+"/clips/")
	assert.NotEqual(t, http.StatusOK, resp.StatusCode, "no directory listings")

	resp, _ = get(t, ts.URL+"/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = get(t, ts.URL+"/readyz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp, body = get(t, ts.URL+"/metrics")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "sonox_http_request_duration_seconds")

	resp, body = get(t, ts.URL+"/just-one-segment")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, string(body), `"not_found"`)
}

func TestEventStream(t *testing.T) {
	b := bus.NewMemoryBus()
	ts := newTestServer(t, &stubInvoker{}, &stubRuns{}, b)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/events/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return b.Subscribers(zone.TopicTransport) == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, b.Publish(context.Background(), zone.TopicTransport,
		zone.TransportEvent{NodeID: "A", RoomName: "Office", State: zone.PlayerState{PlaybackState: zone.StatePlaying}}))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var got struct {
		Type string              `json:"type"`
		Data zone.TransportEvent `json:"data"`
	}
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, zone.TopicTransport, got.Type)
	assert.Equal(t, "Office", got.Data.RoomName)
	assert.Equal(t, zone.StatePlaying, got.Data.State.PlaybackState)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return b.Subscribers(zone.TopicTransport) == 0 }, 2*time.Second, 10*time.Millisecond)
}
