// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package clip

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedProber struct {
	d    time.Duration
	err  error
	seen []string
}

func (p *fixedProber) Duration(_ context.Context, path string) (time.Duration, error) {
	p.seen = append(p.seen, path)
	return p.d, p.err
}

func newLib(t *testing.T, p Prober) *Library {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "doorbell.mp3"), []byte("ID3"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "front door.mp3"), []byte("ID3"), 0o600))
	return NewLibrary(dir, "http://192.168.1.10:8090/", p)
}

func TestResolve(t *testing.T) {
	p := &fixedProber{d: 3200 * time.Millisecond}
	lib := newLib(t, p)

	c, err := lib.Resolve(context.Background(), "front door.mp3")
	require.NoError(t, err)
	assert.Equal(t, "http://192.168.1.10:8090/clips/front%20door.mp3", c.URI)
	assert.Equal(t, 3200*time.Millisecond, c.Duration)
	assert.Equal(t, "front door.mp3", filepath.Base(c.Path))
	assert.Len(t, p.seen, 1)
}

func TestResolveRejectsBadNames(t *testing.T) {
	lib := newLib(t, &fixedProber{d: time.Second})
	for _, name := range []string{"", "  ", "../secret.mp3", "sub/clip.mp3", `a\b.mp3`, "missing.mp3"} {
		_, err := lib.Resolve(context.Background(), name)
		assert.ErrorIs(t, err, ErrInvalidClip, name)
	}
}

func TestResolveProbeFailure(t *testing.T) {
	boom := errors.New("not audio")
	lib := newLib(t, &fixedProber{err: boom})
	_, err := lib.Resolve(context.Background(), "doorbell.mp3")
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, err, ErrProbe)
	assert.NotErrorIs(t, err, ErrInvalidClip)
}

func TestList(t *testing.T) {
	lib := newLib(t, &fixedProber{})
	require.NoError(t, os.WriteFile(filepath.Join(lib.Dir(), ".hidden"), nil, 0o600))
	names, err := lib.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"doorbell.mp3", "front door.mp3"}, names)
}

func TestHandlerServesFilesOnly(t *testing.T) {
	lib := newLib(t, &fixedProber{})
	srv := httptest.NewServer(http.StripPrefix("/clips", lib.Handler()))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/clips/doorbell.mp3")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/clips/")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestParseDuration(t *testing.T) {
	d, err := ParseDuration([]byte(`{"format":{"format_name":"mp3","duration":"2.508000"}}`))
	require.NoError(t, err)
	assert.Equal(t, 2508*time.Millisecond, d)

	for _, bad := range []string{``, `not json`, `{"format":{}}`, `{"format":{"duration":"-1"}}`} {
		_, err := ParseDuration([]byte(bad))
		assert.Error(t, err, bad)
	}
}

func TestFFprobeRunsBinary(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script stand-in")
	}
	dir := t.TempDir()
	bin := filepath.Join(dir, "ffprobe")
	script := "#!/bin/sh\necho '{\"format\":{\"format_name\":\"mp3\",\"duration\":\"1.5\"}}'\n"
	require.NoError(t, os.WriteFile(bin, []byte(script), 0o700))

	d, err := NewFFprobe(bin, time.Second).Duration(context.Background(), "/dev/null")
	require.NoError(t, err)
	assert.Equal(t, 1500*time.Millisecond, d)
}

func TestFFprobeMissingBinary(t *testing.T) {
	_, err := NewFFprobe(filepath.Join(t.TempDir(), "nope"), time.Second).Duration(context.Background(), "x.mp3")
	assert.ErrorContains(t, err, "ffprobe failed")
}
