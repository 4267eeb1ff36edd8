// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReloadSwapsAndNotifies(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "sonox.yaml", "dataDir: "+dir+"\nannounce:\n  defaultVolume: 20\n")
	loader := NewLoader(path, "test")
	initial, err := loader.Load()
	require.NoError(t, err)

	h := NewConfigHolder(initial, loader, path)
	ch := make(chan AppConfig, 1)
	h.RegisterListener(ch)

	require.NoError(t, os.WriteFile(path, []byte("dataDir: "+dir+"\nannounce:\n  defaultVolume: 30\n"), 0o600))
	require.NoError(t, h.Reload(context.Background()))

	assert.Equal(t, 30, h.Get().Announce.DefaultVolume)
	select {
	case got := <-ch:
		assert.Equal(t, 30, got.Announce.DefaultVolume)
	default:
		t.Fatal("listener not notified")
	}
}

func TestReloadKeepsOldConfigOnError(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "sonox.yaml", "dataDir: "+dir+"\n")
	loader := NewLoader(path, "test")
	initial, err := loader.Load()
	require.NoError(t, err)
	h := NewConfigHolder(initial, loader, path)

	require.NoError(t, os.WriteFile(path, []byte("dataDir: "+dir+"\nbogus: true\n"), 0o600))
	assert.Error(t, h.Reload(context.Background()))
	assert.Equal(t, initial, h.Get())
}

func TestWatcherReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "sonox.yaml", "dataDir: "+dir+"\n")
	loader := NewLoader(path, "test")
	initial, err := loader.Load()
	require.NoError(t, err)

	h := NewConfigHolder(initial, loader, path)
	h.debounce = 20 * time.Millisecond
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, h.StartWatcher(ctx))

	require.NoError(t, os.WriteFile(path, []byte("dataDir: "+dir+"\nannounce:\n  defaultVolume: 12\n"), 0o600))
	assert.Eventually(t, func() bool {
		return h.Get().Announce.DefaultVolume == 12
	}, 3*time.Second, 20*time.Millisecond)
}

func TestWatcherDisabledWithoutPath(t *testing.T) {
	h := NewConfigHolder(Defaults(), NewLoader("", "test"), "")
	assert.NoError(t, h.StartWatcher(context.Background()))
	h.Stop()
}
