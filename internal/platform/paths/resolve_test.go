// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package paths

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "doorbell.mp3"), []byte("id3"), 0o600))
	require.NoError(t, os.Mkdir(filepath.Join(root, "sub"), 0o750))

	realRoot, err := filepath.EvalSymlinks(root)
	require.NoError(t, err)

	got, err := Resolve(root, "doorbell.mp3", false)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(realRoot, "doorbell.mp3"), got)

	_, err = Resolve(root, "missing.mp3", false)
	assert.ErrorIs(t, err, ErrNotFound)

	got, err = Resolve(root, "new.json", true)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(realRoot, "new.json"), got)

	for _, bad := range []string{"../etc/passwd", "/etc/passwd", "sub/../../x"} {
		_, err = Resolve(root, bad, true)
		assert.ErrorIs(t, err, ErrOutsideRoot, bad)
	}

	_, err = Resolve(root, "sub", false)
	assert.ErrorContains(t, err, "directory")

	_, err = Resolve(root, "", true)
	assert.Error(t, err)
}

func TestResolveRejectsSymlinkEscape(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	target := filepath.Join(outside, "secret.mp3")
	require.NoError(t, os.WriteFile(target, []byte("x"), 0o600))
	if err := os.Symlink(target, filepath.Join(root, "link.mp3")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	_, err := Resolve(root, "link.mp3", false)
	assert.ErrorIs(t, err, ErrOutsideRoot)
}
