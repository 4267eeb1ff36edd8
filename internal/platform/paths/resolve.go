// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package paths confines user-supplied file names to a root directory.
package paths

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrOutsideRoot is returned when a name resolves outside its root.
var ErrOutsideRoot = errors.New("path escapes root directory")

// ErrNotFound is returned for a missing file when allowMissing is false.
var ErrNotFound = errors.New("file not found")

// Resolve maps rel to a file under root. Absolute names, traversal and
// symlinks leaving root are rejected. With allowMissing the file may not
// exist yet, which is what writers need.
func Resolve(root, rel string, allowMissing bool) (string, error) {
	clean := filepath.Clean(rel)
	if rel == "" || clean == "." {
		return "", fmt.Errorf("empty file name")
	}
	if filepath.IsAbs(clean) || !filepath.IsLocal(clean) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, rel)
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolve root: %w", err)
	}
	realRoot, err := filepath.EvalSymlinks(absRoot)
	if err != nil {
		realRoot = absRoot
	}

	full := filepath.Join(absRoot, clean)
	resolved := full
	info, statErr := os.Stat(full)
	switch {
	case statErr == nil:
		if info.IsDir() {
			return "", fmt.Errorf("path points to directory: %s", rel)
		}
		if p, evalErr := filepath.EvalSymlinks(full); evalErr == nil {
			resolved = p
		}
	case !errors.Is(statErr, os.ErrNotExist):
		return "", fmt.Errorf("stat %s: %w", rel, statErr)
	case !allowMissing:
		return "", fmt.Errorf("%w: %s", ErrNotFound, rel)
	default:
		if realDir, evalErr := filepath.EvalSymlinks(filepath.Dir(full)); evalErr == nil {
			resolved = filepath.Join(realDir, filepath.Base(full))
		}
	}

	relToRoot, err := filepath.Rel(realRoot, resolved)
	if err != nil {
		return "", fmt.Errorf("resolve relative path: %w", err)
	}
	if relToRoot == ".." || strings.HasPrefix(relToRoot, ".."+string(filepath.Separator)) || filepath.IsAbs(relToRoot) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, rel)
	}
	return resolved, nil
}
