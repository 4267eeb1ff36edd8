// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package clip resolves announcement clips: file lookup in the clips
// directory, the URI nodes fetch them from and their play duration.
package clip

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/ManuGH/sonox/internal/platform/paths"
)

// ErrInvalidClip is returned for clip names that are empty, contain path
// separators or do not name a file in the clips directory.
var ErrInvalidClip = errors.New("invalid clip")

// ErrProbe is returned when a clip exists but its duration cannot be read.
var ErrProbe = errors.New("clip probe failed")

// Prober reports how long an audio file plays.
type Prober interface {
	Duration(ctx context.Context, path string) (time.Duration, error)
}

// Clip is a resolved, playable clip.
type Clip struct {
	Name     string
	Path     string
	URI      string
	Duration time.Duration
}

// Library serves clips from one directory.
type Library struct {
	dir     string
	baseURL string
	prober  Prober
}

// NewLibrary returns a library for dir. publicBaseURL is the address nodes
// use to reach this service.
func NewLibrary(dir, publicBaseURL string, prober Prober) *Library {
	return &Library{
		dir:     dir,
		baseURL: strings.TrimSuffix(publicBaseURL, "/"),
		prober:  prober,
	}
}

// Dir returns the clips directory.
func (l *Library) Dir() string { return l.dir }

// ValidateName rejects names that could leave the clips directory.
func ValidateName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return fmt.Errorf("%w: empty name", ErrInvalidClip)
	case strings.ContainsAny(name, `/\`):
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidClip, name)
	case strings.Contains(name, ".."):
		return fmt.Errorf("%w: %q contains traversal", ErrInvalidClip, name)
	}
	return nil
}

// URI returns the address a node fetches name from.
func (l *Library) URI(name string) string {
	return l.baseURL + "/clips/" + url.PathEscape(name)
}

// Resolve validates name, locates the file and probes its duration.
func (l *Library) Resolve(ctx context.Context, name string) (Clip, error) {
	if err := ValidateName(name); err != nil {
		return Clip{}, err
	}
	path, err := paths.Resolve(l.dir, name, false)
	if err != nil {
		return Clip{}, fmt.Errorf("%w: %v", ErrInvalidClip, err)
	}
	d, err := l.prober.Duration(ctx, path)
	if err != nil {
		return Clip{}, fmt.Errorf("%w for %s: %w", ErrProbe, name, err)
	}
	return Clip{Name: name, Path: path, URI: l.URI(name), Duration: d}, nil
}

// List returns the clip file names, sorted.
func (l *Library) List() ([]string, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, fmt.Errorf("read clips dir: %w", err)
	}
	var out []string
	for _, e := range entries {
		if e.Type().IsRegular() && !strings.HasPrefix(e.Name(), ".") {
			out = append(out, e.Name())
		}
	}
	sort.Strings(out)
	return out, nil
}

// Handler serves the clips directory. Listings are disabled.
func (l *Library) Handler() http.Handler {
	fs := http.FileServer(http.Dir(l.dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		fs.ServeHTTP(w, r)
	})
}
