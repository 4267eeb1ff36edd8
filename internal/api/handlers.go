// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/ManuGH/sonox/internal/log"
)

// param returns the unescaped route parameter.
func param(r *http.Request, name string) string {
	v := chi.URLParam(r, name)
	if u, err := url.PathUnescape(v); err == nil {
		return u
	}
	return v
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	room := param(r, "room")
	name := param(r, "action")
	values := []string{param(r, "clip")}
	if v := param(r, "volume"); v != "" {
		values = append(values, v)
	}
	s.invoke(w, r, name, room, values)
}

func (s *Server) handlePresetPlay(w http.ResponseWriter, r *http.Request) {
	values := []string{param(r, "preset"), param(r, "source")}
	if t := param(r, "type"); t != "" {
		values = append(values, t)
	}
	s.invoke(w, r, "presetplay", "", values)
}

func (s *Server) invoke(w http.ResponseWriter, r *http.Request, name, room string, values []string) {
	res, err := s.deps.Actions.Invoke(r.Context(), name, room, values)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleActiveRuns(w http.ResponseWriter, _ *http.Request) {
	runs := s.deps.Runs.Active()
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (s *Server) handleAbort(w http.ResponseWriter, r *http.Request) {
	id := param(r, "runID")
	if !s.deps.Runs.Abort(id) {
		writeNotFound(w, "no active announcement "+id)
		return
	}
	logger := log.WithComponentFromContext(r.Context(), "api")
	logger.Info().
		Str(log.FieldEvent, "announce.abort_requested").
		Str(log.FieldRunID, id).
		Msg("announcement aborted")
	w.WriteHeader(http.StatusAccepted)
}
