// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"encoding/json"
	"net/http"

	"github.com/ManuGH/sonox/internal/action"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// statusForKind maps an error kind to its HTTP status.
func statusForKind(kind string) int {
	switch kind {
	case "no_eligible_targets":
		return http.StatusConflict
	case "targets_busy":
		return http.StatusLocked
	case "not_found", "preset_not_found", "unknown_action", "target_not_found":
		return http.StatusNotFound
	case "invalid_clip", "clip_probe", "preset_parse", "invalid_request":
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeError classifies err and writes the matching status and body.
func writeError(w http.ResponseWriter, err error) {
	kind := action.ErrorKind(err)
	writeJSON(w, statusForKind(kind), ErrorResponse{Error: kind, Message: err.Error()})
}

func writeNotFound(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "not_found", Message: msg})
}
