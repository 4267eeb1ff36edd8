// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package bridge

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/ManuGH/sonox/internal/zone"
)

var (
	// ErrBadRequest is returned when the bridge rejected a command (4xx other than 404).
	ErrBadRequest = errors.New("bridge: request rejected")
	// ErrBadResponse is returned for responses that cannot be decoded.
	ErrBadResponse = errors.New("bridge: invalid response format or malformed data")
)

// Error wraps a zone or bridge sentinel with request context.
type Error struct {
	Sentinel  error
	Operation string
	Room      string
	Status    int
	Body      string
	Err       error // Nested lower-level error (e.g. net.Error)
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("bridge: %s: %v", e.Operation, e.Sentinel)
	if e.Room != "" {
		msg = fmt.Sprintf("bridge: %s %s: %v", e.Operation, e.Room, e.Sentinel)
	}
	if e.Status > 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.Status)
	}
	if e.Body != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Body)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap exposes both the sentinel and the cause to errors.Is.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Sentinel}
	}
	return []error{e.Sentinel, e.Err}
}

// sentinelForStatus maps a bridge HTTP status to a sentinel error.
func sentinelForStatus(status int) error {
	switch {
	case status == http.StatusNotFound:
		return zone.ErrNotFound
	case status >= 500:
		return zone.ErrUnreachable
	default:
		return ErrBadRequest
	}
}
