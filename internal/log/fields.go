// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldService   = "service"
	FieldVersion   = "version"
	FieldRequestID = "request_id"
	FieldRunID     = "run_id"

	// Process fields
	FieldEvent     = "event"
	FieldComponent = "component"
	FieldPolicy    = "policy"
	FieldOutcome   = "outcome"

	// Topology fields
	FieldRoom        = "room"
	FieldNodeID      = "node_id"
	FieldCoordinator = "coordinator"
	FieldTargets     = "targets"
	FieldGroups      = "groups"

	// Transport fields
	FieldURI      = "uri"
	FieldVolume   = "volume"
	FieldState    = "state"
	FieldDuration = "duration_ms"

	// HTTP fields
	FieldMethod = "method"
	FieldPath   = "path"
	FieldStatus = "status"
	FieldRemote = "remote_addr"
)
