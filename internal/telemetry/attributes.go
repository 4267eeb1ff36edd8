// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Attribute keys shared by every span in the service.
const (
	RunIDKey       = "announce.run_id"
	PolicyKey      = "announce.policy"
	TargetsKey     = "announce.targets"
	CoordinatorKey = "announce.coordinator"
	OutcomeKey     = "announce.outcome"
	DurationKey    = "announce.expected_ms"

	RoomKey      = "zone.room"
	OperationKey = "bridge.operation"
	AttemptKey   = "bridge.attempt"

	ErrorKindKey = "error.kind"
)

// RunAttributes describes an announcement run.
func RunAttributes(runID, policy string, expectedMillis int64) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(RunIDKey, runID),
		attribute.String(PolicyKey, policy),
		attribute.Int64(DurationKey, expectedMillis),
	}
}

// BridgeAttributes describes a call to the discovery bridge.
func BridgeAttributes(operation, room string, attempt int) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(OperationKey, operation),
		attribute.Int(AttemptKey, attempt),
	}
	if room != "" {
		attrs = append(attrs, attribute.String(RoomKey, room))
	}
	return attrs
}
