// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/attribute"
)

func TestRunAttributes(t *testing.T) {
	attrs := RunAttributes("run-1", "all", 5000)
	assert.Contains(t, attrs, attribute.String(RunIDKey, "run-1"))
	assert.Contains(t, attrs, attribute.String(PolicyKey, "all"))
	assert.Contains(t, attrs, attribute.Int64(DurationKey, 5000))
}

func TestBridgeAttributesOmitsEmptyRoom(t *testing.T) {
	assert.Len(t, BridgeAttributes("zones", "", 1), 2)
	attrs := BridgeAttributes("volume", "Kitchen", 2)
	assert.Contains(t, attrs, attribute.String(RoomKey, "Kitchen"))
	assert.Contains(t, attrs, attribute.Int(AttemptKey, 2))
}
