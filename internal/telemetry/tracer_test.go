// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestNewProvider_Disabled(t *testing.T) {
	provider, err := NewProvider(context.Background(), Config{Enabled: false, ExporterType: "grpc"})
	require.NoError(t, err)
	assert.Nil(t, provider.tp)

	_, span := otel.Tracer("test").Start(context.Background(), "noop-check")
	assert.False(t, span.IsRecording(), "disabled telemetry installs a noop provider")
	span.End()

	require.NoError(t, provider.Shutdown(context.Background()))
}

func TestNewProvider_InvalidExporter(t *testing.T) {
	_, err := NewProvider(context.Background(), Config{Enabled: true, ExporterType: "invalid"})
	require.EqualError(t, err, "unsupported exporter type: invalid (supported: grpc, http)")
}

func TestNewProvider_HTTPExporterRecordsSpans(t *testing.T) {
	provider, err := NewProvider(context.Background(), Config{
		Enabled:      true,
		ExporterType: "http",
		Endpoint:     "127.0.0.1:4318",
		Insecure:     true,
		SamplingRate: 1.0,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = provider.Shutdown(context.Background())
		_, _ = NewProvider(context.Background(), Config{Enabled: false})
	})
	require.NotNil(t, provider.tp)

	_, span := Tracer("test").Start(context.Background(), "recording-check")
	assert.True(t, span.IsRecording())
	assert.True(t, span.SpanContext().IsSampled())
}

func TestProvider_ShutdownNil(t *testing.T) {
	var p *Provider
	require.NoError(t, p.Shutdown(context.Background()))
	require.NoError(t, (&Provider{}).Shutdown(context.Background()))
}
