// AngelaMos | 2026
// telemetry_test.go

package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"github.com/ccdexplorer/ccdexplorer-api/internal/config"
)

func TestTelemetryWithoutExport(t *testing.T) {
	ctx := context.Background()
	cfg := &config.Config{
		App:      config.AppConfig{Version: "test", Environment: "test"},
		Otel:     config.OtelConfig{ServiceName: "ccdexplorer-api", Enabled: false},
		Explorer: config.ExplorerConfig{Net: "testnet"},
	}

	tel, err := NewTelemetry(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = tel.Shutdown(ctx) })

	assert.False(t, tel.Exporting())

	_, span := tel.Tracer.Start(ctx, "startup-check")
	defer span.End()
	assert.True(t, span.SpanContext().IsValid(), "spans carry ids for the logs")
	assert.Contains(t, otel.GetTextMapPropagator().Fields(), "traceparent")
}
