package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap/zaptest"

	"github.com/ChinmayBH/Agents-Evaluation/config"
)

// saveAndRestoreGlobalProvider snapshots the global OTel tracer provider and
// restores it via t.Cleanup so tests don't leak state.
func saveAndRestoreGlobalProvider(t *testing.T) {
	t.Helper()
	orig := otel.GetTracerProvider()
	t.Cleanup(func() {
		otel.SetTracerProvider(orig)
	})
}

func TestInit_Disabled(t *testing.T) {
	saveAndRestoreGlobalProvider(t)
	logger := zaptest.NewLogger(t)

	p, err := Init(config.TelemetryConfig{Enabled: false}, logger)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Nil(t, p.tp, "TracerProvider should be nil when disabled")

	require.NoError(t, p.Shutdown(context.Background()))
}

func TestInit_Enabled(t *testing.T) {
	saveAndRestoreGlobalProvider(t)
	logger := zaptest.NewLogger(t)

	cfg := config.TelemetryConfig{
		Enabled:      true,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "storychat-test",
		SampleRate:   0.5,
	}

	p, err := Init(cfg, logger)
	require.NoError(t, err)
	require.NotNil(t, p)
	require.NotNil(t, p.tp)

	// The exporter connects lazily, so shutdown succeeds without a collector.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = p.Shutdown(ctx)
}

func TestShutdown_NilSafe(t *testing.T) {
	var p *Providers
	require.NoError(t, p.Shutdown(context.Background()))
}
