package telemetry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rentio/backend/internal/infrastructure/telemetry"
)

func TestNewTracerProvider_Disabled(t *testing.T) {
	cfg := telemetry.Config{
		Enabled:           false,
		CollectorEndpoint: "localhost:14317",
		SamplingRatio:     1.0,
		ServiceName:       "rentio-backend",
	}

	tp, err := telemetry.NewTracerProvider(context.Background(), cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NotNil(t, tp)

	// disabled provider shuts down cleanly even with a cancelled context
	cancelledCtx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, tp.Shutdown(cancelledCtx))
}

func TestNewTracerProvider_Enabled(t *testing.T) {
	// needs a reachable OTLP collector
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	cfg := telemetry.Config{
		Enabled:           true,
		CollectorEndpoint: "localhost:14317",
		SamplingRatio:     0.5,
		ServiceName:       "rentio-backend",
		Insecure:          true,
	}

	tp, err := telemetry.NewTracerProvider(context.Background(), cfg, zaptest.NewLogger(t))
	require.NoError(t, err)

	_, span := telemetry.StartServiceSpan(context.Background(), "violation_case", "escalate")
	span.End()

	assert.NoError(t, tp.Shutdown(context.Background()))
}
