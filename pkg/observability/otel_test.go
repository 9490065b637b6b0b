package observability

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func newOTelTestLogger() *Logger {
	return NewLogger(ErrorLevel, io.Discard)
}

func TestInitOTel_Disabled(t *testing.T) {
	cfg := OTelConfig{
		Enabled: false,
	}

	providers, err := InitOTel(context.Background(), cfg, newOTelTestLogger())
	require.NoError(t, err)
	assert.Nil(t, providers)
}

func TestInitOTel_CreatesTracerProvider(t *testing.T) {
	// Exporter creation is lazy, so no collector needs to be listening.
	cfg := OTelConfig{
		Enabled:        true,
		Endpoint:       "localhost:4317",
		ServiceName:    "subledger-test",
		ServiceVersion: "0.0.1",
		SampleRatio:    1.0,
		Insecure:       true,
	}

	providers, err := InitOTel(context.Background(), cfg, newOTelTestLogger())
	require.NoError(t, err)
	require.NotNil(t, providers)
	assert.NotNil(t, providers.TracerProvider)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	assert.NoError(t, ShutdownOTel(ctx, providers, newOTelTestLogger()))
}

func TestInitOTel_PartialSampleRatio(t *testing.T) {
	cfg := OTelConfig{
		Enabled:        true,
		Endpoint:       "localhost:4317",
		ServiceName:    "subledger-test",
		ServiceVersion: "0.0.1",
		SampleRatio:    0.25,
		Insecure:       true,
	}

	providers, err := InitOTel(context.Background(), cfg, newOTelTestLogger())
	require.NoError(t, err)
	require.NotNil(t, providers)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	assert.NoError(t, ShutdownOTel(ctx, providers, newOTelTestLogger()))
}

func TestInitOTel_SetsGlobalPropagator(t *testing.T) {
	cfg := OTelConfig{
		Enabled:        true,
		Endpoint:       "localhost:4317",
		ServiceName:    "subledger-test",
		ServiceVersion: "0.0.1",
		Insecure:       true,
	}

	providers, err := InitOTel(context.Background(), cfg, newOTelTestLogger())
	require.NoError(t, err)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = ShutdownOTel(ctx, providers, newOTelTestLogger())
	}()

	propagator := otel.GetTextMapPropagator()
	require.NotNil(t, propagator)
	assert.Contains(t, propagator.Fields(), "traceparent")
	assert.Contains(t, propagator.Fields(), "baggage")
}

func TestShutdownOTel_NilProviders(t *testing.T) {
	assert.NoError(t, ShutdownOTel(context.Background(), nil, newOTelTestLogger()))
}

func TestShutdownOTel_NilTracerProvider(t *testing.T) {
	providers := &OTelProviders{}
	assert.NoError(t, ShutdownOTel(context.Background(), providers, newOTelTestLogger()))
}
