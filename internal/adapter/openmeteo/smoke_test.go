//go:build openmeteo

package openmeteo

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/plume-triage/internal/domain"
	"github.com/couchcryptid/plume-triage/internal/observability"
)

// These tests hit the real Open-Meteo API.
// Run with: go test -tags=openmeteo ./internal/adapter/openmeteo/ -v -count=1

func TestSmoke_Current(t *testing.T) {
	c := NewClient("https://api.open-meteo.com", 10*time.Second,
		observability.NewMetricsForTesting(), slog.New(slog.NewTextHandler(io.Discard, nil)))

	got, err := c.Current(context.Background(), domain.LatLon{Lat: 30.2672, Lon: -97.7431})
	require.NoError(t, err)

	assert.GreaterOrEqual(t, got.Humidity, 0.0)
	assert.LessOrEqual(t, got.Humidity, 100.0)
	assert.Equal(t, domain.UnitKilometersPerHr, got.WindSpeedUnit)
	require.NotNil(t, got.WindDirection)
	assert.GreaterOrEqual(t, *got.WindDirection, 0.0)
}
