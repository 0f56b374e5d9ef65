package contour

import (
	"context"
	"math"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/plume-triage/internal/dispersion"
	"github.com/couchcryptid/plume-triage/internal/domain"
)

// gaussianBump samples exp(-d²/2σ²) on a 41×41 lattice centred on (lat, lon).
func gaussianBump(lat, lon float64) []domain.ConcentrationPoint {
	const (
		step  = 0.001
		sigma = 0.005
	)
	var pts []domain.ConcentrationPoint
	for i := -20; i <= 20; i++ {
		for j := -20; j <= 20; j++ {
			dLat, dLon := float64(i)*step, float64(j)*step
			d2 := dLat*dLat + dLon*dLon
			pts = append(pts, domain.ConcentrationPoint{
				Lat:           lat + dLat,
				Lon:           lon + dLon,
				Concentration: math.Exp(-d2 / (2 * sigma * sigma)),
			})
		}
	}
	return pts
}

func assertClosedRings(t *testing.T, polys []domain.PlumePolygon) {
	t.Helper()
	for _, p := range polys {
		require.GreaterOrEqual(t, len(p.Ring), minRingVertices)
		first, last := p.Ring[0], p.Ring[len(p.Ring)-1]
		assert.InDelta(t, first.Lat, last.Lat, 1e-12)
		assert.InDelta(t, first.Lon, last.Lon, 1e-12)
	}
}

func TestExtract_GaussianBump(t *testing.T) {
	polys := Extract(gaussianBump(30, -97), DefaultConfig())

	require.Len(t, polys, 4)
	assertClosedRings(t, polys)

	assert.True(t, sort.SliceIsSorted(polys, func(i, j int) bool {
		return polys[i].Threshold < polys[j].Threshold
	}))

	wantThresholds := []float64{0.05, 0.2, 0.5, 0.8}
	wantColors := []string{"#fed976", "#fd8d3c", "#e31a1c", "#800026"}
	for i, p := range polys {
		assert.InDelta(t, wantThresholds[i], p.Threshold, 1e-12)
		assert.Equal(t, wantColors[i], p.Color)
		assert.LessOrEqual(t, p.Threshold, 1.0)

		// Each ring surrounds the peak.
		minLat, maxLat := math.Inf(1), math.Inf(-1)
		minLon, maxLon := math.Inf(1), math.Inf(-1)
		for _, v := range p.Ring {
			minLat, maxLat = math.Min(minLat, v.Lat), math.Max(maxLat, v.Lat)
			minLon, maxLon = math.Min(minLon, v.Lon), math.Max(maxLon, v.Lon)
		}
		assert.Less(t, minLat, 30.0)
		assert.Greater(t, maxLat, 30.0)
		assert.Less(t, minLon, -97.0)
		assert.Greater(t, maxLon, -97.0)
	}
}

func TestExtract_RespectsVertexLimit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxPolygonPoints = 8
	cfg.SimplificationTolerance = 1

	polys := Extract(gaussianBump(30, -97), cfg)
	require.NotEmpty(t, polys)
	assertClosedRings(t, polys)
	for _, p := range polys {
		assert.LessOrEqual(t, len(p.Ring), 8)
	}
}

func TestExtract_EmptyCases(t *testing.T) {
	zero := gaussianBump(30, -97)
	for i := range zero {
		zero[i].Concentration = 0
	}

	tests := []struct {
		name   string
		points []domain.ConcentrationPoint
		cfg    Config
	}{
		{"nil field", nil, DefaultConfig()},
		{"all zero", zero, DefaultConfig()},
		{"thresholds above max", gaussianBump(30, -97), Config{Thresholds: []float64{2, 5}}},
		{"non-positive thresholds", gaussianBump(30, -97), Config{Thresholds: []float64{0, -1, math.NaN()}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Empty(t, Extract(tt.points, tt.cfg))
		})
	}
}

func TestExtract_MalformedSamplesDoNotPanic(t *testing.T) {
	pts := gaussianBump(30, -97)
	pts = append(pts,
		domain.ConcentrationPoint{Lat: math.NaN(), Lon: -97, Concentration: 1},
		domain.ConcentrationPoint{Lat: 30, Lon: -97, Concentration: math.Inf(1)},
		domain.ConcentrationPoint{Lat: 30, Lon: -97, Concentration: math.NaN()},
		domain.ConcentrationPoint{Lat: 30, Lon: -97, Concentration: -4},
		domain.ConcentrationPoint{Lat: 120, Lon: -97, Concentration: 9},
	)

	var polys []domain.PlumePolygon
	assert.NotPanics(t, func() {
		polys = Extract(pts, DefaultConfig())
	})
	for _, p := range polys {
		assert.LessOrEqual(t, p.Threshold, 1.0)
	}
}

func TestExtract_SinglePoint(t *testing.T) {
	pts := []domain.ConcentrationPoint{{Lat: 10, Lon: 10, Concentration: 3}}
	assert.NotPanics(t, func() {
		polys := Extract(pts, DefaultConfig())
		assertClosedRings(t, polys)
	})
}

func TestExtract_DispersionField(t *testing.T) {
	p := domain.PlumeParameters{
		SourceLat:     51.5,
		SourceLon:     -0.12,
		EmissionRate:  250,
		WindSpeed:     4,
		WindDirection: 225,
		StackHeight:   2,
		Stability:     domain.StabilityD,
	}
	calc := dispersion.NewCalculator(dispersion.NewCoefficientCache(dispersion.DefaultCacheSize))
	field, err := calc.GenerateField(context.Background(), p, 40, 3000)
	require.NoError(t, err)

	fieldMax := 0.0
	for _, pt := range field {
		fieldMax = math.Max(fieldMax, pt.Concentration)
	}

	cfg := DefaultConfig()
	cfg.MaxDistance = 3000
	polys := Extract(field, cfg)

	require.NotEmpty(t, polys)
	assertClosedRings(t, polys)
	for i, poly := range polys {
		assert.LessOrEqual(t, poly.Threshold, fieldMax)
		assert.LessOrEqual(t, len(poly.Ring), cfg.MaxPolygonPoints)
		if i > 0 {
			assert.GreaterOrEqual(t, poly.Threshold, polys[i-1].Threshold)
		}
	}
}

func TestThresholds(t *testing.T) {
	tests := []struct {
		name     string
		explicit []float64
		max      float64
		want     []float64
	}{
		{"default fractions", nil, 10, []float64{0.5, 2, 5, 8}},
		{"explicit filtered and sorted", []float64{7, 12, 1, -3, 0}, 10, []float64{1, 7}},
		{"duplicates removed", []float64{3, 3, 1}, 10, []float64{1, 3}},
		{"max itself kept", []float64{10}, 10, []float64{10}},
		{"zero max", nil, 0, nil},
		{"NaN max", nil, math.NaN(), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Thresholds(tt.explicit, tt.max)
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.InDeltaSlice(t, tt.want, got, 1e-12)
		})
	}
}

func TestStyleFor(t *testing.T) {
	tests := []struct {
		ratio   float64
		color   string
		opacity float64
	}{
		{1.0, "#800026", 0.8},
		{0.8, "#800026", 0.8},
		{0.79, "#e31a1c", 0.7},
		{0.5, "#e31a1c", 0.7},
		{0.2, "#fd8d3c", 0.55},
		{0.05, "#fed976", 0.4},
		{0.01, "#ffffcc", 0.3},
	}

	for _, tt := range tests {
		got := StyleFor(tt.ratio)
		assert.Equal(t, tt.color, got.Color, "ratio %v", tt.ratio)
		assert.Equal(t, tt.opacity, got.Opacity, "ratio %v", tt.ratio)
	}
}

func TestConfigDefaults(t *testing.T) {
	got := Config{GridResolution: 500, SimplificationTolerance: math.Inf(1), MaxDistance: -4}.withDefaults()
	assert.Equal(t, MaxGridResolution, got.GridResolution)
	assert.Equal(t, DefaultMaxPolygonPoints, got.MaxPolygonPoints)
	assert.Equal(t, DefaultSimplificationTolerance, got.SimplificationTolerance)
	assert.Equal(t, 0.0, got.MaxDistance)

	got = Config{GridResolution: 2}.withDefaults()
	assert.Equal(t, minGridResolution, got.GridResolution)
}
