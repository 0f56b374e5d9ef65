// Package contour turns a scattered concentration field into closed,
// simplified iso-concentration polygons.
//
// The pipeline is: interpolate a regular grid (inverse distance weighting),
// run marching squares once per threshold, stitch the resulting segments into
// rings, simplify oversized rings, then attach display styling. Extract never
// fails; malformed samples are ignored and degenerate fields yield no polygons.
package contour

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/couchcryptid/plume-triage/internal/domain"
)

const (
	// MaxGridResolution caps the interpolation grid at MaxGridResolution² nodes.
	MaxGridResolution = 50

	// minGridResolution leaves room for a zero border around at least two
	// interior nodes.
	minGridResolution = 4

	// minRingVertices is the smallest closed ring: a triangle plus the
	// repeated first vertex.
	minRingVertices = 4

	DefaultMaxPolygonPoints        = 200
	DefaultSimplificationTolerance = 5.0 // metres
)

// DefaultThresholdFractions are the adaptive contour levels, as fractions of
// the field maximum, used when no explicit thresholds are configured.
var DefaultThresholdFractions = []float64{0.05, 0.20, 0.50, 0.80}

// Config controls contour extraction.
type Config struct {
	// Thresholds are explicit concentration levels in g/m³. Empty selects
	// DefaultThresholdFractions of the field maximum.
	Thresholds []float64

	// GridResolution is the interpolation grid size per axis, capped at
	// MaxGridResolution.
	GridResolution int

	// MaxDistance is the downwind extent of the field in metres. It sizes the
	// interpolation search radius; zero falls back to the grid cell size.
	MaxDistance float64

	// MaxPolygonPoints triggers simplification for larger rings.
	MaxPolygonPoints int

	// SimplificationTolerance is the Douglas-Peucker tolerance in metres.
	SimplificationTolerance float64
}

// DefaultConfig returns the configuration used when callers have no opinion.
func DefaultConfig() Config {
	return Config{
		GridResolution:          MaxGridResolution,
		MaxPolygonPoints:        DefaultMaxPolygonPoints,
		SimplificationTolerance: DefaultSimplificationTolerance,
	}
}

func (c Config) withDefaults() Config {
	if c.GridResolution <= 0 {
		c.GridResolution = MaxGridResolution
	}
	c.GridResolution = min(max(c.GridResolution, minGridResolution), MaxGridResolution)
	if c.MaxPolygonPoints < minRingVertices {
		c.MaxPolygonPoints = DefaultMaxPolygonPoints
	}
	if !(c.SimplificationTolerance > 0) || math.IsInf(c.SimplificationTolerance, 0) {
		c.SimplificationTolerance = DefaultSimplificationTolerance
	}
	if !(c.MaxDistance > 0) || math.IsInf(c.MaxDistance, 0) {
		c.MaxDistance = 0
	}
	return c
}

// Extract produces styled polygons for points, sorted by threshold ascending
// so outer (low-concentration) rings come first.
func Extract(points []domain.ConcentrationPoint, cfg Config) []domain.PlumePolygon {
	cfg = cfg.withDefaults()

	samples := usableSamples(points)
	if len(samples) == 0 {
		return nil
	}

	values := make([]float64, len(samples))
	for i, s := range samples {
		values[i] = s.Concentration
	}
	fieldMax := floats.Max(values)
	if !(fieldMax > 0) {
		return nil
	}

	thresholds := Thresholds(cfg.Thresholds, fieldMax)
	if len(thresholds) == 0 {
		return nil
	}

	g := buildGrid(samples, cfg)

	var out []domain.PlumePolygon
	for _, thr := range thresholds {
		style := StyleFor(thr / fieldMax)
		for _, ring := range stitch(g.march(thr)) {
			ring = g.toMetres(ring)
			if len(ring) > cfg.MaxPolygonPoints {
				ring = simplifyToLimit(ring, cfg.SimplificationTolerance, cfg.MaxPolygonPoints)
			}
			if len(ring) < minRingVertices {
				continue
			}
			out = append(out, domain.PlumePolygon{
				Ring:      g.toLatLon(ring),
				Threshold: thr,
				Color:     style.Color,
				Opacity:   style.Opacity,
			})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Threshold < out[j].Threshold
	})
	return out
}

// Thresholds resolves the contour levels for a field whose maximum is
// fieldMax: explicit levels are filtered to (0, fieldMax], otherwise the
// default fractions are applied. The result is sorted and de-duplicated.
func Thresholds(explicit []float64, fieldMax float64) []float64 {
	if !(fieldMax > 0) || math.IsInf(fieldMax, 0) {
		return nil
	}

	var candidates []float64
	if len(explicit) > 0 {
		candidates = explicit
	} else {
		candidates = make([]float64, len(DefaultThresholdFractions))
		for i, f := range DefaultThresholdFractions {
			candidates[i] = f * fieldMax
		}
	}

	out := make([]float64, 0, len(candidates))
	for _, t := range candidates {
		if math.IsNaN(t) || t <= 0 || t > fieldMax {
			continue
		}
		out = append(out, t)
	}
	sort.Float64s(out)

	dedup := out[:0]
	for i, t := range out {
		if i > 0 && t == out[i-1] {
			continue
		}
		dedup = append(dedup, t)
	}
	return dedup
}

// usableSamples drops points that cannot contribute to interpolation.
func usableSamples(points []domain.ConcentrationPoint) []domain.ConcentrationPoint {
	out := make([]domain.ConcentrationPoint, 0, len(points))
	for _, p := range points {
		c := p.Concentration
		if math.IsNaN(c) || math.IsInf(c, 0) || c < 0 {
			continue
		}
		if math.IsNaN(p.Lat) || math.IsNaN(p.Lon) || p.Lat < -90 || p.Lat > 90 || p.Lon < -180 || p.Lon > 180 {
			continue
		}
		out = append(out, p)
	}
	return out
}
