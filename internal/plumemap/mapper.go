// Package plumemap converts a triaged pathogen back into dispersion-model
// inputs, closing the loop between the triage engine and the plume model.
package plumemap

import (
	"log/slog"
	"math"
	"strings"

	"github.com/couchcryptid/plume-triage/internal/domain"
)

// Config holds the mapping constants. Emission rates are g/s, heights m.
type Config struct {
	EmissionMultiplier  float64
	MinEmissionRate     float64
	MaxEmissionRate     float64
	AirborneStackHeight float64
	FluidStackHeight    float64
	GroundStackHeight   float64 // unrecognized vectors
	MaxStackHeight      float64

	DefaultWindSpeed     float64 // m/s
	DefaultWindDirection float64 // degrees, from
	DefaultStability     domain.StabilityClass
}

// DefaultConfig returns the stock mapping: rates in [1, 1000] g/s, airborne
// releases at 50 m, fluid releases at 2 m, anything else at ground level, a
// 5 m/s westerly and neutral stability.
func DefaultConfig() Config {
	return Config{
		EmissionMultiplier:   10,
		MinEmissionRate:      1,
		MaxEmissionRate:      1000,
		AirborneStackHeight:  50,
		FluidStackHeight:     2,
		GroundStackHeight:    0,
		MaxStackHeight:       500,
		DefaultWindSpeed:     5,
		DefaultWindDirection: 270,
		DefaultStability:     domain.StabilityD,
	}
}

// Mapper turns a scored pathogen plus weather into PlumeParameters.
type Mapper struct {
	cfg    Config
	logger *slog.Logger
}

// NewMapper creates a Mapper. A nil logger uses slog.Default().
func NewMapper(cfg Config, logger *slog.Logger) *Mapper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Mapper{cfg: cfg, logger: logger}
}

// Config returns the mapper's configuration.
func (m *Mapper) Config() Config {
	return m.cfg
}

// Map never fails. Anything it cannot interpret falls back to a configured
// default and is logged; run Validate on the result to surface problems.
func (m *Mapper) Map(candidate domain.ScoredPathogen, weather domain.WeatherConditions, source domain.LatLon) domain.PlumeParameters {
	speed, direction := m.wind(weather)
	return domain.PlumeParameters{
		SourceLat:     source.Lat,
		SourceLon:     source.Lon,
		EmissionRate:  m.EmissionRate(candidate.R0),
		WindSpeed:     speed,
		WindDirection: direction,
		StackHeight:   m.stackHeight(candidate),
		Stability:     m.cfg.DefaultStability,
	}
}

// EmissionRate scales R0 logarithmically, rate = k·R0·ln(R0+1), clamped to
// the configured band. A missing or negative R0 counts as 0.
func (m *Mapper) EmissionRate(r0 float64) float64 {
	if math.IsNaN(r0) || math.IsInf(r0, -1) || r0 < 0 {
		r0 = 0
	}
	rate := m.cfg.EmissionMultiplier * r0 * math.Log1p(r0)
	if math.IsNaN(rate) {
		rate = m.cfg.MaxEmissionRate
	}
	return math.Min(math.Max(rate, m.cfg.MinEmissionRate), m.cfg.MaxEmissionRate)
}

func (m *Mapper) stackHeight(candidate domain.ScoredPathogen) float64 {
	switch candidate.Vector.Normalize() {
	case domain.VectorAirborne:
		return m.cfg.AirborneStackHeight
	case domain.VectorFluid:
		return m.cfg.FluidStackHeight
	default:
		m.logger.Warn("unrecognized transmission vector, using ground-level release",
			"pathogen_id", candidate.PathogenID,
			"vector", string(candidate.Vector),
			"stack_height", m.cfg.GroundStackHeight,
		)
		return m.cfg.GroundStackHeight
	}
}

// wind returns speed in m/s and the from-direction in [0, 360).
func (m *Mapper) wind(w domain.WeatherConditions) (speed, direction float64) {
	speed, direction = m.cfg.DefaultWindSpeed, m.cfg.DefaultWindDirection

	if w.WindSpeed != nil && isFinite(*w.WindSpeed) && *w.WindSpeed > 0 {
		if converted, ok := ToMetersPerSecond(*w.WindSpeed, w.WindSpeedUnit); ok {
			speed = converted
		} else {
			m.logger.Warn("unknown wind speed unit, using default wind speed",
				"unit", w.WindSpeedUnit,
				"default", speed,
			)
		}
	}

	if w.WindDirection != nil && isFinite(*w.WindDirection) {
		direction = math.Mod(*w.WindDirection, 360)
		if direction < 0 {
			direction += 360
		}
		// -1e-14 + 360 rounds to exactly 360.
		if direction >= 360 {
			direction = 0
		}
	}
	return speed, direction
}

// ToMetersPerSecond converts a wind speed from unit to m/s. An empty unit
// means m/s. It reports false for an unknown unit.
func ToMetersPerSecond(v float64, unit string) (float64, bool) {
	switch strings.ToLower(strings.TrimSpace(unit)) {
	case "", domain.UnitMetersPerSecond, "ms", "mps":
		return v, true
	case domain.UnitKilometersPerHr, "kmh", "kph":
		return v / 3.6, true
	case domain.UnitMilesPerHour:
		return v * 0.44704, true
	case domain.UnitKnots, "kt", "knots":
		return v * 1852.0 / 3600.0, true
	default:
		return 0, false
	}
}

// Enrich joins a triage score with the profile fields the mapper consumes.
func Enrich(score domain.PathogenScore, profile domain.PathogenProfile) domain.ScoredPathogen {
	return domain.ScoredPathogen{
		PathogenScore: score,
		R0:            profile.R0,
		Vector:        profile.Vector,
	}
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
