package domain

import (
	"fmt"
	"math"
	"strings"
)

// StabilityClass is the Pasquill-Gifford atmospheric stability category,
// ordered from most turbulent (A) to most stable (F).
type StabilityClass int

const (
	StabilityA StabilityClass = iota
	StabilityB
	StabilityC
	StabilityD
	StabilityE
	StabilityF
)

var stabilityNames = [...]string{"A", "B", "C", "D", "E", "F"}

// Valid reports whether c is one of the six known classes.
func (c StabilityClass) Valid() bool {
	return c >= StabilityA && c <= StabilityF
}

func (c StabilityClass) String() string {
	if !c.Valid() {
		return fmt.Sprintf("StabilityClass(%d)", int(c))
	}
	return stabilityNames[c]
}

// ParseStabilityClass accepts "A".."F" in either case.
func ParseStabilityClass(s string) (StabilityClass, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for i, name := range stabilityNames {
		if s == name {
			return StabilityClass(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown stability class %q", ErrInvalidInput, s)
}

func (c StabilityClass) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("%w: unknown stability class %d", ErrInvalidInput, int(c))
	}
	return []byte(c.String()), nil
}

func (c *StabilityClass) UnmarshalText(text []byte) error {
	parsed, err := ParseStabilityClass(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// PlumeParameters describes one steady-state point-source dispersion scenario.
type PlumeParameters struct {
	SourceLon     float64        `json:"source_lon"`
	SourceLat     float64        `json:"source_lat"`
	EmissionRate  float64        `json:"emission_rate"`  // g/s
	WindSpeed     float64        `json:"wind_speed"`     // m/s
	WindDirection float64        `json:"wind_direction"` // degrees from north, the bearing the wind blows from
	StackHeight   float64        `json:"stack_height"`   // effective release height, m
	Stability     StabilityClass `json:"stability"`
}

// Validate enforces the physical and geographic invariants of the scenario.
func (p PlumeParameters) Validate() error {
	if !isFinite(p.SourceLat) || p.SourceLat < -90 || p.SourceLat > 90 {
		return OutOfBounds("source_lat", p.SourceLat, "must be within [-90, 90]")
	}
	if !isFinite(p.SourceLon) || p.SourceLon < -180 || p.SourceLon > 180 {
		return OutOfBounds("source_lon", p.SourceLon, "must be within [-180, 180]")
	}
	if !isFinite(p.EmissionRate) || p.EmissionRate < 0 {
		return InvalidInput("emission_rate", p.EmissionRate, "must be >= 0")
	}
	if !isFinite(p.WindSpeed) || p.WindSpeed <= 0 {
		return InvalidInput("wind_speed", p.WindSpeed, "must be > 0")
	}
	if !isFinite(p.WindDirection) || p.WindDirection < 0 || p.WindDirection >= 360 {
		return OutOfBounds("wind_direction", p.WindDirection, "must be within [0, 360)")
	}
	if !isFinite(p.StackHeight) || p.StackHeight < 0 {
		return InvalidInput("stack_height", p.StackHeight, "must be >= 0")
	}
	if !p.Stability.Valid() {
		return InvalidInput("stability", float64(p.Stability), "unknown stability class")
	}
	return nil
}

// Source returns the release point.
func (p PlumeParameters) Source() LatLon {
	return LatLon{Lat: p.SourceLat, Lon: p.SourceLon}
}

// DispersionCoefficients are the Gaussian spread parameters at one downwind distance.
type DispersionCoefficients struct {
	SigmaY float64 `json:"sigma_y"` // horizontal, m
	SigmaZ float64 `json:"sigma_z"` // vertical, m
}

// ConcentrationPoint is one sample of the ground-level concentration field.
type ConcentrationPoint struct {
	X             float64 `json:"x"` // downwind offset, m
	Y             float64 `json:"y"` // crosswind offset, m
	Concentration float64 `json:"concentration"`
	Lat           float64 `json:"lat"`
	Lon           float64 `json:"lon"`
}

// LatLon is a WGS-84 coordinate pair.
type LatLon struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// PlumePolygon is one closed iso-concentration ring with its display hints.
type PlumePolygon struct {
	Ring      []LatLon `json:"ring"`
	Threshold float64  `json:"threshold"`
	Color     string   `json:"color"`
	Opacity   float64  `json:"opacity"`
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
