package plumemap

import (
	"fmt"

	"github.com/couchcryptid/plume-triage/internal/domain"
	"github.com/couchcryptid/plume-triage/internal/geo"
)

// Validate checks p against physical and geographic bounds and returns one
// human-readable issue per violation. An empty result means p is usable.
func Validate(p domain.PlumeParameters, cfg Config) []string {
	var issues []string

	if !isFinite(p.EmissionRate) || p.EmissionRate < cfg.MinEmissionRate || p.EmissionRate > cfg.MaxEmissionRate {
		issues = append(issues, fmt.Sprintf("emission rate %g g/s is outside [%g, %g]",
			p.EmissionRate, cfg.MinEmissionRate, cfg.MaxEmissionRate))
	}
	if !isFinite(p.StackHeight) || p.StackHeight < 0 || p.StackHeight > cfg.MaxStackHeight {
		issues = append(issues, fmt.Sprintf("stack height %g m is outside [0, %g]", p.StackHeight, cfg.MaxStackHeight))
	}
	if !isFinite(p.WindSpeed) || p.WindSpeed <= 0 {
		issues = append(issues, fmt.Sprintf("wind speed %g m/s must be positive", p.WindSpeed))
	}
	if !isFinite(p.WindDirection) || p.WindDirection < 0 || p.WindDirection >= 360 {
		issues = append(issues, fmt.Sprintf("wind direction %g is outside [0, 360)", p.WindDirection))
	}
	if !geo.ValidCoordinate(p.SourceLat, p.SourceLon) {
		issues = append(issues, fmt.Sprintf("source (%g, %g) is not a valid coordinate", p.SourceLat, p.SourceLon))
	}
	if !p.Stability.Valid() {
		issues = append(issues, fmt.Sprintf("stability class %d is unknown", int(p.Stability)))
	}
	return issues
}
