package domain

import "math"

// ThreatLevel is a coarse public-facing label for how dangerous a pathogen is
// independent of any particular patient.
type ThreatLevel string

const (
	ThreatLow      ThreatLevel = "low"
	ThreatModerate ThreatLevel = "moderate"
	ThreatHigh     ThreatLevel = "high"
	ThreatCritical ThreatLevel = "critical"
)

// airborneWeight scales R0 for airborne pathogens, which reach people without
// direct contact.
const airborneWeight = 1.5

// DeriveThreatLevel classifies a profile from its R0 and transmission vector:
//
//	effective = R0 (x1.5 when airborne)
//	<1 low | <3 moderate | <6 high | >=6 critical
//
// Records with a missing or nonsensical R0 are treated as R0 = 0.
func DeriveThreatLevel(p PathogenProfile) ThreatLevel {
	r0 := p.R0
	if math.IsNaN(r0) || math.IsInf(r0, 0) || r0 < 0 {
		r0 = 0
	}
	if p.Vector.Normalize() == VectorAirborne {
		r0 *= airborneWeight
	}

	switch {
	case r0 < 1:
		return ThreatLow
	case r0 < 3:
		return ThreatModerate
	case r0 < 6:
		return ThreatHigh
	default:
		return ThreatCritical
	}
}
