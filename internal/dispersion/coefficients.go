// Package dispersion implements the ground-level Gaussian plume model: Briggs
// rural dispersion coefficients, their memoisation, and the adaptive
// concentration-field walk.
package dispersion

import (
	"math"

	"github.com/couchcryptid/plume-triage/internal/domain"
)

// minSigma floors both spreads so the plume equation never divides by zero.
const minSigma = 1e-6

// briggsRural holds the open-country Briggs (1973) fits, one row per class.
//
//	σy = ay·x·(1+0.0001x)^by
//	σz = az·x                   (A, B)
//	σz = az·x·(1+bz·x)^cz       (C..F)
type briggsRow struct {
	ay, by     float64
	az, bz, cz float64
	linearZ    bool
}

var briggsRural = [...]briggsRow{
	domain.StabilityA: {ay: 0.22, by: -0.5, az: 0.20, linearZ: true},
	domain.StabilityB: {ay: 0.16, by: -0.5, az: 0.12, linearZ: true},
	domain.StabilityC: {ay: 0.11, by: -0.5, az: 0.08, bz: 0.0002, cz: -0.5},
	domain.StabilityD: {ay: 0.08, by: -0.5, az: 0.06, bz: 0.0015, cz: -0.5},
	domain.StabilityE: {ay: 0.06, by: -0.5, az: 0.03, bz: 0.0003, cz: -1},
	domain.StabilityF: {ay: 0.04, by: -0.5, az: 0.016, bz: 0.0003, cz: -1},
}

// Coefficients returns (σy, σz) in metres at downwind distance x for class.
// It fails with domain.ErrInvalidInput for x <= 0 or an unknown class.
func Coefficients(x float64, class domain.StabilityClass) (domain.DispersionCoefficients, error) {
	if math.IsNaN(x) || math.IsInf(x, 0) || x <= 0 {
		return domain.DispersionCoefficients{}, domain.InvalidInput("distance", x, "must be > 0")
	}
	if !class.Valid() {
		return domain.DispersionCoefficients{}, domain.InvalidInput("stability", float64(class), "unknown stability class")
	}

	row := briggsRural[class]
	sigmaY := row.ay * x * math.Pow(1+0.0001*x, row.by)

	var sigmaZ float64
	if row.linearZ {
		sigmaZ = row.az * x
	} else {
		sigmaZ = row.az * x * math.Pow(1+row.bz*x, row.cz)
	}

	return domain.DispersionCoefficients{
		SigmaY: math.Max(sigmaY, minSigma),
		SigmaZ: math.Max(sigmaZ, minSigma),
	}, nil
}
