package triage

import (
	"math"

	"github.com/couchcryptid/plume-triage/internal/domain"
)

// IsViable reports whether humidity lies within the survival range, with
// both bounds inclusive. It fails with domain.ErrInvalidInput when humidity
// is outside [0, 100] or the range is malformed.
func IsViable(humidity float64, survival domain.HumidityRange) (bool, error) {
	if math.IsNaN(humidity) || humidity < 0 || humidity > 100 {
		return false, domain.InvalidInput("humidity", humidity, "must be within [0, 100]")
	}
	if err := survival.Validate(); err != nil {
		return false, err
	}
	return survival.Min <= humidity && humidity <= survival.Max, nil
}
