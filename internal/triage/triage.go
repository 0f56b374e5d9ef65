// Package triage ranks candidate pathogens for a patient: environmental
// viability first, then symptom overlap.
package triage

import (
	"fmt"
	"math"
	"sort"

	"github.com/couchcryptid/plume-triage/internal/domain"
)

// Run scores every pathogen against the patient under weather. A pathogen
// that cannot survive the current humidity scores 0 regardless of symptoms.
// Malformed inputs never abort the run: the affected pathogens are marked
// non-viable and a warning is recorded on the result.
//
// Scores are sorted descending, ties broken by ascending pathogen ID.
func Run(patient domain.PatientData, weather domain.WeatherConditions, pathogens []domain.PathogenProfile) domain.TriageResult {
	result := domain.TriageResult{
		Scores:    make([]domain.PathogenScore, 0, len(pathogens)),
		Timestamp: clock.Now().UTC(),
		Weather:   weather,
	}

	humidityOK := !math.IsNaN(weather.Humidity) && weather.Humidity >= 0 && weather.Humidity <= 100
	if !humidityOK && len(pathogens) > 0 {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("humidity %g is outside [0, 100]; all pathogens treated as non-viable", weather.Humidity))
	}

	for _, p := range pathogens {
		entry := domain.PathogenScore{
			PathogenID:   p.ID,
			PathogenName: p.Name,
		}

		if humidityOK {
			viable, err := IsViable(weather.Humidity, p.Survival)
			if err != nil {
				result.Warnings = append(result.Warnings, fmt.Sprintf("pathogen %q: %v", p.ID, err))
			}
			entry.IsViable = viable
		}
		if entry.IsViable {
			entry.Score = Score(patient.Symptoms, p.Symptoms)
		}

		result.Scores = append(result.Scores, entry)
	}

	sort.SliceStable(result.Scores, func(i, j int) bool {
		a, b := result.Scores[i], result.Scores[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		return a.PathogenID < b.PathogenID
	})
	return result
}

// TopCandidate returns the highest-ranked viable pathogen with a positive
// score, if any.
func TopCandidate(result domain.TriageResult) (domain.PathogenScore, bool) {
	for _, s := range result.Scores {
		if s.IsViable && s.Score > 0 {
			return s, true
		}
	}
	return domain.PathogenScore{}, false
}
