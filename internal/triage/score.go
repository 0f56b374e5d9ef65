package triage

import "strings"

// Score is the percentage of the pathogen's symptoms the patient presents:
// 100·|patient ∩ pathogen| / |pathogen|. Comparison ignores case and
// surrounding whitespace, and duplicates count once. Either set being empty
// scores 0.
func Score(patientSymptoms, pathogenSymptoms []string) float64 {
	pathogen := symptomSet(pathogenSymptoms)
	if len(pathogen) == 0 {
		return 0
	}
	patient := symptomSet(patientSymptoms)
	if len(patient) == 0 {
		return 0
	}

	matched := 0
	for s := range pathogen {
		if _, ok := patient[s]; ok {
			matched++
		}
	}
	return 100 * float64(matched) / float64(len(pathogen))
}

func symptomSet(symptoms []string) map[string]struct{} {
	set := make(map[string]struct{}, len(symptoms))
	for _, s := range symptoms {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		set[s] = struct{}{}
	}
	return set
}
