package domain

import (
	"strings"
	"time"
)

// HumidityRange is a pathogen's survival tolerance in percent relative humidity.
type HumidityRange struct {
	Min float64 `json:"min_humidity"`
	Max float64 `json:"max_humidity"`
}

// Validate requires 0 <= Min <= Max <= 100.
func (r HumidityRange) Validate() error {
	if !isFinite(r.Min) || r.Min < 0 || r.Min > 100 {
		return InvalidInput("min_humidity", r.Min, "must be within [0, 100]")
	}
	if !isFinite(r.Max) || r.Max < 0 || r.Max > 100 {
		return InvalidInput("max_humidity", r.Max, "must be within [0, 100]")
	}
	if r.Min > r.Max {
		return InvalidInput("min_humidity", r.Min, "must not exceed max_humidity")
	}
	return nil
}

// TransmissionVector is how a pathogen spreads between hosts.
type TransmissionVector string

const (
	VectorAirborne TransmissionVector = "airborne"
	VectorFluid    TransmissionVector = "fluid"
)

// Normalize lower-cases and trims the vector so stored values like
// " Airborne" compare equal to VectorAirborne.
func (v TransmissionVector) Normalize() TransmissionVector {
	return TransmissionVector(strings.ToLower(strings.TrimSpace(string(v))))
}

// PathogenProfile is the epidemiological record of one candidate pathogen.
type PathogenProfile struct {
	ID       string             `json:"id"`
	Name     string             `json:"name"`
	Symptoms []string           `json:"symptoms"`
	Survival HumidityRange      `json:"survival"`
	R0       float64            `json:"r0"`
	Vector   TransmissionVector `json:"transmission_vector"`
}

// NewPathogenProfile builds a profile, rejecting a malformed survival range.
func NewPathogenProfile(id, name string, symptoms []string, survival HumidityRange) (PathogenProfile, error) {
	if err := survival.Validate(); err != nil {
		return PathogenProfile{}, err
	}
	return PathogenProfile{
		ID:       id,
		Name:     name,
		Symptoms: append([]string(nil), symptoms...),
		Survival: survival,
	}, nil
}

// PatientData is the symptom set reported for one patient. It may be empty.
type PatientData struct {
	Symptoms []string `json:"symptoms"`
}

// Wind speed units a weather source may report.
const (
	UnitMetersPerSecond = "m/s"
	UnitKilometersPerHr = "km/h"
	UnitMilesPerHour    = "mph"
	UnitKnots           = "kn"
)

// WeatherConditions is the environment a triage run is evaluated against.
type WeatherConditions struct {
	Humidity      float64  `json:"humidity"`
	Temperature   float64  `json:"temperature"`
	WindSpeed     *float64 `json:"wind_speed,omitempty"`
	WindDirection *float64 `json:"wind_direction,omitempty"`
	// WindSpeedUnit defaults to m/s when empty.
	WindSpeedUnit string `json:"wind_speed_unit,omitempty"`
}

// PathogenScore is one ranked triage entry. A non-viable pathogen always scores 0.
type PathogenScore struct {
	PathogenID   string  `json:"pathogen_id"`
	PathogenName string  `json:"pathogen_name"`
	Score        float64 `json:"score"`
	IsViable     bool    `json:"is_viable"`
}

// TriageResult is an immutable snapshot of one triage run.
type TriageResult struct {
	Scores    []PathogenScore   `json:"scores"`
	Timestamp time.Time         `json:"timestamp"`
	Weather   WeatherConditions `json:"weather"`
	Warnings  []string          `json:"warnings,omitempty"`
}
