package domain

import (
	"context"
	"time"
)

// RawRequest represents an unprocessed assessment request from the source topic.
type RawRequest struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// AssessmentRequest asks for a triage run and, when a pathogen is viable, the
// dispersion footprint of a release at Source. Weather is fetched when omitted.
type AssessmentRequest struct {
	RequestID      string             `json:"request_id" validate:"required"`
	Patient        PatientData        `json:"patient"`
	Weather        *WeatherConditions `json:"weather,omitempty"`
	Source         LatLon             `json:"source"`
	PathogenIDs    []string           `json:"pathogen_ids,omitempty"`
	GridResolution int                `json:"grid_resolution,omitempty" validate:"omitempty,min=1,max=500"`
	MaxDistance    float64            `json:"max_distance,omitempty" validate:"omitempty,gt=0,lte=100000"`
}

// ScoredPathogen is a triage entry joined with the profile fields the plume
// mapper needs.
type ScoredPathogen struct {
	PathogenScore
	R0     float64            `json:"r0"`
	Vector TransmissionVector `json:"transmission_vector"`
}

// Assessment is the full output of one request.
type Assessment struct {
	ID          string           `json:"id"`
	RequestID   string           `json:"request_id"`
	Triage      TriageResult     `json:"triage"`
	Selected    *ScoredPathogen  `json:"selected,omitempty"`
	Plume       *PlumeParameters `json:"plume,omitempty"`
	Issues      []string         `json:"issues,omitempty"`
	Polygons    []PlumePolygon   `json:"polygons,omitempty"`
	FieldPoints int              `json:"field_points"`
	FieldMax    float64          `json:"field_max"`
	GeneratedAt time.Time        `json:"generated_at"`
}
