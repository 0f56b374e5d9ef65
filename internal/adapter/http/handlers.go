package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/couchcryptid/plume-triage/internal/domain"
	"github.com/couchcryptid/plume-triage/internal/pipeline"
	"github.com/couchcryptid/plume-triage/internal/triage"
)

// maxBodyBytes caps request bodies; a pathogen list in a triage request is the
// largest legitimate payload.
const maxBodyBytes = 1 << 20

// AssessmentService is the synchronous face of the assessment pipeline.
// *pipeline.Assessor satisfies it.
type AssessmentService interface {
	Assess(ctx context.Context, req domain.AssessmentRequest) (domain.Assessment, error)
	Plume(ctx context.Context, p domain.PlumeParameters, resolution int, maxDistance float64) ([]domain.ConcentrationPoint, []domain.PlumePolygon, error)
	Pathogens(ctx context.Context) ([]domain.PathogenProfile, error)
}

type pathogenResponse struct {
	domain.PathogenProfile
	ThreatLevel domain.ThreatLevel `json:"threat_level"`
}

type triageRequest struct {
	Patient domain.PatientData       `json:"patient"`
	Weather domain.WeatherConditions `json:"weather"`
	// Pathogens overrides the configured store when non-empty.
	Pathogens []domain.PathogenProfile `json:"pathogens,omitempty"`
}

type plumeRequest struct {
	SourceLat      float64                `json:"source_lat" validate:"gte=-90,lte=90"`
	SourceLon      float64                `json:"source_lon" validate:"gte=-180,lte=180"`
	EmissionRate   float64                `json:"emission_rate" validate:"gte=0"`
	WindSpeed      float64                `json:"wind_speed" validate:"gt=0"`
	WindDirection  float64                `json:"wind_direction" validate:"gte=0,lt=360"`
	StackHeight    float64                `json:"stack_height" validate:"gte=0"`
	Stability      *domain.StabilityClass `json:"stability,omitempty"`
	GridResolution int                    `json:"grid_resolution,omitempty" validate:"omitempty,min=1,max=500"`
	MaxDistance    float64                `json:"max_distance,omitempty" validate:"omitempty,gt=0,lte=100000"`
}

func (p plumeRequest) parameters() domain.PlumeParameters {
	stability := domain.StabilityD
	if p.Stability != nil {
		stability = *p.Stability
	}
	return domain.PlumeParameters{
		SourceLat:     p.SourceLat,
		SourceLon:     p.SourceLon,
		EmissionRate:  p.EmissionRate,
		WindSpeed:     p.WindSpeed,
		WindDirection: p.WindDirection,
		StackHeight:   p.StackHeight,
		Stability:     stability,
	}
}

type plumeResponse struct {
	Parameters domain.PlumeParameters      `json:"parameters"`
	Field      []domain.ConcentrationPoint `json:"field"`
	Polygons   []domain.PlumePolygon       `json:"polygons"`
}

func (s *Server) registerRoutes(r chi.Router) {
	r.Get("/pathogens", s.handleListPathogens)
	r.Post("/triage", s.handleTriage)
	r.Post("/plume", s.handlePlume)
	r.Post("/assessments", s.handleAssess)
}

func (s *Server) handleListPathogens(w http.ResponseWriter, r *http.Request) {
	profiles, err := s.service.Pathogens(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]pathogenResponse, len(profiles))
	for i, p := range profiles {
		out[i] = pathogenResponse{PathogenProfile: p, ThreatLevel: domain.DeriveThreatLevel(p)}
	}
	writeJSON(w, http.StatusOK, map[string]any{"pathogens": out})
}

func (s *Server) handleTriage(w http.ResponseWriter, r *http.Request) {
	var req triageRequest
	if !s.decode(w, r, &req) {
		return
	}

	pathogens := req.Pathogens
	if len(pathogens) == 0 {
		var err error
		if pathogens, err = s.service.Pathogens(r.Context()); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, triage.Run(req.Patient, req.Weather, pathogens))
}

func (s *Server) handlePlume(w http.ResponseWriter, r *http.Request) {
	var req plumeRequest
	if !s.decode(w, r, &req) {
		return
	}

	params := req.parameters()
	field, polygons, err := s.service.Plume(r.Context(), params, req.GridResolution, req.MaxDistance)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, plumeResponse{Parameters: params, Field: field, Polygons: polygons})
}

func (s *Server) handleAssess(w http.ResponseWriter, r *http.Request) {
	var req domain.AssessmentRequest
	if !s.decode(w, r, &req) {
		return
	}

	out, err := s.service.Assess(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// decode reads and validates a JSON body, writing a 400 on failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body: " + err.Error()})
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return false
	}
	return true
}

// writeError maps core errors to status codes: physical or geographic
// invariant violations are 422, abandoned requests 503, anything else 500.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrOutOfBounds),
		errors.Is(err, pipeline.ErrNoWeather):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = http.StatusServiceUnavailable
	}

	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			"error", err,
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
		)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
