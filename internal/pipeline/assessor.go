package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/couchcryptid/plume-triage/internal/contour"
	"github.com/couchcryptid/plume-triage/internal/dispersion"
	"github.com/couchcryptid/plume-triage/internal/domain"
	"github.com/couchcryptid/plume-triage/internal/geo"
	"github.com/couchcryptid/plume-triage/internal/observability"
	"github.com/couchcryptid/plume-triage/internal/plumemap"
	"github.com/couchcryptid/plume-triage/internal/triage"
)

// ErrNoWeather is returned when a request omits conditions and no weather
// source is configured.
var ErrNoWeather = errors.New("no weather conditions supplied and live weather is disabled")

// AssessorConfig holds the model settings an Assessor applies to requests
// that do not override them.
type AssessorConfig struct {
	FieldResolution  int
	FieldMaxDistance float64
	Contour          contour.Config
}

// Assessor implements Transformer: it decodes an assessment request, triages
// it, and when a pathogen is viable models the resulting plume.
type Assessor struct {
	pathogens domain.PathogenSource
	weather   domain.WeatherSource
	mapper    *plumemap.Mapper
	calc      *dispersion.Calculator
	cfg       AssessorConfig
	validate  *validator.Validate
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// NewAssessor creates an Assessor. Pass a nil weather source to require
// conditions on every request. metrics may be nil.
func NewAssessor(pathogens domain.PathogenSource, weather domain.WeatherSource, mapper *plumemap.Mapper, calc *dispersion.Calculator, cfg AssessorConfig, logger *slog.Logger, metrics *observability.Metrics) *Assessor {
	return &Assessor{
		pathogens: pathogens,
		weather:   weather,
		mapper:    mapper,
		calc:      calc,
		cfg:       cfg,
		validate:  validator.New(),
		logger:    logger,
		metrics:   metrics,
	}
}

// Transform decodes raw as an AssessmentRequest and assesses it. The Kafka
// message key stands in for a missing request ID.
func (a *Assessor) Transform(ctx context.Context, raw domain.RawRequest) (domain.Assessment, error) {
	var req domain.AssessmentRequest
	if err := json.Unmarshal(raw.Value, &req); err != nil {
		return domain.Assessment{}, fmt.Errorf("decode assessment request: %w", err)
	}
	if req.RequestID == "" {
		req.RequestID = string(raw.Key)
	}
	return a.Assess(ctx, req)
}

// Assess runs triage for req and, when a candidate is found, maps it to plume
// parameters, generates the concentration field, and extracts contours.
// Problems with the modelled plume are reported in Assessment.Issues rather
// than as errors.
func (a *Assessor) Assess(ctx context.Context, req domain.AssessmentRequest) (domain.Assessment, error) {
	if err := a.validate.Struct(req); err != nil {
		return domain.Assessment{}, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	if !geo.ValidCoordinate(req.Source.Lat, req.Source.Lon) {
		return domain.Assessment{}, domain.OutOfBounds("source", req.Source.Lat, "source is not a valid coordinate")
	}

	profiles, err := a.loadPathogens(ctx, req.PathogenIDs)
	if err != nil {
		return domain.Assessment{}, err
	}

	weather, err := a.conditions(ctx, req)
	if err != nil {
		return domain.Assessment{}, err
	}

	result := triage.Run(req.Patient, weather, profiles)
	a.observe(func(m *observability.Metrics) { m.TriageCandidates.Observe(float64(len(result.Scores))) })

	out := domain.Assessment{
		ID:          uuid.NewString(),
		RequestID:   req.RequestID,
		Triage:      result,
		GeneratedAt: result.Timestamp,
	}

	top, ok := triage.TopCandidate(result)
	if !ok {
		a.logger.Debug("no viable candidate", "request_id", req.RequestID, "pathogens", len(profiles))
		return out, nil
	}

	selected := plumemap.Enrich(top, profileByID(profiles, top.PathogenID))
	out.Selected = &selected

	params := a.mapper.Map(selected, weather, req.Source)
	out.Plume = &params
	out.Issues = plumemap.Validate(params, a.mapper.Config())
	if err := params.Validate(); err != nil {
		out.Issues = append(out.Issues, err.Error())
		return out, nil
	}

	resolution, maxDistance := a.fieldExtent(req)
	field, err := a.calc.GenerateField(ctx, params, resolution, maxDistance)
	if err != nil {
		if ctx.Err() != nil {
			return domain.Assessment{}, ctx.Err()
		}
		out.Issues = append(out.Issues, fmt.Sprintf("field generation: %v", err))
		return out, nil
	}

	cc := a.cfg.Contour
	cc.MaxDistance = maxDistance
	out.FieldPoints = len(field)
	out.FieldMax = fieldMax(field)
	out.Polygons = contour.Extract(field, cc)

	a.observe(func(m *observability.Metrics) {
		m.FieldPoints.Observe(float64(out.FieldPoints))
		m.Polygons.Observe(float64(len(out.Polygons)))
	})
	a.logger.Debug("assessment complete",
		"request_id", req.RequestID,
		"pathogen_id", selected.PathogenID,
		"field_points", out.FieldPoints,
		"polygons", len(out.Polygons),
	)
	return out, nil
}

// Plume generates the field and contours for explicit parameters, bypassing
// triage.
func (a *Assessor) Plume(ctx context.Context, p domain.PlumeParameters, resolution int, maxDistance float64) ([]domain.ConcentrationPoint, []domain.PlumePolygon, error) {
	if resolution <= 0 {
		resolution = a.cfg.FieldResolution
	}
	if maxDistance <= 0 {
		maxDistance = a.cfg.FieldMaxDistance
	}

	field, err := a.calc.GenerateField(ctx, p, resolution, maxDistance)
	if err != nil {
		return nil, nil, err
	}
	cc := a.cfg.Contour
	cc.MaxDistance = maxDistance
	return field, contour.Extract(field, cc), nil
}

// Pathogens exposes the pathogen source for read-only listings.
func (a *Assessor) Pathogens(ctx context.Context) ([]domain.PathogenProfile, error) {
	return a.pathogens.ListPathogens(ctx)
}

func (a *Assessor) loadPathogens(ctx context.Context, ids []string) ([]domain.PathogenProfile, error) {
	var (
		profiles []domain.PathogenProfile
		err      error
	)
	if len(ids) > 0 {
		profiles, err = a.pathogens.GetPathogens(ctx, ids)
	} else {
		profiles, err = a.pathogens.ListPathogens(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("load pathogens: %w", err)
	}
	return profiles, nil
}

func (a *Assessor) conditions(ctx context.Context, req domain.AssessmentRequest) (domain.WeatherConditions, error) {
	if req.Weather != nil {
		return *req.Weather, nil
	}
	if a.weather == nil {
		return domain.WeatherConditions{}, ErrNoWeather
	}
	w, err := a.weather.Current(ctx, req.Source)
	if err != nil {
		return domain.WeatherConditions{}, fmt.Errorf("fetch weather: %w", err)
	}
	return w, nil
}

func (a *Assessor) fieldExtent(req domain.AssessmentRequest) (int, float64) {
	resolution := a.cfg.FieldResolution
	if req.GridResolution > 0 {
		resolution = req.GridResolution
	}
	maxDistance := a.cfg.FieldMaxDistance
	if req.MaxDistance > 0 {
		maxDistance = req.MaxDistance
	}
	return resolution, maxDistance
}

func (a *Assessor) observe(fn func(m *observability.Metrics)) {
	if a.metrics != nil {
		fn(a.metrics)
	}
}

func profileByID(profiles []domain.PathogenProfile, id string) domain.PathogenProfile {
	for _, p := range profiles {
		if p.ID == id {
			return p
		}
	}
	return domain.PathogenProfile{ID: id}
}

func fieldMax(field []domain.ConcentrationPoint) float64 {
	var m float64
	for _, p := range field {
		if p.Concentration > m {
			m = p.Concentration
		}
	}
	return m
}
