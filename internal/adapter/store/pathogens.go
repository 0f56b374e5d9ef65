package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/plume-triage/internal/domain"
)

const selectPathogens = `SELECT id, name, symptoms, min_humidity, max_humidity, r0, transmission_vector FROM pathogens`

// PathogenStore implements domain.PathogenSource over a SQL database.
type PathogenStore struct {
	db     *sql.DB
	driver string
	logger *slog.Logger
}

// NewPathogenStore creates a store. driver selects the placeholder dialect.
func NewPathogenStore(db *sql.DB, driver string, logger *slog.Logger) *PathogenStore {
	return &PathogenStore{db: db, driver: driver, logger: logger}
}

// ListPathogens returns every valid profile ordered by id. Rows with a
// malformed symptom list or humidity range are skipped with a warning.
func (s *PathogenStore) ListPathogens(ctx context.Context) ([]domain.PathogenProfile, error) {
	return s.query(ctx, selectPathogens+` ORDER BY id`)
}

// GetPathogens returns the valid profiles among ids, ordered by id.
func (s *PathogenStore) GetPathogens(ctx context.Context, ids []string) ([]domain.PathogenProfile, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	q := selectPathogens + ` WHERE id IN (` + placeholders(len(ids)) + `) ORDER BY id`
	return s.query(ctx, q, args...)
}

func (s *PathogenStore) query(ctx context.Context, q string, args ...any) ([]domain.PathogenProfile, error) {
	rows, err := s.db.QueryContext(ctx, rebind(s.driver, q), args...)
	if err != nil {
		return nil, fmt.Errorf("query pathogens: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			s.logger.Error("close pathogen rows", "error", err)
		}
	}()

	var out []domain.PathogenProfile
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.id, &r.name, &r.symptoms, &r.survival.Min, &r.survival.Max, &r.r0, &r.vector); err != nil {
			return nil, fmt.Errorf("scan pathogen: %w", err)
		}

		p, err := r.profile()
		if err != nil {
			s.logger.Warn("skipping malformed pathogen row", "pathogen_id", r.id, "error", err)
			continue
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pathogens: %w", err)
	}
	return out, nil
}

type row struct {
	id       string
	name     string
	symptoms string
	survival domain.HumidityRange
	r0       float64
	vector   string
}

func (r row) profile() (domain.PathogenProfile, error) {
	var symptoms []string
	if err := json.Unmarshal([]byte(r.symptoms), &symptoms); err != nil {
		return domain.PathogenProfile{}, fmt.Errorf("decode symptoms: %w", err)
	}
	p, err := domain.NewPathogenProfile(r.id, r.name, symptoms, r.survival)
	if err != nil {
		return domain.PathogenProfile{}, err
	}
	p.R0 = r.r0
	p.Vector = domain.TransmissionVector(r.vector).Normalize()
	return p, nil
}
