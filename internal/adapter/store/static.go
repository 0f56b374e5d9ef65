package store

import (
	"context"
	"slices"

	"github.com/couchcryptid/plume-triage/internal/domain"
)

// StaticSource serves a fixed, in-memory set of profiles. It backs offline
// scenario runs where no database is available.
type StaticSource []domain.PathogenProfile

func (s StaticSource) ListPathogens(context.Context) ([]domain.PathogenProfile, error) {
	return slices.Clone(s), nil
}

func (s StaticSource) GetPathogens(_ context.Context, ids []string) ([]domain.PathogenProfile, error) {
	var out []domain.PathogenProfile
	for _, p := range s {
		if slices.Contains(ids, p.ID) {
			out = append(out, p)
		}
	}
	return out, nil
}
