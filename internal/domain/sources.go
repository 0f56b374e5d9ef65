package domain

import "context"

// PathogenSource supplies candidate pathogen profiles.
type PathogenSource interface {
	// ListPathogens returns every known profile.
	ListPathogens(ctx context.Context) ([]PathogenProfile, error)

	// GetPathogens returns the profiles with the given IDs. Unknown IDs are
	// silently absent from the result.
	GetPathogens(ctx context.Context, ids []string) ([]PathogenProfile, error)
}

// WeatherSource supplies current conditions at a location.
type WeatherSource interface {
	Current(ctx context.Context, loc LatLon) (WeatherConditions, error)
}
