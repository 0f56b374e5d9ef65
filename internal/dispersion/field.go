package dispersion

import (
	"context"
	"math"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/plume-triage/internal/domain"
	"github.com/couchcryptid/plume-triage/internal/geo"
)

const (
	// MinConcentration is the floor below which a sample is reported as
	// exactly zero, in g/m³.
	MinConcentration = 1e-12

	// maxExponent bounds exp() arguments to keep results finite.
	maxExponent = 100.0

	// crosswindSigmas is the cone half-width in units of σy.
	crosswindSigmas = 4.0
)

// Calculator evaluates the plume model with an owned coefficient cache.
// The cache is cleared whenever the stability class being modelled changes.
type Calculator struct {
	cache   *CoefficientCache
	workers int

	mu        sync.Mutex
	stability domain.StabilityClass
	seen      bool
}

// NewCalculator creates a Calculator. A nil cache disables memoisation.
func NewCalculator(cache *CoefficientCache) *Calculator {
	return &Calculator{
		cache:   cache,
		workers: runtime.GOMAXPROCS(0),
	}
}

// Cache returns the calculator's coefficient cache, which may be nil.
func (c *Calculator) Cache() *CoefficientCache {
	return c.cache
}

// SetStability records the active class and clears the cache when it differs
// from the previous one. It reports whether the cache was cleared.
func (c *Calculator) SetStability(class domain.StabilityClass) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	changed := c.seen && c.stability != class
	c.stability = class
	c.seen = true
	if changed && c.cache != nil {
		c.cache.Clear()
	}
	return changed
}

// Coefficients is the memoised form of the package-level Coefficients.
func (c *Calculator) Coefficients(x float64, class domain.StabilityClass) (domain.DispersionCoefficients, error) {
	if c.cache == nil {
		return Coefficients(x, class)
	}

	key := newCacheKey(x, class)
	if v, ok := c.cache.get(key); ok {
		return v, nil
	}
	v, err := Coefficients(x, class)
	if err != nil {
		return v, err
	}
	c.cache.put(key, v)
	return v, nil
}

// ConcentrationAt evaluates the ground-level concentration at (x, y).
// Points at or upwind of the source are exactly zero.
func (c *Calculator) ConcentrationAt(x, y float64, p domain.PlumeParameters) (float64, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}
	if x <= 0 || p.EmissionRate == 0 {
		return 0, nil
	}
	coeffs, err := c.Coefficients(x, p.Stability)
	if err != nil {
		return 0, err
	}
	return Concentration(x, y, p, coeffs), nil
}

// Concentration is the ground-level (z = 0) Gaussian plume equation
//
//	C = Q / (2π·u·σy·σz) · exp(-y²/2σy²) · exp(-H²/2σz²)
//
// with exponents clamped and sub-threshold values rounded to zero.
func Concentration(x, y float64, p domain.PlumeParameters, coeffs domain.DispersionCoefficients) float64 {
	if x <= 0 || p.EmissionRate == 0 {
		return 0
	}

	sy := math.Max(coeffs.SigmaY, minSigma)
	sz := math.Max(coeffs.SigmaZ, minSigma)

	lateral := math.Exp(clampExponent(-(y * y) / (2 * sy * sy)))
	vertical := math.Exp(clampExponent(-(p.StackHeight * p.StackHeight) / (2 * sz * sz)))

	conc := p.EmissionRate / (2 * math.Pi * p.WindSpeed * sy * sz) * lateral * vertical
	if math.IsNaN(conc) || math.IsInf(conc, 0) || conc < MinConcentration {
		return 0
	}
	return conc
}

func clampExponent(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return -maxExponent
	case v > maxExponent:
		return maxExponent
	case v < -maxExponent:
		return -maxExponent
	default:
		return v
	}
}

// GenerateField samples the plume over a cone-shaped region: resolution
// downwind steps out to maxDistance, each spanning ±4σy crosswind. Zero-valued
// samples and samples whose geographic transform is out of bounds are omitted.
// Rows are evaluated concurrently, so the result order is unspecified.
func (c *Calculator) GenerateField(ctx context.Context, p domain.PlumeParameters, resolution int, maxDistance float64) ([]domain.ConcentrationPoint, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if resolution <= 0 {
		return nil, domain.InvalidInput("resolution", float64(resolution), "must be > 0")
	}
	if math.IsNaN(maxDistance) || math.IsInf(maxDistance, 0) || maxDistance <= 0 {
		return nil, domain.InvalidInput("max_distance", maxDistance, "must be > 0")
	}

	c.SetStability(p.Stability)

	step := maxDistance / float64(resolution)
	half := max(resolution/2, 1)
	rows := make([][]domain.ConcentrationPoint, resolution)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	for i := range resolution {
		x := step * float64(i+1)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			row, err := c.fieldRow(x, half, p)
			if err != nil {
				return err
			}
			rows[i] = row
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := 0
	for _, row := range rows {
		total += len(row)
	}
	points := make([]domain.ConcentrationPoint, 0, total)
	for _, row := range rows {
		points = append(points, row...)
	}
	return points, nil
}

// fieldRow evaluates one downwind step across its crosswind span.
func (c *Calculator) fieldRow(x float64, half int, p domain.PlumeParameters) ([]domain.ConcentrationPoint, error) {
	coeffs, err := c.Coefficients(x, p.Stability)
	if err != nil {
		return nil, err
	}

	halfWidth := crosswindSigmas * coeffs.SigmaY
	row := make([]domain.ConcentrationPoint, 0, 2*half+1)
	for j := -half; j <= half; j++ {
		y := halfWidth * float64(j) / float64(half)
		conc := Concentration(x, y, p, coeffs)
		if conc == 0 {
			continue
		}
		ll, err := geo.Offset(x, y, p.SourceLat, p.SourceLon, p.WindDirection)
		if err != nil {
			continue
		}
		row = append(row, domain.ConcentrationPoint{
			X:             x,
			Y:             y,
			Concentration: conc,
			Lat:           ll.Lat,
			Lon:           ll.Lon,
		})
	}
	return row, nil
}
