package contour

import (
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/couchcryptid/plume-triage/internal/domain"
	"github.com/couchcryptid/plume-triage/internal/geo"
)

const (
	// minSpan keeps a degenerate (single row or column) field from collapsing
	// the grid to zero width, in metres.
	minSpan = 1.0

	// coincidentDistSq is the squared distance under which a grid node takes
	// a sample's value verbatim.
	coincidentDistSq = 1e-6

	minCosLat = 1e-9
)

// point is a planar coordinate: grid units inside march/stitch, metres after
// toMetres.
type point struct {
	X, Y float64
}

// grid is a regular interpolation lattice in a local equirectangular frame
// centred on the field. Row index grows northward, column index eastward.
type grid struct {
	values *mat.Dense
	n      int

	originE, originN float64 // metres of node (0, 0)
	cellE, cellN     float64

	refLat, refLon float64
	cosLat         float64
}

type projected struct {
	e, n, v float64
}

// buildGrid interpolates samples onto an n×n lattice whose outermost ring of
// nodes lies one cell outside the sample bounding box and is held at zero,
// which guarantees every iso-line closes.
func buildGrid(samples []domain.ConcentrationPoint, cfg Config) *grid {
	n := cfg.GridResolution
	g := &grid{n: n}

	var latSum float64
	for _, s := range samples {
		latSum += s.Lat
	}
	g.refLat = latSum / float64(len(samples))
	g.refLon = samples[0].Lon
	g.cosLat = math.Max(math.Cos(g.refLat*math.Pi/180), minCosLat)

	proj := make([]projected, len(samples))
	minE, minN := math.Inf(1), math.Inf(1)
	maxE, maxN := math.Inf(-1), math.Inf(-1)
	for i, s := range samples {
		e, no := g.project(s.Lat, s.Lon)
		proj[i] = projected{e: e, n: no, v: s.Concentration}
		minE, maxE = math.Min(minE, e), math.Max(maxE, e)
		minN, maxN = math.Min(minN, no), math.Max(maxN, no)
	}
	minE, maxE = widen(minE, maxE)
	minN, maxN = widen(minN, maxN)

	interior := float64(n - 3)
	g.cellE = (maxE - minE) / interior
	g.cellN = (maxN - minN) / interior
	g.originE = minE - g.cellE
	g.originN = minN - g.cellN

	radius := 1.5 * math.Hypot(g.cellE, g.cellN)
	if cfg.MaxDistance > 0 {
		radius = math.Max(radius, 2*cfg.MaxDistance/float64(cfg.GridResolution))
	}
	radiusSq := radius * radius

	data := make([]float64, n*n)
	eg := new(errgroup.Group)
	eg.SetLimit(runtime.GOMAXPROCS(0))
	for r := 1; r < n-1; r++ {
		eg.Go(func() error {
			row := data[r*n : (r+1)*n]
			nodeN := g.originN + float64(r)*g.cellN
			for c := 1; c < n-1; c++ {
				nodeE := g.originE + float64(c)*g.cellE
				row[c] = idw(proj, nodeE, nodeN, radiusSq)
			}
			return nil
		})
	}
	_ = eg.Wait()

	g.values = mat.NewDense(n, n, data)
	return g
}

// idw is inverse-distance-weighted interpolation with weight 1/d² over the
// samples within the search radius. A coincident sample wins outright.
func idw(samples []projected, e, n, radiusSq float64) float64 {
	var sumW, sumWV float64
	for _, s := range samples {
		de := s.e - e
		dn := s.n - n
		d2 := de*de + dn*dn
		if d2 > radiusSq {
			continue
		}
		if d2 < coincidentDistSq {
			return s.v
		}
		w := 1 / d2
		sumW += w
		sumWV += w * s.v
	}
	if sumW == 0 {
		return 0
	}
	return sumWV / sumW
}

func widen(lo, hi float64) (float64, float64) {
	if hi-lo >= minSpan {
		return lo, hi
	}
	mid := (lo + hi) / 2
	return mid - minSpan/2, mid + minSpan/2
}

func (g *grid) at(r, c int) float64 {
	return g.values.At(r, c)
}

func (g *grid) project(lat, lon float64) (e, n float64) {
	dLon := geo.NormalizeLon(lon - g.refLon)
	n = (lat - g.refLat) * math.Pi / 180 * geo.EarthRadius
	e = dLon * math.Pi / 180 * geo.EarthRadius * g.cosLat
	return e, n
}

// toMetres maps grid-unit vertices into the local metric frame.
func (g *grid) toMetres(ring []point) []point {
	out := make([]point, len(ring))
	for i, p := range ring {
		out[i] = point{
			X: g.originE + p.X*g.cellE,
			Y: g.originN + p.Y*g.cellN,
		}
	}
	return out
}

// toLatLon maps metric vertices back to WGS-84.
func (g *grid) toLatLon(ring []point) []domain.LatLon {
	out := make([]domain.LatLon, len(ring))
	for i, p := range ring {
		lat := g.refLat + p.Y/geo.EarthRadius*180/math.Pi
		lon := g.refLon + p.X/(geo.EarthRadius*g.cosLat)*180/math.Pi
		out[i] = domain.LatLon{
			Lat: math.Max(-90, math.Min(90, lat)),
			Lon: geo.NormalizeLon(lon),
		}
	}
	return out
}
