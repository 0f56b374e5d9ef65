package contour

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func testGrid(n int, values []float64) *grid {
	return &grid{n: n, values: mat.NewDense(n, n, values)}
}

func TestMarch_SinglePeakFormsDiamond(t *testing.T) {
	g := testGrid(5, []float64{
		0, 0, 0, 0, 0,
		0, 0, 0, 0, 0,
		0, 0, 1, 0, 0,
		0, 0, 0, 0, 0,
		0, 0, 0, 0, 0,
	})

	segs := g.march(0.5)
	require.Len(t, segs, 4)

	rings := stitch(segs)
	require.Len(t, rings, 1)
	ring := rings[0]
	require.Len(t, ring, 5)
	assert.Equal(t, ring[0], ring[4])

	want := map[point]bool{
		{X: 1.5, Y: 2}: true,
		{X: 2.5, Y: 2}: true,
		{X: 2, Y: 1.5}: true,
		{X: 2, Y: 2.5}: true,
	}
	for _, p := range ring[:4] {
		assert.True(t, want[p], "unexpected vertex %+v", p)
	}
}

func TestMarch_TwoPeaksFormTwoRings(t *testing.T) {
	g := testGrid(7, []float64{
		0, 0, 0, 0, 0, 0, 0,
		0, 0, 0, 0, 0, 0, 0,
		0, 0, 1, 0, 0, 0, 0,
		0, 0, 0, 0, 0, 0, 0,
		0, 0, 0, 0, 1, 0, 0,
		0, 0, 0, 0, 0, 0, 0,
		0, 0, 0, 0, 0, 0, 0,
	})
	assert.Len(t, stitch(g.march(0.5)), 2)
}

func TestCellSegments_Saddles(t *testing.T) {
	tests := []struct {
		name string
		cell cell
		thr  float64
		want []segment
	}{
		{
			name: "case 5 joined",
			cell: cell{c0: 1, c1: 0, c2: 1, c3: 0},
			thr:  0.4,
			want: []segment{
				{a: point{X: 0, Y: 0.6}, b: point{X: 0.4, Y: 1}},
				{a: point{X: 0.6, Y: 0}, b: point{X: 1, Y: 0.4}},
			},
		},
		{
			name: "case 5 separated",
			cell: cell{c0: 1, c1: 0, c2: 1, c3: 0},
			thr:  0.6,
			want: []segment{
				{a: point{X: 0, Y: 0.4}, b: point{X: 0.4, Y: 0}},
				{a: point{X: 1, Y: 0.6}, b: point{X: 0.6, Y: 1}},
			},
		},
		{
			name: "case 10 joined",
			cell: cell{c0: 0, c1: 1, c2: 0, c3: 1},
			thr:  0.4,
			want: []segment{
				{a: point{X: 0, Y: 0.4}, b: point{X: 0.4, Y: 0}},
				{a: point{X: 1, Y: 0.6}, b: point{X: 0.6, Y: 1}},
			},
		},
		{
			name: "case 10 separated",
			cell: cell{c0: 0, c1: 1, c2: 0, c3: 1},
			thr:  0.6,
			want: []segment{
				{a: point{X: 0.6, Y: 0}, b: point{X: 1, Y: 0.4}},
				{a: point{X: 0, Y: 0.6}, b: point{X: 0.4, Y: 1}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.cell.segments(tt.thr, nil)
			require.Len(t, got, len(tt.want))
			for i := range got {
				assert.InDelta(t, tt.want[i].a.X, got[i].a.X, 1e-12)
				assert.InDelta(t, tt.want[i].a.Y, got[i].a.Y, 1e-12)
				assert.InDelta(t, tt.want[i].b.X, got[i].b.X, 1e-12)
				assert.InDelta(t, tt.want[i].b.Y, got[i].b.Y, 1e-12)
			}
		})
	}
}

func TestCellSegments_CaseCounts(t *testing.T) {
	for idx := 0; idx < 16; idx++ {
		c := cell{}
		corner := func(bit int) float64 {
			if idx&bit != 0 {
				return 1
			}
			return 0
		}
		c.c0, c.c1, c.c2, c.c3 = corner(1), corner(2), corner(4), corner(8)
		require.Equal(t, idx, c.index(0.5))

		got := len(c.segments(0.5, nil))
		switch idx {
		case 0, 15:
			assert.Equal(t, 0, got, "case %d", idx)
		case 5, 10:
			assert.Equal(t, 2, got, "case %d", idx)
		default:
			assert.Equal(t, 1, got, "case %d", idx)
		}
	}
}

func TestIDW(t *testing.T) {
	samples := []projected{
		{e: 0, n: 0, v: 7},
		{e: 10, n: 0, v: 1},
	}

	tests := []struct {
		name     string
		e, n     float64
		radiusSq float64
		want     float64
	}{
		{"coincident sample wins", 0, 0, 400, 7},
		{"coincident with second sample", 10, 0, 400, 1},
		{"midpoint is the plain mean", 5, 0, 400, 4},
		{"all samples outside radius", 50, 50, 16, 0},
		{"radius excludes the far sample", 2, 0, 16, 7},
		// Weights 1/1 and 1/81: (7 + 1/81) / (1 + 1/81).
		{"inverse square weighting", 1, 0, 400, (7 + 1.0/81) / (1 + 1.0/81)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, idw(samples, tt.e, tt.n, tt.radiusSq), 1e-12)
		})
	}

	t.Run("near sample dominates", func(t *testing.T) {
		got := idw(samples, 0.5, 0, 400)
		assert.Greater(t, got, 6.9)
		assert.Less(t, got, 7.0)
	})
}

func TestLerp(t *testing.T) {
	assert.Equal(t, 0.5, lerp(2, 2, 2))
	assert.InDelta(t, 0.25, lerp(0, 4, 1), 1e-12)
	assert.Equal(t, 0.0, lerp(5, 10, 1))
	assert.Equal(t, 1.0, lerp(0, 1, 3))
	assert.Equal(t, 0.5, lerp(math.Inf(1), math.Inf(-1), 0))
}

func TestStitch_ShuffledSquare(t *testing.T) {
	a, b, c, d := point{0, 0}, point{1, 0}, point{1, 1}, point{0, 1}
	segs := []segment{{c, d}, {a, b}, {d, a}, {c, b}}

	rings := stitch(segs)
	require.Len(t, rings, 1)
	assert.Len(t, rings[0], 5)
	assert.Equal(t, rings[0][0], rings[0][4])
}

func TestStitch_OpenChainIsClosedAndShortChainsDropped(t *testing.T) {
	segs := []segment{
		{point{0, 0}, point{1, 0}},
		{point{1, 0}, point{1, 1}},
		{point{1, 1}, point{0, 1}},
		// isolated degenerate pair
		{point{5, 5}, point{6, 6}},
		// zero-length
		{point{9, 9}, point{9, 9}},
	}

	rings := stitch(segs)
	require.Len(t, rings, 1)
	assert.Len(t, rings[0], 5)
	assert.Equal(t, rings[0][0], rings[0][len(rings[0])-1])
}

func circle(n int, radius float64) []point {
	ring := make([]point, 0, n+1)
	for i := 0; i < n; i++ {
		theta := 2 * math.Pi * float64(i) / float64(n)
		ring = append(ring, point{X: radius * math.Cos(theta), Y: radius * math.Sin(theta)})
	}
	return append(ring, ring[0])
}

func TestSimplifyRing_NeverGrowsAndStaysClosed(t *testing.T) {
	ring := circle(120, 1000)
	for _, tol := range []float64{0, 0.5, 5, 50, 500, 5000} {
		got := simplifyRing(ring, tol)
		assert.LessOrEqual(t, len(got), len(ring), "tol %v", tol)
		assert.Equal(t, got[0], got[len(got)-1], "tol %v", tol)
	}
	assert.Len(t, simplifyRing(ring, 0), len(ring))
}

func TestSimplifyRing_RemovesCollinearVertices(t *testing.T) {
	ring := []point{
		{0, 0}, {5, 0}, {10, 0}, {10, 5}, {10, 10}, {5, 10}, {0, 10}, {0, 5}, {0, 0},
	}
	got := simplifyRing(ring, 0.01)
	assert.Len(t, got, 5)
}

func TestSimplifyToLimit(t *testing.T) {
	ring := circle(400, 1000)
	got := simplifyToLimit(ring, 0.01, 40)
	assert.LessOrEqual(t, len(got), 40)
	assert.Equal(t, got[0], got[len(got)-1])
}

func TestSimplifyRing_RandomNeverGrows(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for range 50 {
		n := 5 + rng.Intn(60)
		ring := make([]point, 0, n+1)
		for i := 0; i < n; i++ {
			ring = append(ring, point{X: rng.Float64() * 100, Y: rng.Float64() * 100})
		}
		ring = append(ring, ring[0])
		got := simplifyRing(ring, rng.Float64()*20)
		assert.LessOrEqual(t, len(got), len(ring))
		assert.Equal(t, got[0], got[len(got)-1])
	}
}

func TestPerpendicularDistance(t *testing.T) {
	assert.InDelta(t, 5, perpendicularDistance(point{5, 5}, point{0, 0}, point{10, 0}), 1e-12)
	assert.InDelta(t, 5, perpendicularDistance(point{3, 4}, point{0, 0}, point{0, 0}), 1e-12)
}
