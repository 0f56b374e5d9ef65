package contour

import "math"

// maxToleranceDoublings bounds the search for a tolerance that brings a ring
// under the vertex limit.
const maxToleranceDoublings = 16

// simplifyToLimit simplifies ring with tol, doubling tol until the ring fits
// within limit vertices or the doubling budget runs out.
func simplifyToLimit(ring []point, tol float64, limit int) []point {
	out := simplifyRing(ring, tol)
	for i := 0; len(out) > limit && i < maxToleranceDoublings; i++ {
		tol *= 2
		out = simplifyRing(ring, tol)
	}
	return out
}

// simplifyRing runs Douglas-Peucker over a closed ring. The ring is split at
// the vertex farthest from its start so each half has distinct endpoints; the
// result is a closed subset of the input vertices.
func simplifyRing(ring []point, tol float64) []point {
	if len(ring) <= minRingVertices {
		return ring
	}

	open := ring[:len(ring)-1]
	far, farDist := 0, 0.0
	for i, p := range open {
		if d := distance(open[0], p); d > farDist {
			far, farDist = i, d
		}
	}
	if far == 0 {
		return ring
	}

	first := douglasPeucker(ring[:far+1], tol)
	second := douglasPeucker(ring[far:], tol)

	out := make([]point, 0, len(first)+len(second)-1)
	out = append(out, first...)
	out = append(out, second[1:]...)
	return out
}

// douglasPeucker simplifies an open polyline, always keeping both endpoints.
func douglasPeucker(pts []point, tol float64) []point {
	if len(pts) <= 2 {
		return append([]point(nil), pts...)
	}

	keep := make([]bool, len(pts))
	keep[0], keep[len(pts)-1] = true, true

	type span struct{ lo, hi int }
	stack := []span{{0, len(pts) - 1}}
	for len(stack) > 0 {
		sp := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		idx, maxDist := -1, 0.0
		for i := sp.lo + 1; i < sp.hi; i++ {
			if d := perpendicularDistance(pts[i], pts[sp.lo], pts[sp.hi]); d > maxDist {
				idx, maxDist = i, d
			}
		}
		if idx < 0 || maxDist <= tol {
			continue
		}
		keep[idx] = true
		stack = append(stack, span{sp.lo, idx}, span{idx, sp.hi})
	}

	out := make([]point, 0, len(pts))
	for i, p := range pts {
		if keep[i] {
			out = append(out, p)
		}
	}
	return out
}

// perpendicularDistance is the distance from p to the line through a and b,
// or to a itself when a and b coincide.
func perpendicularDistance(p, a, b point) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	length := math.Hypot(dx, dy)
	if length == 0 {
		return distance(p, a)
	}
	return math.Abs(dy*p.X-dx*p.Y+b.X*a.Y-b.Y*a.X) / length
}

func distance(a, b point) float64 {
	return math.Hypot(b.X-a.X, b.Y-a.Y)
}
