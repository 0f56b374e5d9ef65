package contour

import "math"

type segment struct {
	a, b point
}

type edge int

const (
	edgeBottom edge = iota // c0 → c1
	edgeRight              // c1 → c2
	edgeTop                // c3 → c2
	edgeLeft               // c0 → c3
)

// cell holds the four corner values of one grid square, counter-clockwise
// from bottom-left: c0 (r, c), c1 (r, c+1), c2 (r+1, c+1), c3 (r+1, c).
type cell struct {
	r, c           int
	c0, c1, c2, c3 float64
}

// march returns the iso-line segments for thr across every grid cell.
func (g *grid) march(thr float64) []segment {
	var segs []segment
	for r := 0; r < g.n-1; r++ {
		for c := 0; c < g.n-1; c++ {
			cl := cell{
				r: r, c: c,
				c0: g.at(r, c),
				c1: g.at(r, c+1),
				c2: g.at(r+1, c+1),
				c3: g.at(r+1, c),
			}
			segs = cl.segments(thr, segs)
		}
	}
	return segs
}

func (cl cell) index(thr float64) int {
	idx := 0
	if cl.c0 >= thr {
		idx |= 1
	}
	if cl.c1 >= thr {
		idx |= 2
	}
	if cl.c2 >= thr {
		idx |= 4
	}
	if cl.c3 >= thr {
		idx |= 8
	}
	return idx
}

// segments appends this cell's contribution for thr to dst. Saddle cases
// 5 and 10 are disambiguated by the mean of the four corners.
func (cl cell) segments(thr float64, dst []segment) []segment {
	emit := func(e1, e2 edge) {
		dst = append(dst, segment{a: cl.crossing(e1, thr), b: cl.crossing(e2, thr)})
	}

	switch cl.index(thr) {
	case 0, 15:
	case 1, 14:
		emit(edgeLeft, edgeBottom)
	case 2, 13:
		emit(edgeBottom, edgeRight)
	case 3, 12:
		emit(edgeLeft, edgeRight)
	case 4, 11:
		emit(edgeRight, edgeTop)
	case 5:
		if cl.mean() >= thr {
			emit(edgeLeft, edgeTop)
			emit(edgeBottom, edgeRight)
		} else {
			emit(edgeLeft, edgeBottom)
			emit(edgeRight, edgeTop)
		}
	case 6, 9:
		emit(edgeBottom, edgeTop)
	case 7, 8:
		emit(edgeLeft, edgeTop)
	case 10:
		if cl.mean() >= thr {
			emit(edgeLeft, edgeBottom)
			emit(edgeRight, edgeTop)
		} else {
			emit(edgeBottom, edgeRight)
			emit(edgeLeft, edgeTop)
		}
	}
	return dst
}

func (cl cell) mean() float64 {
	return (cl.c0 + cl.c1 + cl.c2 + cl.c3) / 4
}

// crossing interpolates where thr crosses edge e, in grid units. Each edge is
// walked from its lower-index corner, so the cells sharing it agree bit for bit.
func (cl cell) crossing(e edge, thr float64) point {
	r, c := float64(cl.r), float64(cl.c)
	switch e {
	case edgeBottom:
		return point{X: c + lerp(cl.c0, cl.c1, thr), Y: r}
	case edgeRight:
		return point{X: c + 1, Y: r + lerp(cl.c1, cl.c2, thr)}
	case edgeTop:
		return point{X: c + lerp(cl.c3, cl.c2, thr), Y: r + 1}
	default:
		return point{X: c, Y: r + lerp(cl.c0, cl.c3, thr)}
	}
}

// lerp returns the fraction along va→vb at which thr is reached, clamped to [0, 1].
func lerp(va, vb, thr float64) float64 {
	if va == vb {
		return 0.5
	}
	t := (thr - va) / (vb - va)
	switch {
	case math.IsNaN(t):
		return 0.5
	case t < 0:
		return 0
	case t > 1:
		return 1
	default:
		return t
	}
}
