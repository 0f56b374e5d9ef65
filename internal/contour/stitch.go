package contour

import "math"

// vertexQuantum is the endpoint matching tolerance in grid units.
const vertexQuantum = 1e-9

type vertexKey struct {
	x, y int64
}

func keyOf(p point) vertexKey {
	return vertexKey{
		x: int64(math.Round(p.X / vertexQuantum)),
		y: int64(math.Round(p.Y / vertexQuantum)),
	}
}

// stitcher joins marching-squares segments into closed rings. Segments are
// indexed by both endpoints and consumed from an explicit worklist until none
// remain.
type stitcher struct {
	segs      []segment
	index     map[vertexKey][]int
	used      []bool
	remaining []int
}

func newStitcher(segs []segment) *stitcher {
	s := &stitcher{
		segs:      segs,
		index:     make(map[vertexKey][]int, 2*len(segs)),
		used:      make([]bool, len(segs)),
		remaining: make([]int, 0, len(segs)),
	}
	for i := len(segs) - 1; i >= 0; i-- {
		ka, kb := keyOf(segs[i].a), keyOf(segs[i].b)
		if ka == kb {
			// Both crossings clamped onto the same corner.
			s.used[i] = true
			continue
		}
		s.index[ka] = append(s.index[ka], i)
		s.index[kb] = append(s.index[kb], i)
		s.remaining = append(s.remaining, i)
	}
	return s
}

// stitch returns every closed ring with at least minRingVertices vertices.
// The first and last vertex of each ring are identical.
func stitch(segs []segment) [][]point {
	s := newStitcher(segs)

	var rings [][]point
	for len(s.remaining) > 0 {
		start := s.remaining[len(s.remaining)-1]
		s.remaining = s.remaining[:len(s.remaining)-1]
		if s.used[start] {
			continue
		}
		s.used[start] = true

		chain := []point{s.segs[start].a, s.segs[start].b}
		chain = s.extend(chain)
		if !isClosed(chain) {
			reversePoints(chain)
			chain = s.extend(chain)
		}
		if !isClosed(chain) {
			chain = append(chain, chain[0])
		}
		chain[len(chain)-1] = chain[0]

		if len(chain) >= minRingVertices {
			rings = append(rings, chain)
		}
	}
	return rings
}

// extend grows chain from its tail until it closes or runs out of matches.
func (s *stitcher) extend(chain []point) []point {
	for !isClosed(chain) {
		tail := chain[len(chain)-1]
		next, ok := s.take(keyOf(tail))
		if !ok {
			break
		}
		chain = append(chain, next)
	}
	return chain
}

// take claims an unused segment touching k and returns its far endpoint.
func (s *stitcher) take(k vertexKey) (point, bool) {
	for _, i := range s.index[k] {
		if s.used[i] {
			continue
		}
		s.used[i] = true
		seg := s.segs[i]
		if keyOf(seg.a) == k {
			return seg.b, true
		}
		return seg.a, true
	}
	return point{}, false
}

func isClosed(chain []point) bool {
	return len(chain) >= 3 && keyOf(chain[0]) == keyOf(chain[len(chain)-1])
}

func reversePoints(pts []point) {
	for i, j := 0, len(pts)-1; i < j; i, j = i+1, j-1 {
		pts[i], pts[j] = pts[j], pts[i]
	}
}
