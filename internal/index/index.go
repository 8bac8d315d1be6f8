// Package index provides an R-tree over feature bounds for bbox filtering.
package index

import (
	"math"
	"sort"

	"github.com/dhconnelly/rtreego"
	"github.com/paulmach/orb"
)

// minExtent is the relative padding applied to rectangles. The R-tree rejects
// zero-length sides and treats touching edges as disjoint, so stored and
// query rectangles are widened and candidates are confirmed against the
// exact bounds.
const minExtent = 1e-9

// Index answers "which features intersect this box" queries.
type Index struct {
	tree *rtreego.Rtree
	size int
}

// entry wraps a feature position for R-tree storage.
type entry struct {
	pos   int
	bound orb.Bound
	rect  rtreego.Rect
}

// Bounds implements rtreego.Spatial.
func (e *entry) Bounds() rtreego.Rect {
	return e.rect
}

// New indexes geometries by position. nil geometries are skipped and never
// returned from Search.
func New(geoms []orb.Geometry) *Index {
	idx := &Index{tree: rtreego.NewTree(2, 25, 50)}
	for i, g := range geoms {
		if g == nil {
			continue
		}
		b := g.Bound()
		rect, err := toRect(b)
		if err != nil {
			continue
		}
		idx.tree.Insert(&entry{pos: i, bound: b, rect: rect})
		idx.size++
	}
	return idx
}

// Len returns the number of indexed geometries.
func (idx *Index) Len() int { return idx.size }

// Search returns the positions of geometries whose bounds intersect b, in
// ascending order. Both edges of b are inclusive.
func (idx *Index) Search(b orb.Bound) []int {
	rect, err := toRect(b)
	if err != nil {
		return nil
	}

	spatials := idx.tree.SearchIntersect(rect)
	result := make([]int, 0, len(spatials))
	for _, s := range spatials {
		e := s.(*entry)
		if e.bound.Intersects(b) {
			result = append(result, e.pos)
		}
	}
	sort.Ints(result)
	return result
}

// toRect converts b to an R-tree rectangle padded on every side.
func toRect(b orb.Bound) (rtreego.Rect, error) {
	pad := minExtent * math.Max(1, math.Max(
		math.Max(math.Abs(b.Min[0]), math.Abs(b.Min[1])),
		math.Max(math.Abs(b.Max[0]), math.Abs(b.Max[1])),
	))

	point := rtreego.Point{b.Min[0] - pad, b.Min[1] - pad}
	width := b.Max[0] - b.Min[0] + 2*pad
	height := b.Max[1] - b.Min[1] + 2*pad

	return rtreego.NewRect(point, []float64{width, height})
}
