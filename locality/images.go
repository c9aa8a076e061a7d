package locality

import (
	"github.com/phil-mansfield/neighbors/box"
	"github.com/phil-mansfield/neighbors/geom"
)

// image is a periodic translation applied to a query point.
type image struct {
	shift [3]int
	dx    geom.Vec
}

// images returns the periodic translations of p which can put it within r of
// a point in one of the given trees. The untranslated image always comes
// first, even when nothing is in range.
func (q *AABBQuery) images(p geom.Vec, r float64, trees []int) []image {
	shifts, dxs := q.shifts, q.dxs
	if q.box.ImageReach(r) != q.reach {
		shifts, dxs = imageShifts(q.box, r)
	}

	root, ok := q.rootBounds(trees)

	out := make([]image, 0, len(shifts))
	out = append(out, image{shifts[0], dxs[0]})
	if !ok { return out }

	for i := 1; i < len(shifts); i++ {
		if root.IntersectsSphere(p.Add(dxs[i]), r) {
			out = append(out, image{shifts[i], dxs[i]})
		}
	}
	return out
}

// imageShifts returns the lattice triples which can reach within r, along
// with their translations.
func imageShifts(b *box.Box, r float64) ([][3]int, []geom.Vec) {
	shifts := b.ImageShifts(r)
	dxs := make([]geom.Vec, len(shifts))
	for i, n := range shifts { dxs[i] = b.Lattice(n) }
	return shifts, dxs
}

// rootBounds returns the union of the root bounding boxes of the given trees.
// The second return value is false if all of them are empty.
func (q *AABBQuery) rootBounds(trees []int) (geom.AABB, bool) {
	bb, found := geom.EmptyAABB(), false
	for _, ti := range trees {
		if tb, ok := q.trees[ti].tree.Bounds(); ok {
			bb = bb.Merge(tb)
			found = true
		}
	}
	return bb, found
}
