package locality

import (
	"math"
	"sort"

	"github.com/phil-mansfield/neighbors/geom"
)

// acceptPolicy decides which image-translated hits a traversal reports.
type acceptPolicy int

const (
	// canonicalImage reports a point only through the image which realizes
	// its minimum image displacement, so each point appears at most once.
	canonicalImage acceptPolicy = iota
	// anyImage reports every image within range. Callers deduplicate.
	anyImage
)

// cursor is a resumable position in a traversal over every (image, tree,
// node, leaf particle) combination.
type cursor struct {
	image, tree, node, offset int
}

type ballSearch struct {
	rMax   float64
	images []image
	cur    cursor
}

type nearestSearch struct {
	k        int
	r, scale float64
	extended bool
	passes   int
	done     bool
	results  []NeighborBond
	next     int
}

// Iterator produces the neighbors of a single query point. It is either a
// ball search or a nearest neighbor search, depending on the Mode it was
// created with. Iterators are not safe for concurrent use, but any number of
// them can be used concurrently on the same AABBQuery.
type Iterator struct {
	q           *AABBQuery
	point       geom.Vec
	idx         int
	excludeSelf bool
	trees       []int
	mode        Mode

	ball    ballSearch
	nearest nearestSearch
}

// Mode returns the kind of search the iterator performs.
func (it *Iterator) Mode() Mode { return it.mode }

// Next returns the next neighbor. The second return value is false once the
// iterator is exhausted. Ball searches return neighbors in no particular
// order, nearest neighbor searches return them closest first, with ties
// broken by neighbor id.
func (it *Iterator) Next() (NeighborBond, bool) {
	switch it.mode {
	case ModeBall:
		return it.advance(&it.ball.cur, it.ball.images, it.ball.rMax, canonicalImage)
	case ModeNearest:
		ns := &it.nearest
		if !ns.done { it.searchNearest() }
		if ns.next >= len(ns.results) { return NeighborBond{}, false }
		b := ns.results[ns.next]
		ns.next++
		return b, true
	}
	panic("Impossible: iterator has unknown mode.")
}

// ToSlice drains the iterator and returns every remaining neighbor.
func (it *Iterator) ToSlice() []NeighborBond {
	out := []NeighborBond{}
	for b, ok := it.Next(); ok; b, ok = it.Next() {
		out = append(out, b)
	}
	return out
}

// Passes returns the number of ball searches run so far. Ball iterators
// always report 1.
func (it *Iterator) Passes() int {
	if it.mode == ModeBall { return 1 }
	return it.nearest.passes
}

// Radius returns the current search radius.
func (it *Iterator) Radius() float64 {
	if it.mode == ModeBall { return it.ball.rMax }
	return it.nearest.r
}

// Extended returns true if a nearest neighbor search has grown past the
// distance where a point can be seen through more than one image.
func (it *Iterator) Extended() bool { return it.nearest.extended }

// advance walks the trees from c until it finds a point within r of an
// image of the query point which policy accepts. c is left just past that
// point, so calling advance again resumes the walk.
func (it *Iterator) advance(
	c *cursor, images []image, r float64, policy acceptPolicy,
) (NeighborBond, bool) {
	r2 := r * r
	bx := it.q.box
	points := it.q.points

	for ; c.image < len(images); c.image, c.tree, c.node = c.image+1, 0, 0 {
		qp := it.point.Add(images[c.image].dx)

		for ; c.tree < len(it.trees); c.tree, c.node = c.tree+1, 0 {
			t := it.q.trees[it.trees[c.tree]].tree

			for c.node < len(t.nodes) {
				nd := &t.nodes[c.node]
				if !nd.bounds.IntersectsSphere(qp, r) {
					c.node += nd.skip + 1
					continue
				} else if !nd.isLeaf() {
					c.node++
					continue
				}

				for c.offset < nd.count {
					j := t.idx[nd.start+c.offset]
					c.offset++
					if it.excludeSelf && j == it.idx { continue }

					d := points[j].Sub(qp)
					d2 := d.Norm2()
					if d2 > r2 { continue }
					if policy == canonicalImage && bx.Shift(d) != [3]int{} {
						continue
					}

					return NeighborBond{
						Ref: it.idx, Neighbor: j, Distance: math.Sqrt(d2),
					}, true
				}

				c.offset = 0
				c.node++
			}
		}
	}

	return NeighborBond{}, false
}

// searchNearest runs expanding ball searches until the k nearest neighbors
// are known or every available point has been found.
func (it *Iterator) searchNearest() {
	ns := &it.nearest
	safe := it.q.box.SafeDistance()
	avail := it.q.available(it.trees, it.idx, it.excludeSelf)

	for {
		ns.passes++
		if ns.r >= safe { ns.extended = true }

		found := it.ballPass(ns.r, ns.extended)
		if len(found) >= ns.k || len(found) >= avail {
			sortBonds(found)
			if len(found) < ns.k || found[ns.k-1].Distance <= ns.r {
				if len(found) > ns.k { found = found[:ns.k] }
				ns.results, ns.done = found, true
				return
			}
		}

		ns.r *= ns.scale
	}
}

// ballPass collects every point within r of the query point. Once dedup is
// set, a point may be hit through several images, so only the closest one
// is kept.
func (it *Iterator) ballPass(r float64, dedup bool) []NeighborBond {
	images := it.q.images(it.point, r, it.trees)
	c := cursor{}

	if !dedup {
		found := []NeighborBond{}
		for {
			b, ok := it.advance(&c, images, r, anyImage)
			if !ok { return found }
			found = append(found, b)
		}
	}

	dists := map[int]float64{}
	for {
		b, ok := it.advance(&c, images, r, anyImage)
		if !ok { break }
		if d, seen := dists[b.Neighbor]; !seen || b.Distance < d {
			dists[b.Neighbor] = b.Distance
		}
	}

	found := make([]NeighborBond, 0, len(dists))
	for j, d := range dists {
		found = append(found, NeighborBond{Ref: it.idx, Neighbor: j, Distance: d})
	}
	return found
}

// sortBonds orders bonds by distance, then by neighbor id.
func sortBonds(bonds []NeighborBond) {
	sort.Slice(bonds, func(i, j int) bool {
		if bonds[i].Distance != bonds[j].Distance {
			return bonds[i].Distance < bonds[j].Distance
		}
		return bonds[i].Neighbor < bonds[j].Neighbor
	})
}
