/*package locality finds the neighbors of points in periodic simulation boxes
using a bounding volume hierarchy.

An AABBQuery is built once over a fixed snapshot of particle positions and is
then read-only: any number of Iterators may run against it concurrently.
The box and the point slice are borrowed, not copied, so they must not be
modified while the AABBQuery or any Iterator made from it is in use.
*/
package locality

import (
	"fmt"
	"math"
	"sort"

	"github.com/phil-mansfield/neighbors/box"
	"github.com/phil-mansfield/neighbors/geom"
)

// spanTol is the slack allowed when checking that all points lie within a
// single periodic copy of the box.
const spanTol = box.SpanTolerance

// NeighborBond is a single (reference point, neighbor) pair.
type NeighborBond struct {
	Ref, Neighbor int
	Distance      float64
}

// NeighborQuery is implemented by spatial indices which can hand out
// per-point neighbor iterators.
type NeighborQuery interface {
	Box() *box.Box
	Points() []geom.Vec
	Query(p geom.Vec, idx int, args Args) (*Iterator, error)
}

type typedTree struct {
	typ  int
	tree *Tree
}

// AABBQuery is a spatial index over a set of points in a periodic box. It
// holds one Tree per particle type.
type AABBQuery struct {
	box    *box.Box
	points []geom.Vec
	types  []int
	trees  []typedTree
	// fracLo is the lowest fractional coordinate of any point. Query points
	// are moved into the box copy starting here.
	fracLo geom.Vec

	// shifts and dxs are the image translations for the smallest reach,
	// which serves most queries.
	reach  [3]int
	shifts [][3]int
	dxs    []geom.Vec
}

// NewAABBQuery builds an index over points, all of which are treated as a
// single type.
func NewAABBQuery(b *box.Box, points []geom.Vec) (*AABBQuery, error) {
	return NewTypedAABBQuery(b, points, nil)
}

// NewTypedAABBQuery builds an index with a separate tree for each distinct
// value in types. If types is nil, every point has type 0.
//
// Points must lie within a single periodic copy of the box, though that copy
// need not start at the origin.
func NewTypedAABBQuery(
	b *box.Box, points []geom.Vec, types []int,
) (*AABBQuery, error) {
	if b == nil {
		return nil, fmt.Errorf("%w: box is nil", ErrConfiguration)
	} else if !(b.Volume() > 0) {
		return nil, fmt.Errorf(
			"%w: box volume must be positive, got %g",
			ErrConfiguration, b.Volume(),
		)
	} else if types != nil && len(types) != len(points) {
		return nil, fmt.Errorf(
			"%w: got %d types for %d points",
			ErrConfiguration, len(types), len(points),
		)
	}

	q := &AABBQuery{ box: b, points: points, types: types }
	if err := q.checkPoints(); err != nil { return nil, err }

	q.reach = b.ImageReach(0)
	q.shifts, q.dxs = imageShifts(b, 0)

	if types == nil {
		q.trees = []typedTree{{0, NewTree(q.points, nil)}}
		return q, nil
	}

	subsets := map[int][]int{}
	for i, typ := range types {
		if typ < 0 {
			return nil, fmt.Errorf(
				"%w: point %d has negative type %d", ErrConfiguration, i, typ,
			)
		}
		subsets[typ] = append(subsets[typ], i)
	}
	for typ, subset := range subsets {
		q.trees = append(q.trees, typedTree{typ, NewTree(q.points, subset)})
	}
	sort.Slice(q.trees, func(i, j int) bool {
		return q.trees[i].typ < q.trees[j].typ
	})

	return q, nil
}

// checkPoints rejects non-finite points and point sets which span more than
// one periodic copy of the box. In 2D boxes, points with non-zero z values
// are replaced by a projected copy.
func (q *AABBQuery) checkPoints() error {
	projected := false
	for i, p := range q.points {
		if !p.IsFinite() {
			return fmt.Errorf(
				"%w: point %d is not finite: %v", ErrConfiguration, i, p,
			)
		}
		if q.box.Is2D() && p[2] != 0 { projected = true }
	}

	if projected {
		pts := make([]geom.Vec, len(q.points))
		for i, p := range q.points { pts[i] = q.box.Project(p) }
		q.points = pts
	}

	if len(q.points) == 0 { return nil }

	lo := q.box.MakeFractional(q.points[0])
	hi := lo
	for _, p := range q.points[1:] {
		f := q.box.MakeFractional(p)
		for k := 0; k < 3; k++ {
			if f[k] < lo[k] { lo[k] = f[k] }
			if f[k] > hi[k] { hi[k] = f[k] }
		}
	}

	q.fracLo = lo
	periodic := q.box.Periodic()
	for k := 0; k < 3; k++ {
		if periodic[k] && hi[k]-lo[k] > 1+spanTol {
			return fmt.Errorf(
				"%w: points span %g box lengths along axis %d; wrap them "+
					"into the box first", ErrConfiguration, hi[k]-lo[k], k,
			)
		}
	}
	return nil
}

// Box returns the simulation box of the index.
func (q *AABBQuery) Box() *box.Box { return q.box }

// Points returns the indexed points. In 2D boxes these have zero z values.
func (q *AABBQuery) Points() []geom.Vec { return q.points }

// Len returns the number of indexed points.
func (q *AABBQuery) Len() int { return len(q.points) }

// Types returns the distinct particle types, in increasing order.
func (q *AABBQuery) Types() []int {
	out := make([]int, len(q.trees))
	for i := range q.trees { out[i] = q.trees[i].typ }
	return out
}

// Tree returns the tree for the given type, if there is one.
func (q *AABBQuery) Tree(typ int) (*Tree, bool) {
	for i := range q.trees {
		if q.trees[i].typ == typ { return q.trees[i].tree, true }
	}
	return nil, false
}

// Query validates args, fills in defaults and returns an iterator over the
// neighbors of p. idx is reported as the reference id of every bond and is
// compared against neighbor ids when args.ExcludeSelf is set. Points that
// aren't part of the index should use a negative idx.
func (q *AABBQuery) Query(p geom.Vec, idx int, args Args) (*Iterator, error) {
	args, err := args.resolve(q.box)
	if err != nil { return nil, err }
	if !p.IsFinite() {
		return nil, fmt.Errorf(
			"%w: query point is not finite: %v", ErrConfiguration, p,
		)
	}

	it := &Iterator{
		q: q, point: q.homeImage(p), idx: idx,
		excludeSelf: args.ExcludeSelf, mode: args.Mode,
		trees: q.treeSubset(args.Types),
	}

	switch args.Mode {
	case ModeBall:
		it.ball = ballSearch{ rMax: args.RMax }
		it.ball.images = q.images(it.point, args.RMax, it.trees)
	case ModeNearest:
		it.nearest = nearestSearch{
			k: args.NumNeighbors, r: args.RMax, scale: args.Scale,
		}
	default:
		panic("Impossible: Args.resolve accepted an unknown mode.")
	}

	return it, nil
}

// homeImage translates p by whole box vectors into the periodic copy of the
// box which holds the indexed points. Minimum image shifts between the
// result and any indexed point are then within the box's image reach.
func (q *AABBQuery) homeImage(p geom.Vec) geom.Vec {
	p = q.box.Project(p)
	f := q.box.MakeFractional(p)
	periodic := q.box.Periodic()

	var n [3]int
	for k := 0; k < 3; k++ {
		if periodic[k] { n[k] = int(math.Floor(f[k] - q.fracLo[k])) }
	}
	if n == [3]int{} { return p }
	return p.Sub(q.box.Lattice(n))
}

// QueryBall returns an iterator over every indexed point within rMax of p.
func (q *AABBQuery) QueryBall(
	p geom.Vec, idx int, rMax float64, excludeSelf bool,
) (*Iterator, error) {
	return q.Query(p, idx, BallArgs(rMax, excludeSelf))
}

// QueryNearest returns an iterator over the k nearest indexed points to p,
// closest first. rGuess is the initial search radius and scale is the factor
// it grows by after each unsuccessful pass. Either may be DefaultRMax or
// DefaultScale.
func (q *AABBQuery) QueryNearest(
	p geom.Vec, idx int, k int, rGuess, scale float64, excludeSelf bool,
) (*Iterator, error) {
	return q.Query(p, idx, Args{
		Mode: ModeNearest, NumNeighbors: k, RMax: rGuess,
		Scale: scale, ExcludeSelf: excludeSelf,
	})
}

// QueryNum is the radius-free nearest neighbor entry point. AABBQuery can't
// serve it: tree searches need a radius guess and scale, so use QueryNearest.
func (q *AABBQuery) QueryNum(
	p geom.Vec, idx int, k int, excludeSelf bool,
) (*Iterator, error) {
	return nil, fmt.Errorf(
		"%w: k-NN queries require a radius guess and scale",
		ErrConfiguration,
	)
}

// treeSubset returns the positions in q.trees of the trees with the given
// types, or of all trees if types is empty. Unknown types are ignored.
func (q *AABBQuery) treeSubset(types []int) []int {
	out := []int{}
	for i := range q.trees {
		if len(types) == 0 {
			out = append(out, i)
			continue
		}
		for _, typ := range types {
			if q.trees[i].typ == typ {
				out = append(out, i)
				break
			}
		}
	}
	return out
}

// available returns the number of points an iterator over the given trees
// can ever return.
func (q *AABBQuery) available(trees []int, idx int, excludeSelf bool) int {
	n := 0
	for _, ti := range trees { n += q.trees[ti].tree.Len() }

	if excludeSelf && idx >= 0 && idx < len(q.points) {
		selfType := 0
		if q.types != nil { selfType = q.types[idx] }
		for _, ti := range trees {
			if q.trees[ti].typ == selfType { return n - 1 }
		}
	}
	return n
}

// Typechecking
var _ NeighborQuery = &AABBQuery{}
