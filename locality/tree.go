package locality

import (
	"github.com/phil-mansfield/neighbors/geom"
)

const (
	// LeafCapacity is the largest number of particles a leaf holds.
	LeafCapacity = 16
	// parallelBuildSize is the smallest subtree built on its own goroutine.
	parallelBuildSize = 1 << 15
)

// treeNode is one bounding volume of a Tree. Nodes are stored in pre-order,
// so the left child of an internal node i is i + 1 and its right child is
// i + 2 + nodes[i+1].skip.
type treeNode struct {
	bounds geom.AABB
	// skip is the number of nodes below this one. Adding skip + 1 to a
	// node's index jumps over its whole subtree.
	skip int
	// start and count give the leaf's range in Tree.idx. count is zero for
	// internal nodes.
	start, count int
}

func (n *treeNode) isLeaf() bool { return n.count > 0 }

// Tree is a bounding volume hierarchy over a fixed set of points. It is a
// full binary tree: every internal node has exactly two children.
type Tree struct {
	nodes []treeNode
	idx   []int
}

// NewTree builds a tree over the points whose indices are listed in subset.
// If subset is nil, every point is used. The points must not be modified
// while the tree is in use. Building is O(N log N).
func NewTree(points []geom.Vec, subset []int) *Tree {
	t := &Tree{}
	if subset == nil {
		t.idx = make([]int, len(points))
		for i := range t.idx { t.idx[i] = i }
	} else {
		t.idx = append([]int{}, subset...)
	}

	if len(t.idx) == 0 { return t }

	t.nodes = make([]treeNode, nodeCount(len(t.idx)))
	t.build(points, 0, 0, len(t.idx))
	return t
}

// nodeCount returns the number of nodes in a tree over n > 0 points. The
// split is always at n/2, so this depends on nothing else.
func nodeCount(n int) int {
	if n <= LeafCapacity { return 1 }
	h := n / 2
	return 1 + nodeCount(h) + nodeCount(n-h)
}

// build fills in node i with the subtree over t.idx[lo:hi] and returns its
// bounding box.
func (t *Tree) build(points []geom.Vec, i, lo, hi int) geom.AABB {
	n := hi - lo

	bb := geom.EmptyAABB()
	for _, j := range t.idx[lo:hi] { bb.ExpandPoint(points[j]) }

	if n <= LeafCapacity {
		t.nodes[i] = treeNode{bounds: bb, start: lo, count: n}
		return bb
	}

	// Median split along the widest axis keeps the tree balanced and the
	// children's boxes small.
	axis, h := bb.LongestAxis(), n/2
	selectNth(t.idx[lo:hi], h, func(j int) float64 { return points[j][axis] })

	left := i + 1
	right := left + nodeCount(h)

	var lb, rb geom.AABB
	if n >= parallelBuildSize {
		done := make(chan geom.AABB, 1)
		go func() { done <- t.build(points, left, lo, lo+h) }()
		rb = t.build(points, right, lo+h, hi)
		lb = <-done
	} else {
		lb = t.build(points, left, lo, lo+h)
		rb = t.build(points, right, lo+h, hi)
	}

	t.nodes[i] = treeNode{bounds: lb.Merge(rb), skip: nodeCount(n) - 1}
	return t.nodes[i].bounds
}

// selectNth reorders idx so that the element with rank k (by key) is at
// position k, everything before it has a key no larger and everything after
// it has a key no smaller.
func selectNth(idx []int, k int, key func(int) float64) {
	lo, hi := 0, len(idx)-1
	for lo < hi {
		pivot := medianOfThree(
			key(idx[lo]), key(idx[(lo+hi)/2]), key(idx[hi]),
		)

		i, j := lo, hi
		for i <= j {
			for key(idx[i]) < pivot { i++ }
			for key(idx[j]) > pivot { j-- }
			if i <= j {
				idx[i], idx[j] = idx[j], idx[i]
				i++
				j--
			}
		}

		if k <= j {
			hi = j
		} else if k >= i {
			lo = i
		} else {
			return
		}
	}
}

func medianOfThree(a, b, c float64) float64 {
	if a > b { a, b = b, a }
	if b > c { b = c }
	if a > b { return a }
	return b
}

// Len returns the number of points in the tree.
func (t *Tree) Len() int { return len(t.idx) }

// NumNodes returns the number of bounding volumes in the tree.
func (t *Tree) NumNodes() int { return len(t.nodes) }

// Bounds returns the bounding box of the whole tree. The second return value
// is false for empty trees.
func (t *Tree) Bounds() (geom.AABB, bool) {
	if len(t.nodes) == 0 { return geom.EmptyAABB(), false }
	return t.nodes[0].bounds, true
}

// Depth returns the number of nodes on the longest root-to-leaf path.
func (t *Tree) Depth() int {
	if len(t.nodes) == 0 { return 0 }
	return t.depth(0)
}

func (t *Tree) depth(i int) int {
	nd := &t.nodes[i]
	if nd.isLeaf() { return 1 }
	l := t.depth(i + 1)
	r := t.depth(i + 2 + t.nodes[i+1].skip)
	if l > r { return l + 1 }
	return r + 1
}
