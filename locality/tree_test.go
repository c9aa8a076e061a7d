package locality

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/phil-mansfield/neighbors/geom"
)

func randomPoints(rng *rand.Rand, n int, l geom.Vec) []geom.Vec {
	pts := make([]geom.Vec, n)
	for i := range pts {
		for k := 0; k < 3; k++ { pts[i][k] = rng.Float64() * l[k] }
	}
	return pts
}

// checkTree verifies the structural invariants of t over points and returns
// the particle indices found in its leaves.
func checkTree(t *testing.T, tree *Tree, points []geom.Vec) []int {
	leafIdx := []int{}

	var visit func(i int) int
	visit = func(i int) int {
		nd := &tree.nodes[i]
		if nd.isLeaf() {
			assert.Equal(t, 0, nd.skip, "leaf %d has descendants", i)
			assert.LessOrEqual(t, nd.count, LeafCapacity)
			for _, j := range tree.idx[nd.start : nd.start+nd.count] {
				leafIdx = append(leafIdx, j)
				assert.True(t, nd.bounds.ContainsPoint(points[j]),
					"leaf %d doesn't contain point %d", i, j)
			}
			return 1
		}

		assert.Zero(t, nd.count)
		left := i + 1
		right := left + tree.nodes[left].skip + 1
		assert.True(t, nd.bounds.Contains(tree.nodes[left].bounds))
		assert.True(t, nd.bounds.Contains(tree.nodes[right].bounds))

		n := 1 + visit(left) + visit(right)
		assert.Equal(t, nd.skip, n-1, "node %d has the wrong skip", i)
		return n
	}

	if tree.NumNodes() > 0 {
		assert.Equal(t, tree.NumNodes(), visit(0))
	}
	return leafIdx
}

func TestTreeInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	l := geom.Vec{10, 20, 5}

	for _, n := range []int{1, 2, LeafCapacity, LeafCapacity + 1, 100, 1000} {
		pts := randomPoints(rng, n, l)
		tree := NewTree(pts, nil)

		assert.Equal(t, n, tree.Len())
		assert.Equal(t, nodeCount(n), tree.NumNodes())

		leafIdx := checkTree(t, tree, pts)
		sort.Ints(leafIdx)
		for i := range leafIdx {
			if leafIdx[i] != i {
				t.Fatalf("n = %d: leaves don't partition the points", n)
			}
		}
	}
}

func TestTreeSubset(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	pts := randomPoints(rng, 200, geom.Vec{1, 1, 1})
	subset := []int{}
	for i := 0; i < len(pts); i += 3 { subset = append(subset, i) }

	tree := NewTree(pts, subset)
	leafIdx := checkTree(t, tree, pts)
	sort.Ints(leafIdx)
	assert.Equal(t, subset, leafIdx)
}

func TestTreeEmpty(t *testing.T) {
	tree := NewTree(nil, nil)
	assert.Equal(t, 0, tree.Len())
	assert.Equal(t, 0, tree.NumNodes())
	assert.Equal(t, 0, tree.Depth())
	_, ok := tree.Bounds()
	assert.False(t, ok)
}

func TestTreeDegeneratePoints(t *testing.T) {
	pts := make([]geom.Vec, 500)
	for i := range pts { pts[i] = geom.Vec{1, 2, 3} }

	tree := NewTree(pts, nil)
	checkTree(t, tree, pts)
	assert.Equal(t, 6, tree.Depth())
}

func TestTreeParallelBuild(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	n := 3 * parallelBuildSize
	pts := randomPoints(rng, n, geom.Vec{100, 100, 100})

	tree := NewTree(pts, nil)
	leafIdx := checkTree(t, tree, pts)
	assert.Equal(t, n, len(leafIdx))

	bb, ok := tree.Bounds()
	assert.True(t, ok)
	for _, p := range pts {
		if !bb.ContainsPoint(p) { t.Fatalf("root doesn't contain %v", p) }
	}
}

func TestSelectNth(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	for trial := 0; trial < 50; trial++ {
		n := 1 + rng.Intn(200)
		keys := make([]float64, n)
		for i := range keys { keys[i] = float64(rng.Intn(20)) }
		idx := make([]int, n)
		for i := range idx { idx[i] = i }
		k := rng.Intn(n)

		selectNth(idx, k, func(j int) float64 { return keys[j] })

		sorted := append([]float64{}, keys...)
		sort.Float64s(sorted)
		assert.Equal(t, sorted[k], keys[idx[k]], "trial %d", trial)
		for i := 0; i < k; i++ {
			assert.LessOrEqual(t, keys[idx[i]], keys[idx[k]])
		}
		for i := k + 1; i < n; i++ {
			assert.GreaterOrEqual(t, keys[idx[i]], keys[idx[k]])
		}
	}
}

func BenchmarkNewTree(b *testing.B) {
	rng := rand.New(rand.NewSource(5))
	pts := randomPoints(rng, 100000, geom.Vec{100, 100, 100})
	b.ResetTimer()
	for i := 0; i < b.N; i++ { NewTree(pts, nil) }
}
