package locality

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phil-mansfield/neighbors/box"
	"github.com/phil-mansfield/neighbors/geom"
)

func TestComputeNeighborListMatchesIterators(t *testing.T) {
	rng := rand.New(rand.NewSource(40))
	b := mustBox(t)(box.Cube(6))
	pts := boxPoints(rng, b, 250)
	q := mustQuery(t, b, pts)

	for _, args := range []Args{BallArgs(1.1, true), NearestArgs(6, true)} {
		expected := []NeighborBond{}
		for i := range pts {
			it, err := q.Query(pts[i], i, args)
			require.NoError(t, err)
			bonds := it.ToSlice()
			sortBonds(bonds)
			expected = append(expected, bonds...)
		}

		for _, workers := range []int{1, 3, 8, 1000, 0} {
			nl, err := ComputeSelfNeighborList(q, args, workers)
			require.NoError(t, err)
			assert.Equal(t, len(pts), nl.NumRefs)
			assert.Equal(t, expected, nl.Bonds,
				"mode %v, %d workers", args.Mode, workers)
		}
	}
}

func TestNeighborListAccessors(t *testing.T) {
	nl := &NeighborList{
		Bonds: []NeighborBond{
			{0, 3, 0.5}, {0, 1, 0.7}, {2, 0, 0.1}, {2, 1, 0.2}, {2, 4, 0.9},
		},
		Passes:  []int{1, 1, 1, 1},
		NumRefs: 4,
	}

	assert.Equal(t, 5, nl.Len())
	assert.Equal(t, []int{2, 0, 3, 0}, nl.Counts())
	assert.Equal(t, []int{0, 2, 2, 5}, nl.Segments())
	assert.Equal(t, []float64{0.5, 0.7, 0.1, 0.2, 0.9}, nl.Distances())

	short := nl.Filter(func(b NeighborBond) bool { return b.Distance < 0.6 })
	assert.Equal(t, []NeighborBond{{0, 3, 0.5}, {2, 0, 0.1}, {2, 1, 0.2}}, short.Bonds)
	assert.Equal(t, 4, short.NumRefs)

	nl.SortByNeighbor()
	assert.Equal(t, 1, nl.Bonds[0].Neighbor)
	assert.Equal(t, 3, nl.Bonds[1].Neighbor)
	assert.Equal(t, 0, nl.Bonds[2].Neighbor)
}

func TestComputeNeighborListPasses(t *testing.T) {
	rng := rand.New(rand.NewSource(41))
	b := mustBox(t)(box.Cube(10))
	pts := boxPoints(rng, b, 100)
	q := mustQuery(t, b, pts)

	args := Args{Mode: ModeNearest, NumNeighbors: 4, RMax: 1e-3, Scale: 2}
	nl, err := ComputeSelfNeighborList(q, args, 4)
	require.NoError(t, err)

	assert.Len(t, nl.Passes, len(pts))
	for i, n := range nl.Passes {
		assert.Greater(t, n, 1, "reference %d", i)
	}
	for _, c := range nl.Counts() { assert.Equal(t, 4, c) }
}

func TestComputeNeighborListFailsUpFront(t *testing.T) {
	b := mustBox(t)(box.Cube(10))
	q := mustQuery(t, b, []geom.Vec{{1, 1, 1}})

	_, err := ComputeSelfNeighborList(q, NearestArgs(0, true), 2)
	assert.True(t, errors.Is(err, ErrConfiguration))

	_, err = ComputeNeighborList(
		q, []geom.Vec{{1, 1, 1}, {math.NaN(), 0, 0}}, BallArgs(1, false), 2,
	)
	assert.True(t, errors.Is(err, ErrConfiguration))

	nl, err := ComputeNeighborList(q, nil, BallArgs(1, false), 2)
	require.NoError(t, err)
	assert.Equal(t, 0, nl.Len())
}

func BenchmarkComputeSelfNeighborList(b *testing.B) {
	rng := rand.New(rand.NewSource(42))
	bx, _ := box.Cube(20)
	pts := boxPoints(rng, bx, 20000)
	q, _ := NewAABBQuery(bx, pts)
	args := NearestArgs(12, true)
	b.ResetTimer()

	for i := 0; i < b.N; i++ { ComputeSelfNeighborList(q, args, 0) }
}
