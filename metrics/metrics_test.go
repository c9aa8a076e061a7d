package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phil-mansfield/neighbors/locality"
)

func TestRecorderTextfile(t *testing.T) {
	nl := &locality.NeighborList{
		Bonds: []locality.NeighborBond{
			{Ref: 0, Neighbor: 1, Distance: 1},
			{Ref: 0, Neighbor: 2, Distance: 2},
			{Ref: 1, Neighbor: 0, Distance: 1},
		},
		Passes: []int{1, 3},
		NumRefs: 2,
	}

	r := NewRecorder()
	r.SetPoints(3)
	r.ObserveList(locality.ModeNearest, nl)
	r.ObserveStage("query", time.Now())

	fname := filepath.Join(t.TempDir(), "neighbors.prom")
	require.NoError(t, r.WriteTextfile(fname))
	data, err := os.ReadFile(fname)
	require.NoError(t, err)
	text := string(data)

	assert.Contains(t, text, `neighbors_queries_total{mode="Nearest"} 2`)
	assert.Contains(t, text, `neighbors_bonds_total{mode="Nearest"} 3`)
	assert.Contains(t, text, "neighbors_nearest_passes_count 2")
	assert.Contains(t, text, "neighbors_nearest_passes_sum 4")
	assert.Contains(t, text, "neighbors_points 3")
	assert.Contains(t, text, `neighbors_stage_duration_seconds_count{stage="query"} 1`)
}

func TestRecordersAreIndependent(t *testing.T) {
	nl := &locality.NeighborList{ NumRefs: 5, Passes: make([]int, 5) }
	r1, r2 := NewRecorder(), NewRecorder()
	r1.ObserveList(locality.ModeBall, nl)

	mfs, err := r2.Registry().Gather()
	require.NoError(t, err)
	for _, mf := range mfs {
		assert.False(t, strings.HasPrefix(mf.GetName(), "neighbors_queries"))
	}

	mfs, err = r1.Registry().Gather()
	require.NoError(t, err)
	found := false
	for _, mf := range mfs {
		if mf.GetName() == "neighbors_queries_total" {
			found = true
			assert.Equal(t, 5.0, mf.GetMetric()[0].GetCounter().GetValue())
		}
	}
	assert.True(t, found)
}
