package locality

import (
	"fmt"
	"runtime"
	"sort"

	"github.com/phil-mansfield/neighbors/geom"
)

// NeighborList is the set of bonds found for a sequence of reference
// points. Bonds are grouped by reference point, in reference order, and
// within a group they are sorted by distance and then neighbor id.
type NeighborList struct {
	Bonds []NeighborBond
	// Passes gives the number of ball searches needed for each reference
	// point.
	Passes  []int
	NumRefs int
}

// Len returns the number of bonds.
func (nl *NeighborList) Len() int { return len(nl.Bonds) }

// Counts returns the number of bonds belonging to each reference point.
func (nl *NeighborList) Counts() []int {
	counts := make([]int, nl.NumRefs)
	for _, b := range nl.Bonds { counts[b.Ref]++ }
	return counts
}

// Segments returns the index of the first bond of each reference point.
// Reference points without bonds get the index their first bond would have.
func (nl *NeighborList) Segments() []int {
	segs := make([]int, nl.NumRefs)
	start := 0
	for i, n := range nl.Counts() {
		segs[i] = start
		start += n
	}
	return segs
}

// Distances returns the distance of every bond.
func (nl *NeighborList) Distances() []float64 {
	out := make([]float64, len(nl.Bonds))
	for i := range nl.Bonds { out[i] = nl.Bonds[i].Distance }
	return out
}

// Filter returns a new list containing the bonds for which keep is true.
func (nl *NeighborList) Filter(keep func(NeighborBond) bool) *NeighborList {
	out := &NeighborList{ Passes: nl.Passes, NumRefs: nl.NumRefs }
	for _, b := range nl.Bonds {
		if keep(b) { out.Bonds = append(out.Bonds, b) }
	}
	return out
}

// ComputeNeighborList runs the query described by args for every point in
// queryPoints, using workers goroutines. The i-th query point gets reference
// id i. If workers < 1, one goroutine per logical core is used.
//
// Arguments and query points are checked before any search starts, so
// either the whole list is computed or an error is returned immediately.
func ComputeNeighborList(
	nq NeighborQuery, queryPoints []geom.Vec, args Args, workers int,
) (*NeighborList, error) {
	if err := args.Validate(); err != nil { return nil, err }
	for i, p := range queryPoints {
		if !p.IsFinite() {
			return nil, fmt.Errorf(
				"%w: query point %d is not finite: %v",
				ErrConfiguration, i, p,
			)
		}
	}

	if workers < 1 { workers = runtime.NumCPU() }
	if workers > len(queryPoints) { workers = len(queryPoints) }

	nl := &NeighborList{
		Passes: make([]int, len(queryPoints)), NumRefs: len(queryPoints),
	}
	if workers == 0 { return nl, nil }

	chunks := make([][]NeighborBond, workers)
	errs := make([]error, workers)
	out := make(chan int, workers)

	for id := 0; id < workers-1; id++ {
		go chanQuery(nq, queryPoints, args, nl.Passes, id, workers, chunks, errs, out)
	}
	chanQuery(nq, queryPoints, args, nl.Passes, workers-1, workers, chunks, errs, out)

	for i := 0; i < workers; i++ { <-out }

	for id := 0; id < workers; id++ {
		if errs[id] != nil { return nil, errs[id] }
		nl.Bonds = append(nl.Bonds, chunks[id]...)
	}
	return nl, nil
}

// ComputeSelfNeighborList runs the query for every indexed point, so that
// reference ids and neighbor ids refer to the same points.
func ComputeSelfNeighborList(
	nq NeighborQuery, args Args, workers int,
) (*NeighborList, error) {
	return ComputeNeighborList(nq, nq.Points(), args, workers)
}

// chanQuery handles the id-th contiguous block of query points and signals
// out when it's done.
func chanQuery(
	nq NeighborQuery, queryPoints []geom.Vec, args Args, passes []int,
	id, workers int, chunks [][]NeighborBond, errs []error, out chan<- int,
) {
	defer func() { out <- id }()

	lo := id * len(queryPoints) / workers
	hi := (id + 1) * len(queryPoints) / workers

	bonds := []NeighborBond{}
	for i := lo; i < hi; i++ {
		it, err := nq.Query(queryPoints[i], i, args)
		if err != nil {
			errs[id] = err
			return
		}

		start := len(bonds)
		for b, ok := it.Next(); ok; b, ok = it.Next() {
			bonds = append(bonds, b)
		}
		if it.Mode() == ModeBall { sortBonds(bonds[start:]) }
		passes[i] = it.Passes()
	}

	chunks[id] = bonds
}

// SortByNeighbor orders the bonds of each reference point by neighbor id.
func (nl *NeighborList) SortByNeighbor() {
	sort.SliceStable(nl.Bonds, func(i, j int) bool {
		bi, bj := nl.Bonds[i], nl.Bonds[j]
		if bi.Ref != bj.Ref { return bi.Ref < bj.Ref }
		return bi.Neighbor < bj.Neighbor
	})
}
