/*package box contains routines for dealing with the periodic geometry of
simulation boxes, including sheared (triclinic) boxes and 2D boxes.

Box vectors follow the usual convention:

    a1 = (Lx, 0, 0)
    a2 = (XY*Ly, Ly, 0)
    a3 = (XZ*Lz, YZ*Lz, Lz)
*/
package box

import (
	"errors"
	"fmt"
	"math"

	"github.com/phil-mansfield/neighbors/geom"
)

// ErrConfiguration is returned (wrapped) whenever a box or a query is built
// from invalid or contradictory parameters.
var ErrConfiguration = errors.New("configuration error")

const (
	// SpanTolerance is the slack, in box lengths, allowed for point sets
	// which are meant to lie within a single periodic copy of the box.
	SpanTolerance = 1e-9

	// maxRefine bounds the number of lattice descent steps Shift takes
	// before its exhaustive search in tilted boxes.
	maxRefine = 8
	// refineTol is the relative length improvement a lattice image needs
	// before it replaces the current one.
	refineTol = 1e-12
	// maxShiftCandidates is the largest number of lattice triples Shift may
	// need to search. More strongly sheared boxes are rejected by New.
	maxShiftCandidates = 1 << 12
)

// Box is an immutable periodic simulation cell.
type Box struct {
	l        [3]float64
	xy, xz, yz float64
	periodic [3]bool
	is2D     bool

	a [3]geom.Vec
	tilted bool

	widths [3]float64
	// cover bounds the length of the periodic part of any displacement
	// after rounding in fractional coordinates.
	cover float64
	safe2 float64
}

// New creates a box with the edge lengths l, tilt factors tilt = {XY, XZ, YZ}
// and periodicity flags periodic. If is2D is set, every z value is ignored.
func New(
	l [3]float64, tilt [3]float64, periodic [3]bool, is2D bool,
) (*Box, error) {
	dims := 3
	if is2D { dims = 2 }

	names := [3]string{"Lx", "Ly", "Lz"}
	for i := 0; i < dims; i++ {
		if !(l[i] > 0) || math.IsInf(l[i], 0) {
			return nil, fmt.Errorf(
				"%w: box edge %s must be positive and finite, but is %g",
				ErrConfiguration, names[i], l[i],
			)
		}
	}
	for i, t := range tilt {
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return nil, fmt.Errorf(
				"%w: tilt factor %d is %g", ErrConfiguration, i, t,
			)
		}
	}

	b := &Box{ l: l, xy: tilt[0], xz: tilt[1], yz: tilt[2], periodic: periodic }
	if is2D {
		b.is2D = true
		b.l[2], b.xz, b.yz = 0, 0, 0
		b.periodic[2] = false
	}
	b.tilted = b.xy != 0 || b.xz != 0 || b.yz != 0

	// Each tilt factor couples two axes, and both of them must be periodic.
	// Non-periodic axes then stay orthogonal to every lattice vector.
	tiltNames := [3]string{"XY", "XZ", "YZ"}
	tiltAxes := [3][2]int{{0, 1}, {0, 2}, {1, 2}}
	for i, t := range [3]float64{b.xy, b.xz, b.yz} {
		ax := tiltAxes[i]
		if t != 0 && !(b.periodic[ax[0]] && b.periodic[ax[1]]) {
			return nil, fmt.Errorf(
				"%w: tilt factor %s is %g, but axes %s and %s are not "+
					"both periodic", ErrConfiguration, tiltNames[i], t,
				names[ax[0]][1:], names[ax[1]][1:],
			)
		}
	}

	b.a[0] = geom.Vec{b.l[0], 0, 0}
	b.a[1] = geom.Vec{b.xy * b.l[1], b.l[1], 0}
	b.a[2] = geom.Vec{b.xz * b.l[2], b.yz * b.l[2], b.l[2]}

	b.widths = b.PlaneWidths()
	safe := b.SafeDistance()
	b.safe2 = safe * safe
	for i := 0; i < 3; i++ {
		if b.periodic[i] { b.cover += b.a[i].Norm() / 2 }
	}

	if b.tilted {
		if n := b.shiftCandidates(); n > maxShiftCandidates {
			return nil, fmt.Errorf(
				"%w: box with tilt factors (%g, %g, %g) is too strongly "+
					"sheared; minimum images would need a search over %d "+
					"lattice images, but at most %d are supported",
				ErrConfiguration, b.xy, b.xz, b.yz, n, maxShiftCandidates,
			)
		}
	}

	return b, nil
}

// shiftCandidates returns the number of lattice triples Shift may need to
// search after rounding.
func (b *Box) shiftCandidates() int {
	n := 1
	for i := 0; i < 3; i++ {
		if !b.periodic[i] { continue }
		r := math.Ceil(b.cover / b.widths[i])
		if r > maxShiftCandidates { return maxShiftCandidates + 1 }
		n *= 2*int(r) + 1
		if n > maxShiftCandidates { return n }
	}
	return n
}

// Cube creates a fully periodic cubic box with edge length l.
func Cube(l float64) (*Box, error) {
	return New([3]float64{l, l, l}, [3]float64{}, [3]bool{true, true, true}, false)
}

// Square creates a fully periodic 2D square box with edge length l.
func Square(l float64) (*Box, error) {
	return New([3]float64{l, l, 0}, [3]float64{}, [3]bool{true, true, false}, true)
}

func (b *Box) L() [3]float64 { return b.l }
func (b *Box) Tilt() [3]float64 { return [3]float64{b.xy, b.xz, b.yz} }
func (b *Box) Periodic() [3]bool { return b.periodic }
func (b *Box) Is2D() bool { return b.is2D }
func (b *Box) HasTilt() bool { return b.tilted }

// Dims returns the number of dimensions used by the box.
func (b *Box) Dims() int {
	if b.is2D { return 2 }
	return 3
}

// LatticeVector returns the i-th box vector.
func (b *Box) LatticeVector(i int) geom.Vec { return b.a[i] }

// Volume returns the volume of the box, or its area in 2D.
func (b *Box) Volume() float64 {
	if b.is2D { return b.l[0] * b.l[1] }
	return b.l[0] * b.l[1] * b.l[2]
}

// Project returns v with its z component cleared in 2D boxes.
func (b *Box) Project(v geom.Vec) geom.Vec {
	if b.is2D { v[2] = 0 }
	return v
}

// MakeFractional converts a displacement into units of the box vectors.
func (b *Box) MakeFractional(v geom.Vec) geom.Vec {
	var f geom.Vec
	if !b.is2D {
		f[2] = v[2] / b.l[2]
	}
	f[1] = (v[1] - b.yz*b.l[2]*f[2]) / b.l[1]
	f[0] = (v[0] - b.xy*b.l[1]*f[1] - b.xz*b.l[2]*f[2]) / b.l[0]
	return f
}

// MakeCartesian is the inverse of MakeFractional.
func (b *Box) MakeCartesian(f geom.Vec) geom.Vec {
	if b.is2D { f[2] = 0 }
	return b.a[0].Scale(f[0]).Add(b.a[1].Scale(f[1])).Add(b.a[2].Scale(f[2]))
}

// Lattice returns the translation n[0]*a1 + n[1]*a2 + n[2]*a3.
func (b *Box) Lattice(n [3]int) geom.Vec {
	var out geom.Vec
	for i := 0; i < 3; i++ {
		if n[i] == 0 { continue }
		out = out.Add(b.a[i].Scale(float64(n[i])))
	}
	return out
}

// Shift returns the lattice translation which Wrap removes from v, so that
// Wrap(v) == v - Lattice(Shift(v)). Components along non-periodic axes are
// always zero.
func (b *Box) Shift(v geom.Vec) [3]int {
	v = b.Project(v)
	f := b.MakeFractional(v)

	var n [3]int
	for i := 0; i < 3; i++ {
		if !b.periodic[i] { continue }
		// Rounding this way maps fractional offsets into [-1/2, 1/2).
		n[i] = int(math.Floor(f[i] + 0.5))
	}
	if !b.tilted { return n }

	// Non-periodic axes are orthogonal to the lattice, so only the periodic
	// part of the displacement can get shorter.
	w := b.periodicPart(v.Sub(b.Lattice(n)))
	best := w.Norm2()
	if best <= b.safe2 { return n }

	// Descending to shorter neighboring images first narrows the exhaustive
	// search below.
	offsets := b.neighborOffsets()
	for iter := 0; iter < maxRefine; iter++ {
		bestD, bestC2 := -1, best
		for j, d := range offsets {
			cand := w.Sub(b.Lattice(d))
			if c2 := cand.Norm2(); c2 < bestC2 {
				bestD, bestC2 = j, c2
			}
		}
		if bestD < 0 || bestC2 >= best*(1-refineTol) { break }

		d := offsets[bestD]
		w = w.Sub(b.Lattice(d))
		best = bestC2
		for i := 0; i < 3; i++ { n[i] += d[i] }
	}
	if best <= b.safe2 { return n }

	// Any image u no longer than w has |frac_i(u)| <= |w| / width_i, which
	// bounds every offset worth trying.
	fw := b.MakeFractional(w)
	norm := math.Sqrt(best)
	var lo, hi [3]int
	for i := 0; i < 3; i++ {
		if !b.periodic[i] { continue }
		span := norm / b.widths[i]
		lo[i] = int(math.Ceil(fw[i] - span))
		hi[i] = int(math.Floor(fw[i] + span))
	}

	var bestD [3]int
	bestC2 := best
	for i := lo[0]; i <= hi[0]; i++ {
		for j := lo[1]; j <= hi[1]; j++ {
			for k := lo[2]; k <= hi[2]; k++ {
				d := [3]int{i, j, k}
				if d == [3]int{} { continue }
				c2 := w.Sub(b.Lattice(d)).Norm2()
				if c2 < bestC2*(1-refineTol) { bestD, bestC2 = d, c2 }
			}
		}
	}
	for i := 0; i < 3; i++ { n[i] += bestD[i] }
	return n
}

// periodicPart clears the components of v along non-periodic axes.
func (b *Box) periodicPart(v geom.Vec) geom.Vec {
	for i := 0; i < 3; i++ {
		if !b.periodic[i] { v[i] = 0 }
	}
	return v
}

// Wrap returns the minimum image representation of the displacement v.
func (b *Box) Wrap(v geom.Vec) geom.Vec {
	v = b.Project(v)
	return v.Sub(b.Lattice(b.Shift(v)))
}

// Distance returns the minimum image distance between two points.
func (b *Box) Distance(p1, p2 geom.Vec) float64 {
	return b.Wrap(p2.Sub(p1)).Norm()
}

// neighborOffsets returns every non-zero lattice triple with components in
// {-1, 0, +1} along periodic axes.
func (b *Box) neighborOffsets() [][3]int {
	out := [][3]int{}
	lo, hi := b.shiftRange([3]int{1, 1, 1})
	for i := lo[0]; i <= hi[0]; i++ {
		for j := lo[1]; j <= hi[1]; j++ {
			for k := lo[2]; k <= hi[2]; k++ {
				if i == 0 && j == 0 && k == 0 { continue }
				out = append(out, [3]int{i, j, k})
			}
		}
	}
	return out
}

// shiftRange returns the inclusive per-axis range of lattice steps when up to
// reach[i] steps are allowed along each periodic axis.
func (b *Box) shiftRange(reach [3]int) (lo, hi [3]int) {
	for i := 0; i < 3; i++ {
		if b.periodic[i] { lo[i], hi[i] = -reach[i], +reach[i] }
	}
	return lo, hi
}

// ImageReach returns, per axis, the largest number of lattice steps that the
// minimum image shift between two points in one periodic copy of the box can
// take, given that their minimum image distance is at most r. Non-periodic
// axes have a reach of zero.
func (b *Box) ImageReach(r float64) [3]int {
	var reach [3]int
	for i := 0; i < 3; i++ {
		if !b.periodic[i] { continue }
		if !b.tilted {
			reach[i] = 1
			continue
		}
		// Fractional offsets between the points are below 1 + SpanTolerance
		// and the minimum image itself spans at most min(r, cover)/width.
		if r > b.cover || math.IsNaN(r) { r = b.cover }
		reach[i] = int(math.Floor(1 + SpanTolerance + r/b.widths[i]))
	}
	return reach
}

// ImageShifts returns every lattice triple which can be the minimum image
// shift between two points in one periodic copy of the box that are within
// r of each other. The zero triple is first.
func (b *Box) ImageShifts(r float64) [][3]int {
	out := [][3]int{{0, 0, 0}}
	lo, hi := b.shiftRange(b.ImageReach(r))
	for i := lo[0]; i <= hi[0]; i++ {
		for j := lo[1]; j <= hi[1]; j++ {
			for k := lo[2]; k <= hi[2]; k++ {
				if i == 0 && j == 0 && k == 0 { continue }
				out = append(out, [3]int{i, j, k})
			}
		}
	}
	return out
}

// PlaneWidths returns the distances between opposite faces of the box. For
// orthorhombic boxes these are just the edge lengths. The z entry is +Inf in
// 2D.
func (b *Box) PlaneWidths() [3]float64 {
	if b.is2D {
		return [3]float64{
			b.Volume() / math.Hypot(b.a[1][0], b.a[1][1]),
			b.Volume() / b.a[0].Norm(),
			math.Inf(+1),
		}
	}

	vol := b.Volume()
	return [3]float64{
		vol / cross(b.a[1], b.a[2]).Norm(),
		vol / cross(b.a[2], b.a[0]).Norm(),
		vol / cross(b.a[0], b.a[1]).Norm(),
	}
}

// MinPeriodicWidth returns the smallest face separation along a periodic
// axis, or +Inf if the box isn't periodic along any axis.
func (b *Box) MinPeriodicWidth() float64 {
	w := b.PlaneWidths()
	min := math.Inf(+1)
	for i := 0; i < 3; i++ {
		if b.periodic[i] && w[i] < min { min = w[i] }
	}
	return min
}

// SafeDistance returns half of MinPeriodicWidth. Within this distance, no
// particle can be seen through two different periodic images.
func (b *Box) SafeDistance() float64 { return b.MinPeriodicWidth() / 2 }

// MinEdge returns the smallest edge length among the periodic axes, or
// among all used axes if the box isn't periodic at all.
func (b *Box) MinEdge() float64 {
	min, minAll := math.Inf(+1), math.Inf(+1)
	for i := 0; i < b.Dims(); i++ {
		if b.l[i] < minAll { minAll = b.l[i] }
		if b.periodic[i] && b.l[i] < min { min = b.l[i] }
	}
	if math.IsInf(min, +1) { return minAll }
	return min
}

// WrapPoint maps a position into the box, treating the origin as its lower
// corner. Non-periodic components are left alone.
func (b *Box) WrapPoint(p geom.Vec) geom.Vec {
	p = b.Project(p)
	f := b.MakeFractional(p)
	for i := 0; i < 3; i++ {
		if b.periodic[i] { f[i] -= math.Floor(f[i]) }
	}
	return b.MakeCartesian(f)
}

func cross(u, v geom.Vec) geom.Vec {
	return geom.Vec{
		u[1]*v[2] - u[2]*v[1],
		u[2]*v[0] - u[0]*v[2],
		u[0]*v[1] - u[1]*v[0],
	}
}
