package geom

import (
	"math"
)

// AABB is an axis-aligned bounding box.
type AABB struct {
	Lower, Upper Vec
}

// EmptyAABB returns a box which contains nothing and which becomes the
// bounding box of the first point or box merged into it.
func EmptyAABB() AABB {
	inf := math.Inf(+1)
	return AABB{
		Lower: Vec{+inf, +inf, +inf},
		Upper: Vec{-inf, -inf, -inf},
	}
}

// PointAABB returns the degenerate box around a single point.
func PointAABB(p Vec) AABB { return AABB{p, p} }

// IsEmpty returns true if the box has never had a point added to it.
func (b *AABB) IsEmpty() bool {
	return b.Lower[0] > b.Upper[0] ||
		b.Lower[1] > b.Upper[1] ||
		b.Lower[2] > b.Upper[2]
}

// ExpandPoint grows b so that it contains p.
func (b *AABB) ExpandPoint(p Vec) {
	for i := 0; i < 3; i++ {
		if p[i] < b.Lower[i] { b.Lower[i] = p[i] }
		if p[i] > b.Upper[i] { b.Upper[i] = p[i] }
	}
}

// Merge returns the smallest box containing both a and b.
func (a AABB) Merge(b AABB) AABB {
	out := a
	for i := 0; i < 3; i++ {
		out.Lower[i] = math.Min(a.Lower[i], b.Lower[i])
		out.Upper[i] = math.Max(a.Upper[i], b.Upper[i])
	}
	return out
}

// Contains returns true if other lies entirely within b.
func (b AABB) Contains(other AABB) bool {
	for i := 0; i < 3; i++ {
		if other.Lower[i] < b.Lower[i] || other.Upper[i] > b.Upper[i] {
			return false
		}
	}
	return true
}

// ContainsPoint returns true if p lies within b, boundaries included.
func (b AABB) ContainsPoint(p Vec) bool {
	for i := 0; i < 3; i++ {
		if p[i] < b.Lower[i] || p[i] > b.Upper[i] { return false }
	}
	return true
}

// Overlaps returns true if the two boxes share at least one point.
func (a AABB) Overlaps(b AABB) bool {
	return a.Lower[0] <= b.Upper[0] && b.Lower[0] <= a.Upper[0] &&
		a.Lower[1] <= b.Upper[1] && b.Lower[1] <= a.Upper[1] &&
		a.Lower[2] <= b.Upper[2] && b.Lower[2] <= a.Upper[2]
}

// Dist2 returns the squared distance from p to the closest point of b. Points
// inside the box are at distance zero.
func (b AABB) Dist2(p Vec) float64 {
	sum := 0.0
	for i := 0; i < 3; i++ {
		d := axisDist(p[i], b.Lower[i], b.Upper[i])
		sum += d * d
	}
	return sum
}

func axisDist(x, lo, hi float64) float64 {
	if x < lo {
		return lo - x
	} else if x > hi {
		return x - hi
	}
	return 0
}

// IntersectsSphere returns true if the sphere of radius r centered at c
// touches b.
func (b AABB) IntersectsSphere(c Vec, r float64) bool {
	return b.Dist2(c) <= r*r
}

// Translate returns b shifted by dx.
func (b AABB) Translate(dx Vec) AABB {
	return AABB{b.Lower.Add(dx), b.Upper.Add(dx)}
}

// Width returns the extent of b along the given dimension.
func (b AABB) Width(dim int) float64 { return b.Upper[dim] - b.Lower[dim] }

// LongestAxis returns the dimension along which b is widest. Ties go to the
// lower dimension.
func (b AABB) LongestAxis() int {
	dim, w := 0, b.Width(0)
	for i := 1; i < 3; i++ {
		if wi := b.Width(i); wi > w { dim, w = i, wi }
	}
	return dim
}

// Volume returns the volume of b. Empty boxes have zero volume.
func (b AABB) Volume() float64 {
	if b.IsEmpty() { return 0 }
	return b.Width(0) * b.Width(1) * b.Width(2)
}
