/*package geom contains the vector and bounding box primitives used by the
spatial index.
*/
package geom

import (
	"math"
)

// Vec is a three dimensional vector. (Duh!)
type Vec [3]float64

// Add returns v1 + v2.
func (v1 Vec) Add(v2 Vec) Vec {
	return Vec{v1[0] + v2[0], v1[1] + v2[1], v1[2] + v2[2]}
}

// Sub returns v1 - v2.
func (v1 Vec) Sub(v2 Vec) Vec {
	return Vec{v1[0] - v2[0], v1[1] - v2[1], v1[2] - v2[2]}
}

// Scale returns k * v.
func (v Vec) Scale(k float64) Vec {
	return Vec{v[0] * k, v[1] * k, v[2] * k}
}

// Dot returns the inner product of v1 and v2.
func (v1 Vec) Dot(v2 Vec) float64 {
	return v1[0]*v2[0] + v1[1]*v2[1] + v1[2]*v2[2]
}

// Norm2 returns the squared length of v.
func (v Vec) Norm2() float64 { return v.Dot(v) }

// Norm returns the length of v.
func (v Vec) Norm() float64 { return math.Sqrt(v.Dot(v)) }

// IsFinite returns true if no component of v is NaN or infinite.
func (v Vec) IsFinite() bool {
	for i := 0; i < 3; i++ {
		if math.IsNaN(v[i]) || math.IsInf(v[i], 0) { return false }
	}
	return true
}
