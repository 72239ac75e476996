package types

import (
	"math"

	"golang.org/x/image/math/f32"
)

// Vectors whose length falls below this threshold are treated as zero-length.
const floatCmpEpsilon = 1e-6

type Vec3 f32.Vec3
type Vec4 f32.Vec4

// Define a 3 component vector.
func XYZ(x, y, z float32) Vec3 {
	return Vec3{x, y, z}
}

// Define a 4 component vector.
func XYZW(x, y, z, w float32) Vec4 {
	return Vec4{x, y, z, w}
}

// Add a vector.
func (v Vec3) Add(v2 Vec3) Vec3 {
	return Vec3{v[0] + v2[0], v[1] + v2[1], v[2] + v2[2]}
}

// Subtract a vector.
func (v Vec3) Sub(v2 Vec3) Vec3 {
	return Vec3{v[0] - v2[0], v[1] - v2[1], v[2] - v2[2]}
}

// Multiply a 3 component vector with a scalar.
func (v Vec3) Mul(s float32) Vec3 {
	return Vec3{v[0] * s, v[1] * s, v[2] * s}
}

// Get 3 component vector length.
func (v Vec3) Len() float32 {
	return float32(math.Sqrt(float64(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])))
}

// Normalize 3 component vector. Zero-length (or non-finite) vectors
// normalize to the zero vector.
func (v Vec3) Normalize() Vec3 {
	l := v.Len()
	if !(l >= floatCmpEpsilon) || math.IsInf(float64(l), 0) {
		return Vec3{}
	}
	l = 1.0 / l
	return Vec3{v[0] * l, v[1] * l, v[2] * l}
}

// Returns true if all vector components are zero.
func (v Vec3) IsZero() bool {
	return v[0] == 0 && v[1] == 0 && v[2] == 0
}

// Linearly interpolate towards v2.
func (v Vec3) Lerp(v2 Vec3, t float32) Vec3 {
	return Vec3{
		v[0] + (v2[0]-v[0])*t,
		v[1] + (v2[1]-v[1])*t,
		v[2] + (v2[2]-v[2])*t,
	}
}

// Calculate dot product of 2 vectors.
func (v Vec3) Dot(v2 Vec3) float32 {
	return v[0]*v2[0] + v[1]*v2[1] + v[2]*v2[2]
}

// Calculate cross product of 2 vectors.
func (v Vec3) Cross(v2 Vec3) Vec3 {
	return Vec3{v[1]*v2[2] - v[2]*v2[1], v[2]*v2[0] - v[0]*v2[2], v[0]*v2[1] - v[1]*v2[0]}
}

// Clamp all components of a 4 component vector to the [lo, hi] range.
// NaN components are mapped to lo.
func (v Vec4) Clamp(lo, hi float32) Vec4 {
	var out Vec4
	for i, c := range v {
		switch {
		case !(c >= lo):
			out[i] = lo
		case c > hi:
			out[i] = hi
		default:
			out[i] = c
		}
	}
	return out
}
