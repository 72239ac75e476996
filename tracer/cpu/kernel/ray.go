package kernel

import (
	"math"

	"github.com/berylllium/industria/asset/scene"
	"github.com/berylllium/industria/types"
)

// A ray with a normalized direction. InvDir caches the per-axis reciprocal
// of the direction; axes with a zero direction component store +Inf.
type Ray struct {
	Origin types.Vec3
	Dir    types.Vec3
	InvDir types.Vec3
}

// Create a ray from an origin and a direction. The direction is normalized;
// zero-length or non-finite directions yield a degenerate ray.
func NewRay(origin, dir types.Vec3) Ray {
	r := Ray{
		Origin: origin,
		Dir:    dir.Normalize(),
	}
	for axis := 0; axis < 3; axis++ {
		if r.Dir[axis] == 0 {
			r.InvDir[axis] = float32(math.Inf(1))
			continue
		}
		r.InvDir[axis] = 1.0 / r.Dir[axis]
	}
	return r
}

// Returns true if the ray direction cannot be used for traversal.
func (r *Ray) Degenerate() bool {
	if r.Dir.IsZero() {
		return true
	}
	for axis := 0; axis < 3; axis++ {
		if isNaN(r.Dir[axis]) || isNaN(r.Origin[axis]) {
			return true
		}
	}
	return false
}

// Get the point at parametric distance t along the ray.
func (r *Ray) At(t float32) types.Vec3 {
	return r.Origin.Add(r.Dir.Mul(t))
}

// Generate the primary ray for pixel (x, y) of a frameW x frameH image. The
// ray passes through the pixel center; row 0 is the top of the image.
func PrimaryRay(env *scene.Environment, frustum *scene.Frustum, x, y, frameW, frameH uint32) Ray {
	u := (float32(x) + 0.5) / float32(frameW)
	v := (float32(y) + 0.5) / float32(frameH)

	top := frustum[0].Lerp(frustum[1], u)
	bottom := frustum[2].Lerp(frustum[3], u)
	return NewRay(env.Position, top.Lerp(bottom, v))
}

func isNaN(f float32) bool {
	return f != f
}
