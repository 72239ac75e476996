package scene

import (
	"fmt"
	"math"

	"github.com/berylllium/industria/types"
)

// The default vertical field of view in degrees.
const DefaultFOV float32 = 45.0

// The per-frame camera record supplied to each dispatch.
type Environment struct {
	// World-space camera position.
	Position types.Vec3

	// Yaw, pitch and roll in radians.
	Orientation types.Vec3
}

// Stores the ray directions at the four corners of the image plane (placed
// at unit distance in front of the camera). Per pixel rays are generated by
// interpolating the corner rays. Corners are ordered TL, TR, BL, BR.
type Frustum [4]types.Vec3

func (fr Frustum) String() string {
	return fmt.Sprintf(
		"Frustum Rays:\nTL : (%3.3f, %3.3f, %3.3f)\nTR : (%3.3f, %3.3f, %3.3f)\nBL : (%3.3f, %3.3f, %3.3f)\nBR : (%3.3f, %3.3f, %3.3f)",
		fr[0][0], fr[0][1], fr[0][2],
		fr[1][0], fr[1][1], fr[1][2],
		fr[2][0], fr[2][1], fr[2][2],
		fr[3][0], fr[3][1], fr[3][2],
	)
}

// The camera type controls the scene camera. An un-rotated camera looks
// down -Z with +Y up and +X to the right.
type Camera struct {
	Environment

	// Vertical field of view in degrees.
	FOV float32
}

// Create a camera at the origin with the given vertical FOV.
func NewCamera(fov float32) *Camera {
	return &Camera{FOV: fov}
}

// Create a camera at eye looking towards target.
func NewCameraLookingAt(eye, target types.Vec3, fov float32) *Camera {
	c := NewCamera(fov)
	c.Position = eye
	c.LookAt(target)
	return c
}

// Rotate the camera so that it faces target. Roll is reset to zero.
func (c *Camera) LookAt(target types.Vec3) {
	dir := target.Sub(c.Position).Normalize()
	if dir.IsZero() {
		return
	}
	yaw := math.Atan2(float64(-dir[0]), float64(-dir[2]))
	pitch := math.Asin(math.Max(-1, math.Min(1, float64(dir[1]))))
	c.Orientation = types.Vec3{float32(yaw), float32(pitch), 0}
}

// Get the camera orientation as a quaternion.
func (c *Camera) Rotation() types.Quat {
	return types.QuatFromYawPitchRoll(c.Orientation[0], c.Orientation[1], c.Orientation[2])
}

// Get the forward, right and up unit vectors of the camera.
func (c *Camera) Basis() (forward, right, up types.Vec3) {
	q := c.Rotation()
	forward = q.Rotate(types.Vec3{0, 0, -1}).Normalize()
	right = q.Rotate(types.Vec3{1, 0, 0}).Normalize()
	up = q.Rotate(types.Vec3{0, 1, 0}).Normalize()
	return forward, right, up
}

// Calculate the corner rays for an image plane with the given aspect ratio
// (width / height).
func (c *Camera) Frustum(aspect float32) Frustum {
	fov := c.FOV
	if fov <= 0 || fov >= 180 {
		fov = DefaultFOV
	}
	if !(aspect > 0) {
		aspect = 1
	}

	tanHalf := float32(math.Tan(float64(fov) * math.Pi / 360.0))
	forward, right, up := c.Basis()
	dx := right.Mul(tanHalf * aspect)
	dy := up.Mul(tanHalf)

	return Frustum{
		forward.Sub(dx).Add(dy),
		forward.Add(dx).Add(dy),
		forward.Sub(dx).Sub(dy),
		forward.Add(dx).Sub(dy),
	}
}
