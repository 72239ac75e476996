package input

import "github.com/berylllium/industria/types"

// A voxel placed at integer grid coordinates. Valid coordinates lie in the
// [0, 2^depth) range of the scene grid.
type Voxel struct {
	At    [3]uint32
	Color types.Vec4
}

// Camera settings parsed from a scene definition. If LookAt is set it
// overrides Orientation.
type Camera struct {
	Position    types.Vec3
	Orientation types.Vec3
	LookAt      *types.Vec3
	FOV         float32
}

// A voxel scene as parsed by a scene reader, prior to compilation.
type Scene struct {
	// Root cube min corner and side length.
	Origin types.Vec3
	Size   float32

	// Grid depth; the grid has 2^Depth cells per axis.
	Depth uint32

	Background types.Vec4
	Camera     *Camera

	Voxels []Voxel

	// Collapse fully populated octants whose voxels share a color into a
	// single leaf.
	Collapse bool
}
