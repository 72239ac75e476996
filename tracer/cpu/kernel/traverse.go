package kernel

import (
	"math"

	"github.com/berylllium/industria/asset/scene"
	"github.com/berylllium/industria/types"
)

// The outcome of a ray/octree traversal.
type Outcome uint8

const (
	Miss Outcome = iota
	Hit
	// The ray tried to descend below the octree max depth.
	DepthExceeded
	// The traversal loop ran out of its step budget.
	StepsExceeded
	// The ray direction was zero-length or NaN.
	Degenerate
)

func (o Outcome) String() string {
	switch o {
	case Hit:
		return "hit"
	case DepthExceeded:
		return "depth_exceeded"
	case StepsExceeded:
		return "steps_exceeded"
	case Degenerate:
		return "degenerate"
	default:
		return "miss"
	}
}

// The result of a traversal. Voxel and Distance are only meaningful when
// Outcome is Hit; every other outcome resolves to the background color.
type Result struct {
	Outcome  Outcome
	Voxel    uint32
	Distance float32

	// The number of traversal loop iterations.
	Steps uint32
}

// Returns true if the ray hit a leaf voxel.
func (r Result) IsHit() bool {
	return r.Outcome == Hit
}

// The read-only octree view used by the traversal kernel.
type Octree struct {
	Nodes    []scene.OctreeNode
	Origin   types.Vec3
	Size     float32
	MaxDepth uint32
}

// Create an octree view for a scene's buffers.
func OctreeFromScene(sc *scene.Scene) Octree {
	return Octree{
		Nodes:    sc.NodeList,
		Origin:   sc.Origin,
		Size:     sc.Size,
		MaxDepth: sc.MaxDepth,
	}
}

// Get the traversal step budget for an octree with the given max depth. A
// ray crosses at most 3*2^k cells of a level-k grid and each visited cell
// costs at most two loop iterations (visit + pop); the budget doubles that.
func MaxSteps(maxDepth uint32) uint32 {
	if maxDepth > scene.MaxStackDepth {
		maxDepth = scene.MaxStackDepth
	}
	return 4 * ((3 << (maxDepth + 1)) + maxDepth + 2)
}

// A traversal stack frame. The frame tracks the octant of the node that the
// ray currently occupies and the parametric distance where it entered it.
type frame struct {
	node uint32

	// Node cube min corner and half side length (the octant size).
	min  types.Vec3
	half float32

	octant uint8
	t      float32
	tExit  float32
	done   bool
}

// Find the nearest leaf voxel intersected by ray. Octants are visited in the
// order the ray enters them so the first leaf found is the nearest one.
//
// The traversal uses a fixed-size stack and never allocates. Malformed
// octrees (cycles, dangling indices, excessive depth) resolve to a miss.
func Traverse(tree *Octree, ray *Ray) Result {
	var res Result
	if ray.Degenerate() {
		res.Outcome = Degenerate
		return res
	}

	maxDepth := tree.MaxDepth
	if maxDepth > scene.MaxStackDepth {
		maxDepth = scene.MaxStackDepth
	}
	numNodes := uint32(len(tree.Nodes))
	if numNodes == 0 || maxDepth == 0 {
		return res
	}

	tEnter, tExit, ok := intersectCube(ray, tree.Origin, tree.Size)
	if !ok {
		return res
	}

	var stack [scene.MaxStackDepth]frame
	half := tree.Size * 0.5
	stack[0] = frame{
		node:   0,
		min:    tree.Origin,
		half:   half,
		octant: entryOctant(ray, tree.Origin, half, tEnter),
		t:      tEnter,
		tExit:  tExit,
	}
	depth := uint32(1)
	budget := MaxSteps(maxDepth)

	for depth > 0 {
		if res.Steps >= budget {
			res.Outcome = StepsExceeded
			return res
		}
		res.Steps++

		f := &stack[depth-1]
		if f.done {
			depth--
			continue
		}

		// Calculate where the ray leaves the current octant and move the
		// frame on to the next octant before handling the current one.
		oct := f.octant
		tOctEnter := f.t
		tOctExit, axis := octantExit(ray, f.min, f.half, oct)
		if tOctExit > f.tExit {
			tOctExit = f.tExit
		}
		if !(tOctExit >= tOctEnter) {
			tOctExit = tOctEnter
		}

		bit := uint8(1) << uint(axis)
		if (ray.Dir[axis] > 0) == (oct&bit == 0) {
			f.octant = oct ^ bit
			f.t = tOctExit
		} else {
			f.done = true
		}

		index, kind := tree.Nodes[f.node].Child(int(oct))
		switch kind {
		case scene.LeafOctant:
			res.Outcome = Hit
			res.Voxel = index
			res.Distance = tOctEnter
			return res
		case scene.InteriorOctant:
			if index >= numNodes {
				continue
			}
			if depth >= maxDepth {
				res.Outcome = DepthExceeded
				return res
			}

			childMin := octantMin(f.min, f.half, oct)
			childHalf := f.half * 0.5
			stack[depth] = frame{
				node:   index,
				min:    childMin,
				half:   childHalf,
				octant: entryOctant(ray, childMin, childHalf, tOctEnter),
				t:      tOctEnter,
				tExit:  tOctExit,
			}
			depth++
		}
	}

	res.Outcome = Miss
	return res
}

// Intersect a ray with an axis-aligned cube using the slab method. The
// returned entry distance is clamped to 0 when the ray starts inside the
// cube. Rays that graze the cube (empty interval) or point away from it miss.
func intersectCube(ray *Ray, min types.Vec3, size float32) (tEnter, tExit float32, ok bool) {
	tEnter = float32(math.Inf(-1))
	tExit = float32(math.Inf(1))

	for axis := 0; axis < 3; axis++ {
		lo := min[axis]
		hi := min[axis] + size
		if ray.Dir[axis] == 0 {
			if ray.Origin[axis] < lo || ray.Origin[axis] > hi {
				return 0, 0, false
			}
			continue
		}

		t0 := (lo - ray.Origin[axis]) * ray.InvDir[axis]
		t1 := (hi - ray.Origin[axis]) * ray.InvDir[axis]
		if t0 > t1 {
			t0, t1 = t1, t0
		}
		if t0 > tEnter {
			tEnter = t0
		}
		if t1 < tExit {
			tExit = t1
		}
	}

	if !(tEnter < tExit) || tExit <= 0 {
		return 0, 0, false
	}
	if tEnter < 0 {
		tEnter = 0
	}
	return tEnter, tExit, true
}

// Select the octant of a node cube that contains the point at distance t. A
// point lying exactly on a splitting plane is assigned to the half that the
// ray travels into; rays parallel to the plane pick the upper half.
func entryOctant(ray *Ray, min types.Vec3, half, t float32) uint8 {
	p := ray.At(t)
	var oct uint8
	for axis := 0; axis < 3; axis++ {
		mid := min[axis] + half
		if p[axis] > mid || (p[axis] == mid && ray.Dir[axis] >= 0) {
			oct |= 1 << uint(axis)
		}
	}
	return oct
}

// Calculate the distance where the ray exits an octant and the axis whose
// boundary it crosses. Ties resolve to the lowest axis index.
func octantExit(ray *Ray, min types.Vec3, half float32, oct uint8) (float32, int) {
	tOut := float32(math.Inf(1))
	exitAxis := 0
	for axis := 0; axis < 3; axis++ {
		d := ray.Dir[axis]
		if d == 0 {
			continue
		}

		bound := min[axis] + half*float32((oct>>uint(axis))&1)
		if d > 0 {
			bound += half
		}
		t := (bound - ray.Origin[axis]) * ray.InvDir[axis]
		if t < tOut {
			tOut = t
			exitAxis = axis
		}
	}
	return tOut, exitAxis
}

// Get the min corner of an octant.
func octantMin(min types.Vec3, half float32, oct uint8) types.Vec3 {
	return types.Vec3{
		min[0] + half*float32(oct&1),
		min[1] + half*float32((oct>>1)&1),
		min[2] + half*float32((oct>>2)&1),
	}
}
