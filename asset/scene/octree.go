package scene

import "github.com/berylllium/industria/types"

// The number of octants (children) per octree node.
const NumOctants = 8

// A sentinel child index for octants that contain no data.
const EmptyChild uint32 = 0xFFFFFFFF

// The upper bound for the octree depth. The traversal kernel keeps its
// stack in a fixed-size array of this length.
const MaxStackDepth = 16

// Octree nodes are stored in a flat array; node 0 is the root. Each node
// stores 8 child slots and a mask that tags each slot:
//
//   - Mask bits 0-7: occupancy. Bit i is set iff octant i contains data.
//   - Mask bits 8-15: leaf plane. Bit 8+i is set iff Children[i] indexes
//     the voxel array; otherwise it indexes the node array.
//   - Mask bits 16-31: reserved; must be zero.
//
// Octants are numbered as x | y<<1 | z<<2 where each axis bit selects the
// upper half (coordinate >= midpoint) of the node cube.
type OctreeNode struct {
	Children [NumOctants]uint32
	Mask     uint32
}

const (
	occupancyMask uint32 = 0x000000FF
	leafMask      uint32 = 0x0000FF00
	leafShift            = 8
	reservedMask  uint32 = 0xFFFF0000
)

// The type of data stored in an octant slot.
type ChildKind uint8

const (
	EmptyOctant ChildKind = iota
	InteriorOctant
	LeafOctant
)

// Create an octree node with all octants empty.
func NewOctreeNode() OctreeNode {
	n := OctreeNode{}
	for i := range n.Children {
		n.Children[i] = EmptyChild
	}
	return n
}

// Point an octant to an interior node.
func (n *OctreeNode) SetChildNode(octant int, nodeIndex uint32) {
	n.Children[octant] = nodeIndex
	n.Mask |= 1 << uint(octant)
	n.Mask &^= 1 << uint(octant+leafShift)
}

// Point an octant to a leaf voxel.
func (n *OctreeNode) SetLeaf(octant int, voxelIndex uint32) {
	n.Children[octant] = voxelIndex
	n.Mask |= 1<<uint(octant) | 1<<uint(octant+leafShift)
}

// Mark an octant as empty.
func (n *OctreeNode) ClearChild(octant int) {
	n.Children[octant] = EmptyChild
	n.Mask &^= 1<<uint(octant) | 1<<uint(octant+leafShift)
}

// Get the occupancy bits (one per octant).
func (n *OctreeNode) Occupancy() uint8 {
	return uint8(n.Mask & occupancyMask)
}

// Get the leaf bits (one per octant).
func (n *OctreeNode) Leaves() uint8 {
	return uint8((n.Mask & leafMask) >> leafShift)
}

// Get the index and kind of the data stored at an octant. A slot whose
// occupancy bit is set but holds the EmptyChild sentinel is reported as empty.
func (n *OctreeNode) Child(octant int) (uint32, ChildKind) {
	index := n.Children[octant]
	if n.Mask&(1<<uint(octant)) == 0 || index == EmptyChild {
		return EmptyChild, EmptyOctant
	}
	if n.Mask&(1<<uint(octant+leafShift)) != 0 {
		return index, LeafOctant
	}
	return index, InteriorOctant
}

// A voxel stores the RGBA color (components in the [0, 1] range) returned
// when a ray hits a leaf that references it.
type Voxel struct {
	Color types.Vec4
}
