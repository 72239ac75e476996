package octree

import (
	"time"

	"github.com/berylllium/industria/asset/scene"
	"github.com/berylllium/industria/log"
	"github.com/pkg/errors"
)

// A grid cell to be placed in the octree. Index refers to the caller's
// item list and is passed back through the builder callbacks.
type Cell struct {
	At    [3]uint32
	Index int
}

// A callback invoked whenever the builder creates a leaf. It receives the
// cell that the leaf represents and returns the voxel index to store.
type LeafCallback func(cell Cell) uint32

// A callback invoked for fully populated octants above the leaf level. If it
// returns true the octant is stored as a single leaf created from its last
// cell.
type MergeCallback func(cells []Cell) bool

type stats struct {
	nodes    int
	leaves   int
	merged   int
	maxDepth uint32
}

type builder struct {
	logger log.Logger

	// Octree nodes stored as a contiguous list; the root is always at index 0.
	nodes []scene.OctreeNode

	depth   uint32
	leafCb  LeafCallback
	mergeCb MergeCallback

	stats stats
}

// Construct an octree over a 2^depth grid from a set of unique cells.
//
// Nodes are emitted in depth-first order with the root at index 0. Cells
// at the full grid depth become leaves of the deepest interior nodes. If
// mergeCb is not nil, fully populated octants are offered to it and stored
// as a single leaf when it accepts them.
func Build(cells []Cell, depth uint32, leafCb LeafCallback, mergeCb MergeCallback) ([]scene.OctreeNode, error) {
	if depth == 0 || depth > scene.MaxStackDepth {
		return nil, errors.Errorf("octree builder: depth %d outside the supported [1, %d] range", depth, scene.MaxStackDepth)
	}

	gridSize := uint32(1) << depth
	for _, cell := range cells {
		if cell.At[0] >= gridSize || cell.At[1] >= gridSize || cell.At[2] >= gridSize {
			return nil, errors.Errorf("octree builder: cell (%d, %d, %d) outside the %d^3 grid", cell.At[0], cell.At[1], cell.At[2], gridSize)
		}
	}

	b := &builder{
		logger:  log.New("octree builder"),
		nodes:   make([]scene.OctreeNode, 0),
		depth:   depth,
		leafCb:  leafCb,
		mergeCb: mergeCb,
	}

	start := time.Now()
	b.partition(cells, 0, [3]uint32{})
	b.logger.Debugf(
		"octree build time: %d ms, maxDepth: %d, nodes: %d, leaves: %d, merged octants: %d",
		time.Since(start).Nanoseconds()/1e6,
		b.stats.maxDepth, b.stats.nodes, b.stats.leaves, b.stats.merged,
	)
	return b.nodes, nil
}

// Partition the cells of the cube at level whose min grid corner is base.
// Returns the node index.
func (b *builder) partition(workList []Cell, level uint32, base [3]uint32) uint32 {
	if level+1 > b.stats.maxDepth {
		b.stats.maxDepth = level + 1
	}

	nodeIndex := uint32(len(b.nodes))
	b.nodes = append(b.nodes, scene.NewOctreeNode())
	b.stats.nodes++

	// Octant side length in grid cells.
	half := uint32(1) << (b.depth - level - 1)

	var octantLists [scene.NumOctants][]Cell
	for _, cell := range workList {
		octant := 0
		for axis := 0; axis < 3; axis++ {
			if cell.At[axis]-base[axis] >= half {
				octant |= 1 << uint(axis)
			}
		}
		octantLists[octant] = append(octantLists[octant], cell)
	}

	for octant, octantList := range octantLists {
		if len(octantList) == 0 {
			continue
		}

		// Leaf level or a mergeable, fully populated octant.
		if level+1 == b.depth || b.canMerge(octantList, level+1) {
			b.nodes[nodeIndex].SetLeaf(octant, b.leafCb(octantList[len(octantList)-1]))
			b.stats.leaves++
			if level+1 != b.depth {
				b.stats.merged++
			}
			continue
		}

		childBase := [3]uint32{
			base[0] + half*uint32(octant&1),
			base[1] + half*uint32((octant>>1)&1),
			base[2] + half*uint32((octant>>2)&1),
		}
		childIndex := b.partition(octantList, level+1, childBase)
		b.nodes[nodeIndex].SetChildNode(octant, childIndex)
	}

	return nodeIndex
}

// Check if the cells of an octant at the given level fill it entirely and
// the merge callback accepts them.
func (b *builder) canMerge(cells []Cell, level uint32) bool {
	if b.mergeCb == nil {
		return false
	}
	side := uint64(1) << (b.depth - level)
	if uint64(len(cells)) != side*side*side {
		return false
	}
	return b.mergeCb(cells)
}
