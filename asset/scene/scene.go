package scene

import (
	"bytes"
	"fmt"
	"reflect"
	"strings"

	"github.com/berylllium/industria/types"
	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
)

// A scene bundles the octree buffers with the camera and background that a
// renderer needs. Scene buffers are treated as read-only once uploaded.
type Scene struct {
	// Octree nodes stored as a contiguous list; node 0 is the root.
	NodeList []OctreeNode

	// Voxel data referenced by leaf slots.
	VoxelList []Voxel

	// The root cube: its min corner and side length.
	Origin types.Vec3
	Size   float32

	// The max number of nodes on any root-to-leaf path (the root alone
	// counts as 1). Bounded by MaxStackDepth.
	MaxDepth uint32

	// Color for pixels whose rays do not hit any voxel.
	Background types.Vec4

	// The scene camera.
	Camera *Camera
}

// Get the root cube min and max corners.
func (sc *Scene) Bounds() [2]types.Vec3 {
	return [2]types.Vec3{
		sc.Origin,
		sc.Origin.Add(types.Vec3{sc.Size, sc.Size, sc.Size}),
	}
}

// Get the side length of a leaf voxel at full depth.
func (sc *Scene) VoxelSize() float32 {
	return sc.Size / float32(uint32(1)<<sc.MaxDepth)
}

// Check that the scene buffers are well-formed. The traversal kernel never
// fails on malformed data; this check is meant for the host side.
func (sc *Scene) Validate() error {
	if len(sc.NodeList) == 0 {
		return errors.New("scene: empty octree node list")
	}
	if !(sc.Size > 0) {
		return errors.Errorf("scene: invalid root cube size %f", sc.Size)
	}
	if sc.MaxDepth == 0 || sc.MaxDepth > MaxStackDepth {
		return errors.Errorf("scene: max depth %d outside the supported [1, %d] range", sc.MaxDepth, MaxStackDepth)
	}

	numNodes := uint32(len(sc.NodeList))
	numVoxels := uint32(len(sc.VoxelList))
	for nodeIndex := range sc.NodeList {
		node := &sc.NodeList[nodeIndex]
		if node.Mask&reservedMask != 0 {
			return errors.Errorf("scene: node %d has reserved mask bits set (0x%08x)", nodeIndex, node.Mask)
		}
		for octant := 0; octant < NumOctants; octant++ {
			index, kind := node.Child(octant)
			switch kind {
			case InteriorOctant:
				if index >= numNodes {
					return errors.Errorf("scene: node %d octant %d points to missing node %d", nodeIndex, octant, index)
				}
				if index == 0 {
					return errors.Errorf("scene: node %d octant %d points back to the root", nodeIndex, octant)
				}
			case LeafOctant:
				if index >= numVoxels {
					return errors.Errorf("scene: node %d octant %d points to missing voxel %d", nodeIndex, octant, index)
				}
			}
		}
	}

	return nil
}

// Build a tabular representation of scene statistics.
func (sc *Scene) Stats() string {
	var interior, leaves int
	for nodeIndex := range sc.NodeList {
		for octant := 0; octant < NumOctants; octant++ {
			switch _, kind := sc.NodeList[nodeIndex].Child(octant); kind {
			case InteriorOctant:
				interior++
			case LeafOctant:
				leaves++
			}
		}
	}

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Asset Type", "Asset", "Size"})
	table.Append([]string{"Octree", "---", fmtSize(sc.NodeList)})
	table.Append([]string{"", "Nodes", fmt.Sprintf("%d", len(sc.NodeList))})
	table.Append([]string{"", "Interior links", fmt.Sprintf("%d", interior)})
	table.Append([]string{"", "Leaf links", fmt.Sprintf("%d", leaves)})
	table.Append([]string{"", "Max depth", fmt.Sprintf("%d", sc.MaxDepth)})
	table.Append([]string{" ", " ", " "})
	table.Append([]string{"Voxels", "---", fmtSize(sc.VoxelList)})
	table.Append([]string{"", "Count", fmt.Sprintf("%d", len(sc.VoxelList))})
	table.Append([]string{"", "Voxel size", fmt.Sprintf("%g", sc.VoxelSize())})
	table.Append([]string{" ", " ", " "})
	table.Append([]string{"Bounds", "Origin", fmtVec3(sc.Origin)})
	table.Append([]string{"", "Size", fmt.Sprintf("%g", sc.Size)})
	if sc.Camera != nil {
		table.Append([]string{" ", " ", " "})
		table.Append([]string{"Camera", "Position", fmtVec3(sc.Camera.Position)})
		table.Append([]string{"", "Orientation", fmtVec3(sc.Camera.Orientation)})
		table.Append([]string{"", "FOV", fmt.Sprintf("%g", sc.Camera.FOV)})
	}
	table.SetFooter([]string{"Total", " ", strings.TrimLeft(fmtSize(sc.NodeList, sc.VoxelList), " ")})

	table.Render()
	return buf.String()
}

func fmtVec3(v types.Vec3) string {
	return fmt.Sprintf("(%3.3f, %3.3f, %3.3f)", v[0], v[1], v[2])
}

// Sum the total space used by a set of slices and return back a formatted
// value with the appropriate byte/kb/mb unit.
func fmtSize(items ...interface{}) string {
	var totalBytes float32 = 0.0
	for _, item := range items {
		t := reflect.TypeOf(item)
		v := reflect.ValueOf(item)
		if v.Len() == 0 {
			continue
		}

		totalBytes += float32(int(t.Elem().Size()) * v.Len())
	}

	if totalBytes < 1e3 {
		return fmt.Sprintf("%3d bytes", int(totalBytes))
	} else if totalBytes < 1e6 {
		return fmt.Sprintf("%3.1f kb", totalBytes/1e3)
	}
	return fmt.Sprintf("%5.1f mb", totalBytes/1e6)
}
