package kernel

import (
	"github.com/berylllium/industria/asset/scene"
	"github.com/berylllium/industria/types"
)

// Invocations are grouped into square tiles of this size.
const TileSize = 8

// A tile of pixels. Tiles at the right and bottom edges of a block may be
// smaller than TileSize.
type Tile struct {
	X, Y uint32
	W, H uint32
}

// Split the frame rows [blockY, blockY+blockH) into tiles.
func Tiles(frameW, blockY, blockH uint32) []Tile {
	if frameW == 0 || blockH == 0 {
		return nil
	}

	cols := (frameW + TileSize - 1) / TileSize
	rows := (blockH + TileSize - 1) / TileSize
	tiles := make([]Tile, 0, cols*rows)
	for row := uint32(0); row < rows; row++ {
		y := blockY + row*TileSize
		h := minU32(TileSize, blockY+blockH-y)
		for col := uint32(0); col < cols; col++ {
			x := col * TileSize
			tiles = append(tiles, Tile{X: x, Y: y, W: minU32(TileSize, frameW-x), H: h})
		}
	}
	return tiles
}

// A Dispatch bundles the read-only inputs shared by all invocations of a
// frame together with the destination frame buffer. Invocations write to
// disjoint pixels so a Dispatch can be used by multiple goroutines as long as
// each pixel is processed by exactly one of them.
type Dispatch struct {
	Octree     Octree
	Voxels     []scene.Voxel
	Background types.Vec4

	Env     scene.Environment
	Frustum scene.Frustum

	FrameW, FrameH uint32

	// RGBA8 destination buffer with FrameW*FrameH*4 bytes.
	FrameBuffer []uint8

	// Optional per-pixel traversal step counts (FrameW*FrameH entries).
	Steps []uint32
}

// Create a dispatch for rendering sc from camera into frameBuffer.
func NewDispatch(sc *scene.Scene, camera *scene.Camera, background types.Vec4, frameW, frameH uint32, frameBuffer []uint8) *Dispatch {
	return &Dispatch{
		Octree:      OctreeFromScene(sc),
		Voxels:      sc.VoxelList,
		Background:  background,
		Env:         camera.Environment,
		Frustum:     camera.Frustum(float32(frameW) / float32(frameH)),
		FrameW:      frameW,
		FrameH:      frameH,
		FrameBuffer: frameBuffer,
	}
}

// Process a single pixel: generate its primary ray, traverse the octree,
// resolve the color and write it to the frame buffer.
func (d *Dispatch) Invoke(x, y uint32) Result {
	ray := PrimaryRay(&d.Env, &d.Frustum, x, y, d.FrameW, d.FrameH)
	res := Traverse(&d.Octree, &ray)
	WritePixel(d.FrameBuffer, d.FrameW, x, y, Shade(res, d.Voxels, d.Background))
	if d.Steps != nil && x < d.FrameW {
		if index := int(y)*int(d.FrameW) + int(x); index < len(d.Steps) {
			d.Steps[index] = res.Steps
		}
	}
	return res
}

// Process all pixels in a tile and accumulate traversal counters.
func (d *Dispatch) RunTile(tile Tile, counters *Counters) {
	for y := tile.Y; y < tile.Y+tile.H; y++ {
		for x := tile.X; x < tile.X+tile.W; x++ {
			counters.Add(d.Invoke(x, y))
		}
	}
}

// Traversal counters collected while processing tiles.
type Counters struct {
	Rays   uint64
	Hits   uint64
	Misses uint64

	// Rays that resolved to a miss because of malformed data or degenerate
	// directions.
	Aborted uint64

	// Total and max traversal steps.
	Steps    uint64
	MaxSteps uint32
}

// Accumulate a traversal result.
func (c *Counters) Add(res Result) {
	c.Rays++
	c.Steps += uint64(res.Steps)
	if res.Steps > c.MaxSteps {
		c.MaxSteps = res.Steps
	}
	switch res.Outcome {
	case Hit:
		c.Hits++
	case Miss:
		c.Misses++
	default:
		c.Aborted++
	}
}

// Merge counters collected by another worker.
func (c *Counters) Merge(other Counters) {
	c.Rays += other.Rays
	c.Hits += other.Hits
	c.Misses += other.Misses
	c.Aborted += other.Aborted
	c.Steps += other.Steps
	if other.MaxSteps > c.MaxSteps {
		c.MaxSteps = other.MaxSteps
	}
}

func minU32(a, b uint32) uint32 {
	if a < b {
		return a
	}
	return b
}
