package kernel

import (
	"bytes"
	"math"
	"testing"

	"github.com/berylllium/industria/asset/scene"
	"github.com/berylllium/industria/types"
)

func TestTiles(t *testing.T) {
	tiles := Tiles(20, 4, 10)
	if len(tiles) != 6 {
		t.Fatalf("expected 6 tiles; got %d", len(tiles))
	}

	expTiles := []Tile{
		{X: 0, Y: 4, W: 8, H: 8},
		{X: 8, Y: 4, W: 8, H: 8},
		{X: 16, Y: 4, W: 4, H: 8},
		{X: 0, Y: 12, W: 8, H: 2},
		{X: 8, Y: 12, W: 8, H: 2},
		{X: 16, Y: 12, W: 4, H: 2},
	}
	for index, exp := range expTiles {
		if tiles[index] != exp {
			t.Errorf("[tile %d] expected %+v; got %+v", index, exp, tiles[index])
		}
	}

	if tiles := Tiles(0, 0, 10); tiles != nil {
		t.Fatalf("expected no tiles for an empty frame; got %d", len(tiles))
	}
}

func renderFrame(d *Dispatch) Counters {
	var counters Counters
	for _, tile := range Tiles(d.FrameW, 0, d.FrameH) {
		d.RunTile(tile, &counters)
	}
	return counters
}

func twoVoxelScene() *scene.Scene {
	root := scene.NewOctreeNode()
	root.SetLeaf(4, 0)
	root.SetLeaf(0, 1)
	return &scene.Scene{
		NodeList:  []scene.OctreeNode{root},
		VoxelList: []scene.Voxel{{Color: red}, {Color: blue}},
		Size:      1,
		MaxDepth:  1,
	}
}

func expectFill(t *testing.T, fb []uint8, exp [4]uint8) {
	t.Helper()
	for offset := 0; offset < len(fb); offset += 4 {
		var got [4]uint8
		copy(got[:], fb[offset:offset+4])
		if got != exp {
			t.Fatalf("pixel %d: expected %v; got %v", offset/4, exp, got)
		}
	}
}

func TestDispatchSingleVoxel(t *testing.T) {
	root := scene.NewOctreeNode()
	root.SetLeaf(0, 0)
	sc := &scene.Scene{
		NodeList:  []scene.OctreeNode{root},
		VoxelList: []scene.Voxel{{Color: red}},
		Size:      1,
		MaxDepth:  1,
	}

	camera := scene.NewCamera(10)
	camera.Position = types.Vec3{0.25, 0.25, 2}

	const frameW, frameH = 16, 16
	fb := make([]uint8, frameW*frameH*4)
	d := NewDispatch(sc, camera, black, frameW, frameH, fb)
	counters := renderFrame(d)
	expectFill(t, fb, [4]uint8{255, 0, 0, 255})
	if counters.Rays != frameW*frameH || counters.Hits != frameW*frameH {
		t.Fatalf("expected all %d rays to hit; got %+v", frameW*frameH, counters)
	}

	// Looking down the empty column
	camera.Position = types.Vec3{0.75, 0.75, 2}
	d = NewDispatch(sc, camera, black, frameW, frameH, fb)
	counters = renderFrame(d)
	expectFill(t, fb, [4]uint8{0, 0, 0, 255})
	if counters.Misses != frameW*frameH {
		t.Fatalf("expected all rays to miss; got %+v", counters)
	}
}

func TestDispatchNearestVoxel(t *testing.T) {
	sc := twoVoxelScene()
	const frameW, frameH = 12, 8
	fb := make([]uint8, frameW*frameH*4)

	camera := scene.NewCamera(10)
	camera.Position = types.Vec3{0.25, 0.25, 2}
	renderFrame(NewDispatch(sc, camera, black, frameW, frameH, fb))
	expectFill(t, fb, [4]uint8{255, 0, 0, 255})

	// View the cube from the other side.
	camera.Position = types.Vec3{0.25, 0.25, -1}
	camera.Orientation = types.Vec3{math.Pi, 0, 0}
	renderFrame(NewDispatch(sc, camera, black, frameW, frameH, fb))
	expectFill(t, fb, [4]uint8{0, 0, 255, 255})
}

func TestDispatchIsIdempotent(t *testing.T) {
	sc := twoVoxelScene()
	camera := scene.NewCameraLookingAt(types.Vec3{2, 1.5, 2.5}, types.Vec3{0.5, 0.5, 0.5}, 60)

	const frameW, frameH = 37, 23
	fb1 := make([]uint8, frameW*frameH*4)
	fb2 := make([]uint8, frameW*frameH*4)
	c1 := renderFrame(NewDispatch(sc, camera, black, frameW, frameH, fb1))

	// Process tiles in reverse order on the second run.
	d := NewDispatch(sc, camera, black, frameW, frameH, fb2)
	tiles := Tiles(frameW, 0, frameH)
	var c2 Counters
	for index := len(tiles) - 1; index >= 0; index-- {
		d.RunTile(tiles[index], &c2)
	}

	if !bytes.Equal(fb1, fb2) {
		t.Fatal("expected identical frame buffers")
	}
	if c1 != c2 {
		t.Fatalf("expected identical counters; got %+v and %+v", c1, c2)
	}
	if c1.Hits == 0 || c1.Misses == 0 {
		t.Fatalf("expected frame to contain both hits and misses; got %+v", c1)
	}
}

func TestPrimaryRay(t *testing.T) {
	camera := scene.NewCamera(90)
	camera.Position = types.Vec3{1, 2, 3}
	frustum := camera.Frustum(1)

	// The center pixel of an odd sized frame looks straight ahead.
	ray := PrimaryRay(&camera.Environment, &frustum, 1, 1, 3, 3)
	if ray.Origin != camera.Position {
		t.Fatalf("expected ray origin %v; got %v", camera.Position, ray.Origin)
	}
	expectVec3(t, types.Vec3{0, 0, -1}, ray.Dir)

	// Row 0 is the top of the image.
	ray = PrimaryRay(&camera.Environment, &frustum, 0, 0, 2, 2)
	if !(ray.Dir[0] < 0 && ray.Dir[1] > 0) {
		t.Fatalf("expected top-left pixel ray to point up and left; got %v", ray.Dir)
	}
	ray = PrimaryRay(&camera.Environment, &frustum, 1, 1, 2, 2)
	if !(ray.Dir[0] > 0 && ray.Dir[1] < 0) {
		t.Fatalf("expected bottom-right pixel ray to point down and right; got %v", ray.Dir)
	}
	expectVec3(t, types.Vec3{0.5, -0.5, -1}.Normalize(), ray.Dir)
}

func TestShadeAndWritePixel(t *testing.T) {
	voxels := []scene.Voxel{{Color: red}}
	bg := types.Vec4{0.5, 0.5, 0.5, 1}

	if got := Shade(Result{Outcome: Hit, Voxel: 0}, voxels, bg); got != red {
		t.Fatalf("expected voxel color; got %v", got)
	}
	if got := Shade(Result{Outcome: Hit, Voxel: 1}, voxels, bg); got != bg {
		t.Fatalf("expected background for out of range voxel; got %v", got)
	}
	if got := Shade(Result{Outcome: StepsExceeded}, voxels, bg); got != bg {
		t.Fatalf("expected background for aborted traversal; got %v", got)
	}

	fb := make([]uint8, 2*2*4)
	WritePixel(fb, 2, 1, 1, types.Vec4{2, -1, 0.5, 1})
	if exp := []uint8{255, 0, 128, 255}; !bytes.Equal(fb[12:], exp) {
		t.Fatalf("expected clamped pixel %v; got %v", exp, fb[12:])
	}

	// Out of bounds writes are ignored.
	WritePixel(fb, 2, 2, 0, red)
	WritePixel(fb, 2, 0, 2, red)
	if !bytes.Equal(fb[:12], make([]uint8, 12)) {
		t.Fatalf("expected out of bounds writes to be ignored; got %v", fb)
	}
}

func TestCountersMerge(t *testing.T) {
	var a, b Counters
	a.Add(Result{Outcome: Hit, Steps: 4})
	a.Add(Result{Outcome: Miss, Steps: 2})
	b.Add(Result{Outcome: DepthExceeded, Steps: 9})

	a.Merge(b)
	exp := Counters{Rays: 3, Hits: 1, Misses: 1, Aborted: 1, Steps: 15, MaxSteps: 9}
	if a != exp {
		t.Fatalf("expected %+v; got %+v", exp, a)
	}
}

func expectVec3(t *testing.T, exp, got types.Vec3) {
	t.Helper()
	for axis := 0; axis < 3; axis++ {
		if math.Abs(float64(exp[axis]-got[axis])) > 1e-5 {
			t.Fatalf("expected %v; got %v", exp, got)
		}
	}
}
