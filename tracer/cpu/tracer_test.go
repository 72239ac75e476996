package cpu

import (
	"testing"
	"time"

	"github.com/berylllium/industria/asset/scene"
	"github.com/berylllium/industria/tracer"
	"github.com/berylllium/industria/types"
	"github.com/stretchr/testify/require"
)

var (
	red   = types.Vec4{1, 0, 0, 1}
	green = types.Vec4{0, 1, 0, 1}
)

// A unit cube with a red leaf in octant 0 viewed along -Z through that
// octant.
func testScene() *scene.Scene {
	root := scene.NewOctreeNode()
	root.SetLeaf(0, 0)
	camera := scene.NewCamera(10)
	camera.Position = types.Vec3{0.25, 0.25, 2}
	return &scene.Scene{
		NodeList:   []scene.OctreeNode{root},
		VoxelList:  []scene.Voxel{{Color: red}},
		Size:       1,
		MaxDepth:   1,
		Background: types.Vec4{0, 0, 0, 1},
		Camera:     camera,
	}
}

func renderBlock(t *testing.T, tr *Tracer, frameW, frameH, blockY, blockH uint32) error {
	t.Helper()
	doneChan := make(chan uint32, 1)
	errChan := make(chan error, 1)
	tr.Enqueue(tracer.BlockRequest{
		FrameW:   frameW,
		FrameH:   frameH,
		BlockY:   blockY,
		BlockH:   blockH,
		FrameID:  "test",
		DoneChan: doneChan,
		ErrChan:  errChan,
	})

	select {
	case rows := <-doneChan:
		require.Equal(t, blockH, rows)
		return nil
	case err := <-errChan:
		return err
	case <-time.After(10 * time.Second):
		t.Fatal("timeout waiting for block to render")
	}
	return nil
}

func TestTracerBlockWorker(t *testing.T) {
	const frameW, frameH = 20, 12
	fb := make([]uint8, frameW*frameH*4)

	tr, err := NewTracer("test", 3, nil)
	require.NoError(t, err)
	defer tr.Close()
	require.Equal(t, uint32(3), tr.Speed())
	require.NoError(t, tr.Init(frameW, frameH, fb))

	// No scene uploaded yet
	require.Equal(t, ErrNoSceneData, renderBlock(t, tr, frameW, frameH, 0, frameH))

	tr.Update(tracer.UpdateScene, testScene())
	require.NoError(t, renderBlock(t, tr, frameW, frameH, 4, 5))

	stats := tr.Stats()
	require.Equal(t, uint32(5), stats.BlockH)
	require.Equal(t, uint64(frameW*5), stats.Counters.Rays)
	require.Equal(t, uint64(frameW*5), stats.Counters.Hits)
	require.True(t, stats.RenderTime > 0)

	// Only the requested rows are written.
	for y := 0; y < frameH; y++ {
		exp := uint8(0)
		if y >= 4 && y < 9 {
			exp = 255
		}
		for x := 0; x < frameW; x++ {
			require.Equal(t, exp, fb[(y*frameW+x)*4], "pixel (%d, %d)", x, y)
		}
	}

	// Mismatched frame sizes are rejected.
	require.Equal(t, ErrFrameSize, renderBlock(t, tr, frameW+1, frameH, 0, 1))
	require.Equal(t, ErrFrameSize, renderBlock(t, tr, frameW, frameH, 10, 5))
}

func TestTracerUpdates(t *testing.T) {
	const frameW, frameH = 8, 8
	fb := make([]uint8, frameW*frameH*4)

	tr, err := NewTracer("test", 2, nil)
	require.NoError(t, err)
	defer tr.Close()
	require.NoError(t, tr.Init(frameW, frameH, fb))

	sc := testScene()
	tr.Update(tracer.UpdateScene, sc)
	require.NoError(t, renderBlock(t, tr, frameW, frameH, 0, frameH))
	require.Equal(t, []uint8{255, 0, 0, 255}, fb[:4])

	// Move the camera over the empty octant and change the background.
	camera := *sc.Camera
	camera.Position = types.Vec3{0.75, 0.75, 2}
	tr.Update(tracer.UpdateCamera, &camera)
	tr.Update(tracer.UpdateBackground, green)
	require.NoError(t, renderBlock(t, tr, frameW, frameH, 0, frameH))
	require.Equal(t, []uint8{0, 255, 0, 255}, fb[:4])
	require.Equal(t, uint64(frameW*frameH), tr.Stats().Counters.Misses)
	require.True(t, tr.Stats().UpdateTime > 0)

	// The scene camera is not modified by camera updates.
	require.Equal(t, types.Vec3{0.25, 0.25, 2}, sc.Camera.Position)

	// Invalid payloads are reported through the error channel and discard
	// the whole batch, including the valid camera update.
	redCamera := *sc.Camera
	tr.Update(tracer.UpdateCamera, &redCamera)
	tr.Update(tracer.UpdateBackground, "green")
	require.Error(t, renderBlock(t, tr, frameW, frameH, 0, frameH))

	// The failed batch is not retried; the next block renders with the
	// previously committed state.
	require.NoError(t, renderBlock(t, tr, frameW, frameH, 0, frameH))
	require.Equal(t, []uint8{0, 255, 0, 255}, fb[:4])
}

func TestTracerStepHeatMap(t *testing.T) {
	const frameW, frameH = 16, 16
	fb := make([]uint8, frameW*frameH*4)
	heatMap := make([]uint8, len(fb))

	pipeline := DefaultPipeline(2)
	pipeline.PostProcess = append(pipeline.PostProcess, StepHeatMap(heatMap))

	tr, err := NewTracer("test", 2, pipeline)
	require.NoError(t, err)
	defer tr.Close()
	require.NoError(t, tr.Init(frameW, frameH, fb))

	sc := testScene()
	sc.Camera = scene.NewCameraLookingAt(types.Vec3{0.5, 0.5, 3}, types.Vec3{0.5, 0.5, 0.5}, 60)
	tr.Update(tracer.UpdateScene, sc)
	require.NoError(t, renderBlock(t, tr, frameW, frameH, 0, frameH))

	// Corner rays miss the cube entirely; the center ray enters it.
	require.Equal(t, []uint8{0, 0, 0, 255}, heatMap[:4])
	center := (8*frameW + 8) * 4
	require.NotEqual(t, []uint8{0, 0, 0, 255}, heatMap[center:center+4])
	require.Equal(t, uint8(255), heatMap[center+3])
}

func TestTracerInitErrors(t *testing.T) {
	_, err := NewTracer("test", 0, nil)
	require.Error(t, err)

	tr, err := NewTracer("test", 1, nil)
	require.NoError(t, err)
	defer tr.Close()

	require.Equal(t, ErrInvalidFrameSize, tr.Init(0, 10, nil))
	require.Equal(t, ErrInvalidFrameSize, tr.Init(4, 4, make([]uint8, 10)))

	// 65536*16384*4 wraps to 0 in 32-bit arithmetic.
	require.Equal(t, ErrInvalidFrameSize, tr.Init(1<<16, 1<<14, []uint8{}))
}
