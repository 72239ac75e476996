package renderer

import (
	"math/rand"
	"testing"

	"github.com/berylllium/industria/asset/compiler"
	"github.com/berylllium/industria/asset/compiler/input"
	"github.com/berylllium/industria/asset/scene"
	"github.com/berylllium/industria/tracer"
	"github.com/berylllium/industria/types"
	"github.com/stretchr/testify/require"
)

func testScene(t *testing.T) *scene.Scene {
	rng := rand.New(rand.NewSource(7))
	parsed := &input.Scene{
		Size:       1,
		Depth:      4,
		Background: types.Vec4{0.2, 0.2, 0.2, 1},
		Camera: &input.Camera{
			Position: types.Vec3{1.6, 1.3, 1.9},
			LookAt:   &types.Vec3{0.5, 0.5, 0.5},
			FOV:      50,
		},
	}
	for i := 0; i < 400; i++ {
		parsed.Voxels = append(parsed.Voxels, input.Voxel{
			At:    [3]uint32{uint32(rng.Intn(16)), uint32(rng.Intn(16)), uint32(rng.Intn(16))},
			Color: types.Vec4{rng.Float32(), rng.Float32(), rng.Float32(), 1},
		})
	}

	sc, err := compiler.Compile(parsed)
	require.NoError(t, err)
	return sc
}

func renderFrames(t *testing.T, sc *scene.Scene, scheduler tracer.BlockScheduler, opts Options, frames int) [][]uint8 {
	r, err := NewDefault(sc, scheduler, opts)
	require.NoError(t, err)
	defer r.Close()

	out := make([][]uint8, 0, frames)
	for i := 0; i < frames; i++ {
		img, err := r.Render()
		require.NoError(t, err)
		require.Equal(t, int(opts.FrameW), img.Bounds().Dx())
		require.Equal(t, int(opts.FrameH), img.Bounds().Dy())
		out = append(out, append([]uint8(nil), img.Pix...))

		stats := r.Stats()
		require.NotEmpty(t, stats.FrameID)
		require.Equal(t, uint64(opts.FrameW*opts.FrameH), stats.Counters.Rays)

		var rows uint32
		for _, trStat := range stats.Tracers {
			rows += trStat.BlockH
		}
		require.Equal(t, opts.FrameH, rows)
	}
	return out
}

func TestRenderIsIndependentOfTracerAndWorkerCount(t *testing.T) {
	sc := testScene(t)

	ref := renderFrames(t, sc, tracer.NaiveScheduler(), Options{FrameW: 61, FrameH: 45, Tracers: 1, Workers: 1}, 1)[0]

	type spec struct {
		scheduler tracer.BlockScheduler
		tracers   int
		workers   int
	}
	specs := []spec{
		{tracer.NaiveScheduler(), 1, 4},
		{tracer.NaiveScheduler(), 3, 2},
		{tracer.PerfectScheduler(), 4, 3},
		{tracer.PerfectScheduler(), 50, 1},
	}

	for index, s := range specs {
		frames := renderFrames(t, sc, s.scheduler, Options{FrameW: 61, FrameH: 45, Tracers: s.tracers, Workers: s.workers}, 3)
		for frameIdx, frame := range frames {
			if string(frame) != string(ref) {
				t.Fatalf("[spec %d] frame %d differs from the reference frame", index, frameIdx)
			}
		}
	}
}

func TestRenderStats(t *testing.T) {
	sc := testScene(t)
	r, err := NewDefault(sc, tracer.NaiveScheduler(), Options{FrameW: 32, FrameH: 24, Tracers: 2, Workers: 2})
	require.NoError(t, err)
	defer r.Close()

	_, err = r.Render()
	require.NoError(t, err)
	first := r.Stats()

	_, err = r.Render()
	require.NoError(t, err)
	second := r.Stats()

	require.NotEqual(t, first.FrameID, second.FrameID)
	require.Len(t, second.Tracers, 2)
	require.Equal(t, second.Counters.Rays, second.Counters.Hits+second.Counters.Misses+second.Counters.Aborted)
	require.True(t, second.Counters.Hits > 0)
	require.True(t, second.Counters.Misses > 0)

	var percent float32
	for _, stat := range second.Tracers {
		percent += stat.FramePercent
	}
	require.InDelta(t, 100.0, percent, 1e-3)
}

func TestRenderOverrides(t *testing.T) {
	sc := testScene(t)
	bg := types.Vec4{0, 1, 0, 1}
	r, err := NewDefault(sc, tracer.NaiveScheduler(), Options{FrameW: 16, FrameH: 16, Background: &bg, DebugSteps: true})
	require.NoError(t, err)
	defer r.Close()

	// Point the camera away from the cube.
	camera := *sc.Camera
	camera.LookAt(camera.Position.Add(camera.Position.Sub(types.Vec3{0.5, 0.5, 0.5})))
	r.UpdateCamera(&camera)

	img, err := r.Render()
	require.NoError(t, err)
	for offset := 0; offset < len(img.Pix); offset += 4 {
		require.Equal(t, []uint8{0, 255, 0, 255}, img.Pix[offset:offset+4])
	}

	heatMap := r.StepHeatMap()
	require.NotNil(t, heatMap)
	for offset := 0; offset < len(heatMap.Pix); offset += 4 {
		require.Equal(t, []uint8{0, 0, 0, 255}, heatMap.Pix[offset:offset+4])
	}

	// The scene itself is left untouched.
	require.Equal(t, types.Vec4{0.2, 0.2, 0.2, 1}, sc.Background)
}

func TestRendererErrors(t *testing.T) {
	sc := testScene(t)

	_, err := NewDefault(nil, tracer.NaiveScheduler(), Options{FrameW: 8, FrameH: 8})
	require.Equal(t, ErrSceneNotDefined, err)

	_, err = NewDefault(sc, tracer.NaiveScheduler(), Options{FrameW: 0, FrameH: 8})
	require.Equal(t, ErrInvalidFrameSize, err)

	noCamera := *sc
	noCamera.Camera = nil
	_, err = NewDefault(&noCamera, tracer.NaiveScheduler(), Options{FrameW: 8, FrameH: 8})
	require.Equal(t, ErrCameraNotDefined, err)

	invalid := *sc
	invalid.MaxDepth = 0
	_, err = NewDefault(&invalid, tracer.NaiveScheduler(), Options{FrameW: 8, FrameH: 8})
	require.Error(t, err)

	r, err := NewDefault(sc, tracer.NaiveScheduler(), Options{FrameW: 8, FrameH: 8})
	require.NoError(t, err)
	require.Nil(t, r.StepHeatMap())
	r.Close()
	_, err = r.Render()
	require.Equal(t, ErrClosed, err)
}
