package cmd

import (
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/berylllium/industria/asset/scene"
	"github.com/berylllium/industria/renderer"
	"github.com/berylllium/industria/tracer/cpu/kernel"
	"github.com/berylllium/industria/types"
	"github.com/stretchr/testify/require"
)

func TestParseVectors(t *testing.T) {
	v3, err := parseVec3("1, -2.5,3")
	require.NoError(t, err)
	require.Equal(t, types.Vec3{1, -2.5, 3}, v3)

	v4, err := parseVec4("0.1,0.2,0.3,1")
	require.NoError(t, err)
	require.Equal(t, types.Vec4{0.1, 0.2, 0.3, 1}, v4)

	_, err = parseVec3("1,2")
	require.Error(t, err)
	_, err = parseVec4("1,2,x,4")
	require.Error(t, err)
}

func TestOrbitCamera(t *testing.T) {
	center := types.Vec3{0.5, 0.5, 0.5}
	camera := scene.NewCameraLookingAt(types.Vec3{0.5, 0.5, 2.5}, center, scene.DefaultFOV)

	orbitCamera(camera, center, math.Pi/2)
	require.InDelta(t, 2.5, camera.Position[0], 1e-5)
	require.InDelta(t, 0.5, camera.Position[1], 1e-5)
	require.InDelta(t, 0.5, camera.Position[2], 1e-5)

	forward, _, _ := camera.Basis()
	require.InDelta(t, -1.0, forward[0], 1e-5)
}

func TestFrameStatsTable(t *testing.T) {
	stats := renderer.FrameStats{
		FrameID: "frame",
		Tracers: []renderer.TracerStat{
			{Id: "cpu-0", BlockH: 10, FramePercent: 50, RenderTime: time.Millisecond, Counters: kernel.Counters{Rays: 100, Hits: 40, Steps: 250, MaxSteps: 9}},
			{Id: "cpu-1", BlockH: 10, FramePercent: 50, RenderTime: time.Millisecond},
		},
		RenderTime: 2 * time.Millisecond,
		Counters:   kernel.Counters{Rays: 100, Hits: 40, Steps: 250, MaxSteps: 9},
	}

	table := frameStatsTable(stats)
	for _, exp := range []string{"cpu-0", "cpu-1", "2.50", "TOTAL"} {
		require.True(t, strings.Contains(table, exp), "expected table to contain %q:\n%s", exp, table)
	}
}

func TestParseFrameSize(t *testing.T) {
	type spec struct {
		width, height int
		expErr        bool
	}
	specs := []spec{
		{800, 600, false},
		{1, 1, false},
		{maxFrameDim, maxFrameDim, false},
		{0, 600, true},
		{800, -1, true},
		{-800, -600, true},
		{maxFrameDim + 1, 10, true},
		{1 << 16, 1 << 14, true},
	}

	for index, s := range specs {
		w, h, err := parseFrameSize(s.width, s.height)
		if s.expErr {
			require.Error(t, err, "spec %d", index)
			continue
		}
		require.NoError(t, err, "spec %d", index)
		require.Equal(t, uint32(s.width), w, "spec %d", index)
		require.Equal(t, uint32(s.height), h, "spec %d", index)
	}
}

func TestSavePNG(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 3, 2))
	img.Set(1, 1, color.RGBA{255, 0, 0, 255})

	imgFile := filepath.Join(t.TempDir(), "frame.png")
	require.NoError(t, savePNG(img, imgFile))

	f, err := os.Open(imgFile)
	require.NoError(t, err)
	defer f.Close()
	decoded, err := png.Decode(f)
	require.NoError(t, err)
	require.Equal(t, img.Bounds(), decoded.Bounds())
	r, g, b, a := decoded.At(1, 1).RGBA()
	require.Equal(t, [4]uint32{0xffff, 0, 0, 0xffff}, [4]uint32{r, g, b, a})

	require.Error(t, savePNG(img, filepath.Join(t.TempDir(), "missing", "frame.png")))
}
