package cmd

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"math"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/berylllium/industria/asset/scene"
	"github.com/berylllium/industria/asset/scene/reader"
	"github.com/berylllium/industria/renderer"
	"github.com/berylllium/industria/tracer"
	"github.com/berylllium/industria/types"
	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli"
)

// Render a still frame.
func RenderFrame(ctx *cli.Context) error {
	setupLogging(ctx)

	r, _, err := setupRenderer(ctx, tracer.NaiveScheduler())
	if err != nil {
		return err
	}
	defer r.Close()

	frame, err := r.Render()
	if err != nil {
		return err
	}

	// Display stats
	displayFrameStats(r.Stats())

	imgFile := ctx.String("out")
	if err = savePNG(frame, imgFile); err != nil {
		return err
	}

	if heatMap := r.StepHeatMap(); heatMap != nil {
		heatMapFile := strings.TrimSuffix(imgFile, filepath.Ext(imgFile)) + "-steps.png"
		if err = savePNG(heatMap, heatMapFile); err != nil {
			return err
		}
	}

	return nil
}

// Render a sequence of frames and report per-frame statistics. The camera
// optionally orbits around the scene center.
func RenderBench(ctx *cli.Context) error {
	setupLogging(ctx)

	numFrames := ctx.Int("frames")
	if numFrames <= 0 {
		return errors.New("frame count must be positive")
	}

	r, sc, err := setupRenderer(ctx, tracer.PerfectScheduler())
	if err != nil {
		return err
	}
	defer r.Close()

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if addr := ctx.String("metrics-addr"); addr != "" {
		srv := serveMetrics(addr)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	camera := *sc.Camera
	orbitStep := float32(ctx.Float64("orbit") * math.Pi / 180.0)
	center := sc.Origin.Add(types.Vec3{sc.Size * 0.5, sc.Size * 0.5, sc.Size * 0.5})

	var totalTime time.Duration
	frame := 0
	for ; frame < numFrames; frame++ {
		if sigCtx.Err() != nil {
			logger.Warningf("interrupted after %d frames", frame)
			break
		}

		if orbitStep != 0 && frame != 0 {
			orbitCamera(&camera, center, orbitStep)
			r.UpdateCamera(&camera)
		}

		if _, err = r.Render(); err != nil {
			return err
		}

		stats := r.Stats()
		totalTime += stats.RenderTime
		displayFrameStats(stats)
	}

	if frame > 0 {
		avg := totalTime / time.Duration(frame)
		logger.Noticef("rendered %d frames; avg frame time %s (%.1f fps)", frame, avg, 1.0/avg.Seconds())
	}

	return nil
}

// Load scene, apply flag overrides and setup renderer.
func setupRenderer(ctx *cli.Context, scheduler tracer.BlockScheduler) (renderer.Renderer, *scene.Scene, error) {
	frameW, frameH, err := parseFrameSize(ctx.Int("width"), ctx.Int("height"))
	if err != nil {
		return nil, nil, err
	}

	opts := renderer.Options{
		FrameW:     frameW,
		FrameH:     frameH,
		Tracers:    ctx.Int("tracers"),
		Workers:    ctx.Int("workers"),
		DebugSteps: ctx.Bool("debug-steps"),
	}

	if bg := ctx.String("background"); bg != "" {
		color, err := parseVec4(bg)
		if err != nil {
			return nil, nil, errors.Wrap(err, "invalid background")
		}
		opts.Background = &color
	}

	// Load scene
	if ctx.NArg() != 1 {
		return nil, nil, errors.New("missing scene file argument")
	}

	sc, err := reader.ReadScene(ctx.Args().First())
	if err != nil {
		return nil, nil, err
	}

	if err = applyCameraOverrides(ctx, sc); err != nil {
		return nil, nil, err
	}

	// Create renderer
	r, err := renderer.NewDefault(sc, scheduler, opts)
	if err != nil {
		return nil, nil, err
	}

	return r, sc, nil
}

func applyCameraOverrides(ctx *cli.Context, sc *scene.Scene) error {
	if sc.Camera == nil {
		sc.Camera = scene.NewCamera(scene.DefaultFOV)
	}

	if fov := ctx.Float64("fov"); fov != 0 {
		if fov < 0 || fov >= 180 {
			return errors.Errorf("invalid fov %f", fov)
		}
		sc.Camera.FOV = float32(fov)
	}
	if pos := ctx.String("position"); pos != "" {
		v, err := parseVec3(pos)
		if err != nil {
			return errors.Wrap(err, "invalid camera position")
		}
		sc.Camera.Position = v
	}
	if orientation := ctx.String("orientation"); orientation != "" {
		v, err := parseVec3(orientation)
		if err != nil {
			return errors.Wrap(err, "invalid camera orientation")
		}
		sc.Camera.Orientation = v
	}

	return nil
}

// Rotate the camera position around center (about +Y) and face center.
func orbitCamera(camera *scene.Camera, center types.Vec3, angle float32) {
	rot := types.QuatFromAxisAngle(types.Vec3{0, 1, 0}, angle)
	camera.Position = center.Add(rot.Rotate(camera.Position.Sub(center)))
	camera.LookAt(center)
}

func serveMetrics(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Noticef("serving metrics at http://%s/metrics", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorf("metrics server: %v", err)
		}
	}()

	return srv
}

func savePNG(img image.Image, imgFile string) error {
	start := time.Now()
	f, err := os.Create(imgFile)
	if err != nil {
		return errors.Wrap(err, "could not create image file")
	}

	if err = png.Encode(f, img); err != nil {
		f.Close()
		return errors.Wrapf(err, "could not encode %s", imgFile)
	}
	if err = f.Close(); err != nil {
		return errors.Wrapf(err, "could not write %s", imgFile)
	}
	logger.Noticef("wrote frame to %s in %d ms", imgFile, time.Since(start).Nanoseconds()/1000000)
	return nil
}

func displayFrameStats(stats renderer.FrameStats) {
	logger.Noticef("frame %s statistics\n%s", stats.FrameID, frameStatsTable(stats))
}

func frameStatsTable(stats renderer.FrameStats) string {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Tracer", "Block height", "% of frame", "Rays", "Hits", "Avg steps", "Max steps", "Render time"})
	for _, stat := range stats.Tracers {
		table.Append([]string{
			stat.Id,
			fmt.Sprintf("%d", stat.BlockH),
			fmt.Sprintf("%02.1f %%", stat.FramePercent),
			fmt.Sprintf("%d", stat.Counters.Rays),
			fmt.Sprintf("%d", stat.Counters.Hits),
			fmtAvgSteps(stat.Counters.Steps, stat.Counters.Rays),
			fmt.Sprintf("%d", stat.Counters.MaxSteps),
			stat.RenderTime.String(),
		})
	}
	table.SetFooter([]string{
		"", "", "TOTAL",
		fmt.Sprintf("%d", stats.Counters.Rays),
		fmt.Sprintf("%d", stats.Counters.Hits),
		fmtAvgSteps(stats.Counters.Steps, stats.Counters.Rays),
		fmt.Sprintf("%d", stats.Counters.MaxSteps),
		stats.RenderTime.String(),
	})

	table.Render()
	return buf.String()
}

func fmtAvgSteps(steps, rays uint64) string {
	if rays == 0 {
		return "-"
	}
	return fmt.Sprintf("%.2f", float64(steps)/float64(rays))
}
