package renderer

import (
	"fmt"
	"image"
	"runtime"
	"time"

	"github.com/berylllium/industria/asset/scene"
	"github.com/berylllium/industria/log"
	"github.com/berylllium/industria/tracer"
	"github.com/berylllium/industria/tracer/cpu"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

type Renderer interface {
	// Render frame. The returned image shares its pixels with the
	// renderer's frame buffer and is overwritten by the next call.
	Render() (*image.RGBA, error)

	// Queue a camera change for the next frame.
	UpdateCamera(*scene.Camera)

	// Get the traversal step heat map for the last frame or nil if step
	// recording is disabled.
	StepHeatMap() *image.RGBA

	// Shutdown renderer and any attached tracer.
	Close()

	// Get render statistics.
	Stats() FrameStats
}

type defaultRenderer struct {
	logger log.Logger

	// Render options.
	options Options

	// The block scheduler used to split frames between tracers.
	scheduler tracer.BlockScheduler

	// Attached tracers.
	tracers []tracer.Tracer

	// RGBA8 frame buffer shared by all tracers; each tracer writes to the
	// rows it has been assigned.
	frameBuffer []uint8

	// Optional step heat map buffer.
	heatMap []uint8

	// Statistics for last frame.
	stats FrameStats
}

// Create a new default renderer using the specified block scheduler. The
// renderer creates opts.Tracers cpu tracers, each running opts.Workers
// goroutines.
func NewDefault(sc *scene.Scene, scheduler tracer.BlockScheduler, opts Options) (Renderer, error) {
	if opts.Tracers <= 0 {
		opts.Tracers = 1
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}

	r, err := newRenderer(sc, scheduler, opts)
	if err != nil {
		return nil, err
	}

	for idx := 0; idx < opts.Tracers; idx++ {
		pipeline := cpu.DefaultPipeline(opts.Workers)
		if r.heatMap != nil {
			pipeline.PostProcess = append(pipeline.PostProcess, cpu.StepHeatMap(r.heatMap))
		}

		tr, err := cpu.NewTracer(fmt.Sprintf("cpu-%d", idx), opts.Workers, pipeline)
		if err != nil {
			r.Close()
			return nil, err
		}

		if err = r.attachTracer(tr, sc); err != nil {
			tr.Close()
			r.Close()
			return nil, err
		}
	}

	r.logger.Noticef("attached %d tracer(s) with %d worker(s) each", len(r.tracers), opts.Workers)
	return r, nil
}

func newRenderer(sc *scene.Scene, scheduler tracer.BlockScheduler, opts Options) (*defaultRenderer, error) {
	if sc == nil {
		return nil, ErrSceneNotDefined
	}
	if sc.Camera == nil {
		return nil, ErrCameraNotDefined
	}
	if opts.FrameW == 0 || opts.FrameH == 0 {
		return nil, ErrInvalidFrameSize
	}
	if err := sc.Validate(); err != nil {
		return nil, errors.Wrap(err, "renderer")
	}

	r := &defaultRenderer{
		logger:      log.New("renderer"),
		options:     opts,
		scheduler:   scheduler,
		tracers:     make([]tracer.Tracer, 0),
		frameBuffer: make([]uint8, int(opts.FrameW)*int(opts.FrameH)*4),
	}
	if opts.DebugSteps {
		r.heatMap = make([]uint8, len(r.frameBuffer))
	}
	return r, nil
}

// Initialize a tracer and queue the scene data.
func (r *defaultRenderer) attachTracer(tr tracer.Tracer, sc *scene.Scene) error {
	err := tr.Init(r.options.FrameW, r.options.FrameH, r.frameBuffer)
	if err != nil {
		return err
	}

	camera := *sc.Camera
	tr.Update(tracer.UpdateScene, sc)
	tr.Update(tracer.UpdateCamera, &camera)
	if r.options.Background != nil {
		tr.Update(tracer.UpdateBackground, *r.options.Background)
	}

	r.tracers = append(r.tracers, tr)
	return nil
}

// Shutdown renderer and any attached tracer.
func (r *defaultRenderer) Close() {
	for _, tr := range r.tracers {
		tr.Close()
	}
	r.tracers = nil
}

// Get last frame stats.
func (r *defaultRenderer) Stats() FrameStats {
	return r.stats
}

// Queue a camera change for all tracers. Each tracer receives its own copy.
func (r *defaultRenderer) UpdateCamera(camera *scene.Camera) {
	for _, tr := range r.tracers {
		camCopy := *camera
		tr.Update(tracer.UpdateCamera, &camCopy)
	}
}

// Get the step heat map for the last frame.
func (r *defaultRenderer) StepHeatMap() *image.RGBA {
	if r.heatMap == nil {
		return nil
	}
	return r.image(r.heatMap)
}

// Render next frame.
func (r *defaultRenderer) Render() (*image.RGBA, error) {
	if r.tracers == nil {
		return nil, ErrClosed
	}
	if len(r.tracers) == 0 {
		return nil, ErrNoTracers
	}

	frameID := uuid.New().String()
	start := time.Now()

	blockAssignment := r.scheduler.Schedule(r.tracers, r.options.FrameH)

	doneChan := make(chan uint32, len(r.tracers))
	errChan := make(chan error, len(r.tracers))
	var blockY uint32 = 0
	pending := 0
	for idx, tr := range r.tracers {
		if blockAssignment[idx] == 0 {
			continue
		}

		tr.Enqueue(tracer.BlockRequest{
			FrameW:   r.options.FrameW,
			FrameH:   r.options.FrameH,
			BlockY:   blockY,
			BlockH:   blockAssignment[idx],
			FrameID:  frameID,
			DoneChan: doneChan,
			ErrChan:  errChan,
		})
		blockY += blockAssignment[idx]
		pending++
	}

	// Wait for all tracers to finish before returning; the frame buffer is
	// shared and must not be touched while a block is in flight.
	var err error
	for ; pending > 0; pending-- {
		select {
		case <-doneChan:
		case blockErr := <-errChan:
			if err == nil {
				err = blockErr
			}
		}
	}
	if err != nil {
		r.logger.Errorf("[frame %s] render failed: %v", frameID, err)
		return nil, err
	}

	r.updateStats(frameID, blockAssignment, time.Since(start))
	r.logger.Infof("[frame %s] rendered in %s", frameID, r.stats.RenderTime)
	return r.image(r.frameBuffer), nil
}

// Collect tracer statistics for the last frame.
func (r *defaultRenderer) updateStats(frameID string, blockAssignment []uint32, renderTime time.Duration) {
	r.stats = FrameStats{
		FrameID:    frameID,
		Tracers:    make([]TracerStat, 0, len(r.tracers)),
		RenderTime: renderTime,
	}

	for idx, tr := range r.tracers {
		if blockAssignment[idx] == 0 {
			continue
		}

		trStats := tr.Stats()
		r.stats.Tracers = append(r.stats.Tracers, TracerStat{
			Id:           tr.Id(),
			BlockH:       trStats.BlockH,
			FramePercent: 100.0 * float32(trStats.BlockH) / float32(r.options.FrameH),
			RenderTime:   trStats.RenderTime,
			Counters:     trStats.Counters,
		})
		r.stats.Counters.Merge(trStats.Counters)
	}

	instrumentFrame(&r.stats)
}

func (r *defaultRenderer) image(pix []uint8) *image.RGBA {
	return &image.RGBA{
		Pix:    pix,
		Stride: int(r.options.FrameW) * 4,
		Rect:   image.Rect(0, 0, int(r.options.FrameW), int(r.options.FrameH)),
	}
}
