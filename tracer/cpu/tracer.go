package cpu

import (
	"fmt"
	"sync"
	"time"

	"github.com/berylllium/industria/asset/scene"
	"github.com/berylllium/industria/log"
	"github.com/berylllium/industria/tracer"
	"github.com/berylllium/industria/tracer/cpu/kernel"
	"github.com/berylllium/industria/types"
	"github.com/pkg/errors"
)

// A tracer that runs the traversal kernel on the CPU. Each tracer owns a
// worker goroutine that processes block requests sequentially; the pipeline
// stages fan the pixels of a block out to additional goroutines.
type Tracer struct {
	logger log.Logger

	sync.Mutex
	wg sync.WaitGroup

	// The tracer id.
	id string

	// The number of goroutines used by the integrator stage.
	workers int

	// A buffer for queuing updates. Updates are grouped by type and
	// latest updates always overwrite the previous ones.
	updateMu     sync.Mutex
	updateBuffer map[tracer.UpdateType]interface{}

	// A channel for receiving block requests from the renderer.
	blockReqChan chan tracer.BlockRequest

	// A channel for signaling the worker to exit.
	closeChan chan struct{}

	// Statistics for last rendered block.
	stats *tracer.Stats

	// The tracer rendering pipeline.
	pipeline *Pipeline

	// Frame dims and output buffers.
	frameW, frameH uint32
	frameBuffer    []uint8
	stepBuffer     []uint32

	// Committed state. The dispatch is rebuilt whenever updates are
	// committed and is never modified while a block is being rendered.
	sceneData  *scene.Scene
	camera     *scene.Camera
	background *types.Vec4
	dispatch   *kernel.Dispatch
}

// Create a new cpu tracer that uses the given number of worker goroutines
// for each block. If pipeline is nil the default pipeline is used.
func NewTracer(id string, workers int, pipeline *Pipeline) (*Tracer, error) {
	if workers < 1 {
		return nil, errors.Errorf("cpu tracer: invalid worker count %d", workers)
	}
	if pipeline == nil {
		pipeline = DefaultPipeline(workers)
	}

	return &Tracer{
		logger:       log.New(fmt.Sprintf("cpu tracer (%s)", id)),
		id:           id,
		workers:      workers,
		blockReqChan: make(chan tracer.BlockRequest, 1),
		updateBuffer: make(map[tracer.UpdateType]interface{}),
		stats:        &tracer.Stats{},
		pipeline:     pipeline,
	}, nil
}

// Get tracer id.
func (tr *Tracer) Id() string {
	return tr.id
}

// Get the computation speed estimate. A cpu tracer is as fast as the number
// of goroutines it uses.
func (tr *Tracer) Speed() uint32 {
	return uint32(tr.workers)
}

// Initialize tracer
func (tr *Tracer) Init(frameW, frameH uint32, frameBuffer []uint8) error {
	tr.Lock()
	defer tr.Unlock()

	if frameW == 0 || frameH == 0 || len(frameBuffer) != int(frameW)*int(frameH)*4 {
		return ErrInvalidFrameSize
	}

	tr.frameW = frameW
	tr.frameH = frameH
	tr.frameBuffer = frameBuffer
	tr.stepBuffer = make([]uint32, int(frameW)*int(frameH))

	// Force the dispatch to be rebuilt for the new frame buffer
	tr.dispatch = nil

	// Start worker
	if tr.closeChan == nil {
		tr.startWorker()
	}

	return nil
}

// Shutdown and cleanup tracer.
func (tr *Tracer) Close() {
	tr.Lock()
	defer tr.Unlock()

	tr.cleanup()
}

// Cleanup tracer. This method is meant to be called while holding tr.Lock()
func (tr *Tracer) cleanup() {
	// If the worker is running shut it down
	if tr.closeChan != nil {
		tr.closeChan <- struct{}{}

		// wait for worker to ack close and shutdown channel
		<-tr.closeChan
		close(tr.closeChan)
		tr.closeChan = nil
		tr.wg.Wait()
	}

	tr.sceneData = nil
	tr.camera = nil
	tr.dispatch = nil
	tr.frameBuffer = nil
	tr.stepBuffer = nil
}

// Enqueue block request.
func (tr *Tracer) Enqueue(blockReq tracer.BlockRequest) {
	select {
	case tr.blockReqChan <- blockReq:
	default:
		// drop the request if worker is not listening
		tr.logger.Error("request processor did not receive block request")
		blockReq.ErrChan <- ErrBusy
	}
}

// Append a change to the tracer's update buffer.
func (tr *Tracer) Update(updateType tracer.UpdateType, data interface{}) {
	tr.updateMu.Lock()
	tr.updateBuffer[updateType] = data
	tr.updateMu.Unlock()
}

// Retrieve last block statistics.
func (tr *Tracer) Stats() *tracer.Stats {
	return tr.stats
}

// Commit queued changes. The pending updates are validated before any of
// them is applied; if one of them is invalid the whole batch is discarded
// and the committed state is left untouched.
func (tr *Tracer) commitUpdates() error {
	tr.updateMu.Lock()
	pending := tr.updateBuffer
	tr.updateBuffer = make(map[tracer.UpdateType]interface{})
	tr.updateMu.Unlock()

	var (
		sceneData  *scene.Scene
		camera     *scene.Camera
		background *types.Vec4
	)
	for updateType, data := range pending {
		switch updateType {
		case tracer.UpdateScene:
			sc, ok := data.(*scene.Scene)
			if !ok || sc == nil {
				return ErrNoSceneData
			}
			sceneData = sc
		case tracer.UpdateCamera:
			cam, ok := data.(*scene.Camera)
			if !ok || cam == nil {
				return ErrNoCamera
			}
			camera = cam
		case tracer.UpdateBackground:
			bg, ok := data.(types.Vec4)
			if !ok {
				return errors.Errorf("cpu tracer: invalid background payload %T", data)
			}
			background = &bg
		default:
			return errors.Errorf("cpu tracer: unsupported update type %d", updateType)
		}
	}

	if sceneData != nil {
		tr.sceneData = sceneData
	}
	if camera != nil {
		tr.camera = camera
	}
	if background != nil {
		tr.background = background
	}
	tr.dispatch = nil
	return nil
}

func (tr *Tracer) hasPendingUpdates() bool {
	tr.updateMu.Lock()
	defer tr.updateMu.Unlock()
	return len(tr.updateBuffer) != 0
}

// Spawn a go-routine to process block render requests.
func (tr *Tracer) startWorker() {
	// Worker already running
	if tr.closeChan != nil {
		return
	}

	tr.closeChan = make(chan struct{})
	readyChan := make(chan struct{})
	tr.wg.Add(1)
	go func() {
		defer tr.wg.Done()
		var blockReq tracer.BlockRequest
		var startTime time.Time
		var err error
		close(readyChan)
		for {
			select {
			case blockReq = <-tr.blockReqChan:
				startTime = time.Now()

				// Apply any pending changes
				tr.stats.UpdateTime = 0
				if tr.hasPendingUpdates() {
					err = tr.commitUpdates()
					if err != nil {
						blockReq.ErrChan <- err
						continue
					}
					tr.stats.UpdateTime = time.Since(startTime)
				}

				// Render block and reply with our completion status
				err = tr.renderBlock(&blockReq)
				if err != nil {
					blockReq.ErrChan <- err
					continue
				}

				// Update stats
				tr.stats.BlockH = blockReq.BlockH
				tr.stats.RenderTime = time.Since(startTime)
				tr.logger.Debugf("[frame %s] rendered rows [%d, %d) in %s", blockReq.FrameID, blockReq.BlockY, blockReq.BlockY+blockReq.BlockH, tr.stats.RenderTime)

				blockReq.DoneChan <- blockReq.BlockH
			case <-tr.closeChan:
				// Ack close
				tr.closeChan <- struct{}{}
				return
			}
		}
	}()

	// Wait for go-routine to start
	<-readyChan
}

// Build the dispatch for the committed state. This is the single point
// where scene, camera and background changes become visible to the kernel.
func (tr *Tracer) setupDispatch() error {
	if tr.sceneData == nil {
		return ErrNoSceneData
	}

	camera := tr.camera
	if camera == nil {
		camera = tr.sceneData.Camera
	}
	if camera == nil {
		return ErrNoCamera
	}

	background := tr.sceneData.Background
	if tr.background != nil {
		background = *tr.background
	}

	tr.dispatch = kernel.NewDispatch(tr.sceneData, camera, background, tr.frameW, tr.frameH, tr.frameBuffer)
	tr.dispatch.Steps = tr.stepBuffer
	return nil
}

// Render block.
func (tr *Tracer) renderBlock(blockReq *tracer.BlockRequest) error {
	var err error

	if tr.frameBuffer == nil {
		return ErrNotInitialized
	}
	if blockReq.FrameW != tr.frameW || blockReq.FrameH != tr.frameH || blockReq.BlockY+blockReq.BlockH > tr.frameH {
		return ErrFrameSize
	}

	if tr.dispatch == nil {
		if err = tr.setupDispatch(); err != nil {
			return err
		}
	}

	// Execute pipeline
	for _, stage := range tr.pipeline.stages() {
		_, err = stage(tr, blockReq)
		if err != nil {
			return err
		}
	}

	return nil
}
