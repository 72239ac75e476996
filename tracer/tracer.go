package tracer

import (
	"time"

	"github.com/berylllium/industria/tracer/cpu/kernel"
)

type UpdateType uint8

const (
	// Payload: *scene.Scene
	UpdateScene UpdateType = iota
	// Payload: *scene.Camera
	UpdateCamera
	// Payload: types.Vec4
	UpdateBackground
)

// A unit of work that is processed by a tracer.
type BlockRequest struct {
	// The frame dimensions.
	FrameW uint32
	FrameH uint32

	// Block start row and height.
	BlockY uint32
	BlockH uint32

	// The id of the frame this block belongs to.
	FrameID string

	// A channel to signal on block completion with the number of completed rows.
	DoneChan chan<- uint32

	// A channel to signal if an error occurs.
	ErrChan chan<- error
}

// Tracer statistics.
type Stats struct {
	// The rendered block height
	BlockH uint32

	// The time for rendering this block
	RenderTime time.Duration

	// The time for applying pending updates before rendering the block.
	UpdateTime time.Duration

	// Traversal counters for the block.
	Counters kernel.Counters
}

type Tracer interface {
	// Get tracer id.
	Id() string

	// Get the tracer's computation speed estimate. Speeds are only
	// compared to each other when assigning rows to tracers.
	Speed() uint32

	// Initialize the tracer. Blocks are rendered into frameBuffer which
	// must hold frameW * frameH RGBA8 pixels.
	Init(frameW, frameH uint32, frameBuffer []uint8) error

	// Shutdown and cleanup tracer.
	Close()

	// Enqueue block request.
	Enqueue(BlockRequest)

	// Append a change to the tracer's update buffer. Changes are applied
	// before the next block is rendered.
	Update(UpdateType, interface{})

	// Retrieve last block statistics.
	Stats() *Stats
}
