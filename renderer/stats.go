package renderer

import (
	"time"

	"github.com/berylllium/industria/tracer/cpu/kernel"
)

type TracerStat struct {
	// The tracer id.
	Id string

	// The block height and the percentage of total frame area it represents.
	BlockH       uint32
	FramePercent float32

	// Render time for assigned block
	RenderTime time.Duration

	// Traversal counters for the assigned block.
	Counters kernel.Counters
}

type FrameStats struct {
	// The unique id of the rendered frame.
	FrameID string

	// Individual tracer stats.
	Tracers []TracerStat

	// Total render time for entire frame.
	RenderTime time.Duration

	// Traversal counters for the entire frame.
	Counters kernel.Counters
}
