package renderer

import (
	"github.com/berylllium/industria/types"
)

type Options struct {
	// Frame dims.
	FrameW uint32
	FrameH uint32

	// Number of cpu tracers that split the frame rows between them.
	Tracers int

	// Number of goroutines used by each tracer.
	Workers int

	// Override the scene background color.
	Background *types.Vec4

	// Record a traversal step heat map along with each frame.
	DebugSteps bool
}
