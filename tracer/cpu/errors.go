package cpu

import "errors"

var (
	ErrNotInitialized   = errors.New("cpu tracer: tracer not initialized")
	ErrNoSceneData      = errors.New("cpu tracer: no scene data")
	ErrNoCamera         = errors.New("cpu tracer: no camera defined")
	ErrBusy             = errors.New("cpu tracer: worker is busy; block request dropped")
	ErrFrameSize        = errors.New("cpu tracer: block request frame size does not match the tracer frame buffer")
	ErrInvalidFrameSize = errors.New("cpu tracer: invalid frame buffer size")
)
