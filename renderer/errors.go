package renderer

import "errors"

var (
	ErrNoTracers        = errors.New("renderer: no tracers attached")
	ErrSceneNotDefined  = errors.New("renderer: no scene defined")
	ErrCameraNotDefined = errors.New("renderer: no camera defined")
	ErrInvalidFrameSize = errors.New("renderer: invalid frame dimensions")
	ErrClosed           = errors.New("renderer: renderer has been closed")
)
