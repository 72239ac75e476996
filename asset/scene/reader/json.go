package reader

import (
	"io"
	"time"

	"github.com/berylllium/industria/asset"
	"github.com/berylllium/industria/asset/compiler"
	"github.com/berylllium/industria/asset/compiler/input"
	"github.com/berylllium/industria/asset/scene"
	"github.com/berylllium/industria/log"
	"github.com/berylllium/industria/types"
	"github.com/pkg/errors"
	"github.com/segmentio/encoding/json"
)

// Opaque black.
var defaultBackground = types.Vec4{0, 0, 0, 1}

type jsonBounds struct {
	Origin types.Vec3 `json:"origin"`
	Size   float32    `json:"size"`
}

type jsonCamera struct {
	Position    types.Vec3  `json:"position"`
	Orientation types.Vec3  `json:"orientation"`
	LookAt      *types.Vec3 `json:"lookAt,omitempty"`
	FOV         float32     `json:"fov"`
}

type jsonVoxel struct {
	At    [3]uint32  `json:"at"`
	Color types.Vec4 `json:"color"`
}

type jsonScene struct {
	Bounds     jsonBounds  `json:"bounds"`
	Depth      uint32      `json:"depth"`
	Background *types.Vec4 `json:"background,omitempty"`
	Camera     *jsonCamera `json:"camera,omitempty"`
	Voxels     []jsonVoxel `json:"voxels"`
	Collapse   bool        `json:"collapse,omitempty"`
}

type jsonSceneReader struct {
	logger log.Logger
}

// Create a new voxel scene reader.
func newJSONSceneReader() *jsonSceneReader {
	return &jsonSceneReader{
		logger: log.New("json reader"),
	}
}

// Parse a voxel scene definition and compile it.
func (r *jsonSceneReader) Read(sceneRes *asset.Resource) (*scene.Scene, error) {
	r.logger.Noticef(`parsing voxel scene from "%s"`, sceneRes.Path())
	start := time.Now()

	data, err := io.ReadAll(sceneRes)
	if err != nil {
		return nil, errors.Wrap(err, "jsonSceneReader")
	}

	parsed, err := ParseVoxelScene(data)
	if err != nil {
		return nil, errors.Wrapf(err, "jsonSceneReader: %s", sceneRes.Path())
	}
	r.logger.Infof("parsed %d voxel definitions in %d ms", len(parsed.Voxels), time.Since(start).Nanoseconds()/1000000)

	return compiler.Compile(parsed)
}

// Decode a JSON voxel scene definition into the compiler input format.
func ParseVoxelScene(data []byte) (*input.Scene, error) {
	var js jsonScene
	if err := json.Unmarshal(data, &js); err != nil {
		return nil, errors.Wrap(err, "invalid voxel scene")
	}

	parsed := &input.Scene{
		Origin:     js.Bounds.Origin,
		Size:       js.Bounds.Size,
		Depth:      js.Depth,
		Background: defaultBackground,
		Voxels:     make([]input.Voxel, len(js.Voxels)),
		Collapse:   js.Collapse,
	}
	if js.Background != nil {
		parsed.Background = *js.Background
	}
	if js.Camera != nil {
		parsed.Camera = &input.Camera{
			Position:    js.Camera.Position,
			Orientation: js.Camera.Orientation,
			LookAt:      js.Camera.LookAt,
			FOV:         js.Camera.FOV,
		}
	}
	for index, v := range js.Voxels {
		parsed.Voxels[index] = input.Voxel{At: v.At, Color: v.Color}
	}

	return parsed, nil
}
