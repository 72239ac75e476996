package compiler

import (
	"time"

	"github.com/berylllium/industria/asset/compiler/input"
	"github.com/berylllium/industria/asset/compiler/octree"
	"github.com/berylllium/industria/asset/scene"
	"github.com/berylllium/industria/log"
	"github.com/berylllium/industria/types"
	"github.com/pkg/errors"
)

// The camera distance, in root cube side lengths, used when a scene does
// not define a camera.
const defaultCameraDistance = 2.0

type sceneCompiler struct {
	parsedScene    *input.Scene
	optimizedScene *scene.Scene
	logger         log.Logger

	// Voxels after resolving duplicate grid coordinates; later definitions
	// override earlier ones.
	uniqueVoxels []input.Voxel
}

// Compile a voxel scene parsed by a scene reader into the flat octree
// buffers consumed by the tracers.
func Compile(parsedScene *input.Scene) (*scene.Scene, error) {
	compiler := &sceneCompiler{
		parsedScene: parsedScene,
		optimizedScene: &scene.Scene{
			Origin:     parsedScene.Origin,
			Size:       parsedScene.Size,
			MaxDepth:   parsedScene.Depth,
			Background: parsedScene.Background,
		},
		logger: log.New("scene compiler"),
	}

	start := time.Now()
	compiler.logger.Noticef("compiling scene")

	if !(parsedScene.Size > 0) {
		return nil, errors.Errorf("scene compiler: invalid root cube size %f", parsedScene.Size)
	}

	compiler.dedupeVoxels()

	var err error
	err = compiler.partitionVoxels()
	if err != nil {
		return nil, err
	}

	err = compiler.setupCamera()
	if err != nil {
		return nil, err
	}

	err = compiler.optimizedScene.Validate()
	if err != nil {
		return nil, errors.Wrap(err, "scene compiler")
	}

	compiler.logger.Noticef("compiled scene in %d ms", time.Since(start).Nanoseconds()/1e6)
	return compiler.optimizedScene, nil
}

// Drop voxels whose grid coordinates are redefined later in the list.
func (sc *sceneCompiler) dedupeVoxels() {
	lastIndex := make(map[[3]uint32]int, len(sc.parsedScene.Voxels))
	for index, v := range sc.parsedScene.Voxels {
		lastIndex[v.At] = index
	}

	sc.uniqueVoxels = make([]input.Voxel, 0, len(lastIndex))
	for index, v := range sc.parsedScene.Voxels {
		if lastIndex[v.At] == index {
			sc.uniqueVoxels = append(sc.uniqueVoxels, v)
		}
	}

	if dropped := len(sc.parsedScene.Voxels) - len(sc.uniqueVoxels); dropped > 0 {
		sc.logger.Infof("dropped %d duplicate voxel definitions", dropped)
	}
}

// Build the octree and copy voxel colors to the flat voxel list.
func (sc *sceneCompiler) partitionVoxels() error {
	start := time.Now()
	sc.logger.Infof("building octree (%d voxels, depth %d)", len(sc.uniqueVoxels), sc.parsedScene.Depth)

	cells := make([]octree.Cell, len(sc.uniqueVoxels))
	for index, v := range sc.uniqueVoxels {
		cells[index] = octree.Cell{At: v.At, Index: index}
	}

	sc.optimizedScene.VoxelList = make([]scene.Voxel, 0, len(cells))
	leafCb := func(cell octree.Cell) uint32 {
		voxelIndex := uint32(len(sc.optimizedScene.VoxelList))
		sc.optimizedScene.VoxelList = append(sc.optimizedScene.VoxelList, scene.Voxel{
			Color: sc.uniqueVoxels[cell.Index].Color,
		})
		return voxelIndex
	}

	var mergeCb octree.MergeCallback
	if sc.parsedScene.Collapse {
		mergeCb = func(cells []octree.Cell) bool {
			color := sc.uniqueVoxels[cells[0].Index].Color
			for _, cell := range cells[1:] {
				if sc.uniqueVoxels[cell.Index].Color != color {
					return false
				}
			}
			return true
		}
	}

	nodes, err := octree.Build(cells, sc.parsedScene.Depth, leafCb, mergeCb)
	if err != nil {
		return errors.Wrap(err, "scene compiler")
	}
	sc.optimizedScene.NodeList = nodes

	sc.logger.Infof("octree built in %d ms (%d nodes, %d voxels)", time.Since(start).Nanoseconds()/1e6, len(nodes), len(sc.optimizedScene.VoxelList))
	return nil
}

// Setup the scene camera. Scenes without a camera get one placed in front
// of the root cube (+Z side) looking at its center.
func (sc *sceneCompiler) setupCamera() error {
	parsed := sc.parsedScene.Camera
	size := sc.parsedScene.Size
	center := sc.parsedScene.Origin.Add(types.Vec3{size * 0.5, size * 0.5, size * 0.5})

	if parsed == nil {
		eye := center.Add(types.Vec3{0, 0, size * defaultCameraDistance})
		sc.optimizedScene.Camera = scene.NewCameraLookingAt(eye, center, scene.DefaultFOV)
		return nil
	}

	fov := parsed.FOV
	if fov == 0 {
		fov = scene.DefaultFOV
	}
	if fov < 0 || fov >= 180 {
		return errors.Errorf("scene compiler: invalid camera fov %f", fov)
	}

	camera := scene.NewCamera(fov)
	camera.Position = parsed.Position
	camera.Orientation = parsed.Orientation
	if parsed.LookAt != nil {
		camera.LookAt(*parsed.LookAt)
	}
	sc.optimizedScene.Camera = camera
	return nil
}
