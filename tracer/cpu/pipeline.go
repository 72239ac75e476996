package cpu

import (
	"sync"
	"time"

	"github.com/berylllium/industria/tracer"
	"github.com/berylllium/industria/tracer/cpu/kernel"
)

// An alias for functions that can be used as part of the rendering pipeline.
type PipelineStage func(tr *Tracer, blockReq *tracer.BlockRequest) (time.Duration, error)

// The list of pluggable of stages that are used to render a block.
type Pipeline struct {
	// This stage runs the traversal kernel for every pixel in the block
	// and writes the resolved colors to the frame buffer.
	Integrator PipelineStage

	// A set of post-processing stages that are executed after the
	// integrator.
	PostProcess []PipelineStage
}

// Create the default pipeline using the given number of goroutines.
func DefaultPipeline(workers int) *Pipeline {
	return &Pipeline{
		Integrator: TileIntegrator(workers),
	}
}

func (p *Pipeline) stages() []PipelineStage {
	stages := make([]PipelineStage, 0, 1+len(p.PostProcess))
	if p.Integrator != nil {
		stages = append(stages, p.Integrator)
	}
	return append(stages, p.PostProcess...)
}

// Split the block into tiles and process them with a pool of goroutines.
// Each goroutine collects its own traversal counters which are merged into
// the tracer stats once all tiles are done.
func TileIntegrator(workers int) PipelineStage {
	if workers < 1 {
		workers = 1
	}

	return func(tr *Tracer, blockReq *tracer.BlockRequest) (time.Duration, error) {
		start := time.Now()

		tiles := kernel.Tiles(blockReq.FrameW, blockReq.BlockY, blockReq.BlockH)
		tileChan := make(chan kernel.Tile, len(tiles))
		for _, tile := range tiles {
			tileChan <- tile
		}
		close(tileChan)

		numWorkers := workers
		if numWorkers > len(tiles) {
			numWorkers = len(tiles)
		}

		counters := make([]kernel.Counters, numWorkers)
		var wg sync.WaitGroup
		for w := 0; w < numWorkers; w++ {
			wg.Add(1)
			go func(c *kernel.Counters) {
				defer wg.Done()
				for tile := range tileChan {
					tr.dispatch.RunTile(tile, c)
				}
			}(&counters[w])
		}
		wg.Wait()

		var total kernel.Counters
		for _, c := range counters {
			total.Merge(c)
		}
		tr.stats.Counters = total

		return time.Since(start), nil
	}
}

// Write a heat map of the per-pixel traversal step counts for the block rows
// into an RGBA8 buffer with the same dimensions as the frame buffer. Pixels
// whose rays never entered the octree are black; the rest fade from blue
// (few steps) to red (many steps).
func StepHeatMap(heatMap []uint8) PipelineStage {
	return func(tr *Tracer, blockReq *tracer.BlockRequest) (time.Duration, error) {
		start := time.Now()

		if len(heatMap) != len(tr.frameBuffer) {
			return 0, ErrFrameSize
		}

		// A ray that descends to the full depth visits a few octants per
		// level; use that as the upper end of the color scale.
		scale := float32(6*tr.dispatch.Octree.MaxDepth + 2)

		for y := blockReq.BlockY; y < blockReq.BlockY+blockReq.BlockH; y++ {
			for x := uint32(0); x < blockReq.FrameW; x++ {
				index := y*blockReq.FrameW + x
				steps := tr.stepBuffer[index]

				pixel := heatMap[index*4 : index*4+4]
				if steps == 0 {
					pixel[0], pixel[1], pixel[2], pixel[3] = 0, 0, 0, 255
					continue
				}

				heat := float32(steps) / scale
				if heat > 1 {
					heat = 1
				}
				pixel[0] = uint8(heat*255 + 0.5)
				pixel[1] = 0
				pixel[2] = uint8((1-heat)*255 + 0.5)
				pixel[3] = 255
			}
		}

		return time.Since(start), nil
	}
}
