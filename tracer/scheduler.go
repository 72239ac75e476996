package tracer

import "math"

// The BlockScheduler interface is implemented by all block scheduling algorithms.
type BlockScheduler interface {
	// Split frame into blocks of variable height and assign to the pool
	// of tracers using feedback collected from previous frames.
	//
	// This function returns the block height assignment for each tracer
	// in the input list. The assigned heights always add up to frameH.
	Schedule(tracers []Tracer, frameH uint32) []uint32
}

// The naive scheduler splits the frame according to the speed estimate of
// each tracer.
type naiveScheduler struct {
	blockAssignment []uint32
}

// Create a new naive scheduler instance.
func NaiveScheduler() BlockScheduler {
	return &naiveScheduler{}
}

func (sch *naiveScheduler) Schedule(tracers []Tracer, frameH uint32) []uint32 {
	if len(sch.blockAssignment) != len(tracers) {
		sch.blockAssignment = make([]uint32, len(tracers))
	}
	if len(tracers) == 0 {
		return sch.blockAssignment
	}

	scheduleBySpeed(tracers, frameH, sch.blockAssignment)
	return sch.blockAssignment
}

// The perfect scheduler assumes that the volume of tracing work between two
// subsequent frames is approximately the same.
type perfectScheduler struct {
	blockAssignment []uint32
}

// Create a new perfect scheduler instance
func PerfectScheduler() BlockScheduler {
	return &perfectScheduler{}
}

// Split frame into blocks of variable height and assign to the pool
// of tracers using feedback collected from previous frames.
//
// When previous frame information is available the scheduler uses the
// following formula for estimating the workload for tracer w and frame i+1:
// w_i, f_i+1 = (blockH,w_i / time,w_i) / Σ(blockH_i-1 / time,i-1)
func (sch *perfectScheduler) Schedule(tracers []Tracer, frameH uint32) []uint32 {
	// If this is the first time we try to schedule or the number of tracers
	// has changed we need to reset the block assignments
	if len(sch.blockAssignment) != len(tracers) {
		sch.blockAssignment = make([]uint32, len(tracers))
		if len(tracers) != 0 {
			scheduleBySpeed(tracers, frameH, sch.blockAssignment)
		}
		return sch.blockAssignment
	}
	if len(tracers) == 0 {
		return sch.blockAssignment
	}

	// Use last frame statistics
	var total float64 = 0.0
	var stats *Stats
	for _, tr := range tracers {
		stats = tr.Stats()

		// Tracers that did not take part in the last frame do not provide
		// any usable timing information.
		if stats.BlockH == 0 || stats.RenderTime <= 0 {
			scheduleBySpeed(tracers, frameH, sch.blockAssignment)
			return sch.blockAssignment
		}
		total += float64(stats.BlockH) / float64(stats.RenderTime)
	}

	scaler := float64(frameH) / total
	for idx, tr := range tracers {
		stats = tr.Stats()
		sch.blockAssignment[idx] = uint32(math.Max(1.0, math.Floor(float64(stats.BlockH)/float64(stats.RenderTime)*scaler)))
	}

	balanceAssignment(sch.blockAssignment, frameH)
	return sch.blockAssignment
}

// Distribute rows proportionally to the tracer speed estimates.
func scheduleBySpeed(tracers []Tracer, frameH uint32, blockAssignment []uint32) {
	var total float64 = 0.0
	for _, tr := range tracers {
		total += float64(tr.Speed())
	}

	// No usable speed estimates; treat all tracers the same.
	equal := total == 0
	if equal {
		total = float64(len(tracers))
	}

	for idx, tr := range tracers {
		speed := 1.0
		if !equal {
			speed = float64(tr.Speed())
		}
		blockAssignment[idx] = uint32(math.Max(1.0, math.Floor(speed*float64(frameH)/total)))
	}

	balanceAssignment(blockAssignment, frameH)
}

// Adjust the assignment so that rows add up to frameH. Missing rows are
// appended to the first tracer; excess rows are removed from the tracers
// with the largest blocks.
func balanceAssignment(blockAssignment []uint32, frameH uint32) {
	var scheduledRows uint32 = 0
	for _, rows := range blockAssignment {
		scheduledRows += rows
	}

	if scheduledRows <= frameH {
		blockAssignment[0] += frameH - scheduledRows
		return
	}

	for ; scheduledRows > frameH; scheduledRows-- {
		maxIdx := 0
		for idx, rows := range blockAssignment {
			if rows >= blockAssignment[maxIdx] {
				maxIdx = idx
			}
		}
		blockAssignment[maxIdx]--
	}
}
