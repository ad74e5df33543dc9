// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package fractal

import "fmt"

// Plan is one node's share of the frame range.
//
// [From, Mid) is rendered by the GPU device and [Mid, To) by the CPU
// worker pool. GPU frames come first so the device result lands at the
// start of the node's local buffer.
type Plan struct {
	Rank int
	From int
	Mid  int
	To   int
}

// Partition computes the plan for rank in a group of nodes, each owning
// gpuFrames+cpuFrames consecutive frames. Concatenating the plans of ranks
// 0..nodes-1 covers [0, nodes*(cpuFrames+gpuFrames)) exactly once.
func Partition(cpuFrames, gpuFrames, nodes, rank int) (Plan, error) {
	if cpuFrames < 0 || gpuFrames < 0 {
		return Plan{}, fmt.Errorf("%w: cpu=%d gpu=%d", ErrNegativeFrames, cpuFrames, gpuFrames)
	}
	frames := cpuFrames + gpuFrames
	if frames < 1 {
		return Plan{}, ErrNoFrames
	}
	if nodes < 1 || rank < 0 || rank >= nodes {
		return Plan{}, fmt.Errorf("%w: rank %d of %d", ErrInvalidRank, rank, nodes)
	}
	from := rank * frames
	mid := from + gpuFrames
	return Plan{
		Rank: rank,
		From: from,
		Mid:  mid,
		To:   mid + cpuFrames,
	}, nil
}

// Frames returns the number of frames the node owns.
func (p Plan) Frames() int { return p.To - p.From }

// GPUFrames returns the number of frames assigned to the device.
func (p Plan) GPUFrames() int { return p.Mid - p.From }

// CPUFrames returns the number of frames assigned to the worker pool.
func (p Plan) CPUFrames() int { return p.To - p.Mid }

// LocalIndex converts a global frame index owned by this plan into its
// position in the node-local buffer.
func (p Plan) LocalIndex(frame int) int {
	if frame < p.From || frame >= p.To {
		panic(fmt.Sprintf("fractal: frame %d outside plan [%d, %d)", frame, p.From, p.To))
	}
	return frame - p.From
}

// String implements fmt.Stringer.
func (p Plan) String() string {
	return fmt.Sprintf("rank %d: gpu [%d, %d) cpu [%d, %d)", p.Rank, p.From, p.Mid, p.Mid, p.To)
}
