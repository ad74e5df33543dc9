// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package fractal

import (
	"context"
	"fmt"
	"time"

	"github.com/gogpu/fractal/internal/parallel"
)

// Result summarizes one node's run.
type Result struct {
	Rank  int
	Nodes int
	Plan  Plan
	Width int

	TotalFrames    int
	TotalCPUFrames int
	TotalGPUFrames int

	// Elapsed is the compute time from the start barrier to the end of
	// collection. Setup and teardown are excluded.
	Elapsed time.Duration

	// Device is the name of the device that rendered the GPU frames, or ""
	// if this node had none.
	Device string

	// Global holds every frame on Root and is nil on other nodes.
	Global *GlobalBuffer
}

// Run renders this node's share of the frames and collects all frames on
// Root.
//
// The sequence is: validate, partition, allocate, barrier, launch the
// device, render CPU frames, await the device, collect. Any error aborts
// the run; there is no partial result.
func Run(ctx context.Context, cfg Config, comm Communicator, opts ...RunOption) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := defaultRunOptions()
	for _, opt := range opts {
		opt(&o)
	}

	plan, err := Partition(cfg.CPUFrames, cfg.GPUFrames, comm.Size(), comm.Rank())
	if err != nil {
		return nil, err
	}
	log := Logger().With("rank", plan.Rank)
	log.Debug("partition", "plan", plan.String())

	local := NewPixelBuffer(plan.Frames(), cfg.Width)

	var pool *parallel.WorkerPool
	if plan.CPUFrames() > 0 {
		pool = parallel.NewWorkerPool(cfg.CPUThreads())
		defer pool.Close()
	}

	// The device is only touched when there are GPU frames, so CPU-only
	// nodes pay no device initialization.
	var coord *GPUCoordinator
	var deviceName string
	if plan.GPUFrames() > 0 {
		dev := o.device
		if dev == nil {
			dev = OpenDevice()
			defer dev.Close()
		}
		propagateLogger(dev)
		coord, err = NewGPUCoordinator(dev, plan, cfg.Width)
		if err != nil {
			return nil, err
		}
		defer coord.Release()
		deviceName = dev.Name()
	}

	if err := comm.Barrier(ctx); err != nil {
		return nil, fmt.Errorf("start barrier: %w", err)
	}
	start := time.Now()

	var launch *GPULaunch
	if coord != nil {
		if launch, err = coord.Launch(ctx); err != nil {
			return nil, err
		}
	}

	if pool != nil {
		if err := renderCPU(ctx, pool, local, plan, cfg.Width); err != nil {
			return nil, fmt.Errorf("render cpu frames: %w", err)
		}
		log.Debug("cpu frames rendered", "frames", plan.CPUFrames(), "elapsed", time.Since(start))
	}

	if launch != nil {
		if err := launch.Await(local); err != nil {
			return nil, err
		}
	}

	global, err := Collect(ctx, comm, local)
	if err != nil {
		return nil, err
	}
	elapsed := time.Since(start)

	nodes := comm.Size()
	res := &Result{
		Rank:           plan.Rank,
		Nodes:          nodes,
		Plan:           plan,
		Width:          cfg.Width,
		TotalFrames:    cfg.FramesPerNode() * nodes,
		TotalCPUFrames: cfg.CPUFrames * nodes,
		TotalGPUFrames: cfg.GPUFrames * nodes,
		Elapsed:        elapsed,
		Device:         deviceName,
		Global:         global,
	}
	log.Info("run complete", "frames", plan.Frames(), "elapsed", elapsed)
	return res, nil
}
