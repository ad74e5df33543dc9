// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package fractal

import "fmt"

// Image output limits. Frames are only written for small runs.
const (
	MinWidth           = 10
	MaxImageWidth      = 400
	MaxImageNodeFrames = 30
)

// Config describes a run. Every node of the process group must receive
// the same Config.
type Config struct {
	// Width is the frame width and height in pixels.
	Width int `toml:"width"`

	// CPUFrames is the number of frames each node renders on its CPU pool.
	CPUFrames int `toml:"cpu_frames"`

	// GPUFrames is the number of frames each node renders on its device.
	GPUFrames int `toml:"gpu_frames"`

	// Threads is the CPU pool size. Zero means DefaultCPUThreads.
	Threads int `toml:"threads"`

	// OutputDir is where the collecting node writes frame images.
	OutputDir string `toml:"output_dir"`
}

// Validate reports the first configuration error, if any.
func (c Config) Validate() error {
	if c.Width < MinWidth {
		return fmt.Errorf("%w (got %d)", ErrInvalidWidth, c.Width)
	}
	if c.CPUFrames < 0 {
		return fmt.Errorf("%w: cpu_frames = %d", ErrNegativeFrames, c.CPUFrames)
	}
	if c.GPUFrames < 0 {
		return fmt.Errorf("%w: gpu_frames = %d", ErrNegativeFrames, c.GPUFrames)
	}
	if c.FramesPerNode() < 1 {
		return ErrNoFrames
	}
	return nil
}

// FramesPerNode returns the number of frames each node owns.
func (c Config) FramesPerNode() int {
	return c.CPUFrames + c.GPUFrames
}

// CPUThreads returns the effective CPU pool size.
func (c Config) CPUThreads() int {
	if c.Threads <= 0 {
		return DefaultCPUThreads
	}
	return c.Threads
}

// ShouldWriteImages reports whether the run is small enough to write one
// image per frame.
func ShouldWriteImages(c Config) bool {
	return c.Width <= MaxImageWidth && c.FramesPerNode() <= MaxImageNodeFrames
}
