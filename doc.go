// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package fractal renders a Mandelbrot zoom sequence on a group of nodes.
//
// # Overview
//
// Every node owns the same number of consecutive frames. Within a node the
// first frames go to an asynchronous device (a GPU, or the software device
// when none is available) and the rest to a fixed-size CPU worker pool.
// Both run concurrently; the node then sends its frames to rank 0, which
// holds the complete sequence in global frame order.
//
// # Quick Start
//
//	import (
//		"github.com/gogpu/fractal"
//		"github.com/gogpu/fractal/cluster"
//	)
//
//	members := cluster.NewLocal(4) // 4 nodes in this process
//	// Run on every member concurrently:
//	res, err := fractal.Run(ctx, fractal.Config{Width: 200, CPUFrames: 8, GPUFrames: 2}, members[i])
//	// On rank 0, res.Global holds all 40 frames.
//
// # Frames
//
// Frame f zooms toward a fixed center: its window has half-width
// Scale(f) = 0.005491·0.99^(f+1), so the output is the same whatever the
// number of nodes or the CPU/GPU split. Each pixel holds the remaining
// iteration budget of the escape-time kernel (Depth) as a byte.
//
// # Devices
//
// GPU frames go through the Device contract: Allocate, LaunchAsync,
// Finalize. Import the gpu package to register the wgpu device:
//
//	import _ "github.com/gogpu/fractal/gpu"
//
// Without it, or when no adapter is present, the SoftwareDevice renders
// the GPU frames on the host.
//
// # Architecture
//
// The library is organized into:
//   - Public API: Config, Run, Result, Partition, FrameGeometry, Depth
//   - Buffers: PixelBuffer (node-local), GlobalBuffer (rank 0)
//   - Devices: Device, SoftwareDevice, GPUCoordinator
//   - Output: WriteFrames (BMP), Report
//   - cluster: process groups (in-process and WebSocket)
//   - internal/parallel: the CPU worker pool
//   - internal/gpu: the wgpu compute shader device
package fractal

// Version information
const (
	// Version is the current version of the program.
	Version = "1.5.0"

	// VersionMajor is the major version
	VersionMajor = 1

	// VersionMinor is the minor version
	VersionMinor = 5

	// VersionPatch is the patch version
	VersionPatch = 0
)
