// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

//go:build !nogpu

// Package gpu implements the wgpu compute device for fractal.
//
// Accelerator runs the escape-time kernel as a WGSL compute shader through
// gogpu/wgpu hal on the Vulkan backend. The shader is compiled to SPIR-V
// with gogpu/naga when the pipeline is created.
//
// # Buffers
//
// Each dispatch binds three buffers:
//
//	0: uniform Params {width, frames, base, count, groups_x}
//	1: read-only storage, one FrameGeometry {cx0, cy0, step} per frame
//	2: storage, four packed depths per u32, lowest byte first
//
// Frame geometry is computed on the host in float64 and uploaded as
// double-single pairs (hi, lo float32). WGSL has no portable f64, so the
// shader iterates in double-single arithmetic built on fma and keeps about
// 48 bits of precision, enough to track the float64 CPU frames deep into
// the zoom.
//
// # Dispatch
//
// One invocation per packed word with a 64-wide workgroup. A buffer larger
// than one storage binding (MaxStorageBytes) is split into chunks, each with
// its own depth buffer and dispatch in the same compute pass. The depth
// buffers are copied to staging buffers in the same submission and read
// back in Finalize after the fence signals.
package gpu
