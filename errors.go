// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package fractal

import "errors"

// Configuration errors. These are reported before any node touches the
// process group, so every participant fails the same way.
var (
	// ErrInvalidWidth is returned when the frame width is below MinWidth.
	ErrInvalidWidth = errors.New("fractal: frame width must be at least 10")

	// ErrNegativeFrames is returned when a CPU or GPU frame count is negative.
	ErrNegativeFrames = errors.New("fractal: frame counts must be at least 0")

	// ErrNoFrames is returned when a node would own no frames at all.
	ErrNoFrames = errors.New("fractal: total number of frames must be at least 1")

	// ErrInvalidRank is returned when the node count or rank is out of range.
	ErrInvalidRank = errors.New("fractal: rank out of range")
)

// Device errors.
var (
	// ErrDeviceAlloc is returned when a device buffer cannot be allocated.
	ErrDeviceAlloc = errors.New("fractal: device allocation failed")

	// ErrBufferTooSmall is returned when a buffer cannot hold the frames
	// it is asked to compute or receive.
	ErrBufferTooSmall = errors.New("fractal: buffer too small")

	// ErrForeignBuffer is returned when a device is handed a buffer that
	// another device allocated.
	ErrForeignBuffer = errors.New("fractal: buffer was not allocated by this device")

	// ErrAlreadyLaunched is returned when LaunchAsync is called twice on
	// the same device buffer.
	ErrAlreadyLaunched = errors.New("fractal: device buffer already launched")

	// ErrNotLaunched is returned when Finalize is called before LaunchAsync.
	ErrNotLaunched = errors.New("fractal: device buffer was never launched")

	// ErrBufferReleased is returned when using a device buffer after Finalize.
	ErrBufferReleased = errors.New("fractal: device buffer already released")

	// ErrDeviceClosed is returned when using a device after Close.
	ErrDeviceClosed = errors.New("fractal: device closed")
)

// Collection errors.
var (
	// ErrGatherSize is returned when the gathered buffer does not have the
	// length implied by the process group size.
	ErrGatherSize = errors.New("fractal: gathered buffer has unexpected size")
)
