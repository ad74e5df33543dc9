// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package fractal

import "fmt"

// PixelBuffer is a node-local stack of square single-channel frames.
//
// Frames are stored back to back, each width*width bytes in row-major
// order. Accessors panic on out-of-range indices instead of silently
// touching a neighbouring frame.
type PixelBuffer struct {
	frames int
	width  int
	data   []uint8
}

// NewPixelBuffer allocates a zeroed buffer for frames frames of the given width.
func NewPixelBuffer(frames, width int) *PixelBuffer {
	if frames < 0 || width < 0 {
		panic(fmt.Sprintf("fractal: invalid pixel buffer %d frames of width %d", frames, width))
	}
	return &PixelBuffer{
		frames: frames,
		width:  width,
		data:   make([]uint8, frames*width*width),
	}
}

// Frames returns the number of frames the buffer holds.
func (b *PixelBuffer) Frames() int { return b.frames }

// Width returns the frame width (and height) in pixels.
func (b *PixelBuffer) Width() int { return b.width }

// FrameSize returns the number of bytes in one frame.
func (b *PixelBuffer) FrameSize() int { return b.width * b.width }

// Len returns the total size in bytes.
func (b *PixelBuffer) Len() int { return len(b.data) }

// Bytes returns the raw pixel data.
func (b *PixelBuffer) Bytes() []uint8 { return b.data }

// Frame returns the pixels of local frame i. The slice aliases the buffer.
func (b *PixelBuffer) Frame(i int) []uint8 {
	if i < 0 || i >= b.frames {
		panic(fmt.Sprintf("fractal: frame %d out of range [0, %d)", i, b.frames))
	}
	n := b.FrameSize()
	return b.data[i*n : (i+1)*n : (i+1)*n]
}

// Prefix returns the first n bytes of the buffer.
// The GPU coordinator finalizes into this region.
func (b *PixelBuffer) Prefix(n int) []uint8 {
	if n < 0 || n > len(b.data) {
		panic(fmt.Sprintf("fractal: prefix %d out of range [0, %d]", n, len(b.data)))
	}
	return b.data[:n:n]
}

// At returns the depth stored at (row, col) of local frame i.
func (b *PixelBuffer) At(i, row, col int) uint8 {
	return b.Frame(i)[b.offset(row, col)]
}

// Set stores a depth at (row, col) of local frame i.
func (b *PixelBuffer) Set(i, row, col int, v uint8) {
	b.Frame(i)[b.offset(row, col)] = v
}

func (b *PixelBuffer) offset(row, col int) int {
	if row < 0 || row >= b.width || col < 0 || col >= b.width {
		panic(fmt.Sprintf("fractal: pixel (%d, %d) out of range for width %d", row, col, b.width))
	}
	return row*b.width + col
}

// GlobalBuffer holds every frame of a run in global frame order.
// It exists only on the collecting node.
type GlobalBuffer struct {
	PixelBuffer
}

// newGlobalBuffer wraps gathered bytes. len(data) must be frames*width*width.
func newGlobalBuffer(data []uint8, frames, width int) *GlobalBuffer {
	return &GlobalBuffer{PixelBuffer{frames: frames, width: width, data: data}}
}

// Node returns the slice of the buffer contributed by rank, given the
// number of frames each node owns.
func (g *GlobalBuffer) Node(rank, framesPerNode int) []uint8 {
	n := framesPerNode * g.FrameSize()
	if rank < 0 || (rank+1)*n > len(g.data) {
		panic(fmt.Sprintf("fractal: node %d out of range for %d bytes", rank, len(g.data)))
	}
	return g.data[rank*n : (rank+1)*n : (rank+1)*n]
}
