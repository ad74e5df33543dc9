// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

//go:build !nogpu

package gpu

import (
	"encoding/binary"
	"math"

	"github.com/gogpu/fractal"
)

// Byte sizes of the shader's uniform and per-frame geometry records.
const (
	paramsSize   = 32
	geometrySize = 32

	// Depths are packed four to a u32 word, lowest byte first.
	pixelsPerWord = 4
	wordSize      = 4
)

// chunkRange is a run of pixels of a launch that the shader writes into
// one depth buffer.
type chunkRange struct {
	base   int // first pixel, relative to the launch
	pixels int
}

// planChunks splits size pixels into ranges of at most maxPixels each.
// maxPixels is rounded down to a whole number of words.
func planChunks(size, maxPixels int) []chunkRange {
	maxPixels -= maxPixels % pixelsPerWord
	if maxPixels <= 0 {
		maxPixels = pixelsPerWord
	}
	var out []chunkRange
	for base := 0; base < size; base += maxPixels {
		out = append(out, chunkRange{base: base, pixels: min(maxPixels, size-base)})
	}
	return out
}

// wordsFor returns the number of packed words holding pixels depths.
func wordsFor(pixels int) int {
	return (pixels + pixelsPerWord - 1) / pixelsPerWord
}

// packParams encodes the Params uniform of one chunk dispatch.
func packParams(width, frames, base, count int, groupsX uint32) []byte {
	out := make([]byte, paramsSize)
	binary.LittleEndian.PutUint32(out[0:], uint32(width))  //nolint:gosec // width is validated
	binary.LittleEndian.PutUint32(out[4:], uint32(frames)) //nolint:gosec // frame count is validated
	binary.LittleEndian.PutUint32(out[8:], uint32(base))   //nolint:gosec // bounded by buffer size
	binary.LittleEndian.PutUint32(out[12:], uint32(count)) //nolint:gosec // bounded by chunk size
	binary.LittleEndian.PutUint32(out[16:], groupsX)
	return out
}

// splitFloat returns v as an unevaluated sum hi + lo of two float32.
func splitFloat(v float64) (hi, lo float32) {
	hi = float32(v)
	lo = float32(v - float64(hi))
	return hi, lo
}

// packGeometry encodes the geometry of global frames [from, to).
// Each record holds the negated window origin and the pixel step, split
// into float32 pairs so the shader keeps about 48 bits of precision.
func packGeometry(from, to, width int) []byte {
	out := make([]byte, (to-from)*geometrySize)
	for f := from; f < to; f++ {
		g := fractal.FrameGeometry(f, width)
		rec := out[(f-from)*geometrySize:]
		for i, v := range []float64{-g.XMin, -g.YMin, g.Step} {
			hi, lo := splitFloat(v)
			binary.LittleEndian.PutUint32(rec[i*8:], math.Float32bits(hi))
			binary.LittleEndian.PutUint32(rec[i*8+4:], math.Float32bits(lo))
		}
	}
	return out
}

// unpackDepths extracts n depths from packed words read back from the GPU.
func unpackDepths(packed []byte, dst []byte, n int) {
	for i := 0; i < n; i++ {
		w := binary.LittleEndian.Uint32(packed[(i/pixelsPerWord)*wordSize:])
		dst[i] = uint8(w >> (8 * (i % pixelsPerWord))) //nolint:gosec // one byte lane
	}
}
