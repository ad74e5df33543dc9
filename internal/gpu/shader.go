// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

//go:build !nogpu

package gpu

import (
	_ "embed"
	"fmt"

	"github.com/gogpu/naga"
)

//go:embed shaders/mandelbrot.wgsl
var mandelbrotShaderWGSL string

// Dispatch limits of the mandelbrot shader.
const (
	workgroupSize = 64

	// maxWorkgroupsPerDimension is the WebGPU default limit.
	maxWorkgroupsPerDimension = 65535
)

// compileSPIRV compiles WGSL source to SPIR-V words.
func compileSPIRV(wgsl string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(wgsl)
	if err != nil {
		return nil, fmt.Errorf("compile shader: %w", err)
	}
	if len(spirvBytes)%4 != 0 {
		return nil, fmt.Errorf("compile shader: SPIR-V length %d is not a multiple of 4", len(spirvBytes))
	}

	// SPIR-V is little-endian 32-bit words.
	words := make([]uint32, len(spirvBytes)/4)
	for i := range words {
		words[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	return words, nil
}

// workgroups returns a two-dimensional dispatch with at least one
// invocation per word. The shader derives the word index from x and the
// returned x group count.
func workgroups(words int) (x, y uint32) {
	groups := (words + workgroupSize - 1) / workgroupSize
	if groups == 0 {
		return 0, 0
	}
	gx := min(groups, maxWorkgroupsPerDimension)
	gy := (groups + gx - 1) / gx
	return uint32(gx), uint32(gy) //nolint:gosec // bounded by the dimension limit
}
