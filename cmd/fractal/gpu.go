// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

//go:build !nogpu

package main

// Register the wgpu device. Build with -tags nogpu for a CPU-only binary.
import _ "github.com/gogpu/fractal/gpu"
