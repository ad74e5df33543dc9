// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package fractal

import (
	"context"

	"github.com/gogpu/fractal/internal/parallel"
)

// DefaultCPUThreads is the default size of a node's CPU worker pool.
const DefaultCPUThreads = 16

// renderCPU renders the CPU sub-range [plan.Mid, plan.To) into local.
//
// Frames are claimed one at a time by the pool's workers. Each frame is
// written only to its own slice of local, so no locking is needed.
func renderCPU(ctx context.Context, pool *parallel.WorkerPool, local *PixelBuffer, plan Plan, width int) error {
	return pool.ForEach(ctx, plan.Mid, plan.To, func(frame int) {
		RenderFrame(local.Frame(plan.LocalIndex(frame)), frame, width)
	})
}
