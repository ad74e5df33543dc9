// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package fractal

import (
	"context"
	"fmt"
	"time"
)

// GPUCoordinator owns the device buffer of one node's GPU sub-range.
//
// The buffer is allocated up front by NewGPUCoordinator so that device
// setup stays out of the timed region. Launch starts the render and
// returns a GPULaunch handle; the caller renders its CPU frames and then
// awaits the handle before the local buffer is collected. Release frees
// the buffer on paths that never reach Await.
type GPUCoordinator struct {
	dev      Device
	plan     Plan
	width    int
	size     int
	buf      DeviceBuffer
	released bool
}

// NewGPUCoordinator allocates device memory for plan's GPU frames.
func NewGPUCoordinator(dev Device, plan Plan, width int) (*GPUCoordinator, error) {
	size := plan.GPUFrames() * width * width
	buf, err := dev.Allocate(size)
	if err != nil {
		return nil, fmt.Errorf("allocate %d bytes on %s: %w", size, dev.Name(), err)
	}
	Logger().Debug("device buffer allocated", "device", dev.Name(), "bytes", size)
	return &GPUCoordinator{dev: dev, plan: plan, width: width, size: size, buf: buf}, nil
}

// Size returns the number of bytes the device produces.
func (c *GPUCoordinator) Size() int { return c.size }

// Release frees the device buffer unless a successful Await already did.
// It waits for a launched render to finish first and may be called more
// than once.
func (c *GPUCoordinator) Release() {
	if c.released {
		return
	}
	c.released = true
	if err := c.dev.Release(c.buf); err != nil {
		Logger().Warn("device buffer release failed", "device", c.dev.Name(), "err", err)
	}
}

// GPULaunch is an in-flight device render.
type GPULaunch struct {
	c       *GPUCoordinator
	started time.Time
}

// Launch starts rendering the GPU sub-range and returns without waiting.
func (c *GPUCoordinator) Launch(ctx context.Context) (*GPULaunch, error) {
	if err := c.dev.LaunchAsync(ctx, c.plan.From, c.plan.Mid, c.width, c.buf); err != nil {
		return nil, fmt.Errorf("launch frames [%d, %d) on %s: %w", c.plan.From, c.plan.Mid, c.dev.Name(), err)
	}
	return &GPULaunch{c: c, started: time.Now()}, nil
}

// Await blocks until the device finishes and copies its frames into the
// GPU-owned prefix of local. The device buffer is released afterwards.
func (l *GPULaunch) Await(local *PixelBuffer) error {
	c := l.c
	if err := c.dev.Finalize(c.size, local.Prefix(c.size), c.buf); err != nil {
		return fmt.Errorf("finalize %s: %w", c.dev.Name(), err)
	}
	c.released = true
	Logger().Debug("device frames retrieved",
		"device", c.dev.Name(),
		"frames", c.plan.GPUFrames(),
		"elapsed", time.Since(l.started))
	return nil
}
