// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package fractal

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// MaxSoftwareAlloc caps a single software device allocation.
const MaxSoftwareAlloc = 1 << 34

// SoftwareDevice implements Device on the host.
//
// It runs each launch in the background with at most lanes frames in
// flight, using the same kernel as the CPU worker pool, so its frames are
// bit-identical to CPU frames. It stands in when no GPU is available and
// backs the device contract in tests.
type SoftwareDevice struct {
	lanes  int
	closed atomic.Bool
}

var _ Device = (*SoftwareDevice)(nil)

// NewSoftwareDevice creates a software device. If lanes is 0 or negative,
// GOMAXPROCS is used.
func NewSoftwareDevice(lanes int) *SoftwareDevice {
	if lanes <= 0 {
		lanes = runtime.GOMAXPROCS(0)
	}
	return &SoftwareDevice{lanes: lanes}
}

// softwareBuffer is the DeviceBuffer of a SoftwareDevice.
type softwareBuffer struct {
	mu       sync.Mutex
	owner    *SoftwareDevice
	size     int
	data     []byte
	launched bool
	released bool
	done     chan struct{}
	err      error
}

func (b *softwareBuffer) Size() int { return b.size }

// Name returns "software".
func (d *SoftwareDevice) Name() string { return "software" }

// Lanes returns the number of frames rendered concurrently per launch.
func (d *SoftwareDevice) Lanes() int { return d.lanes }

// Allocate reserves a host-side buffer of size bytes.
func (d *SoftwareDevice) Allocate(size int) (DeviceBuffer, error) {
	if d.closed.Load() {
		return nil, ErrDeviceClosed
	}
	if size <= 0 || size > MaxSoftwareAlloc {
		return nil, fmt.Errorf("%w: %d bytes", ErrDeviceAlloc, size)
	}
	return &softwareBuffer{owner: d, size: size, data: make([]byte, size)}, nil
}

// LaunchAsync starts rendering frames [from, to) into buf and returns
// immediately.
func (d *SoftwareDevice) LaunchAsync(ctx context.Context, from, to, width int, buf DeviceBuffer) error {
	if d.closed.Load() {
		return ErrDeviceClosed
	}
	b, err := d.buffer(buf)
	if err != nil {
		return err
	}
	frameSize := width * width
	if need := (to - from) * frameSize; need > b.size || to < from {
		return fmt.Errorf("%w: frames [%d, %d) need %d bytes, have %d", ErrBufferTooSmall, from, to, need, b.size)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	switch {
	case b.released:
		return ErrBufferReleased
	case b.launched:
		return ErrAlreadyLaunched
	}
	b.launched = true
	b.done = make(chan struct{})

	data := b.data
	go func() {
		defer close(b.done)
		g, ctx := errgroup.WithContext(ctx)
		g.SetLimit(d.lanes)
		for f := from; f < to; f++ {
			dst := data[(f-from)*frameSize : (f-from+1)*frameSize]
			g.Go(func() error {
				if err := ctx.Err(); err != nil {
					return err
				}
				RenderFrame(dst, f, width)
				return nil
			})
		}
		b.err = g.Wait()
	}()
	return nil
}

// Finalize waits for the launch, copies size bytes into host and releases
// buf.
func (d *SoftwareDevice) Finalize(size int, host []byte, buf DeviceBuffer) error {
	b, err := d.buffer(buf)
	if err != nil {
		return err
	}

	b.mu.Lock()
	switch {
	case b.released:
		b.mu.Unlock()
		return ErrBufferReleased
	case !b.launched:
		b.mu.Unlock()
		return ErrNotLaunched
	}
	done := b.done
	b.mu.Unlock()

	<-done

	b.mu.Lock()
	defer b.mu.Unlock()
	b.released = true
	data := b.data
	b.data = nil

	if b.err != nil {
		return fmt.Errorf("fractal: software device: %w", b.err)
	}
	if size > len(data) || size > len(host) {
		return fmt.Errorf("%w: finalize %d bytes from %d into %d", ErrBufferTooSmall, size, len(data), len(host))
	}
	copy(host[:size], data[:size])
	return nil
}

// Release waits for a launched render and drops buf without copying.
func (d *SoftwareDevice) Release(buf DeviceBuffer) error {
	b, err := d.buffer(buf)
	if err != nil {
		return err
	}

	b.mu.Lock()
	if b.released {
		b.mu.Unlock()
		return nil
	}
	done := b.done
	b.released = true
	b.mu.Unlock()

	if done != nil {
		<-done
	}

	b.mu.Lock()
	b.data = nil
	b.mu.Unlock()
	return nil
}

// Close marks the device closed. Launched work still completes.
func (d *SoftwareDevice) Close() {
	d.closed.Store(true)
}

func (d *SoftwareDevice) buffer(buf DeviceBuffer) (*softwareBuffer, error) {
	b, ok := buf.(*softwareBuffer)
	if !ok || b == nil || b.owner != d {
		return nil, ErrForeignBuffer
	}
	return b, nil
}
