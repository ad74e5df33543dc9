// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

//go:build !nogpu

// Package gpu registers the wgpu device for hardware-accelerated frame
// rendering.
//
// The device renders a node's GPU frames with a wgpu/hal compute shader on
// the Vulkan backend. It is opened lazily, only by nodes that have GPU
// frames to render. If no adapter is available, fractal falls back to the
// software device and logs a warning.
//
// Usage:
//
//	import _ "github.com/gogpu/fractal/gpu" // enable the wgpu device
package gpu

import (
	"sync"

	"github.com/gogpu/fractal"
	gpuimpl "github.com/gogpu/fractal/internal/gpu"
	"github.com/gogpu/gpucontext"
)

var (
	providerMu sync.Mutex
	provider   gpucontext.DeviceProvider
)

func init() {
	if err := fractal.RegisterDevice("wgpu", open); err != nil {
		fractal.Logger().Warn("wgpu device not registered", "err", err)
	}
}

// open creates an accelerator on the shared device if one was provided,
// and on its own Vulkan instance otherwise.
func open() (fractal.Device, error) {
	providerMu.Lock()
	p := provider
	providerMu.Unlock()

	if p != nil {
		a := &gpuimpl.Accelerator{}
		if err := a.SetDeviceProvider(p); err != nil {
			return nil, err
		}
		return a, nil
	}
	return gpuimpl.NewAccelerator()
}

// SetDeviceProvider makes devices opened afterwards share the GPU device
// of an external provider (e.g., gogpu) instead of creating their own
// instance.
//
// The provider must also expose HalDevice() and HalQueue() for direct HAL
// access. Pass nil to go back to a private device.
func SetDeviceProvider(p gpucontext.DeviceProvider) {
	providerMu.Lock()
	provider = p
	providerMu.Unlock()
}
