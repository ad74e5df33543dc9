// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package fractal

import (
	"context"
	"errors"
	"sync"
)

// DeviceBuffer is an opaque handle to device memory returned by
// Device.Allocate. It is owned by the device until Finalize releases it.
type DeviceBuffer interface {
	// Size returns the number of pixel bytes the buffer can hold.
	Size() int
}

// Device renders frame ranges asynchronously.
//
// The three operations are called in order for each buffer:
//
//  1. Allocate reserves device memory for size pixel bytes.
//  2. LaunchAsync starts rendering global frames [from, to) into the buffer
//     and returns without waiting for the result.
//  3. Finalize blocks until rendering completes, copies the first size
//     bytes into host and releases the buffer.
//
// Release frees a buffer that will not be finalized, for example when the
// run fails between Allocate and Finalize.
//
// Devices must use FrameGeometry and the Depth kernel semantics so device
// frames match frames rendered by the CPU worker pool.
type Device interface {
	// Name returns the device name (e.g., "software", "wgpu").
	Name() string

	// Allocate reserves a device buffer of size bytes.
	// Failure is fatal for the run.
	Allocate(size int) (DeviceBuffer, error)

	// LaunchAsync begins rendering frames [from, to) of the given width.
	LaunchAsync(ctx context.Context, from, to, width int, buf DeviceBuffer) error

	// Finalize waits for the launched work and copies size bytes into host.
	Finalize(size int, host []byte, buf DeviceBuffer) error

	// Release waits for any launched work on buf and frees it without
	// copying. Releasing an already released buffer is a no-op.
	Release(buf DeviceBuffer) error

	// Close releases device resources.
	Close()
}

// DeviceFactory opens a device. It is called lazily, only by nodes that
// have GPU frames to render.
type DeviceFactory func() (Device, error)

var (
	deviceMu      sync.RWMutex
	deviceName    string
	deviceFactory DeviceFactory
)

// RegisterDevice registers the factory used by OpenDevice.
//
// Only one factory can be registered. Subsequent calls replace the previous
// one. Typical usage is a blank import of a device package:
//
//	import _ "github.com/gogpu/fractal/gpu" // enables the wgpu device
func RegisterDevice(name string, f DeviceFactory) error {
	if f == nil {
		return errors.New("fractal: device factory must not be nil")
	}
	deviceMu.Lock()
	deviceName = name
	deviceFactory = f
	deviceMu.Unlock()
	return nil
}

// RegisteredDevice returns the name of the registered device, or "" if
// none is registered.
func RegisteredDevice() string {
	deviceMu.RLock()
	defer deviceMu.RUnlock()
	return deviceName
}

// OpenDevice opens the registered device.
//
// If no device is registered, or the registered factory fails (no adapter,
// no driver), OpenDevice logs a warning and returns a SoftwareDevice so the
// run still renders every frame.
func OpenDevice() Device {
	deviceMu.RLock()
	name, f := deviceName, deviceFactory
	deviceMu.RUnlock()

	if f == nil {
		Logger().Debug("no device registered, using software device")
		return NewSoftwareDevice(0)
	}
	d, err := f()
	if err != nil || d == nil {
		Logger().Warn("device not available, falling back to software device", "device", name, "err", err)
		return NewSoftwareDevice(0)
	}
	Logger().Info("device opened", "device", d.Name())
	return d
}
