// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

//go:build !nogpu

package gpu

import (
	"testing"

	"github.com/gogpu/fractal"
)

func TestRegistered(t *testing.T) {
	if got := fractal.RegisteredDevice(); got != "wgpu" {
		t.Errorf("RegisteredDevice() = %q, want %q", got, "wgpu")
	}
}

func TestOpenDeviceNeverNil(t *testing.T) {
	d := fractal.OpenDevice()
	if d == nil {
		t.Fatal("OpenDevice() = nil")
	}
	defer d.Close()
	if d.Name() != "wgpu" && d.Name() != "software" {
		t.Errorf("OpenDevice().Name() = %q, want wgpu or software", d.Name())
	}
}
