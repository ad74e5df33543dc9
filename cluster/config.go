// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package cluster

import (
	"fmt"
	"time"
)

// Defaults for Config fields left empty.
const (
	DefaultPath        = "/fractal"
	DefaultDialTimeout = 30 * time.Second
)

// Config describes a node's place in a WebSocket process group.
type Config struct {
	// Rank is this node's rank. Rank 0 is the coordinator.
	Rank int `toml:"rank"`

	// Size is the number of nodes in the group.
	Size int `toml:"size"`

	// Address is the coordinator's host:port. Rank 0 listens on it,
	// other ranks dial it.
	Address string `toml:"address"`

	// Path is the HTTP path of the WebSocket endpoint.
	Path string `toml:"path"`

	// Job identifies the run. Workers refuse coordinators running a
	// different job. The coordinator generates one if empty.
	Job string `toml:"job"`

	// DialTimeout bounds how long a worker keeps retrying to reach the
	// coordinator.
	DialTimeout time.Duration `toml:"-"`

	// Workload is the render this node was started for. The coordinator
	// refuses workers whose workload differs from its own.
	Workload Workload `toml:"-"`
}

// Workload is the render configuration every node of a group must share.
type Workload struct {
	Width     int `json:"width"`
	CPUFrames int `json:"cpu_frames"`
	GPUFrames int `json:"gpu_frames"`
}

func (w Workload) String() string {
	return fmt.Sprintf("width %d, %d cpu + %d gpu frames", w.Width, w.CPUFrames, w.GPUFrames)
}

func (c Config) withDefaults() Config {
	if c.Path == "" {
		c.Path = DefaultPath
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = DefaultDialTimeout
	}
	return c
}

// Validate reports whether the config describes a valid node.
func (c Config) Validate() error {
	if c.Size < 1 {
		return fmt.Errorf("%w: size %d", ErrInvalidConfig, c.Size)
	}
	if c.Rank < 0 || c.Rank >= c.Size {
		return fmt.Errorf("%w: rank %d of %d", ErrInvalidConfig, c.Rank, c.Size)
	}
	if c.Size > 1 && c.Address == "" {
		return fmt.Errorf("%w: address required for %d nodes", ErrInvalidConfig, c.Size)
	}
	return nil
}
