// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package main

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/gogpu/fractal"
	"github.com/gogpu/fractal/cluster"
	"github.com/pelletier/go-toml/v2"
)

// fileConfig is the layout of a -config TOML file.
//
//	[render]
//	width = 200
//	cpu_frames = 8
//	gpu_frames = 2
//	output_dir = "frames"
//
//	[cluster]
//	size = 4
//	address = "10.0.0.1:7070"
//	dial_timeout = "1m"
//
//	[log]
//	level = "debug"
type fileConfig struct {
	Render  fractal.Config `toml:"render"`
	Cluster clusterSection `toml:"cluster"`
	Log     logSection     `toml:"log"`

	Diagnostics struct {
		Gops bool `toml:"gops"`
	} `toml:"diagnostics"`

	Report string `toml:"report"`
}

type clusterSection struct {
	Rank        int    `toml:"rank"`
	Size        int    `toml:"size"`
	Address     string `toml:"address"`
	Path        string `toml:"path"`
	Job         string `toml:"job"`
	DialTimeout string `toml:"dial_timeout"`
}

// config converts the section, parsing the dial timeout.
func (s clusterSection) config() (cluster.Config, error) {
	c := cluster.Config{Rank: s.Rank, Size: s.Size, Address: s.Address, Path: s.Path, Job: s.Job}
	if s.DialTimeout != "" {
		d, err := time.ParseDuration(s.DialTimeout)
		if err != nil {
			return c, fmt.Errorf("dial_timeout: %w", err)
		}
		c.DialTimeout = d
	}
	return c, nil
}

type logSection struct {
	Level string `toml:"level"`
}

// LoadFile reads a TOML configuration file. Unknown keys are an error so
// typos do not silently fall back to defaults.
func LoadFile(path string) (fileConfig, error) {
	var fc fileConfig
	data, err := os.ReadFile(path) //nolint:gosec // path comes from the command line
	if err != nil {
		return fc, fmt.Errorf("read config: %w", err)
	}
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&fc); err != nil {
		return fc, fmt.Errorf("parse config %s: %w", path, err)
	}
	if _, err := fc.Cluster.config(); err != nil {
		return fc, fmt.Errorf("parse config %s: %w", path, err)
	}
	return fc, nil
}
