// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package cluster

import "errors"

var (
	// ErrClosed is returned when a collective runs on a closed group.
	ErrClosed = errors.New("cluster: group closed")

	// ErrInvalidRoot is returned when a gather root is out of range.
	ErrInvalidRoot = errors.New("cluster: gather root out of range")

	// ErrUnsupportedRoot is returned by Node when gathering to a rank other
	// than the coordinator.
	ErrUnsupportedRoot = errors.New("cluster: gather root must be the coordinator")

	// ErrSizeMismatch is returned when nodes disagree on buffer or group size.
	ErrSizeMismatch = errors.New("cluster: size mismatch")

	// ErrJobMismatch is returned when a worker joins a coordinator running a
	// different job.
	ErrJobMismatch = errors.New("cluster: job id mismatch")

	// ErrWorkloadMismatch is returned when a worker joins a coordinator
	// rendering a different workload.
	ErrWorkloadMismatch = errors.New("cluster: workload mismatch")

	// ErrRejected is returned when the coordinator refuses a worker.
	ErrRejected = errors.New("cluster: join rejected")

	// ErrInvalidConfig is returned for an unusable Config.
	ErrInvalidConfig = errors.New("cluster: invalid config")

	// ErrProtocol is returned when a peer sends an unexpected message.
	ErrProtocol = errors.New("cluster: protocol error")
)
