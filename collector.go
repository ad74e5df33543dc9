// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package fractal

import (
	"context"
	"fmt"
)

// Root is the rank that receives the gathered frames.
const Root = 0

// Communicator is the process group a node belongs to.
//
// Implementations live in the cluster package: an in-process group for
// running several nodes in one binary, and a websocket transport for real
// multi-host runs.
type Communicator interface {
	// Rank returns this node's index in [0, Size()).
	Rank() int

	// Size returns the number of nodes.
	Size() int

	// Barrier blocks until every node has called Barrier.
	Barrier(ctx context.Context) error

	// Gather sends local to root. On root it returns the buffers of all
	// nodes concatenated in rank order; elsewhere it returns nil.
	Gather(ctx context.Context, root int, local []byte) ([]byte, error)
}

// Collect gathers every node's local buffer into a GlobalBuffer on Root.
// Non-root nodes get a nil buffer. A failure on any node fails the
// collection; there are no partial results.
func Collect(ctx context.Context, comm Communicator, local *PixelBuffer) (*GlobalBuffer, error) {
	data, err := comm.Gather(ctx, Root, local.Bytes())
	if err != nil {
		return nil, fmt.Errorf("gather: %w", err)
	}
	if comm.Rank() != Root {
		return nil, nil
	}
	if want := comm.Size() * local.Len(); len(data) != want {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrGatherSize, len(data), want)
	}
	Logger().Debug("frames collected", "nodes", comm.Size(), "bytes", len(data))
	return newGlobalBuffer(data, comm.Size()*local.Frames(), local.Width()), nil
}
