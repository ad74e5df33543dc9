// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package fractal

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/gogpu/fractal/cluster"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

// singleNode is a Communicator for a group of one.
type singleNode struct{}

func (singleNode) Rank() int                     { return 0 }
func (singleNode) Size() int                     { return 1 }
func (singleNode) Barrier(context.Context) error { return nil }
func (singleNode) Gather(_ context.Context, _ int, local []byte) ([]byte, error) {
	return append([]byte(nil), local...), nil
}

// shortGather returns fewer bytes than the group should produce.
type shortGather struct{ singleNode }

func (shortGather) Size() int { return 2 }
func (shortGather) Gather(_ context.Context, _ int, local []byte) ([]byte, error) {
	return local, nil
}

// failingGather fails every gather.
// failingBarrier is a single node whose start barrier fails.
type failingBarrier struct{ singleNode }

func (failingBarrier) Barrier(context.Context) error { return errors.New("peer lost") }

type failingGather struct{ singleNode }

var errGatherFailed = errors.New("peer lost")

func (failingGather) Gather(context.Context, int, []byte) ([]byte, error) {
	return nil, errGatherFailed
}

func TestCollectSingleNode(t *testing.T) {
	local := NewPixelBuffer(2, 10)
	local.Set(1, 3, 4, 9)
	g, err := Collect(context.Background(), singleNode{}, local)
	require.NoError(t, err)
	require.NotNil(t, g)
	assert.Equal(t, 2, g.Frames())
	assert.Equal(t, 10, g.Width())
	assert.Equal(t, uint8(9), g.At(1, 3, 4))
}

func TestCollectLocalGroup(t *testing.T) {
	const (
		nodes  = 3
		frames = 2
		width  = 10
	)
	members := cluster.NewLocal(nodes)
	results := make([]*GlobalBuffer, nodes)

	var g errgroup.Group
	for _, m := range members {
		g.Go(func() error {
			local := NewPixelBuffer(frames, width)
			for i := range local.Bytes() {
				local.Bytes()[i] = byte(m.Rank() + 1)
			}
			out, err := Collect(context.Background(), m, local)
			results[m.Rank()] = out
			return err
		})
	}
	require.NoError(t, g.Wait())

	global := results[Root]
	require.NotNil(t, global)
	assert.Nil(t, results[1])
	assert.Nil(t, results[2])
	assert.Equal(t, nodes*frames, global.Frames())
	for r := 0; r < nodes; r++ {
		want := bytes.Repeat([]byte{byte(r + 1)}, frames*width*width)
		assert.Equal(t, want, global.Node(r, frames), "node %d", r)
	}
}

func TestCollectSizeCheck(t *testing.T) {
	_, err := Collect(context.Background(), shortGather{}, NewPixelBuffer(1, 10))
	assert.ErrorIs(t, err, ErrGatherSize)
}

func TestCollectGatherError(t *testing.T) {
	_, err := Collect(context.Background(), failingGather{}, NewPixelBuffer(1, 10))
	assert.ErrorIs(t, err, errGatherFailed)
}
