// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package cluster

import (
	"context"
	"fmt"
	"sync"
)

// group is the state shared by the members of a Local group.
type group struct {
	size int

	mu      sync.Mutex
	arrived int
	release chan struct{}

	// inbox[r] carries rank r's contribution to the current gather.
	inbox []chan []byte

	closed    chan struct{}
	closeOnce sync.Once
}

// Local is one member of an in-process group.
//
// Members run as goroutines of the same process and exchange buffers
// through channels. Local is safe for use by its own node's goroutine;
// each member must be driven by exactly one goroutine.
type Local struct {
	g    *group
	rank int
}

// NewLocal creates an in-process group of n members. Member i has rank i.
func NewLocal(n int) []*Local {
	if n < 1 {
		panic(fmt.Sprintf("cluster: group size %d, want >= 1", n))
	}
	g := &group{
		size:    n,
		release: make(chan struct{}),
		inbox:   make([]chan []byte, n),
		closed:  make(chan struct{}),
	}
	for i := range g.inbox {
		g.inbox[i] = make(chan []byte, 1)
	}
	members := make([]*Local, n)
	for i := range members {
		members[i] = &Local{g: g, rank: i}
	}
	return members
}

// Rank returns the member's rank.
func (l *Local) Rank() int { return l.rank }

// Size returns the group size.
func (l *Local) Size() int { return l.g.size }

// Barrier blocks until every member has called Barrier.
func (l *Local) Barrier(ctx context.Context) error {
	g := l.g
	g.mu.Lock()
	ch := g.release
	g.arrived++
	if g.arrived == g.size {
		g.arrived = 0
		g.release = make(chan struct{})
		close(ch)
		g.mu.Unlock()
		return nil
	}
	g.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-g.closed:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Gather collects every member's buffer on root, concatenated in rank
// order. All buffers must have the same length. Non-root members get nil.
func (l *Local) Gather(ctx context.Context, root int, local []byte) ([]byte, error) {
	g := l.g
	if root < 0 || root >= g.size {
		return nil, fmt.Errorf("%w: %d of %d", ErrInvalidRoot, root, g.size)
	}

	if l.rank != root {
		// Copy so the sender may reuse its buffer once Gather returns.
		buf := append([]byte(nil), local...)
		select {
		case g.inbox[l.rank] <- buf:
			return nil, nil
		case <-g.closed:
			return nil, ErrClosed
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	out := make([]byte, 0, g.size*len(local))
	for r := 0; r < g.size; r++ {
		part := local
		if r != root {
			select {
			case part = <-g.inbox[r]:
			case <-g.closed:
				return nil, ErrClosed
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		if len(part) != len(local) {
			return nil, fmt.Errorf("%w: rank %d sent %d bytes, want %d", ErrSizeMismatch, r, len(part), len(local))
		}
		out = append(out, part...)
	}
	slogger().Debug("local gather complete", "root", root, "bytes", len(out))
	return out, nil
}

// Close aborts the group. Pending and future collectives on every member
// fail with ErrClosed.
func (l *Local) Close() error {
	l.g.closeOnce.Do(func() { close(l.g.closed) })
	return nil
}
