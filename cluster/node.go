// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package cluster

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Node is a member of a WebSocket process group.
//
// On rank 0, conns holds one connection per worker (conns[0] is nil). On a
// worker, conns holds the single connection to the coordinator. A Node
// must be driven by one goroutine.
type Node struct {
	rank  int
	size  int
	job   string
	conns []*websocket.Conn
	srv   *http.Server // coordinator only

	closeOnce sync.Once
}

// Join connects a worker to the coordinator at cfg.Address. It retries
// until the coordinator is reachable, cfg.DialTimeout passes, or ctx ends.
func Join(ctx context.Context, cfg Config) (*Node, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Rank == 0 {
		return nil, fmt.Errorf("%w: rank 0 must Listen, not Join", ErrInvalidConfig)
	}

	dialCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()

	url := "ws://" + cfg.Address + cfg.Path
	conn, err := dial(dialCtx, url)
	if err != nil {
		return nil, fmt.Errorf("cluster: join %s: %w", url, err)
	}

	n := &Node{rank: cfg.Rank, size: cfg.Size, conns: []*websocket.Conn{conn}}
	var welcome message
	err = n.guard(dialCtx, func() error {
		if err := writeMessage(conn, message{Type: msgHello, Rank: cfg.Rank, Size: cfg.Size, Job: cfg.Job, Work: cfg.Workload}); err != nil {
			return err
		}
		welcome, err = readMessage(conn, msgWelcome, msgReject)
		return err
	})
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("cluster: handshake: %w", err)
	}

	switch {
	case welcome.Type == msgReject:
		_ = conn.Close()
		return nil, fmt.Errorf("%w: %s", ErrRejected, welcome.Reason)
	case welcome.Size != cfg.Size:
		_ = conn.Close()
		return nil, fmt.Errorf("%w: coordinator has %d nodes, want %d", ErrSizeMismatch, welcome.Size, cfg.Size)
	case cfg.Job != "" && welcome.Job != cfg.Job:
		_ = conn.Close()
		return nil, fmt.Errorf("%w: coordinator runs %s, want %s", ErrJobMismatch, welcome.Job, cfg.Job)
	case welcome.Work != cfg.Workload:
		_ = conn.Close()
		return nil, fmt.Errorf("%w: coordinator renders %s, want %s", ErrWorkloadMismatch, welcome.Work, cfg.Workload)
	}

	n.job = welcome.Job
	slogger().Info("joined group", "rank", n.rank, "size", n.size, "job", n.job)
	return n, nil
}

// dial keeps trying to reach url until ctx ends.
func dial(ctx context.Context, url string) (*websocket.Conn, error) {
	const retry = 200 * time.Millisecond
	for {
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
		if err == nil {
			return conn, nil
		}
		slogger().Debug("coordinator not reachable yet", "url", url, "err", err)
		select {
		case <-ctx.Done():
			return nil, errors.Join(ctx.Err(), err)
		case <-time.After(retry):
		}
	}
}

// Rank returns the node's rank.
func (n *Node) Rank() int { return n.rank }

// Size returns the group size.
func (n *Node) Size() int { return n.size }

// Job returns the job id shared by the group.
func (n *Node) Job() string { return n.job }

// Barrier blocks until every node has called Barrier.
//
// Workers announce themselves to the coordinator and wait for its release;
// the coordinator releases everyone once all workers have announced.
func (n *Node) Barrier(ctx context.Context) error {
	return n.guard(ctx, func() error {
		if n.rank != 0 {
			if err := writeMessage(n.conns[0], message{Type: msgBarrier, Rank: n.rank}); err != nil {
				return err
			}
			_, err := readMessage(n.conns[0], msgRelease)
			return err
		}

		for r := 1; r < n.size; r++ {
			m, err := readMessage(n.conns[r], msgBarrier)
			if err != nil {
				return fmt.Errorf("rank %d: %w", r, err)
			}
			if m.Rank != r {
				return fmt.Errorf("%w: barrier from rank %d on rank %d's connection", ErrProtocol, m.Rank, r)
			}
		}
		for r := 1; r < n.size; r++ {
			if err := writeMessage(n.conns[r], message{Type: msgRelease}); err != nil {
				return fmt.Errorf("rank %d: %w", r, err)
			}
		}
		return nil
	})
}

// Gather sends local to the coordinator. On the coordinator it returns
// every node's buffer concatenated in rank order; elsewhere it returns nil.
// Only root 0 is supported.
func (n *Node) Gather(ctx context.Context, root int, local []byte) ([]byte, error) {
	if root < 0 || root >= n.size {
		return nil, fmt.Errorf("%w: %d of %d", ErrInvalidRoot, root, n.size)
	}
	if root != 0 {
		return nil, ErrUnsupportedRoot
	}

	var out []byte
	err := n.guard(ctx, func() error {
		if n.rank != 0 {
			return n.conns[0].WriteMessage(websocket.BinaryMessage, local)
		}

		out = make([]byte, 0, n.size*len(local))
		out = append(out, local...)
		for r := 1; r < n.size; r++ {
			part, err := readBuffer(n.conns[r])
			if err != nil {
				return fmt.Errorf("rank %d: %w", r, err)
			}
			if len(part) != len(local) {
				return fmt.Errorf("%w: rank %d sent %d bytes, want %d", ErrSizeMismatch, r, len(part), len(local))
			}
			out = append(out, part...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if n.rank != 0 {
		return nil, nil
	}
	slogger().Debug("websocket gather complete", "bytes", len(out))
	return out, nil
}

// Close closes the node's connections (and the coordinator's server).
func (n *Node) Close() error {
	n.closeOnce.Do(func() {
		for _, c := range n.conns {
			if c == nil {
				continue
			}
			_ = c.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			_ = c.Close()
		}
		if n.srv != nil {
			_ = n.srv.Close()
		}
	})
	return nil
}

// guard runs fn and unblocks its network I/O if ctx ends first.
func (n *Node) guard(ctx context.Context, fn func() error) error {
	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		select {
		case <-ctx.Done():
			now := time.Now()
			for _, c := range n.conns {
				if c != nil {
					_ = c.SetReadDeadline(now)
					_ = c.SetWriteDeadline(now)
				}
			}
		case <-stop:
		}
	}()

	err := fn()
	close(stop)
	wg.Wait()

	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}
