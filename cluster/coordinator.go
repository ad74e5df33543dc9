// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package cluster

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Coordinator accepts workers on behalf of rank 0.
type Coordinator struct {
	cfg      Config
	job      string
	ln       net.Listener
	srv      *http.Server
	upgrader websocket.Upgrader

	mu      sync.Mutex
	peers   []*websocket.Conn // indexed by rank, peers[0] is nil
	pending int               // ranks reserved but not yet welcomed
	joined  int
	ready   chan struct{}
	taken   bool // Accept already returned the node
}

// Listen starts the coordinator for a group described by cfg.
// cfg.Rank must be 0. Listen returns immediately; call Accept to wait for
// the workers.
func Listen(cfg Config) (*Coordinator, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Rank != 0 {
		return nil, fmt.Errorf("%w: coordinator must be rank 0, got %d", ErrInvalidConfig, cfg.Rank)
	}

	addr := cfg.Address
	if addr == "" {
		addr = "127.0.0.1:0"
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("cluster: listen %s: %w", addr, err)
	}

	job := cfg.Job
	if job == "" {
		job = uuid.NewString()
	}

	c := &Coordinator{
		cfg:   cfg,
		job:   job,
		ln:    ln,
		peers: make([]*websocket.Conn, cfg.Size),
		ready: make(chan struct{}),
	}
	if cfg.Size == 1 {
		close(c.ready)
	}

	mux := http.NewServeMux()
	mux.HandleFunc(cfg.Path, c.handle)
	c.srv = &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := c.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slogger().Warn("coordinator server stopped", "err", err)
		}
	}()

	slogger().Info("coordinator listening", "addr", ln.Addr().String(), "size", cfg.Size, "job", job)
	return c, nil
}

// Addr returns the address the coordinator listens on.
func (c *Coordinator) Addr() net.Addr { return c.ln.Addr() }

// Job returns the job id workers must match.
func (c *Coordinator) Job() string { return c.job }

// Accept waits until every worker has joined and returns rank 0's node.
// If ctx ends first, the coordinator is shut down.
func (c *Coordinator) Accept(ctx context.Context) (*Node, error) {
	select {
	case <-c.ready:
	case <-ctx.Done():
		c.shutdown()
		return nil, ctx.Err()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.taken {
		return nil, fmt.Errorf("%w: node already accepted", ErrInvalidConfig)
	}
	c.taken = true
	return &Node{
		rank:  0,
		size:  c.cfg.Size,
		job:   c.job,
		conns: c.peers,
		srv:   c.srv,
	}, nil
}

// Close shuts the coordinator down without accepting.
func (c *Coordinator) Close() error {
	c.shutdown()
	return nil
}

func (c *Coordinator) shutdown() {
	_ = c.srv.Close()
	_ = c.ln.Close()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.taken {
		return
	}
	for i, p := range c.peers {
		if p != nil {
			_ = p.Close()
			c.peers[i] = nil
		}
	}
}

// handle upgrades one worker connection and admits it.
func (c *Coordinator) handle(w http.ResponseWriter, r *http.Request) {
	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slogger().Warn("websocket upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}

	_ = conn.SetReadDeadline(time.Now().Add(c.cfg.DialTimeout))
	hello, err := readMessage(conn, msgHello)
	_ = conn.SetReadDeadline(time.Time{})
	if err != nil {
		slogger().Warn("bad hello", "remote", r.RemoteAddr, "err", err)
		_ = conn.Close()
		return
	}

	if reason := c.reserve(hello, conn); reason != "" {
		slogger().Warn("worker rejected", "rank", hello.Rank, "reason", reason)
		_ = writeMessage(conn, message{Type: msgReject, Rank: hello.Rank, Reason: reason})
		_ = conn.Close()
		return
	}

	// The welcome is written before the rank counts as joined, so nothing
	// else writes to conn until this handler is done with it.
	err = writeMessage(conn, message{Type: msgWelcome, Rank: hello.Rank, Size: c.cfg.Size, Job: c.job, Work: c.cfg.Workload})
	c.admit(hello.Rank, err)
	if err != nil {
		slogger().Warn("welcome failed", "rank", hello.Rank, "err", err)
		_ = conn.Close()
		return
	}
	slogger().Debug("worker joined", "rank", hello.Rank, "remote", r.RemoteAddr)
}

// reserve claims hello.Rank for conn, or returns why it cannot.
func (c *Coordinator) reserve(hello message, conn *websocket.Conn) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.taken:
		return "group already formed"
	case hello.Rank < 1 || hello.Rank >= c.cfg.Size:
		return fmt.Sprintf("rank %d out of range [1, %d)", hello.Rank, c.cfg.Size)
	case hello.Size != 0 && hello.Size != c.cfg.Size:
		return fmt.Sprintf("size %d, coordinator has %d", hello.Size, c.cfg.Size)
	case hello.Job != "" && hello.Job != c.job:
		return fmt.Sprintf("job %s, coordinator runs %s", hello.Job, c.job)
	case hello.Work != c.cfg.Workload:
		return fmt.Sprintf("workload %s, coordinator renders %s", hello.Work, c.cfg.Workload)
	case c.peers[hello.Rank] != nil:
		return fmt.Sprintf("rank %d already joined", hello.Rank)
	}
	c.peers[hello.Rank] = conn
	c.pending++
	return ""
}

// admit completes a reservation. A failed welcome frees the rank again.
func (c *Coordinator) admit(rank int, welcomeErr error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending--
	if welcomeErr != nil {
		c.peers[rank] = nil
		return
	}
	c.joined++
	if c.joined == c.cfg.Size-1 {
		close(c.ready)
	}
}
