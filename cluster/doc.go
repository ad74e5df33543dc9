// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package cluster provides the process groups fractal nodes run in.
//
// A process group has a fixed size and gives every node a rank. It offers
// the two collective operations a run needs: a barrier that starts the
// timed region on every node at once, and a gather that concatenates each
// node's frames on one node in rank order.
//
// Two implementations are provided:
//
//   - Local: nodes are goroutines in one process, connected by channels.
//     Useful for tests and for spreading a run over the cores of one host.
//   - Node: nodes are processes connected over WebSockets. Rank 0 runs a
//     Coordinator that workers Join.
//
// # Usage
//
// Rank 0:
//
//	coord, err := cluster.Listen(cluster.Config{Size: 4, Address: ":7400"})
//	node, err := coord.Accept(ctx)
//	defer node.Close()
//
// Other ranks:
//
//	node, err := cluster.Join(ctx, cluster.Config{Rank: 2, Size: 4, Address: "host0:7400"})
//	defer node.Close()
//
// Both Local and Node satisfy fractal.Communicator.
//
// # Failure Model
//
// There is no fault tolerance. If any node fails to reach a collective,
// the collective fails (or blocks until its context is cancelled) on every
// node.
package cluster
