// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package parallel

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
)

// ErrPoolClosed is returned when submitting frames to a closed pool.
var ErrPoolClosed = errors.New("parallel: worker pool is closed")

// WorkerPool is a fixed set of goroutines that render frames.
//
// Frames are dealt to per-worker queues one at a time in round-robin
// order. A worker whose own queue is empty steals the next frame from
// another worker's queue, so a slow frame never holds up the rest of the
// range.
//
// Thread safety: WorkerPool is safe for concurrent use.
type WorkerPool struct {
	// workers is the number of worker goroutines.
	workers int

	// queues holds per-worker frame queues.
	queues []chan task

	// done signals workers to stop.
	done chan struct{}

	// wg waits for all workers to finish.
	wg sync.WaitGroup

	// running indicates whether the pool is accepting work.
	running atomic.Bool
}

// task is one frame claimed by a worker.
type task struct {
	ctx     context.Context
	frame   int
	fn      func(frame int)
	wg      *sync.WaitGroup
	skipped *atomic.Int64
}

func (t task) run() {
	defer t.wg.Done()
	if t.ctx.Err() != nil {
		t.skipped.Add(1)
		return
	}
	t.fn(t.frame)
}

// NewWorkerPool creates a pool with the given number of workers.
// If workers is 0 or negative, GOMAXPROCS is used.
// Workers start immediately and wait for frames.
func NewWorkerPool(workers int) *WorkerPool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	queueSize := workers * 4
	if queueSize < 8 {
		queueSize = 8
	}

	p := &WorkerPool{
		workers: workers,
		queues:  make([]chan task, workers),
		done:    make(chan struct{}),
	}
	for i := range workers {
		p.queues[i] = make(chan task, queueSize)
	}
	p.running.Store(true)

	p.wg.Add(workers)
	for i := range workers {
		go p.worker(i)
	}
	return p
}

// worker is the main loop for each worker goroutine.
func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()

	own := p.queues[id]
	for {
		select {
		case <-p.done:
			p.drain(own)
			return
		case t := <-own:
			t.run()
		default:
			if t, ok := p.steal(id); ok {
				t.run()
				continue
			}
			// Nothing anywhere, block on the own queue.
			select {
			case <-p.done:
				p.drain(own)
				return
			case t := <-own:
				t.run()
			}
		}
	}
}

// drain runs every task still queued so no caller waits forever.
func (p *WorkerPool) drain(queue chan task) {
	for {
		select {
		case t := <-queue:
			t.run()
		default:
			return
		}
	}
}

// steal takes one task from another worker's queue.
func (p *WorkerPool) steal(id int) (task, bool) {
	for i := range p.workers {
		if i == id {
			continue
		}
		select {
		case t := <-p.queues[i]:
			return t, true
		default:
		}
	}
	return task{}, false
}

// ForEach calls fn once for every frame in [from, to) and waits for all of
// them. Calls run concurrently on the pool's workers; fn must only touch
// state owned by its frame.
//
// If ctx is cancelled, frames that have not started are skipped and
// ForEach returns an error wrapping ctx.Err() that reports how many frames
// were not rendered, once the running ones finish.
func (p *WorkerPool) ForEach(ctx context.Context, from, to int, fn func(frame int)) error {
	if from >= to {
		return nil
	}
	if !p.running.Load() {
		return ErrPoolClosed
	}

	var (
		wg       sync.WaitGroup
		skipped  atomic.Int64
		unqueued int
		closed   bool
	)
	wg.Add(to - from)

	for f := from; f < to; f++ {
		t := task{ctx: ctx, frame: f, fn: fn, wg: &wg, skipped: &skipped}
		select {
		case p.queues[(f-from)%p.workers] <- t:
			continue
		case <-ctx.Done():
		case <-p.done:
			closed = true
		}
		// Frames from f on were never queued.
		unqueued = to - f
		wg.Add(-unqueued)
		break
	}

	wg.Wait()

	if err := ctx.Err(); err != nil {
		missed := int(skipped.Load()) + unqueued
		return fmt.Errorf("%w: %d of %d frames not rendered", err, missed, to-from)
	}
	if closed {
		return ErrPoolClosed
	}
	return nil
}

// Close stops the pool after all queued frames have run.
// Close is safe to call multiple times.
func (p *WorkerPool) Close() {
	if !p.running.CompareAndSwap(true, false) {
		return
	}
	close(p.done)
	p.wg.Wait()
}

// Workers returns the number of workers in the pool.
func (p *WorkerPool) Workers() int {
	return p.workers
}

// IsRunning returns true if the pool is still accepting work.
func (p *WorkerPool) IsRunning() bool {
	return p.running.Load()
}

// QueuedWork returns the number of frames waiting in the queues.
// This is an approximation as queues change while iterating.
func (p *WorkerPool) QueuedWork() int {
	total := 0
	for _, q := range p.queues {
		total += len(q)
	}
	return total
}
