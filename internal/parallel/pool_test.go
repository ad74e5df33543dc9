// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package parallel

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// =============================================================================
// WorkerPool Creation Tests
// =============================================================================

func TestWorkerPool_Create(t *testing.T) {
	pool := NewWorkerPool(4)
	defer pool.Close()

	if pool.Workers() != 4 {
		t.Errorf("Workers() = %d, want 4", pool.Workers())
	}
	if !pool.IsRunning() {
		t.Error("Pool should be running after creation")
	}
}

func TestWorkerPool_CreateZeroWorkers(t *testing.T) {
	pool := NewWorkerPool(0)
	defer pool.Close()

	expected := runtime.GOMAXPROCS(0)
	if pool.Workers() != expected {
		t.Errorf("Workers() = %d, want %d (GOMAXPROCS)", pool.Workers(), expected)
	}
}

func TestWorkerPool_CreateNegativeWorkers(t *testing.T) {
	pool := NewWorkerPool(-5)
	defer pool.Close()

	expected := runtime.GOMAXPROCS(0)
	if pool.Workers() != expected {
		t.Errorf("Workers() = %d, want %d (GOMAXPROCS)", pool.Workers(), expected)
	}
}

// =============================================================================
// ForEach Tests
// =============================================================================

func TestWorkerPool_ForEachVisitsEveryFrameOnce(t *testing.T) {
	pool := NewWorkerPool(4)
	defer pool.Close()

	const from, to = 7, 107
	counts := make([]atomic.Int32, to)

	if err := pool.ForEach(context.Background(), from, to, func(frame int) {
		counts[frame].Add(1)
	}); err != nil {
		t.Fatalf("ForEach() = %v, want nil", err)
	}

	for f := range counts {
		want := int32(0)
		if f >= from {
			want = 1
		}
		if got := counts[f].Load(); got != want {
			t.Errorf("frame %d ran %d times, want %d", f, got, want)
		}
	}
}

func TestWorkerPool_ForEachEmptyRange(t *testing.T) {
	pool := NewWorkerPool(4)
	defer pool.Close()

	called := false
	for _, r := range [][2]int{{0, 0}, {5, 5}, {5, 2}} {
		if err := pool.ForEach(context.Background(), r[0], r[1], func(int) { called = true }); err != nil {
			t.Errorf("ForEach(%d, %d) = %v, want nil", r[0], r[1], err)
		}
	}
	if called {
		t.Error("fn called for an empty range")
	}
}

func TestWorkerPool_ForEachSingleWorker(t *testing.T) {
	pool := NewWorkerPool(1)
	defer pool.Close()

	var mu sync.Mutex
	var order []int
	// More frames than the queue holds, so submission must block and resume.
	if err := pool.ForEach(context.Background(), 0, 50, func(frame int) {
		mu.Lock()
		order = append(order, frame)
		mu.Unlock()
	}); err != nil {
		t.Fatalf("ForEach() = %v", err)
	}
	if len(order) != 50 {
		t.Fatalf("ran %d frames, want 50", len(order))
	}
	for i, f := range order {
		if f != i {
			t.Errorf("order[%d] = %d, want %d (single worker runs in claim order)", i, f, i)
		}
	}
}

func TestWorkerPool_ForEachBoundedConcurrency(t *testing.T) {
	const workers = 3
	pool := NewWorkerPool(workers)
	defer pool.Close()

	var active, peak atomic.Int32
	err := pool.ForEach(context.Background(), 0, 30, func(int) {
		n := active.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(time.Millisecond)
		active.Add(-1)
	})
	if err != nil {
		t.Fatalf("ForEach() = %v", err)
	}
	if got := peak.Load(); got > workers {
		t.Errorf("peak concurrency = %d, want <= %d", got, workers)
	}
}

func TestWorkerPool_ForEachUnevenFrames(t *testing.T) {
	pool := NewWorkerPool(4)
	defer pool.Close()

	// Deep frames take longer than shallow ones; every frame must still
	// complete exactly once.
	var done atomic.Int32
	err := pool.ForEach(context.Background(), 0, 40, func(frame int) {
		if frame%7 == 0 {
			time.Sleep(2 * time.Millisecond)
		}
		done.Add(1)
	})
	if err != nil {
		t.Fatalf("ForEach() = %v", err)
	}
	if got := done.Load(); got != 40 {
		t.Errorf("completed %d frames, want 40", got)
	}
}

func TestWorkerPool_ForEachCancelled(t *testing.T) {
	pool := NewWorkerPool(2)
	defer pool.Close()

	ctx, cancel := context.WithCancel(context.Background())
	var ran atomic.Int32
	err := pool.ForEach(ctx, 0, 1000, func(int) {
		if ran.Add(1) == 1 {
			cancel()
		}
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("ForEach() = %v, want context.Canceled", err)
	}
	if got := ran.Load(); got >= 1000 {
		t.Errorf("ran %d frames after cancellation, want fewer than 1000", got)
	}
	want := fmt.Sprintf("%d of 1000 frames not rendered", 1000-ran.Load())
	if !strings.Contains(err.Error(), want) {
		t.Errorf("ForEach() = %q, want it to contain %q", err, want)
	}
}

func TestWorkerPool_ForEachAlreadyCancelled(t *testing.T) {
	pool := NewWorkerPool(2)
	defer pool.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var ran atomic.Int32
	err := pool.ForEach(ctx, 0, 100, func(int) { ran.Add(1) })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("ForEach() = %v, want context.Canceled", err)
	}
	if ran.Load() != 0 {
		t.Errorf("ran %d frames with a cancelled context, want 0", ran.Load())
	}
	if !strings.Contains(err.Error(), "100 of 100 frames not rendered") {
		t.Errorf("ForEach() = %q, want the skipped frame count", err)
	}
}

// =============================================================================
// Close Tests
// =============================================================================

func TestWorkerPool_Close(t *testing.T) {
	pool := NewWorkerPool(4)
	pool.Close()

	if pool.IsRunning() {
		t.Error("Pool should not be running after Close")
	}
	// Second close must not panic.
	pool.Close()
}

func TestWorkerPool_ForEachAfterClose(t *testing.T) {
	pool := NewWorkerPool(4)
	pool.Close()

	err := pool.ForEach(context.Background(), 0, 10, func(int) {
		t.Error("fn called on a closed pool")
	})
	if !errors.Is(err, ErrPoolClosed) {
		t.Errorf("ForEach() = %v, want ErrPoolClosed", err)
	}
}

func TestWorkerPool_QueuedWorkIdle(t *testing.T) {
	pool := NewWorkerPool(4)
	defer pool.Close()

	if got := pool.QueuedWork(); got != 0 {
		t.Errorf("QueuedWork() = %d on an idle pool, want 0", got)
	}
}

// =============================================================================
// Benchmarks
// =============================================================================

func BenchmarkWorkerPool_ForEach(b *testing.B) {
	pool := NewWorkerPool(0)
	defer pool.Close()

	var sink atomic.Int64
	b.ReportAllocs()
	for b.Loop() {
		_ = pool.ForEach(context.Background(), 0, 256, func(frame int) {
			sink.Add(int64(frame))
		})
	}
}
