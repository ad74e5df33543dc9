// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package fractal

import "testing"

func TestPixelBuffer(t *testing.T) {
	b := NewPixelBuffer(3, 10)
	if b.Frames() != 3 || b.Width() != 10 {
		t.Fatalf("NewPixelBuffer(3, 10) = %d frames of %d", b.Frames(), b.Width())
	}
	if b.FrameSize() != 100 {
		t.Errorf("FrameSize() = %d, want 100", b.FrameSize())
	}
	if b.Len() != 300 || len(b.Bytes()) != 300 {
		t.Errorf("Len() = %d, len(Bytes()) = %d, want 300", b.Len(), len(b.Bytes()))
	}

	b.Set(1, 2, 3, 42)
	if got := b.At(1, 2, 3); got != 42 {
		t.Errorf("At(1, 2, 3) = %d, want 42", got)
	}
	if got := b.Bytes()[100+2*10+3]; got != 42 {
		t.Errorf("Bytes()[123] = %d, want 42", got)
	}
	if got := b.Frame(1)[23]; got != 42 {
		t.Errorf("Frame(1)[23] = %d, want 42", got)
	}
}

func TestPixelBufferFrameIsCapped(t *testing.T) {
	b := NewPixelBuffer(2, 10)
	f := b.Frame(0)
	if cap(f) != 100 {
		t.Errorf("cap(Frame(0)) = %d, want 100", cap(f))
	}
	p := b.Prefix(50)
	if len(p) != 50 || cap(p) != 50 {
		t.Errorf("Prefix(50) len=%d cap=%d, want 50, 50", len(p), cap(p))
	}
}

func TestPixelBufferPanics(t *testing.T) {
	b := NewPixelBuffer(2, 10)
	tests := []struct {
		name string
		fn   func()
	}{
		{"frame negative", func() { b.Frame(-1) }},
		{"frame past end", func() { b.Frame(2) }},
		{"row past end", func() { b.At(0, 10, 0) }},
		{"col negative", func() { b.Set(0, 0, -1, 1) }},
		{"prefix too long", func() { b.Prefix(201) }},
		{"negative size", func() { NewPixelBuffer(-1, 10) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Errorf("%s did not panic", tt.name)
				}
			}()
			tt.fn()
		})
	}
}

func TestGlobalBufferNode(t *testing.T) {
	data := make([]byte, 4*100)
	for i := range data {
		data[i] = byte(i / 200)
	}
	g := newGlobalBuffer(data, 4, 10)
	if g.Frames() != 4 {
		t.Fatalf("Frames() = %d, want 4", g.Frames())
	}
	for rank := 0; rank < 2; rank++ {
		n := g.Node(rank, 2)
		if len(n) != 200 {
			t.Fatalf("len(Node(%d)) = %d, want 200", rank, len(n))
		}
		if n[0] != byte(rank) || n[199] != byte(rank) {
			t.Errorf("Node(%d) holds data of another rank", rank)
		}
	}

	defer func() {
		if recover() == nil {
			t.Error("Node(2, 2) did not panic")
		}
	}()
	g.Node(2, 2)
}
