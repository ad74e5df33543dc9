// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package fractal

import (
	"bytes"
	"testing"
)

func TestDepth(t *testing.T) {
	tests := []struct {
		name   string
		cx, cy float64
		want   uint8
	}{
		{"origin never escapes", 0, 0, 0},
		{"far point escapes on first check", 10, 10, 255},
		{"inside main cardioid", -0.1, 0.1, 0},
		{"just outside radius", 3, 0, 255},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Depth(tt.cx, tt.cy); got != tt.want {
				t.Errorf("Depth(%v, %v) = %d, want %d", tt.cx, tt.cy, got, tt.want)
			}
		})
	}
}

func TestDepthEscapesAfterSeveralSteps(t *testing.T) {
	// c = 1 escapes: 1, 2, 5, ... so the budget drops by three.
	if got := Depth(1, 0); got != 253 {
		t.Errorf("Depth(1, 0) = %d, want 253", got)
	}
}

func TestRenderFrameDeterministic(t *testing.T) {
	const width = 24
	a := make([]byte, width*width)
	b := make([]byte, width*width)
	RenderFrame(a, 3, width)
	RenderFrame(b, 3, width)
	if !bytes.Equal(a, b) {
		t.Error("RenderFrame is not deterministic")
	}
}

func TestRenderFrameMatchesDepth(t *testing.T) {
	const width = 16
	dst := make([]byte, width*width)
	RenderFrame(dst, 4, width)
	g := FrameGeometry(4, width)
	for row := 0; row < width; row++ {
		for col := 0; col < width; col++ {
			cx, cy := g.Point(row, col)
			if got, want := dst[row*width+col], Depth(cx, cy); got != want {
				t.Fatalf("pixel (%d, %d) = %d, want %d", row, col, got, want)
			}
		}
	}
}

func TestRenderFrameFramesDiffer(t *testing.T) {
	const width = 32
	a := make([]byte, width*width)
	b := make([]byte, width*width)
	RenderFrame(a, 0, width)
	RenderFrame(b, 200, width)
	if bytes.Equal(a, b) {
		t.Error("frames 0 and 200 are identical")
	}
}

func TestRenderFrameShortBufferPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("RenderFrame with short buffer did not panic")
		}
	}()
	RenderFrame(make([]byte, 10), 0, 10)
}

func BenchmarkRenderFrame(b *testing.B) {
	const width = 200
	dst := make([]byte, width*width)
	b.SetBytes(width * width)
	for i := 0; i < b.N; i++ {
		RenderFrame(dst, i%100, width)
	}
}
