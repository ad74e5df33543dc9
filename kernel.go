// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package fractal

// Kernel parameters.
const (
	// MaxDepth is the iteration budget of the escape-time loop.
	MaxDepth = 256

	// EscapeRadiusSq is the squared magnitude at which an orbit escapes.
	EscapeRadiusSq = 5.0
)

// Depth runs the quadratic escape-time iteration for c = (cx, cy) and
// returns the remaining budget truncated to a byte.
//
// The orbit starts at c itself. Each step counts down from MaxDepth and
// the escape test looks at the magnitude before the update, so a point that
// escapes on the first check returns 255 and a point that never escapes
// returns 0.
func Depth(cx, cy float64) uint8 {
	x, y := cx, cy
	depth := MaxDepth
	for {
		// Explicit float64 conversions round each product so the
		// compiler cannot fuse them into FMA instructions.
		x2 := float64(x * x)
		y2 := float64(y * y)
		y = float64(2*x*y) + cy
		x = x2 - y2 + cx
		depth--
		if depth <= 0 || x2+y2 >= EscapeRadiusSq {
			break
		}
	}
	return uint8(depth)
}

// RenderFrame renders global frame index frame into dst, one byte per
// pixel in row-major order. dst must hold at least width*width bytes.
func RenderFrame(dst []byte, frame, width int) {
	g := FrameGeometry(frame, width)
	_ = dst[width*width-1]
	for row := 0; row < width; row++ {
		line := dst[row*width : (row+1)*width]
		for col := range line {
			cx, cy := g.Point(row, col)
			line[col] = Depth(cx, cy)
		}
	}
}
