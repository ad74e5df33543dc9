// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package fractal

import "math"

// Zoom constants. Every frame is centered on (XCenter, YCenter) and frame f
// spans a square of half-width Scale(f).
const (
	BaseDelta   = 0.005491
	XCenter     = 0.745796
	YCenter     = 0.105089
	ShrinkRatio = 0.99
)

// Geometry is the complex-plane window of one frame.
type Geometry struct {
	XMin float64
	YMin float64
	Step float64 // distance between adjacent pixels
}

// Scale returns the half-width of frame f's window.
// Frame 0 is already shrunk once, so Scale(0) = BaseDelta * ShrinkRatio.
func Scale(frame int) float64 {
	return BaseDelta * math.Pow(ShrinkRatio, float64(frame+1))
}

// FrameGeometry returns the window for the given global frame index.
// It is a pure function and safe for concurrent use.
func FrameGeometry(frame, width int) Geometry {
	d := Scale(frame)
	return Geometry{
		XMin: XCenter - d,
		YMin: YCenter - d,
		Step: 2.0 * d / float64(width),
	}
}

// Point returns the complex coordinate of pixel (row, col).
// The window is mirrored through the origin, which places the zoom on the
// negative real axis side of the set.
func (g Geometry) Point(row, col int) (cx, cy float64) {
	cx = -g.XMin - float64(float64(col)*g.Step)
	cy = -g.YMin - float64(float64(row)*g.Step)
	return cx, cy
}
