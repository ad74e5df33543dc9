// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

//go:build !nogpu

package gpu

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/gogpu/fractal"
)

// df mirrors the shader's vec2<f32> double-single value. The helpers below
// follow mandelbrot.wgsl operation for operation; explicit float32
// conversions keep Go from fusing products.
type df struct{ hi, lo float32 }

func twoSum(a, b float32) df {
	s := a + b
	bb := s - a
	return df{s, (a - (s - bb)) + (b - bb)}
}

func quickTwoSum(a, b float32) df {
	s := a + b
	return df{s, b - (s - a)}
}

func twoProd(a, b float32) df {
	p := float32(a * b)
	return df{p, float32(math.FMA(float64(a), float64(b), -float64(p)))}
}

func dfAdd(a, b df) df {
	s := twoSum(a.hi, b.hi)
	t := twoSum(a.lo, b.lo)
	s.lo += t.hi
	s = quickTwoSum(s.hi, s.lo)
	s.lo += t.lo
	return quickTwoSum(s.hi, s.lo)
}

func dfSub(a, b df) df { return dfAdd(a, df{-b.hi, -b.lo}) }

func dfMul(a, b df) df {
	p := twoProd(a.hi, b.hi)
	p.lo += float32(a.hi*b.lo) + float32(a.lo*b.hi)
	return quickTwoSum(p.hi, p.lo)
}

func dfMulF(a df, b float32) df {
	p := twoProd(a.hi, b)
	p.lo += float32(a.lo * b)
	return quickTwoSum(p.hi, p.lo)
}

// shaderDepth runs the shader's pixel_depth for launch pixel p against
// packed geometry.
func shaderDepth(geom []byte, width, p int) uint8 {
	area := width * width
	frame, within := p/area, p%area
	row, col := within/width, within%width

	rec := geom[frame*geometrySize:]
	field := func(i int) df {
		return df{
			math.Float32frombits(binary.LittleEndian.Uint32(rec[i*8:])),
			math.Float32frombits(binary.LittleEndian.Uint32(rec[i*8+4:])),
		}
	}
	cx0, cy0, step := field(0), field(1), field(2)
	cx := dfSub(cx0, dfMulF(step, float32(col)))
	cy := dfSub(cy0, dfMulF(step, float32(row)))

	x, y := cx, cy
	depth := 256
	for {
		x2 := dfMul(x, x)
		y2 := dfMul(y, y)
		y = dfAdd(dfMul(df{2 * x.hi, 2 * x.lo}, y), cy)
		x = dfAdd(dfSub(x2, y2), cx)
		depth--
		m := dfAdd(x2, y2)
		if depth <= 0 || m.hi > 5 || (m.hi == 5 && m.lo >= 0) {
			break
		}
	}
	return uint8(depth)
}

func TestShaderArithmeticMatchesHostKernel(t *testing.T) {
	const width = 64
	for _, frame := range []int{2, 300, 700, 900} {
		geom := packGeometry(frame, frame+1, width)
		want := make([]byte, width*width)
		fractal.RenderFrame(want, frame, width)

		same := 0
		for p := range want {
			if shaderDepth(geom, width, p) == want[p] {
				same++
			}
		}
		if ratio := float64(same) / float64(len(want)); ratio < 0.99 {
			t.Errorf("frame %d: shader arithmetic matches host kernel on %.1f%% of pixels, want >= 99%%",
				frame, ratio*100)
		}
	}
}

func TestDFAddKeepsLowBits(t *testing.T) {
	// 0.75 + 1e-12 is not representable in float32 but is in df.
	a := df{0.75, 0}
	b := df{1e-12, 0}
	s := dfAdd(a, b)
	if got := float64(s.hi) + float64(s.lo); math.Abs(got-(0.75+float64(float32(1e-12)))) > 1e-20 {
		t.Errorf("dfAdd(0.75, 1e-12) = %v, want 0.75+1e-12", got)
	}
	if s.hi != 0.75 {
		t.Errorf("dfAdd hi = %v, want 0.75", s.hi)
	}
}
