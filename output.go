// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package fractal

import (
	"fmt"
	"image"
	"os"
	"path/filepath"

	"golang.org/x/image/bmp"
)

// FrameNameBase offsets frame numbers in image names so they sort
// lexically.
const FrameNameBase = 10000

// FrameFileName returns the image file name for a global frame index.
func FrameFileName(frame int) string {
	return fmt.Sprintf("fractal%d.bmp", frame+FrameNameBase)
}

// FrameImage returns global frame f as a grayscale image.
// The image aliases the buffer.
func (g *GlobalBuffer) FrameImage(f int) *image.Gray {
	w := g.Width()
	return &image.Gray{
		Pix:    g.Frame(f),
		Stride: w,
		Rect:   image.Rect(0, 0, w, w),
	}
}

// WriteFrames writes every frame of g into dir as an 8-bit grayscale BMP.
// dir is created if needed.
func WriteFrames(dir string, g *GlobalBuffer) error {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	for f := 0; f < g.Frames(); f++ {
		path := filepath.Join(dir, FrameFileName(f))
		if err := writeBMP(path, g.FrameImage(f)); err != nil {
			return fmt.Errorf("write frame %d: %w", f, err)
		}
	}
	Logger().Info("frames written", "dir", dir, "frames", g.Frames())
	return nil
}

func writeBMP(path string, img image.Image) error {
	f, err := os.Create(path) //nolint:gosec // path is built from the user's output dir
	if err != nil {
		return err
	}
	if err := bmp.Encode(f, img); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
