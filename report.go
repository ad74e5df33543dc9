// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package fractal

import (
	"fmt"
	"io"

	"github.com/bytedance/sonic"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Banner is the first line printed by the collecting node.
const Banner = "Fractal v1.5 [Hybrid1]"

// Report is the user-facing summary of a run.
type Report struct {
	Nodes          int     `json:"nodes"`
	Width          int     `json:"width"`
	TotalFrames    int     `json:"total_frames"`
	TotalCPUFrames int     `json:"total_cpu_frames"`
	TotalGPUFrames int     `json:"total_gpu_frames"`
	Device         string  `json:"device,omitempty"`
	ComputeSeconds float64 `json:"compute_seconds"`
}

// NewReport builds the report for a result.
func NewReport(r *Result) Report {
	return Report{
		Nodes:          r.Nodes,
		Width:          r.Width,
		TotalFrames:    r.TotalFrames,
		TotalCPUFrames: r.TotalCPUFrames,
		TotalGPUFrames: r.TotalGPUFrames,
		Device:         r.Device,
		ComputeSeconds: r.Elapsed.Seconds(),
	}
}

// WriteText prints the run summary. Frame counts are digit-grouped
// (e.g., "1,024 frames"); width and compute time are printed plain.
func (r Report) WriteText(w io.Writer) error {
	p := message.NewPrinter(language.English)
	count := func(n int) string { return p.Sprintf("%d", n) }

	if _, err := fmt.Fprintf(w, "%s\n", Banner); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Total number of processes == %d\n", r.Nodes); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "computing %s frames of %d by %d fractal (%s CPU frames and %s GPU frames)\n",
		count(r.TotalFrames), r.Width, r.Width, count(r.TotalCPUFrames), count(r.TotalGPUFrames)); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "compute time: %.4f s\n", r.ComputeSeconds)
	return err
}

// WriteJSON writes the report as a single JSON object.
func (r Report) WriteJSON(w io.Writer) error {
	data, err := sonic.Marshal(r)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}
