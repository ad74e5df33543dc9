// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package fractal

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
)

func testResult() *Result {
	return &Result{
		Nodes:          4,
		Width:          200,
		TotalFrames:    1200,
		TotalCPUFrames: 800,
		TotalGPUFrames: 400,
		Elapsed:        1500 * time.Millisecond,
		Device:         "software",
	}
}

func TestReportWriteText(t *testing.T) {
	var buf bytes.Buffer
	if err := NewReport(testResult()).WriteText(&buf); err != nil {
		t.Fatalf("WriteText() error = %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	want := []string{
		Banner,
		"Total number of processes == 4",
		"computing 1,200 frames of 200 by 200 fractal (800 CPU frames and 400 GPU frames)",
		"compute time: 1.5000 s",
	}
	if len(lines) != len(want) {
		t.Fatalf("WriteText() printed %d lines, want %d:\n%s", len(lines), len(want), buf.String())
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestReportWriteTextGroupsOnlyFrameCounts(t *testing.T) {
	r := Report{
		Nodes:          2,
		Width:          1000,
		TotalFrames:    2000,
		TotalCPUFrames: 1000,
		TotalGPUFrames: 1000,
		ComputeSeconds: 1234.5,
	}
	var buf bytes.Buffer
	if err := r.WriteText(&buf); err != nil {
		t.Fatalf("WriteText() error = %v", err)
	}
	for _, want := range []string{
		"computing 2,000 frames of 1000 by 1000 fractal (1,000 CPU frames and 1,000 GPU frames)\n",
		"compute time: 1234.5000 s\n",
	} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("WriteText() = %q, want it to contain %q", buf.String(), want)
		}
	}
}

func TestReportWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	r := NewReport(testResult())
	if err := r.WriteJSON(&buf); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}
	var got Report
	if err := sonic.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got != r {
		t.Errorf("WriteJSON round trip = %+v, want %+v", got, r)
	}
	if !strings.Contains(buf.String(), `"total_gpu_frames":400`) {
		t.Errorf("JSON missing total_gpu_frames: %s", buf.String())
	}
}
