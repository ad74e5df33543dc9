// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Command fractal renders a Mandelbrot zoom sequence across a group of
// nodes, splitting each node's frames between a GPU device and a CPU
// worker pool, and writes the frames on rank 0.
//
// Usage:
//
//	fractal [flags] frame_width cpu_frames gpu_frames
//
// Run all nodes in one process:
//
//	fractal -local 4 200 8 2
//
// Run across hosts (rank 0 listens, the others dial it):
//
//	fractal -size 3 -rank 0 -coordinator :7070 200 8 2
//	fractal -size 3 -rank 1 -coordinator host0:7070 200 8 2
//	fractal -size 3 -rank 2 -coordinator host0:7070 200 8 2
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/gogpu/fractal"
	"github.com/gogpu/fractal/cluster"
	"github.com/google/gops/agent"
	"golang.org/x/sync/errgroup"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// options is the merged result of the config file, flags and arguments.
type options struct {
	render  fractal.Config
	cluster cluster.Config
	local   int
	level   slog.Level
	gops    bool
	report  string
}

func run(args []string, stdout, stderr io.Writer) int {
	o, err := parseArgs(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}

	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: o.level}))
	fractal.SetLogger(logger)
	cluster.SetLogger(logger)

	if o.gops {
		if err := agent.Listen(agent.Options{}); err != nil {
			logger.Warn("gops agent not started", "err", err)
		} else {
			defer agent.Close()
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := execute(ctx, o)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	if res.Global == nil {
		return 0
	}
	if err := finish(res, o, stdout); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

// parseArgs builds options. Flags override the config file and positional
// arguments override both.
func parseArgs(args []string, stderr io.Writer) (options, error) {
	fs := flag.NewFlagSet("fractal", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "usage: fractal [flags] frame_width cpu_frames gpu_frames\n")
		fs.PrintDefaults()
	}

	var (
		configPath  = fs.String("config", "", "TOML config file")
		local       = fs.Int("local", 0, "run `n` nodes in this process")
		rank        = fs.Int("rank", 0, "rank of this node")
		size        = fs.Int("size", 1, "number of nodes")
		coordinator = fs.String("coordinator", "", "rank 0 `host:port` (listen address on rank 0)")
		job         = fs.String("job", "", "job id shared by all nodes")
		threads     = fs.Int("threads", fractal.DefaultCPUThreads, "CPU worker pool size")
		out         = fs.String("out", "", "output `dir` for frame images")
		report      = fs.String("report", "", "write a JSON report to `file`")
		debug       = fs.Bool("debug", false, "enable debug logging")
		gops        = fs.Bool("gops", false, "start a gops diagnostics agent")
	)
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	var o options
	o.level = slog.LevelWarn
	o.render.Threads = *threads
	o.cluster.Size = 1

	if *configPath != "" {
		fc, err := LoadFile(*configPath)
		if err != nil {
			return options{}, err
		}
		if o.cluster, err = fc.Cluster.config(); err != nil {
			return options{}, err
		}
		if o.cluster.Size == 0 {
			o.cluster.Size = 1
		}
		o.render = fc.Render
		if o.render.Threads == 0 {
			o.render.Threads = *threads
		}
		if fc.Log.Level != "" {
			if err := o.level.UnmarshalText([]byte(fc.Log.Level)); err != nil {
				return options{}, fmt.Errorf("log level: %w", err)
			}
		}
		o.gops = fc.Diagnostics.Gops
		o.report = fc.Report
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "local":
			o.local = *local
		case "rank":
			o.cluster.Rank = *rank
		case "size":
			o.cluster.Size = *size
		case "coordinator":
			o.cluster.Address = *coordinator
		case "job":
			o.cluster.Job = *job
		case "threads":
			o.render.Threads = *threads
		case "out":
			o.render.OutputDir = *out
		case "report":
			o.report = *report
		case "debug":
			if *debug {
				o.level = slog.LevelDebug
			}
		case "gops":
			o.gops = *gops
		}
	})

	switch fs.NArg() {
	case 3:
		dims := []*int{&o.render.Width, &o.render.CPUFrames, &o.render.GPUFrames}
		names := []string{"frame_width", "cpu_frames", "gpu_frames"}
		for i, arg := range fs.Args() {
			v, err := strconv.Atoi(arg)
			if err != nil {
				return options{}, fmt.Errorf("%s must be an integer, got %q", names[i], arg)
			}
			*dims[i] = v
		}
	case 0:
		if *configPath == "" {
			fs.Usage()
			return options{}, errors.New("missing frame_width cpu_frames gpu_frames")
		}
	default:
		fs.Usage()
		return options{}, fmt.Errorf("want 3 arguments, got %d", fs.NArg())
	}

	if err := o.render.Validate(); err != nil {
		return options{}, err
	}
	if o.local < 0 {
		return options{}, fmt.Errorf("-local must be at least 0, got %d", o.local)
	}
	if o.local > 0 && o.cluster.Size > 1 {
		return options{}, errors.New("-local and -size are mutually exclusive")
	}
	return o, nil
}

// execute runs this process's node(s) and returns the result of the node
// that collects the frames, or of this node if it does not collect.
func execute(ctx context.Context, o options) (*fractal.Result, error) {
	switch {
	case o.local > 0:
		return runLocal(ctx, o.render, o.local)
	case o.cluster.Size > 1:
		return runNode(ctx, o.render, o.cluster)
	default:
		return fractal.Run(ctx, o.render, cluster.NewLocal(1)[0])
	}
}

// runLocal runs n nodes as goroutines of this process.
func runLocal(ctx context.Context, cfg fractal.Config, n int) (*fractal.Result, error) {
	members := cluster.NewLocal(n)
	results := make([]*fractal.Result, n)

	g, ctx := errgroup.WithContext(ctx)
	for _, m := range members {
		g.Go(func() error {
			res, err := fractal.Run(ctx, cfg, m)
			if err != nil {
				// Unblock the other nodes.
				_ = m.Close()
				return fmt.Errorf("rank %d: %w", m.Rank(), err)
			}
			results[m.Rank()] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results[fractal.Root], nil
}

// runNode joins or forms a WebSocket group and runs this node in it.
func runNode(ctx context.Context, cfg fractal.Config, cc cluster.Config) (*fractal.Result, error) {
	cc.Workload = cluster.Workload{Width: cfg.Width, CPUFrames: cfg.CPUFrames, GPUFrames: cfg.GPUFrames}
	var node *cluster.Node
	if cc.Rank == 0 {
		coord, err := cluster.Listen(cc)
		if err != nil {
			return nil, err
		}
		fractal.Logger().Info("waiting for workers", "addr", coord.Addr().String(), "job", coord.Job())
		if node, err = coord.Accept(ctx); err != nil {
			return nil, err
		}
	} else {
		var err error
		if node, err = cluster.Join(ctx, cc); err != nil {
			return nil, err
		}
	}
	defer node.Close()
	return fractal.Run(ctx, cfg, node)
}

// finish prints the report and writes the outputs on the collecting node.
func finish(res *fractal.Result, o options, stdout io.Writer) error {
	rep := fractal.NewReport(res)
	if err := rep.WriteText(stdout); err != nil {
		return err
	}
	if fractal.ShouldWriteImages(o.render) {
		if err := fractal.WriteFrames(o.render.OutputDir, res.Global); err != nil {
			return err
		}
	}
	if o.report != "" {
		f, err := os.Create(o.report) //nolint:gosec // path comes from the command line
		if err != nil {
			return fmt.Errorf("create report: %w", err)
		}
		if err := rep.WriteJSON(f); err != nil {
			_ = f.Close()
			return fmt.Errorf("write report: %w", err)
		}
		return f.Close()
	}
	return nil
}
