// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package fractal

// RunOption configures a Run.
//
// Example:
//
//	// Default: open the registered device lazily
//	res, err := fractal.Run(ctx, cfg, comm)
//
//	// Inject a device (the caller keeps ownership)
//	res, err := fractal.Run(ctx, cfg, comm, fractal.WithDevice(dev))
type RunOption func(*runOptions)

// runOptions holds optional configuration for Run.
type runOptions struct {
	device Device
}

// defaultRunOptions returns the default run options.
func defaultRunOptions() runOptions {
	return runOptions{
		device: nil, // Opened with OpenDevice if the node has GPU frames
	}
}

// WithDevice sets the device used for GPU frames. Run does not close it.
func WithDevice(d Device) RunOption {
	return func(o *runOptions) {
		o.device = d
	}
}
