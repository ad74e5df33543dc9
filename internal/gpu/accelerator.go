// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

//go:build !nogpu

package gpu

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gogpu/fractal"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	// Import Vulkan backend so it registers via init().
	_ "github.com/gogpu/wgpu/hal/vulkan"
)

// MaxStorageBytes is the largest depth buffer bound to one dispatch. It
// matches the default WebGPU storage binding limit; larger allocations are
// split into several chunks.
const MaxStorageBytes = 128 << 20

// fenceTimeout bounds a single fence wait in Finalize. Finalize keeps
// waiting until the fence signals or the wait fails.
const fenceTimeout = 5 * time.Second

// ErrNoAdapter is returned by Init when no GPU adapter can be opened.
var ErrNoAdapter = errors.New("gpu: no adapter available")

// Accelerator renders fractal frames with a wgpu/hal compute shader.
// It implements fractal.Device.
//
// Each buffer goes through one Allocate, LaunchAsync, Finalize cycle.
// LaunchAsync records and submits a single compute pass with one dispatch
// per chunk and a fence; Finalize waits on the fence and reads the depths
// back.
type Accelerator struct {
	mu sync.Mutex

	instance hal.Instance
	device   hal.Device
	queue    hal.Queue

	shader     hal.ShaderModule
	bindLayout hal.BindGroupLayout
	pipeLayout hal.PipelineLayout
	pipeline   hal.ComputePipeline

	adapterName    string
	ready          bool
	externalDevice bool // true when using a shared device (don't destroy on Close)

	// chunkPixels overrides the pixels per depth buffer when positive.
	chunkPixels int
}

var _ fractal.Device = (*Accelerator)(nil)

// NewAccelerator opens the first usable Vulkan adapter and builds the
// compute pipeline.
func NewAccelerator() (*Accelerator, error) {
	a := &Accelerator{}
	if err := a.Init(); err != nil {
		return nil, err
	}
	return a, nil
}

// Name returns "wgpu".
func (a *Accelerator) Name() string { return "wgpu" }

// AdapterName returns the name of the adapter in use, if known.
func (a *Accelerator) AdapterName() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.adapterName
}

// SetLogger sets the logger used by the accelerator.
func (a *Accelerator) SetLogger(l *slog.Logger) { setLogger(l) }

// Init opens a device on its own instance. It is a no-op if the
// accelerator is already usable.
func (a *Accelerator) Init() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.ready {
		return nil
	}
	if err := a.initGPU(); err != nil {
		a.releaseLocked()
		return err
	}
	return nil
}

func (a *Accelerator) initGPU() error {
	backend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return fmt.Errorf("%w: vulkan backend not available", ErrNoAdapter)
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return fmt.Errorf("%w: create instance: %w", ErrNoAdapter, err)
	}
	a.instance = instance

	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		return fmt.Errorf("%w: no GPU adapters found", ErrNoAdapter)
	}
	var selected *hal.ExposedAdapter
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	if selected == nil {
		selected = &adapters[0]
	}

	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		return fmt.Errorf("%w: open device: %w", ErrNoAdapter, err)
	}
	a.device = openDev.Device
	a.queue = openDev.Queue
	a.adapterName = selected.Info.Name

	if err := a.createPipeline(); err != nil {
		return fmt.Errorf("create pipeline: %w", err)
	}
	a.ready = true
	slogger().Info("gpu accelerator initialized", "adapter", a.adapterName)
	return nil
}

// SetDeviceProvider switches the accelerator to a shared GPU device. The
// provider must implement HalDevice() any and HalQueue() any returning
// hal.Device and hal.Queue.
func (a *Accelerator) SetDeviceProvider(provider any) error {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return fmt.Errorf("gpu: provider does not expose HAL types")
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return fmt.Errorf("gpu: provider HalDevice is not hal.Device")
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return fmt.Errorf("gpu: provider HalQueue is not hal.Queue")
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.releaseLocked()

	a.device = device
	a.queue = queue
	a.externalDevice = true
	a.adapterName = "shared"

	if err := a.createPipeline(); err != nil {
		return fmt.Errorf("gpu: create pipeline with shared device: %w", err)
	}
	a.ready = true
	slogger().Info("gpu accelerator switched to shared device")
	return nil
}

// Close releases the pipeline and, unless shared, the device.
func (a *Accelerator) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.releaseLocked()
}

func (a *Accelerator) releaseLocked() {
	a.destroyPipeline()
	if !a.externalDevice {
		if a.device != nil {
			a.device.Destroy()
		}
		if a.instance != nil {
			a.instance.Destroy()
		}
	}
	a.device = nil
	a.instance = nil
	a.queue = nil
	a.ready = false
	a.externalDevice = false
}

func (a *Accelerator) createPipeline() error {
	spirv, err := compileSPIRV(mandelbrotShaderWGSL)
	if err != nil {
		return err
	}
	shader, err := a.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  "mandelbrot",
		Source: hal.ShaderSource{SPIRV: spirv},
	})
	if err != nil {
		return fmt.Errorf("create shader module: %w", err)
	}
	a.shader = shader

	bindLayout, err := a.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "mandelbrot_bind_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{Binding: 0, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform}},
			{Binding: 1, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeReadOnlyStorage}},
			{Binding: 2, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeStorage}},
		},
	})
	if err != nil {
		return fmt.Errorf("create bind group layout: %w", err)
	}
	a.bindLayout = bindLayout

	pipeLayout, err := a.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label: "mandelbrot_pipe_layout", BindGroupLayouts: []hal.BindGroupLayout{a.bindLayout},
	})
	if err != nil {
		return fmt.Errorf("create pipeline layout: %w", err)
	}
	a.pipeLayout = pipeLayout

	pipeline, err := a.device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label: "mandelbrot_pipeline", Layout: a.pipeLayout,
		Compute: hal.ComputeState{Module: a.shader, EntryPoint: "main"},
	})
	if err != nil {
		return fmt.Errorf("create compute pipeline: %w", err)
	}
	a.pipeline = pipeline
	return nil
}

func (a *Accelerator) destroyPipeline() {
	if a.device == nil {
		return
	}
	if a.pipeline != nil {
		a.device.DestroyComputePipeline(a.pipeline)
		a.pipeline = nil
	}
	if a.pipeLayout != nil {
		a.device.DestroyPipelineLayout(a.pipeLayout)
		a.pipeLayout = nil
	}
	if a.bindLayout != nil {
		a.device.DestroyBindGroupLayout(a.bindLayout)
		a.bindLayout = nil
	}
	if a.shader != nil {
		a.device.DestroyShaderModule(a.shader)
		a.shader = nil
	}
}

// chunk is one depth buffer of a launch together with the resources of
// its dispatch.
type chunk struct {
	chunkRange

	depths  hal.Buffer // packed depths, written by the shader
	staging hal.Buffer // readback copy of depths

	// Set by LaunchAsync.
	params hal.Buffer
	bind   hal.BindGroup
	count  int // pixels rendered into this chunk
}

// buffer is the fractal.DeviceBuffer of an Accelerator.
type buffer struct {
	owner  *Accelerator
	size   int // pixel bytes
	chunks []*chunk

	// Set by LaunchAsync.
	geometry hal.Buffer
	cmd      hal.CommandBuffer
	fence    hal.Fence
	pixels   int

	launched bool
	released bool
}

func (b *buffer) Size() int { return b.size }

// chunkLimit returns the most pixels one depth buffer may hold.
func (a *Accelerator) chunkLimit() int {
	if a.chunkPixels > 0 {
		return a.chunkPixels
	}
	return MaxStorageBytes / wordSize * pixelsPerWord
}

// Allocate creates the depth and staging buffers for size pixels, split
// into chunks that each fit one storage binding.
func (a *Accelerator) Allocate(size int) (fractal.DeviceBuffer, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.ready {
		return nil, fractal.ErrDeviceClosed
	}
	if size <= 0 {
		return nil, fmt.Errorf("%w: %d pixels", fractal.ErrDeviceAlloc, size)
	}

	b := &buffer{owner: a, size: size}
	for _, r := range planChunks(size, a.chunkLimit()) {
		c := &chunk{chunkRange: r}
		b.chunks = append(b.chunks, c)
		bytes := uint64(wordsFor(r.pixels) * wordSize) //nolint:gosec // bounded by MaxStorageBytes

		var err error
		c.depths, err = a.device.CreateBuffer(&hal.BufferDescriptor{
			Label: "mandelbrot_depths", Size: bytes,
			Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopySrc | gputypes.BufferUsageCopyDst,
		})
		if err != nil {
			a.releaseBuffer(b)
			return nil, fmt.Errorf("%w: depth buffer: %w", fractal.ErrDeviceAlloc, err)
		}
		c.staging, err = a.device.CreateBuffer(&hal.BufferDescriptor{
			Label: "mandelbrot_staging", Size: bytes,
			Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
		})
		if err != nil {
			a.releaseBuffer(b)
			return nil, fmt.Errorf("%w: staging buffer: %w", fractal.ErrDeviceAlloc, err)
		}
	}
	slogger().Debug("gpu buffer allocated", "pixels", size, "chunks", len(b.chunks))
	return b, nil
}

// LaunchAsync records and submits the compute pass for frames [from, to).
// It returns once the work is queued.
func (a *Accelerator) LaunchAsync(ctx context.Context, from, to, width int, buf fractal.DeviceBuffer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b, err := a.buffer(buf)
	if err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	switch {
	case !a.ready:
		return fractal.ErrDeviceClosed
	case b.released:
		return fractal.ErrBufferReleased
	case b.launched:
		return fractal.ErrAlreadyLaunched
	}
	frames := to - from
	pixels := frames * width * width
	if to < from || pixels > b.size {
		return fmt.Errorf("%w: frames [%d, %d) need %d bytes, have %d", fractal.ErrBufferTooSmall, from, to, pixels, b.size)
	}
	b.launched = true
	b.pixels = pixels
	if frames == 0 {
		return nil
	}

	if err := a.submit(b, from, to, width); err != nil {
		a.releaseLaunch(b)
		return fmt.Errorf("gpu: launch frames [%d, %d): %w", from, to, err)
	}
	slogger().Debug("gpu launch submitted", "from", from, "to", to, "width", width)
	return nil
}

func (a *Accelerator) submit(b *buffer, from, to, width int) error {
	frames := to - from
	geom := packGeometry(from, to, width)

	var err error
	b.geometry, err = a.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "mandelbrot_geometry", Size: uint64(len(geom)),
		Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("create geometry buffer: %w", err)
	}
	a.queue.WriteBuffer(b.geometry, 0, geom)

	// Chunks past the launched pixels stay idle.
	var active []*chunk
	for _, c := range b.chunks {
		if c.base >= b.pixels {
			break
		}
		c.count = min(c.pixels, b.pixels-c.base)
		active = append(active, c)
	}

	type dispatch struct{ x, y uint32 }
	dispatches := make([]dispatch, len(active))
	for i, c := range active {
		x, y := workgroups(wordsFor(c.count))
		dispatches[i] = dispatch{x, y}

		c.params, err = a.device.CreateBuffer(&hal.BufferDescriptor{
			Label: "mandelbrot_params", Size: paramsSize,
			Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
		})
		if err != nil {
			return fmt.Errorf("create params buffer: %w", err)
		}
		a.queue.WriteBuffer(c.params, 0, packParams(width, frames, c.base, c.count, x))

		c.bind, err = a.device.CreateBindGroup(&hal.BindGroupDescriptor{
			Label: "mandelbrot_bind", Layout: a.bindLayout,
			Entries: []gputypes.BindGroupEntry{
				{Binding: 0, Resource: gputypes.BufferBinding{Buffer: c.params.NativeHandle(), Offset: 0, Size: paramsSize}},
				{Binding: 1, Resource: gputypes.BufferBinding{Buffer: b.geometry.NativeHandle(), Offset: 0, Size: uint64(len(geom))}},
				{Binding: 2, Resource: gputypes.BufferBinding{Buffer: c.depths.NativeHandle(), Offset: 0, Size: c.byteSize()}},
			},
		})
		if err != nil {
			return fmt.Errorf("create bind group: %w", err)
		}
	}

	encoder, err := a.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "mandelbrot_encoder"})
	if err != nil {
		return fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("mandelbrot"); err != nil {
		return fmt.Errorf("begin encoding: %w", err)
	}
	pass := encoder.BeginComputePass(&hal.ComputePassDescriptor{Label: "mandelbrot_pass"})
	pass.SetPipeline(a.pipeline)
	for i, c := range active {
		pass.SetBindGroup(0, c.bind, nil)
		pass.Dispatch(dispatches[i].x, dispatches[i].y, 1)
	}
	pass.End()
	for _, c := range active {
		encoder.CopyBufferToBuffer(c.depths, c.staging, []hal.BufferCopy{
			{SrcOffset: 0, DstOffset: 0, Size: c.byteSize()},
		})
	}
	b.cmd, err = encoder.EndEncoding()
	if err != nil {
		encoder.DiscardEncoding()
		return fmt.Errorf("end encoding: %w", err)
	}

	b.fence, err = a.device.CreateFence()
	if err != nil {
		return fmt.Errorf("create fence: %w", err)
	}
	if err := a.queue.Submit([]hal.CommandBuffer{b.cmd}, b.fence, 1); err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	return nil
}

// byteSize returns the size of the packed words covering the rendered
// pixels.
func (c *chunk) byteSize() uint64 {
	return uint64(wordsFor(c.count) * wordSize) //nolint:gosec // bounded by MaxStorageBytes
}

// Finalize waits for the launched pass, copies size depths into host and
// releases every resource of buf.
func (a *Accelerator) Finalize(size int, host []byte, buf fractal.DeviceBuffer) error {
	b, err := a.buffer(buf)
	if err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	switch {
	case b.released:
		return fractal.ErrBufferReleased
	case !b.launched:
		return fractal.ErrNotLaunched
	}
	defer a.releaseBuffer(b)

	if size > b.size || size > len(host) {
		return fmt.Errorf("%w: finalize %d bytes from %d into %d", fractal.ErrBufferTooSmall, size, b.size, len(host))
	}
	if b.fence == nil {
		// Nothing was submitted.
		return nil
	}

	start := time.Now()
	if err := a.waitFence(b); err != nil {
		return err
	}

	n := min(size, b.pixels)
	for _, c := range b.chunks {
		if c.count == 0 || c.base >= n {
			continue
		}
		m := min(c.count, n-c.base)
		readback := make([]byte, wordsFor(m)*wordSize)
		if err := a.queue.ReadBuffer(c.staging, 0, readback); err != nil {
			return fmt.Errorf("gpu: readback: %w", err)
		}
		unpackDepths(readback, host[c.base:], m)
	}
	slogger().Debug("gpu finalize complete", "pixels", n, "chunks", len(b.chunks), "waited", time.Since(start))
	return nil
}

// Release waits for a launched pass and frees buf without reading it back.
func (a *Accelerator) Release(buf fractal.DeviceBuffer) error {
	b, err := a.buffer(buf)
	if err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if b.released {
		return nil
	}
	defer a.releaseBuffer(b)
	if b.fence == nil {
		return nil
	}
	return a.waitFence(b)
}

// waitFence blocks until the submission of b has completed.
func (a *Accelerator) waitFence(b *buffer) error {
	start := time.Now()
	for {
		ok, err := a.device.Wait(b.fence, 1, fenceTimeout)
		if err != nil {
			return fmt.Errorf("gpu: wait for fence: %w", err)
		}
		if ok {
			return nil
		}
		slogger().Warn("gpu still running", "waited", time.Since(start))
	}
}

// releaseLaunch destroys the resources created by LaunchAsync.
func (a *Accelerator) releaseLaunch(b *buffer) {
	if a.device == nil {
		return
	}
	if b.fence != nil {
		a.device.DestroyFence(b.fence)
		b.fence = nil
	}
	if b.cmd != nil {
		a.device.FreeCommandBuffer(b.cmd)
		b.cmd = nil
	}
	for _, c := range b.chunks {
		if c.bind != nil {
			a.device.DestroyBindGroup(c.bind)
			c.bind = nil
		}
		if c.params != nil {
			a.device.DestroyBuffer(c.params)
			c.params = nil
		}
	}
	if b.geometry != nil {
		a.device.DestroyBuffer(b.geometry)
		b.geometry = nil
	}
}

// releaseBuffer destroys every resource of b and marks it released.
func (a *Accelerator) releaseBuffer(b *buffer) {
	a.releaseLaunch(b)
	for _, c := range b.chunks {
		if a.device != nil {
			if c.staging != nil {
				a.device.DestroyBuffer(c.staging)
			}
			if c.depths != nil {
				a.device.DestroyBuffer(c.depths)
			}
		}
		c.staging = nil
		c.depths = nil
	}
	b.released = true
}

func (a *Accelerator) buffer(buf fractal.DeviceBuffer) (*buffer, error) {
	b, ok := buf.(*buffer)
	if !ok || b == nil || b.owner != a {
		return nil, fractal.ErrForeignBuffer
	}
	return b, nil
}
