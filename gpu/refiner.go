// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

//go:build !nogpu

package gpu

import (
	"fmt"
	"sync"
	"time"
	"unsafe"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	// Import Vulkan backend so it registers via init().
	_ "github.com/gogpu/wgpu/hal/vulkan"

	"github.com/gogpu/subdiv"
	"github.com/gogpu/subdiv/internal/shader"
)

// Refiner subdivides meshes on the GPU. Each Refine call uploads one level,
// encodes the four refinement passes into a single command buffer and reads
// the next level back. A Refiner is safe for concurrent use; dispatches are
// serialized on an internal mutex.
type Refiner struct {
	mu sync.Mutex

	instance hal.Instance
	device   hal.Device
	queue    hal.Queue

	shaderModule hal.ShaderModule
	bindLayout   hal.BindGroupLayout
	pipeLayout   hal.PipelineLayout
	pipelines    [4]hal.ComputePipeline

	ready          bool
	externalDevice bool // true when using a shared device (don't destroy on Close)
}

// refineParams mirrors the Params uniform in refine.wgsl.
type refineParams struct {
	vd, fd, ed, hd int32
}

// New creates a Refiner with its own Vulkan device. It returns ErrNoGPU when
// no adapter is available, so callers can fall back to the CPU refiner.
func New() (*Refiner, error) {
	r := &Refiner{}
	if err := r.initGPU(); err != nil {
		r.Close()
		return nil, err
	}
	return r, nil
}

// SetDeviceProvider switches the refiner to a shared GPU device from an
// external provider (e.g. gogpu.App.GPUContextProvider()). The provider must
// additionally implement HalDevice() any and HalQueue() any returning
// hal.Device and hal.Queue.
func (r *Refiner) SetDeviceProvider(provider gpucontext.DeviceProvider) error {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return ErrBadProvider
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return fmt.Errorf("%w: HalDevice is not hal.Device", ErrBadProvider)
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return fmt.Errorf("%w: HalQueue is not hal.Queue", ErrBadProvider)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.destroyPipelines()
	if !r.externalDevice && r.device != nil {
		r.device.Destroy()
	}
	if r.instance != nil {
		r.instance.Destroy()
		r.instance = nil
	}

	r.device = device
	r.queue = queue
	r.externalDevice = true

	if err := r.createPipelines(); err != nil {
		r.ready = false
		return fmt.Errorf("gpu: create pipelines with shared device: %w", err)
	}
	r.ready = true
	subdiv.Logger().Info("switched to shared GPU device")
	return nil
}

// Ready reports whether the refiner has a working device and pipelines.
func (r *Refiner) Ready() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ready
}

// Close releases all GPU resources. Shared devices installed via
// SetDeviceProvider are not destroyed.
func (r *Refiner) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.destroyPipelines()
	if !r.externalDevice {
		if r.device != nil {
			r.device.Destroy()
			r.device = nil
		}
		if r.instance != nil {
			r.instance.Destroy()
			r.instance = nil
		}
	} else {
		r.device = nil
		r.instance = nil
	}
	r.queue = nil
	r.ready = false
	r.externalDevice = false
}

// Refine computes the next subdivision level of src on the GPU.
func (r *Refiner) Refine(src *subdiv.Mesh) (*subdiv.Mesh, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.ready {
		return nil, ErrClosed
	}
	return r.dispatch(src)
}

// RefineTo applies Refine depth times.
func (r *Refiner) RefineTo(src *subdiv.Mesh, depth int) (*subdiv.Mesh, error) {
	m := src
	for i := 0; i < depth; i++ {
		next, err := r.Refine(m)
		if err != nil {
			return nil, err
		}
		m = next
	}
	return m, nil
}

func (r *Refiner) dispatch(src *subdiv.Mesh) (*subdiv.Mesh, error) {
	vd, fd, ed := src.NumVerts(), src.NumFaces(), src.NumEdges()
	hd := src.NumHalfEdges()
	out := subdiv.NewLevel(vd+fd+ed, 4*fd, 2*ed+hd)

	params := refineParams{
		vd: int32(vd), fd: int32(fd), ed: int32(ed), hd: int32(hd),
	}
	paramsBytes := structToBytes(unsafe.Pointer(&params), unsafe.Sizeof(params)) //nolint:gosec // safe struct access

	srcTopoSize := uint64(4 * hd)
	dstTopoSize := uint64(16 * hd)
	srcPointsSize := uint64(12 * vd)
	dstPointsSize := uint64(12 * out.NumVerts())
	stagingSize := 3*dstTopoSize + dstPointsSize

	paramsBuf, err := r.createBuffer("refine_params", uint64(len(paramsBytes)),
		gputypes.BufferUsageUniform|gputypes.BufferUsageCopyDst)
	if err != nil {
		return nil, err
	}
	defer r.device.DestroyBuffer(paramsBuf)

	srcUsage := gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst
	srcVertsBuf, err := r.createBuffer("refine_src_verts", srcTopoSize, srcUsage)
	if err != nil {
		return nil, err
	}
	defer r.device.DestroyBuffer(srcVertsBuf)
	srcEdgesBuf, err := r.createBuffer("refine_src_edges", srcTopoSize, srcUsage)
	if err != nil {
		return nil, err
	}
	defer r.device.DestroyBuffer(srcEdgesBuf)
	srcTwinsBuf, err := r.createBuffer("refine_src_twins", srcTopoSize, srcUsage)
	if err != nil {
		return nil, err
	}
	defer r.device.DestroyBuffer(srcTwinsBuf)
	srcPointsBuf, err := r.createBuffer("refine_src_points", srcPointsSize, srcUsage)
	if err != nil {
		return nil, err
	}
	defer r.device.DestroyBuffer(srcPointsBuf)

	dstUsage := gputypes.BufferUsageStorage | gputypes.BufferUsageCopySrc | gputypes.BufferUsageCopyDst
	dstVertsBuf, err := r.createBuffer("refine_dst_verts", dstTopoSize, dstUsage)
	if err != nil {
		return nil, err
	}
	defer r.device.DestroyBuffer(dstVertsBuf)
	dstEdgesBuf, err := r.createBuffer("refine_dst_edges", dstTopoSize, dstUsage)
	if err != nil {
		return nil, err
	}
	defer r.device.DestroyBuffer(dstEdgesBuf)
	dstTwinsBuf, err := r.createBuffer("refine_dst_twins", dstTopoSize, dstUsage)
	if err != nil {
		return nil, err
	}
	defer r.device.DestroyBuffer(dstTwinsBuf)
	dstPointsBuf, err := r.createBuffer("refine_dst_points", dstPointsSize, dstUsage)
	if err != nil {
		return nil, err
	}
	defer r.device.DestroyBuffer(dstPointsBuf)

	stagingBuf, err := r.createBuffer("refine_staging", stagingSize,
		gputypes.BufferUsageMapRead|gputypes.BufferUsageCopyDst)
	if err != nil {
		return nil, err
	}
	defer r.device.DestroyBuffer(stagingBuf)

	r.queue.WriteBuffer(paramsBuf, 0, paramsBytes)
	r.queue.WriteBuffer(srcVertsBuf, 0, i32Bytes(src.Verts()))
	r.queue.WriteBuffer(srcEdgesBuf, 0, i32Bytes(src.Edges()))
	r.queue.WriteBuffer(srcTwinsBuf, 0, i32Bytes(src.Twins()))
	r.queue.WriteBuffer(srcPointsBuf, 0, packPoints(src))

	// The point accumulators start at zero; the topology arrays are fully
	// overwritten by the first pass and need no clear.
	r.queue.WriteBuffer(dstPointsBuf, 0, make([]byte, dstPointsSize))

	bindGroup, err := r.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label: "refine_bind", Layout: r.bindLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{Buffer: paramsBuf.NativeHandle(), Offset: 0, Size: uint64(len(paramsBytes))}},
			{Binding: 1, Resource: gputypes.BufferBinding{Buffer: srcVertsBuf.NativeHandle(), Offset: 0, Size: srcTopoSize}},
			{Binding: 2, Resource: gputypes.BufferBinding{Buffer: srcEdgesBuf.NativeHandle(), Offset: 0, Size: srcTopoSize}},
			{Binding: 3, Resource: gputypes.BufferBinding{Buffer: srcTwinsBuf.NativeHandle(), Offset: 0, Size: srcTopoSize}},
			{Binding: 4, Resource: gputypes.BufferBinding{Buffer: srcPointsBuf.NativeHandle(), Offset: 0, Size: srcPointsSize}},
			{Binding: 5, Resource: gputypes.BufferBinding{Buffer: dstVertsBuf.NativeHandle(), Offset: 0, Size: dstTopoSize}},
			{Binding: 6, Resource: gputypes.BufferBinding{Buffer: dstEdgesBuf.NativeHandle(), Offset: 0, Size: dstTopoSize}},
			{Binding: 7, Resource: gputypes.BufferBinding{Buffer: dstTwinsBuf.NativeHandle(), Offset: 0, Size: dstTopoSize}},
			{Binding: 8, Resource: gputypes.BufferBinding{Buffer: dstPointsBuf.NativeHandle(), Offset: 0, Size: dstPointsSize}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: create bind group: %w", err)
	}
	defer r.device.DestroyBindGroup(bindGroup)

	encoder, err := r.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "refine_encoder"})
	if err != nil {
		return nil, fmt.Errorf("gpu: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("refine"); err != nil {
		return nil, fmt.Errorf("gpu: begin encoding: %w", err)
	}

	// One compute pass per refinement pass. The implicit storage barriers
	// between passes order topology -> face -> edge -> vertex.
	groups := uint32((hd + workgroupSize - 1) / workgroupSize) //nolint:gosec // half-edge counts fit uint32
	for i, pipeline := range r.pipelines {
		pass := encoder.BeginComputePass(&hal.ComputePassDescriptor{Label: passEntryPoints[i]})
		pass.SetPipeline(pipeline)
		pass.SetBindGroup(0, bindGroup, nil)
		pass.Dispatch(groups, 1, 1)
		pass.End()
	}

	encoder.CopyBufferToBuffer(dstVertsBuf, stagingBuf, []hal.BufferCopy{
		{SrcOffset: 0, DstOffset: 0, Size: dstTopoSize},
	})
	encoder.CopyBufferToBuffer(dstEdgesBuf, stagingBuf, []hal.BufferCopy{
		{SrcOffset: 0, DstOffset: dstTopoSize, Size: dstTopoSize},
	})
	encoder.CopyBufferToBuffer(dstTwinsBuf, stagingBuf, []hal.BufferCopy{
		{SrcOffset: 0, DstOffset: 2 * dstTopoSize, Size: dstTopoSize},
	})
	encoder.CopyBufferToBuffer(dstPointsBuf, stagingBuf, []hal.BufferCopy{
		{SrcOffset: 0, DstOffset: 3 * dstTopoSize, Size: dstPointsSize},
	})

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return nil, fmt.Errorf("gpu: end encoding: %w", err)
	}
	defer r.device.FreeCommandBuffer(cmdBuf)

	fence, err := r.device.CreateFence()
	if err != nil {
		return nil, fmt.Errorf("gpu: create fence: %w", err)
	}
	defer r.device.DestroyFence(fence)
	if err := r.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		return nil, fmt.Errorf("gpu: submit: %w", err)
	}
	fenceOK, err := r.device.Wait(fence, 1, 5*time.Second)
	if err != nil || !fenceOK {
		return nil, fmt.Errorf("gpu: wait: ok=%v err=%w", fenceOK, err)
	}

	readback := make([]byte, stagingSize)
	if err := r.queue.ReadBuffer(stagingBuf, 0, readback); err != nil {
		return nil, fmt.Errorf("gpu: readback: %w", err)
	}

	copy(i32Bytes(out.Verts()), readback[:dstTopoSize])
	copy(i32Bytes(out.Edges()), readback[dstTopoSize:2*dstTopoSize])
	copy(i32Bytes(out.Twins()), readback[2*dstTopoSize:3*dstTopoSize])
	unpackPoints(out, readback[3*dstTopoSize:])

	subdiv.Logger().Debug("refined level on GPU",
		"halfEdges", hd, "outVerts", out.NumVerts(), "outFaces", out.NumFaces())
	return out, nil
}

func (r *Refiner) createBuffer(label string, size uint64, usage gputypes.BufferUsage) (hal.Buffer, error) {
	buf, err := r.device.CreateBuffer(&hal.BufferDescriptor{
		Label: label, Size: size, Usage: usage,
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: create %s buffer: %w", label, err)
	}
	return buf, nil
}

func (r *Refiner) initGPU() error {
	backend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return fmt.Errorf("%w: vulkan backend not available", ErrNoGPU)
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return fmt.Errorf("gpu: create instance: %w", err)
	}
	r.instance = instance
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		return fmt.Errorf("%w: no adapters found", ErrNoGPU)
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
		return fmt.Errorf("gpu: open device: %w", err)
	}
	r.device = openDev.Device
	r.queue = openDev.Queue
	if err := r.createPipelines(); err != nil {
		r.device.Destroy()
		r.device = nil
		r.queue = nil
		return fmt.Errorf("gpu: create pipelines: %w", err)
	}
	r.ready = true
	subdiv.Logger().Info("GPU refiner initialized", "adapter", selected.Info.Name)
	return nil
}

func (r *Refiner) createPipelines() error {
	module, err := shader.CreateModule(r.device, "refine", refineShaderSource)
	if err != nil {
		return fmt.Errorf("compile refine shader: %w", err)
	}
	r.shaderModule = module

	readOnly := &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeReadOnlyStorage}
	readWrite := &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeStorage}
	bindLayout, err := r.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "refine_bind_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{Binding: 0, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform}},
			{Binding: 1, Visibility: gputypes.ShaderStageCompute, Buffer: readOnly},
			{Binding: 2, Visibility: gputypes.ShaderStageCompute, Buffer: readOnly},
			{Binding: 3, Visibility: gputypes.ShaderStageCompute, Buffer: readOnly},
			{Binding: 4, Visibility: gputypes.ShaderStageCompute, Buffer: readOnly},
			{Binding: 5, Visibility: gputypes.ShaderStageCompute, Buffer: readWrite},
			{Binding: 6, Visibility: gputypes.ShaderStageCompute, Buffer: readWrite},
			{Binding: 7, Visibility: gputypes.ShaderStageCompute, Buffer: readWrite},
			{Binding: 8, Visibility: gputypes.ShaderStageCompute, Buffer: readWrite},
		},
	})
	if err != nil {
		return fmt.Errorf("create bind group layout: %w", err)
	}
	r.bindLayout = bindLayout

	pipeLayout, err := r.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label: "refine_pipe_layout", BindGroupLayouts: []hal.BindGroupLayout{r.bindLayout},
	})
	if err != nil {
		return fmt.Errorf("create pipeline layout: %w", err)
	}
	r.pipeLayout = pipeLayout

	for i, entry := range passEntryPoints {
		pipeline, err := r.device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
			Label: "refine_" + entry, Layout: r.pipeLayout,
			Compute: hal.ComputeState{Module: r.shaderModule, EntryPoint: entry},
		})
		if err != nil {
			return fmt.Errorf("create %s pipeline: %w", entry, err)
		}
		r.pipelines[i] = pipeline
	}
	return nil
}

func (r *Refiner) destroyPipelines() {
	if r.device == nil {
		return
	}
	for i, pipeline := range r.pipelines {
		if pipeline != nil {
			r.device.DestroyComputePipeline(pipeline)
			r.pipelines[i] = nil
		}
	}
	if r.pipeLayout != nil {
		r.device.DestroyPipelineLayout(r.pipeLayout)
		r.pipeLayout = nil
	}
	if r.bindLayout != nil {
		r.device.DestroyBindGroupLayout(r.bindLayout)
		r.bindLayout = nil
	}
	if r.shaderModule != nil {
		r.device.DestroyShaderModule(r.shaderModule)
		r.shaderModule = nil
	}
}

func structToBytes(ptr unsafe.Pointer, size uintptr) []byte {
	return unsafe.Slice((*byte)(ptr), size) //nolint:gosec // safe struct serialization
}

func i32Bytes(s []int32) []byte {
	if len(s) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), 4*len(s)) //nolint:gosec // flat int32 array view
}

// packPoints interleaves the coordinate planes into the xyz layout the
// kernels index.
func packPoints(m *subdiv.Mesh) []byte {
	out := make([]float32, 3*m.NumVerts())
	x, y, z := m.X(), m.Y(), m.Z()
	for i := range x {
		out[3*i] = x[i]
		out[3*i+1] = y[i]
		out[3*i+2] = z[i]
	}
	if len(out) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&out[0])), 4*len(out)) //nolint:gosec // flat float32 array view
}

func unpackPoints(m *subdiv.Mesh, b []byte) {
	n := m.NumVerts()
	if n == 0 {
		return
	}
	pts := unsafe.Slice((*float32)(unsafe.Pointer(&b[0])), 3*n) //nolint:gosec // flat float32 array view
	x, y, z := m.X(), m.Y(), m.Z()
	for i := 0; i < n; i++ {
		x[i] = pts[3*i]
		y[i] = pts[3*i+1]
		z[i] = pts[3*i+2]
	}
}
