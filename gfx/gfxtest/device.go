// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package gfxtest

import (
	"encoding/binary"
	"sync"

	"github.com/devblok/raft/gfx"
	"github.com/pkg/errors"
)

const resourceAlignment = 16

// Device is a fake logical device.
type Device struct {
	*handle

	acc        *Accelerator
	families   []int
	extensions []string
	queues     map[int]*Queue

	// pending counts submissions not yet executed.
	pending sync.WaitGroup
}

// Accelerator returns the accelerator the device was created from.
func (d *Device) Accelerator() *Accelerator {
	return d.acc
}

// Families returns the queue families requested at creation.
func (d *Device) Families() []int {
	return append([]int(nil), d.families...)
}

// Extensions returns the extensions requested at creation.
func (d *Device) Extensions() []string {
	return append([]string(nil), d.extensions...)
}

// Release implements gfx.Releasable.
func (d *Device) Release() {
	d.release()
}

// Queue implements gfx.Device. It returns nil for families the device
// was not created with.
func (d *Device) Queue(family int) gfx.Queue {
	q, ok := d.queues[family]
	if !ok {
		return nil
	}
	return q
}

// WaitIdle implements gfx.Device.
func (d *Device) WaitIdle() error {
	d.pending.Wait()
	return nil
}

// CreateCommandPool implements gfx.Device.
func (d *Device) CreateCommandPool(family int) (gfx.CommandPool, error) {
	if _, ok := d.queues[family]; !ok {
		return nil, errors.Errorf("device has no queue in family %d", family)
	}
	return &CommandPool{handle: d.reg.track("command-pool", d.handle), device: d, family: family}, nil
}

// CreateBuffer implements gfx.Device.
func (d *Device) CreateBuffer(size uint64, usage gfx.BufferUsage) (gfx.Buffer, error) {
	if size == 0 {
		return nil, errors.New("buffer size must be greater than zero")
	}
	return &Buffer{
		handle: d.reg.track("buffer", d.handle),
		device: d,
		size:   size,
		usage:  usage,
	}, nil
}

// CreateImage implements gfx.Device.
func (d *Device) CreateImage(info gfx.ImageInfo) (gfx.Image, error) {
	if info.Extent.Width == 0 || info.Extent.Height == 0 {
		return nil, errors.New("image extent must be non-zero")
	}
	return &Image{
		handle: d.reg.track("image", d.handle),
		device: d,
		info:   info,
	}, nil
}

// AllocateMemory implements gfx.Device.
func (d *Device) AllocateMemory(size uint64, memoryType int) (gfx.Memory, error) {
	if memoryType < 0 || memoryType >= len(d.acc.cfg.MemoryTypes) {
		return nil, errors.Errorf("memory type %d out of range", memoryType)
	}
	return &Memory{
		handle:     d.reg.track("memory", d.handle),
		typeIndex:  memoryType,
		properties: d.acc.cfg.MemoryTypes[memoryType].Properties,
		data:       make([]byte, size),
	}, nil
}

// CreateImageView implements gfx.Device.
func (d *Device) CreateImageView(info gfx.ImageViewInfo) (gfx.ImageView, error) {
	img, ok := info.Image.(*Image)
	if !ok || img == nil {
		return nil, errors.New("image view needs a gfxtest image")
	}
	parent := img.handle
	if img.owner != nil {
		parent = img.owner.handle
	}
	return &ImageView{handle: d.reg.track("image-view", d.handle, parent), Info: info}, nil
}

// CreateFence implements gfx.Device.
func (d *Device) CreateFence(signaled bool) (gfx.Fence, error) {
	f := &Fence{handle: d.reg.track("fence", d.handle), done: make(chan struct{})}
	if signaled {
		f.signal()
	}
	return f, nil
}

// CreateSemaphore implements gfx.Device.
func (d *Device) CreateSemaphore() (gfx.Semaphore, error) {
	return &Semaphore{handle: d.reg.track("semaphore", d.handle)}, nil
}

// CreateShaderModule implements gfx.Device. The blob must be a whole
// number of words starting with the SPIR-V magic number.
func (d *Device) CreateShaderModule(code []byte) (gfx.ShaderModule, error) {
	if len(code) < 4 || len(code)%4 != 0 {
		return nil, errors.Errorf("shader code of %d bytes is not a whole number of words", len(code))
	}
	if binary.LittleEndian.Uint32(code) != SPIRVMagic {
		return nil, errors.New("shader code does not start with the SPIR-V magic number")
	}
	return &ShaderModule{handle: d.reg.track("shader-module", d.handle), Code: append([]byte(nil), code...)}, nil
}

// CreateDescriptorSetLayout implements gfx.Device.
func (d *Device) CreateDescriptorSetLayout(bindings []gfx.DescriptorBinding) (gfx.DescriptorSetLayout, error) {
	return &DescriptorSetLayout{
		handle:   d.reg.track("descriptor-set-layout", d.handle),
		Bindings: append([]gfx.DescriptorBinding(nil), bindings...),
	}, nil
}

// CreatePipelineLayout implements gfx.Device.
func (d *Device) CreatePipelineLayout(layouts []gfx.DescriptorSetLayout) (gfx.PipelineLayout, error) {
	parents := []*handle{d.handle}
	for _, l := range layouts {
		dl, ok := l.(*DescriptorSetLayout)
		if !ok {
			return nil, errors.New("pipeline layout needs gfxtest descriptor set layouts")
		}
		parents = append(parents, dl.handle)
	}
	return &PipelineLayout{handle: d.reg.track("pipeline-layout", parents...), SetLayouts: layouts}, nil
}

// CreateDescriptorPool implements gfx.Device.
func (d *Device) CreateDescriptorPool(maxSets int, sizes []gfx.DescriptorPoolSize) (gfx.DescriptorPool, error) {
	if maxSets <= 0 {
		return nil, errors.New("descriptor pool needs at least one set")
	}
	capacity := make(map[gfx.DescriptorType]int)
	for _, s := range sizes {
		capacity[s.Type] += s.Count
	}
	return &DescriptorPool{
		handle:   d.reg.track("descriptor-pool", d.handle),
		maxSets:  maxSets,
		capacity: capacity,
	}, nil
}

// UpdateDescriptorSets implements gfx.Device.
func (d *Device) UpdateDescriptorSets(writes []gfx.DescriptorWrite) {
	for _, w := range writes {
		set, ok := w.Set.(*DescriptorSet)
		if !ok {
			d.reg.mu.Lock()
			d.reg.violations = append(d.reg.violations, "descriptor write to a foreign set")
			d.reg.mu.Unlock()
			continue
		}
		set.mu.Lock()
		set.writes[w.Binding] = w
		set.mu.Unlock()
	}
}

// CreateRenderPass implements gfx.Device.
func (d *Device) CreateRenderPass(info gfx.RenderPassInfo) (gfx.RenderPass, error) {
	refs := append([]gfx.AttachmentReference(nil), info.Color...)
	if info.Depth != nil {
		refs = append(refs, *info.Depth)
	}
	for _, r := range refs {
		if r.Attachment < 0 || r.Attachment >= len(info.Attachments) {
			return nil, errors.Errorf("attachment reference %d out of range", r.Attachment)
		}
	}
	return &RenderPass{handle: d.reg.track("render-pass", d.handle), Info: info}, nil
}

// CreateFramebuffer implements gfx.Device.
func (d *Device) CreateFramebuffer(info gfx.FramebufferInfo) (gfx.Framebuffer, error) {
	rp, ok := info.RenderPass.(*RenderPass)
	if !ok {
		return nil, errors.New("framebuffer needs a gfxtest render pass")
	}
	if len(info.Attachments) != len(rp.Info.Attachments) {
		return nil, errors.Errorf("framebuffer has %d attachments, render pass declares %d",
			len(info.Attachments), len(rp.Info.Attachments))
	}
	parents := []*handle{d.handle, rp.handle}
	for _, a := range info.Attachments {
		v, ok := a.(*ImageView)
		if !ok {
			return nil, errors.New("framebuffer needs gfxtest image views")
		}
		parents = append(parents, v.handle)
	}
	return &Framebuffer{handle: d.reg.track("framebuffer", parents...), Info: info}, nil
}

// CreateGraphicsPipeline implements gfx.Device.
func (d *Device) CreateGraphicsPipeline(info gfx.GraphicsPipelineInfo) (gfx.Pipeline, error) {
	layout, ok := info.Layout.(*PipelineLayout)
	if !ok {
		return nil, errors.New("pipeline needs a gfxtest pipeline layout")
	}
	rp, ok := info.RenderPass.(*RenderPass)
	if !ok {
		return nil, errors.New("pipeline needs a gfxtest render pass")
	}
	if len(info.Stages) == 0 {
		return nil, errors.New("pipeline has no shader stages")
	}
	for _, s := range info.Stages {
		m, ok := s.Module.(*ShaderModule)
		if !ok || m.Released() {
			return nil, errors.New("pipeline stage needs a live gfxtest shader module")
		}
	}
	return &Pipeline{handle: d.reg.track("pipeline", d.handle, layout.handle, rp.handle), Info: info}, nil
}

// Memory is host memory standing in for a device allocation.
type Memory struct {
	*handle

	typeIndex  int
	properties gfx.MemoryProperty

	mu     sync.Mutex
	data   []byte
	mapped bool
}

// Release implements gfx.Releasable.
func (m *Memory) Release() {
	m.release()
}

// Size implements gfx.Memory.
func (m *Memory) Size() uint64 {
	return uint64(len(m.data))
}

// TypeIndex returns the memory type the allocation was made from.
func (m *Memory) TypeIndex() int {
	return m.typeIndex
}

// Map implements gfx.Memory. Only host-visible memory can be mapped.
func (m *Memory) Map() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.properties&gfx.MemoryHostVisible == 0 {
		return nil, errors.Errorf("%s is not host visible", m.handle)
	}
	if m.mapped {
		return nil, errors.Errorf("%s is already mapped", m.handle)
	}
	m.mapped = true
	return m.data, nil
}

// Unmap implements gfx.Memory.
func (m *Memory) Unmap() {
	m.mu.Lock()
	m.mapped = false
	m.mu.Unlock()
}

// Mapped reports whether the memory is currently mapped.
func (m *Memory) Mapped() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mapped
}

// Bytes returns a copy of the allocation contents.
func (m *Memory) Bytes() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.data...)
}

// Buffer is a fake buffer.
type Buffer struct {
	*handle

	device *Device
	size   uint64
	usage  gfx.BufferUsage
	memory *Memory
}

// Release implements gfx.Releasable.
func (b *Buffer) Release() {
	b.release()
}

// Size implements gfx.Buffer.
func (b *Buffer) Size() uint64 {
	return b.size
}

// Usage returns the usage flags the buffer was created with.
func (b *Buffer) Usage() gfx.BufferUsage {
	return b.usage
}

// Memory returns the bound memory, if any.
func (b *Buffer) Memory() *Memory {
	return b.memory
}

// Requirements implements gfx.Buffer.
func (b *Buffer) Requirements() gfx.MemoryRequirements {
	return gfx.MemoryRequirements{
		Size:      align(b.size),
		Alignment: resourceAlignment,
		TypeBits:  b.device.acc.typeBits(),
	}
}

// Bind implements gfx.Buffer.
func (b *Buffer) Bind(memory gfx.Memory) error {
	m, err := bindable(b.handle, b.memory != nil, memory, b.Requirements())
	if err != nil {
		return err
	}
	b.memory = m
	b.depend(m.handle)
	return nil
}

// Contents reads back the bytes stored in the buffer.
func (b *Buffer) Contents() []byte {
	if b.memory == nil {
		return nil
	}
	return b.memory.Bytes()[:b.size]
}

// Image is a fake image. Swapchain images have an owner and are not
// tracked individually.
type Image struct {
	*handle

	device *Device
	owner  *Swapchain
	info   gfx.ImageInfo
	memory *Memory
}

// Release implements gfx.Releasable.
func (i *Image) Release() {
	if i.owner != nil {
		return
	}
	i.release()
}

// Info returns the image description.
func (i *Image) Info() gfx.ImageInfo {
	return i.info
}

// Memory returns the bound memory, if any.
func (i *Image) Memory() *Memory {
	return i.memory
}

// Requirements implements gfx.Image.
func (i *Image) Requirements() gfx.MemoryRequirements {
	texel := uint64(4)
	if i.info.Format == gfx.FormatD16Unorm {
		texel = 2
	}
	return gfx.MemoryRequirements{
		Size:      align(uint64(i.info.Extent.Width) * uint64(i.info.Extent.Height) * texel),
		Alignment: resourceAlignment,
		TypeBits:  i.device.acc.typeBits(),
	}
}

// Bind implements gfx.Image.
func (i *Image) Bind(memory gfx.Memory) error {
	if i.owner != nil {
		return errors.New("swapchain images cannot be bound to memory")
	}
	m, err := bindable(i.handle, i.memory != nil, memory, i.Requirements())
	if err != nil {
		return err
	}
	i.memory = m
	i.depend(m.handle)
	return nil
}

func bindable(h *handle, bound bool, memory gfx.Memory, req gfx.MemoryRequirements) (*Memory, error) {
	if bound {
		return nil, errors.Errorf("%s already has memory bound", h)
	}
	m, ok := memory.(*Memory)
	if !ok || m == nil {
		return nil, errors.Errorf("%s needs gfxtest memory", h)
	}
	if m.Released() {
		return nil, errors.Errorf("%s bound to released %s", h, m.handle)
	}
	if req.TypeBits&(1<<uint(m.typeIndex)) == 0 {
		return nil, errors.Errorf("%s does not accept memory type %d", h, m.typeIndex)
	}
	if m.Size() < req.Size {
		return nil, errors.Errorf("%s needs %d bytes, %s has %d", h, req.Size, m.handle, m.Size())
	}
	return m, nil
}

func align(size uint64) uint64 {
	return (size + resourceAlignment - 1) &^ (resourceAlignment - 1)
}

// Opaque fake objects.

// ImageView is a fake image view.
type ImageView struct {
	*handle
	Info gfx.ImageViewInfo
}

// Release implements gfx.Releasable.
func (v *ImageView) Release() { v.release() }

// Semaphore is a fake binary semaphore.
type Semaphore struct {
	*handle

	mu       sync.Mutex
	signaled bool
}

// Release implements gfx.Releasable.
func (s *Semaphore) Release() { s.release() }

// Signaled reports whether a signal is pending on the semaphore.
func (s *Semaphore) Signaled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.signaled
}

func (s *Semaphore) signal() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.signaled {
		return errors.Errorf("%s signaled twice", s.handle)
	}
	s.signaled = true
	return nil
}

func (s *Semaphore) consume() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.signaled {
		return errors.Errorf("wait on unsignaled %s", s.handle)
	}
	s.signaled = false
	return nil
}

// ShaderModule is a fake shader module.
type ShaderModule struct {
	*handle
	Code []byte
}

// Release implements gfx.Releasable.
func (m *ShaderModule) Release() { m.release() }

// DescriptorSetLayout is a fake descriptor set layout.
type DescriptorSetLayout struct {
	*handle
	Bindings []gfx.DescriptorBinding
}

// Release implements gfx.Releasable.
func (l *DescriptorSetLayout) Release() { l.release() }

// PipelineLayout is a fake pipeline layout.
type PipelineLayout struct {
	*handle
	SetLayouts []gfx.DescriptorSetLayout
}

// Release implements gfx.Releasable.
func (l *PipelineLayout) Release() { l.release() }

// RenderPass is a fake render pass.
type RenderPass struct {
	*handle
	Info gfx.RenderPassInfo
}

// Release implements gfx.Releasable.
func (p *RenderPass) Release() { p.release() }

// Framebuffer is a fake framebuffer.
type Framebuffer struct {
	*handle
	Info gfx.FramebufferInfo
}

// Release implements gfx.Releasable.
func (f *Framebuffer) Release() { f.release() }

// Pipeline is a fake graphics pipeline.
type Pipeline struct {
	*handle
	Info gfx.GraphicsPipelineInfo
}

// Release implements gfx.Releasable.
func (p *Pipeline) Release() { p.release() }

// DescriptorPool is a fake descriptor pool.
type DescriptorPool struct {
	*handle

	maxSets  int
	capacity map[gfx.DescriptorType]int
	sets     []*DescriptorSet
}

// Release implements gfx.Releasable. Sets allocated from the pool go with it.
func (p *DescriptorPool) Release() { p.release() }

// Allocate implements gfx.DescriptorPool.
func (p *DescriptorPool) Allocate(layout gfx.DescriptorSetLayout, count int) ([]gfx.DescriptorSet, error) {
	l, ok := layout.(*DescriptorSetLayout)
	if !ok {
		return nil, errors.New("descriptor set needs a gfxtest layout")
	}
	if len(p.sets)+count > p.maxSets {
		return nil, errors.Errorf("descriptor pool holds %d sets, %d requested", p.maxSets, len(p.sets)+count)
	}
	need := make(map[gfx.DescriptorType]int)
	for _, b := range l.Bindings {
		need[b.Type] += b.Count * count
	}
	for t, n := range need {
		if n > p.capacity[t] {
			return nil, errors.Errorf("descriptor pool out of type %d descriptors", t)
		}
	}
	for t, n := range need {
		p.capacity[t] -= n
	}
	out := make([]gfx.DescriptorSet, count)
	for i := range out {
		set := &DescriptorSet{Layout: l, writes: make(map[int]gfx.DescriptorWrite)}
		p.sets = append(p.sets, set)
		p.reg.count("descriptor-set")
		out[i] = set
	}
	return out, nil
}

// DescriptorSet is a fake descriptor set.
type DescriptorSet struct {
	Layout *DescriptorSetLayout

	mu     sync.Mutex
	writes map[int]gfx.DescriptorWrite
}

// Write returns what binding was last updated with.
func (s *DescriptorSet) Write(binding int) (gfx.DescriptorWrite, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.writes[binding]
	return w, ok
}
