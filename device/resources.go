// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package device

import (
	"unsafe"

	"github.com/devblok/raft/gfx"
	vk "github.com/devblok/vulkan"
	"github.com/pkg/errors"
)

// Memory is a device allocation
type Memory struct {
	device vk.Device
	memory vk.DeviceMemory
	size   uint64
}

// Size implements gfx.Memory
func (m *Memory) Size() uint64 {
	return m.size
}

// Map implements gfx.Memory
func (m *Memory) Map() ([]byte, error) {
	var ptr unsafe.Pointer
	if err := call("vk.MapMemory", vk.MapMemory(m.device, m.memory, 0, vk.DeviceSize(m.size), 0, &ptr)); err != nil {
		return nil, err
	}
	return unsafe.Slice((*byte)(ptr), m.size), nil
}

// Unmap implements gfx.Memory
func (m *Memory) Unmap() {
	vk.UnmapMemory(m.device, m.memory)
}

// Release implements gfx.Releasable
func (m *Memory) Release() {
	vk.FreeMemory(m.device, m.memory, nil)
}

// Buffer is a linear device resource
type Buffer struct {
	device vk.Device
	buffer vk.Buffer
	size   uint64
}

// Size implements gfx.Buffer
func (b *Buffer) Size() uint64 {
	return b.size
}

// Requirements implements gfx.Buffer
func (b *Buffer) Requirements() gfx.MemoryRequirements {
	var reqs vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(b.device, b.buffer, &reqs)
	return requirements(reqs)
}

// Bind implements gfx.Buffer
func (b *Buffer) Bind(memory gfx.Memory) error {
	m, ok := memory.(*Memory)
	if !ok {
		return errors.Errorf("foreign memory handle %T", memory)
	}
	return call("vk.BindBufferMemory", vk.BindBufferMemory(b.device, b.buffer, m.memory, 0))
}

// Release implements gfx.Releasable
func (b *Buffer) Release() {
	vk.DestroyBuffer(b.device, b.buffer, nil)
}

// Image is a 2D device image. Swapchain images are owned by their
// swapchain and Release leaves them alone.
type Image struct {
	device    vk.Device
	image     vk.Image
	swapchain bool
}

// Requirements implements gfx.Image
func (i *Image) Requirements() gfx.MemoryRequirements {
	var reqs vk.MemoryRequirements
	vk.GetImageMemoryRequirements(i.device, i.image, &reqs)
	return requirements(reqs)
}

// Bind implements gfx.Image
func (i *Image) Bind(memory gfx.Memory) error {
	if i.swapchain {
		return errors.New("swapchain images come bound")
	}
	m, ok := memory.(*Memory)
	if !ok {
		return errors.Errorf("foreign memory handle %T", memory)
	}
	return call("vk.BindImageMemory", vk.BindImageMemory(i.device, i.image, m.memory, 0))
}

// Release implements gfx.Releasable
func (i *Image) Release() {
	if i.swapchain {
		return
	}
	vk.DestroyImage(i.device, i.image, nil)
}

type imageView struct {
	device vk.Device
	view   vk.ImageView
}

func (v *imageView) Release() {
	vk.DestroyImageView(v.device, v.view, nil)
}

type semaphore struct {
	device    vk.Device
	semaphore vk.Semaphore
}

func (s *semaphore) Release() {
	vk.DestroySemaphore(s.device, s.semaphore, nil)
}

type shaderModule struct {
	device vk.Device
	module vk.ShaderModule
}

func (s *shaderModule) Release() {
	vk.DestroyShaderModule(s.device, s.module, nil)
}

type descriptorSetLayout struct {
	device vk.Device
	layout vk.DescriptorSetLayout
}

func (l *descriptorSetLayout) Release() {
	vk.DestroyDescriptorSetLayout(l.device, l.layout, nil)
}

type pipelineLayout struct {
	device vk.Device
	layout vk.PipelineLayout
}

func (l *pipelineLayout) Release() {
	vk.DestroyPipelineLayout(l.device, l.layout, nil)
}

// DescriptorPool allocates descriptor sets, freed with the pool
type DescriptorPool struct {
	device vk.Device
	pool   vk.DescriptorPool
}

// Allocate implements gfx.DescriptorPool
func (p *DescriptorPool) Allocate(layout gfx.DescriptorSetLayout, count int) ([]gfx.DescriptorSet, error) {
	l, ok := layout.(*descriptorSetLayout)
	if !ok {
		return nil, errors.Errorf("foreign descriptor set layout %T", layout)
	}
	if count < 1 {
		return nil, errors.Errorf("invalid descriptor set count %d", count)
	}
	layouts := make([]vk.DescriptorSetLayout, count)
	for i := range layouts {
		layouts[i] = l.layout
	}
	allocInfo := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     p.pool,
		DescriptorSetCount: uint32(count),
		PSetLayouts:        layouts,
	}
	sets := make([]vk.DescriptorSet, count)
	if err := call("vk.AllocateDescriptorSets", vk.AllocateDescriptorSets(p.device, &allocInfo, &sets[0])); err != nil {
		return nil, err
	}
	out := make([]gfx.DescriptorSet, 0, count)
	for _, set := range sets {
		out = append(out, set)
	}
	return out, nil
}

// Release implements gfx.Releasable
func (p *DescriptorPool) Release() {
	vk.DestroyDescriptorPool(p.device, p.pool, nil)
}

type renderPass struct {
	device vk.Device
	pass   vk.RenderPass

	// depthAttachment is -1 without a depth attachment
	depthAttachment int
}

func (r *renderPass) Release() {
	vk.DestroyRenderPass(r.device, r.pass, nil)
}

type framebuffer struct {
	device      vk.Device
	framebuffer vk.Framebuffer
}

func (f *framebuffer) Release() {
	vk.DestroyFramebuffer(f.device, f.framebuffer, nil)
}

type pipeline struct {
	device   vk.Device
	pipeline vk.Pipeline
}

func (p *pipeline) Release() {
	vk.DestroyPipeline(p.device, p.pipeline, nil)
}
