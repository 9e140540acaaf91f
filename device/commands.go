// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package device

import (
	"github.com/devblok/raft/gfx"
	vk "github.com/devblok/vulkan"
	"github.com/pkg/errors"
)

// CommandPool allocates primary command buffers
type CommandPool struct {
	device vk.Device
	pool   vk.CommandPool
}

// Allocate implements gfx.CommandPool
func (p *CommandPool) Allocate(count int) ([]gfx.CommandBuffer, error) {
	allocInfo := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        p.pool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: uint32(count),
	}
	buffers := make([]vk.CommandBuffer, count)
	if err := call("vk.AllocateCommandBuffers", vk.AllocateCommandBuffers(p.device, &allocInfo, buffers)); err != nil {
		return nil, err
	}
	out := make([]gfx.CommandBuffer, 0, count)
	for _, b := range buffers {
		out = append(out, &CommandBuffer{pool: p, buffer: b})
	}
	return out, nil
}

// Release implements gfx.Releasable
func (p *CommandPool) Release() {
	vk.DestroyCommandPool(p.device, p.pool, nil)
}

// CommandBuffer records into a vk.CommandBuffer. Recording calls with
// foreign handles are dropped and reported by End.
type CommandBuffer struct {
	pool   *CommandPool
	buffer vk.CommandBuffer
	err    error
}

func (cb *CommandBuffer) fail(format string, args ...interface{}) {
	if cb.err == nil {
		cb.err = errors.Errorf(format, args...)
	}
}

// Begin implements gfx.CommandBuffer
func (cb *CommandBuffer) Begin(usage gfx.CommandBufferUsage) error {
	cb.err = nil
	beginInfo := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(usage),
	}
	return call("vk.BeginCommandBuffer", vk.BeginCommandBuffer(cb.buffer, &beginInfo))
}

// End implements gfx.CommandBuffer
func (cb *CommandBuffer) End() error {
	if err := call("vk.EndCommandBuffer", vk.EndCommandBuffer(cb.buffer)); err != nil {
		return err
	}
	return cb.err
}

// CopyBuffer implements gfx.CommandBuffer
func (cb *CommandBuffer) CopyBuffer(src, dst gfx.Buffer, size uint64) {
	s, ok := src.(*Buffer)
	if !ok {
		cb.fail("copy: foreign source buffer %T", src)
		return
	}
	d, ok := dst.(*Buffer)
	if !ok {
		cb.fail("copy: foreign destination buffer %T", dst)
		return
	}
	vk.CmdCopyBuffer(cb.buffer, s.buffer, d.buffer, 1, []vk.BufferCopy{{
		Size: vk.DeviceSize(size),
	}})
}

// BeginRenderPass implements gfx.CommandBuffer
func (cb *CommandBuffer) BeginRenderPass(info gfx.RenderPassBegin) {
	rp, ok := info.RenderPass.(*renderPass)
	if !ok {
		cb.fail("begin render pass: foreign render pass %T", info.RenderPass)
		return
	}
	fb, ok := info.Framebuffer.(*framebuffer)
	if !ok {
		cb.fail("begin render pass: foreign framebuffer %T", info.Framebuffer)
		return
	}
	values := clearValues(info.ClearValues, rp.depthAttachment)
	beginInfo := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  rp.pass,
		Framebuffer: fb.framebuffer,
		RenderArea: vk.Rect2D{
			Offset: vk.Offset2D{X: 0, Y: 0},
			Extent: extent(info.Extent),
		},
		ClearValueCount: uint32(len(values)),
		PClearValues:    values,
	}
	vk.CmdBeginRenderPass(cb.buffer, &beginInfo, vk.SubpassContentsInline)
}

// EndRenderPass implements gfx.CommandBuffer
func (cb *CommandBuffer) EndRenderPass() {
	vk.CmdEndRenderPass(cb.buffer)
}

// BindPipeline implements gfx.CommandBuffer
func (cb *CommandBuffer) BindPipeline(p gfx.Pipeline) {
	pl, ok := p.(*pipeline)
	if !ok {
		cb.fail("bind pipeline: foreign pipeline %T", p)
		return
	}
	vk.CmdBindPipeline(cb.buffer, vk.PipelineBindPointGraphics, pl.pipeline)
}

// BindDescriptorSets implements gfx.CommandBuffer
func (cb *CommandBuffer) BindDescriptorSets(layout gfx.PipelineLayout, sets []gfx.DescriptorSet) {
	l, ok := layout.(*pipelineLayout)
	if !ok {
		cb.fail("bind descriptor sets: foreign pipeline layout %T", layout)
		return
	}
	vkSets := make([]vk.DescriptorSet, 0, len(sets))
	for _, s := range sets {
		set, ok := s.(vk.DescriptorSet)
		if !ok {
			cb.fail("bind descriptor sets: foreign descriptor set %T", s)
			return
		}
		vkSets = append(vkSets, set)
	}
	vk.CmdBindDescriptorSets(cb.buffer, vk.PipelineBindPointGraphics, l.layout, 0, uint32(len(vkSets)), vkSets, 0, nil)
}

// BindVertexBuffer implements gfx.CommandBuffer
func (cb *CommandBuffer) BindVertexBuffer(buffer gfx.Buffer) {
	b, ok := buffer.(*Buffer)
	if !ok {
		cb.fail("bind vertex buffer: foreign buffer %T", buffer)
		return
	}
	vk.CmdBindVertexBuffers(cb.buffer, 0, 1, []vk.Buffer{b.buffer}, []vk.DeviceSize{0})
}

// BindIndexBuffer implements gfx.CommandBuffer
func (cb *CommandBuffer) BindIndexBuffer(buffer gfx.Buffer, indexType gfx.IndexType) {
	b, ok := buffer.(*Buffer)
	if !ok {
		cb.fail("bind index buffer: foreign buffer %T", buffer)
		return
	}
	vk.CmdBindIndexBuffer(cb.buffer, b.buffer, 0, vk.IndexType(indexType))
}

// SetViewport implements gfx.CommandBuffer. The scissor follows the
// viewport rectangle.
func (cb *CommandBuffer) SetViewport(v gfx.Viewport) {
	vk.CmdSetViewport(cb.buffer, 0, 1, []vk.Viewport{viewport(v)})
	vk.CmdSetScissor(cb.buffer, 0, 1, []vk.Rect2D{scissor(v)})
}

// DrawIndexed implements gfx.CommandBuffer
func (cb *CommandBuffer) DrawIndexed(indexCount int) {
	vk.CmdDrawIndexed(cb.buffer, uint32(indexCount), 1, 0, 0, 0)
}

// Release returns the buffer to its pool
func (cb *CommandBuffer) Release() {
	vk.FreeCommandBuffers(cb.pool.device, cb.pool.pool, 1, []vk.CommandBuffer{cb.buffer})
}

// Fence is a GPU to host signal
type Fence struct {
	device vk.Device
	fence  vk.Fence
}

// Wait implements gfx.Fence
func (f *Fence) Wait(timeout uint64) error {
	result := vk.WaitForFences(f.device, 1, []vk.Fence{f.fence}, vk.True, uint(timeout))
	if result == vk.Timeout {
		return ErrTimeout
	}
	return call("vk.WaitForFences", result)
}

// Release implements gfx.Releasable
func (f *Fence) Release() {
	vk.DestroyFence(f.device, f.fence, nil)
}

// Queue is a device queue
type Queue struct {
	queue vk.Queue
}

func semaphores(list []gfx.Semaphore) ([]vk.Semaphore, error) {
	out := make([]vk.Semaphore, 0, len(list))
	for _, s := range list {
		sem, ok := s.(*semaphore)
		if !ok {
			return nil, errors.Errorf("foreign semaphore %T", s)
		}
		out = append(out, sem.semaphore)
	}
	return out, nil
}

// Submit implements gfx.Queue
func (q *Queue) Submit(info gfx.SubmitInfo, fence gfx.Fence) error {
	wait, err := semaphores(info.WaitSemaphores)
	if err != nil {
		return err
	}
	signal, err := semaphores(info.SignalSemaphores)
	if err != nil {
		return err
	}
	stages := make([]vk.PipelineStageFlags, 0, len(info.WaitStages))
	for _, s := range info.WaitStages {
		stages = append(stages, vk.PipelineStageFlags(s))
	}
	buffers := make([]vk.CommandBuffer, 0, len(info.CommandBuffers))
	for _, b := range info.CommandBuffers {
		cb, ok := b.(*CommandBuffer)
		if !ok {
			return errors.Errorf("foreign command buffer %T", b)
		}
		buffers = append(buffers, cb.buffer)
	}

	var vkFence vk.Fence
	if fence != nil {
		f, ok := fence.(*Fence)
		if !ok {
			return errors.Errorf("foreign fence %T", fence)
		}
		vkFence = f.fence
	}

	submitInfo := []vk.SubmitInfo{{
		SType:                vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount:   uint32(len(wait)),
		PWaitSemaphores:      wait,
		PWaitDstStageMask:    stages,
		CommandBufferCount:   uint32(len(buffers)),
		PCommandBuffers:      buffers,
		SignalSemaphoreCount: uint32(len(signal)),
		PSignalSemaphores:    signal,
	}}
	return call("vk.QueueSubmit", vk.QueueSubmit(q.queue, 1, submitInfo, vkFence))
}

// Present implements gfx.Queue
func (q *Queue) Present(info gfx.PresentInfo) error {
	wait, err := semaphores(info.WaitSemaphores)
	if err != nil {
		return err
	}
	sc, ok := info.Swapchain.(*Swapchain)
	if !ok {
		return errors.Errorf("foreign swapchain %T", info.Swapchain)
	}
	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: uint32(len(wait)),
		PWaitSemaphores:    wait,
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{sc.swapchain},
		PImageIndices:      []uint32{uint32(info.ImageIndex)},
	}
	switch result := vk.QueuePresent(q.queue, &presentInfo); result {
	case vk.ErrorOutOfDate:
		return ErrOutOfDate
	case vk.Suboptimal:
		return nil
	default:
		return call("vk.QueuePresent", result)
	}
}

// WaitIdle implements gfx.Queue
func (q *Queue) WaitIdle() error {
	return call("vk.QueueWaitIdle", vk.QueueWaitIdle(q.queue))
}

// Swapchain is a Vulkan swapchain
type Swapchain struct {
	device    vk.Device
	swapchain vk.Swapchain
}

// Images implements gfx.Swapchain
func (s *Swapchain) Images() ([]gfx.Image, error) {
	var imageCount uint32
	if err := call("vk.GetSwapchainImages", vk.GetSwapchainImages(s.device, s.swapchain, &imageCount, nil)); err != nil {
		return nil, err
	}
	images := make([]vk.Image, imageCount)
	if err := call("vk.GetSwapchainImages", vk.GetSwapchainImages(s.device, s.swapchain, &imageCount, images)); err != nil {
		return nil, err
	}
	out := make([]gfx.Image, 0, len(images))
	for _, img := range images {
		out = append(out, &Image{device: s.device, image: img, swapchain: true})
	}
	return out, nil
}

// AcquireNextImage implements gfx.Swapchain
func (s *Swapchain) AcquireNextImage(timeout uint64, sem gfx.Semaphore) (int, error) {
	signal, ok := sem.(*semaphore)
	if !ok {
		return 0, errors.Errorf("foreign semaphore %T", sem)
	}
	var index uint32
	switch result := vk.AcquireNextImage(s.device, s.swapchain, uint(timeout), signal.semaphore, nil, &index); result {
	case vk.ErrorOutOfDate:
		return 0, ErrOutOfDate
	case vk.Timeout, vk.NotReady:
		return 0, ErrTimeout
	case vk.Suboptimal:
		return int(index), nil
	default:
		if err := call("vk.AcquireNextImage", result); err != nil {
			return 0, err
		}
		return int(index), nil
	}
}

// Release implements gfx.Releasable
func (s *Swapchain) Release() {
	vk.DestroySwapchain(s.device, s.swapchain, nil)
}
