// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package gfx defines the graphics API surface that the rendering context is
// built on. Backends (the Vulkan one in package device, the in-memory one in
// gfxtest) implement these interfaces; handles created by one backend may only
// be passed back into the same backend.
package gfx

// InfiniteTimeout is the largest representable wait, in nanoseconds.
const InfiniteTimeout = ^uint64(0)

// Releasable defines any memory-occupying item that can be freed.
type Releasable interface {

	// Release releases memory occupied by the implementing structure.
	Release()
}

// Surface is an opaque presentation target handed over by the windowing layer.
// The rendering context never owns it.
type Surface interface {
	Inner() interface{}
}

// Instance enumerates the accelerators of a graphics API instance.
type Instance interface {
	Releasable

	// Accelerators returns every physical device, in enumeration order.
	Accelerators() ([]Accelerator, error)
}

// Accelerator is a physical device. Its capability tables never change
// once enumerated.
type Accelerator interface {
	Properties() AcceleratorProperties
	QueueFamilies() []QueueFamily
	MemoryTypes() []MemoryType

	SupportsPresent(family int, surface Surface) (bool, error)
	SurfaceCapabilities(surface Surface) (SurfaceCapabilities, error)
	SurfaceFormats(surface Surface) ([]SurfaceFormat, error)
	PresentModes(surface Surface) ([]PresentMode, error)

	// CreateDevice creates a logical device with one queue in each of the
	// given (distinct) families.
	CreateDevice(families []int, extensions []string) (Device, error)
}

// Device is a logical device. Every object it creates must be released
// before the device itself.
type Device interface {
	Releasable

	Queue(family int) Queue
	WaitIdle() error

	CreateCommandPool(family int) (CommandPool, error)
	CreateBuffer(size uint64, usage BufferUsage) (Buffer, error)
	CreateImage(info ImageInfo) (Image, error)
	AllocateMemory(size uint64, memoryType int) (Memory, error)
	CreateImageView(info ImageViewInfo) (ImageView, error)
	CreateSwapchain(info SwapchainInfo) (Swapchain, error)
	CreateFence(signaled bool) (Fence, error)
	CreateSemaphore() (Semaphore, error)
	CreateShaderModule(code []byte) (ShaderModule, error)
	CreateDescriptorSetLayout(bindings []DescriptorBinding) (DescriptorSetLayout, error)
	CreatePipelineLayout(layouts []DescriptorSetLayout) (PipelineLayout, error)
	CreateDescriptorPool(maxSets int, sizes []DescriptorPoolSize) (DescriptorPool, error)
	UpdateDescriptorSets(writes []DescriptorWrite)
	CreateRenderPass(info RenderPassInfo) (RenderPass, error)
	CreateFramebuffer(info FramebufferInfo) (Framebuffer, error)
	CreateGraphicsPipeline(info GraphicsPipelineInfo) (Pipeline, error)
}

// Queue accepts command buffer submissions.
type Queue interface {
	Submit(info SubmitInfo, fence Fence) error
	Present(info PresentInfo) error
	WaitIdle() error
}

// CommandPool allocates command buffers for a single queue family.
type CommandPool interface {
	Releasable

	Allocate(count int) ([]CommandBuffer, error)
}

// CommandBuffer records commands. Release returns it to its pool.
type CommandBuffer interface {
	Releasable

	Begin(usage CommandBufferUsage) error
	End() error

	CopyBuffer(src, dst Buffer, size uint64)
	BeginRenderPass(info RenderPassBegin)
	EndRenderPass()
	BindPipeline(pipeline Pipeline)
	BindDescriptorSets(layout PipelineLayout, sets []DescriptorSet)
	BindVertexBuffer(buffer Buffer)
	BindIndexBuffer(buffer Buffer, indexType IndexType)
	SetViewport(viewport Viewport)
	DrawIndexed(indexCount int)
}

// Memory is a device memory allocation.
type Memory interface {
	Releasable

	Size() uint64

	// Map maps the whole allocation into host address space.
	Map() ([]byte, error)
	Unmap()
}

// Buffer is a linear resource that needs memory bound before use.
type Buffer interface {
	Releasable

	Size() uint64
	Requirements() MemoryRequirements
	Bind(memory Memory) error
}

// Image is a 2D resource. Images owned by a swapchain are never released
// individually.
type Image interface {
	Releasable

	Requirements() MemoryRequirements
	Bind(memory Memory) error
}

// Swapchain is the ordered set of presentable images.
type Swapchain interface {
	Releasable

	Images() ([]Image, error)

	// AcquireNextImage returns the index of the next presentable image and
	// signals semaphore when it is ready for rendering.
	AcquireNextImage(timeout uint64, semaphore Semaphore) (int, error)
}

// Fence is a GPU to host synchronization primitive.
type Fence interface {
	Releasable

	// Wait blocks until the fence is signaled or timeout nanoseconds pass.
	Wait(timeout uint64) error
}

// DescriptorPool allocates descriptor sets. Sets are freed with the pool.
type DescriptorPool interface {
	Releasable

	Allocate(layout DescriptorSetLayout, count int) ([]DescriptorSet, error)
}

// Opaque device objects.
type (
	ImageView           interface{ Releasable }
	Semaphore           interface{ Releasable }
	ShaderModule        interface{ Releasable }
	DescriptorSetLayout interface{ Releasable }
	DescriptorSet       interface{}
	PipelineLayout      interface{ Releasable }
	RenderPass          interface{ Releasable }
	Framebuffer         interface{ Releasable }
	Pipeline            interface{ Releasable }
)
