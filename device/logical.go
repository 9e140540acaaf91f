// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package device

import (
	"github.com/devblok/raft/core"
	"github.com/devblok/raft/gfx"
	vk "github.com/devblok/vulkan"
	"github.com/pkg/errors"
)

// Device is a Vulkan logical device
type Device struct {
	device      vk.Device
	memoryTypes []gfx.MemoryType
	queues      map[int]*Queue
}

// Queue implements gfx.Device. It returns nil for a family the device
// was not created with.
func (d *Device) Queue(family int) gfx.Queue {
	q, ok := d.queues[family]
	if !ok {
		return nil
	}
	return q
}

// WaitIdle implements gfx.Device
func (d *Device) WaitIdle() error {
	return call("vk.DeviceWaitIdle", vk.DeviceWaitIdle(d.device))
}

// Release implements gfx.Releasable
func (d *Device) Release() {
	vk.DestroyDevice(d.device, nil)
}

// CreateCommandPool implements gfx.Device
func (d *Device) CreateCommandPool(family int) (gfx.CommandPool, error) {
	poolInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
		QueueFamilyIndex: uint32(family),
	}
	var pool vk.CommandPool
	if err := call("vk.CreateCommandPool", vk.CreateCommandPool(d.device, &poolInfo, nil, &pool)); err != nil {
		return nil, err
	}
	return &CommandPool{device: d.device, pool: pool}, nil
}

// CreateBuffer implements gfx.Device
func (d *Device) CreateBuffer(size uint64, usage gfx.BufferUsage) (gfx.Buffer, error) {
	bufferInfo := bufferCreateInfo(size, usage)
	var buffer vk.Buffer
	if err := call("vk.CreateBuffer", vk.CreateBuffer(d.device, &bufferInfo, nil, &buffer)); err != nil {
		return nil, err
	}
	return &Buffer{device: d.device, buffer: buffer, size: size}, nil
}

// CreateImage implements gfx.Device
func (d *Device) CreateImage(info gfx.ImageInfo) (gfx.Image, error) {
	imageInfo := imageCreateInfo(info)
	var image vk.Image
	if err := call("vk.CreateImage", vk.CreateImage(d.device, &imageInfo, nil, &image)); err != nil {
		return nil, err
	}
	return &Image{device: d.device, image: image}, nil
}

// AllocateMemory implements gfx.Device
func (d *Device) AllocateMemory(size uint64, memoryType int) (gfx.Memory, error) {
	if memoryType < 0 || memoryType >= len(d.memoryTypes) {
		return nil, errors.Errorf("memory type %d out of range", memoryType)
	}
	allocInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  vk.DeviceSize(size),
		MemoryTypeIndex: uint32(memoryType),
	}
	var memory vk.DeviceMemory
	if err := call("vk.AllocateMemory", vk.AllocateMemory(d.device, &allocInfo, nil, &memory)); err != nil {
		return nil, err
	}
	return &Memory{device: d.device, memory: memory, size: size}, nil
}

// CreateImageView implements gfx.Device
func (d *Device) CreateImageView(info gfx.ImageViewInfo) (gfx.ImageView, error) {
	image, ok := info.Image.(*Image)
	if !ok {
		return nil, errors.Errorf("foreign image handle %T", info.Image)
	}
	viewInfo := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    image.image,
		ViewType: vk.ImageViewType2d,
		Format:   vk.Format(info.Format),
		Components: vk.ComponentMapping{
			R: vk.ComponentSwizzleIdentity,
			G: vk.ComponentSwizzleIdentity,
			B: vk.ComponentSwizzleIdentity,
			A: vk.ComponentSwizzleIdentity,
		},
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: vk.ImageAspectFlags(info.Aspect),
			LevelCount: 1,
			LayerCount: 1,
		},
	}
	var view vk.ImageView
	if err := call("vk.CreateImageView", vk.CreateImageView(d.device, &viewInfo, nil, &view)); err != nil {
		return nil, err
	}
	return &imageView{device: d.device, view: view}, nil
}

// CreateSwapchain implements gfx.Device
func (d *Device) CreateSwapchain(info gfx.SwapchainInfo) (gfx.Swapchain, error) {
	surface, err := surfaceOf(info.Surface)
	if err != nil {
		return nil, err
	}

	swapchainInfo := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          surface,
		MinImageCount:    uint32(info.MinImageCount),
		ImageFormat:      vk.Format(info.Format.Format),
		ImageColorSpace:  vk.ColorSpace(info.Format.ColorSpace),
		ImageExtent:      extent(info.Extent),
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(info.Usage),
		ImageSharingMode: vk.SharingModeExclusive,
		PreTransform:     vk.SurfaceTransformFlagBits(info.Transform),
		CompositeAlpha:   vk.CompositeAlphaFlagBits(info.CompositeAlpha),
		PresentMode:      vk.PresentMode(info.PresentMode),
		Clipped:          vk.True,
	}
	if len(info.QueueFamilies) > 1 {
		indices := make([]uint32, 0, len(info.QueueFamilies))
		for _, f := range info.QueueFamilies {
			indices = append(indices, uint32(f))
		}
		swapchainInfo.ImageSharingMode = vk.SharingModeConcurrent
		swapchainInfo.QueueFamilyIndexCount = uint32(len(indices))
		swapchainInfo.PQueueFamilyIndices = indices
	}

	var swapchain vk.Swapchain
	if err := call("vk.CreateSwapchain", vk.CreateSwapchain(d.device, &swapchainInfo, nil, &swapchain)); err != nil {
		return nil, err
	}
	return &Swapchain{device: d.device, swapchain: swapchain}, nil
}

// CreateFence implements gfx.Device
func (d *Device) CreateFence(signaled bool) (gfx.Fence, error) {
	fenceInfo := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}
	if signaled {
		fenceInfo.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}
	var fence vk.Fence
	if err := call("vk.CreateFence", vk.CreateFence(d.device, &fenceInfo, nil, &fence)); err != nil {
		return nil, err
	}
	return &Fence{device: d.device, fence: fence}, nil
}

// CreateSemaphore implements gfx.Device
func (d *Device) CreateSemaphore() (gfx.Semaphore, error) {
	semaphoreInfo := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}
	var s vk.Semaphore
	if err := call("vk.CreateSemaphore", vk.CreateSemaphore(d.device, &semaphoreInfo, nil, &s)); err != nil {
		return nil, err
	}
	return &semaphore{device: d.device, semaphore: s}, nil
}

// CreateShaderModule implements gfx.Device
func (d *Device) CreateShaderModule(code []byte) (gfx.ShaderModule, error) {
	if len(code) == 0 || len(code)%4 != 0 {
		return nil, errors.Errorf("shader code of %d bytes is not a whole number of words", len(code))
	}
	moduleInfo := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(code)),
		PCode:    core.SliceUint32(code),
	}
	var module vk.ShaderModule
	if err := call("vk.CreateShaderModule", vk.CreateShaderModule(d.device, &moduleInfo, nil, &module)); err != nil {
		return nil, err
	}
	return &shaderModule{device: d.device, module: module}, nil
}

// CreateDescriptorSetLayout implements gfx.Device
func (d *Device) CreateDescriptorSetLayout(bindings []gfx.DescriptorBinding) (gfx.DescriptorSetLayout, error) {
	vkBindings := make([]vk.DescriptorSetLayoutBinding, 0, len(bindings))
	for _, b := range bindings {
		vkBindings = append(vkBindings, vk.DescriptorSetLayoutBinding{
			Binding:         uint32(b.Binding),
			DescriptorType:  vk.DescriptorType(b.Type),
			DescriptorCount: uint32(b.Count),
			StageFlags:      vk.ShaderStageFlags(b.Stages),
		})
	}
	layoutInfo := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(vkBindings)),
		PBindings:    vkBindings,
	}
	var layout vk.DescriptorSetLayout
	if err := call("vk.CreateDescriptorSetLayout", vk.CreateDescriptorSetLayout(d.device, &layoutInfo, nil, &layout)); err != nil {
		return nil, err
	}
	return &descriptorSetLayout{device: d.device, layout: layout}, nil
}

// CreatePipelineLayout implements gfx.Device
func (d *Device) CreatePipelineLayout(layouts []gfx.DescriptorSetLayout) (gfx.PipelineLayout, error) {
	setLayouts := make([]vk.DescriptorSetLayout, 0, len(layouts))
	for _, l := range layouts {
		layout, ok := l.(*descriptorSetLayout)
		if !ok {
			return nil, errors.Errorf("foreign descriptor set layout %T", l)
		}
		setLayouts = append(setLayouts, layout.layout)
	}
	layoutInfo := vk.PipelineLayoutCreateInfo{
		SType:          vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount: uint32(len(setLayouts)),
		PSetLayouts:    setLayouts,
	}
	var layout vk.PipelineLayout
	if err := call("vk.CreatePipelineLayout", vk.CreatePipelineLayout(d.device, &layoutInfo, nil, &layout)); err != nil {
		return nil, err
	}
	return &pipelineLayout{device: d.device, layout: layout}, nil
}

// CreateDescriptorPool implements gfx.Device
func (d *Device) CreateDescriptorPool(maxSets int, sizes []gfx.DescriptorPoolSize) (gfx.DescriptorPool, error) {
	poolSizes := make([]vk.DescriptorPoolSize, 0, len(sizes))
	for _, s := range sizes {
		poolSizes = append(poolSizes, vk.DescriptorPoolSize{
			Type:            vk.DescriptorType(s.Type),
			DescriptorCount: uint32(s.Count),
		})
	}
	poolInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       uint32(maxSets),
		PoolSizeCount: uint32(len(poolSizes)),
		PPoolSizes:    poolSizes,
	}
	var pool vk.DescriptorPool
	if err := call("vk.CreateDescriptorPool", vk.CreateDescriptorPool(d.device, &poolInfo, nil, &pool)); err != nil {
		return nil, err
	}
	return &DescriptorPool{device: d.device, pool: pool}, nil
}

// UpdateDescriptorSets implements gfx.Device. Writes naming foreign
// handles are skipped.
func (d *Device) UpdateDescriptorSets(writes []gfx.DescriptorWrite) {
	vkWrites := make([]vk.WriteDescriptorSet, 0, len(writes))
	for _, w := range writes {
		set, ok := w.Set.(vk.DescriptorSet)
		if !ok {
			continue
		}
		buffer, ok := w.Buffer.(*Buffer)
		if !ok {
			continue
		}
		vkWrites = append(vkWrites, vk.WriteDescriptorSet{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          set,
			DstBinding:      uint32(w.Binding),
			DescriptorCount: 1,
			DescriptorType:  vk.DescriptorType(w.Type),
			PBufferInfo: []vk.DescriptorBufferInfo{{
				Buffer: buffer.buffer,
				Offset: vk.DeviceSize(w.Offset),
				Range:  vk.DeviceSize(w.Range),
			}},
		})
	}
	if len(vkWrites) == 0 {
		return
	}
	vk.UpdateDescriptorSets(d.device, uint32(len(vkWrites)), vkWrites, 0, nil)
}

// CreateRenderPass implements gfx.Device
func (d *Device) CreateRenderPass(info gfx.RenderPassInfo) (gfx.RenderPass, error) {
	renderPassInfo := renderPassCreateInfo(info)
	var pass vk.RenderPass
	if err := call("vk.CreateRenderPass", vk.CreateRenderPass(d.device, &renderPassInfo, nil, &pass)); err != nil {
		return nil, err
	}
	depth := -1
	if info.Depth != nil {
		depth = info.Depth.Attachment
	}
	return &renderPass{device: d.device, pass: pass, depthAttachment: depth}, nil
}

// CreateFramebuffer implements gfx.Device
func (d *Device) CreateFramebuffer(info gfx.FramebufferInfo) (gfx.Framebuffer, error) {
	rp, ok := info.RenderPass.(*renderPass)
	if !ok {
		return nil, errors.Errorf("foreign render pass %T", info.RenderPass)
	}
	attachments := make([]vk.ImageView, 0, len(info.Attachments))
	for _, a := range info.Attachments {
		view, ok := a.(*imageView)
		if !ok {
			return nil, errors.Errorf("foreign image view %T", a)
		}
		attachments = append(attachments, view.view)
	}
	framebufferInfo := vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      rp.pass,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		Width:           info.Extent.Width,
		Height:          info.Extent.Height,
		Layers:          1,
	}
	var fb vk.Framebuffer
	if err := call("vk.CreateFramebuffer", vk.CreateFramebuffer(d.device, &framebufferInfo, nil, &fb)); err != nil {
		return nil, err
	}
	return &framebuffer{device: d.device, framebuffer: fb}, nil
}

// CreateGraphicsPipeline implements gfx.Device
func (d *Device) CreateGraphicsPipeline(info gfx.GraphicsPipelineInfo) (gfx.Pipeline, error) {
	layout, ok := info.Layout.(*pipelineLayout)
	if !ok {
		return nil, errors.Errorf("foreign pipeline layout %T", info.Layout)
	}
	rp, ok := info.RenderPass.(*renderPass)
	if !ok {
		return nil, errors.Errorf("foreign render pass %T", info.RenderPass)
	}

	stages := make([]vk.PipelineShaderStageCreateInfo, 0, len(info.Stages))
	for _, s := range info.Stages {
		module, ok := s.Module.(*shaderModule)
		if !ok {
			return nil, errors.Errorf("foreign shader module %T", s.Module)
		}
		stages = append(stages, vk.PipelineShaderStageCreateInfo{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageFlagBits(s.Stage),
			Module: module.module,
			PName:  safeString(s.Entry),
		})
	}

	vertexInput := vertexInputState(info.Bindings, info.Attributes)
	inputAssembly := vk.PipelineInputAssemblyStateCreateInfo{
		SType:    vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology: vk.PrimitiveTopology(info.Topology),
	}
	viewportState := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		PViewports:    []vk.Viewport{viewport(info.Viewport)},
		ScissorCount:  1,
		PScissors:     []vk.Rect2D{scissor(info.Viewport)},
	}
	rasterization := rasterizationState(info.Rasterization)
	multisample := vk.PipelineMultisampleStateCreateInfo{
		SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
		RasterizationSamples: vk.SampleCount1Bit,
	}
	depthStencil := depthStencilState(info.DepthStencil)
	colorBlend := colorBlendState(info.ColorBlend)

	pipelineInfos := []vk.GraphicsPipelineCreateInfo{{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(stages)),
		PStages:             stages,
		PVertexInputState:   &vertexInput,
		PInputAssemblyState: &inputAssembly,
		PViewportState:      &viewportState,
		PRasterizationState: &rasterization,
		PMultisampleState:   &multisample,
		PDepthStencilState:  &depthStencil,
		PColorBlendState:    &colorBlend,
		PDynamicState:       dynamicState(info.Dynamic),
		Layout:              layout.layout,
		RenderPass:          rp.pass,
	}}

	pipelines := make([]vk.Pipeline, 1)
	if err := call("vk.CreateGraphicsPipelines", vk.CreateGraphicsPipelines(d.device, nil, 1, pipelineInfos, nil, pipelines)); err != nil {
		return nil, err
	}
	return &pipeline{device: d.device, pipeline: pipelines[0]}, nil
}
