// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package device

import (
	"github.com/devblok/raft/gfx"
	vk "github.com/devblok/vulkan"
)

func extent(e gfx.Extent2D) vk.Extent2D {
	return vk.Extent2D{Width: e.Width, Height: e.Height}
}

func attachmentReference(ref gfx.AttachmentReference) vk.AttachmentReference {
	return vk.AttachmentReference{
		Attachment: uint32(ref.Attachment),
		Layout:     vk.ImageLayout(ref.Layout),
	}
}

// renderPassCreateInfo describes one graphics subpass waiting on the
// previous frame's color output
func renderPassCreateInfo(info gfx.RenderPassInfo) vk.RenderPassCreateInfo {
	attachments := make([]vk.AttachmentDescription, 0, len(info.Attachments))
	for _, a := range info.Attachments {
		attachments = append(attachments, vk.AttachmentDescription{
			Format:         vk.Format(a.Format),
			Samples:        vk.SampleCount1Bit,
			LoadOp:         vk.AttachmentLoadOp(a.LoadOp),
			StoreOp:        vk.AttachmentStoreOp(a.StoreOp),
			StencilLoadOp:  vk.AttachmentLoadOp(a.StencilLoadOp),
			StencilStoreOp: vk.AttachmentStoreOp(a.StencilStoreOp),
			InitialLayout:  vk.ImageLayout(a.InitialLayout),
			FinalLayout:    vk.ImageLayout(a.FinalLayout),
		})
	}

	colors := make([]vk.AttachmentReference, 0, len(info.Color))
	for _, ref := range info.Color {
		colors = append(colors, attachmentReference(ref))
	}

	subpass := vk.SubpassDescription{
		PipelineBindPoint:    vk.PipelineBindPointGraphics,
		ColorAttachmentCount: uint32(len(colors)),
		PColorAttachments:    colors,
	}
	stages := vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)
	if info.Depth != nil {
		depth := attachmentReference(*info.Depth)
		subpass.PDepthStencilAttachment = &depth
		stages |= vk.PipelineStageFlags(vk.PipelineStageEarlyFragmentTestsBit)
	}

	dependency := vk.SubpassDependency{
		SrcSubpass:    vk.SubpassExternal,
		DstSubpass:    0,
		SrcStageMask:  stages,
		DstStageMask:  stages,
		DstAccessMask: vk.AccessFlags(vk.AccessColorAttachmentReadBit | vk.AccessColorAttachmentWriteBit),
	}

	return vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
		DependencyCount: 1,
		PDependencies:   []vk.SubpassDependency{dependency},
	}
}

func vertexInputState(bindings []gfx.VertexBinding, attributes []gfx.VertexAttribute) vk.PipelineVertexInputStateCreateInfo {
	vb := make([]vk.VertexInputBindingDescription, 0, len(bindings))
	for _, b := range bindings {
		vb = append(vb, vk.VertexInputBindingDescription{
			Binding:   uint32(b.Binding),
			Stride:    b.Stride,
			InputRate: vk.VertexInputRate(b.Rate),
		})
	}
	va := make([]vk.VertexInputAttributeDescription, 0, len(attributes))
	for _, a := range attributes {
		va = append(va, vk.VertexInputAttributeDescription{
			Location: uint32(a.Location),
			Binding:  uint32(a.Binding),
			Format:   vk.Format(a.Format),
			Offset:   a.Offset,
		})
	}
	return vk.PipelineVertexInputStateCreateInfo{
		SType:                           vk.StructureTypePipelineVertexInputStateCreateInfo,
		VertexBindingDescriptionCount:   uint32(len(vb)),
		PVertexBindingDescriptions:      vb,
		VertexAttributeDescriptionCount: uint32(len(va)),
		PVertexAttributeDescriptions:    va,
	}
}

func viewport(v gfx.Viewport) vk.Viewport {
	return vk.Viewport{
		X:        v.X,
		Y:        v.Y,
		Width:    v.Width,
		Height:   v.Height,
		MinDepth: v.MinDepth,
		MaxDepth: v.MaxDepth,
	}
}

func scissor(v gfx.Viewport) vk.Rect2D {
	return vk.Rect2D{
		Offset: vk.Offset2D{X: int32(v.X), Y: int32(v.Y)},
		Extent: vk.Extent2D{Width: uint32(v.Width), Height: uint32(v.Height)},
	}
}

func rasterizationState(r gfx.RasterizationState) vk.PipelineRasterizationStateCreateInfo {
	return vk.PipelineRasterizationStateCreateInfo{
		SType:            vk.StructureTypePipelineRasterizationStateCreateInfo,
		DepthClampEnable: boolean(r.DepthClamp),
		PolygonMode:      vk.PolygonMode(r.PolygonMode),
		CullMode:         vk.CullModeFlags(r.CullMode),
		FrontFace:        vk.FrontFace(r.FrontFace),
		LineWidth:        r.LineWidth,
	}
}

func depthStencilState(d gfx.DepthStencilState) vk.PipelineDepthStencilStateCreateInfo {
	return vk.PipelineDepthStencilStateCreateInfo{
		SType:                 vk.StructureTypePipelineDepthStencilStateCreateInfo,
		DepthTestEnable:       boolean(d.DepthTest),
		DepthWriteEnable:      boolean(d.DepthWrite),
		DepthCompareOp:        vk.CompareOp(d.DepthCompare),
		DepthBoundsTestEnable: boolean(d.DepthBoundsTest),
		StencilTestEnable:     boolean(d.StencilTest),
		MaxDepthBounds:        1.0,
	}
}

func colorBlendState(attachments []gfx.ColorBlendAttachment) vk.PipelineColorBlendStateCreateInfo {
	blend := make([]vk.PipelineColorBlendAttachmentState, 0, len(attachments))
	for _, a := range attachments {
		blend = append(blend, vk.PipelineColorBlendAttachmentState{
			BlendEnable:    boolean(a.Blend),
			ColorWriteMask: vk.ColorComponentFlags(a.WriteMask),
		})
	}
	return vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		LogicOp:         vk.LogicOpCopy,
		AttachmentCount: uint32(len(blend)),
		PAttachments:    blend,
	}
}

func dynamicState(states []gfx.DynamicState) *vk.PipelineDynamicStateCreateInfo {
	if len(states) == 0 {
		return nil
	}
	ds := make([]vk.DynamicState, 0, len(states))
	for _, s := range states {
		ds = append(ds, vk.DynamicState(s))
	}
	return &vk.PipelineDynamicStateCreateInfo{
		SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
		DynamicStateCount: uint32(len(ds)),
		PDynamicStates:    ds,
	}
}

// clearValues picks the depth member for the depth attachment, if any
func clearValues(values []gfx.ClearValue, depthAttachment int) []vk.ClearValue {
	out := make([]vk.ClearValue, len(values))
	for i, v := range values {
		if i == depthAttachment {
			out[i].SetDepthStencil(v.Depth, v.Stencil)
			continue
		}
		out[i].SetColor(v.Color[:])
	}
	return out
}

func bufferCreateInfo(size uint64, usage gfx.BufferUsage) vk.BufferCreateInfo {
	return vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(size),
		Usage:       vk.BufferUsageFlags(usage),
		SharingMode: vk.SharingModeExclusive,
	}
}

func imageCreateInfo(info gfx.ImageInfo) vk.ImageCreateInfo {
	return vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: vk.ImageType2d,
		Format:    vk.Format(info.Format),
		Extent: vk.Extent3D{
			Width:  info.Extent.Width,
			Height: info.Extent.Height,
			Depth:  1,
		},
		MipLevels:     1,
		ArrayLayers:   1,
		Samples:       vk.SampleCount1Bit,
		Tiling:        vk.ImageTilingOptimal,
		Usage:         vk.ImageUsageFlags(info.Usage),
		SharingMode:   vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}
}

func requirements(reqs vk.MemoryRequirements) gfx.MemoryRequirements {
	reqs.Deref()
	return gfx.MemoryRequirements{
		Size:      uint64(reqs.Size),
		Alignment: uint64(reqs.Alignment),
		TypeBits:  reqs.MemoryTypeBits,
	}
}
