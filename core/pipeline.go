// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"github.com/devblok/raft/gfx"
	"github.com/devblok/raft/model"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// ShaderEntryPoint is the entry point of every shader stage.
const ShaderEntryPoint = "main"

// PipelineConfig is everything the pipeline graph is built from.
type PipelineConfig struct {
	ColorFormat gfx.Format
	DepthFormat gfx.Format
	Extent      gfx.Extent2D

	// ColorViews holds one view per swapchain image, DepthView is shared.
	ColorViews []gfx.ImageView
	DepthView  gfx.ImageView

	VertexShader   []byte
	FragmentShader []byte

	// Uniform is bound at set 0, binding 0.
	Uniform gfx.Buffer
}

// Pipeline is the render object graph for one draw against one color and
// one depth attachment. Objects are released in reverse creation order.
type Pipeline struct {
	SetLayout      gfx.DescriptorSetLayout
	Layout         gfx.PipelineLayout
	DescriptorPool gfx.DescriptorPool
	DescriptorSet  gfx.DescriptorSet
	RenderPass     gfx.RenderPass
	Framebuffers   []gfx.Framebuffer
	Shaders        []gfx.ShaderModule
	Handle         gfx.Pipeline

	stack releaseStack
}

// BuildPipeline creates, in order, the descriptor set layout, the pipeline
// layout, the descriptor set, the render pass, one framebuffer per color
// view, the shader modules and the graphics pipeline. On failure everything
// already created is released.
func BuildPipeline(dev gfx.Device, cfg PipelineConfig) (*Pipeline, error) {
	p := &Pipeline{}
	var err error
	defer func() {
		if err != nil {
			p.Release()
		}
	}()

	if p.SetLayout, err = dev.CreateDescriptorSetLayout([]gfx.DescriptorBinding{{
		Binding: 0,
		Type:    gfx.DescriptorTypeUniformBuffer,
		Count:   1,
		Stages:  gfx.ShaderStageVertex,
	}}); err != nil {
		return nil, errors.Wrap(err, "create descriptor set layout")
	}
	p.stack.push(p.SetLayout)

	if p.Layout, err = dev.CreatePipelineLayout([]gfx.DescriptorSetLayout{p.SetLayout}); err != nil {
		return nil, errors.Wrap(err, "create pipeline layout")
	}
	p.stack.push(p.Layout)

	if err = p.prepareDescriptorSet(dev, cfg.Uniform); err != nil {
		return nil, err
	}

	if p.RenderPass, err = dev.CreateRenderPass(renderPassInfo(cfg.ColorFormat, cfg.DepthFormat)); err != nil {
		return nil, errors.Wrap(err, "create render pass")
	}
	p.stack.push(p.RenderPass)

	for idx, view := range cfg.ColorViews {
		var fb gfx.Framebuffer
		if fb, err = dev.CreateFramebuffer(gfx.FramebufferInfo{
			RenderPass:  p.RenderPass,
			Attachments: []gfx.ImageView{view, cfg.DepthView},
			Extent:      cfg.Extent,
		}); err != nil {
			err = errors.Wrapf(err, "create framebuffer %d", idx)
			return nil, err
		}
		p.Framebuffers = append(p.Framebuffers, fb)
		p.stack.push(fb)
	}

	stages := make([]gfx.ShaderStageInfo, 0, 2)
	for _, s := range []struct {
		stage gfx.ShaderStage
		code  []byte
		name  string
	}{
		{gfx.ShaderStageVertex, cfg.VertexShader, "vertex"},
		{gfx.ShaderStageFragment, cfg.FragmentShader, "fragment"},
	} {
		var module gfx.ShaderModule
		if module, err = dev.CreateShaderModule(s.code); err != nil {
			err = errors.Wrapf(err, "create %s shader module", s.name)
			return nil, err
		}
		p.Shaders = append(p.Shaders, module)
		p.stack.push(module)
		stages = append(stages, gfx.ShaderStageInfo{Stage: s.stage, Module: module, Entry: ShaderEntryPoint})
	}

	if p.Handle, err = dev.CreateGraphicsPipeline(gfx.GraphicsPipelineInfo{
		Stages:     stages,
		Bindings:   model.VertexBindings(),
		Attributes: model.VertexAttributes(),
		Topology:   gfx.TopologyTriangleList,
		Viewport:   fullViewport(cfg.Extent),
		Rasterization: gfx.RasterizationState{
			PolygonMode: gfx.PolygonModeFill,
			CullMode:    gfx.CullBack,
			FrontFace:   gfx.FrontFaceCounterClockwise,
			LineWidth:   1,
		},
		DepthStencil: gfx.DepthStencilState{
			DepthTest:    true,
			DepthWrite:   true,
			DepthCompare: gfx.CompareLessOrEqual,
		},
		ColorBlend: []gfx.ColorBlendAttachment{{
			WriteMask: gfx.ColorComponentR | gfx.ColorComponentG | gfx.ColorComponentB,
		}},
		Dynamic:    []gfx.DynamicState{gfx.DynamicStateViewport, gfx.DynamicStateScissor},
		Layout:     p.Layout,
		RenderPass: p.RenderPass,
	}); err != nil {
		return nil, errors.Wrap(err, "create graphics pipeline")
	}
	p.stack.push(p.Handle)

	log.WithFields(log.Fields{
		"framebuffers": len(p.Framebuffers),
		"color":        cfg.ColorFormat,
		"depth":        cfg.DepthFormat,
	}).Debug("built pipeline")
	return p, nil
}

// prepareDescriptorSet allocates the single descriptor set and points its
// binding 0 at the uniform buffer.
func (p *Pipeline) prepareDescriptorSet(dev gfx.Device, uniform gfx.Buffer) error {
	if uniform == nil {
		return errors.New("no uniform buffer to bind")
	}
	pool, err := dev.CreateDescriptorPool(1, []gfx.DescriptorPoolSize{{
		Type:  gfx.DescriptorTypeUniformBuffer,
		Count: 1,
	}})
	if err != nil {
		return errors.Wrap(err, "create descriptor pool")
	}
	p.DescriptorPool = pool
	p.stack.push(pool)

	sets, err := pool.Allocate(p.SetLayout, 1)
	if err != nil {
		return errors.Wrap(err, "allocate descriptor set")
	}
	p.DescriptorSet = sets[0]
	dev.UpdateDescriptorSets([]gfx.DescriptorWrite{{
		Set:     p.DescriptorSet,
		Binding: 0,
		Type:    gfx.DescriptorTypeUniformBuffer,
		Buffer:  uniform,
		Offset:  0,
		Range:   uniform.Size(),
	}})
	return nil
}

// renderPassInfo declares one cleared and stored color attachment that
// ends up ready for presentation, and one cleared depth attachment.
func renderPassInfo(color, depth gfx.Format) gfx.RenderPassInfo {
	return gfx.RenderPassInfo{
		Attachments: []gfx.Attachment{
			{
				Format:         color,
				LoadOp:         gfx.LoadOpClear,
				StoreOp:        gfx.StoreOpStore,
				StencilLoadOp:  gfx.LoadOpDontCare,
				StencilStoreOp: gfx.StoreOpDontCare,
				InitialLayout:  gfx.ImageLayoutColorAttachmentOptimal,
				FinalLayout:    gfx.ImageLayoutPresentSrc,
			},
			{
				Format:         depth,
				LoadOp:         gfx.LoadOpClear,
				StoreOp:        gfx.StoreOpDontCare,
				StencilLoadOp:  gfx.LoadOpDontCare,
				StencilStoreOp: gfx.StoreOpDontCare,
				InitialLayout:  gfx.ImageLayoutDepthStencilAttachmentOptimal,
				FinalLayout:    gfx.ImageLayoutDepthStencilAttachmentOptimal,
			},
		},
		Color: []gfx.AttachmentReference{{
			Attachment: 0,
			Layout:     gfx.ImageLayoutColorAttachmentOptimal,
		}},
		Depth: &gfx.AttachmentReference{
			Attachment: 1,
			Layout:     gfx.ImageLayoutDepthStencilAttachmentOptimal,
		},
	}
}

func fullViewport(extent gfx.Extent2D) gfx.Viewport {
	return gfx.Viewport{
		Width:    float32(extent.Width),
		Height:   float32(extent.Height),
		MinDepth: 0,
		MaxDepth: 1,
	}
}

// Release releases the graph in reverse creation order.
func (p *Pipeline) Release() {
	p.stack.release()
	p.Handle = nil
	p.Shaders = nil
	p.Framebuffers = nil
	p.RenderPass = nil
	p.DescriptorSet = nil
	p.DescriptorPool = nil
	p.Layout = nil
	p.SetLayout = nil
}
