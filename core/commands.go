// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"github.com/devblok/raft/gfx"
	"github.com/pkg/errors"
)

// DrawCommands is what RecordCommands draws.
type DrawCommands struct {
	Pipeline *Pipeline
	Extent   gfx.Extent2D
	Vertices *Resource
	Indices  *Resource

	// ClearColor clears the color attachment; depth is cleared to 1.
	ClearColor [4]float32
}

// RecordCommands records into cb one render pass on the framebuffer of the
// given swapchain image, drawing the whole index buffer once.
func RecordCommands(cb gfx.CommandBuffer, image int, draw DrawCommands) error {
	p := draw.Pipeline
	if image < 0 || image >= len(p.Framebuffers) {
		return errors.Errorf("image index %d out of range of %d framebuffers", image, len(p.Framebuffers))
	}

	if err := cb.Begin(0); err != nil {
		return errors.Wrap(err, "begin command buffer")
	}
	cb.BeginRenderPass(gfx.RenderPassBegin{
		RenderPass:  p.RenderPass,
		Framebuffer: p.Framebuffers[image],
		Extent:      draw.Extent,
		ClearValues: []gfx.ClearValue{
			{Color: draw.ClearColor},
			{Depth: 1, Stencil: 0},
		},
	})
	cb.BindDescriptorSets(p.Layout, []gfx.DescriptorSet{p.DescriptorSet})
	cb.BindPipeline(p.Handle)
	cb.BindVertexBuffer(draw.Vertices.Buffer)
	cb.BindIndexBuffer(draw.Indices.Buffer, gfx.IndexTypeUint32)
	cb.SetViewport(fullViewport(draw.Extent))
	cb.DrawIndexed(draw.Indices.Count)
	cb.EndRenderPass()

	return errors.Wrap(cb.End(), "end command buffer")
}
