package core_test

import (
	"errors"
	"fmt"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/devblok/raft/core"
	"github.com/devblok/raft/gfx"
	"github.com/devblok/raft/gfx/gfxtest"
	"github.com/devblok/raft/model"
)

type shaderMap map[string][]byte

func (m shaderMap) ReadShader(name string) ([]byte, error) {
	code, ok := m[name]
	if !ok {
		return nil, fmt.Errorf("shader %s not found", name)
	}
	return code, nil
}

func testOptions(images uint32) core.Options {
	cfg := core.DefaultConfiguration().Renderer
	cfg.SwapchainSize = images
	return core.Options{
		Config:  cfg,
		Surface: &gfxtest.Surface{Name: "window"},
		Shaders: shaderMap{
			"vert.spv": gfxtest.ShaderCode(0x10000, 1),
			"frag.spv": gfxtest.ShaderCode(0x10000, 2),
		},
		Geometry: model.Box(1, 1, 1),
	}
}

func TestContextEndToEnd(t *testing.T) {
	c := qt.New(t)

	inst := gfxtest.NewInstance(gfxtest.DefaultConfig())
	reg := inst.Registry()
	ctx, err := core.New(inst, testOptions(2))
	c.Assert(err, qt.IsNil)

	c.Assert(ctx.Families(), qt.Equals, core.QueueFamilies{})
	c.Assert(ctx.Device().(*gfxtest.Device).Extensions(), qt.DeepEquals, []string{core.SwapchainExtension})

	sc := ctx.Swapchain()
	c.Assert(sc.Images, qt.HasLen, 2)
	c.Assert(sc.Views, qt.HasLen, 2)
	c.Assert(sc.Extent, qt.Equals, gfx.Extent2D{Width: 800, Height: 600})

	p := ctx.Pipeline()
	c.Assert(p.Framebuffers, qt.HasLen, 2)
	c.Assert(reg.Created("pipeline"), qt.Equals, 1)
	c.Assert(reg.Created("descriptor-set"), qt.Equals, 1)
	c.Assert(reg.Created("command-pool"), qt.Equals, 2)
	c.Assert(ctx.DepthBuffer().Format, qt.Equals, core.DepthFormat)
	c.Assert(ctx.Vertices().Count, qt.Equals, 24)
	c.Assert(ctx.Indices().Count, qt.Equals, 36)

	// exactly the command buffer of the acquired image is recorded
	c.Assert(ctx.CommandBuffers(), qt.HasLen, 2)
	c.Assert(ctx.ImageIndex(), qt.Equals, 0)
	executable := 0
	for _, cb := range ctx.CommandBuffers() {
		if cb.(*gfxtest.CommandBuffer).State() == gfxtest.StateExecutable {
			executable++
		}
	}
	c.Assert(executable, qt.Equals, 1)

	cb := ctx.CommandBuffers()[ctx.ImageIndex()].(*gfxtest.CommandBuffer)
	var ops []gfxtest.Op
	for _, cmd := range cb.Commands() {
		ops = append(ops, cmd.Op)
	}
	c.Assert(ops, qt.DeepEquals, []gfxtest.Op{
		gfxtest.OpBeginRenderPass,
		gfxtest.OpBindDescriptorSets,
		gfxtest.OpBindPipeline,
		gfxtest.OpBindVertexBuffer,
		gfxtest.OpBindIndexBuffer,
		gfxtest.OpSetViewport,
		gfxtest.OpDrawIndexed,
		gfxtest.OpEndRenderPass,
	})
	cmds := cb.Commands()
	c.Assert(cmds[0].Begin.Framebuffer, qt.Equals, p.Framebuffers[ctx.ImageIndex()])
	c.Assert(cmds[0].Begin.ClearValues, qt.DeepEquals, []gfx.ClearValue{
		{Color: [4]float32{0.2, 0.2, 0.2, 1}},
		{Depth: 1},
	})
	c.Assert(cmds[4].IndexType, qt.Equals, gfx.IndexTypeUint32)
	c.Assert(cmds[6].IndexCount, qt.Equals, 36)

	ctx.Release()
	c.Assert(reg.LiveKinds(), qt.HasLen, 0)
	c.Assert(reg.Violations(), qt.HasLen, 0)
}

func TestContextRecordsAcquiredImage(t *testing.T) {
	c := qt.New(t)

	cfg := gfxtest.DefaultConfig()
	cfg.FirstImage = 1
	inst := gfxtest.NewInstance(cfg)
	ctx, err := core.New(inst, testOptions(3))
	c.Assert(err, qt.IsNil)
	defer ctx.Release()

	c.Assert(ctx.ImageIndex(), qt.Equals, 1)
	for idx, cb := range ctx.CommandBuffers() {
		want := gfxtest.StateInitial
		if idx == 1 {
			want = gfxtest.StateExecutable
		}
		c.Assert(cb.(*gfxtest.CommandBuffer).State(), qt.Equals, want, qt.Commentf("command buffer %d", idx))
	}
	begin := ctx.CommandBuffers()[1].(*gfxtest.CommandBuffer).Commands()[0].Begin
	c.Assert(begin.Framebuffer, qt.Equals, ctx.Pipeline().Framebuffers[1])
}

func TestContextDraw(t *testing.T) {
	c := qt.New(t)

	inst := gfxtest.NewInstance(gfxtest.DefaultConfig())
	reg := inst.Registry()
	ctx, err := core.New(inst, testOptions(2))
	c.Assert(err, qt.IsNil)

	c.Assert(ctx.Draw(), qt.IsNil)
	c.Assert(ctx.WaitFrame(), qt.IsNil)
	c.Assert(ctx.Draw(), qt.Equals, core.ErrFrameSubmitted)

	queue := ctx.Device().Queue(0).(*gfxtest.Queue)
	submissions := queue.Submissions()
	// two geometry copies precede the frame
	c.Assert(submissions, qt.HasLen, 3)
	frame := submissions[2]
	c.Assert(frame.CommandBuffers, qt.HasLen, 1)
	c.Assert(frame.CommandBuffers[0], qt.Equals, ctx.CommandBuffers()[ctx.ImageIndex()])
	c.Assert(frame.WaitStages, qt.DeepEquals, []gfx.PipelineStage{gfx.PipelineStageColorAttachmentOutput})
	c.Assert(frame.WaitSemaphores, qt.HasLen, 1)
	c.Assert(frame.SignalSemaphores, qt.HasLen, 1)

	presents := queue.Presents()
	c.Assert(presents, qt.HasLen, 1)
	c.Assert(presents[0].ImageIndex, qt.Equals, ctx.ImageIndex())
	c.Assert(presents[0].Swapchain, qt.Equals, ctx.Swapchain().Handle)
	c.Assert(presents[0].WaitSemaphores, qt.HasLen, 1)
	c.Assert(presents[0].WaitSemaphores[0], qt.Equals, frame.SignalSemaphores[0])
	c.Assert(frame.WaitSemaphores[0], qt.Not(qt.Equals), frame.SignalSemaphores[0])

	ctx.Release()
	c.Assert(reg.LiveKinds(), qt.HasLen, 0)
	c.Assert(reg.Violations(), qt.HasLen, 0)
}

func TestContextUniform(t *testing.T) {
	c := qt.New(t)

	inst := gfxtest.NewInstance(gfxtest.DefaultConfig())
	ctx, err := core.New(inst, testOptions(2))
	c.Assert(err, qt.IsNil)
	defer ctx.Release()

	want := model.DefaultUniform(800.0 / 600.0).Bytes()
	c.Assert(ctx.Uniform().Buffer.(*gfxtest.Buffer).Contents(), qt.DeepEquals, want)

	write, ok := ctx.Pipeline().DescriptorSet.(*gfxtest.DescriptorSet).Write(0)
	c.Assert(ok, qt.Equals, true)
	c.Assert(write.Buffer, qt.Equals, ctx.Uniform().Buffer)
}

func TestContextUniformOverride(t *testing.T) {
	c := qt.New(t)

	u := model.DefaultUniform(2)
	opts := testOptions(2)
	opts.Uniform = &u

	inst := gfxtest.NewInstance(gfxtest.DefaultConfig())
	ctx, err := core.New(inst, opts)
	c.Assert(err, qt.IsNil)
	defer ctx.Release()

	c.Assert(ctx.Uniform().Buffer.(*gfxtest.Buffer).Contents(), qt.DeepEquals, u.Bytes())
}

func TestContextStageErrors(t *testing.T) {
	c := qt.New(t)

	tests := []struct {
		about  string
		config gfxtest.Config
		modify func(*core.Options)
		stage  core.Stage
		expect string
	}{{
		about:  "no surface",
		config: gfxtest.DefaultConfig(),
		modify: func(o *core.Options) { o.Surface = nil },
		stage:  core.StageSelectDevice,
		expect: "select device: no surface",
	}, {
		about:  "no device can present",
		config: withFamilies("headless", []bool{false}, gfx.QueueGraphics),
		modify: func(*core.Options) {},
		stage:  core.StageSelectDevice,
		expect: "select device: no suitable physical device found: .*",
	}, {
		about: "no surface formats",
		config: func() gfxtest.Config {
			cfg := gfxtest.DefaultConfig()
			cfg.Formats = nil
			return cfg
		}(),
		modify: func(*core.Options) {},
		stage:  core.StageSwapchain,
		expect: "swapchain: surface reports no supported formats",
	}, {
		about:  "empty geometry",
		config: gfxtest.DefaultConfig(),
		modify: func(o *core.Options) { o.Geometry = model.Primitive{} },
		stage:  core.StageGeometry,
		expect: "geometry upload: vertices: no vertices to upload",
	}, {
		about:  "missing fragment shader",
		config: gfxtest.DefaultConfig(),
		modify: func(o *core.Options) { o.Shaders = shaderMap{"vert.spv": gfxtest.ShaderCode()} },
		stage:  core.StagePipeline,
		expect: `pipeline: fragment shader "frag.spv": shader frag.spv not found`,
	}, {
		about:  "malformed vertex shader",
		config: gfxtest.DefaultConfig(),
		modify: func(o *core.Options) {
			o.Shaders = shaderMap{"vert.spv": []byte("not spir-v"), "frag.spv": gfxtest.ShaderCode()}
		},
		stage:  core.StagePipeline,
		expect: "pipeline: create vertex shader module: .*",
	}}
	for _, test := range tests {
		c.Run(test.about, func(c *qt.C) {
			inst := gfxtest.NewInstance(test.config)
			reg := inst.Registry()
			opts := testOptions(2)
			test.modify(&opts)

			ctx, err := core.New(inst, opts)
			c.Assert(ctx, qt.IsNil)
			c.Assert(err, qt.ErrorMatches, test.expect)

			var se *core.StageError
			c.Assert(errors.As(err, &se), qt.Equals, true)
			c.Assert(se.Stage, qt.Equals, test.stage)

			// a failed construction leaves nothing behind
			c.Assert(reg.LiveKinds(), qt.HasLen, 0)
			c.Assert(reg.Violations(), qt.HasLen, 0)
		})
	}
}

func TestContextNoDeviceReason(t *testing.T) {
	c := qt.New(t)

	inst := gfxtest.NewInstance(withFamilies("compute-only", []bool{true}, gfx.QueueCompute))
	_, err := core.New(inst, testOptions(2))

	var nsd *core.NoSuitableDeviceError
	c.Assert(errors.As(err, &nsd), qt.Equals, true)
	c.Assert(nsd.Reasons, qt.DeepEquals, []string{"compute-only: no graphics queue family"})
	c.Assert(inst.Registry().Created("device"), qt.Equals, 0)
}
