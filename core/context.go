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

// Options are the inputs of a rendering context.
type Options struct {
	Config  RendererConfiguration
	Surface gfx.Surface
	Shaders ShaderSource

	// Geometry is drawn with a single indexed draw call.
	Geometry model.Primitive

	// Uniform overrides the default camera looking at the origin.
	Uniform *model.Uniform
}

// Context owns a logical device and everything derived from it. It is
// not safe for concurrent use.
type Context struct {
	accelerator gfx.Accelerator
	families    QueueFamilies

	device        gfx.Device
	graphicsQueue gfx.Queue
	computeQueue  gfx.Queue
	presentQueue  gfx.Queue
	graphicsPool  gfx.CommandPool
	computePool   gfx.CommandPool

	swapchain *Swapchain
	depth     *ImageResource
	uniform   *DynamicUniform
	vertices  *Resource
	indices   *Resource
	pipeline  *Pipeline

	commandBuffers []gfx.CommandBuffer
	imageAvailable gfx.Semaphore
	renderFinished gfx.Semaphore
	frameFence     gfx.Fence
	image          int
	submitted      bool

	stack releaseStack
}

// New constructs a context and records the draw commands for the first
// acquired swapchain image. Construction either fully succeeds or releases
// everything it created and returns a *StageError naming the failed stage.
func New(instance gfx.Instance, opts Options) (*Context, error) {
	c := &Context{}
	ok := false
	defer func() {
		if !ok {
			c.stack.release()
		}
	}()

	steps := []struct {
		stage Stage
		run   func(Options) error
	}{
		{StageSelectDevice, func(o Options) error { return c.selectDevice(instance, o) }},
		{StageCreateDevice, c.createDevice},
		{StageCommandPools, c.createCommandPools},
		{StageSwapchain, c.createSwapchain},
		{StageDepthBuffer, c.createDepthBuffer},
		{StageUniform, c.createUniform},
		{StageGeometry, c.uploadGeometry},
		{StagePipeline, c.buildPipeline},
		{StageCommandBuffers, c.allocateCommandBuffers},
		{StageAcquire, c.acquireImage},
		{StageRecord, c.record},
	}
	for _, step := range steps {
		log.WithField("stage", step.stage).Debug("context construction")
		if err := step.run(opts); err != nil {
			return nil, stageError(step.stage, err)
		}
	}
	ok = true
	return c, nil
}

func (c *Context) selectDevice(instance gfx.Instance, opts Options) error {
	if opts.Surface == nil {
		return errors.New("no surface")
	}
	accelerators, err := instance.Accelerators()
	if err != nil {
		return errors.Wrap(err, "enumerate accelerators")
	}
	c.accelerator, c.families, err = SelectDevice(accelerators, opts.Surface)
	return err
}

func (c *Context) createDevice(opts Options) error {
	var err error
	if c.device, err = c.accelerator.CreateDevice(c.families.Unique(), opts.Config.DeviceExtensions); err != nil {
		return err
	}
	c.stack.push(c.device)
	c.graphicsQueue = c.device.Queue(c.families.Graphics)
	c.computeQueue = c.device.Queue(c.families.Compute)
	c.presentQueue = c.device.Queue(c.families.Present)
	if c.graphicsQueue == nil || c.presentQueue == nil {
		return errors.New("device did not provide the requested queues")
	}
	return nil
}

func (c *Context) createCommandPools(Options) error {
	var err error
	if c.graphicsPool, err = c.device.CreateCommandPool(c.families.Graphics); err != nil {
		return errors.Wrap(err, "graphics command pool")
	}
	c.stack.push(c.graphicsPool)
	if c.computePool, err = c.device.CreateCommandPool(c.families.Compute); err != nil {
		return errors.Wrap(err, "compute command pool")
	}
	c.stack.push(c.computePool)
	return nil
}

func (c *Context) createSwapchain(opts Options) error {
	sc, err := NewSwapchain(c.device, c.accelerator, SwapchainConfig{
		Surface:  opts.Surface,
		Families: c.families,
		Images:   int(opts.Config.SwapchainSize),
		Extent:   gfx.Extent2D{Width: opts.Config.ScreenWidth, Height: opts.Config.ScreenHeight},
	})
	if err != nil {
		return err
	}
	c.swapchain = sc
	c.stack.push(sc)
	return nil
}

func (c *Context) createDepthBuffer(Options) error {
	depth, err := NewDepthBuffer(c.device, c.accelerator.MemoryTypes(), c.swapchain.Extent)
	if err != nil {
		return err
	}
	c.depth = depth
	c.stack.push(depth)
	return nil
}

func (c *Context) uploader() *Uploader {
	return NewUploader(c.device, c.accelerator.MemoryTypes(), c.graphicsQueue, c.graphicsPool)
}

func (c *Context) createUniform(opts Options) error {
	uniform, err := c.uploader().NewDynamicUniform(model.UniformSize)
	if err != nil {
		return err
	}
	c.uniform = uniform
	c.stack.push(uniform)

	u := model.DefaultUniform(float32(c.swapchain.Extent.Width) / float32(c.swapchain.Extent.Height))
	if opts.Uniform != nil {
		u = *opts.Uniform
	}
	return uniform.WriteMatrix(u)
}

func (c *Context) uploadGeometry(opts Options) error {
	up := c.uploader()
	var err error
	if c.vertices, err = up.UploadVertices(opts.Geometry.Vertices); err != nil {
		return errors.Wrap(err, "vertices")
	}
	c.stack.push(c.vertices)
	if c.indices, err = up.UploadIndices(opts.Geometry.Indices); err != nil {
		return errors.Wrap(err, "indices")
	}
	c.stack.push(c.indices)
	return nil
}

func (c *Context) buildPipeline(opts Options) error {
	vert, frag, err := loadShaders(opts.Shaders, opts.Config)
	if err != nil {
		return err
	}
	p, err := BuildPipeline(c.device, PipelineConfig{
		ColorFormat:    c.swapchain.Format.Format,
		DepthFormat:    c.depth.Format,
		Extent:         c.swapchain.Extent,
		ColorViews:     c.swapchain.Views,
		DepthView:      c.depth.View,
		VertexShader:   vert,
		FragmentShader: frag,
		Uniform:        c.uniform.Buffer,
	})
	if err != nil {
		return err
	}
	c.pipeline = p
	c.stack.push(p)
	return nil
}

func (c *Context) allocateCommandBuffers(Options) error {
	var err error
	if c.commandBuffers, err = c.graphicsPool.Allocate(len(c.swapchain.Images)); err != nil {
		return err
	}
	for _, cb := range c.commandBuffers {
		c.stack.push(cb)
	}
	log.WithField("images", len(c.commandBuffers)).Debug("allocated command buffers")
	return nil
}

func (c *Context) acquireImage(Options) error {
	var err error
	if c.imageAvailable, err = c.device.CreateSemaphore(); err != nil {
		return errors.Wrap(err, "image available semaphore")
	}
	c.stack.push(c.imageAvailable)
	if c.renderFinished, err = c.device.CreateSemaphore(); err != nil {
		return errors.Wrap(err, "render finished semaphore")
	}
	c.stack.push(c.renderFinished)
	if c.frameFence, err = c.device.CreateFence(false); err != nil {
		return errors.Wrap(err, "frame fence")
	}
	c.stack.push(c.frameFence)

	if c.image, err = c.swapchain.Handle.AcquireNextImage(gfx.InfiniteTimeout, c.imageAvailable); err != nil {
		return err
	}
	if c.image < 0 || c.image >= len(c.commandBuffers) {
		return errors.Errorf("acquired image %d out of range of %d", c.image, len(c.commandBuffers))
	}
	return nil
}

func (c *Context) record(opts Options) error {
	return RecordCommands(c.commandBuffers[c.image], c.image, DrawCommands{
		Pipeline:   c.pipeline,
		Extent:     c.swapchain.Extent,
		Vertices:   c.vertices,
		Indices:    c.indices,
		ClearColor: opts.Config.ClearColor,
	})
}

// Draw submits the recorded command buffer and presents the acquired image.
// The submission waits on image acquisition and presentation waits on the
// submission. Only one frame is ever recorded, so a second call returns
// ErrFrameSubmitted.
func (c *Context) Draw() error {
	if c.submitted {
		return ErrFrameSubmitted
	}
	if err := c.graphicsQueue.Submit(gfx.SubmitInfo{
		WaitSemaphores:   []gfx.Semaphore{c.imageAvailable},
		WaitStages:       []gfx.PipelineStage{gfx.PipelineStageColorAttachmentOutput},
		CommandBuffers:   []gfx.CommandBuffer{c.commandBuffers[c.image]},
		SignalSemaphores: []gfx.Semaphore{c.renderFinished},
	}, c.frameFence); err != nil {
		return stageError(StageSubmit, errors.Wrap(err, "submit frame"))
	}
	c.submitted = true
	if err := c.presentQueue.Present(gfx.PresentInfo{
		WaitSemaphores: []gfx.Semaphore{c.renderFinished},
		Swapchain:      c.swapchain.Handle,
		ImageIndex:     c.image,
	}); err != nil {
		return stageError(StageSubmit, errors.Wrap(err, "present frame"))
	}
	return nil
}

// WaitFrame blocks until the submitted frame finished executing.
func (c *Context) WaitFrame() error {
	if !c.submitted {
		return nil
	}
	return c.frameFence.Wait(gfx.InfiniteTimeout)
}

// Release waits for the device to go idle and releases everything in
// reverse creation order, the device last.
func (c *Context) Release() {
	if c.device != nil {
		if err := c.device.WaitIdle(); err != nil {
			log.WithError(err).Warn("device did not go idle before release")
		}
	}
	c.stack.release()
	c.device = nil
}

// Accelerator returns the selected accelerator.
func (c *Context) Accelerator() gfx.Accelerator { return c.accelerator }

// Families returns the queue family of each role.
func (c *Context) Families() QueueFamilies { return c.families }

// Device returns the logical device.
func (c *Context) Device() gfx.Device { return c.device }

// Swapchain returns the negotiated swapchain.
func (c *Context) Swapchain() *Swapchain { return c.swapchain }

// DepthBuffer returns the shared depth attachment.
func (c *Context) DepthBuffer() *ImageResource { return c.depth }

// Pipeline returns the render object graph.
func (c *Context) Pipeline() *Pipeline { return c.pipeline }

// Uniform returns the model-view-projection uniform buffer.
func (c *Context) Uniform() *DynamicUniform { return c.uniform }

// Vertices returns the uploaded vertex buffer.
func (c *Context) Vertices() *Resource { return c.vertices }

// Indices returns the uploaded index buffer.
func (c *Context) Indices() *Resource { return c.indices }

// CommandBuffers returns one command buffer per swapchain image.
func (c *Context) CommandBuffers() []gfx.CommandBuffer { return c.commandBuffers }

// ImageIndex returns the acquired swapchain image the commands target.
func (c *Context) ImageIndex() int { return c.image }
