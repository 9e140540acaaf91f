package core_test

import (
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/devblok/raft/core"
	"github.com/devblok/raft/gfx"
	"github.com/devblok/raft/gfx/gfxtest"
)

func TestChooseSurfaceFormat(t *testing.T) {
	c := qt.New(t)

	srgb := gfx.SurfaceFormat{Format: gfx.FormatB8G8R8A8Srgb, ColorSpace: gfx.ColorSpaceSrgbNonlinear}
	rgba := gfx.SurfaceFormat{Format: gfx.FormatR8G8B8A8Unorm, ColorSpace: gfx.ColorSpaceSrgbNonlinear}

	tests := []struct {
		about   string
		formats []gfx.SurfaceFormat
		expect  gfx.SurfaceFormat
	}{
		{"single undefined", []gfx.SurfaceFormat{{Format: gfx.FormatUndefined}}, core.DefaultSurfaceFormat},
		{"single defined", []gfx.SurfaceFormat{srgb}, srgb},
		{"first of many", []gfx.SurfaceFormat{rgba, srgb}, rgba},
		{"undefined among many", []gfx.SurfaceFormat{{Format: gfx.FormatUndefined}, srgb}, gfx.SurfaceFormat{Format: gfx.FormatUndefined}},
	}
	for _, test := range tests {
		c.Run(test.about, func(c *qt.C) {
			got, err := core.ChooseSurfaceFormat(test.formats)
			c.Assert(err, qt.IsNil)
			c.Assert(got, qt.Equals, test.expect)
		})
	}

	_, err := core.ChooseSurfaceFormat(nil)
	c.Assert(err, qt.Equals, core.ErrNoSurfaceFormats)
}

func TestChoosePresentMode(t *testing.T) {
	c := qt.New(t)

	tests := []struct {
		modes  []gfx.PresentMode
		expect gfx.PresentMode
	}{
		{[]gfx.PresentMode{gfx.PresentModeFifo, gfx.PresentModeMailbox}, gfx.PresentModeMailbox},
		{[]gfx.PresentMode{gfx.PresentModeFifo}, gfx.PresentModeFifo},
		{[]gfx.PresentMode{gfx.PresentModeFifo, gfx.PresentModeFifoRelaxed, gfx.PresentModeImmediate}, gfx.PresentModeFifoRelaxed},
		{[]gfx.PresentMode{gfx.PresentModeImmediate, gfx.PresentModeFifo}, gfx.PresentModeFifo},
		{[]gfx.PresentMode{gfx.PresentModeImmediate}, gfx.PresentModeImmediate},
		{nil, gfx.PresentModeImmediate},
		{[]gfx.PresentMode{gfx.PresentMode(1000361000)}, gfx.PresentModeImmediate},
	}
	for _, test := range tests {
		c.Assert(core.ChoosePresentMode(test.modes), qt.Equals, test.expect, qt.Commentf("modes %v", test.modes))
	}
}

func TestChooseExtent(t *testing.T) {
	c := qt.New(t)

	fallback := gfx.Extent2D{Width: 1024, Height: 768}
	caps := gfx.SurfaceCapabilities{CurrentExtent: gfx.Extent2D{Width: 640, Height: 480}}
	c.Assert(core.ChooseExtent(caps, fallback), qt.Equals, caps.CurrentExtent)

	caps.CurrentExtent = gfx.Extent2D{Width: gfx.UndefinedExtent, Height: gfx.UndefinedExtent}
	c.Assert(core.ChooseExtent(caps, fallback), qt.Equals, fallback)
}

type swapchainFixture struct {
	inst   *gfxtest.Instance
	acc    *gfxtest.Accelerator
	device gfx.Device
}

func newSwapchainFixture(c *qt.C, cfg gfxtest.Config, families ...int) *swapchainFixture {
	inst := gfxtest.NewInstance(cfg)
	acc := inst.Accelerator(0)
	if len(families) == 0 {
		families = []int{0}
	}
	dev, err := acc.CreateDevice(families, []string{core.SwapchainExtension})
	c.Assert(err, qt.IsNil)
	return &swapchainFixture{inst: inst, acc: acc, device: dev}
}

func TestNewSwapchain(t *testing.T) {
	c := qt.New(t)

	cfg := gfxtest.DefaultConfig()
	cfg.ImageCount = 3
	f := newSwapchainFixture(c, cfg)
	reg := f.inst.Registry()
	surface := &gfxtest.Surface{Name: "window"}

	sc, err := core.NewSwapchain(f.device, f.acc, core.SwapchainConfig{
		Surface: surface,
		Images:  3,
		Extent:  gfx.Extent2D{Width: 1, Height: 1},
	})
	c.Assert(err, qt.IsNil)

	c.Assert(sc.Format, qt.Equals, gfx.SurfaceFormat{Format: gfx.FormatB8G8R8A8Unorm, ColorSpace: gfx.ColorSpaceSrgbNonlinear})
	c.Assert(sc.PresentMode, qt.Equals, gfx.PresentModeMailbox)
	c.Assert(sc.Extent, qt.Equals, gfx.Extent2D{Width: 800, Height: 600})
	c.Assert(sc.Images, qt.HasLen, 3)
	c.Assert(sc.Views, qt.HasLen, 3)

	// one color view per image, in image order
	for idx, v := range sc.Views {
		info := v.(*gfxtest.ImageView).Info
		c.Assert(info.Image, qt.Equals, sc.Images[idx])
		c.Assert(info.Format, qt.Equals, gfx.FormatB8G8R8A8Unorm)
		c.Assert(info.Aspect, qt.Equals, gfx.ImageAspectColor)
	}

	info := sc.Handle.(*gfxtest.Swapchain).Info
	c.Assert(info.Surface, qt.Equals, gfx.Surface(surface))
	c.Assert(info.MinImageCount, qt.Equals, 3)
	c.Assert(info.Usage, qt.Equals, gfx.ImageUsageColorAttachment)
	c.Assert(info.CompositeAlpha, qt.Equals, gfx.CompositeAlphaOpaque)
	c.Assert(info.Transform, qt.Equals, gfx.SurfaceTransformIdentity)
	c.Assert(info.QueueFamilies, qt.DeepEquals, []int{0})

	sc.Release()
	c.Assert(reg.Live("image-view"), qt.Equals, 0)
	c.Assert(reg.Live("swapchain"), qt.Equals, 0)
	f.device.Release()
	c.Assert(reg.Violations(), qt.HasLen, 0)
}

func TestNewSwapchainClampsImageCount(t *testing.T) {
	c := qt.New(t)

	tests := []struct {
		about  string
		min    int
		max    int
		want   int
		expect int
	}{
		{"within limits", 2, 8, 3, 3},
		{"below minimum", 2, 8, 1, 2},
		{"above maximum", 2, 4, 6, 4},
		{"no maximum", 2, 0, 16, 16},
	}
	for _, test := range tests {
		c.Run(test.about, func(c *qt.C) {
			cfg := gfxtest.DefaultConfig()
			cfg.Capabilities.MinImageCount = test.min
			cfg.Capabilities.MaxImageCount = test.max
			f := newSwapchainFixture(c, cfg)
			defer f.device.Release()

			sc, err := core.NewSwapchain(f.device, f.acc, core.SwapchainConfig{
				Surface: &gfxtest.Surface{},
				Images:  test.want,
			})
			c.Assert(err, qt.IsNil)
			defer sc.Release()
			c.Assert(sc.Handle.(*gfxtest.Swapchain).Info.MinImageCount, qt.Equals, test.expect)
			c.Assert(sc.Images, qt.HasLen, test.expect)
		})
	}
}

func TestNewSwapchainUndefinedExtent(t *testing.T) {
	c := qt.New(t)

	cfg := gfxtest.DefaultConfig()
	cfg.Capabilities.CurrentExtent = gfx.Extent2D{Width: gfx.UndefinedExtent, Height: gfx.UndefinedExtent}
	cfg.Formats = []gfx.SurfaceFormat{{Format: gfx.FormatUndefined}}
	cfg.PresentModes = []gfx.PresentMode{gfx.PresentModeFifo}
	cfg.Capabilities.SupportedCompositeAlpha = gfx.CompositeAlphaInherit
	f := newSwapchainFixture(c, cfg)
	defer f.device.Release()

	sc, err := core.NewSwapchain(f.device, f.acc, core.SwapchainConfig{
		Surface: &gfxtest.Surface{},
		Images:  2,
		Extent:  gfx.Extent2D{Width: 320, Height: 200},
	})
	c.Assert(err, qt.IsNil)
	defer sc.Release()

	c.Assert(sc.Extent, qt.Equals, gfx.Extent2D{Width: 320, Height: 200})
	c.Assert(sc.Format, qt.Equals, core.DefaultSurfaceFormat)
	c.Assert(sc.PresentMode, qt.Equals, gfx.PresentModeFifo)
	c.Assert(sc.Handle.(*gfxtest.Swapchain).Info.CompositeAlpha, qt.Equals, gfx.CompositeAlphaInherit)
	for _, img := range sc.Images {
		c.Assert(img.(*gfxtest.Image).Info().Extent, qt.Equals, sc.Extent)
	}
}

func TestNewSwapchainSeparatePresentFamily(t *testing.T) {
	c := qt.New(t)

	cfg := gfxtest.DefaultConfig()
	cfg.Families = []gfx.QueueFamily{
		{Flags: gfx.QueueGraphics | gfx.QueueCompute, QueueCount: 1},
		{Flags: gfx.QueueGraphics, QueueCount: 1},
	}
	cfg.Present = []bool{false, true}
	f := newSwapchainFixture(c, cfg, 0, 1)
	defer f.device.Release()

	sc, err := core.NewSwapchain(f.device, f.acc, core.SwapchainConfig{
		Surface:  &gfxtest.Surface{},
		Families: core.QueueFamilies{Graphics: 0, Compute: 0, Present: 1},
		Images:   2,
	})
	c.Assert(err, qt.IsNil)
	defer sc.Release()
	c.Assert(sc.Handle.(*gfxtest.Swapchain).Info.QueueFamilies, qt.DeepEquals, []int{0, 1})
}

func TestNewSwapchainNoFormats(t *testing.T) {
	c := qt.New(t)

	cfg := gfxtest.DefaultConfig()
	cfg.Formats = nil
	f := newSwapchainFixture(c, cfg)
	defer f.device.Release()

	_, err := core.NewSwapchain(f.device, f.acc, core.SwapchainConfig{Surface: &gfxtest.Surface{}, Images: 2})
	c.Assert(err, qt.Equals, core.ErrNoSurfaceFormats)
	c.Assert(f.inst.Registry().Created("swapchain"), qt.Equals, 0)
}
