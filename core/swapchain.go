// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"github.com/devblok/raft/gfx"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// DefaultSurfaceFormat is used when the surface accepts any format.
var DefaultSurfaceFormat = gfx.SurfaceFormat{
	Format:     gfx.FormatB8G8R8A8Unorm,
	ColorSpace: gfx.ColorSpaceSrgbNonlinear,
}

// presentModePreference lists present modes from most to least wanted.
var presentModePreference = []gfx.PresentMode{
	gfx.PresentModeMailbox,
	gfx.PresentModeFifoRelaxed,
	gfx.PresentModeFifo,
	gfx.PresentModeImmediate,
}

// ChooseSurfaceFormat picks the default format when the surface reports
// a single undefined format, otherwise the first reported one.
func ChooseSurfaceFormat(formats []gfx.SurfaceFormat) (gfx.SurfaceFormat, error) {
	switch {
	case len(formats) == 0:
		return gfx.SurfaceFormat{}, ErrNoSurfaceFormats
	case len(formats) == 1 && formats[0].Format == gfx.FormatUndefined:
		return DefaultSurfaceFormat, nil
	}
	return formats[0], nil
}

// ChoosePresentMode picks Mailbox, FifoRelaxed or Fifo, in that order of
// preference, and Immediate when none of them is reported.
func ChoosePresentMode(modes []gfx.PresentMode) gfx.PresentMode {
	for _, want := range presentModePreference {
		for _, m := range modes {
			if m == want {
				return m
			}
		}
	}
	return gfx.PresentModeImmediate
}

// ChooseExtent takes the current surface extent verbatim, unless the surface
// leaves it to the swapchain, in which case fallback is used.
func ChooseExtent(caps gfx.SurfaceCapabilities, fallback gfx.Extent2D) gfx.Extent2D {
	if caps.CurrentExtent.Width == gfx.UndefinedExtent {
		return fallback
	}
	return caps.CurrentExtent
}

// chooseImageCount clamps the wanted image count to the surface limits.
// A maximum of zero means no upper limit.
func chooseImageCount(caps gfx.SurfaceCapabilities, want int) int {
	if want < caps.MinImageCount {
		want = caps.MinImageCount
	}
	if caps.MaxImageCount > 0 && want > caps.MaxImageCount {
		want = caps.MaxImageCount
	}
	return want
}

// SwapchainConfig carries the caller's wishes for the swapchain.
type SwapchainConfig struct {
	Surface  gfx.Surface
	Families QueueFamilies
	Images   int
	Extent   gfx.Extent2D
}

// Swapchain is a swapchain with one color view per image, in image order.
type Swapchain struct {
	Handle      gfx.Swapchain
	Format      gfx.SurfaceFormat
	PresentMode gfx.PresentMode
	Extent      gfx.Extent2D
	Images      []gfx.Image
	Views       []gfx.ImageView
}

// NewSwapchain negotiates format, present mode and extent with the surface,
// then creates the swapchain and its image views.
func NewSwapchain(dev gfx.Device, acc gfx.Accelerator, cfg SwapchainConfig) (*Swapchain, error) {
	caps, err := acc.SurfaceCapabilities(cfg.Surface)
	if err != nil {
		return nil, errors.Wrap(err, "surface capabilities")
	}
	formats, err := acc.SurfaceFormats(cfg.Surface)
	if err != nil {
		return nil, errors.Wrap(err, "surface formats")
	}
	format, err := ChooseSurfaceFormat(formats)
	if err != nil {
		return nil, err
	}
	modes, err := acc.PresentModes(cfg.Surface)
	if err != nil {
		return nil, errors.Wrap(err, "present modes")
	}

	sc := &Swapchain{
		Format:      format,
		PresentMode: ChoosePresentMode(modes),
		Extent:      ChooseExtent(caps, cfg.Extent),
	}

	alpha := gfx.CompositeAlphaOpaque
	if caps.SupportedCompositeAlpha&alpha == 0 {
		alpha = gfx.CompositeAlphaInherit
	}
	families := []int{cfg.Families.Graphics}
	if cfg.Families.Present != cfg.Families.Graphics {
		families = append(families, cfg.Families.Present)
	}

	if sc.Handle, err = dev.CreateSwapchain(gfx.SwapchainInfo{
		Surface:        cfg.Surface,
		MinImageCount:  chooseImageCount(caps, cfg.Images),
		Format:         format,
		Extent:         sc.Extent,
		Usage:          gfx.ImageUsageColorAttachment,
		Transform:      caps.CurrentTransform,
		CompositeAlpha: alpha,
		PresentMode:    sc.PresentMode,
		QueueFamilies:  families,
	}); err != nil {
		return nil, errors.Wrap(err, "create swapchain")
	}

	if sc.Images, err = sc.Handle.Images(); err != nil {
		sc.Release()
		return nil, errors.Wrap(err, "swapchain images")
	}
	for idx, img := range sc.Images {
		view, err := dev.CreateImageView(gfx.ImageViewInfo{
			Image:  img,
			Format: format.Format,
			Aspect: gfx.ImageAspectColor,
		})
		if err != nil {
			sc.Release()
			return nil, errors.Wrapf(err, "create view of swapchain image %d", idx)
		}
		sc.Views = append(sc.Views, view)
	}

	log.WithFields(log.Fields{
		"format":  format.Format,
		"present": sc.PresentMode,
		"width":   sc.Extent.Width,
		"height":  sc.Extent.Height,
		"images":  len(sc.Images),
	}).Debug("created swapchain")
	return sc, nil
}

// Release releases the image views in reverse order, then the swapchain.
func (sc *Swapchain) Release() {
	for idx := len(sc.Views) - 1; idx >= 0; idx-- {
		sc.Views[idx].Release()
	}
	sc.Views = nil
	if sc.Handle != nil {
		sc.Handle.Release()
		sc.Handle = nil
	}
	sc.Images = nil
}
