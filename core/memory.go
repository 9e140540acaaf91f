// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"github.com/devblok/raft/gfx"
	"github.com/pkg/errors"
)

// Memory property sets used throughout the context.
const (
	DeviceLocal = gfx.MemoryDeviceLocal
	HostShared  = gfx.MemoryHostVisible | gfx.MemoryHostCoherent
)

// FindMemoryType returns the lowest index of a memory type permitted by
// typeBits that has all the wanted properties.
func FindMemoryType(types []gfx.MemoryType, typeBits uint32, wanted gfx.MemoryProperty) (int, error) {
	for idx := 0; idx < len(types) && idx < 32; idx++ {
		if typeBits&(1<<uint(idx)) != 0 && types[idx].Properties&wanted == wanted {
			return idx, nil
		}
	}
	return -1, &NoSuitableMemoryTypeError{TypeBits: typeBits, Wanted: wanted}
}

// Resource is a buffer together with the memory bound to it. Both are
// released as one unit.
type Resource struct {
	Buffer gfx.Buffer
	Memory gfx.Memory

	// Count is the number of elements stored.
	Count int
}

// Release releases the buffer and then its memory.
func (r *Resource) Release() {
	if r.Buffer != nil {
		r.Buffer.Release()
		r.Buffer = nil
	}
	if r.Memory != nil {
		r.Memory.Release()
		r.Memory = nil
	}
}

// allocate creates a buffer and binds fresh memory of the wanted kind to it.
func allocate(dev gfx.Device, types []gfx.MemoryType, size uint64, usage gfx.BufferUsage, wanted gfx.MemoryProperty) (*Resource, error) {
	buffer, err := dev.CreateBuffer(size, usage)
	if err != nil {
		return nil, errors.Wrap(err, "create buffer")
	}
	res := &Resource{Buffer: buffer}

	req := buffer.Requirements()
	memType, err := FindMemoryType(types, req.TypeBits, wanted)
	if err != nil {
		res.Release()
		return nil, err
	}
	if res.Memory, err = dev.AllocateMemory(req.Size, memType); err != nil {
		res.Release()
		return nil, errors.Wrap(err, "allocate memory")
	}
	if err := buffer.Bind(res.Memory); err != nil {
		res.Release()
		return nil, errors.Wrap(err, "bind buffer memory")
	}
	return res, nil
}

// ImageResource is an image, its memory and a view of it.
type ImageResource struct {
	Image  gfx.Image
	Memory gfx.Memory
	View   gfx.ImageView
	Format gfx.Format
}

// Release releases the view, the image and then its memory.
func (r *ImageResource) Release() {
	if r.View != nil {
		r.View.Release()
		r.View = nil
	}
	if r.Image != nil {
		r.Image.Release()
		r.Image = nil
	}
	if r.Memory != nil {
		r.Memory.Release()
		r.Memory = nil
	}
}

// DepthFormat is the format of the depth attachment.
const DepthFormat = gfx.FormatD16Unorm

// NewDepthBuffer creates a device-local depth image covering extent.
func NewDepthBuffer(dev gfx.Device, types []gfx.MemoryType, extent gfx.Extent2D) (*ImageResource, error) {
	img, err := dev.CreateImage(gfx.ImageInfo{
		Format: DepthFormat,
		Extent: extent,
		Usage:  gfx.ImageUsageDepthStencilAttachment,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create depth image")
	}
	res := &ImageResource{Image: img, Format: DepthFormat}

	req := img.Requirements()
	memType, err := FindMemoryType(types, req.TypeBits, DeviceLocal)
	if err != nil {
		res.Release()
		return nil, err
	}
	if res.Memory, err = dev.AllocateMemory(req.Size, memType); err != nil {
		res.Release()
		return nil, errors.Wrap(err, "allocate depth memory")
	}
	if err := img.Bind(res.Memory); err != nil {
		res.Release()
		return nil, errors.Wrap(err, "bind depth memory")
	}
	if res.View, err = dev.CreateImageView(gfx.ImageViewInfo{
		Image:  img,
		Format: DepthFormat,
		Aspect: gfx.ImageAspectDepth,
	}); err != nil {
		res.Release()
		return nil, errors.Wrap(err, "create depth view")
	}
	return res, nil
}
