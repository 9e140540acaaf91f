// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"unsafe"

	"github.com/devblok/raft/gfx"
	"github.com/devblok/raft/model"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Uploader fills device-local buffers from host data through a transient
// staging buffer. Every upload blocks until the device finished the copy.
type Uploader struct {
	device      gfx.Device
	memoryTypes []gfx.MemoryType
	queue       gfx.Queue
	pool        gfx.CommandPool
}

// NewUploader creates an uploader submitting its copies to queue with
// command buffers from pool.
func NewUploader(device gfx.Device, memoryTypes []gfx.MemoryType, queue gfx.Queue, pool gfx.CommandPool) *Uploader {
	return &Uploader{
		device:      device,
		memoryTypes: memoryTypes,
		queue:       queue,
		pool:        pool,
	}
}

// UploadVertices uploads vertex records into a vertex buffer.
func (u *Uploader) UploadVertices(vertices []model.Vertex) (*Resource, error) {
	if len(vertices) == 0 {
		return nil, errors.New("no vertices to upload")
	}
	data := unsafe.Slice((*byte)(unsafe.Pointer(&vertices[0])), len(vertices)*model.VertexSize)
	return u.Upload(data, len(vertices), gfx.BufferUsageVertex)
}

// UploadIndices uploads 32-bit indices into an index buffer.
func (u *Uploader) UploadIndices(indices []uint32) (*Resource, error) {
	if len(indices) == 0 {
		return nil, errors.New("no indices to upload")
	}
	data := unsafe.Slice((*byte)(unsafe.Pointer(&indices[0])), len(indices)*4)
	return u.Upload(data, len(indices), gfx.BufferUsageIndex)
}

// UploadStorage uploads count records held in data into a buffer usable
// both as a storage and a vertex buffer.
func (u *Uploader) UploadStorage(data []byte, count int) (*Resource, error) {
	return u.Upload(data, count, gfx.BufferUsageStorage|gfx.BufferUsageVertex)
}

// Upload copies data into a new device-local buffer with the given usage.
// The returned resource is fully written; the staging buffer, its memory,
// the command buffer and the fence are released before returning.
func (u *Uploader) Upload(data []byte, count int, usage gfx.BufferUsage) (*Resource, error) {
	if len(data) == 0 {
		return nil, errors.New("nothing to upload")
	}
	size := uint64(len(data))

	var transient releaseStack
	defer transient.release()

	staging, err := allocate(u.device, u.memoryTypes, size, gfx.BufferUsageTransferSrc, HostShared)
	if err != nil {
		return nil, errors.Wrap(err, "staging buffer")
	}
	transient.push(staging)

	mapped, err := staging.Memory.Map()
	if err != nil {
		return nil, errors.Wrap(err, "map staging memory")
	}
	copy(mapped, data)
	staging.Memory.Unmap()

	dst, err := allocate(u.device, u.memoryTypes, size, gfx.BufferUsageTransferDst|usage, DeviceLocal)
	if err != nil {
		return nil, errors.Wrap(err, "destination buffer")
	}
	dst.Count = count

	if err := u.copyBuffer(staging.Buffer, dst.Buffer, size, &transient); err != nil {
		dst.Release()
		return nil, err
	}

	log.WithFields(log.Fields{
		"bytes": size,
		"count": count,
		"usage": usage,
	}).Debug("uploaded buffer")
	return dst, nil
}

// copyBuffer records and submits a one-time copy and waits for its fence.
// Transient objects are pushed onto stack for the caller to release.
func (u *Uploader) copyBuffer(src, dst gfx.Buffer, size uint64, stack *releaseStack) error {
	buffers, err := u.pool.Allocate(1)
	if err != nil {
		return errors.Wrap(err, "allocate copy command buffer")
	}
	cb := buffers[0]
	stack.push(cb)

	if err := cb.Begin(gfx.CommandBufferOneTimeSubmit); err != nil {
		return errors.Wrap(err, "begin copy command buffer")
	}
	cb.CopyBuffer(src, dst, size)
	if err := cb.End(); err != nil {
		return errors.Wrap(err, "end copy command buffer")
	}

	fence, err := u.device.CreateFence(false)
	if err != nil {
		return errors.Wrap(err, "create copy fence")
	}
	stack.push(fence)

	if err := u.queue.Submit(gfx.SubmitInfo{CommandBuffers: []gfx.CommandBuffer{cb}}, fence); err != nil {
		return errors.Wrap(err, "submit copy")
	}
	return errors.Wrap(fence.Wait(gfx.InfiniteTimeout), "wait for copy")
}

// DynamicUniform is a host-visible, host-coherent uniform buffer that the
// host rewrites directly.
type DynamicUniform struct {
	Resource
}

// NewDynamicUniform creates a uniform buffer of size bytes.
func (u *Uploader) NewDynamicUniform(size uint64) (*DynamicUniform, error) {
	res, err := allocate(u.device, u.memoryTypes, size, gfx.BufferUsageUniform, HostShared)
	if err != nil {
		return nil, errors.Wrap(err, "uniform buffer")
	}
	res.Count = 1
	return &DynamicUniform{Resource: *res}, nil
}

// Size returns the usable size of the uniform buffer.
func (d *DynamicUniform) Size() uint64 {
	return d.Buffer.Size()
}

// Write maps the uniform memory, copies data to its start and unmaps it.
func (d *DynamicUniform) Write(data []byte) error {
	if uint64(len(data)) > d.Size() {
		return errors.Errorf("uniform write of %d bytes exceeds buffer of %d", len(data), d.Size())
	}
	mapped, err := d.Memory.Map()
	if err != nil {
		return errors.Wrap(err, "map uniform memory")
	}
	copy(mapped, data)
	d.Memory.Unmap()
	return nil
}

// WriteMatrix writes a model-view-projection uniform.
func (d *DynamicUniform) WriteMatrix(u model.Uniform) error {
	return d.Write(u.Bytes())
}
