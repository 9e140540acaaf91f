// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package gfxtest

import (
	"sync"
	"time"

	"github.com/devblok/raft/gfx"
	"github.com/pkg/errors"
)

// ErrTimeout is returned by Fence.Wait when the timeout passes first.
var ErrTimeout = errors.New("gfxtest: fence wait timed out")

// CommandBufferState is the lifecycle state of a command buffer.
type CommandBufferState int

const (
	StateInitial CommandBufferState = iota
	StateRecording
	StateExecutable
	StatePending
)

func (s CommandBufferState) String() string {
	switch s {
	case StateInitial:
		return "initial"
	case StateRecording:
		return "recording"
	case StateExecutable:
		return "executable"
	case StatePending:
		return "pending"
	}
	return "invalid"
}

// Op names a recorded command.
type Op string

const (
	OpCopyBuffer         Op = "CopyBuffer"
	OpBeginRenderPass    Op = "BeginRenderPass"
	OpEndRenderPass      Op = "EndRenderPass"
	OpBindPipeline       Op = "BindPipeline"
	OpBindDescriptorSets Op = "BindDescriptorSets"
	OpBindVertexBuffer   Op = "BindVertexBuffer"
	OpBindIndexBuffer    Op = "BindIndexBuffer"
	OpSetViewport        Op = "SetViewport"
	OpDrawIndexed        Op = "DrawIndexed"
)

// Command is one recorded command. Only the fields relevant to Op are set.
type Command struct {
	Op Op

	Src, Dst   *Buffer
	Size       uint64
	Begin      gfx.RenderPassBegin
	Pipeline   gfx.Pipeline
	Layout     gfx.PipelineLayout
	Sets       []gfx.DescriptorSet
	Buffer     *Buffer
	IndexType  gfx.IndexType
	Viewport   gfx.Viewport
	IndexCount int
}

// CommandPool is a fake command pool.
type CommandPool struct {
	*handle

	device *Device
	family int
}

// Release implements gfx.Releasable.
func (p *CommandPool) Release() { p.release() }

// Allocate implements gfx.CommandPool.
func (p *CommandPool) Allocate(count int) ([]gfx.CommandBuffer, error) {
	if count <= 0 {
		return nil, errors.New("command buffer count must be positive")
	}
	out := make([]gfx.CommandBuffer, count)
	for i := range out {
		out[i] = &CommandBuffer{handle: p.reg.track("command-buffer", p.handle), pool: p}
	}
	return out, nil
}

// CommandBuffer is a fake command buffer with a state machine matching
// the one of the real API.
type CommandBuffer struct {
	*handle

	pool *CommandPool

	mu        sync.Mutex
	state     CommandBufferState
	usage     gfx.CommandBufferUsage
	commands  []Command
	err       error
	submitted int
}

// Release implements gfx.Releasable.
func (cb *CommandBuffer) Release() { cb.release() }

// State returns the current lifecycle state.
func (cb *CommandBuffer) State() CommandBufferState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Commands returns the recorded commands.
func (cb *CommandBuffer) Commands() []Command {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return append([]Command(nil), cb.commands...)
}

// Submitted returns how many times the buffer was submitted.
func (cb *CommandBuffer) Submitted() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.submitted
}

// Begin implements gfx.CommandBuffer.
func (cb *CommandBuffer) Begin(usage gfx.CommandBufferUsage) error {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.state == StateRecording || cb.state == StatePending {
		return errors.Errorf("%s cannot begin in %s state", cb.handle, cb.state)
	}
	cb.state = StateRecording
	cb.usage = usage
	cb.commands = nil
	cb.err = nil
	return nil
}

// End implements gfx.CommandBuffer. It reports the first misuse made
// while recording.
func (cb *CommandBuffer) End() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.state != StateRecording {
		return errors.Errorf("%s cannot end in %s state", cb.handle, cb.state)
	}
	if cb.err != nil {
		cb.state = StateInitial
		return cb.err
	}
	cb.state = StateExecutable
	return nil
}

func (cb *CommandBuffer) record(c Command) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.state != StateRecording {
		if cb.err == nil {
			cb.err = errors.Errorf("%s recorded %s outside of recording state", cb.handle, c.Op)
		}
		return
	}
	cb.commands = append(cb.commands, c)
}

func (cb *CommandBuffer) fail(err error) {
	cb.mu.Lock()
	if cb.err == nil {
		cb.err = err
	}
	cb.mu.Unlock()
}

// CopyBuffer implements gfx.CommandBuffer.
func (cb *CommandBuffer) CopyBuffer(src, dst gfx.Buffer, size uint64) {
	s, ok1 := src.(*Buffer)
	d, ok2 := dst.(*Buffer)
	if !ok1 || !ok2 {
		cb.fail(errors.New("copy needs gfxtest buffers"))
		return
	}
	if size > s.size || size > d.size {
		cb.fail(errors.Errorf("copy of %d bytes exceeds buffer size", size))
		return
	}
	if s.usage&gfx.BufferUsageTransferSrc == 0 || d.usage&gfx.BufferUsageTransferDst == 0 {
		cb.fail(errors.New("copy needs transfer usage on both buffers"))
		return
	}
	cb.record(Command{Op: OpCopyBuffer, Src: s, Dst: d, Size: size})
}

// BeginRenderPass implements gfx.CommandBuffer.
func (cb *CommandBuffer) BeginRenderPass(info gfx.RenderPassBegin) {
	fb, ok := info.Framebuffer.(*Framebuffer)
	if !ok || fb.Released() {
		cb.fail(errors.New("render pass needs a live gfxtest framebuffer"))
		return
	}
	rp, ok := info.RenderPass.(*RenderPass)
	if !ok {
		cb.fail(errors.New("render pass begin needs a gfxtest render pass"))
		return
	}
	if len(info.ClearValues) < len(rp.Info.Attachments) {
		cb.fail(errors.Errorf("%d clear values for %d attachments", len(info.ClearValues), len(rp.Info.Attachments)))
		return
	}
	cb.record(Command{Op: OpBeginRenderPass, Begin: info})
}

// EndRenderPass implements gfx.CommandBuffer.
func (cb *CommandBuffer) EndRenderPass() {
	cb.record(Command{Op: OpEndRenderPass})
}

// BindPipeline implements gfx.CommandBuffer.
func (cb *CommandBuffer) BindPipeline(pipeline gfx.Pipeline) {
	cb.record(Command{Op: OpBindPipeline, Pipeline: pipeline})
}

// BindDescriptorSets implements gfx.CommandBuffer.
func (cb *CommandBuffer) BindDescriptorSets(layout gfx.PipelineLayout, sets []gfx.DescriptorSet) {
	cb.record(Command{Op: OpBindDescriptorSets, Layout: layout, Sets: sets})
}

// BindVertexBuffer implements gfx.CommandBuffer.
func (cb *CommandBuffer) BindVertexBuffer(buffer gfx.Buffer) {
	b, ok := buffer.(*Buffer)
	if !ok || b.usage&gfx.BufferUsageVertex == 0 {
		cb.fail(errors.New("vertex binding needs a gfxtest buffer with vertex usage"))
		return
	}
	cb.record(Command{Op: OpBindVertexBuffer, Buffer: b})
}

// BindIndexBuffer implements gfx.CommandBuffer.
func (cb *CommandBuffer) BindIndexBuffer(buffer gfx.Buffer, indexType gfx.IndexType) {
	b, ok := buffer.(*Buffer)
	if !ok || b.usage&gfx.BufferUsageIndex == 0 {
		cb.fail(errors.New("index binding needs a gfxtest buffer with index usage"))
		return
	}
	cb.record(Command{Op: OpBindIndexBuffer, Buffer: b, IndexType: indexType})
}

// SetViewport implements gfx.CommandBuffer.
func (cb *CommandBuffer) SetViewport(viewport gfx.Viewport) {
	cb.record(Command{Op: OpSetViewport, Viewport: viewport})
}

// DrawIndexed implements gfx.CommandBuffer.
func (cb *CommandBuffer) DrawIndexed(indexCount int) {
	cb.record(Command{Op: OpDrawIndexed, IndexCount: indexCount})
}

// execute runs the recorded transfers on the host.
func (cb *CommandBuffer) execute() {
	cb.mu.Lock()
	commands := cb.commands
	cb.mu.Unlock()
	for _, c := range commands {
		if c.Op != OpCopyBuffer || c.Src.memory == nil || c.Dst.memory == nil {
			continue
		}
		c.Src.memory.mu.Lock()
		data := append([]byte(nil), c.Src.memory.data[:c.Size]...)
		c.Src.memory.mu.Unlock()
		c.Dst.memory.mu.Lock()
		copy(c.Dst.memory.data, data)
		c.Dst.memory.mu.Unlock()
	}
}

// Fence is a fake fence.
type Fence struct {
	*handle

	mu       sync.Mutex
	done     chan struct{}
	signaled bool
	pending  bool

	// SignaledAt is the time the fence was last signaled.
	SignaledAt time.Time
}

// Release implements gfx.Releasable.
func (f *Fence) Release() { f.release() }

func (f *Fence) signal() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.signaled {
		return
	}
	f.signaled = true
	f.pending = false
	f.SignaledAt = time.Now()
	close(f.done)
}

// Signaled reports whether the fence is signaled.
func (f *Fence) Signaled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.signaled
}

// Wait implements gfx.Fence.
func (f *Fence) Wait(timeout uint64) error {
	f.mu.Lock()
	done := f.done
	idle := !f.signaled && !f.pending
	f.mu.Unlock()
	if idle {
		return errors.Errorf("wait on %s that was never submitted", f.handle)
	}
	if timeout == gfx.InfiniteTimeout {
		<-done
		return nil
	}
	select {
	case <-done:
		return nil
	case <-time.After(time.Duration(timeout)):
		return ErrTimeout
	}
}

// Queue is a fake device queue. Submissions execute on a timer after
// the accelerator's FenceDelay.
type Queue struct {
	device *Device
	family int

	mu          sync.Mutex
	submissions []gfx.SubmitInfo
	presents    []gfx.PresentInfo
	inflight    sync.WaitGroup
}

// Family returns the queue family index of the queue.
func (q *Queue) Family() int {
	return q.family
}

// Submissions returns every batch submitted to the queue.
func (q *Queue) Submissions() []gfx.SubmitInfo {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]gfx.SubmitInfo(nil), q.submissions...)
}

// Presents returns every presentation request made on the queue.
func (q *Queue) Presents() []gfx.PresentInfo {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]gfx.PresentInfo(nil), q.presents...)
}

// Submit implements gfx.Queue.
func (q *Queue) Submit(info gfx.SubmitInfo, fence gfx.Fence) error {
	if len(info.WaitSemaphores) != len(info.WaitStages) {
		return errors.New("every wait semaphore needs a wait stage")
	}
	var f *Fence
	if fence != nil {
		var ok bool
		if f, ok = fence.(*Fence); !ok {
			return errors.New("submission needs a gfxtest fence")
		}
		f.mu.Lock()
		busy := f.signaled || f.pending
		if !busy {
			f.pending = true
		}
		f.mu.Unlock()
		if busy {
			return errors.Errorf("%s submitted while signaled or pending", f.handle)
		}
	}
	buffers := make([]*CommandBuffer, 0, len(info.CommandBuffers))
	for _, c := range info.CommandBuffers {
		cb, ok := c.(*CommandBuffer)
		if !ok {
			return errors.New("submission needs gfxtest command buffers")
		}
		if cb.pool.family != q.family {
			return errors.Errorf("%s belongs to family %d, queue is family %d", cb.handle, cb.pool.family, q.family)
		}
		if s := cb.State(); s != StateExecutable {
			return errors.Errorf("%s submitted in %s state", cb.handle, s)
		}
		buffers = append(buffers, cb)
	}
	for _, s := range info.WaitSemaphores {
		sem, ok := s.(*Semaphore)
		if !ok {
			return errors.New("submission needs gfxtest semaphores")
		}
		if err := sem.consume(); err != nil {
			return err
		}
	}
	for _, cb := range buffers {
		cb.mu.Lock()
		cb.state = StatePending
		cb.submitted++
		cb.mu.Unlock()
	}
	q.mu.Lock()
	q.submissions = append(q.submissions, info)
	q.mu.Unlock()

	q.device.pending.Add(1)
	q.inflight.Add(1)
	complete := func() {
		defer q.device.pending.Done()
		defer q.inflight.Done()
		for _, cb := range buffers {
			cb.execute()
			cb.mu.Lock()
			cb.state = StateExecutable
			cb.mu.Unlock()
		}
		for _, s := range info.SignalSemaphores {
			if sem, ok := s.(*Semaphore); ok {
				sem.signal()
			}
		}
		if f != nil {
			f.signal()
		}
	}
	if delay := q.device.acc.cfg.FenceDelay; delay > 0 {
		time.AfterFunc(delay, complete)
	} else {
		complete()
	}
	return nil
}

// Present implements gfx.Queue.
func (q *Queue) Present(info gfx.PresentInfo) error {
	sc, ok := info.Swapchain.(*Swapchain)
	if !ok {
		return errors.New("presentation needs a gfxtest swapchain")
	}
	if info.ImageIndex < 0 || info.ImageIndex >= len(sc.images) {
		return errors.Errorf("image index %d out of range", info.ImageIndex)
	}
	q.device.pending.Wait()
	for _, s := range info.WaitSemaphores {
		sem, ok := s.(*Semaphore)
		if !ok {
			return errors.New("presentation needs gfxtest semaphores")
		}
		if err := sem.consume(); err != nil {
			return err
		}
	}
	q.mu.Lock()
	q.presents = append(q.presents, info)
	q.mu.Unlock()
	return nil
}

// WaitIdle implements gfx.Queue.
func (q *Queue) WaitIdle() error {
	q.inflight.Wait()
	return nil
}

// Swapchain is a fake swapchain.
type Swapchain struct {
	*handle

	Info   gfx.SwapchainInfo
	images []*Image

	mu   sync.Mutex
	next int
}

// CreateSwapchain implements gfx.Device.
func (d *Device) CreateSwapchain(info gfx.SwapchainInfo) (gfx.Swapchain, error) {
	if info.Surface == nil {
		return nil, errors.New("swapchain needs a surface")
	}
	if info.Extent.Width == 0 || info.Extent.Height == 0 {
		return nil, errors.New("swapchain extent must be non-zero")
	}
	n := d.acc.cfg.ImageCount
	if n == 0 {
		n = info.MinImageCount
	}
	if n <= 0 {
		return nil, errors.New("swapchain needs at least one image")
	}
	sc := &Swapchain{
		handle: d.reg.track("swapchain", d.handle),
		Info:   info,
		next:   d.acc.cfg.FirstImage,
	}
	for i := 0; i < n; i++ {
		sc.images = append(sc.images, &Image{
			device: d,
			owner:  sc,
			info:   gfx.ImageInfo{Format: info.Format.Format, Extent: info.Extent, Usage: info.Usage},
		})
	}
	return sc, nil
}

// Release implements gfx.Releasable.
func (sc *Swapchain) Release() { sc.release() }

// Images implements gfx.Swapchain.
func (sc *Swapchain) Images() ([]gfx.Image, error) {
	out := make([]gfx.Image, len(sc.images))
	for i, img := range sc.images {
		out[i] = img
	}
	return out, nil
}

// AcquireNextImage implements gfx.Swapchain.
func (sc *Swapchain) AcquireNextImage(timeout uint64, semaphore gfx.Semaphore) (int, error) {
	sem, ok := semaphore.(*Semaphore)
	if !ok {
		return 0, errors.New("acquisition needs a gfxtest semaphore")
	}
	if err := sem.signal(); err != nil {
		return 0, err
	}
	sc.mu.Lock()
	defer sc.mu.Unlock()
	idx := sc.next % len(sc.images)
	sc.next++
	return idx, nil
}
