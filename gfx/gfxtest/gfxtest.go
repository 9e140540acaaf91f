// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package gfxtest is an in-memory implementation of the gfx interfaces.
// It executes buffer copies on the host, tracks the liveness of every
// handle it gives out and records ordering mistakes (double release,
// release before dependents) as violations instead of crashing.
package gfxtest

import (
	"encoding/binary"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/devblok/raft/gfx"
	"github.com/pkg/errors"
)

// SPIRVMagic is the first word of every valid shader module.
const SPIRVMagic = 0x07230203

// Config describes one fake accelerator.
type Config struct {
	Name         string
	Type         gfx.AcceleratorType
	Families     []gfx.QueueFamily
	Present      []bool
	MemoryTypes  []gfx.MemoryType
	Capabilities gfx.SurfaceCapabilities
	Formats      []gfx.SurfaceFormat
	PresentModes []gfx.PresentMode

	// ImageCount overrides the number of swapchain images, otherwise
	// the requested minimum is used.
	ImageCount int

	// FirstImage is the index returned by the first image acquisition.
	FirstImage int

	// MemoryTypeBits restricts the memory types resources accept. Zero
	// allows every type.
	MemoryTypeBits uint32

	// FenceDelay postpones execution of every submission.
	FenceDelay time.Duration
}

// DefaultConfig is a single-family accelerator able to run a full context.
func DefaultConfig() Config {
	return Config{
		Name: "gfxtest",
		Type: gfx.AcceleratorDiscrete,
		Families: []gfx.QueueFamily{
			{Flags: gfx.QueueGraphics | gfx.QueueCompute | gfx.QueueTransfer, QueueCount: 1},
		},
		Present: []bool{true},
		MemoryTypes: []gfx.MemoryType{
			{Properties: gfx.MemoryDeviceLocal},
			{Properties: gfx.MemoryHostVisible | gfx.MemoryHostCached, HeapIndex: 1},
			{Properties: gfx.MemoryHostVisible | gfx.MemoryHostCoherent, HeapIndex: 1},
		},
		Capabilities: gfx.SurfaceCapabilities{
			MinImageCount:           2,
			MaxImageCount:           8,
			CurrentExtent:           gfx.Extent2D{Width: 800, Height: 600},
			CurrentTransform:        gfx.SurfaceTransformIdentity,
			SupportedCompositeAlpha: gfx.CompositeAlphaOpaque,
		},
		Formats: []gfx.SurfaceFormat{
			{Format: gfx.FormatB8G8R8A8Unorm, ColorSpace: gfx.ColorSpaceSrgbNonlinear},
		},
		PresentModes: []gfx.PresentMode{gfx.PresentModeFifo, gfx.PresentModeMailbox},
	}
}

// ShaderCode returns a well formed shader module blob holding words.
func ShaderCode(words ...uint32) []byte {
	code := make([]byte, 4*(len(words)+1))
	binary.LittleEndian.PutUint32(code, SPIRVMagic)
	for i, w := range words {
		binary.LittleEndian.PutUint32(code[4*(i+1):], w)
	}
	return code
}

// Surface is a presentation target with no backing window.
type Surface struct {
	Name string
}

// Inner implements gfx.Surface.
func (s *Surface) Inner() interface{} {
	return s
}

// Registry tracks every object created through one Instance.
type Registry struct {
	mu         sync.Mutex
	next       int
	created    map[string]int
	live       map[string]int
	violations []string
}

func newRegistry() *Registry {
	return &Registry{
		created: make(map[string]int),
		live:    make(map[string]int),
	}
}

// Created returns how many objects of kind were ever created.
func (r *Registry) Created(kind string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.created[kind]
}

// Live returns how many objects of kind are not yet released.
func (r *Registry) Live(kind string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.live[kind]
}

// LiveKinds lists kinds with live objects, sorted.
func (r *Registry) LiveKinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var kinds []string
	for k, n := range r.live {
		if n > 0 {
			kinds = append(kinds, k)
		}
	}
	sort.Strings(kinds)
	return kinds
}

// Violations returns every ordering mistake observed so far.
func (r *Registry) Violations() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.violations...)
}

func (r *Registry) count(kind string) {
	r.mu.Lock()
	r.created[kind]++
	r.mu.Unlock()
}

func (r *Registry) track(kind string, parents ...*handle) *handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	r.created[kind]++
	r.live[kind]++
	h := &handle{reg: r, kind: kind, id: r.next}
	for _, p := range parents {
		if p == nil {
			continue
		}
		if p.released {
			r.violations = append(r.violations, fmt.Sprintf("%s created from released %s", h, p))
		}
		p.children++
		h.parents = append(h.parents, p)
	}
	return h
}

// handle is the liveness record shared by every fake object.
type handle struct {
	reg      *Registry
	kind     string
	id       int
	parents  []*handle
	children int
	released bool
}

func (h *handle) String() string {
	return fmt.Sprintf("%s#%d", h.kind, h.id)
}

// depend makes h a dependent of p after creation.
func (h *handle) depend(p *handle) {
	h.reg.mu.Lock()
	defer h.reg.mu.Unlock()
	p.children++
	h.parents = append(h.parents, p)
}

func (h *handle) release() {
	r := h.reg
	r.mu.Lock()
	defer r.mu.Unlock()
	if h.released {
		r.violations = append(r.violations, fmt.Sprintf("%s released twice", h))
		return
	}
	if h.children > 0 {
		r.violations = append(r.violations, fmt.Sprintf("%s released before %d dependent object(s)", h, h.children))
	}
	h.released = true
	r.live[h.kind]--
	for _, p := range h.parents {
		p.children--
	}
}

func (h *handle) alive() bool {
	h.reg.mu.Lock()
	defer h.reg.mu.Unlock()
	return !h.released
}

// Released reports whether the object was released.
func (h *handle) Released() bool {
	return !h.alive()
}

// Instance is a fake graphics API instance.
type Instance struct {
	reg          *Registry
	accelerators []*Accelerator
}

// NewInstance creates an instance with one accelerator per config.
func NewInstance(configs ...Config) *Instance {
	inst := &Instance{reg: newRegistry()}
	for i, cfg := range configs {
		if cfg.Name == "" {
			cfg.Name = fmt.Sprintf("gfxtest-%d", i)
		}
		inst.accelerators = append(inst.accelerators, &Accelerator{cfg: cfg, reg: inst.reg})
	}
	return inst
}

// Registry returns the object registry shared by all accelerators.
func (inst *Instance) Registry() *Registry {
	return inst.reg
}

// Accelerator returns the n-th fake accelerator.
func (inst *Instance) Accelerator(n int) *Accelerator {
	return inst.accelerators[n]
}

// Accelerators implements gfx.Instance.
func (inst *Instance) Accelerators() ([]gfx.Accelerator, error) {
	out := make([]gfx.Accelerator, len(inst.accelerators))
	for i, a := range inst.accelerators {
		out[i] = a
	}
	return out, nil
}

// Release implements gfx.Releasable.
func (inst *Instance) Release() {}

// Accelerator is a fake physical device.
type Accelerator struct {
	cfg Config
	reg *Registry

	mu            sync.Mutex
	presentChecks []int
	devices       []*Device
}

// Properties implements gfx.Accelerator.
func (a *Accelerator) Properties() gfx.AcceleratorProperties {
	return gfx.AcceleratorProperties{
		Name:       a.cfg.Name,
		Type:       a.cfg.Type,
		VendorID:   0x1af4,
		APIVersion: 1<<22 | 1<<12,
	}
}

// QueueFamilies implements gfx.Accelerator.
func (a *Accelerator) QueueFamilies() []gfx.QueueFamily {
	return append([]gfx.QueueFamily(nil), a.cfg.Families...)
}

// MemoryTypes implements gfx.Accelerator.
func (a *Accelerator) MemoryTypes() []gfx.MemoryType {
	return append([]gfx.MemoryType(nil), a.cfg.MemoryTypes...)
}

// SupportsPresent implements gfx.Accelerator.
func (a *Accelerator) SupportsPresent(family int, surface gfx.Surface) (bool, error) {
	if family < 0 || family >= len(a.cfg.Families) {
		return false, errors.Errorf("queue family %d out of range", family)
	}
	a.mu.Lock()
	a.presentChecks = append(a.presentChecks, family)
	a.mu.Unlock()
	return family < len(a.cfg.Present) && a.cfg.Present[family], nil
}

// PresentChecks returns the families queried for presentation, in order.
func (a *Accelerator) PresentChecks() []int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]int(nil), a.presentChecks...)
}

// SurfaceCapabilities implements gfx.Accelerator.
func (a *Accelerator) SurfaceCapabilities(surface gfx.Surface) (gfx.SurfaceCapabilities, error) {
	return a.cfg.Capabilities, nil
}

// SurfaceFormats implements gfx.Accelerator.
func (a *Accelerator) SurfaceFormats(surface gfx.Surface) ([]gfx.SurfaceFormat, error) {
	return append([]gfx.SurfaceFormat(nil), a.cfg.Formats...), nil
}

// PresentModes implements gfx.Accelerator.
func (a *Accelerator) PresentModes(surface gfx.Surface) ([]gfx.PresentMode, error) {
	return append([]gfx.PresentMode(nil), a.cfg.PresentModes...), nil
}

// CreateDevice implements gfx.Accelerator.
func (a *Accelerator) CreateDevice(families []int, extensions []string) (gfx.Device, error) {
	if len(families) == 0 {
		return nil, errors.New("no queue families requested")
	}
	seen := make(map[int]bool)
	for _, f := range families {
		if f < 0 || f >= len(a.cfg.Families) {
			return nil, errors.Errorf("queue family %d out of range", f)
		}
		if seen[f] {
			return nil, errors.Errorf("queue family %d requested twice", f)
		}
		seen[f] = true
	}
	d := &Device{
		handle:     a.reg.track("device"),
		acc:        a,
		families:   append([]int(nil), families...),
		extensions: append([]string(nil), extensions...),
		queues:     make(map[int]*Queue),
	}
	for _, f := range families {
		d.queues[f] = &Queue{device: d, family: f}
	}
	a.mu.Lock()
	a.devices = append(a.devices, d)
	a.mu.Unlock()
	return d, nil
}

// Devices returns every device created from this accelerator.
func (a *Accelerator) Devices() []*Device {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]*Device(nil), a.devices...)
}

func (a *Accelerator) typeBits() uint32 {
	if a.cfg.MemoryTypeBits != 0 {
		return a.cfg.MemoryTypeBits
	}
	return uint32(1)<<uint(len(a.cfg.MemoryTypes)) - 1
}
