// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package device

import (
	"github.com/devblok/raft/gfx"
	vk "github.com/devblok/vulkan"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

func newAccelerator(pd vk.PhysicalDevice) *Accelerator {
	a := &Accelerator{
		physicalDevice: pd,
		properties:     properties(pd),
	}

	var familyCount uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(pd, &familyCount, nil)
	families := make([]vk.QueueFamilyProperties, familyCount)
	vk.GetPhysicalDeviceQueueFamilyProperties(pd, &familyCount, families)
	for _, family := range families {
		family.Deref()
		a.families = append(a.families, gfx.QueueFamily{
			Flags:      gfx.QueueFlags(family.QueueFlags),
			QueueCount: int(family.QueueCount),
		})
	}

	var memoryProperties vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(pd, &memoryProperties)
	memoryProperties.Deref()
	for i := uint32(0); i < memoryProperties.MemoryTypeCount; i++ {
		memoryProperties.MemoryTypes[i].Deref()
		a.memoryTypes = append(a.memoryTypes, gfx.MemoryType{
			Properties: gfx.MemoryProperty(memoryProperties.MemoryTypes[i].PropertyFlags),
			HeapIndex:  int(memoryProperties.MemoryTypes[i].HeapIndex),
		})
	}
	return a
}

func properties(pd vk.PhysicalDevice) gfx.AcceleratorProperties {
	var props vk.PhysicalDeviceProperties
	vk.GetPhysicalDeviceProperties(pd, &props)
	props.Deref()
	return gfx.AcceleratorProperties{
		Name:          vk.ToString(props.DeviceName[:]),
		Type:          gfx.AcceleratorType(props.DeviceType),
		VendorID:      props.VendorID,
		DeviceID:      props.DeviceID,
		APIVersion:    props.ApiVersion,
		DriverVersion: props.DriverVersion,
	}
}

// Accelerator is a Vulkan physical device. Its tables are read once.
type Accelerator struct {
	physicalDevice vk.PhysicalDevice
	properties     gfx.AcceleratorProperties
	families       []gfx.QueueFamily
	memoryTypes    []gfx.MemoryType
}

// Properties implements gfx.Accelerator
func (a *Accelerator) Properties() gfx.AcceleratorProperties {
	return a.properties
}

// QueueFamilies implements gfx.Accelerator
func (a *Accelerator) QueueFamilies() []gfx.QueueFamily {
	return a.families
}

// MemoryTypes implements gfx.Accelerator
func (a *Accelerator) MemoryTypes() []gfx.MemoryType {
	return a.memoryTypes
}

// SupportsPresent implements gfx.Accelerator
func (a *Accelerator) SupportsPresent(family int, surface gfx.Surface) (bool, error) {
	s, err := surfaceOf(surface)
	if err != nil {
		return false, err
	}
	var supported vk.Bool32
	if err := call("vk.GetPhysicalDeviceSurfaceSupport", vk.GetPhysicalDeviceSurfaceSupport(a.physicalDevice, uint32(family), s, &supported)); err != nil {
		return false, err
	}
	return supported == vk.True, nil
}

// SurfaceCapabilities implements gfx.Accelerator
func (a *Accelerator) SurfaceCapabilities(surface gfx.Surface) (gfx.SurfaceCapabilities, error) {
	s, err := surfaceOf(surface)
	if err != nil {
		return gfx.SurfaceCapabilities{}, err
	}
	var caps vk.SurfaceCapabilities
	if err := call("vk.GetPhysicalDeviceSurfaceCapabilities", vk.GetPhysicalDeviceSurfaceCapabilities(a.physicalDevice, s, &caps)); err != nil {
		return gfx.SurfaceCapabilities{}, err
	}
	caps.Deref()
	caps.CurrentExtent.Deref()
	return gfx.SurfaceCapabilities{
		MinImageCount: int(caps.MinImageCount),
		MaxImageCount: int(caps.MaxImageCount),
		CurrentExtent: gfx.Extent2D{
			Width:  caps.CurrentExtent.Width,
			Height: caps.CurrentExtent.Height,
		},
		CurrentTransform:        gfx.SurfaceTransform(caps.CurrentTransform),
		SupportedCompositeAlpha: gfx.CompositeAlpha(caps.SupportedCompositeAlpha),
	}, nil
}

// SurfaceFormats implements gfx.Accelerator
func (a *Accelerator) SurfaceFormats(surface gfx.Surface) ([]gfx.SurfaceFormat, error) {
	s, err := surfaceOf(surface)
	if err != nil {
		return nil, err
	}
	var formatCount uint32
	if err := call("vk.GetPhysicalDeviceSurfaceFormats", vk.GetPhysicalDeviceSurfaceFormats(a.physicalDevice, s, &formatCount, nil)); err != nil {
		return nil, err
	}
	formats := make([]vk.SurfaceFormat, formatCount)
	if err := call("vk.GetPhysicalDeviceSurfaceFormats", vk.GetPhysicalDeviceSurfaceFormats(a.physicalDevice, s, &formatCount, formats)); err != nil {
		return nil, err
	}
	out := make([]gfx.SurfaceFormat, 0, len(formats))
	for _, f := range formats {
		f.Deref()
		out = append(out, gfx.SurfaceFormat{
			Format:     gfx.Format(f.Format),
			ColorSpace: gfx.ColorSpace(f.ColorSpace),
		})
	}
	return out, nil
}

// PresentModes implements gfx.Accelerator
func (a *Accelerator) PresentModes(surface gfx.Surface) ([]gfx.PresentMode, error) {
	s, err := surfaceOf(surface)
	if err != nil {
		return nil, err
	}
	var modeCount uint32
	if err := call("vk.GetPhysicalDeviceSurfacePresentModes", vk.GetPhysicalDeviceSurfacePresentModes(a.physicalDevice, s, &modeCount, nil)); err != nil {
		return nil, err
	}
	modes := make([]vk.PresentMode, modeCount)
	if err := call("vk.GetPhysicalDeviceSurfacePresentModes", vk.GetPhysicalDeviceSurfacePresentModes(a.physicalDevice, s, &modeCount, modes)); err != nil {
		return nil, err
	}
	out := make([]gfx.PresentMode, 0, len(modes))
	for _, m := range modes {
		out = append(out, gfx.PresentMode(m))
	}
	return out, nil
}

// CreateDevice implements gfx.Accelerator
func (a *Accelerator) CreateDevice(families []int, extensions []string) (gfx.Device, error) {
	if len(families) == 0 {
		return nil, errors.New("no queue families requested")
	}
	queueInfos := make([]vk.DeviceQueueCreateInfo, 0, len(families))
	for _, family := range families {
		queueInfos = append(queueInfos, vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: uint32(family),
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		})
	}

	deviceInfo := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueInfos)),
		PQueueCreateInfos:       queueInfos,
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: safeStrings(extensions),
	}

	var device vk.Device
	if err := call("vk.CreateDevice", vk.CreateDevice(a.physicalDevice, &deviceInfo, nil, &device)); err != nil {
		return nil, err
	}

	d := &Device{
		device:      device,
		memoryTypes: a.memoryTypes,
		queues:      make(map[int]*Queue, len(families)),
	}
	for _, family := range families {
		var queue vk.Queue
		vk.GetDeviceQueue(device, uint32(family), 0, &queue)
		d.queues[family] = &Queue{queue: queue}
	}

	log.WithFields(log.Fields{
		"device":     a.properties.Name,
		"families":   families,
		"extensions": extensions,
	}).Debug("created logical device")
	return d, nil
}
