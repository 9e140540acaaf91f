// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package device

import (
	"unsafe"

	"github.com/devblok/raft/gfx"
	vk "github.com/devblok/vulkan"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// NewInstance loads Vulkan and creates an instance. procAddr is the
// vkGetInstanceProcAddr of the windowing library, or nil to load the
// system default.
func NewInstance(appInfo *vk.ApplicationInfo, procAddr unsafe.Pointer, cfg InstanceConfiguration) (*Instance, error) {
	if cfg.DebugMode {
		cfg.Layers = append(cfg.Layers, ValidationLayer)
		cfg.Extensions = append(cfg.Extensions, "VK_EXT_debug_report")
	}

	if procAddr == nil {
		if err := vk.SetDefaultGetInstanceProcAddr(); err != nil {
			return nil, errors.Wrap(err, "vk.InstanceProcAddr()")
		}
	} else {
		vk.SetGetInstanceProcAddr(procAddr)
	}

	if err := vk.Init(); err != nil {
		return nil, errors.Wrap(err, "vk.Init()")
	}

	instanceInfo := vk.InstanceCreateInfo{
		SType:                   vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo:        appInfo,
		EnabledExtensionCount:   uint32(len(cfg.Extensions)),
		PpEnabledExtensionNames: safeStrings(cfg.Extensions),
		EnabledLayerCount:       uint32(len(cfg.Layers)),
		PpEnabledLayerNames:     safeStrings(cfg.Layers),
	}

	var instance vk.Instance
	if err := call("vk.CreateInstance", vk.CreateInstance(&instanceInfo, nil, &instance)); err != nil {
		return nil, err
	}
	vk.InitInstance(instance)

	physicalDevices, err := enumerateDevices(instance)
	if err != nil {
		vk.DestroyInstance(instance, nil)
		return nil, err
	}

	log.WithFields(log.Fields{
		"extensions": cfg.Extensions,
		"layers":     cfg.Layers,
		"devices":    len(physicalDevices),
	}).Debug("created vulkan instance")

	return &Instance{
		configuration:    cfg,
		instance:         instance,
		availableDevices: physicalDevices,
	}, nil
}

// Instance is a Vulkan instance
type Instance struct {
	configuration InstanceConfiguration

	availableDevices []vk.PhysicalDevice
	instance         vk.Instance
}

func enumerateDevices(instance vk.Instance) ([]vk.PhysicalDevice, error) {
	var deviceCount uint32
	if err := call("vk.EnumeratePhysicalDevices", vk.EnumeratePhysicalDevices(instance, &deviceCount, nil)); err != nil {
		return nil, err
	}
	availableDevices := make([]vk.PhysicalDevice, deviceCount)
	if err := call("vk.EnumeratePhysicalDevices", vk.EnumeratePhysicalDevices(instance, &deviceCount, availableDevices)); err != nil {
		return nil, err
	}
	return availableDevices, nil
}

// Accelerators implements gfx.Instance
func (v *Instance) Accelerators() ([]gfx.Accelerator, error) {
	accs := make([]gfx.Accelerator, 0, len(v.availableDevices))
	for _, pd := range v.availableDevices {
		accs = append(accs, newAccelerator(pd))
	}
	return accs, nil
}

// PhysicalDevicesInfo reports extensions, layers, memory and identity of
// every physical device
func (v *Instance) PhysicalDevicesInfo() []PhysicalDeviceInfo {
	pdi := make([]PhysicalDeviceInfo, len(v.availableDevices))
	for i, pd := range v.availableDevices {
		var numDeviceExtensions uint32
		if err := vk.Error(vk.EnumerateDeviceExtensionProperties(pd, "", &numDeviceExtensions, nil)); err != nil {
			pdi[i].Invalid = true
		}
		deviceExt := make([]vk.ExtensionProperties, numDeviceExtensions)
		if err := vk.Error(vk.EnumerateDeviceExtensionProperties(pd, "", &numDeviceExtensions, deviceExt)); err != nil {
			pdi[i].Invalid = true
		}
		for _, ext := range deviceExt {
			ext.Deref()
			pdi[i].Extensions = append(pdi[i].Extensions, vk.ToString(ext.ExtensionName[:]))
		}

		var numDeviceLayers uint32
		if err := vk.Error(vk.EnumerateDeviceLayerProperties(pd, &numDeviceLayers, nil)); err != nil {
			pdi[i].Invalid = true
		}
		deviceLayers := make([]vk.LayerProperties, numDeviceLayers)
		if err := vk.Error(vk.EnumerateDeviceLayerProperties(pd, &numDeviceLayers, deviceLayers)); err != nil {
			pdi[i].Invalid = true
		}
		for _, layer := range deviceLayers {
			layer.Deref()
			pdi[i].Layers = append(pdi[i].Layers, vk.ToString(layer.LayerName[:]))
		}

		var memoryProperties vk.PhysicalDeviceMemoryProperties
		vk.GetPhysicalDeviceMemoryProperties(pd, &memoryProperties)
		memoryProperties.Deref()
		for iMem := uint32(0); iMem < memoryProperties.MemoryHeapCount; iMem++ {
			memoryProperties.MemoryHeaps[iMem].Deref()
			pdi[i].Memory += uint(memoryProperties.MemoryHeaps[iMem].Size)
		}

		props := properties(pd)
		pdi[i].ID = int(props.DeviceID)
		pdi[i].VendorID = int(props.VendorID)
		pdi[i].Name = props.Name
		pdi[i].Type = props.Type.String()
		pdi[i].DriverVersion = int(props.DriverVersion)
	}
	return pdi
}

// Instance returns the internal vk.Instance, as needed by the windowing
// library to create a surface
func (v *Instance) Instance() interface{} {
	return v.instance
}

// Extensions returns the enabled instance extensions
func (v *Instance) Extensions() []string {
	return v.configuration.Extensions
}

// SurfaceFromPointer wraps a surface created by the windowing library.
// The surface is destroyed by its Release.
func (v *Instance) SurfaceFromPointer(pSurface unsafe.Pointer) *Surface {
	return &Surface{
		instance: v.instance,
		surface:  vk.SurfaceFromPointer(uintptr(pSurface)),
	}
}

// Release implements gfx.Releasable
func (v *Instance) Release() {
	v.availableDevices = nil
	vk.DestroyInstance(v.instance, nil)
}

// Surface is a presentation surface
type Surface struct {
	instance vk.Instance
	surface  vk.Surface
}

// Inner implements gfx.Surface
func (s *Surface) Inner() interface{} {
	return s.surface
}

// Release destroys the surface
func (s *Surface) Release() {
	vk.DestroySurface(s.instance, s.surface, nil)
}

func surfaceOf(s gfx.Surface) (vk.Surface, error) {
	if s == nil {
		return vk.NullSurface, errors.New("no surface")
	}
	surface, ok := s.Inner().(vk.Surface)
	if !ok {
		return vk.NullSurface, errors.Errorf("surface %T is not a vulkan surface", s)
	}
	return surface, nil
}
