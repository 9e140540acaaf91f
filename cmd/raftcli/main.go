// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"encoding/json"
	"flag"
	"os"
	"unsafe"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/veandco/go-sdl2/sdl"

	"github.com/devblok/raft/core"
	"github.com/devblok/raft/device"
)

var (
	debug    = flag.Bool("debug", false, "Enable the validation layer")
	headless = flag.Bool("headless", false, "Only list devices, skip selection against a window surface")
)

type report struct {
	Devices  []device.PhysicalDeviceInfo
	Selected *selection `json:",omitempty"`
	Reasons  []string   `json:",omitempty"`
}

type selection struct {
	Name     string
	Families core.QueueFamilies
}

func main() {
	flag.Parse()

	r, err := buildReport()
	if err != nil {
		log.WithError(err).Fatal("failed to build device report")
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		log.WithError(err).Fatal("failed to encode report")
	}
}

func buildReport() (*report, error) {
	if *headless {
		instance, err := device.NewInstance(device.DefaultApplicationInfo, nil, device.InstanceConfiguration{DebugMode: *debug})
		if err != nil {
			return nil, err
		}
		defer instance.Release()
		return &report{Devices: instance.PhysicalDevicesInfo()}, nil
	}

	if err := sdl.Init(sdl.INIT_VIDEO); err != nil {
		return nil, &core.PlatformError{Op: "init", Err: err}
	}
	defer sdl.Quit()
	if err := sdl.VulkanLoadLibrary(""); err != nil {
		return nil, &core.PlatformError{Op: "load vulkan library", Err: err}
	}
	defer sdl.VulkanUnloadLibrary()

	window, err := sdl.CreateWindow("raftcli", sdl.WINDOWPOS_UNDEFINED, sdl.WINDOWPOS_UNDEFINED, 64, 64,
		sdl.WINDOW_VULKAN|sdl.WINDOW_HIDDEN)
	if err != nil {
		return nil, &core.PlatformError{Op: "create window", Err: err}
	}
	defer window.Destroy()

	instance, err := device.NewInstance(device.DefaultApplicationInfo, sdl.VulkanGetVkGetInstanceProcAddr(), device.InstanceConfiguration{
		DebugMode:  *debug,
		Extensions: window.VulkanGetInstanceExtensions(),
	})
	if err != nil {
		return nil, err
	}
	defer instance.Release()

	var pSurface unsafe.Pointer
	if pSurface, err = window.VulkanCreateSurface(instance.Instance()); err != nil {
		return nil, &core.PlatformError{Op: "create surface", Err: err}
	}
	surface := instance.SurfaceFromPointer(pSurface)
	defer surface.Release()

	r := &report{Devices: instance.PhysicalDevicesInfo()}
	accelerators, err := instance.Accelerators()
	if err != nil {
		return nil, err
	}

	acc, families, err := core.SelectDevice(accelerators, surface)
	var nsd *core.NoSuitableDeviceError
	switch {
	case err == nil:
		r.Selected = &selection{Name: acc.Properties().Name, Families: families}
	case errors.As(err, &nsd):
		r.Reasons = nsd.Reasons
	default:
		return nil, err
	}
	return r, nil
}
