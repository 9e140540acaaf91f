// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package device implements the gfx interfaces on top of Vulkan.
// Every gfx value type mirrors the Vulkan enumerant of the same name,
// so conversion is a plain cast.
package device

import (
	vk "github.com/devblok/vulkan"
	"github.com/pkg/errors"
)

var (
	// ErrTimeout is returned when a wait expired before completion.
	ErrTimeout = errors.New("vulkan: wait timed out")

	// ErrOutOfDate is returned when the surface changed and the swapchain
	// no longer matches it.
	ErrOutOfDate = errors.New("vulkan: swapchain out of date")
)

// PhysicalDeviceInfo describes available physical properties of a rendering device
type PhysicalDeviceInfo struct {
	ID            int
	VendorID      int
	DriverVersion int
	Name          string
	Type          string
	Invalid       bool
	Extensions    []string
	Layers        []string
	Memory        uint
}

// InstanceConfiguration holds what instance level features are enabled
type InstanceConfiguration struct {
	// DebugMode enables the validation layer and debug report extension
	DebugMode bool

	Extensions []string
	Layers     []string
}

// ValidationLayer is enabled by DebugMode
const ValidationLayer = "VK_LAYER_LUNARG_standard_validation"

// DefaultApplicationInfo application info describes a Vulkan application
var DefaultApplicationInfo = &vk.ApplicationInfo{
	SType:              vk.StructureTypeApplicationInfo,
	ApiVersion:         vk.MakeVersion(1, 0, 0),
	ApplicationVersion: vk.MakeVersion(1, 0, 0),
	PApplicationName:   safeString("Raft"),
	PEngineName:        safeString("Raft"),
}

// call turns a failed result into an error naming the call
func call(name string, result vk.Result) error {
	if err := vk.Error(result); err != nil {
		return errors.Wrap(err, name+"()")
	}
	return nil
}

// safeString null terminates s for the C side
func safeString(s string) string {
	if len(s) == 0 || s[len(s)-1] != '\x00' {
		return s + "\x00"
	}
	return s
}

func safeStrings(list []string) []string {
	out := make([]string, 0, len(list))
	for _, s := range list {
		out = append(out, safeString(s))
	}
	return out
}

func boolean(b bool) vk.Bool32 {
	if b {
		return vk.True
	}
	return vk.False
}
