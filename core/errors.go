// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"fmt"
	"strings"

	"github.com/devblok/raft/gfx"
	"github.com/pkg/errors"
)

var (
	// ErrNoSurfaceFormats is returned when a surface supports no formats at all.
	ErrNoSurfaceFormats = errors.New("surface reports no supported formats")

	// ErrFrameSubmitted is returned by Draw once the recorded frame was submitted.
	ErrFrameSubmitted = errors.New("frame already submitted")
)

// NoSuitableDeviceError is returned when no accelerator can provide
// graphics, compute and present queue families for the surface.
type NoSuitableDeviceError struct {
	// Reasons holds one entry per rejected accelerator.
	Reasons []string
}

func (e *NoSuitableDeviceError) Error() string {
	if len(e.Reasons) == 0 {
		return "no suitable physical device found: no accelerators available"
	}
	return "no suitable physical device found: " + strings.Join(e.Reasons, "; ")
}

// NoSuitableMemoryTypeError is returned when no memory type matches both
// the resource requirement bits and the wanted properties.
type NoSuitableMemoryTypeError struct {
	TypeBits uint32
	Wanted   gfx.MemoryProperty
}

func (e *NoSuitableMemoryTypeError) Error() string {
	return fmt.Sprintf("no suitable memory type for type bits %#b with properties %#x", e.TypeBits, uint32(e.Wanted))
}

// Stage names a step of context construction.
type Stage string

// Context construction stages, in execution order.
const (
	StageSelectDevice   Stage = "select device"
	StageCreateDevice   Stage = "create device"
	StageCommandPools   Stage = "command pools"
	StageSwapchain      Stage = "swapchain"
	StageDepthBuffer    Stage = "depth buffer"
	StageUniform        Stage = "uniform buffer"
	StageGeometry       Stage = "geometry upload"
	StagePipeline       Stage = "pipeline"
	StageCommandBuffers Stage = "command buffers"
	StageAcquire        Stage = "acquire image"
	StageRecord         Stage = "record commands"
	StageSubmit         Stage = "submit"
)

// StageError reports which construction stage failed.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return string(e.Stage) + ": " + e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *StageError) Unwrap() error {
	return e.Err
}

// Cause returns the underlying error, for errors.Cause.
func (e *StageError) Cause() error {
	return e.Err
}

// PlatformError is a failure of the windowing glue, as opposed to
// a failure of the graphics API.
type PlatformError struct {
	Op  string
	Err error
}

func (e *PlatformError) Error() string {
	return "platform: " + e.Op + ": " + e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *PlatformError) Unwrap() error {
	return e.Err
}

func stageError(stage Stage, err error) error {
	if err == nil {
		return nil
	}
	return &StageError{Stage: stage, Err: err}
}
