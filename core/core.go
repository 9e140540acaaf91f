// Package core builds a rendering context on top of the gfx interfaces:
// it selects an accelerator, creates the device and its queues, negotiates
// the swapchain, uploads geometry, assembles the pipeline and records the
// draw commands.
package core

import (
	"strings"

	"github.com/pkg/errors"
)

// ShaderSource provides compiled shader bytecode by name
type ShaderSource interface {
	// ReadShader returns the whole contents of the named shader
	ReadShader(name string) ([]byte, error)
}

// ShaderType represents the type of shader thats loaded
type ShaderType int

// Identifies shader objects with their types
const (
	VertexShaderType ShaderType = iota
	FragmentShaderType
	UnknownShaderType
)

func (t ShaderType) String() string {
	switch t {
	case VertexShaderType:
		return "vertex"
	case FragmentShaderType:
		return "fragment"
	}
	return "unknown"
}

// ShaderTypeOf derives the shader type from a compiled shader file name,
// either "vert.spv" or "<name>.vert.spv" (likewise for "frag")
func ShaderTypeOf(name string) ShaderType {
	if !strings.HasSuffix(name, shaderSuffix) {
		return UnknownShaderType
	}
	nodes := strings.Split(strings.TrimSuffix(name, shaderSuffix), ".")
	if len(nodes) > 2 {
		return UnknownShaderType
	}
	switch nodes[len(nodes)-1] {
	case "vert":
		return VertexShaderType
	case "frag":
		return FragmentShaderType
	}
	return UnknownShaderType
}

// loadShaders reads the vertex and fragment shader from src
func loadShaders(src ShaderSource, cfg RendererConfiguration) (vert, frag []byte, err error) {
	if src == nil {
		return nil, nil, errors.New("no shader source")
	}
	if vert, err = src.ReadShader(cfg.VertexShader); err != nil {
		return nil, nil, errors.Wrapf(err, "vertex shader %q", cfg.VertexShader)
	}
	if frag, err = src.ReadShader(cfg.FragmentShader); err != nil {
		return nil, nil, errors.Wrapf(err, "fragment shader %q", cfg.FragmentShader)
	}
	return vert, frag, nil
}
