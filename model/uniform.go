package model

import (
	"unsafe"

	glm "github.com/go-gl/mathgl/mgl32"
)

// UniformSize is the size of the uniform data in bytes
const UniformSize = uint64(unsafe.Sizeof(glm.Mat4{}))

// Clip converts OpenGL clip space to Vulkan clip space:
// y points down and depth ranges from 0 to 1
var Clip = glm.Mat4{
	1, 0, 0, 0,
	0, -1, 0, 0,
	0, 0, 0.5, 0,
	0, 0, 0.5, 1,
}

// Uniform defines a model-view-projection object
type Uniform struct {
	Model      glm.Mat4
	View       glm.Mat4
	Projection glm.Mat4
}

// DefaultUniform looks at the origin from (0, 3, 10)
// with a 45 degree field of view
func DefaultUniform(aspect float32) Uniform {
	return Uniform{
		Model: glm.Ident4(),
		View: glm.LookAtV(
			glm.Vec3{0, 3, 10},
			glm.Vec3{0, 0, 0},
			glm.Vec3{0, 1, 0},
		),
		Projection: glm.Perspective(glm.DegToRad(45), aspect, 0.1, 100),
	}
}

// MVP is the combined clip, projection, view and model transform
func (u Uniform) MVP() glm.Mat4 {
	return Clip.Mul4(u.Projection).Mul4(u.View).Mul4(u.Model)
}

// Bytes returns the MVP matrix in column-major order
func (u Uniform) Bytes() []byte {
	mvp := u.MVP()
	out := make([]byte, UniformSize)
	copy(out, unsafe.Slice((*byte)(unsafe.Pointer(&mvp[0])), UniformSize))
	return out
}
