package model

import (
	"unsafe"

	"github.com/devblok/raft/gfx"
	glm "github.com/go-gl/mathgl/mgl32"
)

// Vertex is a model vertex
type Vertex struct {
	Pos    glm.Vec3
	Normal glm.Vec3
	Color  glm.Vec3
}

// VertexSize is the size of one vertex record in bytes
const VertexSize = int(unsafe.Sizeof(Vertex{}))

// Primitive is indexed triangle list geometry
type Primitive struct {
	Vertices []Vertex
	Indices  []uint32
}

// VertexBindings return the vertex buffer binding of Vertex
func VertexBindings() []gfx.VertexBinding {
	return []gfx.VertexBinding{{
		Binding: 0,
		Stride:  uint32(VertexSize),
		Rate:    gfx.VertexInputRateVertex,
	}}
}

// VertexAttributes return the attributes of Vertex:
// position at location 0, color at 1 and normal at 2
func VertexAttributes() []gfx.VertexAttribute {
	return []gfx.VertexAttribute{
		{
			Binding:  0,
			Location: 0,
			Format:   gfx.FormatR32G32B32Sfloat,
			Offset:   uint32(unsafe.Offsetof(Vertex{}.Pos)),
		},
		{
			Binding:  0,
			Location: 1,
			Format:   gfx.FormatR32G32B32Sfloat,
			Offset:   uint32(unsafe.Offsetof(Vertex{}.Color)),
		},
		{
			Binding:  0,
			Location: 2,
			Format:   gfx.FormatR32G32B32Sfloat,
			Offset:   uint32(unsafe.Offsetof(Vertex{}.Normal)),
		},
	}
}
