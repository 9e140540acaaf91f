package model

import (
	glm "github.com/go-gl/mathgl/mgl32"
)

// face of a box: its normal and two axes spanning it, ordered so that
// (u x v) == normal and corners wind counter-clockwise
type face struct {
	normal, u, v glm.Vec3
	color        glm.Vec3
}

var boxFaces = [6]face{
	{normal: glm.Vec3{0, 0, 1}, u: glm.Vec3{1, 0, 0}, v: glm.Vec3{0, 1, 0}, color: glm.Vec3{1, 0, 0}},
	{normal: glm.Vec3{0, 0, -1}, u: glm.Vec3{-1, 0, 0}, v: glm.Vec3{0, 1, 0}, color: glm.Vec3{0, 1, 0}},
	{normal: glm.Vec3{1, 0, 0}, u: glm.Vec3{0, 0, -1}, v: glm.Vec3{0, 1, 0}, color: glm.Vec3{0, 0, 1}},
	{normal: glm.Vec3{-1, 0, 0}, u: glm.Vec3{0, 0, 1}, v: glm.Vec3{0, 1, 0}, color: glm.Vec3{1, 1, 0}},
	{normal: glm.Vec3{0, 1, 0}, u: glm.Vec3{1, 0, 0}, v: glm.Vec3{0, 0, -1}, color: glm.Vec3{0, 1, 1}},
	{normal: glm.Vec3{0, -1, 0}, u: glm.Vec3{1, 0, 0}, v: glm.Vec3{0, 0, 1}, color: glm.Vec3{1, 0, 1}},
}

// Box generates a box centered on the origin with 4 vertices per face,
// 24 in total, and two triangles per face, 36 indices in total
func Box(width, height, depth float32) Primitive {
	half := glm.Vec3{width / 2, height / 2, depth / 2}
	scale := func(v glm.Vec3) glm.Vec3 {
		return glm.Vec3{v[0] * half[0], v[1] * half[1], v[2] * half[2]}
	}

	var p Primitive
	for _, f := range boxFaces {
		base := uint32(len(p.Vertices))
		center := scale(f.normal)
		u, v := scale(f.u), scale(f.v)
		for _, corner := range [4]glm.Vec3{
			center.Sub(u).Sub(v),
			center.Add(u).Sub(v),
			center.Add(u).Add(v),
			center.Sub(u).Add(v),
		} {
			p.Vertices = append(p.Vertices, Vertex{Pos: corner, Normal: f.normal, Color: f.color})
		}
		p.Indices = append(p.Indices, base, base+1, base+2, base+2, base+3, base)
	}
	return p
}
