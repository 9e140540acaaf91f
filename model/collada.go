package model

import (
	"github.com/devblok/raft/util/collada"
	glm "github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
)

// ColladaColor is given to every imported vertex
var ColladaColor = glm.Vec3{1.0, 1.0, 0.0}

// ImportCollada reads the first geometry of a Collada document
// and converts its triangles into a Primitive, one vertex per triangle corner
func ImportCollada(fileContents []byte) (Primitive, error) {
	doc, err := collada.Decode(fileContents)
	if err != nil {
		return Primitive{}, err
	}

	mesh := &doc.Geometries[0].Mesh
	tris := mesh.Triangles

	vertexInput, ok := tris.Input("VERTEX")
	if !ok {
		return Primitive{}, errors.New("collada: triangles have no VERTEX input")
	}
	positions, err := mesh.Resolve(vertexInput)
	if err != nil {
		return Primitive{}, err
	}

	var (
		normals     collada.Source
		normalInput collada.Input
	)
	hasNormals := false
	if normalInput, hasNormals = tris.Input("NORMAL"); hasNormals {
		if normals, err = mesh.Resolve(normalInput); err != nil {
			return Primitive{}, err
		}
	}

	stride := tris.Stride()
	if len(tris.Index)%stride != 0 {
		return Primitive{}, errors.Errorf("collada: %d indices do not divide into corners of %d", len(tris.Index), stride)
	}

	var p Primitive
	for idx := 0; idx < len(tris.Index)/stride; idx++ {
		corner := tris.Index[stride*idx : stride*idx+stride]

		var vert Vertex
		if vert.Pos, err = element(positions, corner[vertexInput.Offset]); err != nil {
			return Primitive{}, err
		}
		if hasNormals {
			if vert.Normal, err = element(normals, corner[normalInput.Offset]); err != nil {
				return Primitive{}, err
			}
		}
		vert.Color = ColladaColor

		p.Indices = append(p.Indices, uint32(len(p.Vertices)))
		p.Vertices = append(p.Vertices, vert)
	}
	return p, nil
}

func element(s collada.Source, index int) (glm.Vec3, error) {
	stride := s.Stride()
	start := index * stride
	if index < 0 || start+3 > len(s.Floats.Data) {
		return glm.Vec3{}, errors.Errorf("collada: element %d out of range of source %q", index, s.ID)
	}
	d := s.Floats.Data[start:]
	return glm.Vec3{d[0], d[1], d[2]}, nil
}
