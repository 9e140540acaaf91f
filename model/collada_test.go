package model_test

import (
	"testing"

	qt "github.com/frankban/quicktest"
	glm "github.com/go-gl/mathgl/mgl32"

	"github.com/devblok/raft/model"
)

const quadDocument = `<?xml version="1.0" encoding="utf-8"?>
<COLLADA xmlns="http://www.collada.org/2005/11/COLLADASchema" version="1.4.1">
  <library_geometries>
    <geometry id="Quad-mesh" name="Quad">
      <mesh>
        <source id="Quad-mesh-positions">
          <float_array id="Quad-mesh-positions-array" count="12">
            -1 -1 0  1 -1 0  1 1 0  -1 1 0
          </float_array>
          <technique_common>
            <accessor source="#Quad-mesh-positions-array" count="4" stride="3"/>
          </technique_common>
        </source>
        <source id="Quad-mesh-normals">
          <float_array id="Quad-mesh-normals-array" count="3">0 0 1</float_array>
          <technique_common>
            <accessor source="#Quad-mesh-normals-array" count="1" stride="3"/>
          </technique_common>
        </source>
        <vertices id="Quad-mesh-vertices">
          <input semantic="POSITION" source="#Quad-mesh-positions"/>
        </vertices>
        <triangles material="Material-material" count="2">
          <input semantic="VERTEX" source="#Quad-mesh-vertices" offset="0"/>
          <input semantic="NORMAL" source="#Quad-mesh-normals" offset="1"/>
          <p>0 0 1 0 2 0 2 0 3 0 0 0</p>
        </triangles>
      </mesh>
    </geometry>
  </library_geometries>
</COLLADA>`

func TestImportCollada(t *testing.T) {
	c := qt.New(t)

	p, err := model.ImportCollada([]byte(quadDocument))
	c.Assert(err, qt.IsNil)
	c.Assert(p.Vertices, qt.HasLen, 6)
	c.Assert(p.Indices, qt.DeepEquals, []uint32{0, 1, 2, 3, 4, 5})

	c.Assert(p.Vertices[0].Pos, qt.Equals, glm.Vec3{-1, -1, 0})
	c.Assert(p.Vertices[2].Pos, qt.Equals, glm.Vec3{1, 1, 0})
	c.Assert(p.Vertices[4].Pos, qt.Equals, glm.Vec3{-1, 1, 0})
	for _, v := range p.Vertices {
		c.Assert(v.Normal, qt.Equals, glm.Vec3{0, 0, 1})
		c.Assert(v.Color, qt.Equals, model.ColladaColor)
	}
}

func TestImportColladaRejectsBadIndex(t *testing.T) {
	c := qt.New(t)

	doc := []byte(`<COLLADA><library_geometries><geometry id="g"><mesh>
		<source id="g-positions"><float_array id="a" count="3">0 0 0</float_array></source>
		<vertices id="g-vertices"><input semantic="POSITION" source="#g-positions"/></vertices>
		<triangles count="1"><input semantic="VERTEX" source="#g-vertices" offset="0"/><p>0 0 7</p></triangles>
	</mesh></geometry></library_geometries></COLLADA>`)

	_, err := model.ImportCollada(doc)
	c.Assert(err, qt.ErrorMatches, `collada: element 7 out of range of source "g-positions"`)
}

func TestImportColladaWithoutGeometry(t *testing.T) {
	c := qt.New(t)

	_, err := model.ImportCollada([]byte(`<COLLADA></COLLADA>`))
	c.Assert(err, qt.ErrorMatches, "collada: document has no geometry")
}
