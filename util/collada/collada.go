package collada

import (
	"encoding/xml"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Decode parses a Collada document
func Decode(data []byte) (*Collada, error) {
	var c Collada
	if err := xml.Unmarshal(data, &c); err != nil {
		return nil, errors.Wrap(err, "collada: decode")
	}
	if len(c.Geometries) == 0 {
		return nil, errors.New("collada: document has no geometry")
	}
	return &c, nil
}

// Collada is the top-level Collada object
type Collada struct {
	Geometries []Geometry `xml:"library_geometries>geometry"`
}

// Geometry represents Collada's geometry
type Geometry struct {
	Mesh Mesh   `xml:"mesh"`
	ID   string `xml:"id,attr"`
	Name string `xml:"name,attr"`
}

// Mesh contains all the primitive data
type Mesh struct {
	Source    []Source  `xml:"source"`
	Vertices  Vertices  `xml:"vertices"`
	Triangles Triangles `xml:"triangles"`
}

// Resolve follows a triangle input to the source holding its data.
// VERTEX inputs are resolved through the mesh vertices element
func (m *Mesh) Resolve(in Input) (Source, error) {
	ref := strings.TrimPrefix(in.Source, "#")
	if ref == m.Vertices.ID {
		pos, ok := m.Vertices.Input("POSITION")
		if !ok {
			return Source{}, errors.Errorf("collada: vertices %q have no POSITION input", ref)
		}
		ref = strings.TrimPrefix(pos.Source, "#")
	}
	for _, s := range m.Source {
		if s.ID == ref {
			return s, nil
		}
	}
	return Source{}, errors.Errorf("collada: source %q not found", ref)
}

// Source links to other sources where data is present
type Source struct {
	ID       string   `xml:"id,attr"`
	Floats   Floats   `xml:"float_array"`
	Accessor Accessor `xml:"technique_common>accessor"`
}

// Stride is the number of floats per element, 3 if unspecified
func (s Source) Stride() int {
	if s.Accessor.Stride > 0 {
		return s.Accessor.Stride
	}
	return 3
}

// Accessor describes how the float array is read
type Accessor struct {
	Source string `xml:"source,attr"`
	Count  int    `xml:"count,attr"`
	Stride int    `xml:"stride,attr"`
}

// Floats is the array of floats
type Floats struct {
	ID   string
	Data []float32
}

// UnmarshalXML unmarshals the array of floats
func (f *Floats) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	for _, attr := range start.Attr {
		switch attr.Name.Local {
		case "id":
			f.ID = attr.Value
		}
	}
	var raw string
	if err := d.DecodeElement(&raw, &start); err != nil {
		return err
	}
	for _, r := range strings.Fields(raw) {
		num, err := strconv.ParseFloat(r, 32)
		if err != nil {
			return err
		}
		f.Data = append(f.Data, float32(num))
	}
	return nil
}

// Vertices contains the list of vertices
type Vertices struct {
	ID     string  `xml:"id,attr"`
	Inputs []Input `xml:"input"`
}

// Input returns the input with the given semantic
func (v Vertices) Input(semantic string) (Input, bool) {
	for _, in := range v.Inputs {
		if in.Semantic == semantic {
			return in, true
		}
	}
	return Input{}, false
}

// Triangles contain the list of triangles
type Triangles struct {
	Count    int     `xml:"count,attr"`
	Material string  `xml:"material,attr"`
	Inputs   []Input `xml:"input"`
	Index    []int
}

// Input returns the input with the given semantic
func (t Triangles) Input(semantic string) (Input, bool) {
	for _, in := range t.Inputs {
		if in.Semantic == semantic {
			return in, true
		}
	}
	return Input{}, false
}

// Stride is the number of indices per triangle corner
func (t Triangles) Stride() int {
	var max uint
	for _, in := range t.Inputs {
		if in.Offset > max {
			max = in.Offset
		}
	}
	return int(max) + 1
}

// UnmarshalXML parses the index list
func (t *Triangles) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	for _, attr := range start.Attr {
		switch attr.Name.Local {
		case "count":
			num, err := strconv.Atoi(attr.Value)
			if err != nil {
				return err
			}
			t.Count = num
		case "material":
			t.Material = attr.Value
		}
	}

	for {
		token, err := d.Token()
		if err != nil {
			return err
		}

		switch el := token.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "input":
				var input Input
				err := d.DecodeElement(&input, &el)
				if err != nil {
					return err
				}
				t.Inputs = append(t.Inputs, input)
			case "p":
				var (
					ints []int
					raw  string
				)
				if err := d.DecodeElement(&raw, &el); err != nil {
					return err
				}
				for _, r := range strings.Fields(raw) {
					num, err := strconv.Atoi(r)
					if err != nil {
						return err
					}
					ints = append(ints, num)
				}
				t.Index = ints
			default:
				if err := d.Skip(); err != nil {
					return err
				}
			}
		case xml.EndElement:
			if el == start.End() {
				return nil
			}
		}
	}
}

// Input is Collada'a input type
type Input struct {
	Semantic string `xml:"semantic,attr"`
	Source   string `xml:"source,attr"`
	Offset   uint   `xml:"offset,attr"`
}
