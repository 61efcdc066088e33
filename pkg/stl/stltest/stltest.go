// Package stltest builds STL fixtures for tests.
package stltest

import (
	"bytes"

	"github.com/philipparndt/printquote/pkg/geometry"
	"github.com/philipparndt/printquote/pkg/stl"
)

type face struct {
	origin, u, v geometry.Vector3
}

// Cube returns a closed, outward-wound cube with the given edge length in mm.
// Every face is split into n×n cells of two triangles, so the model carries
// 12·n² facets.
func Cube(size float64, n int) *stl.Model {
	if n < 1 {
		n = 1
	}
	x := geometry.NewVector3(1, 0, 0)
	y := geometry.NewVector3(0, 1, 0)
	z := geometry.NewVector3(0, 0, 1)
	faces := []face{
		{geometry.NewVector3(0, 0, size), x, y},
		{geometry.Vector3{}, y, x},
		{geometry.NewVector3(size, 0, 0), y, z},
		{geometry.Vector3{}, z, y},
		{geometry.NewVector3(0, size, 0), z, x},
		{geometry.Vector3{}, x, z},
	}

	model := stl.NewModel("cube")
	step := size / float64(n)
	for _, f := range faces {
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				p00 := f.origin.Add(f.u.Scale(float64(i) * step)).Add(f.v.Scale(float64(j) * step))
				p10 := p00.Add(f.u.Scale(step))
				p01 := p00.Add(f.v.Scale(step))
				p11 := p10.Add(f.v.Scale(step))
				model.AddTriangle(geometry.NewTriangle(geometry.Vector3{}, p00, p10, p11))
				model.AddTriangle(geometry.NewTriangle(geometry.Vector3{}, p00, p11, p01))
			}
		}
	}
	return model
}

// PadTo appends zero-area facets at the origin until the model has count
// triangles. The padding changes neither the bounding box nor the volume of a
// model that already touches the origin.
func PadTo(model *stl.Model, count int) *stl.Model {
	for model.TriangleCount() < count {
		model.AddTriangle(geometry.Triangle{})
	}
	return model
}

// Binary encodes the model as binary STL bytes
func Binary(model *stl.Model) []byte {
	var buf bytes.Buffer
	if err := stl.WriteBinary(&buf, model); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// ASCII encodes the model as ASCII STL bytes
func ASCII(model *stl.Model) []byte {
	var buf bytes.Buffer
	if err := stl.WriteASCII(&buf, model); err != nil {
		panic(err)
	}
	return buf.Bytes()
}
