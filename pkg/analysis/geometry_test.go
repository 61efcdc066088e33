package analysis

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/philipparndt/printquote/pkg/geometry"
	"github.com/philipparndt/printquote/pkg/stl"
	"github.com/philipparndt/printquote/pkg/stl/stltest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGeometryBinaryCube(t *testing.T) {
	// 10 mm cube with exactly 1000 facets
	model := stltest.PadTo(stltest.Cube(10, 9), 1000)
	require.Equal(t, 1000, model.TriangleCount())

	g := ParseGeometry(stltest.Binary(model))

	assert.Equal(t, FormatBinary, g.Format)
	assert.Equal(t, 1000, g.Triangles)
	assert.InDelta(t, 10, g.Dimensions.Width, 0.5)
	assert.InDelta(t, 10, g.Dimensions.Depth, 0.5)
	assert.InDelta(t, 10, g.Dimensions.Height, 0.5)
	assert.InEpsilon(t, 1.0, g.VolumeCM3, 0.05)
	assert.Equal(t, "1.0", g.VolumeString())
}

func TestParseGeometryToleratesTrailingPadding(t *testing.T) {
	data := stltest.Binary(stltest.Cube(20, 1))
	data = append(data, bytes.Repeat([]byte("\n"), 40)...)

	g := ParseGeometry(data)
	assert.Equal(t, FormatBinary, g.Format)
	assert.Equal(t, 12, g.Triangles)
	assert.InDelta(t, 8.0, g.VolumeCM3, 1e-6)
}

func TestParseGeometryASCII(t *testing.T) {
	g := ParseGeometry(stltest.ASCII(stltest.Cube(20, 1)))

	assert.Equal(t, FormatASCII, g.Format)
	assert.Equal(t, 12, g.Triangles)
	assert.InDelta(t, 20, g.Dimensions.Width, 1e-9)
	// Box heuristic: 20³ · 0.3 mm³
	assert.InDelta(t, 2.4, g.VolumeCM3, 1e-9)
}

func TestParseGeometryASCIIVertexCap(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("solid big\n")
	for i := 0; i < MaxASCIIVertices+30; i++ {
		buf.WriteString("vertex 0 0 0\n")
	}
	g := ParseGeometry(buf.Bytes())
	assert.Equal(t, MaxASCIIVertices/3, g.Triangles)
}

func TestParseGeometryMalformedReturnsPlaceholder(t *testing.T) {
	cases := map[string][]byte{
		"empty":        nil,
		"random bytes": {0x13, 0x37, 0xde, 0xad, 0xbe, 0xef, 0x00, 0x01, 0x02, 0x03},
		"no vertices":  []byte("solid nothing\nendsolid nothing\n"),
		"zero count":   make([]byte, stl.HeaderSize),
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, Placeholder(), ParseGeometry(data))
		})
	}
}

func TestParseGeometryBinaryTriangleCap(t *testing.T) {
	// Header claims more facets than the cap; only the records present count
	data := make([]byte, stl.HeaderSize+stl.RecordSize*3)
	binary.LittleEndian.PutUint32(data[80:], 3)
	for i := 0; i < 3; i++ {
		rec := data[stl.HeaderSize+i*stl.RecordSize:]
		binary.LittleEndian.PutUint32(rec[12:], math.Float32bits(float32(i)))
	}
	g := ParseGeometry(data)
	assert.LessOrEqual(t, g.Triangles, stl.MaxTriangles)
	assert.Equal(t, 3, g.Triangles)

	huge := make([]byte, stl.HeaderSize+stl.RecordSize*(stl.MaxTriangles+10))
	binary.LittleEndian.PutUint32(huge[80:], stl.MaxTriangles+10)
	binary.LittleEndian.PutUint32(huge[stl.HeaderSize+36:], math.Float32bits(1))
	g = ParseGeometry(huge)
	assert.Equal(t, stl.MaxTriangles, g.Triangles)
}

func TestParseGeometryVolumeFloor(t *testing.T) {
	model := stltest.Cube(1, 1) // 0.001 cm³
	g := ParseGeometry(stltest.Binary(model))
	assert.Equal(t, MinVolumeCM3, g.VolumeCM3)

	flat := stl.NewModel("flat")
	flat.AddTriangle(geometry.NewTriangle(geometry.Vector3{},
		geometry.NewVector3(0, 0, 0), geometry.NewVector3(5, 0, 0), geometry.NewVector3(0, 5, 0)))
	g = ParseGeometry(stltest.Binary(flat))
	assert.GreaterOrEqual(t, g.VolumeCM3, MinVolumeCM3)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("disk on fire") }

func TestParseGeometryReader(t *testing.T) {
	assert.Equal(t, Placeholder(), ParseGeometryReader(failingReader{}))

	g := ParseGeometryReader(bytes.NewReader(stltest.Binary(stltest.Cube(10, 1))))
	assert.Equal(t, 12, g.Triangles)
}

func TestGeometrySummary(t *testing.T) {
	s := Placeholder().Summary()
	assert.Equal(t, "25.0", s.VolumeCM3)
	assert.Equal(t, 5000, s.Triangles)
	assert.Equal(t, 50.0, s.Dimensions.Width)
}
