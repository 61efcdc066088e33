package analysis

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"

	"github.com/philipparndt/printquote/pkg/geometry"
	"github.com/philipparndt/printquote/pkg/stl"
)

const (
	// binarySizeTolerance is how far the real file size may drift from the
	// size announced by the binary header (trailing padding, newlines).
	binarySizeTolerance = 100
	// MaxASCIIVertices caps the vertex scan of ASCII files (100k triangles)
	MaxASCIIVertices = 300_000
	// asciiFillFactor approximates the solid share of the bounding box when
	// the mesh volume cannot be computed.
	asciiFillFactor = 0.3
	// MinVolumeCM3 is the smallest volume ever reported
	MinVolumeCM3 = 0.1
)

// Format records which path produced a Geometry
type Format string

const (
	FormatBinary      Format = "binary"
	FormatASCII       Format = "ascii"
	FormatPlaceholder Format = "placeholder"
)

// Dimensions are the axis-aligned extents of a model in millimeters
type Dimensions struct {
	Width  float64 `json:"width"`
	Depth  float64 `json:"depth"`
	Height float64 `json:"height"`
}

// Geometry is the quote-relevant summary of an uploaded STL file
type Geometry struct {
	Dimensions Dimensions `json:"dimensions_mm"`
	VolumeCM3  float64    `json:"volume_cm3"`
	Triangles  int        `json:"triangles"`
	Format     Format     `json:"format"`
}

// Placeholder is reported whenever a file cannot be analysed, so pricing can
// always proceed.
func Placeholder() Geometry {
	return Geometry{
		Dimensions: Dimensions{Width: 50, Depth: 50, Height: 30},
		VolumeCM3:  25,
		Triangles:  5000,
		Format:     FormatPlaceholder,
	}
}

// VolumeString renders the volume with one decimal
func (g Geometry) VolumeString() string {
	return strconv.FormatFloat(g.VolumeCM3, 'f', 1, 64)
}

// Summary is the display shape of a Geometry
type Summary struct {
	Dimensions Dimensions `json:"dimensions_mm"`
	VolumeCM3  string     `json:"volume_cm3"`
	Triangles  int        `json:"triangles"`
}

// Summary converts the geometry to its display shape
func (g Geometry) Summary() Summary {
	return Summary{Dimensions: g.Dimensions, VolumeCM3: g.VolumeString(), Triangles: g.Triangles}
}

// String implements fmt.Stringer
func (g Geometry) String() string {
	return fmt.Sprintf("%.1f x %.1f x %.1f mm, %s cm³, %d triangles",
		g.Dimensions.Width, g.Dimensions.Depth, g.Dimensions.Height, g.VolumeString(), g.Triangles)
}

// ParseGeometryReader reads the whole stream and analyses it. Read errors
// produce the placeholder.
func ParseGeometryReader(r io.Reader) Geometry {
	data, err := io.ReadAll(r)
	if err != nil {
		return Placeholder()
	}
	return ParseGeometry(data)
}

// ParseGeometry analyses raw STL bytes. It never fails: empty, malformed or
// degenerate input yields Placeholder().
func ParseGeometry(data []byte) (g Geometry) {
	defer func() {
		if recover() != nil {
			g = Placeholder()
		}
	}()

	if len(data) == 0 {
		return Placeholder()
	}

	var ok bool
	if looksBinary(data) {
		g, ok = parseBinaryGeometry(data)
	} else {
		g, ok = parseASCIIGeometry(data)
	}
	if !ok || !finite(g) {
		return Placeholder()
	}
	g.VolumeCM3 = math.Max(MinVolumeCM3, g.VolumeCM3)
	return g
}

// looksBinary applies the header size heuristic
func looksBinary(data []byte) bool {
	if len(data) < stl.HeaderSize {
		return false
	}
	count := int64(binary.LittleEndian.Uint32(data[80:84]))
	expected := stl.HeaderSize + count*stl.RecordSize
	diff := int64(len(data)) - expected
	return diff > -binarySizeTolerance && diff < binarySizeTolerance
}

func parseBinaryGeometry(data []byte) (Geometry, bool) {
	count := int(binary.LittleEndian.Uint32(data[80:84]))
	count = min(count, stl.MaxTriangles, (len(data)-stl.HeaderSize)/stl.RecordSize)

	bbox := geometry.NewBoundingBox()
	signed := 0.0
	processed := 0
	for i := 0; i < count; i++ {
		record := data[stl.HeaderSize+i*stl.RecordSize:]
		tri := geometry.NewTriangle(geometry.Vector3{},
			readVertex(record[12:]), readVertex(record[24:]), readVertex(record[36:]))
		if !finiteVector(tri.V1) || !finiteVector(tri.V2) || !finiteVector(tri.V3) {
			continue
		}
		bbox.Extend(tri.V1)
		bbox.Extend(tri.V2)
		bbox.Extend(tri.V3)
		signed += tri.SignedVolume()
		processed++
	}
	if bbox.IsEmpty() {
		return Geometry{}, false
	}

	return Geometry{
		Dimensions: dimensionsOf(bbox),
		VolumeCM3:  math.Abs(signed) / 1000.0,
		Triangles:  processed,
		Format:     FormatBinary,
	}, true
}

var vertexPattern = regexp.MustCompile(`vertex\s+(\S+)\s+(\S+)\s+(\S+)`)

// parseASCIIGeometry scans vertex lines only. Facet grouping is not trusted,
// so the volume is estimated from the bounding box.
func parseASCIIGeometry(data []byte) (Geometry, bool) {
	bbox := geometry.NewBoundingBox()
	vertices := 0
	for _, m := range vertexPattern.FindAllSubmatch(data, MaxASCIIVertices) {
		x, errX := strconv.ParseFloat(string(m[1]), 64)
		y, errY := strconv.ParseFloat(string(m[2]), 64)
		z, errZ := strconv.ParseFloat(string(m[3]), 64)
		if errX != nil || errY != nil || errZ != nil {
			continue
		}
		v := geometry.NewVector3(x, y, z)
		if !finiteVector(v) {
			continue
		}
		bbox.Extend(v)
		vertices++
	}
	if vertices == 0 {
		return Geometry{}, false
	}

	dims := dimensionsOf(bbox)
	return Geometry{
		Dimensions: dims,
		VolumeCM3:  dims.Width * dims.Depth * dims.Height * asciiFillFactor / 1000.0,
		Triangles:  vertices / 3,
		Format:     FormatASCII,
	}, true
}

func dimensionsOf(bbox geometry.BoundingBox) Dimensions {
	size := bbox.Size()
	return Dimensions{Width: size.X, Depth: size.Y, Height: size.Z}
}

func readVertex(b []byte) geometry.Vector3 {
	return geometry.NewVector3(
		float64(math.Float32frombits(binary.LittleEndian.Uint32(b[0:4]))),
		float64(math.Float32frombits(binary.LittleEndian.Uint32(b[4:8]))),
		float64(math.Float32frombits(binary.LittleEndian.Uint32(b[8:12]))),
	)
}

func finiteVector(v geometry.Vector3) bool {
	return !math.IsNaN(v.X+v.Y+v.Z) && !math.IsInf(v.X+v.Y+v.Z, 0)
}

func finite(g Geometry) bool {
	d := g.Dimensions
	return finiteVector(geometry.NewVector3(d.Width, d.Depth, d.Height)) &&
		!math.IsNaN(g.VolumeCM3) && !math.IsInf(g.VolumeCM3, 0)
}
