package thumbnail

import (
	"errors"
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/fogleman/fauxgl"
	"github.com/nfnt/resize"
	"github.com/philipparndt/printquote/pkg/geometry"
	"github.com/philipparndt/printquote/pkg/stl"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// ErrNothingToRender is returned when a model has no non-degenerate facets
var ErrNothingToRender = errors.New("thumbnail: model has no renderable triangles")

const (
	ambientLight = 0.4
	minArea      = 1e-12
)

type directionalLight struct {
	direction fauxgl.Vector
	intensity float64
}

// key light from the camera side, fill light from behind
var studioLights = []directionalLight{
	{direction: fauxgl.V(1, 1, 1).Normalize(), intensity: 0.6},
	{direction: fauxgl.V(-1, 0.5, -1).Normalize(), intensity: 0.3},
}

// studioShader lights a single-colour mesh with an ambient term and a set of
// directional lights
type studioShader struct {
	matrix  fauxgl.Matrix
	color   fauxgl.Color
	ambient float64
	lights  []directionalLight
}

func (s *studioShader) Vertex(v fauxgl.Vertex) fauxgl.Vertex {
	v.Output = s.matrix.MulPositionW(v.Position)
	return v
}

func (s *studioShader) Fragment(v fauxgl.Vertex) fauxgl.Color {
	n := v.Normal.Normalize()
	light := s.ambient
	for _, l := range s.lights {
		light += math.Max(n.Dot(l.direction), 0) * l.intensity
	}
	return fauxgl.Color{
		R: math.Min(s.color.R*light, 1),
		G: math.Min(s.color.G*light, 1),
		B: math.Min(s.color.B*light, 1),
		A: 1,
	}
}

// uprightMesh converts a Z-up model into a Y-up fauxgl mesh standing on the
// ground plane and centred on the Y axis. Degenerate and non-finite facets
// are skipped; every vertex carries its facet normal.
func uprightMesh(model *stl.Model) (*fauxgl.Mesh, geometry.BoundingBox) {
	rotated := make([]geometry.Triangle, 0, len(model.Triangles))
	bbox := geometry.NewBoundingBox()
	for _, t := range model.Triangles {
		r := geometry.Triangle{V1: zUpToYUp(t.V1), V2: zUpToYUp(t.V2), V3: zUpToYUp(t.V3)}
		if !finite(r.V1) || !finite(r.V2) || !finite(r.V3) || r.Area() < minArea {
			continue
		}
		rotated = append(rotated, r)
		bbox.Extend(r.V1)
		bbox.Extend(r.V2)
		bbox.Extend(r.V3)
	}
	if len(rotated) == 0 {
		return nil, bbox
	}

	// move onto the ground plane, centred on the Y axis
	center := bbox.Center()
	shift := geometry.NewVector3(-center.X, -bbox.Min.Y, -center.Z)

	triangles := make([]*fauxgl.Triangle, len(rotated))
	for i, t := range rotated {
		n := toFaux(t.CalculateNormal())
		triangles[i] = &fauxgl.Triangle{
			V1: fauxgl.Vertex{Position: toFaux(t.V1.Add(shift)), Normal: n},
			V2: fauxgl.Vertex{Position: toFaux(t.V2.Add(shift)), Normal: n},
			V3: fauxgl.Vertex{Position: toFaux(t.V3.Add(shift)), Normal: n},
		}
	}
	grounded := geometry.BoundingBox{Min: bbox.Min.Add(shift), Max: bbox.Max.Add(shift)}
	return fauxgl.NewTriangleMesh(triangles), grounded
}

// zUpToYUp rotates by -90° about the X axis
func zUpToYUp(v geometry.Vector3) geometry.Vector3 {
	return geometry.NewVector3(v.X, v.Z, -v.Y)
}

func finite(v geometry.Vector3) bool {
	for _, c := range []float64{v.X, v.Y, v.Z} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

// Render rasterizes the model with the given options. Options must already
// carry their defaults.
func Render(model *stl.Model, opts Options) (image.Image, error) {
	mesh, bbox := uprightMesh(model)
	if mesh == nil {
		return nil, ErrNothingToRender
	}

	scale := opts.Supersample
	width, height := opts.Width*scale, opts.Height*scale
	camera := NewCamera(bbox, opts.CameraAngle)

	ctx := fauxgl.NewContext(width, height)
	ctx.ClearColorBufferWith(opts.background())
	ctx.Cull = fauxgl.CullNone
	ctx.Shader = &studioShader{
		matrix:  camera.Matrix(float64(width) / float64(height)),
		color:   opts.model(),
		ambient: ambientLight,
		lights:  studioLights,
	}
	ctx.DrawMesh(mesh)

	img := ctx.Image()
	if scale > 1 {
		img = resize.Resize(uint(opts.Width), uint(opts.Height), img, resize.Bilinear)
	}
	if opts.Label != "" {
		img = drawLabel(img, opts.Label)
	}
	return img, nil
}

func drawLabel(src image.Image, label string) image.Image {
	dst := image.NewRGBA(src.Bounds())
	draw.Draw(dst, dst.Bounds(), src, src.Bounds().Min, draw.Src)

	face := basicfont.Face7x13
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(color.RGBA{R: 0x33, G: 0x33, B: 0x33, A: 0xff}),
		Face: face,
		Dot:  fixed.P(4, dst.Bounds().Dy()-face.Descent-2),
	}
	d.DrawString(label)
	return dst
}
