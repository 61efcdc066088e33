package thumbnail

import (
	"math"

	"github.com/fogleman/fauxgl"
	"github.com/philipparndt/printquote/pkg/geometry"
)

// Camera frames a model that stands on the ground plane (y = 0) and is
// centred on the Y axis
type Camera struct {
	Position geometry.Vector3
	Target   geometry.Vector3
	Up       geometry.Vector3
	FOV      float64 // Vertical field of view in radians
	Distance float64
	Near     float64
	Far      float64
}

// NewCamera positions a camera to view a bounding box from angle. The eye
// sits at Distance*angle where Distance is twice the largest extent, and it
// looks at a third of the model height.
func NewCamera(bbox geometry.BoundingBox, angle Angle) *Camera {
	size := bbox.Size()
	distance := size.MaxComponent() * 2.0
	if distance <= 0 {
		distance = 1
	}

	target := geometry.NewVector3(bbox.Center().X, bbox.Min.Y+size.Y/3, bbox.Center().Z)
	offset := geometry.NewVector3(angle.X, angle.Y, angle.Z).Scale(distance)
	reach := offset.Length() + size.Length()

	return &Camera{
		Position: geometry.NewVector3(bbox.Center().X, bbox.Min.Y, bbox.Center().Z).Add(offset),
		Target:   target,
		Up:       geometry.NewVector3(0, 1, 0),
		FOV:      math.Pi / 4, // 45 degrees
		Distance: distance,
		Near:     reach * 0.001,
		Far:      reach * 4,
	}
}

// Matrix returns the combined view and projection matrix
func (c *Camera) Matrix(aspect float64) fauxgl.Matrix {
	return fauxgl.LookAt(toFaux(c.Position), toFaux(c.Target), toFaux(c.Up)).
		Perspective(c.FOV*180/math.Pi, aspect, c.Near, c.Far)
}

func toFaux(v geometry.Vector3) fauxgl.Vector {
	return fauxgl.V(v.X, v.Y, v.Z)
}
