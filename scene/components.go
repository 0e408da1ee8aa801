package scene

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/caustics/geom"
)

// Transform places an entity in the world.
type Transform struct {
	Position r3.Vec
	Rotation r3.Rotation
	Scale    r3.Vec
}

// NewTransform returns a transform at position with unit scale and no rotation.
func NewTransform(position r3.Vec) Transform {
	return Transform{Position: position, Scale: r3.Vec{X: 1, Y: 1, Z: 1}}
}

// Matrix returns the object-to-world matrix.
func (t Transform) Matrix() geom.Mat4 {
	return geom.Compose(t.Position, t.Rotation, t.scale())
}

// NormalMatrix returns the matrix that carries object normals to world space,
// the inverse transpose of the linear part of Matrix.
func (t Transform) NormalMatrix() geom.Mat4 {
	s := t.scale()
	inv := r3.Vec{X: safeInv(s.X), Y: safeInv(s.Y), Z: safeInv(s.Z)}
	return geom.Compose(r3.Vec{}, t.Rotation, inv)
}

// WorldPosition implements lightcam.Positioner, so a light may track an entity.
func (t Transform) WorldPosition() r3.Vec {
	return t.Position
}

func (t Transform) scale() r3.Vec {
	if t.Scale == (r3.Vec{}) {
		return r3.Vec{X: 1, Y: 1, Z: 1}
	}
	return t.Scale
}

func safeInv(v float64) float64 {
	if v == 0 {
		return 0
	}
	return 1 / v
}

// Geometry references the mesh an entity draws. Meshes may be shared.
type Geometry struct {
	Mesh *Mesh
}

// Color is a linear RGB colour.
type Color struct {
	R, G, B float64
}

// White is the default caustics colour.
var White = Color{1, 1, 1}

// Refractive marks an entity as a member of the refractive set.
type Refractive struct {
	Tint    Color   // display colour when the object itself is drawn
	Opacity float64 // display opacity
}

// Surface marks an opaque receiver such as the ground.
type Surface struct {
	Albedo Color
}
