// Package lightcam fits a light-aligned orthographic capture camera to the
// bounds of the refractive objects, much like a directional shadow-map camera.
package lightcam

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/caustics/geom"
)

// Camera is an orthographic camera with its derived matrices.
type Camera struct {
	Position r3.Vec
	Target   r3.Vec
	Up       r3.Vec

	Left, Right, Top, Bottom float64
	Near, Far                float64

	Projection        geom.Mat4
	ProjectionInverse geom.Mat4
	World             geom.Mat4 // camera to world
	View              geom.Mat4 // world to camera
	ViewProjection    geom.Mat4
}

// worldUp is the preferred camera up vector.
var worldUp = r3.Vec{Y: 1}

// parallelCos is the |cos| above which a view direction counts as parallel to world up.
const parallelCos = 0.999

// NewOrtho builds a square orthographic camera at position looking at target.
// If up is (near-)parallel to the view direction a fallback up vector is used.
func NewOrtho(position, target, up r3.Vec, halfExtent, near, far float64) Camera {
	up = chooseUp(r3.Sub(target, position), up)

	c := Camera{
		Position: position,
		Target:   target,
		Up:       up,
		Left:     -halfExtent,
		Right:    halfExtent,
		Top:      halfExtent,
		Bottom:   -halfExtent,
		Near:     near,
		Far:      far,
	}
	c.updateMatrices()
	return c
}

// chooseUp returns up unless it is parallel to forward, in which case +Z
// (or +X if forward runs along Z) is used instead.
func chooseUp(forward, up r3.Vec) r3.Vec {
	f := geom.Normalize(forward)
	u := geom.Normalize(up)
	if u == (r3.Vec{}) {
		u = worldUp
	}
	if f == (r3.Vec{}) || math.Abs(r3.Dot(f, u)) < parallelCos {
		return u
	}
	if math.Abs(f.Z) < parallelCos {
		return r3.Vec{Z: 1}
	}
	return r3.Vec{X: 1}
}

func (c *Camera) updateMatrices() {
	rot := geom.LookAt(c.Position, c.Target, c.Up)
	c.World = geom.Translation(c.Position).Mul(rot)
	c.View = rigidInverse(c.World)
	c.Projection = geom.Ortho(c.Left, c.Right, c.Top, c.Bottom, c.Near, c.Far)
	c.ProjectionInverse = orthoInverse(c.Left, c.Right, c.Top, c.Bottom, c.Near, c.Far)
	c.ViewProjection = c.Projection.Mul(c.View)
}

// rigidInverse inverts a rotation+translation matrix.
func rigidInverse(m geom.Mat4) geom.Mat4 {
	// R^T and -R^T t
	out := geom.Identity()
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			out[c*4+r] = m[r*4+c]
		}
	}
	t := r3.Vec{X: m[12], Y: m[13], Z: m[14]}
	it := out.TransformDirection(t)
	out[12], out[13], out[14] = -it.X, -it.Y, -it.Z
	return out
}

// orthoInverse is the closed-form inverse of geom.Ortho.
func orthoInverse(left, right, top, bottom, near, far float64) geom.Mat4 {
	return geom.Mat4{
		(right - left) / 2, 0, 0, 0,
		0, (top - bottom) / 2, 0, 0,
		0, 0, -(far - near) / 2, 0,
		(right + left) / 2, (top + bottom) / 2, -(far + near) / 2, 1,
	}
}

// Forward returns the unit viewing direction (camera -Z in world space).
func (c Camera) Forward() r3.Vec {
	return geom.Normalize(c.World.TransformDirection(r3.Vec{Z: -1}))
}

// HalfExtent returns the orthographic half width (the frustum is square).
func (c Camera) HalfExtent() float64 {
	return c.Right
}

// ToView transforms a world position into camera space.
func (c Camera) ToView(p r3.Vec) r3.Vec {
	return c.View.TransformPoint(p)
}

// Project maps a world position to texture coordinates and window depth in [0,1].
func (c Camera) Project(p r3.Vec) (uv r2.Vec, depth float64) {
	ndc := c.ViewProjection.TransformPoint(p)
	return r2.Vec{X: ndc.X*0.5 + 0.5, Y: ndc.Y*0.5 + 0.5}, ndc.Z*0.5 + 0.5
}

// Unproject reconstructs the world position seen at uv with window depth.
func (c Camera) Unproject(uv r2.Vec, depth float64) r3.Vec {
	return geom.UnprojectDepth(c.World, c.ProjectionInverse, uv.X, uv.Y, depth)
}

// ReceiverPlane returns the plane perpendicular to the view direction at the
// far bound. Refracted light rays are intersected with it.
func (c Camera) ReceiverPlane() geom.Plane {
	f := c.Forward()
	return geom.PlaneFromNormalAndPoint(r3.Scale(-1, f), r3.Add(c.Position, r3.Scale(c.Far, f)))
}

// FrustumCorners returns the 8 world-space corners of the orthographic box.
// Bit 0 selects right, bit 1 top, bit 2 the far plane.
func (c Camera) FrustumCorners() [8]r3.Vec {
	var out [8]r3.Vec
	for i := range out {
		v := r3.Vec{X: c.Left, Y: c.Bottom, Z: -c.Near}
		if i&1 != 0 {
			v.X = c.Right
		}
		if i&2 != 0 {
			v.Y = c.Top
		}
		if i&4 != 0 {
			v.Z = -c.Far
		}
		out[i] = c.World.TransformPoint(v)
	}
	return out
}

// FrustumLines returns the 12 edges of the frustum box as point pairs,
// for a debug wireframe helper.
func (c Camera) FrustumLines() [12][2]r3.Vec {
	k := c.FrustumCorners()
	edges := [12][2]int{
		{0, 1}, {2, 3}, {4, 5}, {6, 7},
		{0, 2}, {1, 3}, {4, 6}, {5, 7},
		{0, 4}, {1, 5}, {2, 6}, {3, 7},
	}
	var out [12][2]r3.Vec
	for i, e := range edges {
		out[i] = [2]r3.Vec{k[e[0]], k[e[1]]}
	}
	return out
}
