package geom

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Plane is the set of points p with Normal·p + Constant = 0.
type Plane struct {
	Normal   r3.Vec
	Constant float64
}

// PlaneFromNormalAndPoint builds a plane through p with the given normal.
func PlaneFromNormalAndPoint(normal, p r3.Vec) Plane {
	n := Normalize(normal)
	return Plane{Normal: n, Constant: -r3.Dot(n, p)}
}

// Distance returns the signed distance from p to the plane.
func (pl Plane) Distance(p r3.Vec) float64 {
	return r3.Dot(pl.Normal, p) + pl.Constant
}

// ProjectPoint returns the orthogonal projection of p onto the plane.
func (pl Plane) ProjectPoint(p r3.Vec) r3.Vec {
	return r3.Sub(p, r3.Scale(pl.Distance(p), pl.Normal))
}

// IntersectRay returns the ray parameter t where origin+dir*t meets the plane.
// t may be negative. ok is false when the ray runs parallel to the plane.
func (pl Plane) IntersectRay(origin, dir r3.Vec) (t float64, ok bool) {
	denom := r3.Dot(dir, pl.Normal)
	if math.Abs(denom) < 1e-12 {
		return 0, false
	}
	return -(r3.Dot(origin, pl.Normal) + pl.Constant) / denom, true
}
