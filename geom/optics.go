package geom

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Refract bends incident through a surface with the given normal.
// eta is the ratio n1/n2. It follows GLSL refract: the zero vector is
// returned on total internal reflection, and normal is expected to face
// against incident.
func Refract(incident, normal r3.Vec, eta float64) r3.Vec {
	d := r3.Dot(normal, incident)
	k := 1 - eta*eta*(1-d*d)
	if k < 0 {
		return r3.Vec{}
	}
	return r3.Sub(r3.Scale(eta, incident), r3.Scale(eta*d+math.Sqrt(k), normal))
}

// QuadArea returns the area of the quadrilateral p1 p2 p3 p4 (in winding order)
// as the sum of the triangles (p1,p2,p3) and (p1,p3,p4).
func QuadArea(p1, p2, p3, p4 r3.Vec) float64 {
	a := r3.Norm(r3.Cross(r3.Sub(p2, p1), r3.Sub(p3, p1)))
	b := r3.Norm(r3.Cross(r3.Sub(p3, p1), r3.Sub(p4, p1)))
	return 0.5 * (a + b)
}

// Lerp linearly interpolates between a and b.
func Lerp(a, b r3.Vec, t float64) r3.Vec {
	return r3.Add(a, r3.Scale(t, r3.Sub(b, a)))
}

// ApproxEqual reports whether a and b differ by at most eps per component.
func ApproxEqual(a, b r3.Vec, eps float64) bool {
	return math.Abs(a.X-b.X) <= eps && math.Abs(a.Y-b.Y) <= eps && math.Abs(a.Z-b.Z) <= eps
}
