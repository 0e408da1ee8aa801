// Package geom provides the small amount of 3D math the caustics pipeline needs:
// column-major 4x4 matrices, bounding boxes, planes and refraction helpers.
// Vectors are gonum r3/r2 values so they interoperate with the rest of gonum.
package geom

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Mat4 is a 4x4 matrix stored column-major (element [col*4+row]),
// matching GLSL and raylib memory layout.
type Mat4 [16]float64

// ErrSingular is returned when a matrix has no inverse.
var ErrSingular = errors.New("geom: singular matrix")

// Identity returns the identity matrix.
func Identity() Mat4 {
	return Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// At returns the element at row r, column c.
func (m Mat4) At(r, c int) float64 {
	return m[c*4+r]
}

// Mul returns m*o.
func (m Mat4) Mul(o Mat4) Mat4 {
	var out Mat4
	for c := 0; c < 4; c++ {
		for r := 0; r < 4; r++ {
			var sum float64
			for k := 0; k < 4; k++ {
				sum += m[k*4+r] * o[c*4+k]
			}
			out[c*4+r] = sum
		}
	}
	return out
}

// MulVec4 returns m*v.
func (m Mat4) MulVec4(v [4]float64) [4]float64 {
	var out [4]float64
	for r := 0; r < 4; r++ {
		out[r] = m[r]*v[0] + m[4+r]*v[1] + m[8+r]*v[2] + m[12+r]*v[3]
	}
	return out
}

// TransformPoint applies m to p (w=1) and performs the perspective divide.
func (m Mat4) TransformPoint(p r3.Vec) r3.Vec {
	v := m.MulVec4([4]float64{p.X, p.Y, p.Z, 1})
	if v[3] != 0 && v[3] != 1 {
		inv := 1 / v[3]
		return r3.Vec{X: v[0] * inv, Y: v[1] * inv, Z: v[2] * inv}
	}
	return r3.Vec{X: v[0], Y: v[1], Z: v[2]}
}

// TransformDirection applies the upper 3x3 of m to d (w=0).
func (m Mat4) TransformDirection(d r3.Vec) r3.Vec {
	return r3.Vec{
		X: m[0]*d.X + m[4]*d.Y + m[8]*d.Z,
		Y: m[1]*d.X + m[5]*d.Y + m[9]*d.Z,
		Z: m[2]*d.X + m[6]*d.Y + m[10]*d.Z,
	}
}

// Transpose returns the transpose of m.
func (m Mat4) Transpose() Mat4 {
	var out Mat4
	for c := 0; c < 4; c++ {
		for r := 0; r < 4; r++ {
			out[r*4+c] = m[c*4+r]
		}
	}
	return out
}

// Inverse returns the inverse of m.
// Near-singular matrices are accepted as long as gonum reports a finite condition number.
func (m Mat4) Inverse() (Mat4, error) {
	dense := mat.NewDense(4, 4, nil)
	for c := 0; c < 4; c++ {
		for r := 0; r < 4; r++ {
			dense.Set(r, c, m[c*4+r])
		}
	}

	var inv mat.Dense
	if err := inv.Inverse(dense); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) || math.IsInf(float64(cond), 1) {
			return Mat4{}, fmt.Errorf("%w: %v", ErrSingular, err)
		}
	}

	var out Mat4
	for c := 0; c < 4; c++ {
		for r := 0; r < 4; r++ {
			out[c*4+r] = inv.At(r, c)
		}
	}
	return out, nil
}

// Translation returns a translation matrix.
func Translation(t r3.Vec) Mat4 {
	m := Identity()
	m[12], m[13], m[14] = t.X, t.Y, t.Z
	return m
}

// Scaling returns a non-uniform scale matrix.
func Scaling(s r3.Vec) Mat4 {
	m := Identity()
	m[0], m[5], m[10] = s.X, s.Y, s.Z
	return m
}

// Compose builds translation * rotation * scale.
func Compose(position r3.Vec, rotation r3.Rotation, scale r3.Vec) Mat4 {
	rot := NormalizeRotation(rotation)
	x := r3.Scale(scale.X, rot.Rotate(r3.Vec{X: 1}))
	y := r3.Scale(scale.Y, rot.Rotate(r3.Vec{Y: 1}))
	z := r3.Scale(scale.Z, rot.Rotate(r3.Vec{Z: 1}))
	return Mat4{
		x.X, x.Y, x.Z, 0,
		y.X, y.Y, y.Z, 0,
		z.X, z.Y, z.Z, 0,
		position.X, position.Y, position.Z, 1,
	}
}

// NormalizeRotation maps the zero value to the identity rotation.
func NormalizeRotation(r r3.Rotation) r3.Rotation {
	if r == (r3.Rotation{}) {
		return r3.Rotation{Real: 1}
	}
	return r
}

// LookAt returns the rotation that orients a camera at eye toward target.
// The camera looks down its local -Z axis. When up is parallel to the view
// direction the forward axis is nudged so the basis stays well defined.
func LookAt(eye, target, up r3.Vec) Mat4 {
	z := r3.Sub(eye, target)
	if r3.Norm2(z) == 0 {
		z.Z = 1
	}
	z = Normalize(z)

	x := r3.Cross(up, z)
	if r3.Norm2(x) == 0 {
		if math.Abs(up.Z) == 1 {
			z.X += 0.0001
		} else {
			z.Z += 0.0001
		}
		z = Normalize(z)
		x = r3.Cross(up, z)
	}
	x = Normalize(x)
	y := r3.Cross(z, x)

	return Mat4{
		x.X, x.Y, x.Z, 0,
		y.X, y.Y, y.Z, 0,
		z.X, z.Y, z.Z, 0,
		0, 0, 0, 1,
	}
}

// Ortho returns an OpenGL-style orthographic projection.
// Depth maps near to NDC -1 and far to NDC +1.
func Ortho(left, right, top, bottom, near, far float64) Mat4 {
	w := 1 / (right - left)
	h := 1 / (top - bottom)
	p := 1 / (far - near)

	x := (right + left) * w
	y := (top + bottom) * h
	z := (far + near) * p

	return Mat4{
		2 * w, 0, 0, 0,
		0, 2 * h, 0, 0,
		0, 0, -2 * p, 0,
		-x, -y, -z, 1,
	}
}

// Perspective returns an OpenGL-style perspective projection; fovY is in radians.
func Perspective(fovY, aspect, near, far float64) Mat4 {
	f := 1 / math.Tan(fovY/2)
	nf := 1 / (near - far)
	return Mat4{
		f / aspect, 0, 0, 0,
		0, f, 0, 0,
		0, 0, (far + near) * nf, -1,
		0, 0, 2 * far * near * nf, 0,
	}
}

// Normalize returns the unit vector of v, or the zero vector when v has no length.
func Normalize(v r3.Vec) r3.Vec {
	n := r3.Norm(v)
	if n == 0 {
		return r3.Vec{}
	}
	return r3.Scale(1/n, v)
}

// UnprojectDepth reconstructs a world position from a texture coordinate and a
// window-space depth in [0,1], given the camera-to-world matrix and the inverse
// projection. This is the standard depth-buffer unprojection: NDC, then view
// space with a perspective divide, then world space.
func UnprojectDepth(cameraWorld, projectionInverse Mat4, u, v, depth float64) r3.Vec {
	ndc := r3.Vec{X: u*2 - 1, Y: v*2 - 1, Z: depth*2 - 1}
	view := projectionInverse.TransformPoint(ndc)
	return cameraWorld.TransformPoint(view)
}
