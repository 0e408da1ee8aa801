package scene

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/caustics/geom"
)

// ShapeKind identifies the generator a mesh came from.
type ShapeKind uint8

const (
	ShapeCustom ShapeKind = iota
	ShapeSphere
	ShapeBox
	ShapePlane
)

func (k ShapeKind) String() string {
	switch k {
	case ShapeSphere:
		return "sphere"
	case ShapeBox:
		return "box"
	case ShapePlane:
		return "plane"
	default:
		return "custom"
	}
}

// Shape records the generator parameters of a mesh so a GPU host can
// rebuild the same geometry with its own mesh generators.
type Shape struct {
	Kind     ShapeKind
	Radius   float64 // sphere
	Size     r3.Vec  // box extents, plane width (X) and depth (Z)
	Rings    int     // sphere latitude segments
	Segments int     // sphere longitude segments
}

// Mesh is an indexed triangle mesh in object space. Triangles wind
// counter-clockwise when seen from the side their normals point to.
type Mesh struct {
	Shape     Shape
	Positions []r3.Vec
	Normals   []r3.Vec
	Indices   []uint32
}

// Triangles returns the number of triangles.
func (m *Mesh) Triangles() int {
	return len(m.Indices) / 3
}

// Triangle returns the vertex indices of triangle i.
func (m *Mesh) Triangle(i int) (a, b, c uint32) {
	return m.Indices[3*i], m.Indices[3*i+1], m.Indices[3*i+2]
}

// Bounds returns the world-space box of the mesh transformed by world.
func (m *Mesh) Bounds(world geom.Mat4) geom.AABB {
	b := geom.EmptyAABB()
	for _, p := range m.Positions {
		b = b.Expand(world.TransformPoint(p))
	}
	return b
}

// NewSphere builds a UV sphere centred at the origin.
func NewSphere(radius float64, rings, segments int) *Mesh {
	rings = max(rings, 2)
	segments = max(segments, 3)

	m := &Mesh{Shape: Shape{Kind: ShapeSphere, Radius: radius, Rings: rings, Segments: segments}}
	for iy := 0; iy <= rings; iy++ {
		theta := math.Pi * float64(iy) / float64(rings)
		for ix := 0; ix <= segments; ix++ {
			phi := 2 * math.Pi * float64(ix) / float64(segments)
			n := r3.Vec{
				X: -math.Cos(phi) * math.Sin(theta),
				Y: math.Cos(theta),
				Z: math.Sin(phi) * math.Sin(theta),
			}
			m.Positions = append(m.Positions, r3.Scale(radius, n))
			m.Normals = append(m.Normals, n)
		}
	}

	stride := uint32(segments + 1)
	for iy := 0; iy < rings; iy++ {
		for ix := 0; ix < segments; ix++ {
			a := uint32(iy)*stride + uint32(ix) + 1
			b := uint32(iy)*stride + uint32(ix)
			c := uint32(iy+1)*stride + uint32(ix)
			d := uint32(iy+1)*stride + uint32(ix) + 1
			// Pole rows collapse to a point; skip the zero-area half.
			if iy != 0 {
				m.Indices = append(m.Indices, a, b, d)
			}
			if iy != rings-1 {
				m.Indices = append(m.Indices, b, c, d)
			}
		}
	}
	return m
}

// boxFaces lists each face normal with tangent axes u, v where u x v = normal.
var boxFaces = [6][3]r3.Vec{
	{{X: 1}, {Z: -1}, {Y: 1}},
	{{X: -1}, {Z: 1}, {Y: 1}},
	{{Y: 1}, {X: 1}, {Z: -1}},
	{{Y: -1}, {X: 1}, {Z: 1}},
	{{Z: 1}, {X: 1}, {Y: 1}},
	{{Z: -1}, {X: -1}, {Y: 1}},
}

// NewBox builds an axis-aligned box centred at the origin with flat-shaded faces.
func NewBox(size r3.Vec) *Mesh {
	half := r3.Scale(0.5, size)
	m := &Mesh{Shape: Shape{Kind: ShapeBox, Size: size}}
	for _, f := range boxFaces {
		m.appendQuad(f[0], f[1], f[2], half, true)
	}
	return m
}

// NewPlane builds a horizontal plane facing +Y, width along X and depth along Z.
func NewPlane(width, depth float64) *Mesh {
	m := &Mesh{Shape: Shape{Kind: ShapePlane, Size: r3.Vec{X: width, Z: depth}}}
	m.appendQuad(r3.Vec{Y: 1}, r3.Vec{X: 1}, r3.Vec{Z: -1}, r3.Vec{X: width / 2, Z: depth / 2}, false)
	return m
}

// appendQuad adds a two-triangle face. Offset moves the face out along n by half.
func (m *Mesh) appendQuad(n, u, v, half r3.Vec, offset bool) {
	base := uint32(len(m.Positions))
	corners := [4][2]float64{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}}
	for _, c := range corners {
		p := r3.Add(r3.Scale(c[0], u), r3.Scale(c[1], v))
		if offset {
			p = r3.Add(p, n)
		}
		m.Positions = append(m.Positions, r3.Vec{X: p.X * half.X, Y: p.Y * half.Y, Z: p.Z * half.Z})
		m.Normals = append(m.Normals, n)
	}
	m.Indices = append(m.Indices, base, base+1, base+2, base, base+2, base+3)
}
