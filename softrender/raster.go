package softrender

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/caustics/geom"
	"github.com/pthm-cable/caustics/scene"
)

const (
	minClipW = 1e-9 // rejects triangles that reach behind the eye
	depthEps = 1e-6 // fragments this far in front of the near plane are kept
)

// fragment is one covered pixel of a triangle.
type fragment struct {
	x, y   int
	depth  float64 // window depth
	world  r3.Vec
	normal r3.Vec // interpolated world normal, not normalized
	front  bool
}

type screenVertex struct {
	x, y, z float64 // pixel coordinates and window depth
	invW    float64
	world   r3.Vec
	normal  r3.Vec
}

func edge(ax, ay, bx, by, px, py float64) float64 {
	return (bx-ax)*(py-ay) - (by-ay)*(px-ax)
}

// rasterizer draws meshes into a grid of width x height pixels.
type rasterizer struct {
	width, height int
	viewProj      geom.Mat4
}

// mesh rasterizes every triangle of mesh placed by tr, calling fn for each
// covered pixel on the requested side. Counter-clockwise triangles on screen
// are front facing.
func (r rasterizer) mesh(tr scene.Transform, mesh *scene.Mesh, side scene.Side, fn func(*fragment)) {
	model := tr.Matrix()
	normalMat := tr.NormalMatrix()
	mvp := r.viewProj.Mul(model)

	verts := make([]screenVertex, len(mesh.Positions))
	valid := make([]bool, len(mesh.Positions))
	for i, p := range mesh.Positions {
		clip := mvp.MulVec4([4]float64{p.X, p.Y, p.Z, 1})
		if clip[3] <= minClipW {
			continue
		}
		invW := 1 / clip[3]
		verts[i] = screenVertex{
			x:      (clip[0]*invW*0.5 + 0.5) * float64(r.width),
			y:      (clip[1]*invW*0.5 + 0.5) * float64(r.height),
			z:      clip[2]*invW*0.5 + 0.5,
			invW:   invW,
			world:  model.TransformPoint(p),
			normal: normalMat.TransformDirection(mesh.Normals[i]),
		}
		valid[i] = true
	}

	for i := 0; i < mesh.Triangles(); i++ {
		a, b, c := mesh.Triangle(i)
		if !valid[a] || !valid[b] || !valid[c] {
			continue
		}
		r.triangle(&verts[a], &verts[b], &verts[c], side, fn)
	}
}

func (r rasterizer) triangle(v0, v1, v2 *screenVertex, side scene.Side, fn func(*fragment)) {
	area := edge(v0.x, v0.y, v1.x, v1.y, v2.x, v2.y)
	if area == 0 || math.IsNaN(area) {
		return
	}
	front := area > 0
	if (side == scene.FrontSide && !front) || (side == scene.BackSide && front) {
		return
	}

	minX := max(0, int(math.Floor(min(v0.x, v1.x, v2.x))))
	maxX := min(r.width-1, int(math.Ceil(max(v0.x, v1.x, v2.x))))
	minY := max(0, int(math.Floor(min(v0.y, v1.y, v2.y))))
	maxY := min(r.height-1, int(math.Ceil(max(v0.y, v1.y, v2.y))))

	f := fragment{front: front}
	for y := minY; y <= maxY; y++ {
		py := float64(y) + 0.5
		for x := minX; x <= maxX; x++ {
			px := float64(x) + 0.5
			w0 := edge(v1.x, v1.y, v2.x, v2.y, px, py) / area
			w1 := edge(v2.x, v2.y, v0.x, v0.y, px, py) / area
			w2 := edge(v0.x, v0.y, v1.x, v1.y, px, py) / area
			if w0 < 0 || w1 < 0 || w2 < 0 {
				continue
			}

			z := w0*v0.z + w1*v1.z + w2*v2.z
			if z < -depthEps || z > 1 {
				continue
			}
			z = max(z, 0)

			// Perspective-correct attribute weights.
			p0, p1, p2 := w0*v0.invW, w1*v1.invW, w2*v2.invW
			sum := p0 + p1 + p2
			p0, p1, p2 = p0/sum, p1/sum, p2/sum

			f.x, f.y, f.depth = x, y, z
			f.world = r3.Add(r3.Add(r3.Scale(p0, v0.world), r3.Scale(p1, v1.world)), r3.Scale(p2, v2.world))
			f.normal = r3.Add(r3.Add(r3.Scale(p0, v0.normal), r3.Scale(p1, v1.normal)), r3.Scale(p2, v2.normal))
			fn(&f)
		}
	}
}
