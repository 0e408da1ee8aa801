package softrender

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/caustics/geom"
	"github.com/pthm-cable/caustics/scene"
)

// ambient is the unlit share of view shading.
const ambient = 0.25

func (h *Host) lambert(c scene.Color, normal r3.Vec, front bool) RGBA {
	n := geom.Normalize(normal)
	if !front {
		n = r3.Scale(-1, n)
	}
	k := float32(ambient + (1-ambient)*math.Max(0, r3.Dot(n, h.toLight)))
	return RGBA{float32(c.R) * k, float32(c.G) * k, float32(c.B) * k, 1}
}

func (h *Host) viewRasterizer(t *Target) rasterizer {
	w, ht := t.Size()
	return rasterizer{width: w, height: ht, viewProj: h.viewProj}
}

// RenderSurfaces draws the receiver surfaces of scn from the view camera
// into the bound target, with depth.
func (h *Host) RenderSurfaces(scn *scene.Scene) {
	t := h.current()
	r := h.viewRasterizer(t)
	scn.EachSurface(func(o scene.Object, s *scene.Surface) {
		if o.Mesh == nil {
			return
		}
		r.mesh(*o.Transform, o.Mesh, scene.FrontSide, func(f *fragment) {
			if depthTest(t, f, true) {
				t.store(f.x, f.y, h.lambert(s.Albedo, f.normal, f.front))
			}
		})
	})
}

// RenderRefractive draws the refractive objects from the view camera with
// their tint and opacity, alpha blended over the bound target.
func (h *Host) RenderRefractive(scn *scene.Scene) {
	t := h.current()
	h.drawRefractive(t, h.viewRasterizer(t), scn)
}

func (h *Host) drawRefractive(t *Target, r rasterizer, scn *scene.Scene) {
	scn.EachRefractive(func(o scene.Object, ref *scene.Refractive) {
		if o.Mesh == nil {
			return
		}
		alpha := float32(ref.Opacity)
		r.mesh(*o.Transform, o.Mesh, scene.FrontSide, func(f *fragment) {
			if !depthTest(t, f, false) {
				return
			}
			src := h.lambert(ref.Tint, f.normal, f.front)
			src[3] = alpha
			dst := t.Color.At(f.x, f.y)
			var out RGBA
			for i := range out {
				out[i] = src[i]*alpha + dst[i]*(1-alpha)
			}
			t.store(f.x, f.y, out)
		})
	})
}
