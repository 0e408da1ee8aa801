package scene

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/caustics/config"
)

// FromConfig builds the demo scene: refractive objects, named markers and
// the ground surface. Origin is left at the world origin.
func FromConfig(cfg config.SceneConfig) (*Scene, error) {
	s := New()
	rings := max(2, cfg.Segments/2)

	for i, obj := range cfg.Objects {
		var mesh *Mesh
		switch obj.Shape {
		case "sphere":
			if !(obj.Radius > 0) {
				return nil, fmt.Errorf("scene object %d: sphere radius %v must be positive", i, obj.Radius)
			}
			mesh = NewSphere(obj.Radius, rings, cfg.Segments)
		case "box":
			size := vec(obj.Size)
			if !(size.X > 0 && size.Y > 0 && size.Z > 0) {
				return nil, fmt.Errorf("scene object %d: box size %v must be positive", i, obj.Size)
			}
			mesh = NewBox(size)
		default:
			return nil, fmt.Errorf("scene object %d: unknown shape %q", i, obj.Shape)
		}

		t := Transform{
			Position: vec(obj.Position),
			Rotation: EulerDegrees(obj.Rotation),
			Scale:    vec(obj.Scale),
		}
		r := Refractive{
			Tint:    Color{R: obj.Tint[0], G: obj.Tint[1], B: obj.Tint[2]},
			Opacity: obj.Opacity,
		}
		e := s.AddRefractive(t, mesh, r)
		if obj.Name != "" {
			s.SetName(e, obj.Name)
		}
	}

	for _, m := range cfg.Markers {
		e := s.AddMarker(NewTransform(vec(m.Position)))
		s.SetName(e, m.Name)
	}

	if cfg.Ground.Size > 0 {
		g := cfg.Ground
		s.AddSurface(
			NewTransform(r3.Vec{Y: g.Height}),
			NewPlane(g.Size, g.Size),
			Surface{Albedo: Color{R: g.Albedo[0], G: g.Albedo[1], B: g.Albedo[2]}},
		)
	}
	return s, nil
}

// EulerDegrees converts XYZ Euler angles in degrees to a rotation. The X
// rotation is applied last, matching an R = Rx*Ry*Rz matrix.
func EulerDegrees(deg [3]float64) r3.Rotation {
	rad := func(d float64) float64 { return d * math.Pi / 180 }
	qx := quat.Number(r3.NewRotation(rad(deg[0]), r3.Vec{X: 1}))
	qy := quat.Number(r3.NewRotation(rad(deg[1]), r3.Vec{Y: 1}))
	qz := quat.Number(r3.NewRotation(rad(deg[2]), r3.Vec{Z: 1}))
	return r3.Rotation(quat.Mul(qx, quat.Mul(qy, qz)))
}

func vec(a [3]float64) r3.Vec {
	return r3.Vec{X: a[0], Y: a[1], Z: a[2]}
}
