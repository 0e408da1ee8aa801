package scene

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/caustics/geom"
)

type testMaterial Side

func (m testMaterial) FaceSide() Side { return Side(m) }

// faceNormal returns the winding normal of triangle i.
func faceNormal(m *Mesh, i int) r3.Vec {
	a, b, c := m.Triangle(i)
	e1 := r3.Sub(m.Positions[b], m.Positions[a])
	e2 := r3.Sub(m.Positions[c], m.Positions[a])
	return r3.Cross(e1, e2)
}

func TestMeshWindingFacesOutward(t *testing.T) {
	tests := []struct {
		name string
		mesh *Mesh
	}{
		{"sphere", NewSphere(1, 8, 12)},
		{"box", NewBox(r3.Vec{X: 1, Y: 2, Z: 3})},
		{"plane", NewPlane(4, 2)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.NotZero(t, tc.mesh.Triangles())
			for i := 0; i < tc.mesh.Triangles(); i++ {
				a, b, c := tc.mesh.Triangle(i)
				n := faceNormal(tc.mesh, i)
				require.Greater(t, r3.Norm(n), 0.0, "degenerate triangle %d", i)
				vn := r3.Add(r3.Add(tc.mesh.Normals[a], tc.mesh.Normals[b]), tc.mesh.Normals[c])
				assert.Greater(t, r3.Dot(n, vn), 0.0, "triangle %d winds inward", i)
			}
		})
	}
}

func TestSphereVertices(t *testing.T) {
	m := NewSphere(2, 6, 8)
	assert.Equal(t, ShapeSphere, m.Shape.Kind)
	assert.Len(t, m.Positions, 7*9)
	for i, p := range m.Positions {
		assert.InDelta(t, 2, r3.Norm(p), 1e-12)
		assert.InDelta(t, 1, r3.Norm(m.Normals[i]), 1e-12)
	}
	// Each pole row contributes one triangle per segment, the rest two.
	assert.Equal(t, 8*(2*6-2), m.Triangles())
}

func TestMeshBounds(t *testing.T) {
	m := NewBox(r3.Vec{X: 2, Y: 4, Z: 6})
	b := m.Bounds(geom.Translation(r3.Vec{X: 1}))
	assert.Equal(t, r3.Vec{X: 0, Y: -2, Z: -3}, b.Min)
	assert.Equal(t, r3.Vec{X: 2, Y: 2, Z: 3}, b.Max)
}

func TestSceneBounds(t *testing.T) {
	s := New()
	assert.True(t, s.Bounds().IsEmpty())

	s.AddRefractive(NewTransform(r3.Vec{}), NewBox(r3.Vec{X: 2, Y: 2, Z: 2}), Refractive{})
	tr := NewTransform(r3.Vec{X: 5, Y: 1})
	tr.Scale = r3.Vec{X: 2, Y: 2, Z: 2}
	s.AddRefractive(tr, NewBox(r3.Vec{X: 1, Y: 1, Z: 1}), Refractive{})

	// Surfaces never contribute to the refractive bounds.
	s.AddSurface(NewTransform(r3.Vec{Y: -10}), NewPlane(100, 100), Surface{Albedo: White})

	b := s.Bounds()
	assert.InDelta(t, -1, b.Min.X, 1e-12)
	assert.InDelta(t, -1, b.Min.Y, 1e-12)
	assert.InDelta(t, 6, b.Max.X, 1e-12)
	assert.InDelta(t, 2, b.Max.Y, 1e-12)
	assert.Equal(t, 2, s.RefractiveCount())

	surfaces := 0
	s.EachSurface(func(o Object, surf *Surface) {
		surfaces++
		assert.Equal(t, ShapePlane, o.Mesh.Shape.Kind)
		assert.Equal(t, White, surf.Albedo)
	})
	assert.Equal(t, 1, surfaces)
}

func TestSceneTransformAndRemove(t *testing.T) {
	s := New()
	e := s.AddRefractive(NewTransform(r3.Vec{}), NewSphere(1, 8, 8), Refractive{})
	s.Transform(e).Position = r3.Vec{Y: 3}
	assert.InDelta(t, 4, s.Bounds().Max.Y, 1e-12)

	s.Remove(e)
	assert.Equal(t, 0, s.RefractiveCount())
	assert.True(t, s.Bounds().IsEmpty())
}

func TestNormalMatrix(t *testing.T) {
	tr := NewTransform(r3.Vec{X: 3})
	tr.Scale = r3.Vec{X: 2, Y: 1, Z: 1}
	// A slanted normal of a surface stretched along X tilts toward the stretch axis normal.
	n := tr.NormalMatrix().TransformDirection(r3.Vec{X: 1, Y: 1})
	assert.InDelta(t, 0.5, n.X, 1e-12)
	assert.InDelta(t, 1, n.Y, 1e-12)

	// Rotation by 90 degrees around Y carries +X to -Z.
	tr = NewTransform(r3.Vec{})
	tr.Rotation = r3.NewRotation(math.Pi/2, r3.Vec{Y: 1})
	n = tr.NormalMatrix().TransformDirection(r3.Vec{X: 1})
	assert.True(t, geom.ApproxEqual(r3.Vec{Z: -1}, n, 1e-12), "got %v", n)
}

func TestWithOverrideRestores(t *testing.T) {
	s := New()
	outer := testMaterial(DoubleSide)
	require.NoError(t, s.WithOverride(outer, func() error {
		assert.Equal(t, outer, s.Override())

		errBoom := errors.New("boom")
		err := s.WithOverride(testMaterial(FrontSide), func() error {
			assert.Equal(t, FrontSide, s.Override().FaceSide())
			return errBoom
		})
		assert.ErrorIs(t, err, errBoom)
		assert.Equal(t, outer, s.Override())
		return nil
	}))
	assert.Nil(t, s.Override())

	assert.Panics(t, func() {
		_ = s.WithOverride(testMaterial(BackSide), func() error { panic("capture failed") })
	})
	assert.Nil(t, s.Override())
}

func TestNamesAndPositioner(t *testing.T) {
	s := New()
	sun := s.AddMarker(NewTransform(r3.Vec{X: 1, Y: 8}))
	s.SetName(sun, "sun")

	e, ok := s.Lookup("sun")
	require.True(t, ok)
	pos := s.Positioner(e)
	assert.Equal(t, r3.Vec{X: 1, Y: 8}, pos.WorldPosition())

	s.Transform(sun).Position = r3.Vec{Y: 3}
	assert.Equal(t, r3.Vec{Y: 3}, pos.WorldPosition())

	// Markers are not part of the refractive set.
	assert.True(t, s.Bounds().IsEmpty())

	s.Remove(sun)
	_, ok = s.Lookup("sun")
	assert.False(t, ok)
	assert.Equal(t, r3.Vec{}, pos.WorldPosition())
}
