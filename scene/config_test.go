package scene

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/caustics/config"
)

func TestFromConfig(t *testing.T) {
	cfg := config.SceneConfig{
		Segments: 16,
		Objects: []config.ObjectConfig{
			{Name: "ball", Shape: "sphere", Position: [3]float64{0, 2, 0}, Radius: 1, Tint: [3]float64{1, 0, 0}, Opacity: 0.5},
			{Shape: "box", Position: [3]float64{3, 0.5, 0}, Size: [3]float64{1, 1, 1}, Scale: [3]float64{2, 1, 1}},
		},
		Markers: []config.MarkerConfig{{Name: "sun", Position: [3]float64{4, 9, 1}}},
		Ground:  config.GroundConfig{Height: -0.5, Size: 10, Albedo: [3]float64{0.5, 0.5, 0.5}},
	}

	s, err := FromConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, 2, s.RefractiveCount())

	b := s.Bounds()
	assert.InDelta(t, -1, b.Min.X, 1e-9)
	assert.InDelta(t, 4, b.Max.X, 1e-9)
	assert.InDelta(t, 0, b.Min.Y, 1e-9)
	assert.InDelta(t, 3, b.Max.Y, 1e-9)

	ball, ok := s.Lookup("ball")
	require.True(t, ok)
	assert.Equal(t, r3.Vec{Y: 2}, s.Transform(ball).Position)

	sun, ok := s.Lookup("sun")
	require.True(t, ok)
	assert.Equal(t, r3.Vec{X: 4, Y: 9, Z: 1}, s.Positioner(sun).WorldPosition())

	var tints []Color
	s.EachRefractive(func(o Object, r *Refractive) {
		if o.Entity == ball {
			tints = append(tints, r.Tint)
			assert.Equal(t, ShapeSphere, o.Mesh.Shape.Kind)
			assert.Equal(t, 0.5, r.Opacity)
		}
	})
	assert.Equal(t, []Color{{R: 1}}, tints)

	surfaces := 0
	s.EachSurface(func(o Object, surf *Surface) {
		surfaces++
		assert.Equal(t, -0.5, o.Transform.Position.Y)
		assert.Equal(t, Color{0.5, 0.5, 0.5}, surf.Albedo)
	})
	assert.Equal(t, 1, surfaces)
}

func TestFromConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		obj  config.ObjectConfig
	}{
		{"sphere without radius", config.ObjectConfig{Shape: "sphere"}},
		{"flat box", config.ObjectConfig{Shape: "box", Size: [3]float64{1, 0, 1}}},
		{"unknown", config.ObjectConfig{Shape: "cone"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromConfig(config.SceneConfig{Segments: 8, Objects: []config.ObjectConfig{tt.obj}})
			assert.Error(t, err)
		})
	}
}

func TestEulerDegrees(t *testing.T) {
	tests := []struct {
		name string
		deg  [3]float64
		in   r3.Vec
		want r3.Vec
	}{
		{"identity", [3]float64{}, r3.Vec{X: 1, Y: 2, Z: 3}, r3.Vec{X: 1, Y: 2, Z: 3}},
		{"yaw", [3]float64{0, 90, 0}, r3.Vec{X: 1}, r3.Vec{Z: -1}},
		{"pitch", [3]float64{90, 0, 0}, r3.Vec{Y: 1}, r3.Vec{Z: 1}},
		{"roll", [3]float64{0, 0, 90}, r3.Vec{X: 1}, r3.Vec{Y: 1}},
		// Z is applied first, then Y.
		{"roll then yaw", [3]float64{0, 90, 90}, r3.Vec{X: 1}, r3.Vec{Y: 1}},
		{"yaw then pitch", [3]float64{90, 90, 0}, r3.Vec{X: 1}, r3.Vec{Y: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EulerDegrees(tt.deg).Rotate(tt.in)
			assert.InDelta(t, tt.want.X, got.X, 1e-9)
			assert.InDelta(t, tt.want.Y, got.Y, 1e-9)
			assert.InDelta(t, tt.want.Z, got.Z, 1e-9)
		})
	}
	assert.InDelta(t, 1, math.Abs(quatNorm(EulerDegrees([3]float64{10, 20, 30}))), 1e-12)
}

func quatNorm(r r3.Rotation) float64 {
	return math.Sqrt(r.Real*r.Real + r.Imag*r.Imag + r.Jmag*r.Jmag + r.Kmag*r.Kmag)
}
