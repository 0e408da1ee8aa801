package caustics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/caustics/config"
	"github.com/pthm-cable/caustics/lightcam"
	"github.com/pthm-cable/caustics/scene"
)

func TestDefaultParamsValid(t *testing.T) {
	p := DefaultParams()
	require.NoError(t, p.Validate())
	assert.Equal(t, 1, p.Frames)
	assert.Equal(t, 2048, p.Resolution)
	assert.False(t, p.Backside)
	assert.False(t, p.Light.IsTracked())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Params)
		ok     bool
	}{
		{"defaults", func(*Params) {}, true},
		{"continuous", func(p *Params) { p.Frames = ContinuousFrames }, true},
		{"zero intensity", func(p *Params) { p.Intensity = 0 }, true},
		{"zero ray offset", func(p *Params) { p.RayOffset = 0 }, true},
		{"tracked light", func(p *Params) {
			p.Light = lightcam.TrackedLight(lightcam.FixedPosition{})
		}, true},
		{"zero resolution", func(p *Params) { p.Resolution = 0 }, false},
		{"negative resolution", func(p *Params) { p.Resolution = -4 }, false},
		{"zero ior", func(p *Params) { p.IOR = 0 }, false},
		{"nan ior", func(p *Params) { p.IOR = math.NaN() }, false},
		{"negative backside ior", func(p *Params) { p.BacksideIOR = -1.5 }, false},
		{"zero world radius", func(p *Params) { p.WorldRadius = 0 }, false},
		{"negative intensity", func(p *Params) { p.Intensity = -1 }, false},
		{"infinite intensity", func(p *Params) { p.Intensity = math.Inf(1) }, false},
		{"zero frames", func(p *Params) { p.Frames = 0 }, false},
		{"frames below continuous", func(p *Params) { p.Frames = -2 }, false},
		{"zero near plane", func(p *Params) { p.NearPlane = 0 }, false},
		{"negative ray offset", func(p *Params) { p.RayOffset = -0.1 }, false},
		{"zero light", func(p *Params) { p.Light = lightcam.StaticLight(r3.Vec{}) }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParams()
			tt.mutate(&p)
			err := p.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidParams)
			}
		})
	}
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	return cfg
}

func TestParamsFromConfig(t *testing.T) {
	cfg := testConfig(t)
	scn, err := scene.FromConfig(cfg.Scene)
	require.NoError(t, err)

	cfg.Caustics.Frames = -1
	cfg.Caustics.Backside = true
	cfg.Caustics.Color = [3]float64{1, 0.5, 0.25}
	p, err := ParamsFromConfig(cfg.Caustics, -0.5, scn)
	require.NoError(t, err)

	assert.Equal(t, ContinuousFrames, p.Frames)
	assert.True(t, p.Backside)
	assert.Equal(t, 1024, p.Resolution)
	assert.Equal(t, scene.Color{R: 1, G: 0.5, B: 0.25}, p.Color)
	assert.Equal(t, -0.5, p.GroundHeight)
	assert.False(t, p.Light.IsTracked())
	dir, ok := p.Light.ToLight(r3.Vec{})
	require.True(t, ok)
	assert.InDelta(t, 1/math.Sqrt(3), dir.X, 1e-12)

	t.Run("tracked", func(t *testing.T) {
		cfg.Caustics.TrackLight = "sun"
		p, err := ParamsFromConfig(cfg.Caustics, 0, scn)
		require.NoError(t, err)
		require.True(t, p.Light.IsTracked())
		assert.Equal(t, r3.Vec{X: 5, Y: 8, Z: 3}, p.Light.Object.WorldPosition())

		sun, _ := scn.Lookup("sun")
		scn.Transform(sun).Position = r3.Vec{Y: 2}
		assert.Equal(t, r3.Vec{Y: 2}, p.Light.Object.WorldPosition())
	})

	t.Run("unknown tracked light", func(t *testing.T) {
		cfg.Caustics.TrackLight = "moon"
		_, err := ParamsFromConfig(cfg.Caustics, 0, scn)
		assert.ErrorIs(t, err, ErrInvalidParams)
	})

	t.Run("invalid", func(t *testing.T) {
		cfg.Caustics.TrackLight = ""
		cfg.Caustics.IOR = 0
		_, err := ParamsFromConfig(cfg.Caustics, 0, scn)
		assert.ErrorIs(t, err, ErrInvalidParams)
	})
}

func TestBudget(t *testing.T) {
	t.Run("continuous never freezes", func(t *testing.T) {
		b := newBudget(ContinuousFrames)
		for range 5 {
			require.True(t, b.due())
			assert.False(t, b.consume())
		}
		assert.Equal(t, Continuous, b.mode)
	})

	t.Run("budgeted counts down", func(t *testing.T) {
		b := newBudget(3)
		assert.Equal(t, Budgeted, b.mode)
		assert.False(t, b.consume())
		assert.False(t, b.consume())
		assert.Equal(t, 1, b.remaining)
		assert.True(t, b.consume())
		assert.Equal(t, Frozen, b.mode)
		assert.False(t, b.due())
		assert.False(t, b.consume())
		assert.Equal(t, 0, b.remaining)
	})
}

func TestStageNames(t *testing.T) {
	assert.Equal(t, "capture_front", StageCaptureFront.String())
	assert.Equal(t, "composite", StageComposite.String())
	assert.Equal(t, "unknown", Stage(200).String())
	assert.Equal(t, "frozen", Frozen.String())

	var p Passes
	p[StageCaptureFront] = 3
	assert.Equal(t, 3, p.Captures())
}

func TestReceiverTransform(t *testing.T) {
	fp := lightcam.Footprint{Center: r3.Vec{X: 1, Y: -2, Z: 3}, Size: 6}
	tr := ReceiverTransform(fp)
	assert.Equal(t, r3.Vec{X: 6, Y: 1, Z: 6}, tr.Scale)
	assert.InDelta(t, -2+ReceiverLift, tr.Position.Y, 1e-15)
	assert.Equal(t, 1.0, tr.Position.X)
}
