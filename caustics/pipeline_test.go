package caustics_test

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/caustics/caustics"
	"github.com/pthm-cable/caustics/lightcam"
	"github.com/pthm-cable/caustics/scene"
	"github.com/pthm-cable/caustics/softrender"
)

const testResolution = 64

func newHost(t *testing.T) *softrender.Host {
	t.Helper()
	host, err := softrender.New(48, 48)
	require.NoError(t, err)
	t.Cleanup(host.Close)
	return host
}

// sphereScene is a unit sphere at the origin above a ground plane at y = -1.
func sphereScene() *scene.Scene {
	s := scene.New()
	s.AddRefractive(scene.NewTransform(r3.Vec{}), scene.NewSphere(1, 32, 48),
		scene.Refractive{Tint: scene.White, Opacity: 0.3})
	s.AddSurface(scene.NewTransform(r3.Vec{Y: -1}), scene.NewPlane(20, 20), scene.Surface{Albedo: scene.White})
	return s
}

func testParams() caustics.Params {
	p := caustics.DefaultParams()
	p.Resolution = testResolution
	p.IOR = 1.5
	return p
}

func newPipeline(t *testing.T, host caustics.Host, scn *scene.Scene, p caustics.Params, opts ...caustics.Option) *caustics.Caustics {
	t.Helper()
	c, err := caustics.New(host, scn, p, opts...)
	require.NoError(t, err)
	t.Cleanup(c.Release)
	return c
}

func buffers(t *testing.T, c *caustics.Caustics) (front, back *softrender.Target) {
	t.Helper()
	f, b := c.Buffers()
	return f.(*softrender.Target), b.(*softrender.Target)
}

func TestSphereFocusesLight(t *testing.T) {
	host := newHost(t)
	p := testParams()
	c := newPipeline(t, host, sphereScene(), p)
	require.NoError(t, c.Update())

	front, _ := buffers(t, c)
	tex := front.Color

	best, bestX, bestY := -1.0, 0, 0
	for y := 0; y < tex.H; y++ {
		for x := 0; x < tex.W; x++ {
			v := float64(tex.At(x, y)[0])
			require.False(t, math.IsNaN(v) || math.IsInf(v, 0), "texel %d,%d = %v", x, y, v)
			require.GreaterOrEqual(t, v, 0.0)
			if v > best {
				best, bestX, bestY = v, x, y
			}
			if x == 0 || y == 0 || x == tex.W-1 || y == tex.H-1 {
				assert.Zero(t, v, "border texel %d,%d", x, y)
			}
		}
	}

	centre := float64(tex.At(tex.W/2, tex.H/2)[0])
	assert.Greater(t, centre, 2*p.Intensity, "light under the sphere centre is focused")

	// The brightest texel lies inside the sphere silhouette.
	silhouette := 1 / c.Camera().HalfExtent() / 2 * float64(tex.W)
	dx := float64(bestX) + 0.5 - float64(tex.W)/2
	dy := float64(bestY) + 0.5 - float64(tex.H)/2
	assert.Less(t, math.Hypot(dx, dy), silhouette)
	assert.Greater(t, best, 2*p.Intensity)
}

func TestReceiverFootprint(t *testing.T) {
	host := newHost(t)
	p := testParams()
	p.GroundHeight = -1
	c := newPipeline(t, host, sphereScene(), p)
	require.NoError(t, c.Update())

	// The shadow of the unit box falls away from the light onto y = -1.
	fp := c.Footprint()
	assert.True(t, geomApprox(r3.Vec{X: -1, Y: -1, Z: -1}, fp.Center), "centre %v", fp.Center)
	assert.InDelta(t, 4*math.Sqrt2, fp.Size, 1e-9)

	tr := c.Receiver()
	assert.InDelta(t, -1+caustics.ReceiverLift, tr.Position.Y, 1e-12)
	assert.Equal(t, fp.Size, tr.Scale.X)
}

func geomApprox(a, b r3.Vec) bool {
	return math.Abs(a.X-b.X) < 1e-9 && math.Abs(a.Y-b.Y) < 1e-9 && math.Abs(a.Z-b.Z) < 1e-9
}

func TestBacksideDisabledLeavesBackBufferEmpty(t *testing.T) {
	host := newHost(t)
	scn := sphereScene()
	c := newPipeline(t, host, scn, testParams())
	require.NoError(t, c.Update())

	_, back := buffers(t, c)
	for _, v := range back.Color.Pix {
		require.Zero(t, v)
	}
	assert.Zero(t, c.Passes()[caustics.StageCaptureBack])
	assert.Zero(t, c.Passes()[caustics.StageEstimateBack])

	view := lightcam.NewOrtho(r3.Vec{Y: 10}, r3.Vec{}, r3.Vec{Z: -1}, 4, 0.1, 30)
	host.SetView(view.ViewProjection)
	require.NoError(t, host.SetRenderTarget(nil))

	require.NoError(t, host.Clear())
	require.NoError(t, c.Draw())
	composite := append([]float32(nil), host.Screen().Color.Pix...)

	frontOnly := c.Projector()
	frontOnly.Back = nil
	require.NoError(t, host.Clear())
	require.NoError(t, host.DrawReceiver(c.Footprint(), frontOnly))

	assert.Equal(t, host.Screen().Color.Pix, composite)
	nonZero := 0
	for _, v := range composite {
		if v > 0 {
			nonZero++
		}
	}
	assert.Positive(t, nonZero, "the composite shows caustics")
}

func TestBacksideCapture(t *testing.T) {
	host := newHost(t)
	p := testParams()
	p.Backside = true
	p.BacksideIOR = 1.2
	c := newPipeline(t, host, sphereScene(), p)
	require.NoError(t, c.Update())

	assert.Equal(t, 1, c.Passes()[caustics.StageCaptureBack])
	assert.Equal(t, 1, c.Passes()[caustics.StageEstimateBack])

	_, back := buffers(t, c)
	sum := 0.0
	for y := 0; y < back.Color.H; y++ {
		for x := 0; x < back.Color.W; x++ {
			sum += float64(back.Color.At(x, y)[0])
		}
	}
	assert.Positive(t, sum)
}

func TestFrameBudget(t *testing.T) {
	host := newHost(t)
	p := testParams()
	p.Frames = 1
	c := newPipeline(t, host, sphereScene(), p)

	mode, remaining := c.Mode()
	assert.Equal(t, caustics.Budgeted, mode)
	assert.Equal(t, 1, remaining)

	for i := 0; i < 10; i++ {
		require.NoError(t, c.Update())
	}
	assert.Equal(t, 1, c.Passes().Captures())
	assert.Equal(t, 1, c.Passes()[caustics.StageEstimateFront])
	assert.Equal(t, 1, host.Calls().FullScreen)
	assert.Equal(t, 10, c.Passes()[caustics.StageComposite])
	mode, _ = c.Mode()
	assert.Equal(t, caustics.Frozen, mode)
	assert.Equal(t, caustics.StageIdle, c.Stage())

	c.Invalidate()
	require.NoError(t, c.Update())
	assert.Equal(t, 2, c.Passes().Captures())

	p.Frames = 3
	require.NoError(t, c.SetParams(p))
	for i := 0; i < 5; i++ {
		require.NoError(t, c.Update())
	}
	assert.Equal(t, 5, c.Passes().Captures())

	p.Frames = caustics.ContinuousFrames
	require.NoError(t, c.SetParams(p))
	for i := 0; i < 4; i++ {
		require.NoError(t, c.Update())
	}
	assert.Equal(t, 9, c.Passes().Captures())
	mode, _ = c.Mode()
	assert.Equal(t, caustics.Continuous, mode)
}

func TestTrackedLightFollowsObject(t *testing.T) {
	host := newHost(t)
	scn := sphereScene()
	sun := scn.AddMarker(scene.NewTransform(r3.Vec{X: 5, Y: 5}))
	scn.SetName(sun, "sun")

	p := testParams()
	p.Frames = caustics.ContinuousFrames
	p.Light = lightcam.TrackedLight(scn.Positioner(sun))
	c := newPipeline(t, host, scn, p)

	require.NoError(t, c.Update())
	first := c.Camera().Forward()
	assert.InDelta(t, -1/math.Sqrt2, first.X, 1e-9)

	scn.Transform(sun).Position = r3.Vec{Z: 5, Y: 5}
	require.NoError(t, c.Update())
	second := c.Camera().Forward()
	assert.InDelta(t, -1/math.Sqrt2, second.Z, 1e-9)
	assert.InDelta(t, 0, second.X, 1e-9)

	// A light on top of the origin keeps the previous direction.
	scn.Transform(sun).Position = r3.Vec{}
	require.NoError(t, c.Update())
	assert.InDelta(t, -1/math.Sqrt2, c.Camera().Forward().Z, 1e-9)
}

type recordingTimer struct {
	phases []string
}

func (r *recordingTimer) StartPhase(phase string) { r.phases = append(r.phases, phase) }

func TestStageOrder(t *testing.T) {
	host := newHost(t)
	timer := &recordingTimer{}
	p := testParams()
	p.Frames = 2
	p.Backside = true
	c := newPipeline(t, host, sphereScene(), p, caustics.WithPhaseTimer(timer))

	require.NoError(t, c.Update())
	assert.Equal(t, []string{
		"fit_camera", "capture_front", "capture_back",
		"estimate_front", "estimate_back", "composite",
	}, timer.phases)

	timer.phases = nil
	p.Backside = false
	require.NoError(t, c.SetParams(p))
	require.NoError(t, c.Update())
	require.NoError(t, c.Update())
	require.NoError(t, c.Update())
	assert.Equal(t, []string{
		"fit_camera", "capture_front", "estimate_front", "composite",
		"fit_camera", "capture_front", "estimate_front", "composite",
		"composite",
	}, timer.phases)
}

// failingHost fails the estimator pass.
type failingHost struct {
	*softrender.Host
	err error
}

func (h failingHost) DrawFullScreen(caustics.EstimatorPass) error { return h.err }

func TestRenderTargetRestored(t *testing.T) {
	host := newHost(t)
	main, err := host.CreateTarget(caustics.TargetOptions{Width: 8, Height: 8, Depth: true})
	require.NoError(t, err)

	t.Run("after success", func(t *testing.T) {
		c := newPipeline(t, host, sphereScene(), testParams())
		require.NoError(t, host.SetRenderTarget(main))
		require.NoError(t, c.Update())
		assert.Equal(t, main, host.RenderTarget())
	})

	t.Run("after a failed pass", func(t *testing.T) {
		errBoom := errors.New("boom")
		fh := failingHost{Host: host, err: errBoom}
		scn := sphereScene()
		c := newPipeline(t, fh, scn, testParams())

		require.NoError(t, host.SetRenderTarget(main))
		err := c.Update()
		require.ErrorIs(t, err, errBoom)
		assert.Contains(t, err.Error(), "estimating front caustics")
		assert.Equal(t, main, host.RenderTarget())
		assert.Nil(t, scn.Override())
		assert.False(t, c.Baked())

		// A failed bake does not consume the budget.
		mode, remaining := c.Mode()
		assert.Equal(t, caustics.Budgeted, mode)
		assert.Equal(t, 1, remaining)
	})

	t.Run("with an empty scene", func(t *testing.T) {
		c := newPipeline(t, host, scene.New(), testParams())
		require.NoError(t, host.SetRenderTarget(nil))
		require.NoError(t, c.Update())
		assert.Nil(t, host.RenderTarget())

		front, _ := buffers(t, c)
		for _, v := range front.Color.Channel(0) {
			require.Zero(t, v)
		}
	})
}

func TestParamsLifecycle(t *testing.T) {
	host := newHost(t)

	bad := testParams()
	bad.IOR = 0
	_, err := caustics.New(host, sphereScene(), bad)
	assert.ErrorIs(t, err, caustics.ErrInvalidParams)
	assert.Zero(t, host.LiveTargets())

	p := testParams()
	c, err := caustics.New(host, sphereScene(), p)
	require.NoError(t, err)
	assert.Equal(t, 4, host.LiveTargets())
	frontBefore, _ := c.Buffers()

	require.ErrorIs(t, c.SetParams(bad), caustics.ErrInvalidParams)
	assert.Equal(t, 1.5, c.Params().IOR)

	p.Intensity = 0.2
	require.NoError(t, c.SetParams(p))
	frontSame, _ := c.Buffers()
	assert.Same(t, frontBefore, frontSame, "same resolution keeps the buffers")

	p.Resolution = 32
	require.NoError(t, c.SetParams(p))
	frontNew, _ := c.Buffers()
	assert.NotSame(t, frontBefore, frontNew)
	w, h := frontNew.Size()
	assert.Equal(t, []int{32, 32}, []int{w, h})
	assert.Equal(t, 4, host.LiveTargets())

	c.Release()
	assert.Zero(t, host.LiveTargets())
	assert.ErrorIs(t, c.Update(), caustics.ErrReleased)
	assert.ErrorIs(t, c.Draw(), caustics.ErrReleased)
	assert.ErrorIs(t, c.SetParams(p), caustics.ErrReleased)
}

// limitedHost fails every CreateTarget once its allowance runs out. A
// negative allowance never fails.
type limitedHost struct {
	*softrender.Host
	allowance *int
}

var errOutOfMemory = errors.New("out of texture memory")

func (h limitedHost) CreateTarget(opts caustics.TargetOptions) (caustics.Target, error) {
	if *h.allowance == 0 {
		return nil, errOutOfMemory
	}
	*h.allowance--
	return h.Host.CreateTarget(opts)
}

func TestFailedResizeKeepsBuffers(t *testing.T) {
	fill := softrender.RGBA{0.25, 0.5, 0.75, 1}

	tests := []struct {
		name       string
		resolution int
		allowance  int
		wantErr    error
	}{
		{"oversized", softrender.MaxTargetSize + 1, -1, softrender.ErrTargetSize},
		{"allocation fails midway", 32, 2, errOutOfMemory},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			host := newHost(t)
			allowance := -1
			lh := limitedHost{Host: host, allowance: &allowance}
			c := newPipeline(t, lh, sphereScene(), testParams())

			require.NoError(t, host.SetRenderTarget(nil))
			require.NoError(t, c.Update())
			frontBefore, backBefore := c.Buffers()
			host.Screen().Color.Fill(fill)

			allowance = tt.allowance
			p := testParams()
			p.Resolution = tt.resolution
			require.ErrorIs(t, c.SetParams(p), tt.wantErr)

			assert.Equal(t, testResolution, c.Params().Resolution)
			front, back := c.Buffers()
			assert.Same(t, frontBefore, front)
			assert.Same(t, backBefore, back)
			assert.Equal(t, 4, host.LiveTargets(), "partial allocations are released")

			c.Invalidate()
			require.NoError(t, c.Update())
			assert.Nil(t, host.RenderTarget())
			for _, v := range host.Screen().Color.Channel(0) {
				require.Equal(t, 0.25, v, "the default framebuffer is untouched")
			}
			f, _ := buffers(t, c)
			assert.Greater(t, floats.Max(f.Color.Channel(0)), 0.0)
		})
	}
}

func TestDebugFrustumAndCausticsOnly(t *testing.T) {
	host := newHost(t)
	p := testParams()
	c := newPipeline(t, host, sphereScene(), p)
	require.NoError(t, c.Update())
	_, ok := c.FrustumLines()
	assert.False(t, ok)
	assert.True(t, c.DrawRefractive())

	p.Debug = true
	p.CausticsOnly = true
	require.NoError(t, c.SetParams(p))
	require.NoError(t, c.Update())
	lines, ok := c.FrustumLines()
	assert.True(t, ok)
	assert.Equal(t, c.Camera().FrustumLines(), lines)
	assert.False(t, c.DrawRefractive())
}
