package softrender

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/caustics/caustics"
	"github.com/pthm-cable/caustics/estimator"
	"github.com/pthm-cable/caustics/lightcam"
	"github.com/pthm-cable/caustics/scene"
)

func newTestHost(t *testing.T, w, h int) *Host {
	t.Helper()
	host, err := New(w, h, WithWorkers(4))
	require.NoError(t, err)
	t.Cleanup(host.Close)
	return host
}

func createTarget(t *testing.T, h *Host, opts caustics.TargetOptions) *Target {
	t.Helper()
	target, err := h.CreateTarget(opts)
	require.NoError(t, err)
	return target.(*Target)
}

// boxScene holds a 2x2x2 box floating above the ground.
func boxScene() *scene.Scene {
	s := scene.New()
	s.AddRefractive(scene.NewTransform(r3.Vec{Y: 1.5}), scene.NewBox(r3.Vec{X: 2, Y: 2, Z: 2}), scene.Refractive{})
	return s
}

func TestCaptureFrontAndBack(t *testing.T) {
	host := newTestHost(t, 8, 8)
	scn := boxScene()
	cam := lightcam.Fit(scn.Bounds(), r3.Vec{Y: 1}, lightcam.Options{})
	opts := caustics.TargetOptions{Width: 32, Height: 32, Depth: true, Format: caustics.FormatFloat}

	capture := func(m caustics.CaptureMaterial) *Target {
		target := createTarget(t, host, opts)
		require.NoError(t, host.SetRenderTarget(target))
		require.NoError(t, host.Clear())
		require.NoError(t, scn.WithOverride(m, func() error { return host.RenderScene(scn, cam) }))
		return target
	}
	up := RGBA{0.5, 1, 0.5, 1}

	front := capture(caustics.FrontNormals)
	assert.InDeltaSlice(t, up[:], sliceOf(front.Color.At(16, 16)), 1e-6)
	assert.InDelta(t, 0, front.Depth[16*32+16], 1e-6)

	// Outside the box silhouette nothing is written.
	assert.Equal(t, RGBA{}, front.Color.At(0, 0))
	assert.Equal(t, float32(1), front.Depth[0])

	// The bottom face is back facing; its normal is flipped toward the camera.
	back := capture(caustics.BackNormals)
	assert.InDeltaSlice(t, up[:], sliceOf(back.Color.At(16, 16)), 1e-6)
	assert.InDelta(t, (2.1-0.1)/(cam.Far-0.1), back.Depth[16*32+16], 1e-6)

	assert.Nil(t, scn.Override())
	assert.Equal(t, 2, host.Calls().SceneRender)
}

func sliceOf(c RGBA) []float32 { return c[:] }

func TestDrawFullScreenFlatCapture(t *testing.T) {
	host := newTestHost(t, 8, 8)
	cam := lightcam.NewOrtho(r3.Vec{Y: 10}, r3.Vec{}, r3.Vec{Z: -1}, 2, 0.1, 20)

	capture := createTarget(t, host, caustics.TargetOptions{Width: 64, Height: 64, Depth: true})
	capture.Color.Fill(RGBA{0.5, 1, 0.5, 1})
	for i := range capture.Depth {
		capture.Depth[i] = 0.5
	}
	// A background hole in one corner.
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			capture.Depth[y*64+x] = 1
		}
	}

	out := createTarget(t, host, caustics.TargetOptions{Width: 64, Height: 64, Format: caustics.FormatFloat, Mipmaps: true})
	require.NoError(t, host.SetRenderTarget(out))

	u := estimator.FromCamera(cam)
	u.Resolution = 64
	u.WorldRadius = 0.1
	u.Intensity = 0.05
	u.IOR = 1.5
	require.NoError(t, host.DrawFullScreen(caustics.EstimatorPass{Capture: capture, Uniforms: u}))
	require.NoError(t, host.GenerateMipmaps(out))

	assert.InDelta(t, 0.05, out.Color.At(32, 32)[0], 1e-6)
	assert.InDelta(t, 0.05, out.Color.At(63, 63)[0], 1e-6)
	assert.Zero(t, out.Color.At(2, 2)[0])
	assert.Equal(t, 7, out.Color.Levels())
	assert.Equal(t, 1, host.Calls().Mipmaps)
}

func TestDrawReceiverBlendsAdditively(t *testing.T) {
	host := newTestHost(t, 32, 32)
	cam := lightcam.NewOrtho(r3.Vec{Y: 10}, r3.Vec{}, r3.Vec{Z: -1}, 2, 0.1, 20)
	host.SetView(cam.ViewProjection)

	texOpts := caustics.TargetOptions{Width: 16, Height: 16, Filter: caustics.FilterLinear, Format: caustics.FormatFloat, Mipmaps: true}
	front := createTarget(t, host, texOpts)
	back := createTarget(t, host, texOpts)
	front.Color.Fill(RGBA{0.25, 0.25, 0.25, 1})
	back.Color.Fill(RGBA{0.5, 0.5, 0.5, 1})
	require.NoError(t, host.GenerateMipmaps(front))
	require.NoError(t, host.GenerateMipmaps(back))

	require.NoError(t, host.SetRenderTarget(nil))
	require.NoError(t, host.Clear())
	host.Screen().Color.Set(16, 16, RGBA{0.1, 0.1, 0.1, 1})

	u := caustics.ProjectorUniforms{
		LightViewProjection: cam.ViewProjection,
		Front:               front,
		Back:                back,
		Color:               scene.Color{R: 1, G: 0.5, B: 0},
		SrcFactor:           caustics.BlendOne,
		DstFactor:           caustics.BlendSrcAlpha,
	}
	require.NoError(t, host.DrawReceiver(lightcam.Footprint{Size: 2}, u))

	screen := host.Screen()
	assert.InDeltaSlice(t, []float32{0.85, 0.475, 0.1}, sliceOf(screen.Color.At(16, 16))[:3], 1e-6)
	assert.InDeltaSlice(t, []float32{0.75, 0.375, 0}, sliceOf(screen.Color.At(12, 20))[:3], 1e-6)
	assert.Equal(t, RGBA{}, screen.Color.At(0, 0))
	assert.Equal(t, float32(1), screen.Depth[16*32+16], "receiver must not write depth")

	t.Run("back buffer optional", func(t *testing.T) {
		require.NoError(t, host.Clear())
		u.Back = nil
		require.NoError(t, host.DrawReceiver(lightcam.Footprint{Size: 2}, u))
		assert.InDelta(t, 0.25, screen.Color.At(16, 16)[0], 1e-6)
	})
}

func TestBlend(t *testing.T) {
	src := RGBA{1, 0, 0, 0.5}
	dst := RGBA{0.2, 0.4, 0.6, 1}
	assert.InDeltaSlice(t, []float32{1.1, 0.2, 0.3, 1}, sliceOf(blend(src, dst, caustics.BlendOne, caustics.BlendSrcAlpha)), 1e-6)
	assert.InDeltaSlice(t, []float32{0.6, 0.2, 0.3, 0.75}, sliceOf(blend(src, dst, caustics.BlendSrcAlpha, caustics.BlendOneMinusSrcAlpha)), 1e-6)
	assert.Equal(t, dst, blend(src, dst, caustics.BlendZero, caustics.BlendOne))
}

func TestTargets(t *testing.T) {
	_, err := New(0, 10)
	assert.ErrorIs(t, err, ErrTargetSize)

	host := newTestHost(t, 4, 4)
	_, err = host.CreateTarget(caustics.TargetOptions{Width: 0, Height: 4})
	assert.ErrorIs(t, err, ErrTargetSize)
	_, err = host.CreateTarget(caustics.TargetOptions{Width: 4, Height: MaxTargetSize + 1})
	assert.ErrorIs(t, err, ErrTargetSize)

	assert.Nil(t, host.RenderTarget())
	a := createTarget(t, host, caustics.TargetOptions{Width: 2, Height: 2})
	assert.Equal(t, 1, host.LiveTargets())
	require.NoError(t, host.SetRenderTarget(a))
	assert.Equal(t, caustics.Target(a), host.RenderTarget())

	host.ReleaseTarget(a)
	assert.Equal(t, 0, host.LiveTargets())
	assert.Nil(t, host.RenderTarget(), "releasing the bound target falls back to the screen")
	assert.ErrorIs(t, host.SetRenderTarget(a), ErrForeignTarget)
	host.ReleaseTarget(a)
	assert.Equal(t, 0, host.LiveTargets())

	rgba8 := createTarget(t, host, caustics.TargetOptions{Width: 1, Height: 1, Format: caustics.FormatRGBA8})
	rgba8.store(0, 0, RGBA{0.5, 2, -1, 1})
	assert.InDeltaSlice(t, []float32{128.0 / 255, 1, 0, 1}, sliceOf(rgba8.Color.At(0, 0)), 1e-6)
	assert.Equal(t, 1.0, rgba8.SampleDepth(r2.Vec{}))

	g, err := host.Channel(rgba8, 1)
	require.NoError(t, err)
	assert.Equal(t, []float64{1}, g)
	_, err = host.Channel(a, 0)
	assert.ErrorIs(t, err, ErrForeignTarget)
}

func TestRenderViewShading(t *testing.T) {
	host := newTestHost(t, 16, 16)
	cam := lightcam.NewOrtho(r3.Vec{Y: 10}, r3.Vec{}, r3.Vec{Z: -1}, 2, 0.1, 20)
	host.SetView(cam.ViewProjection)
	host.SetLight(r3.Vec{Y: 1})

	scn := scene.New()
	scn.AddSurface(scene.NewTransform(r3.Vec{}), scene.NewPlane(10, 10), scene.Surface{Albedo: scene.Color{R: 0.5, G: 0.5, B: 0.5}})
	scn.AddRefractive(scene.NewTransform(r3.Vec{Y: 1}), scene.NewBox(r3.Vec{X: 1, Y: 1, Z: 1}),
		scene.Refractive{Tint: scene.Color{R: 0, G: 0, B: 1}, Opacity: 0.5})

	require.NoError(t, host.Clear())
	host.RenderSurfaces(scn)
	assert.InDelta(t, 0.5, host.Screen().Color.At(0, 0)[0], 1e-6)

	host.RenderRefractive(scn)
	c := host.Screen().Color.At(8, 8)
	assert.InDelta(t, 0.25, c[0], 1e-6)
	assert.InDelta(t, 0.75, c[2], 1e-6)
}
