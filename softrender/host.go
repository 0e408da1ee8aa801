// Package softrender is a software implementation of caustics.Host. It
// rasterizes the capture passes, runs the estimator kernel per texel on a
// worker pool and composites the receiver with fixed-function blending, so
// the pipeline can run headless and in tests.
package softrender

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/caustics/caustics"
	"github.com/pthm-cable/caustics/estimator"
	"github.com/pthm-cable/caustics/geom"
	"github.com/pthm-cable/caustics/lightcam"
	"github.com/pthm-cable/caustics/scene"
)

// MaxTargetSize bounds both dimensions of a target.
const MaxTargetSize = 8192

var (
	// ErrTargetSize is returned for targets with a non-positive or oversized dimension.
	ErrTargetSize = errors.New("softrender: invalid target size")
	// ErrForeignTarget is returned for targets this host did not create or already released.
	ErrForeignTarget = errors.New("softrender: unknown target")
)

// Calls counts host draw calls by kind.
type Calls struct {
	Clears      int
	SceneRender int
	FullScreen  int
	Receivers   int
	Mipmaps     int
}

// Option configures a Host.
type Option func(*Host)

// WithWorkers sets the size of the full-screen worker pool.
func WithWorkers(n int) Option {
	return func(h *Host) { h.pool = newRowPool(n) }
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(h *Host) { h.logger = l }
}

// Host renders on the CPU into float targets.
type Host struct {
	screen *Target
	bound  *Target

	viewProj geom.Mat4 // camera of the default framebuffer
	toLight  r3.Vec    // shading light for view rendering

	receiver *scene.Mesh
	pool     *rowPool
	logger   *slog.Logger

	live  int
	calls Calls
}

// New creates a host whose default framebuffer is width x height.
func New(width, height int, opts ...Option) (*Host, error) {
	if err := checkSize(width, height); err != nil {
		return nil, err
	}
	h := &Host{
		screen:   newTarget(caustics.TargetOptions{Width: width, Height: height, Depth: true, Filter: caustics.FilterLinear, Format: caustics.FormatFloat}),
		viewProj: geom.Identity(),
		toLight:  r3.Vec{Y: 1},
		receiver: scene.NewPlane(1, 1),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.pool == nil {
		h.pool = newRowPool(0)
	}
	return h, nil
}

func checkSize(w, h int) error {
	if w <= 0 || h <= 0 || w > MaxTargetSize || h > MaxTargetSize {
		return fmt.Errorf("%w: %dx%d", ErrTargetSize, w, h)
	}
	return nil
}

// Close stops the worker pool.
func (h *Host) Close() {
	h.pool.stop()
}

// Screen returns the default framebuffer.
func (h *Host) Screen() *Target { return h.screen }

// Calls returns the draw call counters.
func (h *Host) Calls() Calls { return h.calls }

// LiveTargets returns the number of created and not yet released targets.
func (h *Host) LiveTargets() int { return h.live }

// SetView sets the camera used when drawing into the default framebuffer.
func (h *Host) SetView(viewProjection geom.Mat4) { h.viewProj = viewProjection }

// SetLight sets the direction toward the light used to shade view renders.
func (h *Host) SetLight(toLight r3.Vec) {
	if d := geom.Normalize(toLight); d != (r3.Vec{}) {
		h.toLight = d
	}
}

// CreateTarget implements caustics.Host.
func (h *Host) CreateTarget(opts caustics.TargetOptions) (caustics.Target, error) {
	if err := checkSize(opts.Width, opts.Height); err != nil {
		return nil, err
	}
	h.live++
	return newTarget(opts), nil
}

// ReleaseTarget implements caustics.Host.
func (h *Host) ReleaseTarget(t caustics.Target) {
	st, ok := t.(*Target)
	if !ok || st == nil || st.released || st == h.screen {
		return
	}
	if h.bound == st {
		h.bound = nil
	}
	st.released = true
	st.Color = NewTexture(0, 0)
	st.Depth = nil
	h.live--
}

// RenderTarget implements caustics.Host. The default framebuffer is nil.
func (h *Host) RenderTarget() caustics.Target {
	if h.bound == nil {
		return nil
	}
	return h.bound
}

// SetRenderTarget implements caustics.Host.
func (h *Host) SetRenderTarget(t caustics.Target) error {
	if t == nil {
		h.bound = nil
		return nil
	}
	st, err := h.lookup(t)
	if err != nil {
		return err
	}
	h.bound = st
	return nil
}

func (h *Host) lookup(t caustics.Target) (*Target, error) {
	st, ok := t.(*Target)
	if !ok || st == nil || st.released {
		return nil, ErrForeignTarget
	}
	return st, nil
}

// Channel returns one colour channel of t, row-major from the bottom row.
func (h *Host) Channel(t caustics.Target, c int) ([]float64, error) {
	st, err := h.lookup(t)
	if err != nil {
		return nil, err
	}
	return st.Color.Channel(c), nil
}

// current returns the bound target, the default framebuffer when none is bound.
func (h *Host) current() *Target {
	if h.bound == nil {
		return h.screen
	}
	return h.bound
}

// Clear implements caustics.Host.
func (h *Host) Clear() error {
	h.calls.Clears++
	h.current().clear()
	return nil
}

// RenderScene implements caustics.Host. With an override material every
// refractive object writes its encoded world normal; back faces are flipped
// toward the camera. Without one the objects are shaded with their tint.
func (h *Host) RenderScene(scn *scene.Scene, cam lightcam.Camera) error {
	h.calls.SceneRender++
	t := h.current()
	w, ht := t.Size()
	r := rasterizer{width: w, height: ht, viewProj: cam.ViewProjection}

	m := scn.Override()
	if m == nil {
		h.drawRefractive(t, r, scn)
		return nil
	}
	scn.EachRefractive(func(o scene.Object, _ *scene.Refractive) {
		if o.Mesh == nil {
			return
		}
		r.mesh(*o.Transform, o.Mesh, m.FaceSide(), func(f *fragment) {
			if !depthTest(t, f, true) {
				return
			}
			n := geom.Normalize(f.normal)
			if !f.front {
				n = r3.Scale(-1, n)
			}
			e := estimator.Encode(n)
			t.store(f.x, f.y, RGBA{float32(e.X), float32(e.Y), float32(e.Z), 1})
		})
	})
	return nil
}

// depthTest applies a LESS test against the target depth, writing the
// fragment depth when write is set. Targets without depth always pass.
func depthTest(t *Target, f *fragment, write bool) bool {
	if t.Depth == nil {
		return true
	}
	i := f.y*t.opts.Width + f.x
	d := float32(f.depth)
	if d >= t.Depth[i] {
		return false
	}
	if write {
		t.Depth[i] = d
	}
	return true
}

// captureSampler reads a capture target for the estimator.
type captureSampler struct {
	t *Target
}

func (s captureSampler) Normal(uv r2.Vec) r3.Vec {
	c := s.t.Sample(uv)
	return r3.Vec{X: float64(c[0]), Y: float64(c[1]), Z: float64(c[2])}
}

func (s captureSampler) Depth(uv r2.Vec) float64 {
	return s.t.SampleDepth(uv)
}

// DrawFullScreen implements caustics.Host. Rows are split across the worker pool.
func (h *Host) DrawFullScreen(pass caustics.EstimatorPass) error {
	h.calls.FullScreen++
	capture, err := h.lookup(pass.Capture)
	if err != nil {
		return fmt.Errorf("estimator capture: %w", err)
	}
	out := h.current()
	w, ht := out.Size()
	s := captureSampler{t: capture}
	u := pass.Uniforms

	h.pool.rows(ht, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			for x := 0; x < w; x++ {
				uv := r2.Vec{X: (float64(x) + 0.5) / float64(w), Y: (float64(y) + 0.5) / float64(ht)}
				v := float32(estimator.Estimate(&u, s, uv))
				out.store(x, y, RGBA{v, v, v, 1})
			}
		}
	})
	return nil
}

// GenerateMipmaps implements caustics.Host.
func (h *Host) GenerateMipmaps(t caustics.Target) error {
	st, err := h.lookup(t)
	if err != nil {
		return err
	}
	if st.opts.Mipmaps {
		h.calls.Mipmaps++
		st.Color.GenerateMipmaps()
	}
	return nil
}

// DrawReceiver implements caustics.Host. The receiver reprojects each
// fragment into the light camera, sums both caustics textures, tints the sum
// and blends it onto the bound target.
func (h *Host) DrawReceiver(fp lightcam.Footprint, u caustics.ProjectorUniforms) error {
	h.calls.Receivers++
	front, err := h.optionalTarget(u.Front)
	if err != nil {
		return fmt.Errorf("front caustics: %w", err)
	}
	back, err := h.optionalTarget(u.Back)
	if err != nil {
		return fmt.Errorf("back caustics: %w", err)
	}

	t := h.current()
	w, ht := t.Size()
	r := rasterizer{width: w, height: ht, viewProj: h.viewProj}
	tr := caustics.ReceiverTransform(fp)
	lod := h.receiverLOD(tr.Matrix(), u.LightViewProjection, front, w, ht)

	r.mesh(tr, h.receiver, scene.DoubleSide, func(f *fragment) {
		if !depthTest(t, f, u.DepthWrite) {
			return
		}
		ndc := u.LightViewProjection.TransformPoint(f.world)
		uv := r2.Vec{X: ndc.X*0.5 + 0.5, Y: ndc.Y*0.5 + 0.5}
		if uv.X < 0 || uv.X > 1 || uv.Y < 0 || uv.Y > 1 {
			return
		}
		var sum float32
		if front != nil {
			sum += front.Color.Trilinear(uv, lod)[0]
		}
		if back != nil {
			sum += back.Color.Trilinear(uv, lod)[0]
		}
		src := RGBA{sum * float32(u.Color.R), sum * float32(u.Color.G), sum * float32(u.Color.B), 1}
		t.store(f.x, f.y, blend(src, t.Color.At(f.x, f.y), u.SrcFactor, u.DstFactor))
	})
	return nil
}

func (h *Host) optionalTarget(t caustics.Target) (*Target, error) {
	if t == nil {
		return nil, nil
	}
	return h.lookup(t)
}

// receiverLOD estimates the mip level from the ratio of caustics texels to
// screen pixels covered by the receiver.
func (h *Host) receiverLOD(model, lightViewProj geom.Mat4, tex *Target, w, ht int) float64 {
	if tex == nil {
		return 0
	}
	corners := [4]r3.Vec{{X: -0.5, Z: -0.5}, {X: 0.5, Z: -0.5}, {X: 0.5, Z: 0.5}, {X: -0.5, Z: 0.5}}
	var screen, texels [4]r3.Vec
	tw, th := tex.Size()
	for i, c := range corners {
		world := model.TransformPoint(c)
		s := h.viewProj.TransformPoint(world)
		screen[i] = r3.Vec{X: s.X * 0.5 * float64(w), Y: s.Y * 0.5 * float64(ht)}
		l := lightViewProj.TransformPoint(world)
		texels[i] = r3.Vec{X: l.X * 0.5 * float64(tw), Y: l.Y * 0.5 * float64(th)}
	}
	screenArea := geom.QuadArea(screen[0], screen[1], screen[2], screen[3])
	texelArea := geom.QuadArea(texels[0], texels[1], texels[2], texels[3])
	if !(screenArea > 0) || !(texelArea > 0) {
		return 0
	}
	return math.Max(0, 0.5*math.Log2(texelArea/screenArea))
}

func blendFactor(f caustics.BlendFactor, srcAlpha float32) float32 {
	switch f {
	case caustics.BlendOne:
		return 1
	case caustics.BlendSrcAlpha:
		return srcAlpha
	case caustics.BlendOneMinusSrcAlpha:
		return 1 - srcAlpha
	default:
		return 0
	}
}

func blend(src, dst RGBA, sf, df caustics.BlendFactor) RGBA {
	s := blendFactor(sf, src[3])
	d := blendFactor(df, src[3])
	var out RGBA
	for i := range out {
		out[i] = src[i]*s + dst[i]*d
	}
	return out
}
