// Package caustics drives the screen-space caustics pipeline: it fits a
// light camera to the refractive set, captures normals and depth from it,
// estimates caustic intensity per texel and composites the result onto a
// receiver plane, all through a renderer Host.
package caustics

import (
	"errors"
	"fmt"
	"log/slog"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/caustics/estimator"
	"github.com/pthm-cable/caustics/lightcam"
	"github.com/pthm-cable/caustics/scene"
)

// ErrReleased is returned by operations on a released pipeline.
var ErrReleased = errors.New("caustics: pipeline released")

// ErrNoBuffers is returned when a bake is attempted without a complete set
// of buffers.
var ErrNoBuffers = errors.New("caustics: buffers not allocated")

// PhaseTimer receives stage boundaries, e.g. a telemetry.PerfCollector.
type PhaseTimer interface {
	StartPhase(phase string)
}

// Option configures a Caustics.
type Option func(*Caustics)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Caustics) { c.logger = l }
}

// WithPhaseTimer reports every stage to t.
func WithPhaseTimer(t PhaseTimer) Option {
	return func(c *Caustics) { c.timer = t }
}

// Caustics owns the capture and caustics buffers and the fitted camera.
type Caustics struct {
	host   Host
	scene  *scene.Scene
	params Params
	logger *slog.Logger
	timer  PhaseTimer

	buffers

	camera    lightcam.Camera
	toLight   r3.Vec
	footprint lightcam.Footprint
	projector ProjectorUniforms

	budget   budget
	stage    Stage
	passes   Passes
	baked    bool
	released bool
}

// New validates p and allocates the buffers on host.
func New(host Host, scn *scene.Scene, p Params, opts ...Option) (*Caustics, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	c := &Caustics{
		host:    host,
		scene:   scn,
		params:  p,
		logger:  slog.Default(),
		budget:  newBudget(p.Frames),
		toLight: r3.Vec{Y: 1},
	}
	for _, opt := range opts {
		opt(c)
	}
	b, err := c.createBuffers(p.Resolution)
	if err != nil {
		return nil, err
	}
	c.buffers = b
	c.logger.Info("caustics created",
		"resolution", p.Resolution,
		"frames", p.Frames,
		"backside", p.Backside,
		"mode", c.budget.mode.String(),
	)
	return c, nil
}

// buffers is one complete set of capture and caustics targets.
type buffers struct {
	captureFront, captureBack   Target
	causticsFront, causticsBack Target
}

func (b *buffers) targets() []*Target {
	return []*Target{&b.captureFront, &b.captureBack, &b.causticsFront, &b.causticsBack}
}

func (b *buffers) complete() bool {
	for _, t := range b.targets() {
		if *t == nil {
			return false
		}
	}
	return true
}

// createBuffers allocates a full set at resolution res. On failure the
// targets created so far are released and nothing is returned.
func (c *Caustics) createBuffers(res int) (buffers, error) {
	capture := TargetOptions{Width: res, Height: res, Depth: true, Filter: FilterNearest, Format: FormatFloat}
	result := TargetOptions{Width: res, Height: res, Filter: FilterLinear, Format: FormatFloat, Mipmaps: true}

	var b buffers
	targets := []struct {
		dst  *Target
		opts TargetOptions
		name string
	}{
		{&b.captureFront, capture, "front capture"},
		{&b.captureBack, capture, "back capture"},
		{&b.causticsFront, result, "front caustics"},
		{&b.causticsBack, result, "back caustics"},
	}
	for _, t := range targets {
		target, err := c.host.CreateTarget(t.opts)
		if err != nil {
			c.releaseSet(&b)
			return buffers{}, fmt.Errorf("creating %s target: %w", t.name, err)
		}
		*t.dst = target
	}
	return b, nil
}

func (c *Caustics) releaseSet(b *buffers) {
	for _, t := range b.targets() {
		if *t != nil {
			c.host.ReleaseTarget(*t)
			*t = nil
		}
	}
}

func (c *Caustics) releaseBuffers() {
	c.releaseSet(&c.buffers)
	c.baked = false
}

// Update advances one frame. It bakes new caustics while the frame budget
// allows and always refreshes the composite. The previously bound render
// target is restored on every path.
func (c *Caustics) Update() (err error) {
	if c.released {
		return ErrReleased
	}

	prev := c.host.RenderTarget()
	defer func() {
		c.stage = StageIdle
		if rerr := c.host.SetRenderTarget(prev); rerr != nil {
			err = errors.Join(err, fmt.Errorf("restoring render target: %w", rerr))
		}
	}()

	if c.budget.due() {
		if err := c.bake(); err != nil {
			return err
		}
		c.baked = true
		if c.budget.consume() {
			c.logger.Info("caustics frozen", "captures", c.passes.Captures())
		}
	}

	c.enter(StageComposite)
	c.projector = newProjectorUniforms(c.camera, c.causticsFront, c.causticsBack, c.params.Color)
	return nil
}

func (c *Caustics) enter(s Stage) {
	c.stage = s
	c.passes[s]++
	if c.timer != nil {
		c.timer.StartPhase(s.String())
	}
}

func (c *Caustics) bake() error {
	if !c.buffers.complete() {
		return ErrNoBuffers
	}
	c.enter(StageFitCamera)
	bounds := c.scene.Bounds()
	if toLight, ok := c.params.Light.ToLight(c.scene.Origin); ok {
		c.toLight = toLight
	} else {
		c.logger.Warn("light direction degenerate, keeping previous", "direction", c.toLight)
	}
	opts := lightcam.Options{NearPlane: c.params.NearPlane, GroundHeight: c.params.GroundHeight}
	c.camera = lightcam.Fit(bounds, c.toLight, opts)
	c.footprint = lightcam.GroundFootprint(bounds, c.toLight, c.params.GroundHeight)
	if bounds.IsEmpty() {
		c.logger.Debug("refractive set is empty")
	}

	c.enter(StageCaptureFront)
	if err := c.capture(c.captureFront, FrontNormals); err != nil {
		return fmt.Errorf("capturing front faces: %w", err)
	}
	if c.params.Backside {
		c.enter(StageCaptureBack)
		if err := c.capture(c.captureBack, BackNormals); err != nil {
			return fmt.Errorf("capturing back faces: %w", err)
		}
	}

	c.enter(StageEstimateFront)
	if err := c.estimate(c.captureFront, c.causticsFront, c.params.IOR); err != nil {
		return fmt.Errorf("estimating front caustics: %w", err)
	}
	if c.params.Backside {
		c.enter(StageEstimateBack)
		if err := c.estimate(c.captureBack, c.causticsBack, c.params.BacksideIOR); err != nil {
			return fmt.Errorf("estimating back caustics: %w", err)
		}
	} else if err := c.clear(c.causticsBack); err != nil {
		return fmt.Errorf("clearing back caustics: %w", err)
	}
	return nil
}

func (c *Caustics) clear(t Target) error {
	if err := c.host.SetRenderTarget(t); err != nil {
		return err
	}
	return c.host.Clear()
}

func (c *Caustics) capture(t Target, m CaptureMaterial) error {
	if err := c.clear(t); err != nil {
		return err
	}
	return c.scene.WithOverride(m, func() error {
		return c.host.RenderScene(c.scene, c.camera)
	})
}

func (c *Caustics) estimate(capture, out Target, ior float64) error {
	if err := c.clear(out); err != nil {
		return err
	}
	if err := c.host.DrawFullScreen(EstimatorPass{Capture: capture, Uniforms: c.uniforms(ior)}); err != nil {
		return err
	}
	return c.host.GenerateMipmaps(out)
}

func (c *Caustics) uniforms(ior float64) estimator.Uniforms {
	u := estimator.FromCamera(c.camera)
	u.Resolution = c.params.Resolution
	u.WorldRadius = c.params.WorldRadius
	u.Intensity = c.params.Intensity
	u.IOR = ior
	u.RayOffset = c.params.RayOffset
	u.Taps = c.params.Taps
	return u
}

// Draw composites the caustics onto the receiver plane in the currently
// bound target. It draws nothing before the first bake.
func (c *Caustics) Draw() error {
	if c.released {
		return ErrReleased
	}
	if !c.baked {
		return nil
	}
	return c.host.DrawReceiver(c.footprint, c.projector)
}

// SetParams replaces the parameters and re-arms the frame budget. Buffers
// are recreated only when the resolution changes.
func (c *Caustics) SetParams(p Params) error {
	if c.released {
		return ErrReleased
	}
	if err := p.Validate(); err != nil {
		return err
	}
	if p.Resolution != c.params.Resolution {
		// The old buffers and parameters stay in place if the new set fails.
		b, err := c.createBuffers(p.Resolution)
		if err != nil {
			return err
		}
		c.logger.Info("caustics buffers resized", "from", c.params.Resolution, "to", p.Resolution)
		c.releaseBuffers()
		c.buffers = b
	}
	c.params = p
	c.budget = newBudget(p.Frames)
	return nil
}

// Invalidate re-arms the frame budget so the next updates bake again.
func (c *Caustics) Invalidate() {
	c.budget = newBudget(c.params.Frames)
}

// Release frees the buffers. The pipeline is unusable afterwards.
func (c *Caustics) Release() {
	if c.released {
		return
	}
	c.releaseBuffers()
	c.released = true
}

// Params returns the current parameters.
func (c *Caustics) Params() Params { return c.params }

// Camera returns the light camera of the last bake.
func (c *Caustics) Camera() lightcam.Camera { return c.camera }

// Footprint returns the receiver placement of the last bake.
func (c *Caustics) Footprint() lightcam.Footprint { return c.footprint }

// Projector returns the receiver material uniforms of the last update.
func (c *Caustics) Projector() ProjectorUniforms { return c.projector }

// Captures returns the front and back capture targets.
func (c *Caustics) Captures() (front, back Target) { return c.captureFront, c.captureBack }

// Buffers returns the front and back caustics targets.
func (c *Caustics) Buffers() (front, back Target) { return c.causticsFront, c.causticsBack }

// Mode returns the recompute cadence and, when budgeted, the bakes left.
func (c *Caustics) Mode() (Mode, int) { return c.budget.mode, c.budget.remaining }

// Stage returns the stage in progress; StageIdle between updates.
func (c *Caustics) Stage() Stage { return c.stage }

// Passes returns the stage counters.
func (c *Caustics) Passes() Passes { return c.passes }

// Baked reports whether the buffers hold a finished bake.
func (c *Caustics) Baked() bool { return c.baked }

// DrawRefractive reports whether the host should draw the refractive objects.
func (c *Caustics) DrawRefractive() bool { return !c.params.CausticsOnly }

// FrustumLines returns the light frustum wireframe when debugging is on.
func (c *Caustics) FrustumLines() ([12][2]r3.Vec, bool) {
	if !c.params.Debug || !c.baked {
		return [12][2]r3.Vec{}, false
	}
	return c.camera.FrustumLines(), true
}

// Receiver returns the placement of the receiver plane of the last bake.
func (c *Caustics) Receiver() scene.Transform {
	return ReceiverTransform(c.footprint)
}

// ReceiverLift raises the receiver above the ground to avoid z-fighting.
const ReceiverLift = 1e-3

// ReceiverTransform places a unit XZ plane over fp, lifted just above the ground.
func ReceiverTransform(fp lightcam.Footprint) scene.Transform {
	t := scene.NewTransform(r3.Add(fp.Center, r3.Vec{Y: ReceiverLift}))
	t.Scale = r3.Vec{X: fp.Size, Y: 1, Z: fp.Size}
	return t
}
