package caustics

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/caustics/config"
	"github.com/pthm-cable/caustics/estimator"
	"github.com/pthm-cable/caustics/lightcam"
	"github.com/pthm-cable/caustics/scene"
)

// ContinuousFrames makes the pipeline recompute on every update.
const ContinuousFrames = -1

// ErrInvalidParams is wrapped by every parameter validation failure.
var ErrInvalidParams = errors.New("invalid caustics parameters")

// Params configures the pipeline.
type Params struct {
	Frames       int     // capture budget, ContinuousFrames for every update
	IOR          float64 // front surface index of refraction (n2/n1)
	BacksideIOR  float64 // back surface index of refraction
	Backside     bool    // also capture and estimate back faces
	WorldRadius  float64 // world-space caustic feature size
	Intensity    float64 // intensity of an undeflected bundle
	Resolution   int     // capture and caustics buffer size in texels
	Color        scene.Color
	CausticsOnly bool // skip drawing the refractive objects themselves
	Light        lightcam.LightSource

	NearPlane    float64 // light camera near plane
	RayOffset    float64 // refracted ray origin offset along the ray
	GroundHeight float64 // world Y of the receiver ground
	Taps         estimator.TapPattern
	Debug        bool // expose the light frustum wireframe
}

// DefaultParams returns the default configuration.
func DefaultParams() Params {
	return Params{
		Frames:      1,
		IOR:         1.1,
		BacksideIOR: 1.1,
		WorldRadius: 0.3125,
		Intensity:   0.05,
		Resolution:  2048,
		Color:       scene.White,
		Light:       lightcam.StaticLight(r3.Vec{X: 5, Y: 5, Z: 5}),
		NearPlane:   lightcam.DefaultNearPlane,
		RayOffset:   estimator.DefaultRayOffset,
		Taps:        estimator.CornerTaps,
	}
}

// Validate rejects values that would produce NaN or Inf downstream.
func (p Params) Validate() error {
	switch {
	case p.Resolution <= 0:
		return fmt.Errorf("%w: resolution %d must be positive", ErrInvalidParams, p.Resolution)
	case !(p.IOR > 0):
		return fmt.Errorf("%w: ior %v must be positive", ErrInvalidParams, p.IOR)
	case !(p.BacksideIOR > 0):
		return fmt.Errorf("%w: backside ior %v must be positive", ErrInvalidParams, p.BacksideIOR)
	case !(p.WorldRadius > 0):
		return fmt.Errorf("%w: world radius %v must be positive", ErrInvalidParams, p.WorldRadius)
	case !(p.Intensity >= 0) || math.IsInf(p.Intensity, 0):
		return fmt.Errorf("%w: intensity %v must be finite and non-negative", ErrInvalidParams, p.Intensity)
	case p.Frames == 0 || p.Frames < ContinuousFrames:
		return fmt.Errorf("%w: frames %d must be -1 or positive", ErrInvalidParams, p.Frames)
	case !(p.NearPlane > 0):
		return fmt.Errorf("%w: near plane %v must be positive", ErrInvalidParams, p.NearPlane)
	case !(p.RayOffset >= 0):
		return fmt.Errorf("%w: ray offset %v must not be negative", ErrInvalidParams, p.RayOffset)
	case !p.Light.IsTracked() && r3.Norm(p.Light.Direction) == 0:
		return fmt.Errorf("%w: light direction has no length", ErrInvalidParams)
	}
	return nil
}

// ParamsFromConfig builds parameters from the caustics config section. A
// tracked light is resolved by name against scn.
func ParamsFromConfig(cfg config.CausticsConfig, ground float64, scn *scene.Scene) (Params, error) {
	p := DefaultParams()
	p.Frames = cfg.Frames
	p.IOR = cfg.IOR
	p.BacksideIOR = cfg.BacksideIOR
	p.Backside = cfg.Backside
	p.WorldRadius = cfg.WorldRadius
	p.Intensity = cfg.Intensity
	p.Resolution = cfg.Resolution
	p.Color = scene.Color{R: cfg.Color[0], G: cfg.Color[1], B: cfg.Color[2]}
	p.CausticsOnly = cfg.CausticsOnly
	p.NearPlane = cfg.NearPlane
	p.RayOffset = cfg.RayOffset
	p.GroundHeight = ground
	p.Debug = cfg.Debug

	if cfg.TrackLight != "" {
		e, ok := scn.Lookup(cfg.TrackLight)
		if !ok {
			return Params{}, fmt.Errorf("%w: tracked light %q is not in the scene", ErrInvalidParams, cfg.TrackLight)
		}
		p.Light = lightcam.TrackedLight(scn.Positioner(e))
	} else {
		p.Light = lightcam.StaticLight(r3.Vec{X: cfg.Light[0], Y: cfg.Light[1], Z: cfg.Light[2]})
	}

	if err := p.Validate(); err != nil {
		return Params{}, err
	}
	return p, nil
}
