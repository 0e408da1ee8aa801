// Package camera provides an orbit camera for viewing the scene.
package camera

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/caustics/config"
	"github.com/pthm-cable/caustics/geom"
)

// Camera orbits a target point at a distance. Angles are in radians.
type Camera struct {
	// Target is the orbit centre in world coordinates
	Target r3.Vec

	Distance float64
	Yaw      float64 // around +Y, 0 looks from +Z
	Pitch    float64 // above the horizon
	FovY     float64

	// Viewport dimensions (screen size)
	ViewportW, ViewportH float64

	Near, Far float64

	// Distance constraints
	MinDistance, MaxDistance float64

	home orbit
}

// orbit is the state restored by Reset.
type orbit struct {
	target               r3.Vec
	distance, yaw, pitch float64
}

// maxPitch keeps the camera off the poles, where the up vector degenerates.
const maxPitch = 89 * math.Pi / 180

// New creates a camera from the view config.
func New(cfg config.ViewConfig, viewportW, viewportH float64) *Camera {
	c := &Camera{
		Target:      r3.Vec{X: cfg.Target[0], Y: cfg.Target[1], Z: cfg.Target[2]},
		Distance:    cfg.Distance,
		Yaw:         cfg.Yaw * math.Pi / 180,
		Pitch:       cfg.Pitch * math.Pi / 180,
		FovY:        cfg.FovY * math.Pi / 180,
		ViewportW:   viewportW,
		ViewportH:   viewportH,
		Near:        0.05,
		Far:         200,
		MinDistance: 1,
		MaxDistance: 100,
	}
	c.Pitch = clamp(c.Pitch, -maxPitch, maxPitch)
	c.Distance = clamp(c.Distance, c.MinDistance, c.MaxDistance)
	c.home = orbit{target: c.Target, distance: c.Distance, yaw: c.Yaw, pitch: c.Pitch}
	return c
}

// Position returns the eye position in world coordinates.
func (c *Camera) Position() r3.Vec {
	cp := math.Cos(c.Pitch)
	offset := r3.Vec{
		X: c.Distance * cp * math.Sin(c.Yaw),
		Y: c.Distance * math.Sin(c.Pitch),
		Z: c.Distance * cp * math.Cos(c.Yaw),
	}
	return r3.Add(c.Target, offset)
}

// Aspect returns the viewport aspect ratio.
func (c *Camera) Aspect() float64 {
	if c.ViewportH == 0 {
		return 1
	}
	return c.ViewportW / c.ViewportH
}

// View returns the world-to-camera matrix.
func (c *Camera) View() geom.Mat4 {
	eye := c.Position()
	world := geom.Translation(eye).Mul(geom.LookAt(eye, c.Target, r3.Vec{Y: 1}))
	view, err := world.Inverse()
	if err != nil {
		return geom.Identity()
	}
	return view
}

// Projection returns the perspective projection.
func (c *Camera) Projection() geom.Mat4 {
	return geom.Perspective(c.FovY, c.Aspect(), c.Near, c.Far)
}

// ViewProjection returns Projection * View.
func (c *Camera) ViewProjection() geom.Mat4 {
	return c.Projection().Mul(c.View())
}

// WorldToScreen converts a world position to screen pixels, origin top-left.
// ok is false for points behind the camera.
func (c *Camera) WorldToScreen(p r3.Vec) (s r2.Vec, ok bool) {
	clip := c.ViewProjection().MulVec4([4]float64{p.X, p.Y, p.Z, 1})
	if clip[3] <= 0 {
		return r2.Vec{}, false
	}
	x, y := clip[0]/clip[3], clip[1]/clip[3]
	return r2.Vec{
		X: (x*0.5 + 0.5) * c.ViewportW,
		Y: (0.5 - y*0.5) * c.ViewportH,
	}, true
}

// Orbit rotates the camera around the target by the given angle deltas.
func (c *Camera) Orbit(dYaw, dPitch float64) {
	c.Yaw = math.Mod(c.Yaw+dYaw, 2*math.Pi)
	c.Pitch = clamp(c.Pitch+dPitch, -maxPitch, maxPitch)
}

// Pan moves the target by the given delta in screen pixels, so the point
// under the cursor follows it.
func (c *Camera) Pan(dx, dy float64) {
	// World units per pixel at the target depth
	scale := 2 * c.Distance * math.Tan(c.FovY/2) / math.Max(c.ViewportH, 1)
	right := r3.Vec{X: math.Cos(c.Yaw), Z: -math.Sin(c.Yaw)}
	forward := geom.Normalize(r3.Sub(c.Target, c.Position()))
	up := r3.Cross(right, forward)
	move := r3.Add(r3.Scale(-dx*scale, right), r3.Scale(dy*scale, up))
	c.Target = r3.Add(c.Target, move)
}

// ZoomBy divides the orbit distance by factor, clamped to the limits.
func (c *Camera) ZoomBy(factor float64) {
	if factor <= 0 {
		return
	}
	c.Distance = clamp(c.Distance/factor, c.MinDistance, c.MaxDistance)
}

// Resize updates viewport dimensions.
func (c *Camera) Resize(viewportW, viewportH float64) {
	c.ViewportW = viewportW
	c.ViewportH = viewportH
}

// Reset returns the camera to the configured view.
func (c *Camera) Reset() {
	c.Target = c.home.target
	c.Distance = c.home.distance
	c.Yaw = c.home.yaw
	c.Pitch = c.home.pitch
}

// clamp restricts a value to a range.
func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
