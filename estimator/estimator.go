// Package estimator computes caustic intensity for one texel of a light-space
// capture by refracting a small bundle of light rays through the captured
// surface and comparing the area of the bundle before and after refraction.
//
// The same kernel runs per texel on the CPU host and is mirrored by the GPU
// fragment shader.
package estimator

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/caustics/geom"
	"github.com/pthm-cable/caustics/lightcam"
)

const (
	// DefaultRayOffset moves refracted ray origins off the surface they leave.
	DefaultRayOffset = 0.1
	// FarSentinel is the cleared depth value of texels with no geometry.
	FarSentinel = 1.0
	// MinArea floors the refracted bundle area so full focus stays finite.
	MinArea = 1e-12
)

// TapPattern holds the UV offsets of the four bundle corners, in units of the
// sample radius, in winding order.
type TapPattern [4]r2.Vec

// CornerTaps is the default fixed pattern at (+-0.5, +-0.5).
var CornerTaps = TapPattern{
	{X: -0.5, Y: -0.5},
	{X: -0.5, Y: 0.5},
	{X: 0.5, Y: 0.5},
	{X: 0.5, Y: -0.5},
}

// Sampler reads the capture buffers of one pass.
type Sampler interface {
	// Normal returns the encoded world normal at uv, components in [0,1].
	Normal(uv r2.Vec) r3.Vec
	// Depth returns the window depth at uv in [0,1].
	Depth(uv r2.Vec) float64
}

// Uniforms are the per-pass inputs of the kernel.
type Uniforms struct {
	CameraWorld       geom.Mat4
	ProjectionInverse geom.Mat4
	LightDir          r3.Vec // unit direction light travels in
	Receiver          geom.Plane
	Near, Far         float64
	Resolution        int
	FrustumSize       float64 // orthographic half extent
	WorldRadius       float64
	Intensity         float64
	IOR               float64
	RayOffset         float64
	Taps              TapPattern
}

// FromCamera fills the camera-derived uniforms and the default ray offset and
// taps. The caller sets resolution, radius, intensity and IOR.
func FromCamera(cam lightcam.Camera) Uniforms {
	return Uniforms{
		CameraWorld:       cam.World,
		ProjectionInverse: cam.ProjectionInverse,
		LightDir:          cam.Forward(),
		Receiver:          cam.ReceiverPlane(),
		Near:              cam.Near,
		Far:               cam.Far,
		FrustumSize:       cam.HalfExtent(),
		RayOffset:         DefaultRayOffset,
		Taps:              CornerTaps,
	}
}

// SampleRadius converts a world-space feature size into a UV-space radius.
func SampleRadius(worldRadius, frustumSize float64, resolution int) float64 {
	res := float64(resolution)
	texelSize := (1 / res) * frustumSize * 2
	return (worldRadius / texelSize) / res
}

// Intensity is scale * pre / post, clamped at zero. post is floored at MinArea.
func Intensity(scale, pre, post float64) float64 {
	if post < MinArea {
		post = MinArea
	}
	v := scale * pre / post
	if !(v > 0) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// WorldFromDepth reconstructs the world position captured at uv with depth.
func WorldFromDepth(u *Uniforms, uv r2.Vec, depth float64) r3.Vec {
	return geom.UnprojectDepth(u.CameraWorld, u.ProjectionInverse, uv.X, uv.Y, depth)
}

// Decode maps an encoded colour back to a unit normal.
func Decode(encoded r3.Vec) r3.Vec {
	return geom.Normalize(r3.Vec{X: encoded.X*2 - 1, Y: encoded.Y*2 - 1, Z: encoded.Z*2 - 1})
}

// Encode maps a unit normal to colour components in [0,1].
func Encode(n r3.Vec) r3.Vec {
	return r3.Vec{X: n.X*0.5 + 0.5, Y: n.Y*0.5 + 0.5, Z: n.Z*0.5 + 0.5}
}

// Estimate returns the caustic intensity at uv. Texels where the centre or
// any tap sees background, where a ray is totally internally reflected, or
// where a ray never meets the receiver yield 0.
func Estimate(u *Uniforms, s Sampler, uv r2.Vec) float64 {
	if s.Depth(uv) >= FarSentinel {
		return 0
	}

	radius := SampleRadius(u.WorldRadius, u.FrustumSize, u.Resolution)
	eta := 1 / u.IOR

	var origins, finals [4]r3.Vec
	for i, tap := range u.Taps {
		tuv := r2.Add(uv, r2.Scale(radius, tap))

		depth := s.Depth(tuv)
		if depth >= FarSentinel {
			return 0
		}
		normal := Decode(s.Normal(tuv))
		if normal == (r3.Vec{}) {
			return 0
		}

		origins[i] = WorldFromDepth(u, tuv, 0)
		pos := WorldFromDepth(u, tuv, depth)

		dir := geom.Refract(u.LightDir, normal, eta)
		if dir == (r3.Vec{}) {
			return 0
		}
		pos = r3.Add(pos, r3.Scale(u.RayOffset, dir))

		t, ok := u.Receiver.IntersectRay(pos, dir)
		if !ok {
			return 0
		}
		finals[i] = r3.Add(pos, r3.Scale(t, dir))
	}

	pre := geom.QuadArea(origins[0], origins[1], origins[2], origins[3])
	post := geom.QuadArea(finals[0], finals[1], finals[2], finals[3])
	return Intensity(u.Intensity, pre, post)
}

// TexelUV returns the UV of the centre of texel (x, y).
func TexelUV(x, y, resolution int) r2.Vec {
	res := float64(resolution)
	return r2.Vec{X: (float64(x) + 0.5) / res, Y: (float64(y) + 0.5) / res}
}
