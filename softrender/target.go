package softrender

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/caustics/caustics"
)

// Target is an off-screen colour buffer with an optional depth buffer.
type Target struct {
	opts     caustics.TargetOptions
	Color    *Texture
	Depth    []float32 // window depth in [0,1], nil without a depth attachment
	released bool
}

func newTarget(opts caustics.TargetOptions) *Target {
	t := &Target{opts: opts, Color: NewTexture(opts.Width, opts.Height)}
	if opts.Depth {
		t.Depth = make([]float32, opts.Width*opts.Height)
	}
	t.clear()
	return t
}

// Size implements caustics.Target.
func (t *Target) Size() (width, height int) {
	return t.opts.Width, t.opts.Height
}

// Options returns the options the target was created with.
func (t *Target) Options() caustics.TargetOptions {
	return t.opts
}

func (t *Target) clear() {
	t.Color.Fill(RGBA{})
	for i := range t.Depth {
		t.Depth[i] = 1
	}
}

// store writes c at (x, y), quantizing to 8 bits per channel for RGBA8 targets.
func (t *Target) store(x, y int, c RGBA) {
	if t.opts.Format == caustics.FormatRGBA8 {
		for i, v := range c {
			v = max(0, min(v, 1))
			c[i] = float32(math.Round(float64(v)*255)) / 255
		}
	}
	t.Color.Set(x, y, c)
}

// Sample reads the colour at uv with the target's filter.
func (t *Target) Sample(uv r2.Vec) RGBA {
	if t.opts.Filter == caustics.FilterNearest {
		return t.Color.Nearest(uv)
	}
	return t.Color.Bilinear(uv)
}

// SampleDepth reads the depth texel containing uv. Targets without depth
// report the far value.
func (t *Target) SampleDepth(uv r2.Vec) float64 {
	if t.Depth == nil {
		return 1
	}
	x := clampInt(int(math.Floor(uv.X*float64(t.opts.Width))), 0, t.opts.Width-1)
	y := clampInt(int(math.Floor(uv.Y*float64(t.opts.Height))), 0, t.opts.Height-1)
	return float64(t.Depth[y*t.opts.Width+x])
}
