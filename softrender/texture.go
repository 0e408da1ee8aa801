package softrender

import (
	"math"

	"gonum.org/v1/gonum/blas/blas32"
	"gonum.org/v1/gonum/spatial/r2"
)

// RGBA is a linear colour sample.
type RGBA [4]float32

// Texture is a float RGBA image. Row 0 is the bottom row, so v = 0 samples
// the bottom edge as in OpenGL.
type Texture struct {
	W, H int
	Pix  []float32 // 4 floats per texel, row-major

	mips []*Texture // mips[0] is half size
}

// NewTexture allocates a zeroed texture.
func NewTexture(w, h int) *Texture {
	return &Texture{W: w, H: h, Pix: make([]float32, 4*w*h)}
}

func (t *Texture) offset(x, y int) int {
	return 4 * (y*t.W + x)
}

// At returns the texel at (x, y).
func (t *Texture) At(x, y int) RGBA {
	i := t.offset(x, y)
	return RGBA{t.Pix[i], t.Pix[i+1], t.Pix[i+2], t.Pix[i+3]}
}

// Set stores c at (x, y).
func (t *Texture) Set(x, y int, c RGBA) {
	i := t.offset(x, y)
	copy(t.Pix[i:i+4], c[:])
}

// Fill sets every texel to c and drops the mip chain.
func (t *Texture) Fill(c RGBA) {
	if c == (RGBA{}) {
		clear(t.Pix)
	} else {
		for i := 0; i < len(t.Pix); i += 4 {
			copy(t.Pix[i:i+4], c[:])
		}
	}
	t.mips = nil
}

func clampInt(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

// Nearest samples the texel containing uv, clamped to the edge.
func (t *Texture) Nearest(uv r2.Vec) RGBA {
	x := clampInt(int(math.Floor(uv.X*float64(t.W))), 0, t.W-1)
	y := clampInt(int(math.Floor(uv.Y*float64(t.H))), 0, t.H-1)
	return t.At(x, y)
}

// Bilinear samples uv between the four nearest texel centres, clamped to the edge.
func (t *Texture) Bilinear(uv r2.Vec) RGBA {
	fx := uv.X*float64(t.W) - 0.5
	fy := uv.Y*float64(t.H) - 0.5
	x0, y0 := math.Floor(fx), math.Floor(fy)
	ax, ay := float32(fx-x0), float32(fy-y0)

	xa := clampInt(int(x0), 0, t.W-1)
	xb := clampInt(int(x0)+1, 0, t.W-1)
	ya := clampInt(int(y0), 0, t.H-1)
	yb := clampInt(int(y0)+1, 0, t.H-1)

	c00, c10 := t.At(xa, ya), t.At(xb, ya)
	c01, c11 := t.At(xa, yb), t.At(xb, yb)
	var out RGBA
	for i := range out {
		bottom := c00[i] + (c10[i]-c00[i])*ax
		top := c01[i] + (c11[i]-c01[i])*ax
		out[i] = bottom + (top-bottom)*ay
	}
	return out
}

// Levels returns the number of mip levels including the base.
func (t *Texture) Levels() int {
	return 1 + len(t.mips)
}

// Level returns mip level i; level 0 is the texture itself.
func (t *Texture) Level(i int) *Texture {
	if i <= 0 {
		return t
	}
	return t.mips[min(i, len(t.mips))-1]
}

// GenerateMipmaps rebuilds the box-filtered mip chain down to 1x1.
func (t *Texture) GenerateMipmaps() {
	t.mips = t.mips[:0]
	parent := t
	for parent.W > 1 || parent.H > 1 {
		child := downsample(parent)
		t.mips = append(t.mips, child)
		parent = child
	}
}

// downsample averages 2x2 blocks of parent. Odd trailing rows and columns
// are dropped; a dimension of 1 is reused for both samples.
func downsample(parent *Texture) *Texture {
	cw, ch := max(parent.W/2, 1), max(parent.H/2, 1)
	child := NewTexture(cw, ch)

	dx := 4 // float offset to the right-hand texel of a block
	if parent.W == 1 {
		dx = 0
	}
	for y := 0; y < ch; y++ {
		rowA := 2 * y
		rowB := min(2*y+1, parent.H-1)
		dst := child.Pix[child.offset(0, y):]
		for _, row := range [2]int{rowA, rowB} {
			src := parent.Pix[parent.offset(0, row):]
			for c := 0; c < 4; c++ {
				acc := blas32.Vector{N: cw, Inc: 4, Data: dst[c:]}
				left := blas32.Vector{N: cw, Inc: 8, Data: src[c:]}
				right := blas32.Vector{N: cw, Inc: 8, Data: src[c+dx:]}
				blas32.Axpy(0.25, left, acc)
				blas32.Axpy(0.25, right, acc)
			}
		}
	}
	return child
}

// Trilinear samples uv at a fractional mip level of detail.
func (t *Texture) Trilinear(uv r2.Vec, lod float64) RGBA {
	if lod <= 0 || len(t.mips) == 0 {
		return t.Bilinear(uv)
	}
	maxLevel := float64(len(t.mips))
	if lod >= maxLevel {
		return t.Level(len(t.mips)).Bilinear(uv)
	}
	base := math.Floor(lod)
	a := t.Level(int(base)).Bilinear(uv)
	b := t.Level(int(base) + 1).Bilinear(uv)
	f := float32(lod - base)
	var out RGBA
	for i := range out {
		out[i] = a[i] + (b[i]-a[i])*f
	}
	return out
}

// Scaled returns a copy of the texture with every channel multiplied by k.
func (t *Texture) Scaled(k float32) *Texture {
	out := &Texture{W: t.W, H: t.H, Pix: make([]float32, len(t.Pix))}
	copy(out.Pix, t.Pix)
	blas32.Scal(k, blas32.Vector{N: len(out.Pix), Inc: 1, Data: out.Pix})
	return out
}

// Channel returns channel c of every texel as float64, bottom row first.
func (t *Texture) Channel(c int) []float64 {
	out := make([]float64, t.W*t.H)
	for i := range out {
		out[i] = float64(t.Pix[4*i+c])
	}
	return out
}
