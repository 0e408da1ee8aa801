package softrender

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"

	"golang.org/x/image/draw"
)

// Image converts t to 8-bit linear colour, scaling every channel by
// exposure and clamping. The top row of the image is the top of the texture.
func Image(t *Texture, exposure float32) *image.NRGBA {
	src := t
	if exposure != 1 {
		src = t.Scaled(exposure)
	}
	img := image.NewNRGBA(image.Rect(0, 0, t.W, t.H))
	for y := 0; y < t.H; y++ {
		for x := 0; x < t.W; x++ {
			c := src.At(x, t.H-1-y)
			img.SetNRGBA(x, y, color.NRGBA{R: to8(c[0]), G: to8(c[1]), B: to8(c[2]), A: 255})
		}
	}
	return img
}

func to8(v float32) uint8 {
	if !(v > 0) {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(math.Round(float64(v) * 255))
}

// WritePNG writes t to path. A positive width rescales the image to that
// width, keeping the aspect ratio.
func WritePNG(path string, t *Texture, exposure float32, width int) error {
	var img image.Image = Image(t, exposure)
	if width > 0 && width != t.W {
		height := max(1, width*t.H/t.W)
		scaled := image.NewNRGBA(image.Rect(0, 0, width, height))
		draw.CatmullRom.Scale(scaled, scaled.Bounds(), img, img.Bounds(), draw.Src, nil)
		img = scaled
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}
	return nil
}
