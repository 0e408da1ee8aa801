package game

import (
	"fmt"
	"path/filepath"

	"github.com/pthm-cable/caustics/softrender"
	"github.com/pthm-cable/caustics/telemetry"
)

// Image file names written by WriteImages.
const (
	FrontImage = "caustics_front.png"
	BackImage  = "caustics_back.png"
	FrameImage = "frame.png"
)

// UpdateHeadless advances the pipeline one frame and renders the view into
// the software framebuffer.
func (g *Game) UpdateHeadless() error {
	g.perf.StartUpdate()
	if err := g.caustics.Update(); err != nil {
		g.perf.EndUpdate()
		return fmt.Errorf("update %d: %w", g.update, err)
	}

	g.perf.StartPhase(telemetry.PhaseDraw)
	err := g.renderFrame()
	g.perf.EndUpdate()
	if err != nil {
		return err
	}
	g.perf.RecordFrame()

	g.update++
	g.flushTelemetry()
	return nil
}

// renderFrame draws the view into the cleared software framebuffer.
func (g *Game) renderFrame() error {
	if err := g.host.SetRenderTarget(nil); err != nil {
		return err
	}
	if err := g.host.Clear(); err != nil {
		return err
	}
	if err := g.drawView(); err != nil {
		return fmt.Errorf("drawing view: %w", err)
	}
	return nil
}

// WriteImages writes both caustics buffers and the rendered frame as PNGs
// into dir. Buffers are scaled by exposure before quantising.
func (g *Game) WriteImages(dir string, exposure float32) error {
	if g.soft == nil {
		return fmt.Errorf("images are only written by the software host")
	}
	front, back := g.caustics.Buffers()
	images := []struct {
		name     string
		tex      *softrender.Texture
		exposure float32
	}{
		{FrontImage, front.(*softrender.Target).Color, exposure},
		{BackImage, back.(*softrender.Target).Color, exposure},
		{FrameImage, g.soft.Screen().Color, 1},
	}
	for _, img := range images {
		path := filepath.Join(dir, img.name)
		if err := softrender.WritePNG(path, img.tex, img.exposure, 0); err != nil {
			return err
		}
		g.logger.Info("image written", "path", path)
	}
	return nil
}
