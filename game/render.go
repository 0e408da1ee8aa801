package game

import (
	rl "github.com/gen2brain/raylib-go/raylib"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/caustics/scene"
	"github.com/pthm-cable/caustics/telemetry"
	"github.com/pthm-cable/caustics/ui"
)

const controlsLegend = "Drag: orbit | Right drag: pan | Wheel: zoom | Home: reset | Space: re-bake | C B F I P Tab: overlays"

var frustumColor = scene.Color{R: 1, G: 0.85, B: 0.2}

// Update handles input and advances the pipeline one frame. Draw must
// follow every Update.
func (g *Game) Update() {
	g.handleInput()
	g.perf.StartUpdate()
	if err := g.caustics.Update(); err != nil {
		g.logger.Error("caustics update failed", "update", g.update, "error", err)
	}
}

// Draw renders the frame and closes the update's timing.
func (g *Game) Draw() {
	g.perf.StartPhase(telemetry.PhaseDraw)

	rl.BeginDrawing()
	g.background.Draw()

	if err := g.drawView(); err != nil {
		g.logger.Error("drawing caustics failed", "error", err)
	}
	if lines, ok := g.caustics.FrustumLines(); ok {
		g.gpu.DrawLines(lines[:], frustumColor)
	}
	g.drawUI()

	rl.EndDrawing()

	g.perf.EndUpdate()
	g.perf.RecordFrame()
	g.update++
	g.flushTelemetry()
}

func (g *Game) drawUI() {
	mode, remaining := g.caustics.Mode()
	g.hud.Draw(ui.HUDData{
		Title:     "Caustics",
		Mode:      mode.String(),
		Remaining: remaining,
		Captures:  g.caustics.Passes().Captures(),
		Stage:     g.caustics.Stage().String(),
		Update:    g.update,
		FPS:       rl.GetFPS(),
		Baked:     g.caustics.Baked(),
	})
	g.hud.DrawControls(g.screenHeight, controlsLegend)

	if g.overlays.IsEnabled(ui.OverlayParams) {
		if p, changed := g.paramsPanel.Draw(g.caustics.Params()); changed {
			g.setParams(p)
		}
	} else {
		g.controlsPanel.Draw(g.overlays)
	}
	if g.overlays.IsEnabled(ui.OverlayPerf) {
		g.perfPanel.Draw(g.perf.Stats())
	}
	if g.overlays.IsEnabled(ui.OverlayBuffers) {
		g.inspector.Draw(ui.BufferInspectorData{
			Front:    g.frontStats,
			Back:     g.backStats,
			Backside: g.caustics.Params().Backside,
		})
	}
	g.drawLightMarker()
}

// drawLightMarker labels the light direction at the scene origin.
func (g *Game) drawLightMarker() {
	tip := r3.Add(g.scene.Origin, r3.Scale(2, g.toLight()))
	s, ok := g.camera.WorldToScreen(tip)
	if !ok {
		return
	}
	rl.DrawCircle(int32(s.X), int32(s.Y), 5, rl.Yellow)
	rl.DrawText("light", int32(s.X)+8, int32(s.Y)-6, 12, rl.Yellow)
}
