package game

import (
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/caustics/ui"
)

const (
	orbitSpeed = 0.008 // radians per pixel of drag
	panelWidth = 260
)

// handleInput processes keyboard and mouse input.
func (g *Game) handleInput() {
	g.handleResize()

	if rl.IsKeyPressed(rl.KeyF11) {
		rl.ToggleFullscreen()
	}

	// Space re-arms the frame budget for a fresh bake.
	if rl.IsKeyPressed(rl.KeySpace) {
		g.caustics.Invalidate()
	}

	for _, key := range g.overlays.Keys() {
		if !rl.IsKeyPressed(key) {
			continue
		}
		if id, on, ok := g.overlays.HandleKeyPress(key); ok {
			g.applyOverlay(id, on)
		}
	}

	g.handleCameraInput()
}

// applyOverlay pushes pipeline toggles into the parameters.
func (g *Game) applyOverlay(id ui.OverlayID, on bool) {
	p := g.caustics.Params()
	switch id {
	case ui.OverlayCausticsOnly:
		p.CausticsOnly = on
	case ui.OverlayBackside:
		p.Backside = on
	case ui.OverlayFrustum:
		p.Debug = on
	default:
		return
	}
	g.setParams(p)
	g.logger.Info("overlay toggled", "overlay", string(id), "enabled", on)
}

// pointerOnUI reports whether the mouse is over an interactive panel.
func (g *Game) pointerOnUI() bool {
	if !g.overlays.IsEnabled(ui.OverlayParams) {
		return false
	}
	m := rl.GetMousePosition()
	return m.X < 10+panelWidth+10
}

// handleCameraInput orbits with the left button, pans with the right or
// middle button and zooms with the wheel.
func (g *Game) handleCameraInput() {
	if g.pointerOnUI() {
		return
	}
	delta := rl.GetMouseDelta()
	switch {
	case rl.IsMouseButtonDown(rl.MouseButtonLeft):
		g.camera.Orbit(-float64(delta.X)*orbitSpeed, float64(delta.Y)*orbitSpeed)
	case rl.IsMouseButtonDown(rl.MouseButtonRight), rl.IsMouseButtonDown(rl.MouseButtonMiddle):
		g.camera.Pan(float64(delta.X), float64(delta.Y))
	}

	if wheel := rl.GetMouseWheelMove(); wheel != 0 {
		g.camera.ZoomBy(1 + float64(wheel)*0.1)
	}
	if rl.IsKeyPressed(rl.KeyEqual) || rl.IsKeyPressed(rl.KeyKpAdd) {
		g.camera.ZoomBy(1.25)
	}
	if rl.IsKeyPressed(rl.KeyMinus) || rl.IsKeyPressed(rl.KeyKpSubtract) {
		g.camera.ZoomBy(0.8)
	}
	if rl.IsKeyPressed(rl.KeyHome) {
		g.camera.Reset()
	}
}
