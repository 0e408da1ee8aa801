package ui

import (
	"fmt"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/caustics/telemetry"
)

// HUDData holds all the data needed to render the main HUD.
type HUDData struct {
	Title     string
	Mode      string // recompute cadence
	Remaining int    // bakes left when budgeted
	Captures  int
	Stage     string
	Update    int
	FPS       int32
	Baked     bool
}

// HUD renders the main heads-up display.
type HUD struct {
	renderer *Renderer
}

// NewHUD creates a new HUD renderer.
func NewHUD() *HUD {
	return &HUD{renderer: NewRenderer()}
}

// Draw renders the HUD.
func (h *HUD) Draw(data HUDData) {
	rl.DrawText(data.Title, 10, 10, 20, rl.White)

	mode := data.Mode
	if data.Mode == "budgeted" {
		mode = fmt.Sprintf("%s (%d left)", data.Mode, data.Remaining)
	}
	rl.DrawText(
		fmt.Sprintf("Mode: %s | Stage: %s | Captures: %d | Update: %d | FPS: %d", mode, data.Stage, data.Captures, data.Update, data.FPS),
		10, 35, 16, rl.LightGray,
	)
	if !data.Baked {
		rl.DrawText("No caustics baked", 10, 55, 16, rl.Yellow)
	}
}

// DrawControls renders the control legend at the bottom of the screen.
func (h *HUD) DrawControls(screenHeight int32, controls string) {
	rl.DrawText(controls, 10, screenHeight-25, 14, rl.Gray)
}

// PerfPanel renders the per-stage timing panel.
type PerfPanel struct {
	renderer *Renderer
	x, y     int32
}

// NewPerfPanel creates a new performance panel.
func NewPerfPanel(x, y int32) *PerfPanel {
	return &PerfPanel{renderer: NewRenderer(), x: x, y: y}
}

// SetPosition updates the panel position.
func (p *PerfPanel) SetPosition(x, y int32) {
	p.x, p.y = x, y
}

// Draw renders the stage timings in pipeline order.
func (p *PerfPanel) Draw(stats telemetry.PerfStats) {
	x, y := p.x, p.y

	rl.DrawText("Pipeline Performance", x, y, 16, rl.White)
	y += 20
	rl.DrawText(fmt.Sprintf("Update: %s  p99: %s  Bake: %s",
		stats.AvgUpdate.Round(time.Microsecond),
		stats.P99Update.Round(time.Microsecond),
		stats.AvgBake.Round(time.Microsecond),
	), x, y, 14, rl.Yellow)
	y += 16

	for _, phase := range telemetry.Phases {
		avg, ok := stats.PhaseAvg[phase]
		if !ok {
			continue
		}
		pct := stats.PhasePct[phase]
		color := rl.LightGray
		if pct > 40 {
			color = rl.Red
		} else if pct > 20 {
			color = rl.Orange
		}
		rl.DrawText(fmt.Sprintf("%-16s %8s %5.1f%%", phase, avg.Round(time.Microsecond), pct), x, y, 12, color)
		y += 14
	}
}
