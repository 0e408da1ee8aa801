// Package game runs the caustics pipeline over a configured scene, either in
// a raylib window with interactive controls or headless on the software host.
package game

import (
	"log/slog"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/caustics/camera"
	"github.com/pthm-cable/caustics/caustics"
	"github.com/pthm-cable/caustics/config"
	"github.com/pthm-cable/caustics/geom"
	"github.com/pthm-cable/caustics/renderer"
	"github.com/pthm-cable/caustics/scene"
	"github.com/pthm-cable/caustics/softrender"
	"github.com/pthm-cable/caustics/telemetry"
	"github.com/pthm-cable/caustics/ui"
)

// viewHost is a caustics host that can also draw the scene for a viewer.
type viewHost interface {
	caustics.Host
	SetView(viewProjection geom.Mat4)
	SetLight(toLight r3.Vec)
	RenderSurfaces(scn *scene.Scene)
	RenderRefractive(scn *scene.Scene)
	Channel(t caustics.Target, c int) ([]float64, error)
}

// Options configures a Game.
type Options struct {
	Headless  bool   // software host, no window
	OutputDir string // CSV telemetry and images; overrides the config
	LogStats  bool   // log buffer and perf stats
	Workers   int    // software host workers, 0 = one per CPU
	Logger    *slog.Logger
}

// Game holds the scene, the pipeline and the viewer state.
type Game struct {
	cfg    *config.Config
	logger *slog.Logger

	scene    *scene.Scene
	camera   *camera.Camera
	caustics *caustics.Caustics
	host     viewHost
	soft     *softrender.Host // headless only
	gpu      *renderer.Host   // windowed only

	perf     *telemetry.PerfCollector
	output   *telemetry.OutputManager
	logStats bool

	update     int
	frontStats telemetry.BufferStats
	backStats  telemetry.BufferStats

	// Windowed mode
	headless      bool
	background    *renderer.BackgroundRenderer
	overlays      *ui.OverlayRegistry
	hud           *ui.HUD
	controlsPanel *ui.ControlsPanel
	paramsPanel   *ui.ParamsPanel
	perfPanel     *ui.PerfPanel
	inspector     *ui.BufferInspector
	screenWidth   int32
	screenHeight  int32
}

// Updates returns the number of finished updates.
func (g *Game) Updates() int { return g.update }

// Caustics returns the pipeline.
func (g *Game) Caustics() *caustics.Caustics { return g.caustics }

// Scene returns the scene.
func (g *Game) Scene() *scene.Scene { return g.scene }

// BufferStats returns the statistics of the last telemetry flush.
func (g *Game) BufferStats() (front, back telemetry.BufferStats) {
	return g.frontStats, g.backStats
}

// Perf returns the perf collector.
func (g *Game) Perf() *telemetry.PerfCollector { return g.perf }

// setParams applies p to the pipeline, logging rejected values.
func (g *Game) setParams(p caustics.Params) {
	if err := g.caustics.SetParams(p); err != nil {
		g.logger.Warn("parameters rejected", "error", err)
	}
}

// toLight is the shading direction for view renders.
func (g *Game) toLight() r3.Vec {
	if d, ok := g.caustics.Params().Light.ToLight(g.scene.Origin); ok {
		return d
	}
	return r3.Vec{Y: 1}
}

// drawView renders the scene from the orbit camera into the bound target:
// surfaces, then the caustics receiver, then the refractive objects.
func (g *Game) drawView() error {
	g.host.SetView(g.camera.ViewProjection())
	g.host.SetLight(g.toLight())
	g.host.RenderSurfaces(g.scene)
	if err := g.caustics.Draw(); err != nil {
		return err
	}
	if g.caustics.DrawRefractive() {
		g.host.RenderRefractive(g.scene)
	}
	return nil
}
