package game

import (
	"fmt"
	"log/slog"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/caustics/camera"
	"github.com/pthm-cable/caustics/caustics"
	"github.com/pthm-cable/caustics/config"
	"github.com/pthm-cable/caustics/renderer"
	"github.com/pthm-cable/caustics/scene"
	"github.com/pthm-cable/caustics/softrender"
	"github.com/pthm-cable/caustics/telemetry"
	"github.com/pthm-cable/caustics/ui"
)

// skyColor is the zenith colour of the viewer background.
var skyColor = scene.Color{R: 0.32, G: 0.42, B: 0.55}

// NewGameWithOptions builds the scene and pipeline from the global config.
// Windowed games must be created after rl.InitWindow.
func NewGameWithOptions(opts Options) (*Game, error) {
	cfg := config.Cfg()
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	g := &Game{
		cfg:          cfg,
		logger:       logger,
		logStats:     opts.LogStats,
		headless:     opts.Headless,
		perf:         telemetry.NewPerfCollector(cfg.Telemetry.PerfWindow),
		screenWidth:  int32(cfg.Screen.Width),
		screenHeight: int32(cfg.Screen.Height),
	}

	scn, err := scene.FromConfig(cfg.Scene)
	if err != nil {
		return nil, fmt.Errorf("building scene: %w", err)
	}
	g.scene = scn

	params, err := caustics.ParamsFromConfig(cfg.Caustics, cfg.Scene.Ground.Height, scn)
	if err != nil {
		return nil, err
	}

	g.camera = camera.New(cfg.View, float64(cfg.Screen.Width), float64(cfg.Screen.Height))

	if err := g.newHost(opts); err != nil {
		return nil, err
	}

	g.caustics, err = caustics.New(g.host, scn, params,
		caustics.WithLogger(logger),
		caustics.WithPhaseTimer(g.perf),
	)
	if err != nil {
		g.Unload()
		return nil, err
	}

	outputDir := cfg.Telemetry.OutputDir
	if opts.OutputDir != "" {
		outputDir = opts.OutputDir
	}
	if g.output, err = telemetry.NewOutputManager(outputDir); err != nil {
		g.Unload()
		return nil, err
	}
	if err := g.output.WriteConfig(cfg); err != nil {
		logger.Error("failed to write config snapshot", "error", err)
	}

	if !opts.Headless {
		g.initUI(params)
	}

	logger.Info("game created",
		"headless", opts.Headless,
		"refractive", scn.RefractiveCount(),
		"output_dir", g.output.Dir(),
	)
	return g, nil
}

func (g *Game) newHost(opts Options) error {
	if opts.Headless {
		soft, err := softrender.New(g.cfg.Screen.Width, g.cfg.Screen.Height,
			softrender.WithWorkers(opts.Workers),
			softrender.WithLogger(g.logger),
		)
		if err != nil {
			return fmt.Errorf("creating software host: %w", err)
		}
		g.soft, g.host = soft, soft
		return nil
	}
	gpu, err := renderer.New(renderer.WithLogger(g.logger))
	if err != nil {
		return fmt.Errorf("creating GPU host: %w", err)
	}
	g.gpu, g.host = gpu, gpu
	return nil
}

// initUI creates the panels and syncs the overlay toggles with p.
func (g *Game) initUI(p caustics.Params) {
	g.background = renderer.NewBackgroundRenderer(g.screenWidth, g.screenHeight, skyColor)
	if err := g.background.Init(); err != nil {
		g.logger.Warn("background shader unavailable", "error", err)
	}

	g.overlays = ui.NewOverlayRegistry()
	g.overlays.SetEnabled(ui.OverlayCausticsOnly, p.CausticsOnly)
	g.overlays.SetEnabled(ui.OverlayBackside, p.Backside)
	g.overlays.SetEnabled(ui.OverlayFrustum, p.Debug)

	g.hud = ui.NewHUD()
	g.controlsPanel = ui.NewControlsPanel(10, 80, 220)
	g.paramsPanel = ui.NewParamsPanel(10, 80, panelWidth)
	g.perfPanel = ui.NewPerfPanel(g.screenWidth-300, 10)
	g.inspector = ui.NewBufferInspector(g.screenWidth-230, 200, 220)
}

// Unload releases the pipeline, the host and the output files.
func (g *Game) Unload() {
	if g.caustics != nil {
		g.caustics.Release()
	}
	if g.background != nil {
		g.background.Unload()
	}
	if g.gpu != nil {
		g.gpu.Unload()
	}
	if g.soft != nil {
		g.soft.Close()
	}
	if err := g.output.Close(); err != nil {
		g.logger.Error("failed to close output files", "error", err)
	}
}

// handleResize propagates a window resize.
func (g *Game) handleResize() {
	if !rl.IsWindowResized() {
		return
	}
	w, h := int32(rl.GetScreenWidth()), int32(rl.GetScreenHeight())
	if w == g.screenWidth && h == g.screenHeight {
		return
	}
	g.screenWidth, g.screenHeight = w, h
	g.camera.Resize(float64(w), float64(h))
	g.background.Resize(w, h)
	g.perfPanel.SetPosition(w-300, 10)
	g.inspector.SetPosition(w-230, 200)
}
