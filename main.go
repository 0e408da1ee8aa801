package main

import (
	"flag"
	"log/slog"
	"os"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/caustics/config"
	"github.com/pthm-cable/caustics/game"
)

func main() {
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	headless := flag.Bool("headless", false, "Bake on the CPU without a window and write images")
	logStats := flag.Bool("log-stats", false, "Output buffer and perf stats via slog")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs, images and config snapshot")
	updates := flag.Int("updates", 1, "Headless: number of updates to run")
	exposure := flag.Float64("exposure", 4, "Headless: exposure applied to the caustics images")
	workers := flag.Int("workers", 0, "Headless: software rasterizer workers (0 = one per CPU)")
	maxUpdates := flag.Int("max-updates", 0, "Windowed: stop after N updates (0 = unlimited)")

	flag.Parse()

	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	opts := game.Options{
		Headless:  *headless,
		OutputDir: *outputDir,
		LogStats:  *logStats,
		Workers:   *workers,
		Logger:    logger,
	}

	if *headless {
		if err := runHeadless(opts, *updates, float32(*exposure)); err != nil {
			slog.Error("headless run failed", "error", err)
			os.Exit(1)
		}
		return
	}

	rl.SetConfigFlags(rl.FlagWindowResizable | rl.FlagMsaa4xHint)
	rl.InitWindow(int32(cfg.Screen.Width), int32(cfg.Screen.Height), "Caustics")
	defer rl.CloseWindow()
	rl.SetTargetFPS(int32(cfg.Screen.TargetFPS))

	g, err := game.NewGameWithOptions(opts)
	if err != nil {
		slog.Error("failed to start", "error", err)
		return
	}
	defer g.Unload()

	for !rl.WindowShouldClose() {
		g.Update()
		g.Draw()

		if *maxUpdates > 0 && g.Updates() >= *maxUpdates {
			break
		}
	}
}

func runHeadless(opts game.Options, updates int, exposure float32) error {
	g, err := game.NewGameWithOptions(opts)
	if err != nil {
		return err
	}
	defer g.Unload()

	slog.Info("starting headless bake", "updates", updates)
	for g.Updates() < updates {
		if err := g.UpdateHeadless(); err != nil {
			return err
		}
	}

	dir := opts.OutputDir
	if dir == "" {
		dir = config.Cfg().Telemetry.OutputDir
	}
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return g.WriteImages(dir, exposure)
}
