// Shader debug tool - bakes the configured scene with the GPU shaders in a
// hidden window and writes the capture and caustics textures to PNG files.
//
// Usage: go run ./cmd/shaderdebug -config scene.yaml -out debug/
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/caustics/caustics"
	"github.com/pthm-cable/caustics/config"
	"github.com/pthm-cable/caustics/renderer"
	"github.com/pthm-cable/caustics/scene"
)

func main() {
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	outDir := flag.String("out", "debug", "Output directory")
	resolution := flag.Int("resolution", 0, "Buffer resolution (0 = use config)")
	backside := flag.Bool("backside", false, "Also bake back faces")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *resolution > 0 {
		cfg.Caustics.Resolution = *resolution
	}
	if *backside {
		cfg.Caustics.Backside = true
	}

	rl.SetConfigFlags(rl.FlagWindowHidden)
	rl.InitWindow(256, 256, "Shader Debug")
	defer rl.CloseWindow()

	if err := bake(cfg, *outDir, logger); err != nil {
		fmt.Fprintf(os.Stderr, "Bake failed: %v\n", err)
		os.Exit(1)
	}
}

func bake(cfg *config.Config, outDir string, logger *slog.Logger) error {
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return err
	}
	scn, err := scene.FromConfig(cfg.Scene)
	if err != nil {
		return err
	}
	params, err := caustics.ParamsFromConfig(cfg.Caustics, cfg.Scene.Ground.Height, scn)
	if err != nil {
		return err
	}

	host, err := renderer.New(renderer.WithLogger(logger))
	if err != nil {
		return err
	}
	defer host.Unload()

	pipeline, err := caustics.New(host, scn, params, caustics.WithLogger(logger))
	if err != nil {
		return err
	}
	defer pipeline.Release()

	if err := pipeline.Update(); err != nil {
		return err
	}

	captureFront, captureBack := pipeline.Captures()
	front, back := pipeline.Buffers()
	outputs := []struct {
		name   string
		target caustics.Target
	}{
		{"capture_front.png", captureFront},
		{"capture_back.png", captureBack},
		{"caustics_front.png", front},
		{"caustics_back.png", back},
	}
	for _, o := range outputs {
		path := filepath.Join(outDir, o.name)
		if err := host.ExportTexture(o.target, path); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", path)
	}
	return nil
}
