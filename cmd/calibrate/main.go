// Command calibrate searches the caustics intensity and world radius so the
// brightest lit texels of the configured scene hit a target brightness.
//
// Usage: go run ./cmd/calibrate -config scene.yaml -output calib/
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gocarina/gocsv"
	"gonum.org/v1/gonum/optimize"

	"github.com/pthm-cable/caustics/config"
)

// evalRecord is one row of calibrate_log.csv.
type evalRecord struct {
	Eval        int     `csv:"eval"`
	Fitness     float64 `csv:"fitness"`
	Intensity   float64 `csv:"intensity"`
	WorldRadius float64 `csv:"world_radius"`
	LitP99      float64 `csv:"lit_p99"`
	Coverage    float64 `csv:"coverage"`
	Max         float64 `csv:"max"`
}

func main() {
	configPath := flag.String("config", "", "Base config YAML file (empty = use defaults)")
	outputDir := flag.String("output", "", "Output directory for results")
	target := flag.Float64("target", 0, "Target lit P99 (0 = use config)")
	maxIter := flag.Int("max-iter", 0, "Maximum optimizer iterations (0 = use config)")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if *outputDir == "" {
		logger.Error("--output is required")
		os.Exit(1)
	}
	if err := run(*configPath, *outputDir, *target, *maxIter, logger); err != nil {
		logger.Error("calibration failed", "error", err)
		os.Exit(1)
	}
}

func run(configPath, outputDir string, target float64, maxIter int, logger *slog.Logger) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if target > 0 {
		cfg.Calibrate.TargetP99 = target
	}
	if maxIter > 0 {
		cfg.Calibrate.MaxIter = maxIter
	}

	params := NewParamVector()
	eval, err := NewEvaluator(params, cfg, logger)
	if err != nil {
		return err
	}
	defer eval.Close()

	var records []evalRecord
	best := evalRecord{Fitness: 1e9}
	start := time.Now()

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			f := eval.objective(x)
			raw := params.Clamp(params.Denormalize(x))
			s := eval.Last()
			rec := evalRecord{
				Eval:        len(records) + 1,
				Fitness:     f,
				Intensity:   raw[0],
				WorldRadius: raw[1],
				LitP99:      s.LitP99,
				Coverage:    s.Coverage,
				Max:         s.Max,
			}
			records = append(records, rec)
			if f < best.Fitness {
				best = rec
			}
			logger.Info("evaluation",
				"eval", rec.Eval,
				"fitness", f,
				"intensity", rec.Intensity,
				"world_radius", rec.WorldRadius,
				"lit_p99", rec.LitP99,
			)
			return f
		},
	}

	settings := &optimize.Settings{
		MajorIterations: cfg.Calibrate.MaxIter,
		FuncEvaluations: 4 * cfg.Calibrate.MaxIter,
	}
	initX := params.Normalize(params.Clamp(params.ExtractFromConfig(cfg)))

	logger.Info("starting calibration",
		"target_p99", cfg.Calibrate.TargetP99,
		"resolution", cfg.Calibrate.Resolution,
		"max_iter", cfg.Calibrate.MaxIter,
	)
	result, err := optimize.Minimize(problem, initX, settings, &optimize.NelderMead{})
	if err != nil {
		logger.Warn("optimization ended", "error", err)
	}
	if result != nil {
		logger.Info("optimizer finished", "status", result.Status.String())
	}
	if len(records) == 0 {
		return fmt.Errorf("no evaluations ran")
	}

	logPath := filepath.Join(outputDir, "calibrate_log.csv")
	f, err := os.Create(logPath)
	if err != nil {
		return fmt.Errorf("creating log: %w", err)
	}
	if err := gocsv.MarshalFile(&records, f); err != nil {
		f.Close()
		return fmt.Errorf("writing log: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}

	params.ApplyToConfig(cfg, []float64{best.Intensity, best.WorldRadius})
	configOutPath := filepath.Join(outputDir, "best_config.yaml")
	if err := cfg.WriteYAML(configOutPath); err != nil {
		return fmt.Errorf("writing best config: %w", err)
	}

	logger.Info("calibration complete",
		"evals", len(records),
		"elapsed", time.Since(start).Round(time.Millisecond).String(),
		"intensity", best.Intensity,
		"world_radius", best.WorldRadius,
		"lit_p99", best.LitP99,
		"config", configOutPath,
	)
	return nil
}
