package main

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/pthm-cable/caustics/caustics"
	"github.com/pthm-cable/caustics/config"
	"github.com/pthm-cable/caustics/scene"
	"github.com/pthm-cable/caustics/softrender"
	"github.com/pthm-cable/caustics/telemetry"
)

// radiusWeight pulls the world radius toward its starting value, since
// brightness alone does not pin down both parameters.
const radiusWeight = 0.01

// Evaluator bakes the configured scene on the software host and scores how
// far the lit P99 of the front caustics is from the target.
type Evaluator struct {
	params   *ParamVector
	target   float64
	radius0  float64
	host     *softrender.Host
	pipeline *caustics.Caustics
	base     caustics.Params

	last telemetry.BufferStats
}

// NewEvaluator builds the scene and pipeline once; every evaluation re-bakes
// with new parameters.
func NewEvaluator(params *ParamVector, cfg *config.Config, logger *slog.Logger) (*Evaluator, error) {
	scn, err := scene.FromConfig(cfg.Scene)
	if err != nil {
		return nil, fmt.Errorf("building scene: %w", err)
	}
	base, err := caustics.ParamsFromConfig(cfg.Caustics, cfg.Scene.Ground.Height, scn)
	if err != nil {
		return nil, err
	}
	base.Frames = caustics.ContinuousFrames
	if cfg.Calibrate.Resolution > 0 {
		base.Resolution = cfg.Calibrate.Resolution
	}

	host, err := softrender.New(base.Resolution, base.Resolution, softrender.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	pipeline, err := caustics.New(host, scn, base, caustics.WithLogger(logger))
	if err != nil {
		host.Close()
		return nil, err
	}
	return &Evaluator{
		params:   params,
		target:   cfg.Calibrate.TargetP99,
		radius0:  base.WorldRadius,
		host:     host,
		pipeline: pipeline,
		base:     base,
	}, nil
}

// Close releases the pipeline and the host.
func (e *Evaluator) Close() {
	e.pipeline.Release()
	e.host.Close()
}

// Evaluate scores raw parameter values (lower = better). A bake with no lit
// texels scores worse than any lit one.
func (e *Evaluator) Evaluate(raw []float64) (float64, error) {
	p := e.base
	e.params.ApplyToParams(&p, raw)
	if err := e.pipeline.SetParams(p); err != nil {
		return 0, err
	}
	if err := e.pipeline.Update(); err != nil {
		return 0, err
	}
	front, _ := e.pipeline.Buffers()
	values, err := e.host.Channel(front, 0)
	if err != nil {
		return 0, err
	}
	e.last = telemetry.ComputeBufferStats(values)

	if e.last.Coverage == 0 {
		return 1 + e.target*e.target, nil
	}
	d := e.last.LitP99 - e.target
	r := (p.WorldRadius - e.radius0) / e.radius0
	return d*d + radiusWeight*r*r, nil
}

// Last returns the buffer statistics of the most recent evaluation.
func (e *Evaluator) Last() telemetry.BufferStats {
	return e.last
}

// objective adapts Evaluate for the optimizer, which works on normalized
// values and has no error channel.
func (e *Evaluator) objective(x []float64) float64 {
	f, err := e.Evaluate(e.params.Denormalize(x))
	if err != nil {
		slog.Warn("evaluation failed", "error", err)
		return math.Inf(1)
	}
	return f
}
