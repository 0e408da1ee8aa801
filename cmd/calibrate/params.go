package main

import (
	"github.com/pthm-cable/caustics/caustics"
	"github.com/pthm-cable/caustics/config"
)

// ParamSpec defines a single calibrated parameter.
type ParamSpec struct {
	Name string  // Human-readable name
	Path string  // Config path for logging
	Min  float64 // Lower bound
	Max  float64 // Upper bound
}

// ParamVector holds the calibrated parameters. The optimizer works on
// values normalized to [0,1].
type ParamVector struct {
	Specs []ParamSpec
}

// NewParamVector creates the calibrated parameter set.
func NewParamVector() *ParamVector {
	return &ParamVector{
		Specs: []ParamSpec{
			{Name: "intensity", Path: "caustics.intensity", Min: 0.001, Max: 1.0},
			{Name: "world_radius", Path: "caustics.world_radius", Min: 0.02, Max: 2.0},
		},
	}
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// Normalize converts raw parameter values to [0,1] range.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	normalized := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		normalized[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
	}
	return normalized
}

// Denormalize converts [0,1] values back to raw parameter values.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	raw := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		raw[i] = spec.Min + normalized[i]*(spec.Max-spec.Min)
	}
	return raw
}

// Clamp ensures all values are within bounds.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	clamped := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		clamped[i] = min(max(v[i], spec.Min), spec.Max)
	}
	return clamped
}

// ApplyToParams sets the clamped values on p. Order matches Specs.
func (pv *ParamVector) ApplyToParams(p *caustics.Params, values []float64) {
	clamped := pv.Clamp(values)
	p.Intensity = clamped[0]
	p.WorldRadius = clamped[1]
}

// ApplyToConfig sets the clamped values on cfg.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) {
	clamped := pv.Clamp(values)
	cfg.Caustics.Intensity = clamped[0]
	cfg.Caustics.WorldRadius = clamped[1]
}

// ExtractFromConfig returns the current values from cfg.
func (pv *ParamVector) ExtractFromConfig(cfg *config.Config) []float64 {
	return []float64{cfg.Caustics.Intensity, cfg.Caustics.WorldRadius}
}
