package telemetry

import (
	"log/slog"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// CoverageThreshold is the intensity above which a texel counts as lit.
const CoverageThreshold = 1e-4

// BufferStats summarises the intensity of one caustics buffer.
type BufferStats struct {
	Update int    `csv:"update"`
	Side   string `csv:"side"`

	Mean     float64 `csv:"mean"`
	Std      float64 `csv:"std"`
	Max      float64 `csv:"max"`
	P50      float64 `csv:"p50"`
	P99      float64 `csv:"p99"`
	Sum      float64 `csv:"sum"`
	Coverage float64 `csv:"coverage"` // Fraction of texels above CoverageThreshold

	// Percentiles over lit texels only, so small caustics are not drowned
	// by the unlit background.
	LitP50 float64 `csv:"lit_p50"`
	LitP99 float64 `csv:"lit_p99"`
}

// ComputeBufferStats summarises values, one intensity per texel. values is
// not modified.
func ComputeBufferStats(values []float64) BufferStats {
	n := len(values)
	if n == 0 {
		return BufferStats{}
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	var s BufferStats
	s.Mean, s.Std = stat.PopMeanStdDev(sorted, nil)
	s.Max = floats.Max(sorted)
	s.Sum = floats.Sum(sorted)
	s.P50 = stat.Quantile(0.50, stat.Empirical, sorted, nil)
	s.P99 = stat.Quantile(0.99, stat.Empirical, sorted, nil)

	// Sorted ascending, so lit texels form the tail.
	first := sort.SearchFloat64s(sorted, math.Nextafter(CoverageThreshold, math.Inf(1)))
	lit := sorted[first:]
	s.Coverage = float64(len(lit)) / float64(n)
	if len(lit) > 0 {
		s.LitP50 = stat.Quantile(0.50, stat.Empirical, lit, nil)
		s.LitP99 = stat.Quantile(0.99, stat.Empirical, lit, nil)
	}
	return s
}

// LogValue implements slog.LogValuer for structured logging.
func (s BufferStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("update", s.Update),
		slog.String("side", s.Side),
		slog.Float64("mean", s.Mean),
		slog.Float64("max", s.Max),
		slog.Float64("p50", s.P50),
		slog.Float64("p99", s.P99),
		slog.Float64("lit_p99", s.LitP99),
		slog.Float64("coverage", s.Coverage),
	)
}

// LogStats logs the buffer stats using slog.
func (s BufferStats) LogStats() {
	slog.Info("caustics",
		"update", s.Update,
		"side", s.Side,
		"mean", s.Mean,
		"std", s.Std,
		"max", s.Max,
		"p50", s.P50,
		"p99", s.P99,
		"lit_p50", s.LitP50,
		"lit_p99", s.LitP99,
		"coverage", s.Coverage,
	)
}
