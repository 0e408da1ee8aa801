package telemetry

import (
	"math"
	"testing"
)

func TestComputeBufferStats(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   BufferStats
	}{
		{"empty", nil, BufferStats{}},
		{"dark", []float64{0, 0, 0, 0}, BufferStats{}},
		{
			"partly lit",
			[]float64{3, 0, 0, 1, 0, 4, 0, 0, 2, 0},
			BufferStats{
				Mean: 1, Std: math.Sqrt2, Max: 4, Sum: 10,
				P50: 0, P99: 4, Coverage: 0.4, LitP50: 2, LitP99: 4,
			},
		},
		{
			"below threshold",
			[]float64{CoverageThreshold / 2, 1},
			BufferStats{
				Mean: (1 + CoverageThreshold/2) / 2, Std: (1 - CoverageThreshold/2) / 2,
				Max: 1, Sum: 1 + CoverageThreshold/2,
				P50: CoverageThreshold / 2, P99: 1, Coverage: 0.5, LitP50: 1, LitP99: 1,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeBufferStats(tt.values)
			check := func(field string, got, want float64) {
				if math.Abs(got-want) > 1e-9 {
					t.Errorf("%s = %v, want %v", field, got, want)
				}
			}
			check("mean", got.Mean, tt.want.Mean)
			check("std", got.Std, tt.want.Std)
			check("max", got.Max, tt.want.Max)
			check("sum", got.Sum, tt.want.Sum)
			check("p50", got.P50, tt.want.P50)
			check("p99", got.P99, tt.want.P99)
			check("coverage", got.Coverage, tt.want.Coverage)
			check("lit_p50", got.LitP50, tt.want.LitP50)
			check("lit_p99", got.LitP99, tt.want.LitP99)
		})
	}
}

func TestComputeBufferStatsKeepsInput(t *testing.T) {
	values := []float64{3, 1, 2}
	ComputeBufferStats(values)
	if values[0] != 3 || values[1] != 1 || values[2] != 2 {
		t.Errorf("input reordered: %v", values)
	}
}
