package game

import (
	"fmt"
	"log/slog"

	"github.com/pthm-cable/caustics/caustics"
	"github.com/pthm-cable/caustics/telemetry"
	"github.com/pthm-cable/caustics/ui"
)

// wantsStats reports whether anything consumes buffer statistics. Reading
// GPU buffers back is not free, so nothing is computed otherwise.
func (g *Game) wantsStats() bool {
	if g.logStats || g.output != nil {
		return true
	}
	return g.overlays != nil && g.overlays.IsEnabled(ui.OverlayBuffers)
}

// flushTelemetry samples the caustics buffers and the perf window every
// StatsEvery updates and logs or writes them.
func (g *Game) flushTelemetry() {
	every := g.cfg.Telemetry.StatsEvery
	if every <= 0 || g.update%every != 0 || !g.wantsStats() {
		return
	}
	if !g.caustics.Baked() {
		return
	}

	front, back := g.caustics.Buffers()
	var err error
	if g.frontStats, err = g.bufferStats(front, "front"); err != nil {
		g.logger.Error("failed to read caustics buffer", "side", "front", "error", err)
		return
	}
	if g.backStats, err = g.bufferStats(back, "back"); err != nil {
		g.logger.Error("failed to read caustics buffer", "side", "back", "error", err)
		return
	}
	perfStats := g.perf.Stats()

	if g.logStats {
		g.logger.Info("buffers",
			slog.Int("update", g.update),
			slog.Any("front", g.frontStats),
			slog.Any("back", g.backStats),
		)
		g.logger.Info("perf", slog.Int("update", g.update), slog.Any("stats", perfStats))
	}

	if err := g.output.WriteFrame(g.frontStats, g.backStats); err != nil {
		g.logger.Error("failed to write frame stats", "error", err)
	}
	if err := g.output.WritePerf(perfStats, g.update); err != nil {
		g.logger.Error("failed to write perf", "error", err)
	}
}

// bufferStats summarises the red channel of t, where the estimator writes
// intensity.
func (g *Game) bufferStats(t caustics.Target, side string) (telemetry.BufferStats, error) {
	values, err := g.host.Channel(t, 0)
	if err != nil {
		return telemetry.BufferStats{}, fmt.Errorf("reading %s buffer: %w", side, err)
	}
	s := telemetry.ComputeBufferStats(values)
	s.Update = g.update
	s.Side = side
	return s, nil
}
