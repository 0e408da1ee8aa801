package telemetry

import (
	"log/slog"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"
)

// Phase names for one pipeline update. They match caustics.Stage names so a
// PerfCollector can be handed to the pipeline as its phase timer.
const (
	PhaseFitCamera     = "fit_camera"
	PhaseCaptureFront  = "capture_front"
	PhaseCaptureBack   = "capture_back"
	PhaseEstimateFront = "estimate_front"
	PhaseEstimateBack  = "estimate_back"
	PhaseComposite     = "composite"
	PhaseDraw          = "draw"
)

// Phases lists the phases in pipeline order.
var Phases = []string{
	PhaseFitCamera, PhaseCaptureFront, PhaseCaptureBack,
	PhaseEstimateFront, PhaseEstimateBack, PhaseComposite, PhaseDraw,
}

// PerfSample holds timing data for a single update.
type PerfSample struct {
	Duration time.Duration
	Phases   map[string]time.Duration
	Baked    bool
}

// PerfCollector tracks update timings over a rolling window.
type PerfCollector struct {
	windowSize    int
	samples       []PerfSample
	writeIndex    int
	sampleCount   int
	currentPhases map[string]time.Duration
	updateStart   time.Time
	phaseStart    time.Time
	lastPhase     string
	now           func() time.Time

	lastFrameTime time.Time
	frameDuration time.Duration
}

// NewPerfCollector creates a collector averaging over windowSize updates.
func NewPerfCollector(windowSize int) *PerfCollector {
	if windowSize < 1 {
		windowSize = 60
	}
	return &PerfCollector{
		windowSize:    windowSize,
		samples:       make([]PerfSample, windowSize),
		currentPhases: make(map[string]time.Duration),
		now:           time.Now,
	}
}

// StartUpdate begins timing a pipeline update.
func (p *PerfCollector) StartUpdate() {
	p.updateStart = p.now()
	p.currentPhases = make(map[string]time.Duration)
	p.lastPhase = ""
}

// StartPhase ends the running phase, if any, and starts timing phase.
func (p *PerfCollector) StartPhase(phase string) {
	now := p.now()
	if p.lastPhase != "" {
		p.currentPhases[p.lastPhase] += now.Sub(p.phaseStart)
	}
	p.phaseStart = now
	p.lastPhase = phase
}

// EndUpdate closes the running phase and records the sample.
func (p *PerfCollector) EndUpdate() {
	now := p.now()
	if p.lastPhase != "" {
		p.currentPhases[p.lastPhase] += now.Sub(p.phaseStart)
	}
	_, baked := p.currentPhases[PhaseFitCamera]

	p.samples[p.writeIndex] = PerfSample{
		Duration: now.Sub(p.updateStart),
		Phases:   p.currentPhases,
		Baked:    baked,
	}
	p.writeIndex = (p.writeIndex + 1) % p.windowSize
	if p.sampleCount < p.windowSize {
		p.sampleCount++
	}
	p.lastPhase = ""
}

// RecordFrame records frame timing for the interactive viewer.
func (p *PerfCollector) RecordFrame() {
	now := p.now()
	if !p.lastFrameTime.IsZero() {
		p.frameDuration = now.Sub(p.lastFrameTime)
	}
	p.lastFrameTime = now
}

// PerfStats holds aggregated performance statistics.
type PerfStats struct {
	Updates int
	Bakes   int

	AvgUpdate time.Duration
	MaxUpdate time.Duration
	P99Update time.Duration
	AvgBake   time.Duration // average over updates that baked

	// Average phase durations and their share of the average update
	PhaseAvg map[string]time.Duration
	PhasePct map[string]float64

	FrameDuration time.Duration
	FPS           float64
}

// Stats aggregates the current window.
func (p *PerfCollector) Stats() PerfStats {
	s := PerfStats{
		PhaseAvg:      make(map[string]time.Duration),
		PhasePct:      make(map[string]float64),
		FrameDuration: p.frameDuration,
	}
	if p.frameDuration > 0 {
		s.FPS = float64(time.Second) / float64(p.frameDuration)
	}
	if p.sampleCount == 0 {
		return s
	}

	durations := make([]float64, 0, p.sampleCount)
	var total, bakeTotal time.Duration
	phaseSum := make(map[string]time.Duration)
	for _, sample := range p.samples[:p.sampleCount] {
		total += sample.Duration
		s.MaxUpdate = max(s.MaxUpdate, sample.Duration)
		durations = append(durations, float64(sample.Duration))
		if sample.Baked {
			s.Bakes++
			bakeTotal += sample.Duration
		}
		for phase, d := range sample.Phases {
			phaseSum[phase] += d
		}
	}
	s.Updates = p.sampleCount
	s.AvgUpdate = total / time.Duration(p.sampleCount)
	if s.Bakes > 0 {
		s.AvgBake = bakeTotal / time.Duration(s.Bakes)
	}
	sort.Float64s(durations)
	s.P99Update = time.Duration(stat.Quantile(0.99, stat.Empirical, durations, nil))

	for phase, sum := range phaseSum {
		s.PhaseAvg[phase] = sum / time.Duration(p.sampleCount)
		if s.AvgUpdate > 0 {
			s.PhasePct[phase] = float64(s.PhaseAvg[phase]) / float64(s.AvgUpdate) * 100
		}
	}
	return s
}

// LogStats logs performance statistics.
func (s PerfStats) LogStats() {
	attrs := []any{
		"updates", s.Updates,
		"bakes", s.Bakes,
		"avg_update_us", s.AvgUpdate.Microseconds(),
		"p99_update_us", s.P99Update.Microseconds(),
		"avg_bake_us", s.AvgBake.Microseconds(),
	}
	if s.FPS > 0 {
		attrs = append(attrs, "fps", int(s.FPS))
	}
	for _, phase := range Phases {
		if pct, ok := s.PhasePct[phase]; ok && pct > 0.1 {
			attrs = append(attrs, phase+"_pct", int(pct*10)/10.0)
		}
	}
	slog.Info("perf", attrs...)
}

// LogValue implements slog.LogValuer for structured logging.
func (s PerfStats) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int("updates", s.Updates),
		slog.Int("bakes", s.Bakes),
		slog.Int64("avg_update_us", s.AvgUpdate.Microseconds()),
		slog.Int64("max_update_us", s.MaxUpdate.Microseconds()),
	}
	if s.FPS > 0 {
		attrs = append(attrs, slog.Float64("fps", s.FPS))
	}
	for _, phase := range Phases {
		if d, ok := s.PhaseAvg[phase]; ok {
			attrs = append(attrs, slog.Int64(phase+"_us", d.Microseconds()))
		}
	}
	return slog.GroupValue(attrs...)
}

// PerfStatsCSV is a flat struct for CSV export of performance stats.
type PerfStatsCSV struct {
	Update          int     `csv:"update"`
	Updates         int     `csv:"updates"`
	Bakes           int     `csv:"bakes"`
	AvgUpdateUS     int64   `csv:"avg_update_us"`
	MaxUpdateUS     int64   `csv:"max_update_us"`
	P99UpdateUS     int64   `csv:"p99_update_us"`
	AvgBakeUS       int64   `csv:"avg_bake_us"`
	FPS             float64 `csv:"fps"`
	FitCameraUS     int64   `csv:"fit_camera_us"`
	CaptureFrontUS  int64   `csv:"capture_front_us"`
	CaptureBackUS   int64   `csv:"capture_back_us"`
	EstimateFrontUS int64   `csv:"estimate_front_us"`
	EstimateBackUS  int64   `csv:"estimate_back_us"`
	CompositeUS     int64   `csv:"composite_us"`
	DrawUS          int64   `csv:"draw_us"`
}

// ToCSV flattens the stats for the window ending at update.
func (s PerfStats) ToCSV(update int) PerfStatsCSV {
	us := func(phase string) int64 { return s.PhaseAvg[phase].Microseconds() }
	return PerfStatsCSV{
		Update:          update,
		Updates:         s.Updates,
		Bakes:           s.Bakes,
		AvgUpdateUS:     s.AvgUpdate.Microseconds(),
		MaxUpdateUS:     s.MaxUpdate.Microseconds(),
		P99UpdateUS:     s.P99Update.Microseconds(),
		AvgBakeUS:       s.AvgBake.Microseconds(),
		FPS:             s.FPS,
		FitCameraUS:     us(PhaseFitCamera),
		CaptureFrontUS:  us(PhaseCaptureFront),
		CaptureBackUS:   us(PhaseCaptureBack),
		EstimateFrontUS: us(PhaseEstimateFront),
		EstimateBackUS:  us(PhaseEstimateBack),
		CompositeUS:     us(PhaseComposite),
		DrawUS:          us(PhaseDraw),
	}
}
