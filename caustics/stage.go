package caustics

// Stage is a step of one update.
type Stage uint8

const (
	StageIdle Stage = iota
	StageFitCamera
	StageCaptureFront
	StageCaptureBack
	StageEstimateFront
	StageEstimateBack
	StageComposite
	numStages
)

var stageNames = [numStages]string{
	"idle",
	"fit_camera",
	"capture_front",
	"capture_back",
	"estimate_front",
	"estimate_back",
	"composite",
}

func (s Stage) String() string {
	if s < numStages {
		return stageNames[s]
	}
	return "unknown"
}

// Passes counts how often each stage ran.
type Passes [numStages]int

// Captures returns the number of front capture passes, one per bake.
func (p Passes) Captures() int {
	return p[StageCaptureFront]
}

// Mode is the recompute cadence.
type Mode uint8

const (
	// Continuous bakes on every update.
	Continuous Mode = iota
	// Budgeted bakes on each update until the remaining budget runs out.
	Budgeted
	// Frozen reuses the last bake.
	Frozen
)

func (m Mode) String() string {
	switch m {
	case Continuous:
		return "continuous"
	case Budgeted:
		return "budgeted"
	default:
		return "frozen"
	}
}

// budget tracks the frame budget.
type budget struct {
	mode      Mode
	remaining int
}

func newBudget(frames int) budget {
	if frames < 0 {
		return budget{mode: Continuous}
	}
	return budget{mode: Budgeted, remaining: frames}
}

// due reports whether the next update should bake.
func (b budget) due() bool {
	return b.mode != Frozen
}

// consume records a finished bake. It reports whether the budget froze.
func (b *budget) consume() bool {
	if b.mode != Budgeted {
		return false
	}
	b.remaining--
	if b.remaining <= 0 {
		b.mode = Frozen
		b.remaining = 0
		return true
	}
	return false
}
