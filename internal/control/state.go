package control

// State is the only cross-frame mutable state in the controller. It is
// created once at startup and mutated exactly once per cycle, first by the
// tracker and then by the shaper; cycles never overlap, so no locking.
type State struct {
	// Consecutive frames each side produced zero segments.
	LeftMissing  int
	RightMissing int

	// PredictionMode is true while a predicted turn is active. It is
	// cleared the first frame both sides are present again.
	PredictionMode     bool
	PredictedDirection Direction

	// LastValidSteering is the last steering whose magnitude cleared the
	// validity threshold; it anchors the open-loop continue scenario.
	LastValidSteering float64

	// Smoothing state.
	LastOutput   float64
	NoLineStreak int
}

// NewState returns a zeroed controller state.
func NewState() *State {
	return &State{}
}

// Reset returns the state to its startup condition.
func (st *State) Reset() {
	*st = State{}
}
