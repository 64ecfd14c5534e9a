package control

import "github.com/evzhukov/lanekeeper/internal/config"

// ShaperResult is the final shaped steering for one frame.
type ShaperResult struct {
	Steering float64

	// Halted is set once the no-line streak exceeds the tolerance window;
	// the robot must come to a full stop rather than keep extrapolating.
	Halted bool
}

// Shaper applies predictive amplification and temporal smoothing to the raw
// tracker decision. It owns no state of its own; all cross-frame memory
// lives in State.
type Shaper struct {
	cfg config.Shaper
}

// NewShaper creates a Shaper with the given parameters.
func NewShaper(cfg config.Shaper) *Shaper {
	return &Shaper{cfg: cfg}
}

// Shape amplifies committed turns, then smooths across frames. State is
// mutated in place; the previous output is retained for the next cycle on
// every branch.
func (sh *Shaper) Shape(st *State, d Decision) ShaperResult {
	steering := d.Steering

	switch d.State {
	case StateRightTurn, StateLeftTurn:
		steering = clamp(steering*sh.cfg.TurnGain, -1, 1)
	case StateContinueRight, StateContinueLeft:
		steering = clamp(steering*sh.cfg.ContinueGain, -1, 1)
	}

	var halted bool
	if !d.LinesSeen {
		st.NoLineStreak++
		switch {
		case st.NoLineStreak > sh.cfg.NoLineTolerance:
			// Tolerance exhausted: stop instead of guessing further.
			steering = 0
			halted = true
		case d.Prediction:
			// Hold the committed value while the turn plays out.
		default:
			steering = st.LastOutput * sh.cfg.DecayFactor
		}
	} else {
		st.NoLineStreak = 0
		weight := sh.cfg.SmoothWeight
		if d.Prediction {
			// Full responsiveness during a predicted turn; lag here means
			// overshooting into the missing boundary.
			weight = 0
		}
		steering = weight*st.LastOutput + (1-weight)*steering
	}

	st.LastOutput = steering

	return ShaperResult{Steering: steering, Halted: halted}
}
