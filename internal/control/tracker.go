package control

import (
	"math"

	"github.com/evzhukov/lanekeeper/internal/config"
	"github.com/evzhukov/lanekeeper/internal/vision"
)

// Tracker classifies segments into left/right sets and runs the
// turn-prediction state machine.
//
// Losing one boundary for a frame or two is routine (occlusion, worn paint)
// and must not flip the steering; losing it persistently is a geometric
// signal of a sharp turn ahead that the robot commits to before the line
// vanishes entirely.
type Tracker struct {
	cfg config.Tracker
}

// NewTracker creates a Tracker with the given parameters.
func NewTracker(cfg config.Tracker) *Tracker {
	return &Tracker{cfg: cfg}
}

// Update ingests one frame's segments (frame-global coordinates) and
// produces the raw steering decision, mutating st in place.
func (t *Tracker) Update(st *State, segments []vision.Segment, frameWidth float64) Decision {
	center := frameWidth / 2

	var left, right []vision.Segment
	for _, seg := range segments {
		if seg.MidX() < center {
			left = append(left, seg)
		} else {
			right = append(right, seg)
		}
	}

	if len(left) == 0 {
		st.LeftMissing++
	} else {
		st.LeftMissing = 0
	}
	if len(right) == 0 {
		st.RightMissing++
	} else {
		st.RightMissing = 0
	}

	var d Decision
	switch {
	case len(left) > 0 && len(right) > 0:
		d = t.bothPresent(st, meanMidX(left), meanMidX(right), center)
	case len(right) > 0:
		d = t.leftMissing(st, meanMidX(right), center)
	case len(left) > 0:
		d = t.rightMissing(st, meanMidX(left), center)
	default:
		d = t.bothMissing(st)
	}

	d.Steering = clamp(d.Steering, -1, 1)
	d.LinesSeen = len(segments) > 0
	d.Prediction = st.PredictionMode

	if math.Abs(d.Steering) > t.cfg.ValidThreshold {
		st.LastValidSteering = d.Steering
	}

	return d
}

// bothPresent steers toward the lane center and clears any active
// prediction.
func (t *Tracker) bothPresent(st *State, meanLeft, meanRight, center float64) Decision {
	st.PredictionMode = false
	st.PredictedDirection = DirectionNone

	laneCenter := (meanLeft + meanRight) / 2
	deviation := laneCenter - center
	steering := deviation / (0.5 * center)

	state := StateNormal
	switch {
	case meanRight-meanLeft < t.cfg.NarrowLanePx:
		state = StateNarrowing
	case math.Abs(deviation) > t.cfg.ShiftRatio*center:
		state = StateShifting
	}

	return Decision{Steering: steering, State: state}
}

// leftMissing handles a lone right line: commit to an early right turn once
// the left side has been gone long enough, otherwise hold a fixed lateral
// offset from the right line.
func (t *Tracker) leftMissing(st *State, meanRight, center float64) Decision {
	if st.LeftMissing >= t.cfg.DisappearFrames {
		st.PredictionMode = true
		st.PredictedDirection = DirectionRight

		// Two discrete magnitudes, not a ramp: the point is a decisive
		// commitment before the remaining line is lost as well.
		steering := t.cfg.ModerateTurn
		if meanRight > t.cfg.StrongTurnRatio*center {
			steering = t.cfg.StrongTurn
		}
		return Decision{Steering: steering, State: StateRightTurn}
	}

	target := meanRight - t.cfg.LaneOffsetPx
	steering := (target - center) / (0.5 * center)
	return Decision{Steering: steering, State: StateNormal}
}

// rightMissing mirrors leftMissing with negated signs.
func (t *Tracker) rightMissing(st *State, meanLeft, center float64) Decision {
	if st.RightMissing >= t.cfg.DisappearFrames {
		st.PredictionMode = true
		st.PredictedDirection = DirectionLeft

		steering := -t.cfg.ModerateTurn
		if meanLeft < (2-t.cfg.StrongTurnRatio)*center {
			steering = -t.cfg.StrongTurn
		}
		return Decision{Steering: steering, State: StateLeftTurn}
	}

	target := meanLeft + t.cfg.LaneOffsetPx
	steering := (target - center) / (0.5 * center)
	return Decision{Steering: steering, State: StateNormal}
}

// bothMissing either continues a committed turn open-loop or reports no
// lines at all.
func (t *Tracker) bothMissing(st *State) Decision {
	if st.PredictionMode && math.Abs(st.LastValidSteering) > t.cfg.MinCommit {
		steering := st.LastValidSteering * t.cfg.ContinueFactor
		state := StateContinueLeft
		if st.PredictedDirection == DirectionRight {
			state = StateContinueRight
		}
		return Decision{Steering: steering, State: state}
	}

	return Decision{Steering: 0, State: StateNoLines}
}

func meanMidX(segments []vision.Segment) float64 {
	var sum float64
	for _, seg := range segments {
		sum += seg.MidX()
	}
	return sum / float64(len(segments))
}
