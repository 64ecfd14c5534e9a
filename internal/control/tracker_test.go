package control

import (
	"math"
	"testing"

	"github.com/evzhukov/lanekeeper/internal/config"
	"github.com/evzhukov/lanekeeper/internal/vision"
)

const trackerFrameWidth = 640

// vseg builds a vertical segment whose midpoint sits at x.
func vseg(x float64) vision.Segment {
	return vision.Segment{X1: x, Y1: 260, X2: x, Y2: 400}
}

func newTestTracker() *Tracker {
	return NewTracker(config.Default().Tracker)
}

func TestTracker_BothPresent(t *testing.T) {
	tests := []struct {
		name         string
		leftX        float64
		rightX       float64
		wantSteering float64
		wantState    TurnState
	}{
		{
			name:         "centered lane",
			leftX:        160,
			rightX:       480,
			wantSteering: 0,
			wantState:    StateNormal,
		},
		{
			name:         "slight right offset",
			leftX:        200,
			rightX:       520,
			wantSteering: 0.25,
			wantState:    StateNormal,
		},
		{
			name:         "slight left offset",
			leftX:        120,
			rightX:       440,
			wantSteering: -0.25,
			wantState:    StateNormal,
		},
		{
			name:         "narrowing lane",
			leftX:        260,
			rightX:       380,
			wantSteering: 0,
			wantState:    StateNarrowing,
		},
		{
			name:         "shifting lane clamps steering",
			leftX:        360,
			rightX:       640,
			wantSteering: 1.0,
			wantState:    StateShifting,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := newTestTracker()
			st := NewState()

			d := tr.Update(st, []vision.Segment{vseg(tt.leftX), vseg(tt.rightX)}, trackerFrameWidth)

			if math.Abs(d.Steering-tt.wantSteering) > 1e-9 {
				t.Errorf("Steering = %f, want %f", d.Steering, tt.wantSteering)
			}
			if d.State != tt.wantState {
				t.Errorf("State = %s, want %s", d.State, tt.wantState)
			}
			if !d.LinesSeen {
				t.Error("LinesSeen = false with both boundaries present")
			}
			if d.Prediction {
				t.Error("Prediction = true with both boundaries present")
			}
		})
	}
}

func TestTracker_ClassifiesByMidpoint(t *testing.T) {
	tr := newTestTracker()
	st := NewState()

	// A diagonal segment whose midpoint is just left of center belongs to
	// the left boundary even though one endpoint crosses it.
	left := vision.Segment{X1: 300, Y1: 260, X2: 330, Y2: 400} // midpoint 315
	right := vseg(480)

	d := tr.Update(st, []vision.Segment{left, right}, trackerFrameWidth)

	if st.LeftMissing != 0 || st.RightMissing != 0 {
		t.Errorf("missing counters = (%d, %d), want (0, 0)", st.LeftMissing, st.RightMissing)
	}
	if d.State != StateNormal && d.State != StateNarrowing && d.State != StateShifting {
		t.Errorf("State = %s, want a both-present state", d.State)
	}
}

func TestTracker_LeftMissing_FollowsOffsetBeforeCommit(t *testing.T) {
	tr := newTestTracker()
	st := NewState()

	// 4 one-sided frames: below the 5-frame threshold, so the tracker holds
	// a fixed offset from the surviving right line instead of committing.
	for i := 0; i < 4; i++ {
		d := tr.Update(st, []vision.Segment{vseg(512)}, trackerFrameWidth)

		if d.State != StateNormal {
			t.Fatalf("frame %d: State = %s, want NORMAL", i+1, d.State)
		}
		// target = 512 - 160 = 352, steering = (352-320)/160 = 0.2
		if math.Abs(d.Steering-0.2) > 1e-9 {
			t.Fatalf("frame %d: Steering = %f, want 0.2", i+1, d.Steering)
		}
		if d.Prediction {
			t.Fatalf("frame %d: Prediction = true before the disappear threshold", i+1)
		}
	}

	if st.LeftMissing != 4 {
		t.Errorf("LeftMissing = %d, want 4", st.LeftMissing)
	}
}

func TestTracker_LeftMissing_CommitsAtThreshold(t *testing.T) {
	tests := []struct {
		name         string
		rightX       float64
		wantSteering float64
	}{
		{
			name:         "strong turn when line is far right",
			rightX:       480, // > 1.1 * 320
			wantSteering: 0.8,
		},
		{
			name:         "moderate turn otherwise",
			rightX:       340,
			wantSteering: 0.6,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := newTestTracker()
			st := NewState()

			var d Decision
			for i := 0; i < 5; i++ {
				d = tr.Update(st, []vision.Segment{vseg(tt.rightX)}, trackerFrameWidth)
			}

			if d.State != StateRightTurn {
				t.Errorf("State = %s, want RIGHT_TURN", d.State)
			}
			if math.Abs(d.Steering-tt.wantSteering) > 1e-9 {
				t.Errorf("Steering = %f, want %f", d.Steering, tt.wantSteering)
			}
			if !d.Prediction {
				t.Error("Prediction = false after commit")
			}
			if st.PredictedDirection != DirectionRight {
				t.Errorf("PredictedDirection = %s, want RIGHT", st.PredictedDirection)
			}
		})
	}
}

func TestTracker_RightMissing_CommitsAtThreshold(t *testing.T) {
	tests := []struct {
		name         string
		leftX        float64
		wantSteering float64
	}{
		{
			name:         "strong turn when line is far left",
			leftX:        160, // < (2 - 1.1) * 320
			wantSteering: -0.8,
		},
		{
			name:         "moderate turn otherwise",
			leftX:        300,
			wantSteering: -0.6,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := newTestTracker()
			st := NewState()

			var d Decision
			for i := 0; i < 5; i++ {
				d = tr.Update(st, []vision.Segment{vseg(tt.leftX)}, trackerFrameWidth)
			}

			if d.State != StateLeftTurn {
				t.Errorf("State = %s, want LEFT_TURN", d.State)
			}
			if math.Abs(d.Steering-tt.wantSteering) > 1e-9 {
				t.Errorf("Steering = %f, want %f", d.Steering, tt.wantSteering)
			}
			if st.PredictedDirection != DirectionLeft {
				t.Errorf("PredictedDirection = %s, want LEFT", st.PredictedDirection)
			}
		})
	}
}

func TestTracker_ReappearanceBeforeThresholdNeverCommits(t *testing.T) {
	tr := newTestTracker()
	st := NewState()

	// One frame short of the threshold, then the left line comes back.
	for i := 0; i < 4; i++ {
		tr.Update(st, []vision.Segment{vseg(480)}, trackerFrameWidth)
	}
	d := tr.Update(st, []vision.Segment{vseg(160), vseg(480)}, trackerFrameWidth)

	if d.Prediction {
		t.Error("Prediction = true after the line reappeared below threshold")
	}
	if st.PredictionMode {
		t.Error("PredictionMode latched without reaching the threshold")
	}
	if st.LeftMissing != 0 {
		t.Errorf("LeftMissing = %d, want 0 after reappearance", st.LeftMissing)
	}
	if d.State.Committed() {
		t.Errorf("State = %s, want an uncommitted state", d.State)
	}
}

func TestTracker_BothPresentClearsPrediction(t *testing.T) {
	tr := newTestTracker()
	st := NewState()

	for i := 0; i < 5; i++ {
		tr.Update(st, []vision.Segment{vseg(480)}, trackerFrameWidth)
	}
	if !st.PredictionMode {
		t.Fatal("PredictionMode not set after disappear threshold")
	}

	d := tr.Update(st, []vision.Segment{vseg(160), vseg(480)}, trackerFrameWidth)

	if d.Prediction {
		t.Error("Prediction = true on the first both-present frame")
	}
	if st.PredictionMode || st.PredictedDirection != DirectionNone {
		t.Errorf("prediction not cleared: mode=%v dir=%s", st.PredictionMode, st.PredictedDirection)
	}
}

func TestTracker_BothMissing_ContinuesCommittedTurn(t *testing.T) {
	tr := newTestTracker()
	st := NewState()

	// Commit a strong right turn, then lose the remaining line too.
	for i := 0; i < 5; i++ {
		tr.Update(st, []vision.Segment{vseg(480)}, trackerFrameWidth)
	}
	d := tr.Update(st, nil, trackerFrameWidth)

	if d.State != StateContinueRight {
		t.Errorf("State = %s, want CONTINUE_RIGHT", d.State)
	}
	// last valid 0.8, amplified by the continue factor 1.2
	if math.Abs(d.Steering-0.96) > 1e-9 {
		t.Errorf("Steering = %f, want 0.96", d.Steering)
	}
	if d.LinesSeen {
		t.Error("LinesSeen = true with no segments")
	}
	if !d.Prediction {
		t.Error("Prediction = false while continuing a committed turn")
	}
}

func TestTracker_BothMissing_ContinuesLeft(t *testing.T) {
	tr := newTestTracker()
	st := NewState()

	for i := 0; i < 5; i++ {
		tr.Update(st, []vision.Segment{vseg(160)}, trackerFrameWidth)
	}
	d := tr.Update(st, nil, trackerFrameWidth)

	if d.State != StateContinueLeft {
		t.Errorf("State = %s, want CONTINUE_LEFT", d.State)
	}
	if math.Abs(d.Steering-(-0.96)) > 1e-9 {
		t.Errorf("Steering = %f, want -0.96", d.Steering)
	}
}

func TestTracker_BothMissing_NoPrediction(t *testing.T) {
	tr := newTestTracker()
	st := NewState()

	d := tr.Update(st, nil, trackerFrameWidth)

	if d.State != StateNoLines {
		t.Errorf("State = %s, want NO_LINES", d.State)
	}
	if d.Steering != 0 {
		t.Errorf("Steering = %f, want 0", d.Steering)
	}
	if d.LinesSeen {
		t.Error("LinesSeen = true with no segments")
	}
}

func TestTracker_BothMissing_WeakCommitFallsBack(t *testing.T) {
	tr := newTestTracker()
	st := NewState()
	st.PredictionMode = true
	st.PredictedDirection = DirectionRight
	st.LastValidSteering = 0.2 // below the 0.3 commit minimum

	d := tr.Update(st, nil, trackerFrameWidth)

	if d.State != StateNoLines {
		t.Errorf("State = %s, want NO_LINES for a weak commitment", d.State)
	}
	if d.Steering != 0 {
		t.Errorf("Steering = %f, want 0", d.Steering)
	}
}

func TestTracker_LastValidIgnoresNearZero(t *testing.T) {
	tr := newTestTracker()
	st := NewState()
	st.LastValidSteering = 0.5

	// A centered frame steers 0, below the validity threshold, so the
	// anchor must survive.
	tr.Update(st, []vision.Segment{vseg(160), vseg(480)}, trackerFrameWidth)

	if st.LastValidSteering != 0.5 {
		t.Errorf("LastValidSteering = %f, want 0.5", st.LastValidSteering)
	}
}

func TestTracker_SteeringAlwaysClamped(t *testing.T) {
	tr := newTestTracker()

	inputs := [][]vision.Segment{
		{vseg(0), vseg(639)},
		{vseg(600), vseg(639)},
		{vseg(639)},
		{vseg(0)},
		nil,
	}

	for _, segments := range inputs {
		st := NewState()
		st.PredictionMode = true
		st.PredictedDirection = DirectionRight
		st.LastValidSteering = 0.9

		for i := 0; i < 8; i++ {
			d := tr.Update(st, segments, trackerFrameWidth)
			if d.Steering < -1 || d.Steering > 1 {
				t.Fatalf("Steering = %f out of [-1, 1] for segments %+v", d.Steering, segments)
			}
		}
	}
}
