// Package control implements the lane tracking state machine, steering
// shaping, and wheel command mapping.
package control

import "fmt"

// TurnState labels the steering decision made for a frame.
type TurnState int

const (
	StateNormal TurnState = iota + 1
	StateNarrowing
	StateShifting
	StateRightTurn
	StateLeftTurn
	StateContinueRight
	StateContinueLeft
	StateNoLines
)

func (s TurnState) String() string {
	switch s {
	case StateNormal:
		return "NORMAL"
	case StateNarrowing:
		return "NARROWING"
	case StateShifting:
		return "SHIFTING"
	case StateRightTurn:
		return "RIGHT_TURN"
	case StateLeftTurn:
		return "LEFT_TURN"
	case StateContinueRight:
		return "CONTINUE_RIGHT"
	case StateContinueLeft:
		return "CONTINUE_LEFT"
	case StateNoLines:
		return "NO_LINES"
	default:
		return fmt.Sprintf("TurnState(%d)", int(s))
	}
}

// Committed reports whether the state is a committed or continuing turn.
func (s TurnState) Committed() bool {
	switch s {
	case StateRightTurn, StateLeftTurn, StateContinueRight, StateContinueLeft:
		return true
	}
	return false
}

// Direction is the side a predicted turn commits to.
type Direction int

const (
	DirectionNone Direction = iota
	DirectionLeft
	DirectionRight
)

func (d Direction) String() string {
	switch d {
	case DirectionLeft:
		return "LEFT"
	case DirectionRight:
		return "RIGHT"
	default:
		return "NONE"
	}
}

// Decision is the raw per-frame output of the tracker, before shaping.
type Decision struct {
	Steering   float64
	State      TurnState
	LinesSeen  bool
	Prediction bool
}

// SteeringCommand is the shaped controller output published per frame.
// Angle is in [-1, 1], negative steering left.
type SteeringCommand struct {
	Angle        float64   `json:"angle"`
	LaneDetected bool      `json:"lane_detected"`
	State        TurnState `json:"-"`
}

// WheelCommand carries the differential-drive wheel velocities in the
// robot's native linear speed units.
type WheelCommand struct {
	Left  float64 `json:"velocity_left"`
	Right float64 `json:"velocity_right"`
}

// clamp keeps value inside [lo, hi].
func clamp(value, lo, hi float64) float64 {
	if value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}
