package control

import "github.com/evzhukov/lanekeeper/internal/config"

// Mapper converts the shaped steering and turn state into differential-drive
// wheel velocities.
type Mapper struct {
	cfg config.Drive
}

// NewMapper creates a Mapper with the given drive parameters.
func NewMapper(cfg config.Drive) *Mapper {
	return &Mapper{cfg: cfg}
}

// Map produces the wheel command for one frame. A halted shaper result or a
// NO_LINES state yields a full stop, the fail-safe default.
func (m *Mapper) Map(steering float64, state TurnState, halted bool) WheelCommand {
	if halted || state == StateNoLines {
		return WheelCommand{}
	}

	linear := m.linearSpeed(steering, state)

	angular := steering * m.cfg.AngularGain
	if state.Committed() {
		angular *= m.cfg.TurnBoost
	}
	angular = clamp(angular, -m.cfg.MaxAngular, m.cfg.MaxAngular)

	half := m.cfg.Wheelbase / 2
	return WheelCommand{
		Left:  linear - angular*half,
		Right: linear + angular*half,
	}
}

// linearSpeed picks the forward speed tier: committed turns crawl, sharp
// corrections slow down, gentle ones keep the base speed.
func (m *Mapper) linearSpeed(steering float64, state TurnState) float64 {
	if state.Committed() {
		return m.cfg.TurnSpeed
	}

	abs := steering
	if abs < 0 {
		abs = -abs
	}
	switch {
	case abs > m.cfg.SharpThreshold:
		return m.cfg.SharpSpeed
	case abs > m.cfg.ModerateThreshold:
		return m.cfg.ModerateSpeed
	default:
		return m.cfg.BaseSpeed
	}
}
