package sim

import "fmt"

// SignalState is the color a road's signal shows.
type SignalState int

// The signal only has two states. There is no transitional yellow phase.
const (
	SignalGreen SignalState = iota
	SignalRed
)

func (s SignalState) String() string {
	switch s {
	case SignalGreen:
		return "GREEN"
	case SignalRed:
		return "RED"
	default:
		return fmt.Sprintf("SignalState(%d)", int(s))
	}
}

// MarshalText encodes the state by its name.
func (s SignalState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// SignalChange describes a transition of a signal.
type SignalChange struct {
	From SignalState
	To   SignalState
}

// A Signal is a fixed-cycle traffic light that gates a whole road.
//
// The signal starts green. Every update adds one to the timer, and when the
// timer reaches the duration of the current state, the state flips and the
// timer goes back to 0. The cycle is exactly greenDuration ticks of green
// followed by redDuration ticks of red.
type Signal struct {
	state         SignalState
	timer         int
	greenDuration int
	redDuration   int
}

// NewSignal creates a green signal with the given durations, in ticks.
func NewSignal(greenDuration, redDuration int) *Signal {
	return &Signal{
		state:         SignalGreen,
		greenDuration: greenDuration,
		redDuration:   redDuration,
	}
}

// State returns the current color.
func (s *Signal) State() SignalState {
	return s.state
}

// IsGreen returns true if traffic may move.
func (s *Signal) IsGreen() bool {
	return s.state == SignalGreen
}

// Timer returns the number of ticks spent in the current state.
func (s *Signal) Timer() int {
	return s.timer
}

// GreenDuration returns the number of ticks the signal stays green.
func (s *Signal) GreenDuration() int {
	return s.greenDuration
}

// RedDuration returns the number of ticks the signal stays red.
func (s *Signal) RedDuration() int {
	return s.redDuration
}

// DurationOf returns how many ticks the signal stays in the given state.
func (s *Signal) DurationOf(state SignalState) int {
	if state == SignalGreen {
		return s.greenDuration
	}

	return s.redDuration
}

// Update advances the signal by one tick. It returns true if the state
// changed.
func (s *Signal) Update() bool {
	s.timer++
	if s.timer < s.DurationOf(s.state) {
		return false
	}

	if s.state == SignalGreen {
		s.state = SignalRed
	} else {
		s.state = SignalGreen
	}

	s.timer = 0

	return true
}
