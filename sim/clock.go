package sim

import "time"

// Clock tells the wall-clock time. It is only used to report how long a
// simulation has been running.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to the Clock interface.
type ClockFunc func() time.Time

// Now returns the current time.
func (f ClockFunc) Now() time.Time {
	return f()
}

// WallClock is the system clock.
var WallClock Clock = ClockFunc(time.Now)
