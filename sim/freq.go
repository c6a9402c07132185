package sim

import (
	"log"
	"math"
	"time"
)

// Freq defines the type of frequency
type Freq float64

// Defines the unit of frequency
const (
	Hz  Freq = 1
	KHz Freq = 1e3
)

// DefaultFreq is the pace at which ticks are driven unless configured
// otherwise.
const DefaultFreq = 30 * Hz

// Period returns the time between two consecutive ticks
func (f Freq) Period() time.Duration {
	if f == 0 {
		log.Panic("frequency cannot be 0")
	}

	return time.Duration(float64(time.Second) / float64(f))
}

// Cycle converts a duration to the number of whole ticks that fit in it.
func (f Freq) Cycle(d time.Duration) uint64 {
	if d <= 0 {
		return 0
	}

	return uint64(math.Floor(d.Seconds() * float64(f)))
}

// NCycles returns how long n ticks take.
func (f Freq) NCycles(n uint64) time.Duration {
	return time.Duration(n) * f.Period()
}
