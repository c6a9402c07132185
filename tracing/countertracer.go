package tracing

import (
	"sync"

	"github.com/sarchlab/trafficsim/sim"
)

// RoadCounters are the events counted on a single road.
type RoadCounters struct {
	Crossings   uint64 `json:"crossings"`
	Laps        uint64 `json:"laps"`
	Transitions uint64 `json:"transitions"`
}

// CounterTracer counts crossings, laps, and signal transitions per road. It
// can be read from other goroutines while the simulation runs.
type CounterTracer struct {
	mu     sync.Mutex
	counts map[string]RoadCounters
}

// NewCounterTracer creates a CounterTracer with all counts at zero.
func NewCounterTracer() *CounterTracer {
	return &CounterTracer{counts: make(map[string]RoadCounters)}
}

// Func counts the event reported by the hook.
func (t *CounterTracer) Func(ctx sim.HookCtx) {
	var (
		road   *sim.Road
		update func(c *RoadCounters)
	)

	switch ctx.Pos {
	case sim.HookPosCrossing:
		road = ctx.Detail.(*sim.Road)
		update = func(c *RoadCounters) { c.Crossings++ }
	case sim.HookPosLap:
		lap := ctx.Detail.(sim.Lap)
		road = lap.Road
		update = func(c *RoadCounters) { c.Laps += lap.Count }
	case sim.HookPosSignalChange:
		road = ctx.Item.(*sim.Road)
		update = func(c *RoadCounters) { c.Transitions++ }
	default:
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	c := t.counts[road.Name()]
	update(&c)
	t.counts[road.Name()] = c
}

// Counts returns a copy of the counters, keyed by road name.
func (t *CounterTracer) Counts() map[string]RoadCounters {
	t.mu.Lock()
	defer t.mu.Unlock()

	counts := make(map[string]RoadCounters, len(t.counts))
	for name, c := range t.counts {
		counts[name] = c
	}

	return counts
}

// Road returns the counters of one road.
func (t *CounterTracer) Road(name string) RoadCounters {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.counts[name]
}
