// Package tracing provides hooks that observe a traffic simulation and record
// what happens in it.
package tracing

import "github.com/sarchlab/trafficsim/sim"

// RoadLister can list the roads of a simulation.
type RoadLister interface {
	Roads() []*sim.Road
}

// tickTracker follows the tick hooks to know which tick the hooks in between
// belong to. Ticks are numbered from 1.
type tickTracker struct {
	current uint64
}

func (t *tickTracker) observe(ctx sim.HookCtx) {
	switch ctx.Pos {
	case sim.HookPosBeforeTick:
		t.current = ctx.Item.(uint64) + 1
	case sim.HookPosAfterTick:
		t.current = ctx.Item.(uint64)
	}
}
