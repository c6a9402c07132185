package sim

import (
	"errors"
	"fmt"
	"math/rand"
	"time"
)

// ErrUnknownRoad is returned when a road is looked up by a name that does not
// exist.
var ErrUnknownRoad = errors.New("unknown road")

// An Engine advances a set of roads one tick at a time.
//
// An Engine is not safe for concurrent use. It is meant to be owned by a
// single driver, and other parties should only read it between ticks, for
// example through a RealTimeDriver's Snapshot.
type Engine struct {
	*HookableBase

	roads         []*Road
	roadIndex     map[string]int
	vehicleCounts []int
	maxSpeed      float64
	overTraffic   uint64

	crossingCount uint64
	lapCount      uint64
	tickCount     uint64

	clock     Clock
	startTime time.Time
}

// NewEngine creates an engine with the roads described in the configuration.
// The roads start empty; call Spawn to populate them.
func NewEngine(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		HookableBase: NewHookableBase(),
		roadIndex:    make(map[string]int),
		maxSpeed:     cfg.MaxSpeed,
		overTraffic:  cfg.OverTrafficThreshold,
		clock:        WallClock,
	}

	for i, rc := range cfg.Roads {
		name := cfg.roadName(i)
		signal := NewSignal(cfg.GreenDuration, cfg.RedDuration)
		road := NewRoad(name, rc.Length, rc.LaneCount, signal, rc.Intersections)

		e.roads = append(e.roads, road)
		e.roadIndex[name] = i
		e.vehicleCounts = append(e.vehicleCounts, rc.VehicleCount)
	}

	e.startTime = e.clock.Now()

	return e, nil
}

// WithClock replaces the clock used to measure elapsed time and restarts the
// measurement.
func (e *Engine) WithClock(clock Clock) *Engine {
	e.clock = clock
	e.startTime = clock.Now()

	return e
}

// Spawn (re)populates every road with its configured number of vehicles. Roads
// are populated in order from the same generator, so the same seed always
// produces the same vehicles.
func (e *Engine) Spawn(rng *rand.Rand) {
	for i, r := range e.roads {
		Spawn(r, e.vehicleCounts[i], e.maxSpeed, rng)
	}
}

// Tick advances the simulation by one step.
//
// All green roads move their vehicles first. Only after every road has moved
// do the signals advance, so a signal change becomes visible in the next tick.
func (e *Engine) Tick() {
	e.InvokeHook(HookCtx{
		Domain: e,
		Pos:    HookPosBeforeTick,
		Item:   e.tickCount,
	})

	for _, r := range e.roads {
		if !r.signal.IsGreen() {
			continue
		}

		r.advance(e.maxSpeed, e.crossingCreditor(r), e.lapCreditor(r))
	}

	for _, r := range e.roads {
		from := r.signal.State()
		if r.signal.Update() {
			e.InvokeHook(HookCtx{
				Domain: e,
				Pos:    HookPosSignalChange,
				Item:   r,
				Detail: SignalChange{From: from, To: r.signal.State()},
			})
		}
	}

	e.tickCount++

	e.InvokeHook(HookCtx{
		Domain: e,
		Pos:    HookPosAfterTick,
		Item:   e.tickCount,
	})
}

func (e *Engine) crossingCreditor(r *Road) func(v *Vehicle) {
	return func(v *Vehicle) {
		e.crossingCount++
		e.InvokeHook(HookCtx{
			Domain: e,
			Pos:    HookPosCrossing,
			Item:   v,
			Detail: r,
		})
	}
}

func (e *Engine) lapCreditor(r *Road) func(v *Vehicle, laps uint64) {
	return func(v *Vehicle, laps uint64) {
		e.lapCount += laps
		e.InvokeHook(HookCtx{
			Domain: e,
			Pos:    HookPosLap,
			Item:   v,
			Detail: Lap{Road: r, Count: laps},
		})
	}
}

// Roads returns the roads in configuration order.
func (e *Engine) Roads() []*Road {
	return append([]*Road(nil), e.roads...)
}

// Road returns the road with the given name.
func (e *Engine) Road(name string) (*Road, error) {
	i, ok := e.roadIndex[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRoad, name)
	}

	return e.roads[i], nil
}

// MaxSpeed returns the fleet-wide speed cap.
func (e *Engine) MaxSpeed() float64 {
	return e.maxSpeed
}

// CrossingCount returns the number of crossings credited so far.
func (e *Engine) CrossingCount() uint64 {
	return e.crossingCount
}

// LapCount returns the number of times any vehicle wrapped around its road.
// Unlike CrossingCount, it counts every completed lap.
func (e *Engine) LapCount() uint64 {
	return e.lapCount
}

// TickCount returns the number of completed ticks.
func (e *Engine) TickCount() uint64 {
	return e.tickCount
}

// ElapsedSeconds returns the whole seconds since the engine was created.
func (e *Engine) ElapsedSeconds() int64 {
	return int64(e.clock.Now().Sub(e.startTime) / time.Second)
}

// IsOverTraffic returns true if the crossing count exceeds the configured
// threshold.
func (e *Engine) IsOverTraffic() bool {
	return e.crossingCount > e.overTraffic
}
