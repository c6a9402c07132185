package tracing

import (
	"github.com/sarchlab/trafficsim/datarecording"
	"github.com/sarchlab/trafficsim/sim"
)

// Names of the tables that a DBTracer writes.
const (
	VehicleSampleTable    = "vehicle_samples"
	SignalTransitionTable = "signal_transitions"
	CrossingTable         = "crossings"
	LapTable              = "laps"
	RunSummaryTable       = "run_summary"
)

// VehicleSample is the state of one vehicle at the end of a tick.
type VehicleSample struct {
	Tick     uint64
	Road     string
	Vehicle  string
	Position float64
	Speed    float64
	Lane     int
}

// SignalTransition records a signal flipping at the end of a tick.
type SignalTransition struct {
	Tick      uint64
	Road      string
	FromState string
	ToState   string
}

// VehicleEvent records a vehicle being credited with a crossing or a lap.
type VehicleEvent struct {
	Tick     uint64
	Road     string
	Vehicle  string
	Position float64
}

// LapEvent records the wraps a vehicle made in one tick.
type LapEvent struct {
	Tick     uint64
	Road     string
	Vehicle  string
	Position float64
	Laps     uint64
}

// RunSummary is written once when the simulation finishes.
type RunSummary struct {
	RunID          string
	Ticks          uint64
	Crossings      uint64
	Laps           uint64
	ElapsedSeconds int64
}

// DBTracer is a hook that stores what happens in the simulation into a data
// recorder. Vehicle positions are sampled every SampleInterval ticks, while
// signal transitions, crossings, and laps are recorded as they happen.
type DBTracer struct {
	tickTracker

	runID          string
	roads          RoadLister
	backend        datarecording.DataRecorder
	sampleInterval uint64
}

// NewDBTracer creates a DBTracer and the tables that it writes into. A sample
// interval of 0 disables vehicle sampling.
func NewDBTracer(
	runID string,
	roads RoadLister,
	backend datarecording.DataRecorder,
	sampleInterval uint64,
) *DBTracer {
	t := &DBTracer{
		runID:          runID,
		roads:          roads,
		backend:        backend,
		sampleInterval: sampleInterval,
	}

	backend.CreateTable(VehicleSampleTable, VehicleSample{})
	backend.CreateTable(SignalTransitionTable, SignalTransition{})
	backend.CreateTable(CrossingTable, VehicleEvent{})
	backend.CreateTable(LapTable, LapEvent{})
	backend.CreateTable(RunSummaryTable, RunSummary{})

	return t
}

// Func records the information of the hook.
func (t *DBTracer) Func(ctx sim.HookCtx) {
	t.observe(ctx)

	switch ctx.Pos {
	case sim.HookPosSignalChange:
		road := ctx.Item.(*sim.Road)
		change := ctx.Detail.(sim.SignalChange)
		t.backend.InsertData(SignalTransitionTable, SignalTransition{
			Tick:      t.current,
			Road:      road.Name(),
			FromState: change.From.String(),
			ToState:   change.To.String(),
		})
	case sim.HookPosCrossing:
		t.backend.InsertData(CrossingTable, t.crossingEvent(ctx))
	case sim.HookPosLap:
		t.backend.InsertData(LapTable, t.lapEvent(ctx))
	case sim.HookPosAfterTick:
		t.sample()
	}
}

func (t *DBTracer) crossingEvent(ctx sim.HookCtx) VehicleEvent {
	vehicle := ctx.Item.(*sim.Vehicle)
	road := ctx.Detail.(*sim.Road)

	return VehicleEvent{
		Tick:     t.current,
		Road:     road.Name(),
		Vehicle:  vehicle.ID,
		Position: vehicle.Position,
	}
}

func (t *DBTracer) lapEvent(ctx sim.HookCtx) LapEvent {
	vehicle := ctx.Item.(*sim.Vehicle)
	lap := ctx.Detail.(sim.Lap)

	return LapEvent{
		Tick:     t.current,
		Road:     lap.Road.Name(),
		Vehicle:  vehicle.ID,
		Position: vehicle.Position,
		Laps:     lap.Count,
	}
}

func (t *DBTracer) sample() {
	if t.sampleInterval == 0 || t.current%t.sampleInterval != 0 {
		return
	}

	for _, r := range t.roads.Roads() {
		for _, v := range r.Vehicles() {
			t.backend.InsertData(VehicleSampleTable, VehicleSample{
				Tick:     t.current,
				Road:     r.Name(),
				Vehicle:  v.ID,
				Position: v.Position,
				Speed:    v.Speed,
				Lane:     v.Lane,
			})
		}
	}
}

// Handle writes the run summary and flushes the backend.
func (t *DBTracer) Handle(final sim.Snapshot) {
	t.backend.InsertData(RunSummaryTable, RunSummary{
		RunID:          t.runID,
		Ticks:          final.Tick,
		Crossings:      final.CrossingCount,
		Laps:           final.LapCount,
		ElapsedSeconds: final.ElapsedSeconds,
	})

	t.backend.Flush()
}
