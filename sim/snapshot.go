package sim

// SignalSnapshot is the state of a signal at the end of a tick.
type SignalSnapshot struct {
	State SignalState `json:"state"`
	Timer int         `json:"timer"`
}

// RoadSnapshot is a copy of a road at the end of a tick.
type RoadSnapshot struct {
	Name          string         `json:"name"`
	Length        float64        `json:"length"`
	LaneCount     int            `json:"lane_count"`
	Signal        SignalSnapshot `json:"signal"`
	Vehicles      []Vehicle      `json:"vehicles"`
	Intersections []Point        `json:"intersections"`
}

// Snapshot is a read-only copy of everything a renderer needs to draw the
// simulation. Modifying a snapshot does not affect the engine.
type Snapshot struct {
	Tick           uint64         `json:"tick"`
	ElapsedSeconds int64          `json:"elapsed_seconds"`
	CrossingCount  uint64         `json:"crossing_count"`
	LapCount       uint64         `json:"lap_count"`
	OverTraffic    bool           `json:"over_traffic"`
	Roads          []RoadSnapshot `json:"roads"`
}

// Snapshot copies the current state of the engine.
func (e *Engine) Snapshot() Snapshot {
	s := Snapshot{
		Tick:           e.tickCount,
		ElapsedSeconds: e.ElapsedSeconds(),
		CrossingCount:  e.crossingCount,
		LapCount:       e.lapCount,
		OverTraffic:    e.IsOverTraffic(),
		Roads:          make([]RoadSnapshot, 0, len(e.roads)),
	}

	for _, r := range e.roads {
		s.Roads = append(s.Roads, r.snapshot())
	}

	return s
}

func (r *Road) snapshot() RoadSnapshot {
	return RoadSnapshot{
		Name:      r.name,
		Length:    r.length,
		LaneCount: r.laneCount,
		Signal: SignalSnapshot{
			State: r.signal.State(),
			Timer: r.signal.Timer(),
		},
		Vehicles:      r.Vehicles(),
		Intersections: r.Intersections(),
	}
}

// Road returns the snapshot of the road with the given name.
func (s Snapshot) Road(name string) (RoadSnapshot, bool) {
	for _, r := range s.Roads {
		if r.Name == name {
			return r, true
		}
	}

	return RoadSnapshot{}, false
}
