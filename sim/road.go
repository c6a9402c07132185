package sim

import "math"

// A Road is a toroidal strip with a number of lanes. Vehicles leaving the far
// end reappear at the start.
type Road struct {
	name      string
	length    float64
	laneCount int

	vehicles      []*Vehicle
	signal        *Signal
	intersections []Point
}

// NewRoad creates an empty road that is controlled by the given signal.
func NewRoad(
	name string,
	length float64,
	laneCount int,
	signal *Signal,
	intersections []Point,
) *Road {
	return &Road{
		name:          name,
		length:        length,
		laneCount:     laneCount,
		signal:        signal,
		intersections: append([]Point(nil), intersections...),
	}
}

// Name returns the name of the road.
func (r *Road) Name() string {
	return r.name
}

// Length returns the length of the road.
func (r *Road) Length() float64 {
	return r.length
}

// LaneCount returns the number of lanes.
func (r *Road) LaneCount() int {
	return r.laneCount
}

// Signal returns the signal that controls the road.
func (r *Road) Signal() *Signal {
	return r.signal
}

// Intersections returns the intersection markers. They are only drawing hints.
func (r *Road) Intersections() []Point {
	return append([]Point(nil), r.intersections...)
}

// NumVehicles returns the number of vehicles on the road.
func (r *Road) NumVehicles() int {
	return len(r.vehicles)
}

// Vehicles returns a copy of the vehicles in spawn order.
func (r *Road) Vehicles() []Vehicle {
	vehicles := make([]Vehicle, len(r.vehicles))
	for i, v := range r.vehicles {
		vehicles[i] = *v
	}

	return vehicles
}

// SetVehicles replaces the vehicles on the road. The order of the slice is the
// order that the leader rule is applied in.
func (r *Road) SetVehicles(vehicles []Vehicle) {
	r.vehicles = make([]*Vehicle, len(vehicles))
	for i := range vehicles {
		v := vehicles[i]
		r.vehicles[i] = &v
	}
}

// advance moves every vehicle on the road by one tick.
//
// The leader of a vehicle is the vehicle spawned right before it, not the one
// physically ahead. A vehicle can never be faster than its leader was after
// the leader's own update in the same pass.
//
// A crossing is credited when the wrapped position lands in the last unit of
// the road. All the wraps a vehicle makes in one pass are reported with a
// single onLap call.
func (r *Road) advance(
	maxSpeed float64,
	onCrossing func(v *Vehicle),
	onLap func(v *Vehicle, laps uint64),
) {
	for i, v := range r.vehicles {
		if i > 0 {
			v.Speed = math.Min(v.Speed, r.vehicles[i-1].Speed)
		}
		v.Speed = math.Max(math.Min(v.Speed, maxSpeed), 0)

		travelled := v.Position + v.Speed
		v.Position = floorMod(travelled, r.length)
		v.Lane = floorModInt(v.Lane, r.laneCount)

		if laps := lapsIn(travelled, r.length); laps > 0 {
			onLap(v, laps)
		}

		if v.Position >= r.length-1 {
			onCrossing(v)
		}
	}
}

// lapsIn returns how many times a distance wraps a road, saturating at the
// largest uint64.
func lapsIn(travelled, length float64) uint64 {
	laps := math.Floor(travelled / length)
	if laps < 1 {
		return 0
	}

	if laps >= math.MaxUint64 {
		return math.MaxUint64
	}

	return uint64(laps)
}

func floorMod(x, m float64) float64 {
	r := math.Mod(x, m)
	if r < 0 {
		r += m
	}

	// Rounding in the addition can leave r equal to m.
	if r >= m {
		r = 0
	}

	return r
}

func floorModInt(x, m int) int {
	return ((x % m) + m) % m
}
