package sim

import "math/rand"

// Spawn replaces the vehicles on a road with count new vehicles at position 0.
// Lanes are drawn uniformly from [0, laneCount) and speeds uniformly from
// (1, maxSpeed].
func Spawn(road *Road, count int, maxSpeed float64, rng *rand.Rand) {
	road.vehicles = make([]*Vehicle, 0, count)

	for i := 0; i < count; i++ {
		lane := rng.Intn(road.laneCount)
		speed := maxSpeed - rng.Float64()*(maxSpeed-1)

		road.vehicles = append(road.vehicles, &Vehicle{
			ID:       vehicleName(i + 1),
			Position: 0,
			Speed:    speed,
			Lane:     lane,
		})
	}
}
