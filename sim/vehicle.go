package sim

import "fmt"

// A Vehicle is a single car moving along a road.
//
// Vehicles are never removed. Once spawned, a vehicle keeps wrapping around
// its road for as long as the simulation runs.
type Vehicle struct {
	ID       string  `json:"id"`
	Position float64 `json:"position"`
	Speed    float64 `json:"speed"`
	Lane     int     `json:"lane"`
}

// vehicleName returns the label of the n-th spawned vehicle, counting from 1.
func vehicleName(n int) string {
	return fmt.Sprintf("Car %d", n)
}
