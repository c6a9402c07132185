package sim

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidConfig is wrapped by all the errors returned from Config.Validate.
var ErrInvalidConfig = errors.New("invalid configuration")

// Point is a location on the drawing surface. Points carry no meaning for the
// simulation itself.
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// RoadConfig describes the geometry and the population of one road.
type RoadConfig struct {
	Name          string  `json:"name" yaml:"name"`
	Length        float64 `json:"length" yaml:"length"`
	LaneCount     int     `json:"lane_count" yaml:"lane_count"`
	VehicleCount  int     `json:"vehicle_count" yaml:"vehicle_count"`
	Intersections []Point `json:"intersections,omitempty" yaml:"intersections,omitempty"`
}

// Config holds everything needed to construct an Engine. A Config is copied
// into the engine, so changing it afterwards has no effect.
type Config struct {
	Roads         []RoadConfig `json:"roads" yaml:"roads"`
	MaxSpeed      float64      `json:"max_speed" yaml:"max_speed"`
	GreenDuration int          `json:"green_duration" yaml:"green_duration"`
	RedDuration   int          `json:"red_duration" yaml:"red_duration"`

	// OverTrafficThreshold is the crossing count above which a snapshot is
	// flagged as over traffic. It is only a display hint.
	OverTrafficThreshold uint64 `json:"over_traffic_threshold" yaml:"over_traffic_threshold"`
}

// DefaultConfig returns two identical roads of length 40 with 2 lanes and 5
// vehicles each, a max speed of 5, and a 200/100 tick green/red cycle.
func DefaultConfig() Config {
	intersections := []Point{
		{X: 100, Y: 100}, {X: 200, Y: 100},
		{X: 100, Y: 300}, {X: 200, Y: 300},
	}

	roads := make([]RoadConfig, 2)
	for i := range roads {
		roads[i] = RoadConfig{
			Name:          fmt.Sprintf("road%d", i),
			Length:        40,
			LaneCount:     2,
			VehicleCount:  5,
			Intersections: append([]Point(nil), intersections...),
		}
	}

	return Config{
		Roads:                roads,
		MaxSpeed:             5,
		GreenDuration:        200,
		RedDuration:          100,
		OverTrafficThreshold: 100,
	}
}

// Validate checks that the configuration describes a simulation that can be
// run. Lane and speed values of individual vehicles are never validated; they
// are normalized while the simulation runs.
func (c Config) Validate() error {
	if len(c.Roads) == 0 {
		return fmt.Errorf("%w: at least one road is required", ErrInvalidConfig)
	}

	if !isFinite(c.MaxSpeed) || c.MaxSpeed <= 1 {
		return fmt.Errorf("%w: max speed must be a finite number greater than 1, got %g",
			ErrInvalidConfig, c.MaxSpeed)
	}

	if c.GreenDuration <= 0 || c.RedDuration <= 0 {
		return fmt.Errorf("%w: signal durations must be positive, got %d/%d",
			ErrInvalidConfig, c.GreenDuration, c.RedDuration)
	}

	names := make(map[string]bool)
	for i, r := range c.Roads {
		name := c.roadName(i)
		if names[name] {
			return fmt.Errorf("%w: duplicate road name %q", ErrInvalidConfig, name)
		}
		names[name] = true

		if err := r.validate(); err != nil {
			return fmt.Errorf("road %q: %w", name, err)
		}
	}

	return nil
}

func (r RoadConfig) validate() error {
	if !isFinite(r.Length) || r.Length <= 0 {
		return fmt.Errorf("%w: length must be a finite positive number, got %g",
			ErrInvalidConfig, r.Length)
	}

	if r.LaneCount <= 0 {
		return fmt.Errorf("%w: lane count must be positive, got %d",
			ErrInvalidConfig, r.LaneCount)
	}

	if r.VehicleCount < 0 {
		return fmt.Errorf("%w: vehicle count cannot be negative, got %d",
			ErrInvalidConfig, r.VehicleCount)
	}

	return nil
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

// roadName returns the configured name of the i-th road, or a generated one.
func (c Config) roadName(i int) string {
	if c.Roads[i].Name != "" {
		return c.Roads[i].Name
	}

	return fmt.Sprintf("road%d", i)
}
