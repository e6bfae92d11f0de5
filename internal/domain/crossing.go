// Package domain defines the core types and interfaces for the grid
// announcer. All other packages depend on domain; domain depends on nothing
// outside the standard library and uuid.
package domain

import "fmt"

// Direction is the way a price moved through a boundary.
type Direction int

const (
	// Up is a BELOW to ABOVE transition.
	Up Direction = iota + 1
	// Down is an ABOVE to BELOW transition.
	Down
)

// String returns "UP" or "DOWN".
func (d Direction) String() string {
	switch d {
	case Up:
		return "UP"
	case Down:
		return "DOWN"
	default:
		return "unknown"
	}
}

// CrossingEvent reports that price moved through a grid boundary.
type CrossingEvent struct {
	Boundary  float64
	Direction Direction
}

func (e CrossingEvent) String() string {
	return fmt.Sprintf("%s %.2f", e.Direction, e.Boundary)
}
