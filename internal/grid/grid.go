// Package grid holds the topology shared by the influence, visibility and
// learning packages: integer cell positions, movement actions, bounds and the
// blockage capability every field is bound to.
package grid

import "math"

// Position is an integer grid cell.
type Position struct {
	X int
	Y int
}

// FromWorld floors continuous world coordinates onto the cell containing them.
func FromWorld(x, y float64) Position {
	return Position{X: int(math.Floor(x)), Y: int(math.Floor(y))}
}

// Add returns the cell reached by applying an action.
func (p Position) Add(a Action) Position {
	return Position{X: p.X + a.DX, Y: p.Y + a.DY}
}

// Dist is the Euclidean distance between two cells.
func (p Position) Dist(q Position) float64 {
	return math.Hypot(float64(p.X-q.X), float64(p.Y-q.Y))
}

// Action is a discrete direction vector.
type Action struct {
	DX int
	DY int
}

// NoAction is returned when an agent has no legal move.
var NoAction = Action{}

// IsNone reports whether a is the no-action sentinel.
func (a Action) IsNone() bool {
	return a == NoAction
}

// Length is the Euclidean length of the move.
func (a Action) Length() float64 {
	return math.Hypot(float64(a.DX), float64(a.DY))
}

func (a Action) String() string {
	switch a {
	case North:
		return "N"
	case South:
		return "S"
	case East:
		return "E"
	case West:
		return "W"
	case NorthEast:
		return "NE"
	case NorthWest:
		return "NW"
	case SouthEast:
		return "SE"
	case SouthWest:
		return "SW"
	}
	return "-"
}

var (
	North     = Action{DX: 0, DY: 1}
	South     = Action{DX: 0, DY: -1}
	East      = Action{DX: 1, DY: 0}
	West      = Action{DX: -1, DY: 0}
	NorthEast = Action{DX: 1, DY: 1}
	NorthWest = Action{DX: -1, DY: 1}
	SouthEast = Action{DX: 1, DY: -1}
	SouthWest = Action{DX: -1, DY: -1}
)

// Cardinal and Compass are the fixed 4- and 8-direction enumerations. The order
// carries no priority.
var (
	Cardinal = []Action{North, South, East, West}
	Compass  = []Action{North, South, East, West, NorthEast, NorthWest, SouthEast, SouthWest}
)

// Bounds is the size of a grid; valid cells are [0,Width) x [0,Height).
type Bounds struct {
	Width  int
	Height int
}

// Contains reports whether p lies inside the grid.
func (b Bounds) Contains(p Position) bool {
	return p.X >= 0 && p.X < b.Width && p.Y >= 0 && p.Y < b.Height
}

// Cells is the number of cells in the grid.
func (b Bounds) Cells() int {
	if b.Width <= 0 || b.Height <= 0 {
		return 0
	}
	return b.Width * b.Height
}

// Diagonal is the largest distance possible between two points of the grid.
func (b Bounds) Diagonal() float64 {
	return math.Hypot(float64(b.Width), float64(b.Height))
}

// Index flattens p into row-major order. p must be inside the bounds.
func (b Bounds) Index(p Position) int {
	return p.Y*b.Width + p.X
}

// At is the inverse of Index.
func (b Bounds) At(index int) Position {
	return Position{X: index % b.Width, Y: index / b.Width}
}
