package apportion

// Floor is the number of seats every subdivision receives before any extra
// seat is distributed.
const Floor = 1

// Subdivision is a named population unit, such as a state.
type Subdivision struct {
	ID         string
	Population int
}

// Assignment records one seat handed out past the floor.
// Seat is the 1-based seat number in the whole body, Index points into the
// population sequence and Priority is the value the winner held at that step.
type Assignment struct {
	Seat     int
	Index    int
	Priority float64
}

// Share is the outcome for a single subdivision.
type Share struct {
	ID         string
	Population int
	Seats      int
	Electors   int
}

// Allocation is the keyed result of an apportionment run. Shares keep the
// order of the subdivisions passed in.
type Allocation struct {
	TotalSeats int
	Bonus      int
	Shares     []Share
}

// TotalElectors returns the sum of seats plus bonus across all shares.
func (a Allocation) TotalElectors() int {
	total := 0
	for _, s := range a.Shares {
		total += s.Electors
	}
	return total
}

// Engine describes the behaviour required from an apportionment engine.
type Engine interface {
	Allocate(subdivisions []Subdivision, totalSeats, bonus int) (Allocation, error)
	PriorityList(populations []int, totalSeats int) ([]Assignment, error)
}
