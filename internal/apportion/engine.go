package apportion

import "strings"

type equalProportions struct{}

// New creates an Engine implementing the method of equal proportions.
func New() Engine {
	return &equalProportions{}
}

// Allocate apportions totalSeats among subdivisions and adds bonus to each
// result. Subdivision IDs must be non-empty and unique.
func (e *equalProportions) Allocate(subdivisions []Subdivision, totalSeats, bonus int) (Allocation, error) {
	populations, err := populationsOf(subdivisions)
	if err != nil {
		return Allocation{}, err
	}

	seats, err := Apportion(len(populations), populations, totalSeats)
	if err != nil {
		return Allocation{}, err
	}
	electors, err := AddBonus(seats, bonus)
	if err != nil {
		return Allocation{}, err
	}

	shares := make([]Share, len(subdivisions))
	for i, sub := range subdivisions {
		shares[i] = Share{
			ID:         sub.ID,
			Population: sub.Population,
			Seats:      seats[i],
			Electors:   electors[i],
		}
	}

	return Allocation{
		TotalSeats: totalSeats,
		Bonus:      bonus,
		Shares:     shares,
	}, nil
}

func (e *equalProportions) PriorityList(populations []int, totalSeats int) ([]Assignment, error) {
	return PriorityList(populations, totalSeats)
}

func populationsOf(subdivisions []Subdivision) ([]int, error) {
	if len(subdivisions) == 0 {
		return nil, invalid("subdivisions", "at least one subdivision is required")
	}

	seen := make(map[string]struct{}, len(subdivisions))
	populations := make([]int, len(subdivisions))
	for i, sub := range subdivisions {
		id := strings.TrimSpace(sub.ID)
		if id == "" {
			return nil, invalid("subdivisions", "entry %d has an empty id", i)
		}
		if _, dup := seen[id]; dup {
			return nil, invalid("subdivisions", "duplicate id %q", id)
		}
		seen[id] = struct{}{}
		populations[i] = sub.Population
	}
	return populations, nil
}
