package apportion

import "math"

// PriorityValue returns population / sqrt(seats * (seats + 1)), the ranking
// score a subdivision holding seats seats has for its next one.
func PriorityValue(population, seats int) float64 {
	s := float64(seats)
	return float64(population) / math.Sqrt(s*(s+1))
}

// Apportion distributes totalSeats among subdivisionCount subdivisions using
// the method of equal proportions. The result is indexed like populations.
//
// Every subdivision starts at Floor seats. Each remaining seat goes to the
// subdivision with the highest priority value, the lowest index winning ties,
// and only the winner's priority is recomputed.
func Apportion(subdivisionCount int, populations []int, totalSeats int) ([]int, error) {
	seats, err := run(subdivisionCount, populations, totalSeats, nil)
	if err != nil {
		return nil, err
	}
	return seats, nil
}

// PriorityList runs the same apportionment as Apportion and returns the order
// in which seats past the floor were assigned.
func PriorityList(populations []int, totalSeats int) ([]Assignment, error) {
	list := make([]Assignment, 0, listCapacity(len(populations), totalSeats))
	_, err := run(len(populations), populations, totalSeats, func(a Assignment) {
		list = append(list, a)
	})
	if err != nil {
		return nil, err
	}
	return list, nil
}

// maxListPrealloc bounds the up-front allocation of a priority list; longer
// lists grow by append.
const maxListPrealloc = 1 << 16

func listCapacity(subdivisionCount, totalSeats int) int {
	extra := totalSeats - subdivisionCount*Floor
	if extra <= 0 {
		return 0
	}
	return min(extra, maxListPrealloc)
}

// AddBonus returns seatCounts with bonusPerUnit added to every element.
// seatCounts is not modified.
func AddBonus(seatCounts []int, bonusPerUnit int) ([]int, error) {
	if bonusPerUnit < 0 {
		return nil, invalid("bonus", "must be non-negative, got %d", bonusPerUnit)
	}
	out := make([]int, len(seatCounts))
	for i, seats := range seatCounts {
		out[i] = seats + bonusPerUnit
	}
	return out, nil
}

func validate(subdivisionCount int, populations []int, totalSeats int) error {
	if subdivisionCount <= 0 {
		return invalid("subdivision count", "must be positive, got %d", subdivisionCount)
	}
	if subdivisionCount != len(populations) {
		return invalid("populations", "expected %d entries, got %d", subdivisionCount, len(populations))
	}
	if totalSeats < subdivisionCount*Floor {
		return invalid("total seats", "%d seats cannot give %d subdivisions %d seat each", totalSeats, subdivisionCount, Floor)
	}
	for i, pop := range populations {
		if pop < 0 {
			return invalid("populations", "entry %d is negative (%d)", i, pop)
		}
	}
	return nil
}

func run(subdivisionCount int, populations []int, totalSeats int, record func(Assignment)) ([]int, error) {
	if err := validate(subdivisionCount, populations, totalSeats); err != nil {
		return nil, err
	}

	seats := make([]int, subdivisionCount)
	priorities := make([]float64, subdivisionCount)
	for i, pop := range populations {
		seats[i] = Floor
		priorities[i] = PriorityValue(pop, Floor)
	}

	for seat := subdivisionCount*Floor + 1; seat <= totalSeats; seat++ {
		best := 0
		for i := 1; i < subdivisionCount; i++ {
			// strict comparison keeps the lowest index on ties
			if priorities[i] > priorities[best] {
				best = i
			}
		}

		if record != nil {
			record(Assignment{Seat: seat, Index: best, Priority: priorities[best]})
		}
		seats[best]++
		priorities[best] = PriorityValue(populations[best], seats[best])
	}

	return seats, nil
}
