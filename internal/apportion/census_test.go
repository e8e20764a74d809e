package apportion

// 2020 census resident populations for the 50 states, in alphabetical order of
// state name, and the House seats each state received in the 2020
// reapportionment.
var census2020 = []struct {
	id         string
	population int
	seats      int
}{
	{"AL", 5024279, 7},
	{"AK", 733391, 1},
	{"AZ", 7151502, 9},
	{"AR", 3011524, 4},
	{"CA", 39538223, 52},
	{"CO", 5773714, 8},
	{"CT", 3605944, 5},
	{"DE", 989948, 1},
	{"FL", 21538187, 28},
	{"GA", 10711908, 14},
	{"HI", 1455271, 2},
	{"ID", 1839106, 2},
	{"IL", 12812508, 17},
	{"IN", 6785528, 9},
	{"IA", 3190369, 4},
	{"KS", 2937880, 4},
	{"KY", 4505836, 6},
	{"LA", 4657757, 6},
	{"ME", 1362359, 2},
	{"MD", 6177224, 8},
	{"MA", 7029917, 9},
	{"MI", 10077331, 13},
	{"MN", 5706494, 8},
	{"MS", 2961279, 4},
	{"MO", 6154913, 8},
	{"MT", 1084225, 2},
	{"NE", 1961504, 3},
	{"NV", 3104614, 4},
	{"NH", 1377529, 2},
	{"NJ", 9288994, 12},
	{"NM", 2117522, 3},
	{"NY", 20201249, 26},
	{"NC", 10439388, 14},
	{"ND", 779094, 1},
	{"OH", 11799448, 15},
	{"OK", 3959353, 5},
	{"OR", 4237256, 6},
	{"PA", 13002700, 17},
	{"RI", 1097379, 2},
	{"SC", 5118425, 7},
	{"SD", 886667, 1},
	{"TN", 6910840, 9},
	{"TX", 29145505, 38},
	{"UT", 3271616, 4},
	{"VT", 643077, 1},
	{"VA", 8631393, 11},
	{"WA", 7705281, 10},
	{"WV", 1793716, 2},
	{"WI", 5893718, 8},
	{"WY", 576851, 1},
}

func censusPopulations() []int {
	out := make([]int, len(census2020))
	for i, s := range census2020 {
		out[i] = s.population
	}
	return out
}

func censusSeats() []int {
	out := make([]int, len(census2020))
	for i, s := range census2020 {
		out[i] = s.seats
	}
	return out
}

func censusSubdivisions() []Subdivision {
	out := make([]Subdivision, len(census2020))
	for i, s := range census2020 {
		out[i] = Subdivision{ID: s.id, Population: s.population}
	}
	return out
}

func censusIndex(id string) int {
	for i, s := range census2020 {
		if s.id == id {
			return i
		}
	}
	return -1
}
