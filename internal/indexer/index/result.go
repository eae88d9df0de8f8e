package index

import "slices"

// Result is one location matched by a search: how many occurrences of the
// query words it holds and that number relative to its word count.
type Result struct {
	Location string  `json:"where"`
	Count    int     `json:"count"`
	Score    float64 `json:"score"`
}

// Less reports whether a ranks before b: higher score first, then higher
// count, then location in ascending byte order.
func Less(a, b Result) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if a.Count != b.Count {
		return a.Count > b.Count
	}
	return a.Location < b.Location
}

// Compare is the three-way form of Less.
func Compare(a, b Result) int {
	switch {
	case Less(a, b):
		return -1
	case Less(b, a):
		return 1
	default:
		return 0
	}
}

// Rank sorts results in place into ranking order.
func Rank(results []Result) {
	slices.SortFunc(results, Compare)
}
