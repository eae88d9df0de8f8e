// Package index implements the inverted index: word → location → ordered
// positions, plus a per-location word count used as the scoring
// denominator. InvertedIndex itself is not safe for concurrent use;
// Concurrent wraps one behind a reader/writer lock.
package index

import (
	"fmt"
	"slices"
)

// Reader is the read side of an index.
type Reader interface {
	HasWord(word string) bool
	HasLocation(word, location string) bool
	HasPosition(word, location string, position int) bool
	Words() []string
	Locations(word string) []string
	Positions(word, location string) []int
	Count(location string) int
	Counts() map[string]int
	NumWords() int
	NumLocations() int
}

// Searcher runs ranked searches over an index.
type Searcher interface {
	ExactSearch(queries []string) []Result
	PartialSearch(queries []string) []Result
	Search(queries []string, exact bool) []Result
}

// Writer is the mutation side of an index.
type Writer interface {
	Add(word, location string, position int) bool
	AddAll(words []string, location string, start int) int
	Merge(other *InvertedIndex)
}

// Viewer runs fn against a consistent view of the underlying index.
type Viewer interface {
	View(fn func(idx *InvertedIndex) error) error
}

// Index is the full operation set shared by InvertedIndex and Concurrent.
type Index interface {
	Reader
	Searcher
	Writer
	Viewer
}

var (
	_ Index = (*InvertedIndex)(nil)
	_ Index = (*Concurrent)(nil)
)

// InvertedIndex maps each word to the locations it appears in and the
// ascending positions of its occurrences there.
type InvertedIndex struct {
	index map[string]map[string][]int
	// words holds every key of index in ascending order.
	words  []string
	counts map[string]int
}

// New returns an empty index.
func New() *InvertedIndex {
	return &InvertedIndex{
		index:  make(map[string]map[string][]int),
		counts: make(map[string]int),
	}
}

// Add records that word occurs at position in location. It reports whether
// the index changed; adding a position that is already present is a no-op.
// The location's count becomes the largest position recorded for it.
// Empty words or locations and positions below 1 are ignored.
func (i *InvertedIndex) Add(word, location string, position int) bool {
	if word == "" || location == "" || position < 1 {
		return false
	}
	locations, ok := i.index[word]
	if !ok {
		locations = make(map[string][]int)
		i.index[word] = locations
		i.insertWord(word)
	}
	positions, added := insertPosition(locations[location], position)
	if !added {
		return false
	}
	locations[location] = positions
	if position > i.counts[location] {
		i.counts[location] = position
	}
	return true
}

// AddAll adds words to location at consecutive positions beginning with
// start and returns how many of them changed the index.
func (i *InvertedIndex) AddAll(words []string, location string, start int) int {
	added := 0
	for n, word := range words {
		if i.Add(word, location, start+n) {
			added++
		}
	}
	return added
}

// Merge unions other into i: position sets are merged and each location's
// count becomes the larger of the two.
func (i *InvertedIndex) Merge(other *InvertedIndex) {
	if other == nil || other == i {
		return
	}
	for word, otherLocations := range other.index {
		locations, ok := i.index[word]
		if !ok {
			locations = make(map[string][]int, len(otherLocations))
			i.index[word] = locations
			i.insertWord(word)
		}
		for location, otherPositions := range otherLocations {
			existing, ok := locations[location]
			if !ok {
				locations[location] = slices.Clone(otherPositions)
				continue
			}
			locations[location] = mergePositions(existing, otherPositions)
		}
	}
	for location, count := range other.counts {
		if count > i.counts[location] {
			i.counts[location] = count
		}
	}
}

// HasWord reports whether word is indexed.
func (i *InvertedIndex) HasWord(word string) bool {
	_, ok := i.index[word]
	return ok
}

// HasLocation reports whether word occurs in location.
func (i *InvertedIndex) HasLocation(word, location string) bool {
	_, ok := i.index[word][location]
	return ok
}

// HasPosition reports whether word occurs in location at position.
func (i *InvertedIndex) HasPosition(word, location string, position int) bool {
	_, found := slices.BinarySearch(i.index[word][location], position)
	return found
}

// Words returns the indexed words in ascending order.
func (i *InvertedIndex) Words() []string {
	return slices.Clone(i.words)
}

// Locations returns the locations of word in ascending order.
func (i *InvertedIndex) Locations(word string) []string {
	locations := i.index[word]
	result := make([]string, 0, len(locations))
	for location := range locations {
		result = append(result, location)
	}
	slices.Sort(result)
	return result
}

// Positions returns a copy of the positions of word in location.
func (i *InvertedIndex) Positions(word, location string) []int {
	return slices.Clone(i.index[word][location])
}

// Count returns the word count of location, or 0 if it is unknown.
func (i *InvertedIndex) Count(location string) int {
	return i.counts[location]
}

// Counts returns a copy of the word count table.
func (i *InvertedIndex) Counts() map[string]int {
	counts := make(map[string]int, len(i.counts))
	for location, count := range i.counts {
		counts[location] = count
	}
	return counts
}

// NumWords returns the number of distinct words.
func (i *InvertedIndex) NumWords() int {
	return len(i.words)
}

// NumLocations returns the number of distinct locations.
func (i *InvertedIndex) NumLocations() int {
	return len(i.counts)
}

// View calls fn with i.
func (i *InvertedIndex) View(fn func(idx *InvertedIndex) error) error {
	return fn(i)
}

// Snapshot returns a deep copy of the word → location → positions mapping.
func (i *InvertedIndex) Snapshot() map[string]map[string][]int {
	snapshot := make(map[string]map[string][]int, len(i.index))
	for word, locations := range i.index {
		copied := make(map[string][]int, len(locations))
		for location, positions := range locations {
			copied[location] = slices.Clone(positions)
		}
		snapshot[word] = copied
	}
	return snapshot
}

// String summarizes the index size.
func (i *InvertedIndex) String() string {
	return fmt.Sprintf("InvertedIndex{words: %d, locations: %d}", len(i.words), len(i.counts))
}

func (i *InvertedIndex) insertWord(word string) {
	n, found := slices.BinarySearch(i.words, word)
	if !found {
		i.words = slices.Insert(i.words, n, word)
	}
}

// insertPosition adds position to the ascending set positions.
func insertPosition(positions []int, position int) ([]int, bool) {
	if len(positions) == 0 || positions[len(positions)-1] < position {
		return append(positions, position), true
	}
	n, found := slices.BinarySearch(positions, position)
	if found {
		return positions, false
	}
	return slices.Insert(positions, n, position), true
}

// mergePositions returns the sorted union of two ascending sets.
func mergePositions(a, b []int) []int {
	merged := make([]int, 0, len(a)+len(b))
	x, y := 0, 0
	for x < len(a) && y < len(b) {
		switch {
		case a[x] < b[y]:
			merged = append(merged, a[x])
			x++
		case a[x] > b[y]:
			merged = append(merged, b[y])
			y++
		default:
			merged = append(merged, a[x])
			x++
			y++
		}
	}
	merged = append(merged, a[x:]...)
	return append(merged, b[y:]...)
}
