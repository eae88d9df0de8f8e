package index

import (
	"fmt"
	"slices"
	"strings"
)

// ExactSearch ranks the locations holding any of queries exactly. A
// location's count is the sum of its occurrence counts over the matched
// words.
func (i *InvertedIndex) ExactSearch(queries []string) []Result {
	matches := make(map[string]int)
	for _, query := range queries {
		i.accumulate(query, matches)
	}
	return i.rank(matches)
}

// PartialSearch ranks the locations holding any indexed word that starts
// with one of queries. An indexed word matched by several queries is
// counted once.
func (i *InvertedIndex) PartialSearch(queries []string) []Result {
	matches := make(map[string]int)
	seen := make(map[string]struct{})
	for _, query := range queries {
		if query == "" {
			continue
		}
		start, _ := slices.BinarySearch(i.words, query)
		for _, word := range i.words[start:] {
			if !strings.HasPrefix(word, query) {
				break
			}
			if _, ok := seen[word]; ok {
				continue
			}
			seen[word] = struct{}{}
			i.accumulate(word, matches)
		}
	}
	return i.rank(matches)
}

// Search dispatches to ExactSearch or PartialSearch.
func (i *InvertedIndex) Search(queries []string, exact bool) []Result {
	if exact {
		return i.ExactSearch(queries)
	}
	return i.PartialSearch(queries)
}

func (i *InvertedIndex) accumulate(word string, matches map[string]int) {
	for location, positions := range i.index[word] {
		matches[location] += len(positions)
	}
}

func (i *InvertedIndex) rank(matches map[string]int) []Result {
	results := make([]Result, 0, len(matches))
	for location, count := range matches {
		total, ok := i.counts[location]
		if !ok || total <= 0 {
			panic(fmt.Sprintf("index: location %q is indexed without a word count", location))
		}
		results = append(results, Result{
			Location: location,
			Count:    count,
			Score:    float64(count) / float64(total),
		})
	}
	Rank(results)
	return results
}
