package index

import (
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func foxIndex() *InvertedIndex {
	idx := New()
	idx.AddAll([]string{"fox", "run"}, "a.txt", 1)
	idx.AddAll([]string{"fox", "jump", "fast"}, "b.txt", 1)
	return idx
}

func TestExactSearchRanksByScore(t *testing.T) {
	results := foxIndex().ExactSearch([]string{"fox"})
	require.Len(t, results, 2)

	assert.Equal(t, Result{Location: "a.txt", Count: 1, Score: 1.0 / 2}, results[0])
	assert.Equal(t, Result{Location: "b.txt", Count: 1, Score: 1.0 / 3}, results[1])
}

func TestExactSearchSumsCountsOverWords(t *testing.T) {
	results := foxIndex().ExactSearch([]string{"fox", "jump", "fast"})
	require.Len(t, results, 2)
	assert.Equal(t, "b.txt", results[0].Location)
	assert.Equal(t, 3, results[0].Count)
	assert.InDelta(t, 1.0, results[0].Score, 1e-12)
	assert.Equal(t, "a.txt", results[1].Location)
}

func TestExactSearchWithoutMatches(t *testing.T) {
	results := foxIndex().ExactSearch([]string{"cat"})
	assert.NotNil(t, results)
	assert.Empty(t, results)
	assert.Empty(t, foxIndex().ExactSearch(nil))
}

func TestPartialSearchMatchesPrefixes(t *testing.T) {
	idx := New()
	idx.Add("computer", "F", 1)
	idx.Add("compact", "G", 1)

	partial := idx.PartialSearch([]string{"comput"})
	require.Len(t, partial, 1)
	assert.Equal(t, "F", partial[0].Location)

	assert.Empty(t, idx.ExactSearch([]string{"comput"}))

	idx.Add("comput", "H", 1)
	exact := idx.ExactSearch([]string{"comput"})
	require.Len(t, exact, 1)
	assert.Equal(t, "H", exact[0].Location)
}

func TestPartialSearchCountsEachWordOnce(t *testing.T) {
	idx := New()
	idx.AddAll([]string{"computer", "other"}, "F", 1)

	results := idx.PartialSearch([]string{"comp", "comput", "computer"})
	require.Len(t, results, 1)
	assert.Equal(t, 1, results[0].Count)
	assert.InDelta(t, 0.5, results[0].Score, 1e-12)
}

func TestPartialSearchStopsAtPrefixBoundary(t *testing.T) {
	idx := New()
	idx.Add("car", "a", 1)
	idx.Add("cart", "b", 1)
	idx.Add("cat", "c", 1)
	idx.Add("dog", "d", 1)

	var locations []string
	for _, r := range idx.PartialSearch([]string{"car"}) {
		locations = append(locations, r.Location)
	}
	assert.ElementsMatch(t, []string{"a", "b"}, locations)
	assert.Empty(t, idx.PartialSearch([]string{""}))
}

func TestSearchDispatches(t *testing.T) {
	idx := foxIndex()
	assert.Equal(t, idx.ExactSearch([]string{"fo"}), idx.Search([]string{"fo"}, true))
	assert.Equal(t, idx.PartialSearch([]string{"fo"}), idx.Search([]string{"fo"}, false))
	assert.Len(t, idx.Search([]string{"fo"}, false), 2)
}

func TestLessTiebreaks(t *testing.T) {
	high := Result{Location: "z", Count: 1, Score: 0.5}
	low := Result{Location: "a", Count: 9, Score: 0.1}
	assert.True(t, Less(high, low))

	moreHits := Result{Location: "z", Count: 4, Score: 0.5}
	assert.True(t, Less(moreHits, high))

	upper := Result{Location: "B", Count: 1, Score: 0.5}
	lower := Result{Location: "a", Count: 1, Score: 0.5}
	assert.True(t, Less(upper, lower), "locations compare case-sensitively")
	assert.Equal(t, 0, Compare(upper, upper))
}

func TestRankingIsTotalOrderProperty(t *testing.T) {
	words := []string{"ant", "anvil", "bee", "bear", "cat"}
	properties := gopter.NewProperties(nil)

	properties.Property("adjacent results are in ranking order", prop.ForAll(
		func(entries []int, exact bool) bool {
			idx := New()
			for _, n := range entries {
				word := words[n%len(words)]
				location := fmt.Sprintf("file-%d", (n/len(words))%7)
				idx.Add(word, location, n%13+1)
			}
			results := idx.Search([]string{"an", "be", "cat"}, exact)
			for i := 1; i < len(results); i++ {
				a, b := results[i-1], results[i]
				ordered := a.Score > b.Score ||
					(a.Score == b.Score && a.Count > b.Count) ||
					(a.Score == b.Score && a.Count == b.Count && a.Location <= b.Location)
				if !ordered {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 999)),
		gen.Bool(),
	))

	properties.TestingRun(t)
}
