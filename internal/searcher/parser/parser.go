// Package parser turns a raw query line into its canonical form: the sorted,
// deduplicated stems of its words.
package parser

import (
	"strings"

	"github.com/Adithya-Monish-Kumar-K/concurrent-text-search/internal/indexer/tokenizer"
)

// Query is a canonical query.
type Query struct {
	Terms    []string
	RawQuery string
}

// Parse normalizes line into a Query. Lines that produce no stems yield an
// empty Query.
func Parse(line string) Query {
	return Query{
		Terms:    tokenizer.UniqueStems(line),
		RawQuery: line,
	}
}

// Key is the space-joined terms, used to deduplicate queries and to key
// their results.
func (q Query) Key() string {
	return strings.Join(q.Terms, " ")
}

func (q Query) Empty() bool {
	return len(q.Terms) == 0
}
