package index

import (
	"github.com/Adithya-Monish-Kumar-K/concurrent-text-search/pkg/rwlock"
)

// Concurrent wraps an InvertedIndex so it can be shared between goroutines.
// Reads take the shared side of a single fair reader/writer lock and
// mutations take the exclusive side, so every operation is linearizable with
// respect to the others.
type Concurrent struct {
	lock  *rwlock.RWLock
	index *InvertedIndex
}

// NewConcurrent returns an empty thread-safe index.
func NewConcurrent() *Concurrent {
	return &Concurrent{
		lock:  rwlock.New(),
		index: New(),
	}
}

func (c *Concurrent) Add(word, location string, position int) bool {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.index.Add(word, location, position)
}

func (c *Concurrent) AddAll(words []string, location string, start int) int {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.index.AddAll(words, location, start)
}

// Merge folds a private index into the shared one under a single write hold.
// other must not be mutated concurrently.
func (c *Concurrent) Merge(other *InvertedIndex) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.index.Merge(other)
}

func (c *Concurrent) HasWord(word string) bool {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.index.HasWord(word)
}

func (c *Concurrent) HasLocation(word, location string) bool {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.index.HasLocation(word, location)
}

func (c *Concurrent) HasPosition(word, location string, position int) bool {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.index.HasPosition(word, location, position)
}

func (c *Concurrent) Words() []string {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.index.Words()
}

func (c *Concurrent) Locations(word string) []string {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.index.Locations(word)
}

func (c *Concurrent) Positions(word, location string) []int {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.index.Positions(word, location)
}

func (c *Concurrent) Count(location string) int {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.index.Count(location)
}

func (c *Concurrent) Counts() map[string]int {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.index.Counts()
}

func (c *Concurrent) NumWords() int {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.index.NumWords()
}

func (c *Concurrent) NumLocations() int {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.index.NumLocations()
}

func (c *Concurrent) ExactSearch(queries []string) []Result {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.index.ExactSearch(queries)
}

func (c *Concurrent) PartialSearch(queries []string) []Result {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.index.PartialSearch(queries)
}

func (c *Concurrent) Search(queries []string, exact bool) []Result {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.index.Search(queries, exact)
}

// View runs fn under the read lock. Output writers use it to serialize the
// index without copying it; fn must not retain idx or call back into c.
func (c *Concurrent) View(fn func(idx *InvertedIndex) error) error {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return fn(c.index)
}

func (c *Concurrent) String() string {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.index.String()
}
