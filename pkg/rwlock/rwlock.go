// Package rwlock provides a reader/writer lock that admits any number of
// concurrent readers or a single writer, with turn-taking between the two
// sides so neither can be starved by a steady stream of the other.
//
// A writer that is waiting blocks newly arriving readers. When a writer
// releases the lock, every reader that was already waiting is granted entry
// ahead of the next writer.
package rwlock

import "sync"

// RWLock is a fair reader/writer lock. The zero value is not usable; create
// one with New.
type RWLock struct {
	mu   sync.Mutex
	cond *sync.Cond

	readers        int
	writer         bool
	waitingReaders int
	waitingWriters int
	// readGrant counts readers admitted past waiting writers after the last
	// write release.
	readGrant int
}

// New returns an unlocked RWLock.
func New() *RWLock {
	l := &RWLock{}
	l.cond = sync.NewCond(&l.mu)
	return l
}

// RLock acquires the lock for reading.
func (l *RWLock) RLock() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.waitingReaders++
	for l.writer || (l.waitingWriters > 0 && l.readGrant == 0) {
		l.cond.Wait()
	}
	l.waitingReaders--
	if l.readGrant > 0 {
		l.readGrant--
	}
	l.readers++
}

// RUnlock releases one read hold.
func (l *RWLock) RUnlock() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.readers <= 0 {
		panic("rwlock: RUnlock of unlocked RWLock")
	}
	l.readers--
	if l.readers == 0 {
		l.cond.Broadcast()
	}
}

// Lock acquires the lock for writing.
func (l *RWLock) Lock() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.waitingWriters++
	for l.writer || l.readers > 0 || l.readGrant > 0 {
		l.cond.Wait()
	}
	l.waitingWriters--
	l.writer = true
}

// Unlock releases the write hold and admits the readers waiting at that
// moment before any other writer.
func (l *RWLock) Unlock() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.writer {
		panic("rwlock: Unlock of unlocked RWLock")
	}
	l.writer = false
	l.readGrant = l.waitingReaders
	l.cond.Broadcast()
}

// RLocker returns a sync.Locker backed by RLock and RUnlock.
func (l *RWLock) RLocker() sync.Locker {
	return readLocker{l}
}

type readLocker struct{ l *RWLock }

func (r readLocker) Lock()   { r.l.RLock() }
func (r readLocker) Unlock() { r.l.RUnlock() }
