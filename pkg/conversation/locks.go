package conversation

import (
	"sync"
)

// userLocks serializes message resolution per user inside one process.
// The session store itself is last-write-wins, so without this two
// near-simultaneous messages from the same user could both read the old
// session and the second write would silently clobber the first's
// transition. Cross-process ordering remains best-effort.
type userLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newUserLocks() *userLocks {
	return &userLocks{locks: make(map[string]*sync.Mutex)}
}

// lock acquires the user's mutex and returns its unlock func
func (l *userLocks) lock(userID string) func() {
	l.mu.Lock()
	m, ok := l.locks[userID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[userID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
