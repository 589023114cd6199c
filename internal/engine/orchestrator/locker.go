package orchestrator

import (
	"sync"

	"github.com/google/uuid"
)

// groupLocker serializes evaluation per group id. Two overlapping sweeps may
// both reach the same group; whichever acquires the lock second re-reads the
// executed payout count and lands on the next cycle instead of double-paying.
type groupLocker struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func newGroupLocker() *groupLocker {
	return &groupLocker{
		locks: make(map[uuid.UUID]*sync.Mutex),
	}
}

// Lock acquires the mutex for a group, creating it on first use.
// The returned func releases it.
func (l *groupLocker) Lock(groupID uuid.UUID) func() {
	l.mu.Lock()
	m, ok := l.locks[groupID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[groupID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
