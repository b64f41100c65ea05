// Package ctxsync provides synchronization primitives that give up instead of
// blocking.
package ctxsync

// NewMutex creates a new instance of Mutex.
func NewMutex() *Mutex {
	return &Mutex{
		locked: make(chan struct{}, 1),
	}
}

// A Mutex is a mutual exclusion lock that is never waited on. It must be
// created with [NewMutex].
type Mutex struct {
	locked chan struct{}
}

// TryLock tries to lock m and reports whether it succeeded.
func (m *Mutex) TryLock() bool {
	select {
	case m.locked <- struct{}{}:
		return true
	default:
		return false
	}
}

// Unlock unlocks m.
func (m *Mutex) Unlock() {
	select {
	case <-m.locked:
	default:
		panic("ctxsync: unlock of unlocked mutex")
	}
}
