// internal/app/allocation/locks.go
package allocation

import "sync"

// userLocks serializes allocation work per user while letting
// different users proceed in parallel.
type userLocks struct {
	mu sync.Mutex
	m  map[string]*sync.Mutex
}

func newUserLocks() *userLocks {
	return &userLocks{m: make(map[string]*sync.Mutex)}
}

// lock acquires the mutex for key and returns its unlock func.
func (l *userLocks) lock(key string) func() {
	l.mu.Lock()
	um, ok := l.m[key]
	if !ok {
		um = &sync.Mutex{}
		l.m[key] = um
	}
	l.mu.Unlock()

	um.Lock()
	return um.Unlock
}
