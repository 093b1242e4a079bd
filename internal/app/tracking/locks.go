package tracking

import (
	"sync"

	"github.com/PabloGalante/kbju-bot/internal/domain"
)

// keyedMutex is one mutex per user, dropped once nobody holds or waits on it.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[domain.UserID]*refLock
}

type refLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[domain.UserID]*refLock)}
}

// Lock blocks until the user's lock is held and returns its unlock func.
func (k *keyedMutex) Lock(id domain.UserID) func() {
	k.mu.Lock()
	l, ok := k.locks[id]
	if !ok {
		l = &refLock{}
		k.locks[id] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()

	return func() {
		l.mu.Unlock()

		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, id)
		}
		k.mu.Unlock()
	}
}

func (k *keyedMutex) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
