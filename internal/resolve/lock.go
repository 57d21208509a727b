package resolve

import (
	"sync"

	"github.com/inodb/oncokb-transcript/internal/genome"
)

type lockKey struct {
	entrezGeneID int
	assembly     genome.Assembly
}

type refLock struct {
	sync.Mutex
	refs int
}

// keyedMutex serializes work per (gene, assembly). Entries are dropped when
// the last holder unlocks.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[lockKey]*refLock
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[lockKey]*refLock)}
}

// Lock blocks until key is free and returns the matching unlock function.
func (k *keyedMutex) Lock(key lockKey) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &refLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

func (k *keyedMutex) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
