package runtime

import "sync"

// KeyedMutex provides mutual exclusion per dynamic key. It backs the
// read-modify-write sequences that must not interleave: vote recording per
// poll, report counting per message, context mutation per group, buffer
// append/clear per group-user pair.
//
// Entries are never removed; the key space (groups, open polls, reported
// messages) is small and bounded by actual usage.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for key, creating it on first use.
func (k *KeyedMutex) Lock(key string) {
	k.get(key).Lock()
}

// Unlock releases the mutex for key.
func (k *KeyedMutex) Unlock(key string) {
	k.get(key).Unlock()
}

func (k *KeyedMutex) get(key string) *sync.Mutex {
	k.mu.Lock()
	defer k.mu.Unlock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	return m
}
