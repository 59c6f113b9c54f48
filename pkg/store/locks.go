package store

import "sync"

var (
	scopeLocks = make(map[string]*sync.Mutex)
	locksMu    sync.Mutex
)

// lockScope returns the mutex guarding the given scope key (creates it
// if needed). Insert-if-absent operations take the scope lock so the
// existence check and the write cannot interleave between requests.
func lockScope(scope string) *sync.Mutex {
	locksMu.Lock()
	defer locksMu.Unlock()
	if l, ok := scopeLocks[scope]; ok {
		return l
	}
	l := &sync.Mutex{}
	scopeLocks[scope] = l
	return l
}
