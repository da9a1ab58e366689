package services

import "sync"

// lockRegistry hands out one mutex per login id so a transition's store
// commit and its side effects (audit append, event publish) are emitted as an
// ordered unit. The conditional UPDATE still decides races between commands;
// the lock only stops a later command's audit entries and events from being
// observed before an earlier command's.
type lockRegistry struct {
	mu    sync.Mutex
	locks map[string]*idLock
}

type idLock struct {
	mu   sync.Mutex
	refs int
}

func newLockRegistry() *lockRegistry {
	return &lockRegistry{locks: make(map[string]*idLock)}
}

// lock acquires the mutex for id, creating it on first use
func (r *lockRegistry) lock(id string) {
	r.mu.Lock()
	l, ok := r.locks[id]
	if !ok {
		l = &idLock{}
		r.locks[id] = l
	}
	l.refs++
	r.mu.Unlock()

	l.mu.Lock()
}

// unlock releases the mutex for id and drops the entry once nobody holds
// or waits on it, so the registry does not grow with every id ever seen
func (r *lockRegistry) unlock(id string) {
	r.mu.Lock()
	l := r.locks[id]
	l.refs--
	if l.refs == 0 {
		delete(r.locks, id)
	}
	r.mu.Unlock()

	l.mu.Unlock()
}
