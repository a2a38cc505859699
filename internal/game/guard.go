package game

import "sync"

// keyedGuard gives non-blocking mutual exclusion per key. A second caller for
// a busy key is turned away rather than queued. Entries are dropped on
// unlock, so the map only holds keys that are currently locked.
type keyedGuard struct {
	locks sync.Map
}

// tryLock returns an unlock func and true when key was free.
func (g *keyedGuard) tryLock(key string) (func(), bool) {
	for {
		l, _ := g.locks.LoadOrStore(key, &sync.Mutex{})
		mu := l.(*sync.Mutex)
		if !mu.TryLock() {
			return nil, false
		}
		// A mutex dropped by its previous holder is stale; start over.
		if cur, ok := g.locks.Load(key); ok && cur == l {
			return func() {
				g.locks.CompareAndDelete(key, l)
				mu.Unlock()
			}, true
		}
		mu.Unlock()
	}
}
