package saga

import "sync"

// Guard is the process-local set of record identifiers with a saga pass
// currently in flight. It prevents a live commit-triggered pass and a
// concurrent reconciler sweep from double-executing stages for the same
// record within one process.
//
// The guard is not a substitute for the ledger idempotency check: it does
// not survive a restart and does not span instances. A multi-instance
// deployment needs a distributed lease (or a conditional STARTED insert on
// the ledger acting as a claim) instead.
type Guard struct {
	mu       sync.Mutex
	inflight map[string]struct{}
}

// NewGuard returns an empty guard.
func NewGuard() *Guard {
	return &Guard{inflight: make(map[string]struct{})}
}

// TryAcquire atomically adds id to the in-flight set. It returns false when
// id is already held; callers must then skip the record for this pass rather
// than block.
func (g *Guard) TryAcquire(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, held := g.inflight[id]; held {
		return false
	}
	g.inflight[id] = struct{}{}
	return true
}

// Release removes id from the in-flight set. Releasing an id that is not
// held is a no-op. A pass must release every id it acquired once the
// record's pass completes, success or failure, so later retry passes can
// re-enter.
func (g *Guard) Release(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.inflight, id)
}
