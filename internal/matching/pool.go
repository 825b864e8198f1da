// Package matching implements the waiting pool and the compatibility search
// that pairs waiting users into rooms. The pool is an insertion-order
// preserving set of identities; the search partitions a pool snapshot into
// compatibility buckets and scans each bucket for the first eligible pair
// under the active match policy.
package matching

import "sync"

// Pool is the set of identities currently eligible for pairing. Arrival
// order is preserved for tie-breaking. An identity appears at most once, and
// never while its session is in a room (the engine enforces the latter by
// discarding in-room sessions from every snapshot).
type Pool struct {
	mu      sync.Mutex
	order   []string
	present map[string]bool
}

// NewPool creates an empty Pool.
func NewPool() *Pool {
	return &Pool{present: make(map[string]bool)}
}

// Enqueue appends the identity to the pool. It is a no-op if the identity is
// already present; arrival order of the first admission is kept.
func (p *Pool) Enqueue(identity string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.present[identity] {
		return
	}
	p.present[identity] = true
	p.order = append(p.order, identity)
}

// Remove deletes the identity from the pool. It is a no-op if absent.
func (p *Pool) Remove(identity string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.present[identity] {
		return
	}
	delete(p.present, identity)
	for i, id := range p.order {
		if id == identity {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
}

// Contains reports whether the identity is currently waiting.
func (p *Pool) Contains(identity string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.present[identity]
}

// Snapshot returns a consistent ordered copy of the waiting identities. A
// matching pass iterates the copy so that concurrent enqueues and removals
// cannot corrupt the scan.
func (p *Pool) Snapshot() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]string, len(p.order))
	copy(out, p.order)
	return out
}

// Len returns the number of waiting identities.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.order)
}
