package session

import "sync"

// Registry is a thread-safe registry that maps user identities and transport
// connections to their Session objects. It supports O(1) lookups in both
// directions and handles reconnection by evicting the stale connection for
// the same identity.
type Registry struct {
	mu         sync.RWMutex
	byIdentity map[string]*Session
	byConn     map[Conn]string // connection -> identity
}

// NewRegistry creates an empty Registry ready for use.
func NewRegistry() *Registry {
	return &Registry{
		byIdentity: make(map[string]*Session),
		byConn:     make(map[Conn]string),
	}
}

// Register installs a fresh Session skeleton for the identity and returns it.
// If a Session already exists for the identity, its old connection is
// detached from the reverse index and force-closed before the new Session is
// installed; the superseded Session is returned so the caller can evict it
// from the waiting pool and tear down any room it occupied. Because the old
// connection is detached before it is closed, its close event no longer
// resolves to an identity and cannot trigger a second teardown.
func (r *Registry) Register(identity string, conn Conn) (sess *Session, evicted *Session) {
	r.mu.Lock()
	if old, ok := r.byIdentity[identity]; ok {
		evicted = old
		delete(r.byConn, old.Conn)
	}

	sess = &Session{Identity: identity, Conn: conn}
	r.byIdentity[identity] = sess
	r.byConn[conn] = identity
	r.mu.Unlock()

	if evicted != nil {
		_ = evicted.Conn.Close()
	}
	return sess, evicted
}

// Identity resolves a connection handle to the identity it was registered
// under. Returns false for connections that were never admitted or whose
// session has been superseded by a reconnection.
func (r *Registry) Identity(conn Conn) (string, bool) {
	r.mu.RLock()
	identity, ok := r.byConn[conn]
	r.mu.RUnlock()
	return identity, ok
}

// Get returns the Session for the given identity, or nil if not registered.
func (r *Registry) Get(identity string) *Session {
	r.mu.RLock()
	sess := r.byIdentity[identity]
	r.mu.RUnlock()
	return sess
}

// Remove tears down the Session for the identity entirely. It is a no-op if
// the identity is not registered, and reports whether a session was removed.
// The caller is responsible for having evicted the identity from the pool
// and room table first.
func (r *Registry) Remove(identity string) bool {
	r.mu.Lock()
	sess, ok := r.byIdentity[identity]
	if ok {
		delete(r.byIdentity, identity)
		delete(r.byConn, sess.Conn)
	}
	r.mu.Unlock()
	return ok
}

// Count returns the number of registered sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	n := len(r.byIdentity)
	r.mu.RUnlock()
	return n
}

// All returns a snapshot of all registered sessions. The returned slice is
// safe to iterate without holding the registry lock.
func (r *Registry) All() []*Session {
	r.mu.RLock()
	sessions := make([]*Session, 0, len(r.byIdentity))
	for _, sess := range r.byIdentity {
		sessions = append(sessions, sess)
	}
	r.mu.RUnlock()
	return sessions
}
