// Package room tracks active two-party rooms. A room always has exactly two
// members for its entire lifetime; when either member leaves, the room is
// dissolved, never shrunk.
package room

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"
)

// Room is a pairing of exactly two identities.
type Room struct {
	ID        string
	MemberA   string
	MemberB   string
	CreatedAt time.Time
}

// Peer returns the other member's identity, or "" if the given identity is
// not a member of this room.
func (r *Room) Peer(identity string) string {
	switch identity {
	case r.MemberA:
		return r.MemberB
	case r.MemberB:
		return r.MemberA
	}
	return ""
}

// IsMember reports whether the identity occupies this room.
func (r *Room) IsMember(identity string) bool {
	return identity == r.MemberA || identity == r.MemberB
}

// NewRoomID generates a fresh opaque room id. The millisecond timestamp is
// combined with a random suffix so ids stay unique even for rooms created
// within the same millisecond.
func NewRoomID() string {
	suffix := make([]byte, 3)
	_, _ = rand.Read(suffix)
	return fmt.Sprintf("room-%d-%s", time.Now().UnixMilli(), hex.EncodeToString(suffix))
}

// Table is a thread-safe registry of active rooms.
type Table struct {
	mu    sync.RWMutex
	rooms map[string]*Room
}

// NewTable creates an empty room table.
func NewTable() *Table {
	return &Table{rooms: make(map[string]*Room)}
}

// Create allocates a room for the two identities and registers it.
func (t *Table) Create(memberA, memberB string) *Room {
	r := &Room{
		ID:        NewRoomID(),
		MemberA:   memberA,
		MemberB:   memberB,
		CreatedAt: time.Now(),
	}

	t.mu.Lock()
	t.rooms[r.ID] = r
	t.mu.Unlock()
	return r
}

// Get returns the room with the given id, or nil if not found.
func (t *Table) Get(roomID string) *Room {
	t.mu.RLock()
	r := t.rooms[roomID]
	t.mu.RUnlock()
	return r
}

// Delete removes the room from the table. It is a no-op if the room is
// already gone, and reports whether a room was removed.
func (t *Table) Delete(roomID string) bool {
	t.mu.Lock()
	_, ok := t.rooms[roomID]
	delete(t.rooms, roomID)
	t.mu.Unlock()
	return ok
}

// Count returns the number of active rooms.
func (t *Table) Count() int {
	t.mu.RLock()
	n := len(t.rooms)
	t.mu.RUnlock()
	return n
}
