package hub

import (
	"log"

	"github.com/crosstalk/debate-app/internal/protocol"
	"github.com/crosstalk/debate-app/internal/session"
)

// handleCallEnded tears down the sender's room on a voluntary hang-up. Both
// parties are told who ended the call and neither returns to the waiting
// pool; a fresh init is required to be matched again.
func (h *Hub) handleCallEnded(conn session.Conn) {
	identity, sess := h.authorize(conn)
	if sess == nil {
		return
	}

	h.mu.Lock()
	if !sess.InRoom() {
		h.mu.Unlock()
		h.sendError(conn, protocol.CodeNotInRoom, "no active conversation")
		return
	}
	roomID := sess.RoomID
	survivor, _ := h.dissolveLocked(sess, false)
	h.syncGauges()
	h.mu.Unlock()

	log.Printf("[hub] call ended by %s room=%s", identity, roomID)

	ended := protocol.ServerCallEndedMsg{By: identity}
	h.send(sess, protocol.TypeCallEnded, ended)
	if survivor != nil {
		h.send(survivor, protocol.TypeCallEnded, ended)
	}
	if h.deps.Events != nil {
		h.deps.Events.RoomEnded(roomID, "call_ended", identity)
	}
}

// handleCallDeclined relays a decline of the peer's audio/video upgrade.
// The room stays up; declining a call is not leaving the conversation.
func (h *Hub) handleCallDeclined(conn session.Conn) {
	identity, sess := h.authorize(conn)
	if sess == nil {
		return
	}

	h.mu.Lock()
	var peer *session.Session
	if r := h.rooms.Get(sess.RoomID); r != nil {
		peer = h.registry.Get(r.Peer(identity))
	}
	h.mu.Unlock()

	if peer == nil {
		h.sendError(conn, protocol.CodeNotInRoom, "no active conversation")
		return
	}

	h.send(peer, protocol.TypeCallDeclined, protocol.ServerCallDeclinedMsg{})
}
