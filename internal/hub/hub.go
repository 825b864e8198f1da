// Package hub is the coordinator that ties the connection registry, waiting
// pool, match engine and room table together. All mutation of that shared
// state happens under a single coarse-grained mutex; the only operations
// that cross an I/O boundary — the profile fetch and the moderation call —
// are awaited outside the lock, which is then retaken to apply the
// already-decided outcome.
package hub

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/crosstalk/debate-app/internal/archive"
	"github.com/crosstalk/debate-app/internal/matching"
	"github.com/crosstalk/debate-app/internal/metrics"
	"github.com/crosstalk/debate-app/internal/moderation"
	"github.com/crosstalk/debate-app/internal/profile"
	"github.com/crosstalk/debate-app/internal/protocol"
	"github.com/crosstalk/debate-app/internal/ratelimit"
	"github.com/crosstalk/debate-app/internal/room"
	"github.com/crosstalk/debate-app/internal/session"
)

// EventSink receives lifecycle events for out-of-process consumers. It is
// satisfied by messaging.Publisher; a nil sink disables event publishing.
type EventSink interface {
	MatchCreated(roomID, userA, userB, policy string)
	RoomEnded(roomID, reason, endedBy string)
	ChatArchived(roomID, senderID string, rating float64, ts int64)
}

// Deps are the collaborators a Hub is wired with. Profiles and Moderator are
// required; Archive, Events and Limiter may be nil (archiving, event
// publishing and rate limiting are then disabled).
type Deps struct {
	Profiles  profile.Resolver
	Moderator moderation.Analyzer
	Archive   archive.Archiver
	Events    EventSink
	Limiter   *ratelimit.Limiter
}

// Hub owns all shared mutable state of the matchmaking server.
type Hub struct {
	mu       sync.Mutex
	registry *session.Registry
	pool     *matching.Pool
	rooms    *room.Table

	deps Deps
}

// New creates a Hub with empty state.
func New(deps Deps) *Hub {
	return &Hub{
		registry: session.NewRegistry(),
		pool:     matching.NewPool(),
		rooms:    room.NewTable(),
		deps:     deps,
	}
}

// HandleMessage is the entry point for every inbound frame. It parses the
// envelope and routes to the appropriate handler. Malformed JSON gets an
// error envelope; unknown envelope types are logged and ignored — neither
// ever tears down the connection worker.
func (h *Hub) HandleMessage(conn session.Conn, data []byte) {
	msgType, msg, err := protocol.ParseClientMessage(data)
	if err != nil {
		if msgType != "" && msg == nil && !knownType(msgType) {
			// Unknown envelope type: a protocol error, not a client bug worth
			// a response.
			log.Printf("[hub] ignoring unknown message type %q", msgType)
			return
		}
		log.Printf("[hub] parse error: %v", err)
		h.sendError(conn, protocol.CodeParseError, "invalid message format")
		return
	}

	switch m := msg.(type) {
	case protocol.InitMsg:
		h.handleInit(conn, m)
	case protocol.ChatMsg:
		h.handleChat(conn, m)
	case protocol.SignalMsg:
		h.handleSignal(conn, m)
	case protocol.CallEndedMsg:
		h.handleCallEnded(conn)
	case protocol.CallDeclinedMsg:
		h.handleCallDeclined(conn)
	case protocol.PingMsg:
		h.sendPong(conn)
	}
}

func knownType(msgType string) bool {
	switch msgType {
	case protocol.TypeInit, protocol.TypeChat, protocol.TypeSignal,
		protocol.TypeCallEnded, protocol.TypeCallDeclined, protocol.TypePing:
		return true
	}
	return false
}

// HandleDisconnect is called by the transport when a connection closes. A
// connection that was superseded by a reconnection no longer resolves to an
// identity, so its closure is not treated as a genuine disconnect.
func (h *Hub) HandleDisconnect(conn session.Conn) {
	identity, ok := h.registry.Identity(conn)
	if !ok {
		return
	}

	h.mu.Lock()
	sess := h.registry.Get(identity)
	if sess == nil || sess.Conn != conn {
		h.mu.Unlock()
		return
	}

	h.pool.Remove(identity)
	survivor, roomID := h.dissolveLocked(sess, true)
	h.registry.Remove(identity)
	h.syncGauges()
	h.mu.Unlock()

	log.Printf("[hub] disconnect identity=%s (sessions=%d)", identity, h.registry.Count())

	if survivor != nil {
		h.notifyPeerLeft(survivor)
		if h.deps.Events != nil {
			h.deps.Events.RoomEnded(roomID, "disconnect", identity)
		}
	}

	h.runMatches()
}

// dissolveLocked tears down the session's room, if any: the room is deleted,
// both members' room references cleared, and, when reenqueueSurvivor is set,
// the remaining member returns to the waiting pool. It returns the surviving
// session (nil if the session had no room) and the dissolved room id. The
// hub lock must be held.
func (h *Hub) dissolveLocked(sess *session.Session, reenqueueSurvivor bool) (*session.Session, string) {
	if !sess.InRoom() {
		return nil, ""
	}

	roomID := sess.RoomID
	r := h.rooms.Get(roomID)
	sess.RoomID = ""
	if r == nil {
		return nil, ""
	}
	h.rooms.Delete(roomID)

	survivor := h.registry.Get(r.Peer(sess.Identity))
	if survivor == nil {
		return nil, roomID
	}

	survivor.RoomID = ""
	if reenqueueSurvivor {
		h.enqueueLocked(survivor)
	}
	return survivor, roomID
}

// enqueueLocked admits the session to the waiting pool. The hub lock must be
// held; the pool/room exclusivity invariant is kept by never calling this
// with an in-room session.
func (h *Hub) enqueueLocked(sess *session.Session) {
	sess.EnqueuedAt = time.Now()
	h.pool.Enqueue(sess.Identity)
}

// syncGauges refreshes the pool and room gauges. Called after every state
// transition while the lock is still held, so the gauges never go stale.
func (h *Hub) syncGauges() {
	metrics.WaitingPoolSize.Set(float64(h.pool.Len()))
	metrics.ActiveRooms.Set(float64(h.rooms.Count()))
}

// Registry exposes the session registry for transport wiring and tests.
func (h *Hub) Registry() *session.Registry {
	return h.registry
}

// PoolContains reports whether the identity is currently waiting. Test hook.
func (h *Hub) PoolContains(identity string) bool {
	return h.pool.Contains(identity)
}

// RoomCount returns the number of active rooms. Test hook.
func (h *Hub) RoomCount() int {
	return h.rooms.Count()
}

// sendError sends a structured error envelope. Errors during construction or
// transmission are logged but not propagated.
func (h *Hub) sendError(conn session.Conn, code, message string) {
	data, err := protocol.NewServerMessage(protocol.TypeError, protocol.ErrorMsg{
		Code:    code,
		Message: message,
	})
	if err != nil {
		log.Printf("[hub] build error envelope: %v", err)
		return
	}
	if err := conn.Send(data); err != nil {
		log.Printf("[hub] send error envelope: %v", err)
	}
}

// sendPong answers a client keepalive ping.
func (h *Hub) sendPong(conn session.Conn) {
	data, err := protocol.NewServerMessage(protocol.TypePong, protocol.PongMsg{})
	if err != nil {
		return
	}
	_ = conn.Send(data)
}

// send marshals and delivers a server message, logging failures. Delivery
// happens outside the hub lock; the connection's own write mutex preserves
// per-sender ordering.
func (h *Hub) send(sess *session.Session, msgType string, payload interface{}) {
	data, err := protocol.NewServerMessage(msgType, payload)
	if err != nil {
		log.Printf("[hub] build %s for %s: %v", msgType, sess.Identity, err)
		return
	}
	if err := sess.Conn.Send(data); err != nil {
		log.Printf("[hub] send %s to %s: %v", msgType, sess.Identity, err)
	}
}

func (h *Hub) notifyPeerLeft(sess *session.Session) {
	h.send(sess, protocol.TypePeerLeft, protocol.PeerLeftMsg{})
}

// allowed applies a rate-limit rule if a limiter is wired.
func (h *Hub) allowed(ctx context.Context, identity string, rule ratelimit.Rule) bool {
	return h.deps.Limiter.Allow(ctx, identity, rule)
}
