package hub

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/crosstalk/debate-app/internal/archive"
	"github.com/crosstalk/debate-app/internal/metrics"
	"github.com/crosstalk/debate-app/internal/moderation"
	"github.com/crosstalk/debate-app/internal/protocol"
	"github.com/crosstalk/debate-app/internal/ratelimit"
	"github.com/crosstalk/debate-app/internal/session"
)

// moderationTimeout bounds the moderation round trip per message.
const moderationTimeout = 10 * time.Second

// archiveTimeout bounds the best-effort archive write.
const archiveTimeout = 5 * time.Second

// handleChat moderates a chat message and relays it to the room peer. The
// moderation round trip runs outside the hub lock; the sender's session is
// re-verified afterwards and a result that arrives for a superseded or
// departed connection is discarded.
func (h *Hub) handleChat(conn session.Conn, msg protocol.ChatMsg) {
	identity, sess := h.authorize(conn)
	if sess == nil {
		return
	}

	text := strings.TrimSpace(msg.Message)
	if text == "" {
		h.sendError(conn, protocol.CodeEmptyMessage, "message is empty")
		return
	}

	h.mu.Lock()
	roomID := sess.RoomID
	h.mu.Unlock()
	if roomID == "" {
		h.sendError(conn, protocol.CodeNotInRoom, "no active conversation")
		return
	}

	if !h.allowed(context.Background(), identity, ratelimit.RuleChat) {
		h.sendError(conn, protocol.CodeRateLimited, "too many messages")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), moderationTimeout)
	start := time.Now()
	verdict, err := h.deps.Moderator.Analyze(ctx, text)
	cancel()
	metrics.ModerationLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		log.Printf("[hub] moderation for %s: %v", identity, err)
		metrics.MessagesTotal.WithLabelValues("dropped").Inc()
		h.sendError(conn, protocol.CodeMessageRejected, "moderation unavailable")
		return
	}

	// Re-resolve the world after the I/O gap: the sender may have
	// reconnected or the room may be gone.
	h.mu.Lock()
	cur := h.registry.Get(identity)
	if cur == nil || cur.Conn != conn || cur.RoomID != roomID {
		h.mu.Unlock()
		log.Printf("[hub] dropping stale moderation result for %s", identity)
		metrics.MessagesTotal.WithLabelValues("dropped").Inc()
		return
	}
	var peer *session.Session
	if r := h.rooms.Get(roomID); r != nil {
		peer = h.registry.Get(r.Peer(identity))
	}
	h.mu.Unlock()

	if !verdict.Accepted {
		metrics.MessagesTotal.WithLabelValues("blocked").Inc()
		h.sendError(conn, protocol.CodeMessageRejected, verdict.Reason)
		return
	}

	now := time.Now()
	if peer != nil {
		h.send(peer, protocol.TypeChat, protocol.ServerChatMsg{
			From:        identity,
			Message:     text,
			Toxicity:    verdict.Analysis.Toxicity,
			HateSpeech:  verdict.Analysis.HateSpeech,
			Rating:      verdict.Analysis.Rating,
			Reasoning:   verdict.Analysis.Reasoning,
			FactChecked: verdict.Analysis.FactChecked,
			Ts:          now.Unix(),
		})
	}
	metrics.MessagesTotal.WithLabelValues("relayed").Inc()

	h.archiveAsync(roomID, identity, text, verdict.Analysis, now)
}

// archiveAsync persists the accepted message off the hot path. A failed
// write is logged and otherwise ignored.
func (h *Hub) archiveAsync(roomID, senderID, text string, analysis moderation.Analysis, sentAt time.Time) {
	if h.deps.Archive == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), archiveTimeout)
		defer cancel()
		err := h.deps.Archive.Persist(ctx, &archive.Message{
			RoomID:   roomID,
			SenderID: senderID,
			Text:     text,
			Analysis: analysis,
			SentAt:   sentAt,
		})
		if err != nil {
			log.Printf("[hub] archive message in %s: %v", roomID, err)
			return
		}
		if h.deps.Events != nil {
			h.deps.Events.ChatArchived(roomID, senderID, analysis.Rating, sentAt.Unix())
		}
	}()
}

// handleSignal forwards an opaque signaling payload to the room peer. No
// moderation, no inspection and no rate limit apply on this path.
func (h *Hub) handleSignal(conn session.Conn, msg protocol.SignalMsg) {
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

	h.send(peer, protocol.TypeSignal, protocol.ServerSignalMsg{
		SignalType: msg.SignalType,
		Data:       msg.Data,
	})
}

// authorize resolves the connection to an admitted session. Unregistered
// connections get an unauthorized envelope and a nil session back.
func (h *Hub) authorize(conn session.Conn) (string, *session.Session) {
	identity, ok := h.registry.Identity(conn)
	if !ok {
		h.sendError(conn, protocol.CodeUnauthorized, "init required")
		return "", nil
	}
	h.mu.Lock()
	sess := h.registry.Get(identity)
	h.mu.Unlock()
	if sess == nil || sess.Conn != conn {
		h.sendError(conn, protocol.CodeUnauthorized, "init required")
		return "", nil
	}
	return identity, sess
}
