package hub

import (
	"context"
	"log"
	"time"

	"github.com/crosstalk/debate-app/internal/metrics"
	"github.com/crosstalk/debate-app/internal/protocol"
	"github.com/crosstalk/debate-app/internal/ratelimit"
	"github.com/crosstalk/debate-app/internal/session"
)

// profileFetchTimeout bounds the identity-store round trip during admission.
const profileFetchTimeout = 5 * time.Second

// handleInit admits a user: it registers the connection (evicting a stale
// one on reconnect), fetches the profile and preferences from the identity
// store, and enqueues the session for matching. The fetch is awaited outside
// the hub lock; on failure the skeleton is removed again so the connection
// stays open in an unregistered state.
func (h *Hub) handleInit(conn session.Conn, msg protocol.InitMsg) {
	identity := msg.UserID
	if identity == "" {
		h.sendError(conn, protocol.CodeMissingUserID, "missing user id")
		return
	}

	if !h.allowed(context.Background(), identity, ratelimit.RuleInit) {
		h.sendError(conn, protocol.CodeRateLimited, "too many admission attempts")
		return
	}

	// Install the session skeleton. A reconnection closes the superseded
	// connection, pulls the identity out of the pool, and dissolves any room
	// the old connection occupied — its peer is treated exactly like a
	// disconnect survivor.
	h.mu.Lock()
	sess, evicted := h.registry.Register(identity, conn)
	var survivor *session.Session
	var oldRoomID string
	if evicted != nil {
		log.Printf("[hub] identity %s reconnected, superseding old connection", identity)
		h.pool.Remove(identity)
		survivor, oldRoomID = h.dissolveLocked(evicted, true)
	}
	h.syncGauges()
	h.mu.Unlock()

	if survivor != nil {
		h.notifyPeerLeft(survivor)
		if h.deps.Events != nil {
			h.deps.Events.RoomEnded(oldRoomID, "disconnect", identity)
		}
	}

	// Profile fetch crosses an I/O boundary: never hold the lock across it.
	ctx, cancel := context.WithTimeout(context.Background(), profileFetchTimeout)
	prof, prefs, err := h.deps.Profiles.Fetch(ctx, identity)
	cancel()
	if err != nil {
		log.Printf("[hub] profile fetch for %s: %v", identity, err)
		h.mu.Lock()
		if cur := h.registry.Get(identity); cur != nil && cur.Conn == conn {
			h.registry.Remove(identity)
		}
		h.mu.Unlock()
		h.sendError(conn, protocol.CodeProfileUnavailable, "profile fetch error")
		if survivor != nil {
			// The eviction above re-enqueued the old room's peer; that
			// enqueue still needs its matching pass even though this
			// admission failed.
			h.runMatches()
		}
		return
	}

	applyInitOverrides(&prefs, msg.Preferences)

	h.mu.Lock()
	cur := h.registry.Get(identity)
	if cur != sess || cur.Conn != conn {
		// Another init for this identity superseded us while the fetch was
		// in flight; the newer admission wins.
		h.mu.Unlock()
		return
	}
	sess.Profile = prof
	sess.Preferences = prefs
	h.enqueueLocked(sess)
	h.syncGauges()
	h.mu.Unlock()

	log.Printf("[hub] admitted %s policy=%s (pool=%d)", identity, prefs.Policy, h.pool.Len())
	h.runMatches()
}

// applyInitOverrides merges the preferences carried on the init message over
// the stored ones. Only declared fields override.
func applyInitOverrides(prefs *session.Preferences, inline *protocol.InitPreferences) {
	if inline == nil {
		return
	}

	if inline.MatchType != "" && session.ValidPolicy(inline.MatchType) {
		prefs.Policy = inline.MatchType
	}
	if inline.Language != "" {
		prefs.Language = inline.Language
	}
	if inline.Nationality != "" {
		prefs.Nationality = inline.Nationality
	}
	if len(inline.Topics) > 0 {
		topics := make([]session.TopicSelection, 0, len(inline.Topics))
		for _, t := range inline.Topics {
			if t.Stance != session.StanceFor && t.Stance != session.StanceAgainst {
				continue
			}
			topics = append(topics, session.TopicSelection{TopicID: t.TopicID, Stance: t.Stance})
		}
		prefs.Topics = topics
	}
}

// recordMatchWait observes how long both parties waited in the pool.
func recordMatchWait(a, b *session.Session) {
	now := time.Now()
	if !a.EnqueuedAt.IsZero() {
		metrics.MatchWait.Observe(now.Sub(a.EnqueuedAt).Seconds())
	}
	if !b.EnqueuedAt.IsZero() {
		metrics.MatchWait.Observe(now.Sub(b.EnqueuedAt).Seconds())
	}
}
