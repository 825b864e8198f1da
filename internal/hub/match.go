package hub

import (
	"log"

	"github.com/crosstalk/debate-app/internal/matching"
	"github.com/crosstalk/debate-app/internal/metrics"
	"github.com/crosstalk/debate-app/internal/protocol"
	"github.com/crosstalk/debate-app/internal/session"
)

// runMatches drains the waiting pool to a fixed point: pair, notify, repeat
// until no eligible pair remains. Each iteration resolves exactly one pair
// under the lock and delivers the matched envelopes outside it, so a slow
// socket never stalls pairing for the rest of the pool.
func (h *Hub) runMatches() {
	for {
		a, b, roomID := h.matchOnce()
		if roomID == "" {
			return
		}

		policy := a.Preferences.Policy
		log.Printf("[hub] matched %s <-> %s room=%s policy=%s", a.Identity, b.Identity, roomID, policy)
		metrics.MatchesTotal.WithLabelValues(policy).Inc()
		recordMatchWait(a, b)

		h.send(a, protocol.TypeMatched, protocol.MatchedMsg{
			RoomID:       roomID,
			PeerID:       b.Identity,
			PeerUsername: b.Profile.Username,
		})
		h.send(b, protocol.TypeMatched, protocol.MatchedMsg{
			RoomID:       roomID,
			PeerID:       a.Identity,
			PeerUsername: a.Profile.Username,
		})

		if h.deps.Events != nil {
			h.deps.Events.MatchCreated(roomID, a.Identity, b.Identity, policy)
		}
	}
}

// matchOnce resolves a single pair under the lock. It returns the two
// sessions and their freshly created room id, or an empty id when no
// eligible pair exists. The *room.Room itself stays behind the lock.
func (h *Hub) matchOnce() (*session.Session, *session.Session, string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	candidates := h.poolCandidatesLocked()
	a, b, found := matching.FindPair(candidates)
	if !found {
		return nil, nil, ""
	}

	h.pool.Remove(a.Identity)
	h.pool.Remove(b.Identity)
	rm := h.rooms.Create(a.Identity, b.Identity)
	a.RoomID = rm.ID
	b.RoomID = rm.ID
	h.syncGauges()
	return a, b, rm.ID
}

// poolCandidatesLocked materializes the pool as sessions in arrival order,
// dropping entries whose sessions have gone away or already sit in a room.
func (h *Hub) poolCandidatesLocked() []*session.Session {
	ids := h.pool.Snapshot()
	candidates := make([]*session.Session, 0, len(ids))
	for _, id := range ids {
		sess := h.registry.Get(id)
		if sess == nil || sess.InRoom() {
			h.pool.Remove(id)
			continue
		}
		candidates = append(candidates, sess)
	}
	return candidates
}
