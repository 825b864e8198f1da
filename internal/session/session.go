// Package session holds the server-side state for one logical user across
// reconnections, and the registry that maps stable user identities to their
// current transport connection.
package session

import "time"

// Match policies a user can declare. Sessions are only ever paired with
// sessions that declared the same policy.
const (
	PolicyRandom   = "random"
	PolicySimilar  = "similar"
	PolicyOpposite = "opposite"
	PolicyTopic    = "topic"
)

// Topic stances for the "topic" policy.
const (
	StanceFor     = "for"
	StanceAgainst = "against"
)

// ValidPolicy reports whether p is one of the supported match policies.
func ValidPolicy(p string) bool {
	switch p {
	case PolicyRandom, PolicySimilar, PolicyOpposite, PolicyTopic:
		return true
	}
	return false
}

// Conn is the transport handle a session writes to. Implemented by
// ws.Connection; abstracted here so the matching and hub layers can be
// tested without a network.
type Conn interface {
	Send(data []byte) error
	Close() error
}

// TopicSelection is one topic a user selected together with the side they
// declared on it.
type TopicSelection struct {
	TopicID string
	Stance  string // StanceFor | StanceAgainst
}

// Preferences are a user's matching preferences as resolved at admission.
type Preferences struct {
	Policy      string
	Topics      []TopicSelection
	Language    string // optional; empty means no language constraint
	Nationality string // optional; checked against the peer's profile
}

// DefaultPreferences is the degraded preference set used when the preference
// lookup fails but the profile fetch succeeded.
func DefaultPreferences() Preferences {
	return Preferences{Policy: PolicyRandom}
}

// Profile holds the ideology and identity attributes fetched from the
// external identity store at admission.
type Profile struct {
	Username    string
	Stance      string // ideological stance
	Personality string // personality type
	CoreBeliefs []string
	Nationality string // the attribute a peer's nationality preference is checked against
}

// Session is the per-user state for one live connection. Sessions are owned
// exclusively by the Registry; the waiting pool and room table refer to them
// by identity only, so in-place mutations (a reconnection swapping the
// connection handle, room membership changes) are visible everywhere.
type Session struct {
	Identity string
	Conn     Conn

	Profile     Profile
	Preferences Preferences

	// RoomID is non-empty iff the session is paired. A session is never in
	// the waiting pool while RoomID is set.
	RoomID string

	// EnqueuedAt is the time of the most recent pool admission, used for
	// match-wait metrics.
	EnqueuedAt time.Time
}

// InRoom reports whether the session is currently paired.
func (s *Session) InRoom() bool {
	return s.RoomID != ""
}
