// Package protocol defines the WebSocket message types and structures used for
// communication between the client and server. All messages are serialized as
// JSON and follow a consistent envelope format with a type discriminator.
package protocol

import (
	"encoding/json"
	"fmt"
)

// ---------------------------------------------------------------------------
// Message type constants
// ---------------------------------------------------------------------------

// Client -> Server message types.
const (
	TypeInit         = "init"
	TypeChat         = "chat"
	TypeSignal       = "signal"
	TypeCallEnded    = "call_ended"
	TypeCallDeclined = "call_declined"
	TypePing         = "ping"
)

// Server -> Client message types. TypeChat, TypeSignal, TypeCallEnded and
// TypeCallDeclined are shared with the client -> server direction.
const (
	TypeMatched  = "matched"
	TypePeerLeft = "peer_left"
	TypeError    = "error"
	TypePong     = "pong"
)

// Signal sub-types carried inside a signal envelope. The server never
// interprets the data payload; the sub-type is validated only so malformed
// envelopes are rejected at the boundary.
const (
	SignalOffer     = "offer"
	SignalAnswer    = "answer"
	SignalCandidate = "candidate"
)

// Error codes carried in error envelopes.
const (
	CodeMissingUserID      = "missing_user_id"
	CodeProfileUnavailable = "profile_unavailable"
	CodeUnauthorized       = "unauthorized"
	CodeEmptyMessage       = "empty_message"
	CodeMessageRejected    = "message_rejected"
	CodeRateLimited        = "rate_limited"
	CodeParseError         = "parse_error"
	CodeNotInRoom          = "not_in_room"
)

// ---------------------------------------------------------------------------
// Envelope — used for initial JSON parsing to extract the type discriminator.
// ---------------------------------------------------------------------------

// Envelope holds the message type and the raw JSON payload for deferred
// parsing into a concrete struct.
type Envelope struct {
	Type string          `json:"type"`
	Raw  json.RawMessage `json:"-"`
}

// UnmarshalJSON implements the json.Unmarshaler interface. It captures the
// full raw bytes and extracts only the "type" field so that the rest of the
// payload can be decoded later into the appropriate concrete struct.
func (e *Envelope) UnmarshalJSON(data []byte) error {
	// Capture the full raw message for deferred parsing.
	e.Raw = make(json.RawMessage, len(data))
	copy(e.Raw, data)

	// Extract only the type field.
	var partial struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &partial); err != nil {
		return fmt.Errorf("protocol: failed to unmarshal envelope: %w", err)
	}
	if partial.Type == "" {
		return fmt.Errorf("protocol: missing or empty \"type\" field")
	}
	e.Type = partial.Type
	return nil
}

// ---------------------------------------------------------------------------
// Client -> Server message structs
// ---------------------------------------------------------------------------

// TopicStance is one topic selection with the user's declared side.
type TopicStance struct {
	TopicID string `json:"topic_id"`
	Stance  string `json:"stance"` // "for" | "against"
}

// InitPreferences are the optional matching preferences carried on an init
// message. When present they override the stored preferences for this
// session.
type InitPreferences struct {
	MatchType   string        `json:"match_type,omitempty"`
	Topics      []TopicStance `json:"topics,omitempty"`
	Language    string        `json:"language,omitempty"`
	Nationality string        `json:"nationality,omitempty"`
}

// InitMsg is sent by the client to declare its identity and request admission
// to the matching pool.
type InitMsg struct {
	Type        string           `json:"type"`
	UserID      string           `json:"user_id"`
	Preferences *InitPreferences `json:"preferences,omitempty"`
}

// ChatMsg is a text message sent by the client to its room peer.
type ChatMsg struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// SignalMsg carries an opaque peer-connection signaling payload. The data
// field is forwarded to the room peer without inspection.
type SignalMsg struct {
	Type       string          `json:"type"`
	SignalType string          `json:"signal_type"`
	Data       json.RawMessage `json:"data"`
}

// CallEndedMsg is sent by the client to voluntarily end the current call.
type CallEndedMsg struct {
	Type string `json:"type"`
}

// CallDeclinedMsg is sent by the client to decline the peer's audio/video
// upgrade. The room itself is unaffected.
type CallDeclinedMsg struct {
	Type string `json:"type"`
}

// PingMsg is a client-initiated keepalive ping.
type PingMsg struct {
	Type string `json:"type"`
}

// ---------------------------------------------------------------------------
// Server -> Client message structs
// ---------------------------------------------------------------------------

// MatchedMsg is sent to both parties when a room has been allocated.
type MatchedMsg struct {
	Type         string `json:"type"`
	RoomID       string `json:"room_id"`
	PeerID       string `json:"peer_id"`
	PeerUsername string `json:"peer_username"`
}

// ServerChatMsg is an accepted chat message relayed to the room peer,
// enriched with the moderation analysis.
type ServerChatMsg struct {
	Type        string  `json:"type"`
	From        string  `json:"from"`
	Message     string  `json:"message"`
	Toxicity    float64 `json:"toxicity"`
	HateSpeech  bool    `json:"hate_speech"`
	Rating      float64 `json:"rating"`
	Reasoning   string  `json:"reasoning"`
	FactChecked bool    `json:"fact_checked"`
	Ts          int64   `json:"ts"`
}

// ServerSignalMsg relays a signaling payload from the room peer.
type ServerSignalMsg struct {
	Type       string          `json:"type"`
	SignalType string          `json:"signal_type"`
	Data       json.RawMessage `json:"data"`
}

// PeerLeftMsg is sent to the surviving member when its peer disconnects.
type PeerLeftMsg struct {
	Type string `json:"type"`
}

// ServerCallEndedMsg notifies a room member that the call was ended, and by
// whom, so the client can show its feedback prompt.
type ServerCallEndedMsg struct {
	Type string `json:"type"`
	By   string `json:"by"`
}

// ServerCallDeclinedMsg relays the peer's decline of an audio/video upgrade.
type ServerCallDeclinedMsg struct {
	Type string `json:"type"`
}

// ErrorMsg is sent by the server to communicate an error condition.
type ErrorMsg struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// PongMsg is the server's response to a client ping.
type PongMsg struct {
	Type string `json:"type"`
}

// ---------------------------------------------------------------------------
// Helper functions
// ---------------------------------------------------------------------------

// ParseClientMessage parses raw WebSocket bytes into a typed client message.
// It returns the message type string, the decoded struct, and any error
// encountered during parsing. An error is returned for unknown or
// server-only message types.
func ParseClientMessage(data []byte) (string, interface{}, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return "", nil, fmt.Errorf("protocol: failed to parse message: %w", err)
	}

	var (
		msg interface{}
		err error
	)

	switch env.Type {
	case TypeInit:
		var m InitMsg
		err = json.Unmarshal(env.Raw, &m)
		msg = m
	case TypeChat:
		var m ChatMsg
		err = json.Unmarshal(env.Raw, &m)
		msg = m
	case TypeSignal:
		var m SignalMsg
		if err = json.Unmarshal(env.Raw, &m); err == nil && !validSignalType(m.SignalType) {
			return env.Type, nil, fmt.Errorf("protocol: unknown signal type: %q", m.SignalType)
		}
		msg = m
	case TypeCallEnded:
		var m CallEndedMsg
		err = json.Unmarshal(env.Raw, &m)
		msg = m
	case TypeCallDeclined:
		var m CallDeclinedMsg
		err = json.Unmarshal(env.Raw, &m)
		msg = m
	case TypePing:
		var m PingMsg
		err = json.Unmarshal(env.Raw, &m)
		msg = m
	default:
		return env.Type, nil, fmt.Errorf("protocol: unknown client message type: %q", env.Type)
	}

	if err != nil {
		return env.Type, nil, fmt.Errorf("protocol: failed to decode %q payload: %w", env.Type, err)
	}
	return env.Type, msg, nil
}

func validSignalType(st string) bool {
	return st == SignalOffer || st == SignalAnswer || st == SignalCandidate
}

// NewServerMessage creates a JSON-encoded byte slice for a server message.
// The msgType is injected into the payload under the "type" key. The payload
// should be one of the Server*Msg structs; this function marshals it to JSON,
// injects the type field, and returns the final bytes.
func NewServerMessage(msgType string, payload interface{}) ([]byte, error) {
	// Marshal the payload struct to a generic map so we can ensure the "type"
	// field is present and correct.
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("protocol: failed to marshal payload: %w", err)
	}

	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("protocol: failed to unmarshal payload into map: %w", err)
	}

	m["type"] = msgType

	out, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("protocol: failed to marshal server message: %w", err)
	}
	return out, nil
}
