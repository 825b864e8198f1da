// Package messaging publishes match and room lifecycle events to NATS for
// out-of-process consumers (the activity feed and ranking services). All
// publishes are best-effort: a NATS outage never blocks matching or relay.
package messaging

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go"
)

// NATS subjects emitted by the server.
const (
	SubjectMatchCreated = "match.created"
	SubjectRoomEnded    = "room.ended"
	SubjectChatArchived = "chat.archived"
)

// MatchCreatedEvent is published when a room is allocated.
type MatchCreatedEvent struct {
	RoomID  string `json:"room_id"`
	UserA   string `json:"user_a"`
	UserB   string `json:"user_b"`
	Policy  string `json:"policy"`
	Matched int64  `json:"matched_at"`
}

// RoomEndedEvent is published when a room is dissolved.
type RoomEndedEvent struct {
	RoomID  string `json:"room_id"`
	Reason  string `json:"reason"` // "disconnect" | "call_ended"
	EndedBy string `json:"ended_by,omitempty"`
	EndedAt int64  `json:"ended_at"`
}

// ChatArchivedEvent is published after a message has been archived.
type ChatArchivedEvent struct {
	RoomID   string  `json:"room_id"`
	SenderID string  `json:"sender_id"`
	Rating   float64 `json:"rating"`
	Ts       int64   `json:"ts"`
}

// Config holds NATS connection settings.
type Config struct {
	URL           string        // nats://localhost:4222
	Name          string        // client name for identification
	ReconnectWait time.Duration // time between reconnect attempts
	MaxReconnects int           // max reconnect attempts (-1 for infinite)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		URL:           "nats://localhost:4222",
		Name:          "debate-server",
		ReconnectWait: 2 * time.Second,
		MaxReconnects: -1,
	}
}

// Publisher wraps the NATS connection with helpers for the server's event
// subjects.
type Publisher struct {
	conn *nats.Conn
}

// NewPublisher connects to NATS with the given config and returns a ready
// publisher. It returns an error if the initial connection fails.
func NewPublisher(config Config) (*Publisher, error) {
	opts := []nats.Option{
		nats.Name(config.Name),
		nats.ReconnectWait(config.ReconnectWait),
		nats.MaxReconnects(config.MaxReconnects),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Printf("[nats] disconnected: %v", err)
			} else {
				log.Printf("[nats] disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("[nats] reconnected to %s", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			log.Printf("[nats] connection closed")
		}),
	}

	nc, err := nats.Connect(config.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	log.Printf("[nats] connected to %s", nc.ConnectedUrl())
	return &Publisher{conn: nc}, nil
}

// MatchCreated publishes a match.created event.
func (p *Publisher) MatchCreated(roomID, userA, userB, policy string) {
	p.publish(SubjectMatchCreated, MatchCreatedEvent{
		RoomID:  roomID,
		UserA:   userA,
		UserB:   userB,
		Policy:  policy,
		Matched: time.Now().Unix(),
	})
}

// RoomEnded publishes a room.ended event.
func (p *Publisher) RoomEnded(roomID, reason, endedBy string) {
	p.publish(SubjectRoomEnded, RoomEndedEvent{
		RoomID:  roomID,
		Reason:  reason,
		EndedBy: endedBy,
		EndedAt: time.Now().Unix(),
	})
}

// ChatArchived publishes a chat.archived event.
func (p *Publisher) ChatArchived(roomID, senderID string, rating float64, ts int64) {
	p.publish(SubjectChatArchived, ChatArchivedEvent{
		RoomID:   roomID,
		SenderID: senderID,
		Rating:   rating,
		Ts:       ts,
	})
}

// publish marshals and sends an event; failures are logged and swallowed.
func (p *Publisher) publish(subject string, ev interface{}) {
	if p == nil {
		return // event publishing disabled
	}

	data, err := json.Marshal(ev)
	if err != nil {
		log.Printf("[nats] marshal %s: %v", subject, err)
		return
	}
	if err := p.conn.Publish(subject, data); err != nil {
		log.Printf("[nats] publish %s: %v", subject, err)
	}
}

// Close drains the NATS connection.
func (p *Publisher) Close() {
	if p == nil {
		return
	}
	if err := p.conn.Drain(); err != nil {
		log.Printf("[nats] connection drain: %v", err)
	}
	log.Printf("[nats] publisher closed")
}
