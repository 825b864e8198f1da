// Package archive provides PostgreSQL-backed storage for finalized chat
// messages. Writes are best-effort: an archive failure is logged by the
// caller and never blocks delivery to the room peer.
package archive

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/crosstalk/debate-app/internal/moderation"
)

// Message is one accepted chat message together with its moderation
// analysis, as persisted to the long-term archive.
type Message struct {
	RoomID   string
	SenderID string
	Text     string
	Analysis moderation.Analysis
	SentAt   time.Time
}

// Archiver is the external-archive collaborator interface consumed by the
// relay.
type Archiver interface {
	Persist(ctx context.Context, msg *Message) error
}

// Store manages archived messages in PostgreSQL.
type Store struct {
	db *sql.DB
}

// NewStore creates a new archive store backed by the given database handle.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Persist inserts the message and its analysis into the archive.
func (s *Store) Persist(ctx context.Context, msg *Message) error {
	const query = `
		INSERT INTO archived_messages
			(id, room_id, sender_id, message, toxicity, hate_speech, rating, reasoning, fact_checked, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := s.db.ExecContext(ctx, query,
		uuid.New().String(),
		msg.RoomID,
		msg.SenderID,
		msg.Text,
		msg.Analysis.Toxicity,
		msg.Analysis.HateSpeech,
		msg.Analysis.Rating,
		msg.Analysis.Reasoning,
		msg.Analysis.FactChecked,
		msg.SentAt,
	)
	if err != nil {
		return fmt.Errorf("archive: insert: %w", err)
	}
	return nil
}

// CountForRoom returns the number of archived messages for a room. Used by
// operational tooling and tests.
func (s *Store) CountForRoom(ctx context.Context, roomID string) (int, error) {
	const query = `SELECT COUNT(*) FROM archived_messages WHERE room_id = $1`

	var count int
	if err := s.db.QueryRowContext(ctx, query, roomID).Scan(&count); err != nil {
		return 0, fmt.Errorf("archive: count: %w", err)
	}
	return count, nil
}
