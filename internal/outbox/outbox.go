// Package outbox persists publishes made while the connection is down.
//
// Messages are appended to a local SQLite database and replayed in insertion
// order once the client reconnects. Rows are deleted only after the server
// acks the replayed message, so a crash mid-replay never loses messages
// (duplicates are possible and the protocol's message IDs make them safe to
// deduplicate server-side).
package outbox

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	// Pure-Go SQLite driver, registers as "sqlite".
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS outbox (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	message_id TEXT NOT NULL UNIQUE,
	channel    TEXT NOT NULL,
	payload    BLOB NOT NULL,
	queued_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_outbox_queued_at ON outbox(queued_at);
`

// Message is a queued publish awaiting replay.
type Message struct {
	MessageID string
	Channel   string
	Payload   []byte
	QueuedAt  time.Time
}

// Store is a SQLite-backed outbox. Safe for concurrent use; database/sql
// serializes access to the single connection SQLite allows for writes.
type Store struct {
	db *sql.DB
}

// Open creates or opens the outbox database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("creating outbox dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening outbox: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initializing outbox schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Enqueue stores a publish for later replay.
func (s *Store) Enqueue(messageID, channel string, payload []byte) error {
	_, err := s.db.Exec(
		`INSERT INTO outbox (message_id, channel, payload, queued_at) VALUES (?, ?, ?, ?)`,
		messageID, channel, payload, time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("enqueueing message: %w", err)
	}
	return nil
}

// Pending returns up to limit queued messages in insertion order.
func (s *Store) Pending(limit int) ([]Message, error) {
	rows, err := s.db.Query(
		`SELECT message_id, channel, payload, queued_at FROM outbox ORDER BY id LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing pending messages: %w", err)
	}
	defer rows.Close()

	var msgs []Message
	for rows.Next() {
		var m Message
		var queuedAt int64
		if err := rows.Scan(&m.MessageID, &m.Channel, &m.Payload, &queuedAt); err != nil {
			return nil, fmt.Errorf("scanning pending message: %w", err)
		}
		m.QueuedAt = time.UnixMilli(queuedAt)
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// Ack deletes a message once the server confirmed its replay.
func (s *Store) Ack(messageID string) error {
	_, err := s.db.Exec(`DELETE FROM outbox WHERE message_id = ?`, messageID)
	if err != nil {
		return fmt.Errorf("acking message: %w", err)
	}
	return nil
}

// Len returns the number of queued messages.
func (s *Store) Len() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM outbox`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting outbox: %w", err)
	}
	return n, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
