// Package store persists conversation turns in SQLite.
//
// A turn and its serialized message payload are written together in one
// transaction: readers never observe one without the other. The store owns
// the database connection exclusively; every operation goes through a
// single sequential worker (see adapter.go).
package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/glebarez/go-sqlite"

	"github.com/auccello/amanda-go/internal/logger"
)

// PayloadVersion tags the serialized message encoding written with each
// turn. Bump it when the encoding changes; readers decode by stored tag.
const PayloadVersion = "0.0.1"

// StoredPayload is one message row's serialized payload together with the
// version tag recorded on its turn.
type StoredPayload struct {
	Version string
	Data    []byte
}

// Store is the SQLite-backed turn store.
type Store struct {
	db     *sql.DB
	worker *worker
}

// Open opens (creating if needed) the database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=busy_timeout(10000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection, one worker. The pool must stay at one: ordering of
	// transaction boundaries depends on it.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	return &Store{db: db, worker: newWorker()}, nil
}

// Close stops the worker and closes the database.
func (s *Store) Close() error {
	s.worker.close()
	return s.db.Close()
}

// Init idempotently creates the schema and seeds the ordinal counters.
// Safe to call on every startup.
func (s *Store) Init(ctx context.Context) error {
	return s.worker.submit(ctx, func() error {
		_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS ordinals (
  name TEXT PRIMARY KEY,
  value INTEGER NOT NULL
);
INSERT OR IGNORE INTO ordinals (name, value) VALUES ('turns', 0), ('messages', 0);
CREATE TABLE IF NOT EXISTS turns (
  id TEXT PRIMARY KEY,
  ordinal INTEGER NOT NULL UNIQUE,
  version TEXT NOT NULL,
  created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE IF NOT EXISTS messages (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  turn_id TEXT NOT NULL REFERENCES turns(id),
  message_list BLOB NOT NULL,
  created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
  ordinal INTEGER NOT NULL UNIQUE
);
`)
		if err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
		logger.L.Info("turn store initialized")
		return nil
	})
}

// AppendTurn inserts a turn with the caller-supplied id and its serialized
// message payload, atomically. Ordinals are drawn from the counter table
// inside the same transaction, so they are strictly increasing and never
// reused, even across restarts. On any failure the whole transaction rolls
// back and the error propagates; no partial turn/payload pair is left
// behind.
func (s *Store) AppendTurn(ctx context.Context, turnID string, payload []byte) error {
	return s.worker.submit(ctx, func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("begin: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		var turnOrdinal int64
		if err := tx.QueryRow(
			`UPDATE ordinals SET value = value + 1 WHERE name = 'turns' RETURNING value`,
		).Scan(&turnOrdinal); err != nil {
			return fmt.Errorf("next turn ordinal: %w", err)
		}
		if _, err := tx.Exec(
			`INSERT INTO turns (id, ordinal, version) VALUES (?, ?, ?)`,
			turnID, turnOrdinal, PayloadVersion,
		); err != nil {
			return fmt.Errorf("insert turn: %w", err)
		}

		var msgOrdinal int64
		if err := tx.QueryRow(
			`UPDATE ordinals SET value = value + 1 WHERE name = 'messages' RETURNING value`,
		).Scan(&msgOrdinal); err != nil {
			return fmt.Errorf("next message ordinal: %w", err)
		}
		if _, err := tx.Exec(
			`INSERT INTO messages (turn_id, message_list, ordinal) VALUES (?, ?, ?)`,
			turnID, payload, msgOrdinal,
		); err != nil {
			return fmt.Errorf("insert messages: %w", err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit: %w", err)
		}
		return nil
	})
}

// ReadAll returns every stored payload with its version tag, in storage
// insertion order. The full history is always returned; bounding context
// size is the caller's problem.
func (s *Store) ReadAll(ctx context.Context) ([]StoredPayload, error) {
	var out []StoredPayload
	err := s.worker.submit(ctx, func() error {
		rows, err := s.db.Query(`
SELECT turns.version, messages.message_list
FROM messages
JOIN turns ON messages.turn_id = turns.id
ORDER BY messages.id ASC`)
		if err != nil {
			return fmt.Errorf("read payloads: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var p StoredPayload
			if err := rows.Scan(&p.Version, &p.Data); err != nil {
				return fmt.Errorf("scan payload: %w", err)
			}
			out = append(out, p)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
