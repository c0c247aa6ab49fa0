package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/iPrq/RealChatApp/internal/chat"
)

// SQLiteStore is a MessageStore backed by a single SQLite database file.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if necessary) the SQLite database at path and
// ensures the messages schema exists. The parent directory is created when
// missing.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("database path is required")
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	// modernc driver pragma syntax; WAL plus a busy timeout so concurrent
	// writers queue instead of failing with SQLITE_BUSY.
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return s, nil
}

// initSchema creates the messages table if it does not exist. The seq column
// records insertion order; the message id is the opaque identifier exposed
// to clients.
func (s *SQLiteStore) initSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS messages (
		seq       INTEGER PRIMARY KEY AUTOINCREMENT,
		id        TEXT NOT NULL UNIQUE,
		content   TEXT NOT NULL,
		sender    TEXT NOT NULL,
		timestamp TEXT NOT NULL DEFAULT '',
		roomid    INTEGER NOT NULL DEFAULT 0
	);
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Insert persists msg, assigning a fresh UUID when the input carries no id.
func (s *SQLiteStore) Insert(ctx context.Context, msg chat.Message) (chat.Message, error) {
	if err := ValidateMessage(msg); err != nil {
		return chat.Message{}, err
	}

	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (id, content, sender, timestamp, roomid) VALUES (?, ?, ?, ?, ?)`,
		msg.ID, msg.Content, msg.Sender, msg.Timestamp, msg.RoomID,
	)
	if err != nil {
		return chat.Message{}, fmt.Errorf("%w: insert message: %v", ErrUnavailable, err)
	}
	return msg, nil
}

// ListAll returns every persisted message in insertion order.
func (s *SQLiteStore) ListAll(ctx context.Context) ([]chat.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, content, sender, timestamp, roomid FROM messages ORDER BY seq ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: list messages: %v", ErrUnavailable, err)
	}
	defer rows.Close()

	messages := make([]chat.Message, 0)
	for rows.Next() {
		var msg chat.Message
		if err := rows.Scan(&msg.ID, &msg.Content, &msg.Sender, &msg.Timestamp, &msg.RoomID); err != nil {
			return nil, fmt.Errorf("%w: scan message: %v", ErrUnavailable, err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate messages: %v", ErrUnavailable, err)
	}
	return messages, nil
}

// Ping reports whether the database is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Close closes the database handle. Subsequent operations fail with
// ErrUnavailable.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
