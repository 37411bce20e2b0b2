// Package history keeps the transcript of rendered messages per conversation.
// When a database path is given the transcript is persisted to SQLite; if opening
// the DB or executing queries fails, the store falls back to in-memory storage.
package history

import (
	"database/sql"
	"sync"
	"time"

	_ "github.com/glebarez/go-sqlite"

	"github.com/comigor/ridechat/internal/chat"
	"github.com/comigor/ridechat/internal/logger"
)

// Store is the transcript store. The zero value is not usable; call Open.
type Store struct {
	mu       sync.Mutex
	messages map[string][]chat.Message // in-memory fallback

	db *sql.DB
}

// Open opens the SQLite transcript at path and creates the messages table if it doesn't exist.
// An empty path, or any failure, yields a memory-only store.
func Open(path string) *Store {
	s := &Store{messages: make(map[string][]chat.Message)}
	if path == "" {
		return s
	}

	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=busy_timeout(10000)")
	if err != nil {
		logger.L.Warn("sqlite open failed; using in-memory history", "error", err)
		return s
	}
	if _, err = db.Exec(`CREATE TABLE IF NOT EXISTS messages (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        ride_id TEXT NOT NULL,
        sender_id INTEGER,
        content TEXT,
        timestamp TEXT,
        recorded_at DATETIME
    );`); err != nil {
		logger.L.Warn("sqlite table creation failed; using in-memory history", "error", err)
		db.Close()
		return s
	}
	logger.L.Info("sqlite history DB initialized", "path", path)
	s.db = db
	return s
}

// Persistent reports whether the store is backed by SQLite.
func (s *Store) Persistent() bool { return s.db != nil }

// Reset drops everything recorded for a conversation.
func (s *Store) Reset(id chat.ConversationID) {
	key := id.Key()
	if s.db != nil {
		if _, err := s.db.Exec(`DELETE FROM messages WHERE ride_id = ?;`, key); err != nil {
			logger.L.Error("failed to reset sqlite history", "ride_id", key, "error", err)
		}
	}

	s.mu.Lock()
	delete(s.messages, key)
	s.mu.Unlock()
}

// Append records a rendered message. The in-memory copy is always kept.
func (s *Store) Append(id chat.ConversationID, msg chat.Message) {
	key := id.Key()
	if s.db != nil {
		_, err := s.db.Exec(`INSERT INTO messages (ride_id, sender_id, content, timestamp, recorded_at) VALUES (?,?,?,?,?);`,
			key, msg.SenderID, msg.Content, msg.Timestamp, time.Now().UTC())
		if err != nil {
			logger.L.Error("failed to store message in sqlite; keeping it in memory", "error", err)
		}
	}

	s.mu.Lock()
	s.messages[key] = append(s.messages[key], msg)
	s.mu.Unlock()
}

// List returns the transcript of a conversation in render order.
func (s *Store) List(id chat.ConversationID) []chat.Message {
	key := id.Key()
	if s.db != nil {
		rows, err := s.db.Query(`SELECT sender_id, content, timestamp FROM messages WHERE ride_id = ? ORDER BY id ASC;`, key)
		if err == nil {
			var out []chat.Message
			if out, err = scan(rows, key); err == nil {
				return out
			}
		}
		logger.L.Warn("sqlite history query failed; reading memory", "ride_id", key, "error", err)
	}

	s.mu.Lock()
	out := append([]chat.Message(nil), s.messages[key]...)
	s.mu.Unlock()
	return out
}

func scan(rows *sql.Rows, key string) ([]chat.Message, error) {
	defer rows.Close()
	var out []chat.Message
	for rows.Next() {
		m := chat.Message{RideID: chat.ConversationID(key)}
		if err := rows.Scan(&m.SenderID, &m.Content, &m.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Close releases the database handle, if any.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
