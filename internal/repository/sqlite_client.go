package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"rental-assistant/internal/domain"
)

// SQLiteStore is the single-node backend used for local runs and tests.
type SQLiteStore struct {
	db  *sqlx.DB
	now func() time.Time
}

// OpenSQLite opens dsn with the pure-Go driver and creates the tables if
// they do not exist. ":memory:" is supported.
func OpenSQLite(ctx context.Context, dsn string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("repository: open sqlite: %w", err)
	}
	// One connection keeps an in-memory database shared and serializes writers.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("repository: ping sqlite: %w", err)
	}
	if err := ensureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

func ensureSchema(ctx context.Context, db *sqlx.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS conversations(
  user_id TEXT PRIMARY KEY,
  turns_json TEXT NOT NULL,
  updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS messages(
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  user_id TEXT NOT NULL,
  text TEXT NOT NULL,
  user TEXT NOT NULL,
  created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_user ON messages(user_id, id);
`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("repository: ensure schema: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) GetConversation(ctx context.Context, userID string) ([]domain.Turn, error) {
	var raw string
	err := s.db.GetContext(ctx, &raw, `SELECT turns_json FROM conversations WHERE user_id=?`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return []domain.Turn{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("repository: GetConversation select: %w", err)
	}
	turns := []domain.Turn{}
	if err := json.Unmarshal([]byte(raw), &turns); err != nil {
		return nil, fmt.Errorf("repository: GetConversation decode turns: %w", err)
	}
	return turns, nil
}

func (s *SQLiteStore) SaveConversation(ctx context.Context, userID string, turns []domain.Turn) error {
	if turns == nil {
		turns = []domain.Turn{}
	}
	raw, err := json.Marshal(turns)
	if err != nil {
		return fmt.Errorf("repository: SaveConversation encode: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
	  INSERT INTO conversations(user_id, turns_json, updated_at)
	  VALUES(?, ?, ?)
	  ON CONFLICT(user_id) DO UPDATE SET turns_json=excluded.turns_json, updated_at=excluded.updated_at
	`, userID, string(raw), s.now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("repository: SaveConversation: %w", err)
	}
	return nil
}

func (s *SQLiteStore) AppendMessage(ctx context.Context, userID string, entry domain.LogEntry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = s.now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages(user_id, text, user, created_at) VALUES(?, ?, ?, ?)`,
		userID, entry.Text, entry.User, entry.Timestamp.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("repository: AppendMessage: %w", err)
	}
	return nil
}

type messageRow struct {
	Text      string `db:"text"`
	User      string `db:"user"`
	CreatedAt string `db:"created_at"`
}

func (s *SQLiteStore) ListMessages(ctx context.Context, userID string, limit int) ([]domain.LogEntry, error) {
	if limit <= 0 {
		limit = -1 // sqlite: no limit
	}
	var rows []messageRow
	err := s.db.SelectContext(ctx, &rows, `
	  SELECT text, user, created_at FROM (
	    SELECT id, text, user, created_at FROM messages
	    WHERE user_id = ?
	    ORDER BY id DESC
	    LIMIT ?
	  ) ORDER BY id ASC
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("repository: ListMessages select: %w", err)
	}

	entries := make([]domain.LogEntry, 0, len(rows))
	for _, r := range rows {
		ts, err := time.Parse(time.RFC3339Nano, r.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("repository: ListMessages parse timestamp: %w", err)
		}
		entries = append(entries, domain.LogEntry{Text: r.Text, User: r.User, Timestamp: ts})
	}
	return entries, nil
}
