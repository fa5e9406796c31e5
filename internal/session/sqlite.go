package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"kanad/internal/domain"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Persister on a local SQLite database. Message
// lists are stored as a single JSON column; archived sessions are
// immutable, so there is nothing to normalize.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create database directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}

	// Single connection for SQLite
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &SQLiteStore{db: db, logger: logger}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database migration failed: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS archived_sessions (
		id          TEXT PRIMARY KEY,
		workspace   TEXT NOT NULL,
		title       TEXT,
		messages    TEXT NOT NULL,
		archived_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_archived_time ON archived_sessions(archived_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) Save(ctx context.Context, sess domain.ChatSession) error {
	data, err := json.Marshal(sess.Messages)
	if err != nil {
		return fmt.Errorf("marshal messages: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO archived_sessions (id, workspace, title, messages, archived_at)
		 VALUES (?, ?, ?, ?, ?)`,
		sess.ID, string(sess.Workspace), sess.Title, string(data), sess.Timestamp,
	)
	return err
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM archived_sessions WHERE id = ?`, id)
	return err
}

func (s *SQLiteStore) Load(ctx context.Context) ([]domain.ChatSession, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, workspace, title, messages, archived_at
		 FROM archived_sessions ORDER BY archived_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []domain.ChatSession
	for rows.Next() {
		var (
			sess      domain.ChatSession
			workspace string
			messages  string
			archived  time.Time
		)
		if err := rows.Scan(&sess.ID, &workspace, &sess.Title, &messages, &archived); err != nil {
			return nil, err
		}
		sess.Workspace = domain.Workspace(workspace)
		sess.Timestamp = archived
		if err := json.Unmarshal([]byte(messages), &sess.Messages); err != nil {
			s.logger.Warn("skipping corrupt archived session", "id", sess.ID, "err", err)
			continue
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
