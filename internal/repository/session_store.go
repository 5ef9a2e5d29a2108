package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/budaic/i-know-where-you-live/internal/models"
)

// ErrSessionNotFound is returned when a session ID has no row.
var ErrSessionNotFound = errors.New("session not found")

// SessionStore persists live search sessions to SQLite so in-flight runs
// survive a client disconnect and finished runs stay recoverable for a day.
type SessionStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSessionStore opens (or creates) the session database at dbPath.
func NewSessionStore(dbPath string, logger *zap.Logger) (*SessionStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create session database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open session database: %w", err)
	}

	store := &SessionStore{db: db, logger: logger}
	if err := store.migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate session database: %w", err)
	}

	logger.Info("Session store initialized", zap.String("db_path", dbPath))
	return store, nil
}

func (s *SessionStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		session_id TEXT PRIMARY KEY,
		subject_name TEXT NOT NULL,
		payload TEXT NOT NULL,
		is_complete BOOLEAN NOT NULL DEFAULT 0,
		last_update DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_last_update ON sessions(last_update);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Save upserts the full session payload as JSON.
func (s *SessionStore) Save(ctx context.Context, session *models.LiveSearchSession) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session %s: %w", session.SessionID, err)
	}

	query := `INSERT INTO sessions (session_id, subject_name, payload, is_complete, last_update)
	          VALUES (?, ?, ?, ?, ?)
	          ON CONFLICT(session_id) DO UPDATE SET
	            subject_name = excluded.subject_name,
	            payload = excluded.payload,
	            is_complete = excluded.is_complete,
	            last_update = excluded.last_update`
	_, err = s.db.ExecContext(ctx, query,
		session.SessionID, session.SubjectName, string(payload), session.IsComplete, session.LastUpdate)
	if err != nil {
		return fmt.Errorf("save session %s: %w", session.SessionID, err)
	}
	return nil
}

func (s *SessionStore) Load(ctx context.Context, sessionID string) (*models.LiveSearchSession, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM sessions WHERE session_id = ?`, sessionID).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	var session models.LiveSearchSession
	if err := json.Unmarshal([]byte(payload), &session); err != nil {
		return nil, fmt.Errorf("unmarshal session %s: %w", sessionID, err)
	}
	return &session, nil
}

func (s *SessionStore) LoadAll(ctx context.Context) ([]*models.LiveSearchSession, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT payload FROM sessions ORDER BY last_update DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*models.LiveSearchSession
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var session models.LiveSearchSession
		if err := json.Unmarshal([]byte(payload), &session); err != nil {
			s.logger.Warn("Skipping corrupt session row", zap.Error(err))
			continue
		}
		sessions = append(sessions, &session)
	}
	return sessions, rows.Err()
}

func (s *SessionStore) Delete(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE session_id = ?`, sessionID)
	return err
}

// Cleanup removes sessions not updated since the cutoff.
func (s *SessionStore) Cleanup(ctx context.Context, olderThan time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE last_update < ?`, olderThan)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		s.logger.Info("Expired sessions removed", zap.Int64("count", n))
	}
	return nil
}

// Close closes the underlying database.
func (s *SessionStore) Close() error {
	return s.db.Close()
}
