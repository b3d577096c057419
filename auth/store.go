package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"motorsporthub/models"
)

// SessionStore persists the session of each browser so a restart does not sign the operator out.
type SessionStore interface {
	Load(ctx context.Context, key string) (*models.Session, error)
	Save(ctx context.Context, key string, s *models.Session) error
	Delete(ctx context.Context, key string) error
}

// SQLiteStore is a SessionStore backed by SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the session database at dsn and runs migrations.
// Example DSN: "file:sessions.db?_pragma=journal_mode(WAL)"
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	sqldb, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	sqldb.SetMaxOpenConns(1)
	if err := sqldb.Ping(); err != nil {
		sqldb.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	s := &SQLiteStore{db: sqldb}
	if err := s.migrate(context.Background()); err != nil {
		sqldb.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	const stmt = `CREATE TABLE IF NOT EXISTS sessions (
		browser_key   TEXT PRIMARY KEY,
		access_token  TEXT NOT NULL,
		refresh_token TEXT NOT NULL,
		expires_at    INTEGER NOT NULL,
		user_id       TEXT NOT NULL,
		email         TEXT NOT NULL,
		updated_at    INTEGER NOT NULL
	)`
	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("migrate sessions: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Load(ctx context.Context, key string) (*models.Session, error) {
	var (
		sess      models.Session
		expiresAt int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT access_token, refresh_token, expires_at, user_id, email FROM sessions WHERE browser_key = ?`, key,
	).Scan(&sess.AccessToken, &sess.RefreshToken, &expiresAt, &sess.User.ID, &sess.User.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if expiresAt > 0 {
		sess.ExpiresAt = time.Unix(expiresAt, 0)
	}
	return &sess, nil
}

func (s *SQLiteStore) Save(ctx context.Context, key string, sess *models.Session) error {
	var expiresAt int64
	if !sess.ExpiresAt.IsZero() {
		expiresAt = sess.ExpiresAt.Unix()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (browser_key, access_token, refresh_token, expires_at, user_id, email, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(browser_key) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			expires_at = excluded.expires_at,
			user_id = excluded.user_id,
			email = excluded.email,
			updated_at = excluded.updated_at`,
		key, sess.AccessToken, sess.RefreshToken, expiresAt, sess.User.ID, sess.User.Email, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE browser_key = ?`, key); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
