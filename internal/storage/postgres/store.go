package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/devilmonastery/hrconsole/internal/pkg/idgen"
	"github.com/devilmonastery/hrconsole/internal/pkg/metrics"
	"github.com/devilmonastery/hrconsole/internal/storage"
)

const backendName = "postgres"

// Sessions manages server-side session rows
type Sessions struct {
	db *sqlx.DB
}

// NewSessions creates a session manager over db
func NewSessions(db *sqlx.DB) *Sessions {
	return &Sessions{db: db}
}

// NewID allocates a fresh session ID
func (s *Sessions) NewID() string {
	return idgen.GenerateID()
}

// Open returns the store for one session
func (s *Sessions) Open(sessionID string) *Store {
	return &Store{db: s.db, sessionID: sessionID}
}

// Destroy removes every value belonging to a session
func (s *Sessions) Destroy(ctx context.Context, sessionID string) error {
	start := time.Now()
	_, err := s.db.ExecContext(ctx, `DELETE FROM session_values WHERE session_id = $1`, sessionID)
	metrics.RecordStoreOperation(backendName, "destroy", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to destroy session: %w", err)
	}
	return nil
}

// PurgeIdle deletes sessions that have not been written for longer than idle.
// Returns the number of rows removed.
func (s *Sessions) PurgeIdle(ctx context.Context, idle time.Duration) (int64, error) {
	start := time.Now()
	cutoff := time.Now().Add(-idle)

	query := `DELETE FROM session_values WHERE session_id IN (
                  SELECT session_id FROM session_values
                  GROUP BY session_id
                  HAVING MAX(updated_at) < $1)`
	res, err := s.db.ExecContext(ctx, query, cutoff)
	metrics.RecordStoreOperation(backendName, "purge", time.Since(start), err)
	if err != nil {
		return 0, fmt.Errorf("failed to purge idle sessions: %w", err)
	}
	return res.RowsAffected()
}

// Store implements storage.Store for a single session row set
type Store struct {
	db        *sqlx.DB
	sessionID string
}

var _ storage.Store = (*Store)(nil)

// SessionID returns the session this store is bound to
func (s *Store) SessionID() string {
	return s.sessionID
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	start := time.Now()

	var value string
	err := s.db.GetContext(ctx, &value,
		`SELECT value FROM session_values WHERE session_id = $1 AND key = $2`,
		s.sessionID, key)
	if errors.Is(err, sql.ErrNoRows) {
		metrics.RecordStoreOperation(backendName, "get", time.Since(start), nil)
		return "", storage.ErrNotFound
	}
	metrics.RecordStoreOperation(backendName, "get", time.Since(start), err)
	if err != nil {
		return "", fmt.Errorf("failed to read session value: %w", err)
	}
	return value, nil
}

func (s *Store) SetMany(ctx context.Context, values map[string]string) (err error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreOperation(backendName, "set_many", time.Since(start), err)
	}()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	query := `INSERT INTO session_values (session_id, key, value, updated_at)
              VALUES ($1, $2, $3, NOW())
              ON CONFLICT (session_id, key)
              DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`
	for k, v := range values {
		if _, err = tx.ExecContext(ctx, query, s.sessionID, k, v); err != nil {
			return fmt.Errorf("failed to write session value %q: %w", k, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit session values: %w", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	start := time.Now()

	query, args, err := sqlx.In(`DELETE FROM session_values WHERE session_id = ? AND key IN (?)`, s.sessionID, keys)
	if err != nil {
		return fmt.Errorf("failed to build delete query: %w", err)
	}
	_, err = s.db.ExecContext(ctx, s.db.Rebind(query), args...)
	metrics.RecordStoreOperation(backendName, "delete", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to delete session values: %w", err)
	}
	return nil
}
