package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/soyeahso/mrbooky/internal/domain"
)

// SQLiteSessionStore keeps sessions as JSON rows. Expiry is evaluated on
// read against updated_at; PurgeExpired removes stale rows in bulk.
type SQLiteSessionStore struct {
	db  *DB
	ttl time.Duration
	now func() time.Time
}

// NewSQLiteSessionStore creates a session store using the given database.
func NewSQLiteSessionStore(db *DB, ttl time.Duration) *SQLiteSessionStore {
	return &SQLiteSessionStore{db: db, ttl: ttl, now: time.Now}
}

// Get returns a session by ID, or ErrNotFound when absent or expired.
func (s *SQLiteSessionStore) Get(ctx context.Context, id string) (*domain.Session, error) {
	var payload string
	var updated int64
	err := s.db.sql.QueryRowContext(ctx,
		`SELECT payload, updated_at FROM sessions WHERE id = ?`, id,
	).Scan(&payload, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading session %s: %w", id, err)
	}
	if expired(time.Unix(updated, 0), s.ttl, s.now()) {
		if err := s.Delete(ctx, id); err != nil {
			s.db.log.Warn().Err(err).Str("session", id).Msg("failed to drop expired session")
		}
		return nil, ErrNotFound
	}

	var sess domain.Session
	if err := json.Unmarshal([]byte(payload), &sess); err != nil {
		return nil, fmt.Errorf("decoding session %s: %w", id, err)
	}
	sess.Normalize()
	return &sess, nil
}

// Set upserts a session and refreshes its expiry.
func (s *SQLiteSessionStore) Set(ctx context.Context, sess *domain.Session) error {
	b, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encoding session %s: %w", sess.ID, err)
	}
	_, err = s.db.sql.ExecContext(ctx,
		`INSERT INTO sessions (id, intent, payload, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   intent = excluded.intent,
		   payload = excluded.payload,
		   updated_at = excluded.updated_at`,
		sess.ID, string(sess.Intent), string(b),
		sess.CreatedAt.UTC().Format(time.DateTime), s.now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("saving session %s: %w", sess.ID, err)
	}
	return nil
}

// Delete removes a session.
func (s *SQLiteSessionStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.sql.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting session %s: %w", id, err)
	}
	return nil
}

// PurgeExpired deletes every session older than the TTL and returns how
// many rows were removed.
func (s *SQLiteSessionStore) PurgeExpired(ctx context.Context) (int64, error) {
	if s.ttl <= 0 {
		return 0, nil
	}
	cutoff := s.now().Add(-s.ttl).Unix()
	res, err := s.db.sql.ExecContext(ctx, `DELETE FROM sessions WHERE updated_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purging sessions: %w", err)
	}
	return res.RowsAffected()
}

// SessionSummary is a row of the session listing.
type SessionSummary struct {
	ID        string        `json:"id"`
	Intent    domain.Intent `json:"intent"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

// List returns the most recently touched sessions.
func (s *SQLiteSessionStore) List(ctx context.Context, limit int) ([]SessionSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.sql.QueryContext(ctx,
		`SELECT id, intent, updated_at FROM sessions ORDER BY updated_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionSummary
	for rows.Next() {
		var sum SessionSummary
		var intent string
		var updated int64
		if err := rows.Scan(&sum.ID, &intent, &updated); err != nil {
			return nil, err
		}
		sum.Intent = domain.ParseIntent(intent)
		sum.UpdatedAt = time.Unix(updated, 0)
		out = append(out, sum)
	}
	return out, rows.Err()
}
