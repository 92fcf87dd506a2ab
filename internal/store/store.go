// Package store persists dialogue sessions and finalized bookings. Sessions
// live behind the SessionStore contract with a per-store TTL; the in-memory,
// SQLite and Redis backends are interchangeable.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/soyeahso/mrbooky/internal/domain"
	"github.com/soyeahso/mrbooky/internal/logging"
)

// ErrNotFound is returned by Get when a session is absent or expired.
var ErrNotFound = errors.New("session not found")

// SessionStore is the persistence contract of the dialogue engine.
type SessionStore interface {
	Get(ctx context.Context, id string) (*domain.Session, error)
	Set(ctx context.Context, sess *domain.Session) error
	Delete(ctx context.Context, id string) error
}

// Backend names accepted by New.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Options selects and configures a session backend.
type Options struct {
	Backend   string
	TTL       time.Duration
	DB        *DB // sqlite
	RedisURL  string
	KeyPrefix string
}

// New builds the session store named by opts.Backend.
func New(opts Options, log *logging.Logger) (SessionStore, error) {
	switch opts.Backend {
	case "", BackendMemory:
		return NewMemoryStore(opts.TTL), nil
	case BackendSQLite:
		if opts.DB == nil {
			return nil, errors.New("sqlite session store needs an open database")
		}
		return NewSQLiteSessionStore(opts.DB, opts.TTL), nil
	case BackendRedis:
		return NewRedisStoreFromURL(opts.RedisURL, opts.KeyPrefix, opts.TTL, log)
	}
	return nil, fmt.Errorf("unknown session store backend %q", opts.Backend)
}

func expired(updated time.Time, ttl time.Duration, now time.Time) bool {
	return ttl > 0 && now.Sub(updated) > ttl
}
