package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/soyeahso/mrbooky/internal/domain"
	"github.com/soyeahso/mrbooky/internal/logging"
)

// DefaultKeyPrefix namespaces session keys in a shared Redis.
const DefaultKeyPrefix = "mrbooky:session:"

// RedisStore keeps sessions as JSON strings with a native Redis TTL.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

// NewRedisStoreFromURL connects to the Redis at url (redis://host:port/db).
func NewRedisStoreFromURL(url, prefix string, ttl time.Duration, log *logging.Logger) (*RedisStore, error) {
	if url == "" {
		return nil, errors.New("redis session store needs a url")
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	log.Sub("store").Info().Str("addr", opts.Addr).Int("db", opts.DB).Msg("using redis session store")
	return NewRedisStore(redis.NewClient(opts), prefix, ttl), nil
}

func (s *RedisStore) key(id string) string { return s.prefix + id }

// Get returns a session, or ErrNotFound when the key is missing or expired.
func (s *RedisStore) Get(ctx context.Context, id string) (*domain.Session, error) {
	data, err := s.client.Get(ctx, s.key(id)).Result()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", id, err)
	}
	var sess domain.Session
	if err := json.Unmarshal([]byte(data), &sess); err != nil {
		return nil, fmt.Errorf("decoding session %s: %w", id, err)
	}
	sess.Normalize()
	return &sess, nil
}

// Set stores a session and resets its TTL.
func (s *RedisStore) Set(ctx context.Context, sess *domain.Session) error {
	b, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(sess.ID), b, s.ttl).Err()
}

// Delete removes a session.
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	return s.client.Del(ctx, s.key(id)).Err()
}

// Ping checks connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
