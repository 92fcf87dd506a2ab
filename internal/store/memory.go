package store

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/soyeahso/mrbooky/internal/domain"
)

// MemoryStore keeps sessions in process memory. Values are stored as JSON
// so callers never share a *domain.Session with the store.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]memoryItem
	ttl   time.Duration
	now   func() time.Time
}

type memoryItem struct {
	payload []byte
	touched time.Time
}

// NewMemoryStore creates an empty in-memory store. A zero ttl disables expiry.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{items: make(map[string]memoryItem), ttl: ttl, now: time.Now}
}

// Get returns a copy of the session, or ErrNotFound.
func (m *MemoryStore) Get(_ context.Context, id string) (*domain.Session, error) {
	m.mu.RLock()
	item, ok := m.items[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	if expired(item.touched, m.ttl, m.now()) {
		m.evict(id)
		return nil, ErrNotFound
	}
	var sess domain.Session
	if err := json.Unmarshal(item.payload, &sess); err != nil {
		return nil, err
	}
	sess.Normalize()
	return &sess, nil
}

// evict deletes id if it is still expired once the write lock is held. A
// Set that landed after the read must survive.
func (m *MemoryStore) evict(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[id]
	if !ok || !expired(item.touched, m.ttl, m.now()) {
		return false
	}
	delete(m.items, id)
	return true
}

// Set stores a copy of sess and refreshes its expiry.
func (m *MemoryStore) Set(_ context.Context, sess *domain.Session) error {
	b, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.items[sess.ID] = memoryItem{payload: b, touched: m.now()}
	m.mu.Unlock()
	return nil
}

// Delete removes a session. Deleting an absent id is not an error.
func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	delete(m.items, id)
	m.mu.Unlock()
	return nil
}

// Count returns the number of stored sessions, expired ones included.
func (m *MemoryStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}
