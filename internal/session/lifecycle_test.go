package session

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soyeahso/mrbooky/internal/domain"
	"github.com/soyeahso/mrbooky/internal/logging"
	"github.com/soyeahso/mrbooky/internal/store"
)

var fixedNow = time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

func newTestLifecycle(st store.SessionStore) *Lifecycle {
	return NewLifecycle(st, Options{Budget: 3, ContextTurns: 4, Now: func() time.Time { return fixedNow }},
		logging.New(io.Discard, "error"))
}

func TestGetCreatesFreshSession(t *testing.T) {
	l := newTestLifecycle(store.NewMemoryStore(0))
	sess, err := l.Get(context.Background(), "web:1")
	require.NoError(t, err)
	assert.Equal(t, "web:1", sess.ID)
	assert.True(t, sess.IsFresh(3))
	assert.Equal(t, fixedNow, sess.CreatedAt)
}

func TestBudgetExhaustionClears(t *testing.T) {
	ctx := context.Background()
	l := newTestLifecycle(store.NewMemoryStore(0))

	sess, err := l.Get(ctx, "web:1")
	require.NoError(t, err)
	sess.Adopt(domain.IntentPharmacy, 3)
	sess.SetSlot(domain.SlotArea, "Ρίο")
	sess.Budget = 1
	require.NoError(t, l.Save(ctx, sess))

	var cleared bool
	require.NoError(t, l.Update(ctx, "web:1", func(sess *domain.Session) error {
		cleared = l.Consume(sess)
		return nil
	}))
	assert.True(t, cleared)

	stored, err := l.Get(ctx, "web:1")
	require.NoError(t, err)
	assert.Equal(t, domain.IntentNone, stored.Intent)
	assert.Empty(t, stored.Slots)
}

func TestConsumeKeepsIntentWhileBudgetLeft(t *testing.T) {
	l := newTestLifecycle(store.NewMemoryStore(0))
	sess := domain.NewSession("x", 3, fixedNow)
	sess.Adopt(domain.IntentServices, 3)

	assert.False(t, l.Consume(sess))
	assert.Equal(t, 2, sess.Budget)
	assert.False(t, l.Consume(sess))
	assert.True(t, l.Consume(sess))
	assert.Equal(t, domain.IntentNone, sess.Intent)
	assert.Equal(t, 3, sess.Budget)
}

// remember appends an exchange to a stored session.
func remember(ctx context.Context, l *Lifecycle, id, user, reply string) error {
	return l.Update(ctx, id, func(sess *domain.Session) error {
		l.Remember(sess, user, reply)
		return nil
	})
}

func TestRememberKeepsLastN(t *testing.T) {
	ctx := context.Background()
	l := newTestLifecycle(store.NewMemoryStore(0))
	require.NoError(t, remember(ctx, l, "s", "u1", "a1"))
	require.NoError(t, remember(ctx, l, "s", "u2", "a2"))
	require.NoError(t, remember(ctx, l, "s", "u3", "a3"))

	sess, err := l.Get(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, []string{"U: u2", "A: a2", "U: u3", "A: a3"}, sess.ContextTurns)
}

func TestClearDeletes(t *testing.T) {
	ctx := context.Background()
	l := newTestLifecycle(store.NewMemoryStore(0))
	require.NoError(t, remember(ctx, l, "s", "u", "a"))
	require.NoError(t, l.Clear(ctx, "s"))

	_, err := l.Peek(ctx, "s")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestUpdateDoesNotSaveOnError(t *testing.T) {
	ctx := context.Background()
	l := newTestLifecycle(store.NewMemoryStore(0))
	err := l.Update(ctx, "s", func(sess *domain.Session) error {
		sess.SetSlot(domain.SlotArea, "Ρίο")
		return errors.New("boom")
	})
	require.Error(t, err)
	_, err = l.Peek(ctx, "s")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestExpiredSessionStartsFresh(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore(time.Nanosecond)
	l := newTestLifecycle(mem)
	require.NoError(t, remember(ctx, l, "s", "u", "a"))
	time.Sleep(time.Millisecond)

	sess, err := l.Get(ctx, "s")
	require.NoError(t, err)
	assert.Empty(t, sess.ContextTurns)
}

func TestConcurrentUpdatesDoNotLoseWrites(t *testing.T) {
	ctx := context.Background()
	l := NewLifecycle(store.NewMemoryStore(0), Options{Budget: 3, ContextTurns: 1000}, logging.New(io.Discard, "error"))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, remember(ctx, l, "same", "u", "a"))
		}()
	}
	wg.Wait()

	sess, err := l.Get(ctx, "same")
	require.NoError(t, err)
	assert.Len(t, sess.ContextTurns, 100)
	assert.Zero(t, l.locks.size())
}
