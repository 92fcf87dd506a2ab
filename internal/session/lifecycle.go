// Package session owns the lifecycle of dialogue sessions: load-or-create,
// the follow-up budget, the context buffer and per-session serialization.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/soyeahso/mrbooky/internal/domain"
	"github.com/soyeahso/mrbooky/internal/logging"
	"github.com/soyeahso/mrbooky/internal/store"
)

// Options configures a Lifecycle.
type Options struct {
	Budget       int
	ContextTurns int
	Now          func() time.Time
}

// Lifecycle wraps a SessionStore with the session rules of the bot.
type Lifecycle struct {
	store store.SessionStore
	opts  Options
	locks *keyedMutex
	log   *logging.Logger
}

// NewLifecycle creates a lifecycle over st.
func NewLifecycle(st store.SessionStore, opts Options, log *logging.Logger) *Lifecycle {
	if opts.Budget <= 0 {
		opts.Budget = 3
	}
	if opts.ContextTurns <= 0 {
		opts.ContextTurns = 10
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Lifecycle{store: st, opts: opts, locks: newKeyedMutex(), log: log.Sub("session")}
}

// Budget returns the number of follow-up turns a new intent gets.
func (l *Lifecycle) Budget() int { return l.opts.Budget }

// Lock serializes all work on one session id. Callers hold it around the
// whole load, decide, mutate and save sequence of a request.
func (l *Lifecycle) Lock(id string) (unlock func()) {
	return l.locks.Lock(id)
}

// Get loads a session, creating a fresh one when it is absent or expired.
func (l *Lifecycle) Get(ctx context.Context, id string) (*domain.Session, error) {
	sess, err := l.store.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		l.log.Debug().Str("session", id).Msg("creating session")
		return domain.NewSession(id, l.opts.Budget, l.opts.Now()), nil
	}
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// Save persists sess.
func (l *Lifecycle) Save(ctx context.Context, sess *domain.Session) error {
	sess.UpdatedAt = l.opts.Now()
	return l.store.Set(ctx, sess)
}

// Consume spends one follow-up turn. When the budget runs out the session
// is cleared and true is returned.
func (l *Lifecycle) Consume(sess *domain.Session) bool {
	sess.Budget--
	if sess.Budget > 0 {
		return false
	}
	l.log.Debug().Str("session", sess.ID).Str("intent", sess.Intent.Short()).Msg("follow-up budget exhausted")
	sess.Clear(l.opts.Budget)
	return true
}

// Remember appends an exchange to the context buffer of sess.
func (l *Lifecycle) Remember(sess *domain.Session, user, reply string) {
	sess.PushContext(user, reply, l.opts.ContextTurns)
}

// Reset clears sess in place.
func (l *Lifecycle) Reset(sess *domain.Session) {
	sess.Clear(l.opts.Budget)
}

// Clear deletes a stored session; the next Get starts fresh.
func (l *Lifecycle) Clear(ctx context.Context, id string) error {
	unlock := l.Lock(id)
	defer unlock()
	return l.store.Delete(ctx, id)
}

// Update runs fn on the session under its lock and saves the result. The
// session is not saved when fn fails.
func (l *Lifecycle) Update(ctx context.Context, id string, fn func(*domain.Session) error) error {
	unlock := l.Lock(id)
	defer unlock()

	sess, err := l.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := fn(sess); err != nil {
		return err
	}
	return l.Save(ctx, sess)
}

// Peek loads a session without creating it.
func (l *Lifecycle) Peek(ctx context.Context, id string) (*domain.Session, error) {
	return l.store.Get(ctx, id)
}
