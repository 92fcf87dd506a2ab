package gateway

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/soyeahso/mrbooky/internal/config"
)

const limiterIdleTTL = 10 * time.Minute

// clientLimiter hands out a token bucket per client key (API key or IP).
type clientLimiter struct {
	mu      sync.Mutex
	every   rate.Limit
	burst   int
	clients map[string]*limiterEntry
	now     func() time.Time
}

type limiterEntry struct {
	lim  *rate.Limiter
	seen time.Time
}

// newClientLimiter allows MaxRequests per WindowSec for each client. It
// returns nil when limiting is disabled.
func newClientLimiter(cfg config.RateLimitConfig) *clientLimiter {
	if cfg.MaxRequests <= 0 || cfg.WindowSec <= 0 {
		return nil
	}
	window := time.Duration(cfg.WindowSec) * time.Second
	return &clientLimiter{
		every:   rate.Every(window / time.Duration(cfg.MaxRequests)),
		burst:   cfg.MaxRequests,
		clients: make(map[string]*limiterEntry),
		now:     time.Now,
	}
}

// allow reports whether key may make a request now. On refusal it also
// returns how long the client should wait.
func (l *clientLimiter) allow(key string) (bool, time.Duration) {
	if l == nil {
		return true, 0
	}
	now := l.now()

	l.mu.Lock()
	e, ok := l.clients[key]
	if !ok {
		e = &limiterEntry{lim: rate.NewLimiter(l.every, l.burst)}
		l.clients[key] = e
	}
	e.seen = now
	l.mu.Unlock()

	r := e.lim.ReserveN(now, 1)
	if !r.OK() {
		return false, 0
	}
	if d := r.DelayFrom(now); d > 0 {
		r.CancelAt(now)
		return false, d
	}
	return true, 0
}

// sweep forgets clients idle for longer than limiterIdleTTL.
func (l *clientLimiter) sweep() {
	if l == nil {
		return
	}
	cutoff := l.now().Add(-limiterIdleTTL)
	l.mu.Lock()
	defer l.mu.Unlock()
	for k, e := range l.clients {
		if e.seen.Before(cutoff) {
			delete(l.clients, k)
		}
	}
}

func (l *clientLimiter) size() int {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}
