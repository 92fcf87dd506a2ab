package gateway

import (
	"crypto/subtle"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/soyeahso/mrbooky/internal/config"
)

// AuthResult is the outcome of an authentication attempt.
type AuthResult struct {
	OK     bool   `json:"ok"`
	Method string `json:"method,omitempty"` // "api_key" | "none"
	Reason string `json:"reason,omitempty"`
}

// ResolvedAuth holds the API keys accepted by the gateway.
type ResolvedAuth struct {
	Keys []string
}

// ResolveAuth collects the configured API keys, dropping blanks and
// duplicates. No keys means the gateway is open.
func ResolveAuth(cfg config.GatewayConfig) ResolvedAuth {
	var auth ResolvedAuth
	seen := make(map[string]bool)
	for _, k := range cfg.APIKeys {
		k = strings.TrimSpace(k)
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		auth.Keys = append(auth.Keys, k)
	}
	return auth
}

// Enabled reports whether requests must present a key.
func (a ResolvedAuth) Enabled() bool { return len(a.Keys) > 0 }

// Authorize checks a presented key against the configured ones.
func Authorize(serverAuth ResolvedAuth, key string) AuthResult {
	if !serverAuth.Enabled() {
		return AuthResult{OK: true, Method: "none"}
	}
	if key == "" {
		return AuthResult{OK: false, Reason: "api key required"}
	}
	for _, k := range serverAuth.Keys {
		if safeEqual(key, k) {
			return AuthResult{OK: true, Method: "api_key"}
		}
	}
	return AuthResult{OK: false, Reason: "invalid api key"}
}

// credentialFrom reads the key from X-API-Key or an Authorization bearer
// token. WebSocket upgrades may also pass it as the api_key query
// parameter since browsers cannot set headers on them.
func credentialFrom(r *http.Request) string {
	if k := strings.TrimSpace(r.Header.Get("X-API-Key")); k != "" {
		return k
	}
	if h := r.Header.Get("Authorization"); len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	if r.URL.Path == "/ws" {
		return r.URL.Query().Get("api_key")
	}
	return ""
}

// safeEqual performs a constant-time string comparison to prevent timing attacks.
// It avoids early-return on length mismatch to prevent leaking secret length via timing.
func safeEqual(a, b string) bool {
	lenMatch := subtle.ConstantTimeEq(int32(len(a)), int32(len(b)))
	cmp := subtle.ConstantTimeCompare([]byte(a), []byte(b))
	return subtle.ConstantTimeSelect(lenMatch, cmp, 0) == 1
}

// authFailures tracks failed auth attempts per IP to slow down key guessing.
type authFailures struct {
	mu       sync.Mutex
	failures map[string][]time.Time
	now      func() time.Time
}

const (
	authFailWindow   = 5 * time.Minute
	authFailMax      = 10
	authFailMaxHosts = 10000 // cap on tracked IPs
)

func newAuthFailures() *authFailures {
	return &authFailures{failures: make(map[string][]time.Time), now: time.Now}
}

// blocked reports whether host has used up its failed attempts.
func (l *authFailures) blocked(remoteAddr string) bool {
	host := hostOf(remoteAddr)

	l.mu.Lock()
	defer l.mu.Unlock()

	recent := l.prune(host)
	return len(recent) >= authFailMax
}

func (l *authFailures) record(remoteAddr string) {
	host := hostOf(remoteAddr)

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.failures[host]; !exists && len(l.failures) >= authFailMaxHosts {
		var oldestIP string
		var oldest time.Time
		for ip, times := range l.failures {
			if len(times) > 0 && (oldestIP == "" || times[0].Before(oldest)) {
				oldestIP, oldest = ip, times[0]
			}
		}
		delete(l.failures, oldestIP)
	}
	l.failures[host] = append(l.failures[host], l.now())
}

// sweep drops expired entries for every host.
func (l *authFailures) sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for host := range l.failures {
		l.prune(host)
	}
}

// prune must be called with mu held.
func (l *authFailures) prune(host string) []time.Time {
	cutoff := l.now().Add(-authFailWindow)
	times := l.failures[host]
	kept := times[:0]
	for _, t := range times {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	if len(kept) == 0 {
		delete(l.failures, host)
		return nil
	}
	l.failures[host] = kept
	return kept
}

func hostOf(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil || host == "" {
		return remoteAddr
	}
	return host
}
