package gateway

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/soyeahso/mrbooky/internal/config"
	"github.com/soyeahso/mrbooky/internal/logging"
)

func silentLog() *logging.Logger {
	return logging.New(io.Discard, "silent")
}

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
})

func TestLoggingMiddleware(t *testing.T) {
	handler := loggingMiddleware(okHandler, silentLog())

	req := httptest.NewRequest("GET", "/test", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", rr.Body.String())
}

func TestRequestIDMiddleware(t *testing.T) {
	handler := requestIDMiddleware(okHandler)

	req := httptest.NewRequest("GET", "/test", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))

	req = httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("X-Request-ID", "custom-id-123")
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.Equal(t, "custom-id-123", rr.Header().Get("X-Request-ID"))
}

func TestCORSMiddleware(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		origin  string
		want    string
	}{
		{"deny when unconfigured", nil, "http://localhost:3000", ""},
		{"wildcard", []string{"*"}, "http://localhost:3000", "http://localhost:3000"},
		{"listed origin", []string{"https://taxipatras.com"}, "https://taxipatras.com", "https://taxipatras.com"},
		{"unlisted origin", []string{"https://taxipatras.com"}, "http://evil.com", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := corsMiddleware(okHandler, tt.allowed)
			req := httptest.NewRequest("POST", "/chat", nil)
			req.Header.Set("Origin", tt.origin)
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)
			assert.Equal(t, tt.want, rr.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}

func TestCORSMiddleware_Preflight(t *testing.T) {
	handler := corsMiddleware(okHandler, []string{"*"})

	req := httptest.NewRequest("OPTIONS", "/chat", nil)
	req.Header.Set("Origin", "https://taxipatras.com")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Empty(t, rr.Body.String())
	assert.Contains(t, rr.Header().Get("Access-Control-Allow-Headers"), "X-API-Key")
	assert.Contains(t, rr.Header().Get("Access-Control-Allow-Methods"), "DELETE")
}

func TestAuthMiddleware(t *testing.T) {
	auth := ResolvedAuth{Keys: []string{"k1"}}
	handler := authMiddleware(okHandler, auth, newAuthFailures(), silentLog())

	req := httptest.NewRequest("GET", "/health", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code, "health is public")

	req = httptest.NewRequest("POST", "/chat", nil)
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("WWW-Authenticate"))

	req = httptest.NewRequest("POST", "/chat", nil)
	req.Header.Set("X-API-Key", "k1")
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestAuthMiddleware_BlocksRepeatedFailures(t *testing.T) {
	handler := authMiddleware(okHandler, ResolvedAuth{Keys: []string{"k1"}}, newAuthFailures(), silentLog())

	for i := 0; i < authFailMax; i++ {
		req := httptest.NewRequest("POST", "/chat", nil)
		req.Header.Set("X-API-Key", "guess")
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	}

	req := httptest.NewRequest("POST", "/chat", nil)
	req.Header.Set("X-API-Key", "k1")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
}

func TestAuthMiddleware_DisabledPassesThrough(t *testing.T) {
	handler := authMiddleware(okHandler, ResolvedAuth{}, newAuthFailures(), silentLog())
	req := httptest.NewRequest("POST", "/chat", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestClientLimiter(t *testing.T) {
	assert.Nil(t, newClientLimiter(config.RateLimitConfig{}))

	now := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	l := newClientLimiter(config.RateLimitConfig{WindowSec: 60, MaxRequests: 2})
	l.now = func() time.Time { return now }

	ok, _ := l.allow("a")
	assert.True(t, ok)
	ok, _ = l.allow("a")
	assert.True(t, ok)
	ok, wait := l.allow("a")
	assert.False(t, ok)
	assert.InDelta(t, 30*time.Second, wait, float64(time.Second))

	ok, _ = l.allow("b")
	assert.True(t, ok, "clients have separate buckets")

	now = now.Add(31 * time.Second)
	ok, _ = l.allow("a")
	assert.True(t, ok, "one token refills every window/max")

	assert.Equal(t, 2, l.size())
	now = now.Add(limiterIdleTTL + time.Second)
	l.sweep()
	assert.Equal(t, 0, l.size())
}

func TestRateLimitMiddleware(t *testing.T) {
	limiter := newClientLimiter(config.RateLimitConfig{WindowSec: 60, MaxRequests: 1})
	handler := rateLimitMiddleware(okHandler, limiter, silentLog())

	send := func(key string) *httptest.ResponseRecorder {
		req := httptest.NewRequest("POST", "/chat", nil)
		if key != "" {
			req.Header.Set("X-API-Key", key)
		}
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr
	}

	assert.Equal(t, http.StatusOK, send("k1").Code)
	rr := send("k1")
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "60", rr.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, send("k2").Code)
	assert.Equal(t, http.StatusOK, send("").Code, "anonymous clients are keyed by IP")
}
