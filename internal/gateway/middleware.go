package gateway

import (
	"bufio"
	"errors"
	"math"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/soyeahso/mrbooky/internal/logging"
)

// withMiddleware wraps the mux with the standard middleware chain.
func (s *Server) withMiddleware(handler http.Handler) http.Handler {
	h := handler
	h = rateLimitMiddleware(h, s.limiter, s.log)
	h = authMiddleware(h, s.auth, s.failures, s.log)
	h = requestIDMiddleware(h)
	h = corsMiddleware(h, s.cfg.AllowedOrigins)
	h = loggingMiddleware(h, s.log)
	return h
}

// loggingMiddleware logs each HTTP request.
func loggingMiddleware(next http.Handler, log *logging.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", sw.status).
			Dur("duration", time.Since(start)).
			Str("remote", r.RemoteAddr).
			Msg("http request")
	})
}

// requestIDMiddleware adds a unique request ID to each request/response.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = uuid.New().String()
		}
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r)
	})
}

// corsMiddleware handles CORS headers for the web widget.
func corsMiddleware(next http.Handler, allowedOrigins []string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && isOriginAllowed(origin, allowedOrigins) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key, X-Request-ID")
			w.Header().Set("Access-Control-Max-Age", "86400")
			w.Header().Add("Vary", "Origin")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func isOriginAllowed(origin string, allowed []string) bool {
	for _, a := range allowed {
		if a == "*" || a == origin {
			return true
		}
	}
	return false
}

// isPublic lists the routes reachable without an API key.
func isPublic(r *http.Request) bool {
	return r.Method == http.MethodGet && r.URL.Path == "/health"
}

// authMiddleware rejects requests without a valid API key. Hosts with too
// many recent failures are refused before their key is even checked.
func authMiddleware(next http.Handler, auth ResolvedAuth, failures *authFailures, log *logging.Logger) http.Handler {
	if !auth.Enabled() {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isPublic(r) {
			next.ServeHTTP(w, r)
			return
		}
		if failures.blocked(r.RemoteAddr) {
			log.Warn().Str("remote", r.RemoteAddr).Msg("too many failed auth attempts")
			writeError(w, http.StatusTooManyRequests, "too many failed attempts")
			return
		}
		res := Authorize(auth, credentialFrom(r))
		if !res.OK {
			failures.record(r.RemoteAddr)
			log.Debug().Str("remote", r.RemoteAddr).Str("reason", res.Reason).Msg("unauthorized request")
			w.Header().Set("WWW-Authenticate", `Bearer realm="mrbooky"`)
			writeError(w, http.StatusUnauthorized, res.Reason)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// rateLimitMiddleware throttles each client, keyed by API key when one was
// presented and by remote IP otherwise.
func rateLimitMiddleware(next http.Handler, limiter *clientLimiter, log *logging.Logger) http.Handler {
	if limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isPublic(r) {
			next.ServeHTTP(w, r)
			return
		}
		key := credentialFrom(r)
		if key == "" {
			key = "ip:" + hostOf(r.RemoteAddr)
		}
		if ok, wait := limiter.allow(key); !ok {
			if wait > 0 {
				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			}
			log.Debug().Str("remote", r.RemoteAddr).Dur("retryAfter", wait).Msg("rate limited")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusWriter wraps ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Hijack passes the connection through for WebSocket upgrades.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	w.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (w *statusWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }
