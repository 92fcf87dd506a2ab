package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sort"
	"time"

	"github.com/gorilla/websocket"

	"github.com/soyeahso/mrbooky/internal/agent"
	"github.com/soyeahso/mrbooky/internal/channel"
	"github.com/soyeahso/mrbooky/internal/config"
	"github.com/soyeahso/mrbooky/internal/hooks"
	"github.com/soyeahso/mrbooky/internal/logging"
	"github.com/soyeahso/mrbooky/internal/version"
)

var ErrClientClosed = errors.New("client connection closed")

// Engine answers chat messages. *agent.Runner implements it.
type Engine interface {
	Run(ctx context.Context, sessionID, text string) (*agent.RunResult, error)
	ClearSession(ctx context.Context, sessionID string) error
}

// Server is the mrbooky chat gateway: JSON over HTTP plus a WebSocket
// channel for the web widget.
type Server struct {
	cfg      config.GatewayConfig
	auth     ResolvedAuth
	log      *logging.Logger
	engine   Engine
	clients  *ClientRegistry
	handlers map[string]RequestHandler
	version  string

	// Channel registry, nil when no channels are configured.
	channels *channel.Registry

	// Hook manager, nil when not configured.
	hooks *hooks.Manager

	limiter  *clientLimiter
	failures *authFailures

	startedAt  time.Time
	httpServer *http.Server
	upgrader   websocket.Upgrader
}

// ServerOption configures the gateway server.
type ServerOption func(*Server)

// WithChannels sets the channel registry for channel status reporting.
func WithChannels(ch *channel.Registry) ServerOption {
	return func(s *Server) {
		s.channels = ch
	}
}

// WithHooks sets the hook manager for lifecycle events.
func WithHooks(hm *hooks.Manager) ServerOption {
	return func(s *Server) {
		s.hooks = hm
	}
}

// New creates a new gateway server around engine.
func New(cfg config.GatewayConfig, engine Engine, log *logging.Logger, opts ...ServerOption) *Server {
	s := &Server{
		cfg:      cfg,
		auth:     ResolveAuth(cfg),
		log:      log.Sub("gateway"),
		engine:   engine,
		clients:  NewClientRegistry(log.Sub("clients")),
		handlers: make(map[string]RequestHandler),
		version:  version.Version,
		limiter:  newClientLimiter(cfg.RateLimit),
		failures: newAuthFailures(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     checkWebSocketOrigin(cfg.AllowedOrigins),
		},
	}

	for _, opt := range opts {
		opt(s)
	}

	s.registerRPCHandlers()
	if s.hooks != nil {
		s.hooks.On(hooks.EventSessionCleared, "gateway.ws", s.onSessionCleared)
	}
	return s
}

// checkWebSocketOrigin returns a function that validates WebSocket Origin headers.
// If no origins are configured, only same-origin (no Origin header) or non-browser
// clients are allowed. If origins are configured, the Origin must match one of them.
func checkWebSocketOrigin(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		return isOriginAllowed(origin, allowed)
	}
}

// Handle registers an RPC method handler.
func (s *Server) Handle(method string, handler RequestHandler) {
	s.handlers[method] = handler
}

// Methods returns the registered RPC method names, sorted.
func (s *Server) Methods() []string {
	methods := make([]string, 0, len(s.handlers))
	for m := range s.handlers {
		methods = append(methods, m)
	}
	sort.Strings(methods)
	return methods
}

// resolveBindAddr computes the listen address from config.
func resolveBindAddr(cfg config.GatewayConfig) string {
	switch cfg.Bind {
	case "loopback":
		return fmt.Sprintf("127.0.0.1:%d", cfg.Port)
	case "lan", "auto":
		return fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	case "custom":
		host := cfg.CustomBindHost
		if host == "" {
			host = "0.0.0.0"
		}
		return fmt.Sprintf("%s:%d", host, cfg.Port)
	default:
		return fmt.Sprintf("127.0.0.1:%d", cfg.Port)
	}
}

// Handler returns the full HTTP handler: routes plus middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.registerHTTPRoutes(mux)
	return s.withMiddleware(mux)
}

// Start begins listening for HTTP and WebSocket connections.
// It blocks until the context is cancelled or an error occurs.
func (s *Server) Start(ctx context.Context) error {
	addr := resolveBindAddr(s.cfg)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
		BaseContext:  func(l net.Listener) context.Context { return ctx },
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	s.startedAt = time.Now()
	if !s.auth.Enabled() && s.cfg.Bind != "loopback" {
		s.log.Warn().Msg("no API keys configured; the chat endpoint is open to anyone who can reach it")
	}

	s.log.Info().
		Str("addr", ln.Addr().String()).
		Str("bind", s.cfg.Bind).
		Bool("auth", s.auth.Enabled()).
		Int("methods", len(s.handlers)).
		Msg("gateway server ready")

	if s.hooks != nil {
		s.hooks.Emit(ctx, hooks.EventGatewayStart, "", map[string]any{
			"addr": ln.Addr().String(),
		})
	}

	go s.sweepLoop(ctx)

	// Shutdown when context is cancelled
	go func() {
		<-ctx.Done()
		s.log.Info().Msg("shutting down gateway server")
		if s.hooks != nil {
			s.hooks.Emit(context.Background(), hooks.EventGatewayStop, "", nil)
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.clients.CloseAll()
		s.httpServer.Shutdown(shutdownCtx)
	}()

	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// sweepLoop drops idle rate-limit buckets and stale auth failures.
func (s *Server) sweepLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.limiter.sweep()
			s.failures.sweep()
		}
	}
}

// Addr returns the server's listen address, or empty string if not started.
func (s *Server) Addr() string {
	if s.httpServer != nil {
		return s.httpServer.Addr
	}
	return ""
}

// handleWebSocket upgrades HTTP to WebSocket and runs the connection loop.
// Authentication already happened in the middleware.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}
	conn.SetReadLimit(s.maxBodyBytes())

	q := r.URL.Query()
	info := ClientInfo{ID: q.Get("client"), UserAgent: r.UserAgent(), Remote: r.RemoteAddr}
	client := NewClient(conn, info, resolveSessionID(q.Get("session_id"), q.Get("user_id"), ""), s.log.Sub("ws"))

	hello := Hello{
		Protocol:  ProtocolVersion,
		Server:    ServerInfo{Version: s.version, Commit: version.Commit, ConnID: client.ConnID},
		SessionID: client.SessionID,
		Features: Features{
			Methods: s.Methods(),
			Events:  []string{"hello", "session.cleared"},
		},
		Policy: ServerPolicy{
			MaxPayload:      int(s.maxBodyBytes()),
			MaxMessageChars: s.cfg.MaxMessageChars,
		},
	}
	if err := client.SendEvent("hello", hello); err != nil {
		s.log.Warn().Err(err).Msg("sending hello failed")
		client.Close()
		return
	}

	s.clients.Add(client)
	defer func() {
		s.clients.Remove(client.ConnID)
		client.Close()
	}()

	s.readLoop(r.Context(), client)
}

// readLoop processes incoming frames from a connected client.
func (s *Server) readLoop(ctx context.Context, client *Client) {
	for {
		frame, err := client.ReadFrame()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debug().Str("connId", client.ConnID).Msg("client closed connection")
			} else {
				s.log.Warn().Err(err).Str("connId", client.ConnID).Msg("read error")
			}
			return
		}

		if frame.Type != FrameTypeRequest {
			s.log.Debug().Str("type", frame.Type).Msg("ignoring non-request frame")
			continue
		}

		s.dispatch(ctx, client, frame)
	}
}

// dispatch routes a request frame to the appropriate handler.
func (s *Server) dispatch(ctx context.Context, client *Client, frame Frame) {
	handler, ok := s.handlers[frame.Method]
	if !ok {
		client.RespondError(frame.ID, ErrorShape{
			Code:    "method_not_found",
			Message: "unknown method: " + frame.Method,
		})
		return
	}

	rc := &RequestContext{
		Ctx:    ctx,
		Client: client,
		Frame:  frame,
		Server: s,
	}
	handler(rc)
}

// onSessionCleared tells widgets attached to a deleted session.
func (s *Server) onSessionCleared(_ context.Context, p hooks.Payload) error {
	if p.String("reason") != "deleted" {
		return nil
	}
	s.clients.NotifySession(p.SessionID, "session.cleared", map[string]any{"sessionId": p.SessionID})
	return nil
}

func (s *Server) maxBodyBytes() int64 {
	if s.cfg.MaxBodyBytes > 0 {
		return s.cfg.MaxBodyBytes
	}
	return 64 << 10
}
