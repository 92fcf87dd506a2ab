package gateway

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/soyeahso/mrbooky/internal/tools"
)

// chatTimeout bounds one chat turn; it covers the tool timeout plus the
// session store round trips.
const chatTimeout = tools.DefaultTimeout + 5*time.Second

// registerHTTPRoutes sets up all HTTP routes on the server mux.
func (s *Server) registerHTTPRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /chat", s.handleChat)
	mux.HandleFunc("DELETE /sessions/{id}", s.handleDeleteSession)
	mux.HandleFunc("GET /ws", s.handleWebSocket)

	// Catch-all for unknown routes
	mux.HandleFunc("/", handleNotFound)
}

// registerRPCHandlers sets up the WebSocket method handlers.
func (s *Server) registerRPCHandlers() {
	s.Handle("health", s.rpcHealth)
	s.Handle("chat.send", s.rpcChatSend)
	s.Handle("session.clear", s.rpcSessionClear)
	s.Handle("channels.status", s.rpcChannelsStatus)
}

func (s *Server) rpcHealth(rc *RequestContext) {
	resp := HealthResponse{
		Status:  "ok",
		Version: s.version,
		Clients: s.clients.Count(),
	}
	if !s.startedAt.IsZero() {
		resp.UptimeMs = time.Since(s.startedAt).Milliseconds()
	}
	rc.Respond(resp)
}

func (s *Server) rpcChatSend(rc *RequestContext) {
	var p ChatRequest
	if err := rc.Params(&p); err != nil {
		rc.RespondError("invalid_params", err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(rc.Ctx, chatTimeout)
	defer cancel()

	resp, err := s.chat(ctx, p, rc.Client.SessionID)
	if err != nil {
		var ce *chatError
		if errors.As(err, &ce) {
			rc.RespondError(ce.Code, ce.Message)
			return
		}
		rc.Client.RespondError(rc.Frame.ID, ErrorShape{Code: "internal", Message: "internal error", Retryable: true})
		return
	}
	rc.Respond(resp)
}

type sessionClearParams struct {
	SessionID string `json:"session_id,omitempty"`
}

func (s *Server) rpcSessionClear(rc *RequestContext) {
	var p sessionClearParams
	if err := rc.Params(&p); err != nil {
		rc.RespondError("invalid_params", err.Error())
		return
	}
	id := resolveSessionID(p.SessionID, "", rc.Client.SessionID)
	if err := s.engine.ClearSession(rc.Ctx, id); err != nil {
		rc.RespondError("internal", "clearing session failed")
		return
	}
	rc.Respond(map[string]any{"session_id": id, "cleared": true})
}

func (s *Server) rpcChannelsStatus(rc *RequestContext) {
	if s.channels != nil {
		rc.Respond(map[string]any{"channels": s.channels.Status()})
		return
	}
	rc.Respond(map[string]any{"channels": []any{}})
}
