package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"unicode/utf8"
)

// defaultSessionID serves requests that name neither a session nor a user.
const defaultSessionID = "default"

// HealthResponse is returned by health endpoints. The public HTTP endpoint
// only populates Status; the RPC handler populates all fields.
type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version,omitempty"`
	Clients  int    `json:"clients,omitempty"`
	UptimeMs int64  `json:"uptimeMs,omitempty"`
}

// chatError is a chat request rejected before or outside the engine.
type chatError struct {
	Status  int
	Code    string
	Message string
}

func (e *chatError) Error() string { return e.Message }

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// handleChat serves POST /chat.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBodyBytes())

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), chatTimeout)
	defer cancel()

	resp, err := s.chat(ctx, req, defaultSessionID)
	if err != nil {
		var ce *chatError
		if errors.As(err, &ce) {
			writeError(w, ce.Status, ce.Message)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleDeleteSession serves DELETE /sessions/{id}.
func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "session id is required")
		return
	}
	if err := s.engine.ClearSession(r.Context(), id); err != nil {
		s.log.Error().Err(err).Str("session", id).Msg("clearing session failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"session_id": id, "cleared": true})
}

// handleNotFound returns a 404 for unknown routes.
func handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, map[string]string{
		"error": "not found",
		"path":  r.URL.Path,
	})
}

// chat validates a message and runs it through the engine. Store failures
// are the only engine errors; everything else comes back as a reply.
func (s *Server) chat(ctx context.Context, req ChatRequest, fallbackSession string) (*ChatResponse, error) {
	if limit := s.cfg.MaxMessageChars; limit > 0 && utf8.RuneCountInString(req.Message) > limit {
		return nil, &chatError{Status: http.StatusRequestEntityTooLarge, Code: "message_too_long", Message: "message too long"}
	}
	sessionID := resolveSessionID(req.SessionID, req.UserID, fallbackSession)

	res, err := s.engine.Run(ctx, sessionID, req.Message)
	if err != nil {
		s.log.Error().Err(err).Str("session", sessionID).Msg("chat turn failed")
		return nil, err
	}
	return &ChatResponse{Reply: res.Reply, MapURL: res.MapURL, SessionID: sessionID}, nil
}

// resolveSessionID picks session_id, then user_id, then fallback.
func resolveSessionID(sessionID, userID, fallback string) string {
	if id := strings.TrimSpace(sessionID); id != "" {
		return id
	}
	if id := strings.TrimSpace(userID); id != "" {
		return id
	}
	return fallback
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// RequestHandler processes an incoming RPC request frame from a client.
type RequestHandler func(rc *RequestContext)

// RequestContext carries everything a handler needs.
type RequestContext struct {
	Ctx    context.Context
	Client *Client
	Frame  Frame
	Server *Server
}

// Respond sends a success response.
func (rc *RequestContext) Respond(payload any) {
	if err := rc.Client.Respond(rc.Frame.ID, payload); err != nil {
		rc.Server.log.Warn().Err(err).Str("method", rc.Frame.Method).Msg("failed to send response")
	}
}

// RespondError sends an error response.
func (rc *RequestContext) RespondError(code, message string) {
	rc.Client.RespondError(rc.Frame.ID, ErrorShape{
		Code:    code,
		Message: message,
	})
}

// Params unmarshals the request params into the given target.
func (rc *RequestContext) Params(target any) error {
	if rc.Frame.Params == nil {
		return nil
	}
	return json.Unmarshal(rc.Frame.Params, target)
}
