// Package hooks lets the gateway, the chat engine and the booking back office
// react to conversation events without importing each other.
package hooks

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/soyeahso/mrbooky/internal/logging"
)

// Event names for the hook system.
const (
	EventMessageReceived  = "message_received"
	EventReplySent        = "reply_sent"
	EventIntentChanged    = "intent_changed"
	EventSessionCleared   = "session_cleared"
	EventBookingFinalized = "booking_finalized"
	EventToolFailed       = "tool_failed"
	EventGatewayStart     = "gateway_start"
	EventGatewayStop      = "gateway_stop"
)

// AllEvents lists all known hook event names.
var AllEvents = []string{
	EventMessageReceived,
	EventReplySent,
	EventIntentChanged,
	EventSessionCleared,
	EventBookingFinalized,
	EventToolFailed,
	EventGatewayStart,
	EventGatewayStop,
}

// Payload carries event data to hook handlers.
type Payload struct {
	Event     string         `json:"event"`
	SessionID string         `json:"sessionId,omitempty"`
	At        time.Time      `json:"at"`
	Data      map[string]any `json:"data,omitempty"`
}

// String returns the Data value for key, or "" when absent or not a string.
func (p Payload) String(key string) string {
	s, _ := p.Data[key].(string)
	return s
}

// Handler handles a hook event. A returned error is logged and does not stop
// the remaining handlers.
type Handler func(ctx context.Context, p Payload) error

// Manager manages hook registrations and dispatches events.
type Manager struct {
	mu       sync.RWMutex
	handlers map[string][]namedHandler
	pending  sync.WaitGroup
	now      func() time.Time
	log      *logging.Logger
}

type namedHandler struct {
	name    string
	handler Handler
}

// NewManager creates a hook manager.
func NewManager(log *logging.Logger) *Manager {
	return &Manager{
		handlers: make(map[string][]namedHandler),
		now:      time.Now,
		log:      log.Sub("hooks"),
	}
}

// On registers a handler for the given event.
// The name identifies the handler for logging and for Off.
func (m *Manager) On(event, name string, handler Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[event] = append(m.handlers[event], namedHandler{name: name, handler: handler})
	m.log.Debug().Str("event", event).Str("handler", name).Msg("hook registered")
}

// Off removes all handlers with the given name from the event.
func (m *Manager) Off(event, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	handlers := m.handlers[event]
	filtered := make([]namedHandler, 0, len(handlers))
	for _, h := range handlers {
		if h.name != name {
			filtered = append(filtered, h)
		}
	}
	m.handlers[event] = filtered
}

func (m *Manager) snapshot(event string) []namedHandler {
	m.mu.RLock()
	defer m.mu.RUnlock()
	handlers := make([]namedHandler, len(m.handlers[event]))
	copy(handlers, m.handlers[event])
	return handlers
}

func (m *Manager) call(ctx context.Context, h namedHandler, p Payload) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error().
				Str("event", p.Event).
				Str("handler", h.name).
				Str("panic", fmt.Sprint(r)).
				Msg("hook handler panicked")
		}
	}()
	if err := h.handler(ctx, p); err != nil {
		m.log.Warn().
			Err(err).
			Str("event", p.Event).
			Str("handler", h.name).
			Str("session", p.SessionID).
			Msg("hook handler error")
	}
}

// Emit dispatches an event to all registered handlers synchronously, in
// registration order.
func (m *Manager) Emit(ctx context.Context, event, sessionID string, data map[string]any) {
	handlers := m.snapshot(event)
	if len(handlers) == 0 {
		return
	}
	p := Payload{Event: event, SessionID: sessionID, At: m.now(), Data: data}
	for _, h := range handlers {
		m.call(ctx, h, p)
	}
}

// EmitAsync dispatches an event to all handlers concurrently and returns
// immediately. The handlers get a context detached from ctx's cancellation
// so that a finished HTTP request does not abort them. Use Wait to drain.
func (m *Manager) EmitAsync(ctx context.Context, event, sessionID string, data map[string]any) {
	handlers := m.snapshot(event)
	if len(handlers) == 0 {
		return
	}
	p := Payload{Event: event, SessionID: sessionID, At: m.now(), Data: data}
	detached := context.WithoutCancel(ctx)
	for _, h := range handlers {
		m.pending.Add(1)
		go func(h namedHandler) {
			defer m.pending.Done()
			m.call(detached, h, p)
		}(h)
	}
}

// Wait blocks until every handler started by EmitAsync has returned.
func (m *Manager) Wait() {
	m.pending.Wait()
}

// Count returns the number of handlers registered for an event.
func (m *Manager) Count(event string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.handlers[event])
}

// Events returns the sorted events that have at least one handler.
func (m *Manager) Events() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	events := make([]string, 0, len(m.handlers))
	for event, handlers := range m.handlers {
		if len(handlers) > 0 {
			events = append(events, event)
		}
	}
	sort.Strings(events)
	return events
}
