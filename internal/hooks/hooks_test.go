package hooks

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/soyeahso/mrbooky/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testManager() *Manager {
	return NewManager(logging.New(io.Discard, "silent"))
}

func noop(context.Context, Payload) error { return nil }

func TestManager_On_And_Emit(t *testing.T) {
	m := testManager()
	fixed := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return fixed }

	var got Payload
	m.On(EventSessionCleared, "test", func(_ context.Context, p Payload) error {
		got = p
		return nil
	})

	m.Emit(context.Background(), EventSessionCleared, "user-1", nil)
	assert.Equal(t, EventSessionCleared, got.Event)
	assert.Equal(t, "user-1", got.SessionID)
	assert.Equal(t, fixed, got.At)
}

func TestManager_Emit_MultipleHandlers(t *testing.T) {
	m := testManager()

	var order []string
	m.On(EventMessageReceived, "first", func(context.Context, Payload) error {
		order = append(order, "first")
		return nil
	})
	m.On(EventMessageReceived, "second", func(context.Context, Payload) error {
		order = append(order, "second")
		return nil
	})

	m.Emit(context.Background(), EventMessageReceived, "s", nil)
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestManager_Emit_WithData(t *testing.T) {
	m := testManager()

	var from, intent string
	m.On(EventIntentChanged, "test", func(_ context.Context, p Payload) error {
		from, intent = p.String("from"), p.String("to")
		assert.Empty(t, p.String("missing"))
		return nil
	})

	m.Emit(context.Background(), EventIntentChanged, "s", map[string]any{
		"from": "TripCost",
		"to":   "Pharmacy",
	})
	assert.Equal(t, "TripCost", from)
	assert.Equal(t, "Pharmacy", intent)
}

func TestManager_Emit_HandlerErrorAndPanic(t *testing.T) {
	m := testManager()

	var lastCalled bool
	m.On(EventGatewayStart, "failing", func(context.Context, Payload) error {
		return errors.New("handler broke")
	})
	m.On(EventGatewayStart, "panicking", func(context.Context, Payload) error {
		panic("boom")
	})
	m.On(EventGatewayStart, "last", func(context.Context, Payload) error {
		lastCalled = true
		return nil
	})

	assert.NotPanics(t, func() { m.Emit(context.Background(), EventGatewayStart, "", nil) })
	assert.True(t, lastCalled)
}

func TestManager_Emit_NoHandlers(t *testing.T) {
	m := testManager()
	assert.NotPanics(t, func() { m.Emit(context.Background(), EventGatewayStop, "", nil) })
}

func TestManager_Off(t *testing.T) {
	m := testManager()

	var removed, kept int
	m.On(EventReplySent, "remove-me", func(context.Context, Payload) error {
		removed++
		return nil
	})
	m.On(EventReplySent, "keep-me", func(context.Context, Payload) error {
		kept++
		return nil
	})

	m.Emit(context.Background(), EventReplySent, "s", nil)
	m.Off(EventReplySent, "remove-me")
	m.Emit(context.Background(), EventReplySent, "s", nil)

	assert.Equal(t, 1, removed)
	assert.Equal(t, 2, kept)
}

func TestManager_EmitAsync(t *testing.T) {
	m := testManager()

	var count atomic.Int32
	for _, name := range []string{"webhook", "irc"} {
		m.On(EventBookingFinalized, name, func(ctx context.Context, p Payload) error {
			assert.NoError(t, ctx.Err())
			count.Add(1)
			return nil
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.EmitAsync(ctx, EventBookingFinalized, "s", map[string]any{"booking_id": "B1"})
	cancel()

	done := make(chan struct{})
	go func() { m.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("async handlers did not complete in time")
	}
	assert.Equal(t, int32(2), count.Load())
}

func TestManager_CountAndEvents(t *testing.T) {
	m := testManager()
	assert.Equal(t, 0, m.Count(EventGatewayStart))

	m.On(EventGatewayStart, "h1", noop)
	m.On(EventGatewayStart, "h2", noop)
	m.On(EventMessageReceived, "h3", noop)
	m.On(EventToolFailed, "h4", noop)
	m.Off(EventToolFailed, "h4")

	assert.Equal(t, 2, m.Count(EventGatewayStart))
	assert.Equal(t, []string{EventGatewayStart, EventMessageReceived}, m.Events())
}

func TestAllEvents(t *testing.T) {
	require.Len(t, AllEvents, 8)
	assert.Contains(t, AllEvents, EventBookingFinalized)
	assert.Contains(t, AllEvents, EventSessionCleared)
}
