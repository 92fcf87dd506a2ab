package backoffice

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/soyeahso/mrbooky/internal/domain"
	"github.com/soyeahso/mrbooky/internal/hooks"
	"github.com/soyeahso/mrbooky/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logging.Logger {
	return logging.New(io.Discard, "silent")
}

func sampleRecord() domain.BookingRecord {
	return domain.BookingRecord{
		Code:      "BK7Q2M",
		SessionID: "user-1",
		Slots: domain.BookingSlots{
			Origin:       "Κορίνθου 120, Πάτρα",
			Destination:  "Νοσοκομείο Ρίο",
			PickupTime:   "18:30",
			Name:         "Νίκος",
			Phone:        "+306912345678",
			LuggageCount: 2,
			LuggageHeavy: true,
		},
		PickupAt:  "2026-10-16 18:30:00",
		CreatedAt: time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC),
	}
}

func TestSubmitForm(t *testing.T) {
	v := SubmitForm(sampleRecord(), "key", "urlkey", "mrbooky")
	assert.Equal(t, "create", v.Get("action"))
	assert.Equal(t, "2026-10-16 18:30:00", v.Get("appdate"))
	assert.Equal(t, "Κορίνθου 120, Πάτρα", v.Get("address1"))
	assert.Equal(t, "Νοσοκομείο Ρίο", v.Get("address2"))
	assert.Equal(t, "1", v.Get("people_count"))
	assert.Equal(t, "2", v.Get("luggage_count"))
	assert.Equal(t, "—", v.Get("remarks"))
	assert.Equal(t, "Κωδικός BK7Q2M", v.Get("extra_email_text"))
}

func TestBookingAPISubmit(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		created bool
		wantErr bool
	}{
		{"created numeric", 200, `{"status":1}`, true, false},
		{"created string", 200, `{"status":"1"}`, true, false},
		{"declined", 200, `{"status":0,"errors":["captcha"]}`, false, false},
		{"non json", 200, `<html>ok</html>`, false, false},
		{"server error", 500, `oops`, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				require.NoError(t, r.ParseForm())
				assert.Equal(t, "secret", r.PostForm.Get("apikey"))
				assert.Equal(t, "Νίκος", r.PostForm.Get("name"))
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			api := NewBookingAPI(srv.URL, "secret", "k", "mrbooky", nil, testLogger())
			require.True(t, api.Configured())
			created, err := api.Submit(context.Background(), sampleRecord())
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.created, created)
		})
	}
}

func TestBookingAPIWithoutKey(t *testing.T) {
	api := NewBookingAPI("http://127.0.0.1:1", "", "", "", nil, testLogger())
	_, err := api.Submit(context.Background(), sampleRecord())
	assert.ErrorIs(t, err, ErrNoAPIKey)

	var none *BookingAPI
	assert.False(t, none.Configured())
}

func TestBookingLink(t *testing.T) {
	assert.Equal(t, "https://booking.infoxoros.com/?key=abc&lang=el", BookingLink("", "abc", "el"))
	assert.Equal(t, "https://book.example.com/form?lang=el", BookingLink("https://book.example.com/form", "", "el"))
}

func TestDispatchLine(t *testing.T) {
	line := DispatchLine(RecordData(sampleRecord()))
	assert.Equal(t,
		"🚕 ΠΡΟ-ΚΡΑΤΗΣΗ BK7Q2M | Κορίνθου 120, Πάτρα → Νοσοκομείο Ρίο | 2026-10-16 18:30:00 | Νίκος +306912345678 | άτομα 1 | αποσκευές 2 βαριές",
		line)

	rec := sampleRecord()
	rec.CreatedRemote = true
	rec.Slots.LuggageCount = 0
	rec.Slots.Notes = "παιδικό κάθισμα"
	line = DispatchLine(RecordData(rec))
	assert.Contains(t, line, "🚕 ΚΡΑΤΗΣΗ BK7Q2M")
	assert.NotContains(t, line, "αποσκευές")
	assert.Contains(t, line, "| παιδικό κάθισμα")
}

type recordingSender struct {
	mu   sync.Mutex
	msgs []domain.OutboundMessage
	err  error
}

func (s *recordingSender) Send(_ context.Context, msg domain.OutboundMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, msg)
	return s.err
}

func TestNotifierDeliversToWebhookAndDispatch(t *testing.T) {
	var got map[string]any
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
	}))
	defer srv.Close()

	m := hooks.NewManager(testLogger())
	sender := &recordingSender{}
	Wire(m, NewWebhook(srv.URL, nil), NewAnnouncer(sender, "irc", "#dispatch"), testLogger())
	assert.Equal(t, 2, m.Count(hooks.EventBookingFinalized))

	n := NewHookNotifier(m)
	require.NoError(t, n.NotifyBooking(context.Background(), sampleRecord()))
	m.Wait()

	mu.Lock()
	assert.Equal(t, hooks.EventBookingFinalized, got["event"])
	assert.Equal(t, "user-1", got["session"])
	booking, ok := got["booking"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "BK7Q2M", booking["code"])
	mu.Unlock()

	require.Len(t, sender.msgs, 1)
	assert.Equal(t, "#dispatch", sender.msgs[0].To)
	assert.Equal(t, "irc", sender.msgs[0].ChannelID)
	assert.Contains(t, sender.msgs[0].Body, "BK7Q2M")
}

func TestWebhookErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewWebhook(srv.URL, nil).Handle(context.Background(), hooks.Payload{Event: hooks.EventBookingFinalized})
	assert.ErrorContains(t, err, "status 502")
}

func TestAnnouncerPropagatesSendError(t *testing.T) {
	sender := &recordingSender{err: errors.New("not connected")}
	err := NewAnnouncer(sender, "irc", "#dispatch").Handle(context.Background(), hooks.Payload{Data: RecordData(sampleRecord())})
	assert.EqualError(t, err, "not connected")
}
