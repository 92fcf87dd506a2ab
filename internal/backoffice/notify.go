package backoffice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/soyeahso/mrbooky/internal/domain"
	"github.com/soyeahso/mrbooky/internal/hooks"
	"github.com/soyeahso/mrbooky/internal/logging"
	"github.com/soyeahso/mrbooky/internal/version"
)

// HookNotifier publishes finalized bookings as booking_finalized hook
// events. Delivery to the webhook and the dispatch channel happens in the
// handlers registered by Wire, off the chat request path.
type HookNotifier struct {
	hooks *hooks.Manager
}

// NewHookNotifier creates a notifier on m.
func NewHookNotifier(m *hooks.Manager) *HookNotifier {
	return &HookNotifier{hooks: m}
}

// NotifyBooking emits the booking event asynchronously.
func (n *HookNotifier) NotifyBooking(ctx context.Context, rec domain.BookingRecord) error {
	n.hooks.EmitAsync(ctx, hooks.EventBookingFinalized, rec.SessionID, RecordData(rec))
	return nil
}

// RecordData flattens rec into the hook payload fields.
func RecordData(rec domain.BookingRecord) map[string]any {
	b := rec.Slots
	pax := b.Pax
	if pax < 1 {
		pax = 1
	}
	return map[string]any{
		"code":           rec.Code,
		"origin":         b.Origin,
		"destination":    b.Destination,
		"pickup_time":    rec.PickupAt,
		"pax":            pax,
		"luggage_count":  b.LuggageCount,
		"luggage_heavy":  b.LuggageHeavy,
		"name":           b.Name,
		"phone":          b.Phone,
		"email":          b.Email,
		"notes":          b.Notes,
		"created_remote": rec.CreatedRemote,
	}
}

// Webhook posts booking payloads as JSON to a back-office URL.
type Webhook struct {
	url    string
	client *http.Client
}

// NewWebhook creates a webhook sender. A nil hc gets a 10 s timeout client.
func NewWebhook(url string, hc *http.Client) *Webhook {
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	return &Webhook{url: url, client: hc}
}

// Handle is a hooks.Handler.
func (w *Webhook) Handle(ctx context.Context, p hooks.Payload) error {
	body, err := json.Marshal(map[string]any{
		"event":   p.Event,
		"session": p.SessionID,
		"at":      p.At,
		"booking": p.Data,
	})
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())
	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: %w", err)
	}
	resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook: status %d", resp.StatusCode)
	}
	return nil
}

// Sender delivers a message through a messaging channel.
type Sender interface {
	Send(ctx context.Context, msg domain.OutboundMessage) error
}

// Announcer posts a one-line booking summary to the dispatch room.
type Announcer struct {
	sender    Sender
	channelID string
	room      string
}

// NewAnnouncer creates an announcer sending to room on the given channel.
func NewAnnouncer(sender Sender, channelID, room string) *Announcer {
	return &Announcer{sender: sender, channelID: channelID, room: room}
}

// Handle is a hooks.Handler.
func (a *Announcer) Handle(ctx context.Context, p hooks.Payload) error {
	return a.sender.Send(ctx, domain.OutboundMessage{
		ChannelID: a.channelID,
		To:        a.room,
		Body:      DispatchLine(p.Data),
	})
}

// DispatchLine renders a booking payload as a single line for operators.
func DispatchLine(data map[string]any) string {
	str := func(k string) string {
		if s, ok := data[k].(string); ok {
			return s
		}
		return ""
	}
	status := "ΠΡΟ-ΚΡΑΤΗΣΗ"
	if created, _ := data["created_remote"].(bool); created {
		status = "ΚΡΑΤΗΣΗ"
	}
	parts := []string{
		fmt.Sprintf("🚕 %s %s", status, str("code")),
		str("origin") + " → " + str("destination"),
		str("pickup_time"),
		str("name") + " " + str("phone"),
		fmt.Sprintf("άτομα %v", data["pax"]),
	}
	if n, ok := data["luggage_count"].(int); ok && n > 0 {
		heavy := ""
		if h, _ := data["luggage_heavy"].(bool); h {
			heavy = " βαριές"
		}
		parts = append(parts, fmt.Sprintf("αποσκευές %d%s", n, heavy))
	}
	if notes := str("notes"); notes != "" {
		parts = append(parts, notes)
	}
	return strings.Join(parts, " | ")
}

// Wire registers the back-office handlers on m. Either may be nil.
func Wire(m *hooks.Manager, webhook *Webhook, announcer *Announcer, log *logging.Logger) {
	log = log.Sub("backoffice")
	if webhook != nil {
		m.On(hooks.EventBookingFinalized, "backoffice.webhook", webhook.Handle)
		log.Info().Msg("booking webhook enabled")
	}
	if announcer != nil {
		m.On(hooks.EventBookingFinalized, "backoffice.dispatch", announcer.Handle)
		log.Info().Str("channel", announcer.channelID).Str("room", announcer.room).Msg("dispatch announcements enabled")
	}
}
