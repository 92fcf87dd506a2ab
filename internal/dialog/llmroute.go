package dialog

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/soyeahso/mrbooky/internal/domain"
	"github.com/soyeahso/mrbooky/internal/llm"
	"github.com/soyeahso/mrbooky/internal/logging"
	"github.com/soyeahso/mrbooky/internal/nlp"
	"github.com/soyeahso/mrbooky/internal/textnorm"
)

// llmRouteTurns is how many context lines the router prompt carries.
const llmRouteTurns = 8

const llmRouteTimeout = 15 * time.Second

const llmRouteSystem = `Είσαι router για chatbot ταξί. Διάβασε το ιστορικό και το νέο μήνυμα ` +
	`και απάντησε ΜΟΝΟ με ένα JSON αντικείμενο:
{"intent":"TripCost|Booking|BaggageCost|None",
 "slots":{"origin":null,"destination":null,"luggage_count":null,"luggage_heavy":null,
          "name":null,"phone":null,"pax":null,"notes":null}}
Βάλε null όπου δεν ξέρεις τιμή. Αν το μήνυμα δεν συνεχίζει διαδρομή, κράτηση ή αποσκευές, intent=None.`

// llmRouteReply is the JSON the router model is asked for.
type llmRouteReply struct {
	Intent string         `json:"intent"`
	Slots  map[string]any `json:"slots"`
}

// UseLLM enables the model-backed step for free-text follow-ups that no
// rule recognizes. A nil client leaves it off.
func (r *FollowUpRouter) UseLLM(client llm.Client, model string, log *logging.Logger) {
	r.llm, r.model = client, model
	if log != nil {
		r.log = log.Sub("followup")
	}
}

// llmEligible reports whether text is left for the model: the conversation
// has history, no topic is active except a fare, and no trigger fires.
func (r *FollowUpRouter) llmEligible(sess *domain.Session, text string) bool {
	if r.llm == nil || len(sess.ContextTurns) == 0 {
		return false
	}
	if sess.Intent != domain.IntentNone && sess.Intent != domain.IntentTripCost {
		return false
	}
	hit, _ := r.triggers.First(text)
	return hit == domain.IntentNone
}

func (r *FollowUpRouter) routeLLM(ctx context.Context, sess *domain.Session, text string) FollowUp {
	ctx, cancel := context.WithTimeout(ctx, llmRouteTimeout)
	defer cancel()

	history := sess.ContextTurns
	if len(history) > llmRouteTurns {
		history = history[len(history)-llmRouteTurns:]
	}
	prompt := "ΙΣΤΟΡΙΚΟ:\n" + strings.Join(history, "\n") + "\n\nΜΗΝΥΜΑ ΧΡΗΣΤΗ:\n" + text
	resp, err := r.llm.Complete(ctx, llm.CompletionRequest{
		Model:       r.model,
		System:      llmRouteSystem,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: prompt}},
		MaxTokens:   300,
		Temperature: llm.Temperature(0),
	})
	if err != nil {
		r.warn(err, "llm follow-up routing failed")
		return FollowUp{}
	}
	route, err := parseLLMRoute(resp.Content)
	if err != nil {
		r.warn(err, "llm follow-up route unreadable")
		return FollowUp{}
	}
	return r.applyLLMRoute(sess, route)
}

func (r *FollowUpRouter) warn(err error, msg string) {
	if r.log != nil {
		r.log.Warn().Err(err).Msg(msg)
	}
}

// parseLLMRoute decodes the model answer, cutting the JSON object out of
// any surrounding prose.
func parseLLMRoute(raw string) (llmRouteReply, error) {
	var out llmRouteReply
	raw = strings.TrimSpace(raw)
	if err := json.Unmarshal([]byte(raw), &out); err == nil {
		return out, nil
	}
	start, end := strings.Index(raw, "{"), strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return out, fmt.Errorf("no json object in %q", raw)
	}
	if err := json.Unmarshal([]byte(raw[start:end+1]), &out); err != nil {
		return out, fmt.Errorf("decode route: %w", err)
	}
	return out, nil
}

// applyLLMRoute merges the slots the model found and picks the action.
// Values that fail the usual validation are dropped.
func (r *FollowUpRouter) applyLLMRoute(sess *domain.Session, route llmRouteReply) FollowUp {
	slot := func(name string) string {
		v, ok := route.Slots[name]
		if !ok || v == nil {
			return ""
		}
		return strings.TrimSpace(fmt.Sprint(v))
	}

	origin, dest := slot("origin"), slot("destination")
	if origin != "" {
		sess.SetSlot(domain.SlotLastOrigin, origin)
	}
	if dest != "" {
		sess.SetSlot(domain.SlotLastDest, dest)
	}
	luggage := false
	if n, err := strconv.ParseFloat(slot("luggage_count"), 64); err == nil && n > 0 {
		sess.SetSlot(domain.SlotLuggageCount, strconv.Itoa(int(n)))
		luggage = true
	}
	switch textnorm.Fold(slot("luggage_heavy")) {
	case "true", "yes", "1", "ναι":
		sess.SetSlot(domain.SlotLuggageHeavy, "true")
		luggage = true
	}

	switch intent := strings.ToLower(route.Intent); {
	case intent == "baggagecost" || luggage:
		return FollowUp{Action: FollowUpBaggage}
	case intent == "tripcost":
		if sess.Slot(domain.SlotLastDest) == "" {
			return FollowUp{}
		}
		return FollowUp{Action: FollowUpRequote}
	case intent == "booking":
		r.mergeBookingContact(sess, slot("name"), slot("phone"), slot("pax"), slot("notes"))
		fu := FollowUp{Action: FollowUpBookingStart, KeepBooking: true}
		switch {
		case dest != "" && origin != "":
			fu.Prefill = "από " + origin + " μέχρι " + dest
		case dest != "":
			fu.Prefill = "μέχρι " + dest
		}
		return fu
	}
	return FollowUp{}
}

func (r *FollowUpRouter) mergeBookingContact(sess *domain.Session, name, phone, pax, notes string) {
	b := &sess.Booking
	if name != "" && b.Name == "" {
		b.Name = name
	}
	if p, ok := nlp.NormalizePhone(phone); ok && b.Phone == "" {
		b.Phone = p
	}
	if n, err := strconv.ParseFloat(pax, 64); err == nil && n >= 1 && n <= 8 && b.Pax == 0 {
		b.Pax = int(n)
	}
	if notes != "" && b.Notes == "" {
		b.Notes = notes
	}
}
