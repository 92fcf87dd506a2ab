// Package agent runs one chat turn end to end: session load and lock,
// follow-up routing, the sticky-intent decision, tool dispatch, budget
// accounting and persistence.
package agent

import (
	"context"
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/soyeahso/mrbooky/internal/dialog"
	"github.com/soyeahso/mrbooky/internal/domain"
	"github.com/soyeahso/mrbooky/internal/hooks"
	"github.com/soyeahso/mrbooky/internal/llm"
	"github.com/soyeahso/mrbooky/internal/logging"
	"github.com/soyeahso/mrbooky/internal/nlp"
	"github.com/soyeahso/mrbooky/internal/session"
	"github.com/soyeahso/mrbooky/internal/textnorm"
	"github.com/soyeahso/mrbooky/internal/tools"
)

// RunnerConfig configures the chat engine.
type RunnerConfig struct {
	BotName     string
	Brand       tools.Brand
	Model       string
	ExtraPrompt string
	Now         func() time.Time
}

// Deps are the collaborators of a Runner. LLM and Hooks are optional.
type Deps struct {
	Lifecycle  *session.Lifecycle
	Triggers   *dialog.TriggerMatcher
	Slots      *dialog.SlotStore
	Resumer    *dialog.Resumer
	Router     *dialog.FollowUpRouter
	Booking    *dialog.BookingFlow
	Classifier nlp.Classifier
	Tools      *tools.Dispatcher
	LLM        llm.Client
	Hooks      *hooks.Manager
}

// RunResult is the outcome of processing a message.
type RunResult struct {
	Reply       string        `json:"reply"`
	MapURL      string        `json:"map_url,omitempty"`
	SessionID   string        `json:"session_id"`
	Intent      domain.Intent `json:"intent,omitempty"`
	Previous    domain.Intent `json:"previous,omitempty"`
	Reason      string        `json:"reason,omitempty"`
	Action      string        `json:"action,omitempty"`
	Cleared     bool          `json:"cleared,omitempty"`
	ToolFailed  bool          `json:"tool_failed,omitempty"`
	BookingCode string        `json:"booking_code,omitempty"`
	Duration    time.Duration `json:"duration"`
}

// Runner is the chat engine. It is safe for concurrent use; turns for the
// same session are serialized.
type Runner struct {
	cfg  RunnerConfig
	deps Deps
	log  *logging.Logger
}

// NewRunner creates a chat engine.
func NewRunner(cfg RunnerConfig, deps Deps, log *logging.Logger) *Runner {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if deps.Classifier == nil {
		deps.Classifier = nlp.NewKeywordClassifier()
	}
	return &Runner{cfg: cfg, deps: deps, log: log.Sub("agent")}
}

// Lifecycle exposes the session lifecycle, for session inspection commands.
func (r *Runner) Lifecycle() *session.Lifecycle { return r.deps.Lifecycle }

// turn carries the per-message working state.
type turn struct {
	sess *domain.Session
	text string
	res  *RunResult
	log  *logging.Logger

	// cleared suppresses context and budget bookkeeping: the session must
	// stay indistinguishable from a fresh one.
	cleared bool
	// consume marks a sticky follow-up turn that spends budget.
	consume bool
}

// Run processes one user message for sessionID. Only session store
// failures are returned as errors; everything else yields a reply.
func (r *Runner) Run(ctx context.Context, sessionID, text string) (*RunResult, error) {
	start := time.Now()
	res := &RunResult{SessionID: sessionID}

	text = strings.TrimSpace(text)
	if text == "" {
		res.Reply = dialog.MsgEmpty
		return res, nil
	}

	unlock := r.deps.Lifecycle.Lock(sessionID)
	defer unlock()

	sess, err := r.deps.Lifecycle.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", sessionID, err)
	}
	log := r.log.Session(sessionID)
	r.emit(ctx, hooks.EventMessageReceived, sessionID, map[string]any{"text": text, "intent": string(sess.Intent)})

	t := &turn{sess: sess, text: text, res: res, log: log}
	res.Previous = sess.Intent
	r.respond(ctx, t)

	if !t.cleared {
		r.deps.Lifecycle.Remember(sess, text, res.Reply)
		if t.consume && r.deps.Lifecycle.Consume(sess) {
			res.Cleared = true
			log.Debug().Msg("budget exhausted, session cleared")
		}
	}
	res.Intent = sess.Intent

	// The decided state is kept even when a slow tool outlived the request.
	if err := r.deps.Lifecycle.Save(context.WithoutCancel(ctx), sess); err != nil {
		return nil, fmt.Errorf("save session %s: %w", sessionID, err)
	}

	if res.Intent != res.Previous {
		r.emit(ctx, hooks.EventIntentChanged, sessionID, map[string]any{
			"from":   string(res.Previous),
			"to":     string(res.Intent),
			"reason": res.Reason,
		})
	}
	if res.Cleared {
		r.emit(ctx, hooks.EventSessionCleared, sessionID, map[string]any{"reason": res.Reason})
	}
	r.emit(ctx, hooks.EventReplySent, sessionID, map[string]any{"reply": res.Reply, "map_url": res.MapURL})

	res.Duration = time.Since(start)
	log.Info().
		Str("from", res.Previous.Short()).
		Str("intent", res.Intent.Short()).
		Str("reason", res.Reason).
		Str("action", res.Action).
		Int("budget", sess.Budget).
		Dur("duration", res.Duration).
		Msg("message handled")
	return res, nil
}

// RunInbound handles a message that arrived over a messaging channel.
func (r *Runner) RunInbound(ctx context.Context, key domain.SessionKey, msg domain.InboundMessage) (*RunResult, error) {
	return r.Run(ctx, key.String(), msg.Body)
}

// ClearSession deletes a session outright.
func (r *Runner) ClearSession(ctx context.Context, sessionID string) error {
	if err := r.deps.Lifecycle.Clear(ctx, sessionID); err != nil {
		return err
	}
	r.emit(ctx, hooks.EventSessionCleared, sessionID, map[string]any{"reason": "deleted"})
	return nil
}

func (r *Runner) respond(ctx context.Context, t *turn) {
	sess, res := t.sess, t.res
	budget := r.deps.Lifecycle.Budget()

	if dialog.IsCancel(t.text) {
		sess.Clear(budget)
		t.cleared, res.Cleared = true, true
		res.Reason = dialog.ReasonCancel
		res.Reply = dialog.MsgCancelled
		return
	}

	fu := r.deps.Router.Route(ctx, sess, t.text)
	if fu.BookingReset {
		t.log.Info().Msg("unfinished booking abandoned on topic change")
	}
	if fu.Action != dialog.FollowUpNone {
		res.Action = fu.Action.String()
		r.followUp(ctx, t, fu)
		return
	}

	if r.twoWordEligible(sess, t.text) {
		if route, ok := nlp.TwoWordCities(t.text); ok {
			if sess.Intent != domain.IntentTripCost {
				sess.Adopt(domain.IntentTripCost, budget)
			}
			res.Reason = "two_word_cities"
			r.quote(ctx, t, route.Origin, route.Destination, 0)
			return
		}
	}

	if dialog.IsContactQuestion(t.text) {
		res.Reason = "contact"
		r.contact(ctx, t)
		return
	}

	pred := r.deps.Classifier.Classify(t.text, sess.Intent, r.unfilled(sess))
	d := r.deps.Resumer.Decide(sess, t.text, pred)
	res.Reason = d.Reason
	if d.Cleared {
		t.cleared, res.Cleared = true, true
	}

	switch sess.Intent {
	case domain.IntentNone:
		if pred.Intent == domain.IntentContact && pred.Confidence >= r.deps.Resumer.Policy().ClassifierThreshold {
			r.contact(ctx, t)
			return
		}
		res.Reply = r.fallback(ctx, t)
		return
	case domain.IntentBooking:
		res.Reply = r.startBooking(ctx, sess, false, t.text)
		return
	}

	intent := sess.Intent
	if missing := r.deps.Slots.MissingSlots(intent, t.text, sess); len(missing) > 0 {
		res.Reply = promptForSlot(intent)
		t.consume = true
		return
	}
	if intent == domain.IntentHospital {
		if sess.Slot(domain.SlotWhichDay) == "" || textnorm.HasWord(t.text, "σήμερα", "αύριο", "today", "tomorrow") {
			sess.SetSlot(domain.SlotWhichDay, nlp.WhichDay(t.text))
		}
	}

	r.dispatch(ctx, t, intent, r.request(t))
	t.consume = sess.Intent != domain.IntentNone
}

// twoWordEligible reports whether a bare "Πάτρα Αθήνα" message may be read
// as a route: no other topic is active and no other intent's trigger fires.
func (r *Runner) twoWordEligible(sess *domain.Session, text string) bool {
	if sess.Intent != domain.IntentNone && sess.Intent != domain.IntentTripCost {
		return false
	}
	if r.deps.Triggers == nil {
		return true
	}
	hit, _ := r.deps.Triggers.First(text)
	return hit == domain.IntentNone || hit == domain.IntentTripCost
}

func (r *Runner) followUp(ctx context.Context, t *turn, fu dialog.FollowUp) {
	sess, res := t.sess, t.res
	switch fu.Action {
	case dialog.FollowUpBookingCollect:
		res.Reply = r.deps.Booking.Collect(ctx, sess, t.text)
	case dialog.FollowUpBookingStart:
		res.Reply = r.startBooking(ctx, sess, !fu.KeepBooking, fu.Prefill)
	case dialog.FollowUpBookingFinalize:
		reply, rec, err := r.deps.Booking.Finalize(ctx, sess)
		if err != nil {
			t.log.Warn().Err(err).Msg("finalize on incomplete booking")
		}
		res.Reply, res.BookingCode = reply, rec.Code
	case dialog.FollowUpBookingDeclined:
		sess.ResetBooking()
		res.Reply = dialog.MsgBookingDeclined
	case dialog.FollowUpRequote:
		r.quote(ctx, t, sess.Slot(domain.SlotLastOrigin), sess.Slot(domain.SlotLastDest), dialog.BaggageExtra(sess))
	case dialog.FollowUpBaggage:
		res.Reply = dialog.BaggageReply(sess)
	}
}

func (r *Runner) startBooking(ctx context.Context, sess *domain.Session, reset bool, prefill string) string {
	prompt := r.deps.Booking.Start(sess, reset, prefill)
	if sess.Booking.Complete() {
		return r.deps.Booking.Confirm(ctx, sess)
	}
	return prompt
}

func (r *Runner) request(t *turn) tools.Request {
	return tools.Request{
		SessionID: t.sess.ID,
		Text:      t.text,
		Slots:     maps.Clone(t.sess.Slots),
		Context:   append([]string(nil), t.sess.ContextTurns...),
	}
}

// quote asks the fare tool for a fixed route.
func (r *Runner) quote(ctx context.Context, t *turn, origin, dest string, extra float64) {
	req := r.request(t)
	req.Slots[domain.SlotOrigin] = origin
	req.Slots[domain.SlotDestination] = dest
	req.Extra = extra
	r.dispatch(ctx, t, domain.IntentTripCost, req)
}

func (r *Runner) contact(ctx context.Context, t *turn) {
	r.dispatch(ctx, t, domain.IntentContact, r.request(t))
	if t.res.ToolFailed {
		t.res.Reply = tools.ContactCard(r.cfg.Brand)
	}
}

// dispatch runs the tool for intent and folds its result into the session.
// A tool failure becomes an apology; the decided state is kept.
func (r *Runner) dispatch(ctx context.Context, t *turn, intent domain.Intent, req tools.Request) {
	sess, res := t.sess, t.res
	out, err := r.deps.Tools.Invoke(ctx, intent, req)
	if err != nil {
		t.log.Warn().Err(err).Str("intent", intent.Short()).Msg("tool failed, answering with fallback")
		res.ToolFailed = true
		res.Reply = dialog.FallbackFor(intent)
		r.emit(ctx, hooks.EventToolFailed, sess.ID, map[string]any{"intent": string(intent), "error": err.Error()})
		return
	}

	for k, v := range out.Slots {
		sess.SetSlot(k, v)
	}
	if out.Offer != domain.OfferNone {
		sess.LastOffered = out.Offer
	}
	res.Reply, res.MapURL = out.Reply, out.MapURL

	if out.Offer == domain.OfferTripQuote {
		r.finishTrip(sess, res)
	}
}

// finishTrip ends a one-shot trip quote: the intent is released while the
// last route stays available for a booking or baggage follow-up.
func (r *Runner) finishTrip(sess *domain.Session, res *RunResult) {
	if sess.Intent == domain.IntentTripCost {
		sess.Intent = domain.IntentNone
		sess.Budget = r.deps.Lifecycle.Budget()
	}
	delete(sess.Slots, domain.SlotOrigin)
	delete(sess.Slots, domain.SlotDestination)
	res.Reply += "\n\n" + dialog.MsgOfferBooking
}

// fallback answers a message no rule claimed: the LLM when configured,
// else a clarification.
func (r *Runner) fallback(ctx context.Context, t *turn) string {
	if r.deps.LLM == nil {
		return dialog.MsgClarify
	}
	ctx, cancel := context.WithTimeout(ctx, tools.DefaultTimeout)
	defer cancel()

	system := BuildSystemPrompt(PromptConfig{
		BotName:     r.cfg.BotName,
		Company:     r.cfg.Brand.Name,
		Phone:       r.cfg.Brand.Phone,
		BookingURL:  r.cfg.Brand.BookingURL,
		Now:         r.cfg.Now(),
		ExtraPrompt: r.cfg.ExtraPrompt,
	})
	answer, err := tools.Ask(ctx, r.deps.LLM, r.cfg.Model, system, t.text, t.sess.ContextTurns)
	if err != nil || strings.TrimSpace(answer) == "" {
		t.log.Warn().Err(err).Msg("llm fallback failed")
		return dialog.MsgClarify
	}
	return answer
}

// unfilled lists the required slots of the active intent not yet in the
// session, without extracting from text.
func (r *Runner) unfilled(sess *domain.Session) []string {
	if sess.Intent == domain.IntentBooking {
		if next := sess.Booking.NextMissing(); next != "" {
			return []string{next}
		}
		return nil
	}
	var out []string
	for _, s := range r.deps.Slots.RequiredSlots(sess.Intent) {
		if sess.Slot(s) == "" {
			out = append(out, s)
		}
	}
	return out
}

func promptForSlot(intent domain.Intent) string {
	if intent == domain.IntentPharmacy {
		return dialog.MsgAskArea
	}
	return dialog.MsgAskRoute
}

func (r *Runner) emit(ctx context.Context, event, sessionID string, data map[string]any) {
	if r.deps.Hooks != nil {
		r.deps.Hooks.EmitAsync(ctx, event, sessionID, data)
	}
}
