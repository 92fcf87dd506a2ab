package dialog

import (
	"github.com/soyeahso/mrbooky/internal/domain"
	"github.com/soyeahso/mrbooky/internal/nlp"
)

// Policy holds the tunables of the sticky-intent decision.
type Policy struct {
	Budget              int
	DriftSwitchMinHits  int
	ResetOnNoMatch      bool
	ClassifierThreshold float64
}

// DefaultPolicy returns the production defaults.
func DefaultPolicy() Policy {
	return Policy{
		Budget:              3,
		DriftSwitchMinHits:  1,
		ResetOnNoMatch:      true,
		ClassifierThreshold: 0.70,
	}
}

// Reasons reported in a Decision.
const (
	ReasonCancel       = "cancel"
	ReasonTrigger      = "trigger"
	ReasonClassifier   = "classifier"
	ReasonNoSignal     = "no_signal"
	ReasonDrift        = "drift"
	ReasonConfirm      = "confirm"
	ReasonNoMatch      = "no_match"
	ReasonSlotAnswer   = "slot_answer"
	ReasonMissingSlot  = "missing_slot"
	ReasonStay         = "stay"
)

// Decision is the outcome of one Decide call.
type Decision struct {
	Intent   domain.Intent `json:"intent"`
	Previous domain.Intent `json:"previous"`
	Switched bool          `json:"switched"`
	Cleared  bool          `json:"cleared"`
	Reason   string        `json:"reason"`
}

// Resumer decides which intent a message belongs to, resisting flapping
// on short follow-ups while still following deliberate topic changes.
type Resumer struct {
	triggers *TriggerMatcher
	slots    *SlotStore
	policy   Policy
}

// NewResumer creates a resumer.
func NewResumer(triggers *TriggerMatcher, slots *SlotStore, policy Policy) *Resumer {
	if policy.DriftSwitchMinHits < 1 {
		policy.DriftSwitchMinHits = 1
	}
	return &Resumer{triggers: triggers, slots: slots, policy: policy}
}

// Policy returns the active policy.
func (r *Resumer) Policy() Policy { return r.policy }

// Decide runs the sticky-intent decision for one message and applies the
// resulting session mutation (adopt, reset or nothing). It performs no I/O.
//
// Once an intent is active, trigger evidence outranks the classifier, and
// the current intent keeps priority whenever the message carries any signal
// for it. A message that fills one of its missing slots counts as signal.
func (r *Resumer) Decide(sess *domain.Session, text string, pred nlp.Prediction) Decision {
	prev := sess.Intent
	d := Decision{Previous: prev}

	if IsCancel(text) {
		sess.Clear(r.policy.Budget)
		d.Cleared = true
		d.Reason = ReasonCancel
		return d
	}

	if prev == domain.IntentNone {
		if intent, _ := r.triggers.First(text); intent != domain.IntentNone {
			return r.adopt(sess, d, intent, ReasonTrigger)
		}
		if pred.Intent.Known() && pred.Confidence >= r.policy.ClassifierThreshold {
			return r.adopt(sess, d, pred.Intent, ReasonClassifier)
		}
		d.Reason = ReasonNoSignal
		return d
	}

	curHits := r.triggers.Hits(prev, text)
	slotAnswer := false
	if curHits == 0 && r.slots.Resolves(prev, text, sess) {
		curHits, slotAnswer = 1, true
	}

	if curHits == 0 {
		cand, candHits := r.triggers.BestOther(text, prev)
		if cand != domain.IntentNone && candHits >= r.policy.DriftSwitchMinHits {
			if prev == domain.IntentBooking {
				sess.ResetBooking()
			}
			return r.adopt(sess, d, cand, ReasonDrift)
		}
		if IsConfirm(text) {
			d.Intent = prev
			d.Reason = ReasonConfirm
			return d
		}
		if r.policy.ResetOnNoMatch {
			sess.Clear(r.policy.Budget)
			d.Cleared = true
			d.Reason = ReasonNoMatch
			return d
		}
		d.Intent = prev
		d.Reason = ReasonNoMatch
		return d
	}

	d.Intent = prev
	switch {
	case len(r.slots.MissingSlots(prev, text, sess)) > 0:
		d.Reason = ReasonMissingSlot
	case slotAnswer:
		d.Reason = ReasonSlotAnswer
	default:
		d.Reason = ReasonStay
	}
	return d
}

func (r *Resumer) adopt(sess *domain.Session, d Decision, intent domain.Intent, reason string) Decision {
	sess.Adopt(intent, r.policy.Budget)
	d.Intent = intent
	d.Switched = true
	d.Reason = reason
	return d
}
