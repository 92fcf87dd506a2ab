package dialog

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/soyeahso/mrbooky/internal/domain"
	"github.com/soyeahso/mrbooky/internal/llm"
	"github.com/soyeahso/mrbooky/internal/logging"
	"github.com/soyeahso/mrbooky/internal/nlp"
	"github.com/soyeahso/mrbooky/internal/textnorm"
)

// FollowUpAction tells the caller how to serve a follow-up message.
type FollowUpAction int

const (
	// FollowUpNone leaves the message to the sticky-intent decision.
	FollowUpNone FollowUpAction = iota
	FollowUpBookingCollect
	FollowUpBookingStart
	FollowUpBookingFinalize
	FollowUpBookingDeclined
	FollowUpRequote
	FollowUpBaggage
)

func (a FollowUpAction) String() string {
	return [...]string{"none", "booking_collect", "booking_start", "booking_finalize",
		"booking_declined", "requote", "baggage"}[a]
}

// FollowUp is the routing result for one message.
type FollowUp struct {
	Action FollowUpAction
	// Prefill is the text a new booking should be prefilled from.
	Prefill string
	// BookingReset is set when an unfinished booking was abandoned
	// because the message changed topic.
	BookingReset bool
	// KeepBooking starts the booking without clearing slots merged in
	// during routing.
	KeepBooking bool
}

var (
	bookingTriggers = []*regexp.Regexp{
		compileTrigger(`<(?:κρατηση|κλεισε|κλεισιμο|book|booking|παραλαβη)>`),
		compileTrigger(`<(?:θελω|κανονισε|κλεινω)\s+(?:ταξι|διαδρομη)`),
	}
	baggageRe   = regexp.MustCompile(`αποσκευ|βαλιτσ`)
	declineWord = map[string]bool{"οχι": true, "no": true, "οχι ευχαριστω": true, "ασ το": true}
)

// FollowUpRouter handles messages that only make sense against what the
// bot said last: confirmations of an offer, booking answers and baggage
// questions. It runs before the sticky-intent decision.
type FollowUpRouter struct {
	triggers *TriggerMatcher
	slots    *SlotStore

	llm   llm.Client
	model string
	log   *logging.Logger
}

// NewFollowUpRouter creates a router.
func NewFollowUpRouter(triggers *TriggerMatcher, slots *SlotStore) *FollowUpRouter {
	return &FollowUpRouter{triggers: triggers, slots: slots}
}

// Route classifies text as a follow-up. An unfinished booking whose next
// message clearly changes topic is reset here so the decision step starts
// from a clean intent. With a model configured, free text that nothing
// else recognizes is classified against the recent conversation last.
func (r *FollowUpRouter) Route(ctx context.Context, sess *domain.Session, text string) FollowUp {
	if strings.TrimSpace(text) == "" || IsCancel(text) {
		return FollowUp{}
	}

	if sess.Intent == domain.IntentBooking && !sess.Booking.Complete() {
		if r.switchesBooking(text) && !bookingValueValid(sess.Booking.NextMissing(), text) {
			sess.ResetBooking()
			return FollowUp{BookingReset: true}
		}
		return FollowUp{Action: FollowUpBookingCollect}
	}

	if IsBareConfirm(text) {
		switch sess.LastOffered {
		case domain.OfferBookingConfirm:
			if sess.Booking.Complete() {
				return FollowUp{Action: FollowUpBookingFinalize}
			}
		case domain.OfferTripQuote:
			if o, d := sess.Slot(domain.SlotLastOrigin), sess.Slot(domain.SlotLastDest); d != "" {
				return FollowUp{Action: FollowUpBookingStart, Prefill: "από " + o + " μέχρι " + d}
			}
		case domain.OfferBaggageInfo:
			if sess.Slot(domain.SlotLastDest) != "" {
				return FollowUp{Action: FollowUpRequote}
			}
		}
	}

	if sess.LastOffered == domain.OfferBookingConfirm && isDecline(text) {
		return FollowUp{Action: FollowUpBookingDeclined}
	}

	folded := textnorm.Fold(text)
	if sess.Intent != domain.IntentBooking {
		for _, re := range bookingTriggers {
			if re.MatchString(folded) {
				return FollowUp{Action: FollowUpBookingStart, Prefill: text}
			}
		}
	}

	if baggageRe.MatchString(folded) {
		if n, heavy, ok := nlp.ParseLuggage(text); ok {
			if n > 0 {
				sess.SetSlot(domain.SlotLuggageCount, strconv.Itoa(n))
			}
			if heavy {
				sess.SetSlot(domain.SlotLuggageHeavy, "true")
			}
		}
		return FollowUp{Action: FollowUpBaggage}
	}

	if r.llmEligible(sess, text) {
		return r.routeLLM(ctx, sess, text)
	}
	return FollowUp{}
}

// bookingBreakers are the topics that abandon an unfinished booking. Other
// topics' keywords turn up in names and street names too often.
var bookingBreakers = []domain.Intent{domain.IntentTripCost, domain.IntentHospital, domain.IntentPharmacy}

func (r *FollowUpRouter) switchesBooking(text string) bool {
	for _, intent := range bookingBreakers {
		if r.triggers.Hits(intent, text) > 0 {
			return true
		}
	}
	return false
}

func isDecline(text string) bool {
	return declineWord[strings.Trim(textnorm.Fold(text), " .!;?;")]
}

// BaggageExtra returns the surcharge for the luggage stored in the session.
func BaggageExtra(sess *domain.Session) float64 {
	n, _ := strconv.Atoi(sess.Slot(domain.SlotLuggageCount))
	if n <= 0 || sess.Slot(domain.SlotLuggageHeavy) != "true" {
		return 0
	}
	return float64(n) * 0.39
}

// BaggageReply explains the luggage policy and offers to add the surcharge
// to the last trip estimate.
func BaggageReply(sess *domain.Session) string {
	lines := []string{BaggageNote}
	if extra := BaggageExtra(sess); extra > 0 {
		lines = append(lines, fmt.Sprintf("Για %s βαριές αποσκευές: ~%.2f€ συνολικά.", sess.Slot(domain.SlotLuggageCount), extra))
	}
	if sess.Slot(domain.SlotLastDest) != "" {
		lines = append(lines, "Θες να το προσθέσω στην εκτίμηση διαδρομής;")
	}
	sess.LastOffered = domain.OfferBaggageInfo
	return strings.Join(lines, "\n")
}
