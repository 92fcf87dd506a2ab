package dialog

import (
	"strings"

	"github.com/soyeahso/mrbooky/internal/domain"
	"github.com/soyeahso/mrbooky/internal/nlp"
)

var requiredSlots = map[domain.Intent][]string{
	domain.IntentTripCost: {domain.SlotDestination},
	domain.IntentPharmacy: {domain.SlotArea},
	domain.IntentBooking:  domain.RequiredBookingSlots,
}

// Extracted values that travel with a required slot when it is written back.
var companionSlots = map[string][]string{
	domain.SlotDestination: {domain.SlotOrigin},
}

// SlotStore computes missing slots per intent and fills them from text.
type SlotStore struct {
	extractor nlp.Extractor
}

// NewSlotStore creates a slot store. A nil extractor means nothing can be
// resolved from text.
func NewSlotStore(extractor nlp.Extractor) *SlotStore {
	return &SlotStore{extractor: extractor}
}

// RequiredSlots returns the static required-slot list of intent.
func (s *SlotStore) RequiredSlots(intent domain.Intent) []string {
	return requiredSlots[intent]
}

// MissingSlots returns the required slots of intent that are neither in the
// session nor extractable from text. Values extracted from text are written
// back into sess.Slots. Booking slots are owned by BookingFlow and are only
// read here.
func (s *SlotStore) MissingSlots(intent domain.Intent, text string, sess *domain.Session) []string {
	if intent == domain.IntentBooking {
		var missing []string
		for _, slot := range domain.RequiredBookingSlots {
			if sess.Booking.Get(slot) == "" {
				missing = append(missing, slot)
			}
		}
		return missing
	}
	var extracted map[string]string
	var missing []string
	for _, slot := range requiredSlots[intent] {
		if sess.Slot(slot) != "" {
			continue
		}
		if extracted == nil {
			extracted = s.extract(text)
		}
		v := extracted[slot]
		if v == "" {
			missing = append(missing, slot)
			continue
		}
		sess.SetSlot(slot, v)
		for _, c := range companionSlots[slot] {
			sess.SetSlot(c, extracted[c])
		}
	}
	return missing
}

// Resolves reports whether text supplies a value for a required slot of
// intent that the session is still missing. The session is not modified.
func (s *SlotStore) Resolves(intent domain.Intent, text string, sess *domain.Session) bool {
	if intent == domain.IntentBooking {
		next := sess.Booking.NextMissing()
		if next == domain.BookingName {
			return strings.TrimSpace(text) != ""
		}
		return bookingValueValid(next, text)
	}
	var extracted map[string]string
	for _, slot := range requiredSlots[intent] {
		if sess.Slot(slot) != "" {
			continue
		}
		if extracted == nil {
			extracted = s.extract(text)
		}
		if extracted[slot] != "" {
			return true
		}
	}
	return false
}

func (s *SlotStore) extract(text string) map[string]string {
	if s.extractor == nil || text == "" {
		return map[string]string{}
	}
	out := s.extractor.Extract(text)
	if out == nil {
		return map[string]string{}
	}
	return out
}

// bookingValueValid reports whether text is an acceptable value for a
// booking slot with a strict format. Free-form slots never count.
func bookingValueValid(slot, text string) bool {
	switch slot {
	case domain.BookingOrigin, domain.BookingDestination:
		return nlp.IsPreciseAddress(text)
	case domain.BookingPickupTime:
		_, ok := nlp.ParsePickupTime(text)
		return ok
	case domain.BookingPhone:
		_, ok := nlp.NormalizePhone(text)
		return ok
	}
	return false
}
