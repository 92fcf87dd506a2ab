package domain

import "time"

// Well-known keys in Session.Slots.
const (
	SlotArea          = "area"
	SlotOrigin        = "origin"
	SlotDestination   = "destination"
	SlotWhichDay      = "which_day"
	SlotLastOrigin    = "last_origin"
	SlotLastDest      = "last_dest"
	SlotLastTripQuery = "last_trip_query"
	SlotPharmacyArea  = "cached_pharmacy_area"
	SlotPharmacyReply = "cached_pharmacy"
	SlotTopic         = "topic"
	SlotLuggageCount  = "luggage_count"
	SlotLuggageHeavy  = "luggage_heavy"
	SlotLastTour      = "last_tour"
)

// SessionKey identifies a conversation arriving over a messaging channel.
type SessionKey struct {
	ChannelID string `json:"channelId"`
	ChatID    string `json:"chatId"`
	SenderID  string `json:"senderId,omitempty"`
}

// String returns a canonical string form of the session key.
func (k SessionKey) String() string {
	s := k.ChannelID + ":" + k.ChatID
	if k.SenderID != "" {
		s += ":" + k.SenderID
	}
	return s
}

// Session is the persisted dialogue state of one conversation.
// All fields are always present; a zero Budget means the session must be cleared.
type Session struct {
	ID           string            `json:"id"`
	Intent       Intent            `json:"intent,omitempty"`
	Slots        map[string]string `json:"slots"`
	Budget       int               `json:"budget"`
	Booking      BookingSlots      `json:"booking_slots"`
	LastOffered  Offer             `json:"last_offered,omitempty"`
	ContextTurns []string          `json:"context_turns"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// NewSession returns a fresh, intent-less session with a full budget.
func NewSession(id string, budget int, now time.Time) *Session {
	return &Session{
		ID:           id,
		Slots:        map[string]string{},
		Budget:       budget,
		ContextTurns: []string{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Adopt makes intent the sticky intent with a new slot bag and a full
// budget. Booking slots, the last offer and the context buffer belong to
// other components and survive.
func (s *Session) Adopt(intent Intent, budget int) {
	s.Intent = intent
	s.Slots = map[string]string{}
	s.Budget = budget
}

// Clear resets the session to the state of a freshly created one.
// Identity and creation time are kept.
func (s *Session) Clear(budget int) {
	s.Intent = IntentNone
	s.Slots = map[string]string{}
	s.Budget = budget
	s.Booking = BookingSlots{}
	s.LastOffered = OfferNone
	s.ContextTurns = []string{}
}

// IsFresh reports whether the session is indistinguishable from a new one.
func (s *Session) IsFresh(budget int) bool {
	return s.Intent == IntentNone &&
		len(s.Slots) == 0 &&
		s.Booking.IsEmpty() &&
		s.LastOffered == OfferNone &&
		len(s.ContextTurns) == 0 &&
		s.Budget == budget
}

// Slot returns a slot value, or "" when absent.
func (s *Session) Slot(name string) string {
	if s.Slots == nil {
		return ""
	}
	return s.Slots[name]
}

// SetSlot stores a slot value, creating the bag if needed. Empty values are ignored.
func (s *Session) SetSlot(name, value string) {
	if value == "" {
		return
	}
	if s.Slots == nil {
		s.Slots = map[string]string{}
	}
	s.Slots[name] = value
}

// PushContext appends a user/assistant exchange to the context buffer and
// keeps only the last max lines.
func (s *Session) PushContext(user, reply string, max int) {
	s.ContextTurns = append(s.ContextTurns, "U: "+user, "A: "+reply)
	if max > 0 && len(s.ContextTurns) > max {
		s.ContextTurns = append([]string(nil), s.ContextTurns[len(s.ContextTurns)-max:]...)
	}
}

// Normalize fills nil maps and slices left by older serialized payloads.
func (s *Session) Normalize() {
	if s.Slots == nil {
		s.Slots = map[string]string{}
	}
	if s.ContextTurns == nil {
		s.ContextTurns = []string{}
	}
}

// ResetBooking abandons an in-progress booking: the intent and last offer
// are dropped together with the booking slots.
func (s *Session) ResetBooking() {
	s.Intent = IntentNone
	s.Booking = BookingSlots{}
	s.LastOffered = OfferNone
}
