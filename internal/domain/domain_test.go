package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionKeyString(t *testing.T) {
	tests := []struct {
		name string
		key  SessionKey
		want string
	}{
		{"with sender", SessionKey{ChannelID: "irc", ChatID: "#dispatch", SenderID: "maria"}, "irc:#dispatch:maria"},
		{"without sender", SessionKey{ChannelID: "web", ChatID: "abc"}, "web:abc"},
		{"empty", SessionKey{}, ":"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.key.String())
		})
	}
}

func TestNewSessionIsFresh(t *testing.T) {
	s := NewSession("s1", 3, time.Now())
	assert.True(t, s.IsFresh(3))
	assert.False(t, s.IsFresh(2))
}

func TestAdoptKeepsBookingAndContext(t *testing.T) {
	s := NewSession("s1", 3, time.Now())
	s.Intent = IntentPharmacy
	s.SetSlot(SlotArea, "Ρίο")
	s.Budget = 1
	s.Booking.Origin = "Ζαΐμη 2"
	s.PushContext("γεια", "γεια σου", 10)

	s.Adopt(IntentTripCost, 3)

	assert.Equal(t, IntentTripCost, s.Intent)
	assert.Empty(t, s.Slots)
	assert.Equal(t, 3, s.Budget)
	assert.Equal(t, "Ζαΐμη 2", s.Booking.Origin)
	assert.Len(t, s.ContextTurns, 2)
}

func TestClear(t *testing.T) {
	s := NewSession("s1", 3, time.Now())
	s.Intent = IntentBooking
	s.SetSlot(SlotArea, "Πάτρα")
	s.Booking.Name = "Νίκος"
	s.LastOffered = OfferBookingConfirm
	s.PushContext("a", "b", 10)
	s.Budget = 0

	s.Clear(3)
	assert.True(t, s.IsFresh(3))
	assert.Equal(t, "s1", s.ID)
}

func TestPushContextBounded(t *testing.T) {
	s := NewSession("s1", 3, time.Now())
	for i := 0; i < 8; i++ {
		s.PushContext("u", "a", 10)
	}
	assert.Len(t, s.ContextTurns, 10)
	assert.Equal(t, "U: u", s.ContextTurns[0])
}

func TestSetSlotIgnoresEmpty(t *testing.T) {
	s := &Session{}
	s.SetSlot(SlotArea, "")
	assert.Nil(t, s.Slots)
	s.SetSlot(SlotArea, "Ρίο")
	assert.Equal(t, "Ρίο", s.Slot(SlotArea))
}

func TestSessionJSONRoundTripNormalizes(t *testing.T) {
	var s Session
	require.NoError(t, json.Unmarshal([]byte(`{"id":"x","intent":"HospitalIntent","budget":2}`), &s))
	s.Normalize()
	assert.Equal(t, IntentHospital, s.Intent)
	assert.NotNil(t, s.Slots)
	assert.NotNil(t, s.ContextTurns)
}

func TestBookingSlots(t *testing.T) {
	var b BookingSlots
	assert.True(t, b.IsEmpty())
	assert.Equal(t, BookingOrigin, b.NextMissing())

	b.Set(BookingOrigin, "Ζαΐμη 2")
	b.Set(BookingDestination, "ΚΤΕΛ Πάτρας")
	b.Set(BookingPickupTime, PickupASAP)
	b.Set(BookingName, "Νίκος")
	assert.Equal(t, BookingPhone, b.NextMissing())
	assert.False(t, b.Complete())

	b.Set(BookingPhone, "+306912345678")
	assert.True(t, b.Complete())

	b.Set(BookingPax, "abc")
	assert.Equal(t, 0, b.Pax)
	b.Set(BookingPax, "3")
	assert.Equal(t, "3", b.Get(BookingPax))
}

func TestParseIntent(t *testing.T) {
	assert.Equal(t, IntentPharmacy, ParseIntent("OnDutyPharmacyIntent"))
	assert.Equal(t, IntentTripCost, ParseIntent("distance_fare"))
	assert.Equal(t, IntentNone, ParseIntent("default"))
	assert.True(t, IntentBooking.Known())
	assert.False(t, IntentContact.Known())
	assert.Equal(t, "none", IntentNone.Short())
	assert.Equal(t, "TripCost", IntentTripCost.Short())
}
