package domain

import (
	"strconv"
	"time"
)

// Booking slot names.
const (
	BookingOrigin       = "origin"
	BookingDestination  = "destination"
	BookingPickupTime   = "pickup_time"
	BookingName         = "name"
	BookingPhone        = "phone"
	BookingPickupDate   = "pickup_date"
	BookingPax          = "pax"
	BookingLuggageCount = "luggage_count"
	BookingLuggageHeavy = "luggage_heavy"
	BookingNotes        = "notes"
	BookingEmail        = "email"
)

// RequiredBookingSlots lists the slots a booking needs, in collection order.
var RequiredBookingSlots = []string{
	BookingOrigin,
	BookingDestination,
	BookingPickupTime,
	BookingName,
	BookingPhone,
}

// PickupASAP is the stored pickup_time for "as soon as possible".
const PickupASAP = "ASAP"

// BookingSlots is the slot bag of an in-progress reservation.
type BookingSlots struct {
	Origin       string `json:"origin,omitempty"`
	Destination  string `json:"destination,omitempty"`
	PickupTime   string `json:"pickup_time,omitempty"` // "ASAP" or "HH:MM"
	PickupDate   string `json:"pickup_date,omitempty"` // "YYYY-MM-DD"
	Name         string `json:"name,omitempty"`
	Phone        string `json:"phone,omitempty"`
	Email        string `json:"email,omitempty"`
	Pax          int    `json:"pax,omitempty"`
	LuggageCount int    `json:"luggage_count,omitempty"`
	LuggageHeavy bool   `json:"luggage_heavy,omitempty"`
	Notes        string `json:"notes,omitempty"`
}

// Get returns the string form of a slot, "" when unset.
func (b BookingSlots) Get(slot string) string {
	switch slot {
	case BookingOrigin:
		return b.Origin
	case BookingDestination:
		return b.Destination
	case BookingPickupTime:
		return b.PickupTime
	case BookingPickupDate:
		return b.PickupDate
	case BookingName:
		return b.Name
	case BookingPhone:
		return b.Phone
	case BookingEmail:
		return b.Email
	case BookingNotes:
		return b.Notes
	case BookingPax:
		if b.Pax > 0 {
			return strconv.Itoa(b.Pax)
		}
	case BookingLuggageCount:
		if b.LuggageCount > 0 {
			return strconv.Itoa(b.LuggageCount)
		}
	case BookingLuggageHeavy:
		if b.LuggageHeavy {
			return "true"
		}
	}
	return ""
}

// Set stores a string slot. Numeric slots ignore unparsable values.
func (b *BookingSlots) Set(slot, value string) {
	switch slot {
	case BookingOrigin:
		b.Origin = value
	case BookingDestination:
		b.Destination = value
	case BookingPickupTime:
		b.PickupTime = value
	case BookingPickupDate:
		b.PickupDate = value
	case BookingName:
		b.Name = value
	case BookingPhone:
		b.Phone = value
	case BookingEmail:
		b.Email = value
	case BookingNotes:
		b.Notes = value
	case BookingPax:
		if n, err := strconv.Atoi(value); err == nil && n > 0 {
			b.Pax = n
		}
	case BookingLuggageCount:
		if n, err := strconv.Atoi(value); err == nil && n >= 0 {
			b.LuggageCount = n
		}
	case BookingLuggageHeavy:
		b.LuggageHeavy = value == "true"
	}
}

// NextMissing returns the first required slot that is empty, or "".
func (b BookingSlots) NextMissing() string {
	for _, slot := range RequiredBookingSlots {
		if b.Get(slot) == "" {
			return slot
		}
	}
	return ""
}

// Complete reports whether every required slot is filled.
func (b BookingSlots) Complete() bool {
	return b.NextMissing() == ""
}

// IsEmpty reports whether no slot at all is filled.
func (b BookingSlots) IsEmpty() bool {
	return b == BookingSlots{}
}

// BookingRecord is a finalized reservation as stored locally and handed to
// the back office.
type BookingRecord struct {
	Code          string       `json:"code"`
	SessionID     string       `json:"session_id"`
	Slots         BookingSlots `json:"slots"`
	PickupAt      string       `json:"pickup_at"` // "YYYY-MM-DD HH:MM:SS"
	CreatedRemote bool         `json:"created_remote"`
	CreatedAt     time.Time    `json:"created_at"`
}
