package domain

import "strings"

// Intent is the conversation topic the bot is currently serving.
type Intent string

const (
	IntentNone     Intent = ""
	IntentTripCost Intent = "TripCostIntent"
	IntentHospital Intent = "HospitalIntent"
	IntentPharmacy Intent = "OnDutyPharmacyIntent"
	IntentServices Intent = "ServicesAndToursIntent"
	IntentInfo     Intent = "PatrasLlmAnswersIntent"
	IntentBooking  Intent = "BookingIntent"

	// IntentContact is answered immediately and never becomes sticky.
	IntentContact Intent = "ContactInfoIntent"
)

// TriggerPriority is the fixed scan order for trigger-based intent
// selection. Ties between intents are broken by position in this list.
var TriggerPriority = []Intent{
	IntentTripCost,
	IntentHospital,
	IntentPharmacy,
	IntentServices,
	IntentInfo,
}

// Known reports whether i is one of the intents a session can hold.
func (i Intent) Known() bool {
	switch i {
	case IntentTripCost, IntentHospital, IntentPharmacy, IntentServices, IntentInfo, IntentBooking:
		return true
	}
	return false
}

// Short returns a compact label for logs and CLI output.
func (i Intent) Short() string {
	if i == IntentNone {
		return "none"
	}
	return strings.TrimSuffix(string(i), "Intent")
}

// ParseIntent maps a classifier label to an Intent. Unknown labels map to IntentNone.
func ParseIntent(label string) Intent {
	l := strings.ToLower(strings.TrimSpace(label))
	switch l {
	case "tripcostintent", "tripcost", "trip_cost", "distance_fare":
		return IntentTripCost
	case "hospitalintent", "hospital":
		return IntentHospital
	case "ondutypharmacyintent", "pharmacy":
		return IntentPharmacy
	case "servicesandtoursintent", "services", "tours":
		return IntentServices
	case "patrasllmanswersintent", "patrasinfointent", "info":
		return IntentInfo
	case "bookingintent", "booking":
		return IntentBooking
	case "contactinfointent", "contact":
		return IntentContact
	}
	return IntentNone
}

// Offer tags what the bot most recently proposed, so that a bare "ναι"
// can be interpreted without guessing from the intent.
type Offer string

const (
	OfferNone           Offer = ""
	OfferTripQuote      Offer = "trip_quote"
	OfferBookingConfirm Offer = "booking_confirm"
	OfferBaggageInfo    Offer = "baggage_cost_info"
)
