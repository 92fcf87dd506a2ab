package dialog

import "github.com/soyeahso/mrbooky/internal/domain"

// User-facing texts of the dialogue layer.
const (
	MsgCancelled     = "ΟΚ, το αφήνουμε εδώ 🙂 Πες μου τι άλλο θες να κανονίσουμε!"
	MsgEmpty         = "Στείλε μου ένα μήνυμα 🙂"
	MsgAskArea       = "Για ποια περιοχή να ψάξω εφημερεύον φαρμακείο; π.χ. Πάτρα, Ρίο, Βραχναίικα, Μεσσάτιδα/Οβρυά, Παραλία Πατρών. 😊"
	MsgAskRoute      = "❓ Πες μου από πού ξεκινάς και πού πας (π.χ. 'από Πάτρα μέχρι Λουτράκι')."
	MsgAskPhoneAgain = "Δώσε μου ένα κινητό (π.χ. +3069…)"
	MsgAskTimeAgain  = "Γράψε ‘άμεσα’ ή μια ώρα π.χ. 18:30"
	MsgConfirmAsk    = "Να προχωρήσω την κράτηση; (ναι/όχι)"
	MsgOfferBooking  = "Θες να κλείσουμε τη διαδρομή; (ναι/όχι)"
	MsgGenericError  = "❌ Κάτι πήγε στραβά. Θες να δοκιμάσουμε ξανά;"
	MsgClarify       = "Δεν είμαι σίγουρος ότι κατάλαβα 🤔 Μπορώ να βοηθήσω με κόστος διαδρομής, κράτηση ταξί, εφημερεύοντα φαρμακεία και νοσοκομεία ή εκδρομές."
	BaggageNote      = "Αποσκευές έως 10kg: χωρίς επιβάρυνση. >10kg: +0,39€/τεμάχιο."

	MsgBookingDeclined = "ΟΚ, δεν προχωράω την κράτηση. Αν θες κάτι άλλο, εδώ είμαι 🙂"
)

var toolFallbacks = map[domain.Intent]string{
	domain.IntentPharmacy: "❌ Δεν μπόρεσα να βρω εφημερεύοντα φαρμακεία αυτή τη στιγμή. Δοκίμασε ξανά σε λίγο ή κάλεσε στο 1434.",
	domain.IntentHospital: "❌ Δεν μπόρεσα να βρω το εφημερεύον νοσοκομείο αυτή τη στιγμή. Για επείγον περιστατικό κάλεσε στο 166.",
	domain.IntentInfo:     "Δεν έχω αυτή τη στιγμή πληροφορίες γι' αυτό 🤔 Ρώτα με κάτι άλλο ή κάλεσέ μας στο 2610 450000.",
}

// FallbackFor returns the apology shown when the tool serving intent fails.
func FallbackFor(intent domain.Intent) string {
	if msg, ok := toolFallbacks[intent]; ok {
		return msg
	}
	return MsgGenericError
}

var bookingPrompts = map[string]string{
	domain.BookingPickupTime: "Πότε θες παραλαβή; (γράψε ‘άμεσα’ ή ώρα π.χ. 18:30)",
	domain.BookingName:       "Πώς σε λένε;",
	domain.BookingPhone:      "Ποιο είναι το κινητό σου; (για επιβεβαίωση οδηγού)",
}

// RefinePrompt asks for a street and number or a known point of interest.
func RefinePrompt(slot string) string {
	kind := "προορισμού"
	if slot == domain.BookingOrigin {
		kind = "παραλαβής"
	}
	return "Δώσε **ακριβή διεύθυνση** " + kind + " (οδός & αριθμός ή γνωστό σημείο π.χ. Νοσοκομείο Ρίο)."
}

// PromptFor returns the question asked for a missing booking slot.
func PromptFor(slot string) string {
	if slot == domain.BookingOrigin || slot == domain.BookingDestination {
		return RefinePrompt(slot)
	}
	if p, ok := bookingPrompts[slot]; ok {
		return p
	}
	return RefinePrompt(domain.BookingOrigin)
}
