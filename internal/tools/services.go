package tools

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/soyeahso/mrbooky/internal/domain"
	"github.com/soyeahso/mrbooky/internal/textnorm"
)

// TourPackage is a fixed-price day trip.
type TourPackage struct {
	Code          string
	Title         string
	PriceFrom     float64
	DurationHours float64
	Includes      []string
	Excludes      []string
	Stops         []string
	Pickup        string
	Passengers    string
}

// DefaultTours are the packages offered from Patras.
var DefaultTours = []TourPackage{
	{
		Code:          "NAF-GAL-DEL",
		Title:         "Ναύπακτος – Γαλαξίδι – Δελφοί",
		PriceFrom:     330,
		DurationHours: 7,
		Includes:      []string{"Μεταφορά", "Διόδια", "Τέλη", "Παιδικά καθίσματα (εφόσον ζητηθεί)"},
		Excludes:      []string{"Εισιτήρια μουσείων/χώρων", "Ξεναγήσεις", "Γεύματα/ποτά"},
		Stops:         []string{"Γέφυρα Ρίου-Αντιρρίου", "Κάστρο Ναυπάκτου", "Γαλαξίδι & Ναυτικό Μουσείο", "Αρχαιολογικός Χώρος & Μουσείο Δελφών"},
		Pickup:        "Πάτρα (08:00–10:00 από το ξενοδοχείο σας)",
		Passengers:    "έως 4 άτομα (ίδια τιμή)",
	},
	{
		Code:          "OLYMPIA",
		Title:         "Αρχαία Ολυμπία",
		PriceFrom:     290,
		DurationHours: 7,
		Includes:      []string{"Μεταφορά", "Τέλη", "Παιδικά καθίσματα (εφόσον ζητηθεί)"},
		Excludes:      []string{"Εισιτήρια", "Ξεναγήσεις", "Γεύματα/ποτά"},
		Stops:         []string{"Ναός Δία", "Ναός Ήρας", "Στάδιο", "Πρυτανείο", "Γυμνάσιο", "Εργαστήριο Φειδία", "Στοά Ηχούς", "Νυμφαίο", "Αρχαιολογικό Μουσείο"},
		Pickup:        "Πάτρα (08:00–10:00 από το ξενοδοχείο)",
		Passengers:    "έως 4 άτομα (ίδια τιμή)",
	},
}

// ServiceCategories lists the transfer services by category.
var ServiceCategories = []struct {
	Category string
	Items    []string
}{
	{"Μεταφορές", []string{
		"Από/προς αεροδρόμια, λιμάνια, ξενοδοχεία",
		"Εταιρικές μετακινήσεις & events",
		"Express courier",
		"Μεταφορά κατοικίδιων",
		"Night Taxi",
		"Taxi School (μεταφορά παιδιών)",
	}},
}

var (
	nightRe    = regexp.MustCompile(`night\s*taxi|νυχτεριν[οη]\s*ταξι|νυχτα\s*ταξι`)
	courierRe  = regexp.MustCompile(`courier|δεμα|πακετ[οα]`)
	toursRe    = regexp.MustCompile(`εκδρομ|tours?`)
	includesRe = regexp.MustCompile(`τι\s+περιλαμ`)
	excludesRe = regexp.MustCompile(`δεν\s+περιλαμ`)
	tourKeys   = []string{"δελφ", "ολυμπ", "ναυπακ", "γαλαξ"}
)

// ServicesTool answers questions about services and tour packages.
type ServicesTool struct {
	Brand Brand
	Tours []TourPackage
}

// NewServicesTool creates a services tool over the default packages.
func NewServicesTool(brand Brand) *ServicesTool {
	return &ServicesTool{Brand: brand, Tours: DefaultTours}
}

func (s *ServicesTool) Name() string { return "services_and_tours" }

// Invoke picks the most specific answer for the text. A tour card remembers
// the tour so a follow-up "τι περιλαμβάνει;" can be answered.
func (s *ServicesTool) Invoke(_ context.Context, req Request) (Result, error) {
	q := textnorm.Fold(req.Text)

	if last := req.Slot(domain.SlotLastTour); last != "" {
		if pick := s.byCode(last); pick != nil {
			switch {
			case excludesRe.MatchString(q):
				return Result{Reply: "❌ Δεν περιλαμβάνει: " + joinOr(pick.Excludes, "—")}, nil
			case includesRe.MatchString(q):
				return Result{Reply: "✅ Περιλαμβάνει: " + joinOr(pick.Includes, "Μεταφορά")}, nil
			}
		}
	}

	if nightRe.MatchString(q) {
		return Result{Reply: s.nightTaxi()}, nil
	}
	// "πακέτα εκδρομών" is about tours, not parcels.
	if !toursRe.MatchString(q) && courierRe.MatchString(q) {
		return Result{Reply: s.courier()}, nil
	}

	if pick := s.findTour(q); pick != nil {
		return Result{
			Reply: RenderTourCard(*pick, s.Brand),
			Slots: map[string]string{domain.SlotLastTour: pick.Code},
		}, nil
	}
	if toursRe.MatchString(q) {
		return Result{Reply: RenderAllTours(s.Tours, s.Brand)}, nil
	}
	return Result{Reply: s.overview()}, nil
}

func (s *ServicesTool) byCode(code string) *TourPackage {
	key := textnorm.Fold(code)
	for i := range s.Tours {
		if textnorm.Fold(s.Tours[i].Code) == key || textnorm.Fold(s.Tours[i].Title) == key {
			return &s.Tours[i]
		}
	}
	return nil
}

// findTour matches a known place key first, then falls back to word
// overlap with title, code and stops.
func (s *ServicesTool) findTour(q string) *TourPackage {
	for _, key := range tourKeys {
		if !strings.Contains(q, key) {
			continue
		}
		for i := range s.Tours {
			if strings.Contains(textnorm.Fold(s.Tours[i].Title+" "+strings.Join(s.Tours[i].Stops, " ")), key) {
				return &s.Tours[i]
			}
		}
	}

	words := make(map[string]bool)
	for _, w := range textnorm.Words(q) {
		if len([]rune(w)) >= 4 {
			words[w] = true
		}
	}
	var best *TourPackage
	bestOverlap := 0
	for i := range s.Tours {
		t := &s.Tours[i]
		overlap := 0
		for _, w := range textnorm.Words(textnorm.Fold(t.Title + " " + t.Code + " " + strings.Join(t.Stops, " "))) {
			if words[w] {
				overlap++
				delete(words, w)
			}
		}
		if overlap > bestOverlap {
			best, bestOverlap = t, overlap
		}
	}
	return best
}

func (s *ServicesTool) nightTaxi() string {
	return strings.Join([]string{
		"**Night Taxi**: νυχτερινές διαδρομές (00:00–05:00).",
		"Χρέωση: διπλή ταρίφα χιλιομέτρου (" + strconv.FormatFloat(IntercityPerKm, 'f', 2, 64) + "€/km).",
		"Αναμονή: ~15€/ώρα.",
		"Πληρωμή: Μετρητά/Κάρτα, προκράτηση διαθέσιμη.",
		s.bookLine(),
	}, "\n")
}

func (s *ServicesTool) courier() string {
	return strings.Join([]string{
		"**Express Courier**: ίδια μέρα παράδοση εγγράφων/δεμάτων με αυτοκίνητο.",
		"Παραλαβή από διεύθυνσή σου, παράδοση με υπογραφή & ενημέρωση.",
		"Χρέωση: ανά απόσταση/στάσεις/αναμονή.",
		s.bookLine(),
	}, "\n")
}

func (s *ServicesTool) overview() string {
	lines := []string{"🧰 Υπηρεσίες:"}
	for _, c := range ServiceCategories {
		lines = append(lines, "• "+c.Category+":")
		for _, it := range c.Items {
			lines = append(lines, "  – "+it)
		}
	}
	if len(s.Tours) > 0 {
		lines = append(lines, "", "🎒 Εκδρομές (σταθερή τιμή για 1–4 άτομα):")
		for _, t := range s.Tours {
			lines = append(lines, fmt.Sprintf("• %s — %s / ~%sh", t.Title, formatPrice(t.PriceFrom), trimFloat(t.DurationHours)))
		}
	}
	lines = append(lines, "", s.bookLine())
	return strings.Join(lines, "\n")
}

func (s *ServicesTool) bookLine() string {
	line := "☎️ " + s.Brand.Phone
	if s.Brand.BookingURL != "" {
		line += " | 🧾 Booking: " + s.Brand.BookingURL
	}
	return line
}

// RenderTourCard formats one package.
func RenderTourCard(p TourPackage, b Brand) string {
	stops := p.Stops
	if len(stops) > 6 {
		stops = stops[:6]
	}
	lines := []string{
		"🎒 " + p.Title,
		fmt.Sprintf("💶 Τιμή: από %s  |  ⏱️ Διάρκεια: ~%sh", formatPrice(p.PriceFrom), trimFloat(p.DurationHours)),
	}
	if len(stops) > 0 {
		lines = append(lines, "📍 Στάσεις: "+strings.Join(stops, " → "))
	}
	lines = append(lines, "✅ Περιλαμβάνει: "+joinOr(p.Includes, "Μεταφορά"))
	if len(p.Excludes) > 0 {
		lines = append(lines, "❌ Δεν περιλαμβάνει: "+joinOr(p.Excludes, "—"))
	}
	lines = append(lines, "🚐 Παραλαβή: "+p.Pickup+"  |  👥 "+p.Passengers)
	if b.BookingURL != "" {
		lines = append(lines, "🧾 Κράτηση: "+b.BookingURL)
	}
	return strings.Join(lines, "\n")
}

// RenderAllTours formats every package followed by a booking footer.
func RenderAllTours(tours []TourPackage, b Brand) string {
	if len(tours) == 0 {
		return "Δεν βρήκα διαθέσιμες εκδρομές αυτή τη στιγμή."
	}
	cards := make([]string, 0, len(tours))
	for _, t := range tours {
		cards = append(cards, RenderTourCard(t, b))
	}
	footer := "\nΚλείσιμο/Πληροφορίες: ☎️ " + b.Phone
	if b.BookingURL != "" {
		footer += " | 🧾 Booking: " + b.BookingURL
	}
	return strings.Join(cards, "\n\n") + footer
}

func joinOr(items []string, def string) string {
	if len(items) == 0 {
		return def
	}
	if len(items) > 6 {
		items = items[:6]
	}
	return strings.Join(items, ", ")
}

func formatPrice(v float64) string {
	return trimFloat(v) + "€"
}

func trimFloat(v float64) string {
	if v == float64(int(v)) {
		return strconv.Itoa(int(v))
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}
