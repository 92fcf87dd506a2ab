package tools

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/soyeahso/mrbooky/internal/domain"
	"github.com/soyeahso/mrbooky/internal/logging"
	"github.com/soyeahso/mrbooky/internal/nlp"
	"github.com/soyeahso/mrbooky/internal/textnorm"
)

// Tariff used when the fare backend is unavailable.
const (
	StartFee        = 4.00
	IntercityPerKm  = 1.25
	AverageSpeedKmh = 85.0
	DefaultRouteKm  = 200.0
	PriceBandPct    = 0.08
)

// AskRoute is returned when a quote is requested without a destination.
const AskRoute = "❓ Πες μου από πού ξεκινάς και πού πας (π.χ. 'από Πάτρα μέχρι Λουτράκι')."

const fareDisclaimer = "⚠️ Η τιμή δεν περιλαμβάνει διόδια."

// KnownDistances are road distances in km between folded place names.
var KnownDistances = map[[2]string]float64{
	{"πατρα", "αθηνα"}:    275,
	{"patra", "athens"}:   275,
	{"πατρα", "πρεβεζα"}:  220,
	{"πατρα", "καλαματα"}: 210,
	{"πατρα", "λουτρακι"}: 184,
}

// Quote is a fare estimate for one route.
type Quote struct {
	Origin      string
	Destination string
	Price       float64
	DistanceKm  float64
	Minutes     int
	MapURL      string
	// Estimated is set when the numbers come from the local tariff.
	Estimated bool
}

// Band returns the price range shown to users, ±8% rounded to 5€.
func (q Quote) Band() (low, high int) {
	return PriceBand(q.Price, PriceBandPct)
}

// FareTool quotes trips through the fare backend and falls back to a
// local estimate when the backend cannot answer.
type FareTool struct {
	api *restClient
	log *logging.Logger
}

// NewFareTool creates a fare tool. An empty baseURL means estimates only.
func NewFareTool(baseURL string, hc *http.Client, log *logging.Logger) *FareTool {
	return &FareTool{api: newRESTClient(baseURL, hc), log: log.Sub("tools.fare")}
}

func (f *FareTool) Name() string { return "trip_quote" }

// Invoke quotes the route held in the slots, or the one found in the text.
func (f *FareTool) Invoke(ctx context.Context, req Request) (Result, error) {
	origin, dest := req.Slot(domain.SlotOrigin), req.Slot(domain.SlotDestination)
	if dest == "" {
		if r, ok := nlp.ExtractRoute(req.Text); ok {
			origin, dest = r.Origin, r.Destination
		}
	}
	if dest == "" {
		return Result{Reply: AskRoute}, nil
	}
	if origin == "" {
		origin = nlp.DefaultOrigin
	}

	q := f.Quote(ctx, origin, dest)
	reply := RenderQuote(q, req.Extra)
	return Result{
		Reply:  reply,
		MapURL: q.MapURL,
		Offer:  domain.OfferTripQuote,
		Slots: map[string]string{
			domain.SlotLastOrigin:    origin,
			domain.SlotLastDest:      dest,
			domain.SlotLastTripQuery: "από " + origin + " μέχρι " + dest,
		},
	}, nil
}

// QuoteText renders a quote without the map link, for summaries.
func (f *FareTool) QuoteText(ctx context.Context, origin, destination string) (string, error) {
	if origin == "" || destination == "" {
		return "", errors.New("route incomplete")
	}
	return RenderQuote(f.Quote(ctx, origin, destination), 0), nil
}

// Quote asks the backend and falls back to the local tariff.
func (f *FareTool) Quote(ctx context.Context, origin, destination string) Quote {
	if f.api.configured() {
		q, err := f.remote(ctx, origin, destination)
		if err == nil {
			return q
		}
		f.log.Warn().Err(err).Str("origin", origin).Str("destination", destination).Msg("fare backend unavailable, using estimate")
	}
	return Estimate(origin, destination)
}

func (f *FareTool) remote(ctx context.Context, origin, destination string) (Quote, error) {
	var raw map[string]any
	body := map[string]string{"origin": origin, "destination": destination, "when": "now"}
	if err := f.api.post(ctx, "/calculate_fare", body, &raw); err != nil {
		return Quote{}, err
	}
	if msg := firstString(raw, "error"); msg != "" {
		return Quote{}, errors.New(msg)
	}
	price, ok := firstNumber(raw, "price_eur", "price", "total_eur", "fare")
	if !ok {
		return Quote{}, errors.New("response carries no price")
	}
	dist, _ := firstNumber(raw, "distance_km", "km", "distance")

	var minutes int
	for _, k := range []string{"duration_min", "minutes", "duration", "duration_seconds"} {
		if v, ok := raw[k]; ok && v != nil {
			minutes = NormalizeMinutes(v, dist)
			break
		}
	}
	if minutes == 0 && dist > 0 {
		minutes = int(math.Round(dist / AverageSpeedKmh * 60))
	}
	mapURL := firstString(raw, "map_url", "mapLink", "route_url", "map")
	if mapURL == "" {
		mapURL = MapURL(origin, destination)
	}
	return Quote{
		Origin:      origin,
		Destination: destination,
		Price:       price,
		DistanceKm:  dist,
		Minutes:     minutes,
		MapURL:      mapURL,
	}, nil
}

// Estimate prices a route from the local tariff.
func Estimate(origin, destination string) Quote {
	km := RoughDistanceKm(origin, destination)
	return Quote{
		Origin:      origin,
		Destination: destination,
		Price:       math.Round((StartFee+IntercityPerKm*km)*100) / 100,
		DistanceKm:  math.Round(km*10) / 10,
		Minutes:     int(math.Round(km / AverageSpeedKmh * 60)),
		MapURL:      MapURL(origin, destination),
		Estimated:   true,
	}
}

// RoughDistanceKm looks the route up in KnownDistances, in either direction.
func RoughDistanceKm(origin, destination string) float64 {
	o, d := textnorm.Fold(strings.TrimSpace(origin)), textnorm.Fold(strings.TrimSpace(destination))
	if km, ok := KnownDistances[[2]string{o, d}]; ok {
		return km
	}
	if km, ok := KnownDistances[[2]string{d, o}]; ok {
		return km
	}
	return DefaultRouteKm
}

// PriceBand widens a price by pct in both directions, rounded to 5€.
func PriceBand(eur, pct float64) (low, high int) {
	r5 := func(x float64) int { return int(math.Round(x/5)) * 5 }
	low = r5(eur * (1 - pct))
	if low < 0 {
		low = 0
	}
	return low, r5(eur * (1 + pct))
}

// MapURL returns a driving directions link.
func MapURL(origin, destination string) string {
	return "https://www.google.com/maps/dir/?api=1&origin=" + url.QueryEscape(origin) +
		"&destination=" + url.QueryEscape(destination) + "&travelmode=driving"
}

// RenderQuote formats a quote for the chat. extra is a surcharge in euros
// added to the price, e.g. for heavy luggage.
func RenderQuote(q Quote, extra float64) string {
	lo, hi := PriceBand(q.Price+extra, PriceBandPct)
	lines := []string{
		fmt.Sprintf("🚕 %s → %s", q.Origin, q.Destination),
		fmt.Sprintf("💶 Εκτίμηση: %d–%d€", lo, hi),
	}
	if extra > 0 {
		lines = append(lines, fmt.Sprintf("🧳 Αποσκευές: +%.2f€ (συμπεριλαμβάνεται)", extra))
	}
	if q.DistanceKm > 0 {
		lines = append(lines, "🛣️ Απόσταση: ~"+strconv.FormatFloat(q.DistanceKm, 'f', -1, 64)+" km")
	}
	if q.Minutes > 0 {
		lines = append(lines, "⏱️ Χρόνος: ~"+FormatMinutes(q.Minutes))
	}
	lines = append(lines, fareDisclaimer)
	return strings.Join(lines, "\n")
}

// FormatMinutes renders a duration as "X ώρες και Y λεπτά".
func FormatMinutes(m int) string {
	h, r := m/60, m%60
	switch {
	case h > 0 && r > 0:
		return fmt.Sprintf("%d ώρες και %d λεπτά", h, r)
	case h > 0:
		return fmt.Sprintf("%d ώρες", h)
	}
	return fmt.Sprintf("%d λεπτά", r)
}

var (
	secondsRe = regexp.MustCompile(`^(\d+)\s*s$`)
	clockRe   = regexp.MustCompile(`(\d{1,3})[:.](\d{2})`)
	isoHRe    = regexp.MustCompile(`(\d+)h`)
	isoMRe    = regexp.MustCompile(`(\d+)m`)
	isoSRe    = regexp.MustCompile(`(\d+)s`)
	hoursRe   = regexp.MustCompile(`(\d+)\s*ωρ`)
	minutesRe = regexp.MustCompile(`(\d+)\s*λεπ`)
)

// NormalizeMinutes reads a duration the way fare backends send it:
// minutes, seconds ("1234s" or a large number), "HH:MM", ISO 8601 "PT2H30M"
// or Greek text. When nothing parses the duration is derived from distKm.
func NormalizeMinutes(v any, distKm float64) int {
	fallback := func() int {
		if distKm > 0 {
			return int(math.Round(distKm / AverageSpeedKmh * 60))
		}
		return 0
	}
	switch n := v.(type) {
	case float64:
		m := int(math.Round(n))
		if m > 1800 {
			m = int(math.Round(n / 60))
		}
		return m
	case int:
		return NormalizeMinutes(float64(n), distKm)
	case string:
		s := textnorm.Fold(strings.TrimSpace(n))
		if m := secondsRe.FindStringSubmatch(s); m != nil {
			return atoi(m[1]) / 60
		}
		if strings.HasPrefix(s, "pt") {
			mins := 0
			if m := isoHRe.FindStringSubmatch(s); m != nil {
				mins += atoi(m[1]) * 60
			}
			if m := isoMRe.FindStringSubmatch(s); m != nil {
				mins += atoi(m[1])
			}
			if m := isoSRe.FindStringSubmatch(s); m != nil {
				mins += atoi(m[1]) / 60
			}
			if mins > 0 {
				return mins
			}
		}
		if m := clockRe.FindStringSubmatch(s); m != nil {
			return atoi(m[1])*60 + atoi(m[2])
		}
		h, mm := hoursRe.FindStringSubmatch(s), minutesRe.FindStringSubmatch(s)
		switch {
		case h != nil && mm != nil:
			return atoi(h[1])*60 + atoi(mm[1])
		case h != nil:
			return atoi(h[1]) * 60
		case mm != nil:
			return atoi(mm[1])
		}
		if n, err := strconv.Atoi(s); err == nil {
			return NormalizeMinutes(float64(n), distKm)
		}
	}
	return fallback()
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

// firstNumber returns the first numeric field among keys. Strings with a
// decimal comma are accepted.
func firstNumber(raw map[string]any, keys ...string) (float64, bool) {
	for _, k := range keys {
		switch v := raw[k].(type) {
		case float64:
			return v, true
		case string:
			f, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(v), ",", "."), 64)
			if err == nil {
				return f, true
			}
		}
	}
	return 0, false
}
