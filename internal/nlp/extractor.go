package nlp

import (
	"strconv"
	"time"

	"github.com/soyeahso/mrbooky/internal/domain"
	"github.com/soyeahso/mrbooky/internal/textnorm"
)

// RegexExtractor is the default Extractor built from the parsers in this
// package.
type RegexExtractor struct {
	areas *AreaMatcher
	now   func() time.Time
}

// NewRegexExtractor creates an extractor over the given area table.
func NewRegexExtractor(areas []Area, now func() time.Time) *RegexExtractor {
	if now == nil {
		now = time.Now
	}
	return &RegexExtractor{areas: NewAreaMatcher(areas), now: now}
}

// Areas exposes the area matcher.
func (e *RegexExtractor) Areas() *AreaMatcher { return e.areas }

// Extract implements Extractor. Only keys with a value are present.
func (e *RegexExtractor) Extract(text string) map[string]string {
	out := make(map[string]string)
	if a := e.areas.Match(text); a != "" {
		out[domain.SlotArea] = a
	}
	if r, ok := ExtractRoute(text); ok {
		out[domain.SlotOrigin] = r.Origin
		out[domain.SlotDestination] = r.Destination
	}
	if textnorm.HasWord(text, "σήμερα", "αύριο", "today", "tomorrow") {
		out[domain.SlotWhichDay] = WhichDay(text)
	}
	if t, ok := ParsePickupTime(text); ok {
		out[domain.BookingPickupTime] = t
	}
	if d, ok := ParseDateHint(text, e.now()); ok {
		out[domain.BookingPickupDate] = d
	}
	if p, ok := NormalizePhone(text); ok {
		out[domain.BookingPhone] = p
	}
	if n, ok := ParsePax(text); ok {
		out[domain.BookingPax] = strconv.Itoa(n)
	}
	if n, heavy, ok := ParseLuggage(text); ok {
		out[domain.BookingLuggageCount] = strconv.Itoa(n)
		if heavy {
			out[domain.BookingLuggageHeavy] = "true"
		}
	}
	if m, ok := ParseEmail(text); ok {
		out[domain.BookingEmail] = m
	}
	return out
}
