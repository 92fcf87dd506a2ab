package nlp

import (
	"fmt"
	"regexp"
	"time"

	"github.com/soyeahso/mrbooky/internal/domain"
	"github.com/soyeahso/mrbooky/internal/textnorm"
)

var (
	clockRe   = regexp.MustCompile(`(?:^|[^0-9])([01]?[0-9]|2[0-3])[:.]([0-5][0-9])(?:[^0-9]|$)`)
	isoDateRe = regexp.MustCompile(`20[0-9]{2}-[0-9]{2}-[0-9]{2}`)
	asapWords = []string{"αμεσα", "τωρα", "now", "asap"}
)

// ParsePickupTime returns domain.PickupASAP, a zero-padded "HH:MM", or false.
func ParsePickupTime(text string) (string, bool) {
	folded := textnorm.Fold(text)
	for _, w := range textnorm.Words(folded) {
		for _, a := range asapWords {
			if w == a {
				return domain.PickupASAP, true
			}
		}
	}
	m := clockRe.FindStringSubmatch(folded)
	if m == nil {
		return "", false
	}
	var h, min int
	fmt.Sscanf(m[1], "%d", &h)
	fmt.Sscanf(m[2], "%d", &min)
	return fmt.Sprintf("%02d:%02d", h, min), true
}

// weekdayWords holds the folded full forms of each weekday. Stems are not
// enough: Κυριάκος, Παρασκευή Ιωάννου and Τριτσή 5 are names.
var weekdayWords = map[string]time.Weekday{
	"δευτερα": time.Monday, "δευτερας": time.Monday, "monday": time.Monday,
	"τριτη": time.Tuesday, "τριτης": time.Tuesday, "tuesday": time.Tuesday,
	"τεταρτη": time.Wednesday, "τεταρτης": time.Wednesday, "wednesday": time.Wednesday,
	"πεμπτη": time.Thursday, "πεμπτης": time.Thursday, "thursday": time.Thursday,
	"παρασκευη": time.Friday, "παρασκευης": time.Friday, "friday": time.Friday,
	"σαββατο": time.Saturday, "σαββατου": time.Saturday, "saturday": time.Saturday,
	"κυριακη": time.Sunday, "κυριακης": time.Sunday, "sunday": time.Sunday,
}

// ParseDateHint resolves relative or explicit date phrases to "YYYY-MM-DD"
// relative to now. A weekday always means its next occurrence, never today.
func ParseDateHint(text string, now time.Time) (string, bool) {
	return parseDate(text, now, true)
}

// ParseRelativeDate is ParseDateHint without weekday names, for free text
// such as a passenger name where a weekday is more likely a given name.
func ParseRelativeDate(text string, now time.Time) (string, bool) {
	return parseDate(text, now, false)
}

func parseDate(text string, now time.Time, weekdays bool) (string, bool) {
	if m := isoDateRe.FindString(text); m != "" {
		if _, err := time.Parse(time.DateOnly, m); err == nil {
			return m, true
		}
	}
	folded := textnorm.Fold(text)
	words := textnorm.Words(folded)
	has := func(w string) bool {
		for _, x := range words {
			if x == w {
				return true
			}
		}
		return false
	}
	switch {
	case has("μεθαυριο"):
		return now.AddDate(0, 0, 2).Format(time.DateOnly), true
	case has("αυριο") || has("tomorrow"):
		return now.AddDate(0, 0, 1).Format(time.DateOnly), true
	case has("σημερα") || has("today"):
		return now.Format(time.DateOnly), true
	}
	if !weekdays {
		return "", false
	}
	for _, w := range words {
		if day, ok := weekdayWords[w]; ok {
			delta := (int(day) - int(now.Weekday()) + 7) % 7
			if delta == 0 {
				delta = 7
			}
			return now.AddDate(0, 0, delta).Format(time.DateOnly), true
		}
	}
	return "", false
}

// WhichDay maps text to the hospital duty day: "αύριο" or "σήμερα".
func WhichDay(text string) string {
	if textnorm.HasWord(text, "αύριο", "tomorrow") {
		return "αύριο"
	}
	return "σήμερα"
}
