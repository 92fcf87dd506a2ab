package nlp

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/soyeahso/mrbooky/internal/textnorm"
)

var (
	phoneRe   = regexp.MustCompile(`\+?[0-9]{10,15}`)
	poiRe     = regexp.MustCompile(`νοσοκομ|αεροδρομ|κτελ|ktel|σταθμ|λιμανι|port|πανεπιστ|university|campus`)
	digitRe   = regexp.MustCompile(`[0-9]`)
	paxRe     = regexp.MustCompile(`([0-9]+)\s*(?:ατομα|επιβατες|persons|people|pax)`)
	luggageRe = regexp.MustCompile(`([0-9]+)\s*(?:βαλιτσες|βαλιτσα|αποσκευες|αποσκευη|bags?)`)
	heavyRe   = regexp.MustCompile(`βαρι|βαρεια|>\s*10|πανω απο 10|over 10`)
	emailRe   = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
)

// NormalizePhone extracts a mobile number (10-15 digits, optional +) after
// removing spaces and dashes.
func NormalizePhone(text string) (string, bool) {
	compact := strings.NewReplacer(" ", "", "-", "", "(", "", ")", "").Replace(text)
	m := phoneRe.FindString(compact)
	return m, m != ""
}

// IsPreciseAddress reports whether a location names a house number or a
// known point of interest.
func IsPreciseAddress(s string) bool {
	if strings.TrimSpace(s) == "" {
		return false
	}
	return digitRe.MatchString(s) || poiRe.MatchString(textnorm.Fold(s))
}

// ParsePax returns a passenger count mentioned in text.
func ParsePax(text string) (int, bool) {
	return firstInt(paxRe, textnorm.Fold(text))
}

// ParseLuggage returns the luggage count and whether any piece is over 10kg.
func ParseLuggage(text string) (count int, heavy bool, ok bool) {
	folded := textnorm.Fold(text)
	count, ok = firstInt(luggageRe, folded)
	heavy = heavyRe.MatchString(folded)
	return count, heavy, ok || heavy
}

// ParseEmail returns the first email address in text.
func ParseEmail(text string) (string, bool) {
	m := emailRe.FindString(text)
	return m, m != ""
}

func firstInt(re *regexp.Regexp, s string) (int, bool) {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}
