package nlp

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/soyeahso/mrbooky/internal/textnorm"
)

// DefaultOrigin is assumed when a trip question only names a destination.
const DefaultOrigin = "Πάτρα"

// Route is an origin/destination pair parsed from free text.
type Route struct {
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
}

// Patterns run on lowercased text with accents kept, so captured place names
// can be shown back to the user as typed.
var (
	routeFromTo   = regexp.MustCompile(`(?:^|\s)απ[όο]\s+(?:τ(?:ο|η|ην|ον)\s+)?(.+?)\s+(?:μ[έε]χρι|[έε]?ως|πρ[όο]ς|για|σε|στ(?:ο|η|ην|ον))\s+(.+)$`)
	routeDash     = regexp.MustCompile(`^([\p{L} .]+?)\s*(?:-|–|>|\|)\s*([\p{L} .]+)$`)
	routeXtoY     = regexp.MustCompile(`^([\p{L} ]+?)\s+(?:μ[έε]χρι|πρ[όο]ς)\s+(.+)$`)
	routeHowMuch  = regexp.MustCompile(`π[όο]σο\s+(?:κ[άα]νει|κοστ[ίι]ζει)\s+(?:να\s+)?(?:π[άα]ω|π[άα]με|μετ[άα]βαση)\s+(?:σε\s+|πρ[όο]ς\s+|στ(?:ο|η|ην|ον)\s+)?(.+)$`)
	routeDestOnly = regexp.MustCompile(`(?:^|\s)(?:μ[έε]χρι|πρ[όο]ς|για|στ(?:ο|η|ην|ον))\s+([^0-9]+)$`)

	leadingArticle = regexp.MustCompile(`^(?:το|τη|την|τον|τα|τις|τους|η|ο)\s+`)
	trailingNoise  = regexp.MustCompile(`\s+(?:με\s+ταξ[ίι]|με\s+taxi|παρακαλ[ώω]|σ[ήη]μερα|α[ύυ]ριο|μεθα[ύυ]ριο|τ[ώω]ρα|στις\s+[0-9].*)$`)
	costWord       = regexp.MustCompile(`ποσο|κοστ|ταρ|στοιχ|ταξι|taxi|θελω|διαδρομ|κανει`)
)

// ExtractRoute parses a route out of a trip question. Origin defaults to
// DefaultOrigin when only the destination is given.
func ExtractRoute(text string) (Route, bool) {
	s := strings.Join(strings.Fields(strings.ToLower(text)), " ")
	s = strings.TrimRight(s, " ?;;.!,")
	if s == "" {
		return Route{}, false
	}
	if m := routeFromTo.FindStringSubmatch(s); m != nil {
		return newRoute(m[1], m[2])
	}
	if m := routeDash.FindStringSubmatch(s); m != nil {
		return newRoute(m[1], m[2])
	}
	if m := routeHowMuch.FindStringSubmatch(s); m != nil {
		return newRoute("", m[1])
	}
	if m := routeXtoY.FindStringSubmatch(s); m != nil && !costWord.MatchString(textnorm.Fold(m[1])) {
		return newRoute(m[1], m[2])
	}
	if m := routeDestOnly.FindStringSubmatch(s); m != nil {
		return newRoute("", m[1])
	}
	return Route{}, false
}

func newRoute(origin, dest string) (Route, bool) {
	origin, dest = cleanPlace(origin), cleanPlace(dest)
	if dest == "" {
		return Route{}, false
	}
	if origin == "" {
		origin = DefaultOrigin
	}
	return Route{Origin: origin, Destination: dest}, true
}

func cleanPlace(p string) string {
	if i := strings.IndexAny(p, ",!?;;"); i >= 0 {
		p = p[:i]
	}
	p = strings.Trim(p, " .")
	p = leadingArticle.ReplaceAllString(p, "")
	for {
		trimmed := trailingNoise.ReplaceAllString(p, "")
		if trimmed == p {
			break
		}
		p = trimmed
	}
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	return cases.Title(language.Greek).String(p)
}

var nonPlaceWords = map[string]bool{
	"οκ": true, "ok": true, "ναι": true, "οχι": true, "ευχαριστω": true, "γεια": true,
	"καλησπερα": true, "καλημερα": true, "ακυρο": true, "τελος": true, "ταξι": true, "taxi": true,
	"φαρμακειο": true, "νοσοκομειο": true, "εφημερια": true, "τιμη": true, "κοστος": true,
}

// TwoWordCities rewrites a bare "Πάτρα Αθήνα" style message into a route
// when both tokens look like place names.
func TwoWordCities(text string) (Route, bool) {
	fields := strings.Fields(strings.TrimRight(text, " ?;;.!,"))
	if len(fields) != 2 {
		return Route{}, false
	}
	for _, f := range fields {
		folded := textnorm.Fold(f)
		if len([]rune(folded)) < 3 || nonPlaceWords[folded] {
			return Route{}, false
		}
		for _, r := range folded {
			if !textnorm.IsWordRune(r) || (r >= '0' && r <= '9') {
				return Route{}, false
			}
		}
	}
	return newRoute(fields[0], fields[1])
}
