// Package dialog implements the per-message dialogue state machine: trigger
// matching, the sticky-intent decision, slot filling and the booking flow.
package dialog

import (
	"regexp"
	"strings"

	"github.com/soyeahso/mrbooky/internal/domain"
	"github.com/soyeahso/mrbooky/internal/textnorm"
)

// Trigger patterns are written against folded text (lowercase, no accents).
// "<" and ">" stand for a Unicode-aware word boundary at the start and end.
var defaultTriggers = map[domain.Intent][]string{
	domain.IntentTripCost: {
		`<διαδρομ`,
		`<(?:κοστιζει|κοστιζουν|κοστος)>`,
		`<ταρι?φα>`,
		`<στοιχιζ`,
		`<ποσο\s+(?:παει|κανει)>`,
		`<απο\s.+<(?:μεχρι|προς|για)>`,
		`<(?:εως|μεχρι|απο)>.*<(?:διαδρομ|παω|παμε|ταξ|κοστος|ταρι?φα|στοιχ)`,
		`<επιστροφη>`,
		`<ποσα\s+χιλιομετρα`,
	},
	domain.IntentHospital: {
		`νοσοκομ`,
		`εφημερ.*νοσο`,
	},
	domain.IntentPharmacy: {
		`φαρμακ`,
		`<εφημερ`,
	},
	domain.IntentServices: {
		`εκδρομ`, `πακετ[αο]`, `<tours?>`, `<vip>`, `τουρισ`,
		`ολυμπ`, `δελφ`, `ναυπακ`, `γαλαξ`,
		`<τι\s+περιλαμ`, `<δεν\s+περιλαμ`,
		`υπηρεσ(?:ι|ιες|ια|ιων|εις)`, `<services?>`,
		`<παιδι`, `<σχολει`, `<δεμα`, `courier`,
		`night\s*taxi`, `νυχτεριν[οη]\s*ταξι`,
		`<ραντεβου>`,
	},
	domain.IntentInfo: {
		`ξενοδοχ`, `<παραλιες>`,
		`<(?:καφε|cafe|καφες)>`,
		`φαγητ`, `εστιατ`, `μουσει`, `<μπανι`,
		`τροχαι`, `δημοτικ`, `ωραρια`,
		`<τηλεφωνα>`,
	},
}

const (
	wordStart = `(?:^|[^\p{L}\p{N}_])`
	wordEnd   = `(?:[^\p{L}\p{N}_]|$)`
)

func compileTrigger(p string) *regexp.Regexp {
	p = strings.ReplaceAll(p, "<", wordStart)
	p = strings.ReplaceAll(p, ">", wordEnd)
	return regexp.MustCompile(p)
}

// TriggerMatcher counts keyword pattern hits per intent.
type TriggerMatcher struct {
	patterns map[domain.Intent][]*regexp.Regexp
	priority []domain.Intent
}

// NewTriggerMatcher returns a matcher with the built-in trigger table.
func NewTriggerMatcher() *TriggerMatcher {
	m := &TriggerMatcher{
		patterns: make(map[domain.Intent][]*regexp.Regexp, len(defaultTriggers)),
		priority: domain.TriggerPriority,
	}
	for intent, pats := range defaultTriggers {
		for _, p := range pats {
			m.patterns[intent] = append(m.patterns[intent], compileTrigger(p))
		}
	}
	return m
}

// Hits returns how many patterns of intent match text.
func (m *TriggerMatcher) Hits(intent domain.Intent, text string) int {
	return m.hitsFolded(intent, textnorm.Fold(text))
}

func (m *TriggerMatcher) hitsFolded(intent domain.Intent, folded string) int {
	n := 0
	for _, re := range m.patterns[intent] {
		if re.MatchString(folded) {
			n++
		}
	}
	return n
}

// First returns the first intent in priority order with at least one hit.
func (m *TriggerMatcher) First(text string) (domain.Intent, int) {
	folded := textnorm.Fold(text)
	for _, intent := range m.priority {
		if n := m.hitsFolded(intent, folded); n > 0 {
			return intent, n
		}
	}
	return domain.IntentNone, 0
}

// BestOther returns the intent other than excluding with the highest
// nonzero hit count. Ties go to the earlier intent in priority order.
func (m *TriggerMatcher) BestOther(text string, excluding domain.Intent) (domain.Intent, int) {
	folded := textnorm.Fold(text)
	best, bestHits := domain.IntentNone, 0
	for _, intent := range m.priority {
		if intent == excluding {
			continue
		}
		if n := m.hitsFolded(intent, folded); n > bestHits {
			best, bestHits = intent, n
		}
	}
	return best, bestHits
}

// All returns the hit count of every intent with at least one hit.
func (m *TriggerMatcher) All(text string) map[domain.Intent]int {
	folded := textnorm.Fold(text)
	out := make(map[domain.Intent]int)
	for _, intent := range m.priority {
		if n := m.hitsFolded(intent, folded); n > 0 {
			out[intent] = n
		}
	}
	return out
}
