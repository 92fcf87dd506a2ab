package nlp

import (
	"strings"

	"github.com/soyeahso/mrbooky/internal/textnorm"
)

// Area is a canonical service area with its spelling variants.
type Area struct {
	Name    string
	Aliases []string
}

// DefaultAreas is the built-in area table for Patras and its suburbs.
var DefaultAreas = []Area{
	{Name: "Πάτρα", Aliases: []string{"πάτρα", "patra", "patras", "pátra", "πτρα", "κέντρο πάτρας", "πλατεία γεωργίου"}},
	{Name: "Ρίο", Aliases: []string{"ρίο", "ρίον", "ρίου", "rio", "αντίρριο", "γέφυρα ρίου", "πανεπιστήμιο πατρών"}},
	{Name: "Βραχνέικα", Aliases: []string{"βραχνέικα", "βραχναίικα", "βραχνεϊκα", "βραχναϊκα", "vrahneika", "vraxnaika", "τσουκαλέικα"}},
	{Name: "Παραλία Πατρών", Aliases: []string{"παραλία", "παραλία πατρών", "παραλία πάτρας", "paralia patras", "paralia patron"}},
	{Name: "Μεσσάτιδα", Aliases: []string{"μεσσάτιδα", "μεσάτιδα", "messatida", "οβρυά", "οβριά", "ovria", "δεμένικα", "demenika"}},
	{Name: "Αθήνα", Aliases: []string{"αθήνα", "athina", "athens"}},
	{Name: "Νοσοκομείο Ρίο", Aliases: []string{"νοσοκομείο ρίου", "νοσοκομείο ρίον", "πανεπιστημιακό νοσοκομείο", "rio hospital"}},
	{Name: "Καραμανδάνειο", Aliases: []string{"καραμανδάνειο", "karamandaneio", "νοσοκομείο παίδων"}},
}

// AreaMatcher resolves free text to a canonical area name.
type AreaMatcher struct {
	entries []areaEntry
}

type areaEntry struct {
	name  string
	alias string // folded, space separated words
}

// NewAreaMatcher builds a matcher from an area table.
func NewAreaMatcher(areas []Area) *AreaMatcher {
	m := &AreaMatcher{}
	for _, a := range areas {
		for _, alias := range append([]string{a.Name}, a.Aliases...) {
			folded := strings.Join(textnorm.Words(textnorm.Fold(alias)), " ")
			if folded == "" {
				continue
			}
			m.entries = append(m.entries, areaEntry{name: a.Name, alias: folded})
		}
	}
	return m
}

// Match returns the canonical area mentioned in text, preferring the longest
// alias found as a whole-word sequence. It returns "" when nothing matches.
func (m *AreaMatcher) Match(text string) string {
	hay := " " + strings.Join(textnorm.Words(textnorm.Fold(text)), " ") + " "
	best, bestLen := "", 0
	for _, e := range m.entries {
		if len(e.alias) <= bestLen {
			continue
		}
		if strings.Contains(hay, " "+e.alias+" ") {
			best, bestLen = e.name, len(e.alias)
		}
	}
	return best
}
