package nlp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soyeahso/mrbooky/internal/domain"
)

// Friday.
var fixedNow = time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

func TestAreaMatcher(t *testing.T) {
	m := NewAreaMatcher(DefaultAreas)
	tests := []struct {
		in, want string
	}{
		{"παραλία", "Παραλία Πατρών"},
		{"Ρίο παρακαλώ", "Ρίο"},
		{"στην Οβρυά", "Μεσσάτιδα"},
		{"ΒΡΑΧΝΕΪΚΑ", "Βραχνέικα"},
		{"νοσοκομείο Ρίου", "Νοσοκομείο Ρίο"},
		{"στην Πάτρα", "Πάτρα"},
		{"καλησπέρα", ""},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, m.Match(tt.in))
		})
	}
}

func TestExtractRoute(t *testing.T) {
	tests := []struct {
		in         string
		origin     string
		dest       string
		wantParsed bool
	}{
		{"Πόσο κοστίζει από Πάτρα μέχρι Αθήνα;", "Πάτρα", "Αθήνα", true},
		{"από την Πάτρα για την Αθήνα", "Πάτρα", "Αθήνα", true},
		{"πάτρα-λουτράκι", "Πάτρα", "Λουτράκι", true},
		{"μέχρι Ρίο", DefaultOrigin, "Ρίο", true},
		{"πόσο κάνει να πάω στο Ρίο;", DefaultOrigin, "Ρίο", true},
		{"Πόσο κοστίζει για Αθήνα", DefaultOrigin, "Αθήνα", true},
		{"καλησπέρα", "", "", false},
		{"", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			r, ok := ExtractRoute(tt.in)
			require.Equal(t, tt.wantParsed, ok)
			assert.Equal(t, tt.origin, r.Origin)
			assert.Equal(t, tt.dest, r.Destination)
		})
	}
}

func TestTwoWordCities(t *testing.T) {
	r, ok := TwoWordCities("Πάτρα Αθήνα")
	require.True(t, ok)
	assert.Equal(t, Route{Origin: "Πάτρα", Destination: "Αθήνα"}, r)

	_, ok = TwoWordCities("οκ ευχαριστώ")
	assert.False(t, ok)
	_, ok = TwoWordCities("ναι")
	assert.False(t, ok)
	_, ok = TwoWordCities("Ζαΐμη 12")
	assert.False(t, ok)
}

func TestParsePickupTime(t *testing.T) {
	got, ok := ParsePickupTime("στις 9.05")
	require.True(t, ok)
	assert.Equal(t, "09:05", got)

	got, ok = ParsePickupTime("Άμεσα!")
	require.True(t, ok)
	assert.Equal(t, domain.PickupASAP, got)

	_, ok = ParsePickupTime("κάποια στιγμή")
	assert.False(t, ok)
	_, ok = ParsePickupTime("25:10")
	assert.False(t, ok)
}

func TestParseDateHint(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"μεθαύριο το πρωί", "2026-10-18"},
		{"αύριο", "2026-10-17"},
		{"σήμερα", "2026-10-16"},
		{"Δευτέρα", "2026-10-19"},
		{"την Παρασκευή", "2026-10-23"},
		{"στις 2026-12-01", "2026-12-01"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseDateHint(tt.in, fixedNow)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
	for _, in := range []string{"κάποτε", "Κυριάκος Παπαδόπουλος", "Τριτσή 5", "Σαββατοκύριακο"} {
		_, ok := ParseDateHint(in, fixedNow)
		assert.False(t, ok, in)
	}

	got, ok := ParseRelativeDate("αύριο", fixedNow)
	require.True(t, ok)
	assert.Equal(t, "2026-10-17", got)
	_, ok = ParseRelativeDate("Παρασκευή Ιωάννου", fixedNow)
	assert.False(t, ok)
}

func TestWhichDay(t *testing.T) {
	assert.Equal(t, "αύριο", WhichDay("ποιο εφημερεύει αύριο"))
	assert.Equal(t, "σήμερα", WhichDay("ποιο εφημερεύει"))
}

func TestContactParsers(t *testing.T) {
	p, ok := NormalizePhone("κινητό 69 1234 5678")
	require.True(t, ok)
	assert.Equal(t, "6912345678", p)
	_, ok = NormalizePhone("123")
	assert.False(t, ok)

	assert.True(t, IsPreciseAddress("Ζαΐμη 2"))
	assert.True(t, IsPreciseAddress("Νοσοκομείο Ρίου"))
	assert.False(t, IsPreciseAddress("Πάτρα"))
	assert.False(t, IsPreciseAddress(" "))

	n, ok := ParsePax("είμαστε 2 άτομα")
	require.True(t, ok)
	assert.Equal(t, 2, n)

	c, heavy, ok := ParseLuggage("3 βαλίτσες βαριές")
	require.True(t, ok)
	assert.Equal(t, 3, c)
	assert.True(t, heavy)

	m, ok := ParseEmail("στείλε στο maria@example.gr ευχαριστώ")
	require.True(t, ok)
	assert.Equal(t, "maria@example.gr", m)
}

func TestKeywordClassifier(t *testing.T) {
	c := NewKeywordClassifier()
	tests := []struct {
		in   string
		want domain.Intent
	}{
		{"ποιο φαρμακείο εφημερεύει", domain.IntentPharmacy},
		{"πόσο κάνει", domain.IntentTripCost},
		{"ωράρια ΚΤΕΛ", domain.IntentInfo},
		{"κάνετε εκδρομή;", domain.IntentServices},
		{"δώσε μου το τηλέφωνο", domain.IntentContact},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			p := c.Classify(tt.in, domain.IntentNone, nil)
			assert.Equal(t, tt.want, p.Intent)
			assert.InDelta(t, keywordConfidence, p.Confidence, 1e-9)
		})
	}

	p := c.Classify("qqqq", domain.IntentNone, nil)
	assert.Less(t, p.Confidence, 0.7)
	assert.Equal(t, Prediction{}, c.Classify("   ", domain.IntentNone, nil))
}

func TestDiceSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, diceSimilarity("ποσο κανει", "ποσο κανει"), 1e-9)
	assert.InDelta(t, 0.0, diceSimilarity("ab", "cd"), 1e-9)
	assert.InDelta(t, 0.0, diceSimilarity("a", "abc"), 1e-9)
}

func TestRegexExtractor(t *testing.T) {
	e := NewRegexExtractor(DefaultAreas, func() time.Time { return fixedNow })

	got := e.Extract("παραλία")
	assert.Equal(t, map[string]string{domain.SlotArea: "Παραλία Πατρών"}, got)

	got = e.Extract("από Πάτρα μέχρι Αθήνα αύριο στις 10:30, 2 άτομα")
	assert.Equal(t, "Πάτρα", got[domain.SlotOrigin])
	assert.Equal(t, "Αθήνα", got[domain.SlotDestination])
	assert.Equal(t, "αύριο", got[domain.SlotWhichDay])
	assert.Equal(t, "10:30", got[domain.BookingPickupTime])
	assert.Equal(t, "2026-10-17", got[domain.BookingPickupDate])
	assert.Equal(t, "2", got[domain.BookingPax])

	assert.Empty(t, e.Extract("γεια"))
}
