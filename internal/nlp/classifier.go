package nlp

import (
	"strings"

	"github.com/soyeahso/mrbooky/internal/domain"
	"github.com/soyeahso/mrbooky/internal/textnorm"
)

const keywordConfidence = 0.9

type keywordRule struct {
	intent   domain.Intent
	keywords []string
}

// Rules are checked in order; the first rule with a hit wins. Keywords of up
// to three letters must match a whole word, longer ones match a word prefix.
var defaultKeywordRules = []keywordRule{
	{domain.IntentInfo, []string{"κτελ", "οσε", "σταθμος", "υπηρεσιες", "αξιοθεατ", "καφετερι"}},
	{domain.IntentPharmacy, []string{"φαρμακει", "διανυκτερευ", "εφημερευ", "εφημερεια"}},
	{domain.IntentHospital, []string{"νοσοκομει", "εφημερε", "εφημερευον"}},
	{domain.IntentTripCost, []string{"ποσο", "κοστος", "χρεωση", "τιμη", "χιλιομετρα", "μεχρι", "εως", "διαδρομη", "αποσταση", "δρομολογιο"}},
	{domain.IntentContact, []string{"τηλεφωνο", "email", "επικοινωνια", "εφαρμογη"}},
	{domain.IntentServices, []string{"εκδρομη", "τουρ", "προορισμος", "ναυπακτος", "πακετο", "οδηγος"}},
}

var defaultExamples = map[domain.Intent][]string{
	domain.IntentTripCost: {
		"ποσο κανει μια διαδρομη", "ποσο παει μεχρι την αθηνα", "τι τιμη εχει το ταξι για το αεροδρομιο",
		"θελω να παω στο ριο ποσο θα πληρωσω",
	},
	domain.IntentPharmacy: {"ποιο φαρμακειο ειναι ανοιχτο", "ανοιχτα φαρμακεια τωρα"},
	domain.IntentHospital: {"ποιο νοσοκομειο εχει σημερα", "που να παω για γιατρο"},
	domain.IntentServices: {"κανετε εκδρομες", "θελω μια εκδρομη στους δελφους", "μεταφορα παιδιων στο σχολειο"},
	domain.IntentInfo:     {"τι να δω στην πατρα", "που να φαω στην πατρα", "ποιο ειναι το ωραριο του μουσειου"},
	domain.IntentContact:  {"πως μπορω να σας καλεσω", "θελω να κλεισω ταξι"},
}

// KeywordClassifier predicts intents from keyword stems, falling back to a
// fuzzy comparison against example phrases.
type KeywordClassifier struct {
	rules    []keywordRule
	examples map[domain.Intent][]string
}

// NewKeywordClassifier returns a classifier with the built-in vocabulary.
func NewKeywordClassifier() *KeywordClassifier {
	return &KeywordClassifier{rules: defaultKeywordRules, examples: defaultExamples}
}

// Classify implements Classifier.
func (c *KeywordClassifier) Classify(text string, _ domain.Intent, _ []string) Prediction {
	words := textnorm.Words(textnorm.Fold(text))
	if len(words) == 0 {
		return Prediction{}
	}
	for _, r := range c.rules {
		if matchesAny(words, r.keywords) {
			return Prediction{Intent: r.intent, Confidence: keywordConfidence}
		}
	}
	joined := strings.Join(words, " ")
	var best Prediction
	for intent, examples := range c.examples {
		for _, ex := range examples {
			score := diceSimilarity(ex, joined)
			if score > best.Confidence || (score == best.Confidence && intent < best.Intent) {
				best = Prediction{Intent: intent, Confidence: score}
			}
		}
	}
	return best
}

func matchesAny(words, keywords []string) bool {
	for _, k := range keywords {
		short := len([]rune(k)) <= 3
		for _, w := range words {
			if w == k || (!short && strings.HasPrefix(w, k)) {
				return true
			}
		}
	}
	return false
}

// diceSimilarity is the Sørensen-Dice coefficient over rune bigrams.
func diceSimilarity(a, b string) float64 {
	ba, bb := bigrams(a), bigrams(b)
	if len(ba) == 0 || len(bb) == 0 {
		return 0
	}
	counts := make(map[string]int, len(ba))
	for _, g := range ba {
		counts[g]++
	}
	shared := 0
	for _, g := range bb {
		if counts[g] > 0 {
			counts[g]--
			shared++
		}
	}
	return 2 * float64(shared) / float64(len(ba)+len(bb))
}

func bigrams(s string) []string {
	rs := []rune(s)
	if len(rs) < 2 {
		return nil
	}
	out := make([]string, 0, len(rs)-1)
	for i := 0; i+1 < len(rs); i++ {
		out = append(out, string(rs[i:i+2]))
	}
	return out
}
