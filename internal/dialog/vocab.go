package dialog

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/soyeahso/mrbooky/internal/textnorm"
)

const maxCancelLen = 16

var (
	cancelWords  = map[string]bool{"ακυρο": true, "cancel": true, "τελος": true, "σταματα": true, "stop": true}
	confirmWords = []string{"ναι", "σωστα", "ok", "οκ", "ετσι", "ακριβως", "μαλιστα", "yes"}
)

var contactRe = []*regexp.Regexp{
	compileTrigger(`<τηλεφωνο>`),
	compileTrigger(`επικοινων`),
	compileTrigger(`<e-?mail>`),
	compileTrigger(`<πως\s+(?:σας\s+)?(?:καλω|βρισκω|καλεσω)>`),
}

// IsContactQuestion reports whether text asks for the company's phone,
// email or other contact details.
func IsContactQuestion(text string) bool {
	folded := textnorm.Fold(text)
	for _, re := range contactRe {
		if re.MatchString(folded) {
			return true
		}
	}
	return false
}

// IsCancel reports whether the whole message is a short cancellation phrase.
func IsCancel(text string) bool {
	t := strings.TrimSpace(text)
	if t == "" || utf8.RuneCountInString(t) > maxCancelLen {
		return false
	}
	t = strings.Trim(textnorm.Fold(t), " .!;?;")
	return cancelWords[t]
}

// IsConfirm reports whether text contains an affirmative word.
func IsConfirm(text string) bool {
	return textnorm.HasWord(text, confirmWords...)
}

// IsBareConfirm reports whether the whole message is a single affirmative.
func IsBareConfirm(text string) bool {
	t := strings.Trim(textnorm.Fold(text), " .!;?;")
	for _, w := range confirmWords {
		if t == w {
			return true
		}
	}
	return false
}
