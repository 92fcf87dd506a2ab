// Package textnorm folds Greek and Latin user text into a canonical form
// (lowercase, no accents, single spaces) so keyword patterns can be written
// once without diacritics.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold lowercases s, strips combining marks (tonos, dialytika) and collapses
// whitespace. A sigma at the end of a word is always written as ς.
//
// Transformers from x/text keep state, so a fresh chain is built per call.
func Fold(s string) string {
	if s == "" {
		return ""
	}
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, s)
	if err != nil {
		stripped = s
	}
	lowered := cases.Lower(language.Greek).String(stripped)
	return finalSigma(strings.Join(strings.Fields(lowered), " "))
}

// StripAccents removes combining marks but keeps case.
func StripAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

func finalSigma(s string) string {
	rs := []rune(s)
	for i, r := range rs {
		if r != 'σ' && r != 'ς' {
			continue
		}
		last := i == len(rs)-1 || !IsWordRune(rs[i+1])
		if last && i > 0 && IsWordRune(rs[i-1]) {
			rs[i] = 'ς'
		} else {
			rs[i] = 'σ'
		}
	}
	return string(rs)
}

// IsWordRune reports whether r belongs to a word (letter, digit or underscore).
func IsWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// Words splits already folded text into word tokens.
func Words(folded string) []string {
	return strings.FieldsFunc(folded, func(r rune) bool { return !IsWordRune(r) })
}

// HasWord reports whether text contains any of the given words as a whole
// word. Both sides are folded before comparison.
func HasWord(text string, words ...string) bool {
	toks := Words(Fold(text))
	for _, w := range words {
		fw := Fold(w)
		for _, t := range toks {
			if t == fw {
				return true
			}
		}
	}
	return false
}
