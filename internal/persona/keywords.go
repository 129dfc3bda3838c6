package persona

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// KeywordMinRunes is the length a token must exceed to count as a keyword
const KeywordMinRunes = 5

// Tokens splits text into lowercase words, dropping punctuation.
// Accented letters are kept so Spanish words survive intact.
func Tokens(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// Keywords returns up to limit unique tokens longer than KeywordMinRunes,
// in order of first appearance. A non-positive limit means no limit.
func Keywords(text string, limit int) []string {
	var out []string
	seen := make(map[string]bool)
	for _, tok := range Tokens(text) {
		if utf8.RuneCountInString(tok) <= KeywordMinRunes || seen[tok] {
			continue
		}
		seen[tok] = true
		out = append(out, tok)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
