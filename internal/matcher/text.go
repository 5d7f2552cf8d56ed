package matcher

import (
	"strings"
	"unicode"

	"github.com/kljensen/snowball/english"
)

// tokenSeparators are always split off as their own tokens, so they also
// break words apart.
const tokenSeparators = ",;!?()[]{}\"<>`"

// edgePunctuation is trimmed from both ends of a token.
const edgePunctuation = ".:'\"-_*•"

// clitics are split off the end of a word before the alphabetic check, so
// "bachelor's" keeps "bachelor".
var clitics = []string{"n't", "'s", "'re", "'ll", "'ve", "'d", "'m"}

func splitFields(s string) []string {
	return strings.FieldsFunc(s, unicode.IsSpace)
}

// Tokenize lower-cases text, splits it into words and keeps the purely
// alphabetic ones that are not English stop words.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return unicode.IsSpace(r) || strings.ContainsRune(tokenSeparators, r)
	})

	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		f = stripClitic(strings.Trim(strings.ReplaceAll(f, "’", "'"), edgePunctuation))
		if f == "" || !isAlpha(f) {
			continue
		}
		if _, stop := englishStopWords[f]; stop {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}

// Normalize reduces each word to its English stem.
func Normalize(words []string) []string {
	out := make([]string, len(words))
	for i, w := range words {
		out[i] = english.Stem(w, true)
	}
	return out
}

func stripClitic(word string) string {
	for _, c := range clitics {
		if base, ok := strings.CutSuffix(word, c); ok && base != "" {
			return base
		}
	}
	return word
}

func isAlpha(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return s != ""
}
