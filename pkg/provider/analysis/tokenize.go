package analysis

import (
	"regexp"
	"unicode"
)

// Word characters are Unicode letters, digits, non-spacing marks and '_'.
// This is the same class the session's whole-word correction uses.
var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}\p{Mn}_]+|[^\p{L}\p{N}\p{Mn}_]+`)

// Tokenize splits text into alternating runs of word and non-word
// characters. Concatenating the result yields text again.
func Tokenize(text string) []string {
	return tokenPattern.FindAllString(text, -1)
}

// IsWord reports whether tok is non-empty and made only of letters and
// combining marks. Tokens that fail this test (whitespace, punctuation,
// numbers, mixed alphanumerics) are never flagged as misspelled.
func IsWord(tok string) bool {
	if tok == "" {
		return false
	}
	for i, r := range tok {
		if unicode.IsLetter(r) || (i > 0 && unicode.Is(unicode.Mn, r)) {
			continue
		}
		return false
	}
	return true
}
