package spellcheck

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// WordMatcher finds whole-word, case-sensitive occurrences of a target.
type WordMatcher struct {
	target    string
	re        *regexp.Regexp
	wordStart bool
	wordEnd   bool
}

// NewWordMatcher builds a matcher for target. The target is escaped, so
// pattern metacharacters match literally. Boundaries are only enforced at
// edges where target begins or ends with a word character: "cat" does not
// match inside "concatenate", while "c++" matches before any character.
func NewWordMatcher(target string) (*WordMatcher, error) {
	if target == "" {
		return nil, fmt.Errorf("%w: empty target", ErrMalformedPattern)
	}
	if !utf8.ValidString(target) {
		return nil, fmt.Errorf("%w: target is not valid UTF-8", ErrMalformedPattern)
	}
	re, err := regexp.Compile(regexp.QuoteMeta(target))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedPattern, err)
	}
	first, _ := utf8.DecodeRuneInString(target)
	last, _ := utf8.DecodeLastRuneInString(target)
	return &WordMatcher{
		target:    target,
		re:        re,
		wordStart: isWordRune(first),
		wordEnd:   isWordRune(last),
	}, nil
}

// FindAll returns the byte ranges of every whole-word occurrence in text.
func (m *WordMatcher) FindAll(text string) [][2]int {
	var out [][2]int
	for _, loc := range m.re.FindAllStringIndex(text, -1) {
		if m.wordStart {
			if r, _ := utf8.DecodeLastRuneInString(text[:loc[0]]); loc[0] > 0 && isWordRune(r) {
				continue
			}
		}
		if m.wordEnd {
			if r, _ := utf8.DecodeRuneInString(text[loc[1]:]); loc[1] < len(text) && isWordRune(r) {
				continue
			}
		}
		out = append(out, [2]int{loc[0], loc[1]})
	}
	return out
}

// ReplaceAll substitutes replacement, literally, for every whole-word
// occurrence of the target. All other bytes of text are preserved.
func (m *WordMatcher) ReplaceAll(text, replacement string) string {
	locs := m.FindAll(text)
	if len(locs) == 0 {
		return text
	}
	var b strings.Builder
	b.Grow(len(text) + len(locs)*(len(replacement)-len(m.target)))
	prev := 0
	for _, loc := range locs {
		b.WriteString(text[prev:loc[0]])
		b.WriteString(replacement)
		prev = loc[1]
	}
	b.WriteString(text[prev:])
	return b.String()
}

// Apply replaces every whole-word, case-sensitive occurrence of target in
// text with replacement. Applying a correction whose target no longer occurs
// returns text unchanged. On error the returned text is the input.
func Apply(text, target, replacement string) (string, error) {
	m, err := NewWordMatcher(target)
	if err != nil {
		return text, err
	}
	return m.ReplaceAll(text, replacement), nil
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r)
}
