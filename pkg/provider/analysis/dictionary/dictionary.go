// Package dictionary implements an in-process analysis.Provider backed by a
// word list. It needs no network and serves as the fallback analyzer when the
// remote spell-check service is unavailable.
//
// Text is tokenised into alternating word and non-word runs, so the findings
// cover the whole input (whitespace and punctuation included). Tokens that are
// not purely alphabetic are always reported correct. Alphabetic tokens are
// looked up case-insensitively; unknown ones receive up to three suggestions
// within a Damerau-Levenshtein distance of two, ranked by distance, Double
// Metaphone agreement and Jaro-Winkler similarity.
package dictionary

import (
	"bufio"
	"context"
	_ "embed"
	"fmt"
	"io"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/antzucaro/matchr"

	"github.com/MrWong99/livespell/pkg/provider/analysis"
	"github.com/MrWong99/livespell/pkg/types"
)

const (
	defaultMaxSuggestions = 3
	defaultMaxDistance    = 2
)

//go:embed words.txt
var defaultWords string

var _ analysis.Provider = (*Checker)(nil)

// Option is a functional option for configuring a [Checker].
type Option func(*Checker)

// WithMaxSuggestions caps the number of suggestions per misspelled word.
// Default: 3.
func WithMaxSuggestions(n int) Option {
	return func(c *Checker) {
		if n > 0 {
			c.maxSuggestions = n
		}
	}
}

// WithMaxDistance sets the largest edit distance a suggestion may have.
// Default: 2.
func WithMaxDistance(d int) Option {
	return func(c *Checker) {
		if d > 0 {
			c.maxDistance = d
		}
	}
}

// WithWords adds extra words to the dictionary, e.g. domain vocabulary.
func WithWords(words ...string) Option {
	return func(c *Checker) {
		for _, w := range words {
			c.add(w)
		}
	}
}

// Checker is a dictionary-backed spell checker. It is read-only after
// construction and therefore safe for concurrent use.
type Checker struct {
	words          map[string]struct{}
	byLength       map[int][]string
	maxSuggestions int
	maxDistance    int
}

// New returns a Checker seeded with the built-in English word list.
func New(opts ...Option) *Checker {
	c, _ := NewFromReader(strings.NewReader(defaultWords), opts...)
	return c
}

// NewFromReader returns a Checker whose dictionary is read from r, one word
// per line. Blank lines and lines starting with '#' are ignored.
func NewFromReader(r io.Reader, opts ...Option) (*Checker, error) {
	c := &Checker{
		words:          make(map[string]struct{}),
		byLength:       make(map[int][]string),
		maxSuggestions: defaultMaxSuggestions,
		maxDistance:    defaultMaxDistance,
	}
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		c.add(line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("dictionary: read word list: %w", err)
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Len returns the number of distinct words in the dictionary.
func (c *Checker) Len() int { return len(c.words) }

// Contains reports whether word is known, ignoring case.
func (c *Checker) Contains(word string) bool {
	_, ok := c.words[strings.ToLower(word)]
	return ok
}

// Analyze implements analysis.Provider. It never returns an error unless ctx
// is already cancelled.
func (c *Checker) Analyze(ctx context.Context, text string) ([]types.WordFinding, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("dictionary: analyze: %w", err)
	}
	tokens := analysis.Tokenize(text)
	findings := make([]types.WordFinding, 0, len(tokens))
	for _, tok := range tokens {
		if !analysis.IsWord(tok) || c.Contains(tok) {
			findings = append(findings, types.WordFinding{Word: tok, IsCorrect: true, Suggestions: []string{}})
			continue
		}
		findings = append(findings, types.WordFinding{
			Word:        tok,
			IsCorrect:   false,
			Suggestions: c.Suggest(tok),
		})
	}
	return findings, nil
}

// Suggest returns ranked replacement candidates for word, best first. The
// capitalisation of word is carried over to the candidates.
func (c *Checker) Suggest(word string) []string {
	lower := strings.ToLower(word)
	n := utf8.RuneCountInString(lower)
	wp, ws := matchr.DoubleMetaphone(lower)

	type candidate struct {
		word     string
		distance int
		phonetic bool
		jw       float64
	}
	var cands []candidate
	for l := n - c.maxDistance; l <= n+c.maxDistance; l++ {
		for _, w := range c.byLength[l] {
			d := matchr.DamerauLevenshtein(lower, w)
			if d == 0 || d > c.maxDistance {
				continue
			}
			p, s := matchr.DoubleMetaphone(w)
			cands = append(cands, candidate{
				word:     w,
				distance: d,
				phonetic: p != "" && (p == wp || p == ws || (s != "" && (s == wp || s == ws))),
				jw:       matchr.JaroWinkler(lower, w, false),
			})
		}
	}

	sort.Slice(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if a.distance != b.distance {
			return a.distance < b.distance
		}
		if a.phonetic != b.phonetic {
			return a.phonetic
		}
		if a.jw != b.jw {
			return a.jw > b.jw
		}
		return a.word < b.word
	})

	if len(cands) > c.maxSuggestions {
		cands = cands[:c.maxSuggestions]
	}
	out := make([]string, 0, len(cands))
	for _, cand := range cands {
		out = append(out, matchCase(word, cand.word))
	}
	return out
}

func (c *Checker) add(w string) {
	w = strings.ToLower(strings.TrimSpace(w))
	if w == "" {
		return
	}
	if _, ok := c.words[w]; ok {
		return
	}
	c.words[w] = struct{}{}
	l := utf8.RuneCountInString(w)
	c.byLength[l] = append(c.byLength[l], w)
}

// matchCase applies the capitalisation pattern of src (all upper, leading
// upper, or lower) to dst.
func matchCase(src, dst string) string {
	switch {
	case src == strings.ToUpper(src) && utf8.RuneCountInString(src) > 1:
		return strings.ToUpper(dst)
	case startsUpper(src):
		r, size := utf8.DecodeRuneInString(dst)
		return string(unicode.ToUpper(r)) + dst[size:]
	default:
		return dst
	}
}

func startsUpper(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return unicode.IsUpper(r)
}
