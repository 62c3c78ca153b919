// Package llmcheck implements an analysis.Provider that asks a language model
// to point out misspelled words.
//
// The model receives the text together with a conservative system prompt and
// must answer with a JSON object listing misspellings and ranked suggestions.
// The analyzer then tokenises the text itself and marks every token the model
// named as incorrect, so the findings always cover the input exactly even
// when the model paraphrases or drops tokens.
package llmcheck

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/MrWong99/livespell/pkg/provider/analysis"
	"github.com/MrWong99/livespell/pkg/provider/llm"
	"github.com/MrWong99/livespell/pkg/types"
)

const (
	defaultTemperature    = 0.0
	defaultMaxSuggestions = 3
)

const systemPrompt = `You are a spelling checker.

Your task: list the misspelled words in the text the user sends.

Rules:
- Only report words that are spelled incorrectly. Do NOT report grammar, style or punctuation issues.
- Proper nouns, abbreviations and numbers are correct unless obviously mistyped.
- Report each misspelled word exactly as it appears in the text, including its capitalisation.
- Give up to %d suggestions per word, best first, matching the original capitalisation.

Respond with ONLY a JSON object in this exact format (no markdown, no prose):
{
  "misspellings": [
    {"word": "<word as written>", "suggestions": ["<best>", "<second>"]}
  ]
}

If every word is spelled correctly, return an empty misspellings array.`

// ErrUnparseable is returned when the model's reply is not the expected JSON
// document.
var ErrUnparseable = errors.New("llmcheck: unparseable model response")

var _ analysis.Provider = (*Checker)(nil)

// llmResponse is the JSON structure the model is asked to return.
type llmResponse struct {
	Misspellings []struct {
		Word        string   `json:"word"`
		Suggestions []string `json:"suggestions"`
	} `json:"misspellings"`
}

// Option is a functional option for configuring a [Checker].
type Option func(*Checker)

// WithTemperature sets the sampling temperature. Default: 0.
func WithTemperature(temp float64) Option {
	return func(c *Checker) {
		c.temperature = temp
	}
}

// WithMaxSuggestions caps suggestions per word. Default: 3.
func WithMaxSuggestions(n int) Option {
	return func(c *Checker) {
		if n > 0 {
			c.maxSuggestions = n
		}
	}
}

// Checker is an LLM-backed spell checker. It is safe for concurrent use.
type Checker struct {
	llm            llm.Provider
	temperature    float64
	maxSuggestions int
}

// New returns a Checker backed by provider.
func New(provider llm.Provider, opts ...Option) *Checker {
	c := &Checker{
		llm:            provider,
		temperature:    defaultTemperature,
		maxSuggestions: defaultMaxSuggestions,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Analyze implements analysis.Provider. Empty or wordless text is answered
// locally without calling the model.
func (c *Checker) Analyze(ctx context.Context, text string) ([]types.WordFinding, error) {
	tokens := analysis.Tokenize(text)
	if !hasWord(tokens) {
		return allCorrect(tokens), nil
	}

	resp, err := c.llm.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: fmt.Sprintf(systemPrompt, c.maxSuggestions),
		Temperature:  c.temperature,
		JSON:         true,
		Messages: []types.Message{
			{Role: "user", Content: text},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("llmcheck: complete: %w", err)
	}
	if resp == nil {
		return nil, fmt.Errorf("%w: empty reply", ErrUnparseable)
	}

	flagged, err := c.parseResponse(resp.Content)
	if err != nil {
		return nil, err
	}

	findings := make([]types.WordFinding, 0, len(tokens))
	for _, tok := range tokens {
		f := types.WordFinding{Word: tok, IsCorrect: true, Suggestions: []string{}}
		if sugg, ok := flagged[tok]; ok && analysis.IsWord(tok) {
			f.IsCorrect = false
			f.Suggestions = append([]string(nil), sugg...)
		}
		findings = append(findings, f)
	}
	return findings, nil
}

// parseResponse maps each reported word to its suggestions. Entries that
// suggest only the word itself are ignored.
func (c *Checker) parseResponse(content string) (map[string][]string, error) {
	var r llmResponse
	if err := json.Unmarshal([]byte(stripMarkdown(content)), &r); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnparseable, err)
	}

	out := make(map[string][]string, len(r.Misspellings))
	for _, m := range r.Misspellings {
		word := strings.TrimSpace(m.Word)
		if word == "" {
			continue
		}
		sugg := make([]string, 0, len(m.Suggestions))
		for _, s := range m.Suggestions {
			s = strings.TrimSpace(s)
			if s == "" || s == word {
				continue
			}
			sugg = append(sugg, s)
			if len(sugg) == c.maxSuggestions {
				break
			}
		}
		if len(sugg) == 0 && len(m.Suggestions) > 0 {
			continue
		}
		out[word] = sugg
	}
	return out, nil
}

func hasWord(tokens []string) bool {
	for _, t := range tokens {
		if analysis.IsWord(t) {
			return true
		}
	}
	return false
}

func allCorrect(tokens []string) []types.WordFinding {
	out := make([]types.WordFinding, 0, len(tokens))
	for _, t := range tokens {
		out = append(out, types.WordFinding{Word: t, IsCorrect: true, Suggestions: []string{}})
	}
	return out
}

// stripMarkdown removes optional markdown code fences (```json ... ```) that
// some models wrap around JSON output.
func stripMarkdown(s string) string {
	s = strings.TrimSpace(s)
	for _, prefix := range []string{"```json", "```"} {
		if after, ok := strings.CutPrefix(s, prefix); ok {
			s = after
			break
		}
	}
	if before, ok := strings.CutSuffix(s, "```"); ok {
		s = before
	}
	return strings.TrimSpace(s)
}
