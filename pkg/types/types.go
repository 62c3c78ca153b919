// Package types defines the shared types used across all livespell packages.
//
// These types form the lingua franca between analysis providers, language
// detectors, LLM backends and the editing session core. They are
// intentionally minimal: each package defines its own domain types, but
// cross-cutting data structures live here to avoid circular imports.
package types

// WordFinding is one token's correctness verdict as returned by a text
// analysis provider.
type WordFinding struct {
	// Word is the token exactly as it appears in the analysed text. Providers
	// that tokenise on word and non-word runs (like the reference back-end)
	// also emit whitespace and punctuation tokens, always marked correct.
	Word string `json:"word"`

	// IsCorrect reports whether the token is spelled correctly.
	IsCorrect bool `json:"is_correct"`

	// Suggestions holds ranked replacement candidates, best first. Empty for
	// correct tokens and for unknown words without any close match.
	Suggestions []string `json:"suggestions"`
}

// Clone returns a deep copy of f so that callers can hand findings across
// goroutines without sharing the suggestions backing array.
func (f WordFinding) Clone() WordFinding {
	out := f
	if f.Suggestions != nil {
		out.Suggestions = append([]string(nil), f.Suggestions...)
	}
	return out
}

// CloneFindings deep-copies a findings slice. A nil input yields nil.
func CloneFindings(in []WordFinding) []WordFinding {
	if in == nil {
		return nil
	}
	out := make([]WordFinding, len(in))
	for i, f := range in {
		out[i] = f.Clone()
	}
	return out
}

// FileReport is the result of a whole-file analysis.
type FileReport struct {
	// CorrectionsCount is the number of tokens the service corrected.
	CorrectionsCount int `json:"corrections_count"`

	// DownloadLocator identifies the corrected artifact. It is dereferenced
	// later through the file provider's Download method.
	DownloadLocator string `json:"download_url"`

	// FileType is the extension of the produced artifact (e.g. "txt").
	FileType string `json:"file_type,omitempty"`
}

// Message represents a single message in an LLM conversation.
type Message struct {
	// Role is one of "system", "user" or "assistant".
	Role string

	// Content is the text content of the message.
	Content string

	// Name is an optional participant name.
	Name string
}

// ModelCapabilities describes what an LLM model supports.
type ModelCapabilities struct {
	// ContextWindow is the maximum token count for input + output.
	ContextWindow int

	// MaxOutputTokens is the maximum tokens the model can generate in one completion.
	MaxOutputTokens int

	// SupportsJSONMode indicates the model reliably follows "respond with
	// JSON only" instructions.
	SupportsJSONMode bool
}
