// Package langdetect defines the Provider interface for language
// identification backends.
//
// Language detection is advisory: the session core shows the most recent
// successful result and keeps it when a later call fails.
package langdetect

import (
	"context"
	"strings"
)

// Provider identifies the language of a piece of text.
type Provider interface {
	// Detect returns an ISO-639-1 language code such as "en". Implementations
	// return an error when the text cannot be classified.
	Detect(ctx context.Context, text string) (string, error)
}

// Func adapts an ordinary function to the [Provider] interface.
type Func func(ctx context.Context, text string) (string, error)

// Detect calls f(ctx, text).
func (f Func) Detect(ctx context.Context, text string) (string, error) {
	return f(ctx, text)
}

var displayNames = map[string]string{
	"en": "English",
	"es": "Spanish",
	"fr": "French",
	"de": "German",
	"it": "Italian",
	"pt": "Portuguese",
	"nl": "Dutch",
	"ru": "Russian",
	"zh": "Chinese",
	"ja": "Japanese",
	"ko": "Korean",
}

// DisplayName returns the English name of an ISO-639-1 code. Unknown codes
// are returned upper-cased; the empty code yields "".
func DisplayName(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if name, ok := displayNames[code]; ok {
		return name
	}
	return strings.ToUpper(code)
}
