package spellcheck

import (
	"errors"
	"testing"
)

func TestApply(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		text        string
		target      string
		replacement string
		want        string
	}{
		{"all occurrences", "hello wrold wrold", "wrold", "world", "hello world world"},
		{"whole word only", "concatenate cat scatter", "cat", "dog", "concatenate dog scatter"},
		{"case sensitive", "Wrold wrold WROLD", "wrold", "world", "Wrold world WROLD"},
		{"adjacent punctuation", "wrold, wrold. (wrold)!", "wrold", "world", "world, world. (world)!"},
		{"start and end of text", "wrold", "wrold", "world", "world"},
		{"underscore is a word char", "snake_wrold wrold", "wrold", "world", "snake_wrold world"},
		{"digits are word chars", "wrold2 wrold", "wrold", "world", "wrold2 world"},
		{"unicode letters are word chars", "cafés café", "café", "cafe", "cafés cafe"},
		{"regex metacharacters", "use c++ or c", "c++", "go", "use go or c"},
		{"dot is literal", "a.b axb", "a.b", "ab", "ab axb"},
		{"parentheses", "call f(x) now", "f(x)", "g(y)", "call g(y) now"},
		{"replacement is literal", "teh cat", "teh", "$1the", "$1the cat"},
		{"no occurrence", "hello world", "wrold", "world", "hello world"},
		{"empty text", "", "wrold", "world", ""},
		{"preserves surrounding bytes", "  a\twrold\n\nb  ", "wrold", "world", "  a\tworld\n\nb  "},
		{"shorter replacement", "abcdef abcdef", "abcdef", "x", "x x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Apply(tt.text, tt.target, tt.replacement)
			if err != nil {
				t.Fatalf("Apply: %v", err)
			}
			if got != tt.want {
				t.Errorf("Apply(%q, %q, %q) = %q; want %q", tt.text, tt.target, tt.replacement, got, tt.want)
			}
		})
	}
}

func TestApply_Idempotent(t *testing.T) {
	t.Parallel()

	once, err := Apply("hello wrold wrold", "wrold", "world")
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	twice, err := Apply(once, "wrold", "world")
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if once != "hello world world" || twice != once {
		t.Errorf("once = %q, twice = %q; want both %q", once, twice, "hello world world")
	}
}

func TestApply_MalformedPattern(t *testing.T) {
	t.Parallel()

	for _, target := range []string{"", "\xff"} {
		got, err := Apply("hello wrold", target, "x")
		if !errors.Is(err, ErrMalformedPattern) {
			t.Errorf("Apply(target=%q) err = %v; want ErrMalformedPattern", target, err)
		}
		if got != "hello wrold" {
			t.Errorf("Apply(target=%q) changed the buffer to %q", target, got)
		}
	}
}

func TestWordMatcher_FindAll(t *testing.T) {
	t.Parallel()

	m, err := NewWordMatcher("cat")
	if err != nil {
		t.Fatalf("NewWordMatcher: %v", err)
	}
	got := m.FindAll("cat concatenate cat, scatter cat")
	want := [][2]int{{0, 3}, {16, 19}, {29, 32}}
	if len(got) != len(want) {
		t.Fatalf("FindAll = %v; want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("FindAll[%d] = %v; want %v", i, got[i], want[i])
		}
	}
}
