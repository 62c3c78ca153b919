package spellcheck

import "testing"

func TestDetector_Decide(t *testing.T) {
	t.Parallel()

	d := NewDetector()
	input := func(ins string) EditEvent { return EditEvent{Kind: EventInput, Inserted: ins} }

	tests := []struct {
		name string
		prev string
		next string
		ev   EditEvent
		want Decision
	}{
		{"letter typed", "hello wrol", "hello wrold", input("d"), DecisionNone},
		{"space typed", "hello wrold", "hello wrold ", input(" "), DecisionAnalyze},
		{"period typed", "hello wrold", "hello wrold.", input("."), DecisionAnalyze},
		{"comma typed", "hello", "hello,", input(","), DecisionAnalyze},
		{"question mark typed", "hello", "hello?", input("?"), DecisionAnalyze},
		{"exclamation typed", "hello", "hello!", input("!"), DecisionAnalyze},
		{"paste ending in letter", "", "hello wrold", input("hello wrold"), DecisionNone},
		{"paste ending in space", "", "hello wrold ", input("hello wrold "), DecisionAnalyze},
		{"space typed mid-text", "helloworld", "hello world", input(" "), DecisionAnalyze},
		{"deletion", "hello wrold ", "hello wrold", input(""), DecisionNone},
		{"derived insertion", "hello wrold", "hello wrold ", EditEvent{Kind: EventInput}, DecisionAnalyze},
		{"blur", "hello wrold", "hello wrold", EditEvent{Kind: EventBlur}, DecisionAnalyze},
		{"upload", "", "some file text", EditEvent{Kind: EventUpload}, DecisionAnalyze},
		{"programmatic", "hello wrold", "hello world", EditEvent{Kind: EventProgrammatic}, DecisionAnalyze},
		{"empty", "a", "", input(""), DecisionClear},
		{"too short", "h", "hi", input("i"), DecisionClear},
		{"too short with boundary", "h", "h.", input("."), DecisionClear},
		{"whitespace only", "  ", "   ", input(" "), DecisionClear},
		{"short blur", "hi", "hi", EditEvent{Kind: EventBlur}, DecisionClear},
		{"exactly min length", "ab", "ab ", input(" "), DecisionAnalyze},
		{"multi-byte short", "日", "日本", input("本"), DecisionClear},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := d.Decide(tt.prev, tt.next, tt.ev); got != tt.want {
				t.Errorf("Decide(%q, %q, %+v) = %v; want %v", tt.prev, tt.next, tt.ev, got, tt.want)
			}
		})
	}
}

func TestDetector_TypingTriggersAtEachWordBoundary(t *testing.T) {
	t.Parallel()

	d := NewDetector()
	const phrase = "hello wrold "
	var text string
	var triggers []string
	for _, r := range phrase {
		next := text + string(r)
		if d.ShouldAnalyze(text, next, EditEvent{Kind: EventInput, Inserted: string(r)}) {
			triggers = append(triggers, next)
		}
		text = next
	}
	// Every completed word triggers, including "hello ".
	if len(triggers) != 2 || triggers[1] != "hello wrold " {
		t.Fatalf("triggers = %q; want [\"hello \" \"hello wrold \"]", triggers)
	}
}

func TestDetector_Options(t *testing.T) {
	t.Parallel()

	d := NewDetector(WithMinLength(5), WithBoundaryChars(";"))
	if d.MinLength() != 5 || d.BoundaryChars() != ";" {
		t.Fatalf("options not applied: min=%d boundary=%q", d.MinLength(), d.BoundaryChars())
	}
	if got := d.Decide("abcd", "abcd;", EditEvent{Kind: EventInput, Inserted: ";"}); got != DecisionAnalyze {
		t.Errorf("custom boundary: got %v; want analyze", got)
	}
	if got := d.Decide("abcde", "abcde ", EditEvent{Kind: EventInput, Inserted: " "}); got != DecisionNone {
		t.Errorf("space no longer a boundary: got %v; want none", got)
	}
	if got := d.Decide("abc", "abc;", EditEvent{Kind: EventInput, Inserted: ";"}); got != DecisionClear {
		t.Errorf("custom min length: got %v; want clear", got)
	}

	// Invalid values keep the defaults.
	d = NewDetector(WithMinLength(0), WithBoundaryChars(""))
	if d.MinLength() != DefaultMinLength || d.BoundaryChars() != DefaultBoundaryChars {
		t.Errorf("invalid options changed defaults: min=%d boundary=%q", d.MinLength(), d.BoundaryChars())
	}
}

func TestInsertedText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		prev, next, want string
	}{
		{"", "abc", "abc"},
		{"abc", "abcd", "d"},
		{"abc", "xabc", "x"},
		{"abc", "abXc", "X"},
		{"abc", "ab", ""},
		{"abb", "abbb", "b"},
		{"héllo", "héllo!", "!"},
		{"café", "cafés", "s"},
		{"日本", "日本語", "語"},
		{"aé", "aè", "è"},
		{"same", "same", ""},
	}
	for _, tt := range tests {
		if got := insertedText(tt.prev, tt.next); got != tt.want {
			t.Errorf("insertedText(%q, %q) = %q; want %q", tt.prev, tt.next, got, tt.want)
		}
	}
}
