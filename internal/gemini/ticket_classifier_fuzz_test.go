package gemini

import (
	"strings"
	"testing"
)

func FuzzExtractJSON(f *testing.F) {
	f.Add(`{"category": "card", "priority": "high"}`)
	f.Add(`Here is the JSON: {"a": 1}`)
	f.Add("```json\n{\"a\": 1}\n```")
	f.Add(`{incomplete`)
	f.Add(`}backwards{`)
	f.Add(``)
	f.Add(`{ } { }`)
	f.Add(`{"a": "}{"}`)

	f.Fuzz(func(t *testing.T, input string) {
		result := extractJSON(input)
		if result == "" {
			return
		}
		if !strings.HasPrefix(result, "{") || !strings.HasSuffix(result, "}") {
			t.Errorf("extractJSON(%q) = %q, want a {...} span", input, result)
		}
		if !strings.Contains(input, result) {
			t.Errorf("extractJSON(%q) = %q, not a substring of the input", input, result)
		}
	})
}

func FuzzSanitizeForPrompt(f *testing.F) {
	f.Add("normal text", 50)
	f.Add("with \"quotes\" and `ticks`", 20)
	f.Add("nul\x00byte\nnewline", 10)
	f.Add("", 0)

	f.Fuzz(func(t *testing.T, input string, maxLength int) {
		if maxLength < 0 || maxLength > 4096 {
			return
		}
		out := SanitizeForPrompt(input, maxLength)
		if len(out) > maxLength {
			t.Errorf("len = %d, exceeds %d", len(out), maxLength)
		}
		if strings.ContainsAny(out, "\"`\x00\n\t") {
			t.Errorf("SanitizeForPrompt(%q) = %q still has unsafe characters", input, out)
		}
		if out != strings.TrimSpace(out) {
			t.Errorf("SanitizeForPrompt(%q) = %q has surrounding whitespace", input, out)
		}
	})
}
