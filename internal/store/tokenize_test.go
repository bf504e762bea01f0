package store

import (
	"reflect"
	"testing"
)

func TestSegment(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "empty",
			text: "",
			want: nil,
		},
		{
			name: "english words lowercased",
			text: "Senior Backend Engineer",
			want: []string{"senior", "backend", "engineer"},
		},
		{
			name: "punctuation separates words",
			text: "Go, Rust/C++",
			want: []string{"go", "rust", "c"},
		},
		{
			name: "han run becomes bigrams",
			text: "分散式系統",
			want: []string{"分散", "散式", "式系", "系統"},
		},
		{
			name: "single han character kept whole",
			text: "好",
			want: []string{"好"},
		},
		{
			name: "mixed scripts split at boundaries",
			text: "資深Go工程師",
			want: []string{"資深", "go", "工程", "程師"},
		},
		{
			name: "digits kept with latin words",
			text: "Kubernetes 1.28",
			want: []string{"kubernetes", "1", "28"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Segment(tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Segment(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestFTSQueryMatchesDocumentTokens(t *testing.T) {
	// A Chinese query term segment must overlap the bigrams produced at
	// index time for text containing that term.
	doc := ftsDocument("本職位需要分散式系統的實務經驗")
	query := ftsQuery("分散式系統")

	for _, tok := range Segment("分散式系統") {
		if !containsToken(doc, tok) {
			t.Errorf("index document %q missing query token %q", doc, tok)
		}
		if !containsToken(query, tok) {
			t.Errorf("query expression %q missing token %q", query, tok)
		}
	}
}

func TestFTSQueryEmpty(t *testing.T) {
	if q := ftsQuery("!!! ???"); q != "" {
		t.Errorf("ftsQuery of pure punctuation = %q, want empty", q)
	}
}

func containsToken(joined, tok string) bool {
	for _, part := range splitAny(joined) {
		if part == tok {
			return true
		}
	}
	return false
}

func splitAny(s string) []string {
	var out []string
	cur := ""
	for _, r := range s {
		if r == ' ' || r == '|' {
			if cur != "" {
				out = append(out, cur)
				cur = ""
			}
			continue
		}
		cur += string(r)
	}
	if cur != "" {
		out = append(out, cur)
	}
	return out
}
