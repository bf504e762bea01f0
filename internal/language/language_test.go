package language

import "testing"

func TestDetect(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Language
	}{
		{
			name: "empty input defaults to english",
			text: "",
			want: English,
		},
		{
			name: "whitespace only defaults to english",
			text: "   \n\t  ",
			want: English,
		},
		{
			name: "plain english",
			text: "Senior Backend Engineer with experience in distributed systems",
			want: English,
		},
		{
			name: "plain chinese",
			text: "資深後端工程師，需具備分散式系統經驗",
			want: Chinese,
		},
		{
			name: "mixed chinese and english",
			text: "資深 Backend 工程師 experienced with Kubernetes 與分散式系統 deployments",
			want: Mixed,
		},
		{
			name: "chinese with sparse english below threshold",
			text: "我們正在尋找一位資深後端工程師，負責設計與維護大型分散式系統，並確保服務穩定性 Go",
			want: Chinese,
		},
		{
			name: "english with a few chinese characters below threshold",
			text: "We are hiring a senior backend engineer for our distributed systems team in Taipei 台北",
			want: English,
		},
		{
			name: "punctuation and digits are ignored",
			text: "2024-01-01 !!! ???",
			want: English,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Detect(tt.text); got != tt.want {
				t.Errorf("Detect(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestDetectDeterministic(t *testing.T) {
	text := "混合 content with 中文 and English words"
	first := Detect(text)
	for range 10 {
		if got := Detect(text); got != first {
			t.Fatalf("Detect not deterministic: got %q then %q", first, got)
		}
	}
}
