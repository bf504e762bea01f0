package chunk

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/sitedex/sitedex/internal/language"
)

// makeProse builds deterministic English prose of approximately n runes,
// composed of short sentences so the sizing splitter has boundaries to work
// with.
func makeProse(n int) string {
	const sentence = "The quick brown fox jumps over the lazy dog near the river bank. "
	var b strings.Builder
	for b.Len() < n {
		b.WriteString(sentence)
	}
	return strings.TrimSpace(b.String()[:n])
}

func TestSplitThreeSectionJobPosting(t *testing.T) {
	// A job posting with three h2 sections of roughly 500, 1500 and 300
	// characters under a 1000-char bound with 150-char overlap: the middle
	// section must split into two overlapping chunks, the others pass
	// through unchanged.
	policies := PolicyTable{
		{ContentTypeJobPosting, language.English}: {MaxChars: 1000, Overlap: 150},
	}

	sec1 := makeProse(500)
	sec2 := makeProse(1500)
	sec3 := makeProse(300)

	page := fmt.Sprintf(`<html><body>
		<h1>Senior Engineer</h1>
		<h2>About the Role</h2><p>%s</p>
		<h2>Requirements</h2><p>%s</p>
		<h2>Benefits</h2><p>%s</p>
	</body></html>`, sec1, sec2, sec3)

	chunks := New(policies).Split(page, ContentTypeJobPosting, language.English)

	if len(chunks) != 4 {
		t.Fatalf("expected 4 chunks (1+2+1), got %d", len(chunks))
	}

	wantPaths := []string{
		"Senior Engineer > About the Role",
		"Senior Engineer > Requirements",
		"Senior Engineer > Requirements",
		"Senior Engineer > Benefits",
	}
	for i, want := range wantPaths {
		if chunks[i].HeadingPath != want {
			t.Errorf("chunk %d heading path = %q, want %q", i, chunks[i].HeadingPath, want)
		}
	}

	for i, c := range chunks {
		if c.CharCount > 1000 {
			t.Errorf("chunk %d exceeds bound: %d runes", i, c.CharCount)
		}
		if c.CharCount != utf8.RuneCountInString(c.Text) {
			t.Errorf("chunk %d CharCount %d does not match text length %d",
				i, c.CharCount, utf8.RuneCountInString(c.Text))
		}
	}

	// The second Requirements chunk must begin with the overlap tail of the
	// first so cross-boundary context survives.
	head := []rune(chunks[2].Text)
	if len(head) > 120 {
		head = head[:120]
	}
	if !strings.Contains(chunks[1].Text, string(head[:40])) {
		t.Errorf("split chunks do not overlap: second starts %q", string(head[:40]))
	}

	// Short sections pass through unchanged: no overlap prefix applied.
	if chunks[0].Text != sec1 {
		t.Errorf("short section modified:\n got %q\nwant %q", chunks[0].Text, sec1)
	}
}

func TestSplitSectionBoundAfterOverlapSeed(t *testing.T) {
	// A short paragraph followed by a near-bound one forces a flush whose
	// successor fragment starts with the overlap tail. The tail must shrink
	// so tail plus segment stays within the bound; no single segment here
	// exceeds it, so no fragment may either.
	pol := Policy{MaxChars: 1000, Overlap: 150}
	text := makeProse(100) + "\n\n" + makeProse(950)

	frags := splitSection(text, pol)

	if len(frags) < 2 {
		t.Fatalf("expected at least 2 fragments, got %d", len(frags))
	}
	for i, f := range frags {
		if n := utf8.RuneCountInString(f); n > pol.MaxChars {
			t.Errorf("fragment %d exceeds bound: %d runes", i, n)
		}
	}

	// The second fragment is the shrunk tail of the first plus the big
	// paragraph: strip the paragraph and what remains must be a suffix of
	// fragment one.
	p2 := makeProse(950)
	if !strings.HasSuffix(frags[1], p2) {
		t.Fatalf("second fragment does not end with its own paragraph")
	}
	seed := strings.TrimSpace(strings.TrimSuffix(frags[1], p2))
	if seed == "" {
		t.Fatal("second fragment carries no overlap seed")
	}
	if !strings.HasSuffix(frags[0], seed) {
		t.Errorf("overlap seed %q is not a tail of the first fragment", seed)
	}
}

func TestOverlapTailNeverExceedsBudget(t *testing.T) {
	tests := []struct {
		name string
		s    string
		n    int
	}{
		{"mid-word cut moves right", makeProse(300), 40},
		{"tiny budget", makeProse(300), 3},
		{"han text cuts anywhere", strings.Repeat("資深工程師", 40), 17},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tail := overlapTail(tt.s, tt.n)
			if got := utf8.RuneCountInString(tail); got > tt.n {
				t.Errorf("overlapTail(_, %d) returned %d runes: %q", tt.n, got, tail)
			}
		})
	}
}

func TestSplitDropsEmptySections(t *testing.T) {
	page := `<html><body>
		<h2>Empty Section</h2>
		<h2>Filled Section</h2><p>Some actual content here.</p>
	</body></html>`

	chunks := New(nil).Split(page, ContentTypeCompanyPage, language.English)

	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].HeadingPath != "Filled Section" {
		t.Errorf("heading path = %q, want %q", chunks[0].HeadingPath, "Filled Section")
	}
}

func TestSplitPlainText(t *testing.T) {
	text := "Just a short plain text description with no markup at all."
	chunks := New(nil).Split(text, ContentTypeBlogArticle, language.English)

	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Text != text {
		t.Errorf("plain text modified: %q", chunks[0].Text)
	}
	if chunks[0].HeadingPath != "" {
		t.Errorf("plain text chunk has heading path %q", chunks[0].HeadingPath)
	}
}

func TestSplitEmptyInput(t *testing.T) {
	for _, in := range []string{"", "   ", "<html><body></body></html>"} {
		if chunks := New(nil).Split(in, ContentTypeJobPosting, language.English); len(chunks) != 0 {
			t.Errorf("Split(%q) produced %d chunks, want 0", in, len(chunks))
		}
	}
}

func TestSplitRespectsChineseBound(t *testing.T) {
	// 20-rune sentences; 1200 runes total must split under the 800-rune
	// job-posting bound for Chinese.
	sentence := "我們需要具備五年以上後端開發經驗的工程師。"
	var b strings.Builder
	for range 60 {
		b.WriteString(sentence)
	}
	page := "<html><body><h2>職務需求</h2><p>" + b.String() + "</p></body></html>"

	chunks := New(nil).Split(page, ContentTypeJobPosting, language.Chinese)

	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks for 1200-rune section, got %d", len(chunks))
	}
	for i, c := range chunks {
		if c.CharCount > 800 {
			t.Errorf("chunk %d exceeds Chinese bound: %d runes", i, c.CharCount)
		}
		if c.HeadingPath != "職務需求" {
			t.Errorf("chunk %d heading path = %q", i, c.HeadingPath)
		}
	}
}

func TestSplitHeadingStack(t *testing.T) {
	page := `<html><body>
		<h1>Acme Corp</h1>
		<h2>Engineering</h2>
		<h3>Backend</h3><p>Backend team content.</p>
		<h2>Sales</h2><p>Sales team content.</p>
	</body></html>`

	chunks := New(nil).Split(page, ContentTypeCompanyPage, language.English)

	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if got := chunks[0].HeadingPath; got != "Acme Corp > Engineering > Backend" {
		t.Errorf("nested heading path = %q", got)
	}
	// A following h2 must clear the stale h3 from the stack.
	if got := chunks[1].HeadingPath; got != "Acme Corp > Sales" {
		t.Errorf("sibling heading path = %q", got)
	}
}

func TestSplitDeterministic(t *testing.T) {
	page := "<html><body><h2>Title</h2><p>" + makeProse(2500) + "</p></body></html>"
	c := New(nil)

	first := c.Split(page, ContentTypeBlogArticle, language.English)
	for range 5 {
		again := c.Split(page, ContentTypeBlogArticle, language.English)
		if len(again) != len(first) {
			t.Fatalf("chunk count changed between runs: %d vs %d", len(first), len(again))
		}
		for i := range first {
			if first[i] != again[i] {
				t.Fatalf("chunk %d differs between runs", i)
			}
		}
	}
}
