package chunk

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// sentenceEnders terminate a sentence in either script. The ender stays
// attached to the preceding text so concatenating segments reproduces the
// original section.
var sentenceEnders = map[rune]struct{}{
	'.': {}, '!': {}, '?': {},
	'。': {}, '！': {}, '？': {},
}

// splitSection breaks one section into fragments of at most pol.MaxChars
// runes, carrying pol.Overlap runes of context between consecutive
// fragments. Sections already under the bound pass through unchanged with
// no overlap applied.
func splitSection(text string, pol Policy) []string {
	if utf8.RuneCountInString(text) <= pol.MaxChars {
		return []string{text}
	}

	segs := atomicSegments(text, pol.MaxChars)
	return mergeSegments(segs, pol.MaxChars, pol.Overlap)
}

// atomicSegments splits text into pieces no longer than maxChars using a
// priority-ordered separator ladder: paragraph break, line break, sentence
// end, word boundary. A single word longer than the bound is returned as-is;
// truncating it would break the token mid-word.
func atomicSegments(text string, maxChars int) []string {
	return splitRecursive(text, maxChars, 0)
}

// splitters, in priority order. Each returns pieces whose concatenation
// equals the input.
var splitters = []func(string) []string{
	func(s string) []string { return strings.SplitAfter(s, "\n\n") },
	func(s string) []string { return strings.SplitAfter(s, "\n") },
	splitSentences,
	func(s string) []string { return strings.SplitAfter(s, " ") },
}

func splitRecursive(text string, maxChars, level int) []string {
	if utf8.RuneCountInString(text) <= maxChars || level >= len(splitters) {
		return []string{text}
	}

	pieces := splitters[level](text)
	out := make([]string, 0, len(pieces))
	for _, p := range pieces {
		if p == "" {
			continue
		}
		if utf8.RuneCountInString(p) > maxChars {
			out = append(out, splitRecursive(p, maxChars, level+1)...)
		} else {
			out = append(out, p)
		}
	}
	return out
}

// splitSentences cuts after sentence-ending punctuation (Latin and CJK),
// keeping the punctuation and any trailing space with the sentence.
func splitSentences(text string) []string {
	var out []string
	runes := []rune(text)
	start := 0
	for i, r := range runes {
		if _, ok := sentenceEnders[r]; !ok {
			continue
		}
		// Include trailing whitespace in the current sentence.
		end := i + 1
		if end < len(runes) && unicode.IsSpace(runes[end]) {
			continue
		}
		out = append(out, string(runes[start:end]))
		start = end
	}
	if start < len(runes) {
		out = append(out, string(runes[start:]))
	}
	return out
}

// mergeSegments greedily packs atomic segments into fragments of at most
// maxChars runes. Each fragment after the first starts with the overlap tail
// of its predecessor so cross-boundary context survives retrieval.
func mergeSegments(segs []string, maxChars, overlap int) []string {
	var fragments []string
	var cur strings.Builder
	curLen := 0

	flush := func() string {
		frag := strings.TrimSpace(cur.String())
		cur.Reset()
		curLen = 0
		if frag != "" {
			fragments = append(fragments, frag)
		}
		return frag
	}

	for _, seg := range segs {
		segLen := utf8.RuneCountInString(seg)

		if curLen > 0 && curLen+segLen > maxChars {
			prev := flush()
			// The tail, its joining space and the next segment must fit the
			// bound together; shrink the tail when the segment leaves little
			// room for it.
			budget := min(overlap, maxChars-segLen-1)
			if tail := overlapTail(prev, budget); tail != "" {
				cur.WriteString(tail)
				cur.WriteString(" ")
				curLen = utf8.RuneCountInString(tail) + 1
			}
		}

		cur.WriteString(seg)
		curLen += segLen
	}
	flush()

	return fragments
}

// overlapTail returns at most the last n runes of s, moved right to the
// nearest word boundary so a Latin word is never cut in half. Han runes are
// atomic token units, so a cut between them is always safe.
func overlapTail(s string, n int) string {
	if n <= 0 || s == "" {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}

	start := len(runes) - n
	for start < len(runes) && isWordRune(runes[start-1]) && isWordRune(runes[start]) {
		start++
	}
	return strings.TrimSpace(string(runes[start:]))
}

// isWordRune reports whether r is part of a multi-rune word. Han characters
// return false: each is its own minimal token.
func isWordRune(r rune) bool {
	if unicode.Is(unicode.Han, r) {
		return false
	}
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
