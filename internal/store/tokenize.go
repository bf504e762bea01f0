package store

import (
	"strings"
	"unicode"
)

// Segment splits text into full-text search tokens. Latin words are
// lowercased whole; runs of Han characters become overlapping bigrams, the
// standard workaround for scripts without word delimiters — naive whitespace
// tokenization would index an entire Chinese sentence as one useless token.
//
// The same segmentation is applied at index time and query time, which is
// what makes the two sides match.
func Segment(text string) []string {
	var tokens []string
	var word []rune // current Latin/digit run
	var han []rune  // current Han run

	flushWord := func() {
		if len(word) > 0 {
			tokens = append(tokens, strings.ToLower(string(word)))
			word = word[:0]
		}
	}
	flushHan := func() {
		switch {
		case len(han) == 1:
			tokens = append(tokens, string(han))
		case len(han) > 1:
			for i := 0; i+1 < len(han); i++ {
				tokens = append(tokens, string(han[i:i+2]))
			}
		}
		han = han[:0]
	}

	for _, r := range text {
		switch {
		case unicode.Is(unicode.Han, r):
			flushWord()
			han = append(han, r)
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			flushHan()
			word = append(word, r)
		default:
			flushWord()
			flushHan()
		}
	}
	flushWord()
	flushHan()

	return tokens
}

// ftsDocument renders chunk text into the space-joined token form stored in
// the fts_text column, where to_tsvector('simple', ...) picks it up.
func ftsDocument(text string) string {
	return strings.Join(Segment(text), " ")
}

// ftsQuery renders query text into a to_tsquery('simple', ...) expression
// matching any token. Segment only emits letters, digits and Han runes, so
// the tokens are safe to join without further escaping. Returns "" when the
// query has no indexable tokens.
func ftsQuery(text string) string {
	return strings.Join(Segment(text), " | ")
}
