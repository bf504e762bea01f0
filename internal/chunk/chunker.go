// Package chunk splits raw page content into overlapping, heading-tagged
// text fragments sized for embedding and retrieval.
//
// Chunking runs in two stages. A structural pass splits the page on heading
// boundaries (h1-h3) and tags each candidate with its heading path. A sizing
// pass then recursively splits any candidate over the policy bound on a
// separator ladder (paragraph, line, sentence, word), carrying a fixed rune
// overlap between consecutive fragments of the same section.
//
// The whole package is pure: no I/O, deterministic output for a given input.
package chunk

import (
	"unicode/utf8"

	"github.com/sitedex/sitedex/internal/language"
)

// Chunk is one retrievable fragment of a page.
type Chunk struct {
	// Text is the fragment content.
	Text string

	// HeadingPath locates the fragment in the page structure, e.g.
	// "Requirements > Technical Skills". Empty for untitled content.
	HeadingPath string

	// CharCount is the rune length of Text.
	CharCount int
}

// Chunker splits content according to a sizing policy table.
type Chunker struct {
	policies PolicyTable
}

// New creates a Chunker. A nil table uses DefaultPolicies.
func New(policies PolicyTable) *Chunker {
	if policies == nil {
		policies = DefaultPolicies()
	}
	return &Chunker{policies: policies}
}

// Split chunks raw HTML or plain-text content. The content type and detected
// language select the sizing policy. Output order is the document order of
// the source; ordinal positions downstream are assigned from it verbatim.
func (c *Chunker) Split(content, contentType string, lang language.Language) []Chunk {
	pol := c.policies.Lookup(contentType, lang)

	var chunks []Chunk
	for _, sec := range splitSections(content) {
		for _, frag := range splitSection(sec.text, pol) {
			if frag == "" {
				continue
			}
			chunks = append(chunks, Chunk{
				Text:        frag,
				HeadingPath: sec.headingPath,
				CharCount:   utf8.RuneCountInString(frag),
			})
		}
	}
	return chunks
}
