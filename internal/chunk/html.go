package chunk

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// section is one heading-bounded region of a page: everything between a
// heading (levels 1-3) and the next heading of the same or higher level.
type section struct {
	headingPath string
	text        string
}

// headingSeparator joins the heading stack into a display path, e.g.
// "Requirements > Technical Skills".
const headingSeparator = " > "

// elements whose text is skipped entirely when collecting section content.
var skippedElements = map[string]struct{}{
	"script":   {},
	"style":    {},
	"noscript": {},
	"head":     {},
	"nav":      {},
	"iframe":   {},
	"svg":      {},
}

// splitSections divides raw content into heading-bounded sections.
// HTML input is walked in document order; headings h1-h3 open a new section
// tagged with the heading path. Non-HTML input becomes a single untitled
// section. Sections with no extractable text are dropped.
func splitSections(content string) []section {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return nil
	}

	if !strings.Contains(trimmed, "<") {
		return []section{{text: trimmed}}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(trimmed))
	if err != nil {
		// Malformed enough that net/html gave up: fall back to treating
		// the input as plain text.
		return []section{{text: trimmed}}
	}

	w := &sectionWalker{headings: make([]string, 3)}
	for _, root := range doc.Nodes {
		w.walk(root)
	}
	w.flush()

	return w.sections
}

// ExtractText returns the readable text of content with markup, scripts and
// navigation removed. Heading text is included. Used for language detection
// and for retaining the raw text of a page alongside its chunks.
func ExtractText(content string) string {
	sections := splitSections(content)
	var parts []string
	for _, s := range sections {
		if s.headingPath != "" {
			parts = append(parts, s.headingPath)
		}
		parts = append(parts, s.text)
	}
	return strings.Join(parts, "\n")
}

// sectionWalker accumulates text between heading boundaries during a
// depth-first traversal of the parsed document.
type sectionWalker struct {
	headings []string // heading text by level index (0..2 for h1..h3)
	current  strings.Builder
	path     string
	sections []section
}

func (w *sectionWalker) walk(n *html.Node) {
	if n.Type == html.ElementNode {
		if _, skip := skippedElements[n.Data]; skip {
			return
		}
		if level, ok := headingLevel(n.Data); ok {
			w.flush()
			w.setHeading(level, nodeText(n))
			return // heading text lives in the path, not the body
		}
	}

	if n.Type == html.TextNode {
		w.appendText(n.Data)
		return
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.walk(c)
	}

	// Block boundaries become newlines so the size splitter sees
	// paragraph structure.
	if n.Type == html.ElementNode && isBlockElement(n.Data) {
		w.appendText("\n")
	}
}

func (w *sectionWalker) setHeading(level int, text string) {
	w.headings[level] = strings.TrimSpace(text)
	for i := level + 1; i < len(w.headings); i++ {
		w.headings[i] = ""
	}

	var parts []string
	for _, h := range w.headings {
		if h != "" {
			parts = append(parts, h)
		}
	}
	w.path = strings.Join(parts, headingSeparator)
}

func (w *sectionWalker) appendText(s string) {
	if strings.TrimSpace(s) == "" {
		// Preserve structural newlines but collapse pure whitespace runs.
		if strings.Contains(s, "\n") && w.current.Len() > 0 {
			w.current.WriteString("\n")
		}
		return
	}
	if w.current.Len() > 0 {
		w.current.WriteString(" ")
	}
	w.current.WriteString(strings.TrimSpace(s))
}

// flush closes the current section, dropping it when no text accumulated.
func (w *sectionWalker) flush() {
	text := normalizeWhitespace(w.current.String())
	w.current.Reset()
	if text == "" {
		return
	}
	w.sections = append(w.sections, section{headingPath: w.path, text: text})
}

func headingLevel(tag string) (int, bool) {
	switch tag {
	case "h1":
		return 0, true
	case "h2":
		return 1, true
	case "h3":
		return 2, true
	}
	return 0, false
}

func isBlockElement(tag string) bool {
	switch tag {
	case "p", "div", "li", "ul", "ol", "table", "tr", "br",
		"blockquote", "pre", "section", "article", "header", "footer":
		return true
	}
	return false
}

// nodeText returns the concatenated text content of a node subtree.
func nodeText(n *html.Node) string {
	var b strings.Builder
	var visit func(*html.Node)
	visit = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(n)
	return b.String()
}

// normalizeWhitespace collapses runs of spaces and trims blank lines while
// keeping single newlines as paragraph hints for the splitter.
func normalizeWhitespace(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
