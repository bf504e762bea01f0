package chunk

import "github.com/sitedex/sitedex/internal/language"

// Content classifications for ingested pages. Chunk sizing is keyed by
// classification because retrieval granularity differs: job postings are
// scanned for specific requirements (small chunks, precision), articles are
// read for argument flow (large chunks, recall).
const (
	ContentTypeJobPosting  = "job_posting"
	ContentTypeBlogArticle = "blog_article"
	ContentTypeCompanyPage = "company_page"
)

// Policy bounds the size of chunks produced for one (content type, language)
// combination. MaxChars is a soft upper bound in runes: a fragment may exceed
// it only when a single unsplittable unit (one huge word) is longer than the
// bound. Overlap is the number of runes carried from the tail of one fragment
// into the head of the next within the same section.
type Policy struct {
	MaxChars int
	Overlap  int
}

// PolicyKey identifies one row of the policy table.
type PolicyKey struct {
	ContentType string
	Language    language.Language
}

// PolicyTable maps (content type, language) to chunk sizing. It is plain
// configuration: new content types are added by extending the table, not by
// touching the splitter.
type PolicyTable map[PolicyKey]Policy

// DefaultPolicy applies when no table row matches.
var DefaultPolicy = Policy{MaxChars: 1200, Overlap: 150}

// DefaultPolicies returns the built-in sizing table. Han text carries more
// information per rune, so its targets are lower across the board.
func DefaultPolicies() PolicyTable {
	return PolicyTable{
		{ContentTypeJobPosting, language.Chinese}:  {MaxChars: 800, Overlap: 100},
		{ContentTypeJobPosting, language.English}:  {MaxChars: 1000, Overlap: 150},
		{ContentTypeBlogArticle, language.Chinese}: {MaxChars: 900, Overlap: 120},
		{ContentTypeBlogArticle, language.English}: {MaxChars: 1200, Overlap: 150},
		{ContentTypeCompanyPage, language.Chinese}: {MaxChars: 800, Overlap: 100},
		{ContentTypeCompanyPage, language.English}: {MaxChars: 1000, Overlap: 150},
	}
}

// Lookup resolves the policy for a content type and language. Mixed-script
// text falls back to the Chinese row when one exists: the denser script
// dominates sizing. Unknown combinations use DefaultPolicy.
func (t PolicyTable) Lookup(contentType string, lang language.Language) Policy {
	if p, ok := t[PolicyKey{contentType, lang}]; ok {
		return p
	}
	if lang == language.Mixed {
		if p, ok := t[PolicyKey{contentType, language.Chinese}]; ok {
			return p
		}
	}
	if p, ok := t[PolicyKey{contentType, language.English}]; ok {
		return p
	}
	return DefaultPolicy
}
