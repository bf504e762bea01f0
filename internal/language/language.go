// Package language classifies text spans by dominant script.
//
// The pipeline only needs a coarse split: CJK text is information-dense and
// gets smaller chunk targets than Latin text. Anything finer-grained (exact
// language identification) is out of scope.
package language

import "unicode"

// Language is a coarse script classification for a text span.
type Language string

const (
	// Chinese marks text dominated by Han characters.
	Chinese Language = "zh"

	// English is the default classification for Latin-script text.
	English Language = "en"

	// Mixed marks text where both Han and Latin scripts exceed the
	// detection threshold.
	Mixed Language = "mixed"
)

// scriptThreshold is the fraction of characters a script must exceed to
// count as present. The 10% floor keeps short English snippets inside a
// Chinese page (or vice versa) from flipping the classification.
const scriptThreshold = 0.10

// Detect classifies a text span by counting characters per script.
// Empty or whitespace-only input returns English, the default policy.
// Detect is pure and deterministic.
func Detect(text string) Language {
	var han, latin, total int

	for _, r := range text {
		if unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsDigit(r) {
			continue
		}
		total++
		switch {
		case unicode.Is(unicode.Han, r):
			han++
		case unicode.In(r, unicode.Latin):
			latin++
		}
	}

	if total == 0 {
		return English
	}

	hanRatio := float64(han) / float64(total)
	latinRatio := float64(latin) / float64(total)

	if hanRatio > scriptThreshold {
		if latinRatio > scriptThreshold {
			return Mixed
		}
		return Chinese
	}
	return English
}
