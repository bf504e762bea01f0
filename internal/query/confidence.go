package query

// Confidence is a coarse quality indicator for a result set, derived from
// the best fused score. Callers surface it so users can tell a strong match
// from a grasp at straws.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Fused scores are lower-is-better; the bands were picked against the
// normalized score distribution, not raw cosine distances.
const (
	highThreshold   = 0.35
	mediumThreshold = 0.60
)

// confidenceOf grades a result set by its best score. No results is low.
func confidenceOf(hits []fusedHit) Confidence {
	if len(hits) == 0 {
		return ConfidenceLow
	}
	best := hits[0].Score
	switch {
	case best < highThreshold:
		return ConfidenceHigh
	case best < mediumThreshold:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}
