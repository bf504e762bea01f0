package query

import (
	"sort"

	"github.com/sitedex/sitedex/internal/store"
)

const (
	// vectorWeight and textWeight set the blend between semantic and
	// lexical relevance. Vector similarity dominates; the full-text signal
	// rescues exact-term matches the embedding misses.
	vectorWeight = 0.7
	textWeight   = 0.3

	// missingPenalty is added on top of the worst observed score of a
	// signal when a candidate appeared in only one of the two result sets.
	// A one-signal candidate ranks behind a comparable two-signal one but
	// is never discarded outright.
	missingPenalty = 0.05
)

// fusedHit is one candidate after score fusion. Score is normalized to
// roughly [0,1] where lower is better.
type fusedHit struct {
	ChunkID string
	Score   float64
}

// fuse merges vector and full-text candidates into one ranking.
//
// Each signal is min-max normalized over its own candidate set so the two
// become comparable: cosine distances map directly (lower is better), text
// ranks are inverted (higher rank maps to a lower normalized score). The
// combined score is deterministic; ties break on chunk ID.
func fuse(vecHits []store.VectorHit, txtHits []store.TextHit, limit int) []fusedHit {
	vecScores := normalizeVector(vecHits)
	txtScores := normalizeText(txtHits)

	vecMissing := worstScore(vecScores) + missingPenalty
	txtMissing := worstScore(txtScores) + missingPenalty

	ids := make(map[string]struct{}, len(vecScores)+len(txtScores))
	for id := range vecScores {
		ids[id] = struct{}{}
	}
	for id := range txtScores {
		ids[id] = struct{}{}
	}

	fused := make([]fusedHit, 0, len(ids))
	for id := range ids {
		v, ok := vecScores[id]
		if !ok {
			v = vecMissing
		}
		t, ok := txtScores[id]
		if !ok {
			t = txtMissing
		}
		fused = append(fused, fusedHit{
			ChunkID: id,
			Score:   vectorWeight*v + textWeight*t,
		})
	}

	sort.Slice(fused, func(i, j int) bool {
		if fused[i].Score != fused[j].Score {
			return fused[i].Score < fused[j].Score
		}
		return fused[i].ChunkID < fused[j].ChunkID
	})

	if limit > 0 && len(fused) > limit {
		fused = fused[:limit]
	}
	return fused
}

// normalizeVector maps cosine distances to [0,1], lower is better.
func normalizeVector(hits []store.VectorHit) map[string]float64 {
	if len(hits) == 0 {
		return nil
	}

	lo, hi := hits[0].Distance, hits[0].Distance
	for _, h := range hits {
		if h.Distance < lo {
			lo = h.Distance
		}
		if h.Distance > hi {
			hi = h.Distance
		}
	}

	out := make(map[string]float64, len(hits))
	for _, h := range hits {
		if hi == lo {
			out[h.ChunkID] = 0
			continue
		}
		out[h.ChunkID] = (h.Distance - lo) / (hi - lo)
	}
	return out
}

// normalizeText maps ts_rank_cd ranks to [0,1] inverted, lower is better.
func normalizeText(hits []store.TextHit) map[string]float64 {
	if len(hits) == 0 {
		return nil
	}

	lo, hi := hits[0].Rank, hits[0].Rank
	for _, h := range hits {
		if h.Rank < lo {
			lo = h.Rank
		}
		if h.Rank > hi {
			hi = h.Rank
		}
	}

	out := make(map[string]float64, len(hits))
	for _, h := range hits {
		if hi == lo {
			out[h.ChunkID] = 0
			continue
		}
		out[h.ChunkID] = (hi - h.Rank) / (hi - lo)
	}
	return out
}

// worstScore is the highest (worst) normalized score of a signal, or 1 when
// the signal produced no candidates at all.
func worstScore(scores map[string]float64) float64 {
	if len(scores) == 0 {
		return 1
	}
	worst := 0.0
	for _, s := range scores {
		if s > worst {
			worst = s
		}
	}
	return worst
}
