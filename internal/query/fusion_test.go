package query

import (
	"math"
	"testing"

	"github.com/sitedex/sitedex/internal/store"
)

func TestFuseBothSignals(t *testing.T) {
	vec := []store.VectorHit{
		{ChunkID: "a", Distance: 0.10},
		{ChunkID: "b", Distance: 0.30},
		{ChunkID: "c", Distance: 0.50},
	}
	txt := []store.TextHit{
		{ChunkID: "a", Rank: 0.9},
		{ChunkID: "b", Rank: 0.5},
		{ChunkID: "c", Rank: 0.1},
	}

	fused := fuse(vec, txt, 10)
	if len(fused) != 3 {
		t.Fatalf("len = %d, want 3", len(fused))
	}

	// a is best on both signals, c worst on both.
	if fused[0].ChunkID != "a" || fused[2].ChunkID != "c" {
		t.Errorf("order = %v, want a first, c last", fused)
	}
	if fused[0].Score != 0 {
		t.Errorf("best score = %v, want 0 (best on both signals)", fused[0].Score)
	}
	if math.Abs(fused[2].Score-1.0) > 1e-9 {
		t.Errorf("worst score = %v, want 1 (worst on both signals)", fused[2].Score)
	}
}

func TestFuseMissingSignalPenalty(t *testing.T) {
	// b has no text signal; its text score is the worst observed (1.0 for
	// the only other candidate pair) plus the penalty.
	vec := []store.VectorHit{
		{ChunkID: "a", Distance: 0.1},
		{ChunkID: "b", Distance: 0.1},
	}
	txt := []store.TextHit{
		{ChunkID: "a", Rank: 0.5},
		{ChunkID: "x", Rank: 0.2},
	}

	fused := fuse(vec, txt, 10)

	scores := make(map[string]float64, len(fused))
	for _, h := range fused {
		scores[h.ChunkID] = h.Score
	}

	// a: vec 0, txt 0 -> 0. b: vec 0, txt worst(1.0)+0.05 -> 0.315.
	if scores["a"] != 0 {
		t.Errorf("score[a] = %v, want 0", scores["a"])
	}
	want := textWeight * (1.0 + missingPenalty)
	if math.Abs(scores["b"]-want) > 1e-9 {
		t.Errorf("score[b] = %v, want %v", scores["b"], want)
	}
	if scores["b"] <= scores["a"] {
		t.Error("one-signal candidate must rank behind a comparable two-signal one")
	}
}

func TestFuseTextOnlyCandidates(t *testing.T) {
	// Empty vector signal: every candidate pays the full vector penalty,
	// ranking stays driven by text rank.
	txt := []store.TextHit{
		{ChunkID: "hi", Rank: 0.8},
		{ChunkID: "lo", Rank: 0.2},
	}

	fused := fuse(nil, txt, 10)
	if len(fused) != 2 {
		t.Fatalf("len = %d, want 2", len(fused))
	}
	if fused[0].ChunkID != "hi" {
		t.Errorf("first = %s, want hi", fused[0].ChunkID)
	}
}

func TestFuseTieBreaksOnChunkID(t *testing.T) {
	vec := []store.VectorHit{
		{ChunkID: "zz", Distance: 0.2},
		{ChunkID: "aa", Distance: 0.2},
	}

	fused := fuse(vec, nil, 10)
	if fused[0].ChunkID != "aa" || fused[1].ChunkID != "zz" {
		t.Errorf("tie order = [%s %s], want [aa zz]", fused[0].ChunkID, fused[1].ChunkID)
	}
}

func TestFuseTruncates(t *testing.T) {
	var vec []store.VectorHit
	for i := 0; i < 10; i++ {
		vec = append(vec, store.VectorHit{ChunkID: string(rune('a' + i)), Distance: float64(i) / 10})
	}

	fused := fuse(vec, nil, 3)
	if len(fused) != 3 {
		t.Fatalf("len = %d, want 3", len(fused))
	}
	if fused[0].ChunkID != "a" {
		t.Errorf("first = %s, want a", fused[0].ChunkID)
	}
}

func TestFuseDeterministic(t *testing.T) {
	vec := []store.VectorHit{
		{ChunkID: "a", Distance: 0.12}, {ChunkID: "b", Distance: 0.34},
		{ChunkID: "c", Distance: 0.34}, {ChunkID: "d", Distance: 0.56},
	}
	txt := []store.TextHit{
		{ChunkID: "b", Rank: 0.7}, {ChunkID: "d", Rank: 0.7},
		{ChunkID: "e", Rank: 0.3},
	}

	first := fuse(vec, txt, 10)
	for i := 0; i < 50; i++ {
		again := fuse(vec, txt, 10)
		if len(again) != len(first) {
			t.Fatalf("run %d: len changed", i)
		}
		for j := range first {
			if again[j] != first[j] {
				t.Fatalf("run %d: position %d = %+v, want %+v", i, j, again[j], first[j])
			}
		}
	}
}

func TestFuseEmpty(t *testing.T) {
	if got := fuse(nil, nil, 5); len(got) != 0 {
		t.Errorf("fuse(nil, nil) = %v, want empty", got)
	}
}

func TestConfidenceOf(t *testing.T) {
	tests := []struct {
		name string
		hits []fusedHit
		want Confidence
	}{
		{"no results", nil, ConfidenceLow},
		{"strong match", []fusedHit{{Score: 0.1}}, ConfidenceHigh},
		{"moderate match", []fusedHit{{Score: 0.5}}, ConfidenceMedium},
		{"weak match", []fusedHit{{Score: 0.8}}, ConfidenceLow},
		{"boundary high", []fusedHit{{Score: highThreshold}}, ConfidenceMedium},
		{"boundary medium", []fusedHit{{Score: mediumThreshold}}, ConfidenceLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := confidenceOf(tt.hits); got != tt.want {
				t.Errorf("confidenceOf() = %s, want %s", got, tt.want)
			}
		})
	}
}
