package testutil

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"
)

// FakeEmbedder is a deterministic embedder for tests. The vector is derived
// from a hash of the text, normalized to unit length, so equal texts get
// equal vectors and different texts get (almost certainly) different ones.
// No semantic similarity is implied.
type FakeEmbedder struct {
	Dim int
}

// NewFakeEmbedder returns a fake embedder with the given dimension.
func NewFakeEmbedder(dim int) *FakeEmbedder {
	return &FakeEmbedder{Dim: dim}
}

// Embed returns the deterministic unit vector for text.
func (f *FakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, f.Dim)
	seed := sha256.Sum256([]byte(text))

	var norm float64
	for i := range vec {
		var buf [40]byte
		copy(buf[:32], seed[:])
		binary.LittleEndian.PutUint64(buf[32:], uint64(i))
		h := sha256.Sum256(buf[:])
		// Map the first 8 hash bytes to (-1, 1).
		v := float64(int64(binary.LittleEndian.Uint64(h[:8]))) / math.MaxInt64
		vec[i] = float32(v)
		norm += v * v
	}

	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range vec {
			vec[i] = float32(float64(vec[i]) / norm)
		}
	}
	return vec, nil
}

// Dimension returns the configured vector length.
func (f *FakeEmbedder) Dimension() int { return f.Dim }

// Model returns a fixed test model name.
func (f *FakeEmbedder) Model() string { return "fake-embedder" }
