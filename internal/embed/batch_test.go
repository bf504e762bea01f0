package embed

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"go.uber.org/goleak"
)

// mockEmbedder implements Embedder for testing.
type mockEmbedder struct {
	dimension int
	failOn    string // text that triggers an error
	failErr   error
	calls     atomic.Int64
	inflight  atomic.Int64
	peak      atomic.Int64
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	m.calls.Add(1)

	cur := m.inflight.Add(1)
	defer m.inflight.Add(-1)
	for {
		peak := m.peak.Load()
		if cur <= peak || m.peak.CompareAndSwap(peak, cur) {
			break
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}
	if m.failOn != "" && text == m.failOn {
		if m.failErr != nil {
			return nil, m.failErr
		}
		return nil, ErrUnavailable
	}

	dim := m.dimension
	if dim == 0 {
		dim = 4
	}
	vec := make([]float32, dim)
	vec[0] = float32(len(text)) // deterministic, input-dependent
	return vec, nil
}

func (m *mockEmbedder) Dimension() int {
	if m.dimension == 0 {
		return 4
	}
	return m.dimension
}

func (m *mockEmbedder) Model() string { return "mock-embedder" }

func TestBatchPreservesOrder(t *testing.T) {
	defer goleak.VerifyNone(t)

	texts := make([]string, 20)
	for i := range texts {
		texts[i] = strings.Repeat("x", i+1)
	}

	m := &mockEmbedder{}
	vectors, err := Batch(context.Background(), m, texts, 4)
	if err != nil {
		t.Fatalf("Batch failed: %v", err)
	}

	if len(vectors) != len(texts) {
		t.Fatalf("got %d vectors, want %d", len(vectors), len(texts))
	}
	for i, vec := range vectors {
		if vec[0] != float32(i+1) {
			t.Errorf("vector %d out of order: marker %v, want %v", i, vec[0], float32(i+1))
		}
	}
}

func TestBatchBoundsParallelism(t *testing.T) {
	defer goleak.VerifyNone(t)

	texts := make([]string, 50)
	for i := range texts {
		texts[i] = fmt.Sprintf("text-%d", i)
	}

	m := &mockEmbedder{}
	if _, err := Batch(context.Background(), m, texts, 3); err != nil {
		t.Fatalf("Batch failed: %v", err)
	}

	if peak := m.peak.Load(); peak > 3 {
		t.Errorf("observed %d concurrent calls, limit is 3", peak)
	}
}

func TestBatchFailsAsUnit(t *testing.T) {
	defer goleak.VerifyNone(t)

	texts := []string{"one", "two", "poison", "four"}
	m := &mockEmbedder{failOn: "poison"}

	vectors, err := Batch(context.Background(), m, texts, 2)
	if err == nil {
		t.Fatal("expected error from poisoned batch")
	}
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("error chain lost transient marker: %v", err)
	}
	if vectors != nil {
		t.Errorf("failed batch must return nil vectors, got %d", len(vectors))
	}
}

func TestBatchEmptyInput(t *testing.T) {
	vectors, err := Batch(context.Background(), &mockEmbedder{}, nil, 4)
	if err != nil {
		t.Fatalf("Batch(nil) failed: %v", err)
	}
	if vectors != nil {
		t.Errorf("Batch(nil) = %v, want nil", vectors)
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"unavailable", ErrUnavailable, true},
		{"wrapped unavailable", fmt.Errorf("chunk 3: %w", ErrUnavailable), true},
		{"dimension mismatch is permanent", ErrDimensionMismatch, false},
		{"empty input is permanent", ErrEmptyInput, false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.want {
				t.Errorf("IsTransient(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
