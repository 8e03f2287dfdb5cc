package media

import (
	"math"
	"testing"
)

func TestEmbeddingRoundTrip(t *testing.T) {
	vec := []float32{0.25, -1.5, 0, 3.75, float32(math.Pi)}

	blob := EncodeEmbedding(vec)
	if len(blob) != 4*len(vec) {
		t.Fatalf("blob length = %d; want %d", len(blob), 4*len(vec))
	}

	got, err := DecodeEmbedding(blob)
	if err != nil {
		t.Fatalf("DecodeEmbedding() failed: %v", err)
	}
	if len(got) != len(vec) {
		t.Fatalf("decoded length = %d; want %d", len(got), len(vec))
	}
	for i := range vec {
		if got[i] != vec[i] {
			t.Errorf("got[%d] = %v; want %v", i, got[i], vec[i])
		}
	}
}

func TestDecodeEmbeddingRejectsBadLength(t *testing.T) {
	if _, err := DecodeEmbedding([]byte{1, 2, 3}); err == nil {
		t.Error("DecodeEmbedding(3 bytes) succeeded; want error")
	}
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 0}, []float32{1, 0}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"scaled", []float32{2, 0}, []float32{5, 0}, 1},
		{"zero vector", []float32{0, 0}, []float32{1, 0}, 0},
		{"length mismatch", []float32{1, 0}, []float32{1, 0, 0}, 0},
		{"empty", nil, nil, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := CosineSimilarity(tc.a, tc.b)
			if math.Abs(got-tc.want) > 1e-9 {
				t.Errorf("CosineSimilarity = %v; want %v", got, tc.want)
			}
		})
	}
}

func TestMeanEmbedding(t *testing.T) {
	vecs := [][]float32{
		{1, 0, 2},
		{3, 0, 4},
	}
	mean := MeanEmbedding(vecs)
	want := []float32{2, 0, 3}
	for i := range want {
		if mean[i] != want[i] {
			t.Errorf("mean[%d] = %v; want %v", i, mean[i], want[i])
		}
	}

	if MeanEmbedding(nil) != nil {
		t.Error("MeanEmbedding(nil) != nil")
	}
}
