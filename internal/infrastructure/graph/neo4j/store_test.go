package neo4j

import "testing"

func TestPairConfidenceRange(t *testing.T) {
	cases := []struct {
		weight float64
		want   float64
	}{
		{0, 0.8},
		{0.5, 0.9},
		{1, 1.0},
		{-3, 0.8},
		{7, 1.0},
	}
	for _, tc := range cases {
		if got := pairConfidence(tc.weight); got != tc.want {
			t.Fatalf("pairConfidence(%f) = %f, want %f", tc.weight, got, tc.want)
		}
	}
}

func TestPairConfidenceBeatsSingleNode(t *testing.T) {
	if pairConfidence(0) <= singleNodeConfidence {
		t.Fatalf("a connected pair must outrank a lone node hit")
	}
}
