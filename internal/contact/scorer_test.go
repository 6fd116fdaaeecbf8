package contact

import "testing"

func TestWeightedScorerDeterministic(t *testing.T) {
	scorer := NewWeightedScorer()

	first := scorer.Score(500, 20, 3)
	second := scorer.Score(500, 20, 3)
	if first != second {
		t.Fatalf("score must be deterministic: %f != %f", first, second)
	}
	if first <= 0 {
		t.Fatalf("positive features should yield positive score, got %f", first)
	}
}

func TestWeightedScorerOrdersByFollowers(t *testing.T) {
	scorer := NewWeightedScorer()

	big := scorer.Score(500, 10, 2)
	small := scorer.Score(5, 10, 2)
	if big <= small {
		t.Fatalf("more followers should score higher: %f <= %f", big, small)
	}
}

func TestWeightedScorerTotalOnBadInput(t *testing.T) {
	scorer := NewWeightedScorer()

	cases := [][3]int{
		{-1, 10, 2},
		{10, -1, 2},
		{10, 10, -2},
	}
	for _, c := range cases {
		if got := scorer.Score(c[0], c[1], c[2]); got != 0 {
			t.Fatalf("invalid input %v should map to 0, got %f", c, got)
		}
	}

	var nilScorer *WeightedScorer
	if got := nilScorer.Score(1, 1, 1); got != 0 {
		t.Fatalf("nil scorer should return 0, got %f", got)
	}
}

func TestWeightedScorerCapsInterests(t *testing.T) {
	scorer := NewWeightedScorer()

	atCap := scorer.Score(100, 10, scorer.MaxInterests)
	beyondCap := scorer.Score(100, 10, scorer.MaxInterests*10)
	if atCap != beyondCap {
		t.Fatalf("interest contribution should be capped: %f != %f", atCap, beyondCap)
	}
}
