package services

import (
	"math"
	"math/rand"
	"reflect"
	"sort"
	"testing"

	"interest_cluster/models"
)

// fixedScorer 按候选 id 返回预设分数
type fixedScorer map[string]float64

func (f fixedScorer) Score(_, c models.CandidateImage) (float64, error) {
	return f[c.ID], nil
}

func pool(n int) []models.CandidateImage {
	out := make([]models.CandidateImage, n)
	for i := range out {
		out[i] = candidate(string(rune('a'+i)), "other", "kw")
	}
	return out
}

func TestRankCandidatesAllBelowThresholdFallsBackToTopThree(t *testing.T) {
	ref := candidate("ref", "me", "kw")
	scores := fixedScorer{"a": 0.10, "b": 0.25, "c": 0.05, "d": 0.29, "e": 0.20}

	got := RankCandidates(&ref, pool(5), scores, DefaultRankOptions())

	if got.Outcome != RankFallbackTopN {
		t.Errorf("Outcome = %v, want %v", got.Outcome, RankFallbackTopN)
	}
	if want := []string{"d", "b", "e"}; !reflect.DeepEqual(ids(got.Items), want) {
		t.Errorf("RankCandidates() = %v, want %v", ids(got.Items), want)
	}
	for i := 1; i < len(got.Items); i++ {
		if got.Items[i-1].Score() < got.Items[i].Score() {
			t.Errorf("results not sorted descending")
		}
	}
}

func TestRankCandidatesThreshold(t *testing.T) {
	ref := candidate("ref", "me", "kw")
	tests := []struct {
		name    string
		scores  fixedScorer
		n       int
		want    []string
		outcome RankOutcome
	}{
		{"keeps above threshold", fixedScorer{"a": 0.9, "b": 0.1, "c": 0.3, "d": 0.5}, 4, []string{"a", "d", "c"}, RankAboveThreshold},
		{"single match", fixedScorer{"a": 0.1, "b": 0.31}, 2, []string{"b"}, RankAboveThreshold},
		{"pool smaller than fallback", fixedScorer{"a": 0.1, "b": 0.2}, 2, []string{"b", "a"}, RankFallbackTopN},
		{"clamped scores", fixedScorer{"a": 1.7, "b": -0.4}, 2, []string{"a"}, RankAboveThreshold},
		{"empty pool", fixedScorer{}, 0, []string{}, RankEmptyPool},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RankCandidates(&ref, pool(tt.n), tt.scores, DefaultRankOptions())
			if !reflect.DeepEqual(ids(got.Items), tt.want) {
				t.Errorf("RankCandidates() = %v, want %v", ids(got.Items), tt.want)
			}
			if got.Outcome != tt.outcome {
				t.Errorf("Outcome = %v, want %v", got.Outcome, tt.outcome)
			}
			for _, it := range got.Items {
				if s := it.Score(); s < 0 || s > 1 {
					t.Errorf("similarity %v out of [0,1]", s)
				}
			}
		})
	}
}

func TestRankCandidatesWithoutReference(t *testing.T) {
	scorer := ScorerFunc(func(_, _ models.CandidateImage) (float64, error) {
		t.Fatal("scorer must not be called without a reference")
		return 0, nil
	})

	got := RankCandidates(nil, pool(5), scorer, DefaultRankOptions())
	if got.Outcome != RankUnscored {
		t.Errorf("Outcome = %v, want %v", got.Outcome, RankUnscored)
	}
	if want := []string{"a", "b", "c"}; !reflect.DeepEqual(ids(got.Items), want) {
		t.Errorf("RankCandidates(nil) = %v, want %v", ids(got.Items), want)
	}
	for _, it := range got.Items {
		if it.Scored() {
			t.Errorf("item %s should be unscored", it.ID)
		}
	}

	opts := DefaultRankOptions()
	opts.RawPoolWithoutReference = true
	raw := RankCandidates(nil, pool(5), scorer, opts)
	if raw.Outcome != RankRawPool || len(raw.Items) != 5 {
		t.Errorf("raw pool = %v (%v), want 5 items", ids(raw.Items), raw.Outcome)
	}
}

func TestRankCandidatesScoringFailure(t *testing.T) {
	ref := candidate("ref", "me", "kw")
	scorer := ScorerFunc(func(_, c models.CandidateImage) (float64, error) {
		if c.ID == "c" {
			return 0, errBoom
		}
		return 0.9, nil
	})

	got := RankCandidates(&ref, pool(4), scorer, DefaultRankOptions())
	if got.Outcome != RankScoringFailed {
		t.Errorf("Outcome = %v, want %v", got.Outcome, RankScoringFailed)
	}
	if want := []string{"a", "b", "c"}; !reflect.DeepEqual(ids(got.Items), want) {
		t.Errorf("items = %v, want %v", ids(got.Items), want)
	}
	for _, it := range got.Items {
		if it.Scored() {
			t.Errorf("item %s should be unscored after scoring failure", it.ID)
		}
	}
}

func TestScoreBatchStableOrder(t *testing.T) {
	ref := candidate("ref", "me", "kw")
	scores := fixedScorer{"a": 0.5, "b": 0.8, "c": 0.5, "d": 0.8}
	got, err := ScoreBatch(ref, pool(4), scores)
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"b", "d", "a", "c"}; !reflect.DeepEqual(ids(got), want) {
		t.Errorf("ScoreBatch() = %v, want %v", ids(got), want)
	}
}

func TestRankCandidatesThresholdProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	ref := candidate("ref", "me", "kw")

	for iter := 0; iter < 200; iter++ {
		n := rng.Intn(12)
		scores := fixedScorer{}
		p := pool(n)
		anyAbove := false
		for _, c := range p {
			s := rng.Float64()
			scores[c.ID] = s
			if s >= DefaultSimilarityThreshold {
				anyAbove = true
			}
		}

		got := RankCandidates(&ref, p, scores, DefaultRankOptions())
		if anyAbove {
			for _, it := range got.Items {
				if it.Score() < DefaultSimilarityThreshold {
					t.Fatalf("iter %d: item %s score %v below threshold", iter, it.ID, it.Score())
				}
			}
		} else if len(got.Items) != min(3, n) {
			t.Fatalf("iter %d: got %d items, want %d", iter, len(got.Items), min(3, n))
		}
		if !sort.SliceIsSorted(got.Items, func(i, j int) bool { return got.Items[i].Score() > got.Items[j].Score() }) {
			t.Fatalf("iter %d: items not sorted descending", iter)
		}
	}
}

func TestKeywordOverlapScorer(t *testing.T) {
	s := KeywordOverlapScorer{MainKeywordBonus: 0.2}
	tests := []struct {
		name string
		a, b models.CandidateImage
		want float64
	}{
		{"identical", candidate("1", "u", "Cats", "pets"), candidate("2", "v", "cats", "Pets"), 1},
		{"disjoint", candidate("1", "u", "Cats"), candidate("2", "v", "Cars"), 0},
		{"partial", candidate("1", "u", "music", "jazz"), candidate("2", "v", "jazz", "blues"), 1.0 / 3.0},
		{"empty", candidate("1", "u", ""), candidate("2", "v", "jazz"), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Score(tt.a, tt.b)
			if err != nil {
				t.Fatal(err)
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Score() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClamp01(t *testing.T) {
	tests := []struct{ in, want float64 }{
		{-1, 0}, {0.5, 0.5}, {2, 1}, {math.NaN(), 0}, {math.Inf(1), 1},
	}
	for _, tt := range tests {
		if got := clamp01(tt.in); got != tt.want {
			t.Errorf("clamp01(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
