package services

import (
	"context"
	"fmt"
	"reflect"
	"testing"

	"interest_cluster/models"
)

func newTestSearch(store CandidateStore) *SearchService {
	return NewSearchService(store, nil, SearchOptions{
		CandidateLimit:   50,
		FetchConcurrency: 3,
		Rank:             DefaultRankOptions(),
	})
}

// leakyStore 不做排除过滤，模拟上游过滤失效
type leakyStore struct {
	*memoryStore
}

func (l leakyStore) GetAllPublicItems(ctx context.Context, limit int, _ string) ([]models.CandidateImage, error) {
	return l.memoryStore.GetAllPublicItems(ctx, limit, "")
}

func (l leakyStore) SearchItemsByKeyword(ctx context.Context, keyword string, limit int, _ string) ([]models.CandidateImage, error) {
	return l.memoryStore.SearchItemsByKeyword(ctx, keyword, limit, "")
}

func TestBuildCandidatePoolExcludesRequester(t *testing.T) {
	var items []models.CandidateImage
	for i := 0; i < 10; i++ {
		owner := "other"
		if i == 3 || i == 7 {
			owner = "me"
		}
		items = append(items, candidate(fmt.Sprintf("c%d", i), owner, "music"))
	}
	svc := newTestSearch(leakyStore{newMemoryStore(items...)})

	for _, kws := range [][]string{nil, {"music"}} {
		got, _ := svc.BuildCandidatePool(context.Background(), kws, "me")
		if len(got) != 8 {
			t.Errorf("keywords=%v: pool size = %d, want 8", kws, len(got))
		}
		for _, it := range got {
			if it.UserID == "me" {
				t.Errorf("keywords=%v: pool contains requester item %s", kws, it.ID)
			}
		}
	}
}

func TestBuildCandidatePoolMergeOrderAndDedup(t *testing.T) {
	store := newMemoryStore(
		candidate("1", "u1", "jazz", "music"),
		candidate("2", "u2", "rock", "music"),
		candidate("3", "u3", "jazz piano"),
		candidate("4", "u4", "cooking"),
	)
	svc := newTestSearch(store)

	got, source := svc.BuildCandidatePool(context.Background(), []string{"jazz", "music", "#rock"}, "me")
	if source != PoolKeywordMatch {
		t.Errorf("source = %v, want %v", source, PoolKeywordMatch)
	}
	// jazz → 1,3; music → 1,2; rock → 2
	if want := []string{"1", "3", "2"}; !reflect.DeepEqual(ids(got), want) {
		t.Errorf("pool = %v, want %v", ids(got), want)
	}
}

func TestBuildCandidatePoolDedupKeepsFirstOccurrence(t *testing.T) {
	first := candidate("dup", "u1", "jazz")
	first.SizeWeight = 5
	second := candidate("dup", "u1", "jazz")
	second.SizeWeight = 9
	store := newMemoryStore(first, second, candidate("x", "u2", "jazz"))
	svc := newTestSearch(store)

	got, _ := svc.BuildCandidatePool(context.Background(), []string{"jazz"}, "me")
	if want := []string{"dup", "x"}; !reflect.DeepEqual(ids(got), want) {
		t.Fatalf("pool = %v, want %v", ids(got), want)
	}
	if got[0].SizeWeight != 5 {
		t.Errorf("dedup kept SizeWeight %v, want first occurrence 5", got[0].SizeWeight)
	}
}

func TestBuildCandidatePoolFallbacks(t *testing.T) {
	store := newMemoryStore(
		candidate("1", "u1", "cooking"),
		candidate("2", "u2", "travel"),
	)
	svc := newTestSearch(store)

	got, source := svc.BuildCandidatePool(context.Background(), []string{"astronomy"}, "me")
	if source != PoolPublicFallback || len(got) != 2 {
		t.Errorf("no match: source = %v, size = %d; want public_fallback, 2", source, len(got))
	}

	got, source = svc.BuildCandidatePool(context.Background(), []string{"", "  "}, "me")
	if source != PoolPublicNoQuery || len(got) != 2 {
		t.Errorf("blank keywords: source = %v, size = %d; want public_all, 2", source, len(got))
	}
	if len(store.keywordCalls) != 1 {
		t.Errorf("keyword queries = %v, want only astronomy", store.keywordCalls)
	}
}

func TestBuildCandidatePoolFetchErrorsDegrade(t *testing.T) {
	store := newMemoryStore(
		candidate("1", "u1", "jazz"),
		candidate("2", "u2", "rock"),
	)
	store.keywordErr["jazz"] = errBoom
	svc := newTestSearch(store)

	got, source := svc.BuildCandidatePool(context.Background(), []string{"jazz", "rock"}, "me")
	if source != PoolKeywordMatch || !reflect.DeepEqual(ids(got), []string{"2"}) {
		t.Errorf("pool = %v (%v), want [2] keyword_match", ids(got), source)
	}

	store.keywordErr["rock"] = errBoom
	store.publicErr = errBoom
	got, source = svc.BuildCandidatePool(context.Background(), []string{"jazz", "rock"}, "me")
	if len(got) != 0 || source != PoolPublicFallback {
		t.Errorf("all queries failing: pool = %v (%v), want empty public_fallback", ids(got), source)
	}
}

func TestSearch(t *testing.T) {
	store := newMemoryStore(
		candidate("mine", "me", "Jazz", "piano", "blues"),
		candidate("a", "u1", "jazz", "piano", "blues"),
		candidate("b", "u2", "jazz", "saxophone"),
		candidate("c", "u3", "jazz piano", "piano"),
	)
	svc := newTestSearch(store)

	res := svc.Search(context.Background(), "me", []string{"#jazz"})
	if res.Reference == nil || res.Reference.ID != "mine" {
		t.Fatalf("Reference = %v, want mine", res.Reference)
	}
	if res.Keyword != "jazz" || res.PoolSource != string(PoolKeywordMatch) {
		t.Errorf("Keyword/PoolSource = %q/%q", res.Keyword, res.PoolSource)
	}
	if res.Outcome != string(RankAboveThreshold) {
		t.Errorf("Outcome = %v, want %v", res.Outcome, RankAboveThreshold)
	}
	if len(res.Items) == 0 || res.Items[0].ID != "a" {
		t.Errorf("Items = %v, want a first", ids(res.Items))
	}
	for _, it := range res.Items {
		if it.UserID == "me" || !it.Scored() {
			t.Errorf("unexpected item %+v", it)
		}
	}
}

func TestSearchWithoutReference(t *testing.T) {
	store := newMemoryStore(
		candidate("a", "u1", "gaming"),
		candidate("b", "u2", "gaming"),
	)
	store.activeErr = errBoom
	svc := newTestSearch(store)

	res := svc.Search(context.Background(), "me", []string{"gaming"})
	if res.Reference != nil {
		t.Errorf("Reference = %v, want nil", res.Reference)
	}
	if res.Outcome != string(RankUnscored) || len(res.Items) != 2 {
		t.Errorf("Outcome = %v, items = %v", res.Outcome, ids(res.Items))
	}
}
