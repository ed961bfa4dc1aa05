package services

import (
	"encoding/json"
	"fmt"
	"reflect"
	"testing"

	"interest_cluster/models"
)

func TestAggregateKeywordsSingleKeyword(t *testing.T) {
	items := make([]models.WatchHistoryItem, 25)
	for i := range items {
		items[i] = models.NewWatchHistoryItem(fmt.Sprintf("cat video %d", i), fmt.Sprintf("c%d", i), "cats")
	}
	chunks, err := ChunkHistory(items, DefaultChunkSize)
	if err != nil {
		t.Fatal(err)
	}

	idx := AggregateKeywords(chunks, DefaultSampleCap)
	top := idx.Top(DefaultTopKeywords)

	if len(top) != 1 {
		t.Fatalf("Top() len = %d, want 1", len(top))
	}
	if top[0].Keyword != "cats" || top[0].Count != 25 {
		t.Errorf("Top()[0] = %s:%d, want cats:25", top[0].Keyword, top[0].Count)
	}
	if len(top[0].Samples) != DefaultSampleCap {
		t.Errorf("samples = %d, want %d", len(top[0].Samples), DefaultSampleCap)
	}
}

func TestAggregateKeywordsCountsLiteralItems(t *testing.T) {
	items := make([]models.WatchHistoryItem, 25)
	for i := range items {
		items[i] = models.WatchHistoryItem{Title: fmt.Sprintf("cat %d", i), Keywords: []string{"cats"}}
	}
	chunks, err := ChunkHistory(items, 20)
	if err != nil {
		t.Fatal(err)
	}

	idx := AggregateKeywords(chunks, DefaultSampleCap)
	if idx.Count("cats") != 25 {
		t.Errorf("Count(cats) = %d, want 25", idx.Count("cats"))
	}
	if idx.SkippedCount() != 0 {
		t.Errorf("SkippedCount() = %d, want 0", idx.SkippedCount())
	}
}

func TestAggregateKeywordsTiesKeepFirstSeenOrder(t *testing.T) {
	items := []models.WatchHistoryItem{
		models.NewWatchHistoryItem("a", "1", "jazz", "piano"),
		models.NewWatchHistoryItem("b", "2", "guitar"),
		models.NewWatchHistoryItem("c", "3", "piano", "guitar"),
		models.NewWatchHistoryItem("d", "4", "jazz"),
		models.NewWatchHistoryItem("e", "5", "drums"),
	}
	idx := AggregateKeywords([][]models.WatchHistoryItem{items}, 2)

	var got []string
	for _, kc := range idx.Top(10) {
		got = append(got, fmt.Sprintf("%s:%d", kc.Keyword, kc.Count))
	}
	want := []string{"jazz:2", "piano:2", "guitar:2", "drums:1"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Top() = %v, want %v", got, want)
	}

	if got := idx.Top(2); len(got) != 2 || got[1].Keyword != "piano" {
		t.Errorf("Top(2) = %v, want jazz, piano", got)
	}
}

func TestAggregateKeywordsCapIsIndependentOfCount(t *testing.T) {
	var items []models.WatchHistoryItem
	for i := 0; i < 12; i++ {
		items = append(items, models.NewWatchHistoryItem(fmt.Sprintf("t%d", i), "", "travel"))
	}
	idx := AggregateKeywords([][]models.WatchHistoryItem{items}, 3)
	if idx.Count("travel") != 12 {
		t.Errorf("Count() = %d, want 12", idx.Count("travel"))
	}
	if want := []string{"t0", "t1", "t2"}; !reflect.DeepEqual(idx.Titles("travel"), want) {
		t.Errorf("Titles() = %v, want %v", idx.Titles("travel"), want)
	}
}

func TestAggregateKeywordsSkipsInvalidKeywords(t *testing.T) {
	raw := `[
		{"title": "ok", "videoId": "1", "keywords": ["food", "  ", " food "]},
		{"title": "missing", "videoId": "2"},
		{"title": "null", "videoId": "3", "keywords": null},
		{"title": "string", "videoId": "4", "keywords": "food"},
		{"title": "object", "videoId": "5", "keywords": {"a": 1}},
		{"title": "empty", "videoId": "6", "keywords": []}
	]`
	var items []models.WatchHistoryItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if len(items) != 6 {
		t.Fatalf("decoded %d items, want 6", len(items))
	}

	idx := AggregateKeywords([][]models.WatchHistoryItem{items}, DefaultSampleCap)
	if idx.Count("food") != 2 {
		t.Errorf("Count(food) = %d, want 2", idx.Count("food"))
	}
	if idx.Len() != 1 {
		t.Errorf("Len() = %d, want 1", idx.Len())
	}
	if idx.ItemCount() != 1 || idx.SkippedCount() != 5 {
		t.Errorf("items/skipped = %d/%d, want 1/5", idx.ItemCount(), idx.SkippedCount())
	}
}

func TestAggregateKeywordsEmpty(t *testing.T) {
	idx := AggregateKeywords(nil, 0)
	if idx.Len() != 0 || len(idx.Top(10)) != 0 {
		t.Errorf("empty aggregation should have no keywords")
	}
}
