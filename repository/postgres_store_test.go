package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"

	"interest_cluster/models"
)

func newPgMockStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	t.Cleanup(mock.Close)
	return NewPostgresStore(mock), mock
}

func TestPostgresSearchItemsByKeyword(t *testing.T) {
	store, mock := newPgMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("LOWER(main_keyword) ILIKE $1 OR LOWER(keyword_list) ILIKE $2) AND user_id <> $3 ORDER BY strength DESC, created_at DESC, id ASC LIMIT $4")).
		WithArgs("%100\\%%", "%100\\%%", "u1", 20).
		WillReturnRows(pgxmock.NewRows(candidateCols).
			AddRow("c1", "u2", "100% pure", "pure, 100%", 3, "音乐", "平静"))

	got, err := store.SearchItemsByKeyword(context.Background(), "100%", 20, "u1")
	if err != nil {
		t.Fatalf("SearchItemsByKeyword: %v", err)
	}
	if len(got) != 1 || got[0].SizeWeight != 3 || got[0].MoodKeyword != "平静" {
		t.Fatalf("unexpected result: %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestPostgresGetAllPublicItems(t *testing.T) {
	store, mock := newPgMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM interest_clusters WHERE is_active=TRUE AND is_public=TRUE ORDER BY strength DESC")).
		WithArgs(5).
		WillReturnRows(pgxmock.NewRows(candidateCols).
			AddRow("c1", "u2", "Jazz", "jazz", 1, nil, nil))

	got, err := store.GetAllPublicItems(context.Background(), 5, "")
	if err != nil {
		t.Fatalf("GetAllPublicItems: %v", err)
	}
	if len(got) != 1 || got[0].Category != "" {
		t.Fatalf("unexpected result: %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestPostgresPersistClusterRecords(t *testing.T) {
	store, mock := newPgMockStore(t)
	now := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	records := []models.ClusterRecord{
		{ID: "a", MainKeyword: "Travel", KeywordList: "travel, food", Strength: 1,
			RelatedVideos: []models.RelatedVideo{{URL: "https://youtu.be/1"}}, CreatedAt: now},
		{ID: "b", MainKeyword: "Cats", KeywordList: "cats", CreatedAt: now},
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM interest_clusters WHERE user_id=$1")).
		WithArgs("u1").
		WillReturnResult(pgxmock.NewResult("DELETE", 4))
	mock.ExpectExec("INSERT INTO interest_clusters").
		WithArgs("a", "u1", "Travel", "", "", "travel, food", "", 1,
			`[{"url":"https://youtu.be/1"}]`, pgxmock.AnyArg(), now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO interest_clusters").
		WithArgs("b", "u1", "Cats", "", "", "cats", "", 0, "[]", pgxmock.AnyArg(), now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	if err := store.PersistClusterRecords(context.Background(), "u1", records); err != nil {
		t.Fatalf("PersistClusterRecords: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestPostgresPersistClusterRecordsRollsBackOnInsertFailure(t *testing.T) {
	store, mock := newPgMockStore(t)
	records := []models.ClusterRecord{{ID: "a", MainKeyword: "Travel"}}

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM interest_clusters").
		WithArgs("u1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec("INSERT INTO interest_clusters").
		WillReturnError(errors.New("duplicate key"))
	mock.ExpectRollback()

	if err := store.PersistClusterRecords(context.Background(), "u1", records); err == nil {
		t.Fatal("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestPostgresGetActiveClusters(t *testing.T) {
	store, mock := newPgMockStore(t)
	created := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	cols := []string{"id", "user_id", "main_keyword", "category", "description", "keyword_list", "mood_keyword",
		"strength", "related_videos", "metadata", "created_at"}
	mock.ExpectQuery(regexp.QuoteMeta("related_videos::text, metadata::text, created_at FROM interest_clusters WHERE user_id=$1 AND is_active")).
		WithArgs("u1").
		WillReturnRows(pgxmock.NewRows(cols).
			AddRow("a", "u1", "Travel", "生活", "旅行视频", "travel", "放松", 1,
				`[{"url":"https://youtu.be/1"}]`, `{"keywordCount":1,"videoCount":1,"moodKeywords":["放松"]}`, created))

	got, err := store.GetActiveClusters(context.Background(), "u1")
	if err != nil {
		t.Fatalf("GetActiveClusters: %v", err)
	}
	if len(got) != 1 || len(got[0].RelatedVideos) != 1 || got[0].Metadata.VideoCount != 1 {
		t.Fatalf("jsonb columns not decoded: %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestPostgresSaveWatchHistory(t *testing.T) {
	store, mock := newPgMockStore(t)
	items := []models.WatchHistoryItem{
		models.NewWatchHistoryItem("Tokyo vlog", "v1", "travel"),
		{Title: "again", VideoID: "v1"},
	}

	mock.ExpectBegin()
	mock.ExpectExec("(?s)INSERT INTO watch_history.*ON CONFLICT DO NOTHING").
		WithArgs("u1", "v1", "Tokyo vlog", pgxmock.AnyArg(), pgxmock.AnyArg(), "").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("(?s)INSERT INTO watch_history.*ON CONFLICT DO NOTHING").
		WithArgs("u1", "v1", "again", pgxmock.AnyArg(), pgxmock.AnyArg(), "").
		WillReturnResult(pgxmock.NewResult("INSERT", 0))
	mock.ExpectCommit()

	saved, err := store.SaveWatchHistory(context.Background(), "u1", items)
	if err != nil {
		t.Fatalf("SaveWatchHistory: %v", err)
	}
	if saved != 1 {
		t.Errorf("saved = %d, want 1", saved)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestPostgresSaveWatchHistoryRollsBack(t *testing.T) {
	store, mock := newPgMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO watch_history").
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	saved, err := store.SaveWatchHistory(context.Background(), "u1", []models.WatchHistoryItem{{Title: "a", VideoID: "v1"}})
	if err == nil || saved != 0 {
		t.Fatalf("SaveWatchHistory = %d, %v; want 0 and an error", saved, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestPostgresWatchHistoryRoundTrip(t *testing.T) {
	store, mock := newPgMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, title, video_id, keywords::text, tags::text, watched_at FROM watch_history WHERE user_id=$1 ORDER BY id ASC")).
		WithArgs("u1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "title", "video_id", "keywords", "tags", "watched_at"}).
			AddRow(int64(4), "Tokyo vlog", "v1", `["travel"]`, nil, "2025-03-01").
			AddRow(int64(8), "no keywords", "v2", nil, nil, ""))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE watch_history SET clustered=TRUE WHERE user_id=$1 AND NOT clustered AND id<=$2")).
		WithArgs("u1", int64(8)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 2))

	items, lastID, err := store.GetWatchHistory(context.Background(), "u1")
	if err != nil {
		t.Fatalf("GetWatchHistory: %v", err)
	}
	if len(items) != 2 || lastID != 8 {
		t.Fatalf("got %d items up to id %d, want 2 up to 8", len(items), lastID)
	}
	if len(items[0].Keywords) != 1 || items[1].Keywords != nil {
		t.Errorf("keywords decoded wrongly: %+v", items)
	}
	if err := store.MarkHistoryClustered(context.Background(), "u1", lastID); err != nil {
		t.Fatalf("MarkHistoryClustered: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestPostgresListUsersWithPendingHistory(t *testing.T) {
	store, mock := newPgMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT DISTINCT user_id FROM watch_history WHERE NOT clustered ORDER BY user_id LIMIT $1")).
		WithArgs(50).
		WillReturnRows(pgxmock.NewRows([]string{"user_id"}).AddRow("u1").AddRow(" ").AddRow("u2"))

	got, err := store.ListUsersWithPendingHistory(context.Background(), 50)
	if err != nil {
		t.Fatalf("ListUsersWithPendingHistory: %v", err)
	}
	if len(got) != 2 || got[0] != "u1" || got[1] != "u2" {
		t.Errorf("got %v, want [u1 u2]", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}
