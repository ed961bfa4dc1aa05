package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"interest_cluster/logger"
	"interest_cluster/models"
	"interest_cluster/services"
)

var _ services.Store = (*PostgresStore)(nil)

const pgClusterColumns = "id, user_id, main_keyword, category, description, keyword_list, mood_keyword, strength, related_videos::text, metadata::text, created_at"

const pgHistoryColumns = "id, title, video_id, keywords::text, tags::text, watched_at"

// PgxConn PostgresStore 用到的连接池方法，*pgxpool.Pool 与 pgxmock 均实现
type PgxConn interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresStore 基于 PostgreSQL 的存储实现，与 MySQLStore 行为一致
type PostgresStore struct {
	pool PgxConn
}

// NewPostgresStore 通常传入 db.PG
func NewPostgresStore(pool PgxConn) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) queryCandidates(ctx context.Context, query string, args ...any) ([]models.CandidateImage, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.CandidateImage, 0)
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			logger.Warn("跳过无法解析的候选项", "error", err)
			continue
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *PostgresStore) GetActiveUserItems(ctx context.Context, userID string) ([]models.CandidateImage, error) {
	q := "SELECT " + candidateColumns + " FROM interest_clusters WHERE user_id=$1 AND is_active ORDER BY strength DESC, created_at ASC, id ASC"
	return s.queryCandidates(ctx, q, userID)
}

func (s *PostgresStore) GetAllPublicItems(ctx context.Context, limit int, excludeUserID string) ([]models.CandidateImage, error) {
	q, args := publicItemsQuery(placeholderPostgres, limit, excludeUserID)
	return s.queryCandidates(ctx, q, args...)
}

// SearchItemsByKeyword 使用 ILIKE 做不区分大小写的子串匹配
func (s *PostgresStore) SearchItemsByKeyword(ctx context.Context, keyword string, limit int, excludeUserID string) ([]models.CandidateImage, error) {
	q, args := keywordItemsQuery(placeholderPostgres, "ILIKE", keyword, limit, excludeUserID)
	return s.queryCandidates(ctx, q, args...)
}

// PersistClusterRecords 在同一事务内删除旧聚类并逐条写入新聚类
func (s *PostgresStore) PersistClusterRecords(ctx context.Context, userID string, records []models.ClusterRecord) (err error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if _, err = tx.Exec(ctx, `DELETE FROM interest_clusters WHERE user_id=$1`, userID); err != nil {
		return fmt.Errorf("delete old clusters: %w", err)
	}
	for _, r := range records {
		videos, meta, encErr := encodeCluster(r)
		if encErr != nil {
			return encErr
		}
		if _, err = tx.Exec(ctx, `
            INSERT INTO interest_clusters
                (id, user_id, main_keyword, category, description, keyword_list, mood_keyword, strength, related_videos, metadata, is_active, is_public, created_at)
            VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::jsonb, $10::jsonb, TRUE, TRUE, $11)`,
			r.ID, userID, r.MainKeyword, r.Category, r.Description, r.KeywordList, r.MoodKeyword, r.Strength, videos, meta, r.CreatedAt); err != nil {
			return fmt.Errorf("insert cluster %q: %w", r.MainKeyword, err)
		}
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) GetActiveClusters(ctx context.Context, userID string) ([]models.ClusterRecord, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT "+pgClusterColumns+" FROM interest_clusters WHERE user_id=$1 AND is_active ORDER BY strength DESC, created_at ASC, id ASC", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.ClusterRecord, 0)
	for rows.Next() {
		r, err := scanCluster(rows)
		if err != nil {
			logger.Warn("跳过无法解析的聚类", "user_id", userID, "error", err)
			continue
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// SaveWatchHistory 重复记录由唯一索引忽略，返回实际写入条数
func (s *PostgresStore) SaveWatchHistory(ctx context.Context, userID string, items []models.WatchHistoryItem) (saved int, err error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
			saved = 0
		}
	}()

	for _, item := range items {
		tag, execErr := tx.Exec(ctx, `
            INSERT INTO watch_history (user_id, video_id, title, keywords, tags, watched_at, clustered, created_at)
            VALUES ($1, $2, $3, $4::jsonb, $5::jsonb, $6, FALSE, NOW())
            ON CONFLICT DO NOTHING`,
			userID, item.VideoID, item.Title, encodeKeywords(item), encodeTags(item.Tags), item.Timestamp)
		if execErr != nil {
			return 0, fmt.Errorf("insert watch history: %w", execErr)
		}
		saved += int(tag.RowsAffected())
	}
	return saved, tx.Commit(ctx)
}

func (s *PostgresStore) GetWatchHistory(ctx context.Context, userID string) ([]models.WatchHistoryItem, int64, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+pgHistoryColumns+` FROM watch_history WHERE user_id=$1 ORDER BY id ASC`, userID)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]models.WatchHistoryItem, 0)
	var lastID int64
	for rows.Next() {
		item, id, err := scanHistoryItem(rows)
		if err != nil {
			logger.Warn("跳过无法解析的观看记录", "user_id", userID, "error", err)
			continue
		}
		out = append(out, item)
		lastID = max(lastID, id)
	}
	return out, lastID, rows.Err()
}

func (s *PostgresStore) MarkHistoryClustered(ctx context.Context, userID string, upToID int64) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE watch_history SET clustered=TRUE WHERE user_id=$1 AND NOT clustered AND id<=$2`, userID, upToID)
	return err
}

func (s *PostgresStore) ListUsersWithPendingHistory(ctx context.Context, limit int) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT DISTINCT user_id FROM watch_history WHERE NOT clustered ORDER BY user_id LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if strings.TrimSpace(id) != "" {
			out = append(out, id)
		}
	}
	return out, nil
}
