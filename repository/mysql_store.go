package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"interest_cluster/logger"
	"interest_cluster/models"
	"interest_cluster/services"
)

var _ services.Store = (*MySQLStore)(nil)

// MySQLStore 基于 MySQL 的聚类、观看记录与候选项存储
type MySQLStore struct {
	db *sql.DB
}

// NewMySQLStore 使用已初始化的连接创建存储，通常传入 db.DB
func NewMySQLStore(conn *sql.DB) *MySQLStore {
	return &MySQLStore{db: conn}
}

// =====================
// 通用工具函数
// =====================

// queryStrings 执行查询并返回字符串结果列表
func (s *MySQLStore) queryStrings(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]string, 0)
	for rows.Next() {
		var val sql.NullString
		if err := rows.Scan(&val); err == nil && val.Valid {
			v := strings.TrimSpace(val.String)
			if v != "" {
				results = append(results, v)
			}
		}
	}
	return results, rows.Err()
}

func (s *MySQLStore) queryCandidates(ctx context.Context, query string, args ...any) ([]models.CandidateImage, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
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

// =====================
// 候选池
// =====================

// GetActiveUserItems 返回用户自己的有效兴趣项，按强度从高到低
func (s *MySQLStore) GetActiveUserItems(ctx context.Context, userID string) ([]models.CandidateImage, error) {
	q := "SELECT " + candidateColumns + " FROM interest_clusters WHERE user_id=? AND is_active=1 ORDER BY strength DESC, created_at ASC, id ASC"
	return s.queryCandidates(ctx, q, userID)
}

// GetAllPublicItems 兜底：所有公开兴趣项
func (s *MySQLStore) GetAllPublicItems(ctx context.Context, limit int, excludeUserID string) ([]models.CandidateImage, error) {
	q, args := publicItemsQuery(placeholderMySQL, limit, excludeUserID)
	return s.queryCandidates(ctx, q, args...)
}

// SearchItemsByKeyword 按关键词检索公开兴趣项（main_keyword/keyword_list 不区分大小写 LIKE）
func (s *MySQLStore) SearchItemsByKeyword(ctx context.Context, keyword string, limit int, excludeUserID string) ([]models.CandidateImage, error) {
	q, args := keywordItemsQuery(placeholderMySQL, "LIKE", keyword, limit, excludeUserID)
	return s.queryCandidates(ctx, q, args...)
}

// =====================
// 聚类
// =====================

// PersistClusterRecords 在同一事务内删除用户旧聚类并写入新聚类
func (s *MySQLStore) PersistClusterRecords(ctx context.Context, userID string, records []models.ClusterRecord) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM interest_clusters WHERE user_id=?`, userID); err != nil {
		return fmt.Errorf("delete old clusters: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
        INSERT INTO interest_clusters
            (id, user_id, main_keyword, category, description, keyword_list, mood_keyword, strength, related_videos, metadata, is_active, is_public, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, 1, ?)
    `)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range records {
		videos, meta, encErr := encodeCluster(r)
		if encErr != nil {
			err = encErr
			return err
		}
		if _, err = stmt.ExecContext(ctx, r.ID, userID, r.MainKeyword, r.Category, r.Description,
			r.KeywordList, r.MoodKeyword, r.Strength, videos, meta, r.CreatedAt); err != nil {
			return fmt.Errorf("insert cluster %q: %w", r.MainKeyword, err)
		}
	}

	err = tx.Commit()
	return err
}

// GetActiveClusters 返回用户当前有效的聚类
func (s *MySQLStore) GetActiveClusters(ctx context.Context, userID string) ([]models.ClusterRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+clusterColumns+" FROM interest_clusters WHERE user_id=? AND is_active=1 ORDER BY strength DESC, created_at ASC, id ASC", userID)
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

// =====================
// 观看记录
// =====================

// SaveWatchHistory 写入观看记录，重复记录忽略，返回实际写入条数
func (s *MySQLStore) SaveWatchHistory(ctx context.Context, userID string, items []models.WatchHistoryItem) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	stmt, err := tx.PrepareContext(ctx, `
        INSERT IGNORE INTO watch_history (user_id, video_id, title, keywords, tags, watched_at, clustered, created_at)
        VALUES (?, ?, ?, ?, ?, ?, 0, NOW())
    `)
	if err != nil {
		_ = tx.Rollback()
		return 0, err
	}
	defer stmt.Close()

	saved := 0
	for _, item := range items {
		res, err := stmt.ExecContext(ctx, userID, item.VideoID, item.Title, encodeKeywords(item), encodeTags(item.Tags), item.Timestamp)
		if err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("insert watch history: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil {
			saved += int(n)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return saved, nil
}

// GetWatchHistory 按导入顺序返回用户的观看记录
func (s *MySQLStore) GetWatchHistory(ctx context.Context, userID string) ([]models.WatchHistoryItem, int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+historyColumns+` FROM watch_history WHERE user_id=? ORDER BY id ASC`, userID)
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

// MarkHistoryClustered 标记 id 不超过 upToID 的观看记录已参与聚类，之后导入的记录保持待聚类
func (s *MySQLStore) MarkHistoryClustered(ctx context.Context, userID string, upToID int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE watch_history SET clustered=1 WHERE user_id=? AND clustered=0 AND id<=?`, userID, upToID)
	return err
}

// ListUsersWithPendingHistory 返回有未聚类观看记录的用户
func (s *MySQLStore) ListUsersWithPendingHistory(ctx context.Context, limit int) ([]string, error) {
	return s.queryStrings(ctx,
		`SELECT DISTINCT user_id FROM watch_history WHERE clustered=0 ORDER BY user_id LIMIT ?`, limit)
}
