package repository

import (
	"database/sql"
	"encoding/json"
	"strings"

	"interest_cluster/logger"
	"interest_cluster/models"
	"interest_cluster/utils"
)

// 查询候选项时使用的列，两种数据库保持一致
const candidateColumns = "id, user_id, main_keyword, keyword_list, strength, category, mood_keyword"

const clusterColumns = "id, user_id, main_keyword, category, description, keyword_list, mood_keyword, strength, related_videos, metadata, created_at"

const historyColumns = "id, title, video_id, keywords, tags, watched_at"

// rowScanner 兼容 *sql.Rows 与 pgx.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func scanCandidate(row rowScanner) (models.CandidateImage, error) {
	var (
		c           models.CandidateImage
		keywordList sql.NullString
		strength    int
		category    sql.NullString
		mood        sql.NullString
	)
	if err := row.Scan(&c.ID, &c.UserID, &c.MainKeyword, &keywordList, &strength, &category, &mood); err != nil {
		return c, err
	}
	c.Keywords = utils.SplitCommaList(keywordList.String)
	c.SizeWeight = float64(strength)
	c.Category = category.String
	c.MoodKeyword = mood.String
	return c, nil
}

func scanCluster(row rowScanner) (models.ClusterRecord, error) {
	var (
		r           models.ClusterRecord
		category    sql.NullString
		description sql.NullString
		keywordList sql.NullString
		mood        sql.NullString
		videosJSON  sql.NullString
		metaJSON    sql.NullString
	)
	if err := row.Scan(&r.ID, &r.UserID, &r.MainKeyword, &category, &description, &keywordList, &mood,
		&r.Strength, &videosJSON, &metaJSON, &r.CreatedAt); err != nil {
		return r, err
	}
	r.Category = category.String
	r.Description = description.String
	r.KeywordList = keywordList.String
	r.MoodKeyword = mood.String
	r.RelatedVideos = []models.RelatedVideo{}
	if videosJSON.Valid && videosJSON.String != "" {
		var videos []models.RelatedVideo
		if err := json.Unmarshal([]byte(videosJSON.String), &videos); err != nil {
			logger.Warn("聚类 related_videos 列无法解析，按空列表处理", "cluster_id", r.ID, "error", err)
		} else if videos != nil {
			r.RelatedVideos = videos
		}
	}
	if metaJSON.Valid && metaJSON.String != "" {
		var meta models.ClusterMetadata
		if err := json.Unmarshal([]byte(metaJSON.String), &meta); err != nil {
			logger.Warn("聚类 metadata 列无法解析，按空值处理", "cluster_id", r.ID, "error", err)
		} else {
			r.Metadata = meta
		}
	}
	return r, nil
}

// encodeCluster 序列化 JSON 列
func encodeCluster(r models.ClusterRecord) (videos string, meta string, err error) {
	related := r.RelatedVideos
	if related == nil {
		related = []models.RelatedVideo{}
	}
	vb, err := json.Marshal(related)
	if err != nil {
		return "", "", err
	}
	mb, err := json.Marshal(r.Metadata)
	if err != nil {
		return "", "", err
	}
	return string(vb), string(mb), nil
}

// encodeKeywords keywords 为空时写入 NULL
func encodeKeywords(item models.WatchHistoryItem) sql.NullString {
	if len(item.Keywords) == 0 {
		return sql.NullString{}
	}
	b, err := json.Marshal(item.Keywords)
	if err != nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(b), Valid: true}
}

func encodeTags(tags []string) sql.NullString {
	if len(tags) == 0 {
		return sql.NullString{}
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(b), Valid: true}
}

// scanHistoryItem 读取 historyColumns 顺序的一行，同时返回行 id
func scanHistoryItem(row rowScanner) (models.WatchHistoryItem, int64, error) {
	var (
		item      models.WatchHistoryItem
		id        int64
		keywords  sql.NullString
		tags      sql.NullString
		watchedAt sql.NullString
	)
	if err := row.Scan(&id, &item.Title, &item.VideoID, &keywords, &tags, &watchedAt); err != nil {
		return item, 0, err
	}
	if keywords.Valid {
		var kws []string
		if err := json.Unmarshal([]byte(keywords.String), &kws); err != nil {
			// 非数组的 keywords 是合法输入，聚合时按无关键词跳过
			logger.Debug("观看记录 keywords 不是字符串数组", "video_id", item.VideoID, "error", err)
		} else {
			item.Keywords = kws
		}
	}
	if tags.Valid {
		var tagList []string
		if err := json.Unmarshal([]byte(tags.String), &tagList); err != nil {
			logger.Warn("观看记录 tags 列无法解析，已忽略", "video_id", item.VideoID, "error", err)
		} else {
			item.Tags = tagList
		}
	}
	item.Timestamp = watchedAt.String
	return item, id, nil
}

// likePattern 构造不区分大小写的子串匹配参数，转义 LIKE 通配符
func likePattern(keyword string) string {
	kw := utils.NormalizeKeyword(keyword)
	kw = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(kw)
	return "%" + kw + "%"
}
