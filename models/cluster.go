package models

import "time"

// RelatedVideo 聚类关联的视频
type RelatedVideo struct {
	URL string `json:"url"`
}

// ClusterMetadata 由解析结果直接推导出的统计信息
type ClusterMetadata struct {
	KeywordCount int      `json:"keywordCount"`
	VideoCount   int      `json:"videoCount"`
	MoodKeywords []string `json:"moodKeywords"`
}

// ClusterRecord 一个由模型回复中的单个块解析出的兴趣聚类
type ClusterRecord struct {
	ID            string          `db:"id" json:"id,omitempty"`
	UserID        string          `db:"user_id" json:"user_id,omitempty"`
	MainKeyword   string          `db:"main_keyword" json:"main_keyword"`
	Category      string          `db:"category" json:"category"`
	Description   string          `db:"description" json:"description"`
	KeywordList   string          `db:"keyword_list" json:"keyword_list"` // 逗号拼接
	MoodKeyword   string          `db:"mood_keyword" json:"mood_keyword"`
	Strength      int             `db:"strength" json:"strength"` // 等于关联视频数量
	RelatedVideos []RelatedVideo  `json:"related_videos"`
	Metadata      ClusterMetadata `json:"metadata"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at,omitempty"`
}

// Keywords 返回 KeywordList 拆分后的关键词
func (c *ClusterRecord) Keywords() []string {
	return splitComma(c.KeywordList)
}

// ToCandidate 将聚类转为可供其他用户检索的兴趣项
func (c *ClusterRecord) ToCandidate() CandidateImage {
	return CandidateImage{
		ID:          c.ID,
		UserID:      c.UserID,
		MainKeyword: c.MainKeyword,
		Keywords:    c.Keywords(),
		SizeWeight:  float64(c.Strength),
		Category:    c.Category,
		MoodKeyword: c.MoodKeyword,
	}
}
