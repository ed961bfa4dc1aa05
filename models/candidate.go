package models

import "strings"

// CandidateImage 其他用户公开的一个兴趣项
type CandidateImage struct {
	ID          string   `db:"id" json:"id"`
	UserID      string   `db:"user_id" json:"user_id"`
	MainKeyword string   `db:"main_keyword" json:"main_keyword"`
	Keywords    []string `json:"keywords"`
	SizeWeight  float64  `db:"size_weight" json:"sizeWeight"`
	Category    string   `db:"category" json:"category,omitempty"`
	MoodKeyword string   `db:"mood_keyword" json:"mood_keyword,omitempty"`

	// Similarity 为 nil 表示尚未打分
	Similarity *float64 `json:"similarity,omitempty"`
}

// Scored 判断是否已打分
func (c *CandidateImage) Scored() bool {
	return c.Similarity != nil
}

// Score 返回相似度，未打分时为 0
func (c *CandidateImage) Score() float64 {
	if c.Similarity == nil {
		return 0
	}
	return *c.Similarity
}

// WithSimilarity 返回附带相似度的副本
func (c CandidateImage) WithSimilarity(score float64) CandidateImage {
	c.Similarity = &score
	return c
}

// SearchResult 相似兴趣检索结果
type SearchResult struct {
	UserID     string           `json:"user_id"`
	Keyword    string           `json:"keyword"`
	Reference  *CandidateImage  `json:"reference,omitempty"`
	PoolSource string           `json:"pool_source"`
	Outcome    string           `json:"outcome"`
	Items      []CandidateImage `json:"items"`
}

func splitComma(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
