package services

import (
	"context"

	"interest_cluster/models"
)

// LLMClient 文本补全接口
type LLMClient interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// CandidateStore 候选兴趣项读取接口
type CandidateStore interface {
	// 用户自己当前有效的兴趣项
	GetActiveUserItems(ctx context.Context, userID string) ([]models.CandidateImage, error)
	// 全部公开兴趣项，excludeUserID 非空时排除该用户
	GetAllPublicItems(ctx context.Context, limit int, excludeUserID string) ([]models.CandidateImage, error)
	// 主关键词或任一关键词包含 keyword（不区分大小写）的公开兴趣项
	SearchItemsByKeyword(ctx context.Context, keyword string, limit int, excludeUserID string) ([]models.CandidateImage, error)
}

// ClusterStore 聚类写入与读取接口
type ClusterStore interface {
	// 在一个事务内替换用户的全部有效聚类
	PersistClusterRecords(ctx context.Context, userID string, records []models.ClusterRecord) error
	GetActiveClusters(ctx context.Context, userID string) ([]models.ClusterRecord, error)
}

// HistoryStore 观看记录存取接口
type HistoryStore interface {
	SaveWatchHistory(ctx context.Context, userID string, items []models.WatchHistoryItem) (int, error)
	// 按导入顺序返回观看记录，以及读到的最大行 id
	GetWatchHistory(ctx context.Context, userID string) ([]models.WatchHistoryItem, int64, error)
	// 只标记 id 不超过 upToID 的记录，读取之后才导入的记录保持待聚类
	MarkHistoryClustered(ctx context.Context, userID string, upToID int64) error
	ListUsersWithPendingHistory(ctx context.Context, limit int) ([]string, error)
}

// Store 完整的存储层
type Store interface {
	CandidateStore
	ClusterStore
	HistoryStore
}

// Scorer 相似度计算，返回值应位于 [0,1]
type Scorer interface {
	Score(reference, candidate models.CandidateImage) (float64, error)
}

// ScorerFunc 让普通函数实现 Scorer
type ScorerFunc func(reference, candidate models.CandidateImage) (float64, error)

// Score 调用函数本身
func (f ScorerFunc) Score(reference, candidate models.CandidateImage) (float64, error) {
	return f(reference, candidate)
}
