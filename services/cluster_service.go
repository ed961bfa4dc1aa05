package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"interest_cluster/config"
	"interest_cluster/logger"
	"interest_cluster/metrics"
	"interest_cluster/models"
	"interest_cluster/utils"
)

// ClusterOptions 聚类分析参数
type ClusterOptions struct {
	ChunkSize int
	SampleCap int
	Prompt    PromptOptions
}

// ClusterOptionsFromConfig 从配置读取聚类参数
func ClusterOptionsFromConfig(cfg *config.Config) ClusterOptions {
	return ClusterOptions{
		ChunkSize: cfg.Cluster.ChunkSize,
		SampleCap: cfg.Cluster.SampleTitles,
		Prompt: PromptOptions{
			TopN:        cfg.Cluster.TopKeywords,
			MinClusters: cfg.Cluster.MinClusters,
			MinVideos:   cfg.Cluster.MinVideos,
			Protocol:    ParseProtocol(cfg.Cluster.Protocol),
		},
	}
}

// ClusterStoreWithHistory 聚类服务需要的存储能力
type ClusterStoreWithHistory interface {
	ClusterStore
	HistoryStore
}

// ClusterService 观看记录 → 兴趣聚类
type ClusterService struct {
	store ClusterStoreWithHistory
	llm   LLMClient
	locks *utils.KeyedMutex
	opts  ClusterOptions
	now   func() time.Time
}

// NewClusterService 创建聚类服务
func NewClusterService(store ClusterStoreWithHistory, llm LLMClient, opts ClusterOptions) *ClusterService {
	if opts.ChunkSize == 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	return &ClusterService{
		store: store,
		llm:   llm,
		locks: utils.NewKeyedMutex(),
		opts:  opts,
		now:   time.Now,
	}
}

// ImportHistory 保存用户上传的观看记录
func (s *ClusterService) ImportHistory(ctx context.Context, userID string, items []models.WatchHistoryItem) (int, error) {
	if len(items) == 0 {
		return 0, ErrEmptyHistory
	}
	saved, err := s.store.SaveWatchHistory(ctx, userID, items)
	if err != nil {
		return 0, fmt.Errorf("%w: save watch history: %w", ErrStorage, err)
	}
	logger.Info("观看记录导入完成", "user_id", userID, "received", len(items), "saved", saved)
	return saved, nil
}

// GetActiveClusters 返回用户当前的有效聚类
func (s *ClusterService) GetActiveClusters(ctx context.Context, userID string) ([]models.ClusterRecord, error) {
	return s.store.GetActiveClusters(ctx, userID)
}

// BuildPrompt 分块、统计关键词并生成提示词
func (s *ClusterService) BuildPrompt(items []models.WatchHistoryItem) (string, *KeywordIndex, error) {
	chunks, err := ChunkHistory(items, s.opts.ChunkSize)
	if err != nil {
		return "", nil, err
	}
	idx := AggregateKeywords(chunks, s.opts.SampleCap)
	if idx.Len() == 0 {
		return "", idx, ErrEmptyHistory
	}

	top := idx.Top(s.opts.Prompt.TopN)
	logger.Info("关键词统计完成",
		"items", countChunkItems(chunks),
		"chunks", len(chunks),
		"skipped", idx.SkippedCount(),
		"distinct_keywords", idx.Len(),
		"top", topKeywordsSummary(top))

	return BuildClusterPrompt(idx, s.opts.Prompt), idx, nil
}

// AnalyzeHistory 对给定观看记录执行完整聚类流程并替换用户的有效聚类。
// 模型调用失败或没有解析出聚类时不写入任何数据。
func (s *ClusterService) AnalyzeHistory(ctx context.Context, userID string, items []models.WatchHistoryItem) ([]models.ClusterRecord, error) {
	prompt, _, err := s.BuildPrompt(items)
	if err != nil {
		return nil, err
	}

	reply, err := s.llm.Complete(ctx, prompt)
	if err != nil {
		if !errors.Is(err, ErrModelCall) {
			err = fmt.Errorf("%w: %w", ErrModelCall, err)
		}
		return nil, err
	}

	records := ParseClusterResponse(reply, s.opts.Prompt.Protocol)
	if len(records) == 0 {
		logger.Warn("模型回复中没有可用聚类", "user_id", userID, "reply_preview", utils.Truncate(reply, 200))
		return nil, ErrNoClusters
	}

	createdAt := s.now()
	for i := range records {
		records[i].ID = uuid.NewString()
		records[i].UserID = userID
		records[i].CreatedAt = createdAt
	}

	unlock := s.locks.Lock(userID)
	defer unlock()
	if err := s.store.PersistClusterRecords(ctx, userID, records); err != nil {
		return nil, fmt.Errorf("%w: persist clusters: %w", ErrStorage, err)
	}

	logger.Info("用户聚类已更新", "user_id", userID, "clusters", len(records))
	return records, nil
}

// AnalyzeUser 读取用户已保存的观看记录并重新聚类。
// 成功或记录中没有可用关键词时，把本次读到的记录标记为已聚类；其它失败保留待聚类状态以便下次重试。
func (s *ClusterService) AnalyzeUser(ctx context.Context, userID, trigger string) ([]models.ClusterRecord, error) {
	items, lastID, err := s.store.GetWatchHistory(ctx, userID)
	if err != nil {
		metrics.RecordClusterRun(trigger, "storage_error")
		return nil, fmt.Errorf("%w: load watch history: %w", ErrStorage, err)
	}

	records, err := s.AnalyzeHistory(ctx, userID, items)
	if err != nil {
		if errors.Is(err, ErrEmptyHistory) {
			s.markClustered(ctx, userID, lastID)
		}
		metrics.RecordClusterRun(trigger, runOutcome(err))
		return nil, err
	}

	s.markClustered(ctx, userID, lastID)
	metrics.RecordClusterRun(trigger, "success")
	return records, nil
}

func (s *ClusterService) markClustered(ctx context.Context, userID string, upToID int64) {
	if upToID <= 0 {
		return
	}
	if err := s.store.MarkHistoryClustered(ctx, userID, upToID); err != nil {
		logger.Warn("标记观看记录已聚类失败", "user_id", userID, "up_to_id", upToID, "error", err)
	}
}

func runOutcome(err error) string {
	switch {
	case errors.Is(err, ErrModelCall):
		return "model_error"
	case errors.Is(err, ErrEmptyHistory):
		return "empty_history"
	case errors.Is(err, ErrNoClusters):
		return "no_clusters"
	case errors.Is(err, ErrStorage):
		return "storage_error"
	default:
		return "error"
	}
}

// BatchStats 批量聚类统计
type BatchStats struct {
	Processed int
	Succeeded int
	Skipped   int
	Failed    int
}

// AnalyzePendingUsers 为有新观看记录的用户重新聚类
func (s *ClusterService) AnalyzePendingUsers(ctx context.Context, limit, concurrency int) (BatchStats, error) {
	userIDs, err := s.store.ListUsersWithPendingHistory(ctx, limit)
	if err != nil {
		logger.Error("获取待聚类用户失败", "error", err)
		return BatchStats{}, err
	}
	logger.Info("找到待聚类用户", "count", len(userIDs))
	return s.AnalyzeUsersWithConcurrency(ctx, userIDs, concurrency), nil
}

// AnalyzeUsersWithConcurrency 并发为多个用户聚类
func (s *ClusterService) AnalyzeUsersWithConcurrency(ctx context.Context, userIDs []string, concurrency int) BatchStats {
	if concurrency <= 0 {
		concurrency = 1
	}
	var wg sync.WaitGroup
	semaphore := make(chan struct{}, concurrency)

	var mu sync.Mutex
	var stats BatchStats

	for _, userID := range userIDs {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		semaphore <- struct{}{} // acquire semaphore

		go func(uid string) {
			defer wg.Done()
			defer func() { <-semaphore }() // release semaphore

			_, err := s.AnalyzeUser(ctx, uid, "scheduler")
			mu.Lock()
			defer mu.Unlock()
			stats.Processed++
			switch {
			case err == nil:
				stats.Succeeded++
				logger.Info("成功更新用户聚类", "user_id", uid)
			case errors.Is(err, ErrEmptyHistory):
				stats.Skipped++
				logger.Debug("用户没有可用观看记录", "user_id", uid)
			default:
				stats.Failed++
				logger.Error("用户聚类失败", "user_id", uid, "error", err)
			}
		}(userID)
	}

	wg.Wait()
	logger.Info("批量聚类完成",
		"processed", stats.Processed,
		"succeeded", stats.Succeeded,
		"skipped", stats.Skipped,
		"failed", stats.Failed,
	)
	return stats
}
