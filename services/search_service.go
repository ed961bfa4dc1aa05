package services

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"interest_cluster/config"
	"interest_cluster/logger"
	"interest_cluster/metrics"
	"interest_cluster/models"
)

// PoolSource 候选池的来源
type PoolSource string

const (
	PoolKeywordMatch   PoolSource = "keyword_match"   // 按关键词匹配得到
	PoolPublicFallback PoolSource = "public_fallback" // 关键词无结果，退回全部公开项
	PoolPublicNoQuery  PoolSource = "public_all"      // 未提供关键词
)

// SearchOptions 检索参数
type SearchOptions struct {
	CandidateLimit   int
	FetchConcurrency int
	Rank             RankOptions
}

// SearchOptionsFromConfig 从配置读取检索参数
func SearchOptionsFromConfig(cfg *config.Config) SearchOptions {
	return SearchOptions{
		CandidateLimit:   cfg.Search.CandidateLimit,
		FetchConcurrency: cfg.Search.FetchConcurrency,
		Rank: RankOptions{
			Threshold:               cfg.Search.Threshold,
			FallbackN:               cfg.Search.FallbackTopN,
			RawPoolWithoutReference: cfg.Search.RawPoolWithoutReference,
		},
	}
}

// SearchService 相似兴趣检索
type SearchService struct {
	store  CandidateStore
	scorer Scorer
	opts   SearchOptions
}

// NewSearchService 创建检索服务，scorer 为 nil 时使用关键词重叠相似度
func NewSearchService(store CandidateStore, scorer Scorer, opts SearchOptions) *SearchService {
	if scorer == nil {
		scorer = KeywordOverlapScorer{MainKeywordBonus: 0.2}
	}
	if opts.CandidateLimit <= 0 {
		opts.CandidateLimit = 50
	}
	if opts.FetchConcurrency <= 0 {
		opts.FetchConcurrency = 4
	}
	return &SearchService{store: store, scorer: scorer, opts: opts}
}

// BuildCandidatePool 汇总其他用户的公开兴趣项：
//  1. 提供了关键词时逐个查询（并发受限），按关键词顺序合并；
//  2. 合并结果为空时退回全部公开项；没有关键词时直接查询全部公开项；
//  3. 按 id 去重，保留第一次出现的；
//  4. 最后再过滤一遍请求用户自己的项。
//
// 单个查询失败只记录日志，按空结果处理。
func (s *SearchService) BuildCandidatePool(ctx context.Context, keywords []string, userID string) ([]models.CandidateImage, PoolSource) {
	keywords = cleanKeywords(keywords)

	var (
		merged []models.CandidateImage
		source PoolSource
	)
	if len(keywords) > 0 {
		merged = s.fetchByKeywords(ctx, keywords, userID)
		source = PoolKeywordMatch
		if len(merged) == 0 {
			merged = s.fetchAllPublic(ctx, userID)
			source = PoolPublicFallback
		}
	} else {
		merged = s.fetchAllPublic(ctx, userID)
		source = PoolPublicNoQuery
	}

	pool := excludeOwner(dedupByID(merged), userID)
	metrics.RecordCandidatePool(string(source), len(pool))
	logger.Info("候选池构建完成", "user_id", userID, "keywords", keywords, "source", source, "size", len(pool))
	return pool, source
}

func (s *SearchService) fetchByKeywords(ctx context.Context, keywords []string, userID string) []models.CandidateImage {
	results := make([][]models.CandidateImage, len(keywords))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.FetchConcurrency)
	for i, kw := range keywords {
		g.Go(func() error {
			items, err := s.store.SearchItemsByKeyword(gctx, kw, s.opts.CandidateLimit, userID)
			if err != nil {
				metrics.RecordCandidateFetchError("keyword")
				logger.Error("按关键词查询候选失败", "keyword", kw, "user_id", userID, "error", err)
				return nil
			}
			results[i] = items
			return nil
		})
	}
	_ = g.Wait()

	// 按关键词顺序合并，保证先出现者优先
	var merged []models.CandidateImage
	for _, items := range results {
		merged = append(merged, items...)
	}
	return merged
}

func (s *SearchService) fetchAllPublic(ctx context.Context, userID string) []models.CandidateImage {
	items, err := s.store.GetAllPublicItems(ctx, s.opts.CandidateLimit, userID)
	if err != nil {
		metrics.RecordCandidateFetchError("all_public")
		logger.Error("查询全部公开候选失败", "user_id", userID, "error", err)
		return nil
	}
	return items
}

// Search 以用户选中的关键词检索相似兴趣。第一个非空关键词用于确定参考项。
func (s *SearchService) Search(ctx context.Context, userID string, keywords []string) *models.SearchResult {
	keywords = cleanKeywords(keywords)

	var reference *models.CandidateImage
	var chosen string
	if len(keywords) > 0 {
		chosen = keywords[0]
		own, err := s.store.GetActiveUserItems(ctx, userID)
		if err != nil {
			metrics.RecordCandidateFetchError("active_user")
			logger.Error("查询用户有效兴趣项失败", "user_id", userID, "error", err)
		}
		reference = ResolveReference(own, chosen)
		if reference == nil {
			logger.Info("未找到参考兴趣项，候选不打分", "user_id", userID, "keyword", chosen)
		}
	}

	pool, source := s.BuildCandidatePool(ctx, keywords, userID)
	ranked := RankCandidates(reference, pool, s.scorer, s.opts.Rank)

	return &models.SearchResult{
		UserID:     userID,
		Keyword:    chosen,
		Reference:  reference,
		PoolSource: string(source),
		Outcome:    string(ranked.Outcome),
		Items:      excludeOwner(ranked.Items, userID),
	}
}

func cleanKeywords(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(kw), "#"))
		if kw != "" {
			out = append(out, kw)
		}
	}
	return out
}

func dedupByID(items []models.CandidateImage) []models.CandidateImage {
	seen := make(map[string]bool, len(items))
	out := make([]models.CandidateImage, 0, len(items))
	for _, it := range items {
		if seen[it.ID] {
			continue
		}
		seen[it.ID] = true
		out = append(out, it)
	}
	return out
}

func excludeOwner(items []models.CandidateImage, userID string) []models.CandidateImage {
	out := make([]models.CandidateImage, 0, len(items))
	for _, it := range items {
		if it.UserID == userID {
			continue
		}
		out = append(out, it)
	}
	return out
}
