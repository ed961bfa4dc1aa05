package services

import (
	"fmt"
	"sort"

	"interest_cluster/logger"
	"interest_cluster/metrics"
	"interest_cluster/models"
	"interest_cluster/utils"
)

const (
	// DefaultSimilarityThreshold 相似度阈值
	DefaultSimilarityThreshold = 0.30
	// DefaultFallbackTopN 没有候选达到阈值时保底返回的数量
	DefaultFallbackTopN = 3
)

// RankOutcome 排序阶段的结果类型
type RankOutcome string

const (
	RankEmptyPool      RankOutcome = "empty_pool"      // 候选池为空
	RankAboveThreshold RankOutcome = "above_threshold" // 有候选达到阈值
	RankFallbackTopN   RankOutcome = "fallback_top_n"  // 无候选达到阈值，取前 N
	RankUnscored       RankOutcome = "unscored"        // 没有参考项，未打分
	RankScoringFailed  RankOutcome = "scoring_failed"  // 打分失败，退回未打分
	RankRawPool        RankOutcome = "raw_pool"        // 无参考项时直接返回原始候选池
)

// RankOptions 阈值与保底策略
type RankOptions struct {
	Threshold float64
	FallbackN int
	// RawPoolWithoutReference 为 true 时，没有参考项直接返回原始候选池，不经过阈值逻辑
	RawPoolWithoutReference bool
}

// DefaultRankOptions 默认阈值 0.30，保底 3 条
func DefaultRankOptions() RankOptions {
	return RankOptions{Threshold: DefaultSimilarityThreshold, FallbackN: DefaultFallbackTopN}
}

// RankResult 排序结果
type RankResult struct {
	Items   []models.CandidateImage
	Outcome RankOutcome
}

// ScoreBatch 对每个候选调用一次 scorer，分数截断到 [0,1]，按分数降序稳定排序。
// 任一候选打分失败时返回错误，调用方负责降级。
func ScoreBatch(reference models.CandidateImage, candidates []models.CandidateImage, scorer Scorer) ([]models.CandidateImage, error) {
	scored := make([]models.CandidateImage, 0, len(candidates))
	for _, c := range candidates {
		s, err := scorer.Score(reference, c)
		if err != nil {
			return nil, fmt.Errorf("score candidate %s: %w", c.ID, err)
		}
		scored = append(scored, c.WithSimilarity(clamp01(s)))
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score() > scored[j].Score()
	})
	return scored, nil
}

// RankCandidates 打分并应用阈值与保底策略：
//   - 保留相似度 >= 阈值的候选；
//   - 一个都没有且候选池非空时，返回分数最高的前 N 个；
//   - 候选池为空时返回空结果。
//
// reference 为 nil 时候选不打分，按原顺序参与同样的阈值逻辑（未打分视为 0 分）。
func RankCandidates(reference *models.CandidateImage, pool []models.CandidateImage, scorer Scorer, opts RankOptions) RankResult {
	if opts.FallbackN <= 0 {
		opts.FallbackN = DefaultFallbackTopN
	}

	result := rankCandidates(reference, pool, scorer, opts)
	metrics.RecordRankOutcome(string(result.Outcome))
	return result
}

func rankCandidates(reference *models.CandidateImage, pool []models.CandidateImage, scorer Scorer, opts RankOptions) RankResult {
	if len(pool) == 0 {
		return RankResult{Items: []models.CandidateImage{}, Outcome: RankEmptyPool}
	}

	if reference == nil {
		if opts.RawPoolWithoutReference {
			return RankResult{Items: copyPool(pool), Outcome: RankRawPool}
		}
		items, _ := applyThreshold(copyPool(pool), opts)
		return RankResult{Items: items, Outcome: RankUnscored}
	}

	scored, err := ScoreBatch(*reference, pool, scorer)
	if err != nil {
		logger.Warn("相似度计算失败，候选退回未打分状态", "reference_id", reference.ID, "error", err)
		items, _ := applyThreshold(copyPool(pool), opts)
		return RankResult{Items: items, Outcome: RankScoringFailed}
	}

	items, outcome := applyThreshold(scored, opts)
	return RankResult{Items: items, Outcome: outcome}
}

// applyThreshold 输入须已按分数降序排列（未打分的候选分数视为 0）
func applyThreshold(sorted []models.CandidateImage, opts RankOptions) ([]models.CandidateImage, RankOutcome) {
	kept := make([]models.CandidateImage, 0, len(sorted))
	for _, c := range sorted {
		if c.Scored() && c.Score() >= opts.Threshold {
			kept = append(kept, c)
		}
	}
	if len(kept) > 0 {
		return kept, RankAboveThreshold
	}
	n := min(opts.FallbackN, len(sorted))
	return sorted[:n], RankFallbackTopN
}

func copyPool(pool []models.CandidateImage) []models.CandidateImage {
	out := make([]models.CandidateImage, len(pool))
	copy(out, pool)
	return out
}

func clamp01(v float64) float64 {
	switch {
	case v != v: // NaN
		return 0
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// KeywordOverlapScorer 默认相似度：两个兴趣项关键词集合的 Jaccard 系数，
// 主关键词相同时额外加权。
type KeywordOverlapScorer struct {
	MainKeywordBonus float64
}

// Score 计算 [0,1] 内的相似度
func (s KeywordOverlapScorer) Score(reference, candidate models.CandidateImage) (float64, error) {
	a := keywordSet(reference)
	b := keywordSet(candidate)
	if len(a) == 0 || len(b) == 0 {
		return 0, nil
	}

	intersection := 0
	for k := range a {
		if b[k] {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	score := float64(intersection) / float64(union)

	if utils.NormalizeKeyword(reference.MainKeyword) != "" &&
		utils.NormalizeKeyword(reference.MainKeyword) == utils.NormalizeKeyword(candidate.MainKeyword) {
		score += s.MainKeywordBonus
	}
	return clamp01(score), nil
}

func keywordSet(item models.CandidateImage) map[string]bool {
	set := make(map[string]bool, len(item.Keywords)+1)
	if k := utils.NormalizeKeyword(item.MainKeyword); k != "" {
		set[k] = true
	}
	for _, kw := range item.Keywords {
		if k := utils.NormalizeKeyword(kw); k != "" {
			set[k] = true
		}
	}
	return set
}
