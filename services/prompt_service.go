package services

import (
	"fmt"
	"strings"

	"interest_cluster/models"
)

// PromptOptions 聚类提示词参数
type PromptOptions struct {
	TopN        int      // 展示的关键词数量
	MinClusters int      // 要求的最少聚类数
	MinVideos   int      // 每个聚类要求的最少视频数
	Protocol    Protocol // 回复格式版本
}

// DefaultPromptOptions 默认提示词参数
func DefaultPromptOptions() PromptOptions {
	return PromptOptions{
		TopN:        DefaultTopKeywords,
		MinClusters: 5,
		MinVideos:   3,
		Protocol:    ProtocolRelatedVideos,
	}
}

func (o PromptOptions) withDefaults() PromptOptions {
	d := DefaultPromptOptions()
	if o.TopN <= 0 {
		o.TopN = d.TopN
	}
	if o.MinClusters <= 0 {
		o.MinClusters = d.MinClusters
	}
	if o.MinVideos <= 0 {
		o.MinVideos = d.MinVideos
	}
	if o.Protocol == "" {
		o.Protocol = d.Protocol
	}
	return o
}

// BuildClusterPrompt 构建兴趣聚类提示词。相同输入总是得到相同文本。
// 提示词中的格式规则只是对模型的要求，解析时不假设模型会遵守。
func BuildClusterPrompt(idx *KeywordIndex, opts PromptOptions) string {
	opts = opts.withDefaults()
	top := idx.Top(opts.TopN)

	var b strings.Builder
	b.WriteString("你是一名用户行为分析师。请根据以下 YouTube 观看记录，分析用户的生活方式、兴趣爱好和观看目的，")
	b.WriteString("把这些视频归纳为若干语义一致的兴趣聚类。\n\n")

	b.WriteString("一、高频关键词及示例视频：\n")
	for i, kc := range top {
		fmt.Fprintf(&b, "%d. %s（%d 次）\n", i+1, kc.Keyword, kc.Count)
		for _, s := range kc.Samples {
			if u := s.URL(); u != "" {
				fmt.Fprintf(&b, "   - %s (%s)\n", s.Title, u)
			} else {
				fmt.Fprintf(&b, "   - %s\n", s.Title)
			}
		}
	}

	b.WriteString("\n二、关键词频率表：\n")
	for _, kc := range top {
		fmt.Fprintf(&b, "%s: %d\n", kc.Keyword, kc.Count)
	}

	b.WriteString("\n三、输出要求：\n")
	fmt.Fprintf(&b, "1. 每个视频至少属于一个聚类\n")
	fmt.Fprintf(&b, "2. 每个聚类至少关联 %d 个视频\n", opts.MinVideos)
	fmt.Fprintf(&b, "3. 同一个视频可以属于多个聚类\n")
	fmt.Fprintf(&b, "4. 不要使用粗体、斜体等 markdown 强调格式\n")
	fmt.Fprintf(&b, "5. 至少输出 %d 个聚类\n", opts.MinClusters)

	if opts.Protocol == ProtocolJSON {
		b.WriteString("6. 以 JSON 返回，格式为 {\"clusters\": [{\"main_keyword\", \"category\", \"description\", ")
		b.WriteString("\"keywords\": [], \"mood_keywords\": [], \"related_videos\": []}]}，不要输出其他内容\n")
		return b.String()
	}

	b.WriteString("6. 每个聚类严格使用以下格式，每个字段单独一行，按顺序输出：\n\n")
	b.WriteString(clusterStart + "\n")
	for _, f := range opts.Protocol.Fields() {
		fmt.Fprintf(&b, "%s: %s\n", f, fieldHint(f))
	}
	b.WriteString(clusterEnd + "\n")
	return b.String()
}

func fieldHint(field string) string {
	switch field {
	case fieldMainKeyword:
		return "聚类的核心关键词"
	case fieldCategory:
		return "所属类别"
	case fieldDescription:
		return "一句话描述该兴趣"
	case fieldKeywords:
		return "相关关键词，用逗号分隔"
	case fieldMoodKeyword:
		return "情绪关键词，用逗号分隔"
	case fieldRelatedVideos:
		return "相关视频链接，用逗号分隔"
	case fieldVideoCount:
		return "相关视频数量（整数）"
	default:
		return ""
	}
}

// topKeywordsSummary 日志用的关键词摘要
func topKeywordsSummary(top []KeywordCount) []string {
	out := make([]string, 0, len(top))
	for _, kc := range top {
		out = append(out, fmt.Sprintf("%s:%d", kc.Keyword, kc.Count))
	}
	return out
}

// countChunkItems 批次中的记录总数
func countChunkItems(chunks [][]models.WatchHistoryItem) int {
	n := 0
	for _, c := range chunks {
		n += len(c)
	}
	return n
}
