package services

import (
	"sort"
	"strings"

	"interest_cluster/models"
)

const (
	// DefaultSampleCap 每个关键词在提示词中展示的标题数量上限
	DefaultSampleCap = 5
	// DefaultTopKeywords 默认取前 10 个关键词
	DefaultTopKeywords = 10
)

// VideoSample 提示词中展示的示例视频
type VideoSample struct {
	Title   string
	VideoID string
}

// URL 返回视频链接，没有 videoId 时为空
func (v VideoSample) URL() string {
	if v.VideoID == "" {
		return ""
	}
	return "https://www.youtube.com/watch?v=" + v.VideoID
}

// KeywordCount 关键词及其真实出现次数
type KeywordCount struct {
	Keyword string
	Count   int
	Samples []VideoSample
}

// KeywordIndex 关键词计数表与示例标题索引。
// 计数不受示例数量上限影响。
type KeywordIndex struct {
	counts    map[string]int
	samples   map[string][]VideoSample
	order     []string // 首次出现顺序，用于稳定排序
	sampleCap int
	items     int // 参与统计的记录数
	skipped   int // keywords 字段无效而跳过的记录数
}

// NewKeywordIndex 创建空索引，sampleCap<=0 时使用默认值
func NewKeywordIndex(sampleCap int) *KeywordIndex {
	if sampleCap <= 0 {
		sampleCap = DefaultSampleCap
	}
	return &KeywordIndex{
		counts:    make(map[string]int),
		samples:   make(map[string][]VideoSample),
		sampleCap: sampleCap,
	}
}

// Add 累加一批观看记录
func (idx *KeywordIndex) Add(chunk []models.WatchHistoryItem) {
	for _, item := range chunk {
		if len(item.Keywords) == 0 {
			idx.skipped++
			continue
		}
		idx.items++
		for _, kw := range item.Keywords {
			kw = strings.TrimSpace(kw)
			if kw == "" {
				continue
			}
			if _, seen := idx.counts[kw]; !seen {
				idx.order = append(idx.order, kw)
			}
			idx.counts[kw]++
			if len(idx.samples[kw]) < idx.sampleCap {
				idx.samples[kw] = append(idx.samples[kw], VideoSample{Title: item.Title, VideoID: item.VideoID})
			}
		}
	}
}

// Count 返回关键词的真实计数
func (idx *KeywordIndex) Count(keyword string) int {
	return idx.counts[keyword]
}

// Titles 返回关键词的示例标题（最多 sampleCap 条）
func (idx *KeywordIndex) Titles(keyword string) []string {
	samples := idx.samples[keyword]
	titles := make([]string, 0, len(samples))
	for _, s := range samples {
		titles = append(titles, s.Title)
	}
	return titles
}

// Len 不同关键词的数量
func (idx *KeywordIndex) Len() int {
	return len(idx.order)
}

// ItemCount 参与统计的记录数
func (idx *KeywordIndex) ItemCount() int {
	return idx.items
}

// SkippedCount keywords 缺失或无效的记录数
func (idx *KeywordIndex) SkippedCount() int {
	return idx.skipped
}

// Top 按真实计数降序返回前 n 个关键词，计数相同时先出现的在前
func (idx *KeywordIndex) Top(n int) []KeywordCount {
	ranked := make([]KeywordCount, 0, len(idx.order))
	for _, kw := range idx.order {
		ranked = append(ranked, KeywordCount{
			Keyword: kw,
			Count:   idx.counts[kw],
			Samples: idx.samples[kw],
		})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Count > ranked[j].Count
	})
	if n >= 0 && len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

// AggregateKeywords 消费全部批次，构建关键词索引
func AggregateKeywords(chunks [][]models.WatchHistoryItem, sampleCap int) *KeywordIndex {
	idx := NewKeywordIndex(sampleCap)
	for _, chunk := range chunks {
		idx.Add(chunk)
	}
	return idx
}
