package services

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"interest_cluster/logger"
	"interest_cluster/metrics"
	"interest_cluster/models"
	"interest_cluster/utils"
)

// Protocol 模型回复的格式版本
type Protocol string

const (
	// ProtocolRelatedVideos 最后一个字段为关联视频链接列表
	ProtocolRelatedVideos Protocol = "related_videos"
	// ProtocolVideoCount 最后一个字段为视频数量
	ProtocolVideoCount Protocol = "video_count"
	// ProtocolJSON 由模型直接返回符合 schema 的 JSON
	ProtocolJSON Protocol = "json"
)

const (
	clusterStart = "CLUSTER_START"
	clusterEnd   = "CLUSTER_END"
)

const (
	fieldMainKeyword   = "main_keyword"
	fieldCategory      = "category"
	fieldDescription   = "description"
	fieldKeywords      = "keywords"
	fieldMoodKeyword   = "mood_keyword"
	fieldRelatedVideos = "related_videos"
	fieldVideoCount    = "video_count"
)

// ParseProtocol 解析配置中的协议名，未知值回落到 related_videos
func ParseProtocol(s string) Protocol {
	switch Protocol(strings.ToLower(strings.TrimSpace(s))) {
	case ProtocolVideoCount:
		return ProtocolVideoCount
	case ProtocolJSON:
		return ProtocolJSON
	default:
		return ProtocolRelatedVideos
	}
}

// Fields 返回该协议下每个块的字段顺序
func (p Protocol) Fields() []string {
	last := fieldRelatedVideos
	if p == ProtocolVideoCount {
		last = fieldVideoCount
	}
	return []string{fieldMainKeyword, fieldCategory, fieldDescription, fieldKeywords, fieldMoodKeyword, last}
}

var (
	reNumberedMarker  = regexp.MustCompile(`^\d+\.\s+`)
	reLabeledLine     = regexp.MustCompile(`^([\p{L}_ ]{2,32})\s*[:：]\s*(.*)$`)
	reFirstInteger    = regexp.MustCompile(`\d+`)
	reHorizontalRule  = regexp.MustCompile(`^(?:(?:-[ \t]*){3,}|(?:\*[ \t]*){3,}|(?:_[ \t]*){3,}|(?:=[ \t]*){3,})$`)
	reEmphasisResidue = regexp.MustCompile("^[*_~`]{2,}$")
)

// fieldAliases 可识别的字段标签
var fieldAliases = map[string]string{
	"main_keyword":   fieldMainKeyword,
	"mainkeyword":    fieldMainKeyword,
	"主关键词":           fieldMainKeyword,
	"category":       fieldCategory,
	"分类":             fieldCategory,
	"description":    fieldDescription,
	"描述":             fieldDescription,
	"keywords":       fieldKeywords,
	"keyword_list":   fieldKeywords,
	"关键词":            fieldKeywords,
	"mood_keyword":   fieldMoodKeyword,
	"mood_keywords":  fieldMoodKeyword,
	"mood":           fieldMoodKeyword,
	"情绪关键词":          fieldMoodKeyword,
	"related_videos": fieldRelatedVideos,
	"videos":         fieldRelatedVideos,
	"相关视频":           fieldRelatedVideos,
	"video_count":    fieldVideoCount,
	"视频数量":           fieldVideoCount,
}

// ParseClusterResponse 从模型回复中提取聚类记录。
// 没有 CLUSTER_END 的块整体丢弃；任何输入都不会 panic，最坏情况返回空切片。
func ParseClusterResponse(text string, protocol Protocol) []models.ClusterRecord {
	var (
		records   []models.ClusterRecord
		discarded int
	)
	if protocol == ProtocolJSON {
		records, discarded = parseJSONClusters(text)
	} else {
		records, discarded = parseClusterBlocks(text, protocol)
	}

	metrics.RecordClusterBlocks(string(protocol), len(records), discarded)
	if discarded > 0 {
		logger.Warn("部分聚类块被丢弃", "protocol", protocol, "parsed", len(records), "discarded", discarded)
	}
	if records == nil {
		records = []models.ClusterRecord{}
	}
	return records
}

func parseClusterBlocks(text string, protocol Protocol) ([]models.ClusterRecord, int) {
	segments := strings.Split(text, clusterStart)
	if len(segments) < 2 {
		return nil, 0
	}

	var (
		records   []models.ClusterRecord
		discarded int
	)
	for _, seg := range segments[1:] {
		end := strings.Index(seg, clusterEnd)
		if end < 0 {
			discarded++
			continue
		}
		fields := mapBlockFields(seg[:end], protocol)
		records = append(records, buildClusterRecord(fields, protocol))
	}
	return records, discarded
}

// mapBlockFields 带已知标签的行按标签归位，其余行按顺序填入尚未赋值的字段
func mapBlockFields(block string, protocol Protocol) map[string]string {
	order := protocol.Fields()
	allowed := make(map[string]bool, len(order))
	for _, f := range order {
		allowed[f] = true
	}

	values := make(map[string]string, len(order))
	assigned := make(map[string]bool, len(order))
	next := 0

	for _, raw := range strings.Split(block, "\n") {
		line := strings.TrimSpace(raw)
		line = reNumberedMarker.ReplaceAllString(line, "")
		line = utils.StripMarkdown(line)
		if isDecorationOnly(line) {
			continue
		}

		if field, value, ok := labeledField(line, allowed); ok {
			if !assigned[field] {
				values[field] = utils.StripMarkdown(value)
				assigned[field] = true
			}
			continue
		}

		for next < len(order) && assigned[order[next]] {
			next++
		}
		if next >= len(order) {
			continue
		}
		values[order[next]] = line
		assigned[order[next]] = true
	}
	return values
}

func labeledField(line string, allowed map[string]bool) (string, string, bool) {
	m := reLabeledLine.FindStringSubmatch(line)
	if m == nil {
		return "", "", false
	}
	key := strings.ToLower(strings.TrimSpace(m[1]))
	key = strings.ReplaceAll(key, " ", "_")
	field, ok := fieldAliases[key]
	if !ok || !allowed[field] {
		return "", "", false
	}
	return field, strings.TrimSpace(m[2]), true
}

// isDecorationOnly 空行、水平分隔线（--- *** ___ ===）或残留的成对强调符号（** __ ```）。
// 单独的 - 或 * 视为占位值，仍占据字段位置。
func isDecorationOnly(line string) bool {
	return line == "" || reHorizontalRule.MatchString(line) || reEmphasisResidue.MatchString(line)
}

func buildClusterRecord(fields map[string]string, protocol Protocol) models.ClusterRecord {
	keywords := utils.SplitCommaList(fields[fieldKeywords])
	moods := utils.SplitCommaList(fields[fieldMoodKeyword])

	videos := []models.RelatedVideo{}
	var videoCount int
	if protocol == ProtocolVideoCount {
		videoCount = parseVideoCount(fields[fieldVideoCount])
	} else {
		for _, u := range utils.SplitCommaList(fields[fieldRelatedVideos]) {
			videos = append(videos, models.RelatedVideo{URL: u})
		}
		videoCount = len(videos)
	}

	return models.ClusterRecord{
		MainKeyword:   fields[fieldMainKeyword],
		Category:      fields[fieldCategory],
		Description:   fields[fieldDescription],
		KeywordList:   strings.Join(keywords, ", "),
		MoodKeyword:   strings.Join(moods, ", "),
		Strength:      len(videos),
		RelatedVideos: videos,
		Metadata: models.ClusterMetadata{
			KeywordCount: len(keywords),
			VideoCount:   videoCount,
			MoodKeywords: moods,
		},
	}
}

func parseVideoCount(s string) int {
	m := reFirstInteger.FindString(s)
	if m == "" {
		return 0
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0
	}
	return n
}

// jsonCluster 结构化输出中的单个聚类
type jsonCluster struct {
	MainKeyword   string   `json:"main_keyword" validate:"required"`
	Category      string   `json:"category"`
	Description   string   `json:"description"`
	Keywords      []string `json:"keywords" validate:"required,min=1,dive,required"`
	MoodKeywords  []string `json:"mood_keywords"`
	RelatedVideos []string `json:"related_videos" validate:"dive,required"`
}

type jsonClusterResponse struct {
	Clusters []json.RawMessage `json:"clusters"`
}

var clusterValidate = validator.New(validator.WithRequiredStructEnabled())

// parseJSONClusters 逐个校验聚类，校验失败的聚类丢弃，其余保留
func parseJSONClusters(text string) ([]models.ClusterRecord, int) {
	payload := extractJSONFromText(text)
	if payload == "" {
		return nil, 0
	}

	var raw []json.RawMessage
	var wrapped jsonClusterResponse
	if err := json.Unmarshal([]byte(payload), &wrapped); err == nil && wrapped.Clusters != nil {
		raw = wrapped.Clusters
	} else if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		logger.Warn("解析结构化聚类JSON失败", "error", err, "preview", utils.Truncate(payload, 200))
		return nil, 0
	}

	var (
		records   []models.ClusterRecord
		discarded int
	)
	for _, item := range raw {
		var c jsonCluster
		if err := json.Unmarshal(item, &c); err != nil {
			discarded++
			continue
		}
		c.MainKeyword = utils.StripMarkdown(c.MainKeyword)
		if err := clusterValidate.Struct(c); err != nil {
			discarded++
			continue
		}
		records = append(records, c.toRecord())
	}
	return records, discarded
}

func (c jsonCluster) toRecord() models.ClusterRecord {
	keywords := cleanList(c.Keywords)
	moods := cleanList(c.MoodKeywords)
	videos := []models.RelatedVideo{}
	for _, u := range cleanList(c.RelatedVideos) {
		videos = append(videos, models.RelatedVideo{URL: u})
	}
	return models.ClusterRecord{
		MainKeyword:   c.MainKeyword,
		Category:      utils.StripMarkdown(c.Category),
		Description:   utils.StripMarkdown(c.Description),
		KeywordList:   strings.Join(keywords, ", "),
		MoodKeyword:   strings.Join(moods, ", "),
		Strength:      len(videos),
		RelatedVideos: videos,
		Metadata: models.ClusterMetadata{
			KeywordCount: len(keywords),
			VideoCount:   len(videos),
			MoodKeywords: moods,
		},
	}
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v = utils.StripMarkdown(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// extractJSONFromText 从文本中提取JSON部分，兼容 ```json 代码块
func extractJSONFromText(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		if i := strings.LastIndex(text, "```"); i >= 0 {
			text = text[:i]
		}
		text = strings.TrimSpace(text)
	}

	start := strings.IndexAny(text, "{[")
	if start < 0 {
		return ""
	}
	closer := "}"
	if text[start] == '[' {
		closer = "]"
	}
	end := strings.LastIndex(text, closer)
	if end <= start {
		return ""
	}
	return text[start : end+1]
}
